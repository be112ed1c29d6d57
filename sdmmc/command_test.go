package sdmmc

import (
	"testing"

	"github.com/ardnew/softsd/sdmmc/hal"
	"github.com/ardnew/softsd/sdmmc/hal/sim"
)

func poweredBench(t *testing.T, card sim.CardConfig) *bench {
	t.Helper()
	b := newBench(t, card)
	b.regs.SetPower(true)
	b.regs.CLKCR.Assign(hal.ClkcrCLKEN, true)
	return b
}

func TestSend(t *testing.T) {
	b := poweredBench(t, sim.DefaultCard())

	// Leftover mode bits from an earlier command must not survive.
	b.regs.CMD.Write(uint32(hal.CmdWAITINT | hal.CmdWAITPEND | hal.CmdSDIOSUSPEND))
	b.h.send(cmdSendIfCond, checkPattern, hal.WaitRespShort)

	cmd := b.regs.CMD.Read()
	if got := hal.CmdCMDINDEX.Get(cmd); got != cmdSendIfCond {
		t.Errorf("CMDINDEX = %d, want %d", got, cmdSendIfCond)
	}
	if got := hal.CmdWAITRESP.Get(cmd); got != hal.WaitRespShort {
		t.Errorf("WAITRESP = %d, want %d", got, hal.WaitRespShort)
	}
	if !hal.CmdCPSMEN.In(cmd) {
		t.Error("CPSMEN should be set")
	}
	for _, f := range []struct {
		name string
		bit  bool
	}{
		{"WAITINT", hal.CmdWAITINT.In(cmd)},
		{"WAITPEND", hal.CmdWAITPEND.In(cmd)},
		{"SDIOSUSPEND", hal.CmdSDIOSUSPEND.In(cmd)},
	} {
		if f.bit {
			t.Errorf("%s should be cleared", f.name)
		}
	}
	if got := b.regs.ARG.Read(); got != checkPattern {
		t.Errorf("ARG = 0x%08X, want 0x%08X", got, checkPattern)
	}
}

func TestResponses(t *testing.T) {
	tests := []struct {
		name string
		card func(*sim.CardConfig)
		run  func(h *Handle) ErrorCode
		want ErrorCode
	}{
		{
			name: "go idle",
			run:  (*Handle).goIdleState,
			want: ErrNone,
		},
		{
			name: "if cond",
			run:  (*Handle).sendIfCond,
			want: ErrNone,
		},
		{
			name: "if cond crc accepted",
			card: func(c *sim.CardConfig) { c.Faults = map[int]sim.Fault{8: sim.FaultCRC} },
			run:  (*Handle).sendIfCond,
			want: ErrNone,
		},
		{
			name: "if cond version 1",
			card: func(c *sim.CardConfig) { c.Version = 1 },
			run:  (*Handle).sendIfCond,
			want: ErrCmdRspTimeout,
		},
		{
			name: "app cmd",
			run:  func(h *Handle) ErrorCode { return h.appCmd(0) },
			want: ErrNone,
		},
		{
			name: "app cmd index",
			card: func(c *sim.CardConfig) { c.Faults = map[int]sim.Fault{55: sim.FaultIndex} },
			run:  func(h *Handle) ErrorCode { return h.appCmd(0) },
			want: ErrCmdCRCFail,
		},
		{
			name: "app cmd status",
			card: func(c *sim.CardConfig) { c.Status = map[int]uint32{55: 1 << 31} },
			run:  func(h *Handle) ErrorCode { return h.appCmd(0) },
			want: ErrAddrOutOfRange,
		},
		{
			name: "all send cid out of order",
			run:  (*Handle).allSendCID,
			want: ErrCmdRspTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := sim.DefaultCard()
			if tt.card != nil {
				tt.card(&card)
			}
			b := poweredBench(t, card)
			b.sim.Latency = 3

			if got := tt.run(b.h); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if sta := b.regs.STA.Read(); sta&hal.StaticFlags != 0 {
				t.Errorf("STA = 0x%03X after response, want static flags cleared", sta)
			}
		})
	}
}

func TestRelativeAddress(t *testing.T) {
	b := poweredBench(t, sim.DefaultCard())
	for _, step := range []func() ErrorCode{
		b.h.goIdleState,
		b.h.sendIfCond,
		func() ErrorCode { return b.h.appCmd(0) },
		func() ErrorCode { return b.h.sdSendOpCond(CapacityHigh) },
		b.h.allSendCID,
	} {
		if code := step(); code != ErrNone {
			t.Fatalf("identification step failed: %v", code)
		}
	}

	rca, code := b.h.sendRelativeAddr()
	if code != ErrNone {
		t.Fatalf("sendRelativeAddr() error = %v", code)
	}
	if rca != 0xB3680000 {
		t.Errorf("RCA = 0x%08X, want 0xB3680000", rca)
	}
}
