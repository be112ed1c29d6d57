package sim

import (
	"testing"

	"github.com/ardnew/softsd/pkg/mmio"
	"github.com/ardnew/softsd/sdmmc/hal"
)

func newHost(t *testing.T, cfg CardConfig) (*SDMMC, *hal.Controller) {
	t.Helper()
	s := New(hal.SDMMC1Base, cfg)
	regs := hal.New(s, hal.SDMMC1Base)
	regs.SetPower(true)
	regs.CLKCR.Assign(hal.ClkcrCLKEN, true)
	return s, regs
}

func send(regs *hal.Controller, idx, arg, wait uint32) uint32 {
	regs.ICR.Write(hal.StaticFlags)
	regs.ARG.Write(arg)
	cmd := hal.CmdCMDINDEX.Put(0, idx)
	cmd = hal.CmdWAITRESP.Put(cmd, wait)
	regs.CMD.Write(hal.CmdCPSMEN.Put(cmd, true))
	return regs.STA.Read()
}

func TestIdentificationSequence(t *testing.T) {
	s, regs := newHost(t, DefaultCard())

	if sta := send(regs, 0, 0, hal.WaitRespNo); !hal.StaCMDSENT.In(sta) {
		t.Fatalf("CMD0: STA = 0x%X", sta)
	}
	if sta := send(regs, 8, 0x1AA, hal.WaitRespShort); !hal.StaCMDREND.In(sta) {
		t.Fatalf("CMD8: STA = 0x%X", sta)
	}
	if got := regs.RESP[0].Read(); got != 0x1AA {
		t.Errorf("CMD8 echo = 0x%X, want 0x1AA", got)
	}

	send(regs, 55, 0, hal.WaitRespShort)
	if got := regs.RESP[0].Read(); got&statusAppCmd == 0 {
		t.Errorf("CMD55 status = 0x%X, APP_CMD clear", got)
	}
	sta := send(regs, 41, 0x40100000, hal.WaitRespShort)
	if !hal.StaCCRCFAIL.In(sta) {
		t.Errorf("ACMD41: STA = 0x%X, want CCRCFAIL", sta)
	}
	if got := regs.RESP[0].Read(); got != ocrBusy|ocrCCS|ocrVoltageWindow {
		t.Errorf("OCR = 0x%08X", got)
	}

	if sta := send(regs, 2, 0, hal.WaitRespLong); !hal.StaCMDREND.In(sta) {
		t.Fatalf("CMD2: STA = 0x%X", sta)
	}
	if regs.Responses() != SampleCID {
		t.Errorf("CID = %08X", regs.Responses())
	}

	send(regs, 3, 0, hal.WaitRespShort)
	rca := regs.RESP[0].Read() &^ 0xFFFF
	if rca != 0xB368<<16 {
		t.Errorf("RCA = 0x%08X", rca)
	}

	send(regs, 9, rca, hal.WaitRespLong)
	if regs.Responses() != SampleCSDv2 {
		t.Errorf("CSD = %08X", regs.Responses())
	}
	if sta := send(regs, 7, rca, hal.WaitRespShort); !hal.StaCMDREND.In(sta) {
		t.Fatalf("CMD7: STA = 0x%X", sta)
	}
	if got := regs.RESPCMD.Get(hal.RespcmdRESPCMD); got != 7 {
		t.Errorf("RESPCMD = %d, want 7", got)
	}
	if s.CardState() != "tran" {
		t.Errorf("card state = %s, want tran", s.CardState())
	}

	send(regs, 55, rca, hal.WaitRespShort)
	send(regs, 6, 2, hal.WaitRespShort)
	if s.BusWidth() != 4 {
		t.Errorf("BusWidth() = %d, want 4", s.BusWidth())
	}

	want := []int{0, 8, 55, App | 41, 2, 3, 9, 7, 55, App | 6}
	if len(s.History) != len(want) {
		t.Fatalf("History = %v, want %v", s.History, want)
	}
	for i := range want {
		if s.History[i] != want[i] {
			t.Errorf("History[%d] = %d, want %d", i, s.History[i], want[i])
		}
	}
}

func TestVersion1RejectsCMD8(t *testing.T) {
	_, regs := newHost(t, StandardCard())
	send(regs, 0, 0, hal.WaitRespNo)
	if sta := send(regs, 8, 0x1AA, hal.WaitRespShort); !hal.StaCTIMEOUT.In(sta) {
		t.Errorf("CMD8: STA = 0x%X, want CTIMEOUT", sta)
	}
}

func TestBusyAfter(t *testing.T) {
	cfg := DefaultCard()
	cfg.BusyAfter = 2
	_, regs := newHost(t, cfg)
	send(regs, 0, 0, hal.WaitRespNo)

	for attempt := 1; attempt <= 3; attempt++ {
		send(regs, 55, 0, hal.WaitRespShort)
		send(regs, 41, 0x40100000, hal.WaitRespShort)
		busy := regs.RESP[0].Read()&ocrBusy != 0
		if busy != (attempt == 3) {
			t.Errorf("attempt %d: busy bit = %v", attempt, busy)
		}
	}
}

func TestUnpoweredCard(t *testing.T) {
	s := New(hal.SDMMC1Base, DefaultCard())
	regs := hal.New(s, hal.SDMMC1Base)

	if sta := send(regs, 0, 0, hal.WaitRespNo); sta != 0 {
		t.Errorf("CMD0 unpowered: STA = 0x%X, want 0", sta)
	}
	if sta := send(regs, 8, 0x1AA, hal.WaitRespShort); !hal.StaCTIMEOUT.In(sta) {
		t.Errorf("CMD8 unpowered: STA = 0x%X, want CTIMEOUT", sta)
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		fault Fault
		want  mmio.Flag
	}{
		{FaultTimeout, hal.StaCTIMEOUT},
		{FaultCRC, hal.StaCCRCFAIL},
		{FaultIndex, hal.StaCMDREND},
	}

	for _, tt := range tests {
		t.Run(tt.fault.String(), func(t *testing.T) {
			s, regs := newHost(t, DefaultCard())
			s.SetFault(8, tt.fault)
			send(regs, 0, 0, hal.WaitRespNo)
			sta := send(regs, 8, 0x1AA, hal.WaitRespShort)
			if !tt.want.In(sta) {
				t.Errorf("STA = 0x%X, want 0x%X", sta, uint32(tt.want))
			}
			if tt.fault == FaultIndex && regs.RESPCMD.Read() == 8 {
				t.Error("RESPCMD echoes the command index")
			}
		})
	}

	s, regs := newHost(t, DefaultCard())
	s.SetFault(0, FaultSilent)
	if sta := send(regs, 0, 0, hal.WaitRespNo); sta != 0 {
		t.Errorf("silent CMD0: STA = 0x%X", sta)
	}
}

func TestLatencyAndClear(t *testing.T) {
	s, regs := newHost(t, DefaultCard())
	s.Latency = 2

	if sta := send(regs, 0, 0, hal.WaitRespNo); sta != 0 {
		t.Errorf("first poll: STA = 0x%X, want 0", sta)
	}
	regs.STA.Read()
	if !regs.STA.IsSet(hal.StaCMDSENT) {
		t.Error("CMDSENT not posted after latency")
	}
	regs.ClearStatic()
	if got := regs.STA.Read(); got != 0 {
		t.Errorf("STA = 0x%X after ClearStatic", got)
	}
}

func TestAbsentCard(t *testing.T) {
	cfg := DefaultCard()
	cfg.Absent = true
	s, regs := newHost(t, cfg)
	if s.CardPresent() {
		t.Error("CardPresent() = true")
	}
	if sta := send(regs, 0, 0, hal.WaitRespNo); !hal.StaCMDSENT.In(sta) {
		t.Errorf("CMD0: STA = 0x%X, want CMDSENT", sta)
	}
	if sta := send(regs, 55, 0, hal.WaitRespShort); !hal.StaCTIMEOUT.In(sta) {
		t.Errorf("CMD55: STA = 0x%X, want CTIMEOUT", sta)
	}
}
