package sdmmc

import (
	"errors"
	"slices"
	"testing"

	"github.com/ardnew/softsd/sdmmc/hal"
	"github.com/ardnew/softsd/sdmmc/hal/sim"
)

func initBench(t *testing.T) *bench {
	t.Helper()
	b := newBench(t, sim.DefaultCard())
	if err := b.h.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	b.sim.History = nil
	return b
}

func TestSetBusOperationMode(t *testing.T) {
	b := initBench(t)

	if err := b.h.SetBusOperationMode(BusWide4); err != nil {
		t.Fatalf("SetBusOperationMode(4-bit) error = %v", err)
	}
	if got := b.regs.CLKCR.Get(hal.ClkcrWIDBUS); got != uint32(BusWide4) {
		t.Errorf("WIDBUS = %d, want %d", got, BusWide4)
	}
	if got := b.sim.BusWidth(); got != 4 {
		t.Errorf("card bus width = %d, want 4", got)
	}
	if want := []int{55, sim.App | 6}; !slices.Equal(b.sim.History, want) {
		t.Errorf("History = %v, want %v", b.sim.History, want)
	}
	if got := b.h.State(); got != StateReady {
		t.Errorf("State() = %v, want %v", got, StateReady)
	}

	if err := b.h.SetBusOperationMode(BusDefault); err != nil {
		t.Fatalf("SetBusOperationMode(1-bit) error = %v", err)
	}
	if got := b.regs.CLKCR.Get(hal.ClkcrWIDBUS); got != uint32(BusDefault) {
		t.Errorf("WIDBUS = %d, want %d", got, BusDefault)
	}
	if got := b.sim.BusWidth(); got != 1 {
		t.Errorf("card bus width = %d, want 1", got)
	}
}

func TestSetBusOperationMode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mode    BusMode
		secured bool
		fault   sim.Fault
		want    ErrorCode
	}{
		{"8-bit", BusWide8, false, sim.FaultNone, ErrUnsupportedFeature},
		{"secured", BusWide4, true, sim.FaultNone, ErrUnsupportedFeature},
		{"undefined", BusMode(3), false, sim.FaultNone, ErrInvalidParam},
		{"no response", BusWide4, false, sim.FaultTimeout, ErrCmdRspTimeout},
		{"crc", BusWide4, false, sim.FaultCRC, ErrCmdCRCFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := initBench(t)
			if tt.secured {
				b.h.card.Type = CardSecured
			}
			b.sim.SetFault(sim.App|6, tt.fault)

			err := b.h.SetBusOperationMode(tt.mode)
			if !errors.Is(err, tt.want) {
				t.Fatalf("SetBusOperationMode() error = %v, want %v", err, tt.want)
			}
			if got := b.h.ErrorCode(); !got.Has(tt.want) {
				t.Errorf("ErrorCode() = %v, want %v set", got, tt.want)
			}
			if got := b.regs.CLKCR.Get(hal.ClkcrWIDBUS); got != uint32(BusDefault) {
				t.Errorf("WIDBUS = %d, want unchanged", got)
			}
			if sta := b.regs.STA.Read(); sta&hal.StaticFlags != 0 {
				t.Errorf("STA = 0x%03X, want static flags cleared", sta)
			}
			if got := b.h.State(); got != StateReady {
				t.Errorf("State() = %v, want %v", got, StateReady)
			}
		})
	}
}
