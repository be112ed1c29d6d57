package hal

import (
	"testing"

	"github.com/ardnew/softsd/pkg/mmio"
)

func TestRegisterLayout(t *testing.T) {
	ram := mmio.NewRAM(SDMMC1Base, BlockSize)
	c := New(ram, SDMMC1Base)

	tests := []struct {
		name string
		reg  *mmio.Register
		want uint32
	}{
		{"POWER", c.POWER, 0x40012C00},
		{"CMD", c.CMD, 0x40012C0C},
		{"RESP1", c.RESP[0], 0x40012C14},
		{"RESP4", c.RESP[3], 0x40012C20},
		{"STA", c.STA, 0x40012C34},
		{"ICR", c.ICR, 0x40012C38},
		{"FIFO", c.FIFO, 0x40012C80},
	}
	for _, tt := range tests {
		if got := tt.reg.Addr(); got != tt.want {
			t.Errorf("%s at 0x%08X, want 0x%08X", tt.name, got, tt.want)
		}
	}
	if got := c.FIFOAddress(); got != 0x40012C80 {
		t.Errorf("FIFOAddress() = 0x%08X", got)
	}
	if got := c.String(); got != "sdmmc@0x40012C00" {
		t.Errorf("String() = %q", got)
	}
}

func TestResponses(t *testing.T) {
	ram := mmio.NewRAM(SDMMC2Base, BlockSize)
	c := New(ram, SDMMC2Base)
	ram.PutUint32s(SDMMC2Base+OffsetRESP1, 1, 2, 3, 4)

	if got := c.Responses(); got != [4]uint32{1, 2, 3, 4} {
		t.Errorf("Responses() = %v", got)
	}
}

func TestPower(t *testing.T) {
	ram := mmio.NewRAM(SDMMC1Base, BlockSize)
	c := New(ram, SDMMC1Base)

	if c.Powered() {
		t.Fatal("Powered() = true after reset")
	}
	c.SetPower(true)
	if got := c.POWER.Read(); got != PowerOn {
		t.Errorf("POWER = 0b%b, want 0b%b", got, PowerOn)
	}
	if !c.Powered() {
		t.Error("Powered() = false after SetPower(true)")
	}
	c.SetPower(false)
	if c.Powered() {
		t.Error("Powered() = true after SetPower(false)")
	}
}

func TestClearStatic(t *testing.T) {
	ram := mmio.NewRAM(SDMMC1Base, BlockSize)
	c := New(ram, SDMMC1Base)
	c.ClearStatic()

	got := c.ICR.Read()
	if got != StaticFlags {
		t.Errorf("ICR = 0x%08X, want 0x%08X", got, StaticFlags)
	}
	if StaSDIOIT.In(got) {
		t.Error("SDIOIT must not be cleared")
	}
	for _, f := range []mmio.Flag{StaCCRCFAIL, StaCTIMEOUT, StaCMDREND, StaCMDSENT, StaDBCKEND} {
		if !f.In(got) {
			t.Errorf("flag 0x%X not cleared", uint32(f))
		}
	}
}
