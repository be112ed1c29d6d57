package sdmmc

import (
	"errors"
	"testing"
	"time"

	"github.com/ardnew/softsd/sdmmc/hal/sim"
)

func TestParseCSD(t *testing.T) {
	tests := []struct {
		name string
		raw  [4]uint32
		want CSD
	}{
		{
			name: "version 2",
			raw:  sim.SampleCSDv2,
			want: CSD{
				Structure:    CSDVersion2,
				Class:        0x5B5,
				TranSpeed:    0x32,
				ReadBlockLen: 9,
				DeviceSize:   15159,
				BlockCount:   15523840,
				BlockSize:    512,
			},
		},
		{
			name: "version 1",
			raw:  sim.SampleCSDv1,
			want: CSD{
				Structure:      CSDVersion1,
				Class:          0x5F5,
				TranSpeed:      0x32,
				ReadBlockLen:   9,
				DeviceSize:     3839,
				SizeMultiplier: 7,
				BlockCount:     1966080,
				BlockSize:      512,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSD(tt.raw)
			if err != nil {
				t.Fatalf("ParseCSD() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCSD() = %+v, want %+v", got, tt.want)
			}
		})
	}

	t.Run("version 3", func(t *testing.T) {
		raw := sim.SampleCSDv2
		raw[0] = raw[0]&^0xC0000000 | 0x80000000
		if _, err := ParseCSD(raw); !errors.Is(err, ErrUnsupportedFeature) {
			t.Errorf("ParseCSD() error = %v, want %v", err, ErrUnsupportedFeature)
		}
	})
}

func TestCardInfo_Capacity(t *testing.T) {
	info := CardInfo{CSD: sim.SampleCSDv1}
	if err := info.decodeCSD(); err != nil {
		t.Fatal(err)
	}
	if got, want := info.Capacity(), uint64(1966080*512); got != want {
		t.Errorf("Capacity() = %d, want %d", got, want)
	}

	// 1024-byte blocks count as two logical blocks.
	raw := sim.SampleCSDv1
	raw[1] = raw[1]&^0x000F0000 | 10<<16
	info = CardInfo{CSD: raw}
	if err := info.decodeCSD(); err != nil {
		t.Fatal(err)
	}
	if info.BlockSize != 1024 || info.LogicalBlockCount != 2*info.BlockCount {
		t.Errorf("geometry = %d x %d, logical %d", info.BlockCount, info.BlockSize, info.LogicalBlockCount)
	}
}

func TestParseCID(t *testing.T) {
	got := ParseCID(sim.SampleCID)
	want := CID{
		ManufacturerID: 0x03,
		OEMID:          "SD",
		ProductName:    "SU08G",
		Revision:       0x80,
		SerialNumber:   0x12345678,
		Manufactured:   time.Date(2014, time.September, 1, 0, 0, 0, 0, time.UTC),
	}
	if got != want {
		t.Errorf("ParseCID() = %+v, want %+v", got, want)
	}
	if s := got.String(); s != `MID 0x03 OID "SD" PNM "SU08G" PRV 8.0 PSN 0x12345678 MDT 2014-09` {
		t.Errorf("String() = %s", s)
	}
}

func TestField(t *testing.T) {
	tests := []struct {
		msb, lsb uint
		want     uint32
	}{
		{127, 120, 0x03},
		{127, 96, 0x03534453},
		{71, 56, 0x4780}, // spans words 1 and 2
		{3, 0, 0x1},
		{0, 0, 0x1},
	}
	for _, tt := range tests {
		if got := field(sim.SampleCID, tt.msb, tt.lsb); got != tt.want {
			t.Errorf("field(%d, %d) = 0x%X, want 0x%X", tt.msb, tt.lsb, got, tt.want)
		}
	}
}
