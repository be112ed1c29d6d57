package sdmmc

import (
	"fmt"
	"time"
)

// CardInfo is what initialization learned about the card.
type CardInfo struct {
	Type    CardType
	Version CardVersion

	// Class is the supported command class set (CSD CCC).
	Class uint16

	// RCA is the relative card address in the upper half word, the form
	// used as a command argument.
	RCA uint32

	// Raw identification and card-specific data registers, most
	// significant word first.
	CID [4]uint32
	CSD [4]uint32

	BlockCount        uint32
	BlockSize         uint32
	LogicalBlockCount uint32
	LogicalBlockSize  uint32
}

// Capacity returns the card size in bytes.
func (c CardInfo) Capacity() uint64 {
	return uint64(c.LogicalBlockCount) * uint64(c.LogicalBlockSize)
}

// Identification decodes the CID register.
func (c CardInfo) Identification() CID {
	return ParseCID(c.CID)
}

// decodeCSD fills the block geometry from the CSD register.
func (c *CardInfo) decodeCSD() error {
	csd, err := ParseCSD(c.CSD)
	if err != nil {
		return err
	}
	c.BlockCount = csd.BlockCount
	c.BlockSize = csd.BlockSize
	c.LogicalBlockSize = DefaultBufferSize
	c.LogicalBlockCount = csd.BlockCount * (csd.BlockSize / DefaultBufferSize)
	return nil
}

// field extracts bits msb..lsb of a 128-bit register stored most
// significant word first.
func field(r [4]uint32, msb, lsb uint) uint32 {
	var v uint32
	for b := msb; ; b-- {
		v = v<<1 | (r[3-b/32]>>(b%32))&1
		if b == lsb {
			return v
		}
	}
}

// CSD structure versions.
const (
	CSDVersion1 = 0 // Standard capacity
	CSDVersion2 = 1 // High and extended capacity
)

// CSD is the decoded card-specific data register.
type CSD struct {
	Structure      uint8
	Class          uint16
	TranSpeed      uint8
	ReadBlockLen   uint8
	DeviceSize     uint32 // C_SIZE
	SizeMultiplier uint8  // C_SIZE_MULT, version 1 only

	// BlockCount and BlockSize give the user data area geometry.
	BlockCount uint32
	BlockSize  uint32
}

// ParseCSD decodes a version 1.0 or 2.0 CSD register. Other structure
// versions fail with ErrUnsupportedFeature.
func ParseCSD(r [4]uint32) (CSD, error) {
	csd := CSD{
		Structure:    uint8(field(r, 127, 126)),
		TranSpeed:    uint8(field(r, 103, 96)),
		Class:        uint16(field(r, 95, 84)),
		ReadBlockLen: uint8(field(r, 83, 80)),
	}

	switch csd.Structure {
	case CSDVersion1:
		csd.DeviceSize = field(r, 73, 62)
		csd.SizeMultiplier = uint8(field(r, 49, 47))
		csd.BlockCount = (csd.DeviceSize + 1) << (csd.SizeMultiplier + 2)
		csd.BlockSize = 1 << csd.ReadBlockLen
	case CSDVersion2:
		csd.DeviceSize = field(r, 69, 48)
		csd.BlockCount = (csd.DeviceSize + 1) * 1024
		csd.BlockSize = 512
	default:
		return csd, fmt.Errorf("csd structure %d: %w", csd.Structure, ErrUnsupportedFeature)
	}
	return csd, nil
}

// CID is the decoded card identification register.
type CID struct {
	ManufacturerID uint8
	OEMID          string
	ProductName    string
	Revision       uint8 // BCD major.minor
	SerialNumber   uint32
	Manufactured   time.Time // Year and month only
}

// RevisionString returns the product revision as "major.minor".
func (c CID) RevisionString() string {
	return fmt.Sprintf("%d.%d", c.Revision>>4, c.Revision&0xF)
}

// String returns a one-line summary of the card identity.
func (c CID) String() string {
	return fmt.Sprintf("MID 0x%02X OID %q PNM %q PRV %s PSN 0x%08X MDT %s",
		c.ManufacturerID, c.OEMID, c.ProductName, c.RevisionString(),
		c.SerialNumber, c.Manufactured.Format("2006-01"))
}

// ParseCID decodes a CID register.
func ParseCID(r [4]uint32) CID {
	oid := field(r, 119, 104)
	pnm := make([]byte, 5)
	for i := range pnm {
		msb := uint(103 - 8*i)
		pnm[i] = byte(field(r, msb, msb-7))
	}
	mdt := field(r, 19, 8)
	return CID{
		ManufacturerID: uint8(field(r, 127, 120)),
		OEMID:          string([]byte{byte(oid >> 8), byte(oid)}),
		ProductName:    string(pnm),
		Revision:       uint8(field(r, 63, 56)),
		SerialNumber:   field(r, 55, 24),
		Manufactured:   time.Date(2000+int(mdt>>4), time.Month(mdt&0xF), 1, 0, 0, 0, 0, time.UTC),
	}
}
