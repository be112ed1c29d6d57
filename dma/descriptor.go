package dma

import (
	"fmt"

	"github.com/ardnew/softsd/pkg"
)

// TransferNode is one side of a transfer: the peripheral or the memory.
type TransferNode struct {
	Address   uint32
	Increment IncrementMode
	Burst     BurstMode
	Width     Width
}

// DoubleBuffer enables double-buffer mode with a second memory target.
// The zero value disables it.
type DoubleBuffer struct {
	Enabled bool
	Address uint32 // Second memory buffer (M1AR)
}

// UseSecondBuffer returns a DoubleBuffer switching between the memory
// address and addr.
func UseSecondBuffer(addr uint32) DoubleBuffer {
	return DoubleBuffer{Enabled: true, Address: addr}
}

// Interrupts selects the stream interrupt sources to enable.
type Interrupts struct {
	TransferComplete bool
	HalfTransfer     bool
	TransferError    bool
	DirectModeError  bool
	FIFO             bool
}

// Transfer is the complete configuration of one stream.
//
// A Transfer is a plain value. Validate is a pure function of its fields
// and may be called any number of times.
type Transfer struct {
	Stream         Stream
	Channel        Channel
	Priority       Priority
	Direction      Direction
	Circular       bool
	DoubleBuffer   DoubleBuffer
	FlowController FlowController
	OffsetSize     OffsetSize
	Peripheral     TransferNode
	Memory         TransferNode

	// Count is the number of peripheral-side items (NDTR).
	Count uint16

	DirectMode    DirectMode
	FifoThreshold FifoThreshold
	Interrupts    Interrupts
}

// peripheralWidth returns the peripheral item size used in burst and
// alignment arithmetic; Force32Bit overrides the configured width.
func (t Transfer) peripheralWidth() uint32 {
	if t.OffsetSize == Force32Bit {
		return 4
	}
	return t.Peripheral.Width.Bytes()
}

// dataSize returns the bytes one side touches starting at its address.
func dataSize(width uint32, inc IncrementMode, count uint16) uint32 {
	if inc == Increment {
		return width * uint32(count)
	}
	return width
}

// beforeBoundary returns the bytes between addr and the next 1 KB boundary.
func beforeBoundary(addr uint32) uint32 {
	return 1024 - addr%1024
}

// checkDefined rejects enumerated fields holding undefined values.
func (t Transfer) checkDefined() error {
	switch {
	case t.Stream > Stream7:
		return fmt.Errorf("stream %d: %w", t.Stream, pkg.ErrInvalidParameter)
	case t.Channel > Channel7:
		return fmt.Errorf("channel %d: %w", t.Channel, pkg.ErrInvalidParameter)
	case t.Priority > PriorityVeryHigh:
		return fmt.Errorf("priority %d: %w", t.Priority, pkg.ErrInvalidParameter)
	case t.Direction > MemoryToMemory:
		return fmt.Errorf("direction %d: %w", t.Direction, pkg.ErrInvalidParameter)
	case t.Peripheral.Width.Bytes() == 0, t.Memory.Width.Bytes() == 0:
		return fmt.Errorf("width: %w", pkg.ErrInvalidParameter)
	case t.Peripheral.Burst.Len() == 0, t.Memory.Burst.Len() == 0:
		return fmt.Errorf("burst mode: %w", pkg.ErrInvalidParameter)
	case t.FifoThreshold > FifoFull:
		return fmt.Errorf("fifo threshold %d: %w", t.FifoThreshold, pkg.ErrInvalidParameter)
	case t.Peripheral.Increment > Increment, t.Memory.Increment > Increment:
		return fmt.Errorf("increment mode: %w", pkg.ErrInvalidParameter)
	case t.FlowController > FlowPeripheral:
		return fmt.Errorf("flow controller %d: %w", t.FlowController, pkg.ErrInvalidParameter)
	case t.OffsetSize > Force32Bit:
		return fmt.Errorf("offset size %d: %w", t.OffsetSize, pkg.ErrInvalidParameter)
	case t.DirectMode > DirectDisable:
		return fmt.Errorf("direct mode %d: %w", t.DirectMode, pkg.ErrInvalidParameter)
	}
	return nil
}

// Validate checks the transfer against the controller's configuration
// rules and returns the first violation, or nil.
//
// Rules are checked in a fixed order:
//
//  1. Count is a multiple of the memory burst in peripheral items.
//  2. Count is a multiple of the peripheral burst size.
//  3. The peripheral address is aligned to the peripheral width.
//  4. The memory address is aligned to the memory width.
//  5. Circular and double-buffer modes exclude memory-to-memory.
//  6. Direct mode excludes memory-to-memory.
//  7. Memory bursts do not straddle a 1 KB boundary.
//  8. Peripheral bursts do not straddle a 1 KB boundary.
//  9. The FIFO threshold is a multiple of the memory burst size.
//
// The peripheral width is 4 bytes in every rule when OffsetSize is
// Force32Bit.
func (t Transfer) Validate() error {
	if err := t.checkDefined(); err != nil {
		return err
	}

	mwidth := t.Memory.Width.Bytes()
	pwidth := t.peripheralWidth()
	mburst := t.Memory.Burst.Len() * mwidth
	pburst := t.Peripheral.Burst.Len() * pwidth
	mfactor := uint16(mburst / pwidth)
	pfactor := uint16(pburst)
	mbefore := beforeBoundary(t.Memory.Address)
	pbefore := beforeBoundary(t.Peripheral.Address)
	msize := dataSize(mwidth, t.Memory.Increment, t.Count)
	psize := dataSize(pwidth, t.Peripheral.Increment, t.Count)
	m2m := t.Direction == MemoryToMemory

	switch {
	case mfactor == 0 || t.Count%mfactor != 0:
		return &CountError{Factor: mfactor}
	case t.Count%pfactor != 0:
		return &CountError{Factor: pfactor}
	case t.Peripheral.Address%pwidth != 0:
		return ErrUnalignedPeripheralAddress
	case t.Memory.Address%mwidth != 0:
		return ErrUnalignedMemoryAddress
	case (t.Circular || t.DoubleBuffer.Enabled) && m2m:
		return ErrCircularMemoryToMemory
	case t.DirectMode == DirectEnable && m2m:
		return ErrDirectMemoryToMemory
	case mbefore > msize && mbefore%mburst != 0:
		return ErrMemoryBoundary
	case pbefore > psize && pbefore%pburst != 0:
		return ErrPeripheralBoundary
	case (t.FifoThreshold.Numerator()*FifoSize)%(t.FifoThreshold.Denominator()*mburst) != 0:
		return ErrFifoThresholdBurst
	}
	return nil
}

// String returns a one-line summary of the transfer.
func (t Transfer) String() string {
	return fmt.Sprintf("%v/%v %v %dx%v p=0x%08X m=0x%08X",
		t.Stream, t.Channel, t.Direction, t.Count, t.Peripheral.Width,
		t.Peripheral.Address, t.Memory.Address)
}
