package dma

import "fmt"

// Stream identifies one of the eight streams of a DMA controller.
type Stream uint8

// Streams.
const (
	Stream0 Stream = iota
	Stream1
	Stream2
	Stream3
	Stream4
	Stream5
	Stream6
	Stream7
)

// String returns the stream name.
func (s Stream) String() string {
	return fmt.Sprintf("S%d", uint8(s))
}

// Channel selects the request line routed to a stream (CHSEL).
type Channel uint8

// Channels.
const (
	Channel0 Channel = iota
	Channel1
	Channel2
	Channel3
	Channel4
	Channel5
	Channel6
	Channel7
)

// String returns the channel name.
func (c Channel) String() string {
	return fmt.Sprintf("C%d", uint8(c))
}

// Priority is the software priority level of a stream (PL).
type Priority uint8

// Priority levels.
const (
	PriorityLow      Priority = 0b00
	PriorityMedium   Priority = 0b01
	PriorityHigh     Priority = 0b10
	PriorityVeryHigh Priority = 0b11
)

// String returns a human-readable priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityVeryHigh:
		return "VeryHigh"
	default:
		return fmt.Sprintf("Unknown Priority (%d)", p)
	}
}

// Direction is the data transfer direction (DIR).
type Direction uint8

// Transfer directions.
const (
	PeripheralToMemory Direction = 0b00
	MemoryToPeripheral Direction = 0b01
	MemoryToMemory     Direction = 0b10
)

// String returns a human-readable direction.
func (d Direction) String() string {
	switch d {
	case PeripheralToMemory:
		return "PeripheralToMemory"
	case MemoryToPeripheral:
		return "MemoryToPeripheral"
	case MemoryToMemory:
		return "MemoryToMemory"
	default:
		return fmt.Sprintf("Unknown Direction (%d)", d)
	}
}

// Width is the size of one data item on a transfer side (PSIZE/MSIZE).
type Width uint8

// Transfer widths.
const (
	WidthByte     Width = 0b00
	WidthHalfWord Width = 0b01
	WidthWord     Width = 0b10
)

// Bytes returns the item size in bytes, or 0 for an undefined width.
func (w Width) Bytes() uint32 {
	if w > WidthWord {
		return 0
	}
	return 1 << w
}

// String returns a human-readable width.
func (w Width) String() string {
	switch w {
	case WidthByte:
		return "Byte"
	case WidthHalfWord:
		return "HalfWord"
	case WidthWord:
		return "Word"
	default:
		return fmt.Sprintf("Unknown Width (%d)", w)
	}
}

// BurstMode is the number of beats in one burst (PBURST/MBURST).
type BurstMode uint8

// Burst modes.
const (
	BurstSingle BurstMode = 0b00
	BurstIncr4  BurstMode = 0b01
	BurstIncr8  BurstMode = 0b10
	BurstIncr16 BurstMode = 0b11
)

// Len returns the number of beats per burst, or 0 for an undefined mode.
func (b BurstMode) Len() uint32 {
	switch b {
	case BurstSingle:
		return 1
	case BurstIncr4, BurstIncr8, BurstIncr16:
		return 1 << (b + 1)
	default:
		return 0
	}
}

// String returns a human-readable burst mode.
func (b BurstMode) String() string {
	switch b {
	case BurstSingle:
		return "Single"
	case BurstIncr4:
		return "Incr4"
	case BurstIncr8:
		return "Incr8"
	case BurstIncr16:
		return "Incr16"
	default:
		return fmt.Sprintf("Unknown BurstMode (%d)", b)
	}
}

// IncrementMode selects whether an address advances after each beat
// (PINC/MINC).
type IncrementMode uint8

// Increment modes.
const (
	Fixed     IncrementMode = 0
	Increment IncrementMode = 1
)

// String returns a human-readable increment mode.
func (m IncrementMode) String() string {
	switch m {
	case Fixed:
		return "Fixed"
	case Increment:
		return "Increment"
	default:
		return fmt.Sprintf("Unknown IncrementMode (%d)", m)
	}
}

// FlowController selects which side ends the transfer (PFCTRL).
type FlowController uint8

// Flow controllers.
const (
	FlowDMA        FlowController = 0
	FlowPeripheral FlowController = 1
)

// String returns a human-readable flow controller.
func (f FlowController) String() string {
	switch f {
	case FlowDMA:
		return "DMA"
	case FlowPeripheral:
		return "Peripheral"
	default:
		return fmt.Sprintf("Unknown FlowController (%d)", f)
	}
}

// OffsetSize selects the peripheral address increment (PINCOS).
type OffsetSize uint8

// Peripheral increment offset sizes.
const (
	UsePSize   OffsetSize = 0 // Increment by the peripheral width
	Force32Bit OffsetSize = 1 // Increment by 4 bytes
)

// String returns a human-readable offset size.
func (o OffsetSize) String() string {
	switch o {
	case UsePSize:
		return "UsePSize"
	case Force32Bit:
		return "Force32Bit"
	default:
		return fmt.Sprintf("Unknown OffsetSize (%d)", o)
	}
}

// DirectMode is the FIFO bypass setting. The polarity is inverted in
// hardware: DirectEnable clears DMDIS and bypasses the FIFO.
type DirectMode uint8

// Direct mode settings.
const (
	DirectEnable  DirectMode = 0
	DirectDisable DirectMode = 1
)

// String returns a human-readable direct mode.
func (d DirectMode) String() string {
	switch d {
	case DirectEnable:
		return "Enable"
	case DirectDisable:
		return "Disable"
	default:
		return fmt.Sprintf("Unknown DirectMode (%d)", d)
	}
}

// FifoThreshold is the FIFO fill level that triggers a memory burst (FTH).
type FifoThreshold uint8

// FIFO thresholds.
const (
	FifoQuarter      FifoThreshold = 0b00
	FifoHalf         FifoThreshold = 0b01
	FifoThreeQuarter FifoThreshold = 0b10
	FifoFull         FifoThreshold = 0b11
)

// FifoSize is the depth of a stream FIFO in bytes.
const FifoSize = 16

// Numerator returns the threshold as quarters of the FIFO.
func (f FifoThreshold) Numerator() uint32 {
	return uint32(f) + 1
}

// Denominator returns the fraction denominator of every threshold.
func (f FifoThreshold) Denominator() uint32 { return 4 }

// String returns a human-readable threshold.
func (f FifoThreshold) String() string {
	switch f {
	case FifoQuarter:
		return "1/4"
	case FifoHalf:
		return "1/2"
	case FifoThreeQuarter:
		return "3/4"
	case FifoFull:
		return "Full"
	default:
		return fmt.Sprintf("Unknown FifoThreshold (%d)", f)
	}
}

// FifoStatus is the FIFO fill level reported by hardware (FS).
type FifoStatus uint8

// FIFO status values.
const (
	FifoFirstQuarter  FifoStatus = 0b000 // 0 < level < 1/4
	FifoSecondQuarter FifoStatus = 0b001 // 1/4 <= level < 1/2
	FifoThirdQuarter  FifoStatus = 0b010 // 1/2 <= level < 3/4
	FifoFourthQuarter FifoStatus = 0b011 // 3/4 <= level < full
	FifoEmpty         FifoStatus = 0b100
	FifoFilled        FifoStatus = 0b101
)

// String returns a human-readable FIFO status.
func (s FifoStatus) String() string {
	switch s {
	case FifoFirstQuarter:
		return "<1/4"
	case FifoSecondQuarter:
		return "<1/2"
	case FifoThirdQuarter:
		return "<3/4"
	case FifoFourthQuarter:
		return "<Full"
	case FifoEmpty:
		return "Empty"
	case FifoFilled:
		return "Full"
	default:
		return fmt.Sprintf("Unknown FifoStatus (%d)", s)
	}
}

// decode converts raw field bits to an enumerated value, rejecting bit
// patterns at or above limit.
func decode[T ~uint8](field string, bits, limit uint32) (T, error) {
	if bits >= limit {
		return 0, &DecodeError{Field: field, Bits: bits}
	}
	return T(bits), nil
}
