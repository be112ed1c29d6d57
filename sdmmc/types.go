package sdmmc

import "fmt"

// State is the lifecycle state of a Handle.
type State uint8

// Handle states.
const (
	StateReset       State = 0x00 // Not yet initialized or disabled
	StateReady       State = 0x01 // Initialized and ready for use
	StateTimeout     State = 0x02 // Timeout state
	StateBusy        State = 0x03 // Process ongoing
	StateProgramming State = 0x04 // Programming state
	StateReceiving   State = 0x05 // Receiving state
	StateTransfer    State = 0x06 // Transfer state
	StateError       State = 0x0F // Card is in error state
)

// String returns a human-readable state.
func (s State) String() string {
	switch s {
	case StateReset:
		return "Reset"
	case StateReady:
		return "Ready"
	case StateTimeout:
		return "Timeout"
	case StateBusy:
		return "Busy"
	case StateProgramming:
		return "Programming"
	case StateReceiving:
		return "Receiving"
	case StateTransfer:
		return "Transfer"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}

// Context describes the transfer in progress. Values combine one
// operation with an optional mode flag.
type Context uint8

// Transfer contexts.
const (
	ContextNone                Context = 0x00
	ContextReadSingleBlock     Context = 0x01
	ContextReadMultipleBlocks  Context = 0x02
	ContextWriteSingleBlock    Context = 0x10
	ContextWriteMultipleBlocks Context = 0x20
	ContextInterrupt           Context = 0x08
	ContextDMA                 Context = 0x80
)

// String returns a human-readable context.
func (c Context) String() string {
	if c == ContextNone {
		return "None"
	}
	var s string
	switch c &^ (ContextInterrupt | ContextDMA) {
	case ContextReadSingleBlock:
		s = "ReadSingleBlock"
	case ContextReadMultipleBlocks:
		s = "ReadMultipleBlocks"
	case ContextWriteSingleBlock:
		s = "WriteSingleBlock"
	case ContextWriteMultipleBlocks:
		s = "WriteMultipleBlocks"
	case ContextNone:
		s = "None"
	default:
		return fmt.Sprintf("Unknown Context (0x%02X)", uint8(c))
	}
	if c&ContextInterrupt != 0 {
		s += "|IT"
	}
	if c&ContextDMA != 0 {
		s += "|DMA"
	}
	return s
}

// CardType is the capacity class of the card.
type CardType uint8

// Card types.
const (
	CardSDSC    CardType = 0 // Standard capacity, byte addressed
	CardSDHCXC  CardType = 1 // High or extended capacity, block addressed
	CardSecured CardType = 3
)

// String returns a human-readable card type.
func (t CardType) String() string {
	switch t {
	case CardSDSC:
		return "SDSC"
	case CardSDHCXC:
		return "SDHC/SDXC"
	case CardSecured:
		return "Secured"
	default:
		return fmt.Sprintf("Unknown CardType (%d)", t)
	}
}

// CardVersion is the physical layer specification version of the card.
type CardVersion uint8

// Card versions.
const (
	CardV1x CardVersion = 0
	CardV2x CardVersion = 1
)

// String returns a human-readable card version.
func (v CardVersion) String() string {
	switch v {
	case CardV1x:
		return "1.x"
	case CardV2x:
		return "2.x"
	default:
		return fmt.Sprintf("Unknown CardVersion (%d)", v)
	}
}

// CardCapacity is the host capacity support argument of ACMD41.
type CardCapacity uint32

// Capacity support values.
const (
	CapacityStandard CardCapacity = 0x00000000
	CapacityHigh     CardCapacity = 0x40000000
)

// BusMode is the width of the data bus.
type BusMode uint8

// Bus modes. The value is the CLKCR.WIDBUS encoding.
const (
	BusDefault BusMode = 0 // 1-bit
	BusWide4   BusMode = 1
	BusWide8   BusMode = 2
)

// String returns a human-readable bus mode.
func (m BusMode) String() string {
	switch m {
	case BusDefault:
		return "1-bit"
	case BusWide4:
		return "4-bit"
	case BusWide8:
		return "8-bit"
	default:
		return fmt.Sprintf("Unknown BusMode (%d)", m)
	}
}

// LockType is the advisory lock of a Handle.
type LockType uint8

// Lock states.
const (
	Unlocked LockType = iota
	Locked
)
