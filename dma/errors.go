package dma

import (
	"errors"
	"fmt"

	"github.com/ardnew/softsd/pkg"
)

// Transfer configuration errors. Each is detected before any register is
// written.
var (
	// ErrStreamNotReady indicates the stream is still enabled.
	ErrStreamNotReady = errors.New("stream not ready")

	// ErrTransactionCount indicates the transaction count is not a
	// multiple of a burst factor. Returned errors are *CountError values
	// carrying the factor.
	ErrTransactionCount = errors.New("transaction count not a multiple of burst factor")

	// ErrUnalignedMemoryAddress indicates the memory address is not aligned
	// to the memory width.
	ErrUnalignedMemoryAddress = errors.New("unaligned memory address")

	// ErrUnalignedPeripheralAddress indicates the peripheral address is not
	// aligned to the peripheral width.
	ErrUnalignedPeripheralAddress = errors.New("unaligned peripheral address")

	// ErrCircularMemoryToMemory indicates circular or double-buffer mode was
	// requested for a memory-to-memory transfer.
	ErrCircularMemoryToMemory = errors.New("circular mode cannot be used with memory-to-memory transfer")

	// ErrDirectMemoryToMemory indicates direct mode was requested for a
	// memory-to-memory transfer.
	ErrDirectMemoryToMemory = errors.New("direct mode cannot be used with memory-to-memory transfer")

	// ErrMemoryBoundary indicates a memory burst would cross a 1 KB
	// boundary.
	ErrMemoryBoundary = errors.New("memory access would cross a 1 KB boundary")

	// ErrPeripheralBoundary indicates a peripheral burst would cross a 1 KB
	// boundary.
	ErrPeripheralBoundary = errors.New("peripheral access would cross a 1 KB boundary")

	// ErrFifoThresholdBurst indicates the FIFO threshold is not a multiple
	// of the memory burst size.
	ErrFifoThresholdBurst = errors.New("invalid FIFO threshold and memory burst combination")

	// ErrStreamInUse indicates another live controller is bound to the
	// stream.
	ErrStreamInUse = errors.New("stream in use")
)

// CountError reports a transaction count that is not a multiple of
// Factor. A Factor of zero means the memory burst is smaller than one
// peripheral item.
type CountError struct {
	Factor uint16
}

func (e *CountError) Error() string {
	return fmt.Sprintf("transaction count not a multiple of %d", e.Factor)
}

// Is matches ErrTransactionCount.
func (e *CountError) Is(target error) bool {
	return target == ErrTransactionCount
}

// DecodeError reports a register field holding a bit pattern with no
// defined meaning.
type DecodeError struct {
	Field string
	Bits  uint32
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v 0b%b", e.Field, pkg.ErrUnrecognized, e.Bits)
}

// Unwrap returns pkg.ErrUnrecognized.
func (e *DecodeError) Unwrap() error { return pkg.ErrUnrecognized }

// IsDecodeError returns true if err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
