package pkg

import "errors"

// Driver errors shared by the DMA and SDMMC packages.
var (
	// ErrTimeout indicates a polling deadline expired.
	ErrTimeout = errors.New("timeout")

	// ErrCancelled indicates a wait was cancelled by its caller.
	ErrCancelled = errors.New("cancelled")

	// ErrBusy indicates the resource is busy.
	ErrBusy = errors.New("resource busy")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidState indicates the operation is not valid in the current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyRunning indicates the peripheral is already initialized.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the peripheral has not been initialized.
	ErrNotRunning = errors.New("not running")

	// ErrBusFault indicates an access to an unmapped or misaligned address.
	ErrBusFault = errors.New("bus fault")

	// ErrNoCard indicates the card-detect input reports no card inserted.
	ErrNoCard = errors.New("no card present")

	// ErrUnrecognized indicates a register field holds a bit pattern that
	// does not correspond to any defined value.
	ErrUnrecognized = errors.New("unrecognized bit pattern")
)

// Status is the coarse outcome reported by peripheral-level operations,
// mirroring the HAL status codes of vendor SDKs.
type Status int

// Status values.
const (
	StatusOK Status = iota
	StatusError
	StatusBusy
	StatusTimeout
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusBusy:
		return "busy"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// StatusOf maps an error returned by a driver operation to a Status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrTimeout):
		return StatusTimeout
	case errors.Is(err, ErrBusy):
		return StatusBusy
	default:
		return StatusError
	}
}
