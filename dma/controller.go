package dma

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ardnew/softsd/dma/hal"
	"github.com/ardnew/softsd/pkg"
)

// Controller drives one stream through a bound Transfer.
//
// Controller state is not stored; every query reads the stream's enable
// bit and status flags:
//
//   - Ready: the stream is disabled.
//   - Running: the stream is enabled.
//   - Finished: TCIF is raised.
//   - Error: TEIF or DMEIF is raised.
//
// Controllers for distinct streams may be used from different goroutines.
type Controller struct {
	mgr      *Manager
	xfer     Transfer
	regs     *hal.Stream
	released atomic.Bool
}

// Transfer returns the bound transfer.
func (c *Controller) Transfer() Transfer { return c.xfer }

// Stream returns the bound stream.
func (c *Controller) Stream() Stream { return c.xfer.Stream }

// Validate validates the bound transfer.
func (c *Controller) Validate() error { return c.xfer.Validate() }

// IsReady reports whether the stream is disabled and may be configured.
func (c *Controller) IsReady() bool { return !c.regs.Enabled() }

// IsRunning reports whether the stream is enabled.
func (c *Controller) IsRunning() bool { return c.regs.Enabled() }

// IsFinished reports whether the transfer-complete flag is raised.
func (c *Controller) IsFinished() bool { return c.regs.Raised(hal.FlagTC) }

// IsTransferError reports whether the transfer-error flag is raised.
func (c *Controller) IsTransferError() bool { return c.regs.Raised(hal.FlagTE) }

// IsDirectModeError reports whether the direct-mode-error flag is raised.
func (c *Controller) IsDirectModeError() bool { return c.regs.Raised(hal.FlagDME) }

// IsError reports whether a transfer or direct-mode error is raised.
func (c *Controller) IsError() bool {
	return c.IsTransferError() || c.IsDirectModeError()
}

// IsActive reports whether the stream is running, not finished and not
// in error.
func (c *Controller) IsActive() bool {
	return c.IsRunning() && !c.IsFinished() && !c.IsError()
}

// Prepare validates the transfer and writes its configuration to the
// stream. Nothing is written if validation fails or the stream is not
// ready. Status flags are cleared before the configuration is written.
func (c *Controller) Prepare() error {
	if c.released.Load() {
		return fmt.Errorf("stream %v: controller released: %w", c.xfer.Stream, pkg.ErrInvalidState)
	}
	if err := c.xfer.Validate(); err != nil {
		pkg.LogDebug(pkg.ComponentStream, "transfer rejected",
			"stream", c.xfer.Stream.String(), "error", err)
		return err
	}
	if !c.IsReady() {
		return ErrStreamNotReady
	}

	for _, f := range [...]hal.Flag{hal.FlagHT, hal.FlagTC, hal.FlagTE, hal.FlagFE, hal.FlagDME} {
		c.regs.Clear(f)
	}

	t := &c.xfer
	cr := hal.CrCHSEL.Put(0, uint32(t.Channel))
	cr = hal.CrPL.Put(cr, uint32(t.Priority))
	cr = hal.CrDIR.Put(cr, uint32(t.Direction))
	cr = hal.CrCIRC.Put(cr, t.Circular)
	cr = hal.CrDBM.Put(cr, t.DoubleBuffer.Enabled)
	cr = hal.CrPFCTRL.Put(cr, t.FlowController == FlowPeripheral)
	cr = hal.CrPSIZE.Put(cr, uint32(t.Peripheral.Width))
	cr = hal.CrPINC.Put(cr, t.Peripheral.Increment == Increment)
	cr = hal.CrPBURST.Put(cr, uint32(t.Peripheral.Burst))
	cr = hal.CrPINCOS.Put(cr, t.OffsetSize == Force32Bit)
	cr = hal.CrMSIZE.Put(cr, uint32(t.Memory.Width))
	cr = hal.CrMINC.Put(cr, t.Memory.Increment == Increment)
	cr = hal.CrMBURST.Put(cr, uint32(t.Memory.Burst))
	cr = hal.CrTCIE.Put(cr, t.Interrupts.TransferComplete)
	cr = hal.CrHTIE.Put(cr, t.Interrupts.HalfTransfer)
	cr = hal.CrTEIE.Put(cr, t.Interrupts.TransferError)
	cr = hal.CrDMEIE.Put(cr, t.Interrupts.DirectModeError)
	c.regs.CR.Write(cr)

	if t.DoubleBuffer.Enabled {
		c.regs.M1AR.Write(t.DoubleBuffer.Address)
	}
	c.regs.PAR.Write(t.Peripheral.Address)
	c.regs.M0AR.Write(t.Memory.Address)
	c.regs.NDTR.Set(hal.NdtrNDT, uint32(t.Count))

	fcr := hal.FcrFTH.Put(0, uint32(t.FifoThreshold))
	fcr = hal.FcrDMDIS.Put(fcr, t.DirectMode == DirectDisable)
	fcr = hal.FcrFEIE.Put(fcr, t.Interrupts.FIFO)
	c.regs.FCR.Write(fcr)

	pkg.LogDebug(pkg.ComponentStream, "transfer prepared", "transfer", t.String())
	return nil
}

// Start enables the stream.
func (c *Controller) Start() {
	c.regs.SetEnabled(true)
	pkg.LogDebug(pkg.ComponentStream, "stream started", "stream", c.xfer.Stream.String())
}

// Stop disables the stream. Stopping a stopped stream has no effect.
// An item already on the bus may or may not complete.
func (c *Controller) Stop() {
	c.regs.SetEnabled(false)
	pkg.LogDebug(pkg.ComponentStream, "stream stopped", "stream", c.xfer.Stream.String())
}

// Startup prepares and starts the transfer.
func (c *Controller) Startup() error {
	if err := c.Prepare(); err != nil {
		return err
	}
	c.Start()
	return nil
}

// Wait polls until the stream is no longer active. It returns nil once
// the stream finishes, errors or is stopped; callers inspect IsError to
// tell these apart. A ctx deadline returns pkg.ErrTimeout and a
// cancellation returns pkg.ErrCancelled, leaving the stream running.
func (c *Controller) Wait(ctx context.Context) error {
	for c.IsActive() {
		if err := ctx.Err(); err != nil {
			return waitError(ctx, c.xfer.Stream)
		}
	}
	if c.IsError() {
		pkg.LogWarn(pkg.ComponentStream, "transfer error",
			"stream", c.xfer.Stream.String(),
			"te", c.IsTransferError(), "dme", c.IsDirectModeError())
	}
	return nil
}

// RunAndWait starts the stream and waits for it to become inactive.
func (c *Controller) RunAndWait(ctx context.Context) error {
	c.Start()
	return c.Wait(ctx)
}

// Remaining returns the number of items left to transfer (NDTR).
func (c *Controller) Remaining() uint16 {
	return uint16(c.regs.NDTR.Get(hal.NdtrNDT))
}

// FIFOStatus returns the current FIFO fill level.
func (c *Controller) FIFOStatus() (FifoStatus, error) {
	return decode[FifoStatus]("FS", c.regs.FCR.Get(hal.FcrFS), uint32(FifoFilled)+1)
}

// ReadBack decodes the configuration currently held in the stream
// registers. Count is the live NDTR value.
func (c *Controller) ReadBack() (Transfer, error) {
	cr := c.regs.CR.Read()
	fcr := c.regs.FCR.Read()

	t := Transfer{
		Stream:   c.xfer.Stream,
		Channel:  Channel(hal.CrCHSEL.Get(cr)),
		Priority: Priority(hal.CrPL.Get(cr)),
		Circular: hal.CrCIRC.In(cr),
		Peripheral: TransferNode{
			Address:   c.regs.PAR.Read(),
			Increment: incrementOf(hal.CrPINC.In(cr)),
			Burst:     BurstMode(hal.CrPBURST.Get(cr)),
		},
		Memory: TransferNode{
			Address:   c.regs.M0AR.Read(),
			Increment: incrementOf(hal.CrMINC.In(cr)),
			Burst:     BurstMode(hal.CrMBURST.Get(cr)),
		},
		Count:         c.Remaining(),
		FifoThreshold: FifoThreshold(hal.FcrFTH.Get(fcr)),
		Interrupts: Interrupts{
			TransferComplete: hal.CrTCIE.In(cr),
			HalfTransfer:     hal.CrHTIE.In(cr),
			TransferError:    hal.CrTEIE.In(cr),
			DirectModeError:  hal.CrDMEIE.In(cr),
			FIFO:             hal.FcrFEIE.In(fcr),
		},
	}
	if hal.CrDBM.In(cr) {
		t.DoubleBuffer = UseSecondBuffer(c.regs.M1AR.Read())
	}
	if hal.CrPFCTRL.In(cr) {
		t.FlowController = FlowPeripheral
	}
	if hal.CrPINCOS.In(cr) {
		t.OffsetSize = Force32Bit
	}
	if hal.FcrDMDIS.In(fcr) {
		t.DirectMode = DirectDisable
	}

	var err error
	if t.Direction, err = decode[Direction]("DIR", hal.CrDIR.Get(cr), uint32(MemoryToMemory)+1); err != nil {
		return Transfer{}, err
	}
	if t.Peripheral.Width, err = decode[Width]("PSIZE", hal.CrPSIZE.Get(cr), uint32(WidthWord)+1); err != nil {
		return Transfer{}, err
	}
	if t.Memory.Width, err = decode[Width]("MSIZE", hal.CrMSIZE.Get(cr), uint32(WidthWord)+1); err != nil {
		return Transfer{}, err
	}
	return t, nil
}

// Release unbinds the controller from its stream so another transfer can
// be bound to it. The stream is not stopped. Release is idempotent.
func (c *Controller) Release() {
	if c.released.CompareAndSwap(false, true) {
		c.mgr.release(c.xfer.Stream)
	}
}

func incrementOf(on bool) IncrementMode {
	if on {
		return Increment
	}
	return Fixed
}

func waitError(ctx context.Context, s Stream) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		pkg.LogWarn(pkg.ComponentStream, "wait timed out", "stream", s.String())
		return fmt.Errorf("stream %v: %w", s, pkg.ErrTimeout)
	}
	return fmt.Errorf("stream %v: %w", s, pkg.ErrCancelled)
}
