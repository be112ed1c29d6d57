// Package dma configures and runs transfers on an STM32F7-class DMA
// controller.
//
// A [Transfer] describes one stream's configuration: channel, priority,
// direction, the peripheral and memory [TransferNode] endpoints, the
// transaction count and the FIFO policy. [Transfer.Validate] checks it
// against the controller's burst, alignment, 1 KB boundary and FIFO rules
// without touching hardware.
//
// A [Manager] owns the controller register block. [Manager.Bind] hands
// out a [Controller] for a stream, refusing a second live binding of the
// same stream. The controller writes the configuration, starts and stops
// the stream, and reports its state from the hardware status flags.
//
// # Usage
//
//	mgr := dma.NewManager(hal.New(mem, hal.DMA2Base), gate, pkg.PeripheralDMA2)
//	if err := mgr.Init(); err != nil {
//	    return err
//	}
//	ctrl, err := mgr.Bind(dma.Transfer{
//	    Stream:        dma.Stream0,
//	    Direction:     dma.MemoryToMemory,
//	    Peripheral:    dma.TransferNode{Address: src, Increment: dma.Increment, Width: dma.WidthWord},
//	    Memory:        dma.TransferNode{Address: dst, Increment: dma.Increment, Width: dma.WidthWord},
//	    Count:         4,
//	    DirectMode:    dma.DirectDisable,
//	    FifoThreshold: dma.FifoFull,
//	})
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Release()
//	if err := ctrl.Prepare(); err != nil {
//	    return err
//	}
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	defer cancel()
//	if err := ctrl.RunAndWait(ctx); err != nil {
//	    return err
//	}
//
// Completion is polled; interrupt-driven completion is not implemented.
// Wait and WaitAll bound the poll with a context.
package dma
