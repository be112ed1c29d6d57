// Package sim provides a simulated DMA controller for tests and the
// simulated board.
//
// [DMA] stores the register block of one controller and performs data
// movement over an [mmio.Bus] one data item (beat) at a time. It follows
// the hardware rules the driver depends on: configuration registers of an
// enabled stream ignore writes, the status registers are read-only and
// cleared through LIFCR/HIFCR, a bus fault raises TEIF and disables the
// stream, and circular or double-buffer streams reload NDTR on completion.
//
// Data movement honours PSIZE for every beat, the PINC/MINC increment
// flags and PINCOS. Bursts and the FIFO are not modelled; they affect
// timing only.
//
// Example:
//
//	var bus mmio.Bus
//	bus.MapRAM("sram", mmio.NewRAM(0x20000000, 0x1000))
//	d := sim.New(hal.DMA2Base, &bus)
//	bus.Map("dma2", hal.DMA2Base, hal.BlockSize, d)
//	regs := hal.New(&bus, hal.DMA2Base)
package sim
