// Package hal describes the register block of an STM32F7-class DMA
// controller.
//
// A [Controller] binds the block at a base address in an [mmio.Memory].
// [Controller.Stream] resolves one of the eight logical stream ids to its
// [Stream] register set (CR, NDTR, PAR, M0AR, M1AR, FCR) together with
// the stream's bits in the shared interrupt status (LISR/HISR) and flag
// clear (LIFCR/HIFCR) registers.
//
// Field layouts are exported as [mmio.Field] and [mmio.Flag] values so
// the transfer controller in package dma and the simulator in
// [github.com/ardnew/softsd/dma/hal/sim] agree on a single definition.
package hal
