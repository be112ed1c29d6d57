// Package hal describes the register block of an STM32F7-class SDMMC
// host controller.
//
// [Controller] exposes each register as an [mmio.Register] and each
// field as an exported [mmio.Field] or [mmio.Flag], shared by the card
// driver in package sdmmc and the simulator in
// [github.com/ardnew/softsd/sdmmc/hal/sim].
package hal
