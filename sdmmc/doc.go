// Package sdmmc drives an SD card through an STM32F7-class SDMMC host
// controller.
//
// A [Handle] owns the controller registers and the receive and transmit
// DMA streams of the data path. [Handle.Init] powers the card, resets it
// with CMD0, probes its version with CMD8, negotiates voltage and capacity
// with repeated ACMD41, identifies it with CMD2, CMD3 and CMD9, and
// selects it with CMD7:
//
//	regs := hal.New(mem, hal.SDMMC1Base)
//	h, err := sdmmc.NewHandle(regs, dmaManager, sdmmc.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	if err := h.Init(); err != nil {
//		log.Printf("init: %v (accumulated %v)", err, h.ErrorCode())
//	}
//	fmt.Println(h.Card().Identification())
//
// Command failures are [ErrorCode] bit flags. A Handle accumulates every
// flag raised since the last Init; errors.Is matches individual flags as
// well as the pkg sentinels for timeouts and unsupported features.
//
// Every response wait is bounded by Config.CommandTimeout ticks of
// Config.Clock. There is no interrupt path: the driver busy-polls.
package sdmmc
