// Package sim provides a simulated SDMMC host controller with an SD card
// attached, for tests and the simulated board.
//
// The card model follows the identification sequence of the SD physical
// layer: idle, ready, ident, stby and tran states, with CMD0, CMD2, CMD3,
// CMD7, CMD8, CMD9, CMD55, ACMD6 and ACMD41. Unsupported commands and
// commands sent in the wrong state go unanswered, so the host raises
// CTIMEOUT. [CardConfig] selects the card version and capacity, how long
// ACMD41 reports busy, the CID/CSD/RCA registers, and per-command faults.
package sim
