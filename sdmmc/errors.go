package sdmmc

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/ardnew/softsd/pkg"
)

// ErrorCode is a set of SDMMC error flags. Errors of one operation
// accumulate by bitwise OR; a Handle keeps the union of every error since
// the last Init or ClearError.
//
// ErrorCode implements error. errors.Is reports whether an ErrorCode
// contains every flag of a target ErrorCode, and maps timeout, busy,
// unsupported and invalid-parameter flags onto the pkg sentinels.
type ErrorCode uint32

// Error flags.
const (
	ErrNone                 ErrorCode = 0x00000000
	ErrCmdCRCFail           ErrorCode = 0x00000001 // Command response received, CRC check failed
	ErrDataCRCFail          ErrorCode = 0x00000002 // Data block sent/received, CRC check failed
	ErrCmdRspTimeout        ErrorCode = 0x00000004 // Command response timeout
	ErrDataTimeout          ErrorCode = 0x00000008 // Data timeout
	ErrTxUnderrun           ErrorCode = 0x00000010 // Transmit FIFO underrun
	ErrRxOverrun            ErrorCode = 0x00000020 // Receive FIFO overrun
	ErrAddrMisaligned       ErrorCode = 0x00000040 // Misaligned address
	ErrBlockLen             ErrorCode = 0x00000080 // Transferred block length not allowed
	ErrEraseSeq             ErrorCode = 0x00000100 // Error in the erase command sequence
	ErrBadEraseParam        ErrorCode = 0x00000200 // Invalid selection of erase groups
	ErrWriteProtViolation   ErrorCode = 0x00000400 // Write to a protected block
	ErrLockUnlockFailed     ErrorCode = 0x00000800 // Lock/unlock sequence or password error
	ErrComCRCFailed         ErrorCode = 0x00001000 // CRC check of the previous command failed
	ErrIllegalCmd           ErrorCode = 0x00002000 // Command not legal for the card state
	ErrCardECCFailed        ErrorCode = 0x00004000 // Card internal ECC failed to correct data
	ErrCC                   ErrorCode = 0x00008000 // Internal card controller error
	ErrGeneralUnknown       ErrorCode = 0x00010000 // General or unknown error
	ErrStreamReadUnderrun   ErrorCode = 0x00020000 // Stream read underrun
	ErrStreamWriteOverrun   ErrorCode = 0x00040000 // Stream write overrun
	ErrCIDCSDOverwrite      ErrorCode = 0x00080000 // CID/CSD overwrite error
	ErrWPEraseSkip          ErrorCode = 0x00100000 // Write-protected blocks skipped by erase
	ErrCardECCDisabled      ErrorCode = 0x00200000 // Command executed without internal ECC
	ErrEraseReset           ErrorCode = 0x00400000 // Erase sequence cleared before executing
	ErrAKESeq               ErrorCode = 0x00800000 // Error in authentication sequence
	ErrInvalidVoltRange     ErrorCode = 0x01000000 // No operating voltage agreed
	ErrAddrOutOfRange       ErrorCode = 0x02000000 // Argument out of range
	ErrRequestNotApplicable ErrorCode = 0x04000000 // Request not applicable in this state
	ErrInvalidParam         ErrorCode = 0x08000000 // Invalid parameter
	ErrUnsupportedFeature   ErrorCode = 0x10000000 // Feature not supported
	ErrBusy                 ErrorCode = 0x20000000 // Handle busy
	ErrTimeout              ErrorCode = 0x80000000 // Software timeout

	ErrDMA             ErrorCode = 0x40000000 // DMA subsystem error class
	ErrDMATransfer     ErrorCode = 0x40000001 // DMA transfer error
	ErrDMAFIFO         ErrorCode = 0x40000002 // DMA FIFO error
	ErrDMADirectMode   ErrorCode = 0x40000004 // DMA direct mode error
	ErrDMATimeout      ErrorCode = 0x40000020 // DMA timeout
	ErrDMAParameter    ErrorCode = 0x40000040 // DMA parameter error
	ErrDMANoTransfer   ErrorCode = 0x40000080 // Abort requested with no transfer ongoing
	ErrDMANotSupported ErrorCode = 0x40000100 // DMA feature not supported
)

// errorNames lists single-bit flags in bit order.
var errorNames = [32]string{
	"CMD_CRC_FAIL", "DATA_CRC_FAIL", "CMD_RSP_TIMEOUT", "DATA_TIMEOUT",
	"TX_UNDERRUN", "RX_OVERRUN", "ADDR_MISALIGNED", "BLOCK_LEN_ERR",
	"ERASE_SEQ_ERR", "BAD_ERASE_PARAM", "WRITE_PROT_VIOLATION", "LOCK_UNLOCK_FAILED",
	"COM_CRC_FAILED", "ILLEGAL_CMD", "CARD_ECC_FAILED", "CC_ERR",
	"GENERAL_UNKNOWN_ERR", "STREAM_READ_UNDERRUN", "STREAM_WRITE_OVERRUN", "CID_CSD_OVERWRITE",
	"WP_ERASE_SKIP", "CARD_ECC_DISABLED", "ERASE_RESET", "AKE_SEQ_ERR",
	"INVALID_VOLTRANGE", "ADDR_OUT_OF_RANGE", "REQUEST_NOT_APPLICABLE", "INVALID_PARAM",
	"UNSUPPORTED_FEATURE", "BUSY", "DMA", "TIMEOUT",
}

// Error returns the names of the set flags joined by "|".
func (e ErrorCode) Error() string {
	if e == ErrNone {
		return "sdmmc: no error"
	}
	var names []string
	for v := uint32(e); v != 0; v &= v - 1 {
		names = append(names, errorNames[bits.TrailingZeros32(v)])
	}
	return fmt.Sprintf("sdmmc: %s (0x%08X)", strings.Join(names, "|"), uint32(e))
}

// Has reports whether every flag of f is set in e.
func (e ErrorCode) Has(f ErrorCode) bool {
	return f != ErrNone && e&f == f
}

// Is implements errors.Is.
func (e ErrorCode) Is(target error) bool {
	switch target {
	case pkg.ErrTimeout:
		return e&(ErrTimeout|ErrCmdRspTimeout|ErrDataTimeout) != 0
	case pkg.ErrBusy:
		return e.Has(ErrBusy)
	case pkg.ErrNotSupported:
		return e.Has(ErrUnsupportedFeature)
	case pkg.ErrInvalidParameter:
		return e.Has(ErrInvalidParam)
	}
	t, ok := target.(ErrorCode)
	return ok && e.Has(t)
}

// err returns e as an error, or nil for ErrNone.
func (e ErrorCode) err() error {
	if e == ErrNone {
		return nil
	}
	return e
}

// OCR and card status error bits.
const (
	ocrErrorBitsMask      = 0xFDFFE008
	ocrAddrOutOfRange     = 1 << 31
	ocrAddrMisaligned     = 1 << 30
	ocrBlockLenErr        = 1 << 29
	ocrEraseSeqErr        = 1 << 28
	ocrBadEraseParam      = 1 << 27
	ocrWriteProtViolation = 1 << 26
	ocrLockUnlockFailed   = 1 << 24
	ocrComCRCFailed       = 1 << 23
	ocrIllegalCmd         = 1 << 22
	ocrCardECCFailed      = 1 << 21
	ocrCCError            = 1 << 20
	ocrStreamReadUnderrun = 1 << 18
	ocrStreamWriteOverrun = 1 << 17
	ocrCIDCSDOverwrite    = 1 << 16
	ocrWPEraseSkip        = 1 << 15
	ocrCardECCDisabled    = 1 << 14
	ocrEraseReset         = 1 << 13
	ocrAKESeqError        = 1 << 3
)

// ocrErrors is the decode table in priority order.
var ocrErrors = [...]struct {
	bit  uint32
	code ErrorCode
}{
	{ocrAddrOutOfRange, ErrAddrOutOfRange},
	{ocrAddrMisaligned, ErrAddrMisaligned},
	{ocrBlockLenErr, ErrBlockLen},
	{ocrEraseSeqErr, ErrEraseSeq},
	{ocrBadEraseParam, ErrBadEraseParam},
	{ocrWriteProtViolation, ErrWriteProtViolation},
	{ocrLockUnlockFailed, ErrLockUnlockFailed},
	{ocrComCRCFailed, ErrComCRCFailed},
	{ocrIllegalCmd, ErrIllegalCmd},
	{ocrCardECCFailed, ErrCardECCFailed},
	{ocrCCError, ErrCC},
	{ocrStreamReadUnderrun, ErrStreamReadUnderrun},
	{ocrStreamWriteOverrun, ErrStreamWriteOverrun},
	{ocrCIDCSDOverwrite, ErrCIDCSDOverwrite},
	{ocrWPEraseSkip, ErrWPEraseSkip},
	{ocrCardECCDisabled, ErrCardECCDisabled},
	{ocrEraseReset, ErrEraseReset},
	{ocrAKESeqError, ErrAKESeq},
}

// CheckOCRErrorBits decodes the error bits of an R1 card status word.
// Only the highest-priority error is reported; status words with no
// error bit in 0xFDFFE008 decode to ErrNone.
func CheckOCRErrorBits(status uint32) ErrorCode {
	if status&ocrErrorBitsMask == 0 {
		return ErrNone
	}
	for _, e := range ocrErrors {
		if status&e.bit != 0 {
			return e.code
		}
	}
	return ErrGeneralUnknown
}

// R6 response error bits.
const (
	r6GeneralUnknownError = 0x2000
	r6IllegalCmd          = 0x4000
	r6ComCRCFailed        = 0x8000
	r6ErrorBits           = r6GeneralUnknownError | r6IllegalCmd | r6ComCRCFailed
)
