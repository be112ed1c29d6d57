package sim

import "fmt"

// Fault is an injected command failure.
type Fault uint8

// Faults.
const (
	FaultNone    Fault = iota
	FaultTimeout       // The card does not answer; the host raises CTIMEOUT.
	FaultCRC           // The response arrives with CCRCFAIL instead of CMDREND.
	FaultIndex         // The response echoes a different command index.
	FaultSilent        // No status flag is raised at all.
)

// String returns a human-readable fault.
func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "None"
	case FaultTimeout:
		return "Timeout"
	case FaultCRC:
		return "CRC"
	case FaultIndex:
		return "Index"
	case FaultSilent:
		return "Silent"
	default:
		return fmt.Sprintf("Unknown Fault (%d)", f)
	}
}

// App marks an application-specific command (one preceded by CMD55) in
// CardConfig maps and the command history: App|41 is ACMD41.
const App = 0x40

// CardConfig describes the simulated card.
type CardConfig struct {
	// Version is the physical layer version: 1 rejects CMD8, 2 answers it.
	Version int

	// HighCapacity reports CCS in the ACMD41 response when the host asks
	// for high capacity support. Only version 2 cards honour it.
	HighCapacity bool

	// BusyAfter is the number of ACMD41 responses with the busy bit clear
	// before the card reports ready. A negative value never reports ready.
	BusyAfter int

	CID [4]uint32
	CSD [4]uint32
	RCA uint16

	// Absent makes the card answer nothing, as when no card is inserted.
	Absent bool

	// Faults injects a failure into every occurrence of a command, keyed
	// by command index (with App for application commands).
	Faults map[int]Fault

	// Status bits are ORed into the R1 card status of a command.
	Status map[int]uint32
}

// Sample card registers.
var (
	// SampleCID is a SanDisk "SU08G" card, revision 8.0, serial
	// 0x12345678, manufactured September 2014.
	SampleCID = [4]uint32{0x03534453, 0x55303847, 0x80123456, 0x7800E9F1}

	// SampleCSDv2 is a CSD version 2.0 register with C_SIZE 15159
	// (15523840 blocks of 512 bytes) and command classes 0x5B5.
	SampleCSDv2 = [4]uint32{0x400E0032, 0x5B590000, 0x3B377F80, 0x0A4040AF}

	// SampleCSDv1 is a CSD version 1.0 register with C_SIZE 3839,
	// C_SIZE_MULT 7 and READ_BL_LEN 9 (1966080 blocks of 512 bytes) and
	// command classes 0x5F5.
	SampleCSDv1 = [4]uint32{0x002F0032, 0x5F5903BF, 0xC003FF80, 0x16800000}
)

// DefaultCard returns a version 2 high-capacity card that is ready on
// the first ACMD41.
func DefaultCard() CardConfig {
	return CardConfig{
		Version:      2,
		HighCapacity: true,
		CID:          SampleCID,
		CSD:          SampleCSDv2,
		RCA:          0xB368,
	}
}

// StandardCard returns a version 1 standard-capacity card.
func StandardCard() CardConfig {
	return CardConfig{
		Version: 1,
		CID:     SampleCID,
		CSD:     SampleCSDv1,
		RCA:     0x0001,
	}
}

// cardState is the SD card state of the identification and data modes.
type cardState uint8

const (
	stateIdle cardState = iota
	stateReady
	stateIdent
	stateStby
	stateTran
)

// String returns the state name used in card status.
func (s cardState) String() string {
	return [...]string{"idle", "ready", "ident", "stby", "tran"}[s]
}

// Card status and OCR bits.
const (
	statusReadyForData = 1 << 8
	statusAppCmd       = 1 << 5
	ocrVoltageWindow   = 0x00FF8000
	ocrCCS             = 1 << 30
	ocrBusy            = 1 << 31
)

// responseKind is what the card sends back.
type responseKind uint8

const (
	respNone  responseKind = iota // No response, or none expected
	respShort                     // R1, R6, R7
	respOCR                       // R3: no CRC, index field all ones
	respLong                      // R2
)

type response struct {
	kind  responseKind
	index uint32
	words [4]uint32
}

// card models the SD card's command state machine.
type card struct {
	cfg    CardConfig
	state  cardState
	app    bool
	trials int
	width  int
}

func newCard(cfg CardConfig) *card {
	return &card{cfg: cfg, width: 1}
}

func (c *card) reset() {
	c.state = stateIdle
	c.app = false
	c.trials = 0
	c.width = 1
}

// status returns the R1 card status word for command key.
func (c *card) status(key int) uint32 {
	s := uint32(c.state)<<9 | statusReadyForData | c.cfg.Status[key]
	if c.app {
		s |= statusAppCmd
	}
	return s
}

func (c *card) short(idx uint32, v uint32) (response, bool) {
	return response{kind: respShort, index: idx, words: [4]uint32{v}}, true
}

// execute runs command idx with argument arg. It returns false when the
// card does not respond.
func (c *card) execute(idx, arg uint32) (response, bool) {
	if c.cfg.Absent {
		return response{}, false
	}
	app := c.app
	c.app = false
	if app {
		return c.executeApp(idx, arg)
	}

	switch idx {
	case 0:
		c.reset()
		return response{kind: respNone}, true

	case 8:
		if c.cfg.Version < 2 || c.state != stateIdle {
			return response{}, false
		}
		return c.short(idx, arg&0xFFF)

	case 55:
		if arg>>16 != c.expectRCA() {
			return response{}, false
		}
		c.app = true
		return c.short(idx, c.status(55))

	case 2:
		if c.state != stateReady {
			return response{}, false
		}
		c.state = stateIdent
		return response{kind: respLong, index: 0x3F, words: c.cfg.CID}, true

	case 3:
		if c.state != stateIdent && c.state != stateStby {
			return response{}, false
		}
		c.state = stateStby
		return c.short(idx, uint32(c.cfg.RCA)<<16|uint32(stateIdent)<<9|statusReadyForData|c.cfg.Status[3])

	case 9:
		if c.state != stateStby || arg>>16 != uint32(c.cfg.RCA) {
			return response{}, false
		}
		return response{kind: respLong, index: 0x3F, words: c.cfg.CSD}, true

	case 7:
		if arg>>16 != uint32(c.cfg.RCA) || (c.state != stateStby && c.state != stateTran) {
			return response{}, false
		}
		st := c.status(7)
		c.state = stateTran
		return c.short(idx, st)
	}
	return response{}, false
}

func (c *card) executeApp(idx, arg uint32) (response, bool) {
	switch idx {
	case 41:
		if c.state != stateIdle {
			return response{}, false
		}
		c.trials++
		ocr := uint32(ocrVoltageWindow)
		if c.cfg.BusyAfter >= 0 && c.trials > c.cfg.BusyAfter {
			ocr |= ocrBusy
			if c.cfg.Version >= 2 && c.cfg.HighCapacity && arg&ocrCCS != 0 {
				ocr |= ocrCCS
			}
			c.state = stateReady
		}
		return response{kind: respOCR, index: 0x3F, words: [4]uint32{ocr}}, true

	case 6:
		if c.state != stateTran {
			return response{}, false
		}
		switch arg & 0b11 {
		case 0b00:
			c.width = 1
		case 0b10:
			c.width = 4
		}
		c.app = true // status reports APP_CMD for this response
		st := c.status(App | 6)
		c.app = false
		return c.short(idx, st)
	}
	return response{}, false
}

// expectRCA returns the RCA CMD55 must carry in the current state.
func (c *card) expectRCA() uint32 {
	switch c.state {
	case stateIdle, stateReady, stateIdent:
		return 0
	}
	return uint32(c.cfg.RCA)
}
