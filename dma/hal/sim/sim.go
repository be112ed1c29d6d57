package sim

import (
	"sync"

	"github.com/ardnew/softsd/dma/hal"
	"github.com/ardnew/softsd/pkg"
	"github.com/ardnew/softsd/pkg/mmio"
)

// Register offsets mirrored from the controller layout.
const (
	offLISR  = 0x00
	offHISR  = 0x04
	offLIFCR = 0x08
	offHIFCR = 0x0C
)

// Direction encodings of CR.DIR.
const (
	dirP2M = 0b00
	dirM2P = 0b01
	dirM2M = 0b10
)

// progress is the latched state of a running stream.
type progress struct {
	src, dst uint32 // current source and destination addresses
	initial  uint32 // NDTR value latched at enable
	halfDone bool
}

// DMA simulates one DMA controller. It implements [mmio.Memory] for the
// controller's register block and moves data over a [mmio.Bus].
//
// Enabled streams advance by one data item each time the interrupt status
// registers are read, so a driver polling for completion makes progress
// without any background goroutine. Step drives streams explicitly when
// AutoStep is off.
type DMA struct {
	mu   sync.Mutex
	base uint32
	bus  *mmio.Bus
	regs [hal.BlockSize / 4]uint32
	xfer [hal.NumStreams]progress

	// AutoStep advances enabled streams on every status register read.
	AutoStep bool

	// Beats counts data items moved since construction.
	Beats int
}

// New returns a simulated controller at base moving data over bus.
// The registers hold their reset values.
func New(base uint32, bus *mmio.Bus) *DMA {
	d := &DMA{base: base, bus: bus, AutoStep: true}
	for id := range hal.NumStreams {
		d.regs[d.index(id, 0x14)] = hal.FcrReset
	}
	return d
}

// Base returns the controller base address.
func (d *DMA) Base() uint32 { return d.base }

func (d *DMA) index(id int, off uint32) uint32 {
	return (hal.StreamOffset(id) + off) / 4
}

// word returns the register index for addr, or false if out of range.
func (d *DMA) word(addr uint32) (uint32, bool) {
	if addr < d.base || addr-d.base >= hal.BlockSize {
		return 0, false
	}
	return (addr - d.base) / 4, true
}

// stream returns the stream id and register offset for a register index.
func stream(idx uint32) (id int, off uint32, ok bool) {
	byteOff := idx * 4
	if byteOff < hal.StreamOffset(0) || byteOff >= hal.StreamOffset(hal.NumStreams) {
		return 0, 0, false
	}
	rel := byteOff - hal.StreamOffset(0)
	return int(rel / 0x18), rel % 0x18, true
}

// Load32 implements mmio.Memory.
func (d *DMA) Load32(addr uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx, ok := d.word(addr)
	if !ok {
		return 0
	}
	switch idx * 4 {
	case offLISR, offHISR:
		if d.AutoStep {
			d.stepLocked()
		}
	case offLIFCR, offHIFCR:
		return 0 // write-only
	}
	return d.regs[idx]
}

// Store32 implements mmio.Memory.
func (d *DMA) Store32(addr uint32, v uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx, ok := d.word(addr)
	if !ok {
		return
	}
	switch idx * 4 {
	case offLISR, offHISR:
		return // read-only
	case offLIFCR:
		d.regs[offLISR/4] &^= v
		return
	case offHIFCR:
		d.regs[offHISR/4] &^= v
		return
	}
	id, off, ok := stream(idx)
	if !ok {
		d.regs[idx] = v
		return
	}
	cr := d.regs[d.index(id, 0)]
	enabled := hal.CrEN.In(cr)
	if off != 0 {
		// Configuration registers are locked while the stream is enabled.
		if !enabled {
			if off == 0x14 {
				v = hal.FcrFS.Put(v, hal.FcrFS.Get(d.regs[idx])) // read-only
			}
			d.regs[idx] = v
		}
		return
	}
	switch {
	case enabled && !hal.CrEN.In(v):
		d.regs[idx] = hal.CrEN.Put(cr, false)
		pkg.LogDebug(pkg.ComponentSim, "stream disabled", "stream", id)
	case enabled:
		// Only EN is writable while enabled.
	case hal.CrEN.In(v):
		d.regs[idx] = v
		d.startLocked(id)
	default:
		d.regs[idx] = v
	}
}

func (d *DMA) startLocked(id int) {
	cr := d.regs[d.index(id, 0)]
	par := d.regs[d.index(id, 0x08)]
	m0ar := d.regs[d.index(id, 0x0C)]
	ndt := hal.NdtrNDT.Get(d.regs[d.index(id, 0x04)])

	p := progress{initial: ndt}
	switch hal.CrDIR.Get(cr) {
	case dirM2P:
		p.src, p.dst = m0ar, par
	case dirP2M, dirM2M:
		p.src, p.dst = par, m0ar
	default:
		d.faultLocked(id, hal.FlagTE, "reserved direction")
		return
	}
	if hal.CrDBM.In(cr) && hal.CrCT.In(cr) {
		p.dst = d.regs[d.index(id, 0x10)]
		if hal.CrDIR.Get(cr) == dirM2P {
			p.src, p.dst = d.regs[d.index(id, 0x10)], par
		}
	}
	d.xfer[id] = p
	pkg.LogDebug(pkg.ComponentSim, "stream enabled", "stream", id, "items", ndt,
		"src", pkg.Hex(p.src), "dst", pkg.Hex(p.dst))
	if ndt == 0 {
		d.emptyLocked(id)
	}
}

// emptyLocked finishes a stream enabled with nothing to move.
func (d *DMA) emptyLocked(id int) {
	d.raiseLocked(id, hal.FlagTC)
	crIdx := d.index(id, 0)
	d.regs[crIdx] = hal.CrEN.Put(d.regs[crIdx], false)
}

// Step advances every enabled stream by one data item.
func (d *DMA) Step() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stepLocked()
}

// Run steps until no stream is enabled or max steps have been taken, and
// returns the number of steps taken.
func (d *DMA) Run(max int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for ; n < max && d.anyEnabledLocked(); n++ {
		d.stepLocked()
	}
	return n
}

func (d *DMA) anyEnabledLocked() bool {
	for id := range hal.NumStreams {
		if hal.CrEN.In(d.regs[d.index(id, 0)]) {
			return true
		}
	}
	return false
}

func (d *DMA) stepLocked() {
	for id := range hal.NumStreams {
		if hal.CrEN.In(d.regs[d.index(id, 0)]) {
			d.beatLocked(id)
		}
	}
}

// itemSize returns the byte width of a PSIZE/MSIZE encoding.
func itemSize(bits uint32) int {
	return 1 << bits
}

func (d *DMA) beatLocked(id int) {
	cr := d.regs[d.index(id, 0)]
	ndtrIdx := d.index(id, 0x04)
	remaining := hal.NdtrNDT.Get(d.regs[ndtrIdx])
	if remaining == 0 {
		d.emptyLocked(id)
		return
	}

	psize := hal.CrPSIZE.Get(cr)
	if psize > 0b10 {
		d.faultLocked(id, hal.FlagTE, "reserved PSIZE")
		return
	}
	size := itemSize(psize)
	p := &d.xfer[id]

	v, err := d.bus.Load(p.src, size)
	if err == nil {
		err = d.bus.Store(p.dst, size, v)
	}
	if err != nil {
		d.faultLocked(id, hal.FlagTE, err.Error())
		return
	}
	d.Beats++

	pstep := uint32(size)
	if hal.CrPINCOS.In(cr) {
		pstep = 4
	}
	dir := hal.CrDIR.Get(cr)
	srcInc, dstInc := hal.CrPINC.In(cr), hal.CrMINC.In(cr)
	srcStep, dstStep := pstep, uint32(size)
	if dir == dirM2P {
		srcInc, dstInc = dstInc, srcInc
		srcStep, dstStep = uint32(size), pstep
	}
	if srcInc {
		p.src += srcStep
	}
	if dstInc {
		p.dst += dstStep
	}

	remaining--
	d.regs[ndtrIdx] = hal.NdtrNDT.Put(d.regs[ndtrIdx], remaining)
	if !p.halfDone && remaining <= p.initial/2 {
		p.halfDone = true
		d.raiseLocked(id, hal.FlagHT)
	}
	if remaining == 0 {
		d.completeLocked(id)
	}
}

func (d *DMA) completeLocked(id int) {
	crIdx := d.index(id, 0)
	cr := d.regs[crIdx]
	d.raiseLocked(id, hal.FlagTC)

	switch {
	case hal.CrDBM.In(cr):
		// Swap targets and keep running.
		cr ^= uint32(hal.CrCT)
		d.regs[crIdx] = cr
		d.reloadLocked(id)
		d.startLocked(id)
	case hal.CrCIRC.In(cr):
		d.reloadLocked(id)
		d.startLocked(id)
	default:
		d.regs[crIdx] = hal.CrEN.Put(cr, false)
		pkg.LogDebug(pkg.ComponentSim, "transfer complete", "stream", id)
	}
}

func (d *DMA) reloadLocked(id int) {
	idx := d.index(id, 0x04)
	d.regs[idx] = hal.NdtrNDT.Put(d.regs[idx], d.xfer[id].initial)
}

func (d *DMA) faultLocked(id int, f hal.Flag, reason string) {
	d.raiseLocked(id, f)
	crIdx := d.index(id, 0)
	d.regs[crIdx] = hal.CrEN.Put(d.regs[crIdx], false)
	pkg.LogWarn(pkg.ComponentSim, "stream fault", "stream", id, "flag", f.String(), "reason", reason)
}

func (d *DMA) raiseLocked(id int, f hal.Flag) {
	reg := uint32(offLISR / 4)
	if id >= 4 {
		reg = offHISR / 4
	}
	d.regs[reg] |= uint32(hal.FlagBit(id, f))
}

// Raise sets status flag f on stream id as the hardware would. Raising an
// error flag (TE or DME) also disables the stream.
func (d *DMA) Raise(id int, f hal.Flag) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f == hal.FlagTE || f == hal.FlagDME {
		d.faultLocked(id, f, "injected")
		return
	}
	d.raiseLocked(id, f)
}
