package mmio

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/ardnew/softsd/pkg"
)

// RAM is byte-backed little-endian memory mapped at Base.
type RAM struct {
	Base uint32
	mu   sync.RWMutex
	buf  []byte
}

// NewRAM allocates size bytes of zeroed memory at base.
// size is rounded up to a multiple of 4.
func NewRAM(base uint32, size int) *RAM {
	return &RAM{Base: base, buf: make([]byte, (size+3)&^3)}
}

// Size returns the region size in bytes.
func (m *RAM) Size() uint32 { return uint32(len(m.buf)) }

// Load32 implements Memory. Out-of-range reads return zero.
func (m *RAM) Load32(addr uint32) uint32 {
	off, ok := m.offset(addr, 4)
	if !ok {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return binary.LittleEndian.Uint32(m.buf[off:])
}

// Store32 implements Memory. Out-of-range writes are dropped.
func (m *RAM) Store32(addr uint32, v uint32) {
	off, ok := m.offset(addr, 4)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	binary.LittleEndian.PutUint32(m.buf[off:], v)
}

func (m *RAM) offset(addr, n uint32) (uint32, bool) {
	if addr < m.Base || addr-m.Base+n > uint32(len(m.buf)) {
		return 0, false
	}
	return addr - m.Base, true
}

// PutUint32s writes words starting at addr.
func (m *RAM) PutUint32s(addr uint32, words ...uint32) {
	for i, w := range words {
		m.Store32(addr+uint32(4*i), w)
	}
}

// Uint32s reads n words starting at addr.
func (m *RAM) Uint32s(addr uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = m.Load32(addr + uint32(4*i))
	}
	return out
}

// region is one Memory mapped into a Bus.
type region struct {
	base, size uint32
	mem        Memory
	name       string
}

// Bus is a system address map that routes accesses to mapped regions.
// It stands in for the AHB matrix when simulating DMA data movement.
type Bus struct {
	mu      sync.RWMutex
	regions []region
}

// Map places mem at [base, base+size). Overlapping regions are rejected.
func (b *Bus) Map(name string, base, size uint32, mem Memory) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.regions {
		if base < r.base+r.size && r.base < base+size {
			return fmt.Errorf("map %s at 0x%08X: overlaps %s: %w",
				name, base, r.name, pkg.ErrInvalidParameter)
		}
	}
	b.regions = append(b.regions, region{base: base, size: size, mem: mem, name: name})
	sort.Slice(b.regions, func(i, j int) bool { return b.regions[i].base < b.regions[j].base })
	return nil
}

// MapRAM maps a RAM region at its own base address.
func (b *Bus) MapRAM(name string, m *RAM) error {
	return b.Map(name, m.Base, m.Size(), m)
}

func (b *Bus) lookup(addr uint32) (Memory, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := sort.Search(len(b.regions), func(i int) bool {
		return b.regions[i].base+b.regions[i].size > addr
	})
	if i < len(b.regions) && b.regions[i].base <= addr {
		return b.regions[i].mem, true
	}
	return nil, false
}

// Load32 implements Memory. Unmapped reads return zero.
func (b *Bus) Load32(addr uint32) uint32 {
	v, _ := b.Load(addr, 4)
	return v
}

// Store32 implements Memory. Unmapped writes are dropped.
func (b *Bus) Store32(addr uint32, v uint32) {
	_ = b.Store(addr, 4, v)
}

// Load reads a size-byte item (1, 2 or 4) at addr.
func (b *Bus) Load(addr uint32, size int) (uint32, error) {
	mem, err := b.access(addr, size)
	if err != nil {
		return 0, err
	}
	shift, width := lane(addr, size)
	return Bits(mem.Load32(addr&^3), shift, width), nil
}

// Store writes the low size bytes (1, 2 or 4) of v at addr. Sub-word
// stores read-modify-write the containing word.
func (b *Bus) Store(addr uint32, size int, v uint32) error {
	mem, err := b.access(addr, size)
	if err != nil {
		return err
	}
	if size == 4 {
		mem.Store32(addr, v)
		return nil
	}
	shift, width := lane(addr, size)
	word := addr &^ 3
	mem.Store32(word, WithBits(mem.Load32(word), shift, width, v))
	return nil
}

func (b *Bus) access(addr uint32, size int) (Memory, error) {
	switch size {
	case 1, 2, 4:
	default:
		return nil, fmt.Errorf("access size %d: %w", size, pkg.ErrInvalidParameter)
	}
	if addr%uint32(size) != 0 {
		return nil, fmt.Errorf("unaligned %d-byte access at 0x%08X: %w", size, addr, pkg.ErrBusFault)
	}
	mem, ok := b.lookup(addr)
	if !ok {
		return nil, fmt.Errorf("unmapped address 0x%08X: %w", addr, pkg.ErrBusFault)
	}
	return mem, nil
}

// lane returns the bit position and width of a size-byte item within its
// little-endian word.
func lane(addr uint32, size int) (shift, width uint) {
	return uint(addr&3) * 8, uint(size) * 8
}
