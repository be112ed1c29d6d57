package mmio

import (
	"sync"

	"golang.org/x/exp/constraints"
)

// Memory is a 32-bit word-addressed view of a memory-mapped region.
// Addresses are absolute bus addresses; implementations decide how they
// map onto storage or hardware.
type Memory interface {
	Load32(addr uint32) uint32
	Store32(addr uint32, v uint32)
}

// Bits extracts the width-bit field at shift from v.
func Bits[T constraints.Unsigned](v T, shift, width uint) T {
	return (v >> shift) & (T(1)<<width - 1)
}

// WithBits returns v with the width-bit field at shift replaced by x.
// Bits of x beyond width are discarded.
func WithBits[T constraints.Unsigned](v T, shift, width uint, x T) T {
	mask := (T(1)<<width - 1) << shift
	return v&^mask | (x<<shift)&mask
}

// Field is a multi-bit register field.
type Field struct {
	Shift uint8
	Width uint8
}

// Mask returns the field's bits in register position.
func (f Field) Mask() uint32 {
	return (uint32(1)<<f.Width - 1) << f.Shift
}

// Get extracts the field from a register value.
func (f Field) Get(v uint32) uint32 {
	return Bits(v, uint(f.Shift), uint(f.Width))
}

// Put returns v with the field replaced by x.
func (f Field) Put(v, x uint32) uint32 {
	return WithBits(v, uint(f.Shift), uint(f.Width), x)
}

// Flag is a single-bit register field.
type Flag uint32

// Bit returns the flag at bit position n.
func Bit(n uint) Flag { return Flag(1) << n }

// In reports whether the flag is set in v.
func (f Flag) In(v uint32) bool { return v&uint32(f) != 0 }

// Put returns v with the flag set or cleared.
func (f Flag) Put(v uint32, on bool) uint32 {
	if on {
		return v | uint32(f)
	}
	return v &^ uint32(f)
}

// Register is one 32-bit memory-mapped register.
//
// Update performs a read-modify-write while holding the register's lock,
// so two callers updating different fields of the same register cannot
// lose each other's writes.
type Register struct {
	mem  Memory
	addr uint32
	mu   sync.Mutex
}

// NewRegister returns the register at addr in mem.
func NewRegister(mem Memory, addr uint32) *Register {
	return &Register{mem: mem, addr: addr}
}

// Addr returns the register's bus address.
func (r *Register) Addr() uint32 { return r.addr }

// Read returns the current register value.
func (r *Register) Read() uint32 {
	return r.mem.Load32(r.addr)
}

// Write stores v to the register.
func (r *Register) Write(v uint32) {
	r.mu.Lock()
	r.mem.Store32(r.addr, v)
	r.mu.Unlock()
}

// Update applies fn to the current value and writes the result back.
func (r *Register) Update(fn func(uint32) uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mem.Store32(r.addr, fn(r.mem.Load32(r.addr)))
}

// Get reads field f.
func (r *Register) Get(f Field) uint32 {
	return f.Get(r.Read())
}

// Set writes x into field f, preserving other fields.
func (r *Register) Set(f Field, x uint32) {
	r.Update(func(v uint32) uint32 { return f.Put(v, x) })
}

// IsSet reports whether flag f is set.
func (r *Register) IsSet(f Flag) bool {
	return f.In(r.Read())
}

// Assign sets or clears flag f, preserving other bits.
func (r *Register) Assign(f Flag, on bool) {
	r.Update(func(v uint32) uint32 { return f.Put(v, on) })
}
