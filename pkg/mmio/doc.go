// Package mmio models memory-mapped peripheral registers.
//
// Driver code never shifts or masks raw register words itself. Each
// register is a [Register] bound to a bus address, and each bit field is
// a named [Field] or [Flag]:
//
//	var crEN = mmio.Bit(0)
//	var crDIR = mmio.Field{Shift: 6, Width: 2}
//
//	cr := mmio.NewRegister(mem, base+0x10)
//	cr.Set(crDIR, 0b10)
//	if cr.IsSet(crEN) { ... }
//
// The [Memory] interface is the only thing that differs between real
// hardware and simulation. On a microcontroller it is backed by volatile
// loads and stores; in tests it is a [RAM] or a simulated peripheral.
// A [Bus] composes several regions into one address map.
package mmio
