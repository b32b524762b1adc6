package hw

import (
	"amber/emu/log"
	"amber/hw/hwio"
)

const addrMask = 0xFFFFFF // 24-bit address bus

// Bus is the shared chip bus: mapped memory regions, the custom register
// space, and the contract the CPU core talks through. Arbitration and
// interrupt visibility are imposed here so the CPU cannot bypass them.
type Bus struct {
	Name string

	pages   hwio.Bitset
	regions []busRegion
	regs    map[uint32]*hwio.Reg16

	arb   *Arbiter
	chain *Chain
}

type busRegion struct {
	start uint32
	mem   []byte
	ro    bool
}

func NewBus(name string) *Bus {
	return &Bus{
		Name: name,
		regs: make(map[uint32]*hwio.Reg16),
	}
}

// MapRAM maps a memory slice at start. Pages covered by the slice answer
// bus accesses; everything else is a bus error.
func (b *Bus) MapRAM(start uint32, mem []byte, ro bool) {
	b.regions = append(b.regions, busRegion{start: start, mem: mem, ro: ro})
	first := uint(start&addrMask) >> 8
	last := uint((start+uint32(len(mem))-1)&addrMask) >> 8
	b.pages.SetRange(first, last+1)
}

// MapRegSpace declares [base, base+size) as mapped register space. Word
// slots inside it without a register behave as open bus, not bus errors.
func (b *Bus) MapRegSpace(base, size uint32) {
	first := uint(base&addrMask) >> 8
	last := uint((base+size-1)&addrMask) >> 8
	b.pages.SetRange(first, last+1)
}

// MapReg16 maps a word register at addr (must be even).
func (b *Bus) MapReg16(addr uint32, reg *hwio.Reg16) {
	b.regs[addr&addrMask&^1] = reg
}

func (b *Bus) attach(arb *Arbiter, chain *Chain) {
	b.arb = arb
	b.chain = chain
}

// busErrAt returns the bus error a request would cause, or nil.
func (b *Bus) busErrAt(req BusRequest) *BusError {
	addr := req.Addr & addrMask
	w := req.Width
	if w != Byte && addr&1 != 0 {
		return &BusError{Addr: addr, Width: w, Kind: req.Kind}
	}
	last := (addr + uint32(w) - 1) & addrMask
	if !b.pages.Test(uint(addr)>>8) || !b.pages.Test(uint(last)>>8) {
		return &BusError{Addr: addr, Width: w, Kind: req.Kind}
	}
	if w == Byte && b.region(addr) == nil {
		// Byte access decodes only to memory; the register file is
		// word-wide silicon.
		if _, isReg := b.regs[addr&^1]; isReg {
			return &BusError{Addr: addr, Width: w, Kind: req.Kind}
		}
	}
	return nil
}

// BusErrorAt reports whether an access at addr with the given width would
// be a bus error. The CPU core turns a true result into its own group-0
// exception sequence.
func (b *Bus) BusErrorAt(addr uint32, w Width) bool {
	return b.busErrAt(BusRequest{Kind: ReadAccess, Addr: addr, Width: w, From: Slot{Owner: OwnerCPU}}) != nil
}

func (b *Bus) region(addr uint32) *busRegion {
	addr &= addrMask
	for i := range b.regions {
		r := &b.regions[i]
		if addr >= r.start && addr < r.start+uint32(len(r.mem)) {
			return r
		}
	}
	return nil
}

func (b *Bus) read16(addr uint32) uint16 {
	addr &= addrMask &^ 1
	if r := b.region(addr); r != nil {
		off := addr - r.start
		return uint16(r.mem[off])<<8 | uint16(r.mem[off+1])
	}
	if reg, ok := b.regs[addr]; ok {
		return reg.Read16(addr)
	}
	return 0 // open bus
}

func (b *Bus) write16(addr uint32, val uint16) {
	addr &= addrMask &^ 1
	if r := b.region(addr); r != nil {
		if r.ro {
			log.ModBus.DebugZ("write to readonly region").Hex32("addr", addr).End()
			return
		}
		off := addr - r.start
		r.mem[off] = uint8(val >> 8)
		r.mem[off+1] = uint8(val)
		return
	}
	if reg, ok := b.regs[addr]; ok {
		reg.Write16(addr, val)
		return
	}
	log.ModBus.DebugZ("write to open bus").Hex32("addr", addr).Hex16("val", val).End()
}

// dmaRead16 is the fetch path for granted DMA slots: no arbitration (the
// slot is already owned), but the shared error contract still applies, so
// a coprocessor running off the end of its region faults like anyone else.
func (b *Bus) dmaRead16(addr uint32) (uint16, *BusError) {
	req := BusRequest{Kind: ReadAccess, Addr: addr, Width: Word, IsDMA: true}
	if berr := b.busErrAt(req); berr != nil {
		return 0, berr
	}
	return b.read16(addr), nil
}

// Read performs a CPU read. A non-zero wait count means the CPU lost
// arbitration: it must stall that many ticks and re-request; the value is
// not valid. Bus errors read as open bus; the CPU detects them through
// BusErrorAt and raises its own exception.
func (b *Bus) Read(addr uint32, w Width) (val uint32, wait int) {
	if b.arb != nil {
		if wait = b.arb.cpuClaim(); wait > 0 {
			return 0, wait
		}
	}
	req := BusRequest{Kind: ReadAccess, Addr: addr, Width: w, From: Slot{Owner: OwnerCPU}}
	if berr := b.busErrAt(req); berr != nil {
		log.ModBus.DebugZ("bus error").Error("err", berr).End()
		return 0, 0
	}
	addr &= addrMask
	switch w {
	case Byte:
		if r := b.region(addr); r != nil {
			return uint32(r.mem[addr-r.start]), 0
		}
		return 0, 0 // open bus
	case Word:
		return uint32(b.read16(addr)), 0
	default: // Long: two word cycles back to back
		hi := b.read16(addr)
		lo := b.read16(addr + 2)
		return uint32(hi)<<16 | uint32(lo), 0
	}
}

// Write performs a CPU write, with the same wait-state contract as Read.
func (b *Bus) Write(addr uint32, w Width, val uint32) (wait int) {
	if b.arb != nil {
		if wait = b.arb.cpuClaim(); wait > 0 {
			return wait
		}
	}
	req := BusRequest{Kind: WriteAccess, Addr: addr, Width: w, From: Slot{Owner: OwnerCPU}}
	if berr := b.busErrAt(req); berr != nil {
		log.ModBus.DebugZ("bus error").Error("err", berr).End()
		return 0
	}
	addr &= addrMask
	switch w {
	case Byte:
		if r := b.region(addr); r != nil && !r.ro {
			r.mem[addr-r.start] = uint8(val)
		}
	case Word:
		b.write16(addr, uint16(val))
	default:
		b.write16(addr, uint16(val>>16))
		b.write16(addr+2, uint16(val))
	}
	return 0
}

// SampleIPL returns the aggregated interrupt priority level. The CPU core
// must call it only at instruction-boundary sample points.
func (b *Bus) SampleIPL() uint8 {
	if b.chain == nil {
		return 0
	}
	return b.chain.Level()
}

// Peek16 reads a word with no side effects (debugger, snapshots).
func (b *Bus) Peek16(addr uint32) uint16 {
	addr &= addrMask &^ 1
	if r := b.region(addr); r != nil {
		off := addr - r.start
		return uint16(r.mem[off])<<8 | uint16(r.mem[off+1])
	}
	if reg, ok := b.regs[addr]; ok {
		return reg.Peek16(addr)
	}
	return 0
}
