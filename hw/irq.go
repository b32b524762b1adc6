package hw

import (
	"strings"

	"amber/emu/log"
	"amber/hw/hwio"
)

// IRQSource is one bit in the shared pending/enable registers.
type IRQSource uint16

const (
	IntTBE    IRQSource = 1 << 0 // serial transmit buffer empty
	IntDskBlk IRQSource = 1 << 1 // disk block done
	IntSoft   IRQSource = 1 << 2 // software interrupt
	IntPorts  IRQSource = 1 << 3 // peripheral timers / external ports
	IntCoper  IRQSource = 1 << 4 // copper
	IntVertB  IRQSource = 1 << 5 // start of vertical blank
	IntBlit   IRQSource = 1 << 6 // blitter finished
	IntAud0   IRQSource = 1 << 7
	IntAud1   IRQSource = 1 << 8
	IntAud2   IRQSource = 1 << 9
	IntAud3   IRQSource = 1 << 10
	IntRBF    IRQSource = 1 << 11 // serial receive buffer full
	IntDskSyn IRQSource = 1 << 12 // disk sync word seen
	IntExter  IRQSource = 1 << 13 // external interrupt line

	// Enable-register-only master switch; never a pending bit.
	IntMaster IRQSource = 1 << 14

	numIRQSources = 14
)

var irqSrcNames = [numIRQSources]string{
	"tbe", "dskblk", "soft", "ports", "coper", "vertb", "blit",
	"aud0", "aud1", "aud2", "aud3", "rbf", "dsksyn", "exter",
}

func (src IRQSource) String() string {
	var names []string
	for i := range numIRQSources {
		if hwio.GetBit16(uint16(src), uint(i)) {
			names = append(names, irqSrcNames[i])
		}
	}
	return strings.Join(names, "|")
}

// iplOf maps each source bit to its priority level.
var iplOf = [numIRQSources]uint8{
	1, 1, 1, // tbe, dskblk, soft
	2,       // ports
	3, 3, 3, // coper, vertb, blit
	4, 4, 4, 4, // aud0..aud3
	5, 5, // rbf, dsksyn
	6, // exter
}

// EncodeIPL is the aggregate priority encoder, a pure function of
// (pending, enable). Level 0 means no interrupt; level 7 (NMI) is owned by
// an external line, never by these registers.
func EncodeIPL(pending, enable uint16) uint8 {
	if enable&uint16(IntMaster) == 0 {
		return 0
	}
	active := pending & enable & (uint16(IntMaster) - 1)
	level := uint8(0)
	for i := range numIRQSources {
		if hwio.GetBit16(active, uint(i)) && iplOf[i] > level {
			level = iplOf[i]
		}
	}
	return level
}

// Chain aggregates pending bits from every peripheral into the priority
// level the CPU samples. Both registers use the set/clear strobe write
// convention. Peripherals raise bits only through Raise; nothing in the
// chain ever calls into the CPU.
type Chain struct {
	INTENA hwio.Reg16
	INTREQ hwio.Reg16

	// level is the committed aggregate, recomputed after all peripherals
	// have run for a tick. The CPU sees a bit raised during tick T no
	// earlier than its sample point in tick T+1; that one-tick delay is
	// intentional and load-bearing for cycle parity.
	level uint8
}

func NewChain() *Chain {
	c := &Chain{}
	c.INTENA = hwio.Reg16{Name: "INTENA"}
	c.INTENA.WriteCb = func(old, val uint16) {
		c.INTENA.Value = hwio.SetClr(old, val)
	}
	c.INTREQ = hwio.Reg16{Name: "INTREQ"}
	c.INTREQ.WriteCb = func(old, val uint16) {
		c.INTREQ.Value = hwio.SetClr(old, val)
	}
	return c
}

// Raise sets a pending bit. Lifecycle per source:
// Clear -> (event) -> PendingUnacknowledged -> (software clear) -> Clear.
func (c *Chain) Raise(src IRQSource) {
	c.INTREQ.Value |= uint16(src)
	log.ModIrq.DebugZ("raise").Stringer("src", src).End()
}

// Pending reports whether a source bit is currently pending.
func (c *Chain) Pending(src IRQSource) bool {
	return c.INTREQ.Value&uint16(src) != 0
}

// Commit recomputes the aggregate level from the registers. The machine
// calls it once per tick after every peripheral has executed; a bit set
// and cleared within the same tick is legitimately missed, and the fixed
// commit phase keeps that race reproducible.
func (c *Chain) Commit() {
	level := EncodeIPL(c.INTREQ.Value, c.INTENA.Value)
	if level != c.level {
		log.ModIrq.DebugZ("level change").
			Int("old", int(c.level)).
			Int("new", int(level)).
			End()
	}
	c.level = level
}

// Level returns the committed priority level, 0..7.
func (c *Chain) Level() uint8 { return c.level }

func (c *Chain) reset() {
	c.INTENA.Value = 0
	c.INTREQ.Value = 0
	c.level = 0
}
