package hw

import (
	"amber/emu/log"
)

type copperState uint8

const (
	CopIdle copperState = iota
	CopFetch
	CopMove
	CopWait
	CopSkip
)

func (s copperState) String() string {
	switch s {
	case CopIdle:
		return "idle"
	case CopFetch:
		return "fetch"
	case CopMove:
		return "move"
	case CopWait:
		return "wait"
	case CopSkip:
		return "skip"
	}
	return "bad-state"
}

// Copper is the list-driven coprocessor. It competes for the bus under the
// same fixed-priority slot rule as any DMA channel: one word of work per
// granted slot. A blocked copper is not suspended anywhere, it simply
// declines its slot until the beam predicate holds, re-checked every slot.
type Copper struct {
	bus  *Bus
	beam *Beam

	// base of the custom register space, the only place MOVE can write
	regBase uint32

	start uint32 // restart-list address (COP1LC)
	pc    uint32

	state    copperState
	fetchIdx int
	ir1, ir2 uint16

	waitVP, waitHP       uint8
	waitVMask, waitHMask uint8

	blocked  bool
	skipNext bool
}

func NewCopper(bus *Bus, beam *Beam, regBase uint32) *Copper {
	return &Copper{bus: bus, beam: beam, regBase: regBase}
}

// SetStart latches the restart-list address. Takes effect at the next
// restart strobe, like the hardware pointer registers.
func (c *Copper) SetStart(addr uint32) {
	c.start = addr &^ 1
}

func (c *Copper) PC() uint32         { return c.pc }
func (c *Copper) State() copperState { return c.state }
func (c *Copper) Blocked() bool      { return c.blocked }

// Reset is the machine reset strobe: Idle with a cleared program counter.
func (c *Copper) Reset() {
	c.state = CopIdle
	c.pc = 0
	c.start = 0
	c.fetchIdx = 0
	c.blocked = false
	c.skipNext = false
}

// RestartList is the per-frame strobe: the list restarts from its latched
// address at the top of every frame.
func (c *Copper) RestartList() {
	c.pc = c.start
	c.state = CopFetch
	c.fetchIdx = 0
	c.blocked = false
	c.skipNext = false
	log.ModCopper.DebugZ("restart list").Hex32("pc", c.pc).End()
}

// pollBlocked re-evaluates the WAIT predicate. Called every slot tick;
// costs a compare, not a bus slot.
func (c *Copper) pollBlocked() {
	if !c.blocked {
		return
	}
	if c.beam.Reached(c.waitVP, c.waitHP, c.waitVMask, c.waitHMask) {
		c.blocked = false
		c.state = CopFetch
		log.ModCopper.DebugZ("wait satisfied").
			Hex32("pc", c.pc).
			Int("vpos", int(c.beam.VPos())).
			Int("hpos", int(c.beam.HPos())).
			End()
	}
}

// wantsSlot reports whether the copper competes for the current slot.
func (c *Copper) wantsSlot() bool {
	return c.state != CopIdle && !c.blocked
}

// useSlot runs one granted slot's worth of work.
func (c *Copper) useSlot() {
	switch c.state {
	case CopFetch:
		c.fetchWord()
	case CopMove:
		c.execMove()
	case CopWait:
		c.execWait()
	case CopSkip:
		c.execSkip()
	}
}

func (c *Copper) fetchWord() {
	val, berr := c.bus.dmaRead16(c.pc)
	if berr != nil {
		// Running past the end of the list region is an ordinary
		// out-of-bounds access: same contract, open-bus data.
		log.ModCopper.WarnZ("list fetch fault").Error("err", berr).End()
	}
	c.pc += 2

	if c.fetchIdx == 0 {
		c.ir1 = val
		c.fetchIdx = 1
		return
	}
	c.ir2 = val
	c.fetchIdx = 0

	if c.skipNext {
		c.skipNext = false
		return // discarded; keep fetching
	}

	if c.ir1&1 == 0 {
		c.state = CopMove
		return
	}
	c.waitVP = uint8(c.ir1 >> 8)
	c.waitHP = uint8(c.ir1&0xFE) >> 1
	c.waitVMask = uint8(c.ir2>>8) | 0x80
	c.waitHMask = uint8(c.ir2&0xFE) >> 1
	if c.ir2&1 == 0 {
		c.state = CopWait
	} else {
		c.state = CopSkip
	}
}

func (c *Copper) execMove() {
	addr := c.regBase + uint32(c.ir1&0x1FE)
	c.bus.write16(addr, c.ir2)
	log.ModCopper.DebugZ("move").Hex32("addr", addr).Hex16("val", c.ir2).End()
	c.state = CopFetch
}

func (c *Copper) execWait() {
	// A target already passed resumes on this very evaluation tick;
	// anything else would deadlock the list until the next frame.
	if c.beam.Reached(c.waitVP, c.waitHP, c.waitVMask, c.waitHMask) {
		c.state = CopFetch
		return
	}
	c.blocked = true
	c.state = CopWait
}

func (c *Copper) execSkip() {
	c.skipNext = c.beam.Reached(c.waitVP, c.waitHP, c.waitVMask, c.waitHMask)
	c.state = CopFetch
}
