package hw

import "testing"

// copList assembles instruction words at addr in chip RAM.
func copList(m *Machine, addr uint32, words ...uint16) {
	for i, w := range words {
		pokeWord(m, addr+uint32(2*i), w)
	}
}

// runSlots drives the machine at slot granularity, the way slotTick does,
// without the full scheduler around it.
func runSlots(m *Machine, n int) {
	for range n {
		m.Copper.pollBlocked()
		m.Arb.RunSlot()
		m.Beam.Advance()
	}
}

func TestCopperMoveWaitMove(t *testing.T) {
	m := newTestMachine(t)

	copList(m, 0x2000,
		0x009A, 0xC008, // MOVE INTENA: set master + ports
		0x0101, 0xFFFE, // WAIT line 1
		0x009A, 0x0008, // MOVE INTENA: clear ports
		0xFFFF, 0xFFFE, // end of list
	)
	m.Arb.Ctl.DMACON.Value = DMAMaster | DMACopper
	m.Copper.SetStart(0x2000)
	m.Copper.RestartList()

	// Run line 0: the first MOVE lands, then the WAIT blocks.
	runSlots(m, palSlotsPerLine)
	if m.Chain.INTENA.Value != 0x4008 {
		t.Errorf("INTENA after line 0: %04x, want 4008", m.Chain.INTENA.Value)
	}
	if !m.Copper.Blocked() {
		t.Error("copper not blocked on WAIT")
	}

	// Line 1 satisfies the WAIT; the second MOVE clears the bit.
	runSlots(m, palSlotsPerLine)
	if m.Chain.INTENA.Value != 0x4000 {
		t.Errorf("INTENA after line 1: %04x, want 4000", m.Chain.INTENA.Value)
	}
}

func TestCopperWaitAlreadyPassed(t *testing.T) {
	m := newTestMachine(t)

	copList(m, 0x2000,
		0x0201, 0xFFFE, // WAIT line 2
		0x009A, 0xC008, // MOVE INTENA: set master + ports
	)
	m.Arb.Ctl.DMACON.Value = DMAMaster | DMACopper
	m.Copper.SetStart(0x2000)
	m.Copper.RestartList()

	// The beam is already past the target: the WAIT must resume on its
	// own evaluation tick, not deadlock until the next frame.
	m.Beam.vpos = 5
	runSlots(m, 16)
	if m.Copper.Blocked() {
		t.Fatal("copper blocked on an already-passed target")
	}
	if m.Chain.INTENA.Value != 0x4008 {
		t.Errorf("INTENA: %04x, want 4008", m.Chain.INTENA.Value)
	}
}

func TestCopperWaitResumeSlot(t *testing.T) {
	m := newTestMachine(t)

	copList(m, 0x2000,
		0x0301, 0xFFFE, // WAIT line 3
		0xFFFF, 0xFFFE, // end of list
	)
	m.Arb.Ctl.DMACON.Value = DMAMaster | DMACopper
	m.Copper.SetStart(0x2000)
	m.Copper.RestartList()

	// Find the exact slot where the copper unblocks.
	blocked := false
	for i := 0; i < 4*palSlotsPerLine; i++ {
		m.Copper.pollBlocked()
		if blocked && !m.Copper.Blocked() {
			if m.Beam.VPos() != 3 || m.Beam.HPos() != 0 {
				t.Fatalf("unblocked at (%d, %d), want (3, 0)", m.Beam.VPos(), m.Beam.HPos())
			}
			return
		}
		blocked = m.Copper.Blocked()
		m.Arb.RunSlot()
		m.Beam.Advance()
	}
	t.Fatal("copper never unblocked")
}

func TestCopperSkip(t *testing.T) {
	m := newTestMachine(t)

	copList(m, 0x2000,
		0x0001, 0xFFFF, // SKIP (0,0): beam already past, skip next
		0x009A, 0xC008, // MOVE INTENA set ports (skipped)
		0x009A, 0xC010, // MOVE INTENA set coper
		0xFFFF, 0xFFFE, // end of list
	)
	m.Arb.Ctl.DMACON.Value = DMAMaster | DMACopper
	m.Copper.SetStart(0x2000)
	m.Copper.RestartList()
	m.Beam.hpos = 2

	runSlots(m, 32)
	if m.Chain.INTENA.Value != 0x4010 {
		t.Errorf("INTENA: %04x, want 4010 (first MOVE skipped)", m.Chain.INTENA.Value)
	}
}

func TestCopperRestartAndReset(t *testing.T) {
	m := newTestMachine(t)
	c := m.Copper

	c.SetStart(0x2001) // odd address is forced even
	c.RestartList()
	if c.PC() != 0x2000 {
		t.Errorf("pc after restart: %06x", c.PC())
	}
	if c.State() != CopFetch {
		t.Errorf("state after restart: %v", c.State())
	}

	c.Reset()
	if c.State() != CopIdle || c.PC() != 0 {
		t.Errorf("reset left state %v pc %06x", c.State(), c.PC())
	}
	if c.wantsSlot() {
		t.Error("idle copper competes for slots")
	}
}

func TestCopperFetchFault(t *testing.T) {
	m := newTestMachine(t)
	c := m.Copper

	// List pointer into unmapped space: fetches fault as ordinary bus
	// errors and the copper keeps running on open-bus data.
	c.SetStart(0x800000)
	c.RestartList()
	c.useSlot()
	c.useSlot()
	if c.PC() != 0x800004 {
		t.Errorf("pc after faulting fetches: %06x", c.PC())
	}
	if c.State() != CopMove { // open bus decodes as MOVE to register 0
		t.Errorf("state: %v", c.State())
	}
	c.useSlot() // the MOVE itself hits open register space
	if c.State() != CopFetch {
		t.Errorf("state after move: %v", c.State())
	}
}
