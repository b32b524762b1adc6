package hw

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"amber/hw/snapshot"
)

// bootPokes programs a machine through the bus the way guest software
// would: a copper list, a small blit, one audio channel, DMA on.
func bootPokes(tb testing.TB, m *Machine) {
	tb.Helper()

	copList(m, 0x2000,
		0x009A, 0xC020, // MOVE INTENA: set master + vertb
		0x2001, 0xFFFE, // WAIT line 0x20
		0x0096, 0x8020, // MOVE DMACON: set sprite enable
		0xFFFF, 0xFFFE, // end of list
	)
	for i := uint32(0); i < 16; i++ {
		pokeWord(m, 0x3000+2*i, uint16(0x0100*i+i))
	}

	b := m.Bus
	b.Write(RegBase+regCOP1LCH, Word, 0x00)
	b.Write(RegBase+regCOP1LCL, Word, 0x2000)
	b.Write(RegBase+regCOPJMP1, Word, 0)

	b.Write(RegBase+regAUDBase+2, Word, 0x3000) // AUD0LCL
	b.Write(RegBase+regAUDBase+4, Word, 16)     // AUD0LEN
	b.Write(RegBase+regAUDBase+6, Word, 0x80)   // AUD0PER
	b.Write(RegBase+regAUDBase+8, Word, 0x40)   // AUD0VOL

	b.Write(RegBase+regBLTAPTL, Word, 0x3000)
	b.Write(RegBase+regBLTSIZE, Word, 1<<6|8)

	b.Write(RegBase+regDMACON, Word, 0x8000|DMAMaster|DMACopper|DMABlit|DMAAud0)
}

func TestRunFrameDeterminism(t *testing.T) {
	run := func() []byte {
		m := newTestMachine(t)
		bootPokes(t, m)
		m.RunFrames(3)
		return m.SaveSnapshot()
	}

	a, b := run(), run()
	if !bytes.Equal(a, b) {
		sa, err := snapshot.Decode(a)
		tcheck(t, err)
		sb, err := snapshot.Decode(b)
		tcheck(t, err)
		t.Errorf("identical runs diverged:\n%s", cmp.Diff(sa, sb))
	}
}

func TestSnapshotResume(t *testing.T) {
	m1 := newTestMachine(t)
	bootPokes(t, m1)
	m1.RunFrames(2)

	blob := m1.SaveSnapshot()

	m2 := newTestMachine(t)
	tcheck(t, m2.LoadSnapshot(blob))
	if !bytes.Equal(m2.SaveSnapshot(), blob) {
		t.Fatal("restored state does not round-trip")
	}

	// Both machines must now tick in lockstep.
	m1.RunFrames(1)
	m2.RunFrames(1)
	a, b := m1.SaveSnapshot(), m2.SaveSnapshot()
	if !bytes.Equal(a, b) {
		sa, err := snapshot.Decode(a)
		tcheck(t, err)
		sb, err := snapshot.Decode(b)
		tcheck(t, err)
		t.Errorf("resumed machine diverged:\n%s", cmp.Diff(sa, sb))
	}
}

func TestSnapshotMismatch(t *testing.T) {
	m := newTestMachine(t)

	bad := &snapshot.Machine{Version: 99}
	if err := m.LoadSnapshot(snapshot.Encode(bad)); err == nil {
		t.Error("version mismatch accepted")
	}

	bad = &snapshot.Machine{Version: snapshot.Version, ChipRAM: make([]byte, 16)}
	if err := m.LoadSnapshot(snapshot.Encode(bad)); err == nil {
		t.Error("chip RAM size mismatch accepted")
	}

	if err := m.LoadSnapshot([]byte("not json")); err == nil {
		t.Error("garbage blob accepted")
	}
}

func TestResetStrobe(t *testing.T) {
	m := newTestMachine(t)
	bootPokes(t, m)
	m.RunFrames(1)

	m.Reset()

	if m.Clock.Tick() != 0 || m.Frame() != 0 {
		t.Errorf("clock not reset: tick %d frame %d", m.Clock.Tick(), m.Frame())
	}
	if m.Beam.HPos() != 0 || m.Beam.VPos() != 0 {
		t.Errorf("beam not reset: (%d, %d)", m.Beam.VPos(), m.Beam.HPos())
	}
	if m.Arb.Ctl.DMACON.Value != 0 {
		t.Errorf("DMACON not reset: %04x", m.Arb.Ctl.DMACON.Value)
	}
	if m.Chain.INTENA.Value != 0 || m.Chain.INTREQ.Value != 0 || m.Chain.Level() != 0 {
		t.Error("interrupt chain not reset")
	}
	if m.Copper.State() != CopIdle || m.Copper.PC() != 0 {
		t.Error("copper not reset")
	}
	if m.Blitter.Busy() {
		t.Error("blitter not reset")
	}
	if m.TimerA.Running() || m.TimerB.Running() {
		t.Error("timers not reset")
	}

	m.Arb.eachChannel(func(ch *dmaChannel) {
		if ch.state != chanIdle {
			t.Errorf("channel %v not reset: %v", ch.slot, ch.state)
		}
	})
}

func TestVerticalBlankInterrupt(t *testing.T) {
	m := newTestMachine(t)
	m.Chain.INTENA.Value = uint16(IntMaster | IntVertB)

	// Slot ticks to complete one beam frame, plus the scheduler divisor.
	slots := palSlotsPerLine * palLines
	for i := 0; i < slots*int(SlotDivisor)+int(SlotDivisor); i++ {
		m.Tick()
	}
	if !m.Chain.Pending(IntVertB) {
		t.Error("no vertical blank interrupt after a full beam frame")
	}
	if m.Bus.SampleIPL() != 3 {
		t.Errorf("IPL %d, want 3", m.Bus.SampleIPL())
	}
}

func TestDMAMasterGate(t *testing.T) {
	m := newTestMachine(t)
	dc := &m.Arb.Ctl

	dc.DMACON.Value = DMADisk // no master bit
	if dc.enabled(OwnerDisk, 0) {
		t.Error("channel enabled without master bit")
	}
	dc.DMACON.Value = DMAMaster | DMADisk
	if !dc.enabled(OwnerDisk, 0) {
		t.Error("channel disabled with master bit")
	}
	if dc.enabled(OwnerCopper, 0) {
		t.Error("copper enabled without its bit")
	}
}
