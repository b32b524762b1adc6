package hw

import (
	"fmt"
	"testing"
)

/* general testing helpers */

func tcheck(tb testing.TB, err error) {
	if err == nil {
		return
	}

	tb.Helper()
	tb.Fatalf("fatal error:\n\n%s\n", err)
}

func tcheckf(tb testing.TB, err error, format string, args ...any) {
	if err == nil {
		return
	}

	tb.Helper()
	tb.Fatalf("fatal error:\n\n%s: %s\n", fmt.Sprintf(format, args...), err)
}

// newTestMachine builds a small, fast machine: tiny crystal, 64K of chip
// RAM, no mixer.
func newTestMachine(tb testing.TB) *Machine {
	tb.Helper()
	m, err := NewMachine(Config{
		Region:    PAL,
		CrystalHz: 1_000_000,
		FPS:       50,
		ChipRAM:   64 * 1024,
	}, nil)
	tcheck(tb, err)
	return m
}

// pokeWord writes a big-endian word directly into chip RAM.
func pokeWord(m *Machine, addr uint32, val uint16) {
	m.chipRAM[addr] = uint8(val >> 8)
	m.chipRAM[addr+1] = uint8(val)
}
