package hw

import "strings"

// Region selects the video standard the machine is clocked for.
type Region uint8

const (
	PAL Region = iota
	NTSC
)

func (r Region) String() string {
	if r == PAL {
		return "PAL"
	}
	return "NTSC"
}

// Crystal frequencies and derived cadences. Every component clock is an
// integer division of the crystal; the scheduler never sees anything else.
const (
	PALCrystalHz  = 28_375_160
	NTSCCrystalHz = 28_636_360

	PALFps  = 50
	NTSCFps = 60

	// Crystal ticks per derived clock.
	CPUDivisor  = 4  // 68k clock
	SlotDivisor = 8  // color clock, one DMA slot
	EDivisor    = 40 // peripheral timer clock
)

// Width of a bus access.
type Width uint8

const (
	Byte Width = 1
	Word Width = 2
	Long Width = 4
)

func (w Width) String() string {
	switch w {
	case Byte:
		return "byte"
	case Word:
		return "word"
	case Long:
		return "long"
	}
	return "bad-width"
}

// AccessKind discriminates bus transactions.
type AccessKind uint8

const (
	ReadAccess AccessKind = iota
	WriteAccess
)

func (k AccessKind) String() string {
	if k == ReadAccess {
		return "read"
	}
	return "write"
}

// BusRequest describes one bus transaction. Ephemeral: built and consumed
// within a single tick, never stored.
type BusRequest struct {
	Kind  AccessKind
	Addr  uint32
	Width Width
	From  Slot
	IsDMA bool
}

// SlotOwner is the closed set of possible bus owners for one slot.
//
//go:generate go tool stringer -type=SlotOwner -trimprefix=Owner
type SlotOwner uint8

const (
	OwnerNone SlotOwner = iota
	OwnerCPU
	OwnerRefresh
	OwnerBitplane
	OwnerCopper
	OwnerBlitter
	OwnerDisk
	OwnerAudio
	OwnerSprite

	numOwners
)

// Slot identifies a bus owner, with Index discriminating between units of
// the same class (bitplane number, audio channel, sprite number).
type Slot struct {
	Owner SlotOwner
	Index uint8
}

func (s Slot) String() string {
	var sb strings.Builder
	sb.WriteString(s.Owner.String())
	switch s.Owner {
	case OwnerBitplane, OwnerAudio, OwnerSprite:
		sb.WriteByte('0' + s.Index)
	}
	return sb.String()
}
