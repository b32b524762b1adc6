// Package snapshot holds the flat state structs and the codec behind
// save states. A blob is complete: restoring it and ticking resumes
// bit-for-bit, which the regression harness depends on.
package snapshot

const Version = 1

type Machine struct {
	Version int
	Tick    uint64
	Frame   uint64
	Pacer   uint64

	Beam     Beam
	DMACON   uint16
	Channels []Channel // disk, audio 0-3, sprites 0-7, in that order
	BplPtr   [6]uint32
	NumBpl   int

	Copper  Copper
	Blitter Blitter
	Chain   Chain
	Timers  [2]Timer
	Audio   [4]AudioChannel

	ChipRAM []byte
}

type Beam struct {
	HPos     uint16
	VPos     uint16
	LineLen  uint16
	LongLine bool
}

type Channel struct {
	State   uint8
	Ptr     uint32
	Pending int
	Unit    int
}

type Copper struct {
	Start    uint32
	PC       uint32
	State    uint8
	FetchIdx int
	IR1      uint16
	IR2      uint16

	WaitVP    uint8
	WaitHP    uint8
	WaitVMask uint8
	WaitHMask uint8

	Blocked  bool
	SkipNext bool
}

type Blitter struct {
	Src       uint32
	Remaining int
	Busy      bool
}

type Chain struct {
	INTENA uint16
	INTREQ uint16
	Level  uint8
}

type Timer struct {
	Latch   uint16
	Counter uint16
	Running bool
	OneShot bool
}

type AudioChannel struct {
	Loc    uint32
	Length uint16
	Period uint16
	Volume uint16

	Ptr       uint32
	Remaining uint16
	PerCnt    uint16
	Dat       uint16
	Phase     uint8
	Active    bool
}
