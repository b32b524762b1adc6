package hw

import (
	"amber/emu/log"
	"amber/hw/hwio"
)

// DMACON enable bits. Writes use the set/clear strobe convention
// (hwio.SetClr): bit 15 selects set or clear of the remaining bits.
const (
	DMAAud0   = 1 << 0
	DMAAud1   = 1 << 1
	DMAAud2   = 1 << 2
	DMAAud3   = 1 << 3
	DMADisk   = 1 << 4
	DMASprite = 1 << 5
	DMABlit   = 1 << 6
	DMACopper = 1 << 7
	DMABitpl  = 1 << 8
	DMAMaster = 1 << 9
)

// DMAControl is the shared DMA enable register. Single writer per tick:
// guest software through the bus, nothing else.
type DMAControl struct {
	DMACON hwio.Reg16

	// onChange observes decoded enable-mask transitions (the machine uses
	// it to start/stop audio channels).
	onChange func(old, new uint16)
}

func (dc *DMAControl) init() {
	dc.DMACON = hwio.Reg16{Name: "DMACON"}
	dc.DMACON.WriteCb = func(old, val uint16) {
		// Bus writes carry the raw strobe word; decode it into the
		// stored enable mask.
		dc.DMACON.Value = hwio.SetClr(old, val)
		log.ModDMA.DebugZ("DMACON").Hex16("old", old).Hex16("new", dc.DMACON.Value).End()
		if dc.onChange != nil {
			dc.onChange(old, dc.DMACON.Value)
		}
	}
}

func (dc *DMAControl) reset() { dc.DMACON.Value = 0 }

// enabled reports whether a channel class is enabled, honoring the master
// enable bit.
func (dc *DMAControl) enabled(owner SlotOwner, index uint8) bool {
	v := dc.DMACON.Value
	if v&DMAMaster == 0 {
		return false
	}
	switch owner {
	case OwnerRefresh:
		return true // refresh is not software-maskable
	case OwnerAudio:
		return hwio.GetBit16(v, uint(index))
	case OwnerDisk:
		return v&DMADisk != 0
	case OwnerSprite:
		return v&DMASprite != 0
	case OwnerBlitter:
		return v&DMABlit != 0
	case OwnerCopper:
		return v&DMACopper != 0
	case OwnerBitplane:
		return v&DMABitpl != 0
	}
	return false
}

type chanState uint8

const (
	chanIdle chanState = iota
	chanRequesting
	chanGranted
	chanFetching
)

func (s chanState) String() string {
	switch s {
	case chanIdle:
		return "idle"
	case chanRequesting:
		return "requesting"
	case chanGranted:
		return "granted"
	case chanFetching:
		return "fetching"
	}
	return "bad-state"
}

// dmaChannel is the per-channel fetch state machine:
// idle -> requesting -> granted -> fetching(k) -> idle.
// A multi-unit fetch is spread over as many slots as it has units; granting
// a whole burst within a single slot is exactly the bug class this machine
// exists to prevent.
type dmaChannel struct {
	slot    Slot
	state   chanState
	ptr     uint32
	pending int
	unit    int
	deliver func(unit int, val uint16)
	done    func()
}

// request arms the channel for a fetch of units words starting at ptr.
func (ch *dmaChannel) request(ptr uint32, units int) {
	ch.ptr = ptr
	ch.pending = units
	ch.unit = 0
	ch.state = chanRequesting
}

func (ch *dmaChannel) cancel() {
	ch.state = chanIdle
	ch.pending = 0
	ch.unit = 0
}

// fetchOne performs exactly one fetch unit on a granted slot.
func (ch *dmaChannel) fetchOne(bus *Bus) {
	ch.state = chanGranted

	val, berr := bus.dmaRead16(ch.ptr)
	if berr != nil {
		log.ModDMA.WarnZ("DMA fetch fault").
			Stringer("channel", ch.slot).
			Error("err", berr).
			End()
	}
	if ch.deliver != nil {
		ch.deliver(ch.unit, val)
	}
	ch.ptr += 2
	ch.unit++
	ch.pending--

	if ch.pending > 0 {
		ch.state = chanFetching
		return
	}
	ch.state = chanIdle
	if ch.done != nil {
		ch.done()
	}
}

// Designated slot windows by beam position. The table is a pure function
// of hpos; sprites own two consecutive slots each, bitplanes one plane per
// slot inside the display fetch window.
const (
	refreshSlots   = 4
	diskSlotFirst  = 4
	diskSlots      = 3
	audioSlotFirst = diskSlotFirst + diskSlots // 7
	numAudioChans  = 4
	sprSlotFirst   = audioSlotFirst + numAudioChans // 11
	numSprites     = 8
	sprSlotsEach   = 2

	bplFetchStart = 0x38
	bplFetchEnd   = 0xD8
	maxBitplanes  = 6

	displayStartLine = 0x2C
	displayLines     = 200
)

// bitplane fetch order within each 8-slot group of the display window; -1
// marks slots left free for copper/blitter/CPU.
var bplSlotOrder = [8]int8{-1, 3, 5, 1, -1, 2, 4, 0}

// designee returns the designated owner of a slot, before priority
// resolution. OwnerNone means the slot is free for copper, blitter or CPU.
func designee(beam *Beam, numPlanes int) Slot {
	h := beam.HPos()
	switch {
	case h < refreshSlots:
		return Slot{Owner: OwnerRefresh, Index: uint8(h)}
	case h < audioSlotFirst:
		return Slot{Owner: OwnerDisk}
	case h < sprSlotFirst:
		return Slot{Owner: OwnerAudio, Index: uint8(h - audioSlotFirst)}
	case h < sprSlotFirst+numSprites*sprSlotsEach:
		return Slot{Owner: OwnerSprite, Index: uint8(h-sprSlotFirst) / sprSlotsEach}
	}

	v := beam.VPos()
	if v >= displayStartLine && v < displayStartLine+displayLines &&
		h >= bplFetchStart && h < bplFetchEnd {
		plane := bplSlotOrder[(h-bplFetchStart)%8]
		if plane >= 0 && int(plane) < numPlanes {
			return Slot{Owner: OwnerBitplane, Index: uint8(plane)}
		}
	}
	return Slot{Owner: OwnerNone}
}
