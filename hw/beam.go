package hw

// Beam tracks the video controller's scan position. It advances once per
// DMA slot (color clock) and is the timing reference for copper WAIT/SKIP
// and for the arbiter's slot windows.
//
// PAL lines are a constant 227 slots. NTSC lines alternate 227 and 228
// slots to absorb the half color clock per line, the same integer remainder
// trick the frame pacer uses.
type Beam struct {
	region Region

	hpos uint16
	vpos uint16

	lineLen  uint16
	longLine bool
}

const (
	palSlotsPerLine = 227
	palLines        = 312

	ntscShortLine = 227
	ntscLines     = 262
)

func NewBeam(region Region) *Beam {
	b := &Beam{region: region}
	b.Reset()
	return b
}

func (b *Beam) HPos() uint16 { return b.hpos }
func (b *Beam) VPos() uint16 { return b.vpos }

// Lines returns the number of scanlines per frame.
func (b *Beam) Lines() uint16 {
	if b.region == PAL {
		return palLines
	}
	return ntscLines
}

func (b *Beam) Reset() {
	b.hpos = 0
	b.vpos = 0
	b.longLine = false
	b.lineLen = b.nextLineLen()
}

func (b *Beam) nextLineLen() uint16 {
	if b.region == PAL {
		return palSlotsPerLine
	}
	b.longLine = !b.longLine
	if b.longLine {
		return ntscShortLine + 1
	}
	return ntscShortLine
}

// Advance moves the beam one slot. It returns true when the beam wraps to
// the top of a new frame (the vertical-blank strobe point).
func (b *Beam) Advance() (newFrame bool) {
	b.hpos++
	if b.hpos < b.lineLen {
		return false
	}
	b.hpos = 0
	b.lineLen = b.nextLineLen()
	b.vpos++
	if b.vpos < b.Lines() {
		return false
	}
	b.vpos = 0
	return true
}

// Reached reports whether the beam is at or past the (vp, hp) target under
// the given comparison masks. This is the copper WAIT/SKIP predicate:
// vertical position dominates, horizontal breaks ties.
func (b *Beam) Reached(vp, hp, vmask, hmask uint8) bool {
	cv := uint8(b.vpos) & vmask
	ch := uint8(b.hpos>>1) & hmask // copper sees hpos at 2-slot granularity
	tv := vp & vmask
	th := hp & hmask

	if cv != tv {
		return cv > tv
	}
	return ch >= th
}
