package hw

import (
	"github.com/arl/blip"

	"amber/emu/log"
)

// Audio drives the four audio DMA channels. Per channel, a period counter
// ticks at slot rate; every underflow emits the next byte of the buffered
// word, and an exhausted word arms a single-unit DMA fetch through the
// arbiter's audio slot. Sample *timing* is this core's job; synthesis and
// playback are not.
type Audio struct {
	arb   *Arbiter
	chain *Chain
	mixer *Mixer

	ch [numAudioChans]audioChannel
}

type audioChannel struct {
	// guest-programmed registers
	loc    uint32
	length uint16 // in words
	period uint16
	volume uint16

	// engine state
	ptr       uint32
	remaining uint16
	perCnt    uint16
	dat       uint16
	phase     uint8 // 0: high byte next, 1: low byte, 2: word exhausted
	active    bool
}

func NewAudio(arb *Arbiter, chain *Chain, mixer *Mixer) *Audio {
	a := &Audio{arb: arb, chain: chain, mixer: mixer}
	for i := range a.ch {
		a.deliverFor(i)
	}
	return a
}

// deliverFor wires the arbiter's audio channel delivery: words arrive on
// the channel's granted slot, one per fetch unit.
func (a *Audio) deliverFor(i int) {
	ch := a.arb.channel(Slot{Owner: OwnerAudio, Index: uint8(i)})
	ch.deliver = func(_ int, val uint16) {
		c := &a.ch[i]
		c.dat = val
		c.phase = 0
	}
}

// SetLocation, SetLength, SetPeriod and SetVolume back the AUDxLC/LEN/
// PER/VOL registers.
func (a *Audio) SetLocation(i int, addr uint32) { a.ch[i].loc = addr &^ 1 }
func (a *Audio) SetLength(i int, words uint16)  { a.ch[i].length = words }
func (a *Audio) SetPeriod(i int, per uint16)    { a.ch[i].period = per }
func (a *Audio) SetVolume(i int, vol uint16)    { a.ch[i].volume = vol & 0x7F }

// Enable starts or stops a channel when its DMA bit flips.
func (a *Audio) Enable(i int, on bool) {
	c := &a.ch[i]
	if on == c.active {
		return
	}
	c.active = on
	if !on {
		a.arb.Cancel(Slot{Owner: OwnerAudio, Index: uint8(i)})
		return
	}
	c.ptr = c.loc
	c.remaining = c.length
	c.perCnt = c.period
	c.phase = 2
	a.requestWord(i)
	log.ModAudio.DebugZ("channel start").
		Int("chan", i).
		Hex32("loc", c.loc).
		Uint64("words", uint64(c.length)).
		End()
}

func (a *Audio) requestWord(i int) {
	c := &a.ch[i]
	if c.remaining == 0 {
		// Buffer done: wrap to the start and flag the interrupt, the
		// looping behavior of the hardware channels.
		c.ptr = c.loc
		c.remaining = c.length
		a.chain.Raise(IntAud0 << uint(i))
	}
	a.arb.Request(Slot{Owner: OwnerAudio, Index: uint8(i)}, c.ptr, 1)
	c.ptr += 2
	if c.remaining > 0 {
		c.remaining--
	}
}

// SlotTick advances every active channel by one slot (color clock).
func (a *Audio) SlotTick() {
	for i := range a.ch {
		c := &a.ch[i]
		if !c.active || c.period == 0 {
			continue
		}
		if c.perCnt > 0 {
			c.perCnt--
			continue
		}
		c.perCnt = c.period
		a.emit(i)
	}
}

func (a *Audio) emit(i int) {
	c := &a.ch[i]
	var sample int8
	switch c.phase {
	case 0:
		sample = int8(c.dat >> 8)
		c.phase = 1
	case 1:
		sample = int8(c.dat)
		c.phase = 2
		a.requestWord(i)
	default:
		return // fetch not delivered yet; hold
	}
	if a.mixer != nil {
		a.mixer.Output(i, int16(sample)*int16(c.volume))
	}
}

func (a *Audio) reset() {
	for i := range a.ch {
		a.ch[i] = audioChannel{}
	}
}

// Mixer turns per-channel amplitude changes, stamped at slot-clock
// resolution, into band-limited deltas. Headless: samples are drained at
// frame end and handed to whoever cares, or dropped.
type Mixer struct {
	buf  *blip.Buffer
	time uint64 // slot clocks into the current frame

	current [numAudioChans]int16
	outbuf  []int16
}

const mixerMaxSamples = 4096

func NewMixer(slotHz, sampleHz float64) *Mixer {
	m := &Mixer{
		buf:    blip.NewBuffer(mixerMaxSamples),
		outbuf: make([]int16, mixerMaxSamples),
	}
	m.buf.SetRates(slotHz, sampleHz)
	return m
}

// Advance moves mixer time forward one slot clock.
func (m *Mixer) Advance() { m.time++ }

// Output records a channel's new output level at the current time.
func (m *Mixer) Output(ch int, level int16) {
	delta := int32(level) - int32(m.current[ch])
	if delta == 0 {
		return
	}
	m.current[ch] = level
	m.buf.AddDelta(m.time, delta)
}

// EndFrame closes the elapsed frame and returns the samples it produced.
// The returned slice is reused across frames.
func (m *Mixer) EndFrame() []int16 {
	m.buf.EndFrame(int(m.time))
	m.time = 0
	n := m.buf.ReadSamples(m.outbuf, len(m.outbuf), false)
	return m.outbuf[:n]
}

func (m *Mixer) Reset() {
	m.buf.Clear()
	m.time = 0
	m.current = [numAudioChans]int16{}
}
