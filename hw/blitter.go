package hw

import (
	"amber/emu/log"
)

// Blitter is modeled as a pure bus consumer: once started it fetches its
// programmed number of words, one per granted slot, then raises the
// blitter-done interrupt. Pixel logic lives outside this core.
type Blitter struct {
	bus   *Bus
	chain *Chain

	src       uint32
	remaining int
	busy      bool
}

func NewBlitter(bus *Bus, chain *Chain) *Blitter {
	return &Blitter{bus: bus, chain: chain}
}

// Start programs a transfer of words starting at src. A size of zero is
// the hardware maximum, not a no-op.
func (bl *Blitter) Start(src uint32, words int) {
	if words <= 0 {
		words = 1024 * 64
	}
	bl.src = src &^ 1
	bl.remaining = words
	bl.busy = true
	log.ModDMA.DebugZ("blit start").Hex32("src", bl.src).Int("words", words).End()
}

func (bl *Blitter) Busy() bool { return bl.busy }

func (bl *Blitter) wantsSlot() bool { return bl.busy }

func (bl *Blitter) useSlot() {
	_, berr := bl.bus.dmaRead16(bl.src)
	if berr != nil {
		log.ModDMA.WarnZ("blit fetch fault").Error("err", berr).End()
	}
	bl.src += 2
	bl.remaining--
	if bl.remaining > 0 {
		return
	}
	bl.busy = false
	bl.chain.Raise(IntBlit)
	log.ModDMA.DebugZ("blit done").End()
}

func (bl *Blitter) reset() {
	bl.src = 0
	bl.remaining = 0
	bl.busy = false
}
