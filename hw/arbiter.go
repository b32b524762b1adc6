package hw

import (
	"amber/emu/log"
)

// Arbiter owns the bus for arbitration purposes: it decides, per slot,
// the single requester allowed on the bus and the wait states the CPU
// eats when it loses. All outputs are total functions of current state;
// there is no fatal path reachable from the guest.
type Arbiter struct {
	clk  *MasterClock
	beam *Beam
	bus  *Bus

	Ctl DMAControl

	disk   dmaChannel
	audio  [numAudioChans]dmaChannel
	sprite [numSprites]dmaChannel

	copper  *Copper
	blitter *Blitter

	numPlanes int
	bplPtr    [maxBitplanes]uint32

	costs [numOwners]int

	// Slot bookkeeping, reset at each slot boundary.
	cur     Slot
	granted bool
}

func NewArbiter(clk *MasterClock, beam *Beam, bus *Bus) *Arbiter {
	a := &Arbiter{clk: clk, beam: beam, bus: bus}
	a.Ctl.init()

	a.disk.slot = Slot{Owner: OwnerDisk}
	for i := range a.audio {
		a.audio[i].slot = Slot{Owner: OwnerAudio, Index: uint8(i)}
	}
	for i := range a.sprite {
		a.sprite[i].slot = Slot{Owner: OwnerSprite, Index: uint8(i)}
	}
	for i := range a.costs {
		a.costs[i] = 1
	}
	return a
}

// SetContentionCost sets the CPU wait-state count charged when the CPU
// loses the slot to the given owner class. Costs are configuration, to be
// calibrated against reference hardware traces.
func (a *Arbiter) SetContentionCost(owner SlotOwner, ticks int) {
	if ticks < 1 {
		ticks = 1
	}
	a.costs[owner] = ticks
}

// SetNumBitplanes fixes how many bitplane channels fetch during the
// display window.
func (a *Arbiter) SetNumBitplanes(n int) {
	if n < 0 {
		n = 0
	}
	if n > maxBitplanes {
		n = maxBitplanes
	}
	a.numPlanes = n
}

// SetBitplanePtr points a bitplane channel's fetch pointer.
func (a *Arbiter) SetBitplanePtr(plane int, ptr uint32) {
	if plane >= 0 && plane < maxBitplanes {
		a.bplPtr[plane] = ptr
	}
}

func (a *Arbiter) attach(c *Copper, b *Blitter) {
	a.copper = c
	a.blitter = b
}

// Owner returns the owner of the current slot so far. OwnerNone means the
// slot is still up for grabs by the CPU.
func (a *Arbiter) Owner() Slot { return a.cur }

// Request arms a DMA channel for a fetch of units words starting at ptr.
// A request against a disabled or nonexistent channel resolves to
// OwnerNone and is dropped; the CPU proceeds that tick.
func (a *Arbiter) Request(s Slot, ptr uint32, units int) SlotOwner {
	ch := a.channel(s)
	if ch == nil || !a.Ctl.enabled(s.Owner, s.Index) {
		log.ModDMA.DebugZ("request dropped").
			Stringer("channel", s).
			Bool("enabled", ch != nil && a.Ctl.enabled(s.Owner, s.Index)).
			End()
		return OwnerNone
	}
	ch.request(ptr, units)
	return s.Owner
}

// Cancel aborts any pending or in-flight fetch on a channel.
func (a *Arbiter) Cancel(s Slot) {
	if ch := a.channel(s); ch != nil {
		ch.cancel()
	}
}

func (a *Arbiter) channel(s Slot) *dmaChannel {
	switch s.Owner {
	case OwnerDisk:
		return &a.disk
	case OwnerAudio:
		if int(s.Index) < len(a.audio) {
			return &a.audio[s.Index]
		}
	case OwnerSprite:
		if int(s.Index) < len(a.sprite) {
			return &a.sprite[s.Index]
		}
	}
	return nil
}

func (a *Arbiter) eachChannel(fn func(ch *dmaChannel)) {
	fn(&a.disk)
	for i := range a.audio {
		fn(&a.audio[i])
	}
	for i := range a.sprite {
		fn(&a.sprite[i])
	}
}

// RunSlot resolves and executes bus ownership for the current slot. Called
// once per slot tick, before the CPU's step for that tick; the CPU then
// observes the decision through its wait states.
func (a *Arbiter) RunSlot() {
	a.checkSingleBurst()

	a.cur = Slot{Owner: OwnerNone}
	a.granted = false

	d := designee(a.beam, a.numPlanes)

	// Priority ladder, top-down. First hit owns the slot.

	// 1. Memory refresh owns its designated slots unconditionally, even
	// against a channel mid-fetch. The burst is not cancelled; it resumes
	// on the next slot refresh does not claim.
	if d.Owner == OwnerRefresh {
		a.grant(d)
		return
	}

	// 2. A channel mid-fetch finishes its burst before any designee.
	var burst *dmaChannel
	a.eachChannel(func(ch *dmaChannel) {
		if ch.state == chanFetching && burst == nil {
			burst = ch
		}
	})
	if burst != nil {
		a.grant(burst.slot)
		burst.fetchOne(a.bus)
		return
	}

	// 3. The designated channel, if armed and enabled, gets exactly one
	// fetch unit in this slot.
	if d.Owner == OwnerBitplane {
		if a.Ctl.enabled(OwnerBitplane, d.Index) {
			a.grant(d)
			a.fetchBitplane(d.Index)
			return
		}
	} else if ch := a.channel(d); ch != nil {
		if ch.state == chanRequesting && a.Ctl.enabled(d.Owner, d.Index) {
			a.grant(d)
			ch.fetchOne(a.bus)
			return
		}
	}

	// 4. Copper, on even slots only.
	if a.beam.HPos()%2 == 0 && a.copper != nil &&
		a.Ctl.enabled(OwnerCopper, 0) && a.copper.wantsSlot() {
		a.grant(Slot{Owner: OwnerCopper})
		a.copper.useSlot()
		return
	}

	// 5. Blitter soaks up any remaining slot.
	if a.blitter != nil && a.Ctl.enabled(OwnerBlitter, 0) && a.blitter.wantsSlot() {
		a.grant(Slot{Owner: OwnerBlitter})
		a.blitter.useSlot()
		return
	}

	// 6. Nobody: the slot stays free for the CPU.
}

func (a *Arbiter) grant(s Slot) {
	if a.granted {
		// Two owners for one slot means the timing model itself is wrong.
		// Not guest-triggerable: die loudly with enough state to reproduce.
		log.ModDMA.PanicZ("arbitration conflict").
			Uint64("tick", a.clk.Tick()).
			Stringer("owner", a.cur).
			Stringer("claimant", s).
			End()
	}
	a.cur = s
	a.granted = true
}

// checkSingleBurst panics if more than one channel believes it is
// mid-fetch: the allocator must never let two bursts overlap.
func (a *Arbiter) checkSingleBurst() {
	var first *dmaChannel
	a.eachChannel(func(ch *dmaChannel) {
		if ch.state != chanFetching {
			return
		}
		if first == nil {
			first = ch
			return
		}
		log.ModDMA.PanicZ("arbitration conflict: concurrent bursts").
			Uint64("tick", a.clk.Tick()).
			Stringer("first", first.slot).
			Stringer("second", ch.slot).
			End()
	})
}

func (a *Arbiter) fetchBitplane(plane uint8) {
	val, berr := a.bus.dmaRead16(a.bplPtr[plane])
	if berr != nil {
		log.ModDMA.WarnZ("bitplane fetch fault").
			Int("plane", int(plane)).
			Error("err", berr).
			End()
	}
	_ = val // pixel generation is not this core's business
	a.bplPtr[plane] += 2
}

// cpuClaim is called by the bus on behalf of a CPU transaction. If the
// slot already has an owner the CPU receives that owner's contention cost
// as wait states and must re-request; allocator state advances every tick,
// so a cached decision would be stale.
func (a *Arbiter) cpuClaim() int {
	switch a.cur.Owner {
	case OwnerNone:
		a.cur = Slot{Owner: OwnerCPU}
		a.granted = true
		return 0
	case OwnerCPU:
		return 0
	default:
		return a.costs[a.cur.Owner]
	}
}

func (a *Arbiter) reset() {
	a.Ctl.reset()
	a.eachChannel(func(ch *dmaChannel) { ch.cancel() })
	a.cur = Slot{Owner: OwnerNone}
	a.granted = false
	a.bplPtr = [maxBitplanes]uint32{}
}
