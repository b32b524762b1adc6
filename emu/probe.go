package emu

import (
	"amber/hw"
)

// Probe is the stand-in CPU core used by the headless harness. It runs a
// fixed boot script that programs the copper, blitter and audio channels,
// then walks chip RAM with word reads forever. It is fully deterministic,
// honors wait states by stalling, and stays tick-driven throughout.
type Probe struct {
	bus    *hw.Bus
	script []poke

	stall  int
	step   int
	addr   uint32
	sum    uint32
	booted bool
}

// Probe's copper list, written to chip RAM during boot: enable vertical
// blank interrupts, wait for line 0x40, then enable sprite DMA and park
// on the never-reached end-of-list wait.
const probeListAddr = 0x2000

var probeList = []uint16{
	0x009A, 0xC020, // MOVE INTENA: set master + vertb
	0x4001, 0xFFFE, // WAIT vpos 0x40
	0x0096, 0x8020, // MOVE DMACON: set sprite enable
	0xFFFF, 0xFFFE, // WAIT end of list
}

type poke struct {
	addr uint32
	val  uint16
}

func bootScript() []poke {
	var script []poke
	for i, w := range probeList {
		script = append(script, poke{probeListAddr + uint32(2*i), w})
	}
	reg := func(off uint32) uint32 { return hw.RegBase + off }
	script = append(script,
		// Copper list pointer and jump strobe.
		poke{reg(0x080), uint16(probeListAddr >> 16)},
		poke{reg(0x082), uint16(probeListAddr & 0xFFFF)},
		poke{reg(0x088), 0},
		// Audio channel 0: 16 words at 0x3000, moderate period.
		poke{reg(0x0A0), 0x0000},
		poke{reg(0x0A2), 0x3000},
		poke{reg(0x0A4), 16},
		poke{reg(0x0A6), 0x0080},
		poke{reg(0x0A8), 0x0040},
		// Small blit from the top of RAM.
		poke{reg(0x050), 0x0000},
		poke{reg(0x052), 0x4000},
		poke{reg(0x058), 1<<6 | 8}, // 1 row of 8 words
		// DMACON: set master + copper + blitter + audio 0.
		poke{reg(0x096), 0x82C1},
	)
	return script
}

func NewProbe() *Probe {
	return &Probe{script: bootScript()}
}

// AttachBus hands the probe its bus contract. Until then Step is a no-op,
// which mirrors a held reset line.
func (p *Probe) AttachBus(bus *hw.Bus) { p.bus = bus }

// Step implements hw.CPUCore. One CPU cycle: stalled cycles burn off
// first, then the boot script advances one poke, then the RAM walk does
// one read.
func (p *Probe) Step() {
	if p.bus == nil {
		return
	}
	if p.stall > 0 {
		p.stall--
		return
	}

	if !p.booted {
		if p.step < len(p.script) {
			pk := p.script[p.step]
			if wait := p.bus.Write(pk.addr, hw.Word, uint32(pk.val)); wait > 0 {
				// Lost arbitration: stall, then re-issue the same poke.
				p.stall = wait
				return
			}
			p.step++
			return
		}
		p.booted = true
		p.addr = 0
	}

	val, wait := p.bus.Read(p.addr, hw.Word)
	if wait > 0 {
		// Lost arbitration: stall and re-request the same address.
		p.stall = wait
		return
	}
	p.sum = p.sum*31 + val + uint32(p.bus.SampleIPL())
	p.addr = (p.addr + 2) & 0x3FFF
}

// Reset implements hw.CPUCore.
func (p *Probe) Reset() {
	p.stall = 0
	p.step = 0
	p.addr = 0
	p.sum = 0
	p.booted = false
}

// restore rewinds the probe to a previously saved point in its timeline.
func (p *Probe) restore(s probeState) {
	p.stall = s.stall
	p.step = s.step
	p.addr = s.addr
	p.sum = s.sum
	p.booted = s.booted
}

// Checksum exposes the running digest of everything the probe has read.
func (p *Probe) Checksum() uint32 { return p.sum }
