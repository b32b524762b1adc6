package hw

import (
	"amber/emu/log"
)

// MasterClock is the sole source of time: a monotonic tick counter at the
// crystal frequency. It only ever resets on machine reset.
type MasterClock struct {
	tick      uint64
	crystalHz uint64
	region    Region
}

func NewMasterClock(crystalHz uint64, region Region) *MasterClock {
	return &MasterClock{crystalHz: crystalHz, region: region}
}

func (c *MasterClock) Tick() uint64      { return c.tick }
func (c *MasterClock) CrystalHz() uint64 { return c.crystalHz }
func (c *MasterClock) Region() Region    { return c.region }

func (c *MasterClock) reset() { c.tick = 0 }

// CompKind tags the closed set of schedulable component classes.
type CompKind uint8

const (
	KindBusSlot CompKind = iota
	KindCPU
	KindTimer
	KindAudio
	KindCustom // test harnesses
)

// comp is one registered component: due when tick%divisor == phase.
type comp struct {
	kind    CompKind
	name    string
	divisor uint64
	phase   uint64
	tick    func()
}

// Scheduler decides, per crystal tick, which components are due and runs
// their one-cycle entry point. Components run in registration order, which
// the machine uses to enforce intra-tick ordering (arbiter before CPU,
// peripherals after).
type Scheduler struct {
	clk   *MasterClock
	comps []comp
}

func NewScheduler(clk *MasterClock) *Scheduler {
	return &Scheduler{clk: clk}
}

// Register adds a component with its divisor/phase rule. The set is fixed
// for a configured machine's lifetime.
func (s *Scheduler) Register(kind CompKind, name string, divisor, phase uint64, tick func()) error {
	if divisor == 0 {
		return &ConfigError{Component: name, Reason: "divisor must be > 0"}
	}
	if phase >= divisor {
		return &ConfigError{Component: name, Reason: "phase must be < divisor"}
	}
	if tick == nil {
		return &ConfigError{Component: name, Reason: "nil tick entry point"}
	}
	s.comps = append(s.comps, comp{kind: kind, name: name, divisor: divisor, phase: phase, tick: tick})
	log.ModClock.DebugZ("component registered").
		String("name", name).
		Uint64("divisor", divisor).
		Uint64("phase", phase).
		End()
	return nil
}

// Tick runs every due component for the current tick, then advances the
// master clock by exactly one cycle. No component ever executes more than
// one cycle's worth of work per invocation.
func (s *Scheduler) Tick() {
	t := s.clk.tick
	for i := range s.comps {
		c := &s.comps[i]
		if t%c.divisor == c.phase {
			c.tick()
		}
	}
	s.clk.tick++
}

// IsDue reports whether the i-th registered component is due at tick t.
func (s *Scheduler) IsDue(i int, t uint64) bool {
	c := &s.comps[i]
	return t%c.divisor == c.phase
}

// NumComponents returns the number of registered components.
func (s *Scheduler) NumComponents() int { return len(s.comps) }

// framePacer converts the crystal frequency and the frame rate into a
// per-frame tick count using integer arithmetic only. The fractional
// remainder accumulates and periodically inserts one extra tick: float
// frame timing drifts audibly after minutes of runtime.
type framePacer struct {
	ticksPerFrame uint64
	rem           uint64
	fps           uint64
	acc           uint64
}

func newFramePacer(crystalHz, fps uint64) (*framePacer, error) {
	if fps == 0 {
		return nil, &ConfigError{Component: "pacer", Reason: "fps must be > 0"}
	}
	if crystalHz < fps {
		return nil, &ConfigError{Component: "pacer", Reason: "crystal slower than frame rate"}
	}
	return &framePacer{
		ticksPerFrame: crystalHz / fps,
		rem:           crystalHz % fps,
		fps:           fps,
	}, nil
}

// next returns the tick count for the upcoming frame.
func (p *framePacer) next() uint64 {
	n := p.ticksPerFrame
	p.acc += p.rem
	if p.acc >= p.fps {
		p.acc -= p.fps
		n++
	}
	return n
}

func (p *framePacer) reset() { p.acc = 0 }
