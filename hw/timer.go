package hw

import (
	"amber/emu/log"
)

// Timer is a peripheral countdown timer clocked off the E divisor. On
// underflow it sets its interrupt bit in the chain; the CPU notices at
// its next sample point, never synchronously.
type Timer struct {
	name  string
	chain *Chain
	src   IRQSource

	latch   uint16
	counter uint16
	running bool
	oneShot bool
}

func NewTimer(name string, chain *Chain, src IRQSource) *Timer {
	return &Timer{name: name, chain: chain, src: src, latch: 0xFFFF, counter: 0xFFFF}
}

// SetLatch sets the reload value. A running timer keeps its current count
// until underflow, like the hardware latch.
func (t *Timer) SetLatch(v uint16) { t.latch = v }

// Start arms the timer from its latch.
func (t *Timer) Start(oneShot bool) {
	t.counter = t.latch
	t.oneShot = oneShot
	t.running = true
}

func (t *Timer) Stop()         { t.running = false }
func (t *Timer) Running() bool { return t.running }
func (t *Timer) Count() uint16 { return t.counter }

// Tick advances the timer by one E-clock cycle.
func (t *Timer) Tick() {
	if !t.running {
		return
	}
	if t.counter == 0 {
		t.underflow()
		return
	}
	t.counter--
}

func (t *Timer) underflow() {
	t.chain.Raise(t.src)
	log.ModTimer.DebugZ("underflow").String("timer", t.name).End()
	if t.oneShot {
		t.running = false
		return
	}
	t.counter = t.latch
}

func (t *Timer) reset() {
	t.latch = 0xFFFF
	t.counter = 0xFFFF
	t.running = false
	t.oneShot = false
}
