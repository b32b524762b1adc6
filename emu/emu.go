// Package emu is the headless harness around the machine: configuration,
// the frame loop with its turbo factor, and concurrent-safe loop control.
package emu

import (
	"os"
	"sync/atomic"
	"time"

	"amber/emu/log"
	"amber/hw"
)

type Emulator struct {
	Machine *hw.Machine
	Probe   *Probe

	fps   uint64
	turbo float64

	// These are accessed concurrently by the emulator loop and whoever
	// controls it.
	quit   atomic.Bool
	paused atomic.Bool
	reset  atomic.Bool
}

// Launch builds a machine from the configuration and wires the probe core
// to its bus. It doesn't start the frame loop, call Run for that.
func Launch(cfg Config) (*Emulator, error) {
	hwcfg := cfg.HWConfig()

	probe := NewProbe()
	m, err := hw.NewMachine(hwcfg, probe)
	if err != nil {
		return nil, err
	}
	probe.AttachBus(m.Bus)
	log.AddContext(m)

	fps := hwcfg.FPS
	if fps == 0 {
		if hwcfg.Region == hw.PAL {
			fps = hw.PALFps
		} else {
			fps = hw.NTSCFps
		}
	}
	return &Emulator{
		Machine: m,
		Probe:   probe,
		fps:     fps,
		turbo:   1,
	}, nil
}

// SetTurbo sets the speed factor: turbo 2 runs twice as many real frames
// per host second, turbo 0 runs unpaced. Every frame still executes all
// of its ticks.
func (e *Emulator) SetTurbo(factor float64) {
	if factor < 0 {
		factor = 1
	}
	e.turbo = factor
}

// RunOneFrame runs exactly one frame and drops its audio samples. The
// frame loop is the only caller; tests drive the machine directly.
func (e *Emulator) RunOneFrame() {
	e.Machine.RunFrame()
}

// Run executes the frame loop for the given number of frames, or until
// Stop with frames <= 0. Host pacing sleeps off whatever is left of each
// frame's wall-clock share; emulated timing never depends on it.
func (e *Emulator) Run(frames int) {
	var period time.Duration
	if e.turbo > 0 {
		period = time.Duration(float64(time.Second) / (float64(e.fps) * e.turbo))
	}

	for n := 0; frames <= 0 || n < frames; n++ {
		if e.quit.Load() {
			break
		}
		if e.paused.Load() {
			time.Sleep(100 * time.Millisecond)
			n--
			continue
		}
		e.handleReset()

		start := time.Now()
		e.RunOneFrame()
		if left := period - time.Since(start); left > 0 {
			time.Sleep(left)
		}
	}
	log.ModEmu.InfoZ("frame loop exited").
		Uint64("frames", e.Machine.Frame()).
		End()
}

// SaveStateFile snapshots the machine and the probe core into a file.
func (e *Emulator) SaveStateFile(path string) error {
	return os.WriteFile(path, encodeState(e.Machine.SaveSnapshot(), e.Probe), 0644)
}

// LoadStateFile restores the machine and the probe core from a state file.
// Nothing is touched if the blob fails to decode or validate.
func (e *Emulator) LoadStateFile(path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	core, ps, err := decodeState(blob)
	if err != nil {
		return err
	}
	if err := e.Machine.LoadSnapshot(core); err != nil {
		return err
	}
	e.Probe.restore(ps)
	return nil
}

// SetPause, Stop and Reset control the frame loop in a concurrent-safe
// way.

func (e *Emulator) SetPause(pause bool) { e.paused.CompareAndSwap(!pause, pause) }
func (e *Emulator) Stop()               { e.quit.Store(true) }
func (e *Emulator) Reset()              { e.reset.Store(true) }

func (e *Emulator) handleReset() {
	if e.reset.CompareAndSwap(true, false) {
		log.ModEmu.InfoZ("performing reset").End()
		e.Machine.Reset()
	}
}
