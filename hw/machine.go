package hw

import (
	"amber/emu/log"
	"amber/hw/hwio"
)

// Custom chip register space.
const (
	RegBase = 0xDFF000
	RegSize = 0x200

	regDMACONR = 0x002
	regVPOSR   = 0x004
	regVHPOSR  = 0x006
	regINTENAR = 0x01C
	regINTREQR = 0x01E
	regBLTAPTH = 0x050
	regBLTAPTL = 0x052
	regBLTSIZE = 0x058
	regCOP1LCH = 0x080
	regCOP1LCL = 0x082
	regCOPJMP1 = 0x088
	regDMACON  = 0x096
	regINTENA  = 0x09A
	regINTREQ  = 0x09C
	regAUDBase = 0x0A0 // 16 bytes per channel: LCH, LCL, LEN, PER, VOL
	regBPLBase = 0x0E0 // 4 bytes per plane: PTH, PTL
	regBPLCON0 = 0x100
)

// CPUCore is the external CPU collaborator. It is tick-driven even while
// logically halted: it keeps receiving Step callbacks and simply declines
// to issue bus requests. It talks to the machine only through the Bus
// contract it was handed at construction.
type CPUCore interface {
	Step()
	Reset()
}

// Config describes a machine to build. Zero values pick region defaults.
type Config struct {
	Region    Region
	CrystalHz uint64
	FPS       uint64
	ChipRAM   uint32

	CPUDivisor  uint64
	SlotDivisor uint64
	EDivisor    uint64

	// CPU wait-state cost per owner class when losing arbitration.
	ContentionCosts map[SlotOwner]int

	SampleRate float64 // audio mixer output rate; 0 disables the mixer
}

const defaultChipRAM = 512 * 1024

// Machine owns the master clock and every shared structure, and enforces
// the per-tick ordering: arbiter resolves first, CPU steps next,
// peripherals after, interrupt chain commits last.
type Machine struct {
	Clock   *MasterClock
	Sched   *Scheduler
	Beam    *Beam
	Bus     *Bus
	Arb     *Arbiter
	Copper  *Copper
	Blitter *Blitter
	Chain   *Chain
	TimerA  *Timer
	TimerB  *Timer
	Audio   *Audio
	Mixer   *Mixer

	cpu   CPUCore
	pacer *framePacer

	chipRAM []byte
	frame   uint64

	// pointer registers assembled from high/low word writes
	copLC  uint32
	bltAPT uint32
	audLC  [numAudioChans]uint32
	bplPT  [maxBitplanes]uint32
}

// NewMachine builds and wires a machine. All configuration is validated
// here; after a nil error no tick can fail on configuration.
func NewMachine(cfg Config, cpu CPUCore) (*Machine, error) {
	crystal := cfg.CrystalHz
	fps := cfg.FPS
	if crystal == 0 {
		if cfg.Region == PAL {
			crystal = PALCrystalHz
		} else {
			crystal = NTSCCrystalHz
		}
	}
	if fps == 0 {
		if cfg.Region == PAL {
			fps = PALFps
		} else {
			fps = NTSCFps
		}
	}
	ramSize := cfg.ChipRAM
	if ramSize == 0 {
		ramSize = defaultChipRAM
	}
	cpuDiv := cfg.CPUDivisor
	if cpuDiv == 0 {
		cpuDiv = CPUDivisor
	}
	slotDiv := cfg.SlotDivisor
	if slotDiv == 0 {
		slotDiv = SlotDivisor
	}
	eDiv := cfg.EDivisor
	if eDiv == 0 {
		eDiv = EDivisor
	}

	pacer, err := newFramePacer(crystal, fps)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		Clock:   NewMasterClock(crystal, cfg.Region),
		Beam:    NewBeam(cfg.Region),
		Bus:     NewBus("chip"),
		Chain:   NewChain(),
		cpu:     cpu,
		pacer:   pacer,
		chipRAM: make([]byte, ramSize),
	}
	m.Sched = NewScheduler(m.Clock)
	m.Arb = NewArbiter(m.Clock, m.Beam, m.Bus)
	m.Copper = NewCopper(m.Bus, m.Beam, RegBase)
	m.Blitter = NewBlitter(m.Bus, m.Chain)
	m.TimerA = NewTimer("A", m.Chain, IntPorts)
	m.TimerB = NewTimer("B", m.Chain, IntPorts)
	if cfg.SampleRate > 0 {
		m.Mixer = NewMixer(float64(crystal)/float64(slotDiv), cfg.SampleRate)
	}
	m.Audio = NewAudio(m.Arb, m.Chain, m.Mixer)

	m.Arb.attach(m.Copper, m.Blitter)
	m.Bus.attach(m.Arb, m.Chain)
	for owner, cost := range cfg.ContentionCosts {
		m.Arb.SetContentionCost(owner, cost)
	}
	m.Arb.Ctl.onChange = m.onDMAChange

	m.Bus.MapRAM(0, m.chipRAM, false)
	m.Bus.MapRegSpace(RegBase, RegSize)
	m.mapRegisters()

	// Registration order is the intra-tick ordering contract: the slot
	// component (arbiter) runs before the CPU's step, peripherals after,
	// and the chain commit is last so level changes become visible at the
	// CPU's next sample point.
	if err := m.Sched.Register(KindBusSlot, "slot", slotDiv, 0, m.slotTick); err != nil {
		return nil, err
	}
	if err := m.Sched.Register(KindCPU, "cpu", cpuDiv, 0, m.cpuTick); err != nil {
		return nil, err
	}
	if err := m.Sched.Register(KindTimer, "timers", eDiv, 0, m.timerTick); err != nil {
		return nil, err
	}
	if err := m.Sched.Register(KindCustom, "irq-commit", 1, 0, m.Chain.Commit); err != nil {
		return nil, err
	}

	log.ModEmu.InfoZ("machine configured").
		Stringer("region", cfg.Region).
		Uint64("crystalHz", crystal).
		Uint64("fps", fps).
		End()
	return m, nil
}

func (m *Machine) slotTick() {
	m.Copper.pollBlocked()
	m.Arb.RunSlot()
	m.Audio.SlotTick()
	if m.Mixer != nil {
		m.Mixer.Advance()
	}
	if m.Beam.Advance() {
		m.Chain.Raise(IntVertB)
		m.Copper.RestartList()
	}
}

func (m *Machine) cpuTick() {
	if m.cpu != nil {
		m.cpu.Step()
	}
}

func (m *Machine) timerTick() {
	m.TimerA.Tick()
	m.TimerB.Tick()
}

// Tick advances the machine by exactly one crystal cycle.
func (m *Machine) Tick() {
	m.Sched.Tick()
}

// RunFrame runs one frame's worth of ticks and returns the audio samples
// the frame produced (nil without a mixer). Turbo is achieved by calling
// this more often per host second, never by batching ticks.
func (m *Machine) RunFrame() []int16 {
	n := m.pacer.next()
	for range n {
		m.Tick()
	}
	m.frame++
	if m.Mixer != nil {
		return m.Mixer.EndFrame()
	}
	return nil
}

// RunFrames runs n frames back to back.
func (m *Machine) RunFrames(n int) {
	for range n {
		m.RunFrame()
	}
}

func (m *Machine) Frame() uint64 { return m.frame }

// Reset is the machine-wide reset strobe, the only cancellation primitive.
// Every component's clock-dependent state resets at the same tick
// boundary, in one fixed order; a partial reset is a latent-bug source.
func (m *Machine) Reset() {
	m.Clock.reset()
	m.pacer.reset()
	m.frame = 0
	m.Beam.Reset()
	m.Arb.reset()
	m.Chain.reset()
	m.Copper.Reset()
	m.Blitter.reset()
	m.TimerA.reset()
	m.TimerB.reset()
	m.Audio.reset()
	if m.Mixer != nil {
		m.Mixer.Reset()
	}
	m.copLC = 0
	m.bltAPT = 0
	m.audLC = [numAudioChans]uint32{}
	m.bplPT = [maxBitplanes]uint32{}
	if m.cpu != nil {
		m.cpu.Reset()
	}
	log.ModEmu.InfoZ("reset strobe").End()
}

func (m *Machine) onDMAChange(old, new uint16) {
	for i := range numAudioChans {
		bit := uint16(1 << i)
		if old&bit != new&bit {
			m.Audio.Enable(i, new&bit != 0 && new&DMAMaster != 0)
		}
	}
}

// AddLogContext stamps every log entry with the current tick.
// Implements log.Context.
func (m *Machine) AddLogContext(e *log.EntryZ) {
	e.Uint64("tick", m.Clock.Tick())
}

func (m *Machine) mapRegisters() {
	mapReg := func(off uint32, r *hwio.Reg16) {
		m.Bus.MapReg16(RegBase+off, r)
	}

	// Control registers with set/clear strobe writes, plus their
	// read-only mirrors.
	mapReg(regDMACON, &m.Arb.Ctl.DMACON)
	mapReg(regDMACONR, &hwio.Reg16{
		Name:   "DMACONR",
		Flags:  hwio.ReadOnlyFlag,
		ReadCb: func(uint16) uint16 { return m.Arb.Ctl.DMACON.Value },
		PeekCb: func(uint16) uint16 { return m.Arb.Ctl.DMACON.Value },
	})
	mapReg(regINTENA, &m.Chain.INTENA)
	mapReg(regINTREQ, &m.Chain.INTREQ)
	mapReg(regINTENAR, &hwio.Reg16{
		Name:   "INTENAR",
		Flags:  hwio.ReadOnlyFlag,
		ReadCb: func(uint16) uint16 { return m.Chain.INTENA.Value },
		PeekCb: func(uint16) uint16 { return m.Chain.INTENA.Value },
	})
	mapReg(regINTREQR, &hwio.Reg16{
		Name:   "INTREQR",
		Flags:  hwio.ReadOnlyFlag,
		ReadCb: func(uint16) uint16 { return m.Chain.INTREQ.Value },
		PeekCb: func(uint16) uint16 { return m.Chain.INTREQ.Value },
	})

	// Beam position, read-only.
	mapReg(regVPOSR, &hwio.Reg16{
		Name:   "VPOSR",
		Flags:  hwio.ReadOnlyFlag,
		ReadCb: func(uint16) uint16 { return m.Beam.VPos() >> 8 },
		PeekCb: func(uint16) uint16 { return m.Beam.VPos() >> 8 },
	})
	mapReg(regVHPOSR, &hwio.Reg16{
		Name:   "VHPOSR",
		Flags:  hwio.ReadOnlyFlag,
		ReadCb: func(uint16) uint16 { return m.Beam.VPos()<<8 | m.Beam.HPos()>>1 },
		PeekCb: func(uint16) uint16 { return m.Beam.VPos()<<8 | m.Beam.HPos()>>1 },
	})

	// Copper list pointer and jump strobe.
	mapReg(regCOP1LCH, &hwio.Reg16{
		Name:  "COP1LCH",
		Flags: hwio.WriteOnlyFlag,
		WriteCb: func(_, val uint16) {
			m.copLC = m.copLC&0x0000FFFF | uint32(val&0xFF)<<16
			m.Copper.SetStart(m.copLC)
		},
	})
	mapReg(regCOP1LCL, &hwio.Reg16{
		Name:  "COP1LCL",
		Flags: hwio.WriteOnlyFlag,
		WriteCb: func(_, val uint16) {
			m.copLC = m.copLC&0xFFFF0000 | uint32(val&^1)
			m.Copper.SetStart(m.copLC)
		},
	})
	mapReg(regCOPJMP1, &hwio.Reg16{
		Name: "COPJMP1",
		WriteCb: func(_, _ uint16) {
			m.Copper.RestartList()
		},
	})

	// Blitter source pointer and size/start.
	mapReg(regBLTAPTH, &hwio.Reg16{
		Name:  "BLTAPTH",
		Flags: hwio.WriteOnlyFlag,
		WriteCb: func(_, val uint16) {
			m.bltAPT = m.bltAPT&0x0000FFFF | uint32(val&0xFF)<<16
		},
	})
	mapReg(regBLTAPTL, &hwio.Reg16{
		Name:  "BLTAPTL",
		Flags: hwio.WriteOnlyFlag,
		WriteCb: func(_, val uint16) {
			m.bltAPT = m.bltAPT&0xFFFF0000 | uint32(val&^1)
		},
	})
	mapReg(regBLTSIZE, &hwio.Reg16{
		Name:  "BLTSIZE",
		Flags: hwio.WriteOnlyFlag,
		WriteCb: func(_, val uint16) {
			h := int(val >> 6)
			if h == 0 {
				h = 1024
			}
			w := int(val & 0x3F)
			if w == 0 {
				w = 64
			}
			m.Blitter.Start(m.bltAPT, h*w)
		},
	})

	// Audio channels.
	for i := range numAudioChans {
		base := uint32(regAUDBase + 16*i)
		mapReg(base, &hwio.Reg16{
			Name:  "AUDLCH",
			Flags: hwio.WriteOnlyFlag,
			WriteCb: func(_, val uint16) {
				m.audLC[i] = m.audLC[i]&0x0000FFFF | uint32(val&0xFF)<<16
				m.Audio.SetLocation(i, m.audLC[i])
			},
		})
		mapReg(base+2, &hwio.Reg16{
			Name:  "AUDLCL",
			Flags: hwio.WriteOnlyFlag,
			WriteCb: func(_, val uint16) {
				m.audLC[i] = m.audLC[i]&0xFFFF0000 | uint32(val&^1)
				m.Audio.SetLocation(i, m.audLC[i])
			},
		})
		mapReg(base+4, &hwio.Reg16{
			Name:    "AUDLEN",
			Flags:   hwio.WriteOnlyFlag,
			WriteCb: func(_, val uint16) { m.Audio.SetLength(i, val) },
		})
		mapReg(base+6, &hwio.Reg16{
			Name:    "AUDPER",
			Flags:   hwio.WriteOnlyFlag,
			WriteCb: func(_, val uint16) { m.Audio.SetPeriod(i, val) },
		})
		mapReg(base+8, &hwio.Reg16{
			Name:    "AUDVOL",
			Flags:   hwio.WriteOnlyFlag,
			WriteCb: func(_, val uint16) { m.Audio.SetVolume(i, val) },
		})
	}

	// Bitplane pointers and control.
	for p := range maxBitplanes {
		base := uint32(regBPLBase + 4*p)
		mapReg(base, &hwio.Reg16{
			Name:  "BPLPTH",
			Flags: hwio.WriteOnlyFlag,
			WriteCb: func(_, val uint16) {
				m.bplPT[p] = m.bplPT[p]&0x0000FFFF | uint32(val&0xFF)<<16
				m.Arb.SetBitplanePtr(p, m.bplPT[p])
			},
		})
		mapReg(base+2, &hwio.Reg16{
			Name:  "BPLPTL",
			Flags: hwio.WriteOnlyFlag,
			WriteCb: func(_, val uint16) {
				m.bplPT[p] = m.bplPT[p]&0xFFFF0000 | uint32(val&^1)
				m.Arb.SetBitplanePtr(p, m.bplPT[p])
			},
		})
	}
	mapReg(regBPLCON0, &hwio.Reg16{
		Name: "BPLCON0",
		WriteCb: func(_, val uint16) {
			m.Arb.SetNumBitplanes(int((val >> 12) & 7))
		},
	})
}
