package emu

import (
	"fmt"

	"github.com/go-faster/jx"
)

// A state file wraps the machine snapshot together with the probe core's
// registers: resuming from a file must replay exactly like a run that was
// never interrupted, and the probe is part of that timeline.

type probeState struct {
	stall  int
	step   int
	addr   uint32
	sum    uint32
	booted bool
}

func encodeState(core []byte, p *Probe) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("core")
	e.Raw(core)
	e.FieldStart("probe")
	e.ObjStart()
	e.FieldStart("stall")
	e.Int(p.stall)
	e.FieldStart("step")
	e.Int(p.step)
	e.FieldStart("addr")
	e.UInt32(p.addr)
	e.FieldStart("sum")
	e.UInt32(p.sum)
	e.FieldStart("booted")
	e.Bool(p.booted)
	e.ObjEnd()
	e.ObjEnd()
	return e.Bytes()
}

func decodeState(blob []byte) (core []byte, ps probeState, err error) {
	d := jx.DecodeBytes(blob)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "core":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			core = []byte(raw)
			return nil
		case "probe":
			return d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "stall":
					ps.stall, err = d.Int()
				case "step":
					ps.step, err = d.Int()
				case "addr":
					ps.addr, err = d.UInt32()
				case "sum":
					ps.sum, err = d.UInt32()
				case "booted":
					ps.booted, err = d.Bool()
				default:
					return d.Skip()
				}
				return err
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return core, ps, fmt.Errorf("state decode: %w", err)
	}
	if core == nil {
		return core, ps, fmt.Errorf("state decode: missing machine snapshot")
	}
	return core, ps, nil
}
