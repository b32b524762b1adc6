package snapshot

import (
	"fmt"

	"github.com/go-faster/jx"
)

// Encode serializes a machine state. Key order is fixed so two
// identical states produce identical blobs.
func Encode(s *Machine) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("version")
	e.Int(s.Version)
	e.FieldStart("tick")
	e.UInt64(s.Tick)
	e.FieldStart("frame")
	e.UInt64(s.Frame)
	e.FieldStart("pacer")
	e.UInt64(s.Pacer)

	e.FieldStart("beam")
	encodeBeam(&e, &s.Beam)

	e.FieldStart("dmacon")
	e.UInt16(s.DMACON)
	e.FieldStart("channels")
	e.ArrStart()
	for i := range s.Channels {
		encodeChannel(&e, &s.Channels[i])
	}
	e.ArrEnd()
	e.FieldStart("bplptr")
	e.ArrStart()
	for _, p := range s.BplPtr {
		e.UInt32(p)
	}
	e.ArrEnd()
	e.FieldStart("numbpl")
	e.Int(s.NumBpl)

	e.FieldStart("copper")
	encodeCopper(&e, &s.Copper)
	e.FieldStart("blitter")
	encodeBlitter(&e, &s.Blitter)
	e.FieldStart("chain")
	encodeChain(&e, &s.Chain)
	e.FieldStart("timers")
	e.ArrStart()
	for i := range s.Timers {
		encodeTimer(&e, &s.Timers[i])
	}
	e.ArrEnd()
	e.FieldStart("audio")
	e.ArrStart()
	for i := range s.Audio {
		encodeAudio(&e, &s.Audio[i])
	}
	e.ArrEnd()

	e.FieldStart("chipram")
	e.Base64(s.ChipRAM)
	e.ObjEnd()
	return e.Bytes()
}

func encodeBeam(e *jx.Encoder, b *Beam) {
	e.ObjStart()
	e.FieldStart("hpos")
	e.UInt16(b.HPos)
	e.FieldStart("vpos")
	e.UInt16(b.VPos)
	e.FieldStart("linelen")
	e.UInt16(b.LineLen)
	e.FieldStart("longline")
	e.Bool(b.LongLine)
	e.ObjEnd()
}

func encodeChannel(e *jx.Encoder, c *Channel) {
	e.ObjStart()
	e.FieldStart("state")
	e.UInt8(c.State)
	e.FieldStart("ptr")
	e.UInt32(c.Ptr)
	e.FieldStart("pending")
	e.Int(c.Pending)
	e.FieldStart("unit")
	e.Int(c.Unit)
	e.ObjEnd()
}

func encodeCopper(e *jx.Encoder, c *Copper) {
	e.ObjStart()
	e.FieldStart("start")
	e.UInt32(c.Start)
	e.FieldStart("pc")
	e.UInt32(c.PC)
	e.FieldStart("state")
	e.UInt8(c.State)
	e.FieldStart("fetchidx")
	e.Int(c.FetchIdx)
	e.FieldStart("ir1")
	e.UInt16(c.IR1)
	e.FieldStart("ir2")
	e.UInt16(c.IR2)
	e.FieldStart("waitvp")
	e.UInt8(c.WaitVP)
	e.FieldStart("waithp")
	e.UInt8(c.WaitHP)
	e.FieldStart("waitvmask")
	e.UInt8(c.WaitVMask)
	e.FieldStart("waithmask")
	e.UInt8(c.WaitHMask)
	e.FieldStart("blocked")
	e.Bool(c.Blocked)
	e.FieldStart("skipnext")
	e.Bool(c.SkipNext)
	e.ObjEnd()
}

func encodeBlitter(e *jx.Encoder, b *Blitter) {
	e.ObjStart()
	e.FieldStart("src")
	e.UInt32(b.Src)
	e.FieldStart("remaining")
	e.Int(b.Remaining)
	e.FieldStart("busy")
	e.Bool(b.Busy)
	e.ObjEnd()
}

func encodeChain(e *jx.Encoder, c *Chain) {
	e.ObjStart()
	e.FieldStart("intena")
	e.UInt16(c.INTENA)
	e.FieldStart("intreq")
	e.UInt16(c.INTREQ)
	e.FieldStart("level")
	e.UInt8(c.Level)
	e.ObjEnd()
}

func encodeTimer(e *jx.Encoder, t *Timer) {
	e.ObjStart()
	e.FieldStart("latch")
	e.UInt16(t.Latch)
	e.FieldStart("counter")
	e.UInt16(t.Counter)
	e.FieldStart("running")
	e.Bool(t.Running)
	e.FieldStart("oneshot")
	e.Bool(t.OneShot)
	e.ObjEnd()
}

func encodeAudio(e *jx.Encoder, a *AudioChannel) {
	e.ObjStart()
	e.FieldStart("loc")
	e.UInt32(a.Loc)
	e.FieldStart("length")
	e.UInt16(a.Length)
	e.FieldStart("period")
	e.UInt16(a.Period)
	e.FieldStart("volume")
	e.UInt16(a.Volume)
	e.FieldStart("ptr")
	e.UInt32(a.Ptr)
	e.FieldStart("remaining")
	e.UInt16(a.Remaining)
	e.FieldStart("percnt")
	e.UInt16(a.PerCnt)
	e.FieldStart("dat")
	e.UInt16(a.Dat)
	e.FieldStart("phase")
	e.UInt8(a.Phase)
	e.FieldStart("active")
	e.Bool(a.Active)
	e.ObjEnd()
}

// Decode parses a blob produced by Encode. Unknown keys are skipped so
// older readers survive newer blobs; the caller checks Version.
func Decode(data []byte) (*Machine, error) {
	var s Machine
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "version":
			s.Version, err = d.Int()
		case "tick":
			s.Tick, err = d.UInt64()
		case "frame":
			s.Frame, err = d.UInt64()
		case "pacer":
			s.Pacer, err = d.UInt64()
		case "beam":
			err = decodeBeam(d, &s.Beam)
		case "dmacon":
			s.DMACON, err = d.UInt16()
		case "channels":
			err = d.Arr(func(d *jx.Decoder) error {
				var c Channel
				if err := decodeChannel(d, &c); err != nil {
					return err
				}
				s.Channels = append(s.Channels, c)
				return nil
			})
		case "bplptr":
			i := 0
			err = d.Arr(func(d *jx.Decoder) error {
				if i >= len(s.BplPtr) {
					return fmt.Errorf("too many bitplane pointers")
				}
				v, err := d.UInt32()
				s.BplPtr[i] = v
				i++
				return err
			})
		case "numbpl":
			s.NumBpl, err = d.Int()
		case "copper":
			err = decodeCopper(d, &s.Copper)
		case "blitter":
			err = decodeBlitter(d, &s.Blitter)
		case "chain":
			err = decodeChain(d, &s.Chain)
		case "timers":
			i := 0
			err = d.Arr(func(d *jx.Decoder) error {
				if i >= len(s.Timers) {
					return fmt.Errorf("too many timers")
				}
				err := decodeTimer(d, &s.Timers[i])
				i++
				return err
			})
		case "audio":
			i := 0
			err = d.Arr(func(d *jx.Decoder) error {
				if i >= len(s.Audio) {
					return fmt.Errorf("too many audio channels")
				}
				err := decodeAudio(d, &s.Audio[i])
				i++
				return err
			})
		case "chipram":
			s.ChipRAM, err = d.Base64()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	return &s, nil
}

func decodeBeam(d *jx.Decoder, b *Beam) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "hpos":
			b.HPos, err = d.UInt16()
		case "vpos":
			b.VPos, err = d.UInt16()
		case "linelen":
			b.LineLen, err = d.UInt16()
		case "longline":
			b.LongLine, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeChannel(d *jx.Decoder, c *Channel) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "state":
			c.State, err = d.UInt8()
		case "ptr":
			c.Ptr, err = d.UInt32()
		case "pending":
			c.Pending, err = d.Int()
		case "unit":
			c.Unit, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeCopper(d *jx.Decoder, c *Copper) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "start":
			c.Start, err = d.UInt32()
		case "pc":
			c.PC, err = d.UInt32()
		case "state":
			c.State, err = d.UInt8()
		case "fetchidx":
			c.FetchIdx, err = d.Int()
		case "ir1":
			c.IR1, err = d.UInt16()
		case "ir2":
			c.IR2, err = d.UInt16()
		case "waitvp":
			c.WaitVP, err = d.UInt8()
		case "waithp":
			c.WaitHP, err = d.UInt8()
		case "waitvmask":
			c.WaitVMask, err = d.UInt8()
		case "waithmask":
			c.WaitHMask, err = d.UInt8()
		case "blocked":
			c.Blocked, err = d.Bool()
		case "skipnext":
			c.SkipNext, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeBlitter(d *jx.Decoder, b *Blitter) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "src":
			b.Src, err = d.UInt32()
		case "remaining":
			b.Remaining, err = d.Int()
		case "busy":
			b.Busy, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeChain(d *jx.Decoder, c *Chain) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "intena":
			c.INTENA, err = d.UInt16()
		case "intreq":
			c.INTREQ, err = d.UInt16()
		case "level":
			c.Level, err = d.UInt8()
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeTimer(d *jx.Decoder, t *Timer) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "latch":
			t.Latch, err = d.UInt16()
		case "counter":
			t.Counter, err = d.UInt16()
		case "running":
			t.Running, err = d.Bool()
		case "oneshot":
			t.OneShot, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeAudio(d *jx.Decoder, a *AudioChannel) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "loc":
			a.Loc, err = d.UInt32()
		case "length":
			a.Length, err = d.UInt16()
		case "period":
			a.Period, err = d.UInt16()
		case "volume":
			a.Volume, err = d.UInt16()
		case "ptr":
			a.Ptr, err = d.UInt32()
		case "remaining":
			a.Remaining, err = d.UInt16()
		case "percnt":
			a.PerCnt, err = d.UInt16()
		case "dat":
			a.Dat, err = d.UInt16()
		case "phase":
			a.Phase, err = d.UInt8()
		case "active":
			a.Active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
}
