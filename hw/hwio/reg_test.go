package hwio

import "testing"

func TestReg16(t *testing.T) {
	r := Reg16{Value: 0x1122, RoMask: 0xFF00}

	if r.Read16(0) != 0x1122 {
		t.Errorf("invalid read: %x", r.Read16(0))
	}
	if r.Read16(9999) != 0x1122 {
		t.Errorf("invalid read with offset: %x", r.Read16(9999))
	}

	r.Write16(0, 0x7777)
	if r.Value != 0x1177 {
		t.Errorf("writemask not respected: %x", r.Value)
	}
}

func TestReg16Flags(t *testing.T) {
	ro := Reg16{Value: 0xABCD, Flags: ReadOnlyFlag}
	ro.Write16(0, 0x1234)
	if ro.Value != 0xABCD {
		t.Errorf("readonly reg modified: %x", ro.Value)
	}

	wo := Reg16{Value: 0xABCD, Flags: WriteOnlyFlag}
	if wo.Read16(0) != 0 {
		t.Errorf("writeonly reg readable: %x", wo.Read16(0))
	}
	if wo.Peek16(0) != 0xABCD {
		t.Errorf("peek should bypass flags: %x", wo.Peek16(0))
	}
}

func TestReg16Callbacks(t *testing.T) {
	var gotOld, gotNew uint16
	r := Reg16{Value: 0x00FF}
	r.WriteCb = func(old, val uint16) { gotOld, gotNew = old, val }
	r.ReadCb = func(val uint16) uint16 { return val | 0x8000 }

	r.Write16(0, 0x0011)
	if gotOld != 0x00FF || gotNew != 0x0011 {
		t.Errorf("write callback got (%x, %x)", gotOld, gotNew)
	}
	if r.Read16(0) != 0x8011 {
		t.Errorf("read callback ignored: %x", r.Read16(0))
	}
}

func TestGetBit16(t *testing.T) {
	const v = uint16(0b1010_0000_0000_0101)
	for n := uint(0); n < 16; n++ {
		want := v&(1<<n) != 0
		if got := GetBit16(v, n); got != want {
			t.Errorf("GetBit16(%04x, %d) = %v, want %v", v, n, got, want)
		}
		var wanti uint16
		if want {
			wanti = 1
		}
		if got := GetBiti16(v, n); got != wanti {
			t.Errorf("GetBiti16(%04x, %d) = %d, want %d", v, n, got, wanti)
		}
	}
}

func TestSetClr(t *testing.T) {
	tests := []struct {
		old, val, want uint16
	}{
		{0x0000, 0x8001, 0x0001}, // set one bit
		{0x0001, 0x8203, 0x0203}, // set over existing
		{0x0203, 0x0002, 0x0201}, // clear one bit
		{0x7FFF, 0x7FFF, 0x0000}, // clear everything
		{0x0000, 0x0000, 0x0000}, // no-op clear
	}
	for _, tt := range tests {
		if got := SetClr(tt.old, tt.val); got != tt.want {
			t.Errorf("SetClr(%04x, %04x) = %04x, want %04x", tt.old, tt.val, got, tt.want)
		}
	}
}
