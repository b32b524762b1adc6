package hwio

import "testing"

func TestBitset(t *testing.T) {
	var b Bitset

	if b.Test(0) || b.Test(NumBits-1) {
		t.Error("zero value should be empty")
	}

	b.Set(7)
	b.Set(64)
	if !b.Test(7) || !b.Test(64) {
		t.Error("set bits not readable")
	}
	if b.Test(8) || b.Test(63) {
		t.Error("neighbor bits set")
	}

	b.Clear(7)
	if b.Test(7) {
		t.Error("cleared bit still set")
	}
}

func TestBitsetRange(t *testing.T) {
	var b Bitset

	// Range crossing word boundaries.
	b.SetRange(60, 200)
	for i := uint(60); i < 200; i++ {
		if !b.Test(i) {
			t.Fatalf("bit %d not set", i)
		}
	}
	if b.Test(59) || b.Test(200) {
		t.Error("range boundary overflow")
	}

	b.ClearRange(64, 128)
	for i := uint(64); i < 128; i++ {
		if b.Test(i) {
			t.Fatalf("bit %d not cleared", i)
		}
	}
	if !b.Test(63) || !b.Test(128) {
		t.Error("clear range boundary overflow")
	}

	b.Reset()
	if b.Test(60) {
		t.Error("reset left bits set")
	}
}
