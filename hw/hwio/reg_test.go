package hwio

import "testing"

func TestReg8(t *testing.T) {
	r := Reg8{Value: 0x11, RoMask: 0xF0}

	if got := r.Read8(0, false); got != 0x11 {
		t.Errorf("invalid read: %x", got)
	}
	if got := r.Read8(9999, false); got != 0x11 {
		t.Errorf("invalid read with offset: %x", got)
	}

	r.Write8(0, 0x77)
	if r.Value != 0x17 {
		t.Errorf("writemask not respected: %x", r.Value)
	}
	r.Write8(9999, 0x88)
	if r.Value != 0x18 {
		t.Errorf("writemask with offset not respected: %x", r.Value)
	}
}

func TestReverse8(t *testing.T) {
	tests := []struct{ in, want uint8 }{
		{0x00, 0x00},
		{0x01, 0x80},
		{0x80, 0x01},
		{0xF0, 0x0F},
		{0b1011_0010, 0b0100_1101},
	}
	for _, tt := range tests {
		if got := Reverse8(tt.in); got != tt.want {
			t.Errorf("Reverse8(%08b) = %08b, want %08b", tt.in, got, tt.want)
		}
	}
}
