package bits

import "testing"

func TestGet(t *testing.T) {
	v := uint32(0b1011_0100)
	if got := Get(v, 4, 0b1111); got != 0b1011 {
		t.Errorf("Get(0b10110100, 4, 0xf) = %b, want 1011", got)
	}
}

func TestSetN(t *testing.T) {
	v := uint32(0b1111_0000)
	got := SetN(v, 4, 0b1111, 0b1010)
	if want := uint32(0b1010_0000); got != want {
		t.Errorf("SetN = %08b, want %08b", got, want)
	}
}

func TestParity(t *testing.T) {
	cases := []struct {
		v    uint32
		want bool
	}{
		{0, false},
		{1, true},
		{0b11, false},
		{0xffffffff, false},
		{0x80000000, true},
	}

	for _, c := range cases {
		if got := Parity(c.v); got != c.want {
			t.Errorf("Parity(0x%x) = %v, want %v", c.v, got, c.want)
		}
	}
}
