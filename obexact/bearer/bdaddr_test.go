package bearer

import (
	"testing"
)

func TestParseBdAddr(t *testing.T) {
	a, err := ParseBdAddr("00:1b:DC:07:32:f1")
	if err != nil {
		t.Fatalf("parse failed: %s", err.Error())
	}

	if a != (BdAddr{0x00, 0x1b, 0xdc, 0x07, 0x32, 0xf1}) {
		t.Fatalf("got %v", a)
	}
	if a.String() != "00:1B:DC:07:32:F1" {
		t.Fatalf("String()=%s", a.String())
	}
	if a.Reversed() != [6]byte{0xf1, 0x32, 0x07, 0xdc, 0x1b, 0x00} {
		t.Fatalf("Reversed()=%x", a.Reversed())
	}

	for _, s := range []string{
		"",
		"00:1b:dc:07:32",
		"00:1b:dc:07:32:f1:00",
		"00:1b:dc:07:32:g1",
		"0:1b:dc:07:32:f1",
	} {
		if _, err := ParseBdAddr(s); err == nil {
			t.Errorf("%q: expected failure", s)
		}
	}
}
