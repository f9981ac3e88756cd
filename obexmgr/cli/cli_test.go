package cli

import (
	"testing"

	"mynewt.apache.org/obexmgr/obexact/profile"
	"mynewt.apache.org/obexmgr/obexmgr/config"
	"mynewt.apache.org/obexmgr/obexmgr/omutil"
)

func TestConnProfileOverrides(t *testing.T) {
	defer func() {
		omutil.ConnType = ""
		omutil.ConnString = ""
		omutil.ConnExtra = ""
	}()

	if _, err := getConnProfile(); err == nil {
		t.Fatalf("profile without a type accepted")
	}

	omutil.ConnType = "tcp"
	omutil.ConnString = "peer=127.0.0.1:650"
	omutil.ConnExtra = "mtu=1024"

	cp, err := getConnProfile()
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if cp.Type != config.CONN_TYPE_TCP {
		t.Fatalf("have type %s", config.ConnTypeToString(cp.Type))
	}
	if cp.ConnString != "peer=127.0.0.1:650,mtu=1024" {
		t.Fatalf("have connstring %q", cp.ConnString)
	}

	omutil.ConnType = "carrier-pigeon"
	if _, err := getConnProfile(); err == nil {
		t.Fatalf("bogus connection type accepted")
	}
}

func TestParseMask(t *testing.T) {
	tests := []struct {
		s    string
		want uint32
		ok   bool
	}{
		{"", 0, true},
		{"1023", 1023, true},
		{"0x3ff", 0x3ff, true},
		{"0xzz", 0, false},
		{"lots", 0, false},
	}

	for _, tt := range tests {
		v, err := parseMask(tt.s)
		if (err == nil) != tt.ok {
			t.Errorf("%q: unexpected error state %v", tt.s, err)
			continue
		}
		if tt.ok && v != tt.want {
			t.Errorf("%q: have %d, want %d", tt.s, v, tt.want)
		}
	}
}

func TestItemString(t *testing.T) {
	s := itemString(profile.FolderItem{Name: "inbox"})
	if s != "Name=inbox" {
		t.Fatalf("have %q", s)
	}

	s = itemString(profile.MessageItem{Handle: "20000100001", Read: true})
	want := "Datetime= Handle=20000100001 Read=true Sender= Subject= Type="
	if s != want {
		t.Fatalf("have %q, want %q", s, want)
	}
}
