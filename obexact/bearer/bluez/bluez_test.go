package bluez

import (
	"testing"

	"mynewt.apache.org/obexmgr/obexact/bearer"
	"mynewt.apache.org/obexmgr/obexact/obex"
)

func TestUuid128(t *testing.T) {
	tests := []struct {
		uuid16 uint16
		uuid   string
	}{
		{obex.SVC_OBEX_OBJECT_PUSH, "00001105-0000-1000-8000-00805f9b34fb"},
		{obex.SVC_PBAP_PSE, "0000112f-0000-1000-8000-00805f9b34fb"},
		{obex.SVC_MAP_MAS, "00001132-0000-1000-8000-00805f9b34fb"},
	}

	for _, test := range tests {
		if got := Uuid128(test.uuid16); got != test.uuid {
			t.Errorf("Uuid128(0x%04x)=%s, want %s", test.uuid16, got, test.uuid)
		}
	}
}

func TestDevicePath(t *testing.T) {
	addr, err := bearer.ParseBdAddr("00:1b:dc:07:32:f1")
	if err != nil {
		t.Fatalf("parse failed: %s", err.Error())
	}

	p := DevicePath("hci1", addr)
	if p != "/org/bluez/hci1/dev_00_1B_DC_07_32_F1" {
		t.Fatalf("got %s", p)
	}
	if !p.IsValid() {
		t.Fatalf("%s is not a valid object path", p)
	}
}

func TestHasUuid(t *testing.T) {
	uuids := []string{
		"0000110A-0000-1000-8000-00805F9B34FB",
		"0000112F-0000-1000-8000-00805F9B34FB",
	}

	if !hasUuid(uuids, obex.SVC_PBAP_PSE) {
		t.Fatalf("PBAP PSE not found")
	}
	if hasUuid(uuids, obex.SVC_MAP_MAS) {
		t.Fatalf("MAS reported but not offered")
	}
	if hasUuid(nil, obex.SVC_OBEX_OBJECT_PUSH) {
		t.Fatalf("empty list matched")
	}
}
