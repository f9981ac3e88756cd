package tcp

import (
	"net"
	"testing"
	"time"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obex"
)

func TestPeerAddr(t *testing.T) {
	tests := []struct {
		peer string
		addr string
	}{
		{"phone.local", "phone.local:650"},
		{"10.0.0.2:6500", "10.0.0.2:6500"},
		{"::1", "[::1]:650"},
	}

	for _, test := range tests {
		if got := PeerAddr(test.peer); got != test.addr {
			t.Errorf("PeerAddr(%q)=%q, want %q", test.peer, got, test.addr)
		}
	}
}

func TestDialLoopback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("no loopback listener: %s", err.Error())
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Write([]byte{0xa0, 0x00, 0x03})
			c.Close()
		}
	}()

	events := make(chan goep.Event, 8)
	cfg := NewXportCfg()
	cfg.Dialer = &net.Dialer{Timeout: time.Second}
	b := NewBearer(cfg, func(ev goep.Event) { events <- ev })

	if err := b.Open(ln.Addr().String(), goep.ServiceRecord{}); err != nil {
		t.Fatalf("open failed: %s", err.Error())
	}

	var sawOpen, sawData, sawClose bool
	for !sawClose {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case goep.BearerOpened:
				if e.Status != obex.RESULT_SUCCESS || e.Mtu != MAX_PACKET_SIZE {
					t.Fatalf("unexpected open event: %+v", e)
				}
				sawOpen = true
			case goep.BearerData:
				sawData = true
			case goep.BearerClosed:
				sawClose = true
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout; open=%v data=%v", sawOpen, sawData)
		}
	}

	if !sawOpen || !sawData {
		t.Fatalf("open=%v data=%v", sawOpen, sawData)
	}
	b.Wait()
}
