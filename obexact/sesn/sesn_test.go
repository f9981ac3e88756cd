package sesn_test

import (
	"bytes"
	"sync/atomic"
	"testing"
	"time"

	"mynewt.apache.org/obexmgr/obexact/bearer"
	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/goep/goeptest"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
	"mynewt.apache.org/obexmgr/obexact/opp"
	"mynewt.apache.org/obexmgr/obexact/profile"
	"mynewt.apache.org/obexmgr/obexact/sesn"
)

const peerAddr = "00:1B:DC:07:32:F1"

var card = []byte("BEGIN:VCARD\r\nVERSION:2.1\r\nN:Doe;John\r\nEND:VCARD\r\n")

func newSesn(t *testing.T, p *goeptest.Peer,
	mod func(cfg *sesn.SesnCfg)) *sesn.Sesn {

	cfg := sesn.NewSesnCfg()
	cfg.Peer = peerAddr
	cfg.Record = goep.ServiceRecord{RfcommChannel: 9}
	cfg.ConnTimeout = 2 * time.Second
	cfg.CloseTimeout = time.Second
	cfg.BuildBearer = func(sink goep.Sink) goep.Bearer {
		return bearer.NewConnBearer(bearer.ConnBearerCfg{
			Name: "pipe",
			Mtu:  512,
			Sink: sink,
			Dial: p.Dial,
		})
	}
	cfg.BuildClient = func(gs *goep.Session, h profile.Handler) sesn.Client {
		return opp.NewClient(gs, h)
	}
	if mod != nil {
		mod(&cfg)
	}

	s, err := sesn.NewSesn(cfg)
	if err != nil {
		t.Fatalf("NewSesn failed: %s", err.Error())
	}
	return s
}

func nextEvent(t *testing.T, s *sesn.Sesn) interface{} {
	ev, err := s.NextEvent(2 * time.Second)
	if err != nil {
		t.Fatalf("no event: %s", err.Error())
	}
	return ev
}

func expectCompleted(t *testing.T, s *sesn.Sesn, status obex.Result) {
	for {
		switch e := nextEvent(t, s).(type) {
		case profile.OperationCompleted:
			if e.Status != status {
				t.Fatalf("status=%s, want %s", e.Status, status)
			}
			return
		case profile.Data:
		default:
			t.Fatalf("unexpected event %T", e)
		}
	}
}

func TestOpenPushPullClose(t *testing.T) {
	p := goeptest.NewPeer(goeptest.BasicPeerHandler(card))
	s := newSesn(t, p, nil)

	if err := s.Open(); err != nil {
		t.Fatalf("open failed: %s", err.Error())
	}
	if !s.IsOpen() {
		t.Fatalf("session not open")
	}
	if err := s.Open(); !obexutil.IsSesnAlreadyOpen(err) {
		t.Fatalf("second open: got %v", err)
	}
	if mtu := s.Mtu(); mtu != 512 {
		t.Fatalf("mtu=%d, want 512", mtu)
	}

	c := s.Client().(*opp.Client)
	err := s.Run(func() error {
		return c.PushObject("john.vcf", "text/x-vcard", card, uint32(len(card)))
	})
	if err != nil {
		t.Fatalf("push failed: %s", err.Error())
	}
	expectCompleted(t, s, obex.RESULT_SUCCESS)
	if !s.Idle() {
		t.Fatalf("client not idle after push")
	}

	if err := s.Run(c.PullDefaultObject); err != nil {
		t.Fatalf("pull failed: %s", err.Error())
	}
	data, ok := nextEvent(t, s).(profile.Data)
	if !ok || !bytes.Equal(data.Bytes, card) {
		t.Fatalf("unexpected pull data")
	}
	expectCompleted(t, s, obex.RESULT_SUCCESS)

	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %s", err.Error())
	}
	if s.IsOpen() {
		t.Fatalf("session still open")
	}
	if err := s.Close(); !obexutil.IsSesnClosed(err) {
		t.Fatalf("second close: got %v", err)
	}
	if err := s.Run(func() error { return nil }); !obexutil.IsSesnClosed(err) {
		t.Fatalf("run on closed session: got %v", err)
	}

	reqs := p.Requests()
	if len(reqs) != 4 {
		t.Fatalf("peer saw %d requests, want 4", len(reqs))
	}
	ops := []uint8{
		obex.OP_CONNECT,
		obex.OP_PUT | obex.FINAL_BIT,
		obex.OP_GET | obex.FINAL_BIT,
		obex.OP_DISCONNECT,
	}
	for i, op := range ops {
		if reqs[i][0] != op {
			t.Errorf("request %d: opcode 0x%02x, want 0x%02x", i, reqs[i][0], op)
		}
	}
}

func TestOpenRefusedThenRetry(t *testing.T) {
	var accept int32
	basic := goeptest.BasicPeerHandler(nil)
	p := goeptest.NewPeer(func(req []byte) [][]byte {
		if req[0] == obex.OP_CONNECT && atomic.LoadInt32(&accept) == 0 {
			return [][]byte{goeptest.Response(obex.RSP_FORBIDDEN,
				obex.OP_CONNECT, nil)}
		}
		return basic(req)
	})
	s := newSesn(t, p, nil)

	err := s.Open()
	if !obexutil.IsXport(err) {
		t.Fatalf("refused open: got %v", err)
	}
	if s.IsOpen() {
		t.Fatalf("refused session reports open")
	}

	atomic.StoreInt32(&accept, 1)
	if err := s.Open(); err != nil {
		t.Fatalf("retry failed: %s", err.Error())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %s", err.Error())
	}
}

func TestOpenTimeout(t *testing.T) {
	p := goeptest.NewPeer(func(req []byte) [][]byte {
		return nil
	})
	s := newSesn(t, p, func(cfg *sesn.SesnCfg) {
		cfg.ConnTimeout = 100 * time.Millisecond
	})

	if err := s.Open(); !obexutil.IsRspTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if s.IsOpen() {
		t.Fatalf("timed out session reports open")
	}
}

func TestLookupFailure(t *testing.T) {
	p := goeptest.NewPeer(goeptest.BasicPeerHandler(nil))
	s := newSesn(t, p, func(cfg *sesn.SesnCfg) {
		cfg.Record = goep.ServiceRecord{}
	})

	if err := s.Open(); !obexutil.IsXport(err) {
		t.Fatalf("expected lookup failure, got %v", err)
	}
	if len(p.Requests()) != 0 {
		t.Fatalf("peer contacted despite failed lookup")
	}
}

func TestConnectionLost(t *testing.T) {
	closed := make(chan struct{})
	p := goeptest.NewPeer(goeptest.BasicPeerHandler(nil))
	s := newSesn(t, p, func(cfg *sesn.SesnCfg) {
		cfg.OnCloseCb = func(s *sesn.Sesn) {
			close(closed)
		}
	})

	if err := s.Open(); err != nil {
		t.Fatalf("open failed: %s", err.Error())
	}

	p.Hangup()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("close callback not called")
	}

	if _, ok := nextEvent(t, s).(profile.ConnectionClosed); !ok {
		t.Fatalf("expected ConnectionClosed")
	}
	if s.IsOpen() {
		t.Fatalf("session still open after hangup")
	}
	if err := s.Close(); !obexutil.IsSesnClosed(err) {
		t.Fatalf("close after hangup: got %v", err)
	}
}

func TestNextEventTimeout(t *testing.T) {
	p := goeptest.NewPeer(goeptest.BasicPeerHandler(nil))
	s := newSesn(t, p, nil)

	if err := s.Open(); err != nil {
		t.Fatalf("open failed: %s", err.Error())
	}
	defer s.Close()

	_, err := s.NextEvent(50 * time.Millisecond)
	if !obexutil.IsRspTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}

	stop := make(chan struct{})
	close(stop)
	_, err = s.NextEventOrStop(time.Second, stop)
	if !obexutil.IsSesnClosed(err) {
		t.Fatalf("expected closed error, got %v", err)
	}
}
