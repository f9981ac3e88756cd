package goep_test

import (
	"bytes"
	"fmt"
	"testing"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/goep/goeptest"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
)

var testRecord = goep.ServiceRecord{RfcommChannel: 9}

func newSession() (*goep.Session, *goeptest.Bearer, *goeptest.Lookup,
	*goeptest.Recorder) {

	b := goeptest.NewBearer(512)
	l := &goeptest.Lookup{}
	s := goep.NewSession(goep.SessionCfg{
		Bearer: b,
		Lookup: l,
	})
	return s, b, l, &goeptest.Recorder{}
}

func connect(t *testing.T, s *goep.Session, r *goeptest.Recorder, mtu int,
	goep2 bool) {

	if _, err := s.CreateConnection("00:11:22:33:44:55",
		obex.SVC_OBEX_OBJECT_PUSH, 0, r.Handle); err != nil {

		t.Fatalf("create connection failed: %v", err)
	}
	goeptest.Establish(s, testRecord, mtu, goep2)
	if s.State() != goep.SESN_STATE_CONNECTED {
		t.Fatalf("state=%s after open", s.State())
	}
}

func TestSessionConnect(t *testing.T) {
	s, b, l, r := newSession()

	id, err := s.CreateConnection("00:11:22:33:44:55",
		obex.SVC_OBEX_OBJECT_PUSH, 0, r.Handle)
	if err != nil {
		t.Fatalf("create connection failed: %v", err)
	}
	if id == 0 || s.State() != goep.SESN_STATE_AWAITING_LOOKUP {
		t.Fatalf("id=%d state=%s", id, s.State())
	}
	if len(l.Queries) != 1 || l.Queries[0] != obex.SVC_OBEX_OBJECT_PUSH {
		t.Fatalf("lookup queries: %v", l.Queries)
	}

	_, err = s.CreateConnection("00:11:22:33:44:55",
		obex.SVC_OBEX_OBJECT_PUSH, 0, r.Handle)
	if !obexutil.IsBusy(err) {
		t.Fatalf("second create: err=%v, want busy", err)
	}

	goeptest.Establish(s, testRecord, 672, false)
	if len(b.Opens) != 1 || b.Opens[0].RfcommChannel != 9 {
		t.Fatalf("bearer opens: %v", b.Opens)
	}
	if len(r.Events) != 1 {
		t.Fatalf("events: %v", r.Events)
	}
	co, ok := r.Events[0].(goep.ConnectionOpened)
	if !ok || co.Status != obex.RESULT_SUCCESS || co.Incoming ||
		co.Handle != 0x0b {

		t.Fatalf("unexpected event: %+v", r.Events[0])
	}
	if s.Mtu() != 672 || s.Version20OrHigher() {
		t.Fatalf("mtu=%d goep2=%v", s.Mtu(), s.Version20OrHigher())
	}
}

func TestSessionLookupFailures(t *testing.T) {
	cases := []struct {
		name string
		res  goep.LookupResult
	}{
		{"status", goep.LookupResult{Status: obex.RESULT_LOOKUP_FAILED}},
		{"no-channel", goep.LookupResult{Status: obex.RESULT_SUCCESS}},
	}

	for _, c := range cases {
		s, b, _, r := newSession()
		s.CreateConnection("peer", obex.SVC_PBAP_PSE, 0, r.Handle)
		s.HandleEvent(c.res)

		if s.State() != goep.SESN_STATE_INIT || len(b.Opens) != 0 {
			t.Fatalf("%s: state=%s opens=%d", c.name, s.State(), len(b.Opens))
		}
		co, ok := r.Events[0].(goep.ConnectionOpened)
		if !ok || co.Status != obex.RESULT_LOOKUP_FAILED {
			t.Fatalf("%s: unexpected event %+v", c.name, r.Events[0])
		}
	}
}

func TestSessionBearerOpenFailure(t *testing.T) {
	s, b, _, r := newSession()
	b.OpenErr = fmt.Errorf("no route")

	s.CreateConnection("peer", obex.SVC_OBEX_OBJECT_PUSH, 0, r.Handle)
	s.HandleEvent(goep.LookupResult{Record: testRecord})

	co, ok := r.Events[0].(goep.ConnectionOpened)
	if !ok || co.Status != obex.RESULT_BEARER_FAILED {
		t.Fatalf("unexpected event %+v", r.Events[0])
	}
	if s.State() != goep.SESN_STATE_INIT {
		t.Fatalf("state=%s", s.State())
	}

	// Asynchronous failure.
	b.OpenErr = nil
	r.Reset()
	s.CreateConnection("peer", obex.SVC_OBEX_OBJECT_PUSH, 0, r.Handle)
	s.HandleEvent(goep.LookupResult{Record: testRecord})
	s.HandleEvent(goep.BearerOpened{Status: obex.RESULT_BEARER_FAILED})

	co, ok = r.Events[0].(goep.ConnectionOpened)
	if !ok || co.Status != obex.RESULT_BEARER_FAILED {
		t.Fatalf("unexpected event %+v", r.Events[0])
	}
}

func TestSessionCanSendNowOneShot(t *testing.T) {
	s, b, _, r := newSession()
	connect(t, s, r, 512, false)
	r.Reset()

	s.RequestCanSendNow()
	s.RequestCanSendNow()
	if b.Writable != 1 {
		t.Fatalf("bearer writable requests=%d, want 1", b.Writable)
	}

	s.HandleEvent(goep.BearerWritable{})
	s.HandleEvent(goep.BearerWritable{})
	if len(r.Events) != 1 {
		t.Fatalf("events: %v", r.Events)
	}
	if _, ok := r.Events[0].(goep.CanSendNow); !ok {
		t.Fatalf("unexpected event %+v", r.Events[0])
	}

	s.RequestCanSendNow()
	if b.Writable != 2 {
		t.Fatalf("re-arm failed; requests=%d", b.Writable)
	}
}

func TestSessionConnectionIdFirst(t *testing.T) {
	s, b, _, r := newSession()
	connect(t, s, r, 512, false)

	// CONNECT never carries a connection id.
	if err := s.CreateConnect(obex.VERSION, 0, 0xffff); err != nil {
		t.Fatalf("create connect: %v", err)
	}
	s.Execute(true)
	pkt := b.Last()
	if pkt[0] != obex.OP_CONNECT {
		t.Fatalf("opcode=0x%02x", pkt[0])
	}
	if maxLen := int(pkt[5])<<8 | int(pkt[6]); maxLen != 512 {
		t.Fatalf("connect max len=%d, want bearer mtu 512", maxLen)
	}
	if len(pkt) != 7 {
		t.Fatalf("connect carries headers: %x", pkt)
	}

	s.SetConnectionId(0x01020304)
	s.CreateGet()
	s.Writer().AppendType("x-bt/phonebook")
	if err := s.Execute(true); err != nil {
		t.Fatalf("execute: %v", err)
	}

	pkt = b.Last()
	if pkt[0] != obex.OP_GET|obex.FINAL_BIT {
		t.Fatalf("opcode=0x%02x", pkt[0])
	}
	it := obex.NewRequestIterator(pkt)
	if it.HeaderId() != obex.HDR_CONNECTION_ID || it.Value() != 0x01020304 {
		t.Fatalf("first header 0x%02x", it.HeaderId())
	}
	if s.LastOpcode() != obex.OP_GET {
		t.Fatalf("last opcode=0x%02x", s.LastOpcode())
	}
}

func TestSessionBufferOverflow(t *testing.T) {
	s, _, _, r := newSession()
	connect(t, s, r, 255, false)

	s.CreatePut()
	err := s.AppendHeader(obex.HDR_DESCRIPTION, make([]byte, 300))
	if !obexutil.IsBufferFull(err) {
		t.Fatalf("oversized header: err=%v", err)
	}

	body := bytes.Repeat([]byte{'x'}, 400)
	max := s.MaxBodySize()
	n, err := s.FillBody(body, true)
	if err != nil || n != max || n != 255-3-3 {
		t.Fatalf("fill: n=%d max=%d err=%v", n, max, err)
	}
	if s.MaxBodySize() != 0 {
		t.Fatalf("space left after fill: %d", s.MaxBodySize())
	}
}

func TestSessionFillBodyHeaderId(t *testing.T) {
	s, b, _, r := newSession()
	connect(t, s, r, 255, false)

	tests := []struct {
		size int
		last bool
		want uint8
	}{
		{24, false, obex.HDR_BODY},
		{24, true, obex.HDR_END_OF_BODY},
		{0, true, obex.HDR_END_OF_BODY},
		// Does not fit; the remainder follows in another packet.
		{400, true, obex.HDR_BODY},
	}

	for _, tt := range tests {
		s.CreatePut()
		if _, err := s.FillBody(make([]byte, tt.size), tt.last); err != nil {
			t.Fatalf("fill %d: %v", tt.size, err)
		}
		if err := s.Execute(tt.last); err != nil {
			t.Fatalf("execute: %v", err)
		}

		hs := goeptest.Headers(b.Last())
		id := hs[len(hs)-1].Id
		if id != tt.want {
			t.Errorf("size=%d last=%v: header 0x%02x, want 0x%02x",
				tt.size, tt.last, id, tt.want)
		}
	}
}

func TestSessionNoRequestIsBusy(t *testing.T) {
	s, _, _, r := newSession()
	connect(t, s, r, 255, false)

	if err := s.AppendHeader(obex.HDR_NAME, nil); !obexutil.IsBusy(err) {
		t.Fatalf("append: err=%v, want busy", err)
	}
	if _, err := s.FillBody([]byte("x"), true); !obexutil.IsBusy(err) {
		t.Fatalf("fill: err=%v, want busy", err)
	}
	if err := s.Execute(true); !obexutil.IsBusy(err) {
		t.Fatalf("execute: err=%v, want busy", err)
	}

	s.CreatePut()
	if err := s.Execute(true); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := s.Execute(true); !obexutil.IsBusy(err) {
		t.Fatalf("second execute: err=%v, want busy", err)
	}
}

func TestSessionPeerMaxPacketLen(t *testing.T) {
	s, _, _, r := newSession()
	connect(t, s, r, 1024, false)

	s.SetPeerMaxPacketLen(300)
	s.CreatePut()
	if s.Writer().Cap() != 300 {
		t.Fatalf("cap=%d, want 300", s.Writer().Cap())
	}
}

func TestSessionSendFailureClosesBearer(t *testing.T) {
	s, b, _, r := newSession()
	connect(t, s, r, 512, false)

	b.SendErr = fmt.Errorf("broken pipe")
	s.CreateGet()
	err := s.Execute(true)
	if !obexutil.IsXport(err) {
		t.Fatalf("err=%v, want transport error", err)
	}
	if b.Closes != 1 {
		t.Fatalf("bearer not closed")
	}
}

func TestSessionDataAndClose(t *testing.T) {
	s, _, _, r := newSession()
	connect(t, s, r, 512, true)
	r.Reset()

	if !s.Version20OrHigher() {
		t.Fatalf("goep2 flag not recorded")
	}

	goeptest.Deliver(s, []byte{obex.RSP_SUCCESS, 0, 3})
	s.HandleEvent(goep.BearerClosed{})
	s.HandleEvent(goep.BearerClosed{})

	if len(r.Events) != 2 {
		t.Fatalf("events: %v", r.Events)
	}
	if d, ok := r.Events[0].(goep.Data); !ok || len(d.Data) != 3 {
		t.Fatalf("unexpected event %+v", r.Events[0])
	}
	if _, ok := r.Events[1].(goep.ConnectionClosed); !ok {
		t.Fatalf("unexpected event %+v", r.Events[1])
	}
	if s.State() != goep.SESN_STATE_INIT ||
		s.ConnectionId() != obex.CONN_ID_INVALID {

		t.Fatalf("session not reset: state=%s", s.State())
	}
}

func TestStaticLookup(t *testing.T) {
	var got []goep.Event
	sink := func(ev goep.Event) { got = append(got, ev) }

	goep.NewStaticLookup(goep.ServiceRecord{L2capPsm: 0x1001}, sink).
		Lookup("peer", obex.SVC_MAP_MAS, 0)
	goep.NewStaticLookup(goep.ServiceRecord{}, sink).
		Lookup("peer", obex.SVC_MAP_MAS, 0)

	if got[0].(goep.LookupResult).Status != obex.RESULT_SUCCESS ||
		got[1].(goep.LookupResult).Status != obex.RESULT_LOOKUP_FAILED {

		t.Fatalf("unexpected results: %+v", got)
	}
}
