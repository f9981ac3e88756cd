package opp_test

import (
	"bytes"
	"testing"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/goep/goeptest"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
	"mynewt.apache.org/obexmgr/obexact/opp"
	"mynewt.apache.org/obexmgr/obexact/profile"
	"mynewt.apache.org/obexmgr/obexact/srm"
)

type fixture struct {
	t  *testing.T
	b  *goeptest.Bearer
	gs *goep.Session
	c  *opp.Client
	r  *goeptest.Recorder
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t: t,
		b: goeptest.NewBearer(512),
		r: &goeptest.Recorder{},
	}
	f.gs = goep.NewSession(goep.SessionCfg{
		Bearer: f.b,
		Lookup: &goeptest.Lookup{},
	})
	f.c = opp.NewClient(f.gs, f.r.Handle)
	return f
}

func (f *fixture) writable() []byte {
	n := len(f.b.Sent)
	f.gs.HandleEvent(goep.BearerWritable{})
	if len(f.b.Sent) == n {
		return nil
	}
	return f.b.Last()
}

func (f *fixture) respond(code uint8, reqOp uint8,
	build func(w *obex.PacketWriter)) {

	goeptest.Deliver(f.gs, goeptest.Response(code, reqOp, build))
}

func (f *fixture) connect(mtu int, goep2 bool) {
	if err := f.c.CreateConnection("00:11:22:33:44:55"); err != nil {
		f.t.Fatalf("create connection failed: %v", err)
	}
	goeptest.Establish(f.gs, goep.ServiceRecord{RfcommChannel: 12}, mtu,
		goep2)

	pkt := f.writable()
	if pkt == nil || pkt[0] != obex.OP_CONNECT {
		f.t.Fatalf("connect not sent: %x", pkt)
	}

	f.respond(obex.RSP_SUCCESS, obex.OP_CONNECT, func(w *obex.PacketWriter) {
		w.AppendConnectionId(7)
	})
	if f.c.State() != profile.STATE_CONNECTED {
		f.t.Fatalf("state=%s after connect", f.c.State())
	}
	co, ok := f.r.Events[0].(profile.ConnectionOpened)
	if !ok || co.Status != obex.RESULT_SUCCESS {
		f.t.Fatalf("unexpected event %+v", f.r.Events[0])
	}
	if f.gs.ConnectionId() != 7 {
		f.t.Fatalf("connection id=%d", f.gs.ConnectionId())
	}
	f.r.Reset()
}

func (f *fixture) completions() []obex.Result {
	var res []obex.Result
	for _, ev := range f.r.Events {
		if oc, ok := ev.(profile.OperationCompleted); ok {
			res = append(res, oc.Status)
		}
	}
	return res
}

type hdr struct {
	id      uint8
	payload []byte
}

func headers(pkt []byte) []hdr {
	var hs []hdr
	it := obex.NewRequestIterator(pkt)
	for ; it.HasMore(); it.Advance() {
		hs = append(hs, hdr{it.HeaderId(), it.Payload()})
	}
	return hs
}

func body(pkt []byte) []byte {
	var b []byte
	for _, h := range headers(pkt) {
		if h.id == obex.HDR_BODY || h.id == obex.HDR_END_OF_BODY {
			b = append(b, h.payload...)
		}
	}
	return b
}

func TestPushSinglePacket(t *testing.T) {
	f := newFixture(t)
	f.connect(512, false)

	vcard := []byte("BEGIN:VCARD\n...END:VCARD")
	if err := f.c.PushObject("pb.vcf", "text/x-vcard", vcard,
		uint32(len(vcard))); err != nil {

		t.Fatalf("push failed: %v", err)
	}

	pkt := f.writable()
	if pkt[0] != obex.OP_PUT|obex.FINAL_BIT {
		t.Fatalf("opcode=0x%02x, want final put", pkt[0])
	}

	hs := headers(pkt)
	if len(hs) != 5 {
		t.Fatalf("unexpected header count %d", len(hs))
	}
	if hs[0].id != obex.HDR_CONNECTION_ID {
		t.Fatalf("first header 0x%02x", hs[0].id)
	}
	if hs[1].id != obex.HDR_NAME || obex.DecodeUnicode(hs[1].payload) != "pb.vcf" {
		t.Fatalf("bad name header: %+v", hs[1])
	}
	if hs[2].id != obex.HDR_TYPE || string(hs[2].payload) != "text/x-vcard\x00" {
		t.Fatalf("bad type header: %+v", hs[2])
	}
	if hs[3].id != obex.HDR_LENGTH ||
		!bytes.Equal(hs[3].payload, []byte{0, 0, 0, 24}) {

		t.Fatalf("bad length header: %+v", hs[3])
	}
	if hs[4].id != obex.HDR_END_OF_BODY {
		t.Fatalf("body header 0x%02x, want end-of-body", hs[4].id)
	}
	if !bytes.Equal(body(pkt), vcard) {
		t.Fatalf("body=%q", body(pkt))
	}

	f.respond(obex.RSP_SUCCESS, obex.OP_PUT, nil)
	if c := f.completions(); len(c) != 1 || c[0] != obex.RESULT_SUCCESS {
		t.Fatalf("completions: %v", c)
	}
	if f.c.State() != profile.STATE_CONNECTED {
		t.Fatalf("state=%s", f.c.State())
	}
}

func TestPushChunked(t *testing.T) {
	f := newFixture(t)
	f.connect(255, false)

	const size = 600
	obj := make([]byte, size)
	for i := range obj {
		obj[i] = byte(i)
	}

	if err := f.c.PushObject("big.bin", "application/octet-stream", nil,
		size); err != nil {

		t.Fatalf("push failed: %v", err)
	}

	var got []byte
	prevPos := uint32(0)
	finals := 0

	for step := 0; f.c.State() != profile.STATE_CONNECTED; step++ {
		if step > 50 {
			t.Fatalf("push did not finish")
		}

		for _, ev := range f.r.Events {
			req, ok := ev.(profile.PushObjectData)
			if !ok {
				continue
			}
			if req.Offset != f.c.TotalPos() || req.Capacity <= 0 {
				t.Fatalf("bad chunk request %+v at pos %d",
					req, f.c.TotalPos())
			}
			end := req.Offset + 100
			if end > size {
				end = size
			}
			if err := f.c.PushObjectChunk(obj[req.Offset:end],
				req.Offset); err != nil {

				t.Fatalf("chunk push failed: %v", err)
			}
		}
		f.r.Reset()

		pkt := f.writable()
		if pkt == nil {
			t.Fatalf("step %d: nothing sent", step)
		}
		got = append(got, body(pkt)...)

		pos := f.c.TotalPos()
		if pos <= prevPos || pos > size {
			t.Fatalf("step %d: position %d after %d", step, pos, prevPos)
		}
		prevPos = pos

		final := pkt[0]&obex.FINAL_BIT != 0
		if final != (pos == size) {
			t.Fatalf("step %d: final=%v at pos %d", step, final, pos)
		}
		hs := headers(pkt)
		wantId := obex.HDR_BODY
		if final {
			wantId = obex.HDR_END_OF_BODY
		}
		if id := hs[len(hs)-1].id; id != wantId {
			t.Fatalf("step %d: body header 0x%02x, want 0x%02x",
				step, id, wantId)
		}

		if final {
			finals++
			f.respond(obex.RSP_SUCCESS, obex.OP_PUT, nil)
		} else {
			f.respond(obex.RSP_CONTINUE, obex.OP_PUT, nil)
		}
	}

	if finals != 1 || !bytes.Equal(got, obj) {
		t.Fatalf("finals=%d, got %d bytes", finals, len(got))
	}
	if c := f.completions(); len(c) != 1 || c[0] != obex.RESULT_SUCCESS {
		t.Fatalf("completions: %v", c)
	}
}

func TestPushSrmStreaming(t *testing.T) {
	f := newFixture(t)
	f.connect(255, true)

	obj := bytes.Repeat([]byte("0123456789"), 100)
	f.c.PushObject("stream.bin", "application/octet-stream", obj,
		uint32(len(obj)))

	pkt := f.writable()
	if pkt[0]&obex.FINAL_BIT != 0 {
		t.Fatalf("first packet final")
	}
	srmHdrs := 0
	for _, h := range headers(pkt) {
		if h.id == obex.HDR_SRM {
			srmHdrs++
		}
	}
	if srmHdrs != 1 {
		t.Fatalf("srm headers in first packet: %d", srmHdrs)
	}
	got := body(pkt)

	f.respond(obex.RSP_CONTINUE, obex.OP_PUT, func(w *obex.PacketWriter) {
		w.AppendSrm(obex.SRM_ENABLE)
	})

	// From here on packets go out back to back.
	for i := 0; ; i++ {
		if i > 20 {
			t.Fatalf("stream did not finish")
		}
		pkt = f.writable()
		if pkt == nil {
			t.Fatalf("packet %d: writable did not produce a packet", i)
		}
		for _, h := range headers(pkt) {
			if h.id == obex.HDR_SRM {
				t.Fatalf("srm enable repeated")
			}
		}
		got = append(got, body(pkt)...)
		if pkt[0]&obex.FINAL_BIT != 0 {
			break
		}
	}

	if !bytes.Equal(got, obj) {
		t.Fatalf("streamed %d bytes, want %d", len(got), len(obj))
	}

	f.respond(obex.RSP_SUCCESS, obex.OP_PUT, nil)
	if c := f.completions(); len(c) != 1 || c[0] != obex.RESULT_SUCCESS {
		t.Fatalf("completions: %v", c)
	}
}

func TestPushEmptyObject(t *testing.T) {
	f := newFixture(t)
	f.connect(512, false)

	if err := f.c.PushObject("empty.txt", "text/plain", nil, 0); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	pkt := f.writable()
	if pkt == nil || pkt[0] != obex.OP_PUT|obex.FINAL_BIT {
		t.Fatalf("final put not sent: %x", pkt)
	}
	hs := headers(pkt)
	last := hs[len(hs)-1]
	if last.id != obex.HDR_END_OF_BODY || len(last.payload) != 0 {
		t.Fatalf("last header %+v, want empty end-of-body", last)
	}

	f.respond(obex.RSP_SUCCESS, obex.OP_PUT, nil)
	if c := f.completions(); len(c) != 1 || c[0] != obex.RESULT_SUCCESS {
		t.Fatalf("completions: %v", c)
	}
}

// A local SRM wait turns streaming back into request/response.
func TestPushSrmWaitHoldsStream(t *testing.T) {
	f := newFixture(t)
	f.connect(255, true)

	obj := bytes.Repeat([]byte("0123456789"), 100)
	f.c.PushObject("stream.bin", "application/octet-stream", obj,
		uint32(len(obj)))

	if pkt := f.writable(); pkt == nil {
		t.Fatalf("first packet not sent")
	}
	f.respond(obex.RSP_CONTINUE, obex.OP_PUT, func(w *obex.PacketWriter) {
		w.AppendSrm(obex.SRM_ENABLE)
	})
	if f.c.Srm().State() != srm.STATE_ENABLED {
		t.Fatalf("srm state=%s", f.c.Srm().State())
	}

	f.c.Srm().SetWaiting(true)

	if pkt := f.writable(); pkt == nil {
		t.Fatalf("second packet not sent")
	}
	if f.c.State() != profile.STATE_AWAITING_OPERATION_RESPONSE {
		t.Fatalf("state=%s while waiting", f.c.State())
	}
	writable := f.b.Writable
	if pkt := f.writable(); pkt != nil {
		t.Fatalf("unsolicited packet sent while waiting: %x", pkt)
	}
	if f.b.Writable != writable {
		t.Fatalf("can-send requested while waiting")
	}

	// Each response releases exactly one packet.
	f.respond(obex.RSP_CONTINUE, obex.OP_PUT, nil)
	if pkt := f.writable(); pkt == nil {
		t.Fatalf("packet not sent after response")
	}
	if pkt := f.writable(); pkt != nil {
		t.Fatalf("second packet sent for one response: %x", pkt)
	}
}

func TestAbortIsSilent(t *testing.T) {
	f := newFixture(t)
	f.connect(255, false)

	obj := make([]byte, 1000)
	f.c.PushObject("big.bin", "application/octet-stream", obj, 1000)
	f.writable()
	if f.c.State() != profile.STATE_AWAITING_OPERATION_RESPONSE {
		t.Fatalf("state=%s", f.c.State())
	}

	if err := f.c.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
	if err := f.c.Abort(); !obexutil.IsBusy(err) {
		t.Fatalf("second abort: err=%v", err)
	}

	pkt := f.writable()
	if pkt == nil || pkt[0] != obex.OP_ABORT {
		t.Fatalf("abort not sent: %x", pkt)
	}

	f.respond(obex.RSP_SUCCESS, obex.OP_ABORT, nil)
	if f.c.State() != profile.STATE_CONNECTED {
		t.Fatalf("state=%s after abort", f.c.State())
	}
	if c := f.completions(); len(c) != 0 {
		t.Fatalf("abort produced completions: %v", c)
	}
	if err := f.c.Abort(); !obexutil.IsBusy(err) {
		t.Fatalf("abort while idle: err=%v", err)
	}
}

func TestBusyRejection(t *testing.T) {
	f := newFixture(t)

	if err := f.c.PushObject("a", "b", []byte{1}, 1); !obexutil.IsBusy(err) {
		t.Fatalf("push before connect: err=%v", err)
	}
	if err := f.c.PullDefaultObject(); !obexutil.IsBusy(err) {
		t.Fatalf("pull before connect: err=%v", err)
	}

	f.connect(512, false)

	if err := f.c.CreateConnection("peer"); !obexutil.IsBusy(err) {
		t.Fatalf("second connect: err=%v", err)
	}
	if err := f.c.PushObjectChunk([]byte{1}, 0); !obexutil.IsBusy(err) {
		t.Fatalf("chunk without push: err=%v", err)
	}

	sent := len(f.b.Sent)
	writable := f.b.Writable

	f.c.PushObject("a", "b", nil, 10)
	if err := f.c.PushObject("a", "b", nil, 10); !obexutil.IsBusy(err) {
		t.Fatalf("push during push: err=%v", err)
	}
	if err := f.c.PushObjectChunk([]byte{1, 2}, 5); !obexutil.IsBusy(err) {
		t.Fatalf("out of order chunk: err=%v", err)
	}
	if len(f.b.Sent) != sent || f.b.Writable != writable {
		t.Fatalf("rejected calls caused bearer traffic")
	}
}

func TestPullDefaultObject(t *testing.T) {
	f := newFixture(t)
	f.connect(512, false)

	if err := f.c.PullDefaultObject(); err != nil {
		t.Fatalf("pull failed: %v", err)
	}

	pkt := f.writable()
	if pkt[0] != obex.OP_GET|obex.FINAL_BIT {
		t.Fatalf("opcode=0x%02x", pkt[0])
	}
	hs := headers(pkt)
	if hs[len(hs)-1].id != obex.HDR_TYPE ||
		string(hs[len(hs)-1].payload) != "text/x-vcard\x00" {

		t.Fatalf("type header missing: %+v", hs)
	}

	f.respond(obex.RSP_CONTINUE, obex.OP_GET, func(w *obex.PacketWriter) {
		w.AppendHeader(obex.HDR_BODY, []byte("BEGIN:VCARD\n"))
	})

	pkt = f.writable()
	if pkt == nil {
		t.Fatalf("follow-up get not sent")
	}
	for _, h := range headers(pkt) {
		if h.id == obex.HDR_TYPE {
			t.Fatalf("type repeated in follow-up get")
		}
	}

	f.respond(obex.RSP_SUCCESS, obex.OP_GET, func(w *obex.PacketWriter) {
		w.AppendEndOfBody([]byte("END:VCARD\n"))
	})

	var data []byte
	for _, ev := range f.r.Events {
		if d, ok := ev.(profile.Data); ok {
			data = append(data, d.Bytes...)
		}
	}
	if string(data) != "BEGIN:VCARD\nEND:VCARD\n" {
		t.Fatalf("data=%q", data)
	}
	if c := f.completions(); len(c) != 1 || c[0] != obex.RESULT_SUCCESS {
		t.Fatalf("completions: %v", c)
	}
}

func TestPushErrorResponse(t *testing.T) {
	cases := []struct {
		code uint8
		want obex.Result
	}{
		{obex.RSP_NOT_FOUND, obex.RESULT_NOT_FOUND},
		{obex.RSP_FORBIDDEN, obex.RESULT_NOT_ACCEPTABLE},
		{obex.RSP_ENTITY_TOO_LARGE, obex.RESULT_NOT_ACCEPTABLE},
		{obex.RSP_NOT_IMPLEMENTED, obex.RESULT_NOT_IMPLEMENTED},
		{obex.RSP_INTERNAL_SERVER_ERROR, obex.RESULT_UNKNOWN_ERROR},
	}

	for _, c := range cases {
		f := newFixture(t)
		f.connect(512, false)

		f.c.PushObject("a.txt", "text/plain", []byte("x"), 1)
		f.writable()
		f.respond(c.code, obex.OP_PUT, nil)

		res := f.completions()
		if len(res) != 1 || res[0] != c.want {
			t.Fatalf("rsp %s: completions %v, want %s",
				obex.RspString(c.code), res, c.want)
		}
		if f.c.State() != profile.STATE_CONNECTED {
			t.Fatalf("rsp %s: state=%s", obex.RspString(c.code), f.c.State())
		}
	}
}

func TestDisconnectMidOperation(t *testing.T) {
	f := newFixture(t)
	f.connect(255, false)

	f.c.PushObject("big.bin", "application/octet-stream", make([]byte, 900), 900)
	f.writable()

	if err := f.c.Disconnect(); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if c := f.completions(); len(c) != 1 || c[0] != obex.RESULT_DISCONNECTED {
		t.Fatalf("completions: %v", c)
	}

	pkt := f.writable()
	if pkt == nil || pkt[0] != obex.OP_DISCONNECT {
		t.Fatalf("disconnect not sent: %x", pkt)
	}

	f.respond(obex.RSP_SUCCESS, obex.OP_DISCONNECT, nil)
	if f.b.Closes != 1 {
		t.Fatalf("bearer not closed")
	}

	f.r.Reset()
	f.gs.HandleEvent(goep.BearerClosed{})
	if len(f.r.Events) != 1 {
		t.Fatalf("events: %v", f.r.Events)
	}
	if _, ok := f.r.Events[0].(profile.ConnectionClosed); !ok {
		t.Fatalf("unexpected event %+v", f.r.Events[0])
	}
	if f.c.State() != profile.STATE_INIT {
		t.Fatalf("state=%s", f.c.State())
	}
}

func TestDisconnectDuringAbort(t *testing.T) {
	f := newFixture(t)
	f.connect(255, false)

	f.c.PushObject("big.bin", "application/octet-stream", make([]byte, 900), 900)
	f.writable()

	if err := f.c.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
	pkt := f.writable()
	if pkt == nil || pkt[0] != obex.OP_ABORT {
		t.Fatalf("abort not sent: %x", pkt)
	}
	if f.c.State() != profile.STATE_AWAITING_ABORT_RESPONSE {
		t.Fatalf("state=%s", f.c.State())
	}

	if err := f.c.Disconnect(); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if c := f.completions(); len(c) != 0 {
		t.Fatalf("aborted operation reported: %v", c)
	}

	pkt = f.writable()
	if pkt == nil || pkt[0] != obex.OP_DISCONNECT {
		t.Fatalf("disconnect not sent: %x", pkt)
	}
}

func TestBearerLossMidOperation(t *testing.T) {
	f := newFixture(t)
	f.connect(512, false)

	f.c.PushObject("a.txt", "text/plain", nil, 100)
	f.r.Reset()
	f.gs.HandleEvent(goep.BearerClosed{})

	if len(f.r.Events) != 2 {
		t.Fatalf("events: %v", f.r.Events)
	}
	oc, ok := f.r.Events[0].(profile.OperationCompleted)
	if !ok || oc.Status != obex.RESULT_DISCONNECTED {
		t.Fatalf("unexpected event %+v", f.r.Events[0])
	}
	if _, ok := f.r.Events[1].(profile.ConnectionClosed); !ok {
		t.Fatalf("unexpected event %+v", f.r.Events[1])
	}
}

func TestConnectRejected(t *testing.T) {
	f := newFixture(t)
	f.c.CreateConnection("peer")
	goeptest.Establish(f.gs, goep.ServiceRecord{RfcommChannel: 12}, 512, false)
	f.writable()

	f.respond(obex.RSP_FORBIDDEN, obex.OP_CONNECT, nil)

	co, ok := f.r.Events[0].(profile.ConnectionOpened)
	if !ok || co.Status != obex.RESULT_CONNECT_FAILED {
		t.Fatalf("unexpected event %+v", f.r.Events[0])
	}
	if f.c.State() != profile.STATE_INIT || f.b.Closes != 1 {
		t.Fatalf("state=%s closes=%d", f.c.State(), f.b.Closes)
	}
}

func TestMalformedResponseClosesSession(t *testing.T) {
	f := newFixture(t)
	f.connect(512, false)

	f.c.PushObject("a.txt", "text/plain", []byte("x"), 1)
	f.writable()
	goeptest.Deliver(f.gs, []byte{obex.RSP_SUCCESS, 0x00, 0x01})

	if c := f.completions(); len(c) != 1 || c[0] != obex.RESULT_PROTOCOL_ERROR {
		t.Fatalf("completions: %v", c)
	}
	if f.b.Closes != 1 {
		t.Fatalf("bearer not closed")
	}
}
