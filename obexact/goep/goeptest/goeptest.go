// Package goeptest provides a recording bearer, a lookup and a small
// harness for driving a goep.Session and the profile clients on top of it
// with synthetic events in tests.
package goeptest

import (
	"testing"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/profile"
)

type Bearer struct {
	MtuVal  int
	OpenErr error
	SendErr error

	Opens    []goep.ServiceRecord
	Sent     [][]byte
	Writable int
	Closes   int
}

func NewBearer(mtu int) *Bearer {
	return &Bearer{MtuVal: mtu}
}

func (b *Bearer) Open(peer string, rec goep.ServiceRecord) error {
	if b.OpenErr != nil {
		return b.OpenErr
	}
	b.Opens = append(b.Opens, rec)
	return nil
}

func (b *Bearer) Send(p []byte) error {
	if b.SendErr != nil {
		return b.SendErr
	}
	b.Sent = append(b.Sent, append([]byte(nil), p...))
	return nil
}

func (b *Bearer) RequestWritable() {
	b.Writable++
}

func (b *Bearer) Close() error {
	b.Closes++
	return nil
}

func (b *Bearer) Mtu() int {
	return b.MtuVal
}

// The most recently sent packet; nil if none.
func (b *Bearer) Last() []byte {
	if len(b.Sent) == 0 {
		return nil
	}
	return b.Sent[len(b.Sent)-1]
}

type Lookup struct {
	Err     error
	Queries []uint16
}

func (l *Lookup) Lookup(peer string, svcUuid uint16, instance int) error {
	if l.Err != nil {
		return l.Err
	}
	l.Queries = append(l.Queries, svcUuid)
	return nil
}

// Collects the events a session or client emits.
type Recorder struct {
	Events []interface{}
}

func (r *Recorder) Handle(ev interface{}) {
	r.Events = append(r.Events, ev)
}

func (r *Recorder) Reset() {
	r.Events = nil
}

// Completes the lookup and the bearer open for a session whose
// CreateConnection has already been called.
func Establish(s *goep.Session, rec goep.ServiceRecord, mtu int, goep2 bool) {
	s.HandleEvent(goep.LookupResult{
		Status: obex.RESULT_SUCCESS,
		Record: rec,
	})
	s.HandleEvent(goep.BearerOpened{
		Status: obex.RESULT_SUCCESS,
		Mtu:    mtu,
		Handle: 0x0b,
		Goep2:  goep2,
	})
}

// Builds a response packet for the given request opcode.
func Response(code uint8, reqOp uint8, build func(w *obex.PacketWriter)) []byte {
	w := obex.NewPacketWriter(make([]byte, 1024))
	w.BeginResponse(code, reqOp, 0x0400)
	if build != nil {
		build(w)
	}
	return append([]byte(nil), w.Bytes()...)
}

// Delivers a peer packet to the session.
func Deliver(s *goep.Session, pkt []byte) {
	s.HandleEvent(goep.BearerData{Data: pkt})
}

type Header struct {
	Id      uint8
	Payload []byte
}

// Lists the headers of a request packet.
func Headers(pkt []byte) []Header {
	var hs []Header
	it := obex.NewRequestIterator(pkt)
	for ; it.HasMore(); it.Advance() {
		hs = append(hs, Header{it.HeaderId(), it.Payload()})
	}
	return hs
}

// Returns the payload of the first header with the given ID.
func FindHeader(pkt []byte, id uint8) ([]byte, bool) {
	for _, h := range Headers(pkt) {
		if h.Id == id {
			return h.Payload, true
		}
	}
	return nil, false
}

type Connector interface {
	CreateConnection(peer string) error
}

// A session over a recording bearer, with events captured by a Recorder.
type Harness struct {
	T       *testing.T
	Bearer  *Bearer
	Session *goep.Session
	Rec     *Recorder
}

func NewHarness(t *testing.T, mtu int) *Harness {
	b := NewBearer(mtu)
	return &Harness{
		T:      t,
		Bearer: b,
		Session: goep.NewSession(goep.SessionCfg{
			Bearer: b,
			Lookup: &Lookup{},
		}),
		Rec: &Recorder{},
	}
}

// Signals writability and returns the packet sent in response, or nil.
func (h *Harness) Writable() []byte {
	n := len(h.Bearer.Sent)
	h.Session.HandleEvent(goep.BearerWritable{})
	if len(h.Bearer.Sent) == n {
		return nil
	}
	return h.Bearer.Last()
}

func (h *Harness) Respond(code uint8, reqOp uint8,
	build func(w *obex.PacketWriter)) {

	Deliver(h.Session, Response(code, reqOp, build))
}

// Brings c up to the connected state against a peer with record rec.
// Returns the CONNECT request.  Recorded events are cleared.
func (h *Harness) Connect(c Connector, rec goep.ServiceRecord,
	goep2 bool) []byte {

	if err := c.CreateConnection("00:1b:dc:07:32:f1"); err != nil {
		h.T.Fatalf("create connection failed: %v", err)
	}
	Establish(h.Session, rec, h.Bearer.MtuVal, goep2)

	req := h.Writable()
	if req == nil || req[0] != obex.OP_CONNECT {
		h.T.Fatalf("connect not sent: %x", req)
	}

	h.Respond(obex.RSP_SUCCESS, obex.OP_CONNECT, func(w *obex.PacketWriter) {
		w.AppendConnectionId(1)
	})
	h.Rec.Reset()

	return req
}

// Statuses of the OperationCompleted events recorded so far.
func (h *Harness) Completions() []obex.Result {
	var res []obex.Result
	for _, ev := range h.Rec.Events {
		if e, ok := ev.(profile.OperationCompleted); ok {
			res = append(res, e.Status)
		}
	}
	return res
}
