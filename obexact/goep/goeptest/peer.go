package goeptest

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obex"
)

// Answers one request packet.  Each returned packet is written back in
// order; none means the request goes unanswered.
type PeerHandler func(req []byte) [][]byte

// An OBEX server at the far end of an in-memory pipe.  Dial matches
// bearer.DialFn.
type Peer struct {
	Handler PeerHandler

	mtx  sync.Mutex
	reqs [][]byte
	conn net.Conn
}

func NewPeer(h PeerHandler) *Peer {
	return &Peer{Handler: h}
}

func (p *Peer) Dial(peer string, rec goep.ServiceRecord) (io.ReadWriteCloser, error) {
	local, remote := net.Pipe()

	p.mtx.Lock()
	p.conn = remote
	p.mtx.Unlock()

	go p.serve(remote)
	return local, nil
}

func (p *Peer) serve(c net.Conn) {
	defer c.Close()

	for {
		hdr := make([]byte, 3)
		if _, err := io.ReadFull(c, hdr); err != nil {
			return
		}

		n := int(binary.BigEndian.Uint16(hdr[1:]))
		if n < 3 {
			return
		}
		req := make([]byte, n)
		copy(req, hdr)
		if _, err := io.ReadFull(c, req[3:]); err != nil {
			return
		}

		p.mtx.Lock()
		p.reqs = append(p.reqs, req)
		p.mtx.Unlock()

		for _, rsp := range p.Handler(req) {
			if _, err := c.Write(rsp); err != nil {
				return
			}
		}
	}
}

// Drops the connection as if the peer went out of range.
func (p *Peer) Hangup() {
	p.mtx.Lock()
	c := p.conn
	p.mtx.Unlock()

	if c != nil {
		c.Close()
	}
}

// Copies of the requests received so far.
func (p *Peer) Requests() [][]byte {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return append([][]byte(nil), p.reqs...)
}

// A minimal server: accepts CONNECT and DISCONNECT, acknowledges PUT and
// SETPATH, serves object for every GET in a single response, and aborts on
// request.  Object may be nil.
func BasicPeerHandler(object []byte) PeerHandler {
	return func(req []byte) [][]byte {
		op := req[0]

		switch op {
		case obex.OP_CONNECT:
			return [][]byte{Response(obex.RSP_SUCCESS, obex.OP_CONNECT,
				func(w *obex.PacketWriter) {
					w.AppendConnectionId(1)
				})}

		case obex.OP_PUT:
			return [][]byte{Response(obex.RSP_CONTINUE, obex.OP_PUT, nil)}

		case obex.OP_GET, obex.OP_GET | obex.FINAL_BIT:
			return [][]byte{Response(obex.RSP_SUCCESS, obex.OP_GET,
				func(w *obex.PacketWriter) {
					w.AppendEndOfBody(object)
				})}

		default:
			return [][]byte{Response(obex.RSP_SUCCESS, op&^obex.FINAL_BIT, nil)}
		}
	}
}
