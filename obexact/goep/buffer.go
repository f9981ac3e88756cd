/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package goep

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
)

func errNoRequest() error {
	return obexutil.NewBusyError("no request under construction")
}

func (s *Session) begin(op uint8, start func(w *obex.PacketWriter) error) error {
	if s.state != SESN_STATE_CONNECTED {
		return obexutil.NewSesnClosedError(
			"Attempt to build a request on an unconnected goep session")
	}

	c := s.PacketCap()
	if cap(s.buf) < c {
		s.buf = make([]byte, c)
	}
	s.w = obex.NewPacketWriter(s.buf[:c])

	if err := start(s.w); err != nil {
		s.w = nil
		return err
	}

	if op != obex.OP_CONNECT {
		if err := s.w.AppendConnectionId(s.connId); err != nil {
			s.w = nil
			return err
		}
	}

	return nil
}

// Starts a request with the plain 3-byte prefix.
func (s *Session) BeginRequest(op uint8) error {
	return s.begin(op, func(w *obex.PacketWriter) error {
		return w.Begin(op)
	})
}

// Starts a CONNECT request.  The advertised maximum packet length is capped
// to the bearer MTU.
func (s *Session) CreateConnect(version uint8, flags uint8,
	maxLen uint16) error {

	if int(maxLen) > s.mtu {
		maxLen = uint16(s.PacketCap())
	}
	return s.begin(obex.OP_CONNECT, func(w *obex.PacketWriter) error {
		return w.BeginConnect(version, flags, maxLen)
	})
}

func (s *Session) CreateGet() error {
	return s.BeginRequest(obex.OP_GET)
}

func (s *Session) CreatePut() error {
	return s.BeginRequest(obex.OP_PUT)
}

func (s *Session) CreateSetPath(flags uint8) error {
	return s.begin(obex.OP_SETPATH, func(w *obex.PacketWriter) error {
		return w.BeginSetPath(flags)
	})
}

func (s *Session) CreateAbort() error {
	return s.BeginRequest(obex.OP_ABORT)
}

func (s *Session) CreateDisconnect() error {
	return s.BeginRequest(obex.OP_DISCONNECT)
}

// The request under construction; nil if none.
func (s *Session) Writer() *obex.PacketWriter {
	return s.w
}

func (s *Session) AppendHeader(id uint8, data []byte) error {
	if s.w == nil {
		return errNoRequest()
	}
	return s.w.AppendHeader(id, data)
}

// Bytes available for the payload of one more BODY header.
func (s *Session) MaxBodySize() int {
	if s.w == nil {
		return 0
	}
	n := s.w.Remaining() - obex.HDR_PREFIX_LEN
	if n < 0 {
		return 0
	}
	return n
}

// Body bytes that fit in a request carrying nothing but the connection id.
func (s *Session) BodyCapacity() int {
	n := s.PacketCap() - obex.PACKET_PREFIX_LEN - obex.HDR_PREFIX_LEN
	if s.connId != obex.CONN_ID_INVALID {
		n -= 5
	}
	if n < 0 {
		return 0
	}
	return n
}

// Appends a body header holding the largest prefix of data that fits.
// Returns the number of bytes taken.  If last is set and all of data fits,
// the header is END_OF_BODY; otherwise it is BODY.
func (s *Session) FillBody(data []byte, last bool) (int, error) {
	if s.w == nil {
		return 0, errNoRequest()
	}

	id := obex.HDR_BODY
	if last && len(data) <= s.MaxBodySize() {
		id = obex.HDR_END_OF_BODY
	}
	return s.w.FillHeader(id, data)
}

// Hands the request under construction to the bearer.  final sets the final
// bit on opcodes that carry one.  A write failure closes the bearer.
func (s *Session) Execute(final bool) error {
	if s.w == nil {
		return errNoRequest()
	}
	w := s.w
	s.w = nil

	op := w.Opcode()
	if obex.FinalBitSettable(op) {
		if err := w.SetFinal(final); err != nil {
			return err
		}
		op &^= obex.FINAL_BIT
	}
	s.lastOp = op

	b := w.Bytes()
	obexutil.LogTx(fmt.Sprintf("goep session %d %s", s.id,
		obex.OpString(w.Opcode())), b)

	if err := s.bearer.Send(b); err != nil {
		log.Debugf("goep session %d: send failed: %s", s.id, err.Error())
		if cerr := s.bearer.Close(); cerr != nil {
			log.Debugf("goep session %d: close failed: %s",
				s.id, cerr.Error())
		}
		return obexutil.FmtXportError("OBEX send failed: %s", err.Error())
	}

	return nil
}
