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

// Package goep manages the bearer connection underneath an OBEX client: the
// service lookup, opening and closing the bearer, the shared outgoing packet
// buffer and writable notifications.
//
// A Session is not safe for concurrent use.  All calls, including
// HandleEvent, must be made from one goroutine.
package goep

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
)

type SesnState int

const (
	SESN_STATE_INIT SesnState = iota
	SESN_STATE_AWAITING_LOOKUP
	SESN_STATE_AWAITING_BEARER_OPEN
	SESN_STATE_CONNECTED
)

var sesnStateNames = map[SesnState]string{
	SESN_STATE_INIT:                 "init",
	SESN_STATE_AWAITING_LOOKUP:      "awaiting-lookup",
	SESN_STATE_AWAITING_BEARER_OPEN: "awaiting-bearer-open",
	SESN_STATE_CONNECTED:            "connected",
}

func (s SesnState) String() string {
	if name, ok := sesnStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("goep-state-%d", int(s))
}

type SessionCfg struct {
	Bearer Bearer
	Lookup ServiceLookup

	// Treat the peer as GOEP 2.0 even over RFCOMM (e.g., a tunnel to an
	// L2CAP bearer).
	ForceGoep2 bool
}

type Session struct {
	bearer     Bearer
	lookup     ServiceLookup
	forceGoep2 bool

	id      uint16
	state   SesnState
	handler Handler

	peer     string
	svcUuid  uint16
	instance int
	record   ServiceRecord
	handle   uint16
	goep2    bool
	mtu      int

	// Peer's maximum packet length from the CONNECT response; 0 until known.
	peerMaxLen int

	connId uint32
	lastOp uint8

	canSendArmed bool

	buf []byte
	w   *obex.PacketWriter
}

func NewSession(cfg SessionCfg) *Session {
	return &Session{
		bearer:     cfg.Bearer,
		lookup:     cfg.Lookup,
		forceGoep2: cfg.ForceGoep2,
		connId:     obex.CONN_ID_INVALID,
	}
}

func (s *Session) Id() uint16 {
	return s.id
}

func (s *Session) State() SesnState {
	return s.state
}

func (s *Session) Peer() string {
	return s.peer
}

func (s *Session) Record() ServiceRecord {
	return s.record
}

func (s *Session) Mtu() int {
	return s.mtu
}

// Whether SRM may be negotiated on this session.
func (s *Session) Version20OrHigher() bool {
	return s.goep2
}

func (s *Session) ConnectionId() uint32 {
	return s.connId
}

func (s *Session) SetConnectionId(id uint32) {
	s.connId = id
}

// The opcode of the last request handed to the bearer, final bit cleared.
func (s *Session) LastOpcode() uint8 {
	return s.lastOp
}

func (s *Session) setState(state SesnState) {
	if state != s.state {
		log.Debugf("goep session %d: %s -> %s", s.id, s.state, state)
		s.state = state
	}
}

func (s *Session) emit(ev Event) {
	if s.handler != nil {
		s.handler(ev)
	}
}

func (s *Session) reset() {
	s.setState(SESN_STATE_INIT)
	s.handler = nil
	s.record = ServiceRecord{}
	s.handle = 0
	s.goep2 = false
	s.mtu = 0
	s.peerMaxLen = 0
	s.connId = obex.CONN_ID_INVALID
	s.lastOp = 0
	s.canSendArmed = false
	s.buf = nil
	s.w = nil
}

// Resets the session and reports the outcome of a failed connection attempt.
func (s *Session) failOpen(status obex.Result) {
	h := s.handler
	peer := s.peer
	s.reset()

	if h != nil {
		h(ConnectionOpened{
			Status: status,
			Addr:   peer,
		})
	}
}

// Starts connecting to the given service on the peer.  The outcome is
// reported to h as ConnectionOpened.
func (s *Session) CreateConnection(peer string, svcUuid uint16, instance int,
	h Handler) (uint16, error) {

	if s.state != SESN_STATE_INIT {
		return 0, obexutil.FmtBusyError(
			"goep session %d busy; state=%s", s.id, s.state)
	}

	s.id = obexutil.NextSesnId()
	s.peer = peer
	s.svcUuid = svcUuid
	s.instance = instance
	s.handler = h
	s.setState(SESN_STATE_AWAITING_LOOKUP)

	if err := s.lookup.Lookup(peer, svcUuid, instance); err != nil {
		s.reset()
		return 0, err
	}

	return s.id, nil
}

// Closes the bearer.  ConnectionClosed follows once the bearer reports the
// close.
func (s *Session) Disconnect() error {
	if s.state == SESN_STATE_INIT {
		return obexutil.NewSesnClosedError(
			"Attempt to disconnect an unopened goep session")
	}

	return s.bearer.Close()
}

// Arms a single CanSendNow event.  Extra requests while one is armed are
// ignored.
func (s *Session) RequestCanSendNow() {
	if s.state != SESN_STATE_CONNECTED {
		log.Debugf("goep session %d: can-send request while %s", s.id, s.state)
		return
	}

	if s.canSendArmed {
		log.Debugf("goep session %d: can-send already requested", s.id)
		return
	}

	s.canSendArmed = true
	s.bearer.RequestWritable()
}

// Sets the largest packet the peer accepts, as announced in its CONNECT
// response.  Later packets are built to fit.
func (s *Session) SetPeerMaxPacketLen(maxLen int) {
	s.peerMaxLen = maxLen
}

// Capacity of the outgoing packet buffer.
func (s *Session) PacketCap() int {
	c := s.mtu
	if c > obex.MAX_PACKET_LEN_DEFAULT {
		c = obex.MAX_PACKET_LEN_DEFAULT
	}
	if s.peerMaxLen > 0 && s.peerMaxLen < c {
		c = s.peerMaxLen
	}
	return c
}

func (s *Session) HandleEvent(ev Event) {
	switch e := ev.(type) {
	case LookupResult:
		s.onLookupResult(e)

	case BearerOpened:
		s.onBearerOpened(e)

	case BearerWritable:
		s.onBearerWritable()

	case BearerData:
		s.onBearerData(e)

	case BearerClosed:
		s.onBearerClosed(e)

	default:
		log.Warnf("goep session %d: unexpected event %T", s.id, ev)
	}
}

func (s *Session) onLookupResult(e LookupResult) {
	if s.state != SESN_STATE_AWAITING_LOOKUP {
		log.Debugf("goep session %d: stray lookup result in state %s",
			s.id, s.state)
		return
	}

	if !e.Status.Ok() || !e.Record.Usable() {
		log.Debugf("goep session %d: lookup failed; peer=%s uuid=0x%04x "+
			"status=%s", s.id, s.peer, s.svcUuid, e.Status)
		s.failOpen(obex.RESULT_LOOKUP_FAILED)
		return
	}

	log.Debugf("goep session %d: found %s", s.id, e.Record)
	s.record = e.Record
	s.setState(SESN_STATE_AWAITING_BEARER_OPEN)

	if err := s.bearer.Open(s.peer, s.record); err != nil {
		log.Debugf("goep session %d: bearer open failed: %s",
			s.id, err.Error())
		s.failOpen(obex.RESULT_BEARER_FAILED)
	}
}

func (s *Session) onBearerOpened(e BearerOpened) {
	if s.state != SESN_STATE_AWAITING_BEARER_OPEN {
		log.Debugf("goep session %d: stray bearer-opened in state %s",
			s.id, s.state)
		return
	}

	if !e.Status.Ok() {
		s.failOpen(obex.RESULT_BEARER_FAILED)
		return
	}

	s.mtu = e.Mtu
	if s.mtu <= 0 {
		s.mtu = s.bearer.Mtu()
	}
	if s.mtu < obex.MIN_PACKET_LEN {
		s.mtu = obex.MIN_PACKET_LEN
	}
	s.handle = e.Handle
	if e.Addr != "" {
		s.peer = e.Addr
	}
	s.goep2 = e.Goep2 || s.forceGoep2
	s.setState(SESN_STATE_CONNECTED)

	s.emit(ConnectionOpened{
		Status:   obex.RESULT_SUCCESS,
		Addr:     s.peer,
		Handle:   s.handle,
		Incoming: false,
	})
}

func (s *Session) onBearerWritable() {
	if !s.canSendArmed {
		return
	}
	s.canSendArmed = false
	s.emit(CanSendNow{})
}

func (s *Session) onBearerData(e BearerData) {
	if s.state != SESN_STATE_CONNECTED {
		log.Debugf("goep session %d: dropping %d bytes in state %s",
			s.id, len(e.Data), s.state)
		return
	}

	obexutil.LogRx(fmt.Sprintf("goep session %d", s.id), e.Data)
	s.emit(Data{Data: e.Data})
}

func (s *Session) onBearerClosed(e BearerClosed) {
	switch s.state {
	case SESN_STATE_INIT:
		return

	case SESN_STATE_AWAITING_LOOKUP, SESN_STATE_AWAITING_BEARER_OPEN:
		s.failOpen(obex.RESULT_BEARER_FAILED)

	default:
		if e.Err != nil {
			log.Debugf("goep session %d: bearer closed: %s",
				s.id, e.Err.Error())
		}
		h := s.handler
		s.reset()
		if h != nil {
			h(ConnectionClosed{})
		}
	}
}
