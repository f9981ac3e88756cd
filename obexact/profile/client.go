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

// Package profile contains the connect / operate / disconnect / abort state
// machine shared by the OBEX profile clients.  A profile client embeds
// *Client and supplies the profile-specific request building and response
// handling through the Profile interface.
package profile

import (
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
	"mynewt.apache.org/obexmgr/obexact/srm"
)

type State int

const (
	STATE_INIT State = iota
	STATE_AWAITING_GOEP_CONNECTION
	STATE_AWAITING_CAN_SEND_FOR_CONNECT
	STATE_AWAITING_CONNECT_RESPONSE
	STATE_AWAITING_USER_AUTH
	STATE_CONNECTED
	STATE_AWAITING_CAN_SEND_FOR_OPERATION
	STATE_AWAITING_OPERATION_RESPONSE
	STATE_AWAITING_ABORT_RESPONSE
	STATE_AWAITING_CAN_SEND_FOR_DISCONNECT
	STATE_AWAITING_DISCONNECT_RESPONSE
)

var stateNames = map[State]string{
	STATE_INIT:                             "init",
	STATE_AWAITING_GOEP_CONNECTION:         "awaiting-goep-connection",
	STATE_AWAITING_CAN_SEND_FOR_CONNECT:    "awaiting-can-send-for-connect",
	STATE_AWAITING_CONNECT_RESPONSE:        "awaiting-connect-response",
	STATE_AWAITING_USER_AUTH:               "awaiting-user-auth",
	STATE_CONNECTED:                        "connected",
	STATE_AWAITING_CAN_SEND_FOR_OPERATION:  "awaiting-can-send-for-operation",
	STATE_AWAITING_OPERATION_RESPONSE:      "awaiting-operation-response",
	STATE_AWAITING_ABORT_RESPONSE:          "awaiting-abort-response",
	STATE_AWAITING_CAN_SEND_FOR_DISCONNECT: "awaiting-can-send-for-disconnect",
	STATE_AWAITING_DISCONNECT_RESPONSE:     "awaiting-disconnect-response",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("profile-state-%d", int(s))
}

// Profile-specific behavior plugged into the shared state machine.
type Profile interface {
	// Appends the profile's CONNECT headers (TARGET, app params).
	ConnectHeaders(w *obex.PacketWriter) error

	// Builds and sends the next request of the current operation.
	SendOperation() error

	// Receives a fragment of an operation response header.  SRM headers
	// are consumed by the state machine and not passed on.
	OperationHeader(id uint8, totalLen int, offset int, data []byte)

	// Handles a complete operation response.
	OperationResponse(oi obex.OpInfo)
}

type ClientCfg struct {
	// Short name used in log messages.
	Name string

	SvcUuid  uint16
	Instance int
}

type Client struct {
	name     string
	svcUuid  uint16
	instance int

	gs      *goep.Session
	prof    Profile
	handler Handler

	state          State
	srm            *srm.Srm
	parser         obex.Parser
	waitingForRsp  bool
	abortRequested bool
	requestNumber  int

	addr   string
	handle uint16

	connIdBuf [4]byte
	authChal  []byte
	challenge obex.AuthChallenge
	authRsp   []byte

	setPathActive bool
	pathElems     []string
	pathPos       int
}

func NewClient(gs *goep.Session, cfg ClientCfg, prof Profile,
	h Handler) *Client {

	return &Client{
		name:     cfg.Name,
		svcUuid:  cfg.SvcUuid,
		instance: cfg.Instance,
		gs:       gs,
		prof:     prof,
		handler:  h,
		srm:      srm.NewSrm(),
	}
}

func (c *Client) SetHandler(h Handler) {
	c.handler = h
}

func (c *Client) Session() *goep.Session {
	return c.gs
}

func (c *Client) Srm() *srm.Srm {
	return c.srm
}

func (c *Client) State() State {
	return c.state
}

func (c *Client) SetState(state State) {
	if state != c.state {
		log.Debugf("%s client: %s -> %s", c.name, c.state, state)
		c.state = state
	}
}

// Reports whether a GET, PUT or SETPATH sequence is in flight.
func (c *Client) InOperation() bool {
	switch c.state {
	case STATE_AWAITING_CAN_SEND_FOR_OPERATION,
		STATE_AWAITING_OPERATION_RESPONSE,
		STATE_AWAITING_ABORT_RESPONSE:

		return true

	default:
		return false
	}
}

func (c *Client) RequestNumber() int {
	return c.requestNumber
}

func (c *Client) Emit(ev Event) {
	if c.handler != nil {
		c.handler(ev)
	}
}

func (c *Client) reset() {
	c.SetState(STATE_INIT)
	c.waitingForRsp = false
	c.abortRequested = false
	c.requestNumber = 0
	c.authChal = nil
	c.authRsp = nil
	c.setPathActive = false
	c.pathElems = nil
}

// Starts connecting to the peer.  ConnectionOpened reports the outcome.
func (c *Client) CreateConnection(peer string) error {
	if c.state != STATE_INIT {
		return obexutil.FmtBusyError("%s client busy; state=%s",
			c.name, c.state)
	}

	c.SetState(STATE_AWAITING_GOEP_CONNECTION)
	if _, err := c.gs.CreateConnection(peer, c.svcUuid, c.instance,
		c.HandleEvent); err != nil {

		c.SetState(STATE_INIT)
		return err
	}

	return nil
}

// Sends DISCONNECT.  An operation in flight is reported as
// OperationCompleted{Disconnected} first, unless it is being aborted.
func (c *Client) Disconnect() error {
	switch {
	case c.state == STATE_CONNECTED:

	case c.InOperation():
		if c.state != STATE_AWAITING_ABORT_RESPONSE && !c.abortRequested {
			c.Emit(OperationCompleted{Status: obex.RESULT_DISCONNECTED})
		}

	default:
		return obexutil.FmtBusyError("%s client cannot disconnect; state=%s",
			c.name, c.state)
	}

	c.waitingForRsp = false
	c.abortRequested = false
	c.setPathActive = false
	c.SetState(STATE_AWAITING_CAN_SEND_FOR_DISCONNECT)
	c.gs.RequestCanSendNow()

	return nil
}

// Requests that the operation in flight be aborted.  ABORT preempts the next
// request.  The abort completes silently: no OperationCompleted is emitted.
func (c *Client) Abort() error {
	if !c.InOperation() || c.abortRequested ||
		c.state == STATE_AWAITING_ABORT_RESPONSE {

		return obexutil.FmtBusyError("%s client: nothing to abort; state=%s",
			c.name, c.state)
	}

	log.Debugf("%s client: abort requested in state %s", c.name, c.state)
	c.abortRequested = true
	c.gs.RequestCanSendNow()

	return nil
}

// Answers an authentication challenge from the peer's CONNECT response.
func (c *Client) Authenticate(password string) error {
	if c.state != STATE_AWAITING_USER_AUTH {
		return obexutil.FmtBusyError("%s client: no challenge pending; "+
			"state=%s", c.name, c.state)
	}

	c.authRsp = obex.AuthResponse(c.challenge, password)
	c.SetState(STATE_AWAITING_CAN_SEND_FOR_CONNECT)
	c.gs.RequestCanSendNow()

	return nil
}

// Moves a connected client into an operation.  The caller arms the first
// writable notification when it has something to send.
func (c *Client) BeginOperation() error {
	if c.state != STATE_CONNECTED {
		return obexutil.FmtBusyError("%s client busy; state=%s",
			c.name, c.state)
	}

	c.srm.Init()
	c.requestNumber = 0
	c.abortRequested = false
	c.setPathActive = false
	c.SetState(STATE_AWAITING_CAN_SEND_FOR_OPERATION)

	return nil
}

func (c *Client) RequestCanSendNow() {
	c.gs.RequestCanSendNow()
}

// Prepares the parser for the response to a request with opcode op.
func (c *Client) ExpectResponse(op uint8) {
	c.parser.InitForResponse(op, c.onHeader)
	c.srm.ResetFields()
	c.waitingForRsp = true
}

// Sends the request under construction as the next request of the current
// operation.
func (c *Client) ExecuteOperation(op uint8, final bool) error {
	c.requestNumber++
	c.ExpectResponse(op)
	return c.gs.Execute(final)
}

// Returns to Connected without reporting anything.  Used by operations
// whose outcome is carried by a dedicated event.
func (c *Client) End() {
	c.abortRequested = false
	c.setPathActive = false
	c.SetState(STATE_CONNECTED)
}

// Ends the current operation.
func (c *Client) Complete(status obex.Result) {
	c.End()
	c.Emit(OperationCompleted{Status: status})
}

// Ends the current operation with the result matching an OBEX response code.
func (c *Client) CompleteRsp(code uint8) {
	if code != obex.RSP_SUCCESS && code != obex.RSP_CONTINUE {
		log.Debugf("%s client: operation failed; rsp=%s",
			c.name, obex.RspString(code))
	}
	c.Complete(obex.ResultFromRsp(code))
}

// Handles a CONTINUE response to a GET.  With SRM active the peer keeps
// sending, so only the parser is re-armed.  Otherwise the next GET is sent
// on the next writable notification; hold defers that request.
func (c *Client) GetContinue(hold bool) {
	c.srm.HandleHeaders()
	if c.srm.IsActive() {
		c.ExpectResponse(obex.OP_GET)
		return
	}

	c.SetState(STATE_AWAITING_CAN_SEND_FOR_OPERATION)
	if !hold {
		c.gs.RequestCanSendNow()
	}
}

// Copies an object fragment to the application.
func (c *Client) EmitData(data []byte) {
	c.Emit(Data{Bytes: append([]byte(nil), data...)})
}

// Handles events from the GOEP session.
func (c *Client) HandleEvent(ev goep.Event) {
	switch e := ev.(type) {
	case goep.ConnectionOpened:
		c.onConnectionOpened(e)

	case goep.ConnectionClosed:
		c.onConnectionClosed()

	case goep.CanSendNow:
		c.onCanSendNow()

	case goep.Data:
		c.onData(e.Data)

	default:
		log.Warnf("%s client: unexpected event %T", c.name, ev)
	}
}

func (c *Client) onConnectionOpened(e goep.ConnectionOpened) {
	c.addr = e.Addr
	c.handle = e.Handle

	if !e.Status.Ok() {
		log.Debugf("%s client: connection failed; status=%s",
			c.name, e.Status)
		c.SetState(STATE_INIT)
		c.Emit(ConnectionOpened{
			Status:   e.Status,
			Addr:     e.Addr,
			Handle:   e.Handle,
			Incoming: e.Incoming,
		})
		return
	}

	c.SetState(STATE_AWAITING_CAN_SEND_FOR_CONNECT)
	c.gs.RequestCanSendNow()
}

func (c *Client) onConnectionClosed() {
	if c.state == STATE_INIT {
		return
	}

	if c.InOperation() {
		c.Emit(OperationCompleted{Status: obex.RESULT_DISCONNECTED})
	}

	c.reset()
	c.Emit(ConnectionClosed{})
}

// Abandons the connection after a transport or protocol failure.
func (c *Client) failSession(status obex.Result) {
	switch {
	case c.state < STATE_CONNECTED:
		c.reset()
		c.Emit(ConnectionOpened{
			Status: status,
			Addr:   c.addr,
			Handle: c.handle,
		})

	case c.InOperation():
		c.Emit(OperationCompleted{Status: status})
		c.SetState(STATE_AWAITING_DISCONNECT_RESPONSE)

	default:
		c.SetState(STATE_AWAITING_DISCONNECT_RESPONSE)
	}

	c.waitingForRsp = false
	if err := c.gs.Disconnect(); err != nil {
		log.Debugf("%s client: disconnect failed: %s", c.name, err.Error())
	}
}

func (c *Client) sendFailed(err error) {
	log.Errorf("%s client: failed to send request in state %s: %s",
		c.name, c.state, err.Error())

	switch {
	case obexutil.IsXport(err):
		c.failSession(obex.RESULT_TRANSPORT_FAILED)

	case c.state < STATE_CONNECTED:
		c.failSession(obex.RESULT_CONNECT_FAILED)

	case c.InOperation():
		c.Complete(obex.RESULT_UNKNOWN_ERROR)

	default:
		c.failSession(obex.RESULT_UNKNOWN_ERROR)
	}
}

func (c *Client) onCanSendNow() {
	var err error

	if c.abortRequested {
		c.abortRequested = false
		if c.InOperation() {
			err = c.sendAbort()
			if err != nil {
				c.sendFailed(err)
			}
			return
		}
	}

	switch c.state {
	case STATE_AWAITING_CAN_SEND_FOR_CONNECT:
		err = c.sendConnect()

	case STATE_AWAITING_CAN_SEND_FOR_DISCONNECT:
		err = c.sendDisconnect()

	case STATE_AWAITING_CAN_SEND_FOR_OPERATION:
		if c.setPathActive {
			err = c.sendSetPath()
		} else {
			err = c.prof.SendOperation()
		}

	default:
		log.Debugf("%s client: can-send in state %s", c.name, c.state)
	}

	if err != nil {
		c.sendFailed(err)
	}
}

func (c *Client) sendConnect() error {
	if err := c.gs.CreateConnect(obex.VERSION, 0,
		obex.MAX_PACKET_LEN_DEFAULT); err != nil {

		return err
	}

	w := c.gs.Writer()
	if err := c.prof.ConnectHeaders(w); err != nil {
		return err
	}
	if c.authRsp != nil {
		if err := w.AppendAuthResponse(c.authRsp); err != nil {
			return err
		}
	}

	c.authChal = nil
	c.SetState(STATE_AWAITING_CONNECT_RESPONSE)
	c.ExpectResponse(obex.OP_CONNECT)
	return c.gs.Execute(true)
}

func (c *Client) sendDisconnect() error {
	if err := c.gs.CreateDisconnect(); err != nil {
		return err
	}

	c.SetState(STATE_AWAITING_DISCONNECT_RESPONSE)
	c.ExpectResponse(obex.OP_DISCONNECT)
	return c.gs.Execute(true)
}

func (c *Client) sendAbort() error {
	if err := c.gs.CreateAbort(); err != nil {
		return err
	}

	c.SetState(STATE_AWAITING_ABORT_RESPONSE)
	c.ExpectResponse(obex.OP_ABORT)
	return c.gs.Execute(true)
}

func (c *Client) onHeader(id uint8, totalLen int, offset int, data []byte) {
	if c.state == STATE_AWAITING_CONNECT_RESPONSE {
		switch id {
		case obex.HDR_CONNECTION_ID:
			if obex.HeaderStore(c.connIdBuf[:], totalLen, offset, data) ==
				obex.HDR_STORE_COMPLETE {

				c.gs.SetConnectionId(binary.BigEndian.Uint32(c.connIdBuf[:]))
			}

		case obex.HDR_AUTH_CHALLENGE:
			if offset == 0 {
				c.authChal = make([]byte, totalLen)
			}
			obex.HeaderStore(c.authChal, totalLen, offset, data)
		}
		return
	}

	if c.srm.HandleHeader(id, data) {
		return
	}

	if c.state == STATE_AWAITING_ABORT_RESPONSE || c.setPathActive {
		return
	}

	c.prof.OperationHeader(id, totalLen, offset, data)
}

func (c *Client) onData(data []byte) {
	if !c.waitingForRsp {
		log.Debugf("%s client: unsolicited %d bytes in state %s",
			c.name, len(data), c.state)
		return
	}

	switch res := c.parser.Feed(data); res {
	case obex.PARSER_INCOMPLETE:

	case obex.PARSER_COMPLETE:
		c.waitingForRsp = false
		c.onResponse(c.parser.OpInfo())

	default:
		err := obexutil.FmtProtocolError("%s client: bad response (%s) "+
			"in state %s", c.name, res, c.state)
		log.Errorf("%s", err.Error())
		c.failSession(obex.RESULT_PROTOCOL_ERROR)
	}
}

func (c *Client) onResponse(oi obex.OpInfo) {
	log.Debugf("%s client: rsp=%s in state %s",
		c.name, obex.RspString(oi.RspCode), c.state)

	switch c.state {
	case STATE_AWAITING_CONNECT_RESPONSE:
		c.onConnectResponse(oi)

	case STATE_AWAITING_DISCONNECT_RESPONSE:
		if err := c.gs.Disconnect(); err != nil {
			log.Debugf("%s client: disconnect failed: %s",
				c.name, err.Error())
		}

	case STATE_AWAITING_ABORT_RESPONSE:
		c.SetState(STATE_CONNECTED)

	case STATE_AWAITING_OPERATION_RESPONSE,
		STATE_AWAITING_CAN_SEND_FOR_OPERATION:

		if c.setPathActive {
			c.onSetPathResponse(oi)
		} else {
			c.prof.OperationResponse(oi)
		}

	default:
		log.Warnf("%s client: unexpected response in state %s",
			c.name, c.state)
	}
}

func (c *Client) onConnectResponse(oi obex.OpInfo) {
	switch {
	case oi.RspCode == obex.RSP_SUCCESS:
		if int(oi.MaxPacketLen) >= obex.MIN_PACKET_LEN {
			c.gs.SetPeerMaxPacketLen(int(oi.MaxPacketLen))
		}
		c.authRsp = nil
		c.SetState(STATE_CONNECTED)
		c.Emit(ConnectionOpened{
			Status: obex.RESULT_SUCCESS,
			Addr:   c.addr,
			Handle: c.handle,
		})

	case oi.RspCode == obex.RSP_UNAUTHORIZED && c.authChal != nil:
		ac, err := obex.ParseAuthChallenge(c.authChal)
		if err != nil {
			log.Debugf("%s client: %s", c.name, err.Error())
			c.failSession(obex.RESULT_CONNECT_FAILED)
			return
		}

		c.challenge = ac
		c.SetState(STATE_AWAITING_USER_AUTH)
		c.Emit(AuthRequired{
			Options: ac.Options,
			Realm:   ac.Realm,
		})

	default:
		log.Debugf("%s client: connect failed; rsp=%s",
			c.name, obex.RspString(oi.RspCode))
		c.failSession(obex.RESULT_CONNECT_FAILED)
	}
}
