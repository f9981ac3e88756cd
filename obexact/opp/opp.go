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

// Package opp implements an Object Push Profile client: pushing an object to
// the peer's inbox and pulling its default object (business card).
package opp

import (
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
	"mynewt.apache.org/obexmgr/obexact/profile"
)

const DEFAULT_OBJECT_TYPE = "text/x-vcard"

type opKind int

const (
	OP_NONE opKind = iota
	OP_PUSH
	OP_PULL
)

type Client struct {
	*profile.Client

	op opKind

	objName string
	objType string

	// Current caller-supplied chunk; nil once consumed.
	data       []byte
	dataOffset uint32

	totalSize uint32
	totalPos  uint32

	chunkRequested bool
}

func NewClient(gs *goep.Session, h profile.Handler) *Client {
	c := &Client{}
	c.Client = profile.NewClient(gs, profile.ClientCfg{
		Name:    "opp",
		SvcUuid: obex.SVC_OBEX_OBJECT_PUSH,
	}, c, h)

	return c
}

// Bytes pushed so far in the current operation.
func (c *Client) TotalPos() uint32 {
	return c.totalPos
}

// Pushes an object of totalSize bytes.  If data is nil, or shorter than
// totalSize, the rest is requested with PushObjectData events and supplied
// with PushObjectChunk.
func (c *Client) PushObject(name string, typ string, data []byte,
	totalSize uint32) error {

	if err := c.BeginOperation(); err != nil {
		return err
	}

	c.op = OP_PUSH
	c.objName = name
	c.objType = typ
	c.data = nil
	c.dataOffset = 0
	c.totalSize = totalSize
	c.totalPos = 0
	c.chunkRequested = false

	if data == nil && totalSize > 0 {
		c.requestChunk()
		return nil
	}

	c.data = c.clip(data, 0)
	c.RequestCanSendNow()
	return nil
}

// Supplies the object bytes starting at offset.  Valid only while a push is
// in flight and the previous chunk has been consumed.
func (c *Client) PushObjectChunk(data []byte, offset uint32) error {
	if c.op != OP_PUSH || !c.InOperation() ||
		c.State() == profile.STATE_AWAITING_ABORT_RESPONSE {

		return obexutil.FmtBusyError("opp: no push in progress; state=%s",
			c.State())
	}
	if c.data != nil {
		return obexutil.NewBusyError("opp: previous chunk not yet sent")
	}
	if offset > c.totalPos || offset+uint32(len(data)) <= c.totalPos {
		return obexutil.FmtBusyError(
			"opp: chunk [%d,%d) does not continue the object at %d",
			offset, offset+uint32(len(data)), c.totalPos)
	}

	c.data = c.clip(data, offset)
	c.dataOffset = offset
	c.chunkRequested = false

	if c.State() == profile.STATE_AWAITING_CAN_SEND_FOR_OPERATION {
		c.RequestCanSendNow()
	}
	return nil
}

// Pulls the peer's default object.  Its bytes arrive as Data events.
func (c *Client) PullDefaultObject() error {
	if err := c.BeginOperation(); err != nil {
		return err
	}

	c.op = OP_PULL
	c.RequestCanSendNow()
	return nil
}

// Drops chunk bytes beyond the announced object size.
func (c *Client) clip(data []byte, offset uint32) []byte {
	if offset >= c.totalSize {
		return []byte{}
	}
	if rem := c.totalSize - offset; uint32(len(data)) > rem {
		log.Debugf("opp: chunk exceeds object size; dropping %d bytes",
			uint32(len(data))-rem)
		return data[:rem]
	}
	return data
}

func (c *Client) requestChunk() {
	if c.chunkRequested {
		return
	}
	c.chunkRequested = true
	c.Emit(profile.PushObjectData{
		Offset:   c.totalPos,
		Capacity: c.Session().BodyCapacity(),
	})
}

func (c *Client) ConnectHeaders(w *obex.PacketWriter) error {
	return nil
}

func (c *Client) SendOperation() error {
	switch c.op {
	case OP_PUSH:
		return c.sendPut()
	case OP_PULL:
		return c.sendGet()
	default:
		return nil
	}
}

func (c *Client) sendPut() error {
	gs := c.Session()

	if err := gs.CreatePut(); err != nil {
		return err
	}
	w := gs.Writer()

	if c.RequestNumber() == 0 {
		if err := c.Srm().PrepareHeaders(w, gs.Version20OrHigher()); err != nil {
			return err
		}
		if err := w.AppendName(c.objName); err != nil {
			return err
		}
		if err := w.AppendType(c.objType); err != nil {
			return err
		}
		if err := w.AppendLength(c.totalSize); err != nil {
			return err
		}
	}

	chunkPos := c.totalPos - c.dataOffset
	var rest []byte
	if c.data != nil {
		rest = c.data[chunkPos:]
	}

	// The header that completes the object is END_OF_BODY.  An empty object
	// gets an empty one.
	last := c.totalPos+uint32(len(rest)) >= c.totalSize
	n := 0
	if c.data != nil || last {
		var err error
		n, err = gs.FillBody(rest, last)
		if err != nil {
			return err
		}
	}
	c.totalPos += uint32(n)

	if c.totalPos >= c.totalSize {
		c.SetState(profile.STATE_AWAITING_OPERATION_RESPONSE)
		return c.ExecuteOperation(obex.OP_PUT, true)
	}

	streaming := c.Srm().IsActive()
	if streaming {
		c.SetState(profile.STATE_AWAITING_CAN_SEND_FOR_OPERATION)
	} else {
		c.SetState(profile.STATE_AWAITING_OPERATION_RESPONSE)
	}
	if err := c.ExecuteOperation(obex.OP_PUT, false); err != nil {
		return err
	}

	if c.data == nil || int(chunkPos)+n >= len(c.data) {
		c.data = nil
		c.requestChunk()
	} else if streaming {
		c.RequestCanSendNow()
	}

	return nil
}

func (c *Client) sendGet() error {
	gs := c.Session()

	if err := gs.CreateGet(); err != nil {
		return err
	}
	w := gs.Writer()

	if c.RequestNumber() == 0 {
		if err := c.Srm().PrepareHeaders(w, gs.Version20OrHigher()); err != nil {
			return err
		}
		if err := w.AppendType(DEFAULT_OBJECT_TYPE); err != nil {
			return err
		}
	}

	c.SetState(profile.STATE_AWAITING_OPERATION_RESPONSE)
	return c.ExecuteOperation(obex.OP_GET, true)
}

func (c *Client) OperationHeader(id uint8, totalLen int, offset int,
	data []byte) {

	switch id {
	case obex.HDR_BODY, obex.HDR_END_OF_BODY:
		if c.op == OP_PULL {
			c.EmitData(data)
		}
	}
}

func (c *Client) OperationResponse(oi obex.OpInfo) {
	switch c.op {
	case OP_PUSH:
		c.onPutResponse(oi)
	case OP_PULL:
		c.onGetResponse(oi)
	}
}

func (c *Client) onPutResponse(oi obex.OpInfo) {
	if oi.RspCode != obex.RSP_CONTINUE {
		c.finish(oi.RspCode)
		return
	}

	c.Srm().HandleHeaders()
	if c.totalPos >= c.totalSize {
		c.finish(obex.RSP_SUCCESS)
		return
	}

	c.SetState(profile.STATE_AWAITING_CAN_SEND_FOR_OPERATION)
	if c.data != nil {
		c.RequestCanSendNow()
	} else {
		c.requestChunk()
	}
}

func (c *Client) onGetResponse(oi obex.OpInfo) {
	if oi.RspCode == obex.RSP_CONTINUE {
		c.GetContinue(false)
		return
	}
	c.finish(oi.RspCode)
}

func (c *Client) finish(code uint8) {
	c.op = OP_NONE
	c.data = nil
	c.CompleteRsp(code)
}
