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

// Package mas implements a Message Access Profile client for one MAS
// instance: folder, message and conversation listings, message retrieval,
// status updates and notification registration.
package mas

import (
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/profile"
)

const (
	TYPE_FOLDER_LISTING      = "x-obex/folder-listing"
	TYPE_MSG_LISTING         = "x-bt/MAP-msg-listing"
	TYPE_CONVO_LISTING       = "x-bt/MAP-convo-listing"
	TYPE_MESSAGE             = "x-bt/message"
	TYPE_MESSAGE_STATUS      = "x-bt/messageStatus"
	TYPE_MESSAGE_UPDATE      = "x-bt/MAP-messageUpdate"
	TYPE_NOTIFICATION_REG    = "x-bt/MAP-NotificationRegistration"
	TYPE_NOTIFICATION_FILTER = "x-bt/MAP-notification-filter"
	TYPE_MAS_INSTANCE_INFO   = "x-bt/MASInstanceInformation"
)

// Application parameter tags.
const (
	PARAM_MAX_LIST_COUNT           uint8 = 0x01
	PARAM_LIST_START_OFFSET        uint8 = 0x02
	PARAM_ATTACHMENT               uint8 = 0x0a
	PARAM_NOTIFICATION_STATUS      uint8 = 0x0e
	PARAM_MAS_INSTANCE_ID          uint8 = 0x0f
	PARAM_CHARSET                  uint8 = 0x14
	PARAM_STATUS_INDICATOR         uint8 = 0x17
	PARAM_STATUS_VALUE             uint8 = 0x18
	PARAM_NOTIFICATION_FILTER_MASK uint8 = 0x25
	PARAM_SUPPORTED_FEATURES       uint8 = 0x29
)

const (
	CHARSET_NATIVE uint8 = 0x00
	CHARSET_UTF8   uint8 = 0x01

	STATUS_INDICATOR_READ    uint8 = 0x00
	STATUS_INDICATOR_DELETED uint8 = 0x01

	// MapSupportedFeatures sent in CONNECT.
	LOCAL_FEATURES uint32 = 0x1f
)

// Body of PUT requests that carry no object.
var fillerBody = []byte("0")

type opKind int

const (
	OP_NONE opKind = iota
	OP_FOLDER_LISTING
	OP_MSG_LISTING
	OP_CONVO_LISTING
	OP_GET_MESSAGE
	OP_INSTANCE_INFO
	OP_SET_STATUS
	OP_UPDATE_INBOX
	OP_NOTIFY
	OP_NOTIFY_FILTER
)

func (op opKind) isGet() bool {
	return op >= OP_FOLDER_LISTING && op <= OP_INSTANCE_INFO
}

func (op opKind) isListing() bool {
	return op >= OP_FOLDER_LISTING && op <= OP_CONVO_LISTING
}

type Client struct {
	*profile.Client

	op opKind

	folder      string
	handle      MessageHandle
	attachment  bool
	read        bool
	notify      bool
	filterMask  uint32
	maxCount    uint16
	startOffset uint16
	instanceId  uint8

	listing profile.ListingBuffer
}

// Creates a client for the MAS instance with the given ID.
func NewClient(gs *goep.Session, instance int, h profile.Handler) *Client {
	c := &Client{}
	c.Client = profile.NewClient(gs, profile.ClientCfg{
		Name:     "mas",
		SvcUuid:  obex.SVC_MAP_MAS,
		Instance: instance,
	}, c, h)

	return c
}

func (c *Client) begin(op opKind) error {
	if err := c.BeginOperation(); err != nil {
		return err
	}

	c.op = op
	c.listing.Reset()
	c.RequestCanSendNow()
	return nil
}

func (c *Client) SetPath(path string) error {
	return c.BeginSetPath(path)
}

// Lists the subfolders of the current folder as FolderItem events.
func (c *Client) GetFolderListing() error {
	return c.begin(OP_FOLDER_LISTING)
}

// Lists the messages in folder, relative to the current folder, as
// MessageItem events.
func (c *Client) GetMessageListing(folder string) error {
	if err := c.begin(OP_MSG_LISTING); err != nil {
		return err
	}
	c.folder = folder
	return nil
}

func (c *Client) GetConversationListing(maxCount uint16,
	startOffset uint16) error {

	if err := c.begin(OP_CONVO_LISTING); err != nil {
		return err
	}
	c.maxCount = maxCount
	c.startOffset = startOffset
	return nil
}

// Retrieves a message as bMessage text, delivered as Data.
func (c *Client) GetMessage(handle MessageHandle, attachment bool) error {
	if err := c.begin(OP_GET_MESSAGE); err != nil {
		return err
	}
	c.handle = handle
	c.attachment = attachment
	return nil
}

func (c *Client) SetMessageStatus(handle MessageHandle, read bool) error {
	if err := c.begin(OP_SET_STATUS); err != nil {
		return err
	}
	c.handle = handle
	c.read = read
	return nil
}

// Asks the server to check for new messages.
func (c *Client) UpdateInbox() error {
	return c.begin(OP_UPDATE_INBOX)
}

func (c *Client) EnableNotifications() error {
	if err := c.begin(OP_NOTIFY); err != nil {
		return err
	}
	c.notify = true
	return nil
}

func (c *Client) DisableNotifications() error {
	if err := c.begin(OP_NOTIFY); err != nil {
		return err
	}
	c.notify = false
	return nil
}

func (c *Client) SetNotificationFilter(mask uint32) error {
	if err := c.begin(OP_NOTIFY_FILTER); err != nil {
		return err
	}
	c.filterMask = mask
	return nil
}

// Retrieves the description of a MAS instance, delivered as Data.
func (c *Client) GetMasInstanceInfo(id uint8) error {
	if err := c.begin(OP_INSTANCE_INFO); err != nil {
		return err
	}
	c.instanceId = id
	return nil
}

func (c *Client) ConnectHeaders(w *obex.PacketWriter) error {
	if err := w.AppendTarget(obex.MAS_TARGET); err != nil {
		return err
	}

	if c.Session().Record().SupportedFeatures != 0 {
		ap := obex.NewAppParams().AddUint32(PARAM_SUPPORTED_FEATURES,
			LOCAL_FEATURES)
		if err := w.AppendAppParams(ap.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func (c *Client) SendOperation() error {
	switch {
	case c.op.isGet():
		return c.sendGet()
	case c.op != OP_NONE:
		return c.sendPut()
	default:
		return nil
	}
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
		if err := c.firstGetHeaders(w); err != nil {
			return err
		}
	}

	c.SetState(profile.STATE_AWAITING_OPERATION_RESPONSE)
	return c.ExecuteOperation(obex.OP_GET, true)
}

func (c *Client) firstGetHeaders(w *obex.PacketWriter) error {
	ap := obex.NewAppParams()
	var typ string
	var name *string

	switch c.op {
	case OP_FOLDER_LISTING:
		typ = TYPE_FOLDER_LISTING

	case OP_MSG_LISTING:
		typ = TYPE_MSG_LISTING
		name = &c.folder

	case OP_CONVO_LISTING:
		typ = TYPE_CONVO_LISTING
		ap.AddUint16(PARAM_MAX_LIST_COUNT, c.maxCount)
		ap.AddUint16(PARAM_LIST_START_OFFSET, c.startOffset)

	case OP_GET_MESSAGE:
		typ = TYPE_MESSAGE
		s := c.handle.String()
		name = &s
		ap.AddByte(PARAM_ATTACHMENT, boolByte(c.attachment))
		ap.AddByte(PARAM_CHARSET, CHARSET_UTF8)

	case OP_INSTANCE_INFO:
		typ = TYPE_MAS_INSTANCE_INFO
		ap.AddByte(PARAM_MAS_INSTANCE_ID, c.instanceId)
	}

	if name != nil {
		if err := w.AppendName(*name); err != nil {
			return err
		}
	}
	if err := w.AppendType(typ); err != nil {
		return err
	}
	return w.AppendAppParams(ap.Bytes())
}

// All MAP PUTs fit in a single final packet.
func (c *Client) sendPut() error {
	gs := c.Session()
	if err := gs.CreatePut(); err != nil {
		return err
	}
	w := gs.Writer()

	ap := obex.NewAppParams()
	var typ string

	switch c.op {
	case OP_SET_STATUS:
		typ = TYPE_MESSAGE_STATUS
		if err := w.AppendName(c.handle.String()); err != nil {
			return err
		}
		ap.AddByte(PARAM_STATUS_INDICATOR, STATUS_INDICATOR_READ)
		ap.AddByte(PARAM_STATUS_VALUE, boolByte(c.read))

	case OP_UPDATE_INBOX:
		typ = TYPE_MESSAGE_UPDATE

	case OP_NOTIFY:
		typ = TYPE_NOTIFICATION_REG
		ap.AddByte(PARAM_NOTIFICATION_STATUS, boolByte(c.notify))

	case OP_NOTIFY_FILTER:
		typ = TYPE_NOTIFICATION_FILTER
		ap.AddUint32(PARAM_NOTIFICATION_FILTER_MASK, c.filterMask)
	}

	if err := w.AppendType(typ); err != nil {
		return err
	}
	if err := w.AppendAppParams(ap.Bytes()); err != nil {
		return err
	}
	if err := w.AppendEndOfBody(fillerBody); err != nil {
		return err
	}

	c.SetState(profile.STATE_AWAITING_OPERATION_RESPONSE)
	return c.ExecuteOperation(obex.OP_PUT, true)
}

func (c *Client) OperationHeader(id uint8, totalLen int, offset int,
	data []byte) {

	if id != obex.HDR_BODY && id != obex.HDR_END_OF_BODY {
		return
	}

	switch {
	case c.op.isListing():
		c.listing.Append(data)
	case c.op == OP_GET_MESSAGE || c.op == OP_INSTANCE_INFO:
		c.EmitData(data)
	}
}

func (c *Client) OperationResponse(oi obex.OpInfo) {
	if oi.RspCode == obex.RSP_CONTINUE && c.op.isGet() {
		c.GetContinue(false)
		return
	}

	op := c.op
	c.op = OP_NONE

	if oi.RspCode == obex.RSP_SUCCESS && op.isListing() {
		c.onListingDone(op)
		return
	}

	if oi.RspCode == obex.RSP_CONTINUE {
		log.Warnf("mas client: continue response to a final put")
	}
	c.CompleteRsp(oi.RspCode)
}

func (c *Client) onListingDone(op opKind) {
	items, err := decodeListing(op, c.listing.Bytes())
	c.listing.Reset()

	if err != nil {
		log.Debugf("mas client: %s", err.Error())
		c.Complete(obex.RESULT_PROTOCOL_ERROR)
		return
	}

	c.End()
	for _, item := range items {
		c.Emit(item)
	}
	c.Emit(profile.ListingDone{})
	c.Emit(profile.OperationCompleted{Status: obex.RESULT_SUCCESS})
}
