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

// Package pbap implements a Phonebook Access Profile client: phonebook
// size queries, phonebook and vCard pulls, vCard listings and lookups by
// phone number.
package pbap

import (
	"encoding/binary"
	"strings"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
	"mynewt.apache.org/obexmgr/obexact/profile"
)

const (
	TYPE_PHONEBOOK     = "x-bt/phonebook"
	TYPE_VCARD_LISTING = "x-bt/vcard-listing"
	TYPE_VCARD         = "x-bt/vcard"

	// Listing searched by LookupByNumber, relative to the current folder.
	LOOKUP_LISTING = "pb"
)

// Application parameter tags.
const (
	PARAM_ORDER                   uint8 = 0x01
	PARAM_SEARCH_VALUE            uint8 = 0x02
	PARAM_SEARCH_PROPERTY         uint8 = 0x03
	PARAM_MAX_LIST_COUNT          uint8 = 0x04
	PARAM_LIST_START_OFFSET       uint8 = 0x05
	PARAM_PROPERTY_SELECTOR       uint8 = 0x06
	PARAM_FORMAT                  uint8 = 0x07
	PARAM_PHONEBOOK_SIZE          uint8 = 0x08
	PARAM_VCARD_SELECTOR          uint8 = 0x0c
	PARAM_VCARD_SELECTOR_OPERATOR uint8 = 0x0e
	PARAM_SUPPORTED_FEATURES      uint8 = 0x10
)

// PbapSupportedFeatures bits.
const (
	FEATURE_DOWNLOAD                     uint32 = 1 << 0
	FEATURE_BROWSING                     uint32 = 1 << 1
	FEATURE_DATABASE_IDENTIFIER          uint32 = 1 << 2
	FEATURE_FOLDER_VERSION_COUNTERS      uint32 = 1 << 3
	FEATURE_VCARD_SELECTING              uint32 = 1 << 4
	FEATURE_ENHANCED_MISSED_CALLS        uint32 = 1 << 5
	FEATURE_X_BT_UCI_VCARD_PROPERTY      uint32 = 1 << 6
	FEATURE_X_BT_UID_VCARD_PROPERTY      uint32 = 1 << 7
	FEATURE_CONTACT_REFERENCING          uint32 = 1 << 8
	FEATURE_DEFAULT_CONTACT_IMAGE_FORMAT uint32 = 1 << 9

	LOCAL_FEATURES = FEATURE_DOWNLOAD |
		FEATURE_BROWSING |
		FEATURE_DATABASE_IDENTIFIER |
		FEATURE_FOLDER_VERSION_COUNTERS |
		FEATURE_VCARD_SELECTING |
		FEATURE_ENHANCED_MISSED_CALLS |
		FEATURE_X_BT_UCI_VCARD_PROPERTY |
		FEATURE_X_BT_UID_VCARD_PROPERTY |
		FEATURE_CONTACT_REFERENCING |
		FEATURE_DEFAULT_CONTACT_IMAGE_FORMAT
)

const (
	ORDER_INDEXED      uint8 = 0x00
	ORDER_ALPHABETICAL uint8 = 0x01
	ORDER_PHONETICAL   uint8 = 0x02

	SEARCH_PROPERTY_NAME   uint8 = 0x00
	SEARCH_PROPERTY_NUMBER uint8 = 0x01
	SEARCH_PROPERTY_SOUND  uint8 = 0x02

	VCARD_SELECTOR_OPERATOR_OR  uint8 = 0x00
	VCARD_SELECTOR_OPERATOR_AND uint8 = 0x01
)

// Property selector bits requested implicitly for X-BT-UID / X-BT-UCI
// vCard names.
const (
	PROPERTY_X_BT_UID uint32 = 1 << 31
	PROPERTY_X_BT_UCI uint32 = 1 << 30
)

type opKind int

const (
	OP_NONE opKind = iota
	OP_SIZE
	OP_PHONEBOOK
	OP_LISTING
	OP_ENTRY
)

type Client struct {
	*profile.Client

	op opKind

	// Request parameters, set while connected.
	vcardSelector         uint32
	vcardSelectorOperator uint8
	propertySelector      uint32
	maxListCount          uint16
	listStartOffset       uint16
	order                 uint8
	searchProperty        uint8
	searchValue           string

	// Current operation.
	path        string
	vcardName   string
	phoneNumber string
	appParams   []byte
	listing     profile.ListingBuffer

	// Flow control: hold each follow-up GET of a phonebook pull until the
	// application calls NextPacket.
	flowControl   bool
	waitForUser   bool
	nextTriggered bool
}

func NewClient(gs *goep.Session, h profile.Handler) *Client {
	c := &Client{}
	c.Client = profile.NewClient(gs, profile.ClientCfg{
		Name:    "pbap",
		SvcUuid: obex.SVC_PBAP_PSE,
	}, c, h)

	return c
}

func (c *Client) checkConnected() error {
	if c.State() != profile.STATE_CONNECTED {
		return obexutil.FmtBusyError("pbap client busy; state=%s", c.State())
	}
	return nil
}

func (c *Client) SetVcardSelector(sel uint32) error {
	if err := c.checkConnected(); err != nil {
		return err
	}
	c.vcardSelector = sel
	return nil
}

func (c *Client) SetVcardSelectorOperator(op uint8) error {
	if err := c.checkConnected(); err != nil {
		return err
	}
	c.vcardSelectorOperator = op
	return nil
}

func (c *Client) SetPropertySelector(sel uint32) error {
	if err := c.checkConnected(); err != nil {
		return err
	}
	c.propertySelector = sel
	return nil
}

func (c *Client) SetMaxListCount(count uint16) error {
	if err := c.checkConnected(); err != nil {
		return err
	}
	c.maxListCount = count
	return nil
}

func (c *Client) SetListStartOffset(offset uint16) error {
	if err := c.checkConnected(); err != nil {
		return err
	}
	c.listStartOffset = offset
	return nil
}

func (c *Client) SetOrder(order uint8) error {
	if err := c.checkConnected(); err != nil {
		return err
	}
	c.order = order
	return nil
}

func (c *Client) SetSearchProperty(prop uint8) error {
	if err := c.checkConnected(); err != nil {
		return err
	}
	c.searchProperty = prop
	return nil
}

func (c *Client) SetSearchValue(val string) error {
	if err := c.checkConnected(); err != nil {
		return err
	}
	c.searchValue = val
	return nil
}

// Enables or disables flow control for phonebook pulls.  With flow control
// on, each follow-up GET is held until NextPacket is called.  Allowed while
// connected or during a phonebook pull.
func (c *Client) SetFlowControl(enable bool) error {
	if c.State() != profile.STATE_CONNECTED &&
		!(c.op == OP_PHONEBOOK && c.InOperation()) {

		return obexutil.FmtBusyError("pbap client busy; state=%s", c.State())
	}
	c.flowControl = enable
	return nil
}

// Releases the next GET of a flow-controlled phonebook pull.
func (c *Client) NextPacket() {
	if !c.waitForUser {
		return
	}

	switch c.State() {
	case profile.STATE_AWAITING_CAN_SEND_FOR_OPERATION:
		c.RequestCanSendNow()
	case profile.STATE_AWAITING_OPERATION_RESPONSE:
		c.nextTriggered = true
	}
}

func (c *Client) SetPath(path string) error {
	return c.BeginSetPath(path)
}

func (c *Client) begin(op opKind) error {
	if err := c.BeginOperation(); err != nil {
		return err
	}

	c.op = op
	c.appParams = nil
	c.listing.Reset()
	c.waitForUser = false
	c.nextTriggered = false
	return nil
}

// Queries the number of entries in the phonebook at path.  The answer
// arrives as PhonebookSize.
func (c *Client) GetPhonebookSize(path string) error {
	if err := c.begin(OP_SIZE); err != nil {
		return err
	}
	c.path = path
	c.RequestCanSendNow()
	return nil
}

// Pulls the phonebook object at path (e.g. "telecom/pb.vcf").
func (c *Client) PullPhonebook(path string) error {
	if err := c.begin(OP_PHONEBOOK); err != nil {
		return err
	}
	c.path = path
	c.vcardName = ""
	c.RequestCanSendNow()
	return nil
}

// Pulls the vCard listing of the folder at path.  Each entry arrives as a
// CardResult.
func (c *Client) PullVcardListing(path string) error {
	if err := c.begin(OP_LISTING); err != nil {
		return err
	}
	c.path = path
	c.phoneNumber = ""
	c.RequestCanSendNow()
	return nil
}

// Pulls a single vCard from the current folder.
func (c *Client) PullVcardEntry(name string) error {
	if err := c.begin(OP_ENTRY); err != nil {
		return err
	}
	c.vcardName = name
	c.RequestCanSendNow()
	return nil
}

// Searches the main phonebook listing for entries with the given number.
func (c *Client) LookupByNumber(number string) error {
	if err := c.begin(OP_LISTING); err != nil {
		return err
	}
	c.path = LOOKUP_LISTING
	c.phoneNumber = number
	c.RequestCanSendNow()
	return nil
}

func (c *Client) vcardSelectorSupported() bool {
	peer := c.Session().Record().SupportedFeatures
	return LOCAL_FEATURES&peer&FEATURE_VCARD_SELECTING != 0
}

func (c *Client) addVcardSelector(ap *obex.AppParams) {
	if !c.vcardSelectorSupported() {
		return
	}
	if c.vcardSelector != 0 {
		ap.AddUint64(PARAM_VCARD_SELECTOR, uint64(c.vcardSelector))
	}
	if c.vcardSelectorOperator != VCARD_SELECTOR_OPERATOR_OR {
		ap.AddByte(PARAM_VCARD_SELECTOR_OPERATOR, c.vcardSelectorOperator)
	}
}

func (c *Client) addPropertySelector(ap *obex.AppParams) {
	sel := c.propertySelector
	if strings.HasPrefix(c.vcardName, "X-BT-UID:") {
		sel |= PROPERTY_X_BT_UID
	}
	if strings.HasPrefix(c.vcardName, "X-BT-UCI:") {
		sel |= PROPERTY_X_BT_UCI
	}
	if sel != 0 {
		ap.AddUint64(PARAM_PROPERTY_SELECTOR, uint64(sel))
	}
}

func (c *Client) ConnectHeaders(w *obex.PacketWriter) error {
	if err := w.AppendTarget(obex.PBAP_TARGET); err != nil {
		return err
	}

	// Mandatory if the server advertises its features, else excluded.
	if c.Session().Record().SupportedFeatures != 0 {
		ap := obex.NewAppParams().AddUint32(PARAM_SUPPORTED_FEATURES,
			LOCAL_FEATURES)
		if err := w.AppendAppParams(ap.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) firstRequestHeaders(w *obex.PacketWriter) error {
	ap := obex.NewAppParams()

	var name, typ string
	switch c.op {
	case OP_SIZE:
		name, typ = c.path, TYPE_PHONEBOOK
		c.addVcardSelector(ap)
		ap.AddUint16(PARAM_MAX_LIST_COUNT, 0)

	case OP_PHONEBOOK:
		name, typ = c.path, TYPE_PHONEBOOK
		c.addPropertySelector(ap)
		if c.maxListCount != 0 {
			ap.AddUint16(PARAM_MAX_LIST_COUNT, c.maxListCount)
		}
		if c.listStartOffset != 0 {
			ap.AddUint16(PARAM_LIST_START_OFFSET, c.listStartOffset)
		}
		c.addVcardSelector(ap)

	case OP_LISTING:
		name, typ = c.path, TYPE_VCARD_LISTING
		c.addVcardSelector(ap)
		if c.phoneNumber != "" {
			ap.AddBytes(PARAM_SEARCH_VALUE, []byte(c.phoneNumber))
			ap.AddByte(PARAM_SEARCH_PROPERTY, SEARCH_PROPERTY_NUMBER)
		} else {
			if c.searchValue != "" {
				ap.AddBytes(PARAM_SEARCH_VALUE, []byte(c.searchValue))
			}
			if c.searchProperty != 0 {
				ap.AddByte(PARAM_SEARCH_PROPERTY, c.searchProperty)
			}
		}
		if c.order != 0 {
			ap.AddByte(PARAM_ORDER, c.order)
		}
		if c.maxListCount != 0 {
			ap.AddUint16(PARAM_MAX_LIST_COUNT, c.maxListCount)
		}
		if c.listStartOffset != 0 {
			ap.AddUint16(PARAM_LIST_START_OFFSET, c.listStartOffset)
		}

	case OP_ENTRY:
		name, typ = c.vcardName, TYPE_VCARD
		c.addPropertySelector(ap)
	}

	if err := w.AppendName(name); err != nil {
		return err
	}
	if err := w.AppendType(typ); err != nil {
		return err
	}
	return w.AppendAppParams(ap.Bytes())
}

func (c *Client) SendOperation() error {
	if c.op == OP_NONE {
		return nil
	}

	gs := c.Session()
	if err := gs.CreateGet(); err != nil {
		return err
	}
	w := gs.Writer()

	c.Srm().SetWaiting(c.flowControl)
	if err := c.Srm().PrepareHeaders(w, gs.Version20OrHigher()); err != nil {
		return err
	}
	if c.RequestNumber() == 0 {
		if err := c.firstRequestHeaders(w); err != nil {
			return err
		}
	}

	c.waitForUser = false
	c.nextTriggered = false

	c.SetState(profile.STATE_AWAITING_OPERATION_RESPONSE)
	return c.ExecuteOperation(obex.OP_GET, true)
}

func (c *Client) OperationHeader(id uint8, totalLen int, offset int,
	data []byte) {

	switch id {
	case obex.HDR_APP_PARAMS:
		if c.op == OP_SIZE {
			c.appParams = append(c.appParams, data...)
		}

	case obex.HDR_BODY, obex.HDR_END_OF_BODY:
		switch c.op {
		case OP_PHONEBOOK, OP_ENTRY:
			if offset+len(data) == totalLen {
				c.waitForUser = true
			}
			c.EmitData(data)

		case OP_LISTING:
			c.listing.Append(data)
		}
	}
}

func (c *Client) OperationResponse(oi obex.OpInfo) {
	if oi.RspCode == obex.RSP_CONTINUE && c.op != OP_SIZE {
		hold := c.op == OP_PHONEBOOK && c.flowControl && c.waitForUser &&
			!c.nextTriggered
		c.GetContinue(hold)
		return
	}

	op := c.op
	c.op = OP_NONE

	switch op {
	case OP_SIZE:
		c.onSizeResponse(oi.RspCode)

	case OP_LISTING:
		if oi.RspCode == obex.RSP_SUCCESS {
			c.onListingDone()
			return
		}
		c.CompleteRsp(oi.RspCode)

	default:
		c.CompleteRsp(oi.RspCode)
	}
}

func (c *Client) onSizeResponse(code uint8) {
	c.End()

	if code != obex.RSP_SUCCESS {
		log.Debugf("pbap client: size query failed; rsp=%s",
			obex.RspString(code))
		c.Emit(profile.PhonebookSize{Status: obex.ResultFromRsp(code)})
		return
	}

	params, err := obex.ParseAppParams(c.appParams)
	if err != nil {
		log.Debugf("pbap client: %s", err.Error())
	}
	size, ok := params[PARAM_PHONEBOOK_SIZE]
	if err != nil || !ok || len(size) != 2 {
		c.Emit(profile.PhonebookSize{Status: obex.RESULT_UNKNOWN_ERROR})
		return
	}

	c.Emit(profile.PhonebookSize{
		Status: obex.RESULT_SUCCESS,
		Size:   binary.BigEndian.Uint16(size),
	})
}

func (c *Client) onListingDone() {
	var cards []profile.CardResult
	err := profile.DecodeListing(c.listing.Bytes(), "card",
		func(attrs map[string]string) {
			cards = append(cards, profile.CardResult{
				Name:   attrs["name"],
				Handle: attrs["handle"],
			})
		})
	c.listing.Reset()

	if err != nil {
		log.Debugf("pbap client: %s", err.Error())
		c.Complete(obex.RESULT_PROTOCOL_ERROR)
		return
	}

	c.End()
	for _, card := range cards {
		c.Emit(card)
	}
	c.Emit(profile.ListingDone{})
	c.Emit(profile.OperationCompleted{Status: obex.RESULT_SUCCESS})
}
