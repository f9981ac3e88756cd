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

package xact

import (
	"fmt"

	"mynewt.apache.org/obexmgr/obexact/mas"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/profile"
	"mynewt.apache.org/obexmgr/obexact/sesn"
)

func masClient(s *sesn.Sesn) (*mas.Client, error) {
	c, ok := s.Client().(*mas.Client)
	if !ok {
		return nil, fmt.Errorf("session is not a message access session (%T)",
			s.Client())
	}
	return c, nil
}

// Items of a folder, message or conversation listing, in server order.
type ListingResult struct {
	Rc    obex.Result
	Items []interface{}
}

func newListingResult() *ListingResult {
	return &ListingResult{}
}

func (r *ListingResult) Status() int {
	return int(r.Rc)
}

func txListing(s *sesn.Sesn, c *CmdBase,
	start func() error) (*ListingResult, error) {

	res := newListingResult()
	err := txOp(s, c, start, func(ev interface{}) (bool, error) {
		switch e := ev.(type) {
		case profile.FolderItem, profile.MessageItem, profile.ConversationItem:
			res.Items = append(res.Items, e)

		case profile.OperationCompleted:
			res.Rc = e.Status
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

//////////////////////////////////////////////////////////////////////////////
// $folder list                                                             //
//////////////////////////////////////////////////////////////////////////////

type MapFolderListCmd struct {
	CmdBase
}

func NewMapFolderListCmd() *MapFolderListCmd {
	return &MapFolderListCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *MapFolderListCmd) Run(s *sesn.Sesn) (Result, error) {
	mc, err := masClient(s)
	if err != nil {
		return nil, err
	}

	return txListing(s, &c.CmdBase, mc.GetFolderListing)
}

//////////////////////////////////////////////////////////////////////////////
// $message list                                                            //
//////////////////////////////////////////////////////////////////////////////

type MapMsgListCmd struct {
	CmdBase
	Folder string
}

func NewMapMsgListCmd() *MapMsgListCmd {
	return &MapMsgListCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *MapMsgListCmd) Run(s *sesn.Sesn) (Result, error) {
	mc, err := masClient(s)
	if err != nil {
		return nil, err
	}

	return txListing(s, &c.CmdBase, func() error {
		return mc.GetMessageListing(c.Folder)
	})
}

//////////////////////////////////////////////////////////////////////////////
// $conversation list                                                       //
//////////////////////////////////////////////////////////////////////////////

type MapConvoListCmd struct {
	CmdBase
	MaxCount    uint16
	StartOffset uint16
}

func NewMapConvoListCmd() *MapConvoListCmd {
	return &MapConvoListCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *MapConvoListCmd) Run(s *sesn.Sesn) (Result, error) {
	mc, err := masClient(s)
	if err != nil {
		return nil, err
	}

	return txListing(s, &c.CmdBase, func() error {
		return mc.GetConversationListing(c.MaxCount, c.StartOffset)
	})
}

//////////////////////////////////////////////////////////////////////////////
// $get message                                                             //
//////////////////////////////////////////////////////////////////////////////

type MapGetMsgCmd struct {
	CmdBase
	Handle     string
	Attachment bool
}

func NewMapGetMsgCmd() *MapGetMsgCmd {
	return &MapGetMsgCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *MapGetMsgCmd) Run(s *sesn.Sesn) (Result, error) {
	mc, err := masClient(s)
	if err != nil {
		return nil, err
	}

	h, err := mas.ParseMessageHandle(c.Handle)
	if err != nil {
		return nil, err
	}

	return txObject(s, &c.CmdBase, func() error {
		return mc.GetMessage(h, c.Attachment)
	}, nil)
}

//////////////////////////////////////////////////////////////////////////////
// $set status                                                              //
//////////////////////////////////////////////////////////////////////////////

type MapSetStatusCmd struct {
	CmdBase
	Handle string
	Read   bool
}

func NewMapSetStatusCmd() *MapSetStatusCmd {
	return &MapSetStatusCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *MapSetStatusCmd) Run(s *sesn.Sesn) (Result, error) {
	mc, err := masClient(s)
	if err != nil {
		return nil, err
	}

	h, err := mas.ParseMessageHandle(c.Handle)
	if err != nil {
		return nil, err
	}

	return txStatus(s, &c.CmdBase, func() error {
		return mc.SetMessageStatus(h, c.Read)
	})
}

//////////////////////////////////////////////////////////////////////////////
// $update inbox                                                            //
//////////////////////////////////////////////////////////////////////////////

type MapUpdateInboxCmd struct {
	CmdBase
}

func NewMapUpdateInboxCmd() *MapUpdateInboxCmd {
	return &MapUpdateInboxCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *MapUpdateInboxCmd) Run(s *sesn.Sesn) (Result, error) {
	mc, err := masClient(s)
	if err != nil {
		return nil, err
	}

	return txStatus(s, &c.CmdBase, mc.UpdateInbox)
}

//////////////////////////////////////////////////////////////////////////////
// $notifications                                                           //
//////////////////////////////////////////////////////////////////////////////

type MapNotifyCmd struct {
	CmdBase
	Enable bool
}

func NewMapNotifyCmd() *MapNotifyCmd {
	return &MapNotifyCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *MapNotifyCmd) Run(s *sesn.Sesn) (Result, error) {
	mc, err := masClient(s)
	if err != nil {
		return nil, err
	}

	start := mc.DisableNotifications
	if c.Enable {
		start = mc.EnableNotifications
	}
	return txStatus(s, &c.CmdBase, start)
}

type MapFilterCmd struct {
	CmdBase
	Mask uint32
}

func NewMapFilterCmd() *MapFilterCmd {
	return &MapFilterCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *MapFilterCmd) Run(s *sesn.Sesn) (Result, error) {
	mc, err := masClient(s)
	if err != nil {
		return nil, err
	}

	return txStatus(s, &c.CmdBase, func() error {
		return mc.SetNotificationFilter(c.Mask)
	})
}

//////////////////////////////////////////////////////////////////////////////
// $instance info                                                           //
//////////////////////////////////////////////////////////////////////////////

type MapInstanceInfoCmd struct {
	CmdBase
	Id uint8
}

func NewMapInstanceInfoCmd() *MapInstanceInfoCmd {
	return &MapInstanceInfoCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *MapInstanceInfoCmd) Run(s *sesn.Sesn) (Result, error) {
	mc, err := masClient(s)
	if err != nil {
		return nil, err
	}

	return txObject(s, &c.CmdBase, func() error {
		return mc.GetMasInstanceInfo(c.Id)
	}, nil)
}
