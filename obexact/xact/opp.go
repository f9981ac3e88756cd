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

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/opp"
	"mynewt.apache.org/obexmgr/obexact/profile"
	"mynewt.apache.org/obexmgr/obexact/sesn"
)

func oppClient(s *sesn.Sesn) (*opp.Client, error) {
	c, ok := s.Client().(*opp.Client)
	if !ok {
		return nil, fmt.Errorf("session is not an object push session (%T)",
			s.Client())
	}
	return c, nil
}

//////////////////////////////////////////////////////////////////////////////
// $push                                                                    //
//////////////////////////////////////////////////////////////////////////////

type PushProgressFn func(c *PushCmd, off uint32, total uint32)

// Pushes an object one packet body at a time, as the client asks for it.
type PushCmd struct {
	CmdBase
	Name       string
	Type       string
	Data       []byte
	ProgressCb PushProgressFn
}

type PushResult struct {
	Rc  obex.Result
	Len uint32
}

func NewPushCmd() *PushCmd {
	return &PushCmd{
		CmdBase: NewCmdBase(),
	}
}

func newPushResult() *PushResult {
	return &PushResult{}
}

func (r *PushResult) Status() int {
	return int(r.Rc)
}

func (c *PushCmd) progress(off uint32) {
	if c.ProgressCb != nil {
		c.ProgressCb(c, off, uint32(len(c.Data)))
	}
}

func (c *PushCmd) Run(s *sesn.Sesn) (Result, error) {
	oc, err := oppClient(s)
	if err != nil {
		return nil, err
	}

	total := uint32(len(c.Data))
	res := newPushResult()

	start := func() error {
		return oc.PushObject(c.Name, c.Type, nil, total)
	}

	err = txOp(s, &c.CmdBase, start, func(ev interface{}) (bool, error) {
		switch e := ev.(type) {
		case profile.PushObjectData:
			c.progress(e.Offset)

			end := e.Offset + uint32(e.Capacity)
			if end > total {
				end = total
			}
			chunk := c.Data[e.Offset:end]
			return false, s.Run(func() error {
				return oc.PushObjectChunk(chunk, e.Offset)
			})

		case profile.OperationCompleted:
			res.Rc = e.Status
			if e.Status.Ok() {
				res.Len = total
				c.progress(total)
			}
			return true, nil

		default:
			log.Debugf("push: ignoring event %T", ev)
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

//////////////////////////////////////////////////////////////////////////////
// $pull                                                                    //
//////////////////////////////////////////////////////////////////////////////

// Pulls the server's default object, its owner's business card.
type PullCmd struct {
	CmdBase
}

func NewPullCmd() *PullCmd {
	return &PullCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *PullCmd) Run(s *sesn.Sesn) (Result, error) {
	oc, err := oppClient(s)
	if err != nil {
		return nil, err
	}

	return txObject(s, &c.CmdBase, oc.PullDefaultObject, nil)
}
