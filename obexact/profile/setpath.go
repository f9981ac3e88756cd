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

package profile

import (
	"strings"

	"mynewt.apache.org/obexmgr/obexact/obex"
)

func splitPath(path string) []string {
	var elems []string
	for _, e := range strings.Split(path, "/") {
		if e != "" {
			elems = append(elems, e)
		}
	}
	return elems
}

// Changes the peer's current folder to path, relative to the root.  The
// client first returns to the root and then descends one SETPATH per path
// element.
func (c *Client) BeginSetPath(path string) error {
	if err := c.BeginOperation(); err != nil {
		return err
	}

	c.setPathActive = true
	c.pathElems = splitPath(path)
	c.pathPos = -1
	c.gs.RequestCanSendNow()

	return nil
}

func (c *Client) sendSetPath() error {
	if err := c.gs.CreateSetPath(obex.SETPATH_NO_CREATE); err != nil {
		return err
	}

	// An empty NAME selects the root folder.
	name := ""
	if c.pathPos >= 0 {
		name = c.pathElems[c.pathPos]
	}
	if err := c.gs.Writer().AppendName(name); err != nil {
		return err
	}

	c.SetState(STATE_AWAITING_OPERATION_RESPONSE)
	return c.ExecuteOperation(obex.OP_SETPATH, true)
}

func (c *Client) onSetPathResponse(oi obex.OpInfo) {
	switch oi.RspCode {
	case obex.RSP_SUCCESS:
		c.pathPos++
		if c.pathPos < len(c.pathElems) {
			c.SetState(STATE_AWAITING_CAN_SEND_FOR_OPERATION)
			c.gs.RequestCanSendNow()
			return
		}
		c.Complete(obex.RESULT_SUCCESS)

	case obex.RSP_NOT_FOUND:
		c.Complete(obex.RESULT_NOT_FOUND)

	default:
		c.Complete(obex.RESULT_UNKNOWN_ERROR)
	}
}
