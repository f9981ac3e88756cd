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

// Package xact wraps profile operations in blocking commands.  Each command
// starts one operation on a session and consumes its events until the
// operation completes.
package xact

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
	"mynewt.apache.org/obexmgr/obexact/profile"
	"mynewt.apache.org/obexmgr/obexact/sesn"
)

type Result interface {
	Status() int
}

type Cmd interface {
	// Transmits request and listens for response; blocking.
	Run(s *sesn.Sesn) (Result, error)
	Abort() error

	TxOptions() sesn.TxOptions
	SetTxOptions(opt sesn.TxOptions)
}

type CmdBase struct {
	txOptions sesn.TxOptions

	mtx      sync.Mutex
	curSesn  *sesn.Sesn
	abortErr error
	abortCh  chan struct{}
}

func NewCmdBase() CmdBase {
	return CmdBase{
		txOptions: sesn.NewTxOptions(),
		abortCh:   make(chan struct{}),
	}
}

func (c *CmdBase) TxOptions() sesn.TxOptions {
	return c.txOptions
}

func (c *CmdBase) SetTxOptions(opt sesn.TxOptions) {
	c.txOptions = opt
}

// Aborts the operation in flight, if any, and fails every later Run of this
// command.
func (c *CmdBase) Abort() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.abortErr != nil {
		return nil
	}

	if c.curSesn != nil {
		if err := c.curSesn.Abort(); err != nil {
			return err
		}
	}

	c.abortErr = fmt.Errorf("Command aborted")
	if c.abortCh != nil {
		close(c.abortCh)
	}
	return nil
}

func (c *CmdBase) begin(s *sesn.Sesn) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.abortErr != nil {
		return c.abortErr
	}
	c.curSesn = s
	return nil
}

func (c *CmdBase) end() {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.curSesn = nil
}

func (c *CmdBase) aborted() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.abortErr
}

// Consumes one event; true ends the operation.
type eventFn func(ev interface{}) (bool, error)

// Starts an operation on the session goroutine and feeds its events to fn
// until fn reports completion.  A silent peer aborts the operation after the
// command's timeout.
func txOp(s *sesn.Sesn, c *CmdBase, start func() error, fn eventFn) error {
	if err := c.begin(s); err != nil {
		return err
	}
	defer c.end()

	if err := s.Run(start); err != nil {
		return err
	}

	for {
		ev, err := s.NextEventOrStop(c.txOptions.Timeout, c.abortCh)
		if err != nil {
			if aerr := c.aborted(); aerr != nil {
				return aerr
			}
			if obexutil.IsRspTimeout(err) {
				log.Debugf("xact: operation timed out; aborting")
				s.Abort()
			}
			return err
		}

		switch e := ev.(type) {
		case profile.ConnectionClosed:
			return obexutil.NewSesnClosedError(
				"connection lost during operation")

		case profile.OperationCompleted:
			if e.Status == obex.RESULT_DISCONNECTED {
				return obexutil.NewSesnClosedError(
					"connection lost during operation")
			}
		}

		done, err := fn(ev)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Result of an operation that yields only a completion status.
type OpResult struct {
	Rc obex.Result
}

func newOpResult() *OpResult {
	return &OpResult{}
}

func (r *OpResult) Status() int {
	return int(r.Rc)
}

// Result of an operation that yields an object body.
type ObjectResult struct {
	Rc   obex.Result
	Data []byte
}

func newObjectResult() *ObjectResult {
	return &ObjectResult{}
}

func (r *ObjectResult) Status() int {
	return int(r.Rc)
}

// Runs an operation whose only event of interest is its completion.
func txStatus(s *sesn.Sesn, c *CmdBase, start func() error) (*OpResult, error) {
	res := newOpResult()
	err := txOp(s, c, start, func(ev interface{}) (bool, error) {
		if oc, ok := ev.(profile.OperationCompleted); ok {
			res.Rc = oc.Status
			return true, nil
		}
		log.Debugf("xact: ignoring event %T", ev)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Runs an operation that delivers an object as Data events.  dataCb, if
// non-nil, sees each fragment as it arrives and the fragments are not
// accumulated.
func txObject(s *sesn.Sesn, c *CmdBase, start func() error,
	dataCb func(b []byte) error) (*ObjectResult, error) {

	res := newObjectResult()
	err := txOp(s, c, start, func(ev interface{}) (bool, error) {
		switch e := ev.(type) {
		case profile.Data:
			if dataCb != nil {
				return false, dataCb(e.Bytes)
			}
			res.Data = append(res.Data, e.Bytes...)

		case profile.OperationCompleted:
			res.Rc = e.Status
			return true, nil

		default:
			log.Debugf("xact: ignoring event %T", ev)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

//////////////////////////////////////////////////////////////////////////////
// $connect                                                                 //
//////////////////////////////////////////////////////////////////////////////

type ConnectCmd struct {
	CmdBase
}

func NewConnectCmd() *ConnectCmd {
	return &ConnectCmd{
		CmdBase: NewCmdBase(),
	}
}

// Opens the session, retrying up to the configured number of tries.
func (c *ConnectCmd) Run(s *sesn.Sesn) (Result, error) {
	tries := c.txOptions.Tries
	if tries < 1 {
		tries = 1
	}

	var err error
	for i := 0; i < tries; i++ {
		if aerr := c.aborted(); aerr != nil {
			return nil, aerr
		}

		err = s.Open()
		if err == nil || obexutil.IsSesnAlreadyOpen(err) {
			return &OpResult{Rc: obex.RESULT_SUCCESS}, nil
		}
		log.Debugf("connect to %s failed (try %d/%d): %s",
			s.Peer(), i+1, tries, err.Error())
	}

	return nil, err
}

//////////////////////////////////////////////////////////////////////////////
// $disconnect                                                              //
//////////////////////////////////////////////////////////////////////////////

type DisconnectCmd struct {
	CmdBase
}

func NewDisconnectCmd() *DisconnectCmd {
	return &DisconnectCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *DisconnectCmd) Run(s *sesn.Sesn) (Result, error) {
	if err := s.Close(); err != nil {
		return nil, err
	}
	return &OpResult{Rc: obex.RESULT_SUCCESS}, nil
}

//////////////////////////////////////////////////////////////////////////////
// $setpath                                                                 //
//////////////////////////////////////////////////////////////////////////////

type pathSetter interface {
	SetPath(path string) error
}

// Navigates the folder tree of a PBAP or MAS server.  An empty path selects
// the root; ".." steps up; "a/b" descends one level at a time.
type SetPathCmd struct {
	CmdBase
	Path string
}

func NewSetPathCmd() *SetPathCmd {
	return &SetPathCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *SetPathCmd) Run(s *sesn.Sesn) (Result, error) {
	ps, ok := s.Client().(pathSetter)
	if !ok {
		return nil, fmt.Errorf("%T does not support folder navigation",
			s.Client())
	}

	return txStatus(s, &c.CmdBase, func() error {
		return ps.SetPath(c.Path)
	})
}
