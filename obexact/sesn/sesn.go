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

// Package sesn runs one profile client and its GOEP session on a dedicated
// goroutine and exposes a blocking, goroutine-safe surface to commands.
package sesn

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
	"mynewt.apache.org/obexmgr/obexact/profile"
	"mynewt.apache.org/obexmgr/obexact/task"
)

const QUEUE_DEPTH = 64

// A connection to one OBEX service on one peer.  All calls into the engine
// run on the session's task queue; bearer goroutines reach it through a
// mailbox.  Profile events are queued for NextEvent.
type Sesn struct {
	cfg    SesnCfg
	q      *task.TaskQueue
	mb     *task.Mailbox
	gs     *goep.Session
	bearer goep.Bearer
	client Client
	evq    *evQueue

	openBlocker  obexutil.Blocker
	closeBlocker obexutil.Blocker

	mtx     sync.Mutex
	running bool
	isOpen  bool
	closing bool
	stopCh  chan struct{}
}

func NewSesn(cfg SesnCfg) (*Sesn, error) {
	if cfg.BuildBearer == nil || cfg.BuildClient == nil {
		return nil, fmt.Errorf("session config lacks bearer or client")
	}

	s := &Sesn{
		cfg: cfg,
		q:   task.NewTaskQueue("sesn " + cfg.Peer),
		evq: newEvQueue(),
	}
	s.mb = task.NewMailbox(s.q)
	s.mb.ErrFn = func(err error) {
		log.Debugf("sesn %s: mailbox job failed: %s", cfg.Peer, err.Error())
	}

	sink := s.post
	var lookup goep.ServiceLookup
	if cfg.BuildLookup != nil {
		lookup = cfg.BuildLookup(sink)
	} else {
		lookup = goep.NewStaticLookup(cfg.Record, sink)
	}

	s.bearer = cfg.BuildBearer(sink)
	s.gs = goep.NewSession(goep.SessionCfg{
		Bearer:     s.bearer,
		Lookup:     lookup,
		ForceGoep2: cfg.ForceGoep2,
	})
	s.client = cfg.BuildClient(s.gs, s.onEvent)

	return s, nil
}

// Forwards a bearer or lookup event to the engine.  Safe from any
// goroutine.
func (s *Sesn) post(ev goep.Event) {
	s.mb.Post(func() error {
		s.gs.HandleEvent(ev)
		return nil
	})
}

// Runs on the queue goroutine.
func (s *Sesn) onEvent(ev profile.Event) {
	switch e := ev.(type) {
	case profile.ConnectionOpened:
		s.openBlocker.Release(e)
		return

	case profile.AuthRequired:
		s.openBlocker.Release(e)
		return

	case profile.ConnectionClosed:
		s.mtx.Lock()
		wasOpen := s.isOpen
		closing := s.closing
		s.isOpen = false
		s.mtx.Unlock()

		s.closeBlocker.Release(nil)
		if wasOpen && !closing {
			log.Debugf("sesn %s: connection lost", s.cfg.Peer)
			go func() {
				s.stopRunner()
				s.waitBearer()
				if s.cfg.OnCloseCb != nil {
					s.cfg.OnCloseCb(s)
				}
			}()
		}
	}

	s.evq.push(ev)
}

func (s *Sesn) startRunner() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.running {
		return obexutil.NewSesnAlreadyOpenError(
			"Attempt to open an already-open session")
	}

	if err := s.q.Start(QUEUE_DEPTH); err != nil {
		return err
	}
	s.mb.Start()
	s.stopCh = make(chan struct{})
	s.running = true
	return nil
}

func (s *Sesn) stopRunner() {
	s.mtx.Lock()
	if !s.running {
		s.mtx.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mtx.Unlock()

	s.q.Stop(obexutil.NewSesnClosedError("session closed"))
	s.mb.Stop()
}

// Runs fn on the engine goroutine and returns its result.
func (s *Sesn) Run(fn func() error) error {
	err := s.q.Run(fn)
	if err == task.InactiveError {
		return obexutil.NewSesnClosedError(
			"Attempt to use a closed session")
	}
	return err
}

func (s *Sesn) Client() Client {
	return s.client
}

func (s *Sesn) Peer() string {
	return s.cfg.Peer
}

func (s *Sesn) IsOpen() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.isOpen
}

// Maximum packet size in use; 0 before the session is open.
func (s *Sesn) Mtu() int {
	var mtu int
	s.Run(func() error {
		mtu = s.gs.PacketCap()
		return nil
	})
	return mtu
}

// Drops the bearer and returns the engine to its initial state without
// waiting for the bearer to report the close.
func (s *Sesn) forceReset() {
	s.Run(func() error {
		if s.gs.State() != goep.SESN_STATE_INIT {
			s.gs.Disconnect()
			s.gs.HandleEvent(goep.BearerClosed{})
		}
		return nil
	})
}

// Waits for the bearer's goroutines, if it has any, to exit.
func (s *Sesn) waitBearer() {
	if w, ok := s.bearer.(interface{ Wait() }); ok {
		w.Wait()
	}
}

func (s *Sesn) failOpen(err error) error {
	s.forceReset()
	s.stopRunner()
	s.waitBearer()
	return err
}

func (s *Sesn) waitOpen(timeout time.Duration) (interface{}, error) {
	s.mtx.Lock()
	stopCh := s.stopCh
	s.mtx.Unlock()

	return s.openBlocker.Wait(timeout, stopCh)
}

// Connects the bearer and performs the OBEX CONNECT.  Blocks until the
// connection is up, refused or timed out.
//
//   - nil: success.
//   - obexutil.SesnAlreadyOpenError: session already open.
//   - obexutil.RspTimeoutError: no answer within the configured timeout.
//   - obexutil.XportError: the peer could not be reached or refused.
func (s *Sesn) Open() error {
	if err := s.startRunner(); err != nil {
		return err
	}
	s.evq.clear()

	s.openBlocker.Arm()
	err := s.Run(func() error {
		return s.client.CreateConnection(s.cfg.Peer)
	})
	if err != nil {
		return s.failOpen(err)
	}

	for {
		val, err := s.waitOpen(s.cfg.ConnTimeout)
		if err != nil {
			return s.failOpen(err)
		}

		switch e := val.(type) {
		case profile.AuthRequired:
			if err := s.authenticate(e); err != nil {
				return s.failOpen(err)
			}

		case profile.ConnectionOpened:
			if !e.Status.Ok() {
				return s.failOpen(obexutil.FmtXportError(
					"connect to %s failed: %s", s.cfg.Peer, e.Status))
			}

			s.mtx.Lock()
			s.isOpen = true
			s.closing = false
			s.mtx.Unlock()

			log.Debugf("sesn %s: open; mtu=%d", s.cfg.Peer, s.Mtu())
			return nil

		default:
			return s.failOpen(errors.Errorf("unexpected open event %T", val))
		}
	}
}

func (s *Sesn) authenticate(e profile.AuthRequired) error {
	if s.cfg.PasswordCb == nil {
		return obexutil.FmtXportError(
			"%s requires authentication; no password available", s.cfg.Peer)
	}

	pw, err := s.cfg.PasswordCb(string(e.Realm))
	if err != nil {
		return errors.Wrap(err, "read password")
	}

	s.openBlocker.Arm()
	return s.Run(func() error {
		return s.client.Authenticate(pw)
	})
}

// Sends DISCONNECT and closes the bearer.
//
//   - nil: success.
//   - obexutil.SesnClosedError: session not open.
func (s *Sesn) Close() error {
	s.mtx.Lock()
	if !s.isOpen {
		s.mtx.Unlock()
		return obexutil.NewSesnClosedError(
			"Attempt to close an unopened session")
	}
	s.closing = true
	stopCh := s.stopCh
	s.mtx.Unlock()

	s.closeBlocker.Arm()
	err := s.Run(func() error {
		if err := s.client.Disconnect(); err != nil {
			log.Debugf("sesn %s: disconnect: %s; closing bearer",
				s.cfg.Peer, err.Error())
			return s.gs.Disconnect()
		}
		return nil
	})

	if err == nil {
		if _, err := s.closeBlocker.Wait(s.cfg.CloseTimeout, stopCh); err != nil {
			log.Debugf("sesn %s: no clean close: %s", s.cfg.Peer, err.Error())
		}
	}

	s.mtx.Lock()
	s.isOpen = false
	s.mtx.Unlock()

	s.forceReset()
	s.stopRunner()
	s.waitBearer()
	return nil
}

// Waits for the next profile event.  Events raised after a close are
// still delivered.
func (s *Sesn) NextEvent(timeout time.Duration) (interface{}, error) {
	return s.evq.pop(timeout, nil)
}

// Waits for the next profile event, giving up early when stopCh closes.
func (s *Sesn) NextEventOrStop(timeout time.Duration,
	stopCh <-chan struct{}) (interface{}, error) {

	return s.evq.pop(timeout, stopCh)
}

// Aborts the operation in flight.  Completion is silent: the next
// operation may start once Idle reports true.
func (s *Sesn) Abort() error {
	return s.Run(s.client.Abort)
}

// Whether the client is connected with no operation in flight.
func (s *Sesn) Idle() bool {
	idle := false
	s.Run(func() error {
		idle = s.client.State() == profile.STATE_CONNECTED
		return nil
	})
	return idle
}

// Maps a completed operation to an error for callers that only care about
// success.
func StatusError(status obex.Result) error {
	if status.Ok() {
		return nil
	}
	return errors.Errorf("operation failed: %s", status)
}
