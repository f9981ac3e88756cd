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

// Package srm implements the client side of OBEX Single Response Mode
// negotiation.  One Srm instance is owned by a profile client and reset at
// the start of every GET or PUT.
package srm

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/obex"
)

type State int

const (
	STATE_DISABLED State = iota
	STATE_WAITING_FOR_CONFIRM
	STATE_ENABLED_BUT_WAITING
	STATE_ENABLED
)

var stateNames = map[State]string{
	STATE_DISABLED:            "disabled",
	STATE_WAITING_FOR_CONFIRM: "waiting-for-confirm",
	STATE_ENABLED_BUT_WAITING: "enabled-but-waiting",
	STATE_ENABLED:             "enabled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("srm-state-%d", int(s))
}

// The subset of the packet writer SRM needs.
type HeaderWriter interface {
	AppendSrm(val uint8) error
	AppendSrmp(val uint8) error
}

type Srm struct {
	state State

	// Local pause request, sent as SRMP=wait.
	waiting bool

	// Values from the response currently being parsed.
	srmValue  uint8
	srmpValue uint8
}

func NewSrm() *Srm {
	s := &Srm{}
	s.Init()
	return s
}

// Starts a new operation: SRM is disabled until renegotiated.
func (s *Srm) Init() {
	s.state = STATE_DISABLED
	s.waiting = false
	s.ResetFields()
}

// Clears the values parsed from the previous response.
func (s *Srm) ResetFields() {
	s.srmValue = obex.SRM_DISABLE
	s.srmpValue = obex.SRMP_NEXT
}

func (s *Srm) State() State {
	return s.state
}

func (s *Srm) SetWaiting(waiting bool) {
	s.waiting = waiting
}

func (s *Srm) Waiting() bool {
	return s.waiting
}

// Reports whether the client may send without waiting for a response.
func (s *Srm) IsActive() bool {
	return s.state == STATE_ENABLED && !s.waiting
}

// Appends the SRM headers for an outgoing GET/PUT.  SRM-enable is requested
// once per operation and only over GOEP 2.0 bearers; SRMP-wait accompanies
// every request while the local waiting flag is set.
func (s *Srm) PrepareHeaders(w HeaderWriter, goep2 bool) error {
	if s.state == STATE_DISABLED && goep2 {
		if err := w.AppendSrm(obex.SRM_ENABLE); err != nil {
			return err
		}
		s.state = STATE_WAITING_FOR_CONFIRM
		log.Debugf("srm: requested")
	}

	if s.waiting {
		if err := w.AppendSrmp(obex.SRMP_WAIT); err != nil {
			return err
		}
	}

	return nil
}

// Records an SRM or SRMP header fragment from the response parser.
// Returns false for any other header.
func (s *Srm) HandleHeader(id uint8, data []byte) bool {
	if len(data) == 0 {
		return false
	}

	switch id {
	case obex.HDR_SRM:
		s.srmValue = data[0]
		return true
	case obex.HDR_SRMP:
		s.srmpValue = data[0]
		return true
	default:
		return false
	}
}

// Applies the SRM/SRMP values of a complete response.
func (s *Srm) HandleHeaders() {
	prev := s.state

	switch s.state {
	case STATE_WAITING_FOR_CONFIRM:
		if s.srmValue != obex.SRM_ENABLE {
			s.state = STATE_DISABLED
		} else if s.srmpValue == obex.SRMP_WAIT {
			s.state = STATE_ENABLED_BUT_WAITING
		} else {
			s.state = STATE_ENABLED
		}

	case STATE_ENABLED_BUT_WAITING:
		if s.srmpValue != obex.SRMP_WAIT {
			s.state = STATE_ENABLED
		}
	}

	if prev != s.state {
		log.Debugf("srm: %s -> %s", prev, s.state)
	}
}
