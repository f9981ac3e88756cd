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

package sesn

import (
	"time"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/profile"
)

var DfltTxOptions = TxOptions{
	Timeout: 10 * time.Second,
	Tries:   1,
}

type TxOptions struct {
	Timeout time.Duration
	Tries   int
}

func NewTxOptions() TxOptions {
	return DfltTxOptions
}

func (opt *TxOptions) AfterTimeout() <-chan time.Time {
	if opt.Timeout == 0 {
		return nil
	} else {
		return time.After(opt.Timeout)
	}
}

// The profile client operations a session drives directly.  *profile.Client
// and every client embedding it satisfy this.
type Client interface {
	CreateConnection(peer string) error
	Disconnect() error
	Abort() error
	Authenticate(password string) error
	State() profile.State
	SetHandler(h profile.Handler)
}

type BearerBuilder func(sink goep.Sink) goep.Bearer
type LookupBuilder func(sink goep.Sink) goep.ServiceLookup
type ClientBuilder func(gs *goep.Session, h profile.Handler) Client

// Supplies the password for an OBEX authentication challenge.
type PasswordFn func(realm string) (string, error)

type OnCloseFn func(s *Sesn)

type SesnCfg struct {
	Peer string

	BuildBearer BearerBuilder
	BuildClient ClientBuilder

	// Nil: a static lookup answers with Record.
	BuildLookup LookupBuilder
	Record      goep.ServiceRecord

	ForceGoep2 bool

	ConnTimeout  time.Duration
	CloseTimeout time.Duration

	// Nil: a challenged connect fails.
	PasswordCb PasswordFn

	// Called when the connection drops without a call to Close.
	OnCloseCb OnCloseFn
}

func NewSesnCfg() SesnCfg {
	return SesnCfg{
		ConnTimeout:  20 * time.Second,
		CloseTimeout: 5 * time.Second,
	}
}
