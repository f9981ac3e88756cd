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

package goep

import (
	"mynewt.apache.org/obexmgr/obexact/obex"
)

// Any value delivered to Session.HandleEvent or to a Handler.  Consumers
// switch on the concrete type.
type Event = interface{}

// Receives events from a bearer or a service lookup.  Implementations must
// not block and may be called from any goroutine.
type Sink func(ev Event)

// Receives the session's events.  Called on the engine goroutine.
type Handler func(ev Event)

// Result of ServiceLookup.Lookup.
type LookupResult struct {
	Status obex.Result
	Record ServiceRecord
}

// Result of Bearer.Open.
type BearerOpened struct {
	Status obex.Result
	Mtu    int
	Handle uint16
	Addr   string

	// Set by L2CAP bearers: the peer speaks GOEP 2.0 or higher.
	Goep2 bool
}

// One-shot answer to Bearer.RequestWritable.
type BearerWritable struct{}

// Inbound bytes.  The session does not retain Data past the call.
type BearerData struct {
	Data []byte
}

type BearerClosed struct {
	Err error
}

// Upward events.

type ConnectionOpened struct {
	Status   obex.Result
	Addr     string
	Handle   uint16
	Incoming bool
}

type ConnectionClosed struct{}

type CanSendNow struct{}

type Data struct {
	Data []byte
}
