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
	"fmt"

	"mynewt.apache.org/obexmgr/obexact/obex"
)

// What a service lookup learned about the peer's OBEX server.
type ServiceRecord struct {
	RfcommChannel uint8
	L2capPsm      uint16
	Name          string

	// Set instead of a channel or PSM by lookups that leave channel
	// selection to the Bluetooth stack.
	ProfileUuid uint16

	// PBAP / MAP supported features; 0 if not advertised.
	SupportedFeatures uint32

	// MAP only.
	MasInstanceId         uint8
	SupportedMessageTypes uint8
}

func (r ServiceRecord) Usable() bool {
	return r.RfcommChannel != 0 || r.L2capPsm != 0 || r.ProfileUuid != 0
}

func (r ServiceRecord) String() string {
	if r.L2capPsm != 0 {
		return fmt.Sprintf("psm=0x%04x features=0x%08x",
			r.L2capPsm, r.SupportedFeatures)
	}
	if r.RfcommChannel == 0 && r.ProfileUuid != 0 {
		return fmt.Sprintf("uuid=0x%04x", r.ProfileUuid)
	}
	return fmt.Sprintf("channel=%d features=0x%08x",
		r.RfcommChannel, r.SupportedFeatures)
}

// A reliable, ordered bearer (RFCOMM, L2CAP, or a tunnel carrying one).
// Completion and inbound traffic are reported to the Sink the bearer was
// constructed with: BearerOpened, BearerWritable, BearerData, BearerClosed.
type Bearer interface {
	// Starts opening a connection to the peer; the result arrives as
	// BearerOpened.  A returned error means nothing was started.
	Open(peer string, rec ServiceRecord) error

	// Writes one packet.  b is not retained.
	Send(b []byte) error

	// Arms a single BearerWritable notification.
	RequestWritable()

	// Starts closing the connection; BearerClosed follows.
	Close() error

	Mtu() int
}

// Resolves a peer's service record.  The answer arrives as LookupResult.
type ServiceLookup interface {
	Lookup(peer string, svcUuid uint16, instance int) error
}

// A lookup that answers from configuration instead of querying the peer.
type StaticLookup struct {
	Record ServiceRecord
	Sink   Sink
}

func NewStaticLookup(rec ServiceRecord, sink Sink) *StaticLookup {
	return &StaticLookup{
		Record: rec,
		Sink:   sink,
	}
}

func (sl *StaticLookup) Lookup(peer string, svcUuid uint16,
	instance int) error {

	status := obex.RESULT_SUCCESS
	if !sl.Record.Usable() {
		status = obex.RESULT_LOOKUP_FAILED
	}

	sl.Sink(LookupResult{
		Status: status,
		Record: sl.Record,
	})
	return nil
}
