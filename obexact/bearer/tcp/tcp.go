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

// Package tcp carries OBEX over a TCP connection, e.g. to an OBEX server
// bridged onto the network.  ALL_PROXY is honored.
package tcp

import (
	"io"
	"net"

	"github.com/pkg/errors"
	"golang.org/x/net/proxy"

	"mynewt.apache.org/obexmgr/obexact/bearer"
	"mynewt.apache.org/obexmgr/obexact/goep"
)

// IANA port for OBEX over TCP.
const DFLT_PORT = "650"

const MAX_PACKET_SIZE = 4096

type XportCfg struct {
	Mtu int

	// Overrides the dialer taken from the environment.
	Dialer proxy.Dialer
}

func NewXportCfg() XportCfg {
	return XportCfg{
		Mtu: MAX_PACKET_SIZE,
	}
}

// Adds the default OBEX port to a bare host name.
func PeerAddr(peer string) string {
	if _, _, err := net.SplitHostPort(peer); err == nil {
		return peer
	}
	return net.JoinHostPort(peer, DFLT_PORT)
}

func NewBearer(cfg XportCfg, sink goep.Sink) *bearer.ConnBearer {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = proxy.FromEnvironment()
	}

	return bearer.NewConnBearer(bearer.ConnBearerCfg{
		Name: "tcp",
		Mtu:  cfg.Mtu,
		Sink: sink,
		Dial: func(peer string, rec goep.ServiceRecord) (io.ReadWriteCloser, error) {
			addr := PeerAddr(peer)
			conn, err := dialer.Dial("tcp", addr)
			if err != nil {
				return nil, errors.Wrapf(err, "dial %s", addr)
			}
			return conn, nil
		},
	})
}
