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

// Package obserial runs OBEX over a serial line: either an RFCOMM tty
// (/dev/rfcommN) carrying the raw byte stream, or a console that needs the
// framed encoding.
package obserial

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"mynewt.apache.org/obexmgr/obexact/bearer"
	"mynewt.apache.org/obexmgr/obexact/goep"
)

type XportCfg struct {
	// Empty means the peer string names the device.
	DevPath     string
	Baud        int
	Mtu         int
	ReadTimeout time.Duration
	Framed      bool
}

func NewXportCfg() XportCfg {
	return XportCfg{
		Baud:        115200,
		Mtu:         512,
		ReadTimeout: 10 * time.Second,
	}
}

// A serial port whose reads ride out read timeouts until it is closed.
type port struct {
	p *serial.Port

	mtx    sync.Mutex
	closed bool
}

func (sp *port) isClosed() bool {
	sp.mtx.Lock()
	defer sp.mtx.Unlock()

	return sp.closed
}

func (sp *port) Read(b []byte) (int, error) {
	for {
		n, err := sp.p.Read(b)
		if sp.isClosed() {
			return 0, io.EOF
		}
		if n > 0 {
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}
}

func (sp *port) Write(b []byte) (int, error) {
	return sp.p.Write(b)
}

func (sp *port) Close() error {
	sp.mtx.Lock()
	sp.closed = true
	sp.mtx.Unlock()

	return sp.p.Close()
}

func openPort(cfg XportCfg, peer string) (io.ReadWriteCloser, error) {
	name := cfg.DevPath
	if name == "" {
		name = peer
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}

	if err := p.Flush(); err != nil {
		p.Close()
		return nil, errors.Wrapf(err, "flush %s", name)
	}

	var rwc io.ReadWriteCloser = &port{p: p}
	if cfg.Framed {
		rwc = NewFramer(rwc)
	}
	return rwc, nil
}

func NewBearer(cfg XportCfg, sink goep.Sink) *bearer.ConnBearer {
	return bearer.NewConnBearer(bearer.ConnBearerCfg{
		Name: "serial",
		Mtu:  cfg.Mtu,
		Sink: sink,
		Dial: func(peer string, rec goep.ServiceRecord) (io.ReadWriteCloser, error) {
			return openPort(cfg, peer)
		},
	})
}
