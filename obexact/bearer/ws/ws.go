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

// Package ws tunnels a bearer through a Bluetooth gateway that exposes
// RFCOMM/L2CAP connections as WebSocket endpoints.  Each OBEX packet
// travels as one binary message.
package ws

import (
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/bearer"
	"mynewt.apache.org/obexmgr/obexact/goep"
)

type XportCfg struct {
	// Gateway endpoint, e.g. ws://gw.local:8080/bt.
	Url              string
	Mtu              int
	HandshakeTimeout time.Duration
}

func NewXportCfg() XportCfg {
	return XportCfg{
		Mtu:              1024,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Builds the gateway URL for one peer and service record.
func DialUrl(base string, peer string, rec goep.ServiceRecord) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(err, "bad gateway url %s", base)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", errors.Errorf("gateway url must be ws:// or wss://: %s",
			base)
	}

	q := u.Query()
	q.Set("addr", peer)
	if rec.L2capPsm != 0 {
		q.Set("psm", strconv.Itoa(int(rec.L2capPsm)))
	} else {
		q.Set("channel", strconv.Itoa(int(rec.RfcommChannel)))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

type conn struct {
	c   *websocket.Conn
	buf []byte
}

func (wc *conn) Read(p []byte) (int, error) {
	for len(wc.buf) == 0 {
		mt, msg, err := wc.c.ReadMessage()
		if err != nil {
			return 0, err
		}
		if mt != websocket.BinaryMessage {
			log.Debugf("ws bearer: ignoring message type %d", mt)
			continue
		}
		wc.buf = msg
	}

	n := copy(p, wc.buf)
	wc.buf = wc.buf[n:]
	return n, nil
}

func (wc *conn) Write(p []byte) (int, error) {
	if err := wc.c.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (wc *conn) Close() error {
	wc.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return wc.c.Close()
}

// The gateway keeps L2CAP packet boundaries, so an L2CAP record yields a
// GOEP 2.0 bearer.
func NewBearer(cfg XportCfg, sink goep.Sink) *bearer.ConnBearer {
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	return bearer.NewConnBearer(bearer.ConnBearerCfg{
		Name:       "ws",
		Mtu:        cfg.Mtu,
		Sink:       sink,
		L2capGoep2: true,
		Dial: func(peer string, rec goep.ServiceRecord) (io.ReadWriteCloser, error) {
			u, err := DialUrl(cfg.Url, peer, rec)
			if err != nil {
				return nil, err
			}

			c, _, err := dialer.Dial(u, nil)
			if err != nil {
				return nil, errors.Wrapf(err, "dial %s", u)
			}
			return &conn{c: c}, nil
		},
	})
}
