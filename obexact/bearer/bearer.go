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

// Package bearer adapts byte-stream and packet connections to goep.Bearer.
// The subpackages supply the dialers: Bluetooth sockets, BlueZ profiles,
// TCP, serial lines and WebSocket gateways.
package bearer

import (
	"io"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
)

const DFLT_MTU = 1024
const DFLT_READ_SIZE = 2048

// Opens the underlying connection.  Called on the bearer's own goroutine;
// it may block.
type DialFn func(peer string, rec goep.ServiceRecord) (io.ReadWriteCloser, error)

type ConnBearerCfg struct {
	Name string
	Dial DialFn
	Sink goep.Sink
	Mtu  int

	// The connection preserves packet boundaries and the peer speaks GOEP
	// 2.0 (L2CAP).
	Goep2 bool

	// Report GOEP 2.0 whenever the service record names an L2CAP PSM.
	L2capGoep2 bool

	ReadSize int
}

// A goep.Bearer over any io.ReadWriteCloser.  Open dials in the background;
// a reader goroutine posts inbound bytes to the sink until the connection
// fails or is closed.
type ConnBearer struct {
	cfg ConnBearerCfg

	mtx     sync.Mutex
	conn    io.ReadWriteCloser
	opening bool
	closing bool
	wg      sync.WaitGroup
}

var nextHandle uint32

func NewConnBearer(cfg ConnBearerCfg) *ConnBearer {
	if cfg.Mtu == 0 {
		cfg.Mtu = DFLT_MTU
	}
	if cfg.ReadSize == 0 {
		cfg.ReadSize = DFLT_READ_SIZE
	}

	return &ConnBearer{
		cfg: cfg,
	}
}

func (b *ConnBearer) Mtu() int {
	return b.cfg.Mtu
}

func (b *ConnBearer) Open(peer string, rec goep.ServiceRecord) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.conn != nil || b.opening {
		return obexutil.NewSesnAlreadyOpenError(
			b.cfg.Name + " bearer already open")
	}
	b.opening = true
	b.closing = false

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.dial(peer, rec)
	}()

	return nil
}

func (b *ConnBearer) dial(peer string, rec goep.ServiceRecord) {
	conn, err := b.cfg.Dial(peer, rec)

	b.mtx.Lock()
	b.opening = false
	if err == nil && b.closing {
		conn.Close()
		err = obexutil.NewSesnClosedError("closed while opening")
	}
	if err != nil {
		b.mtx.Unlock()
		log.Debugf("%s bearer: open %s failed: %s",
			b.cfg.Name, peer, err.Error())
		b.cfg.Sink(goep.BearerOpened{
			Status: obex.RESULT_BEARER_FAILED,
			Addr:   peer,
		})
		return
	}
	b.conn = conn
	b.mtx.Unlock()

	b.cfg.Sink(goep.BearerOpened{
		Status: obex.RESULT_SUCCESS,
		Mtu:    b.cfg.Mtu,
		Handle: uint16(atomic.AddUint32(&nextHandle, 1)),
		Addr:   peer,
		Goep2:  b.cfg.Goep2 || (b.cfg.L2capGoep2 && rec.L2capPsm != 0),
	})

	b.read(conn)
}

func (b *ConnBearer) read(conn io.ReadWriteCloser) {
	buf := make([]byte, b.cfg.ReadSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			b.cfg.Sink(goep.BearerData{Data: data})
		}
		if err != nil {
			b.mtx.Lock()
			closing := b.closing
			b.conn = nil
			b.mtx.Unlock()

			conn.Close()
			if closing {
				err = nil
			}
			b.cfg.Sink(goep.BearerClosed{Err: err})
			return
		}
	}
}

func (b *ConnBearer) Send(data []byte) error {
	b.mtx.Lock()
	conn := b.conn
	b.mtx.Unlock()

	if conn == nil {
		return obexutil.FmtXportError("%s bearer not open", b.cfg.Name)
	}

	if _, err := conn.Write(data); err != nil {
		return obexutil.FmtXportError("%s bearer write failed: %s",
			b.cfg.Name, err.Error())
	}
	return nil
}

// Writes are synchronous, so the bearer is writable whenever it is open.
func (b *ConnBearer) RequestWritable() {
	b.cfg.Sink(goep.BearerWritable{})
}

func (b *ConnBearer) Close() error {
	b.mtx.Lock()
	conn := b.conn
	opening := b.opening
	b.closing = true
	b.mtx.Unlock()

	if conn == nil {
		if opening {
			return nil
		}
		return obexutil.NewSesnClosedError(b.cfg.Name + " bearer not open")
	}

	return conn.Close()
}

// Blocks until the dial and reader goroutines have exited.
func (b *ConnBearer) Wait() {
	b.wg.Wait()
}
