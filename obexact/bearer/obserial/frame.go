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

package obserial

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"io"
	"time"

	"github.com/joaojeronimo/go-crc16"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/newt/util"
)

// Each line holds at most this many base64 characters, so that a line with
// its two-byte designator and newline fits a 128-byte console buffer.
const FRAME_CHUNK_LEN = 124

var (
	frameStart = []byte{0x06, 0x09}
	frameCont  = []byte{0x04, 0x14}
)

type framePkt struct {
	expected int
	buf      []byte
}

func (p *framePkt) add(b []byte) bool {
	p.buf = append(p.buf, b...)
	return len(p.buf) >= p.expected
}

// Wraps a line-oriented console in length + CRC16 + base64 framing.  One
// Write sends one packet; each Read returns bytes of whole packets only.
type Framer struct {
	rw      io.ReadWriteCloser
	scanner *bufio.Scanner
	pkt     *framePkt
	pending []byte

	// Pause between continuation lines; slow targets have small receive
	// buffers.
	ChunkDelay time.Duration
}

func NewFramer(rw io.ReadWriteCloser) *Framer {
	return &Framer{
		rw:         rw,
		scanner:    bufio.NewScanner(rw),
		ChunkDelay: 20 * time.Millisecond,
	}
}

// Produces the console lines that carry one packet.
func EncodeFrame(data []byte) [][]byte {
	body := make([]byte, 2, len(data)+4)
	binary.BigEndian.PutUint16(body, uint16(len(data)+2))
	body = append(body, data...)

	crc := make([]byte, 2)
	binary.BigEndian.PutUint16(crc, crc16.Crc16(data))
	body = append(body, crc...)

	enc := make([]byte, base64.StdEncoding.EncodedLen(len(body)))
	base64.StdEncoding.Encode(enc, body)

	var lines [][]byte
	for written := 0; written < len(enc); {
		n := util.Min(FRAME_CHUNK_LEN, len(enc)-written)

		var line []byte
		if written == 0 {
			line = append(line, frameStart...)
		} else {
			line = append(line, frameCont...)
		}
		line = append(line, enc[written:written+n]...)
		line = append(line, '\n')

		lines = append(lines, line)
		written += n
	}

	return lines
}

func (f *Framer) Write(data []byte) (int, error) {
	log.Debugf("Framing serial packet:\n%s", hex.Dump(data))

	for i, line := range EncodeFrame(data) {
		if i > 0 && f.ChunkDelay > 0 {
			time.Sleep(f.ChunkDelay)
		}
		if _, err := f.rw.Write(line); err != nil {
			return 0, err
		}
	}

	return len(data), nil
}

// Feeds one console line to the decoder.  Returns a packet once its last
// line has arrived.  Lines without a frame designator are console noise
// and ignored.
func (f *Framer) decodeLine(line []byte) ([]byte, error) {
	for len(line) > 1 && line[0] == '\r' {
		line = line[1:]
	}

	if len(line) < 2 {
		return nil, nil
	}
	start := line[0] == frameStart[0] && line[1] == frameStart[1]
	cont := line[0] == frameCont[0] && line[1] == frameCont[1]
	if !start && !cont {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(string(line[2:]))
	if err != nil {
		return nil, errors.Wrapf(err, "bad base64 in serial frame\n%s",
			hex.Dump(line))
	}

	if start {
		if len(data) < 2 {
			return nil, nil
		}
		f.pkt = &framePkt{
			expected: int(binary.BigEndian.Uint16(data)),
		}
		data = data[2:]
	}

	if f.pkt == nil {
		return nil, nil
	}
	if !f.pkt.add(data) {
		return nil, nil
	}

	b := f.pkt.buf[:f.pkt.expected]
	f.pkt = nil

	if len(b) < 2 {
		return nil, errors.Errorf("serial frame too short (%d bytes)", len(b))
	}
	payload := b[:len(b)-2]
	crc := binary.BigEndian.Uint16(b[len(b)-2:])
	if crc16.Crc16(payload) != crc {
		return nil, errors.New("serial frame CRC error")
	}

	return payload, nil
}

func (f *Framer) Read(p []byte) (int, error) {
	for len(f.pending) == 0 {
		if !f.scanner.Scan() {
			if err := f.scanner.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}

		pkt, err := f.decodeLine(f.scanner.Bytes())
		if err != nil {
			log.Debugf("Dropping serial frame: %s", err.Error())
			continue
		}
		f.pending = pkt
	}

	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *Framer) Close() error {
	return f.rw.Close()
}
