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

package obex

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/pkg/errors"

	"mynewt.apache.org/obexmgr/obexact/obexutil"
)

// Builds one OBEX packet into a caller-owned buffer.  The writer only
// appends; the 16-bit packet length field always reflects what has been
// written so far.  Any append that does not fit fails with a BufferFullError
// and leaves the packet unchanged.
type PacketWriter struct {
	buf []byte
	pos int
	op  uint8
}

// Creates a writer whose capacity is len(buf).
func NewPacketWriter(buf []byte) *PacketWriter {
	return &PacketWriter{
		buf: buf,
	}
}

func (w *PacketWriter) Opcode() uint8 {
	return w.op
}

func (w *PacketWriter) Len() int {
	return w.pos
}

func (w *PacketWriter) Cap() int {
	return len(w.buf)
}

func (w *PacketWriter) Remaining() int {
	return len(w.buf) - w.pos
}

// The packet written so far.  Aliases the writer's buffer.
func (w *PacketWriter) Bytes() []byte {
	return w.buf[:w.pos]
}

func (w *PacketWriter) setLen() {
	binary.BigEndian.PutUint16(w.buf[1:3], uint16(w.pos))
}

func (w *PacketWriter) append(chunks ...[]byte) error {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}

	if total > w.Remaining() {
		return obexutil.NewBufferFullError(total, w.Remaining())
	}

	for _, c := range chunks {
		w.pos += copy(w.buf[w.pos:], c)
	}
	w.setLen()

	return nil
}

func (w *PacketWriter) begin(op uint8, params []byte) error {
	need := PACKET_PREFIX_LEN + len(params)
	if len(w.buf) < need {
		return obexutil.NewBufferFullError(need, len(w.buf))
	}
	if len(w.buf) > MAX_PACKET_LEN_DEFAULT {
		w.buf = w.buf[:MAX_PACKET_LEN_DEFAULT]
	}

	w.op = op
	w.buf[0] = op
	w.pos = PACKET_PREFIX_LEN
	w.setLen()

	return w.append(params)
}

// Starts a packet with the 3-byte prefix (opcode, length).
func (w *PacketWriter) Begin(op uint8) error {
	return w.begin(op, nil)
}

// Starts a CONNECT request: prefix, version, flags, max packet length.
func (w *PacketWriter) BeginConnect(version uint8, flags uint8,
	maxLen uint16) error {

	params := []byte{version, flags, 0, 0}
	binary.BigEndian.PutUint16(params[2:], maxLen)
	return w.begin(OP_CONNECT, params)
}

// Starts a SETPATH request: prefix, flags, reserved constants byte.
func (w *PacketWriter) BeginSetPath(flags uint8) error {
	return w.begin(OP_SETPATH, []byte{flags, 0})
}

// Starts a response packet.  CONNECT responses carry version, flags and max
// packet length like the request.
func (w *PacketWriter) BeginResponse(code uint8, reqOp uint8,
	maxLen uint16) error {

	if reqOp != OP_CONNECT {
		return w.begin(code, nil)
	}

	params := []byte{VERSION, 0, 0, 0}
	binary.BigEndian.PutUint16(params[2:], maxLen)
	return w.begin(code, params)
}

// Sets or clears the final bit.  Opcodes that are inherently final reject
// the call.
func (w *PacketWriter) SetFinal(final bool) error {
	if !FinalBitSettable(w.op) {
		return errors.Errorf("final bit not settable on %s",
			OpString(w.op))
	}

	if final {
		w.op |= FINAL_BIT
	} else {
		w.op &^= FINAL_BIT
	}
	w.buf[0] = w.op
	return nil
}

func (w *PacketWriter) AppendByteHeader(id uint8, val uint8) error {
	return w.append([]byte{id, val})
}

func (w *PacketWriter) AppendWordHeader(id uint8, val uint32) error {
	b := []byte{id, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(b[1:], val)
	return w.append(b)
}

func hdrPrefix(id uint8, dataLen int) []byte {
	b := []byte{id, 0, 0}
	binary.BigEndian.PutUint16(b[1:], uint16(HDR_PREFIX_LEN+dataLen))
	return b
}

// Appends a length-prefixed header (unicode or byte sequence encoding).
func (w *PacketWriter) AppendHeader(id uint8, data []byte) error {
	if HDR_PREFIX_LEN+len(data) > MAX_PACKET_LEN_DEFAULT {
		return obexutil.NewBufferFullError(HDR_PREFIX_LEN+len(data),
			w.Remaining())
	}
	return w.append(hdrPrefix(id, len(data)), data)
}

// Appends as much of data as fits into a length-prefixed header and returns
// the number of data bytes written.  Used for BODY chunking; fails only if
// not even the 3-byte header prefix fits.
func (w *PacketWriter) FillHeader(id uint8, data []byte) (int, error) {
	room := w.Remaining() - HDR_PREFIX_LEN
	if room < 0 {
		return 0, obexutil.NewBufferFullError(HDR_PREFIX_LEN, w.Remaining())
	}

	n := len(data)
	if n > room {
		n = room
	}
	if err := w.append(hdrPrefix(id, n), data[:n]); err != nil {
		return 0, err
	}
	return n, nil
}

// Encodes a string as null-terminated UTF-16BE.  The empty string encodes
// as zero bytes, which is how OBEX names the root folder.
func EncodeUnicode(s string) []byte {
	if s == "" {
		return nil
	}

	units := utf16.Encode([]rune(s))
	b := make([]byte, 0, 2*len(units)+2)
	for _, u := range units {
		b = append(b, byte(u>>8), byte(u))
	}
	return append(b, 0, 0)
}

// Decodes a null-terminated UTF-16BE header payload.
func DecodeUnicode(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := binary.BigEndian.Uint16(b[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func (w *PacketWriter) AppendName(name string) error {
	return w.AppendHeader(HDR_NAME, EncodeUnicode(name))
}

// Appends a TYPE header: ASCII text plus terminating NUL.
func (w *PacketWriter) AppendType(typ string) error {
	b := make([]byte, len(typ)+1)
	copy(b, typ)
	return w.AppendHeader(HDR_TYPE, b)
}

func (w *PacketWriter) AppendLength(length uint32) error {
	return w.AppendWordHeader(HDR_LENGTH, length)
}

func (w *PacketWriter) AppendTarget(target []byte) error {
	return w.AppendHeader(HDR_TARGET, target)
}

func (w *PacketWriter) AppendWho(who []byte) error {
	if len(who) != 16 {
		return errors.Errorf("WHO header must be 16 bytes, have %d",
			len(who))
	}
	return w.AppendHeader(HDR_WHO, who)
}

// Appends a CONNECTION_ID header unless id is the invalid sentinel.
func (w *PacketWriter) AppendConnectionId(id uint32) error {
	if id == CONN_ID_INVALID {
		return nil
	}
	return w.AppendWordHeader(HDR_CONNECTION_ID, id)
}

func (w *PacketWriter) AppendAppParams(params []byte) error {
	if len(params) == 0 {
		return nil
	}
	return w.AppendHeader(HDR_APP_PARAMS, params)
}

func (w *PacketWriter) AppendAuthResponse(rsp []byte) error {
	return w.AppendHeader(HDR_AUTH_RESPONSE, rsp)
}

func (w *PacketWriter) AppendSrm(val uint8) error {
	return w.AppendByteHeader(HDR_SRM, val)
}

func (w *PacketWriter) AppendSrmp(val uint8) error {
	return w.AppendByteHeader(HDR_SRMP, val)
}

// Appends an END_OF_BODY header carrying all of data.
func (w *PacketWriter) AppendEndOfBody(data []byte) error {
	return w.AppendHeader(HDR_END_OF_BODY, data)
}
