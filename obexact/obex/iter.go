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
)

// Number of bytes preceding the first header in a request with the given
// opcode.
func RequestHeaderOffset(op uint8) int {
	switch op {
	case OP_CONNECT:
		return 7
	case OP_SETPATH:
		return 5
	default:
		return 3
	}
}

// Number of bytes preceding the first header in the response to a request
// with the given opcode.  Only the CONNECT response repeats the
// version/flags/max-length prefix.
func ResponseHeaderOffset(reqOp uint8) int {
	if reqOp == OP_CONNECT {
		return 7
	}
	return 3
}

// Walks the header list of a packet in place.  The iterator never allocates,
// never copies, and never reads outside data[:length].  A truncated or
// malformed header ends the iteration and marks the iterator as malformed.
type Iterator struct {
	data      []byte
	offset    int
	length    int
	malformed bool
}

// Creates an iterator over data[offset:length].  length is clipped to the
// size of data.
func NewIterator(data []byte, offset int, length int) Iterator {
	if length > len(data) {
		length = len(data)
	}
	if offset < 0 {
		offset = length
	}
	return Iterator{
		data:   data,
		offset: offset,
		length: length,
	}
}

// Creates an iterator over the headers of a complete request packet.
func NewRequestIterator(pkt []byte) Iterator {
	if len(pkt) < PACKET_PREFIX_LEN {
		return Iterator{malformed: len(pkt) > 0}
	}
	return NewIterator(pkt, RequestHeaderOffset(pkt[0]), packetLen(pkt))
}

// Creates an iterator over the headers of a complete response packet.
func NewResponseIterator(pkt []byte, reqOp uint8) Iterator {
	if len(pkt) < PACKET_PREFIX_LEN {
		return Iterator{malformed: len(pkt) > 0}
	}
	return NewIterator(pkt, ResponseHeaderOffset(reqOp), packetLen(pkt))
}

func packetLen(pkt []byte) int {
	return int(binary.BigEndian.Uint16(pkt[1:3]))
}

func (it *Iterator) HasMore() bool {
	return it.offset < it.length
}

func (it *Iterator) Malformed() bool {
	return it.malformed
}

func (it *Iterator) HeaderId() uint8 {
	return it.data[it.offset]
}

// Returns the total encoded size of the current header and the offset of its
// payload.  ok is false if the header does not fit in the packet.
func (it *Iterator) extent() (size int, payloadOff int, ok bool) {
	remain := it.length - it.offset

	switch it.HeaderId() & HDR_ENC_MASK {
	case HDR_ENC_UNICODE, HDR_ENC_BYTES:
		if remain < HDR_PREFIX_LEN {
			return 0, 0, false
		}
		size = int(binary.BigEndian.Uint16(it.data[it.offset+1:]))
		if size < HDR_PREFIX_LEN || size > remain {
			return 0, 0, false
		}
		return size, HDR_PREFIX_LEN, true

	case HDR_ENC_BYTE:
		if remain < 2 {
			return 0, 0, false
		}
		return 2, 1, true

	case HDR_ENC_WORD:
		if remain < 5 {
			return 0, 0, false
		}
		return 5, 1, true

	default:
		// Not reachable with a 2-bit field; consume the ID byte so iteration
		// still makes progress.
		return 1, 1, true
	}
}

// Length of the current header's payload; 0 if the header is truncated.
func (it *Iterator) PayloadLen() int {
	size, off, ok := it.extent()
	if !ok {
		return 0
	}
	return size - off
}

// The current header's payload, aliasing the packet buffer.
func (it *Iterator) Payload() []byte {
	size, off, ok := it.extent()
	if !ok {
		return nil
	}
	return it.data[it.offset+off : it.offset+size]
}

// Value of a 1-byte or 4-byte header; 0 for other encodings.
func (it *Iterator) Value() uint32 {
	p := it.Payload()
	switch len(p) {
	case 1:
		return uint32(p[0])
	case 4:
		return binary.BigEndian.Uint32(p)
	default:
		return 0
	}
}

func (it *Iterator) Advance() {
	size, _, ok := it.extent()
	if !ok {
		it.malformed = true
		it.offset = it.length
		return
	}
	it.offset += size
}
