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
	"fmt"
)

type ParserResult int

const (
	PARSER_INCOMPLETE ParserResult = iota
	PARSER_COMPLETE
	PARSER_OVERRUN
	PARSER_INVALID
)

var parserResultNames = map[ParserResult]string{
	PARSER_INCOMPLETE: "incomplete",
	PARSER_COMPLETE:   "complete",
	PARSER_OVERRUN:    "overrun",
	PARSER_INVALID:    "invalid",
}

func (r ParserResult) String() string {
	if s, ok := parserResultNames[r]; ok {
		return s
	}
	return fmt.Sprintf("parser-result-%d", int(r))
}

type parserState int

const (
	PSTATE_W4_CODE parserState = iota
	PSTATE_W4_PARAMS
	PSTATE_W4_HDR_ID
	PSTATE_W4_HDR_LEN_FIRST
	PSTATE_W4_HDR_LEN_SECOND
	PSTATE_W4_HDR_VALUE
	PSTATE_COMPLETE
	PSTATE_OVERRUN
	PSTATE_INVALID
)

// Called for each fragment of a header value.  totalLen is the length of the
// whole payload, offset the position of data within it.  Empty headers are
// not reported.
type HeaderFunc func(id uint8, totalLen int, offset int, data []byte)

// Fields from the fixed part of a parsed packet.
type OpInfo struct {
	// Request opcode (request parser) including the final bit.
	Opcode uint8

	// Response code (response parser).
	RspCode uint8

	// CONNECT only.
	Version      uint8
	Flags        uint8
	MaxPacketLen uint16

	// SETPATH only.
	SetPathFlags uint8
}

func (oi OpInfo) Final() bool {
	return oi.Opcode&FINAL_BIT != 0
}

// Byte-fed OBEX packet parser.  Packets may arrive in arbitrary fragments;
// header values are delivered to the callback as they arrive, without
// buffering.
type Parser struct {
	cb         HeaderFunc
	isResponse bool
	reqOp      uint8

	state      parserState
	code       uint8
	packetSize int
	packetPos  int

	params     [6]byte
	paramsSize int
	paramsPos  int

	hdrId  uint8
	hdrLen int
	hdrPos int
}

func NewRequestParser(cb HeaderFunc) *Parser {
	p := &Parser{}
	p.InitForRequest(cb)
	return p
}

func NewResponseParser(reqOp uint8, cb HeaderFunc) *Parser {
	p := &Parser{}
	p.InitForResponse(reqOp, cb)
	return p
}

func (p *Parser) reset(cb HeaderFunc) {
	*p = Parser{
		cb:    cb,
		state: PSTATE_W4_CODE,
	}
}

func (p *Parser) InitForRequest(cb HeaderFunc) {
	p.reset(cb)
}

// Prepares the parser for the response to a request with opcode reqOp.  The
// opcode determines the size of the fixed response prefix.
func (p *Parser) InitForResponse(reqOp uint8, cb HeaderFunc) {
	p.reset(cb)
	p.isResponse = true
	p.reqOp = reqOp
	if reqOp == OP_CONNECT {
		p.paramsSize = 6
	} else {
		p.paramsSize = 2
	}
}

func (p *Parser) requestParamsSize(op uint8) int {
	switch op {
	case OP_CONNECT:
		return 6
	case OP_SETPATH:
		return 4
	default:
		return 2
	}
}

func (p *Parser) result() ParserResult {
	switch p.state {
	case PSTATE_COMPLETE:
		return PARSER_COMPLETE
	case PSTATE_OVERRUN:
		return PARSER_OVERRUN
	case PSTATE_INVALID:
		return PARSER_INVALID
	default:
		return PARSER_INCOMPLETE
	}
}

// Consumes the next chunk of the packet.
func (p *Parser) Feed(data []byte) ParserResult {
	for len(data) > 0 {
		switch p.state {
		case PSTATE_COMPLETE:
			p.state = PSTATE_OVERRUN
			return PARSER_OVERRUN

		case PSTATE_OVERRUN, PSTATE_INVALID:
			return p.result()
		}

		n := p.step(data)
		data = data[n:]

		if p.state == PSTATE_INVALID {
			return PARSER_INVALID
		}
		if p.packetSize != 0 && p.packetPos == p.packetSize {
			if p.state == PSTATE_W4_HDR_ID {
				p.state = PSTATE_COMPLETE
			} else {
				p.state = PSTATE_INVALID
			}
		}
	}

	return p.result()
}

// Processes bytes from the front of data; returns the number consumed.
func (p *Parser) step(data []byte) int {
	switch p.state {
	case PSTATE_W4_CODE:
		p.code = data[0]
		if !p.isResponse {
			p.paramsSize = p.requestParamsSize(p.code)
		}
		p.packetPos = 1
		p.state = PSTATE_W4_PARAMS
		return 1

	case PSTATE_W4_PARAMS:
		p.params[p.paramsPos] = data[0]
		p.paramsPos++
		p.packetPos++

		if p.paramsPos == 2 {
			p.packetSize = int(binary.BigEndian.Uint16(p.params[:2]))
			if p.packetSize < 1+p.paramsSize {
				p.state = PSTATE_INVALID
				return 1
			}
		}
		if p.paramsPos == p.paramsSize {
			p.state = PSTATE_W4_HDR_ID
		}
		return 1

	case PSTATE_W4_HDR_ID:
		p.hdrId = data[0]
		p.hdrPos = 0
		p.packetPos++

		switch p.hdrId & HDR_ENC_MASK {
		case HDR_ENC_BYTE:
			p.beginValue(1)
		case HDR_ENC_WORD:
			p.beginValue(4)
		default:
			p.state = PSTATE_W4_HDR_LEN_FIRST
		}
		return 1

	case PSTATE_W4_HDR_LEN_FIRST:
		p.hdrLen = int(data[0]) << 8
		p.packetPos++
		p.state = PSTATE_W4_HDR_LEN_SECOND
		return 1

	case PSTATE_W4_HDR_LEN_SECOND:
		total := p.hdrLen | int(data[0])
		p.packetPos++
		if total < HDR_PREFIX_LEN {
			p.state = PSTATE_INVALID
			return 1
		}
		p.beginValue(total - HDR_PREFIX_LEN)
		return 1

	case PSTATE_W4_HDR_VALUE:
		n := p.hdrLen - p.hdrPos
		if n > len(data) {
			n = len(data)
		}
		if p.cb != nil {
			p.cb(p.hdrId, p.hdrLen, p.hdrPos, data[:n])
		}
		p.hdrPos += n
		p.packetPos += n
		if p.hdrPos == p.hdrLen {
			p.state = PSTATE_W4_HDR_ID
		}
		return n

	default:
		return len(data)
	}
}

func (p *Parser) beginValue(length int) {
	if p.packetPos+length > p.packetSize {
		p.state = PSTATE_INVALID
		return
	}

	p.hdrLen = length
	p.hdrPos = 0
	if length == 0 {
		p.state = PSTATE_W4_HDR_ID
	} else {
		p.state = PSTATE_W4_HDR_VALUE
	}
}

func (p *Parser) OpInfo() OpInfo {
	oi := OpInfo{}
	if p.isResponse {
		oi.RspCode = p.code
	} else {
		oi.Opcode = p.code
	}

	op := p.code
	if p.isResponse {
		op = p.reqOp
	}

	switch op {
	case OP_CONNECT:
		oi.Version = p.params[2]
		oi.Flags = p.params[3]
		oi.MaxPacketLen = binary.BigEndian.Uint16(p.params[4:6])
	case OP_SETPATH:
		if !p.isResponse {
			oi.SetPathFlags = p.params[2]
		}
	}

	return oi
}

type HeaderStoreResult int

const (
	HDR_STORE_INCOMPLETE HeaderStoreResult = iota
	HDR_STORE_COMPLETE
	HDR_STORE_OVERRUN
)

// Assembles a header value that may arrive in several fragments into dst.
// Values longer than dst are rejected with HDR_STORE_OVERRUN.
func HeaderStore(dst []byte, totalLen int, offset int,
	data []byte) HeaderStoreResult {

	if totalLen > len(dst) || offset+len(data) > totalLen {
		return HDR_STORE_OVERRUN
	}

	copy(dst[offset:], data)
	if offset+len(data) == totalLen {
		return HDR_STORE_COMPLETE
	}
	return HDR_STORE_INCOMPLETE
}
