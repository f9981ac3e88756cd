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

	"mynewt.apache.org/obexmgr/obexact/obexutil"
)

// Called for each fragment of an application parameter value.
type AppParamFunc func(tag uint8, totalLen int, offset int, data []byte)

type appParamState int

const (
	APSTATE_W4_TAG appParamState = iota
	APSTATE_W4_LEN
	APSTATE_W4_VALUE
	APSTATE_INVALID
)

// Byte-fed parser for the tag-length-value list inside an APP_PARAMS header.
// It is fed the header's fragments as delivered by the packet parser.
type AppParamParser struct {
	cb        AppParamFunc
	paramSize int
	paramPos  int

	state  appParamState
	tag    uint8
	tagLen int
	tagPos int
}

// Creates a parser for an APP_PARAMS payload of paramSize bytes.
func NewAppParamParser(paramSize int, cb AppParamFunc) *AppParamParser {
	return &AppParamParser{
		cb:        cb,
		paramSize: paramSize,
	}
}

func (p *AppParamParser) Feed(data []byte) ParserResult {
	for len(data) > 0 {
		if p.state == APSTATE_INVALID {
			return PARSER_INVALID
		}
		if p.paramPos >= p.paramSize {
			return PARSER_OVERRUN
		}

		switch p.state {
		case APSTATE_W4_TAG:
			p.tag = data[0]
			p.state = APSTATE_W4_LEN
			data = data[1:]
			p.paramPos++

		case APSTATE_W4_LEN:
			p.tagLen = int(data[0])
			p.tagPos = 0
			data = data[1:]
			p.paramPos++
			if p.paramPos+p.tagLen > p.paramSize {
				p.state = APSTATE_INVALID
				return PARSER_INVALID
			}
			if p.tagLen == 0 {
				p.state = APSTATE_W4_TAG
			} else {
				p.state = APSTATE_W4_VALUE
			}

		case APSTATE_W4_VALUE:
			n := p.tagLen - p.tagPos
			if n > len(data) {
				n = len(data)
			}
			if p.cb != nil {
				p.cb(p.tag, p.tagLen, p.tagPos, data[:n])
			}
			p.tagPos += n
			p.paramPos += n
			data = data[n:]
			if p.tagPos == p.tagLen {
				p.state = APSTATE_W4_TAG
			}
		}
	}

	if p.paramPos == p.paramSize {
		if p.state == APSTATE_W4_TAG {
			return PARSER_COMPLETE
		}
		return PARSER_INVALID
	}
	return PARSER_INCOMPLETE
}

// Parses a complete APP_PARAMS payload into a tag/value map.  Later tags
// override earlier ones.
func ParseAppParams(b []byte) (map[uint8][]byte, error) {
	m := map[uint8][]byte{}
	p := NewAppParamParser(len(b), func(tag uint8, totalLen int, offset int,
		data []byte) {

		if offset == 0 {
			m[tag] = make([]byte, 0, totalLen)
		}
		m[tag] = append(m[tag], data...)
	})

	if len(b) == 0 {
		return m, nil
	}
	if res := p.Feed(b); res != PARSER_COMPLETE {
		return nil, obexutil.FmtProtocolError(
			"malformed application parameters: %s", res)
	}
	return m, nil
}

// Builds an application parameter list.
type AppParams struct {
	b []byte
}

func NewAppParams() *AppParams {
	return &AppParams{}
}

func (ap *AppParams) AddBytes(tag uint8, val []byte) *AppParams {
	ap.b = append(ap.b, tag, uint8(len(val)))
	ap.b = append(ap.b, val...)
	return ap
}

func (ap *AppParams) AddByte(tag uint8, val uint8) *AppParams {
	return ap.AddBytes(tag, []byte{val})
}

func (ap *AppParams) AddUint16(tag uint8, val uint16) *AppParams {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, val)
	return ap.AddBytes(tag, b)
}

func (ap *AppParams) AddUint32(tag uint8, val uint32) *AppParams {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, val)
	return ap.AddBytes(tag, b)
}

func (ap *AppParams) AddUint64(tag uint8, val uint64) *AppParams {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, val)
	return ap.AddBytes(tag, b)
}

func (ap *AppParams) Len() int {
	return len(ap.b)
}

func (ap *AppParams) Bytes() []byte {
	return ap.b
}
