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
	"fmt"
)

// Request opcodes.  CONNECT, DISCONNECT, SETPATH, SESSION and ABORT always
// carry the final bit.
const (
	OP_CONNECT    uint8 = 0x80
	OP_DISCONNECT uint8 = 0x81
	OP_PUT        uint8 = 0x02
	OP_GET        uint8 = 0x03
	OP_SETPATH    uint8 = 0x85
	OP_SESSION    uint8 = 0x87
	OP_ABORT      uint8 = 0xff
)

const FINAL_BIT uint8 = 0x80

// Response codes, final bit included.
const (
	RSP_CONTINUE               uint8 = 0x90
	RSP_SUCCESS                uint8 = 0xa0
	RSP_CREATED                uint8 = 0xa1
	RSP_ACCEPTED               uint8 = 0xa2
	RSP_BAD_REQUEST            uint8 = 0xc0
	RSP_UNAUTHORIZED           uint8 = 0xc1
	RSP_FORBIDDEN              uint8 = 0xc3
	RSP_NOT_FOUND              uint8 = 0xc4
	RSP_NOT_ACCEPTABLE         uint8 = 0xc6
	RSP_PRECONDITION_FAILED    uint8 = 0xcc
	RSP_ENTITY_TOO_LARGE       uint8 = 0xcd
	RSP_UNSUPPORTED_MEDIA_TYPE uint8 = 0xcf
	RSP_INTERNAL_SERVER_ERROR  uint8 = 0xd0
	RSP_NOT_IMPLEMENTED        uint8 = 0xd1
	RSP_SERVICE_UNAVAILABLE    uint8 = 0xd3
)

// Header identifiers.  The top two bits select the encoding.
const (
	HDR_COUNT          uint8 = 0xc0
	HDR_NAME           uint8 = 0x01
	HDR_TYPE           uint8 = 0x42
	HDR_LENGTH         uint8 = 0xc3
	HDR_TIME_ISO       uint8 = 0x44
	HDR_DESCRIPTION    uint8 = 0x05
	HDR_TARGET         uint8 = 0x46
	HDR_HTTP           uint8 = 0x47
	HDR_BODY           uint8 = 0x48
	HDR_END_OF_BODY    uint8 = 0x49
	HDR_WHO            uint8 = 0x4a
	HDR_CONNECTION_ID  uint8 = 0xcb
	HDR_APP_PARAMS     uint8 = 0x4c
	HDR_AUTH_CHALLENGE uint8 = 0x4d
	HDR_AUTH_RESPONSE  uint8 = 0x4e
	HDR_OBJECT_CLASS   uint8 = 0x4f
	HDR_SESSION_PARAMS uint8 = 0x52
	HDR_SESSION_SEQ    uint8 = 0x93
	HDR_ACTION_ID      uint8 = 0x94
	HDR_DEST_NAME      uint8 = 0x15
	HDR_PERMISSIONS    uint8 = 0xd6
	HDR_SRM            uint8 = 0x97
	HDR_SRMP           uint8 = 0x98
)

// Header encodings (top two bits of the header ID).
const (
	HDR_ENC_MASK    uint8 = 0xc0
	HDR_ENC_UNICODE uint8 = 0x00
	HDR_ENC_BYTES   uint8 = 0x40
	HDR_ENC_BYTE    uint8 = 0x80
	HDR_ENC_WORD    uint8 = 0xc0
)

const (
	SRM_DISABLE uint8 = 0x00
	SRM_ENABLE  uint8 = 0x01

	SRMP_NEXT uint8 = 0x00
	SRMP_WAIT uint8 = 0x01
)

// SETPATH flags.
const (
	SETPATH_BACKUP    uint8 = 1 << 0
	SETPATH_NO_CREATE uint8 = 1 << 1
)

const (
	// OBEX protocol version 1.0, as sent in CONNECT.
	VERSION uint8 = 0x10

	MAX_PACKET_LEN_DEFAULT = 0xffff

	// Smallest max packet length a peer may announce.
	MIN_PACKET_LEN = 255

	CONN_ID_INVALID uint32 = 0xffffffff

	// Opcode/response code plus 16-bit packet length.
	PACKET_PREFIX_LEN = 3

	// Header ID plus 16-bit header length.
	HDR_PREFIX_LEN = 3
)

var opNameMap = map[uint8]string{
	OP_CONNECT:    "connect",
	OP_DISCONNECT: "disconnect",
	OP_PUT:        "put",
	OP_GET:        "get",
	OP_SETPATH:    "setpath",
	OP_SESSION:    "session",
	OP_ABORT:      "abort",
}

func OpString(op uint8) string {
	if s, ok := opNameMap[op]; ok {
		return s
	}
	// PUT and GET may carry the final bit.
	if s, ok := opNameMap[op&^FINAL_BIT]; ok {
		return s + "-final"
	}
	return fmt.Sprintf("op-0x%02x", op)
}

var rspNameMap = map[uint8]string{
	RSP_CONTINUE:               "continue",
	RSP_SUCCESS:                "success",
	RSP_CREATED:                "created",
	RSP_ACCEPTED:               "accepted",
	RSP_BAD_REQUEST:            "bad request",
	RSP_UNAUTHORIZED:           "unauthorized",
	RSP_FORBIDDEN:              "forbidden",
	RSP_NOT_FOUND:              "not found",
	RSP_NOT_ACCEPTABLE:         "not acceptable",
	RSP_PRECONDITION_FAILED:    "precondition failed",
	RSP_ENTITY_TOO_LARGE:       "entity too large",
	RSP_UNSUPPORTED_MEDIA_TYPE: "unsupported media type",
	RSP_INTERNAL_SERVER_ERROR:  "internal server error",
	RSP_NOT_IMPLEMENTED:        "not implemented",
	RSP_SERVICE_UNAVAILABLE:    "service unavailable",
}

func RspString(code uint8) string {
	if s, ok := rspNameMap[code]; ok {
		return s
	}
	return fmt.Sprintf("rsp-0x%02x", code)
}

// Reports whether the final bit may be set on the given opcode by the
// caller.  Opcodes that are always final reject it.
func FinalBitSettable(op uint8) bool {
	switch op {
	case OP_CONNECT, OP_DISCONNECT, OP_SETPATH, OP_SESSION, OP_ABORT:
		return false
	default:
		return true
	}
}
