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

// Status reported to the application in connection and operation events.
type Result uint8

const (
	RESULT_SUCCESS Result = 0x00

	// Bearer could not be opened.
	RESULT_BEARER_FAILED Result = 0x04

	// Service lookup found no usable channel or PSM.
	RESULT_LOOKUP_FAILED Result = 0x11

	RESULT_UNKNOWN_ERROR    Result = 0x90
	RESULT_CONNECT_FAILED   Result = 0x91
	RESULT_DISCONNECTED     Result = 0x92
	RESULT_NOT_FOUND        Result = 0x93
	RESULT_NOT_ACCEPTABLE   Result = 0x94
	RESULT_ABORTED          Result = 0x95
	RESULT_NOT_IMPLEMENTED  Result = 0x96
	RESULT_TRANSPORT_FAILED Result = 0x97
	RESULT_PROTOCOL_ERROR   Result = 0x98
)

var resultNameMap = map[Result]string{
	RESULT_SUCCESS:          "success",
	RESULT_BEARER_FAILED:    "bearer open failed",
	RESULT_LOOKUP_FAILED:    "service lookup failed",
	RESULT_UNKNOWN_ERROR:    "unknown error",
	RESULT_CONNECT_FAILED:   "connect failed",
	RESULT_DISCONNECTED:     "disconnected",
	RESULT_NOT_FOUND:        "not found",
	RESULT_NOT_ACCEPTABLE:   "not acceptable",
	RESULT_ABORTED:          "aborted",
	RESULT_NOT_IMPLEMENTED:  "not implemented",
	RESULT_TRANSPORT_FAILED: "transport failed",
	RESULT_PROTOCOL_ERROR:   "protocol error",
}

func (r Result) String() string {
	if s, ok := resultNameMap[r]; ok {
		return s
	}
	return fmt.Sprintf("result-0x%02x", uint8(r))
}

func (r Result) Ok() bool {
	return r == RESULT_SUCCESS
}

// Collapses an OBEX response code into the closed set of operation results.
func ResultFromRsp(code uint8) Result {
	switch code {
	case RSP_SUCCESS:
		return RESULT_SUCCESS

	case RSP_NOT_FOUND:
		return RESULT_NOT_FOUND

	case RSP_UNAUTHORIZED,
		RSP_FORBIDDEN,
		RSP_NOT_ACCEPTABLE,
		RSP_UNSUPPORTED_MEDIA_TYPE,
		RSP_ENTITY_TOO_LARGE:

		return RESULT_NOT_ACCEPTABLE

	case RSP_NOT_IMPLEMENTED:
		return RESULT_NOT_IMPLEMENTED

	default:
		return RESULT_UNKNOWN_ERROR
	}
}
