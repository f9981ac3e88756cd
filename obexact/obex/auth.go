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
	"crypto/md5"

	"mynewt.apache.org/obexmgr/obexact/obexutil"
)

// Tags inside AUTH_CHALLENGE and AUTH_RESPONSE headers.
const (
	AUTH_TAG_NONCE   uint8 = 0x00
	AUTH_TAG_OPTIONS uint8 = 0x01
	AUTH_TAG_REALM   uint8 = 0x02

	AUTH_TAG_DIGEST    uint8 = 0x00
	AUTH_TAG_USER_ID   uint8 = 0x01
	AUTH_TAG_RSP_NONCE uint8 = 0x02
)

// Challenge option bits.
const (
	AUTH_OPT_USER_ID   uint8 = 1 << 0
	AUTH_OPT_READ_ONLY uint8 = 1 << 1
)

const AUTH_NONCE_LEN = 16

type AuthChallenge struct {
	Nonce   [AUTH_NONCE_LEN]byte
	Options uint8
	Realm   []byte
}

// Parses the payload of an AUTH_CHALLENGE header.  The nonce is mandatory
// and must be 16 bytes; options, when present, is a single byte.
func ParseAuthChallenge(b []byte) (AuthChallenge, error) {
	ac := AuthChallenge{}

	m, err := ParseAppParams(b)
	if err != nil {
		return ac, err
	}

	nonce, ok := m[AUTH_TAG_NONCE]
	if !ok || len(nonce) != AUTH_NONCE_LEN {
		return ac, obexutil.FmtProtocolError(
			"auth challenge: bad nonce (len=%d)", len(nonce))
	}
	copy(ac.Nonce[:], nonce)

	if opts, ok := m[AUTH_TAG_OPTIONS]; ok {
		if len(opts) != 1 {
			return ac, obexutil.FmtProtocolError(
				"auth challenge: bad options (len=%d)", len(opts))
		}
		ac.Options = opts[0]
	}

	ac.Realm = m[AUTH_TAG_REALM]

	return ac, nil
}

// Digest for a challenge: MD5(nonce ":" password).
func AuthDigest(nonce [AUTH_NONCE_LEN]byte, password string) [md5.Size]byte {
	h := md5.New()
	h.Write(nonce[:])
	h.Write([]byte{':'})
	h.Write([]byte(password))

	var d [md5.Size]byte
	copy(d[:], h.Sum(nil))
	return d
}

// Builds the payload of an AUTH_RESPONSE header answering the challenge.
func AuthResponse(ac AuthChallenge, password string) []byte {
	d := AuthDigest(ac.Nonce, password)
	return NewAppParams().
		AddBytes(AUTH_TAG_DIGEST, d[:]).
		AddBytes(AUTH_TAG_RSP_NONCE, ac.Nonce[:]).
		Bytes()
}
