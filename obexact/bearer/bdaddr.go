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

package bearer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A Bluetooth device address in display order (most significant byte
// first).
type BdAddr [6]byte

func ParseBdAddr(s string) (BdAddr, error) {
	var a BdAddr

	toks := strings.Split(s, ":")
	if len(toks) != len(a) {
		return a, errors.Errorf("invalid bluetooth address: %s", s)
	}

	for i, tok := range toks {
		if len(tok) != 2 {
			return a, errors.Errorf("invalid bluetooth address: %s", s)
		}
		u, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return a, errors.Wrapf(err, "invalid bluetooth address: %s", s)
		}
		a[i] = byte(u)
	}

	return a, nil
}

// The address as the HCI layer stores it, least significant byte first.
func (a BdAddr) Reversed() [6]byte {
	var r [6]byte
	for i := range a {
		r[i] = a[len(a)-1-i]
	}
	return r
}

func (a BdAddr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		a[0], a[1], a[2], a[3], a[4], a[5])
}
