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

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/obexmgr/obexact/bearer"
)

// Settings carried by a connstring.  Which keys apply depends on the
// connection type; unset numeric keys take the bearer's default.
type ConnCfg struct {
	Peer string

	// Static service record; bluez looks the service up instead.
	Channel  uint8
	Psm      uint16
	Features uint32
	Instance int

	Mtu   int
	Goep2 bool

	// bluez
	Adapter string

	// serial
	Dev    string
	Baud   int
	Framed bool

	// ws
	Url string

	ConnTimeout time.Duration
}

func einvalConnString(f string, args ...interface{}) error {
	suffix := fmt.Sprintf(f, args...)
	return util.FmtNewtError("Invalid connstring; %s", suffix)
}

// Parses a comma-separated list of key=value pairs.  A lone token is the
// peer, or the device path of a serial connection.
func ParseConnString(ct ConnType, cs string) (*ConnCfg, error) {
	cc := &ConnCfg{}
	if cs == "" {
		return cc, nil
	}

	for _, p := range strings.Split(cs, ",") {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 1 {
			if ct == CONN_TYPE_SERIAL {
				kv = []string{"dev", kv[0]}
			} else {
				kv = []string{"peer", kv[0]}
			}
		}

		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])

		var err error
		switch k {
		case "peer":
			cc.Peer = v
		case "channel":
			cc.Channel, err = cast.ToUint8E(v)
		case "psm":
			cc.Psm, err = cast.ToUint16E(v)
		case "features":
			cc.Features, err = cast.ToUint32E(v)
		case "instance":
			cc.Instance, err = cast.ToIntE(v)
		case "mtu":
			cc.Mtu, err = cast.ToIntE(v)
		case "goep2":
			cc.Goep2, err = cast.ToBoolE(v)
		case "adapter":
			cc.Adapter = v
		case "dev":
			cc.Dev = v
		case "baud":
			cc.Baud, err = cast.ToIntE(v)
		case "framed":
			cc.Framed, err = cast.ToBoolE(v)
		case "url":
			cc.Url = v
		case "conn_timeout":
			cc.ConnTimeout, err = cast.ToDurationE(v)
		default:
			return nil, einvalConnString("Unrecognized key: %s", k)
		}

		if err != nil {
			return nil, einvalConnString("Invalid %s: %s", k, v)
		}
	}

	if err := cc.validate(ct); err != nil {
		return nil, err
	}

	return cc, nil
}

func (cc *ConnCfg) validate(ct ConnType) error {
	switch ct {
	case CONN_TYPE_BLUEZ, CONN_TYPE_BTSOCK, CONN_TYPE_WS:
		if cc.Peer != "" {
			if _, err := bearer.ParseBdAddr(cc.Peer); err != nil {
				return einvalConnString("%s", err.Error())
			}
		}
		if ct == CONN_TYPE_BTSOCK && cc.Channel == 0 && cc.Psm == 0 {
			return einvalConnString("btsock needs a channel or psm")
		}
		if ct == CONN_TYPE_WS && cc.Url == "" {
			return einvalConnString("ws needs a url")
		}
	}

	return nil
}
