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

// Package btsock connects to the peer with kernel Bluetooth sockets.  The
// channel or PSM comes from the service record, typically a static lookup
// configured on the command line.
package btsock

import (
	"mynewt.apache.org/obexmgr/obexact/bearer"
	"mynewt.apache.org/obexmgr/obexact/goep"
)

type XportCfg struct {
	Mtu int
}

func NewXportCfg() XportCfg {
	return XportCfg{
		Mtu: 1021,
	}
}

func NewBearer(cfg XportCfg, sink goep.Sink) *bearer.ConnBearer {
	return bearer.NewConnBearer(bearer.ConnBearerCfg{
		Name:       "btsock",
		Mtu:        cfg.Mtu,
		Sink:       sink,
		L2capGoep2: true,
		Dial:       dial,
	})
}
