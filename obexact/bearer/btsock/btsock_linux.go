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

package btsock

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"mynewt.apache.org/obexmgr/obexact/bearer"
	"mynewt.apache.org/obexmgr/obexact/goep"
)

// Opens an RFCOMM stream socket, or an L2CAP SEQPACKET socket when the
// record carries a PSM.
func dial(peer string, rec goep.ServiceRecord) (io.ReadWriteCloser, error) {
	addr, err := bearer.ParseBdAddr(peer)
	if err != nil {
		return nil, err
	}

	var fd int
	var sa unix.Sockaddr
	var name string

	if rec.L2capPsm != 0 {
		fd, err = unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET,
			unix.BTPROTO_L2CAP)
		sa = &unix.SockaddrL2{
			PSM:  rec.L2capPsm,
			Addr: addr,
		}
		name = "l2cap"
	} else {
		fd, err = unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM,
			unix.BTPROTO_RFCOMM)
		sa = &unix.SockaddrRFCOMM{
			Addr:    addr.Reversed(),
			Channel: rec.RfcommChannel,
		}
		name = "rfcomm"
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s socket", name)
	}

	log.Debugf("btsock: connecting %s to %s (%s)", name, addr, rec)
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "%s connect %s", name, addr)
	}

	// Non-blocking so that Close interrupts a pending read.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "%s set nonblock", name)
	}

	return os.NewFile(uintptr(fd), name+":"+peer), nil
}
