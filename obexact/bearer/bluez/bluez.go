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

// Package bluez obtains GOEP bearers from the BlueZ daemon over D-Bus.  The
// lookup confirms that the peer offers the service; the bearer registers a
// client profile and lets BlueZ resolve and connect the RFCOMM channel.
package bluez

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/bearer"
	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obex"
)

const (
	BLUEZ_SERVICE         = "org.bluez"
	PROFILE_IFACE         = "org.bluez.Profile1"
	PROFILE_MANAGER_IFACE = "org.bluez.ProfileManager1"
	DEVICE_IFACE          = "org.bluez.Device1"
	PROPS_IFACE           = "org.freedesktop.DBus.Properties"

	PROFILE_PATH_PREFIX = "/org/mynewt/obexmgr/profile"
)

type XportCfg struct {
	Adapter        string
	Mtu            int
	ConnectTimeout time.Duration
}

func NewXportCfg() XportCfg {
	return XportCfg{
		Adapter:        "hci0",
		Mtu:            1021,
		ConnectTimeout: 20 * time.Second,
	}
}

// The 128-bit form of a 16-bit Bluetooth SIG UUID.
func Uuid128(uuid16 uint16) string {
	return fmt.Sprintf("0000%04x-0000-1000-8000-00805f9b34fb", uuid16)
}

func DevicePath(adapter string, addr bearer.BdAddr) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("/org/bluez/%s/dev_%s", adapter,
		strings.Replace(addr.String(), ":", "_", -1)))
}

func deviceObject(conn *dbus.Conn, adapter string,
	peer string) (dbus.BusObject, error) {

	addr, err := bearer.ParseBdAddr(peer)
	if err != nil {
		return nil, err
	}
	return conn.Object(BLUEZ_SERVICE, DevicePath(adapter, addr)), nil
}

func hasUuid(uuids []string, uuid16 uint16) bool {
	want := Uuid128(uuid16)
	for _, u := range uuids {
		if strings.EqualFold(u, want) {
			return true
		}
	}
	return false
}

// Answers lookups from the device's advertised UUID list.  BlueZ does not
// export SDP attributes, so supported features are never reported.
type Lookup struct {
	Adapter string
	Sink    goep.Sink
}

func NewLookup(adapter string, sink goep.Sink) *Lookup {
	return &Lookup{
		Adapter: adapter,
		Sink:    sink,
	}
}

func (l *Lookup) Lookup(peer string, svcUuid uint16, instance int) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return errors.Wrap(err, "connect system bus")
	}
	dev, err := deviceObject(conn, l.Adapter, peer)
	if err != nil {
		return err
	}

	go func() {
		res := goep.LookupResult{Status: obex.RESULT_LOOKUP_FAILED}

		var v dbus.Variant
		err := dev.Call(PROPS_IFACE+".Get", 0, DEVICE_IFACE, "UUIDs").Store(&v)
		if err != nil {
			log.Debugf("bluez lookup: %s: %s", peer, err.Error())
		} else if uuids, _ := v.Value().([]string); hasUuid(uuids, svcUuid) {
			res.Status = obex.RESULT_SUCCESS
			res.Record = goep.ServiceRecord{
				ProfileUuid:   svcUuid,
				MasInstanceId: uint8(instance),
			}
		} else {
			log.Debugf("bluez lookup: %s does not offer 0x%04x",
				peer, svcUuid)
		}

		l.Sink(res)
	}()

	return nil
}

// org.bluez.Profile1, registered in the client role.  BlueZ hands over the
// connected socket in NewConnection.
type profile struct {
	fdCh chan dbus.UnixFD
}

func (p *profile) Release() *dbus.Error {
	return nil
}

func (p *profile) NewConnection(dev dbus.ObjectPath, fd dbus.UnixFD,
	props map[string]dbus.Variant) *dbus.Error {

	select {
	case p.fdCh <- fd:
		return nil
	default:
		os.NewFile(uintptr(fd), "rfcomm").Close()
		return &dbus.Error{
			Name: "org.bluez.Error.Rejected",
			Body: []interface{}{"unexpected connection"},
		}
	}
}

func (p *profile) RequestDisconnection(dev dbus.ObjectPath) *dbus.Error {
	return nil
}

var nextProfileId uint32

// A connected profile socket.  Close also releases the profile registration.
type profileConn struct {
	*os.File
	once    sync.Once
	cleanup func()
}

func (pc *profileConn) Close() error {
	err := pc.File.Close()
	pc.once.Do(pc.cleanup)
	return err
}

func dial(cfg XportCfg, peer string,
	rec goep.ServiceRecord) (io.ReadWriteCloser, error) {

	if rec.ProfileUuid == 0 {
		return nil, errors.Errorf("bluez bearer needs a profile uuid; got %s",
			rec)
	}
	uuid := Uuid128(rec.ProfileUuid)

	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "connect system bus")
	}
	dev, err := deviceObject(conn, cfg.Adapter, peer)
	if err != nil {
		return nil, err
	}

	p := &profile{fdCh: make(chan dbus.UnixFD, 1)}
	path := dbus.ObjectPath(fmt.Sprintf("%s%d", PROFILE_PATH_PREFIX,
		atomic.AddUint32(&nextProfileId, 1)))
	if err := conn.Export(p, path, PROFILE_IFACE); err != nil {
		return nil, errors.Wrap(err, "export profile")
	}

	pm := conn.Object(BLUEZ_SERVICE, "/org/bluez")
	opts := map[string]dbus.Variant{
		"Role": dbus.MakeVariant("client"),
	}
	cleanup := func() {
		dev.Call(DEVICE_IFACE+".DisconnectProfile", 0, uuid)
		pm.Call(PROFILE_MANAGER_IFACE+".UnregisterProfile", 0, path)
		conn.Export(nil, path, PROFILE_IFACE)
	}

	err = pm.Call(PROFILE_MANAGER_IFACE+".RegisterProfile", 0, path, uuid,
		opts).Err
	if err != nil {
		conn.Export(nil, path, PROFILE_IFACE)
		return nil, errors.Wrap(err, "register profile")
	}

	log.Debugf("bluez: connecting %s to %s", uuid, peer)
	if err := dev.Call(DEVICE_IFACE+".ConnectProfile", 0, uuid).Err; err != nil {
		cleanup()
		return nil, errors.Wrapf(err, "connect profile %s", uuid)
	}

	select {
	case fd := <-p.fdCh:
		f, err := fileFromFd(int(fd))
		if err != nil {
			cleanup()
			return nil, err
		}
		return &profileConn{File: f, cleanup: cleanup}, nil

	case <-time.After(cfg.ConnectTimeout):
		cleanup()
		return nil, errors.Errorf("no connection from bluez after %s",
			cfg.ConnectTimeout)
	}
}

func NewBearer(cfg XportCfg, sink goep.Sink) *bearer.ConnBearer {
	return bearer.NewConnBearer(bearer.ConnBearerCfg{
		Name: "bluez",
		Mtu:  cfg.Mtu,
		Sink: sink,
		Dial: func(peer string, rec goep.ServiceRecord) (io.ReadWriteCloser, error) {
			return dial(cfg, peer, rec)
		},
	})
}
