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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/obexmgr/obexmgr/omutil"
)

type ConnProfileMgr struct {
	profiles map[string]*ConnProfile

	// Empty: the file under the home directory.
	filename string
}

type ConnType int

type ConnProfile struct {
	Name       string   `json:"name"`
	Type       ConnType `json:"type"`
	ConnString string   `json:"connstring"`
}

func (p *ConnProfile) String() string {
	return fmt.Sprintf("name=%s type=%s connstring=%s",
		p.Name, ConnTypeToString(p.Type), p.ConnString)
}

const (
	CONN_TYPE_NONE ConnType = iota
	CONN_TYPE_BLUEZ
	CONN_TYPE_BTSOCK
	CONN_TYPE_SERIAL
	CONN_TYPE_TCP
	CONN_TYPE_WS
)

var connTypeNames = []string{
	CONN_TYPE_NONE:   "???",
	CONN_TYPE_BLUEZ:  "bluez",
	CONN_TYPE_BTSOCK: "btsock",
	CONN_TYPE_SERIAL: "serial",
	CONN_TYPE_TCP:    "tcp",
	CONN_TYPE_WS:     "ws",
}

func ConnTypeToString(ct ConnType) string {
	if ct < 0 || int(ct) >= len(connTypeNames) {
		return connTypeNames[CONN_TYPE_NONE]
	}
	return connTypeNames[ct]
}

func ConnTypeFromString(s string) (ConnType, error) {
	for i := int(CONN_TYPE_NONE) + 1; i < len(connTypeNames); i++ {
		if connTypeNames[i] == s {
			return ConnType(i), nil
		}
	}

	return CONN_TYPE_NONE, util.FmtNewtError("Invalid connection type: %s", s)
}

func (t ConnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(ConnTypeToString(t))
}

func (ct *ConnType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var err error
	*ct, err = ConnTypeFromString(s)
	if err != nil {
		*ct = CONN_TYPE_NONE
	}
	return nil
}

func NewConnProfileMgr() (*ConnProfileMgr, error) {
	return newConnProfileMgr("")
}

func newConnProfileMgr(filename string) (*ConnProfileMgr, error) {
	cpm := &ConnProfileMgr{
		profiles: map[string]*ConnProfile{},
		filename: filename,
	}

	if err := cpm.Init(); err != nil {
		return nil, err
	}

	return cpm, nil
}

func (cpm *ConnProfileMgr) cfgFilename() (string, error) {
	if cpm.filename != "" {
		return cpm.filename, nil
	}

	dir, err := homedir.Dir()
	if err != nil {
		return "", util.NewNewtError(err.Error())
	}

	return filepath.Join(dir, omutil.ToolInfo.CfgFilename), nil
}

func (cpm *ConnProfileMgr) Init() error {
	filename, err := cpm.cfgFilename()
	if err != nil {
		return err
	}

	log.Debugf("Reading connection profiles from %s", filename)
	blob, err := ioutil.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		} else {
			return util.ChildNewtError(err)
		}
	}

	var profiles []*ConnProfile
	if err := json.Unmarshal(blob, &profiles); err != nil {
		return util.FmtNewtError("error reading connection profile "+
			"config (%s): %s", filename, err.Error())
	}

	for _, p := range profiles {
		if p.Type == CONN_TYPE_NONE {
			log.Warnf("Ignoring connection profile %s: unknown type", p.Name)
			continue
		}
		cpm.profiles[p.Name] = p
	}

	return nil
}

func SortConnProfs(cps []*ConnProfile) []*ConnProfile {
	sorted := make([]*ConnProfile, len(cps))
	copy(sorted, cps)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

func (cpm *ConnProfileMgr) GetConnProfileList() ([]*ConnProfile, error) {
	log.Debugf("Getting list of connection profiles")

	cpList := make([]*ConnProfile, 0, len(cpm.profiles))
	for _, p := range cpm.profiles {
		cpList = append(cpList, p)
	}

	return SortConnProfs(cpList), nil
}

func (cpm *ConnProfileMgr) save() error {
	list, _ := cpm.GetConnProfileList()
	b, err := json.MarshalIndent(list, "", "    ")
	if err != nil {
		return util.NewNewtError(err.Error())
	}

	filename, err := cpm.cfgFilename()
	if err != nil {
		return err
	}

	// Written beside the target, then renamed over it.
	tmp, err := ioutil.TempFile(filepath.Dir(filename),
		filepath.Base(filename)+".")
	if err != nil {
		return util.ChildNewtError(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return util.ChildNewtError(err)
	}
	if err := tmp.Close(); err != nil {
		return util.ChildNewtError(err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return util.ChildNewtError(err)
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return util.ChildNewtError(err)
	}

	log.Debugf("Saved %d connection profiles to %s", len(list), filename)
	return nil
}

func (cpm *ConnProfileMgr) DeleteConnProfile(name string) error {
	if cpm.profiles[name] == nil {
		return util.FmtNewtError("connection profile \"%s\" doesn't exist",
			name)
	}

	delete(cpm.profiles, name)

	return cpm.save()
}

// Adds or replaces a profile.  The connstring must parse for the profile's
// type.
func (cpm *ConnProfileMgr) AddConnProfile(cp *ConnProfile) error {
	if _, err := ParseConnString(cp.Type, cp.ConnString); err != nil {
		return err
	}

	cpm.profiles[cp.Name] = cp

	return cpm.save()
}

func (cpm *ConnProfileMgr) GetConnProfile(pName string) (*ConnProfile, error) {
	p := cpm.profiles[pName]
	if p == nil {
		return nil, util.FmtNewtError("connection profile \"%s\" doesn't "+
			"exist", pName)
	}

	return p, nil
}

func NewConnProfile() *ConnProfile {
	return &ConnProfile{}
}

var globalConnProfileMgr *ConnProfileMgr

func GlobalConnProfileMgr() *ConnProfileMgr {
	if globalConnProfileMgr == nil {
		panic("connection profile manager not initialized")
	}
	return globalConnProfileMgr
}

func InitGlobalConnProfileMgr() error {
	if globalConnProfileMgr != nil {
		return util.NewNewtError("connection profile manager initialized twice")
	}

	var err error
	globalConnProfileMgr, err = NewConnProfileMgr()
	if err != nil {
		return err
	}

	return nil
}
