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

package cli

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/mas"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/opp"
	"mynewt.apache.org/obexmgr/obexact/pbap"
	"mynewt.apache.org/obexmgr/obexact/profile"
	"mynewt.apache.org/obexmgr/obexact/sesn"
	"mynewt.apache.org/obexmgr/obexact/xact"
	"mynewt.apache.org/obexmgr/obexmgr/config"
	"mynewt.apache.org/obexmgr/obexmgr/omutil"
)

var globalSesn *sesn.Sesn
var globalSvc uint16

// Resolves the connection profile named by --conn, then applies the
// --conntype, --connstring and --connextra overrides.
func getConnProfile() (*config.ConnProfile, error) {
	cp := config.NewConnProfile()

	if omutil.ConnProfile != "" {
		p, err := config.GlobalConnProfileMgr().GetConnProfile(
			omutil.ConnProfile)
		if err != nil {
			return nil, err
		}
		*cp = *p
	}

	if omutil.ConnType != "" {
		ct, err := config.ConnTypeFromString(omutil.ConnType)
		if err != nil {
			return nil, err
		}
		cp.Type = ct
	}

	if omutil.ConnString != "" {
		cp.ConnString = omutil.ConnString
	}

	if omutil.ConnExtra != "" {
		if cp.ConnString != "" {
			cp.ConnString += ","
		}
		cp.ConnString += omutil.ConnExtra
	}

	if cp.Type == config.CONN_TYPE_NONE {
		return nil, util.NewNewtError(
			"No connection specified; use --conn or --conntype")
	}

	return cp, nil
}

func clientBuilder(svc uint16, cc *config.ConnCfg) (sesn.ClientBuilder, error) {
	switch svc {
	case obex.SVC_OBEX_OBJECT_PUSH:
		return func(gs *goep.Session, h profile.Handler) sesn.Client {
			return opp.NewClient(gs, h)
		}, nil

	case obex.SVC_PBAP_PSE:
		return func(gs *goep.Session, h profile.Handler) sesn.Client {
			return pbap.NewClient(gs, h)
		}, nil

	case obex.SVC_MAP_MAS:
		instance := cc.Instance
		return func(gs *goep.Session, h profile.Handler) sesn.Client {
			return mas.NewClient(gs, instance, h)
		}, nil

	default:
		return nil, util.FmtNewtError("Unsupported service: 0x%04x", svc)
	}
}

func readPassword(realm string) (string, error) {
	if realm != "" {
		fmt.Fprintf(os.Stderr, "Password for %s: ", realm)
	} else {
		fmt.Fprintf(os.Stderr, "Password: ")
	}

	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintf(os.Stderr, "\n")
	if err != nil {
		return "", util.ChildNewtError(err)
	}

	return string(b), nil
}

func buildSesn(svc uint16) (*sesn.Sesn, error) {
	cp, err := getConnProfile()
	if err != nil {
		return nil, err
	}

	cc, err := config.ParseConnString(cp.Type, cp.ConnString)
	if err != nil {
		return nil, err
	}

	sc, err := config.BuildSesnCfg(cp.Type, cc, svc)
	if err != nil {
		return nil, err
	}

	sc.BuildClient, err = clientBuilder(svc, cc)
	if err != nil {
		return nil, err
	}

	sc.PasswordCb = readPassword
	sc.OnCloseCb = func(s *sesn.Sesn) {
		log.Warnf("Connection to %s lost", s.Peer())
	}

	s, err := sesn.NewSesn(sc)
	if err != nil {
		return nil, util.ChildNewtError(err)
	}

	return s, nil
}

// Returns an open session to the given service, connecting on first use.  A
// session to a different service is closed first.
func GetSesn(svc uint16) (*sesn.Sesn, error) {
	if globalSesn != nil {
		if globalSvc == svc && globalSesn.IsOpen() {
			return globalSesn, nil
		}
		CloseSesn()
	}

	s, err := buildSesn(svc)
	if err != nil {
		return nil, err
	}

	c := xact.NewConnectCmd()
	c.SetTxOptions(omutil.TxOptions())
	if _, err := c.Run(s); err != nil {
		return nil, util.ChildNewtError(err)
	}

	globalSesn = s
	globalSvc = svc

	return globalSesn, nil
}

func GetSesnIfOpen() (*sesn.Sesn, error) {
	if globalSesn == nil {
		return nil, fmt.Errorf("sesn not initailized")
	}

	return globalSesn, nil
}

func CloseSesn() {
	if globalSesn == nil {
		return
	}

	if err := globalSesn.Close(); err != nil {
		log.Debugf("close: %s", err.Error())
	}
	globalSesn = nil
	globalSvc = 0
}

// Runs a command against a session to svc and exits with a usage message on
// failure.
func runCmd(svc uint16, c xact.Cmd) xact.Result {
	s, err := GetSesn(svc)
	if err != nil {
		omUsage(nil, err)
	}

	c.SetTxOptions(omutil.TxOptions())
	res, err := c.Run(s)
	if err != nil {
		omUsage(nil, util.ChildNewtError(err))
	}

	return res
}

// Descends into path before running the actual command.
func runCmdAt(svc uint16, path string, c xact.Cmd) xact.Result {
	if path != "" {
		sp := xact.NewSetPathCmd()
		sp.Path = path
		res := runCmd(svc, sp)
		if res.Status() != 0 {
			omUsage(nil, util.FmtNewtError("Cannot enter %s: %s",
				path, statusString(res.Status())))
		}
	}

	return runCmd(svc, c)
}

func checkStatus(res xact.Result) {
	if res.Status() != 0 {
		fmt.Fprintf(os.Stderr, "Error: %s\n", statusString(res.Status()))
		OmExit(1)
	}
}
