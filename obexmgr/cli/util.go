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
	"sort"

	"github.com/fatih/structs"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
	"mynewt.apache.org/obexmgr/obexmgr/omutil"
)

var onExit func()

func OmSetOnExit(fn func()) {
	onExit = fn
}

func OmExit(status int) {
	if onExit != nil {
		onExit()
	}
	os.Exit(status)
}

func omUsage(cmd *cobra.Command, err error) {
	if err != nil {
		if nerr, ok := err.(*util.NewtError); ok {
			log.Debugf("%s", nerr.StackTrace)
			fmt.Fprintf(os.Stderr, "Error: %s\n", nerr.Text)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		}
	}

	if cmd != nil {
		fmt.Printf("\n")
		fmt.Printf("%s - ", cmd.Name())
		cmd.Help()
	}

	OmExit(1)
}

func statusString(status int) string {
	return obex.Result(status).String()
}

// Prints a result as JSON when --json is given.  Returns false if the caller
// should print it in plain form.
func printJson(val interface{}) bool {
	if !omutil.JsonOutput {
		return false
	}

	b, err := obexutil.EncodeJson(val)
	if err != nil {
		omUsage(nil, util.ChildNewtError(err))
	}
	fmt.Printf("%s\n", b)
	return true
}

// One line of key=value pairs, sorted by key.
func itemString(item interface{}) string {
	if !structs.IsStruct(item) {
		return fmt.Sprintf("%v", item)
	}

	m := structs.Map(item)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%v", k, m[k])
	}
	return s
}
