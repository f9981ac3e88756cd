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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
	"mynewt.apache.org/obexmgr/obexmgr/omutil"
)

var ObexmgrLogLevel log.Level

func Commands() *cobra.Command {
	logLevelStr := ""
	omCmd := &cobra.Command{
		Use:   omutil.ToolInfo.ExeName,
		Short: omutil.ToolInfo.ShortName + " exchanges objects with Bluetooth devices",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			ObexmgrLogLevel, err = log.ParseLevel(logLevelStr)
			if err != nil {
				omUsage(nil, util.ChildNewtError(err))
			}

			err = util.Init(ObexmgrLogLevel, "", util.VERBOSITY_DEFAULT)
			if err != nil {
				omUsage(nil, err)
			}
			obexutil.SetLogLevel(ObexmgrLogLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	omCmd.PersistentFlags().StringVarP(&omutil.ConnProfile, "conn", "c", "",
		"connection profile to use")

	omCmd.PersistentFlags().Float64VarP(&omutil.Timeout, "timeout", "t", 10.0,
		"timeout in seconds (partial seconds allowed)")

	omCmd.PersistentFlags().IntVarP(&omutil.Tries, "tries", "r", 1,
		"total number of connection attempts")

	omCmd.PersistentFlags().StringVarP(&logLevelStr, "loglevel", "l", "info",
		"log level to use")

	omCmd.PersistentFlags().StringVar(&omutil.ConnType, "conntype", "",
		"Connection type to use instead of using the profile's type")

	omCmd.PersistentFlags().StringVar(&omutil.ConnString, "connstring", "",
		"Connection key-value pairs to use instead of using the profile's "+
			"connstring")

	omCmd.PersistentFlags().StringVar(&omutil.ConnExtra, "connextra", "",
		"Additional key-value pair to append to the connstring")

	omCmd.PersistentFlags().BoolVar(&omutil.JsonOutput, "json", false,
		"print results as JSON")

	versCmd := &cobra.Command{
		Use:     "version",
		Short:   "Display the " + omutil.ToolInfo.ShortName + " version number",
		Example: "  " + omutil.ToolInfo.ExeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n",
				omutil.ToolInfo.LongName,
				omutil.ToolInfo.VersionString)
		},
	}
	omCmd.AddCommand(versCmd)

	omCmd.AddCommand(connProfileCmd())
	omCmd.AddCommand(oppCmd())
	omCmd.AddCommand(pbapCmd())
	omCmd.AddCommand(mapCmd())
	omCmd.AddCommand(interactiveCmd())

	return omCmd
}
