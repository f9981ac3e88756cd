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
	"strings"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/obexmgr/obexmgr/config"
	"mynewt.apache.org/obexmgr/obexmgr/omutil"

	"github.com/spf13/cobra"
)

func connProfileAddCmd(cmd *cobra.Command, args []string) {
	cpm := config.GlobalConnProfileMgr()

	// Connection Profile name required
	if len(args) == 0 {
		omUsage(cmd, util.NewNewtError("Need connection profile name"))
	}

	name := args[0]
	cp := config.NewConnProfile()
	cp.Name = name
	cp.Type = config.CONN_TYPE_NONE

	for _, vdef := range args[1:] {
		s := strings.SplitN(vdef, "=", 2)
		if len(s) != 2 {
			omUsage(cmd, util.FmtNewtError("Expected varname=value: %s", vdef))
		}

		switch s[0] {
		case "type":
			var err error
			cp.Type, err = config.ConnTypeFromString(s[1])
			if err != nil {
				omUsage(cmd, err)
			}
		case "connstring":
			cp.ConnString = s[1]
		default:
			omUsage(cmd, util.NewNewtError("Unknown variable "+s[0]))
		}
	}

	if cp.Type == config.CONN_TYPE_NONE {
		omUsage(cmd, util.NewNewtError("Must specify a connection type"))
	}

	if err := cpm.AddConnProfile(cp); err != nil {
		omUsage(cmd, err)
	}

	fmt.Printf("Connection profile %s successfully added\n", name)
}

func connProfileShowCmd(cmd *cobra.Command, args []string) {
	cpm := config.GlobalConnProfileMgr()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	cpList, err := cpm.GetConnProfileList()
	if err != nil {
		omUsage(cmd, err)
	}

	found := false
	for _, cp := range cpList {
		if name != "" && cp.Name != name {
			continue
		}

		if !found {
			found = true
			fmt.Printf("Connection profiles: \n")
		}
		fmt.Printf("  %s: type=%s, connstring='%s'\n",
			cp.Name, config.ConnTypeToString(cp.Type), cp.ConnString)
	}

	if !found {
		if name == "" {
			fmt.Printf("No connection profiles found!\n")
		} else {
			fmt.Printf("No connection profiles found matching %s\n", name)
		}
	}
}

func connProfileDelCmd(cmd *cobra.Command, args []string) {
	cpm := config.GlobalConnProfileMgr()

	if len(args) == 0 {
		omUsage(cmd, util.NewNewtError("Need connection profile name"))
	}

	name := args[0]
	if err := cpm.DeleteConnProfile(name); err != nil {
		omUsage(cmd, err)
	}

	fmt.Printf("Connection profile %s successfully deleted.\n", name)
}

func connProfileCmd() *cobra.Command {
	cpCmd := &cobra.Command{
		Use:   "conn",
		Short: "Manage " + omutil.ToolInfo.ShortName + " connection profiles",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	addHelpText := "Add a connection profile.  Variables:\n"
	addHelpText += "    type=<bluez|btsock|serial|tcp|ws>\n"
	addHelpText += "    connstring=<key=value,...>\n\n"
	addHelpText += "Connstring keys: peer, channel, psm, features, instance, "
	addHelpText += "mtu, goep2,\nadapter, dev, baud, framed, url, conn_timeout"

	addCmd := &cobra.Command{
		Use:   "add <conn_profile> <varname=value ...> ",
		Short: "Add an " + omutil.ToolInfo.ShortName + " connection profile",
		Long:  addHelpText,
		Example: "  " + omutil.ToolInfo.ExeName +
			" conn add phone type=btsock " +
			"connstring=peer=00:1B:DC:07:32:F1,channel=19",
		Run: connProfileAddCmd,
	}
	cpCmd.AddCommand(addCmd)

	deleCmd := &cobra.Command{
		Use:   "delete <conn_profile>",
		Short: "Delete an " + omutil.ToolInfo.ShortName + " connection profile",
		Run:   connProfileDelCmd,
	}
	cpCmd.AddCommand(deleCmd)

	connShowHelpText := "Show information for the conn_profile connection "
	connShowHelpText += "profile or for all\nconnection profiles "
	connShowHelpText += "if conn_profile is not specified.\n"

	showCmd := &cobra.Command{
		Use:   "show [conn_profile]",
		Short: "Show " + omutil.ToolInfo.ShortName + " connection profiles",
		Long:  connShowHelpText,
		Run:   connProfileShowCmd,
	}
	cpCmd.AddCommand(showCmd)

	return cpCmd
}
