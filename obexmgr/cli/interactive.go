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
	"io/ioutil"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/abiosoft/ishell.v2"

	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/xact"
	"mynewt.apache.org/obexmgr/obexmgr/omutil"
)

// Service browsed by the shell and the folder it has entered.
var shellSvc = obex.SVC_PBAP_PSE
var shellCwd = "/"

func shellRun(c *ishell.Context, cmd xact.Cmd) xact.Result {
	s, err := GetSesn(shellSvc)
	if err != nil {
		c.Println("Error:", err)
		return nil
	}

	cmd.SetTxOptions(omutil.TxOptions())
	res, err := cmd.Run(s)
	if err != nil {
		c.Println("Error:", err)
		return nil
	}

	if res.Status() != 0 {
		c.Println("Error:", statusString(res.Status()))
		return nil
	}

	return res
}

func useCmd(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println(c.HelpText())
		return
	}

	switch c.Args[0] {
	case "pbap":
		shellSvc = obex.SVC_PBAP_PSE
	case "map":
		shellSvc = obex.SVC_MAP_MAS
	default:
		c.Println("Unknown service:", c.Args[0])
		return
	}

	CloseSesn()
	shellCwd = "/"
}

// Sends the whole path from the root.
func cdCmd(c *ishell.Context) {
	cwd := "/"
	if len(c.Args) > 0 {
		cwd = path.Clean(path.Join(shellCwd, c.Args[0]))
	}

	sp := xact.NewSetPathCmd()
	sp.Path = strings.TrimPrefix(cwd, "/")
	if shellRun(c, sp) == nil {
		return
	}

	shellCwd = cwd
}

func pwdCmd(c *ishell.Context) {
	c.Println(shellCwd)
}

func lsCmd(c *ishell.Context) {
	if shellSvc == obex.SVC_PBAP_PSE {
		lc := xact.NewPbapListCmd()
		if len(c.Args) > 0 {
			lc.Path = c.Args[0]
		}
		res := shellRun(c, lc)
		if res == nil {
			return
		}
		for _, card := range res.(*xact.PbapListResult).Cards {
			c.Printf("%s: %s\n", card.Handle, card.Name)
		}
		return
	}

	var res xact.Result
	if len(c.Args) > 0 && c.Args[0] == "-m" {
		mc := xact.NewMapMsgListCmd()
		if len(c.Args) > 1 {
			mc.Folder = c.Args[1]
		}
		res = shellRun(c, mc)
	} else {
		res = shellRun(c, xact.NewMapFolderListCmd())
	}
	if res == nil {
		return
	}
	for _, item := range res.(*xact.ListingResult).Items {
		c.Println(itemString(item))
	}
}

func catCmd(c *ishell.Context) {
	if len(c.Args) < 1 {
		c.Println(c.HelpText())
		return
	}

	var cmd xact.Cmd
	if shellSvc == obex.SVC_PBAP_PSE {
		ec := xact.NewPbapEntryCmd()
		ec.Name = c.Args[0]
		cmd = ec
	} else {
		gc := xact.NewMapGetMsgCmd()
		gc.Handle = c.Args[0]
		cmd = gc
	}

	res := shellRun(c, cmd)
	if res == nil {
		return
	}
	data := res.(*xact.ObjectResult).Data

	if len(c.Args) > 1 {
		if err := ioutil.WriteFile(c.Args[1], data, 0644); err != nil {
			c.Println("Error:", err)
			return
		}
		c.Printf("Wrote %d bytes to %s\n", len(data), c.Args[1])
		return
	}
	c.Println(string(data))
}

func closeCmd(c *ishell.Context) {
	CloseSesn()
	shellCwd = "/"
}

func startInteractive(cmd *cobra.Command, args []string) {
	// by default, new shell includes 'exit', 'help' and 'clear' commands.
	shell := ishell.New()
	shell.SetPrompt("> ")

	shell.Println()
	shell.Println(" " + omutil.ToolInfo.LongName + " browse mode")
	shell.Println("	Connection profile: ", omutil.ConnProfile)
	shell.Println()

	shell.AddCmd(&ishell.Cmd{
		Name: "use",
		Help: "Select the service to browse: use <pbap|map>",
		Func: useCmd,
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "cd",
		Help: "Enter a folder; no argument returns to the root: cd [folder]",
		Func: cdCmd,
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "pwd",
		Help: "Show the current folder",
		Func: pwdCmd,
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "ls",
		Help: "List vCards or folders; ls -m [folder] lists messages",
		Func: lsCmd,
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "cat",
		Help: "Show a vCard or message: cat <name|handle> [outfile]",
		Func: catCmd,
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "close",
		Help: "Disconnect from the device",
		Func: closeCmd,
	})

	shell.Run()
	shell.Close()
	CloseSesn()
}

func interactiveCmd() *cobra.Command {
	shellCmd := &cobra.Command{
		Use:   "interactive",
		Short: "Browse a device's phonebooks or messages interactively",
		Run:   startInteractive,
	}

	return shellCmd
}
