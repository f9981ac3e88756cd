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
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	pb "gopkg.in/cheggaaa/pb.v1"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/xact"
	"mynewt.apache.org/obexmgr/obexmgr/omutil"
)

var pushName string
var pushType string
var noProgress bool

// Writes an object to outfile, or to stdout if no file was named.
func writeObject(data []byte, args []string, idx int) {
	if len(args) <= idx {
		os.Stdout.Write(data)
		return
	}

	if err := ioutil.WriteFile(args[idx], data, 0644); err != nil {
		omUsage(nil, util.ChildNewtError(err))
	}
	fmt.Printf("Wrote %d bytes to %s\n", len(data), args[idx])
}

func oppPushCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		omUsage(cmd, util.NewNewtError("Need to specify a file to push"))
	}

	data, err := ioutil.ReadFile(args[0])
	if err != nil {
		omUsage(cmd, util.ChildNewtError(err))
	}

	c := xact.NewPushCmd()
	c.Data = data
	c.Name = pushName
	if c.Name == "" {
		c.Name = filepath.Base(args[0])
	}
	c.Type = pushType

	var bar *pb.ProgressBar
	if !noProgress && !omutil.JsonOutput && len(data) > 0 {
		bar = pb.StartNew(len(data))
		bar.SetUnits(pb.U_BYTES)
		c.ProgressCb = func(c *xact.PushCmd, off uint32, total uint32) {
			bar.Set(int(off))
		}
	}

	res := runCmd(obex.SVC_OBEX_OBJECT_PUSH, c)
	if bar != nil {
		bar.Finish()
	}

	if printJson(res) {
		return
	}
	checkStatus(res)

	pres := res.(*xact.PushResult)
	fmt.Printf("Pushed %s (%d bytes)\n", c.Name, pres.Len)
}

func oppPullCmd(cmd *cobra.Command, args []string) {
	res := runCmd(obex.SVC_OBEX_OBJECT_PUSH, xact.NewPullCmd())
	if printJson(res) {
		return
	}
	checkStatus(res)

	writeObject(res.(*xact.ObjectResult).Data, args, 0)
}

func oppCmd() *cobra.Command {
	oppCmd := &cobra.Command{
		Use:   "opp",
		Short: "Exchange objects over Object Push",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	pushCmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Push a file to a device",
		Example: "  " + omutil.ToolInfo.ExeName +
			" -c phone opp push card.vcf --type text/x-vcard",
		Run: oppPushCmd,
	}
	pushCmd.PersistentFlags().StringVar(&pushName, "name", "",
		"object name; defaults to the file's base name")
	pushCmd.PersistentFlags().StringVar(&pushType, "type", "",
		"MIME type of the object")
	pushCmd.PersistentFlags().BoolVarP(&noProgress, "noprogress", "n", false,
		"don't show a progress bar")
	oppCmd.AddCommand(pushCmd)

	pullCmd := &cobra.Command{
		Use:   "pull [outfile]",
		Short: "Pull a device's default business card",
		Run:   oppPullCmd,
	}
	oppCmd.AddCommand(pullCmd)

	return oppCmd
}
