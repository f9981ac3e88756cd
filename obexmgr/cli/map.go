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

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/xact"
	"mynewt.apache.org/obexmgr/obexmgr/omutil"
)

var mapFolder string
var mapAttachment bool
var mapConvoMax uint16
var mapConvoOffset uint16

func printListing(res xact.Result) {
	if printJson(res) {
		return
	}
	checkStatus(res)

	for _, item := range res.(*xact.ListingResult).Items {
		fmt.Printf("%s\n", itemString(item))
	}
}

func printStatus(res xact.Result) {
	if printJson(res) {
		return
	}
	checkStatus(res)
	fmt.Printf("Done\n")
}

func mapFoldersCmd(cmd *cobra.Command, args []string) {
	res := runCmdAt(obex.SVC_MAP_MAS, mapFolder, xact.NewMapFolderListCmd())
	printListing(res)
}

func mapMsgsCmd(cmd *cobra.Command, args []string) {
	c := xact.NewMapMsgListCmd()
	if len(args) > 0 {
		c.Folder = args[0]
	}

	printListing(runCmdAt(obex.SVC_MAP_MAS, mapFolder, c))
}

func mapConvosCmd(cmd *cobra.Command, args []string) {
	c := xact.NewMapConvoListCmd()
	c.MaxCount = mapConvoMax
	c.StartOffset = mapConvoOffset

	printListing(runCmd(obex.SVC_MAP_MAS, c))
}

func mapGetCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		omUsage(cmd, util.NewNewtError("Need to specify a message handle"))
	}

	c := xact.NewMapGetMsgCmd()
	c.Handle = args[0]
	c.Attachment = mapAttachment

	res := runCmd(obex.SVC_MAP_MAS, c)
	if printJson(res) {
		return
	}
	checkStatus(res)

	writeObject(res.(*xact.ObjectResult).Data, args, 1)
}

func mapSetStatus(cmd *cobra.Command, args []string, read bool) {
	if len(args) < 1 {
		omUsage(cmd, util.NewNewtError("Need to specify a message handle"))
	}

	c := xact.NewMapSetStatusCmd()
	c.Handle = args[0]
	c.Read = read

	printStatus(runCmd(obex.SVC_MAP_MAS, c))
}

func mapReadCmd(cmd *cobra.Command, args []string) {
	mapSetStatus(cmd, args, true)
}

func mapUnreadCmd(cmd *cobra.Command, args []string) {
	mapSetStatus(cmd, args, false)
}

func mapUpdateCmd(cmd *cobra.Command, args []string) {
	printStatus(runCmd(obex.SVC_MAP_MAS, xact.NewMapUpdateInboxCmd()))
}

func mapNotifyCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		omUsage(cmd, util.NewNewtError("Need to specify on or off"))
	}

	enable, err := cast.ToBoolE(args[0])
	if err != nil {
		switch args[0] {
		case "on":
			enable = true
		case "off":
			enable = false
		default:
			omUsage(cmd, util.FmtNewtError("Invalid setting: %s", args[0]))
		}
	}

	c := xact.NewMapNotifyCmd()
	c.Enable = enable

	printStatus(runCmd(obex.SVC_MAP_MAS, c))
}

func mapFilterCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		omUsage(cmd, util.NewNewtError("Need to specify a filter mask"))
	}

	mask, err := parseMask(args[0])
	if err != nil {
		omUsage(cmd, err)
	}

	c := xact.NewMapFilterCmd()
	c.Mask = mask

	printStatus(runCmd(obex.SVC_MAP_MAS, c))
}

func mapInfoCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		omUsage(cmd, util.NewNewtError("Need to specify an instance id"))
	}

	id, err := cast.ToUint8E(args[0])
	if err != nil {
		omUsage(cmd, util.FmtNewtError("Invalid instance id: %s", args[0]))
	}

	c := xact.NewMapInstanceInfoCmd()
	c.Id = id

	res := runCmd(obex.SVC_MAP_MAS, c)
	if printJson(res) {
		return
	}
	checkStatus(res)

	fmt.Printf("%s\n", res.(*xact.ObjectResult).Data)
}

func mapCmd() *cobra.Command {
	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "Access a device's messages",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	foldersCmd := &cobra.Command{
		Use:   "folders",
		Short: "List message folders",
		Example: "  " + omutil.ToolInfo.ExeName +
			" -c phone map folders --folder telecom/msg",
		Run: mapFoldersCmd,
	}
	foldersCmd.PersistentFlags().StringVar(&mapFolder, "folder", "",
		"folder to enter first")
	mapCmd.AddCommand(foldersCmd)

	msgsCmd := &cobra.Command{
		Use:   "msgs [subfolder]",
		Short: "List the messages in a folder",
		Example: "  " + omutil.ToolInfo.ExeName +
			" -c phone map msgs --folder telecom/msg inbox",
		Run: mapMsgsCmd,
	}
	msgsCmd.PersistentFlags().StringVar(&mapFolder, "folder", "",
		"folder to enter first")
	mapCmd.AddCommand(msgsCmd)

	convosCmd := &cobra.Command{
		Use:   "convos",
		Short: "List conversations",
		Run:   mapConvosCmd,
	}
	convosCmd.PersistentFlags().Uint16Var(&mapConvoMax, "max", 0,
		"maximum number of conversations")
	convosCmd.PersistentFlags().Uint16Var(&mapConvoOffset, "offset", 0,
		"index of the first conversation")
	mapCmd.AddCommand(convosCmd)

	getCmd := &cobra.Command{
		Use:   "get <handle> [outfile]",
		Short: "Download a message",
		Run:   mapGetCmd,
	}
	getCmd.PersistentFlags().BoolVarP(&mapAttachment, "attachment", "a",
		false, "include attachments")
	mapCmd.AddCommand(getCmd)

	mapCmd.AddCommand(&cobra.Command{
		Use:   "read <handle>",
		Short: "Mark a message as read",
		Run:   mapReadCmd,
	})

	mapCmd.AddCommand(&cobra.Command{
		Use:   "unread <handle>",
		Short: "Mark a message as unread",
		Run:   mapUnreadCmd,
	})

	mapCmd.AddCommand(&cobra.Command{
		Use:   "update",
		Short: "Ask the device to check for new messages",
		Run:   mapUpdateCmd,
	})

	mapCmd.AddCommand(&cobra.Command{
		Use:   "notify <on|off>",
		Short: "Turn message notifications on or off",
		Run:   mapNotifyCmd,
	})

	mapCmd.AddCommand(&cobra.Command{
		Use:   "filter <mask>",
		Short: "Select which notification events are sent",
		Run:   mapFilterCmd,
	})

	mapCmd.AddCommand(&cobra.Command{
		Use:   "info <instance>",
		Short: "Show a message access instance's description",
		Run:   mapInfoCmd,
	})

	return mapCmd
}
