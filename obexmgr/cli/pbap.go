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

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/pbap"
	"mynewt.apache.org/obexmgr/obexact/xact"
	"mynewt.apache.org/obexmgr/obexmgr/omutil"
)

var pbapFilter xact.PbapFilter
var pbapSelector string
var pbapProps string
var pbapMatchAll bool
var pbapOrder string
var pbapSearchProp string
var pbapSearch string
var pbapFlowControl bool
var pbapFolder string

var pbapOrderMap = map[string]uint8{
	"indexed":  pbap.ORDER_INDEXED,
	"alpha":    pbap.ORDER_ALPHABETICAL,
	"phonetic": pbap.ORDER_PHONETICAL,
}

var pbapSearchPropMap = map[string]uint8{
	"name":   pbap.SEARCH_PROPERTY_NAME,
	"number": pbap.SEARCH_PROPERTY_NUMBER,
	"sound":  pbap.SEARCH_PROPERTY_SOUND,
}

// Accepts decimal or 0x-prefixed hex.
func parseMask(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}

	v, err := cast.ToUint32E(s)
	if err != nil {
		var h uint32
		if _, serr := fmt.Sscanf(s, "0x%x", &h); serr != nil {
			return 0, util.FmtNewtError("Invalid mask: %s", s)
		}
		v = h
	}
	return v, nil
}

func buildPbapFilter(cmd *cobra.Command) xact.PbapFilter {
	f := pbapFilter

	var err error
	f.VcardSelector, err = parseMask(pbapSelector)
	if err != nil {
		omUsage(cmd, err)
	}
	f.PropertySelector, err = parseMask(pbapProps)
	if err != nil {
		omUsage(cmd, err)
	}
	if pbapMatchAll {
		f.VcardSelectorOperator = 1
	}

	return f
}

func addPbapFilterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&pbapSelector, "selector", "",
		"vCard selector bitmask")
	cmd.PersistentFlags().BoolVar(&pbapMatchAll, "match-all", false,
		"require every selected property to be present")
	cmd.PersistentFlags().StringVar(&pbapProps, "props", "",
		"property selector bitmask")
	cmd.PersistentFlags().Uint16Var(&pbapFilter.MaxListCount, "max", 0,
		"maximum number of entries")
	cmd.PersistentFlags().Uint16Var(&pbapFilter.ListStartOffset, "offset", 0,
		"index of the first entry")
}

func pbapSizeCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		omUsage(cmd, util.NewNewtError("Need to specify a phonebook"))
	}

	c := xact.NewPbapSizeCmd()
	c.Path = args[0]
	f := buildPbapFilter(cmd)
	c.VcardSelector = f.VcardSelector

	res := runCmd(obex.SVC_PBAP_PSE, c)
	if printJson(res) {
		return
	}
	checkStatus(res)

	fmt.Printf("%d\n", res.(*xact.PbapSizeResult).Size)
}

func pbapPullCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		omUsage(cmd, util.NewNewtError("Need to specify a phonebook"))
	}

	c := xact.NewPbapPullCmd()
	c.Path = args[0]
	c.PbapFilter = buildPbapFilter(cmd)
	c.FlowControl = pbapFlowControl

	out := os.Stdout
	if len(args) > 1 {
		f, err := os.Create(args[1])
		if err != nil {
			omUsage(nil, util.ChildNewtError(err))
		}
		defer f.Close()
		out = f
	}

	total := 0
	c.DataCb = func(b []byte) error {
		n, err := out.Write(b)
		total += n
		return err
	}

	res := runCmd(obex.SVC_PBAP_PSE, c)
	checkStatus(res)

	if len(args) > 1 {
		fmt.Printf("Wrote %d bytes to %s\n", total, args[1])
	}
}

func printCards(res xact.Result) {
	if printJson(res) {
		return
	}
	checkStatus(res)

	for _, card := range res.(*xact.PbapListResult).Cards {
		fmt.Printf("%s: %s\n", card.Handle, card.Name)
	}
}

func pbapListCmd(cmd *cobra.Command, args []string) {
	c := xact.NewPbapListCmd()
	if len(args) > 0 {
		c.Path = args[0]
	}
	c.PbapFilter = buildPbapFilter(cmd)

	if pbapOrder != "" {
		order, ok := pbapOrderMap[pbapOrder]
		if !ok {
			omUsage(cmd, util.FmtNewtError("Invalid order: %s", pbapOrder))
		}
		c.Order = order
	}

	if pbapSearch != "" {
		prop, ok := pbapSearchPropMap[pbapSearchProp]
		if !ok {
			omUsage(cmd, util.FmtNewtError("Invalid search property: %s",
				pbapSearchProp))
		}
		c.SearchProperty = prop
		c.SearchValue = pbapSearch
	}

	printCards(runCmd(obex.SVC_PBAP_PSE, c))
}

func pbapGetCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		omUsage(cmd, util.NewNewtError("Need to specify a vCard name"))
	}

	c := xact.NewPbapEntryCmd()
	c.Name = args[0]
	props, err := parseMask(pbapProps)
	if err != nil {
		omUsage(cmd, err)
	}
	c.PropertySelector = props

	res := runCmdAt(obex.SVC_PBAP_PSE, pbapFolder, c)
	if printJson(res) {
		return
	}
	checkStatus(res)

	writeObject(res.(*xact.ObjectResult).Data, args, 1)
}

func pbapLookupCmd(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		omUsage(cmd, util.NewNewtError("Need to specify a phone number"))
	}

	c := xact.NewPbapLookupCmd()
	c.Number = args[0]

	printCards(runCmd(obex.SVC_PBAP_PSE, c))
}

func pbapCmd() *cobra.Command {
	pbapCmd := &cobra.Command{
		Use:   "pbap",
		Short: "Access a device's phonebooks",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	sizeCmd := &cobra.Command{
		Use:   "size <phonebook>",
		Short: "Show the number of entries in a phonebook",
		Example: "  " + omutil.ToolInfo.ExeName +
			" -c phone pbap size telecom/pb.vcf",
		Run: pbapSizeCmd,
	}
	sizeCmd.PersistentFlags().StringVar(&pbapSelector, "selector", "",
		"vCard selector bitmask")
	pbapCmd.AddCommand(sizeCmd)

	pullCmd := &cobra.Command{
		Use:   "pull <phonebook> [outfile]",
		Short: "Download a whole phonebook",
		Example: "  " + omutil.ToolInfo.ExeName +
			" -c phone pbap pull telecom/pb.vcf contacts.vcf",
		Run: pbapPullCmd,
	}
	addPbapFilterFlags(pullCmd)
	pullCmd.PersistentFlags().BoolVar(&pbapFlowControl, "flow", false,
		"request each packet only after the previous one is written")
	pbapCmd.AddCommand(pullCmd)

	listCmd := &cobra.Command{
		Use:   "list [folder]",
		Short: "List the vCards in a phonebook folder",
		Example: "  " + omutil.ToolInfo.ExeName +
			" -c phone pbap list telecom/pb --search Smith",
		Run: pbapListCmd,
	}
	addPbapFilterFlags(listCmd)
	listCmd.PersistentFlags().StringVar(&pbapOrder, "order", "",
		"sort order: indexed, alpha or phonetic")
	listCmd.PersistentFlags().StringVar(&pbapSearchProp, "search-prop",
		"name", "property to search: name, number or sound")
	listCmd.PersistentFlags().StringVar(&pbapSearch, "search", "",
		"value to search for")
	pbapCmd.AddCommand(listCmd)

	getCmd := &cobra.Command{
		Use:   "get <vcard> [outfile]",
		Short: "Download a single vCard",
		Example: "  " + omutil.ToolInfo.ExeName +
			" -c phone pbap get --folder telecom/pb 1.vcf",
		Run: pbapGetCmd,
	}
	getCmd.PersistentFlags().StringVar(&pbapFolder, "folder", "",
		"folder to enter first")
	getCmd.PersistentFlags().StringVar(&pbapProps, "props", "",
		"property selector bitmask")
	pbapCmd.AddCommand(getCmd)

	lookupCmd := &cobra.Command{
		Use:   "lookup <number>",
		Short: "Find the entries carrying a phone number",
		Run:   pbapLookupCmd,
	}
	pbapCmd.AddCommand(lookupCmd)

	return pbapCmd
}
