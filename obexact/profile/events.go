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

package profile

import (
	"mynewt.apache.org/obexmgr/obexact/obex"
)

// Events delivered to the application.  Consumers switch on the concrete
// type.
type Event = interface{}

type Handler func(ev Event)

type ConnectionOpened struct {
	Status   obex.Result
	Addr     string
	Handle   uint16
	Incoming bool
}

type ConnectionClosed struct{}

type OperationCompleted struct {
	Status obex.Result
}

// Asks the caller of a chunked push for the object bytes starting at Offset.
// Capacity is the body space of one packet.
type PushObjectData struct {
	Offset   uint32
	Capacity int
}

// Object bytes from a GET.  Bytes is owned by the receiver.
type Data struct {
	Bytes []byte
}

// The peer demands OBEX authentication before accepting the connection.
type AuthRequired struct {
	Options uint8
	Realm   []byte
}

type PhonebookSize struct {
	Status obex.Result
	Size   uint16
}

type CardResult struct {
	Name   string
	Handle string
}

type FolderItem struct {
	Name string
}

type MessageItem struct {
	Handle   string
	Type     string
	Read     bool
	Subject  string
	Datetime string
	Sender   string
}

type ConversationItem struct {
	Id string
}

// Follows the last item of a listing.
type ListingDone struct{}
