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

package obexutil

import (
	"fmt"

	"github.com/pkg/errors"
)

// Represents an application-layer timeout; request sent, but no OBEX
// response received.
type RspTimeoutError struct {
	Text string
}

func NewRspTimeoutError(text string) *RspTimeoutError {
	return &RspTimeoutError{
		Text: text,
	}
}

func FmtRspTimeoutError(format string, args ...interface{}) *RspTimeoutError {
	return NewRspTimeoutError(fmt.Sprintf(format, args...))
}

func (e *RspTimeoutError) Error() string {
	return e.Text
}

func IsRspTimeout(err error) bool {
	_, ok := errors.Cause(err).(*RspTimeoutError)
	return ok
}

type SesnAlreadyOpenError struct {
	Text string
}

func NewSesnAlreadyOpenError(text string) *SesnAlreadyOpenError {
	return &SesnAlreadyOpenError{
		Text: text,
	}
}

func (e *SesnAlreadyOpenError) Error() string {
	return e.Text
}

func IsSesnAlreadyOpen(err error) bool {
	_, ok := errors.Cause(err).(*SesnAlreadyOpenError)
	return ok
}

type SesnClosedError struct {
	Text string
}

func NewSesnClosedError(text string) *SesnClosedError {
	return &SesnClosedError{
		Text: text,
	}
}

func (e *SesnClosedError) Error() string {
	return e.Text
}

func IsSesnClosed(err error) bool {
	_, ok := errors.Cause(err).(*SesnClosedError)
	return ok
}

// Represents a low-level transport error: the bearer failed to open, write or
// close.
type XportError struct {
	Text string
}

func NewXportError(text string) *XportError {
	return &XportError{text}
}

func FmtXportError(format string, args ...interface{}) *XportError {
	return NewXportError(fmt.Sprintf(format, args...))
}

func (e *XportError) Error() string {
	return e.Text
}

func IsXport(err error) bool {
	if err == nil {
		return false
	}

	_, ok := errors.Cause(err).(*XportError)
	return ok
}

// Represents a malformed or truncated OBEX packet received from the peer.
type ProtocolError struct {
	Text string
}

func NewProtocolError(text string) *ProtocolError {
	return &ProtocolError{text}
}

func FmtProtocolError(format string, args ...interface{}) *ProtocolError {
	return NewProtocolError(fmt.Sprintf(format, args...))
}

func (e *ProtocolError) Error() string {
	return e.Text
}

func IsProtocol(err error) bool {
	if err == nil {
		return false
	}

	_, ok := errors.Cause(err).(*ProtocolError)
	return ok
}

// Indicates an operation was requested while the state machine was in an
// incompatible state.  No side effects have occurred.
type BusyError struct {
	Text string
}

func NewBusyError(text string) *BusyError {
	return &BusyError{text}
}

func FmtBusyError(format string, args ...interface{}) *BusyError {
	return NewBusyError(fmt.Sprintf(format, args...))
}

func (e *BusyError) Error() string {
	return e.Text
}

func IsBusy(err error) bool {
	if err == nil {
		return false
	}

	_, ok := errors.Cause(err).(*BusyError)
	return ok
}

// Indicates an attempt to write past the end of the outgoing packet buffer.
type BufferFullError struct {
	Text   string
	Needed int
	Avail  int
}

func NewBufferFullError(needed int, avail int) *BufferFullError {
	return &BufferFullError{
		Text: fmt.Sprintf("packet buffer full; need=%d avail=%d",
			needed, avail),
		Needed: needed,
		Avail:  avail,
	}
}

func (e *BufferFullError) Error() string {
	return e.Text
}

func IsBufferFull(err error) bool {
	_, ok := errors.Cause(err).(*BufferFullError)
	return ok
}

func ToBufferFull(err error) *BufferFullError {
	if berr, ok := errors.Cause(err).(*BufferFullError); ok {
		return berr
	} else {
		return nil
	}
}
