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
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const DURATION_FOREVER time.Duration = math.MaxInt64

var nextSesnId uint16
var sesnIdMutex sync.Mutex

var logFormatter = log.TextFormatter{
	FullTimestamp:   true,
	TimestampFormat: "2006-01-02 15:04:05.999",
	ForceColors:     true,
}

// Wire traffic goes to a separate logger so that packet dumps can be enabled
// without the rest of the debug output.
var WireLog = &log.Logger{
	Out:       os.Stderr,
	Formatter: &logFormatter,
	Hooks:     make(log.LevelHooks),
	Level:     log.InfoLevel,
}

func SetLogLevel(level log.Level) {
	log.SetLevel(level)
	log.SetFormatter(&logFormatter)
	WireLog.SetLevel(level)
}

// Allocates the next session ID.  0 is never handed out; it is reserved to
// mean "no session".
func NextSesnId() uint16 {
	sesnIdMutex.Lock()
	defer sesnIdMutex.Unlock()

	nextSesnId++
	if nextSesnId == 0 {
		nextSesnId++
	}

	return nextSesnId
}

func LogTx(title string, b []byte) {
	WireLog.Debugf("Tx %s (%d bytes)\n%s", title, len(b), hex.Dump(b))
}

func LogRx(title string, b []byte) {
	WireLog.Debugf("Rx %s (%d bytes)\n%s", title, len(b), hex.Dump(b))
}

func StopAndDrainTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

// Encodes an arbitrary value as indented JSON.
func EncodeJson(val interface{}) ([]byte, error) {
	var b []byte

	h := new(codec.JsonHandle)
	h.Indent = 4
	h.HTMLCharsAsIs = true

	enc := codec.NewEncoderBytes(&b, h)
	if err := enc.Encode(val); err != nil {
		return nil, fmt.Errorf("failure encoding json; %s", err.Error())
	}

	return b, nil
}
