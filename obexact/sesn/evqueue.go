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

package sesn

import (
	"sync"
	"time"

	"mynewt.apache.org/obexmgr/obexact/obexutil"
)

// An unbounded FIFO of profile events.  The engine goroutine pushes without
// ever blocking; a command goroutine pops with a timeout.
type evQueue struct {
	mtx   sync.Mutex
	evs   []interface{}
	sigCh chan struct{}
}

func newEvQueue() *evQueue {
	return &evQueue{
		sigCh: make(chan struct{}, 1),
	}
}

func (q *evQueue) push(ev interface{}) {
	q.mtx.Lock()
	q.evs = append(q.evs, ev)
	q.mtx.Unlock()

	select {
	case q.sigCh <- struct{}{}:
	default:
	}
}

func (q *evQueue) tryPop() (interface{}, bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if len(q.evs) == 0 {
		return nil, false
	}
	ev := q.evs[0]
	q.evs[0] = nil
	q.evs = q.evs[1:]
	return ev, true
}

// Waits up to timeout for the next event; 0 waits forever.  A closed stopCh
// yields a SesnClosedError.
func (q *evQueue) pop(timeout time.Duration,
	stopCh <-chan struct{}) (interface{}, error) {

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer obexutil.StopAndDrainTimer(timer)
		timeoutCh = timer.C
	}

	for {
		if ev, ok := q.tryPop(); ok {
			return ev, nil
		}

		select {
		case <-q.sigCh:
		case <-timeoutCh:
			return nil, obexutil.FmtRspTimeoutError(
				"no event after %s", timeout.String())
		case <-stopCh:
			return nil, obexutil.NewSesnClosedError("wait aborted")
		}
	}
}

func (q *evQueue) clear() {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	q.evs = nil
}
