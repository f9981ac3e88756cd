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

package task

import (
	"sync"
)

// An unbounded FIFO of jobs that feeds a TaskQueue from a dedicated pump
// goroutine.  Post never blocks, so it is safe to call from any goroutine,
// including a job already running on the queue.
type Mailbox struct {
	q      *TaskQueue
	fns    []func() error
	sigCh  chan struct{}
	stopCh chan struct{}
	mtx    sync.Mutex
	wg     sync.WaitGroup

	// Receives errors returned by posted jobs.  Optional.
	ErrFn func(err error)
}

func NewMailbox(q *TaskQueue) *Mailbox {
	return &Mailbox{
		q:     q,
		sigCh: make(chan struct{}, 1),
	}
}

func (m *Mailbox) Post(fn func() error) {
	m.mtx.Lock()
	m.fns = append(m.fns, fn)
	m.mtx.Unlock()

	select {
	case m.sigCh <- struct{}{}:
	default:
	}
}

func (m *Mailbox) take() []func() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	fns := m.fns
	m.fns = nil
	return fns
}

// Starts the pump.  Jobs posted while the pump was stopped are discarded.
func (m *Mailbox) Start() {
	m.take()
	m.stopCh = make(chan struct{})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		for {
			select {
			case <-m.sigCh:
				for _, fn := range m.take() {
					if err := m.q.Run(fn); err != nil && m.ErrFn != nil {
						m.ErrFn(err)
					}
				}

			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stops the pump.  Jobs still in the mailbox are discarded.  Must not be
// called from a job on the fed queue.
func (m *Mailbox) Stop() {
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
	m.stopCh = nil
	m.take()
}
