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
	"fmt"
	"sync"
)

// A single job that runs on the queue goroutine.
type action struct {
	fn func() error
	ch chan error
}

// A queue for running jobs serially on one goroutine.  The OBEX engine is not
// thread safe; every call into it goes through a TaskQueue.
type TaskQueue struct {
	actCh  chan action
	stopCh chan struct{}
	active bool
	name   string
	cause  error
	mtx    sync.Mutex
	wg     sync.WaitGroup
}

func NewTaskQueue(name string) *TaskQueue {
	return &TaskQueue{
		name: name,
	}
}

var InactiveError = fmt.Errorf("inactive task queue")

// Pushes the specified function onto the task queue.  When the job completes,
// the result is sent over the returned channel.  Must not be called from
// within a job on the same queue if the queue might be full.
func (q *TaskQueue) Enqueue(fn func() error) chan error {
	act := action{
		fn: fn,
		ch: make(chan error, 1),
	}

	q.mtx.Lock()
	if !q.active {
		q.mtx.Unlock()
		act.ch <- InactiveError
		close(act.ch)
		return act.ch
	}
	actCh := q.actCh
	stopCh := q.stopCh
	q.mtx.Unlock()

	select {
	case actCh <- act:
	case <-stopCh:
		act.ch <- InactiveError
		close(act.ch)
	}

	return act.ch
}

// Enqueues the specified function and waits for it to complete.
func (q *TaskQueue) Run(fn func() error) error {
	return <-q.Enqueue(fn)
}

// Starts the task queue.  A task queue must be started before jobs can be
// enqueued to it.
func (q *TaskQueue) Start(depth int) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.active {
		return fmt.Errorf("task queue started twice \"%s\"", q.name)
	}
	q.active = true

	actCh := make(chan action, depth)
	q.actCh = actCh

	stopCh := make(chan struct{})
	q.stopCh = stopCh

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		for {
			select {
			case act := <-actCh:
				act.ch <- act.fn()
				close(act.ch)

			case <-stopCh:
				// Fail whatever is still queued.
				for {
					select {
					case act := <-actCh:
						act.ch <- q.stopCause()
						close(act.ch)
					default:
						return
					}
				}
			}
		}
	}()

	return nil
}

func (q *TaskQueue) stopCause() error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.cause == nil {
		return InactiveError
	}
	return q.cause
}

// Stops the task queue and waits for the loop to exit.  Queued jobs fail with
// the specified error.  Calling this from within a job deadlocks; jobs use
// StopNoWait instead.
func (q *TaskQueue) Stop(cause error) error {
	if err := q.StopNoWait(cause); err != nil {
		return err
	}

	q.wg.Wait()
	return nil
}

// Initiates a stop without waiting for the loop to exit.
func (q *TaskQueue) StopNoWait(cause error) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if !q.active {
		return fmt.Errorf("task queue stopped twice \"%s\"", q.name)
	}

	q.cause = cause
	close(q.stopCh)
	q.active = false

	return nil
}

func (q *TaskQueue) Active() bool {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	return q.active
}
