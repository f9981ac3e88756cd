package obexutil

import (
	"sync"
	"time"
)

// A one-shot handoff from the session runner to the goroutine waiting on an
// open or close.  Arm it before starting the action; the runner releases it
// with the action's outcome.  A release with nothing armed is dropped.
type Blocker struct {
	mtx sync.Mutex
	ch  chan interface{}
}

func (b *Blocker) Arm() {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.ch = make(chan interface{}, 1)
}

func (b *Blocker) Armed() bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	return b.ch != nil && len(b.ch) == 0
}

// Hands val to the waiter.  Only the first release after Arm is kept;
// returns false for any other.
func (b *Blocker) Release(val interface{}) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.ch == nil {
		return false
	}

	select {
	case b.ch <- val:
		return true
	default:
		return false
	}
}

// Waits for the armed action's outcome.  A timeout yields an
// RspTimeoutError; a closed stop channel yields a SesnClosedError.  Returns
// nil immediately if nothing is armed.
func (b *Blocker) Wait(timeout time.Duration, stopChan <-chan struct{}) (
	interface{}, error) {

	b.mtx.Lock()
	ch := b.ch
	b.mtx.Unlock()

	if ch == nil {
		return nil, nil
	}

	timer := time.NewTimer(timeout)
	defer StopAndDrainTimer(timer)

	select {
	case val := <-ch:
		b.mtx.Lock()
		if b.ch == ch {
			b.ch = nil
		}
		b.mtx.Unlock()
		return val, nil

	case <-timer.C:
		return nil, FmtRspTimeoutError("timeout after %s", timeout.String())

	case <-stopChan:
		return nil, NewSesnClosedError("aborted")
	}
}
