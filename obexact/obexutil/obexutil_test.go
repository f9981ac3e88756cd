package obexutil

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestNextSesnIdSkipsZero(t *testing.T) {
	sesnIdMutex.Lock()
	nextSesnId = 0xfffe
	sesnIdMutex.Unlock()

	if id := NextSesnId(); id != 0xffff {
		t.Fatalf("expected 0xffff, got 0x%04x", id)
	}
	if id := NextSesnId(); id != 1 {
		t.Fatalf("expected wrap to 1, got 0x%04x", id)
	}
}

func TestErrorPredicatesSeeThroughWrap(t *testing.T) {
	err := errors.Wrap(NewBusyError("not connected"), "push")
	if !IsBusy(err) {
		t.Fatalf("wrapped busy error not recognized: %v", err)
	}
	if IsXport(err) {
		t.Fatalf("busy error misclassified as transport error")
	}

	if IsProtocol(nil) || IsXport(nil) || IsBusy(nil) {
		t.Fatalf("nil must not match any error class")
	}

	bf := ToBufferFull(errors.Wrap(NewBufferFullError(10, 4), "name"))
	if bf == nil || bf.Needed != 10 || bf.Avail != 4 {
		t.Fatalf("unexpected buffer full error: %+v", bf)
	}
}

func TestBlockerRelease(t *testing.T) {
	var b Blocker
	if b.Release("early") {
		t.Fatalf("release accepted before arm")
	}

	b.Arm()
	if !b.Armed() {
		t.Fatalf("blocker not armed")
	}

	go b.Release("done")

	val, err := b.Wait(time.Second, nil)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if val.(string) != "done" {
		t.Fatalf("unexpected value: %v", val)
	}
	if b.Armed() {
		t.Fatalf("blocker still armed after wait")
	}

	b.Arm()
	if !b.Release("first") || b.Release("second") {
		t.Fatalf("second release not dropped")
	}
	val, _ = b.Wait(time.Second, nil)
	if val.(string) != "first" {
		t.Fatalf("unexpected value: %v", val)
	}
}

func TestBlockerTimeoutAndStop(t *testing.T) {
	var b Blocker
	b.Arm()

	_, err := b.Wait(10*time.Millisecond, nil)
	if !IsRspTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}

	stop := make(chan struct{})
	close(stop)
	_, err = b.Wait(time.Second, stop)
	if !IsSesnClosed(err) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestEncodeJson(t *testing.T) {
	b, err := EncodeJson(map[string]int{"size": 3})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(b) == 0 || b[0] != '{' {
		t.Fatalf("unexpected json: %s", b)
	}
}
