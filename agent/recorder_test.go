// SPDX-License-Identifier: MIT

package agent

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// panicWith runs fn with crash capture armed and absorbs the re-raised
// panic, the way the Go runtime edge would normally receive it.
func panicWith(t *testing.T, fn func()) (reraised any) {
	t.Helper()
	defer func() { reraised = recover() }()
	func() {
		defer Recover()
		fn()
	}()
	return nil
}

func newTestRecorder(sender Sender, state *StateStore) *recorder {
	return newRecorder("sess-crash", "http://collector/crash", state, sender, testLogger())
}

func TestRecorder_CapturesCrashPayload(t *testing.T) {
	sender := &captureSender{}
	state := NewStateStore()
	state.Update(map[string]any{"password": "abc", "level": 3})

	rec := newTestRecorder(sender, state)
	if err := rec.install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	defer rec.uninstall()

	reraised := panicWith(t, func() {
		panic(errors.New("ZeroDivisionError: division by zero"))
	})
	if reraised == nil {
		t.Fatal("panic was not re-raised; original crash diagnostics would be lost")
	}

	crashes := sender.crashes()
	if len(crashes) != 1 {
		t.Fatalf("crash payloads = %d, want exactly 1", len(crashes))
	}
	cr := crashes[0]

	if cr.Type != "crash" || cr.Session != "sess-crash" {
		t.Errorf("payload header = %+v", cr)
	}
	if !strings.Contains(cr.Error, "ZeroDivisionError") {
		t.Errorf("error = %q, want it to contain ZeroDivisionError", cr.Error)
	}
	if cr.Traceback == "" || !strings.Contains(cr.Traceback, "goroutine") {
		t.Errorf("traceback = %q, want a goroutine stack", cr.Traceback)
	}
	if cr.OS == "" {
		t.Error("missing OS descriptor")
	}
	if cr.LastState["password"] != Redacted {
		t.Errorf("last_state password = %v, want %q", cr.LastState["password"], Redacted)
	}
	if cr.LastState["level"] != 3 {
		t.Errorf("last_state level = %v, want 3", cr.LastState["level"])
	}
}

func TestRecorder_PreviousHandlerStillRuns(t *testing.T) {
	var previousCalls atomic.Int32
	prevRestore := installHook(func(recovered any, stack []byte) {
		previousCalls.Add(1)
	})
	defer restoreHook(prevRestore)

	sender := &captureSender{}
	rec := newTestRecorder(sender, NewStateStore())
	if err := rec.install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	defer rec.uninstall()

	panicWith(t, func() { panic("boom") })

	if previousCalls.Load() != 1 {
		t.Errorf("previous handler calls = %d, want 1 (chain must be preserved)", previousCalls.Load())
	}
	if len(sender.crashes()) != 1 {
		t.Errorf("crash payloads = %d, want 1", len(sender.crashes()))
	}
}

func TestRecorder_UninstallRestoresChain(t *testing.T) {
	var previousCalls atomic.Int32
	prevRestore := installHook(func(recovered any, stack []byte) {
		previousCalls.Add(1)
	})
	defer restoreHook(prevRestore)

	sender := &captureSender{}
	rec := newTestRecorder(sender, NewStateStore())
	if err := rec.install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	rec.uninstall()

	panicWith(t, func() { panic("after uninstall") })

	if len(sender.crashes()) != 0 {
		t.Errorf("crash payloads after uninstall = %d, want 0", len(sender.crashes()))
	}
	if previousCalls.Load() != 1 {
		t.Errorf("previous handler calls = %d, want 1 (restored chain)", previousCalls.Load())
	}
}

func TestRecorder_InstallTwiceFails(t *testing.T) {
	rec := newTestRecorder(&captureSender{}, NewStateStore())
	if err := rec.install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	defer rec.uninstall()

	if err := rec.install(); !errors.Is(err, ErrHookInstalled) {
		t.Errorf("second install = %v, want ErrHookInstalled", err)
	}
}

func TestRecorder_SendFailureNeverMasksCrash(t *testing.T) {
	sender := &captureSender{err: errors.New("collector down")}
	rec := newTestRecorder(sender, NewStateStore())
	if err := rec.install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	defer rec.uninstall()

	reraised := panicWith(t, func() { panic("original failure") })
	if reraised == nil {
		t.Fatal("panic swallowed by a failing crash send")
	}
	if s, ok := reraised.(string); !ok || s != "original failure" {
		t.Errorf("re-raised value = %v, want the original panic", reraised)
	}
}

func TestRecorder_ReportIsBounded(t *testing.T) {
	sender := &captureSender{delay: time.Minute}
	rec := newTestRecorder(sender, NewStateStore())
	if err := rec.install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	defer rec.uninstall()

	start := time.Now()
	panicWith(t, func() { panic("slow endpoint") })
	if elapsed := time.Since(start); elapsed > crashTimeout+time.Second {
		t.Errorf("crash handling took %v, must stay near the %v deadline", elapsed, crashTimeout)
	}
}

func TestRecover_NoPanicIsNoop(t *testing.T) {
	done := func() (recovered any) {
		defer func() { recovered = recover() }()
		defer Recover()
		return nil
	}()
	if done != nil {
		t.Errorf("Recover raised without a panic: %v", done)
	}
}

func TestRecover_CapturesGoroutinePanic(t *testing.T) {
	sender := &captureSender{}
	rec := newTestRecorder(sender, NewStateStore())
	if err := rec.install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	defer rec.uninstall()

	// The re-raise from a bare goroutine would kill the test process, so
	// swallow it with an outer handler layered on the chain.
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { _ = recover() }()
		defer Recover()
		panic("goroutine failure")
	}()
	<-done

	waitFor(t, func() bool { return len(sender.crashes()) == 1 })
}
