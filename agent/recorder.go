// SPDX-License-Identifier: MIT

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Handler receives a recovered panic value and the goroutine stack captured
// at the recovery site.
type Handler func(recovered any, stack []byte)

// The process-wide crash handler chain. Go has no ambient equivalent of an
// exception hook, so the host arms capture with `defer agent.Recover()`;
// whatever handler is installed here runs before the panic is re-raised.
var (
	hookMu sync.Mutex
	hook   Handler
)

func installHook(h Handler) Handler {
	hookMu.Lock()
	defer hookMu.Unlock()
	previous := hook
	hook = h
	return previous
}

func restoreHook(previous Handler) {
	hookMu.Lock()
	defer hookMu.Unlock()
	hook = previous
}

func activeHook() Handler {
	hookMu.Lock()
	defer hookMu.Unlock()
	return hook
}

// Recover arms crash capture for the calling goroutine. Use it as a deferred
// call in main and in any goroutine whose failure should produce a crash
// report:
//
//	defer agent.Recover()
//
// On a panic the installed crash handler runs first, then the panic is
// re-raised so the process still dies with its normal diagnostics and exit
// code. Without an installed handler Recover only re-raises.
func Recover() {
	recovered := recover()
	if recovered == nil {
		return
	}
	stack := debug.Stack()
	if h := activeHook(); h != nil {
		h(recovered, stack)
	}
	panic(recovered)
}

// Go runs fn on a new goroutine with crash capture armed.
func Go(fn func()) {
	go func() {
		defer Recover()
		fn()
	}()
}

// crashTimeout bounds the synchronous crash send. The process is dying; it
// must not be kept alive waiting on an unreachable endpoint.
const crashTimeout = 2 * time.Second

// recorder composes and ships the black box report when a panic reaches the
// crash handler chain.
type recorder struct {
	session string
	url     string
	state   *StateStore
	sender  Sender
	logger  *slog.Logger

	installed bool
	previous  Handler
	reporting atomic.Bool
}

func newRecorder(session, url string, state *StateStore, sender Sender, logger *slog.Logger) *recorder {
	return &recorder{
		session: session,
		url:     url,
		state:   state,
		sender:  sender,
		logger:  logger,
	}
}

// install registers the recorder in the crash handler chain, keeping the
// previous handler so uninstall can restore it.
func (r *recorder) install() error {
	if r.installed {
		return ErrHookInstalled
	}
	r.previous = installHook(r.handle)
	r.installed = true
	return nil
}

// uninstall restores the previous handler. Best effort: if another handler
// was installed on top of this one in the meantime, it is displaced.
func (r *recorder) uninstall() {
	if !r.installed {
		return
	}
	restoreHook(r.previous)
	r.installed = false
	r.previous = nil
}

// handle runs on the panicking goroutine, in the process's final moments.
// It reports at most once per fatal error and then hands off to the previous
// handler in the chain. A panic raised during reporting itself is swallowed,
// never looped back into capture.
func (r *recorder) handle(recovered any, stack []byte) {
	if r.reporting.CompareAndSwap(false, true) {
		r.report(recovered, stack)
		r.reporting.Store(false)
	}
	if r.previous != nil {
		r.previous(recovered, stack)
	}
}

func (r *recorder) report(recovered any, stack []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("crash reporting failed", "error", rec)
		}
	}()

	payload := CrashPayload{
		Type:      "crash",
		Session:   r.session,
		Error:     panicMessage(recovered),
		Traceback: string(stack),
		OS:        osDescriptor(),
		LastState: Sanitize(r.state.Snapshot()),
	}

	r.logger.Error("unhandled panic, sending crash report",
		"session", r.session,
		"error", payload.Error,
	)

	ctx, cancel := context.WithTimeout(context.Background(), crashTimeout)
	defer cancel()

	// Synchronous, no retry. A crash report that fails to send must never
	// delay or mask the original crash.
	if err := r.sender.Send(ctx, r.url, payload); err != nil {
		r.logger.Error("crash report send failed", "error", err)
	}
}

func panicMessage(recovered any) string {
	switch v := recovered.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprintf("%T: %v", v, v)
	}
}
