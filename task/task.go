// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package task implements the asynchronous completion tokens returned
// by partio's non-blocking operations. A Handle passes through three
// externally visible phases: it is created (unscheduled), scheduled,
// and finally completed, at which point its result value is available.
// Handles may depend on other handles; scheduling a handle schedules
// its dependencies first, so a chain of continuations is driven by
// scheduling (or waiting on) its tail.
package task

import (
	"context"
	"sync"

	"github.com/grailbio/base/backgroundcontext"
	"github.com/grailbio/partio/ctxsync"
)

// State represents the runtime state of a Handle. State values are
// defined so that their magnitudes correspond with handle progression.
type State int

const (
	// Init is the initial state of a handle: it has been created but
	// not yet scheduled.
	Init State = iota
	// Scheduled indicates that the handle's operation has been posted
	// but has not yet begun running (e.g., it is waiting for its
	// dependencies to complete).
	Scheduled
	// Running is the state of a handle whose operation is underway.
	Running

	// Ok indicates that the handle completed successfully and its
	// result is available.
	//
	// All State values greater than Ok indicate failure.
	Ok
	// Err indicates that the handle's operation failed; the error is
	// available from Err or Wait.
	Err

	maxState
)

var states = [...]string{
	Init:      "INIT",
	Scheduled: "SCHEDULED",
	Running:   "RUNNING",
	Ok:        "OK",
	Err:       "ERROR",
}

// String returns the handle's state as an upper-case string.
func (s State) String() string { return states[s] }

// A Waiter is the dependency-facing side of a handle: something that
// can be scheduled and waited on without regard to its result type.
// Handles of any result type implement Waiter.
type Waiter interface {
	// Schedule posts the operation. It never blocks and is idempotent.
	Schedule()
	// Wait blocks until the operation has completed (scheduling it
	// first if needed) and returns its error, if any. Wait is
	// idempotent: calling it on a completed handle returns the same
	// outcome immediately.
	Wait(ctx context.Context) error
}

// A Handle is a tri-state asynchronous completion token carrying a
// result of type T. Handles coordinate concurrent producers and
// consumers over a context-aware condition variable.
type Handle[T any] struct {
	mu   sync.Mutex
	cond *ctxsync.Cond

	state State
	err   error
	value T

	run  func(ctx context.Context) (T, error)
	deps []Waiter
}

func newHandle[T any]() *Handle[T] {
	h := new(Handle[T])
	h.cond = ctxsync.NewCond(&h.mu)
	return h
}

// New returns a new unscheduled handle that will compute run after
// every handle in deps has completed. Nil dependencies are permitted
// and ignored, standing in for "depends on nothing".
func New[T any](run func(ctx context.Context) (T, error), deps ...Waiter) *Handle[T] {
	h := newHandle[T]()
	h.run = run
	for _, d := range deps {
		if d != nil {
			h.deps = append(h.deps, d)
		}
	}
	return h
}

// Resolved returns a handle that is already completed with value v.
// Scheduling it is a no-op and waiting on it returns immediately.
func Resolved[T any](v T) *Handle[T] {
	h := newHandle[T]()
	h.state, h.value = Ok, v
	return h
}

// Failed returns a handle that is already completed with error err.
func Failed[T any](err error) *Handle[T] {
	h := newHandle[T]()
	h.state, h.err = Err, err
	return h
}

// Then returns a handle computing f from h's result once h completes.
// Scheduling the returned handle schedules h as well, so chains of
// continuations are driven from their tail.
func Then[T, U any](h *Handle[T], f func(ctx context.Context, v T) (U, error)) *Handle[U] {
	return New(func(ctx context.Context) (U, error) {
		v, err := h.Result(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return f(ctx, v)
	}, h)
}

// Schedule posts the handle's operation. Dependencies are scheduled
// first; the operation itself begins once they have all completed.
// Schedule never blocks. Scheduling an already-scheduled or completed
// handle is a no-op.
func (h *Handle[T]) Schedule() {
	h.mu.Lock()
	if h.state >= Scheduled {
		h.mu.Unlock()
		return
	}
	h.state = Scheduled
	h.cond.Broadcast()
	h.mu.Unlock()
	for _, d := range h.deps {
		d.Schedule()
	}
	go h.exec()
}

func (h *Handle[T]) exec() {
	ctx := backgroundcontext.Get()
	for _, d := range h.deps {
		if err := d.Wait(ctx); err != nil {
			var zero T
			h.complete(zero, err)
			return
		}
	}
	h.set(Running)
	v, err := h.run(ctx)
	h.complete(v, err)
}

// Wait blocks until the handle has completed, scheduling it first if
// it has not yet been scheduled, and returns the operation's error.
// Waiting on a completed handle returns immediately with the same
// outcome.
func (h *Handle[T]) Wait(ctx context.Context) error {
	h.Schedule()
	h.mu.Lock()
	defer h.mu.Unlock()
	for h.state < Ok {
		if err := h.cond.Wait(ctx); err != nil {
			return err
		}
	}
	return h.err
}

// Result waits for the handle to complete and returns its value. A
// buffer handed to an in-flight operation is recovered here: the
// operation owns it until completion, and Result is the only way to
// get it back. Repeated calls return the same value.
func (h *Handle[T]) Result(ctx context.Context) (T, error) {
	if err := h.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value, nil
}

// State returns the handle's current state.
func (h *Handle[T]) State() State {
	h.mu.Lock()
	state := h.state
	h.mu.Unlock()
	return state
}

// Err returns the handle's error, if it has completed with one. It
// does not block.
func (h *Handle[T]) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == Err {
		return h.err
	}
	return nil
}

// Set sets the handle's state and notifies waiters.
func (h *Handle[T]) set(state State) {
	h.mu.Lock()
	h.state = state
	h.cond.Broadcast()
	h.mu.Unlock()
}

func (h *Handle[T]) complete(v T, err error) {
	h.mu.Lock()
	h.value = v
	h.err = err
	if err != nil {
		h.state = Err
	} else {
		h.state = Ok
	}
	h.cond.Broadcast()
	h.mu.Unlock()
}

// WaitAll schedules all of the provided waiters and then waits for
// each in turn, returning the first error encountered. Nil waiters
// are ignored.
func WaitAll(ctx context.Context, ws ...Waiter) error {
	for _, w := range ws {
		if w != nil {
			w.Schedule()
		}
	}
	var err error
	for _, w := range ws {
		if w == nil {
			continue
		}
		if werr := w.Wait(ctx); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
