// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package ctxsync provides context-aware synchronization primitives.
package ctxsync

import (
	"context"
	"sync"
)

// A Cond is a condition variable that implements a context-aware
// Wait. It is used to coordinate state transitions in asynchronous
// handles, where waiters must remain cancelable.
type Cond struct {
	l     sync.Locker
	waitc chan struct{}
}

// NewCond returns a new Cond based on Locker l.
func NewCond(l sync.Locker) *Cond {
	return &Cond{l: l}
}

// Broadcast notifies waiters of a state change. Broadcast must only
// be called while the cond's lock is held.
func (c *Cond) Broadcast() {
	if c.waitc != nil {
		close(c.waitc)
		c.waitc = nil
	}
}

// Wait returns after the next call to Broadcast, or if the context
// is complete. The cond's lock must be held when calling Wait, and
// is held again when it returns. An error returns with the context's
// error if the context completes while waiting.
func (c *Cond) Wait(ctx context.Context) error {
	if c.waitc == nil {
		c.waitc = make(chan struct{})
	}
	waitc := c.waitc
	c.l.Unlock()
	var err error
	select {
	case <-waitc:
	case <-ctx.Done():
		err = ctx.Err()
	}
	c.l.Lock()
	return err
}
