// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"context"
	"sync"
)

// chanHub connects the in-process channel transport endpoints of one
// distributed run. Each (to, from, tag) triple names a rendezvous
// mailbox, created lazily by whichever side posts first. Mailboxes
// are buffered so that a send completes once its payload is deposited,
// independently of the receiver.
type chanHub struct {
	n int

	mu    sync.Mutex
	boxes map[boxKey]chan []byte
}

type boxKey struct {
	to, from, tag int
}

func newChanHub(n int) *chanHub {
	return &chanHub{n: n, boxes: make(map[boxKey]chan []byte)}
}

func (h *chanHub) box(k boxKey) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.boxes[k]
	if !ok {
		b = make(chan []byte, 1)
		h.boxes[k] = b
	}
	return b
}

// chanTransport is one endpoint of a chanHub. It implements Transport
// for the goroutine-per-part backend; self-sends loop back through
// the endpoint's own mailbox.
type chanTransport struct {
	hub  *chanHub
	rank int
}

func (t *chanTransport) Rank() int { return t.rank }
func (t *chanTransport) Size() int { return t.hub.n }

func (t *chanTransport) Isend(to, tag int, p []byte) Op {
	box := t.hub.box(boxKey{to: to, from: t.rank, tag: tag})
	op := &chanOp{donec: make(chan struct{})}
	go func() {
		box <- p
		close(op.donec)
	}()
	return op
}

func (t *chanTransport) Irecv(from, tag int) Op {
	box := t.hub.box(boxKey{to: t.rank, from: from, tag: tag})
	op := &chanOp{donec: make(chan struct{})}
	go func() {
		op.data = <-box
		close(op.donec)
	}()
	return op
}

func (*chanTransport) Finalize() error { return nil }

type chanOp struct {
	donec chan struct{}
	data  []byte
}

func (o *chanOp) Poll() bool {
	select {
	case <-o.donec:
		return true
	default:
		return false
	}
}

func (o *chanOp) Wait(ctx context.Context) error {
	select {
	case <-o.donec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *chanOp) Data() []byte { return o.data }
