// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grailbio/base/backgroundcontext"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/limiter"
	"github.com/grailbio/base/retry"
	"github.com/grailbio/bigmachine"
	"github.com/grailbio/partio"
)

// retryPolicy is the default retry policy used for machine calls and
// peer dials.
var retryPolicy = retry.Backoff(time.Second, 5*time.Second, 1.5)

// maxOutstandingSends caps the number of concurrent Push calls a
// transport endpoint keeps in flight.
const maxOutstandingSends = 16

// worker is the service installed on every machine. It terminates the
// machine's side of the exchange protocol: peers deliver message
// payloads with Push, and the backend starts the machine's execution
// context with Run.
type worker struct {
	// Exported just satisfies gob's persnickety nature: we need at
	// least one exported field.
	Exported struct{}

	b *bigmachine.B

	mu    sync.Mutex
	boxes map[mailKey]chan []byte
}

type mailKey struct {
	from, tag int
}

func (w *worker) Init(b *bigmachine.B) error {
	w.b = b
	w.boxes = make(map[mailKey]chan []byte)
	return nil
}

func (w *worker) box(k mailKey) chan []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.boxes[k]
	if !ok {
		b = make(chan []byte, 1)
		w.boxes[k] = b
	}
	return b
}

type pushRequest struct {
	From, Tag int
	Data      []byte
}

// Push delivers a message payload from a peer into this machine's
// mailbox for (sender, tag).
func (w *worker) Push(ctx context.Context, req pushRequest, _ *struct{}) error {
	select {
	case w.box(mailKey{from: req.From, tag: req.Tag}) <- req.Data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type runRequest struct {
	Driver int
	Rank   int
	Addrs  []string
}

// Run executes one part's side of the registered driver over a
// transport that reaches peers through their worker services.
func (w *worker) Run(ctx context.Context, req runRequest, _ *struct{}) error {
	if req.Driver < 0 || req.Driver >= len(drivers) {
		return errors.E(errors.NotSupported,
			fmt.Sprintf("exec.Worker.Run: no driver registered at index %d; drivers must be registered deterministically", req.Driver))
	}
	tp := &machTransport{
		w:        w,
		rank:     req.Rank,
		addrs:    req.Addrs,
		machines: make(map[int]*bigmachine.Machine),
		lim:      limiter.New(),
	}
	tp.lim.Release(maxOutstandingSends)
	return partio.RunTransport(ctx, tp, drivers[req.Driver])
}

// machTransport implements partio.Transport over bigmachine RPC.
// Sends dial the destination machine's worker and Push the payload;
// receives wait on the local worker's mailbox. Self-sends short
// circuit through the local mailbox without an RPC.
type machTransport struct {
	w     *worker
	rank  int
	addrs []string
	lim   *limiter.Limiter

	mu       sync.Mutex
	machines map[int]*bigmachine.Machine
}

func (t *machTransport) Rank() int { return t.rank }
func (t *machTransport) Size() int { return len(t.addrs) }

func (t *machTransport) Isend(to, tag int, p []byte) partio.Op {
	op := newMachOp()
	go func() {
		op.complete(nil, t.push(backgroundcontext.Get(), to, tag, p))
	}()
	return op
}

func (t *machTransport) Irecv(from, tag int) partio.Op {
	op := newMachOp()
	box := t.w.box(mailKey{from: from, tag: tag})
	go func() {
		op.complete(<-box, nil)
	}()
	return op
}

func (*machTransport) Finalize() error { return nil }

func (t *machTransport) push(ctx context.Context, to, tag int, p []byte) error {
	if to == t.rank {
		t.w.box(mailKey{from: t.rank, tag: tag}) <- p
		return nil
	}
	if err := t.lim.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.lim.Release(1)
	m, err := t.machine(ctx, to)
	if err != nil {
		return err
	}
	return m.RetryCall(ctx, "Worker.Push",
		pushRequest{From: t.rank, Tag: tag, Data: p}, new(struct{}))
}

// machine returns a (cached) handle to the peer machine at the given
// rank, retrying the dial while the peer boots.
func (t *machTransport) machine(ctx context.Context, rank int) (*bigmachine.Machine, error) {
	t.mu.Lock()
	m, ok := t.machines[rank]
	t.mu.Unlock()
	if ok {
		return m, nil
	}
	var err error
	for retries := 0; ; retries++ {
		m, err = t.w.b.Dial(ctx, t.addrs[rank])
		if err == nil {
			break
		}
		if rerr := retry.Wait(ctx, retryPolicy, retries); rerr != nil {
			return nil, err
		}
	}
	t.mu.Lock()
	t.machines[rank] = m
	t.mu.Unlock()
	return m, nil
}

type machOp struct {
	donec chan struct{}
	data  []byte
	err   error
}

func newMachOp() *machOp {
	return &machOp{donec: make(chan struct{})}
}

func (o *machOp) complete(data []byte, err error) {
	o.data, o.err = data, err
	close(o.donec)
}

func (o *machOp) Poll() bool {
	select {
	case <-o.donec:
		return true
	default:
		return false
	}
}

func (o *machOp) Wait(ctx context.Context) error {
	select {
	case <-o.donec:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *machOp) Data() []byte { return o.data }
