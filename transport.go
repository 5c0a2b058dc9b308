// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import "context"

// Transport is the point-to-point capability required of a
// distributed substrate. The core asks nothing else of it: an
// identity (rank and size) per execution context, non-blocking
// point-to-point operations keyed by peer rank and tag with
// post/poll/wait semantics, and teardown. Messages are matched by
// (sender, tag); a given (sender, receiver, tag) triple must be in
// flight at most once.
//
// Ranks are 0-based; part ids are ranks plus one.
type Transport interface {
	// Rank returns this execution context's 0-based rank.
	Rank() int
	// Size returns the total number of execution contexts.
	Size() int
	// Isend posts p for delivery to rank to under tag and returns the
	// posted operation. The payload must not be modified until the
	// operation completes.
	Isend(to, tag int, p []byte) Op
	// Irecv posts a receive matching (from, tag) and returns the
	// posted operation. The payload is available from Data after the
	// operation completes.
	Irecv(from, tag int) Op
	// Finalize releases the context's transport resources. No
	// operations may be posted after Finalize.
	Finalize() error
}

// An Op is a posted transport operation.
type Op interface {
	// Poll reports whether the operation has completed, without
	// blocking.
	Poll() bool
	// Wait blocks until the operation completes or the context is
	// done. There is no timeout beyond the context's: a peer that
	// never posts the matching operation blocks Wait forever.
	Wait(ctx context.Context) error
	// Data returns the received payload. It is valid only after Wait
	// returns nil, and returns nil for sends.
	Data() []byte
}

// RunTransport runs a single execution context of driver over the
// provided transport endpoint. It is the common entry point of the
// distributed backends: the goroutine backend calls it once per
// goroutine, and the bigmachine worker calls it once per machine. The
// transport is finalized when the driver returns.
func RunTransport(ctx context.Context, tp Transport, driver Driver) error {
	return runTransport(ctx, nil, tp, driver)
}

func runTransport(ctx context.Context, b Backend, tp Transport, driver Driver) error {
	if b == nil {
		b = new(procBackend)
	}
	c := &procContext{
		backend: b,
		tp:      tp,
		ctx:     ctx,
		n:       tp.Size(),
	}
	defer tp.Finalize()
	return driver(&procData[int]{c: c, val: c.part()})
}
