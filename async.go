// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"context"

	"github.com/grailbio/partio/task"
)

// Await schedules every per-part handle in d, waits for all of them
// to complete, and returns their results as distributed data. It is
// the bridge from the asynchronous layer back to plain values: the
// blocking forms of the exchange and collective operations are Await
// over their asynchronous forms.
func Await[T any](ctx context.Context, d Data[*task.Handle[T]]) (Data[T], error) {
	switch d := d.(type) {
	case *seqData[*task.Handle[T]]:
		for _, h := range d.vals {
			h.Schedule()
		}
		vals := make([]T, len(d.vals))
		for i, h := range d.vals {
			v, err := h.Result(ctx)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return &seqData[T]{b: d.b, vals: vals}, nil
	case *procData[*task.Handle[T]]:
		v, err := d.val.Result(ctx)
		if err != nil {
			return nil, err
		}
		return &procData[T]{c: d.c, val: v}, nil
	}
	badData("partio.Await", d)
	return nil, nil
}

// Waiters erases the result type from distributed handles so they can
// be passed as the dependency of a subsequent exchange.
func Waiters[T any](d Data[*task.Handle[T]]) Data[task.Waiter] {
	return Map(func(h *task.Handle[T]) task.Waiter { return h }, d)
}

// mapAsync returns per-part handles that compute fn on each part's
// value after tin (which may be nil) completes. In the simulated
// backend the computation runs eagerly and the handles are born
// resolved; in a distributed backend the computation is deferred into
// an unscheduled task.
func mapAsync[A, B any](op string, d Data[A], tin Data[task.Waiter], fn func(A) (B, error)) Data[*task.Handle[B]] {
	if tin != nil {
		checkSame(op, d, tin)
	}
	switch d := d.(type) {
	case *seqData[A]:
		var werr error
		if tin != nil {
			werr = task.WaitAll(context.Background(), tin.(*seqData[task.Waiter]).vals...)
		}
		hs := make([]*task.Handle[B], len(d.vals))
		for i, v := range d.vals {
			if werr != nil {
				hs[i] = task.Failed[B](werr)
				continue
			}
			b, err := fn(v)
			if err != nil {
				hs[i] = task.Failed[B](err)
			} else {
				hs[i] = task.Resolved(b)
			}
		}
		return &seqData[*task.Handle[B]]{b: d.b, vals: hs}
	case *procData[A]:
		var deps []task.Waiter
		if tin != nil {
			deps = append(deps, tin.(*procData[task.Waiter]).val)
		}
		v := d.val
		h := task.New(func(context.Context) (B, error) { return fn(v) }, deps...)
		return &procData[*task.Handle[B]]{c: d.c, val: h}
	}
	badData(op, d)
	return nil
}

// thenAsync chains a continuation onto distributed handles, zipping
// in per-part state s. The returned handles complete with fn applied
// to the part's state and the prior handle's result; scheduling them
// drives the whole chain.
func thenAsync[A, S, B any](op string, hs Data[*task.Handle[A]], s Data[S], fn func(S, A) (B, error)) Data[*task.Handle[B]] {
	checkSame(op, hs, s)
	switch hs := hs.(type) {
	case *seqData[*task.Handle[A]]:
		sv := s.(*seqData[S])
		out := make([]*task.Handle[B], len(hs.vals))
		for i, h := range hs.vals {
			v, err := h.Result(context.Background())
			if err != nil {
				out[i] = task.Failed[B](err)
				continue
			}
			b, err := fn(sv.vals[i], v)
			if err != nil {
				out[i] = task.Failed[B](err)
			} else {
				out[i] = task.Resolved(b)
			}
		}
		return &seqData[*task.Handle[B]]{b: hs.b, vals: out}
	case *procData[*task.Handle[A]]:
		sval := s.(*procData[S]).val
		h := task.Then(hs.val, func(_ context.Context, v A) (B, error) {
			return fn(sval, v)
		})
		return &procData[*task.Handle[B]]{c: hs.c, val: h}
	}
	badData(op, hs)
	return nil
}
