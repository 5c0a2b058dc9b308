// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"context"

	"github.com/grailbio/partio/task"
	"github.com/grailbio/partio/typecheck"
)

// The fixed-size exchange is the communication primitive underneath
// every collective in this package. Each part p sends snd[p][i] to
// part partsSnd[p][i] and, independently, receives into rcv[p][j]
// from part partsRcv[p][j]. The graphs must agree: every edge listed
// in a part's partsSnd must appear in the peer's partsRcv. Beyond
// count assertions this is not checked; a mismatched graph yields
// undefined results in the simulated backend and deadlock in a
// distributed one.

// ExchangeAsyncInto performs a non-blocking in-place fixed-size
// exchange. The receive and send buffers are owned by the in-flight
// exchange from this call until the part's handle completes; the
// receive buffer is recovered from the completed handle. If tin is
// non-nil, each part's exchange starts only after its tin task has
// completed, which sequences dependent exchanges without a global
// barrier.
func ExchangeAsyncInto[T any](rcv, snd Data[[]T], partsRcv, partsSnd Data[[]int], tin Data[task.Waiter]) Data[*task.Handle[[]T]] {
	const op = "partio.ExchangeAsyncInto"
	checkSame(op, rcv, snd, partsRcv, partsSnd)
	if tin != nil {
		checkSame(op, rcv, tin)
	}
	switch rcv := rcv.(type) {
	case *seqData[[]T]:
		return seqExchange(rcv, snd.(*seqData[[]T]), partsRcv.(*seqData[[]int]), partsSnd.(*seqData[[]int]), tin)
	case *procData[[]T]:
		var deps []task.Waiter
		if tin != nil {
			deps = append(deps, tin.(*procData[task.Waiter]).val)
		}
		c := rcv.c
		h := procExchange(c, rcv.val, snd.(*procData[[]T]).val,
			partsRcv.(*procData[[]int]).val, partsSnd.(*procData[[]int]).val, deps)
		return &procData[*task.Handle[[]T]]{c: c, val: h}
	}
	badData(op, rcv)
	return nil
}

// ExchangeAsync is the allocating form of ExchangeAsyncInto: each
// part's receive buffer is sized from partsRcv, and is valid only
// once recovered from the completed handle.
func ExchangeAsync[T any](snd Data[[]T], partsRcv, partsSnd Data[[]int], tin Data[task.Waiter]) Data[*task.Handle[[]T]] {
	rcv := Map(func(ids []int) []T { return make([]T, len(ids)) }, partsRcv)
	return ExchangeAsyncInto[T](rcv, snd, partsRcv, partsSnd, tin)
}

// ExchangeInto is the blocking form of ExchangeAsyncInto: it
// schedules every per-part exchange, waits for all of them, and
// returns the filled receive buffers.
func ExchangeInto[T any](ctx context.Context, rcv, snd Data[[]T], partsRcv, partsSnd Data[[]int]) (Data[[]T], error) {
	return Await[[]T](ctx, ExchangeAsyncInto[T](rcv, snd, partsRcv, partsSnd, nil))
}

// Exchange is the blocking, allocating form of the fixed-size
// exchange.
func Exchange[T any](ctx context.Context, snd Data[[]T], partsRcv, partsSnd Data[[]int]) (Data[[]T], error) {
	return Await[[]T](ctx, ExchangeAsync[T](snd, partsRcv, partsSnd, nil))
}

// seqExchange is the simulated fixed-size exchange: a direct
// transposition of the send buffers into the receive buffers. The
// returned handles are born resolved.
func seqExchange[T any](rcv, snd *seqData[[]T], prcv, psnd *seqData[[]int], tin Data[task.Waiter]) Data[*task.Handle[[]T]] {
	if tin != nil {
		if err := task.WaitAll(context.Background(), tin.(*seqData[task.Waiter]).vals...); err != nil {
			hs := make([]*task.Handle[[]T], len(rcv.vals))
			for i := range hs {
				hs[i] = task.Failed[[]T](err)
			}
			return &seqData[*task.Handle[[]T]]{b: rcv.b, vals: hs}
		}
	}
	for p := range snd.vals {
		assertCounts("partio.Exchange", len(snd.vals[p]), len(psnd.vals[p]), len(rcv.vals[p]), len(prcv.vals[p]))
	}
	for p, dsts := range psnd.vals {
		for i, q := range dsts {
			if j := indexOf(prcv.vals[q-1], p+1); j >= 0 {
				rcv.vals[q-1][j] = snd.vals[p][i]
			}
		}
	}
	hs := make([]*task.Handle[[]T], len(rcv.vals))
	for p := range hs {
		hs[p] = task.Resolved(rcv.vals[p])
	}
	return &seqData[*task.Handle[[]T]]{b: rcv.b, vals: hs}
}

// procExchange posts a single part's side of the fixed-size exchange
// over the context's transport. The message tag is allocated here, at
// construction time on the driver goroutine, so that concurrently
// outstanding exchanges on different parts still agree on tags.
func procExchange[T any](c *procContext, rbuf, sbuf []T, prcvv, psndv []int, deps []task.Waiter) *task.Handle[[]T] {
	tag := c.nextTag(1)
	return task.New(func(context.Context) ([]T, error) {
		ctx := c.ctx
		assertCounts("partio.Exchange", len(sbuf), len(psndv), len(rbuf), len(prcvv))
		sends := make([]Op, len(psndv))
		for i, q := range psndv {
			p, err := encodeValue(sbuf[i])
			if err != nil {
				return nil, err
			}
			sends[i] = c.tp.Isend(q-1, tag, p)
		}
		recvs := make([]Op, len(prcvv))
		for j, q := range prcvv {
			recvs[j] = c.tp.Irecv(q-1, tag)
		}
		for j, op := range recvs {
			if err := op.Wait(ctx); err != nil {
				return nil, err
			}
			if err := decodeValue(op.Data(), &rbuf[j]); err != nil {
				return nil, err
			}
		}
		for _, op := range sends {
			if err := op.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return rbuf, nil
	}, deps...)
}

// assertCounts enforces the exchange's only checked precondition:
// one send value per send neighbor and one receive slot per receive
// neighbor.
func assertCounts(op string, nsnd, npsnd, nrcv, nprcv int) {
	if nsnd != npsnd {
		typecheck.Panicf(3, "%s: %d send values for %d send neighbors", op, nsnd, npsnd)
	}
	if nrcv != nprcv {
		typecheck.Panicf(3, "%s: %d receive slots for %d receive neighbors", op, nrcv, nprcv)
	}
}

// indexOf returns the position of part id in ids, or -1.
func indexOf(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
