// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/partio/task"
	"github.com/grailbio/partio/typecheck"
)

// The variable-length exchange moves ragged tables between neighbors.
// A receiver cannot know incoming sizes in advance, so the protocol
// runs in four phases, each depending on the previous one's task:
// derive per-neighbor send counts from the send table's offsets
// (after tin), exchange the counts through the fixed-size protocol,
// rebuild the receive table's offsets by prefix sum and size its flat
// data, and finally exchange the payload slabs. The caller sees the
// whole chain as a single handle per part.

// ExchangeTableAsync performs the non-blocking variable-length
// exchange. Entry i of each part's send table is delivered to
// partsSnd[i]; the completed handle carries the receive table, with
// entry j holding the payload from partsRcv[j]. The send table is
// owned by the in-flight exchange until the handle completes.
func ExchangeTableAsync[T any](snd Data[*Table[T]], partsRcv, partsSnd Data[[]int], tin Data[task.Waiter]) Data[*task.Handle[*Table[T]]] {
	const op = "partio.ExchangeTableAsync"
	checkSame(op, snd, partsRcv, partsSnd)
	if tin != nil {
		checkSame(op, snd, tin)
	}
	switch snd := snd.(type) {
	case *seqData[*Table[T]]:
		return seqExchangeTable(snd, partsRcv.(*seqData[[]int]), partsSnd.(*seqData[[]int]), tin)
	case *procData[*Table[T]]:
		var deps []task.Waiter
		if tin != nil {
			deps = append(deps, tin.(*procData[task.Waiter]).val)
		}
		c := snd.c
		h := procExchangeTable(c, snd.val, partsRcv.(*procData[[]int]).val, partsSnd.(*procData[[]int]).val, deps)
		return &procData[*task.Handle[*Table[T]]]{c: c, val: h}
	}
	badData(op, snd)
	return nil
}

// ExchangeTable is the blocking form of ExchangeTableAsync.
func ExchangeTable[T any](ctx context.Context, snd Data[*Table[T]], partsRcv, partsSnd Data[[]int]) (Data[*Table[T]], error) {
	return Await[*Table[T]](ctx, ExchangeTableAsync[T](snd, partsRcv, partsSnd, nil))
}

// seqExchangeTable is the simulated variable-length exchange: receive
// counts are transposed directly from the send tables, and payloads
// are copied slice by slice.
func seqExchangeTable[T any](snd *seqData[*Table[T]], prcv, psnd *seqData[[]int], tin Data[task.Waiter]) Data[*task.Handle[*Table[T]]] {
	n := len(snd.vals)
	if tin != nil {
		if err := task.WaitAll(context.Background(), tin.(*seqData[task.Waiter]).vals...); err != nil {
			hs := make([]*task.Handle[*Table[T]], n)
			for i := range hs {
				hs[i] = task.Failed[*Table[T]](err)
			}
			return &seqData[*task.Handle[*Table[T]]]{b: snd.b, vals: hs}
		}
	}
	counts := make([][]int, n)
	for p, tbl := range snd.vals {
		tbl.assertValid("partio.ExchangeTable")
		if tbl.Len() != len(psnd.vals[p]) {
			typecheck.Panicf(2, "partio.ExchangeTable: %d table entries for %d send neighbors", tbl.Len(), len(psnd.vals[p]))
		}
		counts[p] = make([]int, len(prcv.vals[p]))
	}
	for p, dsts := range psnd.vals {
		for i, q := range dsts {
			if j := indexOf(prcv.vals[q-1], p+1); j >= 0 {
				counts[q-1][j] = snd.vals[p].Count(i)
			}
		}
	}
	rcv := make([]*Table[T], n)
	for p := range rcv {
		rcv[p] = NewTable[T](counts[p])
	}
	for p, dsts := range psnd.vals {
		for i, q := range dsts {
			if j := indexOf(prcv.vals[q-1], p+1); j >= 0 {
				copy(rcv[q-1].Slice(j), snd.vals[p].Slice(i))
			}
		}
	}
	hs := make([]*task.Handle[*Table[T]], n)
	for p := range hs {
		hs[p] = task.Resolved(rcv[p])
	}
	return &seqData[*task.Handle[*Table[T]]]{b: snd.b, vals: hs}
}

// procExchangeTable builds one part's four-phase chain. Count
// derivation runs after deps; the count exchange reuses the
// fixed-size protocol; offsets are rebuilt by prefix sum; and the
// payload exchange sends one slab per neighbor under a tag allocated
// alongside the count exchange's.
func procExchangeTable[T any](c *procContext, sndTbl *Table[T], prcvv, psndv []int, deps []task.Waiter) *task.Handle[*Table[T]] {
	cntSnd := make([]int, len(psndv))
	derive := task.New(func(context.Context) (struct{}, error) {
		sndTbl.assertValid("partio.ExchangeTable")
		if sndTbl.Len() != len(psndv) {
			typecheck.Panicf(1, "partio.ExchangeTable: %d table entries for %d send neighbors", sndTbl.Len(), len(psndv))
		}
		copy(cntSnd, sndTbl.Counts())
		return struct{}{}, nil
	}, deps...)

	cntRcv := make([]int, len(prcvv))
	counts := procExchange(c, cntRcv, cntSnd, prcvv, psndv, []task.Waiter{derive})

	resized := task.Then(counts, func(_ context.Context, cnt []int) (*Table[T], error) {
		return NewTable[T](cnt), nil
	})

	dtag := c.nextTag(1)
	return task.Then(resized, func(_ context.Context, rcvTbl *Table[T]) (*Table[T], error) {
		ctx := c.ctx
		sends := make([]Op, len(psndv))
		for i, q := range psndv {
			p, err := encodeSlab(sndTbl.Slice(i))
			if err != nil {
				return nil, err
			}
			sends[i] = c.tp.Isend(q-1, dtag, p)
		}
		recvs := make([]Op, len(prcvv))
		for j, q := range prcvv {
			recvs[j] = c.tp.Irecv(q-1, dtag)
		}
		for j, op := range recvs {
			if err := op.Wait(ctx); err != nil {
				return nil, err
			}
			var slab []T
			if err := decodeSlab(op.Data(), &slab); err != nil {
				return nil, err
			}
			if len(slab) != rcvTbl.Count(j) {
				return nil, errors.E(errors.Precondition,
					fmt.Sprintf("partio.ExchangeTable: %d payload values from part %d, want %d", len(slab), prcvv[j], rcvTbl.Count(j)))
			}
			copy(rcvTbl.Slice(j), slab)
		}
		for _, op := range sends {
			if err := op.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return rcvTbl, nil
	})
}
