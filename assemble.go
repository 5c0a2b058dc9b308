// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/partio/task"
)

// Assembly serves data with overlapping ownership, such as shared
// boundary degrees of freedom: non-owning parts send their
// contributions to the owner, and the owner folds them into its
// authoritative values. The overlap is described by two index tables
// per part, aligned with the communication graph: entry i of localSnd
// lists the local positions in vals whose values are contributions to
// send neighbor partsSnd[i], and entry j of localRcv lists the local
// positions into which the payload arriving from partsRcv[j] is
// folded, pairwise in payload order.

// AssembleAsync sends and folds contributions without blocking. The
// per-part handle completes with the part's value slice, which is
// owned by the in-flight assembly until then; combine is applied as
// combine(own, incoming). If tin is non-nil, each part's assembly
// starts only after its tin task completes.
func AssembleAsync[T any](combine func(T, T) T, vals Data[[]T], localSnd, localRcv Data[*Table[int]], partsRcv, partsSnd Data[[]int], tin Data[task.Waiter]) Data[*task.Handle[[]T]] {
	const op = "partio.AssembleAsync"
	checkSame(op, vals, localSnd, localRcv, partsRcv, partsSnd)

	sndTbl := Map(func(idx *Table[int]) *Table[T] {
		return NewTable[T](idx.Counts())
	}, localSnd)

	type fillState struct {
		vals []T
		idx  *Table[int]
		snd  *Table[T]
	}
	fills := Map3(func(vs []T, idx *Table[int], snd *Table[T]) fillState {
		return fillState{vals: vs, idx: idx, snd: snd}
	}, vals, localSnd, sndTbl)
	filled := mapAsync(op, fills, tin, func(s fillState) (struct{}, error) {
		for k, i := range s.idx.Data {
			s.snd.Data[k] = s.vals[i]
		}
		return struct{}{}, nil
	})

	hx := ExchangeTableAsync[T](sndTbl, partsRcv, partsSnd, Waiters[struct{}](filled))

	type foldState struct {
		vals []T
		idx  *Table[int]
	}
	folds := Map2(func(vs []T, idx *Table[int]) foldState {
		return foldState{vals: vs, idx: idx}
	}, vals, localRcv)
	return thenAsync(op, hx, folds, func(s foldState, rcvTbl *Table[T]) ([]T, error) {
		if len(rcvTbl.Data) != len(s.idx.Data) {
			return nil, errors.E(errors.Precondition,
				fmt.Sprintf("partio.AssembleAsync: %d incoming values for %d fold positions", len(rcvTbl.Data), len(s.idx.Data)))
		}
		for k, i := range s.idx.Data {
			s.vals[i] = combine(s.vals[i], rcvTbl.Data[k])
		}
		return s.vals, nil
	})
}

// Assemble is the blocking form of AssembleAsync.
func Assemble[T any](ctx context.Context, combine func(T, T) T, vals Data[[]T], localSnd, localRcv Data[*Table[int]], partsRcv, partsSnd Data[[]int]) (Data[[]T], error) {
	return Await[[]T](ctx, AssembleAsync(combine, vals, localSnd, localRcv, partsRcv, partsSnd, nil))
}
