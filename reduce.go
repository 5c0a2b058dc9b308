// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import "context"

// The reductions combine one contribution per part with a
// caller-supplied combiner, which must be associative and is assumed
// commutative: contributions are folded in part order, starting from
// init.

// ReduceMaster folds every part's value at the master part. The
// master's result is the full reduction; every other part's result is
// init.
func ReduceMaster[T any](ctx context.Context, op func(T, T) T, d Data[T], init T) (Data[T], error) {
	g, err := Gather[T](ctx, d)
	if err != nil {
		return nil, err
	}
	return fold(op, g, init), nil
}

// ReduceAll folds every part's value and replicates the result at
// every part.
func ReduceAll[T any](ctx context.Context, op func(T, T) T, d Data[T], init T) (Data[T], error) {
	g, err := GatherAll[T](ctx, d)
	if err != nil {
		return nil, err
	}
	return fold(op, g, init), nil
}

// Reduce is the single-result form of the reductions: it returns the
// folded value itself, valid in every execution context.
func Reduce[T any](ctx context.Context, op func(T, T) T, d Data[T], init T) (T, error) {
	all, err := ReduceAll(ctx, op, d, init)
	if err != nil {
		var zero T
		return zero, err
	}
	return local[T](all), nil
}

func fold[T any](op func(T, T) T, g Data[[]T], init T) Data[T] {
	return Map(func(vs []T) T {
		acc := init
		for _, v := range vs {
			acc = op(acc, v)
		}
		return acc
	}, g)
}
