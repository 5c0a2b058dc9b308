// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"context"

	"github.com/grailbio/partio/typecheck"
)

// The collectives are thin compositions of the fixed-size exchange
// with star-shaped or complete communication graphs plus local
// selection logic; none of them touches the transport directly.

// Gather collects every part's value at the master part: the master's
// result holds the values of parts 1..NumParts in part order, and
// every other part's result is empty.
func Gather[T any](ctx context.Context, d Data[T]) (Data[[]T], error) {
	snd := Map(func(v T) []T { return []T{v} }, d)
	psnd := Map(func(T) []int { return []int{masterPart} }, d)
	prcv := MapParts(func(part int, _ T) []int {
		if part != masterPart {
			return nil
		}
		return allParts(d.NumParts())
	}, d)
	return Exchange[T](ctx, snd, prcv, psnd)
}

// GatherAll collects every part's value at every part, in part order:
// the all-to-all case of Gather, over the complete graph.
func GatherAll[T any](ctx context.Context, d Data[T]) (Data[[]T], error) {
	n := d.NumParts()
	snd := Map(func(v T) []T {
		vs := make([]T, n)
		for i := range vs {
			vs[i] = v
		}
		return vs
	}, d)
	all := Map(func(T) []int { return allParts(n) }, d)
	return Exchange[T](ctx, snd, all, all)
}

// Scatter is the inverse of Gather: the master part owns one value
// per part, and each part receives its own. The master's input must
// hold exactly NumParts values; other parts' inputs are ignored.
func Scatter[T any](ctx context.Context, in Data[[]T]) (Data[T], error) {
	n := in.NumParts()
	snd := MapParts(func(part int, vs []T) []T {
		if part != masterPart {
			return nil
		}
		if len(vs) != n {
			typecheck.Panicf(3, "partio.Scatter: %d values for %d parts", len(vs), n)
		}
		return vs
	}, in)
	psnd := MapParts(func(part int, _ []T) []int {
		if part != masterPart {
			return nil
		}
		return allParts(n)
	}, in)
	prcv := Map(func([]T) []int { return []int{masterPart} }, in)
	rcvd, err := Exchange[T](ctx, snd, prcv, psnd)
	if err != nil {
		return nil, err
	}
	return Map(func(vs []T) T { return vs[0] }, rcvd), nil
}

// Bcast replicates the master part's value to every part: a star
// exchange from the one source.
func Bcast[T any](ctx context.Context, in Data[T]) (Data[T], error) {
	n := in.NumParts()
	snd := MapParts(func(part int, v T) []T {
		if part != masterPart {
			return nil
		}
		vs := make([]T, n)
		for i := range vs {
			vs[i] = v
		}
		return vs
	}, in)
	psnd := MapParts(func(part int, _ T) []int {
		if part != masterPart {
			return nil
		}
		return allParts(n)
	}, in)
	prcv := Map(func(T) []int { return []int{masterPart} }, in)
	rcvd, err := Exchange[T](ctx, snd, prcv, psnd)
	if err != nil {
		return nil, err
	}
	return Map(func(vs []T) T { return vs[0] }, rcvd), nil
}

// allParts returns the ids 1..n.
func allParts(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}
