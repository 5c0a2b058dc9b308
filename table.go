// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import "github.com/grailbio/partio/typecheck"

// A Table is a compressed variable-length container: entry i of the
// table is the slice Data[Ptrs[i]:Ptrs[i+1]]. Ptrs holds
// non-decreasing 0-based offsets and has one more element than the
// table has entries; Ptrs[len(Ptrs)-1] equals len(Data). Tables
// represent per-neighbor variable-length payloads in the ragged
// exchange protocol. Mutations that change element counts must keep
// Ptrs consistent with Data's length.
type Table[T any] struct {
	Ptrs []int
	Data []T
}

// NewTable returns a table with one entry per count, each sized by
// its count, with zero-valued elements.
func NewTable[T any](counts []int) *Table[T] {
	t := &Table[T]{Ptrs: ptrsFromCounts(counts)}
	t.Data = make([]T, t.Ptrs[len(t.Ptrs)-1])
	return t
}

// TableOf returns a table holding copies of the provided slices.
func TableOf[T any](slices [][]T) *Table[T] {
	counts := make([]int, len(slices))
	for i, s := range slices {
		counts[i] = len(s)
	}
	t := NewTable[T](counts)
	for i, s := range slices {
		copy(t.Slice(i), s)
	}
	return t
}

// Len returns the number of entries in the table.
func (t *Table[T]) Len() int { return len(t.Ptrs) - 1 }

// Count returns the length of entry i.
func (t *Table[T]) Count(i int) int { return t.Ptrs[i+1] - t.Ptrs[i] }

// Counts returns the per-entry lengths.
func (t *Table[T]) Counts() []int {
	counts := make([]int, t.Len())
	for i := range counts {
		counts[i] = t.Count(i)
	}
	return counts
}

// Slice returns entry i as a view into the table's flat data.
func (t *Table[T]) Slice(i int) []T {
	return t.Data[t.Ptrs[i]:t.Ptrs[i+1]]
}

// assertValid panics unless the table's offsets are well formed and
// consistent with its data length.
func (t *Table[T]) assertValid(op string) {
	if len(t.Ptrs) == 0 {
		typecheck.Panicf(2, "%s: table has no offsets", op)
	}
	for i := 1; i < len(t.Ptrs); i++ {
		if t.Ptrs[i] < t.Ptrs[i-1] {
			typecheck.Panicf(2, "%s: table offsets decrease at %d", op, i)
		}
	}
	if t.Ptrs[0] != 0 || t.Ptrs[len(t.Ptrs)-1] != len(t.Data) {
		typecheck.Panicf(2, "%s: table offsets disagree with data length %d", op, len(t.Data))
	}
}

// ptrsFromCounts returns the prefix sum offsets for the given
// per-entry counts.
func ptrsFromCounts(counts []int) []int {
	ptrs := make([]int, len(counts)+1)
	for i, c := range counts {
		ptrs[i+1] = ptrs[i] + c
	}
	return ptrs
}
