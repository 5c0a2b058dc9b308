// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/grailbio/partio"
	"github.com/grailbio/partio/partiotest"
)

// TestExchangeTablePair exchanges uneven payloads between two parts:
// part 1 sends one value to part 2 and receives three back. Receive
// sizes are discovered by the protocol, not by the caller.
func TestExchangeTablePair(t *testing.T) {
	partiotest.Run(t, func(parts partio.Data[int]) error {
		other := partio.Map(func(part int) []int {
			return []int{3 - part}
		}, parts)
		snd := partio.Map(func(part int) *partio.Table[int] {
			if part == 1 {
				return partio.TableOf([][]int{{10}})
			}
			return partio.TableOf([][]int{{21, 22, 23}})
		}, parts)
		rcv, err := partio.ExchangeTable(ctx(), snd, other, other)
		if err != nil {
			return err
		}
		var check error
		partio.Map2(func(part int, got *partio.Table[int]) struct{} {
			want := &partio.Table[int]{Ptrs: []int{0, 3}, Data: []int{21, 22, 23}}
			if part == 2 {
				want = &partio.Table[int]{Ptrs: []int{0, 1}, Data: []int{10}}
			}
			if check == nil && !reflect.DeepEqual(got, want) {
				check = fmt.Errorf("part %d: got %v, want %v", part, got, want)
			}
			return struct{}{}
		}, parts, rcv)
		return check
	}, 2)
}

// TestExchangeTableRagged runs a three-part asymmetric exchange: part
// 1 sends three values to part 2 and none to part 3, and part 2 sends
// one value back to part 1.
func TestExchangeTableRagged(t *testing.T) {
	partiotest.Run(t, func(parts partio.Data[int]) error {
		prcv := partio.Map(func(part int) []int {
			if part == 1 {
				return []int{2}
			}
			return []int{1}
		}, parts)
		psnd := partio.Map(func(part int) []int {
			switch part {
			case 1:
				return []int{2, 3}
			case 2:
				return []int{1}
			}
			return nil
		}, parts)
		snd := partio.Map(func(part int) *partio.Table[int] {
			switch part {
			case 1:
				return partio.TableOf([][]int{{11, 12, 13}, {}})
			case 2:
				return partio.TableOf([][]int{{7}})
			}
			return partio.TableOf(nil)
		}, parts)
		rcv, err := partio.ExchangeTable(ctx(), snd, prcv, psnd)
		if err != nil {
			return err
		}
		var check error
		partio.Map2(func(part int, got *partio.Table[int]) struct{} {
			var want *partio.Table[int]
			switch part {
			case 1:
				want = &partio.Table[int]{Ptrs: []int{0, 1}, Data: []int{7}}
			case 2:
				want = &partio.Table[int]{Ptrs: []int{0, 3}, Data: []int{11, 12, 13}}
			case 3:
				want = &partio.Table[int]{Ptrs: []int{0, 0}, Data: []int{}}
			}
			if check == nil && !reflect.DeepEqual(got, want) {
				check = fmt.Errorf("part %d: got %v, want %v", part, got, want)
			}
			return struct{}{}
		}, parts, rcv)
		return check
	}, 3)
}

// TestExchangeTableRing sends a payload of length equal to the sender's
// part id to each ring neighbor.
func TestExchangeTableRing(t *testing.T) {
	const n = 4
	partiotest.Run(t, func(parts partio.Data[int]) error {
		graph := partio.Map(func(part int) []int {
			prev, next := ringGraph(part, n)
			return []int{prev, next}
		}, parts)
		snd := partio.Map(func(part int) *partio.Table[int] {
			payload := make([]int, part)
			for i := range payload {
				payload[i] = 100*part + i
			}
			return partio.TableOf([][]int{payload, payload})
		}, parts)
		rcv, err := partio.ExchangeTable(ctx(), snd, graph, graph)
		if err != nil {
			return err
		}
		var check error
		partio.Map2(func(part int, got *partio.Table[int]) struct{} {
			prev, next := ringGraph(part, n)
			for j, q := range []int{prev, next} {
				want := make([]int, q)
				for i := range want {
					want[i] = 100*q + i
				}
				if check == nil && !reflect.DeepEqual(got.Slice(j), want) {
					check = fmt.Errorf("part %d from %d: got %v, want %v", part, q, got.Slice(j), want)
				}
			}
			return struct{}{}
		}, parts, rcv)
		return check
	}, n)
}

// TestExchangeTableEmptyEntries exchanges tables in which some
// neighbors get empty payloads.
func TestExchangeTableEmptyEntries(t *testing.T) {
	const n = 4
	partiotest.Run(t, func(parts partio.Data[int]) error {
		graph := partio.Map(func(part int) []int {
			prev, next := ringGraph(part, n)
			return []int{prev, next}
		}, parts)
		// Odd parts send only to their next neighbor; the entry for the
		// previous neighbor is empty.
		snd := partio.Map(func(part int) *partio.Table[int] {
			if part%2 == 1 {
				return partio.TableOf([][]int{{}, {part}})
			}
			return partio.TableOf([][]int{{part}, {part}})
		}, parts)
		rcv, err := partio.ExchangeTable(ctx(), snd, graph, graph)
		if err != nil {
			return err
		}
		var check error
		partio.Map2(func(part int, got *partio.Table[int]) struct{} {
			prev, next := ringGraph(part, n)
			// Entry 0 came from prev (its "next" entry), entry 1 from
			// next (its "prev" entry, empty when next is odd).
			if check == nil && !reflect.DeepEqual(got.Slice(0), []int{prev}) {
				check = fmt.Errorf("part %d from %d: got %v, want [%d]", part, prev, got.Slice(0), prev)
			}
			wantNext := []int{next}
			if next%2 == 1 {
				wantNext = nil
			}
			if check == nil && got.Count(1) != len(wantNext) {
				check = fmt.Errorf("part %d from %d: got %v, want %v", part, next, got.Slice(1), wantNext)
			}
			return struct{}{}
		}, parts, rcv)
		return check
	}, n)
}
