// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio_test

import (
	"fmt"
	"testing"

	"github.com/grailbio/partio"
	"github.com/grailbio/partio/partiotest"
)

// wantRcv is the receive graph under test: each part wants data from
// its ring predecessor, and part 1 additionally from part 3.
func wantRcv(part, n int) []int {
	prev, _ := ringGraph(part, n)
	if part == 1 && n > 3 {
		return []int{prev, 3}
	}
	return []int{prev}
}

// wantSnd inverts wantRcv: part p must send to every part whose
// receive list names p.
func wantSnd(part, n int) []int {
	var snd []int
	for q := 1; q <= n; q++ {
		for _, r := range wantRcv(q, n) {
			if r == part {
				snd = append(snd, q)
			}
		}
	}
	return snd
}

func TestDiscoverSnd(t *testing.T) {
	const n = 4
	partiotest.Run(t, func(parts partio.Data[int]) error {
		prcv := partio.Map(func(part int) []int {
			return wantRcv(part, n)
		}, parts)
		psnd, err := partio.DiscoverSnd(ctx(), prcv, nil)
		if err != nil {
			return err
		}
		return checkSndGraph(parts, psnd, n)
	}, n)
}

// TestDiscoverSndCandidates runs discovery against an explicit
// symmetric candidate graph that is a strict superset of the true one.
func TestDiscoverSndCandidates(t *testing.T) {
	const n = 4
	partiotest.Run(t, func(parts partio.Data[int]) error {
		prcv := partio.Map(func(part int) []int {
			return wantRcv(part, n)
		}, parts)
		// Ring neighbors both ways, plus the symmetric 1<->3 chord.
		candidates := partio.Map(func(part int) []int {
			prev, next := ringGraph(part, n)
			cands := []int{prev, next}
			switch part {
			case 1:
				cands = append(cands, 3)
			case 3:
				cands = append(cands, 1)
			}
			return cands
		}, parts)
		psnd, err := partio.DiscoverSnd(ctx(), prcv, candidates)
		if err != nil {
			return err
		}
		return checkSndGraph(parts, psnd, n)
	}, n)
}

func checkSndGraph(parts partio.Data[int], psnd partio.Data[[]int], n int) error {
	var check error
	partio.Map2(func(part int, got []int) struct{} {
		want := wantSnd(part, n)
		if check == nil && !sameSet(got, want) {
			check = fmt.Errorf("part %d: got %v, want %v", part, got, want)
		}
		return struct{}{}
	}, parts, psnd)
	return check
}

// sameSet reports whether a and b hold the same ids, in any order.
func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]int)
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
	}
	for _, c := range seen {
		if c != 0 {
			return false
		}
	}
	return true
}

func TestDiscoverSndNone(t *testing.T) {
	partiotest.Run(t, func(parts partio.Data[int]) error {
		prcv := partio.Map(func(int) []int { return nil }, parts)
		psnd, err := partio.DiscoverSnd(ctx(), prcv, nil)
		if err != nil {
			return err
		}
		var check error
		partio.Each(func(got []int) {
			if len(got) != 0 && check == nil {
				check = fmt.Errorf("got %v, want empty", got)
			}
		}, psnd)
		return check
	}, 3)
}
