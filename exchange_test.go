// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio_test

import (
	"fmt"
	"math/rand"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/partio"
	"github.com/grailbio/partio/partiotest"
)

// ringGraph returns the send and receive neighbor lists of part p in a
// bidirectional ring of n parts: previous first, then next.
func ringGraph(part, n int) (prev, next int) {
	prev = (part-2+n)%n + 1
	next = part%n + 1
	return
}

// TestExchangeRing exchanges one value with each ring neighbor and
// verifies that every part receives exactly what its neighbors sent.
func TestExchangeRing(t *testing.T) {
	const n = 4
	partiotest.Run(t, func(parts partio.Data[int]) error {
		graph := partio.Map(func(part int) []int {
			prev, next := ringGraph(part, n)
			return []int{prev, next}
		}, parts)
		// Part p sends 10*p+1 to its previous neighbor and 10*p+2 to
		// its next.
		snd := partio.Map(func(part int) []int {
			return []int{10*part + 1, 10*part + 2}
		}, parts)
		rcv, err := partio.Exchange(ctx(), snd, graph, graph)
		if err != nil {
			return err
		}
		var check error
		partio.Map2(func(part int, got []int) struct{} {
			prev, next := ringGraph(part, n)
			// The previous neighbor sees us as its next, so it sent us
			// its second value, and vice versa.
			want := []int{10*prev + 2, 10*next + 1}
			for j := range want {
				if got[j] != want[j] && check == nil {
					check = fmt.Errorf("part %d: got %v, want %v", part, got, want)
				}
			}
			return struct{}{}
		}, parts, rcv)
		return check
	}, n)
}

// TestExchangeInto verifies that the in-place exchange fills and
// returns the caller's own receive buffers.
func TestExchangeInto(t *testing.T) {
	const n = 3
	partiotest.Run(t, func(parts partio.Data[int]) error {
		graph := partio.Map(func(part int) []int {
			prev, next := ringGraph(part, n)
			return []int{prev, next}
		}, parts)
		snd := partio.Map(func(part int) []int {
			return []int{part, -part}
		}, parts)
		rcv := partio.Map(func(part int) []int {
			return make([]int, 2)
		}, parts)
		filled, err := partio.ExchangeInto(ctx(), rcv, snd, graph, graph)
		if err != nil {
			return err
		}
		var check error
		partio.Map2(func(orig, got []int) struct{} {
			if &orig[0] != &got[0] && check == nil {
				check = fmt.Errorf("exchange did not return the caller's buffer")
			}
			return struct{}{}
		}, rcv, filled)
		return check
	}, n)
}

func TestExchangeEmpty(t *testing.T) {
	partiotest.Run(t, func(parts partio.Data[int]) error {
		none := partio.Map(func(int) []int { return nil }, parts)
		snd := partio.Map(func(int) []string { return nil }, parts)
		rcv, err := partio.Exchange(ctx(), snd, none, none)
		if err != nil {
			return err
		}
		var check error
		partio.Each(func(got []string) {
			if len(got) != 0 && check == nil {
				check = fmt.Errorf("got %v, want empty", got)
			}
		}, rcv)
		return check
	}, 3)
}

// TestExchangeChained runs two dependent exchanges without an
// intervening barrier: the second forwards the buffers the first
// received into, sequenced only by the first exchange's tasks.
func TestExchangeChained(t *testing.T) {
	const n = 5
	partiotest.Run(t, func(parts partio.Data[int]) error {
		prev := partio.Map(func(part int) []int {
			p, _ := ringGraph(part, n)
			return []int{p}
		}, parts)
		next := partio.Map(func(part int) []int {
			_, q := ringGraph(part, n)
			return []int{q}
		}, parts)
		snd := partio.Map(func(part int) []int { return []int{part} }, parts)
		buf := partio.Map(func(int) []int { return make([]int, 1) }, parts)
		h1 := partio.ExchangeAsyncInto(buf, snd, prev, next, nil)
		// The forwarded buffers are owned by h1 until it completes;
		// the dependency hands them off to the second hop.
		h2 := partio.ExchangeAsync(buf, prev, next, partio.Waiters(h1))
		rcv, err := partio.Await(ctx(), h2)
		if err != nil {
			return err
		}
		var check error
		partio.Map2(func(part int, got []int) struct{} {
			want := (part-3+n)%n + 1 // two hops back around the ring
			if got[0] != want && check == nil {
				check = fmt.Errorf("part %d: got %v, want %v", part, got[0], want)
			}
			return struct{}{}
		}, parts, rcv)
		return check
	}, n)
}

// TestExchangeRandomGraph exchanges fuzzed payloads over random
// communication graphs. Every part derives the same graph and payload
// matrix from the trial seed, so each side can check what it receives
// without further communication.
func TestExchangeRandomGraph(t *testing.T) {
	const n = 5
	for trial := 0; trial < 10; trial++ {
		trial := trial
		t.Run(fmt.Sprint(trial), func(t *testing.T) {
			partiotest.Run(t, func(parts partio.Data[int]) error {
				edge, payload := randomExchange(trial, n)
				prcv := partio.Map(func(part int) []int {
					var ids []int
					for q := 1; q <= n; q++ {
						if edge[q-1][part-1] {
							ids = append(ids, q)
						}
					}
					return ids
				}, parts)
				psnd := partio.Map(func(part int) []int {
					var ids []int
					for q := 1; q <= n; q++ {
						if edge[part-1][q-1] {
							ids = append(ids, q)
						}
					}
					return ids
				}, parts)
				snd := partio.Map2(func(part int, dsts []int) []string {
					vals := make([]string, len(dsts))
					for i, q := range dsts {
						vals[i] = payload[part-1][q-1]
					}
					return vals
				}, parts, psnd)
				rcv, err := partio.Exchange(ctx(), snd, prcv, psnd)
				if err != nil {
					return err
				}
				var check error
				type zip struct {
					part int
					srcs []int
				}
				zipped := partio.Map2(func(part int, srcs []int) zip {
					return zip{part, srcs}
				}, parts, prcv)
				partio.Map2(func(z zip, got []string) struct{} {
					for j, q := range z.srcs {
						if want := payload[q-1][z.part-1]; got[j] != want && check == nil {
							check = fmt.Errorf("part %d from %d: got %q, want %q", z.part, q, got[j], want)
						}
					}
					return struct{}{}
				}, zipped, rcv)
				return check
			}, n)
		})
	}
}

// randomExchange returns a deterministic random directed graph and a
// payload for each edge, keyed by (sender, receiver).
func randomExchange(seed, n int) (edge [][]bool, payload [][]string) {
	rnd := rand.New(rand.NewSource(int64(seed)))
	fz := fuzz.NewWithSeed(int64(seed)).NumElements(1, 8)
	edge = make([][]bool, n)
	payload = make([][]string, n)
	for p := 0; p < n; p++ {
		edge[p] = make([]bool, n)
		payload[p] = make([]string, n)
		for q := 0; q < n; q++ {
			edge[p][q] = rnd.Intn(2) == 0
			fz.Fuzz(&payload[p][q])
		}
	}
	return
}
