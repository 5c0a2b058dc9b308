// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import "context"

// noPart is the marker for "I do not want to receive from you" in
// neighbor discovery.
const noPart = -1

// DiscoverSnd derives the send graph from the receive graph: the
// result lists, for every part, the parts that will receive from it,
// which is exactly the set of parts whose partsRcv contains it.
//
// neighbors is a candidate graph: it must be symmetric (if part a
// lists b, then b lists a) and a superset of the true communication
// graph. Beyond part-count equality this precondition is not checked;
// an asymmetric candidate graph produces a silently incomplete send
// graph. Each part sends one marker per candidate, its own id if it
// wants to receive from that candidate and noPart otherwise, through
// a fixed-size self-exchange against the candidate graph; the
// positive markers a part receives identify its senders. Markers are
// kept in an array keyed by candidate position, so cost is bounded by
// the candidate graph's degree.
//
// If neighbors is nil, it defaults to "every other part", which is
// correct but costs O(parts) per part; supply a real candidate graph
// at scale.
func DiscoverSnd(ctx context.Context, partsRcv, neighbors Data[[]int]) (Data[[]int], error) {
	if neighbors == nil {
		neighbors = allOthers[[]int](partsRcv)
	}
	checkSame("partio.DiscoverSnd", partsRcv, neighbors)
	markers := mapParts2(func(part int, rcv, nbrs []int) []int {
		snd := make([]int, len(nbrs))
		for i, q := range nbrs {
			if indexOf(rcv, q) >= 0 {
				snd[i] = part
			} else {
				snd[i] = noPart
			}
		}
		return snd
	}, partsRcv, neighbors)
	rcvd, err := Exchange[int](ctx, markers, neighbors, neighbors)
	if err != nil {
		return nil, err
	}
	return Map(func(ms []int) []int {
		var snd []int
		for _, m := range ms {
			if m != noPart {
				snd = append(snd, m)
			}
		}
		return snd
	}, rcvd), nil
}

// allOthers returns the complete candidate graph: every part lists
// every other part, in id order.
func allOthers[T any](d Data[T]) Data[[]int] {
	n := d.NumParts()
	return MapParts(func(part int, _ T) []int {
		ids := make([]int, 0, n-1)
		for q := 1; q <= n; q++ {
			if q != part {
				ids = append(ids, q)
			}
		}
		return ids
	}, d)
}
