// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"context"
	"sync"

	"github.com/grailbio/partio/typecheck"
)

// masterPart is the distinguished part used by the single-result
// collectives. Part ids are 1-based.
const masterPart = 1

// meta is the type-erased face of a Data, used for cross-instance
// consistency checks.
type meta interface {
	// NumParts returns the total number of parts.
	NumParts() int
	// Backend returns the backend to which the data is bound.
	Backend() Backend
}

// Data is a distributed container: a total mapping from part id
// (1..NumParts) to a local value of type T, bound at construction to
// one backend and one part count. Data instances combined in a single
// operation must share both; violating this panics with a usage
// error. All local access goes through Map and its variants; any
// cross-part effect goes through the exchange and collective layer.
type Data[T any] interface {
	meta
	data() // sealed
}

// seqData is the simulated representation: every part's value lives
// in one slice, in one sequential execution context. Index i holds
// part i+1.
type seqData[T any] struct {
	b    *seqBackend
	vals []T
}

func (d *seqData[T]) NumParts() int    { return len(d.vals) }
func (d *seqData[T]) Backend() Backend { return d.b }
func (*seqData[T]) data()              {}

// procData is the distributed representation: one execution context
// per part, each holding only its local value.
type procData[T any] struct {
	c   *procContext
	val T
}

func (d *procData[T]) NumParts() int    { return d.c.n }
func (d *procData[T]) Backend() Backend { return d.c.backend }
func (*procData[T]) data()              {}

// procContext is the per-execution-context state of a distributed
// backend: the transport endpoint and the message tag counter. Tags
// are allocated when a communication operation is constructed, on the
// driver goroutine; since drivers issue collective operations in the
// same order on every part, counters agree across parts without
// coordination.
type procContext struct {
	backend Backend
	tp      Transport
	ctx     context.Context
	n       int

	mu  sync.Mutex
	tag int
}

func (c *procContext) nextTag(n int) int {
	c.mu.Lock()
	t := c.tag
	c.tag += n
	c.mu.Unlock()
	return t
}

// part returns the context's 1-based part id.
func (c *procContext) part() int { return c.tp.Rank() + 1 }

// checkSame panics unless all of the provided data share a backend
// and a part count.
func checkSame(op string, ds ...meta) {
	if len(ds) == 0 {
		return
	}
	d0 := ds[0]
	for _, d := range ds[1:] {
		if d.Backend() != d0.Backend() {
			typecheck.Panicf(2, "%s: mixed backends", op)
		}
		if d.NumParts() != d0.NumParts() {
			typecheck.Panicf(2, "%s: mixed part counts: %d and %d", op, d0.NumParts(), d.NumParts())
		}
	}
}

// badData reports a Data variant that the called operation does not
// support. The Data interface is sealed, so this is unreachable
// unless a new variant is added without extending the operation set.
func badData(op string, d interface{}) {
	typecheck.Panicf(2, "%s: unsupported data variant %T", op, d)
}

// IAmMaster returns a distributed boolean that is true on exactly one
// distinguished part (part 1) and false elsewhere. It is stable
// across calls for a given backend.
func IAmMaster[T any](d Data[T]) Data[bool] {
	switch d := d.(type) {
	case *seqData[T]:
		vals := make([]bool, len(d.vals))
		if len(vals) > 0 {
			vals[masterPart-1] = true
		}
		return &seqData[bool]{b: d.b, vals: vals}
	case *procData[T]:
		return &procData[bool]{c: d.c, val: d.c.part() == masterPart}
	}
	badData("partio.IAmMaster", d)
	return nil
}

// local returns the calling context's local value: in the simulated
// backend, the master part's value; in a distributed backend, the
// context's own value. It is used by the single-result collectives,
// whose results are replicated across parts first.
func local[T any](d Data[T]) T {
	switch d := d.(type) {
	case *seqData[T]:
		return d.vals[masterPart-1]
	case *procData[T]:
		return d.val
	}
	badData("partio.local", d)
	var zero T
	return zero
}
