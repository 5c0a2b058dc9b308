// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"context"

	"github.com/grailbio/base/errors"
)

// seqBackend is the simulated backend: all parts execute within one
// sequential context, iterating over part indices. Exchanges execute
// eagerly and their handles are born resolved, so call sites written
// against the asynchronous interface run unmodified.
type seqBackend struct{}

// Seq returns the simulated backend. All parts live in a single
// execution context; it is intended for development, debugging, and
// tests.
func Seq() Backend { return new(seqBackend) }

func (*seqBackend) Name() string { return "seq" }

func (b *seqBackend) Run(ctx context.Context, n int, driver Driver) error {
	if n <= 0 {
		return errors.E(errors.Invalid, "partio.Seq: nonpositive part count")
	}
	vals := make([]int, n)
	for i := range vals {
		vals[i] = i + 1
	}
	return driver(&seqData[int]{b: b, vals: vals})
}
