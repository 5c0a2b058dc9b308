// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"context"

	"github.com/grailbio/base/errors"
	"golang.org/x/sync/errgroup"
)

// procBackend is a distributed backend that runs one goroutine per
// part within the calling process, communicating over the channel
// transport. It exercises the same non-blocking communication paths
// as a multi-process backend, so drivers debugged here carry over to
// bigmachine execution unchanged.
type procBackend struct{}

// Proc returns the goroutine-per-part distributed backend.
func Proc() Backend { return new(procBackend) }

func (*procBackend) Name() string { return "proc" }

func (b *procBackend) Run(ctx context.Context, n int, driver Driver) error {
	if n <= 0 {
		return errors.E(errors.Invalid, "partio.Proc: nonpositive part count")
	}
	hub := newChanHub(n)
	g, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < n; rank++ {
		rank := rank
		g.Go(func() error {
			return runTransport(ctx, b, &chanTransport{hub: hub, rank: rank}, driver)
		})
	}
	return g.Wait()
}
