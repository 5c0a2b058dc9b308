// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
)

// A Driver is a user routine run against the distributed container of
// part ids. It is invoked exactly once logically: once in the
// simulated backend's single context, or once per execution context
// in a distributed backend.
type Driver func(parts Data[int]) error

// A Backend is an execution substrate that realizes parts as
// simulated chunks, goroutines, or real processes. Backends are
// immutable once constructed and own no per-part data themselves.
type Backend interface {
	// Name returns a diagnostic name for the backend.
	Name() string

	// Run acquires the backend's execution contexts, invokes driver
	// once per context with that context's part ids, and tears the
	// contexts down on all exit paths. Run reports the first driver or
	// substrate error.
	Run(ctx context.Context, n int, driver Driver) error
}

// Run invokes driver on backend with parts shaped by dims: the part
// count is the product of dims, so both a flat count and a
// multi-dimensional shape are accepted. Setup and teardown of the
// backend's execution contexts are scoped to the call on all exit
// paths.
func Run(ctx context.Context, backend Backend, driver Driver, dims ...int) error {
	if len(dims) == 0 {
		return errors.E(errors.Invalid, "partio.Run: no part shape given")
	}
	n := 1
	for _, dim := range dims {
		if dim <= 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("partio.Run: invalid dimension %d", dim))
		}
		n *= dim
	}
	return backend.Run(ctx, n, driver)
}
