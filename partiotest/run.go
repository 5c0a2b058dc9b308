// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package partiotest provides utilities for testing partio drivers.
// The utilities here run drivers across the in-process backends so
// that a single test exercises both the simulated and the concurrent
// communication paths.
package partiotest

import (
	"context"
	"testing"

	"github.com/grailbio/partio"
)

// Backends returns the in-process backends under their diagnostic
// names: the simulated backend and the goroutine-per-part backend.
// The bigmachine backend is excluded; it requires driver registration
// and is tested in package exec.
func Backends() map[string]partio.Backend {
	return map[string]partio.Backend{
		"seq":  partio.Seq(),
		"proc": partio.Proc(),
	}
}

// Run runs driver with the given part shape on every backend returned
// by Backends, as subtests named by backend. Errors are reported as
// fatal to t.
func Run(t *testing.T, driver partio.Driver, dims ...int) {
	t.Helper()
	for name, backend := range Backends() {
		backend := backend
		t.Run(name, func(t *testing.T) {
			if err := partio.Run(context.Background(), backend, driver, dims...); err != nil {
				t.Fatal(err)
			}
		})
	}
}
