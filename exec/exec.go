// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package exec provides the bigmachine-backed distributed backend for
// partio: one machine per part, with the exchange protocol's
// point-to-point messages carried over bigmachine RPC.
//
// Because Go cannot serialize code to be executed remotely, drivers
// run under this backend must be registered with Register before the
// backend is run, and registration must happen in a deterministic
// order across the driver binary and its workers. Registering
// top-level drivers during package initialization satisfies both:
//
//	var Simulate = exec.Register(func(parts partio.Data[int]) error {
//		...
//	})
//
//	func main() {
//		backend := exec.Bigmachine(bigmachine.Local)
//		if err := partio.Run(ctx, backend, Simulate, 4); err != nil {
//			log.Fatal(err)
//		}
//	}
package exec

import (
	"context"
	"fmt"
	"reflect"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/status"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/bigmachine"
	"github.com/grailbio/partio"
)

// drivers holds the registered drivers in registration order. The
// worker process resolves the index it is asked to run against this
// same list, so registration order must agree between the driver
// binary and its workers.
var (
	drivers     []partio.Driver
	driverIndex = make(map[uintptr]int)
)

// Register registers a driver for distributed execution and returns
// it. Drivers must be registered before the backend runs, in a
// deterministic order; package initialization order is both
// sufficient and encouraged. Registering the same driver twice
// panics.
func Register(driver partio.Driver) partio.Driver {
	ptr := reflect.ValueOf(driver).Pointer()
	if _, ok := driverIndex[ptr]; ok {
		log.Panicf("exec.Register: driver already registered")
	}
	driverIndex[ptr] = len(drivers)
	drivers = append(drivers, driver)
	return driver
}

// An Option configures the bigmachine backend.
type Option func(*backend)

// Params appends bigmachine parameters applied to each machine
// started by the backend.
func Params(params ...bigmachine.Param) Option {
	return func(b *backend) {
		b.params = append(b.params, params...)
	}
}

// Status configures the backend with a status object to which machine
// states are reported.
func Status(s *status.Status) Option {
	return func(b *backend) {
		b.status = s
	}
}

// Bigmachine returns a distributed backend that runs one machine per
// part on the provided bigmachine system. The returned backend may be
// run multiple times, but its runs must not overlap: message
// mailboxes are shared per machine.
func Bigmachine(system bigmachine.System, opts ...Option) partio.Backend {
	b := &backend{system: system}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type backend struct {
	system bigmachine.System
	params []bigmachine.Param
	status *status.Status
}

func (*backend) Name() string { return "bigmachine" }

// Run starts n machines, installs the worker service on each, and
// invokes the registered driver once per machine. The bigmachine is
// shut down when the run completes, on all exit paths.
func (b *backend) Run(ctx context.Context, n int, driver partio.Driver) error {
	if n <= 0 {
		return errors.E(errors.Invalid, "exec.Bigmachine: nonpositive part count")
	}
	index, ok := driverIndex[reflect.ValueOf(driver).Pointer()]
	if !ok {
		return errors.E(errors.NotSupported, "exec.Bigmachine: driver is not registered; see exec.Register")
	}
	bm := bigmachine.Start(b.system)
	defer bm.Shutdown()

	var group *status.Group
	if b.status != nil {
		group = b.status.Group("partio machines")
	}
	params := append([]bigmachine.Param{bigmachine.Services{"Worker": &worker{}}}, b.params...)
	machines, err := bm.Start(ctx, n, params...)
	if err != nil {
		return err
	}
	if len(machines) < n {
		return errors.E(errors.Invalid,
			fmt.Sprintf("exec.Bigmachine: part count %d incompatible with %d available machines", n, len(machines)))
	}
	machines = machines[:n]
	addrs := make([]string, n)
	for i, m := range machines {
		var s *status.Task
		if group != nil {
			s = group.Start()
			s.Title(m.Addr)
			s.Print("waiting for machine to boot")
		}
		<-m.Wait(bigmachine.Running)
		if err := m.Err(); err != nil {
			if s != nil {
				s.Printf("failed to start: %v", err)
				s.Done()
			}
			return err
		}
		if s != nil {
			s.Print("running")
			defer s.Done()
		}
		log.Printf("machine %v is ready", m.Addr)
		addrs[i] = m.Addr
	}
	return traverse.Each(n, func(rank int) error {
		return machines[rank].RetryCall(ctx, "Worker.Run",
			runRequest{Driver: index, Rank: rank, Addrs: addrs}, new(struct{}))
	})
}
