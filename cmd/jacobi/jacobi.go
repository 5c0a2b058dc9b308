// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Jacobi is a partio demo program that solves a 1-D Laplace problem
// by Jacobi iteration. The domain is split into one chunk per part;
// each sweep exchanges halo values with the ring neighbors, updates
// the chunk, and periodically reduces the global residual to decide
// convergence. The same driver runs on the simulated backend, the
// goroutine backend, and local bigmachine processes:
//
//	jacobi -backend=proc -parts=8
//
// The driver's problem size is compiled in: bigmachine workers are
// fresh processes that do not see the leader's flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
	"github.com/grailbio/bigmachine"
	"github.com/grailbio/partio"
	"github.com/grailbio/partio/exec"
	"gonum.org/v1/gonum/floats"
)

const (
	cells     = 16    // interior points per part
	maxIter   = 50000 // sweep limit
	tolerance = 1e-6  // residual threshold
	report    = 100   // sweeps between residual reductions
)

type chunk struct {
	u []float64 // cell values, halos excluded
}

var jacobi = exec.Register(func(parts partio.Data[int]) error {
	ctx := context.Background()
	n := parts.NumParts()

	// Interior parts exchange halos with both ring neighbors; the
	// first and last see the fixed boundary values instead.
	graph := partio.Map(func(part int) []int {
		var ids []int
		if part > 1 {
			ids = append(ids, part-1)
		}
		if part < n {
			ids = append(ids, part+1)
		}
		return ids
	}, parts)

	chunks := partio.Map(func(part int) *chunk {
		return &chunk{u: make([]float64, cells)}
	}, parts)

	for iter := 0; iter < maxIter; iter++ {
		// Ship the chunk edges to the neighbors.
		snd := partio.Map2(func(part int, c *chunk) []float64 {
			var edges []float64
			if part > 1 {
				edges = append(edges, c.u[0])
			}
			if part < n {
				edges = append(edges, c.u[cells-1])
			}
			return edges
		}, parts, chunks)
		halos, err := partio.Exchange[float64](ctx, snd, graph, graph)
		if err != nil {
			return err
		}

		type sweep struct {
			c     *chunk
			halos []float64
		}
		sweeps := partio.Map2(func(c *chunk, h []float64) sweep {
			return sweep{c, h}
		}, chunks, halos)
		deltas := partio.MapParts(func(part int, s sweep) float64 {
			left, right := 0.0, 1.0 // global boundary conditions
			h := s.halos
			if part > 1 {
				left, h = h[0], h[1:]
			}
			if part < n {
				right = h[0]
			}
			next := make([]float64, cells)
			for i := range next {
				l, r := left, right
				if i > 0 {
					l = s.c.u[i-1]
				}
				if i < cells-1 {
					r = s.c.u[i+1]
				}
				next[i] = 0.5 * (l + r)
			}
			d := floats.Distance(s.c.u, next, 2)
			copy(s.c.u, next)
			return d * d
		}, sweeps)

		if (iter+1)%report != 0 {
			continue
		}
		sum, err := partio.Reduce(ctx, func(a, b float64) float64 { return a + b }, deltas, 0)
		if err != nil {
			return err
		}
		resid := math.Sqrt(sum)
		partio.Map2(func(isMaster bool, _ int) struct{} {
			if isMaster {
				log.Printf("sweep %d: residual %g", iter+1, resid)
			}
			return struct{}{}
		}, partio.IAmMaster[int](parts), parts)
		if resid < tolerance {
			return nil
		}
	}
	return fmt.Errorf("jacobi: no convergence after %d sweeps", maxIter)
})

func main() {
	var (
		backendFlag = flag.String("backend", "seq", "execution backend: seq, proc, or bigmachine")
		partsFlag   = flag.Int("parts", 4, "number of parts")
	)
	log.AddFlags()
	flag.Parse()
	must.True(*partsFlag > 0, "parts must be positive")
	var backend partio.Backend
	switch *backendFlag {
	case "seq":
		backend = partio.Seq()
	case "proc":
		backend = partio.Proc()
	case "bigmachine":
		backend = exec.Bigmachine(bigmachine.Local)
	default:
		log.Fatalf("unknown backend %q", *backendFlag)
	}
	if err := partio.Run(context.Background(), backend, jacobi, *partsFlag); err != nil {
		log.Fatal(err)
	}
}
