// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
Package partio implements a backend-agnostic partitioned-data
abstraction for parallel numerical algorithms. Users write SPMD-style
drivers against distributed containers ("data split across parts") and
run them unchanged on different execution substrates: a simulated
backend that holds every part in a single sequential context (for
development and debugging), a goroutine-per-part backend communicating
over in-process channels, and a bigmachine-backed backend that runs one
process per part (see package github.com/grailbio/partio/exec).

A driver receives the distributed container of part ids and builds
everything else from two layers: the local layer (Map and friends,
which apply a function to each part's value independently and never
communicate) and the communication layer (point-to-point neighbor
exchange, from which the gather/scatter/broadcast/reduce/assemble
collectives are composed). Non-blocking operations return per-part
task handles (package github.com/grailbio/partio/task); buffers handed
to an in-flight exchange are owned by it until its handle completes,
and are recovered from the completed handle.

Drivers are written once and must issue collective operations in the
same order on every part; communication graphs are the caller's
responsibility, and a mismatched graph deadlocks rather than failing,
as in other message-passing systems. Payload types cross process
boundaries gob-encoded and must therefore be gob-encodable when using
a multi-process backend.
*/
package partio
