// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestChanTransport(t *testing.T) {
	hub := newChanHub(2)
	t0 := &chanTransport{hub: hub, rank: 0}
	t1 := &chanTransport{hub: hub, rank: 1}
	if got, want := t0.Rank(), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := t1.Size(), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	ctx := context.Background()
	snd := t0.Isend(1, 0, []byte("hello"))
	rcv := t1.Irecv(0, 0)
	if err := rcv.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if got, want := rcv.Data(), []byte("hello"); !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if err := snd.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if !snd.Poll() || !rcv.Poll() {
		t.Error("completed operations should poll true")
	}
}

// TestChanTransportTags verifies that messages are matched by (sender,
// tag), independently of posting order.
func TestChanTransportTags(t *testing.T) {
	hub := newChanHub(2)
	t0 := &chanTransport{hub: hub, rank: 0}
	t1 := &chanTransport{hub: hub, rank: 1}
	ctx := context.Background()
	// Receive tag 1 before tag 0 is even sent.
	rcv1 := t1.Irecv(0, 1)
	t0.Isend(1, 1, []byte("one"))
	t0.Isend(1, 0, []byte("zero"))
	rcv0 := t1.Irecv(0, 0)
	if err := rcv1.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if err := rcv0.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if got, want := rcv1.Data(), []byte("one"); !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := rcv0.Data(), []byte("zero"); !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestChanTransportSelf(t *testing.T) {
	hub := newChanHub(1)
	tp := &chanTransport{hub: hub, rank: 0}
	ctx := context.Background()
	tp.Isend(0, 7, []byte("self"))
	rcv := tp.Irecv(0, 7)
	if err := rcv.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if got, want := rcv.Data(), []byte("self"); !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestChanTransportPending verifies that an unmatched receive neither
// completes nor blocks its poster.
func TestChanTransportPending(t *testing.T) {
	hub := newChanHub(2)
	t1 := &chanTransport{hub: hub, rank: 1}
	rcv := t1.Irecv(0, 0)
	if rcv.Poll() {
		t.Error("unmatched receive polled true")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rcv.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("got %v, want %v", err, context.DeadlineExceeded)
	}
}
