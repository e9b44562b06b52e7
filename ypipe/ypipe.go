/*
 * MIT License
 *
 * Copyright (c) 2024 The xs Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package ypipe implements the lock-free single-producer/single-consumer
// queue described in spec §4.2. One goroutine may call Write/Flush/
// Unwrite; a different single goroutine may call Read; no further
// synchronization between them is required beyond what this package
// does internally with two atomics (the published boundary and the
// reader's sleep flag).
package ypipe

import "sync/atomic"

// node is one element of the writer-built singly linked list. The next
// pointer is written exactly once, by the writer, before the node is
// ever linked to anything the reader can reach; the reader only follows
// next after observing the node through the atomically-published
// boundary, which gives the required happens-before edge under the Go
// memory model.
type node[T any] struct {
	val  T
	next atomic.Pointer[node[T]]
}

// YPipe is one unidirectional SPSC queue of T.
type YPipe[T any] struct {
	// writer-private.
	tail          *node[T]
	pending       []*node[T]
	beforePending *node[T]

	// shared between writer and reader.
	published atomic.Pointer[node[T]]
	asleep    atomic.Bool

	// reader-private.
	cur *node[T]
}

// New returns an empty YPipe.
func New[T any]() *YPipe[T] {
	dummy := &node[T]{}
	y := &YPipe[T]{tail: dummy, cur: dummy}
	y.published.Store(dummy)
	return y
}

// Write enqueues v into the writer's private, unflushed tail. incomplete
// carries no meaning inside YPipe itself: it exists so the pipe layer
// (spec §4.3) can express "this is a non-final part of a multipart
// message" at the call site, matching spec §4.2's signature; whether
// and when the pending run becomes visible to the reader is decided
// entirely by Flush.
func (y *YPipe[T]) Write(v T, incomplete bool) {
	_ = incomplete
	if len(y.pending) == 0 {
		y.beforePending = y.tail
	}
	n := &node[T]{val: v}
	y.tail.next.Store(n)
	y.tail = n
	y.pending = append(y.pending, n)
}

// Flush publishes every value written since the last Flush so the
// reader can observe it. It returns true if the reader was not asleep
// at the time of the call (no explicit wake needed) and false if the
// reader had fallen asleep on an earlier empty Read (the caller is then
// responsible for delivering an out-of-band wake, per spec §4.2 — the
// pipe layer does this with an activate-read command).
func (y *YPipe[T]) Flush() bool {
	if len(y.pending) > 0 {
		y.published.Store(y.tail)
		y.pending = y.pending[:0]
	}
	return !y.asleep.Load()
}

// Read pops the next published value into *out. It returns false when
// nothing has been published beyond the reader's current position, in
// which case the reader is marked asleep so a subsequent Flush reports
// it needs waking.
func (y *YPipe[T]) Read(out *T) bool {
	pub := y.published.Load()
	if y.cur == pub {
		y.asleep.Store(true)
		return false
	}
	n := y.cur.next.Load()
	*out = n.val
	y.cur = n
	y.asleep.Store(false)
	return true
}

// Unwrite atomically takes back the most recent not-yet-flushed write,
// if one exists, returning it along with true. It returns false, with
// the zero value of T, when there is nothing unflushed left to take
// back (the pipe layer uses this to cancel a partially sent multipart
// envelope, spec §4.2/§4.3).
func (y *YPipe[T]) Unwrite() (T, bool) {
	var zero T
	if len(y.pending) == 0 {
		return zero, false
	}
	n := y.pending[len(y.pending)-1]
	y.pending = y.pending[:len(y.pending)-1]
	if len(y.pending) == 0 {
		y.tail = y.beforePending
	} else {
		y.tail = y.pending[len(y.pending)-1]
	}
	y.tail.next.Store(nil)
	return n.val, true
}
