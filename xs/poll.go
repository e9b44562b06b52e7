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

package xs

import (
	"time"

	liberr "github.com/nabbar/xs/errors"
)

// PollEvent is a bitmask of the readiness conditions Poll watches for,
// matching spec §6's ZMQ_POLLIN/ZMQ_POLLOUT.
type PollEvent uint8

const (
	PollIn PollEvent = 1 << iota
	PollOut
)

// PollItem pairs a Socket with the events a Poll call should watch on
// it. Revents is filled in by Poll with whichever of Events were
// actually ready.
type PollItem struct {
	Socket  *Socket
	Events  PollEvent
	Revents PollEvent
}

// pollInterval bounds how long Poll can block past a ready condition
// becoming true; sockets expose readiness through HasIn/HasOut rather
// than a signal Poll can select on directly, so Poll re-checks on this
// cadence instead (spec §6's zmq_poll, adapted to this port's polling
// primitive).
const pollInterval = time.Millisecond

// Poll implements spec §6's zmq_poll: it blocks until at least one item
// is ready, timeout elapses, or timeout is negative (block
// indefinitely). It returns the number of items with a non-zero
// Revents.
func Poll(items []PollItem, timeout time.Duration) (int, *liberr.Error) {
	var deadline time.Time
	hasDeadline := timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	for {
		n := 0
		for i := range items {
			it := &items[i]
			it.Revents = 0
			if it.Socket == nil {
				continue
			}
			if it.Events&PollIn != 0 && it.Socket.impl.HasIn() {
				it.Revents |= PollIn
			}
			if it.Events&PollOut != 0 && it.Socket.impl.HasOut() {
				it.Revents |= PollOut
			}
			if it.Revents != 0 {
				n++
			}
		}
		if n > 0 {
			return n, nil
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(pollInterval)
	}
}
