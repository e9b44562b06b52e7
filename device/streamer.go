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

package device

import (
	libsock "github.com/nabbar/xs/socket"
)

// Streamer relays every message a PULL frontend receives to a PUSH
// backend, fanning work items from many producers out to whichever
// backend peer the PUSH side's load-balancer picks next (spec §4.10).
type Streamer struct {
	runner
}

// NewStreamer builds a Streamer over an already-bound PULL frontend and
// an already-bound-or-connected PUSH backend. It does not start relaying
// until Run is called.
func NewStreamer(frontend *libsock.Pull, backend *libsock.Push) *Streamer {
	return &Streamer{runner: newRunner(frontend, backend)}
}

// Run starts the relay goroutine. Calling Run more than once starts a
// second, redundant relay and is a caller error.
func (d *Streamer) Run() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		relay(d.front, d.back, d.errs)
	}()
}
