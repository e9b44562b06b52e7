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

// Queue relays in both directions between a ROUTER frontend and a
// DEALER backend (spec §4.10): a request arriving on the frontend
// carries the client's identity as its leading frame, which passes
// through to the backend's workers unchanged; a worker's reply carries
// that same identity as its own leading frame, which the frontend's
// ROUTER.Send consumes to pick the right client pipe. This is the
// classic load-balancing broker topology — many clients, many workers,
// neither aware of the other's identity scheme directly.
type Queue struct {
	runner
}

// NewQueue builds a Queue over an already-bound ROUTER frontend and an
// already-bound-or-connected DEALER backend.
func NewQueue(frontend *libsock.Router, backend *libsock.Dealer) *Queue {
	return &Queue{runner: newRunner(frontend, backend)}
}

// Run starts both relay directions, one goroutine each.
func (d *Queue) Run() {
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		relay(d.front, d.back, d.errs)
	}()
	go func() {
		defer d.wg.Done()
		relay(d.back, d.front, d.errs)
	}()
}
