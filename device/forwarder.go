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

// Forwarder relays every message a SUB frontend receives (i.e. every
// message matching its subscription set, which a caller typically sets
// to the empty-string prefix to match everything) to a PUB backend,
// letting many scattered publishers be re-published from one well-known
// address (spec §4.10).
type Forwarder struct {
	runner
}

// NewForwarder builds a Forwarder over an already-connected SUB
// frontend and an already-bound PUB backend.
func NewForwarder(frontend *libsock.Sub, backend *libsock.Pub) *Forwarder {
	return &Forwarder{runner: newRunner(frontend, backend)}
}

// Run starts the relay goroutine.
func (d *Forwarder) Run() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		relay(d.front, d.back, d.errs)
	}()
}
