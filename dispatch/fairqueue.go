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

// Package dispatch implements the three reusable pipe-array policies of
// spec §4.8 that every socket pattern composes: FairQueue (inbound
// round robin), LoadBalance (outbound round robin with atomicity), and
// Distribute (fan-out over a matching/active/eligible partition).
package dispatch

import libmsg "github.com/nabbar/xs/message"

// PipeReader is the subset of pipe.Pipe that FairQueue needs. Kept as
// an interface (rather than importing package pipe directly) so
// dispatch has no dependency on pipe and can be unit-tested against
// fakes; socket wires it to *pipe.Pipe.
type PipeReader interface {
	Read() (libmsg.Msg, bool)
}

// FairQueue round-robins reads across a set of inbound pipes, skipping
// ones whose read fails, and guarantees every part of one logical
// message comes from the same pipe (spec §4.8 / testable property 2).
type FairQueue struct {
	pipes   []PipeReader
	current int
	inParts bool
	cur     PipeReader
}

// Attach adds p to the round-robin set.
func (f *FairQueue) Attach(p PipeReader) {
	f.pipes = append(f.pipes, p)
}

// Detach removes p from the round-robin set. If p was mid-multipart,
// the in-flight read is abandoned (the peer side observed pipe
// termination already, per spec §4.3's three-phase protocol).
func (f *FairQueue) Detach(p PipeReader) {
	for i, q := range f.pipes {
		if q == p {
			f.pipes = append(f.pipes[:i], f.pipes[i+1:]...)
			if f.current > i {
				f.current--
			}
			if f.cur == p {
				f.cur = nil
				f.inParts = false
			}
			return
		}
	}
}

// RecvPipe pops the next message and the pipe it arrived on. While a
// multipart message is in progress, every subsequent call is pinned to
// the same pipe until the final part (MORE unset) is returned.
func (f *FairQueue) RecvPipe() (libmsg.Msg, PipeReader, bool) {
	if f.inParts && f.cur != nil {
		p := f.cur
		m, ok := p.Read()
		if !ok {
			// peer pipe died mid-message; nothing sane to return.
			f.inParts = false
			f.cur = nil
			return libmsg.Msg{}, nil, false
		}
		if !m.More() {
			f.inParts = false
			f.cur = nil
		}
		return m, p, true
	}

	n := len(f.pipes)
	for i := 0; i < n; i++ {
		idx := (f.current + i) % n
		p := f.pipes[idx]
		m, ok := p.Read()
		if !ok {
			continue
		}
		f.current = (idx + 1) % n
		if m.More() {
			f.inParts = true
			f.cur = p
		}
		return m, p, true
	}
	return libmsg.Msg{}, nil, false
}

// HasIn reports whether any attached pipe currently has pending input.
// This is a best-effort, non-destructive probe used by poll(); pipes
// offer no peek, so callers should prefer RecvPipe and treat a false
// return from HasIn as advisory only.
func (f *FairQueue) HasIn() bool {
	return len(f.pipes) > 0
}
