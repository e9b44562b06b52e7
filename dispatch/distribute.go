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

package dispatch

import libmsg "github.com/nabbar/xs/message"

// Distribute implements PUB-style fan-out over three nested partitions
// of its pipe set (spec §4.8): *matching* (the pipes a given message's
// topic resolves to) is a subset of *active* (pipes currently taking
// writes), which is a subset of *eligible* (every pipe attached to this
// socket, including ones temporarily knocked out of active by a
// refused write, and ones attached mid-multipart that must wait for a
// message boundary before they can receive anything).
type Distribute struct {
	active    []PipeWriter
	pending   []PipeWriter // eligible, but knocked out of active by a refusal
	newcomers []PipeWriter // eligible only; attached while a message was in flight

	inParts bool
	curSet  []PipeWriter // the matching subset frozen for the in-progress message
}

// Attach adds p to the eligible set. If a multipart message is
// currently being distributed, p lands in the newcomers partition and
// only becomes active at the next message boundary, so it can never
// receive a non-initial part of a message it missed the start of
// (spec §4.8).
func (d *Distribute) Attach(p PipeWriter) {
	if d.inParts {
		d.newcomers = append(d.newcomers, p)
		return
	}
	d.active = append(d.active, p)
}

// Detach removes p from every partition it might be in.
func (d *Distribute) Detach(p PipeWriter) {
	d.active = removeFrom(d.active, p)
	d.pending = removeFrom(d.pending, p)
	d.newcomers = removeFrom(d.newcomers, p)
	d.curSet = removeFrom(d.curSet, p)
}

// Resume moves p from pending back into active, called when an
// activate-write command reports the peer has drained enough to accept
// writes again.
func (d *Distribute) Resume(p PipeWriter) {
	for i, q := range d.pending {
		if q == p {
			d.pending = append(d.pending[:i], d.pending[i+1:]...)
			d.active = append(d.active, p)
			return
		}
	}
}

func removeFrom(set []PipeWriter, p PipeWriter) []PipeWriter {
	for i, q := range set {
		if q == p {
			return append(set[:i], set[i+1:]...)
		}
	}
	return set
}

// SendToMatching fans msg out to every active pipe for which isMatch
// returns true. isMatch is only consulted for the first part of a
// logical message; later parts reuse the frozen subset so a topic
// change mid-multipart (which cannot happen through the public API,
// but would be a logic error if it did) cannot split one logical
// message across different recipient sets.
//
// The shared buffer's refcount is raised by len(matching)-1 before the
// fanout loop so every recipient gets its own reference without a
// memcopy (spec §4.1/§4.8); a pipe that refuses the write gives its
// reserved reference back via RmRef and is demoted out of active into
// pending. SendToMatching returns the number of pipes that accepted
// the write.
func (d *Distribute) SendToMatching(msg libmsg.Msg, isMatch func(PipeWriter) bool) int {
	if !d.inParts {
		d.curSet = d.curSet[:0]
		for _, p := range d.active {
			if isMatch(p) {
				d.curSet = append(d.curSet, p)
			}
		}
	}

	matching := d.curSet
	if len(matching) > 1 {
		msg.AddRef(len(matching) - 1)
	}

	sent := 0
	surviving := matching[:0]
	for _, p := range matching {
		if !p.CheckWrite() {
			if len(matching) > 1 {
				msg.RmRef(1)
			}
			d.active = removeFrom(d.active, p)
			d.pending = append(d.pending, p)
			continue
		}
		p.Write(msg)
		p.Flush()
		sent++
		surviving = append(surviving, p)
	}
	d.curSet = surviving

	if msg.More() {
		d.inParts = true
	} else {
		d.inParts = false
		if len(d.newcomers) > 0 {
			d.active = append(d.active, d.newcomers...)
			d.newcomers = nil
		}
	}
	return sent
}

// HasMatching reports whether any active pipe currently matches
// isMatch, used by PUB to decide whether a send would be a guaranteed
// no-op drop (spec §4.9: "PUB ... drops when no matches").
func (d *Distribute) HasMatching(isMatch func(PipeWriter) bool) bool {
	for _, p := range d.active {
		if isMatch(p) {
			return true
		}
	}
	return false
}
