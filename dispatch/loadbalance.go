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

// PipeWriter is the subset of pipe.Pipe that LoadBalance and Distribute
// need on the write side.
type PipeWriter interface {
	CheckWrite() bool
	Write(libmsg.Msg)
	Flush()
}

// LoadBalance sends each logical message to exactly one pipe from an
// ordered list, advancing past pipes that refuse a write, and pins an
// in-progress multipart message to whichever pipe accepted its first
// part (spec §4.8).
type LoadBalance struct {
	pipes   []PipeWriter
	current int
	inParts bool
	cur     PipeWriter
}

// Attach adds p to the outbound set.
func (l *LoadBalance) Attach(p PipeWriter) {
	l.pipes = append(l.pipes, p)
}

// Detach removes p. If p was the pipe an in-progress multipart message
// was pinned to, the pin is cleared; the caller (socket) is responsible
// for deciding whether to drop or resend the remaining parts.
func (l *LoadBalance) Detach(p PipeWriter) {
	for i, q := range l.pipes {
		if q == p {
			l.pipes = append(l.pipes[:i], l.pipes[i+1:]...)
			if l.current > i {
				l.current--
			}
			if l.cur == p {
				l.cur = nil
				l.inParts = false
			}
			return
		}
	}
}

// SendPipe writes msg to one pipe, returning it. Once a multipart
// message has begun, every subsequent part until MORE is unset goes to
// the same pipe regardless of that pipe's CheckWrite state at the time
// (the first part already committed the whole logical message to it).
func (l *LoadBalance) SendPipe(msg libmsg.Msg) (PipeWriter, bool) {
	if l.inParts && l.cur != nil {
		l.cur.Write(msg)
		if !msg.More() {
			l.inParts = false
			cur := l.cur
			l.cur = nil
			return cur, true
		}
		return l.cur, true
	}

	n := len(l.pipes)
	for i := 0; i < n; i++ {
		idx := (l.current + i) % n
		p := l.pipes[idx]
		if !p.CheckWrite() {
			continue
		}
		p.Write(msg)
		l.current = (idx + 1) % n
		if msg.More() {
			l.inParts = true
			l.cur = p
		}
		return p, true
	}
	return nil, false
}

// HasOut reports whether any attached pipe would currently accept a
// write.
func (l *LoadBalance) HasOut() bool {
	if l.inParts {
		return true
	}
	for _, p := range l.pipes {
		if p.CheckWrite() {
			return true
		}
	}
	return false
}
