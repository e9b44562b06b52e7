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

package pipe

import (
	"time"

	libmbx "github.com/nabbar/xs/mailbox"
)

// Terminate starts the three-phase shutdown protocol of spec §4.3. When
// linger is non-zero and outgoing messages are still outstanding, the
// PipeTerm send is deferred until CheckLinger observes either an empty
// queue or the linger deadline; otherwise PipeTerm is sent immediately.
//
// Per the open question in spec §9, an inproc pipe with linger==0
// discards whatever is still queued in the peer and unread, rather than
// keeping it: this makes inproc and networked transports behave
// identically under XS_LINGER=0 (see DESIGN.md).
func (p *Pipe) Terminate(linger time.Duration) {
	if p.terminating {
		return
	}
	p.terminating = true

	if linger > 0 && p.Outstanding() > 0 {
		p.hasLinger = true
		p.lingerDeadline = time.Now().Add(linger)
		return
	}
	p.sendPipeTerm()
}

// CheckLinger re-evaluates a deferred Terminate, sending PipeTerm once
// the outbound queue has drained or the linger deadline has elapsed. It
// returns true if PipeTerm was (newly) sent. Callers with a linger
// timer (the owning socket or its reactor) should call this after every
// ActivateWrite and on timer expiry.
func (p *Pipe) CheckLinger() bool {
	if !p.terminating || p.termSent || !p.hasLinger {
		return false
	}
	if p.Outstanding() == 0 || time.Now().After(p.lingerDeadline) {
		p.sendPipeTerm()
		return true
	}
	return false
}

func (p *Pipe) sendPipeTerm() {
	if p.termSent {
		return
	}
	p.termSent = true
	p.notifyPeer(libmbx.PipeTerm, 0)
}

// IsTerminating reports whether Terminate has been called on this end.
func (p *Pipe) IsTerminating() bool {
	return p.terminating
}

// IsReleased reports whether this end has received the peer's
// PipeTermAck and may drop its YPipe storage.
func (p *Pipe) IsReleased() bool {
	return p.released
}

// OnPipeTerm handles receipt of a peer's PipeTerm command (phase 2):
// this end also marks itself terminating and replies with
// PipeTermAck at once. Whether messages still queued on this end get
// delivered is up to the owning socket — pipe itself does not inspect
// message content, only counts.
func (p *Pipe) OnPipeTerm() {
	p.terminating = true
	p.notifyPeer(libmbx.PipeTermAck, 0)
}

// OnPipeTermAck handles receipt of the peer's PipeTermAck (phase 3):
// this end releases its YPipe storage. The owning socket should remove
// the pipe from any active dispatch structures once this returns.
func (p *Pipe) OnPipeTermAck() {
	p.released = true
	p.out = nil
	p.in = nil
}
