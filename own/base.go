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

// Package own implements the ownership tree and graceful, linger-aware
// shutdown protocol of spec §4.5: every long-lived core object embeds
// Base, which tracks its children and drives the bottom-up term-ack
// handshake described there.
package own

import (
	"time"

	libmbx "github.com/nabbar/xs/mailbox"
)

// Base is embedded by every long-lived core object (sockets, sessions,
// engines, I/O threads). It implements the bookkeeping half of spec
// §4.5; the embedding type still implements mailbox.Receiver and
// delegates Own/Term/TermAck commands to the methods here.
type Base struct {
	self libmbx.Receiver
	mbx  *libmbx.Mailbox

	parentMbx  *libmbx.Mailbox
	parentDest libmbx.Receiver

	children  []childRef
	extraAcks int
	pending   int

	terminating bool
	terminated  bool
	linger      time.Duration

	onTerminated func()
	reaperMbx    *libmbx.Mailbox
}

type childRef struct {
	mbx  *libmbx.Mailbox
	dest libmbx.Receiver
}

// Init wires Base to the concrete object (self) and the mailbox that
// object drains on its own goroutine. onTerminated, if non-nil, runs
// once this node and every child have fully acknowledged termination —
// the place a socket releases its pipes or a session tears down its
// engine.
func (b *Base) Init(self libmbx.Receiver, mbx *libmbx.Mailbox, onTerminated func()) {
	b.self = self
	b.mbx = mbx
	b.onTerminated = onTerminated
}

// SetParent records where TermReq/TermAck travel to. The root of the
// tree (the Context) is never given a parent.
func (b *Base) SetParent(parentMbx *libmbx.Mailbox, parentDest libmbx.Receiver) {
	b.parentMbx = parentMbx
	b.parentDest = parentDest
}

// SetReaper hands this node to the dedicated reaper thread (spec §4.5:
// "sockets additionally hand themselves to a dedicated reaper thread
// upon close, so the application thread never blocks draining
// commands"). Once set, finalizing this node sends Reaped to the reaper
// in addition to the TermAck sent to any parent.
func (b *Base) SetReaper(reaperMbx *libmbx.Mailbox) {
	b.reaperMbx = reaperMbx
	b.reaperMbx.Send(libmbx.Command{Kind: libmbx.Reap, Obj: b.self})
}

// LaunchChild registers child as owned by this node. The registration
// itself is delivered through this node's own mailbox (an Own command)
// rather than mutated in place, so a caller running on a different
// goroutine than the one draining this node's mailbox still only ever
// mutates Base.children from the single goroutine that owns it (spec
// §4.5: "sends an own command to the parent; acknowledged silently").
func (b *Base) LaunchChild(childMbx *libmbx.Mailbox, childDest libmbx.Receiver) {
	b.mbx.Send(libmbx.Command{Kind: libmbx.Own, Dest: b.self, Obj: childDest, Pipe: childMbx})
}

// RegisterTermAcks adds n to the number of additional term-acks this
// node waits for beyond its children — used by a socket that must wait
// for pipes to drain (spec §4.5).
func (b *Base) RegisterTermAcks(n int) {
	b.extraAcks += n
	if b.terminating {
		b.pending += n
	}
}

// UnregisterTermAck cancels one previously registered extra ack,
// finalizing this node if that was the last one outstanding.
func (b *Base) UnregisterTermAck() {
	if b.extraAcks > 0 {
		b.extraAcks--
	}
	if b.terminating && b.pending > 0 {
		b.pending--
		b.maybeFinalize()
	}
}

// Terminate asks this node's own mailbox to begin the term handshake
// (spec §4.5 "terminate() — sends a term-req to the parent"; adapted so
// a node can also terminate itself directly without a request round
// trip when it has no parent, e.g. the Context root).
func (b *Base) Terminate(linger time.Duration) {
	if b.parentMbx != nil {
		b.parentMbx.Send(libmbx.Command{Kind: libmbx.TermReq, Dest: b.parentDest, Obj: b.self, Linger: linger})
		return
	}
	b.mbx.Send(libmbx.Command{Kind: libmbx.Term, Dest: b.self, Linger: linger})
}

// HandleTermReq implements a parent's reaction to a child's TermReq: it
// forwards a Term command to that child (spec §4.5: "on receiving
// term-req, a parent sends term(linger) to the target").
func (b *Base) HandleTermReq(childMbx *libmbx.Mailbox, childDest libmbx.Receiver, linger time.Duration) {
	childMbx.Send(libmbx.Command{Kind: libmbx.Term, Dest: childDest, Linger: linger})
}

// HandleTerm implements this node's reaction to a Term command: it
// forwards Term to every child, records how many acks it expects, and
// finalizes immediately if there are none (spec §4.5).
func (b *Base) HandleTerm(linger time.Duration) {
	if b.terminating {
		return
	}
	b.terminating = true
	b.linger = linger
	b.pending = len(b.children) + b.extraAcks
	for _, c := range b.children {
		c.mbx.Send(libmbx.Command{Kind: libmbx.Term, Dest: c.dest, Linger: linger})
	}
	b.maybeFinalize()
}

// HandleTermAck implements receipt of one child's TermAck.
func (b *Base) HandleTermAck() {
	if b.pending > 0 {
		b.pending--
	}
	b.maybeFinalize()
}

// HandleOwn implements receipt of this node's own Own command, adding
// the named child to the ownership tree.
func (b *Base) HandleOwn(childMbx *libmbx.Mailbox, childDest libmbx.Receiver) {
	b.children = append(b.children, childRef{mbx: childMbx, dest: childDest})
}

func (b *Base) maybeFinalize() {
	if !b.terminating || b.terminated || b.pending > 0 {
		return
	}
	b.terminated = true
	if b.onTerminated != nil {
		b.onTerminated()
	}
	if b.parentMbx != nil {
		b.parentMbx.Send(libmbx.Command{Kind: libmbx.TermAck, Dest: b.parentDest, Obj: b.self})
	}
	if b.reaperMbx != nil {
		b.reaperMbx.Send(libmbx.Command{Kind: libmbx.Reaped, Obj: b.self})
	}
}

// Terminating reports whether HandleTerm has run on this node.
func (b *Base) Terminating() bool {
	return b.terminating
}

// Terminated reports whether this node has fully finalized (every
// child and every extra ack accounted for).
func (b *Base) Terminated() bool {
	return b.terminated
}

// Linger returns the linger duration passed to the most recent
// HandleTerm call.
func (b *Base) Linger() time.Duration {
	return b.linger
}
