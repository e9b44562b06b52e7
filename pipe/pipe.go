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

// Package pipe implements the bounded, back-pressured, termination-aware
// half-duplex link of spec §4.3: one Pipe is half of a pair built atop
// two ypipe.YPipe queues, bounded by a high-water mark and torn down
// through the three-phase protocol spec §4.3 describes.
package pipe

import (
	"time"

	libmbx "github.com/nabbar/xs/mailbox"
	libmet "github.com/nabbar/xs/metrics"
	libmsg "github.com/nabbar/xs/message"
	libyp "github.com/nabbar/xs/ypipe"
)

// defaultHWM is used when a socket does not set the HWM option.
const defaultHWM = 1000

// Pipe is one end of a bidirectional link. Exactly one goroutine may
// call the writer-facing methods (CheckWrite/Write/Flush/Rollback) and
// exactly one — possibly a different one — may call Read, matching
// spec §4.3's "at most one writer thread and one reader thread touch a
// given pipe".
type Pipe struct {
	out *libyp.YPipe[libmsg.Msg] // this end writes here, peer reads it
	in  *libyp.YPipe[libmsg.Msg] // this end reads here, peer writes it

	hwm uint64
	lwm uint64

	written     uint64
	peerReadAck uint64

	readCount  uint64
	lastLwmAck uint64

	owner    libmbx.Receiver
	peerMbx  *libmbx.Mailbox
	peerDest libmbx.Receiver
	peer     *Pipe

	identity []byte
	subs     map[string]struct{}

	terminating       bool
	termSent          bool
	released          bool
	delayOnClose      bool
	delayOnDisconnect bool
	lingerDeadline    time.Time
	hasLinger         bool
}

// NewPair builds the two Pipe ends of spec §4.3's pipepair primitive,
// cross-linking their YPipes so writes on one side appear as reads on
// the other. hwm of 0 means unbounded.
func NewPair(hwm uint64) (a, b *Pipe) {
	ab := libyp.New[libmsg.Msg]()
	ba := libyp.New[libmsg.Msg]()
	lwm := lowWaterMark(hwm)
	a = &Pipe{out: ab, in: ba, hwm: hwm, lwm: lwm}
	b = &Pipe{out: ba, in: ab, hwm: hwm, lwm: lwm}
	a.peer, b.peer = b, a
	// Each reader starts asleep, as if it had already found its queue
	// empty, so the first Flush on either side sends ActivateRead: an
	// owner that reads only when woken (a transport session, PUB reading
	// subscriptions) would otherwise never see the first message.
	var none libmsg.Msg
	ab.Read(&none)
	ba.Read(&none)
	return a, b
}

// lowWaterMark derives the LWM from the HWM per spec §8 property 3:
// resumption after at least ceil(HWM/2) messages are consumed.
func lowWaterMark(hwm uint64) uint64 {
	if hwm == 0 {
		return 0
	}
	return (hwm + 1) / 2
}

// Attach records the owner of this Pipe end and the mailbox/Receiver of
// the object owning the peer end — the information a socket learns only
// once the pipe has been handed to it via a Bind command (spec §4.3:
// "attached to two owners ... transmitted into those owners via bind
// commands").
func (p *Pipe) Attach(owner libmbx.Receiver, peerMbx *libmbx.Mailbox, peerDest libmbx.Receiver) {
	p.owner = owner
	p.peerMbx = peerMbx
	p.peerDest = peerDest
}

// SetDelay configures whether pending outgoing messages defer
// termination on close/disconnect (spec §4.3).
func (p *Pipe) SetDelay(onClose, onDisconnect bool) {
	p.delayOnClose = onClose
	p.delayOnDisconnect = onDisconnect
}

// Identity returns the peer-addressing blob negotiated at attach time
// (spec §3/§4.9), or nil if none was set.
func (p *Pipe) Identity() []byte {
	return p.identity
}

// SetIdentity stores the peer-addressing blob for this pipe.
func (p *Pipe) SetIdentity(id []byte) {
	p.identity = append([]byte(nil), id...)
}

// Subscriptions returns the set of topic prefixes this pipe's peer has
// asked to receive, used by PUB's distribute-to-matching logic (§4.8).
func (p *Pipe) Subscriptions() map[string]struct{} {
	return p.subs
}

// Subscribe adds a topic prefix to this pipe's subscription set.
func (p *Pipe) Subscribe(topic string) {
	if p.subs == nil {
		p.subs = make(map[string]struct{})
	}
	p.subs[topic] = struct{}{}
}

// Unsubscribe removes a topic prefix from this pipe's subscription set.
func (p *Pipe) Unsubscribe(topic string) {
	delete(p.subs, topic)
}

// Outstanding returns the number of messages written but not yet
// acknowledged as read by the peer — the quantity spec §4.3's HWM
// policy bounds.
func (p *Pipe) Outstanding() uint64 {
	if p.written <= p.peerReadAck {
		return 0
	}
	return p.written - p.peerReadAck
}

// CheckWrite reports whether a write would not overflow the HWM and the
// pipe is not terminating (spec §4.3).
func (p *Pipe) CheckWrite() bool {
	if p.terminating {
		return false
	}
	if p.hwm == 0 {
		return true
	}
	ok := p.Outstanding() < p.hwm
	if !ok {
		libmet.IncHWMRefusal()
	}
	return ok
}

// Write buffers msg. Only the final part of a logical message (More
// unset) is automatically flushed and, if the peer had fallen asleep,
// followed by an ActivateRead command to the peer's mailbox — spec §4.3
// ("only the final part of a logical message is automatically
// flushed"). Callers must have checked CheckWrite first; Write does not
// re-check HWM so a multipart message already in flight cannot be
// split by a late HWM refusal.
func (p *Pipe) Write(msg libmsg.Msg) {
	if p.out == nil {
		return
	}
	p.written++
	p.out.Write(msg, msg.More())
	libmet.ObservePipeOutstanding(p.Outstanding())
	if !msg.More() {
		p.Flush()
	}
}

// Flush publishes buffered writes. If the peer is asleep, it sends an
// ActivateRead command to the peer owner's mailbox (spec §4.3).
func (p *Pipe) Flush() {
	if p.out == nil {
		return
	}
	if awake := p.out.Flush(); !awake {
		p.notifyPeer(libmbx.ActivateRead, 0)
	}
}

// Read pops the next message, if any. When the local read counter
// crosses the LWM boundary it sends an ActivateWrite command carrying
// the new read count to the peer's mailbox so a writer blocked on HWM
// may resume (spec §4.3).
func (p *Pipe) Read() (libmsg.Msg, bool) {
	if p.in == nil {
		return libmsg.Msg{}, false
	}
	var m libmsg.Msg
	if !p.in.Read(&m) {
		return libmsg.Msg{}, false
	}
	p.readCount++
	if p.readCount-p.lastLwmAck >= p.lwm || p.lwm == 0 {
		p.lastLwmAck = p.readCount
		p.notifyPeer(libmbx.ActivateWrite, p.readCount)
	}
	return m, true
}

// Rollback discards the unflushed write tail, used by REQ/REP to cancel
// a partially sent multipart envelope (spec §4.2/§4.3).
func (p *Pipe) Rollback() {
	if p.out == nil {
		return
	}
	for {
		if _, ok := p.out.Unwrite(); !ok {
			return
		}
		p.written--
	}
}

// Hiccup installs a fresh read-side queue after the underlying
// transport engine reconnects, preserving this Pipe's logical identity
// while discarding whatever was buffered in flight (spec §4.3).
func (p *Pipe) Hiccup(newIn *libyp.YPipe[libmsg.Msg]) {
	p.in = newIn
	p.readCount = 0
	p.lastLwmAck = 0
}

// notifyPeer sends a Command to the peer owner's mailbox. The command
// carries p.peer, not p itself: the peer owner's dispatch structures
// were populated with its own local end of this link (p.peer) at Bind
// time, so a command must identify the pipe by that same reference for
// a type-assert-and-map-lookup on the receiving side to find it. It is
// a no-op before Attach has run (e.g. a freshly created but
// not-yet-bound pipe cannot have anything to notify).
func (p *Pipe) notifyPeer(kind libmbx.Kind, readCount uint64) {
	if p.peerMbx == nil {
		return
	}
	p.peerMbx.Send(libmbx.Command{
		Kind:      kind,
		Dest:      p.peerDest,
		Pipe:      p.peer,
		ReadCount: readCount,
	})
}

// OnActivateWrite applies an ActivateWrite command's read count,
// shrinking Outstanding() so a writer blocked on HWM can resume.
func (p *Pipe) OnActivateWrite(readCount uint64) {
	if readCount > p.peerReadAck {
		p.peerReadAck = readCount
	}
}
