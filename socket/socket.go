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

// Package socket implements the pattern layer of spec §4.9: each
// exported type combines the dispatch primitives (package dispatch)
// over pipes attached to it, encoding the framing and state-machine
// rules particular to its messaging pattern.
package socket

import (
	"sync"
	"time"

	liberr "github.com/nabbar/xs/errors"
	libmbx "github.com/nabbar/xs/mailbox"
	libmet "github.com/nabbar/xs/metrics"
	libmsg "github.com/nabbar/xs/message"
	libown "github.com/nabbar/xs/own"
	libpipe "github.com/nabbar/xs/pipe"
)

// Type enumerates the messaging patterns of spec §4.9.
type Type uint8

const (
	TypePair Type = iota
	TypePub
	TypeSub
	TypeXPub
	TypeXSub
	TypePush
	TypePull
	TypeReq
	TypeRep
	TypeDealer
	TypeRouter
	TypeSurveyor
	TypeRespondent
	TypeXSurveyor
	TypeXRespondent
)

// String names a Type for log lines and the TYPE socket option.
func (t Type) String() string {
	switch t {
	case TypePair:
		return "PAIR"
	case TypePub:
		return "PUB"
	case TypeSub:
		return "SUB"
	case TypeXPub:
		return "XPUB"
	case TypeXSub:
		return "XSUB"
	case TypePush:
		return "PUSH"
	case TypePull:
		return "PULL"
	case TypeReq:
		return "REQ"
	case TypeRep:
		return "REP"
	case TypeDealer:
		return "DEALER"
	case TypeRouter:
		return "ROUTER"
	case TypeSurveyor:
		return "SURVEYOR"
	case TypeRespondent:
		return "RESPONDENT"
	case TypeXSurveyor:
		return "XSURVEYOR"
	case TypeXRespondent:
		return "XRESPONDENT"
	default:
		return "UNKNOWN"
	}
}

// Options holds the recognized setsockopt/getsockopt values of spec §6
// that are not pattern-specific (HWM, AFFINITY, IDENTITY, LINGER,
// SNDTIMEO, RCVTIMEO). Pattern-specific options (SUBSCRIBE/UNSUBSCRIBE)
// are methods on the owning type instead.
type Options struct {
	HWM      uint64
	Affinity uint64
	Identity []byte
	Linger   time.Duration
	SndTimeo time.Duration
	RcvTimeo time.Duration
}

// Socket is the capability set spec §9 describes as "the pattern
// interface": attach_pipe, send, recv, has_in, has_out,
// read_activated, write_activated, terminated, setsockopt. It is the
// capability every pattern type in this package implements.
type Socket interface {
	libmbx.Receiver
	Type() Type
	AttachPipe(p *libpipe.Pipe)
	Send(msg libmsg.Msg, dontwait bool) *liberr.Error
	Recv(dontwait bool) (libmsg.Msg, *liberr.Error)
	HasIn() bool
	HasOut() bool
	Terminated() bool
	Close(linger time.Duration)
}

// Base is embedded by every pattern type. It owns the socket's mailbox,
// runs the goroutine that drains it (so Bind/ActivateRead/ActivateWrite/
// Term commands are processed even while no application thread is
// inside Send/Recv), and implements the blocking-with-timeout waiting
// rule of spec §5 ("send and recv may suspend in mailbox.recv(timeout);
// they wake on any incoming command").
//
// Concrete patterns provide onCommand to react to pattern-irrelevant
// bookkeeping commands (Bind, Hiccup, PipeTerm/PipeTermAck); Base calls
// wake() after every command it hands to onCommand, so a blocked
// Send/Recv retries immediately instead of waiting out its timeout.
type Base struct {
	libown.Base

	mbx  *libmbx.Mailbox
	opt  Options
	kind Type

	wakeMu sync.Mutex
	wakeCh chan struct{}

	terminated bool

	onCommand func(libmbx.Command)
	onTerm    func(linger time.Duration)
}

// InitBase wires the socket's own mailbox and starts the drain
// goroutine. onCommand receives every command this socket's mailbox
// delivers except Own/Term/TermAck, which Base itself answers. onTerm,
// if non-nil, runs first when a Term command arrives so the concrete
// pattern can call Terminate(linger) on every pipe it holds before
// Base forwards Term down the ownership tree and starts waiting on the
// term-acks those pipes were registered for at Bind time.
func (b *Base) InitBase(self libmbx.Receiver, kind Type, opt Options, onCommand func(libmbx.Command), onTerm func(time.Duration)) error {
	m, err := libmbx.New()
	if err != nil {
		return err
	}
	b.mbx = m
	b.kind = kind
	b.opt = opt
	b.onCommand = onCommand
	b.onTerm = onTerm
	b.wakeCh = make(chan struct{})
	b.Init(self, m, func() { b.terminated = true; b.wake() })
	go b.run()
	return nil
}

// HandleBind attaches a freshly bound/connected pipe, registering one
// extra term-ack this socket waits for before it can finalize (spec
// §4.5: a socket waits for every attached pipe to fully release before
// acknowledging its own Term).
func (b *Base) HandleBind(cmd libmbx.Command, attach func(*libpipe.Pipe)) {
	p, ok := cmd.Pipe.(*libpipe.Pipe)
	if !ok {
		return
	}
	b.RegisterTermAcks(1)
	attach(p)
}

// HandleActivateWrite applies a peer's read-count update to the named
// pipe and re-checks any pending linger-deferred termination.
func (b *Base) HandleActivateWrite(cmd libmbx.Command) *libpipe.Pipe {
	p, ok := cmd.Pipe.(*libpipe.Pipe)
	if !ok {
		return nil
	}
	p.OnActivateWrite(cmd.ReadCount)
	p.CheckLinger()
	return p
}

// HandlePipeTerm answers phase 2 of a peer-initiated pipe teardown
// (spec §4.3): the pipe itself replies with PipeTermAck; the caller
// should stop offering this pipe to LoadBalance/Distribute but may
// still drain buffered reads from it via FairQueue.
func (b *Base) HandlePipeTerm(cmd libmbx.Command) *libpipe.Pipe {
	p, ok := cmd.Pipe.(*libpipe.Pipe)
	if !ok {
		return nil
	}
	p.OnPipeTerm()
	return p
}

// HandlePipeTermAck answers phase 3: the pipe releases its storage and
// is fully detached, and the extra term-ack registered for it at Bind
// time is satisfied.
func (b *Base) HandlePipeTermAck(cmd libmbx.Command, detach func(*libpipe.Pipe)) {
	p, ok := cmd.Pipe.(*libpipe.Pipe)
	if !ok {
		return
	}
	p.OnPipeTermAck()
	detach(p)
	b.UnregisterTermAck()
}

// Mailbox returns this socket's mailbox (Context.RegisterSocket and
// transport engines address commands here).
func (b *Base) Mailbox() *libmbx.Mailbox {
	return b.mbx
}

// Type returns the pattern this socket implements.
func (b *Base) Type() Type {
	return b.kind
}

// Options returns the common option block (HWM, LINGER, timeouts, ...).
func (b *Base) Options() Options {
	return b.opt
}

// SetOption applies one of the common options; pattern-specific options
// (SUBSCRIBE, UNSUBSCRIBE) are handled by the concrete type.
func (b *Base) SetOption(name string, value any) *liberr.Error {
	switch name {
	case "HWM":
		v, ok := value.(uint64)
		if !ok {
			return liberr.New(liberr.InvalidArgument, "HWM expects uint64")
		}
		b.opt.HWM = v
	case "AFFINITY":
		v, ok := value.(uint64)
		if !ok {
			return liberr.New(liberr.InvalidArgument, "AFFINITY expects uint64")
		}
		b.opt.Affinity = v
	case "IDENTITY":
		v, ok := value.([]byte)
		if !ok {
			return liberr.New(liberr.InvalidArgument, "IDENTITY expects []byte")
		}
		b.opt.Identity = append([]byte(nil), v...)
	case "LINGER":
		v, ok := value.(time.Duration)
		if !ok {
			return liberr.New(liberr.InvalidArgument, "LINGER expects time.Duration")
		}
		b.opt.Linger = v
	case "SNDTIMEO":
		v, ok := value.(time.Duration)
		if !ok {
			return liberr.New(liberr.InvalidArgument, "SNDTIMEO expects time.Duration")
		}
		b.opt.SndTimeo = v
	case "RCVTIMEO":
		v, ok := value.(time.Duration)
		if !ok {
			return liberr.New(liberr.InvalidArgument, "RCVTIMEO expects time.Duration")
		}
		b.opt.RcvTimeo = v
	default:
		return liberr.New(liberr.NotSupported, "unrecognized option %q", name)
	}
	return nil
}

// Terminated reports whether this socket has received Term (context
// shutdown or an explicit Close), per spec §6's ETERM semantics.
func (b *Base) Terminated() bool {
	return b.terminated
}

func (b *Base) run() {
	for {
		cmd, ok := b.mbx.Recv(-1)
		if !ok {
			return
		}
		b.ProcessCommand(cmd)
		if b.Terminated() {
			return
		}
	}
}

// ProcessCommand implements mailbox.Receiver, promoted to every
// concrete pattern type that embeds Base. Own/Term/TermAck are
// answered here; everything else (Bind, ActivateRead, ActivateWrite,
// PipeTerm, PipeTermAck) goes to the concrete pattern's onCommand.
func (b *Base) ProcessCommand(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Term:
		if b.onTerm != nil {
			b.onTerm(cmd.Linger)
		}
		b.HandleTerm(cmd.Linger)
		b.wake()
	case libmbx.TermAck:
		b.HandleTermAck()
		b.wake()
	case libmbx.Own:
		b.HandleOwn(cmd.Pipe.(*libmbx.Mailbox), cmd.Obj)
	default:
		if b.onCommand != nil {
			b.onCommand(cmd)
		}
		b.wake()
	}
}

// wake unblocks every goroutine currently parked in waitFor.
func (b *Base) wake() {
	b.wakeMu.Lock()
	close(b.wakeCh)
	b.wakeCh = make(chan struct{})
	b.wakeMu.Unlock()
}

// waitFor blocks until either wake() is called, the deadline (zero
// means no deadline) elapses, or the socket terminates. It returns
// false only on timeout; termination still returns true so the caller
// re-checks its condition and observes Terminated() itself (spec §6:
// ETERM must be observed at the API boundary, not swallowed here).
func (b *Base) waitFor(deadline time.Time) bool {
	b.wakeMu.Lock()
	ch := b.wakeCh
	b.wakeMu.Unlock()

	if deadline.IsZero() {
		<-ch
		return true
	}
	d := time.Until(deadline)
	if d <= 0 {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}

// BlockingOp runs try in a loop until it succeeds, the socket
// terminates, dontwait is set and try first fails, or RCVTIMEO/SNDTIMEO
// (whichever timeout applies) elapses. try should attempt the
// operation once and report ok=true on success.
func (b *Base) BlockingOp(dontwait bool, timeout time.Duration, try func() (ok bool)) *liberr.Error {
	if b.Terminated() {
		return liberr.New(liberr.Terminated, "socket terminated")
	}
	if try() {
		return nil
	}
	if dontwait {
		libmet.IncSocketBlocked("would-block")
		return liberr.New(liberr.WouldBlock, "operation would block")
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if !b.waitFor(deadline) {
			libmet.IncSocketBlocked("timeout")
			return liberr.New(liberr.Timeout, "timed out waiting for socket")
		}
		if b.Terminated() {
			return liberr.New(liberr.Terminated, "socket terminated")
		}
		if try() {
			return nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			libmet.IncSocketBlocked("timeout")
			return liberr.New(liberr.Timeout, "timed out waiting for socket")
		}
	}
}
