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

package socket

import (
	"time"

	"github.com/google/uuid"

	libdisp "github.com/nabbar/xs/dispatch"
	liberr "github.com/nabbar/xs/errors"
	libmbx "github.com/nabbar/xs/mailbox"
	libmsg "github.com/nabbar/xs/message"
	libpipe "github.com/nabbar/xs/pipe"
)

// Dealer is the async, identity-less half of the extended request
// pattern (spec §4.9): Send round-robins over attached peers and Recv
// fair-queues replies, with no pinning between the two — unlike REQ, a
// DEALER may have many requests in flight at once and takes on the
// responsibility of correlating replies itself (by embedding a
// correlation id in the message body).
type Dealer struct {
	Base
	lb    libdisp.LoadBalance
	fq    libdisp.FairQueue
	pipes map[*libpipe.Pipe]struct{}
}

// NewDealer constructs an unconnected DEALER socket.
func NewDealer(opt Options) (*Dealer, error) {
	s := &Dealer{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypeDealer, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Dealer) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.lb.Attach(p)
	s.fq.Attach(p)
}

func (s *Dealer) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.pipes[p] = struct{}{}
			s.lb.Attach(p)
			s.fq.Attach(p)
		})
	case libmbx.ActivateWrite:
		s.HandleActivateWrite(cmd)
	case libmbx.PipeTerm:
		if p := s.HandlePipeTerm(cmd); p != nil {
			s.lb.Detach(p)
			s.fq.Detach(p)
		}
	case libmbx.PipeTermAck:
		s.HandlePipeTermAck(cmd, func(p *libpipe.Pipe) {
			delete(s.pipes, p)
			s.lb.Detach(p)
			s.fq.Detach(p)
		})
	}
}

func (s *Dealer) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

func (s *Dealer) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		_, ok := s.lb.SendPipe(msg)
		return ok
	})
}

func (s *Dealer) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
	var out libmsg.Msg
	ferr := s.BlockingOp(dontwait, s.Options().RcvTimeo, func() bool {
		m, _, ok := s.fq.RecvPipe()
		if !ok {
			return false
		}
		out = m
		return true
	})
	return out, ferr
}

func (s *Dealer) HasIn() bool { return s.fq.HasIn() }

func (s *Dealer) HasOut() bool { return s.lb.HasOut() }

func (s *Dealer) Close(linger time.Duration) { s.Terminate(linger) }

// Router is the identity-addressed half of the extended request
// pattern: every attached pipe without an identity is assigned a
// generated UUID (a peer's own IDENTITY option is not carried to the
// pipe, so it plays no part here), Recv prepends that identity as an
// envelope frame
// ahead of the peer's message, and Send consumes a leading identity
// frame to pick which pipe to route the rest of the message to.
//
// Per the open question in spec §9, a Send naming an identity this
// router has no pipe for is a malformed-envelope condition: rather
// than silently dropping it, Router reports InvalidArgument so the
// caller's bug surfaces immediately instead of vanishing as a routing
// no-op (see DESIGN.md).
type Router struct {
	Base
	fq       libdisp.FairQueue
	pipes map[*libpipe.Pipe]struct{}
	byID  map[string]*libpipe.Pipe

	midSend bool
	sendTo  *libpipe.Pipe

	inBody          bool
	havePendingBody bool
	pendingBody     libmsg.Msg
}

// NewRouter constructs an unconnected ROUTER socket.
func NewRouter(opt Options) (*Router, error) {
	s := &Router{
		pipes: make(map[*libpipe.Pipe]struct{}),
		byID:  make(map[string]*libpipe.Pipe),
	}
	if err := s.InitBase(s, TypeRouter, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Router) AttachPipe(p *libpipe.Pipe) {
	s.assignIdentity(p)
	s.pipes[p] = struct{}{}
	s.fq.Attach(p)
}

func (s *Router) assignIdentity(p *libpipe.Pipe) {
	if len(p.Identity()) == 0 {
		p.SetIdentity([]byte(uuid.NewString()))
	}
	s.byID[string(p.Identity())] = p
}

func (s *Router) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.assignIdentity(p)
			s.pipes[p] = struct{}{}
			s.fq.Attach(p)
		})
	case libmbx.ActivateWrite:
		s.HandleActivateWrite(cmd)
	case libmbx.PipeTerm:
		if p := s.HandlePipeTerm(cmd); p != nil {
			s.fq.Detach(p)
			delete(s.byID, string(p.Identity()))
		}
	case libmbx.PipeTermAck:
		s.HandlePipeTermAck(cmd, func(p *libpipe.Pipe) {
			delete(s.pipes, p)
			s.fq.Detach(p)
			delete(s.byID, string(p.Identity()))
		})
	}
}

func (s *Router) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

// Send consumes a leading identity frame (More must be set on it, as
// it is always the first of at least two frames) and routes the
// remaining frames to the pipe that identity names.
func (s *Router) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	if !s.midSend {
		id := string(msg.Bytes())
		p, ok := s.byID[id]
		if !ok {
			return liberr.New(liberr.InvalidArgument, "ROUTER: no peer with identity %q", id)
		}
		s.sendTo = p
		s.midSend = true
		return nil
	}
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		if s.sendTo == nil || !s.sendTo.CheckWrite() {
			return false
		}
		s.sendTo.Write(msg)
		if !msg.More() {
			s.midSend = false
			s.sendTo = nil
		}
		return true
	})
}

// Recv returns the next message with the sending peer's identity
// prepended as a leading frame (More set), so the caller always sees
// at least two frames per logical message: the identity, then one or
// more body parts exactly as the peer wrote them.
func (s *Router) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
	var out libmsg.Msg
	ferr := s.BlockingOp(dontwait, s.Options().RcvTimeo, func() bool {
		if s.havePendingBody {
			out = s.pendingBody
			s.havePendingBody = false
			s.inBody = out.More()
			return true
		}
		if s.inBody {
			m, _, ok := s.fq.RecvPipe()
			if !ok {
				return false
			}
			out = m
			s.inBody = m.More()
			return true
		}
		m, p, ok := s.fq.RecvPipe()
		if !ok {
			return false
		}
		pp, _ := p.(*libpipe.Pipe)
		id := libmsg.FromBytes(append([]byte(nil), pp.Identity()...), nil)
		id.SetMore(true)
		s.pendingBody = m
		s.havePendingBody = true
		out = id
		return true
	})
	return out, ferr
}

func (s *Router) HasIn() bool {
	return s.havePendingBody || s.inBody || s.fq.HasIn()
}

func (s *Router) HasOut() bool { return len(s.pipes) > 0 }

func (s *Router) Close(linger time.Duration) { s.Terminate(linger) }
