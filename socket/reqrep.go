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

	libdisp "github.com/nabbar/xs/dispatch"
	liberr "github.com/nabbar/xs/errors"
	libmbx "github.com/nabbar/xs/mailbox"
	libmsg "github.com/nabbar/xs/message"
	libpipe "github.com/nabbar/xs/pipe"
)

// Req is the requesting half of REQ/REP (spec §4.9): every Send picks
// the next peer via round-robin, prefixes an empty delimiter frame (the
// envelope boundary REP mirrors back), and pins the matching Recv to
// that same peer. The strict send/recv alternation is an FSM violation
// to break, per spec §4.2.
type Req struct {
	Base
	lb    libdisp.LoadBalance
	pipes map[*libpipe.Pipe]struct{}

	midSend       bool
	awaitingReply bool
	recvStarted   bool
	replyPipe     *libpipe.Pipe
}

// NewReq constructs an unconnected REQ socket.
func NewReq(opt Options) (*Req, error) {
	s := &Req{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypeReq, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Req) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.lb.Attach(p)
}

func (s *Req) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.pipes[p] = struct{}{}
			s.lb.Attach(p)
		})
	case libmbx.ActivateWrite:
		s.HandleActivateWrite(cmd)
	case libmbx.PipeTerm:
		if p := s.HandlePipeTerm(cmd); p != nil {
			s.lb.Detach(p)
		}
	case libmbx.PipeTermAck:
		s.HandlePipeTermAck(cmd, func(p *libpipe.Pipe) {
			delete(s.pipes, p)
			s.lb.Detach(p)
		})
	}
}

func (s *Req) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

func (s *Req) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	if !s.midSend && s.awaitingReply {
		return liberr.New(liberr.FSMViolation, "REQ: send before the matching recv")
	}
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		if !s.midSend {
			delim := libmsg.Empty()
			delim.SetMore(true)
			if _, ok := s.lb.SendPipe(delim); !ok {
				return false
			}
			s.midSend = true
		}
		p, ok := s.lb.SendPipe(msg)
		if !ok {
			return false
		}
		if !msg.More() {
			s.midSend = false
			s.awaitingReply = true
			s.recvStarted = false
			s.replyPipe, _ = p.(*libpipe.Pipe)
		}
		return true
	})
}

func (s *Req) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
	if !s.awaitingReply {
		return libmsg.Msg{}, liberr.New(liberr.FSMViolation, "REQ: recv without a pending send")
	}
	var out libmsg.Msg
	ferr := s.BlockingOp(dontwait, s.Options().RcvTimeo, func() bool {
		for {
			m, ok := s.replyPipe.Read()
			if !ok {
				return false
			}
			if !s.recvStarted {
				s.recvStarted = true
				if len(m.Bytes()) == 0 && m.More() {
					continue
				}
			}
			out = m
			if !m.More() {
				s.awaitingReply = false
				s.recvStarted = false
				s.replyPipe = nil
			}
			return true
		}
	})
	return out, ferr
}

func (s *Req) HasIn() bool { return s.awaitingReply }

func (s *Req) HasOut() bool { return !s.awaitingReply && s.lb.HasOut() }

func (s *Req) Close(linger time.Duration) { s.Terminate(linger) }

// Rep is the replying half of REQ/REP: Recv fair-queues a request from
// any peer, remembering which pipe it arrived on; Send writes the
// matching reply back to that same pipe, with the empty delimiter
// frame restored. Calling Send without a pending request, or twice
// without an intervening Recv, is an FSM violation.
type Rep struct {
	Base
	fq    libdisp.FairQueue
	pipes map[*libpipe.Pipe]struct{}

	recvStarted  bool
	midSend      bool
	pendingReply bool
	requestPipe  *libpipe.Pipe
}

// NewRep constructs an unconnected REP socket.
func NewRep(opt Options) (*Rep, error) {
	s := &Rep{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypeRep, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Rep) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.fq.Attach(p)
}

func (s *Rep) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.pipes[p] = struct{}{}
			s.fq.Attach(p)
		})
	case libmbx.ActivateWrite:
		s.HandleActivateWrite(cmd)
	case libmbx.PipeTerm:
		if p := s.HandlePipeTerm(cmd); p != nil {
			s.fq.Detach(p)
		}
	case libmbx.PipeTermAck:
		s.HandlePipeTermAck(cmd, func(p *libpipe.Pipe) {
			delete(s.pipes, p)
			s.fq.Detach(p)
		})
	}
}

func (s *Rep) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

func (s *Rep) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
	if s.pendingReply {
		return libmsg.Msg{}, liberr.New(liberr.FSMViolation, "REP: recv before the matching send")
	}
	var out libmsg.Msg
	ferr := s.BlockingOp(dontwait, s.Options().RcvTimeo, func() bool {
		for {
			m, p, ok := s.fq.RecvPipe()
			if !ok {
				return false
			}
			if !s.recvStarted {
				s.recvStarted = true
				s.requestPipe, _ = p.(*libpipe.Pipe)
				if len(m.Bytes()) == 0 && m.More() {
					continue
				}
			}
			out = m
			if !m.More() {
				s.recvStarted = false
				s.pendingReply = true
			}
			return true
		}
	})
	return out, ferr
}

func (s *Rep) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	if !s.midSend && !s.pendingReply {
		return liberr.New(liberr.FSMViolation, "REP: send without a pending request")
	}
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		if s.requestPipe == nil {
			return false
		}
		if !s.midSend {
			if !s.requestPipe.CheckWrite() {
				return false
			}
			delim := libmsg.Empty()
			delim.SetMore(true)
			s.requestPipe.Write(delim)
			s.midSend = true
		}
		if !s.requestPipe.CheckWrite() {
			return false
		}
		s.requestPipe.Write(msg)
		if !msg.More() {
			s.midSend = false
			s.pendingReply = false
			s.requestPipe = nil
		}
		return true
	})
}

func (s *Rep) HasIn() bool { return !s.pendingReply && s.fq.HasIn() }

func (s *Rep) HasOut() bool { return s.pendingReply }

func (s *Rep) Close(linger time.Duration) { s.Terminate(linger) }
