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

	liberr "github.com/nabbar/xs/errors"
	libmbx "github.com/nabbar/xs/mailbox"
	libmsg "github.com/nabbar/xs/message"
	libdisp "github.com/nabbar/xs/dispatch"
	libpipe "github.com/nabbar/xs/pipe"
)

// Push is the outbound half of the PUSH/PULL pattern (spec §4.9):
// round-robins writes over its attached pipes via dispatch.LoadBalance
// and refuses Recv outright (NotSupported).
type Push struct {
	Base
	lb    libdisp.LoadBalance
	pipes map[*libpipe.Pipe]struct{}
}

// NewPush constructs an unconnected PUSH socket.
func NewPush(opt Options) (*Push, error) {
	s := &Push{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypePush, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Push) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.lb.Attach(p)
}

func (s *Push) handle(cmd libmbx.Command) {
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
		})
	}
}

func (s *Push) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

func (s *Push) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		_, ok := s.lb.SendPipe(msg)
		return ok
	})
}

func (s *Push) Recv(bool) (libmsg.Msg, *liberr.Error) {
	return libmsg.Msg{}, liberr.New(liberr.NotSupported, "PUSH sockets do not receive")
}

func (s *Push) HasIn() bool { return false }

func (s *Push) HasOut() bool { return s.lb.HasOut() }

func (s *Push) Close(linger time.Duration) { s.Terminate(linger) }

// Pull is the inbound half of PUSH/PULL: fair-queues reads over its
// attached pipes and refuses Send outright.
type Pull struct {
	Base
	fq    libdisp.FairQueue
	pipes map[*libpipe.Pipe]struct{}
}

// NewPull constructs an unconnected PULL socket.
func NewPull(opt Options) (*Pull, error) {
	s := &Pull{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypePull, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Pull) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.fq.Attach(p)
}

func (s *Pull) handle(cmd libmbx.Command) {
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
		})
	}
}

func (s *Pull) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

func (s *Pull) Send(libmsg.Msg, bool) *liberr.Error {
	return liberr.New(liberr.NotSupported, "PULL sockets do not send")
}

func (s *Pull) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
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

func (s *Pull) HasIn() bool { return s.fq.HasIn() }

func (s *Pull) HasOut() bool { return false }

func (s *Pull) Close(linger time.Duration) { s.Terminate(linger) }
