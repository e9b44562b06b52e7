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

// XPub is PUB with subscribe/unsubscribe control frames surfaced to
// the application as ordinary Recv'd messages instead of consumed
// internally, so a forwarding device can see and re-propagate them
// (spec §4.9's device-facing variant of PUB).
type XPub struct {
	Base
	dist  libdisp.Distribute
	pipes map[*libpipe.Pipe]struct{}
	ctl   libdisp.FairQueue
}

// NewXPub constructs an unconnected XPUB socket.
func NewXPub(opt Options) (*XPub, error) {
	s := &XPub{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypeXPub, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *XPub) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.dist.Attach(p)
	s.ctl.Attach(p)
}

func (s *XPub) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.pipes[p] = struct{}{}
			s.dist.Attach(p)
			s.ctl.Attach(p)
		})
	case libmbx.ActivateWrite:
		if p := s.HandleActivateWrite(cmd); p != nil {
			s.dist.Resume(p)
		}
	case libmbx.PipeTerm:
		if p := s.HandlePipeTerm(cmd); p != nil {
			s.dist.Detach(p)
			s.ctl.Detach(p)
		}
	case libmbx.PipeTermAck:
		s.HandlePipeTermAck(cmd, func(p *libpipe.Pipe) {
			delete(s.pipes, p)
			s.dist.Detach(p)
			s.ctl.Detach(p)
		})
	}
}

func (s *XPub) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

func (s *XPub) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		s.dist.SendToMatching(msg, isSubscriberMatch(msg.Bytes()))
		return true
	})
}

// Recv returns the next subscribe/unsubscribe control frame from any
// downstream peer, already decoded back into wire form
// (flag byte + topic, per encodeSub), so a forwarding device can relay
// it upstream unchanged via XSub.Send.
func (s *XPub) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
	var out libmsg.Msg
	ferr := s.BlockingOp(dontwait, s.Options().RcvTimeo, func() bool {
		m, p, ok := s.ctl.RecvPipe()
		if !ok {
			return false
		}
		if flag, topic, ok := decodeSub(m); ok {
			if pp, ok := p.(*libpipe.Pipe); ok {
				if flag == subFlagSubscribe {
					pp.Subscribe(topic)
				} else {
					pp.Unsubscribe(topic)
				}
			}
		}
		out = m
		return true
	})
	return out, ferr
}

func (s *XPub) HasIn() bool { return s.ctl.HasIn() }

func (s *XPub) HasOut() bool {
	return s.dist.HasMatching(func(libdisp.PipeWriter) bool { return true })
}

func (s *XPub) Close(linger time.Duration) { s.Terminate(linger) }

// XSub is SUB with subscription control entirely delegated to the
// application: Send writes a raw subscribe/unsubscribe control frame
// upstream instead of being refused, and Recv returns every published
// message unfiltered (spec §4.9's device-facing variant of SUB — a
// forwarding device decides what to filter, not this socket).
type XSub struct {
	Base
	fq    libdisp.FairQueue
	lb    libdisp.LoadBalance
	pipes map[*libpipe.Pipe]struct{}
}

// NewXSub constructs an unconnected XSUB socket.
func NewXSub(opt Options) (*XSub, error) {
	s := &XSub{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypeXSub, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *XSub) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.fq.Attach(p)
	s.lb.Attach(p)
}

func (s *XSub) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.pipes[p] = struct{}{}
			s.fq.Attach(p)
			s.lb.Attach(p)
		})
	case libmbx.ActivateWrite:
		s.HandleActivateWrite(cmd)
	case libmbx.PipeTerm:
		if p := s.HandlePipeTerm(cmd); p != nil {
			s.fq.Detach(p)
			s.lb.Detach(p)
		}
	case libmbx.PipeTermAck:
		s.HandlePipeTermAck(cmd, func(p *libpipe.Pipe) {
			delete(s.pipes, p)
			s.fq.Detach(p)
			s.lb.Detach(p)
		})
	}
}

func (s *XSub) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

// Send propagates a raw subscribe/unsubscribe control frame (first
// byte 0x01 or 0x00 followed by the topic) to every attached peer.
func (s *XSub) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		sent := false
		for p := range s.pipes {
			if p.CheckWrite() {
				p.Write(msg)
				sent = true
			}
		}
		return sent
	})
}

func (s *XSub) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
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

func (s *XSub) HasIn() bool { return s.fq.HasIn() }

func (s *XSub) HasOut() bool { return len(s.pipes) > 0 }

func (s *XSub) Close(linger time.Duration) { s.Terminate(linger) }
