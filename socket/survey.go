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

// Surveyor broadcasts a question to every connected Respondent and
// collects answers until the survey deadline elapses (spec §4.9): Send
// fans out via dispatch.Distribute and opens a new collection window;
// Recv fair-queues whatever answers arrive inside that window and
// reports Timeout once it closes, matching a poll-style vote rather
// than a guaranteed-delivery request.
type Surveyor struct {
	Base
	dist  libdisp.Distribute
	fq    libdisp.FairQueue
	pipes map[*libpipe.Pipe]struct{}

	surveying bool
	deadline  time.Time
}

// NewSurveyor constructs an unconnected SURVEYOR socket.
func NewSurveyor(opt Options) (*Surveyor, error) {
	s := &Surveyor{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypeSurveyor, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Surveyor) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.dist.Attach(p)
	s.fq.Attach(p)
}

func (s *Surveyor) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.pipes[p] = struct{}{}
			s.dist.Attach(p)
			s.fq.Attach(p)
		})
	case libmbx.ActivateWrite:
		if p := s.HandleActivateWrite(cmd); p != nil {
			s.dist.Resume(p)
		}
	case libmbx.PipeTerm:
		if p := s.HandlePipeTerm(cmd); p != nil {
			s.dist.Detach(p)
			s.fq.Detach(p)
		}
	case libmbx.PipeTermAck:
		s.HandlePipeTermAck(cmd, func(p *libpipe.Pipe) {
			delete(s.pipes, p)
			s.dist.Detach(p)
			s.fq.Detach(p)
		})
	}
}

func (s *Surveyor) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

// Send broadcasts msg as a new survey, opening a collection window of
// RCVTIMEO (or unbounded if RCVTIMEO is zero) for the matching Recv
// calls.
func (s *Surveyor) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		s.dist.SendToMatching(msg, func(libdisp.PipeWriter) bool { return true })
		s.surveying = true
		if d := s.Options().RcvTimeo; d > 0 {
			s.deadline = time.Now().Add(d)
		} else {
			s.deadline = time.Time{}
		}
		return true
	})
}

// Recv returns the next answer received inside the current survey's
// window. Calling Recv with no survey in flight is an FSM violation.
func (s *Surveyor) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
	if !s.surveying {
		return libmsg.Msg{}, liberr.New(liberr.FSMViolation, "SURVEYOR: recv without an open survey")
	}
	timeout := s.Options().RcvTimeo
	if !s.deadline.IsZero() {
		if remaining := time.Until(s.deadline); remaining > 0 {
			timeout = remaining
		} else {
			s.surveying = false
			return libmsg.Msg{}, liberr.New(liberr.Timeout, "SURVEYOR: survey window closed")
		}
	}
	var out libmsg.Msg
	ferr := s.BlockingOp(dontwait, timeout, func() bool {
		m, _, ok := s.fq.RecvPipe()
		if !ok {
			return false
		}
		out = m
		return true
	})
	return out, ferr
}

func (s *Surveyor) HasIn() bool { return s.surveying && s.fq.HasIn() }

func (s *Surveyor) HasOut() bool { return !s.surveying }

func (s *Surveyor) Close(linger time.Duration) { s.Terminate(linger) }

// Respondent answers surveys: Recv fair-queues the next question and
// remembers which pipe it arrived on; Send replies on that same pipe.
// Sending without a pending question, or twice without an intervening
// Recv, is an FSM violation (spec §4.9, mirroring REP).
type Respondent struct {
	Base
	fq    libdisp.FairQueue
	pipes map[*libpipe.Pipe]struct{}

	pendingReply bool
	questionPipe *libpipe.Pipe
}

// NewRespondent constructs an unconnected RESPONDENT socket.
func NewRespondent(opt Options) (*Respondent, error) {
	s := &Respondent{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypeRespondent, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Respondent) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.fq.Attach(p)
}

func (s *Respondent) handle(cmd libmbx.Command) {
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

func (s *Respondent) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

func (s *Respondent) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
	if s.pendingReply {
		return libmsg.Msg{}, liberr.New(liberr.FSMViolation, "RESPONDENT: recv before the matching send")
	}
	var out libmsg.Msg
	ferr := s.BlockingOp(dontwait, s.Options().RcvTimeo, func() bool {
		m, p, ok := s.fq.RecvPipe()
		if !ok {
			return false
		}
		s.questionPipe, _ = p.(*libpipe.Pipe)
		s.pendingReply = !m.More()
		out = m
		return true
	})
	return out, ferr
}

func (s *Respondent) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	if !s.pendingReply {
		return liberr.New(liberr.FSMViolation, "RESPONDENT: send without a pending question")
	}
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		if s.questionPipe == nil || !s.questionPipe.CheckWrite() {
			return false
		}
		s.questionPipe.Write(msg)
		if !msg.More() {
			s.pendingReply = false
			s.questionPipe = nil
		}
		return true
	})
}

func (s *Respondent) HasIn() bool { return !s.pendingReply && s.fq.HasIn() }

func (s *Respondent) HasOut() bool { return s.pendingReply }

func (s *Respondent) Close(linger time.Duration) { s.Terminate(linger) }

// XSurveyor is Surveyor with the responding peer's identity surfaced
// on Recv instead of hidden, so a device can fan one survey out across
// several downstream Respondent groups and tell their answers apart
// (spec §4.9's device-facing variant, mirroring Router over Dealer).
type XSurveyor struct {
	Base
	dist  libdisp.Distribute
	fq    libdisp.FairQueue
	pipes map[*libpipe.Pipe]struct{}

	havePendingBody bool
	pendingBody     libmsg.Msg
	inBody          bool
}

// NewXSurveyor constructs an unconnected XSURVEYOR socket.
func NewXSurveyor(opt Options) (*XSurveyor, error) {
	s := &XSurveyor{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypeXSurveyor, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *XSurveyor) AttachPipe(p *libpipe.Pipe) {
	if len(p.Identity()) == 0 {
		p.SetIdentity([]byte(uuid.NewString()))
	}
	s.pipes[p] = struct{}{}
	s.dist.Attach(p)
	s.fq.Attach(p)
}

func (s *XSurveyor) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.AttachPipe(p)
		})
	case libmbx.ActivateWrite:
		if p := s.HandleActivateWrite(cmd); p != nil {
			s.dist.Resume(p)
		}
	case libmbx.PipeTerm:
		if p := s.HandlePipeTerm(cmd); p != nil {
			s.dist.Detach(p)
			s.fq.Detach(p)
		}
	case libmbx.PipeTermAck:
		s.HandlePipeTermAck(cmd, func(p *libpipe.Pipe) {
			delete(s.pipes, p)
			s.dist.Detach(p)
			s.fq.Detach(p)
		})
	}
}

func (s *XSurveyor) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

func (s *XSurveyor) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		s.dist.SendToMatching(msg, func(libdisp.PipeWriter) bool { return true })
		return true
	})
}

func (s *XSurveyor) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
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

func (s *XSurveyor) HasIn() bool {
	return s.havePendingBody || s.inBody || s.fq.HasIn()
}

func (s *XSurveyor) HasOut() bool { return len(s.pipes) > 0 }

func (s *XSurveyor) Close(linger time.Duration) { s.Terminate(linger) }

// XRespondent is Respondent with the question's identity envelope
// exposed on Recv/Send instead of implicit single-pipe pinning, the
// same identity-addressed relationship XSurveyor establishes.
type XRespondent struct {
	Base
	fq    libdisp.FairQueue
	pipes map[*libpipe.Pipe]struct{}
	byID  map[string]*libpipe.Pipe

	midSend bool
	sendTo  *libpipe.Pipe

	havePendingBody bool
	pendingBody     libmsg.Msg
	inBody          bool
}

// NewXRespondent constructs an unconnected XRESPONDENT socket.
func NewXRespondent(opt Options) (*XRespondent, error) {
	s := &XRespondent{
		pipes: make(map[*libpipe.Pipe]struct{}),
		byID:  make(map[string]*libpipe.Pipe),
	}
	if err := s.InitBase(s, TypeXRespondent, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *XRespondent) AttachPipe(p *libpipe.Pipe) {
	if len(p.Identity()) == 0 {
		p.SetIdentity([]byte(uuid.NewString()))
	}
	s.pipes[p] = struct{}{}
	s.byID[string(p.Identity())] = p
	s.fq.Attach(p)
}

func (s *XRespondent) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.AttachPipe(p)
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

func (s *XRespondent) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

func (s *XRespondent) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	if !s.midSend {
		id := string(msg.Bytes())
		p, ok := s.byID[id]
		if !ok {
			return liberr.New(liberr.InvalidArgument, "XRESPONDENT: no peer with identity %q", id)
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

func (s *XRespondent) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
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

func (s *XRespondent) HasIn() bool {
	return s.havePendingBody || s.inBody || s.fq.HasIn()
}

func (s *XRespondent) HasOut() bool { return len(s.pipes) > 0 }

func (s *XRespondent) Close(linger time.Duration) { s.Terminate(linger) }
