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
	libpipe "github.com/nabbar/xs/pipe"
)

// Pair is the PAIR pattern of spec §4.9: exactly one pipe, refusing a
// second attach outright rather than queueing or load-balancing.
type Pair struct {
	Base
	pipe *libpipe.Pipe
}

// NewPair constructs an unconnected PAIR socket.
func NewPair(opt Options) (*Pair, error) {
	s := &Pair{}
	if err := s.InitBase(s, TypePair, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Pair) AttachPipe(p *libpipe.Pipe) {
	s.pipe = p
}

func (s *Pair) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			if s.pipe != nil {
				// spec §4.9: a second attach on PAIR is a logic error in
				// the caller (connect should have been refused earlier);
				// keep the first pipe and drop the second silently.
				return
			}
			s.pipe = p
		})
	case libmbx.ActivateWrite:
		s.HandleActivateWrite(cmd)
	case libmbx.PipeTerm:
		s.HandlePipeTerm(cmd)
	case libmbx.PipeTermAck:
		s.HandlePipeTermAck(cmd, func(p *libpipe.Pipe) {
			if s.pipe == p {
				s.pipe = nil
			}
		})
	}
}

func (s *Pair) onTerminate(linger time.Duration) {
	if s.pipe != nil {
		s.pipe.Terminate(linger)
	}
}

func (s *Pair) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		if s.pipe == nil || !s.pipe.CheckWrite() {
			return false
		}
		s.pipe.Write(msg)
		return true
	})
}

func (s *Pair) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
	var out libmsg.Msg
	ferr := s.BlockingOp(dontwait, s.Options().RcvTimeo, func() bool {
		if s.pipe == nil {
			return false
		}
		m, ok := s.pipe.Read()
		if !ok {
			return false
		}
		out = m
		return true
	})
	return out, ferr
}

func (s *Pair) HasIn() bool {
	return s.pipe != nil
}

func (s *Pair) HasOut() bool {
	return s.pipe != nil && s.pipe.CheckWrite()
}

func (s *Pair) Close(linger time.Duration) {
	s.Terminate(linger)
}
