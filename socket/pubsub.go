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
	"bytes"
	"time"

	libdisp "github.com/nabbar/xs/dispatch"
	liberr "github.com/nabbar/xs/errors"
	libmbx "github.com/nabbar/xs/mailbox"
	libmsg "github.com/nabbar/xs/message"
	libpipe "github.com/nabbar/xs/pipe"
)

// Subscription control frames carried over the same pipe as published
// data, in the reverse direction (spec §4.9: "SUB propagates subscribe
// and unsubscribe as a control message travelling upstream over the
// same pipe"). The byte distinguishes the two from an ordinary payload.
const (
	subFlagSubscribe   byte = 0x01
	subFlagUnsubscribe byte = 0x00
)

func encodeSub(flag byte, topic string) libmsg.Msg {
	buf := make([]byte, 1+len(topic))
	buf[0] = flag
	copy(buf[1:], topic)
	return libmsg.FromBytes(buf, nil)
}

func decodeSub(m libmsg.Msg) (flag byte, topic string, ok bool) {
	b := m.Bytes()
	if len(b) == 0 {
		return 0, "", false
	}
	return b[0], string(b[1:]), true
}

// Pub is the publishing half of PUB/SUB (spec §4.9): fans each message
// out to every attached pipe whose peer has a matching subscription,
// via dispatch.Distribute. A message matching nothing is dropped
// silently — PUB never blocks on a slow or absent subscriber.
type Pub struct {
	Base
	dist  libdisp.Distribute
	pipes map[*libpipe.Pipe]struct{}
}

// NewPub constructs an unconnected PUB socket.
func NewPub(opt Options) (*Pub, error) {
	s := &Pub{pipes: make(map[*libpipe.Pipe]struct{})}
	if err := s.InitBase(s, TypePub, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Pub) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.dist.Attach(p)
}

func (s *Pub) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.pipes[p] = struct{}{}
			s.dist.Attach(p)
		})
	case libmbx.ActivateRead:
		// The peer (SUB) has subscription control frames queued on this
		// same link; drain them all now rather than waiting for a Recv
		// call the application never makes on a PUB socket.
		if p, ok := cmd.Pipe.(*libpipe.Pipe); ok {
			s.drainSubscriptions(p)
		}
	case libmbx.ActivateWrite:
		if p := s.HandleActivateWrite(cmd); p != nil {
			s.dist.Resume(p)
		}
	case libmbx.PipeTerm:
		if p := s.HandlePipeTerm(cmd); p != nil {
			s.dist.Detach(p)
		}
	case libmbx.PipeTermAck:
		s.HandlePipeTermAck(cmd, func(p *libpipe.Pipe) {
			delete(s.pipes, p)
			s.dist.Detach(p)
		})
	}
}

func (s *Pub) drainSubscriptions(p *libpipe.Pipe) {
	for {
		m, ok := p.Read()
		if !ok {
			return
		}
		flag, topic, ok := decodeSub(m)
		if !ok {
			continue
		}
		if flag == subFlagSubscribe {
			p.Subscribe(topic)
		} else {
			p.Unsubscribe(topic)
		}
	}
}

func (s *Pub) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

func isSubscriberMatch(topic []byte) func(libdisp.PipeWriter) bool {
	return func(pw libdisp.PipeWriter) bool {
		p, ok := pw.(*libpipe.Pipe)
		if !ok {
			return false
		}
		for sub := range p.Subscriptions() {
			if bytes.HasPrefix(topic, []byte(sub)) {
				return true
			}
		}
		return false
	}
}

func (s *Pub) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	return s.BlockingOp(dontwait, s.Options().SndTimeo, func() bool {
		s.dist.SendToMatching(msg, isSubscriberMatch(msg.Bytes()))
		return true
	})
}

func (s *Pub) Recv(bool) (libmsg.Msg, *liberr.Error) {
	return libmsg.Msg{}, liberr.New(liberr.NotSupported, "PUB sockets do not receive")
}

func (s *Pub) HasIn() bool { return false }

func (s *Pub) HasOut() bool {
	return s.dist.HasMatching(func(libdisp.PipeWriter) bool { return true })
}

func (s *Pub) Close(linger time.Duration) { s.Terminate(linger) }

// Sub is the subscribing half of PUB/SUB. Subscribe/Unsubscribe push a
// control frame upstream on every attached pipe so a non-X PUB peer can
// do the matching on its side too, and Sub additionally filters
// incoming messages against its own subscription set so a SUB socket
// behaves identically whether its peer does server-side filtering or
// not (spec §4.9's "subscription propagation" open path through
// XSUB/XPUB devices, where the final PUB cannot be trusted to filter).
type Sub struct {
	Base
	fq    libdisp.FairQueue
	pipes map[*libpipe.Pipe]struct{}
	subs  map[string]struct{}
}

// NewSub constructs an unconnected SUB socket with no subscriptions
// (and therefore matching nothing, per spec §4.9).
func NewSub(opt Options) (*Sub, error) {
	s := &Sub{pipes: make(map[*libpipe.Pipe]struct{}), subs: make(map[string]struct{})}
	if err := s.InitBase(s, TypeSub, opt, s.handle, s.onTerminate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sub) AttachPipe(p *libpipe.Pipe) {
	s.pipes[p] = struct{}{}
	s.fq.Attach(p)
	for topic := range s.subs {
		p.Write(encodeSub(subFlagSubscribe, topic))
	}
}

func (s *Sub) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Bind:
		s.HandleBind(cmd, func(p *libpipe.Pipe) {
			s.pipes[p] = struct{}{}
			s.fq.Attach(p)
			for topic := range s.subs {
				p.Write(encodeSub(subFlagSubscribe, topic))
			}
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

func (s *Sub) onTerminate(linger time.Duration) {
	for p := range s.pipes {
		p.Terminate(linger)
	}
}

// Subscribe adds topic to the set this socket receives and notifies
// every attached peer.
func (s *Sub) Subscribe(topic string) {
	if _, exists := s.subs[topic]; exists {
		return
	}
	s.subs[topic] = struct{}{}
	for p := range s.pipes {
		p.Write(encodeSub(subFlagSubscribe, topic))
	}
}

// Unsubscribe removes topic.
func (s *Sub) Unsubscribe(topic string) {
	if _, exists := s.subs[topic]; !exists {
		return
	}
	delete(s.subs, topic)
	for p := range s.pipes {
		p.Write(encodeSub(subFlagUnsubscribe, topic))
	}
}

func (s *Sub) matches(m libmsg.Msg) bool {
	b := m.Bytes()
	for topic := range s.subs {
		if bytes.HasPrefix(b, []byte(topic)) {
			return true
		}
	}
	return false
}

func (s *Sub) Send(libmsg.Msg, bool) *liberr.Error {
	return liberr.New(liberr.NotSupported, "SUB sockets do not send application data")
}

func (s *Sub) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
	var out libmsg.Msg
	ferr := s.BlockingOp(dontwait, s.Options().RcvTimeo, func() bool {
		for {
			m, _, ok := s.fq.RecvPipe()
			if !ok {
				return false
			}
			if s.matches(m) {
				out = m
				return true
			}
		}
	})
	return out, ferr
}

func (s *Sub) HasIn() bool { return s.fq.HasIn() }

func (s *Sub) HasOut() bool { return false }

func (s *Sub) Close(linger time.Duration) { s.Terminate(linger) }
