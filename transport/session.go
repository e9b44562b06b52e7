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

package transport

import (
	"bufio"
	"net"
	"sync"
	"time"

	libmbx "github.com/nabbar/xs/mailbox"
	libmet "github.com/nabbar/xs/metrics"
	libpipe "github.com/nabbar/xs/pipe"
	libreact "github.com/nabbar/xs/reactor"
	libyp "github.com/nabbar/xs/ypipe"

	libmsg "github.com/nabbar/xs/message"
)

const (
	minBackoff = 50 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// session is the shared net.Conn-driving half of both the tcp and ipc
// engines (spec §4.9a describes them identically apart from the
// network/address kind passed to net.Dial/net.Listen). A session with a
// non-nil redial is client-side and reconnects on its own after a
// dropped connection; a server-side session (accepted from a Listener)
// has redial nil and simply terminates its pipe when the peer goes
// away, mirroring how a real libxs peer disappearing ends that one
// connection without tearing down the listening socket.
type session struct {
	scheme Scheme

	mu   sync.Mutex
	conn net.Conn

	p   *libpipe.Pipe
	mbx *libmbx.Mailbox
	ctx EngineContext

	redial func() (net.Conn, error)

	wake      chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	backoff   time.Duration
	timerID   libreact.TimerHandle
	hasTimer  bool
	terminate bool
}

func newSession(scheme Scheme, conn net.Conn, redial func() (net.Conn, error)) *session {
	m, _ := libmbx.New()
	return &session{
		scheme:  scheme,
		conn:    conn,
		redial:  redial,
		mbx:     m,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		backoff: minBackoff,
	}
}

// Plug implements Engine. The mailbox is already live from newSession so
// a caller can wire a peer's Attach to it before Plug starts the
// session's goroutines.
func (s *session) Plug(ctx EngineContext, p *libpipe.Pipe) {
	s.ctx = ctx
	s.p = p

	go s.readLoop()
	go s.writeLoop()
	go s.commandLoop()
}

// Mailbox returns the mailbox a peer (the local socket's pipe end)
// notifies through ActivateRead/PipeTerm/PipeTermAck — the façade wires
// this as the peer mailbox/Receiver pair when it attaches the two pipe
// ends (spec §4.3's "bound to two owners" handshake, one of which is
// this engine instead of another socket).
func (s *session) Mailbox() *libmbx.Mailbox { return s.mbx }

// ProcessCommand implements mailbox.Receiver so a session can stand in
// for the "remote peer" half of a pipe's Attach.
func (s *session) ProcessCommand(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.ActivateRead:
		select {
		case s.wake <- struct{}{}:
		default:
		}
	case libmbx.PipeTerm:
		s.p.OnPipeTerm()
		s.Terminate()
	case libmbx.PipeTermAck:
		s.p.OnPipeTermAck()
	}
}

// Terminate implements Engine.
func (s *session) Terminate() {
	s.stopOnce.Do(func() {
		s.terminate = true
		close(s.stop)
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
		if s.hasTimer {
			s.ctx.Reactor().RmTimer(s.timerID)
		}
	})
}

// readLoop moves bytes from the wire into the pipe end the local socket
// reads from: each decoded frame becomes one libmsg.Msg written onto
// s.p, which auto-flushes (and wakes the local socket) on the final
// part of a logical message, per pipe.Write's contract.
func (s *session) readLoop() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		br := bufio.NewReader(conn)
		for {
			m, n, err := readFrame(br)
			if err != nil {
				libmet.AddTransportBytes(string(s.scheme), "rx", n)
				break
			}
			libmet.AddTransportBytes(string(s.scheme), "rx", n)
			s.p.Write(m)
		}

		if !s.reconnect() {
			if s.redial == nil && !s.terminate {
				s.p.Terminate(0)
				s.Terminate()
			}
			return
		}
	}
}

// writeLoop drains messages the local socket wrote into its own pipe
// end — visible here as reads on s.p — onto the wire, waking only on
// ActivateRead (the local socket flushed something) instead of busy
// polling.
func (s *session) writeLoop() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		for {
			m, ok := s.p.Read()
			if !ok {
				break
			}
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				continue
			}
			n, err := writeFrame(conn, m)
			libmet.AddTransportBytes(string(s.scheme), "tx", n)
			if err != nil {
				break
			}
		}

		if s.terminate {
			return
		}
	}
}

func (s *session) commandLoop() {
	for {
		cmd, ok := s.mbx.Recv(-1)
		if !ok {
			return
		}
		s.ProcessCommand(cmd)
		if s.terminate {
			return
		}
	}
}

// reconnect is only ever productive for a client-side session (redial
// non-nil); a server-side session accepted from a Listener has no
// address to redial to, so a dropped peer simply ends that one
// connection — the listener keeps accepting new ones independently.
func (s *session) reconnect() bool {
	if s.redial == nil || s.terminate {
		return false
	}

	libmet.IncTransportReconnect(string(s.scheme))
	done := make(chan struct{})
	s.hasTimer = true
	s.timerID = s.ctx.Reactor().AddTimer(s.backoff, sinkFunc(func() {
		conn, err := s.redial()
		if err == nil {
			s.mu.Lock()
			s.conn = conn
			s.mu.Unlock()
			s.p.Hiccup(libyp.New[libmsg.Msg]())
			s.backoff = minBackoff
		} else if s.backoff < maxBackoff {
			s.backoff *= 2
			if s.backoff > maxBackoff {
				s.backoff = maxBackoff
			}
		}
		close(done)
	}), 0)

	select {
	case <-done:
	case <-s.stop:
		return false
	}

	s.mu.Lock()
	ok := s.conn != nil
	s.mu.Unlock()
	return ok
}

// sinkFunc adapts a plain func to reactor.Sink so reconnect's one-shot
// timer doesn't need a dedicated named type; InEvent/OutEvent are unused
// since a session drives its net.Conn with its own goroutines rather
// than through reactor-registered readiness events (see package doc).
type sinkFunc func()

func (f sinkFunc) InEvent()        {}
func (f sinkFunc) OutEvent()       {}
func (f sinkFunc) TimerEvent(int)  { f() }
