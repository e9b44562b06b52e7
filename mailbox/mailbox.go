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

package mailbox

import (
	"sync"
	"time"
)

// queueCap is the buffered channel capacity backing a Mailbox before a
// Send has to grow the overflow slice. Most objects in the ownership
// tree only ever have a handful of commands in flight at once.
const queueCap = 64

// Mailbox is a non-blocking, unbounded-depth, thread-safe command
// queue with a waitable descriptor (spec §4.4). The descriptor is the
// channel returned by C: idiomatic Go reactors mix channels and network
// I/O in a single select rather than registering raw file descriptors
// with epoll, so a channel plays the role spec §4.6 assigns to a
// waitable fd — the owner's reactor selects on it alongside per-
// connection channels fed by the transport goroutines (see package
// reactor). Send never blocks indefinitely: once the buffered channel
// is full, further commands queue in an internal overflow slice (with
// no size limit) that Recv and Drain move into the channel as room
// frees up, so a producer holding another lock can never deadlock
// against a slow reactor.
type Mailbox struct {
	ch chan Command

	mu       sync.Mutex
	overflow []Command
	closed   bool
}

// New creates an empty Mailbox.
func New() (*Mailbox, error) {
	return &Mailbox{ch: make(chan Command, queueCap)}, nil
}

// C returns the channel a reactor selects on to learn a command is
// ready. Values appear here in send order, but a command that spilled
// into the overflow slice reaches the channel only when a Recv or Drain
// call moves it there.
func (m *Mailbox) C() <-chan Command {
	return m.ch
}

// Send enqueues cmd. It is safe to call from any number of goroutines
// concurrently and never blocks: a full channel spills into an
// overflow buffer drained opportunistically by Recv/Drain.
func (m *Mailbox) Send(cmd Command) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if len(m.overflow) == 0 {
		select {
		case m.ch <- cmd:
			return
		default:
		}
	}
	m.overflow = append(m.overflow, cmd)
}

// drainOverflowLocked pushes as many overflow commands into ch as it
// currently has room for. Callers must hold mu.
func (m *Mailbox) drainOverflowLocked() {
	for len(m.overflow) > 0 {
		select {
		case m.ch <- m.overflow[0]:
			m.overflow = m.overflow[1:]
		default:
			return
		}
	}
}

// Recv returns the next command, blocking up to timeout when the queue
// is empty. A negative timeout blocks indefinitely; zero returns
// immediately without blocking. ok is false on timeout, or at once when
// timeout is zero and nothing is queued. Close does not change what
// Recv returns: commands queued before Close are still delivered.
func (m *Mailbox) Recv(timeout time.Duration) (cmd Command, ok bool) {
	m.mu.Lock()
	m.drainOverflowLocked()
	m.mu.Unlock()

	if timeout < 0 {
		cmd, ok = <-m.ch
		m.afterRecv()
		return cmd, ok
	}
	if timeout == 0 {
		select {
		case cmd, ok = <-m.ch:
			m.afterRecv()
			return cmd, ok
		default:
			return Command{}, false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case cmd, ok = <-m.ch:
		m.afterRecv()
		return cmd, ok
	case <-t.C:
		return Command{}, false
	}
}

func (m *Mailbox) afterRecv() {
	m.mu.Lock()
	m.drainOverflowLocked()
	m.mu.Unlock()
}

// Drain dequeues every command currently ready without blocking, the
// non-blocking counterpart used by a reactor's main loop (spec §4.6:
// "dispatches ... until the mailbox drains").
func (m *Mailbox) Drain() []Command {
	var out []Command
	for {
		m.mu.Lock()
		m.drainOverflowLocked()
		m.mu.Unlock()
		select {
		case cmd := <-m.ch:
			out = append(out, cmd)
		default:
			return out
		}
	}
}

// Close marks the mailbox closed; further Send calls are silently
// dropped. The backing channel is left open, so a Send racing with
// Close can never panic on a closed channel and commands already queued
// can still be received. Close does not unblock a pending Recv; send a
// Stop command first if that is required.
func (m *Mailbox) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
