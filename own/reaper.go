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

package own

import (
	"sync"

	libmbx "github.com/nabbar/xs/mailbox"
)

// Reaper is the dedicated thread sockets hand themselves to on close
// (spec §4.5), so the application thread that called Close never blocks
// draining another object's commands. Context.Term waits on Reaper.Wait
// as its zero-terminator semaphore: it returns only once every handed-in
// object has finalized.
type Reaper struct {
	mbx *libmbx.Mailbox

	mu      sync.Mutex
	pending map[libmbx.Receiver]struct{}
	empty   chan struct{}

	stop chan struct{}
	done chan struct{}
}

// NewReaper creates a Reaper with its own mailbox, ready for Run.
func NewReaper() (*Reaper, error) {
	m, err := libmbx.New()
	if err != nil {
		return nil, err
	}
	r := &Reaper{
		mbx:     m,
		pending: make(map[libmbx.Receiver]struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	return r, nil
}

// Mailbox returns the mailbox objects send Reap/Reaped commands to
// (Base.SetReaper uses this).
func (r *Reaper) Mailbox() *libmbx.Mailbox {
	return r.mbx
}

// Run drains the reaper's mailbox until Stop is called. It is meant to
// run on its own goroutine, one per Context, mirroring spec §4.6's
// "dedicated reaper thread".
func (r *Reaper) Run() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case cmd, ok := <-r.mbx.C():
			if !ok {
				return
			}
			r.handle(cmd)
			for _, c := range r.mbx.Drain() {
				r.handle(c)
			}
		}
	}
}

func (r *Reaper) handle(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Reap:
		r.mu.Lock()
		r.pending[cmd.Obj] = struct{}{}
		r.mu.Unlock()
	case libmbx.Reaped:
		r.mu.Lock()
		delete(r.pending, cmd.Obj)
		n := len(r.pending)
		var notify chan struct{}
		if n == 0 && r.empty != nil {
			notify = r.empty
			r.empty = nil
		}
		r.mu.Unlock()
		if notify != nil {
			close(notify)
		}
	}
}

// Wait blocks until every object handed to the reaper has finalized. It
// is safe to call before any object has been handed in (Wait returns
// immediately in that case).
func (r *Reaper) Wait() {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	r.empty = ch
	r.mu.Unlock()
	<-ch
}

// Stop terminates the reaper's Run goroutine and closes its mailbox.
func (r *Reaper) Stop() {
	close(r.stop)
	<-r.done
	_ = r.mbx.Close()
}
