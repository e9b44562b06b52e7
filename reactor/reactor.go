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

// Package reactor implements the single-threaded cooperative event loop
// of spec §4.6: one goroutine drives timers and I/O readiness
// notifications and executes cross-thread commands drained from a
// mailbox, exactly as one "I/O thread" does in the original design.
//
// The source material polls raw file descriptors with select/poll/epoll
// chosen at build time. That model does not translate idiomatically to
// Go: net.Conn read/write already run on their own goroutines managed
// by the runtime's own netpoller, and Go code is expected to talk to
// them through channels rather than registering fds with a second,
// user-space poller. This Reactor keeps the loop's structure and
// responsibilities (timers, mailbox-driven commands, a load counter,
// edge-triggered dispatch) but represents "registered fds" as Sinks
// that notify the loop over a channel once whatever goroutine owns
// their underlying I/O observes readiness.
package reactor

import (
	"container/heap"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	libmbx "github.com/nabbar/xs/mailbox"
	libmet "github.com/nabbar/xs/metrics"
)

// EventKind distinguishes which callback on a Sink a notification maps
// to, mirroring the in_event/out_event/timer_event trio of spec §4.6's
// i_poll_events interface.
type EventKind uint8

const (
	InEvent EventKind = iota
	OutEvent
)

// Sink is the back-reference a registered source notifies through. A
// transport session or engine implements this to learn when its
// underlying connection has bytes to read, buffer space to write to, or
// a timer it armed has expired.
type Sink interface {
	InEvent()
	OutEvent()
	TimerEvent(id int)
}

type notification struct {
	sink Sink
	kind EventKind
}

// Reactor is one I/O thread: a single goroutine (Run) that owns a
// mailbox, a timer queue, and a stream of I/O readiness notifications,
// and dispatches all three on that goroutine. Only the timer queue,
// which AddTimer and RmTimer may touch from other goroutines, is guarded
// by a mutex.
type Reactor struct {
	id  string
	mbx *libmbx.Mailbox

	events chan notification

	timerMu sync.Mutex
	timers  timerQueue
	nextID  uint64

	load    atomic.Int32
	metrics reactorMetrics

	stop chan struct{}
	done chan struct{}
}

type reactorMetrics struct {
	commandsProcessed uint64
	timersFired       uint64
	eventsDispatched  uint64
}

var reactorSeq atomic.Uint64

// New creates a Reactor with its own mailbox, ready for Run.
func New() (*Reactor, error) {
	m, err := libmbx.New()
	if err != nil {
		return nil, err
	}
	return &Reactor{
		id:     strconv.FormatUint(reactorSeq.Add(1), 10),
		mbx:    m,
		events: make(chan notification, 256),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Mailbox returns this reactor's command mailbox. Objects owned by this
// reactor (sessions, engines) are sent Commands addressed to them
// through here; the reactor drains it and calls Command.Dest.
// ProcessCommand for each (spec §4.6).
func (r *Reactor) Mailbox() *libmbx.Mailbox {
	return r.mbx
}

// Load returns the current number of registered timers and event
// sources, the quantity Context's choose_io_thread least-loaded policy
// compares across reactors (spec §4.6/§4.7).
func (r *Reactor) Load() int32 {
	return r.load.Load()
}

// Notify is how a registered Sink's owning goroutine (typically one
// reading or writing a net.Conn) reports readiness. It is safe to call
// from any goroutine; the actual Sink callback always runs on Run's
// goroutine. A full events channel drops the notification rather than
// blocking the caller — the source is expected to retry on its own next
// readiness edge, matching edge-triggered semantics where a missed edge
// is recovered by the next one.
func (r *Reactor) Notify(sink Sink, kind EventKind) {
	select {
	case r.events <- notification{sink: sink, kind: kind}:
	default:
	}
}

// RegisterSource increments the load counter for a newly attached
// event source (e.g. a TCP session). Call UnregisterSource when the
// source goes away.
func (r *Reactor) RegisterSource() {
	r.reportLoad(r.load.Add(1))
}

// UnregisterSource decrements the load counter.
func (r *Reactor) UnregisterSource() {
	r.reportLoad(r.load.Add(-1))
}

func (r *Reactor) reportLoad(n int32) {
	libmet.SetReactorLoad(r.id, n)
}

// AddTimer schedules sink.TimerEvent(id) to fire after d. It returns a
// handle usable with RmTimer. AddTimer is safe to call from any
// goroutine: the timer queue is guarded by timerMu, and AddTimer posts
// an empty command to the reactor's mailbox so a Run already waiting
// recomputes its timeout with the new timer included.
func (r *Reactor) AddTimer(d time.Duration, sink Sink, id int) TimerHandle {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	r.nextID++
	e := &timerEntry{
		handle: TimerHandle(r.nextID),
		expiry: time.Now().Add(d),
		sink:   sink,
		id:     id,
	}
	heap.Push(&r.timers, e)
	r.reportLoad(r.load.Add(1))
	r.mbx.Send(libmbx.Command{})
	return e.handle
}

// RmTimer cancels a previously scheduled timer. It is a no-op if the
// timer already fired or was already removed.
func (r *Reactor) RmTimer(h TimerHandle) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	for _, e := range r.timers {
		if e.handle == h && !e.removed {
			e.removed = true
			r.reportLoad(r.load.Add(-1))
			return
		}
	}
}

// Run drives the loop until Stop is called. Each iteration computes
// the timeout to the next live timer, waits on the mailbox, the event
// channel, and that timeout, then dispatches whatever became ready —
// matching spec §4.6's "compute timeout; wait; dispatch due timers;
// dispatch ready fds".
func (r *Reactor) Run() {
	defer close(r.done)
	for {
		var timerC <-chan time.Time
		var timer *time.Timer
		if d, ok := r.nextTimeout(); ok {
			timer = time.NewTimer(d)
			timerC = timer.C
		}

		select {
		case <-r.stop:
			if timer != nil {
				timer.Stop()
			}
			return

		case cmd, ok := <-r.mbx.C():
			if timer != nil {
				timer.Stop()
			}
			if !ok {
				return
			}
			r.dispatchCommand(cmd)
			for _, c := range r.mbx.Drain() {
				r.dispatchCommand(c)
			}

		case n := <-r.events:
			if timer != nil {
				timer.Stop()
			}
			r.dispatchEvent(n)

		case <-timerC:
			r.dispatchDueTimers()
		}
	}
}

func (r *Reactor) dispatchCommand(cmd libmbx.Command) {
	r.metrics.commandsProcessed++
	if cmd.Dest != nil {
		cmd.Dest.ProcessCommand(cmd)
	}
}

func (r *Reactor) dispatchEvent(n notification) {
	r.metrics.eventsDispatched++
	switch n.kind {
	case InEvent:
		n.sink.InEvent()
	case OutEvent:
		n.sink.OutEvent()
	}
}

// nextTimeout returns the duration until the earliest live timer,
// discarding removed entries at the front of the heap as it goes.
func (r *Reactor) nextTimeout() (time.Duration, bool) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	for len(r.timers) > 0 {
		top := r.timers[0]
		if top.removed {
			heap.Pop(&r.timers)
			continue
		}
		d := time.Until(top.expiry)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// dispatchDueTimers pops every expired timer under the lock, then
// invokes each sink's TimerEvent after releasing it — a reentrant
// AddTimer/RmTimer call from within TimerEvent (common: a timer sink
// re-arming itself) must not deadlock on timerMu.
func (r *Reactor) dispatchDueTimers() {
	now := time.Now()

	r.timerMu.Lock()
	var due []*timerEntry
	for len(r.timers) > 0 {
		top := r.timers[0]
		if top.removed {
			heap.Pop(&r.timers)
			continue
		}
		if top.expiry.After(now) {
			break
		}
		heap.Pop(&r.timers)
		r.load.Add(-1)
		due = append(due, top)
	}
	r.reportLoad(r.load.Load())
	r.timerMu.Unlock()

	for _, e := range due {
		r.metrics.timersFired++
		e.sink.TimerEvent(e.id)
	}
}

// Stop terminates Run and closes the reactor's mailbox.
func (r *Reactor) Stop() {
	close(r.stop)
	<-r.done
	_ = r.mbx.Close()
}
