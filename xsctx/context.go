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

// Package xsctx implements the Context of spec §4.7: the top-level
// registry of I/O threads, in-process endpoints, and live sockets, with
// the reaper-backed shutdown semaphore that Term waits on.
package xsctx

import (
	"sync"

	liberr "github.com/nabbar/xs/errors"
	libmbx "github.com/nabbar/xs/mailbox"
	libown "github.com/nabbar/xs/own"
	libreact "github.com/nabbar/xs/reactor"
)

// Context owns every I/O thread, the inproc endpoint registry, and the
// reaper; it is the root of the ownership tree (spec §4.5/§4.7).
type Context struct {
	libown.Base

	mu        sync.Mutex
	ioThreads []*libreact.Reactor
	endpoints map[string]*Endpoint
	seq       uint64
	sockets   map[libmbx.Receiver]struct{}

	reaper *libown.Reaper

	terminated bool
	termOnce   sync.Once
}

// Endpoint is a registered inproc binder: a name paired with the bound
// socket's mailbox/Receiver and a sequence number so a connect that
// races a later bind on the same name can still tell which bind it
// paired with (spec §3/§4.7).
type Endpoint struct {
	Name string
	Dest libmbx.Receiver
	Mbx  *libmbx.Mailbox
	Seq  uint64
}

// New creates a Context with n I/O threads and one reaper thread, all
// already running (spec §4.7: "creates N I/O threads plus one reaper
// thread at init").
func New(ioThreads int) (*Context, error) {
	if ioThreads < 1 {
		ioThreads = 1
	}
	reaper, err := libown.NewReaper()
	if err != nil {
		return nil, err
	}

	c := &Context{
		endpoints: make(map[string]*Endpoint),
		sockets:   make(map[libmbx.Receiver]struct{}),
		reaper:    reaper,
	}

	rootMbx, err := libmbx.New()
	if err != nil {
		return nil, err
	}
	c.Init(c, rootMbx, nil)

	for i := 0; i < ioThreads; i++ {
		r, rerr := libreact.New()
		if rerr != nil {
			return nil, rerr
		}
		c.ioThreads = append(c.ioThreads, r)
		go r.Run()
	}
	go reaper.Run()
	go c.drain(rootMbx)

	return c, nil
}

// ProcessCommand implements mailbox.Receiver for the Context's own
// root mailbox: Own/TermAck bookkeeping from direct children, plus the
// Term command Terminate sends to itself since the Context (the tree
// root) has no parent to route a TermReq through.
func (c *Context) ProcessCommand(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Own:
		c.HandleOwn(cmd.Pipe.(*libmbx.Mailbox), cmd.Obj)
	case libmbx.Term:
		c.HandleTerm(cmd.Linger)
	case libmbx.TermAck:
		c.HandleTermAck()
	}
}

func (c *Context) drain(mbx *libmbx.Mailbox) {
	for {
		cmd, ok := mbx.Recv(-1)
		if !ok {
			return
		}
		if cmd.Kind == libmbx.Done {
			return
		}
		c.ProcessCommand(cmd)
	}
}

// ChooseIOThread returns the least-loaded I/O thread. affinityMask, if
// non-zero, restricts the choice to threads whose bit (1<<index) is
// set, matching spec §4.7's "choose_io_thread(affinity_mask)".
func (c *Context) ChooseIOThread(affinityMask uint64) *libreact.Reactor {
	c.mu.Lock()
	defer c.mu.Unlock()

	var best *libreact.Reactor
	var bestLoad int32 = -1
	for i, r := range c.ioThreads {
		if affinityMask != 0 && affinityMask&(1<<uint(i)) == 0 {
			continue
		}
		if bestLoad < 0 || r.Load() < bestLoad {
			best = r
			bestLoad = r.Load()
		}
	}
	return best
}

// BindEndpoint registers name (e.g. "inproc://a") against a binder
// socket's Receiver/mailbox, returning the sequence number assigned.
// Binding a name that is already bound fails with AddressInUse.
func (c *Context) BindEndpoint(name string, dest libmbx.Receiver, mbx *libmbx.Mailbox) (uint64, *liberr.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.endpoints[name]; exists {
		return 0, liberr.New(liberr.AddressInUse, "endpoint already bound: %s", name)
	}
	c.seq++
	c.endpoints[name] = &Endpoint{Name: name, Dest: dest, Mbx: mbx, Seq: c.seq}
	return c.seq, nil
}

// FindEndpoint resolves a previously bound inproc name, used by
// connect("inproc://…") (spec §4.7).
func (c *Context) FindEndpoint(name string) (*Endpoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ep, ok := c.endpoints[name]
	return ep, ok
}

// UnbindEndpoint removes a previously bound inproc name.
func (c *Context) UnbindEndpoint(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.endpoints, name)
}

// RegisterSocket adds dest to the set of live sockets and, through
// LaunchChild, to the ownership tree rooted at this Context.
func (c *Context) RegisterSocket(dest libmbx.Receiver, mbx *libmbx.Mailbox) {
	c.mu.Lock()
	c.sockets[dest] = struct{}{}
	c.mu.Unlock()
	c.LaunchChild(mbx, dest)
}

// DestroySocket removes a socket from the live set. xs.Socket.Close
// calls it right after starting the socket's teardown, without waiting
// for that teardown to finish.
func (c *Context) DestroySocket(dest libmbx.Receiver) {
	c.mu.Lock()
	delete(c.sockets, dest)
	c.mu.Unlock()
}

// Reaper returns the Context's reaper, whose mailbox sockets hand
// themselves to on close (spec §4.5).
func (c *Context) Reaper() *libown.Reaper {
	return c.reaper
}

// Term interrupts every live socket with Terminated (ETERM) and blocks
// until every owned object — sockets, their pipes, the I/O threads —
// has acknowledged teardown, mirroring spec §4.7's
// "waits on a semaphore released when every owned object has finished
// reaping".
func (c *Context) Term() {
	c.termOnce.Do(func() {
		c.mu.Lock()
		c.terminated = true
		c.mu.Unlock()

		c.Terminate(0)
		c.reaper.Wait()

		for _, r := range c.ioThreads {
			r.Stop()
		}
	})
}

// Terminated reports whether Term has been called; operations entered
// after this point must fail fast with the Terminated error code.
func (c *Context) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}
