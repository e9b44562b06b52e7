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

// Package xs is the public facade spec §6 describes: NewContext and
// Context.NewSocket are the only entry points an application needs,
// everything else (the ownership tree, the reactors, the pipes, the
// transport engines) stays internal exactly as libzmq keeps zmq_ctx_t
// and zmq_socket opaque.
package xs

import (
	liberr "github.com/nabbar/xs/errors"
	libreact "github.com/nabbar/xs/reactor"
	libctx "github.com/nabbar/xs/xsctx"
)

// Context is the application-facing handle onto an xsctx.Context: the
// I/O threads, the inproc registry, and the reaper. One process
// ordinarily has exactly one.
type Context struct {
	inner *libctx.Context
}

// NewContext creates a Context with ioThreads I/O threads already
// running (spec §6's zmq_ctx_new / zmq_init equivalent).
func NewContext(ioThreads int) (*Context, error) {
	inner, err := libctx.New(ioThreads)
	if err != nil {
		return nil, err
	}
	return &Context{inner: inner}, nil
}

// engineReactor picks an I/O thread for a transport engine's reconnect
// timers, honoring the same affinity-driven least-loaded policy a
// socket's own pipes are assigned to (spec §4.7).
func (c *Context) engineReactor(affinity uint64) *libreact.Reactor {
	return c.inner.ChooseIOThread(affinity)
}

// Term shuts the context down: every live socket is interrupted with
// Terminated, and Term blocks until the whole ownership tree — sockets,
// pipes, I/O threads — has finished tearing down (spec §4.7/§6).
func (c *Context) Term() {
	c.inner.Term()
}

// Terminated reports whether Term has run.
func (c *Context) Terminated() bool {
	return c.inner.Terminated()
}

// errTerminated is returned by Bind/Connect/NewSocket once the owning
// Context has started shutting down.
func errTerminated() *liberr.Error {
	return liberr.New(liberr.Terminated, "context terminated")
}
