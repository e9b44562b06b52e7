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

// Package device implements the three standard proxy topologies of spec
// §4.10: Streamer (PULL→PUSH), Forwarder (SUB→PUB) and Queue
// (ROUTER↔DEALER), each relaying messages between two sockets it does
// not otherwise participate in. The source material drives a device's
// loop with poll() over both sockets' file descriptors; this port has no
// raw fd to poll; instead each relay direction gets its own goroutine
// blocked in Recv, which is exactly what poll() was waiting to unblock
// in the original anyway.
package device

import (
	"sync"
	"time"

	liberr "github.com/nabbar/xs/errors"
	libsock "github.com/nabbar/xs/socket"
)

// relay pumps messages from one socket to another, one logical message
// at a time, until from.Recv or to.Send fails. A failure due to the
// socket having been terminated (Stop closing both ends) ends the relay
// silently; any other failure is reported once on errs and ends it too.
func relay(from, to libsock.Socket, errs chan<- *liberr.Error) {
	for {
		msg, ferr := from.Recv(false)
		if ferr != nil {
			reportUnlessTerminated(ferr, errs)
			return
		}
		if sferr := to.Send(msg, false); sferr != nil {
			reportUnlessTerminated(sferr, errs)
			return
		}
	}
}

func reportUnlessTerminated(ferr *liberr.Error, errs chan<- *liberr.Error) {
	if liberr.Is(ferr, liberr.Terminated) {
		return
	}
	select {
	case errs <- ferr:
	default:
	}
}

// runner is the Start/Stop/Err bookkeeping shared by Streamer, Forwarder
// and Queue: each owns the pair of sockets it relays between (already
// bound or connected by the caller) and tears both down on Stop so every
// blocked Recv/Send unblocks with Terminated.
type runner struct {
	front, back libsock.Socket
	wg          sync.WaitGroup
	errs        chan *liberr.Error
	stopped     bool
	mu          sync.Mutex
}

func newRunner(front, back libsock.Socket) runner {
	return runner{front: front, back: back, errs: make(chan *liberr.Error, 2)}
}

// Stop closes both sockets with the given linger and waits for every
// relay goroutine to return.
func (r *runner) Stop(linger time.Duration) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.front.Close(linger)
	r.back.Close(linger)
	r.wg.Wait()
}

// Err drains one pending relay error, if any, non-blockingly. Devices
// run until stopped or a peer error occurs; callers that want to detect
// the latter should poll Err.
func (r *runner) Err() *liberr.Error {
	select {
	case e := <-r.errs:
		return e
	default:
		return nil
	}
}
