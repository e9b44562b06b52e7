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

package xs

import (
	liberr "github.com/nabbar/xs/errors"
	libdev "github.com/nabbar/xs/device"
	libsock "github.com/nabbar/xs/socket"
)

// RunStreamer wires a PULL frontend to a PUSH backend (spec §4.10) and
// starts relaying. Both sockets must already be Bind/Connect'd to their
// endpoints; the returned Streamer's Stop closes both sockets with the
// given linger and waits for the relay goroutines to return.
func RunStreamer(frontend, backend *Socket) (*libdev.Streamer, *liberr.Error) {
	front, ok := frontend.impl.(*libsock.Pull)
	if !ok {
		return nil, liberr.New(liberr.InvalidArgument, "streamer frontend must be a PULL socket")
	}
	back, ok := backend.impl.(*libsock.Push)
	if !ok {
		return nil, liberr.New(liberr.InvalidArgument, "streamer backend must be a PUSH socket")
	}
	d := libdev.NewStreamer(front, back)
	d.Run()
	return d, nil
}

// RunForwarder wires a SUB frontend to a PUB backend (spec §4.10) and
// starts relaying.
func RunForwarder(frontend, backend *Socket) (*libdev.Forwarder, *liberr.Error) {
	front, ok := frontend.impl.(*libsock.Sub)
	if !ok {
		return nil, liberr.New(liberr.InvalidArgument, "forwarder frontend must be a SUB socket")
	}
	back, ok := backend.impl.(*libsock.Pub)
	if !ok {
		return nil, liberr.New(liberr.InvalidArgument, "forwarder backend must be a PUB socket")
	}
	d := libdev.NewForwarder(front, back)
	d.Run()
	return d, nil
}

// RunQueue wires a ROUTER frontend to a DEALER backend (spec §4.10) and
// starts relaying both directions, the classic load-balancing broker.
func RunQueue(frontend, backend *Socket) (*libdev.Queue, *liberr.Error) {
	front, ok := frontend.impl.(*libsock.Router)
	if !ok {
		return nil, liberr.New(liberr.InvalidArgument, "queue frontend must be a ROUTER socket")
	}
	back, ok := backend.impl.(*libsock.Dealer)
	if !ok {
		return nil, liberr.New(liberr.InvalidArgument, "queue backend must be a DEALER socket")
	}
	d := libdev.NewQueue(front, back)
	d.Run()
	return d, nil
}
