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
	"net"

	liberr "github.com/nabbar/xs/errors"
)

// Listener accepts incoming connections for a bound tcp:// or ipc://
// endpoint, handing each one off to its own session/Engine pair so the
// façade's Bind can go on accepting further peers (spec §4.9a: a ROUTER
// or PULL socket bound to one address serves many connecting peers).
type Listener struct {
	scheme Scheme
	ln     net.Listener
}

// ListenTCP opens a TCP listener on address (host:port) and returns a
// Listener that spawns one tcp session per accepted connection.
func ListenTCP(address string) (*Listener, *liberr.Error) {
	return listen(SchemeTCP, "tcp", address)
}

// ListenIPC opens a Unix domain socket listener at path and returns a
// Listener that spawns one ipc session per accepted connection.
func ListenIPC(path string) (*Listener, *liberr.Error) {
	return listen(SchemeIPC, "unix", path)
}

func listen(scheme Scheme, network, address string) (*Listener, *liberr.Error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, liberr.Wrap(liberr.AddressInUse, err)
	}
	return &Listener{scheme: scheme, ln: ln}, nil
}

// Addr returns the listener's bound address, useful for ":0"-style
// ephemeral ports in tests.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections until the listener is closed, calling
// onAccept with a fresh Engine for each one. onAccept is expected to
// Plug the engine onto a newly created pipe end and attach it to the
// bound socket, mirroring how the façade wires an inbound peer.
func (l *Listener) Serve(onAccept func(Engine)) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return
		}
		onAccept(newSession(l.scheme, conn, nil))
	}
}

// Close stops Serve and closes the underlying listener.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// DialTCP connects out to a tcp:// address and returns an Engine that
// reconnects with bounded backoff if the connection later drops.
func DialTCP(address string) (Engine, *liberr.Error) {
	return dial(SchemeTCP, "tcp", address)
}

// DialIPC connects out to a Unix domain socket path and returns an
// Engine that reconnects with bounded backoff if the connection later
// drops.
func DialIPC(path string) (Engine, *liberr.Error) {
	return dial(SchemeIPC, "unix", path)
}

func dial(scheme Scheme, network, address string) (Engine, *liberr.Error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, liberr.Wrap(liberr.ConnectionRefused, err)
	}
	redial := func() (net.Conn, error) {
		return net.Dial(network, address)
	}
	return newSession(scheme, conn, redial), nil
}
