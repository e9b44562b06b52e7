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

// Package transport implements the networked half of bind/connect: the
// inproc path stays inside xsctx's endpoint registry (there is no wire
// format to speak), but tcp:// and ipc:// each frame messages over a
// net.Conn and relay them into a *pipe.Pipe the local socket was bound
// to, exactly the role spec §4.9a assigns to "the transport engine".
//
// Each engine wraps a goroutine pair (one reading the wire, one draining
// the pipe to the wire) rather than registering a raw file descriptor
// with the reactor: net.Conn already runs under the Go runtime's own
// netpoller, so there is nothing for this package to hand epoll/kqueue
// the way the source material's io_thread did. What the reactor still
// gives an engine is a timer for bounded exponential back-off on
// reconnect (package reactor's Sink.TimerEvent), which is why every
// engine also implements reactor.Sink.
package transport

import (
	"strings"

	liberr "github.com/nabbar/xs/errors"
	libpipe "github.com/nabbar/xs/pipe"
	libreact "github.com/nabbar/xs/reactor"
)

// Scheme names a recognized bind/connect URI scheme.
type Scheme string

const (
	SchemeInproc Scheme = "inproc"
	SchemeTCP    Scheme = "tcp"
	SchemeIPC    Scheme = "ipc"
)

// Engine is one end of a networked transport session, plugged onto the
// pipe end a bind or connect call created for the local socket (spec
// §4.9a).
type Engine interface {
	// Plug starts the engine against p, the pipe end this engine owns
	// (the far end is already bound to the local socket). ctx gives the
	// engine a reactor to arm reconnect timers on.
	Plug(ctx EngineContext, p *libpipe.Pipe)

	// Terminate stops the engine's goroutines and closes its connection
	// or listener, without waiting for the pipe's own term handshake —
	// the caller (the façade's Socket.Close) drives that separately via
	// p.Terminate.
	Terminate()
}

// EngineContext is what Plug needs from whatever owns the engine: a
// reactor to register reconnect timers on, matching the "an engine is
// attached to an I/O thread" relationship of spec §4.6/§4.9a.
type EngineContext interface {
	Reactor() *libreact.Reactor
}

// ParseURI splits a bind/connect address into its scheme and the
// scheme-specific remainder, rejecting the two libxs transports this
// port does not implement (pgm, epgm — spec §9/§6 scopes multicast
// transports out) with ProtocolNotSupported rather than
// InvalidArgument, since the syntax is well-formed and the scheme is a
// real one, just not one this library speaks.
func ParseURI(uri string) (scheme Scheme, address string, ferr *liberr.Error) {
	i := strings.Index(uri, "://")
	if i < 0 {
		return "", "", liberr.New(liberr.InvalidArgument, "malformed endpoint URI %q: missing scheme", uri)
	}
	rawScheme, addr := uri[:i], uri[i+3:]

	switch Scheme(rawScheme) {
	case SchemeInproc:
		return SchemeInproc, addr, nil
	case SchemeTCP:
		if addr == "" {
			return "", "", liberr.New(liberr.InvalidArgument, "tcp endpoint URI %q has no address", uri)
		}
		return SchemeTCP, addr, nil
	case SchemeIPC:
		if addr == "" {
			return "", "", liberr.New(liberr.InvalidArgument, "ipc endpoint URI %q has no path", uri)
		}
		return SchemeIPC, addr, nil
	case "pgm", "epgm":
		return "", "", liberr.New(liberr.ProtocolNotSupported, "multicast transport %q is not implemented", rawScheme)
	default:
		return "", "", liberr.New(liberr.InvalidArgument, "unrecognized endpoint scheme %q", rawScheme)
	}
}
