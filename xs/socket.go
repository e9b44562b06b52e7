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
	"sync"
	"time"

	liberr "github.com/nabbar/xs/errors"
	libmbx "github.com/nabbar/xs/mailbox"
	libmsg "github.com/nabbar/xs/message"
	libpipe "github.com/nabbar/xs/pipe"
	libreact "github.com/nabbar/xs/reactor"
	libsock "github.com/nabbar/xs/socket"
	libtp "github.com/nabbar/xs/transport"
)

// Socket is the façade's handle onto one of the pattern types in
// package socket, adding the wire-level Bind/Connect spec §6 exposes
// (zmq_bind/zmq_connect) on top of the pattern's pipe-level API.
type Socket struct {
	ctx  *Context
	impl libsock.Socket

	mu           sync.Mutex
	listeners    []*libtp.Listener
	engines      []libtp.Engine
	lastEndpoint string
}

// mailboxer is satisfied by every concrete pattern type through the
// embedded socket.Base, giving the façade a place to deliver Bind
// commands without exporting Mailbox on the socket.Socket interface
// itself (spec §9 keeps that interface to the pattern capability set).
type mailboxer interface {
	Mailbox() *libmbx.Mailbox
}

// optioner is satisfied by every concrete pattern type through
// socket.Base, exposing the common option block without widening
// socket.Socket.
type optioner interface {
	SetOption(name string, value any) *liberr.Error
	Options() libsock.Options
}

// wireEngine is what attachEngine needs from a transport.Engine: the
// engine's own mailbox, so the façade can cross-attach a fresh pipe
// pair the same way a socket's own pipes are attached.
type wireEngine interface {
	libtp.Engine
	Mailbox() *libmbx.Mailbox
}

// NewSocket builds a Socket of the given pattern, registering it with
// ctx's ownership tree (spec §4.7's "every socket is a child of the
// Context"). The socket is unbound and unconnected until Bind or
// Connect is called.
func NewSocket(ctx *Context, kind libsock.Type, opt libsock.Options) (*Socket, error) {
	if ctx.Terminated() {
		return nil, errTerminated()
	}

	impl, err := newPattern(kind, opt)
	if err != nil {
		return nil, err
	}

	ctx.inner.RegisterSocket(impl, impl.(mailboxer).Mailbox())
	return &Socket{ctx: ctx, impl: impl}, nil
}

func newPattern(kind libsock.Type, opt libsock.Options) (libsock.Socket, error) {
	switch kind {
	case libsock.TypePair:
		return libsock.NewPair(opt)
	case libsock.TypePub:
		return libsock.NewPub(opt)
	case libsock.TypeSub:
		return libsock.NewSub(opt)
	case libsock.TypeXPub:
		return libsock.NewXPub(opt)
	case libsock.TypeXSub:
		return libsock.NewXSub(opt)
	case libsock.TypePush:
		return libsock.NewPush(opt)
	case libsock.TypePull:
		return libsock.NewPull(opt)
	case libsock.TypeReq:
		return libsock.NewReq(opt)
	case libsock.TypeRep:
		return libsock.NewRep(opt)
	case libsock.TypeDealer:
		return libsock.NewDealer(opt)
	case libsock.TypeRouter:
		return libsock.NewRouter(opt)
	case libsock.TypeSurveyor:
		return libsock.NewSurveyor(opt)
	case libsock.TypeRespondent:
		return libsock.NewRespondent(opt)
	case libsock.TypeXSurveyor:
		return libsock.NewXSurveyor(opt)
	case libsock.TypeXRespondent:
		return libsock.NewXRespondent(opt)
	default:
		return nil, liberr.New(liberr.InvalidArgument, "unrecognized socket type %d", kind)
	}
}

// Type returns the socket's pattern.
func (s *Socket) Type() libsock.Type {
	return s.impl.Type()
}

// Send implements spec §6's zmq_send.
func (s *Socket) Send(msg libmsg.Msg, dontwait bool) *liberr.Error {
	return s.impl.Send(msg, dontwait)
}

// Recv implements spec §6's zmq_recv.
func (s *Socket) Recv(dontwait bool) (libmsg.Msg, *liberr.Error) {
	return s.impl.Recv(dontwait)
}

// SetOption implements spec §6's zmq_setsockopt. SUBSCRIBE/UNSUBSCRIBE
// are only meaningful on a SUB socket; every other recognized name goes
// through the common option block every pattern shares.
func (s *Socket) SetOption(name string, value any) *liberr.Error {
	switch name {
	case "SUBSCRIBE", "UNSUBSCRIBE":
		sub, ok := s.impl.(*libsock.Sub)
		if !ok {
			return liberr.New(liberr.NotSupported, "%s is only valid on a SUB socket", name)
		}
		topic, ok := value.(string)
		if !ok {
			return liberr.New(liberr.InvalidArgument, "%s expects a string topic", name)
		}
		if name == "SUBSCRIBE" {
			sub.Subscribe(topic)
		} else {
			sub.Unsubscribe(topic)
		}
		return nil
	default:
		return s.impl.(optioner).SetOption(name, value)
	}
}

// GetOption implements spec §6's zmq_getsockopt for the common option
// block (HWM, AFFINITY, IDENTITY, LINGER, SNDTIMEO, RCVTIMEO).
func (s *Socket) GetOption(name string) (any, *liberr.Error) {
	opt := s.impl.(optioner).Options()
	switch name {
	case "HWM":
		return opt.HWM, nil
	case "AFFINITY":
		return opt.Affinity, nil
	case "IDENTITY":
		return opt.Identity, nil
	case "LINGER":
		return opt.Linger, nil
	case "SNDTIMEO":
		return opt.SndTimeo, nil
	case "RCVTIMEO":
		return opt.RcvTimeo, nil
	case "LAST_ENDPOINT":
		ep, _ := s.LastEndpoint()
		return ep, nil
	default:
		return nil, liberr.New(liberr.InvalidArgument, "unrecognized option %q", name)
	}
}

// Bind opens uri for incoming peers (spec §6's zmq_bind): inproc
// registers this socket in the Context's endpoint table for a later
// same-process Connect to find; tcp/ipc start a listener that attaches
// a fresh pipe for every accepted connection.
func (s *Socket) Bind(uri string) *liberr.Error {
	if s.ctx.Terminated() {
		return errTerminated()
	}
	scheme, addr, ferr := libtp.ParseURI(uri)
	if ferr != nil {
		return ferr
	}

	switch scheme {
	case libtp.SchemeInproc:
		_, ferr = s.ctx.inner.BindEndpoint(uri, s.impl, s.mbx())
		if ferr == nil {
			s.setLastEndpoint(uri)
		}
		return ferr
	case libtp.SchemeTCP:
		return s.bindWire(string(scheme), libtp.ListenTCP(addr))
	case libtp.SchemeIPC:
		return s.bindWire(string(scheme), libtp.ListenIPC(addr))
	default:
		return liberr.New(liberr.InvalidArgument, "unsupported bind scheme %q", scheme)
	}
}

func (s *Socket) bindWire(scheme string, ln *libtp.Listener, ferr *liberr.Error) *liberr.Error {
	if ferr != nil {
		return ferr
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()
	s.setLastEndpoint(scheme + "://" + ln.Addr().String())

	go ln.Serve(func(eng libtp.Engine) {
		s.plugEngine(eng)
	})
	return nil
}

func (s *Socket) setLastEndpoint(uri string) {
	s.mu.Lock()
	s.lastEndpoint = uri
	s.mu.Unlock()
}

// LastEndpoint returns the actual endpoint a wildcard Bind resolved to
// (e.g. "tcp://127.0.0.1:54321" after binding "tcp://127.0.0.1:0"),
// matching zmq's ZMQ_LAST_ENDPOINT getsockopt.
func (s *Socket) LastEndpoint() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEndpoint, s.lastEndpoint != ""
}

// Connect reaches a bound peer (spec §6's zmq_connect): inproc looks
// the name up in the Context's endpoint table and attaches a pipe pair
// directly; tcp/ipc dial the address and plug the resulting transport
// engine, which redials with a bounded back-off if the connection is
// later lost (spec §4.9a).
func (s *Socket) Connect(uri string) *liberr.Error {
	if s.ctx.Terminated() {
		return errTerminated()
	}
	scheme, addr, ferr := libtp.ParseURI(uri)
	if ferr != nil {
		return ferr
	}

	switch scheme {
	case libtp.SchemeInproc:
		ep, ok := s.ctx.inner.FindEndpoint(uri)
		if !ok {
			return liberr.New(liberr.AddressNotAvailable, "no inproc endpoint bound at %s", uri)
		}
		pa, pb := libpipe.NewPair(s.hwm())
		pa.Attach(s.impl, ep.Mbx, ep.Dest)
		pb.Attach(ep.Dest, s.mbx(), s.impl)
		s.mbx().Send(libmbx.Command{Kind: libmbx.Bind, Dest: s.impl, Pipe: pa})
		ep.Mbx.Send(libmbx.Command{Kind: libmbx.Bind, Dest: ep.Dest, Pipe: pb})
		return nil
	case libtp.SchemeTCP:
		eng, derr := libtp.DialTCP(addr)
		if derr != nil {
			return derr
		}
		s.plugEngine(eng)
		return nil
	case libtp.SchemeIPC:
		eng, derr := libtp.DialIPC(addr)
		if derr != nil {
			return derr
		}
		s.plugEngine(eng)
		return nil
	default:
		return liberr.New(liberr.InvalidArgument, "unsupported connect scheme %q", scheme)
	}
}

// plugEngine cross-attaches a fresh pipe pair between this socket and a
// transport engine: the socket's end is delivered through a Bind
// command like any other pipe (so socket.Base registers the extra
// term-ack it waits on); the engine's end is handed straight to Plug
// since an engine has no mailbox-driven Bind handler of its own.
func (s *Socket) plugEngine(eng libtp.Engine) {
	we := eng.(wireEngine)

	pa, pb := libpipe.NewPair(s.hwm())
	pa.Attach(s.impl, we.Mailbox(), we)
	pb.Attach(we, s.mbx(), s.impl)
	s.mbx().Send(libmbx.Command{Kind: libmbx.Bind, Dest: s.impl, Pipe: pa})

	we.Plug(engineCtx{r: s.ctx.engineReactor(s.optAffinity())}, pb)

	s.mu.Lock()
	s.engines = append(s.engines, eng)
	s.mu.Unlock()
}

func (s *Socket) mbx() *libmbx.Mailbox {
	return s.impl.(mailboxer).Mailbox()
}

func (s *Socket) hwm() uint64 {
	return s.impl.(optioner).Options().HWM
}

func (s *Socket) optAffinity() uint64 {
	return s.impl.(optioner).Options().Affinity
}

// Close implements spec §6's zmq_close: every listener is closed,
// every transport engine is terminated, the socket's own pipes run the
// three-phase teardown via Close(linger), and the socket is removed
// from the Context's live set right away; Close does not wait for the
// teardown to complete.
func (s *Socket) Close(linger time.Duration) {
	s.mu.Lock()
	listeners := s.listeners
	engines := s.engines
	s.mu.Unlock()

	for _, ln := range listeners {
		_ = ln.Close()
	}
	for _, eng := range engines {
		eng.Terminate()
	}

	s.impl.Close(linger)
	s.ctx.inner.DestroySocket(s.impl)
}

// engineCtx is the minimal transport.EngineContext a façade-owned
// engine needs: the I/O thread its reconnect timers are armed on.
type engineCtx struct {
	r *libreact.Reactor
}

func (e engineCtx) Reactor() *libreact.Reactor {
	return e.r
}
