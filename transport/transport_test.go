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

package transport_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	liberr "github.com/nabbar/xs/errors"
	libmbx "github.com/nabbar/xs/mailbox"
	libmsg "github.com/nabbar/xs/message"
	libpipe "github.com/nabbar/xs/pipe"
	libreact "github.com/nabbar/xs/reactor"
	libtp "github.com/nabbar/xs/transport"
)

func TestTransport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Transport Suite")
}

// fixtureCtx is the minimal EngineContext a test needs: a running
// reactor to hand reconnect timers to.
type fixtureCtx struct {
	r *libreact.Reactor
}

func (f fixtureCtx) Reactor() *libreact.Reactor { return f.r }

func newFixtureCtx() fixtureCtx {
	r, err := libreact.New()
	Expect(err).ToNot(HaveOccurred())
	go r.Run()
	return fixtureCtx{r: r}
}

// endpoint stands in for the local socket half of a bind/connect pair:
// it owns one Pipe end and a mailbox, and on ActivateRead drains every
// message the engine delivered into a channel the test can assert on.
type endpoint struct {
	mbx  *libmbx.Mailbox
	p    *libpipe.Pipe
	recv chan libmsg.Msg
}

func newEndpoint() *endpoint {
	m, _ := libmbx.New()
	e := &endpoint{mbx: m, recv: make(chan libmsg.Msg, 16)}
	go e.run()
	return e
}

func (e *endpoint) run() {
	for {
		cmd, ok := e.mbx.Recv(-1)
		if !ok {
			return
		}
		e.ProcessCommand(cmd)
	}
}

func (e *endpoint) ProcessCommand(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.ActivateRead:
		for {
			m, ok := e.p.Read()
			if !ok {
				break
			}
			e.recv <- m
		}
	case libmbx.ActivateWrite:
		e.p.OnActivateWrite(cmd.ReadCount)
	}
}

// wireEngine is what a session additionally exposes beyond the bare
// Engine interface: enough to attach a local pipe end's notifications
// to it, the same way a socket learns its peer's mailbox at Bind time.
type wireEngine interface {
	libtp.Engine
	libmbx.Receiver
	Mailbox() *libmbx.Mailbox
}

// plugEndpoint attaches a pipe pair between an endpoint and a transport
// engine, mirroring how a bound/connected socket hands its remote-facing
// pipe end to a transport engine instead of another in-process object.
// Both ends need Attach: the endpoint's end so the engine's writes wake
// it, and the engine's end so the endpoint's writes wake the engine.
func plugEndpoint(ctx libtp.EngineContext, e *endpoint, eng libtp.Engine, enginePipe *libpipe.Pipe) {
	w := eng.(wireEngine)
	e.p.Attach(e, w.Mailbox(), w)
	enginePipe.Attach(w, e.mbx, e)
	eng.Plug(ctx, enginePipe)
}

var _ = Describe("ParseURI", func() {
	It("splits scheme and address", func() {
		scheme, addr, ferr := libtp.ParseURI("tcp://127.0.0.1:9000")
		Expect(ferr).To(BeNil())
		Expect(scheme).To(Equal(libtp.SchemeTCP))
		Expect(addr).To(Equal("127.0.0.1:9000"))
	})

	It("rejects pgm and epgm as not supported", func() {
		_, _, ferr := libtp.ParseURI("pgm://239.0.0.1:9000")
		Expect(ferr).ToNot(BeNil())
		Expect(liberr.Is(ferr, liberr.ProtocolNotSupported)).To(BeTrue())
	})

	It("rejects an address-less tcp URI", func() {
		_, _, ferr := libtp.ParseURI("tcp://")
		Expect(ferr).ToNot(BeNil())
		Expect(liberr.Is(ferr, liberr.InvalidArgument)).To(BeTrue())
	})

	It("rejects an unknown scheme", func() {
		_, _, ferr := libtp.ParseURI("carrier-pigeon://loft")
		Expect(ferr).ToNot(BeNil())
		Expect(liberr.Is(ferr, liberr.InvalidArgument)).To(BeTrue())
	})
})

var _ = Describe("tcp transport", func() {
	It("carries a message from a dialed socket to a listening one over a real net.Listen/net.Dial pair", func() {
		ln, ferr := libtp.ListenTCP("127.0.0.1:0")
		Expect(ferr).To(BeNil())
		defer ln.Close()

		ctx := newFixtureCtx()

		server := newEndpoint()
		accepted := make(chan struct{})
		go ln.Serve(func(eng libtp.Engine) {
			a, b := libpipe.NewPair(0)
			server.p = a
			plugEndpoint(ctx, server, eng, b)
			close(accepted)
		})

		eng, ferr := libtp.DialTCP(ln.Addr().String())
		Expect(ferr).To(BeNil())

		client := newEndpoint()
		a, b := libpipe.NewPair(0)
		client.p = a
		plugEndpoint(ctx, client, eng, b)

		Eventually(accepted, time.Second).Should(BeClosed())

		msg, _ := libmsg.Sized(5)
		copy(msg.Bytes(), []byte("hello"))
		client.p.Write(msg)

		var got libmsg.Msg
		Eventually(server.recv, 2*time.Second).Should(Receive(&got))
		Expect(string(got.Bytes())).To(Equal("hello"))
	})
})

var _ = Describe("ipc transport", func() {
	It("carries a message over a real Unix domain socket listener/dialer pair", func() {
		sockPath := filepath.Join(GinkgoT().TempDir(), fmt.Sprintf("xs-test-%d.sock", time.Now().UnixNano()))

		ln, ferr := libtp.ListenIPC(sockPath)
		Expect(ferr).To(BeNil())
		defer ln.Close()

		ctx := newFixtureCtx()

		server := newEndpoint()
		accepted := make(chan struct{})
		go ln.Serve(func(eng libtp.Engine) {
			a, b := libpipe.NewPair(0)
			server.p = a
			plugEndpoint(ctx, server, eng, b)
			close(accepted)
		})

		eng, ferr := libtp.DialIPC(sockPath)
		Expect(ferr).To(BeNil())

		client := newEndpoint()
		a, b := libpipe.NewPair(0)
		client.p = a
		plugEndpoint(ctx, client, eng, b)

		Eventually(accepted, time.Second).Should(BeClosed())

		msg, _ := libmsg.Sized(3)
		copy(msg.Bytes(), []byte("ipc"))
		client.p.Write(msg)

		var got libmsg.Msg
		Eventually(server.recv, 2*time.Second).Should(Receive(&got))
		Expect(string(got.Bytes())).To(Equal("ipc"))
	})
})
