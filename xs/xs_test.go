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

package xs_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libmsg "github.com/nabbar/xs/message"
	libsock "github.com/nabbar/xs/socket"
	xs "github.com/nabbar/xs/xs"
)

func TestXS(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "XS Facade Suite")
}

func opts() libsock.Options {
	return libsock.Options{SndTimeo: 2 * time.Second, RcvTimeo: 2 * time.Second}
}

var _ = Describe("xs.Context/Socket over inproc", func() {
	It("delivers a message from a PUSH bound to a PULL connected by name", func() {
		ctx, err := xs.NewContext(1)
		Expect(err).ToNot(HaveOccurred())
		defer ctx.Term()

		push, err := xs.NewSocket(ctx, libsock.TypePush, opts())
		Expect(err).ToNot(HaveOccurred())
		pull, err := xs.NewSocket(ctx, libsock.TypePull, opts())
		Expect(err).ToNot(HaveOccurred())

		Expect(pull.Bind("inproc://facade-test")).To(BeNil())
		Expect(push.Connect("inproc://facade-test")).To(BeNil())

		Expect(push.Send(libmsg.FromBytes([]byte("hi"), nil), false)).To(BeNil())

		m, rerr := pull.Recv(false)
		Expect(rerr).To(BeNil())
		Expect(m.Bytes()).To(Equal([]byte("hi")))
	})

	It("rejects connecting to a name nothing has bound", func() {
		ctx, err := xs.NewContext(1)
		Expect(err).ToNot(HaveOccurred())
		defer ctx.Term()

		push, err := xs.NewSocket(ctx, libsock.TypePush, opts())
		Expect(err).ToNot(HaveOccurred())

		ferr := push.Connect("inproc://nobody-home")
		Expect(ferr).ToNot(BeNil())
	})
})

var _ = Describe("xs.Context/Socket over tcp", func() {
	It("round-trips a message over a real TCP connection established via Bind/Connect", func() {
		ctx, err := xs.NewContext(1)
		Expect(err).ToNot(HaveOccurred())
		defer ctx.Term()

		server, err := xs.NewSocket(ctx, libsock.TypePull, opts())
		Expect(err).ToNot(HaveOccurred())
		client, err := xs.NewSocket(ctx, libsock.TypePush, opts())
		Expect(err).ToNot(HaveOccurred())

		Expect(server.Bind("tcp://127.0.0.1:0")).To(BeNil())
		addr, ok := server.LastEndpoint()
		Expect(ok).To(BeTrue())

		Expect(client.Connect(addr)).To(BeNil())

		Expect(client.Send(libmsg.FromBytes([]byte("over-the-wire"), nil), false)).To(BeNil())

		var got libmsg.Msg
		Eventually(func() bool {
			m, rerr := server.Recv(true)
			if rerr == nil {
				got = m
				return true
			}
			return false
		}, 3*time.Second, 10*time.Millisecond).Should(BeTrue())
		Expect(got.Bytes()).To(Equal([]byte("over-the-wire")))
	})
})

var _ = Describe("xs.Context/Socket over ipc", func() {
	It("round-trips a message over a real Unix domain socket established via Bind/Connect", func() {
		ctx, err := xs.NewContext(1)
		Expect(err).ToNot(HaveOccurred())
		defer ctx.Term()

		sockPath := filepath.Join(GinkgoT().TempDir(), fmt.Sprintf("xs-facade-%d.sock", time.Now().UnixNano()))

		server, err := xs.NewSocket(ctx, libsock.TypePull, opts())
		Expect(err).ToNot(HaveOccurred())
		client, err := xs.NewSocket(ctx, libsock.TypePush, opts())
		Expect(err).ToNot(HaveOccurred())

		Expect(server.Bind("ipc://" + sockPath)).To(BeNil())
		Expect(client.Connect("ipc://" + sockPath)).To(BeNil())

		Expect(client.Send(libmsg.FromBytes([]byte("over-the-socket"), nil), false)).To(BeNil())

		var got libmsg.Msg
		Eventually(func() bool {
			m, rerr := server.Recv(true)
			if rerr == nil {
				got = m
				return true
			}
			return false
		}, 3*time.Second, 10*time.Millisecond).Should(BeTrue())
		Expect(got.Bytes()).To(Equal([]byte("over-the-socket")))
	})
})

var _ = Describe("xs.Poll", func() {
	It("reports PollIn once a pending message is readable", func() {
		ctx, err := xs.NewContext(1)
		Expect(err).ToNot(HaveOccurred())
		defer ctx.Term()

		push, err := xs.NewSocket(ctx, libsock.TypePush, opts())
		Expect(err).ToNot(HaveOccurred())
		pull, err := xs.NewSocket(ctx, libsock.TypePull, opts())
		Expect(err).ToNot(HaveOccurred())

		Expect(pull.Bind("inproc://poll-test")).To(BeNil())
		Expect(push.Connect("inproc://poll-test")).To(BeNil())

		items := []xs.PollItem{{Socket: pull, Events: xs.PollIn}}
		n, perr := xs.Poll(items, 0)
		Expect(perr).To(BeNil())
		Expect(n).To(Equal(0))
		Expect(items[0].Revents).To(Equal(xs.PollEvent(0)))

		Expect(push.Send(libmsg.FromBytes([]byte("ready"), nil), false)).To(BeNil())

		n, perr = xs.Poll(items, time.Second)
		Expect(perr).To(BeNil())
		Expect(n).To(Equal(1))
		Expect(items[0].Revents & xs.PollIn).To(Equal(xs.PollIn))
	})
})
