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

package socket_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libmbx "github.com/nabbar/xs/mailbox"
	libmsg "github.com/nabbar/xs/message"
	libpipe "github.com/nabbar/xs/pipe"
	libsock "github.com/nabbar/xs/socket"
)

func TestXSSocket(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Socket Suite")
}

func testOpts() libsock.Options {
	return libsock.Options{SndTimeo: time.Second, RcvTimeo: time.Second}
}

// bind wires a fresh pipe pair between two sockets' own mailboxes and
// delivers a Bind command to each side, the same handshake a transport
// engine or inproc connector performs once a connection is established
// (spec §4.3: "bound to a socket ... via a bind command").
func bind(a, b libsock.Socket, hwm uint64) {
	pa, pb := libpipe.NewPair(hwm)
	pa.Attach(a, mailboxOf(b), b)
	pb.Attach(b, mailboxOf(a), a)
	mailboxOf(a).Send(libmbx.Command{Kind: libmbx.Bind, Dest: a, Pipe: pa})
	mailboxOf(b).Send(libmbx.Command{Kind: libmbx.Bind, Dest: b, Pipe: pb})
}

type mailboxer interface {
	Mailbox() *libmbx.Mailbox
}

func mailboxOf(s libsock.Socket) *libmbx.Mailbox {
	return s.(mailboxer).Mailbox()
}

var _ = Describe("socket.Pair", func() {
	It("exchanges messages in both directions", func() {
		a, err := libsock.NewPair(testOpts())
		Expect(err).ToNot(HaveOccurred())
		b, err := libsock.NewPair(testOpts())
		Expect(err).ToNot(HaveOccurred())
		bind(a, b, 0)

		ferr := a.Send(libmsg.FromBytes([]byte("ping"), nil), false)
		Expect(ferr).To(BeNil())

		var got libmsg.Msg
		Eventually(func() bool {
			m, rerr := b.Recv(true)
			if rerr == nil {
				got = m
				return true
			}
			return false
		}, time.Second).Should(BeTrue())
		Expect(got.Bytes()).To(Equal([]byte("ping")))

		ferr = b.Send(libmsg.FromBytes([]byte("pong"), nil), false)
		Expect(ferr).To(BeNil())
		m, rerr := a.Recv(false)
		Expect(rerr).To(BeNil())
		Expect(m.Bytes()).To(Equal([]byte("pong")))
	})

	It("keeps its first peer and ignores a second bind", func() {
		a, _ := libsock.NewPair(testOpts())
		b, _ := libsock.NewPair(testOpts())
		c, _ := libsock.NewPair(testOpts())
		bind(a, b, 0)
		bind(a, c, 0)

		Expect(a.Send(libmsg.FromBytes([]byte("first-peer-only"), nil), false)).To(BeNil())

		var got libmsg.Msg
		Eventually(func() bool {
			m, rerr := b.Recv(true)
			if rerr == nil {
				got = m
				return true
			}
			return false
		}, time.Second).Should(BeTrue())
		Expect(got.Bytes()).To(Equal([]byte("first-peer-only")))

		_, ferr := c.Recv(true)
		Expect(ferr).ToNot(BeNil())
	})
})

var _ = Describe("socket.Push / socket.Pull", func() {
	It("delivers push messages to the pull peer", func() {
		push, err := libsock.NewPush(testOpts())
		Expect(err).ToNot(HaveOccurred())
		pull, err := libsock.NewPull(testOpts())
		Expect(err).ToNot(HaveOccurred())
		bind(push, pull, 0)

		Expect(push.Send(libmsg.FromBytes([]byte("a"), nil), false)).To(BeNil())
		Expect(push.Send(libmsg.FromBytes([]byte("b"), nil), false)).To(BeNil())

		m1, ferr := pull.Recv(false)
		Expect(ferr).To(BeNil())
		m2, ferr := pull.Recv(false)
		Expect(ferr).To(BeNil())
		Expect([][]byte{m1.Bytes(), m2.Bytes()}).To(ConsistOf([]byte("a"), []byte("b")))
	})

	It("refuses Recv on Push and Send on Pull", func() {
		push, _ := libsock.NewPush(testOpts())
		pull, _ := libsock.NewPull(testOpts())

		_, ferr := push.Recv(true)
		Expect(ferr).ToNot(BeNil())

		ferr = pull.Send(libmsg.FromBytes([]byte("x"), nil), true)
		Expect(ferr).ToNot(BeNil())
	})
})

var _ = Describe("socket.Pub / socket.Sub", func() {
	It("delivers only messages matching an active subscription", func() {
		pub, err := libsock.NewPub(testOpts())
		Expect(err).ToNot(HaveOccurred())
		sub, err := libsock.NewSub(testOpts())
		Expect(err).ToNot(HaveOccurred())
		bind(pub, sub, 0)

		sub.Subscribe("weather")
		// Subscription control frame travels upstream asynchronously.
		time.Sleep(50 * time.Millisecond)

		Expect(pub.Send(libmsg.FromBytes([]byte("sports.score"), nil), true)).To(BeNil())
		Expect(pub.Send(libmsg.FromBytes([]byte("weather.sunny"), nil), false)).To(BeNil())

		var got libmsg.Msg
		Eventually(func() bool {
			m, rerr := sub.Recv(true)
			if rerr == nil {
				got = m
				return true
			}
			return false
		}, time.Second).Should(BeTrue())
		Expect(got.Bytes()).To(Equal([]byte("weather.sunny")))
	})

	It("stops delivering after Unsubscribe", func() {
		pub, _ := libsock.NewPub(testOpts())
		sub, _ := libsock.NewSub(testOpts())
		bind(pub, sub, 0)

		sub.Subscribe("a")
		time.Sleep(50 * time.Millisecond)
		sub.Unsubscribe("a")
		time.Sleep(50 * time.Millisecond)

		Expect(pub.Send(libmsg.FromBytes([]byte("a.1"), nil), true)).To(BeNil())
		Consistently(func() bool {
			_, rerr := sub.Recv(true)
			return rerr == nil
		}, 100*time.Millisecond).Should(BeFalse())
	})
})

var _ = Describe("socket.Req / socket.Rep", func() {
	It("round-trips a request and its reply", func() {
		req, err := libsock.NewReq(testOpts())
		Expect(err).ToNot(HaveOccurred())
		rep, err := libsock.NewRep(testOpts())
		Expect(err).ToNot(HaveOccurred())
		bind(req, rep, 0)

		Expect(req.Send(libmsg.FromBytes([]byte("question"), nil), false)).To(BeNil())

		var question libmsg.Msg
		Eventually(func() bool {
			m, rerr := rep.Recv(true)
			if rerr == nil {
				question = m
				return true
			}
			return false
		}, time.Second).Should(BeTrue())
		Expect(question.Bytes()).To(Equal([]byte("question")))

		Expect(rep.Send(libmsg.FromBytes([]byte("answer"), nil), false)).To(BeNil())

		answer, ferr := req.Recv(false)
		Expect(ferr).To(BeNil())
		Expect(answer.Bytes()).To(Equal([]byte("answer")))
	})

	It("rejects a second Send before the matching Recv", func() {
		req, _ := libsock.NewReq(testOpts())
		rep, _ := libsock.NewRep(testOpts())
		bind(req, rep, 0)

		Expect(req.Send(libmsg.FromBytes([]byte("q1"), nil), false)).To(BeNil())
		ferr := req.Send(libmsg.FromBytes([]byte("q2"), nil), true)
		Expect(ferr).ToNot(BeNil())
	})

	It("rejects Rep.Send with no pending request", func() {
		rep, _ := libsock.NewRep(testOpts())
		ferr := rep.Send(libmsg.FromBytes([]byte("oops"), nil), true)
		Expect(ferr).ToNot(BeNil())
	})
})

var _ = Describe("socket.Dealer / socket.Router", func() {
	It("addresses a dealer by its auto-assigned identity", func() {
		router, err := libsock.NewRouter(testOpts())
		Expect(err).ToNot(HaveOccurred())
		dealer, err := libsock.NewDealer(testOpts())
		Expect(err).ToNot(HaveOccurred())
		bind(router, dealer, 0)

		Expect(dealer.Send(libmsg.FromBytes([]byte("hello"), nil), false)).To(BeNil())

		var identity, body libmsg.Msg
		Eventually(func() bool {
			m, rerr := router.Recv(true)
			if rerr == nil {
				identity = m
				return true
			}
			return false
		}, time.Second).Should(BeTrue())
		Expect(identity.More()).To(BeTrue())
		Expect(identity.Bytes()).ToNot(BeEmpty())

		body, ferr := router.Recv(false)
		Expect(ferr).To(BeNil())
		Expect(body.Bytes()).To(Equal([]byte("hello")))
		Expect(body.More()).To(BeFalse())

		Expect(router.Send(identity, false)).To(BeNil())
		Expect(router.Send(libmsg.FromBytes([]byte("reply"), nil), false)).To(BeNil())

		reply, ferr := dealer.Recv(false)
		Expect(ferr).To(BeNil())
		Expect(reply.Bytes()).To(Equal([]byte("reply")))
	})

	It("reports InvalidArgument for an unknown destination identity", func() {
		router, _ := libsock.NewRouter(testOpts())
		ferr := router.Send(libmsg.FromBytes([]byte("no-such-peer"), nil), true)
		Expect(ferr).ToNot(BeNil())
	})
})

var _ = Describe("socket.Surveyor / socket.Respondent", func() {
	It("collects a respondent's answer within the survey window", func() {
		surveyor, err := libsock.NewSurveyor(testOpts())
		Expect(err).ToNot(HaveOccurred())
		respondent, err := libsock.NewRespondent(testOpts())
		Expect(err).ToNot(HaveOccurred())
		bind(surveyor, respondent, 0)

		Expect(surveyor.Send(libmsg.FromBytes([]byte("are you there"), nil), false)).To(BeNil())

		var question libmsg.Msg
		Eventually(func() bool {
			m, rerr := respondent.Recv(true)
			if rerr == nil {
				question = m
				return true
			}
			return false
		}, time.Second).Should(BeTrue())
		Expect(question.Bytes()).To(Equal([]byte("are you there")))

		Expect(respondent.Send(libmsg.FromBytes([]byte("yes"), nil), false)).To(BeNil())

		answer, ferr := surveyor.Recv(false)
		Expect(ferr).To(BeNil())
		Expect(answer.Bytes()).To(Equal([]byte("yes")))
	})

	It("rejects Recv when no survey is open", func() {
		surveyor, _ := libsock.NewSurveyor(testOpts())
		_, ferr := surveyor.Recv(true)
		Expect(ferr).ToNot(BeNil())
	})
})
