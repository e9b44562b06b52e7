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

package xsctx_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	liberr "github.com/nabbar/xs/errors"
	libmbx "github.com/nabbar/xs/mailbox"
	libown "github.com/nabbar/xs/own"
	libctx "github.com/nabbar/xs/xsctx"
)

func TestXSContext(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Context Suite")
}

// stubSocket is a minimal child of the ownership tree: it drains its
// own mailbox on a dedicated goroutine, applies Term/TermAck bookkeeping
// via own.Base, and hands itself to the reaper on creation, the same
// shape a real socket takes per spec §4.5.
type stubSocket struct {
	libown.Base
	mbx *libmbx.Mailbox
}

func newStubSocket(reaperMbx *libmbx.Mailbox) *stubSocket {
	s := &stubSocket{}
	m, _ := libmbx.New()
	s.mbx = m
	s.Init(s, m, nil)
	s.SetReaper(reaperMbx)
	go s.run()
	return s
}

func (s *stubSocket) run() {
	for {
		cmd, ok := s.mbx.Recv(-1)
		if !ok {
			return
		}
		s.ProcessCommand(cmd)
	}
}

func (s *stubSocket) ProcessCommand(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Term:
		s.HandleTerm(cmd.Linger)
	}
}

var _ = Describe("xsctx.Context", func() {
	It("chooses the least-loaded I/O thread", func() {
		ctx, err := libctx.New(2)
		Expect(err).ToNot(HaveOccurred())
		defer ctx.Term()

		r := ctx.ChooseIOThread(0)
		Expect(r).ToNot(BeNil())
	})

	It("binds and resolves an inproc endpoint exactly once", func() {
		ctx, err := libctx.New(1)
		Expect(err).ToNot(HaveOccurred())
		defer ctx.Term()

		s := &stubSocket{}
		m, _ := libmbx.New()
		s.mbx = m

		seq, ferr := ctx.BindEndpoint("inproc://a", s, m)
		Expect(ferr).To(BeNil())
		Expect(seq).To(Equal(uint64(1)))

		ep, ok := ctx.FindEndpoint("inproc://a")
		Expect(ok).To(BeTrue())
		Expect(ep.Dest).To(Equal(libmbx.Receiver(s)))

		_, ferr = ctx.BindEndpoint("inproc://a", s, m)
		Expect(ferr).ToNot(BeNil())
		Expect(liberr.Is(ferr, liberr.AddressInUse)).To(BeTrue())
	})

	It("Term returns once every registered socket has been reaped", func() {
		ctx, err := libctx.New(1)
		Expect(err).ToNot(HaveOccurred())

		s := newStubSocket(ctx.Reaper().Mailbox())
		ctx.RegisterSocket(s, s.mbx)

		termDone := make(chan struct{})
		go func() {
			ctx.Term()
			close(termDone)
		}()

		select {
		case <-termDone:
		case <-time.After(time.Second):
			Fail("Term never returned")
		}
	})
})
