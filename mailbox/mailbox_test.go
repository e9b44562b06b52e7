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

package mailbox_test

import (
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libmbx "github.com/nabbar/xs/mailbox"
)

func TestXSMailbox(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Mailbox Suite")
}

var _ = Describe("mailbox.Mailbox", func() {
	It("times out when empty", func() {
		m, err := libmbx.New()
		Expect(err).ToNot(HaveOccurred())
		defer m.Close()

		_, ok := m.Recv(20 * time.Millisecond)
		Expect(ok).To(BeFalse())
	})

	It("delivers commands in order", func() {
		m, err := libmbx.New()
		Expect(err).ToNot(HaveOccurred())
		defer m.Close()

		m.Send(libmbx.Command{Kind: libmbx.Bind})
		m.Send(libmbx.Command{Kind: libmbx.Stop})

		c1, ok := m.Recv(time.Second)
		Expect(ok).To(BeTrue())
		Expect(c1.Kind).To(Equal(libmbx.Bind))

		c2, ok := m.Recv(time.Second)
		Expect(ok).To(BeTrue())
		Expect(c2.Kind).To(Equal(libmbx.Stop))
	})

	It("spills into overflow once the channel is saturated and still delivers everything", func() {
		m, err := libmbx.New()
		Expect(err).ToNot(HaveOccurred())
		defer m.Close()

		const n = 500
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				m.Send(libmbx.Command{Kind: libmbx.ActivateRead, ReadCount: uint64(i)})
			}
		}()
		wg.Wait()

		got := 0
		for got < n {
			cmds := m.Drain()
			got += len(cmds)
			if len(cmds) == 0 {
				time.Sleep(time.Millisecond)
			}
		}
		Expect(got).To(Equal(n))
	})

	It("drops sends after Close", func() {
		m, err := libmbx.New()
		Expect(err).ToNot(HaveOccurred())
		m.Send(libmbx.Command{Kind: libmbx.Own})
		Expect(m.Close()).To(Succeed())
		m.Send(libmbx.Command{Kind: libmbx.Term})
		cmds := m.Drain()
		Expect(cmds).To(HaveLen(1))
	})
})
