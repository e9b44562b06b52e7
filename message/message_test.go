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

package message_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libmsg "github.com/nabbar/xs/message"
)

func TestXSMessage(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Message Suite")
}

var _ = Describe("message.Msg", func() {
	It("keeps a small payload inline", func() {
		m := libmsg.FromBytes([]byte("hello"), nil)
		Expect(m.Len()).To(Equal(5))
		Expect(m.Bytes()).To(Equal([]byte("hello")))
	})

	It("allocates a shared buffer above the inline threshold", func() {
		payload := make([]byte, 64)
		for i := range payload {
			payload[i] = byte(i)
		}
		m := libmsg.FromBytes(payload, nil)
		Expect(m.Bytes()).To(Equal(payload))
	})

	It("reports More only when set", func() {
		m := libmsg.Empty()
		Expect(m.More()).To(BeFalse())
		m.SetMore(true)
		Expect(m.More()).To(BeTrue())
		m.SetMore(false)
		Expect(m.More()).To(BeFalse())
	})

	It("invokes the free hook exactly once when the last reference drops", func() {
		freed := 0
		payload := make([]byte, 64)
		m := libmsg.FromBytes(payload, func([]byte) { freed++ })

		c := m.CopyOf()
		m.AddRef(1)

		Expect(m.RmRef(1)).To(BeFalse())
		Expect(freed).To(Equal(0))

		m.Close()
		Expect(freed).To(Equal(0))

		c.Close()
		Expect(freed).To(Equal(1))
	})

	It("never double-frees a never-shared buffer", func() {
		freed := 0
		payload := make([]byte, 64)
		m := libmsg.FromBytes(payload, func([]byte) { freed++ })
		m.Close()
		Expect(freed).To(Equal(1))
	})

	It("moves ownership and empties the source", func() {
		m := libmsg.FromBytes([]byte("payload"), nil)
		moved := libmsg.MoveFrom(&m)
		Expect(moved.Bytes()).To(Equal([]byte("payload")))
		Expect(m.Len()).To(Equal(0))
		Expect(m.IsUninitialized()).To(BeFalse())
	})

	It("rejects a negative Sized length", func() {
		_, err := libmsg.Sized(-1)
		Expect(err).ToNot(BeNil())
		Expect(err.Code().String()).To(Equal("invalid-argument"))
	})
})
