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

package pipe_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libmbx "github.com/nabbar/xs/mailbox"
	libmsg "github.com/nabbar/xs/message"
	libpipe "github.com/nabbar/xs/pipe"
)

func TestXSPipe(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipe Suite")
}

type stubReceiver struct{ mbx *libmbx.Mailbox }

func (s *stubReceiver) ProcessCommand(libmbx.Command) {}

func attachPair(a, b *libpipe.Pipe) (*stubReceiver, *stubReceiver) {
	ra := &stubReceiver{}
	rb := &stubReceiver{}
	ma, _ := libmbx.New()
	mb, _ := libmbx.New()
	ra.mbx, rb.mbx = ma, mb
	a.Attach(ra, mb, rb)
	b.Attach(rb, ma, ra)
	return ra, rb
}

var _ = Describe("pipe.Pipe", func() {
	It("delivers messages written on one end to the other, in order", func() {
		a, b := libpipe.NewPair(0)
		attachPair(a, b)

		m1 := libmsg.FromBytes([]byte("one"), nil)
		m2 := libmsg.FromBytes([]byte("two"), nil)
		Expect(a.CheckWrite()).To(BeTrue())
		a.Write(m1)
		a.Write(m2)

		got, ok := b.Read()
		Expect(ok).To(BeTrue())
		Expect(got.Bytes()).To(Equal([]byte("one")))
		got, ok = b.Read()
		Expect(ok).To(BeTrue())
		Expect(got.Bytes()).To(Equal([]byte("two")))
		_, ok = b.Read()
		Expect(ok).To(BeFalse())
	})

	It("keeps a multipart message atomic on one flush", func() {
		a, b := libpipe.NewPair(0)
		attachPair(a, b)

		m1 := libmsg.FromBytes([]byte("part1"), nil)
		m1.SetMore(true)
		m2 := libmsg.FromBytes([]byte("part2"), nil)

		a.Write(m1)
		_, ok := b.Read()
		Expect(ok).To(BeFalse(), "non-final part must not auto-flush")

		a.Write(m2)
		got, ok := b.Read()
		Expect(ok).To(BeTrue())
		Expect(got.Bytes()).To(Equal([]byte("part1")))
		Expect(got.More()).To(BeTrue())
		got, ok = b.Read()
		Expect(ok).To(BeTrue())
		Expect(got.Bytes()).To(Equal([]byte("part2")))
		Expect(got.More()).To(BeFalse())
	})

	It("refuses writes once HWM is reached and resumes after LWM reads", func() {
		a, b := libpipe.NewPair(4)
		ra, _ := attachPair(a, b)

		for i := 0; i < 4; i++ {
			Expect(a.CheckWrite()).To(BeTrue())
			a.Write(libmsg.FromBytes([]byte{byte(i)}, nil))
		}
		Expect(a.CheckWrite()).To(BeFalse(), "writer must refuse once outstanding == HWM")

		// Reader drains messages; at LWM=ceil(4/2)=2 it must notify the
		// writer's owner mailbox (b's peer mailbox) with ActivateWrite.
		_, ok := b.Read()
		Expect(ok).To(BeTrue())
		_, ok = b.Read()
		Expect(ok).To(BeTrue())

		cmd, ok := ra.mbx.Recv(time.Second)
		Expect(ok).To(BeTrue())
		Expect(cmd.Kind).To(Equal(libmbx.ActivateWrite))
		a.OnActivateWrite(cmd.ReadCount)

		Expect(a.CheckWrite()).To(BeTrue())
	})

	It("rolls back an in-flight multipart envelope", func() {
		a, b := libpipe.NewPair(0)
		attachPair(a, b)

		m1 := libmsg.FromBytes([]byte("part1"), nil)
		m1.SetMore(true)
		a.Write(m1)
		a.Rollback()

		m2 := libmsg.FromBytes([]byte("whole"), nil)
		a.Write(m2)

		got, ok := b.Read()
		Expect(ok).To(BeTrue())
		Expect(got.Bytes()).To(Equal([]byte("whole")))
	})

	It("runs the three-phase termination protocol", func() {
		a, b := libpipe.NewPair(0)
		ra, rb := attachPair(a, b)

		a.Terminate(0)
		cmd, ok := rb.mbx.Recv(time.Second)
		Expect(ok).To(BeTrue())
		Expect(cmd.Kind).To(Equal(libmbx.PipeTerm))

		b.OnPipeTerm()
		Expect(b.IsTerminating()).To(BeTrue())

		cmd, ok = ra.mbx.Recv(time.Second)
		Expect(ok).To(BeTrue())
		Expect(cmd.Kind).To(Equal(libmbx.PipeTermAck))

		a.OnPipeTermAck()
		Expect(a.IsReleased()).To(BeTrue())
	})
})
