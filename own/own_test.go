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

package own_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libmbx "github.com/nabbar/xs/mailbox"
	libown "github.com/nabbar/xs/own"
)

func TestXSOwn(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Own Suite")
}

// node is a minimal mailbox.Receiver embedding own.Base, standing in
// for a socket/session/engine under test.
type node struct {
	libown.Base
	mbx  *libmbx.Mailbox
	done bool
}

func newNode() *node {
	n := &node{}
	m, _ := libmbx.New()
	n.mbx = m
	n.Init(n, m, func() { n.done = true })
	return n
}

func (n *node) ProcessCommand(cmd libmbx.Command) {
	switch cmd.Kind {
	case libmbx.Own:
		n.HandleOwn(cmd.Pipe.(*libmbx.Mailbox), cmd.Obj)
	case libmbx.TermReq:
		n.HandleTermReq(cmd.Obj.(*node).mbx, cmd.Obj, cmd.Linger)
	case libmbx.Term:
		n.HandleTerm(cmd.Linger)
	case libmbx.TermAck:
		n.HandleTermAck()
	}
}

func drainOnto(n *node, count int) {
	for i := 0; i < count; i++ {
		cmd, ok := n.mbx.Recv(time.Second)
		Expect(ok).To(BeTrue())
		n.ProcessCommand(cmd)
	}
}

var _ = Describe("own.Base", func() {
	It("finalizes immediately when it has no children", func() {
		root := newNode()
		root.Terminate(0)
		drainOnto(root, 1) // Term sent to itself
		Expect(root.Terminated()).To(BeTrue())
		Expect(root.done).To(BeTrue())
	})

	It("propagates term to children and waits for every term-ack", func() {
		parent := newNode()
		child := newNode()

		parent.LaunchChild(child.mbx, child)
		drainOnto(parent, 1) // Own

		child.SetParent(parent.mbx, parent)

		parent.Terminate(0)
		drainOnto(parent, 1) // Term -> forwards Term to child
		Expect(parent.Terminated()).To(BeFalse(), "must wait for the child's ack")

		drainOnto(child, 1) // Term -> child has no children, finalizes, sends TermAck
		Expect(child.Terminated()).To(BeTrue())

		drainOnto(parent, 1) // TermAck from child
		Expect(parent.Terminated()).To(BeTrue())
	})

	It("holds finalization open for extra registered acks (e.g. draining pipes)", func() {
		n := newNode()
		n.RegisterTermAcks(1)

		n.Terminate(0)
		drainOnto(n, 1) // Term
		Expect(n.Terminated()).To(BeFalse())

		n.UnregisterTermAck()
		Expect(n.Terminated()).To(BeTrue())
	})

	It("routes a term-req through the parent to the requesting child", func() {
		parent := newNode()
		child := newNode()
		parent.LaunchChild(child.mbx, child)
		drainOnto(parent, 1)
		child.SetParent(parent.mbx, parent)

		child.Terminate(0)
		drainOnto(parent, 1) // TermReq -> forwards Term to child
		drainOnto(child, 1)  // Term -> finalizes, TermAck to parent
		Expect(child.Terminated()).To(BeTrue())

		// The parent itself was never asked to terminate, so a lone
		// child's TermAck must not finalize it.
		drainOnto(parent, 1) // TermAck
		Expect(parent.Terminated()).To(BeFalse())
	})
})

var _ = Describe("own.Reaper", func() {
	It("unblocks Wait once every handed-in object reports Reaped", func() {
		r, err := libown.NewReaper()
		Expect(err).ToNot(HaveOccurred())
		go r.Run()
		defer r.Stop()

		n := newNode()
		n.SetReaper(r.Mailbox())
		time.Sleep(20 * time.Millisecond) // let the reaper register n as pending

		waited := make(chan struct{})
		go func() {
			r.Wait()
			close(waited)
		}()

		n.Terminate(0)
		drainOnto(n, 1)

		select {
		case <-waited:
		case <-time.After(time.Second):
			Fail("Wait did not unblock after Reaped")
		}
	})
})
