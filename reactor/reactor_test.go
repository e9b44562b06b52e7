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

package reactor_test

import (
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libmbx "github.com/nabbar/xs/mailbox"
	libreact "github.com/nabbar/xs/reactor"
)

func TestXSReactor(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Reactor Suite")
}

type countingSink struct {
	mu      sync.Mutex
	inCount int
	outCount int
	timerIDs []int
}

func (s *countingSink) InEvent() {
	s.mu.Lock()
	s.inCount++
	s.mu.Unlock()
}

func (s *countingSink) OutEvent() {
	s.mu.Lock()
	s.outCount++
	s.mu.Unlock()
}

func (s *countingSink) TimerEvent(id int) {
	s.mu.Lock()
	s.timerIDs = append(s.timerIDs, id)
	s.mu.Unlock()
}

func (s *countingSink) snapshot() (int, int, []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inCount, s.outCount, append([]int(nil), s.timerIDs...)
}

type recvReceiver struct{ got chan libmbx.Command }

func (r *recvReceiver) ProcessCommand(cmd libmbx.Command) {
	r.got <- cmd
}

var _ = Describe("reactor.Reactor", func() {
	It("dispatches commands from its mailbox to their destination", func() {
		r, err := libreact.New()
		Expect(err).ToNot(HaveOccurred())
		go r.Run()
		defer r.Stop()

		rr := &recvReceiver{got: make(chan libmbx.Command, 1)}
		r.Mailbox().Send(libmbx.Command{Kind: libmbx.Stop, Dest: rr})

		select {
		case cmd := <-rr.got:
			Expect(cmd.Kind).To(Equal(libmbx.Stop))
		case <-time.After(time.Second):
			Fail("command was not dispatched")
		}
	})

	It("fires a timer once after its delay, not before", func() {
		r, err := libreact.New()
		Expect(err).ToNot(HaveOccurred())
		go r.Run()
		defer r.Stop()

		sink := &countingSink{}
		r.AddTimer(30*time.Millisecond, sink, 7)

		time.Sleep(10 * time.Millisecond)
		_, _, fired := sink.snapshot()
		Expect(fired).To(BeEmpty(), "timer must not fire early")

		Eventually(func() []int {
			_, _, fired := sink.snapshot()
			return fired
		}, time.Second, 5*time.Millisecond).Should(Equal([]int{7}))
	})

	It("cancels a timer via RmTimer before it fires", func() {
		r, err := libreact.New()
		Expect(err).ToNot(HaveOccurred())
		go r.Run()
		defer r.Stop()

		sink := &countingSink{}
		h := r.AddTimer(20*time.Millisecond, sink, 1)
		r.RmTimer(h)

		time.Sleep(60 * time.Millisecond)
		_, _, fired := sink.snapshot()
		Expect(fired).To(BeEmpty())
	})

	It("delivers event-source notifications to the owning sink", func() {
		r, err := libreact.New()
		Expect(err).ToNot(HaveOccurred())
		go r.Run()
		defer r.Stop()

		sink := &countingSink{}
		r.Notify(sink, libreact.InEvent)
		r.Notify(sink, libreact.OutEvent)

		Eventually(func() [2]int {
			in, out, _ := sink.snapshot()
			return [2]int{in, out}
		}, time.Second, 5*time.Millisecond).Should(Equal([2]int{1, 1}))
	})

	It("tracks load across timer and source registration", func() {
		r, err := libreact.New()
		Expect(err).ToNot(HaveOccurred())
		go r.Run()
		defer r.Stop()

		Expect(r.Load()).To(Equal(int32(0)))
		r.RegisterSource()
		Expect(r.Load()).To(Equal(int32(1)))
		h := r.AddTimer(time.Hour, &countingSink{}, 1)
		Expect(r.Load()).To(Equal(int32(2)))
		r.RmTimer(h)
		r.UnregisterSource()
		Expect(r.Load()).To(Equal(int32(0)))
	})
})
