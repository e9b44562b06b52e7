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

package message

import "sync/atomic"

// refcount holds a message buffer's reference count. It starts life as a
// plain int (count 1, implicit from construction) and is only promoted
// to an atomic counter the first time addref adds a second owner — spec §4.1 calls this out explicitly as a perf optimization
// for the common case of a message sent to exactly one pipe.
type refcount struct {
	n    int32
	flag int32 // 0 = not yet shared across goroutines, 1 = atomic from here on
}

func (r *refcount) addref(b *buffer, n int) {
	if atomic.LoadInt32(&r.flag) == 0 {
		// First fan-out: promote to atomic bookkeeping. The buffer is
		// still only visible to the calling goroutine at this point
		// (dispatch.Distribute holds it exclusively before handing
		// copies to pipes), so a plain store is safe here.
		atomic.StoreInt32(&r.n, int32(1+n))
		atomic.StoreInt32(&r.flag, 1)
		b.shared = true
		return
	}
	atomic.AddInt32(&r.n, int32(n))
}

func (r *refcount) rmref(b *buffer, n int) bool {
	if atomic.LoadInt32(&r.flag) == 0 {
		// Never fanned out: this is the one and only owner.
		if b.free != nil {
			b.free(b.data)
		}
		return true
	}
	left := atomic.AddInt32(&r.n, -int32(n))
	if left <= 0 {
		if b.free != nil {
			b.free(b.data)
		}
		return true
	}
	return false
}
