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

// Package message implements the refcounted message buffer described in
// spec §4.1: a very small payload is inlined directly in the handle, a
// larger one lives in a shared, reference-counted heap buffer so fan-out
// (dispatch.Distribute) can avoid per-recipient copies.
package message

import (
	liberr "github.com/nabbar/xs/errors"
)

// inlineCap is the largest payload kept inline in the Msg handle itself,
// matching spec §4.1's "very small (<= 30 bytes)" message variant.
const inlineCap = 30

// Flag is a bitset of per-part message flags.
type Flag uint8

const (
	// More indicates another part follows in the current logical message.
	More Flag = 1 << iota

	// Identity marks a part belonging to an out-of-band identity
	// handshake (spec §4.9's ROUTER/DEALER identity exchange).
	Identity
)

// state tracks which of the three lifecycle states (spec §4.1) a Msg is
// in. The zero value, stateUninit, is deliberately invalid to send or
// inspect so a zero-value Msg can never be mistaken for an empty one.
type state uint8

const (
	stateUninit state = iota
	stateInline
	stateShared
)

// buffer is the heap-allocated, reference-counted payload shared by a
// Msg and every copy produced by CopyOf or by dispatch fan-out. The
// refcount is only made atomic once Shared is set, per spec §4.1
// ("atomic only when the SHARED flag is set; lazily promoted on first
// fan-out") — see refcount.go.
type buffer struct {
	data   []byte
	free   func([]byte)
	shared bool
	ref    refcount
}

// Msg is a handle to a message part. The zero value is uninitialized and
// must not be sent, read, or closed; construct one with Empty, Sized,
// FromBytes, or CopyOf.
type Msg struct {
	st    state
	flags Flag
	small [inlineCap]byte
	slen  uint8
	buf   *buffer
}

// Empty returns a zero-length inline message, valid to send immediately.
func Empty() Msg {
	return Msg{st: stateInline}
}

// Sized allocates a new message of n bytes, inline when n fits the
// inline capacity and in a fresh shared buffer otherwise. The returned
// bytes are zeroed.
func Sized(n int) (Msg, *liberr.Error) {
	if n < 0 {
		return Msg{}, liberr.New(liberr.InvalidArgument, "negative message size %d", n)
	}
	if n <= inlineCap {
		m := Msg{st: stateInline, slen: uint8(n)}
		return m, nil
	}
	data := make([]byte, n)
	return Msg{st: stateShared, buf: &buffer{data: data}}, nil
}

// FromBytes wraps an application-owned byte slice without copying it.
// free, if non-nil, is invoked with the original slice once the last
// reference is released (spec §4.1's "foreign-data" variant with an
// optional free-function hint); if free is nil the slice is simply
// dropped for the garbage collector to reclaim. A slice that fits the
// inline capacity and comes with a nil free is copied into the message
// instead of being wrapped.
func FromBytes(data []byte, free func([]byte)) Msg {
	if free == nil && len(data) <= inlineCap {
		m := Msg{st: stateInline, slen: uint8(len(data))}
		copy(m.small[:], data)
		return m
	}
	return Msg{st: stateShared, buf: &buffer{data: data, free: free}}
}

// CopyOf returns a message referring to the same payload as src: for an
// inline message this memcopies the small buffer; for a shared message
// it adds a reference instead of copying bytes, per spec §4.1.
func (src Msg) CopyOf() Msg {
	liberr.Assert(src.st != stateUninit, "message: CopyOf of an uninitialized message")
	dst := src
	if src.st == stateShared {
		src.buf.ref.addref(src.buf, 1)
	}
	return dst
}

// MoveFrom transfers ownership of src's payload to the returned message;
// src becomes empty (stateInline, zero length) and must not be used
// again except to be discarded, matching spec §4.1's move-from variant.
func MoveFrom(src *Msg) Msg {
	liberr.Assert(src.st != stateUninit, "message: MoveFrom of an uninitialized message")
	dst := *src
	*src = Msg{st: stateInline}
	return dst
}

// Bytes returns the message's payload. The returned slice must not be
// retained past the message's Close/last reference release when the
// message was constructed with FromBytes and a non-nil free function.
func (m *Msg) Bytes() []byte {
	liberr.Assert(m.st != stateUninit, "message: Bytes of an uninitialized message")
	if m.st == stateInline {
		return m.small[:m.slen]
	}
	return m.buf.data
}

// Len returns the payload length in bytes.
func (m *Msg) Len() int {
	if m.st == stateInline {
		return int(m.slen)
	}
	if m.buf == nil {
		return 0
	}
	return len(m.buf.data)
}

// Flags returns the message's current flag bitset.
func (m *Msg) Flags() Flag {
	return m.flags
}

// SetFlags replaces the message's flag bitset.
func (m *Msg) SetFlags(f Flag) {
	m.flags = f
}

// More reports whether the More flag is set.
func (m *Msg) More() bool {
	return m.flags&More != 0
}

// SetMore sets or clears the More flag.
func (m *Msg) SetMore(more bool) {
	if more {
		m.flags |= More
	} else {
		m.flags &^= More
	}
}

// AddRef adds n references to a shared-buffer message, promoting it to
// an atomically-refcounted buffer on first use. It is a no-op for an
// inline message, which has no shared state to reference. Used by
// dispatch.Distribute to fan a single buffer out to M recipients
// without M copies (spec §4.1, §4.8).
func (m *Msg) AddRef(n int) {
	if m.st != stateShared || m.buf == nil || n <= 0 {
		return
	}
	m.buf.ref.addref(m.buf, n)
}

// RmRef releases n references, returning true once the last one drops
// and the backing buffer has been freed (via the registered free
// function, or left to the garbage collector if none was given). It is
// infallible, matching spec §4.1 ("close is infallible once the message
// was validly constructed").
func (m *Msg) RmRef(n int) bool {
	if m.st != stateShared || m.buf == nil || n <= 0 {
		return false
	}
	return m.buf.ref.rmref(m.buf, n)
}

// Close releases the message's single implicit reference. For an inline
// message this only clears the handle; for a shared message it is
// equivalent to RmRef(1).
func (m *Msg) Close() {
	if m.st == stateShared && m.buf != nil {
		m.buf.ref.rmref(m.buf, 1)
	}
	*m = Msg{}
}

// IsUninitialized reports whether m has never been constructed via
// Empty/Sized/FromBytes/CopyOf/MoveFrom. Callers use this to implement
// spec §4.1's "illegal to send or inspect" invariant defensively at API
// boundaries instead of panicking deep in the pipe layer.
func (m *Msg) IsUninitialized() bool {
	return m.st == stateUninit
}
