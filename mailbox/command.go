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

// Package mailbox implements the per-object, thread-safe command queue of
// spec §4.4: every cross-thread interaction in the core is a Command
// enqueued here and later drained by the destination's own reactor, so
// no internal call ever blocks on another thread's state.
package mailbox

import "time"

// Kind tags the variant a Command carries, matching the tagged union of
// spec §4.3/§4.4/§4.5.
type Kind uint8

const (
	Stop Kind = iota
	Plug
	Own
	Attach
	Bind
	ActivateRead
	ActivateWrite
	Hiccup
	PipeTerm
	PipeTermAck
	TermReq
	Term
	TermAck
	Reap
	Reaped
	Done
)

// String names a Kind for log lines and test failures.
func (k Kind) String() string {
	switch k {
	case Stop:
		return "stop"
	case Plug:
		return "plug"
	case Own:
		return "own"
	case Attach:
		return "attach"
	case Bind:
		return "bind"
	case ActivateRead:
		return "activate-read"
	case ActivateWrite:
		return "activate-write"
	case Hiccup:
		return "hiccup"
	case PipeTerm:
		return "pipe-term"
	case PipeTermAck:
		return "pipe-term-ack"
	case TermReq:
		return "term-req"
	case Term:
		return "term"
	case TermAck:
		return "term-ack"
	case Reap:
		return "reap"
	case Reaped:
		return "reaped"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Receiver is implemented by every object that can be the destination of
// a Command (sockets, sessions, engines, io-threads, the reaper). The
// reactor drains a mailbox by calling ProcessCommand on whichever
// Receiver the dequeued Command names, per spec §4.6.
type Receiver interface {
	ProcessCommand(Command)
}

// Command is the tagged-union message passed through a Mailbox. Payload
// fields are left as `any` (rather than typed to the pipe/engine/own
// packages) so this package has no dependency on them — each Kind
// defines which field, if any, is populated and how to type-assert it.
type Command struct {
	Kind Kind

	// Dest is the object that should process this command. For a
	// socket's own mailbox it is almost always the socket itself; for an
	// I/O thread's mailbox it may be any session/engine the thread owns
	// (spec §4.6: "command.destination->process_command(command)").
	Dest Receiver

	// Obj carries the child in an Own command, or the socket/object being
	// reaped/acknowledged in Reap/Reaped/TermAck.
	Obj Receiver

	// Pipe carries a *pipe.Pipe for Bind/ActivateRead/ActivateWrite/
	// Hiccup/PipeTerm/PipeTermAck; callers type-assert it.
	Pipe any

	// Engine carries a transport.Engine for Attach; callers type-assert
	// it.
	Engine any

	// Linger carries the grace period for a Term command (spec §4.5).
	Linger time.Duration

	// ReadCount carries the peer's cumulative read counter on
	// ActivateWrite, so the writer can recompute its HWM headroom
	// (spec §4.3).
	ReadCount uint64
}
