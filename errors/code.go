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

// Package errors defines the operational error taxonomy used at the xs
// API boundary (spec §7). Programmer errors (double-close, use after
// terminate, FSM violations on a socket that does not support the
// attempted call) are not part of this taxonomy: they panic via Assert.
package errors

// Code is the operational error kind reported at the API boundary.
// Unlike a raw Go error string, a Code is stable and can be compared,
// mapped back to a C-style errno by a future ABI layer, or matched in
// tests without string comparison.
type Code uint16

const (
	// Unknown is the zero value: no specific kind could be determined.
	Unknown Code = iota

	// InvalidArgument covers malformed URIs, unknown socket options, and
	// out-of-range option values.
	InvalidArgument

	// ProtocolNotSupported is returned for bind/connect URIs whose scheme
	// is recognized but not implemented (pgm, epgm).
	ProtocolNotSupported

	// NotSupported is returned when an operation is not defined for the
	// socket's pattern (e.g. Send on a SUB socket).
	NotSupported

	// FSMViolation is returned when a call violates a socket pattern's
	// state machine (e.g. REQ Recv before a matching Send completes).
	FSMViolation

	// Terminated is returned to every blocked or new call once the owning
	// Context has entered termination.
	Terminated

	// Timeout is returned when a blocking call's deadline elapses without
	// the operation completing.
	Timeout

	// WouldBlock is returned for a DONTWAIT call that cannot complete
	// immediately.
	WouldBlock

	// AddressInUse is returned when Bind targets an address already bound
	// within the same Context.
	AddressInUse

	// AddressNotAvailable is returned when Bind or Connect cannot resolve
	// or reach the requested address.
	AddressNotAvailable

	// ConnectionRefused is returned when a transport-level connect attempt
	// is actively refused by the peer.
	ConnectionRefused

	// ConnectionReset is returned when an established transport connection
	// is reset by the peer.
	ConnectionReset

	// Interrupted is returned when a blocking call is interrupted by a
	// signal-equivalent condition and should be retried by the caller.
	Interrupted

	// NoMemory is returned when a message or buffer allocation fails.
	NoMemory
)

// String returns a short, lower-case, stable name for the code. It is
// meant for log lines and test failure messages, not for display to end
// users.
func (c Code) String() string {
	switch c {
	case InvalidArgument:
		return "invalid-argument"
	case ProtocolNotSupported:
		return "protocol-not-supported"
	case NotSupported:
		return "not-supported"
	case FSMViolation:
		return "fsm-violation"
	case Terminated:
		return "terminated"
	case Timeout:
		return "timeout"
	case WouldBlock:
		return "would-block"
	case AddressInUse:
		return "address-in-use"
	case AddressNotAvailable:
		return "address-not-available"
	case ConnectionRefused:
		return "connection-refused"
	case ConnectionReset:
		return "connection-reset"
	case Interrupted:
		return "interrupted"
	case NoMemory:
		return "no-memory"
	default:
		return "unknown"
	}
}
