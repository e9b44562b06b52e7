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

package errors

import "fmt"

// Error is the operational error type returned across the xs API
// boundary. It wraps an underlying cause (which may be nil) with a
// stable Code so callers can branch on kind without string matching.
type Error struct {
	code  Code
	msg   string
	cause error
}

// New builds an Error of the given code with a formatted message. The
// result has no wrapped cause; use Wrap when an underlying error exists.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches code to cause, keeping cause reachable through Unwrap.
// Wrap returns nil if cause is nil, so it is safe to use as
// `return errors.Wrap(errors.ConnectionRefused, err)` in a function that
// may be called with a nil err.
func Wrap(code Code, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{code: code, cause: cause}
}

// Code returns the error's kind.
func (e *Error) Code() Code {
	if e == nil {
		return Unknown
	}
	return e.code
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.msg != "" && e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.cause)
	case e.msg != "":
		return fmt.Sprintf("%s: %s", e.code, e.msg)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", e.code, e.cause)
	default:
		return e.code.String()
	}
}

// Unwrap exposes the wrapped cause so errors.Is/errors.As from the
// standard library work transparently across the xs boundary.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target is an *Error carrying the same Code, which
// is the matching semantics the rest of the codebase relies on
// (`errors.Is(err, errors.New(errors.Timeout, ""))`-style checks compare
// by code, not by message).
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	o, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == o.code
}

// Is reports whether err is an *Error of the given code. It is the
// normal way call sites branch on the operational taxonomy from spec §7.
func Is(err error, code Code) bool {
	var e *Error
	if as(err, &e) {
		return e.code == code
	}
	return false
}

// as is a tiny local errors.As to avoid importing the standard "errors"
// package purely for this one call (kept internal; Unwrap above still
// makes *Error interoperate with the standard library for callers that
// do import it).
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
