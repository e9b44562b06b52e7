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

package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	liblog "github.com/nabbar/xs/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("logger.Logger", func() {
	It("renders JSON entries with base and per-call fields merged", func() {
		var buf bytes.Buffer
		l, err := liblog.New(liblog.Config{
			Level:  liblog.DebugLevel,
			Format: liblog.FormatJSON,
			Output: &buf,
		})
		Expect(err).ToNot(HaveOccurred())

		scoped := l.With(liblog.NewFields().Add("component", "test"))
		scoped.Info("hello %s", nil, "world")

		var decoded map[string]interface{}
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded["msg"]).To(Equal("hello world"))
		Expect(decoded["component"]).To(Equal("test"))
		Expect(decoded["level"]).To(Equal("info"))
	})

	It("suppresses entries below the configured level", func() {
		var buf bytes.Buffer
		l, err := liblog.New(liblog.Config{
			Level:  liblog.WarnLevel,
			Format: liblog.FormatText,
			Output: &buf,
		})
		Expect(err).ToNot(HaveOccurred())

		l.Debug("should not appear", nil)
		l.Info("should not appear either", nil)
		Expect(buf.Len()).To(Equal(0))

		l.Warning("this should appear", nil)
		Expect(strings.Contains(buf.String(), "this should appear")).To(BeTrue())
	})

	It("keeps a derived logger's fields from leaking back into its parent", func() {
		var buf bytes.Buffer
		base, err := liblog.New(liblog.Config{Format: liblog.FormatJSON, Level: liblog.InfoLevel, Output: &buf})
		Expect(err).ToNot(HaveOccurred())

		_ = base.With(liblog.NewFields().Add("request_id", "abc"))
		buf.Reset()

		base.Info("plain", nil)
		var decoded map[string]interface{}
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		_, hasRequestID := decoded["request_id"]
		Expect(hasRequestID).To(BeFalse())
	})
})

var _ = Describe("logger.ParseLevel", func() {
	It("parses level names case-insensitively and defaults unknown ones to info", func() {
		Expect(liblog.ParseLevel("debug")).To(Equal(liblog.DebugLevel))
		Expect(liblog.ParseLevel("WARN")).To(Equal(liblog.WarnLevel))
		Expect(liblog.ParseLevel("bogus")).To(Equal(liblog.InfoLevel))
	})
})
