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

// Package logger wraps logrus the way nabbar-golib's own logger package
// does: a small Level enum decoupled from logrus's, an immutable Fields
// map, and a handful of level methods that build one logrus.Entry per
// call rather than exposing *logrus.Logger to the rest of the tree.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Level mirrors spec-adjacent ambient logging needs without committing
// call sites to logrus's own Level type, matching nabbar-golib's
// logger.Level split from logrus.Level.
type Level uint8

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

func (l Level) logrus() logrus.Level {
	switch l {
	case PanicLevel:
		return logrus.PanicLevel
	case FatalLevel:
		return logrus.FatalLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case WarnLevel:
		return logrus.WarnLevel
	case InfoLevel:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// String names a Level for the LEVEL config key.
func (l Level) String() string {
	switch l {
	case PanicLevel:
		return "panic"
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	default:
		return "debug"
	}
}

// ParseLevel resolves a case-insensitive level name, defaulting to
// InfoLevel for anything unrecognized.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "panic":
		return PanicLevel
	case "fatal":
		return FatalLevel
	case "error":
		return ErrorLevel
	case "warn", "warning":
		return WarnLevel
	case "debug":
		return DebugLevel
	default:
		return InfoLevel
	}
}

// Format selects the logrus formatter a Logger renders with.
type Format uint8

const (
	FormatText Format = iota
	FormatJSON
)

// Config describes how New builds a Logger: the minimum level, the
// rendering format, where it writes by default, and an optional
// syslog destination (spec: ambient logging stack, Unix-only hook
// grounded on nabbar-golib's logger/hooksyslog).
type Config struct {
	Level  Level
	Format Format
	Output io.Writer

	// Syslog, if non-empty, is a "network:address" pair (e.g.
	// "udp:localhost:514") a Unix build adds as an extra hook
	// destination alongside Output. Empty disables it.
	Syslog string
	// SyslogTag is the program identifier syslog messages are tagged
	// with; defaults to "xs" when empty.
	SyslogTag string
}

// Logger is the façade's structured logger: one logrus.Logger plus a
// base Fields set every entry inherits, matching nabbar-golib's own
// immutable-fields-plus-logrus-core shape.
type Logger struct {
	core   *logrus.Logger
	fields Fields
}

// New builds a Logger per cfg. Output defaults to os.Stderr, matching
// logrus's own default and nabbar-golib's standard-output hook.
func New(cfg Config) (*Logger, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	core := logrus.New()
	core.SetLevel(cfg.Level.logrus())
	core.SetOutput(out)

	switch cfg.Format {
	case FormatJSON:
		core.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		core.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	if cfg.Syslog != "" {
		hook, err := newSyslogHook(cfg.Syslog, cfg.SyslogTag)
		if err != nil {
			return nil, err
		}
		if hook != nil {
			core.AddHook(hook)
		}
	}

	return &Logger{core: core, fields: NewFields()}, nil
}

// With returns a derived Logger whose entries carry f merged on top of
// the receiver's own base fields (spec: ambient stack, contextual
// logging per component/connection).
func (l *Logger) With(f Fields) *Logger {
	return &Logger{core: l.core, fields: l.fields.Merge(f)}
}

func (l *Logger) entry(data interface{}) *logrus.Entry {
	f := l.fields
	if data != nil {
		f = f.Add("data", data)
	}
	return l.core.WithFields(logrus.Fields(f))
}

func (l *Logger) Debug(message string, data interface{}, args ...interface{}) {
	l.entry(data).Debug(fmt.Sprintf(message, args...))
}

func (l *Logger) Info(message string, data interface{}, args ...interface{}) {
	l.entry(data).Info(fmt.Sprintf(message, args...))
}

func (l *Logger) Warning(message string, data interface{}, args ...interface{}) {
	l.entry(data).Warn(fmt.Sprintf(message, args...))
}

func (l *Logger) Error(message string, data interface{}, args ...interface{}) {
	l.entry(data).Error(fmt.Sprintf(message, args...))
}

// Fatal logs at Fatal level and exits the process with status 1,
// matching logrus's own Fatal semantics (no deferred function runs
// after it).
func (l *Logger) Fatal(message string, data interface{}, args ...interface{}) {
	l.entry(data).Fatal(fmt.Sprintf(message, args...))
}
