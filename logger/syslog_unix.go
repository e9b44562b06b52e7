//go:build linux || darwin

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

package logger

import (
	"log/syslog"
	"strings"

	"github.com/sirupsen/logrus"
	logrussyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// newSyslogHook dials addr ("network:address", e.g. "udp:localhost:514"
// or "tcp:localhost:514"; an empty network part means the local
// syslog daemon) and wraps it as a logrus hook, the same
// split-the-destination-string convention nabbar-golib's
// logger/config.OptionsSyslog uses for its own syslog destination
// field.
func newSyslogHook(addr, tag string) (logrus.Hook, error) {
	if tag == "" {
		tag = "xs"
	}
	network, target := "", addr
	if i := strings.Index(addr, ":"); i >= 0 {
		switch addr[:i] {
		case "udp", "tcp":
			network, target = addr[:i], addr[i+1:]
		}
	}
	return logrussyslog.NewSyslogHook(network, target, syslog.LOG_INFO, tag)
}
