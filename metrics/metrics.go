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

// Package metrics exposes the Prometheus instrumentation the rest of the
// tree reports into: pipe back-pressure, socket blocking outcomes,
// reactor load, and transport byte/reconnect counters. Every exported
// function is a thin, pre-labeled wrapper over a package-level collector
// so call sites (pipe, socket, reactor, transport) never touch
// prometheus types directly — the same shape nabbar-golib's own
// prometheus/metrics package uses to keep collector definitions in one
// place and call sites reduced to a single function call.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	pipeOutstanding = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "xs",
		Subsystem: "pipe",
		Name:      "outstanding_messages",
		Help:      "Messages written but not yet acknowledged as read by the peer, as last reported by any one pipe.",
	})

	hwmRefusals = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "xs",
		Subsystem: "pipe",
		Name:      "hwm_refusals_total",
		Help:      "Writes refused because a pipe's outstanding count reached its high-water mark.",
	})

	socketBlocked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xs",
		Subsystem: "socket",
		Name:      "blocked_total",
		Help:      "Send/Recv calls that returned WouldBlock or Timeout instead of completing.",
	}, []string{"outcome"})

	reactorLoad = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "xs",
		Subsystem: "reactor",
		Name:      "load",
		Help:      "Registered timers and event sources on one I/O thread.",
	}, []string{"reactor"})

	transportBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xs",
		Subsystem: "transport",
		Name:      "bytes_total",
		Help:      "Bytes moved between a pipe and its underlying network connection.",
	}, []string{"scheme", "direction"})

	transportReconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xs",
		Subsystem: "transport",
		Name:      "reconnects_total",
		Help:      "Reconnect attempts made by a client-side transport engine after a dropped connection.",
	}, []string{"scheme"})
)

func init() {
	prometheus.MustRegister(
		pipeOutstanding,
		hwmRefusals,
		socketBlocked,
		reactorLoad,
		transportBytes,
		transportReconnects,
	)
}

// ObservePipeOutstanding records a pipe's current outstanding count after
// a write, called from package pipe.
func ObservePipeOutstanding(n uint64) {
	pipeOutstanding.Set(float64(n))
}

// IncHWMRefusal counts one write refused by CheckWrite's high-water mark
// check, called from package pipe.
func IncHWMRefusal() {
	hwmRefusals.Inc()
}

// IncSocketBlocked counts one Send/Recv that returned WouldBlock or
// Timeout, called from socket.Base.BlockingOp.
func IncSocketBlocked(outcome string) {
	socketBlocked.WithLabelValues(outcome).Inc()
}

// SetReactorLoad reports one I/O thread's current Load(), called by the
// reactor itself each time its load counter changes.
func SetReactorLoad(reactorID string, load int32) {
	reactorLoad.WithLabelValues(reactorID).Set(float64(load))
}

// AddTransportBytes counts bytes moved by a transport engine. direction
// is "tx" or "rx".
func AddTransportBytes(scheme, direction string, n int) {
	transportBytes.WithLabelValues(scheme, direction).Add(float64(n))
}

// IncTransportReconnect counts one reconnect attempt by a client-side
// transport engine.
func IncTransportReconnect(scheme string) {
	transportReconnects.WithLabelValues(scheme).Inc()
}
