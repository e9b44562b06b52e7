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

// Package config loads the declarative shape of a process's sockets,
// devices, and logging from a YAML file (spec's ambient config stack,
// grounded on nabbar-golib's viper-backed config.Config and its
// per-component mapstructure decode pattern), with an optional
// fsnotify watch so a running process can pick up endpoint changes
// without a restart.
package config

import "time"

// EndpointConfig is one Bind or Connect call a Socket entry wants
// performed at startup.
type EndpointConfig struct {
	URI string `mapstructure:"uri" yaml:"uri"`
}

// SocketConfig declares one xs.Socket to create: its pattern, the
// common option block, and the endpoints to bind/connect.
type SocketConfig struct {
	Name     string           `mapstructure:"name" yaml:"name"`
	Type     string           `mapstructure:"type" yaml:"type"`
	HWM      uint64           `mapstructure:"hwm" yaml:"hwm"`
	Linger   time.Duration    `mapstructure:"linger" yaml:"linger"`
	SndTimeo time.Duration    `mapstructure:"snd_timeo" yaml:"snd_timeo"`
	RcvTimeo time.Duration    `mapstructure:"rcv_timeo" yaml:"rcv_timeo"`
	Bind     []EndpointConfig `mapstructure:"bind" yaml:"bind"`
	Connect  []EndpointConfig `mapstructure:"connect" yaml:"connect"`
}

// DeviceConfig declares one streamer/forwarder/queue wiring two named
// sockets together (spec §4.10).
type DeviceConfig struct {
	Kind     string `mapstructure:"kind" yaml:"kind"`
	Frontend string `mapstructure:"frontend" yaml:"frontend"`
	Backend  string `mapstructure:"backend" yaml:"backend"`
}

// LoggerConfig mirrors package logger's Config in a form viper/yaml can
// populate directly.
type LoggerConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	Format    string `mapstructure:"format" yaml:"format"`
	Syslog    string `mapstructure:"syslog" yaml:"syslog"`
	SyslogTag string `mapstructure:"syslog_tag" yaml:"syslog_tag"`
}

// Config is the root of a loaded configuration file.
type Config struct {
	IOThreads int            `mapstructure:"io_threads" yaml:"io_threads"`
	Logger    LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Sockets   []SocketConfig `mapstructure:"sockets" yaml:"sockets"`
	Devices   []DeviceConfig `mapstructure:"devices" yaml:"devices"`

	// Components holds any remaining top-level keys this struct does not
	// name explicitly, keyed by section name, each decodable on demand
	// through DecodeComponent — the same two-phase "load the known
	// shape, decode the rest per component" split
	// config/components/natsServer's registry uses.
	Components map[string]map[string]interface{} `mapstructure:",remain" yaml:",inline"`
}

func defaultConfig() Config {
	return Config{
		IOThreads: 1,
		Logger:    LoggerConfig{Level: "info", Format: "text"},
	}
}
