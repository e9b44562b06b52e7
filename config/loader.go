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

package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	libtp "github.com/nabbar/xs/transport"
)

// Load reads a YAML (or any format viper recognizes by extension) file
// at path and decodes it into a Config, the way nabbar-golib's config
// package layers viper's file reading under mapstructure-driven struct
// population.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := defaultConfig()
	dec := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, dec); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every declared socket and device for the kind of
// mistakes that are cheap to catch before a process tries to Bind or
// Connect, collecting every independent failure with go-multierror
// instead of stopping at the first one — a config with three bad
// socket entries should report all three in one pass.
func (c *Config) Validate() error {
	var result *multierror.Error

	names := make(map[string]struct{}, len(c.Sockets))
	for _, s := range c.Sockets {
		if s.Name == "" {
			result = multierror.Append(result, fmt.Errorf("socket entry missing name"))
			continue
		}
		if _, dup := names[s.Name]; dup {
			result = multierror.Append(result, fmt.Errorf("socket %q declared more than once", s.Name))
		}
		names[s.Name] = struct{}{}

		if !validSocketType(s.Type) {
			result = multierror.Append(result, fmt.Errorf("socket %q: unknown type %q", s.Name, s.Type))
		}
		for _, ep := range s.Bind {
			if _, _, ferr := libtp.ParseURI(ep.URI); ferr != nil {
				result = multierror.Append(result, fmt.Errorf("socket %q: bind %q: %s", s.Name, ep.URI, ferr.Error()))
			}
		}
		for _, ep := range s.Connect {
			if _, _, ferr := libtp.ParseURI(ep.URI); ferr != nil {
				result = multierror.Append(result, fmt.Errorf("socket %q: connect %q: %s", s.Name, ep.URI, ferr.Error()))
			}
		}
	}

	for _, d := range c.Devices {
		if _, ok := names[d.Frontend]; !ok {
			result = multierror.Append(result, fmt.Errorf("device %q: frontend %q is not a declared socket", d.Kind, d.Frontend))
		}
		if _, ok := names[d.Backend]; !ok {
			result = multierror.Append(result, fmt.Errorf("device %q: backend %q is not a declared socket", d.Kind, d.Backend))
		}
	}

	if result != nil {
		result.ErrorFormat = func(errs []error) string {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return fmt.Sprintf("%d config error(s): %s", len(errs), strings.Join(msgs, "; "))
		}
		return result.ErrorOrNil()
	}
	return nil
}

func validSocketType(t string) bool {
	switch strings.ToUpper(t) {
	case "PAIR", "PUB", "SUB", "XPUB", "XSUB", "PUSH", "PULL",
		"REQ", "REP", "DEALER", "ROUTER",
		"SURVEYOR", "RESPONDENT", "XSURVEYOR", "XRESPONDENT":
		return true
	default:
		return false
	}
}
