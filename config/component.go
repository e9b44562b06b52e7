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

	"github.com/mitchellh/mapstructure"
)

// DecodeComponent decodes the raw settings block registered under name
// (anything Load collected under Components, i.e. every top-level key
// this package's own Config struct doesn't name) into out, the same
// load-the-core-shape-then-decode-each-extension-on-demand split
// config/components/natsServer.ComponentNats uses for its own
// per-component settings.
func (c *Config) DecodeComponent(name string, out interface{}) error {
	raw, ok := c.Components[name]
	if !ok {
		return fmt.Errorf("config: no component section %q", name)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("config: building decoder for component %q: %w", name, err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("config: decoding component %q: %w", name, err)
	}
	return nil
}

// HasComponent reports whether name was present as a top-level section
// of the loaded file.
func (c *Config) HasComponent(name string) bool {
	_, ok := c.Components[name]
	return ok
}
