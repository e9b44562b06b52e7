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

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libcfg "github.com/nabbar/xs/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

const sampleYAML = `
io_threads: 3
logger:
  level: debug
  format: json
sockets:
  - name: events-in
    type: PULL
    hwm: 100
    bind:
      - uri: "tcp://127.0.0.1:0"
  - name: events-out
    type: PUSH
    connect:
      - uri: "tcp://127.0.0.1:5555"
devices:
  - kind: streamer
    frontend: events-in
    backend: events-out
nats:
  url: "nats://localhost:4222"
  tls_key: edge
`

var _ = Describe("config.Load", func() {
	var dir string
	var path string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "xs.yaml")
		Expect(os.WriteFile(path, []byte(sampleYAML), 0o644)).To(Succeed())
	})

	It("decodes the known sections", func() {
		cfg, err := libcfg.Load(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.IOThreads).To(Equal(3))
		Expect(cfg.Logger.Level).To(Equal("debug"))
		Expect(cfg.Sockets).To(HaveLen(2))
		Expect(cfg.Sockets[0].Name).To(Equal("events-in"))
		Expect(cfg.Sockets[0].Bind[0].URI).To(Equal("tcp://127.0.0.1:0"))
		Expect(cfg.Devices).To(HaveLen(1))
		Expect(cfg.Devices[0].Frontend).To(Equal("events-in"))
	})

	It("decodes an unrecognized top-level section on demand", func() {
		cfg, err := libcfg.Load(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.HasComponent("nats")).To(BeTrue())

		var nats struct {
			URL    string `mapstructure:"url"`
			TLSKey string `mapstructure:"tls_key"`
		}
		Expect(cfg.DecodeComponent("nats", &nats)).To(Succeed())
		Expect(nats.URL).To(Equal("nats://localhost:4222"))
		Expect(nats.TLSKey).To(Equal("edge"))
	})

	It("rejects a device referencing an undeclared socket", func() {
		bad := []byte(`
sockets:
  - name: only-one
    type: PUSH
devices:
  - kind: streamer
    frontend: only-one
    backend: missing
`)
		cfg, err := libcfg.ParseYAML(bad)
		Expect(cfg).To(BeNil())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("missing"))
	})

	It("rejects an endpoint URI with an unsupported scheme", func() {
		bad := []byte(`
sockets:
  - name: s1
    type: PUB
    bind:
      - uri: "pgm://230.1.1.1:5555"
`)
		_, err := libcfg.ParseYAML(bad)
		Expect(err).To(HaveOccurred())
	})

	It("round-trips through YAML", func() {
		cfg, err := libcfg.Load(path)
		Expect(err).ToNot(HaveOccurred())
		text, err := cfg.YAML()
		Expect(err).ToNot(HaveOccurred())
		Expect(text).To(ContainSubstring("io_threads"))
	})

	It("reloads on file change", func() {
		w, err := libcfg.NewWatcher(path)
		Expect(err).ToNot(HaveOccurred())
		defer w.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		reloaded := make(chan *libcfg.Config, 1)
		go w.Watch(ctx, func(c *libcfg.Config) { reloaded <- c }, nil)

		time.Sleep(50 * time.Millisecond)
		Expect(os.WriteFile(path, []byte(sampleYAML+"\n"), 0o644)).To(Succeed())

		Eventually(reloaded, time.Second).Should(Receive())
	})
})
