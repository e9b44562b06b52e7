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

package transport

import (
	"bufio"
	"encoding/binary"
	"io"

	libmsg "github.com/nabbar/xs/message"
)

// writeFrame serializes one message part as a 1-byte flags field
// followed by a varint length and the payload — the minimal framing
// spec §4.9a leaves to "the transport engine" for any byte-stream
// transport (tcp, ipc).
func writeFrame(w io.Writer, msg libmsg.Msg) (int, error) {
	var hdr [1 + binary.MaxVarintLen64]byte
	hdr[0] = byte(msg.Flags())
	n := binary.PutUvarint(hdr[1:], uint64(msg.Len()))

	written, err := w.Write(hdr[:1+n])
	if err != nil {
		return written, err
	}
	if msg.Len() == 0 {
		return written, nil
	}
	nb, err := w.Write(msg.Bytes())
	return written + nb, err
}

// readFrame blocks until one full frame is available on r, or returns
// the underlying read error (including io.EOF on a clean peer close).
func readFrame(r *bufio.Reader) (libmsg.Msg, int, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return libmsg.Msg{}, 0, err
	}
	ln, err := binary.ReadUvarint(r)
	if err != nil {
		return libmsg.Msg{}, 1, err
	}

	n := 1
	var buf []byte
	if ln > 0 {
		buf = make([]byte, ln)
		if _, err := io.ReadFull(r, buf); err != nil {
			return libmsg.Msg{}, n, err
		}
		n += len(buf)
	}

	m := libmsg.FromBytes(buf, nil)
	m.SetFlags(libmsg.Flag(flag))
	return m, n, nil
}
