// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package smap

// Strip bitstreams are consumed least significant bit first. A multi-bit
// field is stored with its low bit first.

type bitReader struct {
	data []byte
	pos  int
	acc  uint32
	n    uint
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (r *bitReader) fill(n uint) error {
	for r.n < n {
		if r.pos >= len(r.data) {
			return ErrBitstreamUnderrun
		}
		r.acc |= uint32(r.data[r.pos]) << r.n
		r.pos++
		r.n += 8
	}
	return nil
}

func (r *bitReader) readBit() (bool, error) {
	v, err := r.readBits(1)
	return v == 1, err
}

func (r *bitReader) readBits(n uint) (uint32, error) {
	if err := r.fill(n); err != nil {
		return 0, err
	}
	v := r.acc & (1<<n - 1)
	r.acc >>= n
	r.n -= n
	return v, nil
}

type bitWriter struct {
	buf []byte
	acc uint32
	n   uint
}

func (w *bitWriter) writeBits(v uint32, n uint) {
	w.acc |= (v & (1<<n - 1)) << w.n
	w.n += n
	for w.n >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.n -= 8
	}
}

// bytes flushes any partial byte, padding with zero bits
func (w *bitWriter) bytes() []byte {
	if w.n > 0 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc = 0
		w.n = 0
	}
	return w.buf
}
