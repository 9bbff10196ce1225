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

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/blinklabs-io/gochunk/codec"
)

const (
	// Shortest run worth a 13-bit run code over one bit per pixel
	minComplexRun = 14
	maxComplexRun = 255
)

// Encode encodes bmp as a strip image payload. Each strip, and then the whole
// payload, is decoded again and compared with bmp before it is returned.
func Encode(bmp *codec.Bitmap, opts ...OptionFunc) ([]byte, error) {
	o := newOptions(opts)
	if bmp == nil || bmp.Width <= 0 || bmp.Width%StripWidth != 0 {
		width := 0
		if bmp != nil {
			width = bmp.Width
		}
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	count := bmp.Width / StripWidth
	hints := o.Hints
	var ref *reference
	if o.Reference != nil {
		var err error
		ref, err = splitReference(bmp.Width, bmp.Height, o.Reference, o.OffsetBias)
		if err != nil {
			return nil, fmt.Errorf("reference payload: %w", err)
		}
		if hints == nil {
			hints = ref.codes()
		}
	}
	strips := make([][]byte, count)
	for i := range count {
		pix := bmp.Region(i*StripWidth, 0, StripWidth, bmp.Height)
		var strip []byte
		if ref != nil && bytes.Equal(ref.pix[i], pix) {
			strip = bytes.Clone(ref.strips[i])
		} else {
			var err error
			if i < len(hints) {
				strip, err = encodeHinted(o.Logger, i, hints[i], pix, bmp.Height)
			} else {
				strip, err = encodeAuto(pix, bmp.Height)
			}
			if err != nil {
				return nil, fmt.Errorf("strip %d: %w", i, err)
			}
		}
		got, _, err := DecodeStrip(bmp.Height, strip)
		if err != nil || !bytes.Equal(got, pix) {
			return nil, &RoundTripError{Strip: i}
		}
		strips[i] = strip
	}
	tableSize := count * offsetEntrySize
	ret := make([]byte, tableSize)
	pos := tableSize
	for i, strip := range strips {
		binary.LittleEndian.PutUint32(
			ret[i*offsetEntrySize:],
			uint32(pos+o.OffsetBias), // #nosec G115 -- payloads are far below 4 GiB
		)
		pos += len(strip)
	}
	for _, strip := range strips {
		ret = append(ret, strip...)
	}
	check, err := Decode(bmp.Width, bmp.Height, ret, WithOffsetBias(o.OffsetBias), WithLogger(o.Logger))
	if err != nil || !check.Equal(bmp) {
		return nil, &RoundTripError{Strip: -1}
	}
	return ret, nil
}

// EncodeStrip encodes one strip, given in row order, with the method for code
func EncodeStrip(code byte, height int, pix []byte) ([]byte, error) {
	m, err := LookupMethod(code)
	if err != nil {
		return nil, err
	}
	return encodeStrip(m, height, pix)
}

func encodeHinted(logger *slog.Logger, strip int, hint byte, pix []byte, height int) ([]byte, error) {
	ret, err := EncodeStrip(hint, height, pix)
	if err == nil {
		return ret, nil
	}
	logger.Debug(
		"hint method cannot encode strip, choosing another",
		"strip", strip,
		"hint", hint,
		"error", err,
	)
	return encodeAuto(pix, height)
}

// encodeAuto tries raw, basic in both directions and complex at the narrowest
// bit width holding every index, keeping the shortest result. Ties go to the
// lower method code.
func encodeAuto(pix []byte, height int) ([]byte, error) {
	var maxIndex byte
	for _, v := range pix {
		maxIndex = max(maxIndex, v)
	}
	width := byte(max(4, bits.Len8(maxIndex)))
	candidates := []byte{CodeRaw, 10 + width, 20 + width, 60 + width}
	var ret []byte
	for _, code := range candidates {
		strip, err := EncodeStrip(code, height, pix)
		if err != nil {
			return nil, err
		}
		if ret == nil || len(strip) < len(ret) {
			ret = strip
		}
	}
	return ret, nil
}

func encodeStrip(m Method, height int, pix []byte) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	if len(pix) != StripWidth*height || height <= 0 {
		return nil, fmt.Errorf("%w: %d pixels for height %d", codec.ErrInvalidDimensions, len(pix), height)
	}
	switch m.Algorithm {
	case AlgorithmRaw:
		return append([]byte{m.Code}, pix...), nil
	case AlgorithmFill:
		if bytes.Count(pix, pix[:1]) != len(pix) {
			return nil, fmt.Errorf("%w: strip is not a single color", errUnrepresentable)
		}
		return []byte{m.Code, pix[0]}, nil
	}
	seq := toSequence(pix, m.Direction, height)
	w := &bitWriter{}
	var err error
	switch m.Algorithm {
	case AlgorithmBasic:
		err = encodeBasic(w, seq, m.BitWidth)
	case AlgorithmComplex:
		err = encodeComplex(w, seq, m.BitWidth)
	case AlgorithmDeltaTable:
		err = encodeDeltaTable(w, seq, m.BitWidth)
	}
	if err != nil {
		return nil, err
	}
	return append([]byte{m.Code, seq[0]}, w.bytes()...), nil
}

func writeLoad(w *bitWriter, color byte, width uint) error {
	if uint(bits.Len8(color)) > width {
		return fmt.Errorf("%w: index %d exceeds %d bits", errUnrepresentable, color, width)
	}
	// 1 then 0
	w.writeBits(0b01, 2)
	w.writeBits(uint32(color), width)
	return nil
}

func encodeBasic(w *bitWriter, seq []byte, width uint) error {
	color := seq[0]
	inc := -1
	for _, next := range seq[1:] {
		switch next {
		case color:
			w.writeBits(0, 1)
		case byte(int(color) + inc):
			// 1, 1, 0
			w.writeBits(0b011, 3)
		case byte(int(color) - inc):
			w.writeBits(0b111, 3)
			inc = -inc
		default:
			if err := writeLoad(w, next, width); err != nil {
				return err
			}
			inc = -1
		}
		color = next
	}
	return nil
}

func encodeComplex(w *bitWriter, seq []byte, width uint) error {
	color := seq[0]
	for i := 1; i < len(seq); {
		run := 0
		for i+run < len(seq) && seq[i+run] == color && run < maxComplexRun {
			run++
		}
		if run >= minComplexRun {
			w.writeBits(0b11, 2)
			w.writeBits(4, 3)
			w.writeBits(uint32(run), 8)
			i += run
			continue
		}
		next := seq[i]
		diff := int(int8(next - color))
		switch {
		case diff == 0:
			w.writeBits(0, 1)
		case diff >= -4 && diff <= 3:
			w.writeBits(0b11, 2)
			w.writeBits(uint32(diff+4), 3)
		default:
			if err := writeLoad(w, next, width); err != nil {
				return err
			}
		}
		color = next
		i++
	}
	return nil
}

func encodeDeltaTable(w *bitWriter, seq []byte, width uint) error {
	color := seq[0]
	for _, next := range seq[1:] {
		diff := int(int8(next - color))
		switch {
		case diff == 0:
			w.writeBits(0, 1)
		case diff >= -4 && diff <= 4:
			idx := diff + 4
			if diff > 0 {
				idx--
			}
			w.writeBits(0b11, 2)
			w.writeBits(uint32(idx), 3)
		default:
			if err := writeLoad(w, next, width); err != nil {
				return err
			}
		}
		color = next
	}
	return nil
}

// reference is a previously encoded payload split into strips
type reference struct {
	strips [][]byte
	pix    [][]byte
}

func splitReference(width int, height int, data []byte, bias int) (*reference, error) {
	offsets, err := readOffsets(width, data, bias)
	if err != nil {
		return nil, err
	}
	ends := stripEnds(offsets, len(data))
	ret := &reference{
		strips: make([][]byte, len(offsets)),
		pix:    make([][]byte, len(offsets)),
	}
	for i, off := range offsets {
		strip := data[off:ends[i]]
		pix, _, err := DecodeStrip(height, strip)
		if err != nil {
			return nil, &DecodeError{Strip: i, Code: strip[0], Err: err}
		}
		ret.strips[i] = strip
		ret.pix[i] = pix
	}
	return ret, nil
}

func (r *reference) codes() []byte {
	ret := make([]byte, len(r.strips))
	for i, strip := range r.strips {
		ret[i] = strip[0]
	}
	return ret
}
