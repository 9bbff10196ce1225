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

// Package smap implements the strip-compressed room image format. An image
// payload starts with a table of little-endian 32-bit offsets, one per
// 8-pixel-wide strip, followed by the strips. Each strip begins with a method
// byte selecting its compression algorithm.
package smap

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/blinklabs-io/gochunk/codec"
)

const StripWidth = 8

const offsetEntrySize = 4

var deltaTable = [8]int{-4, -3, -2, -1, 1, 2, 3, 4}

// Decode decodes a strip image payload
func Decode(width int, height int, data []byte, opts ...OptionFunc) (*codec.Bitmap, error) {
	o := newOptions(opts)
	offsets, err := readOffsets(width, data, o.OffsetBias)
	if err != nil {
		return nil, err
	}
	bmp, err := codec.NewBitmap(width, height)
	if err != nil {
		return nil, err
	}
	for i, off := range offsets {
		pix, _, err := DecodeStrip(height, data[off:])
		if err != nil {
			return nil, &DecodeError{Strip: i, Code: data[off], Err: err}
		}
		bmp.SetRegion(i*StripWidth, 0, StripWidth, height, pix)
	}
	return bmp, nil
}

// ExtractCodes returns the method byte of every strip, suitable for WithHints
func ExtractCodes(width int, data []byte, opts ...OptionFunc) ([]byte, error) {
	o := newOptions(opts)
	offsets, err := readOffsets(width, data, o.OffsetBias)
	if err != nil {
		return nil, err
	}
	ret := make([]byte, len(offsets))
	for i, off := range offsets {
		ret[i] = data[off]
	}
	return ret, nil
}

// readOffsets returns the payload position of each strip
func readOffsets(width int, data []byte, bias int) ([]int, error) {
	if width <= 0 || width%StripWidth != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	count := width / StripWidth
	tableSize := count * offsetEntrySize
	if len(data) < tableSize {
		return nil, fmt.Errorf(
			"%w: offset table needs %d bytes, have %d",
			ErrInvalidOffset,
			tableSize,
			len(data),
		)
	}
	ret := make([]int, count)
	for i := range ret {
		off := int(binary.LittleEndian.Uint32(data[i*offsetEntrySize:])) - bias
		if off < tableSize || off >= len(data) {
			return nil, fmt.Errorf("%w: strip %d at %d", ErrInvalidOffset, i, off)
		}
		ret[i] = off
	}
	return ret, nil
}

// stripEnds returns the end position of each strip, taken as the next larger
// strip offset or the end of the payload
func stripEnds(offsets []int, size int) []int {
	ret := make([]int, len(offsets))
	for i, off := range offsets {
		end := size
		for _, other := range offsets {
			if other > off && other < end {
				end = other
			}
		}
		ret[i] = end
	}
	return ret
}

// DecodeStrip decodes one strip of the given height. The returned pixels are
// in row order, StripWidth per row.
func DecodeStrip(height int, strip []byte) ([]byte, Method, error) {
	if len(strip) == 0 {
		return nil, Method{}, ErrBitstreamUnderrun
	}
	m, err := LookupMethod(strip[0])
	if err != nil {
		return nil, Method{}, err
	}
	pix, err := decodeStrip(m, height, strip[1:])
	if err != nil {
		return nil, m, err
	}
	return pix, m, nil
}

func decodeStrip(m Method, height int, data []byte) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	total := StripWidth * height
	switch m.Algorithm {
	case AlgorithmRaw:
		if len(data) < total {
			return nil, ErrBitstreamUnderrun
		}
		return bytes.Clone(data[:total]), nil
	case AlgorithmFill:
		if len(data) < 1 {
			return nil, ErrBitstreamUnderrun
		}
		return bytes.Repeat(data[:1], total), nil
	}
	if len(data) < 1 {
		return nil, ErrBitstreamUnderrun
	}
	r := newBitReader(data[1:])
	var seq []byte
	var err error
	switch m.Algorithm {
	case AlgorithmBasic:
		seq, err = decodeBasic(r, data[0], total, m.BitWidth)
	case AlgorithmComplex:
		seq, err = decodeComplex(r, data[0], total, m.BitWidth)
	case AlgorithmDeltaTable:
		seq, err = decodeDeltaTable(r, data[0], total, m.BitWidth)
	}
	if err != nil {
		return nil, err
	}
	return fromSequence(seq, m.Direction, height), nil
}

func decodeBasic(r *bitReader, color byte, total int, width uint) ([]byte, error) {
	ret := make([]byte, 1, total)
	ret[0] = color
	inc := -1
	for len(ret) < total {
		set, err := r.readBit()
		if err != nil {
			return nil, err
		}
		if set {
			load, err := r.readBit()
			if err != nil {
				return nil, err
			}
			if !load {
				v, err := r.readBits(width)
				if err != nil {
					return nil, err
				}
				color = byte(v)
				inc = -1
			} else {
				flip, err := r.readBit()
				if err != nil {
					return nil, err
				}
				if flip {
					inc = -inc
				}
				color = byte(int(color) + inc)
			}
		}
		ret = append(ret, color)
	}
	return ret, nil
}

func decodeComplex(r *bitReader, color byte, total int, width uint) ([]byte, error) {
	ret := make([]byte, 1, total)
	ret[0] = color
	for len(ret) < total {
		set, err := r.readBit()
		if err != nil {
			return nil, err
		}
		if set {
			delta, err := r.readBit()
			if err != nil {
				return nil, err
			}
			if !delta {
				v, err := r.readBits(width)
				if err != nil {
					return nil, err
				}
				color = byte(v)
			} else {
				v, err := r.readBits(3)
				if err != nil {
					return nil, err
				}
				if inc := int(v) - 4; inc != 0 {
					color = byte(int(color) + inc)
				} else {
					// Run of the current color, followed by another code
					reps, err := r.readBits(8)
					if err != nil {
						return nil, err
					}
					if reps == 0 {
						reps = 256
					}
					for ; reps > 0 && len(ret) < total; reps-- {
						ret = append(ret, color)
					}
					continue
				}
			}
		}
		ret = append(ret, color)
	}
	return ret, nil
}

func decodeDeltaTable(r *bitReader, color byte, total int, width uint) ([]byte, error) {
	ret := make([]byte, 1, total)
	ret[0] = color
	for len(ret) < total {
		set, err := r.readBit()
		if err != nil {
			return nil, err
		}
		if set {
			delta, err := r.readBit()
			if err != nil {
				return nil, err
			}
			if delta {
				v, err := r.readBits(3)
				if err != nil {
					return nil, err
				}
				color = byte(int(color) + deltaTable[v])
			} else {
				v, err := r.readBits(width)
				if err != nil {
					return nil, err
				}
				color = byte(v)
			}
		}
		ret = append(ret, color)
	}
	return ret, nil
}

// fromSequence lays out pixels visited in the given direction as rows
func fromSequence(seq []byte, dir Direction, height int) []byte {
	if dir == Horizontal {
		return seq
	}
	ret := make([]byte, len(seq))
	i := 0
	for x := 0; x < StripWidth; x++ {
		for y := 0; y < height; y++ {
			ret[y*StripWidth+x] = seq[i]
			i++
		}
	}
	return ret
}

// toSequence orders strip pixels in the given visiting direction
func toSequence(pix []byte, dir Direction, height int) []byte {
	if dir == Horizontal {
		return pix
	}
	ret := make([]byte, 0, len(pix))
	for x := 0; x < StripWidth; x++ {
		for y := 0; y < height; y++ {
			ret = append(ret, pix[y*StripWidth+x])
		}
	}
	return ret
}
