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

// Package codec holds the types shared by the image payload codecs
package codec

import (
	"bytes"
	"errors"
	"fmt"
)

var ErrInvalidDimensions = errors.New("invalid image dimensions")

// Bitmap is a matrix of palette indices stored row by row
type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
}

// NewBitmap returns a zeroed bitmap
func NewBitmap(width int, height int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Bitmap{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height),
	}, nil
}

// FromRows builds a bitmap from equal-length rows
func FromRows(rows [][]byte) (*Bitmap, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidDimensions)
	}
	b, err := NewBitmap(len(rows[0]), len(rows))
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		if len(row) != b.Width {
			return nil, fmt.Errorf("%w: row %d has %d pixels, expected %d", ErrInvalidDimensions, y, len(row), b.Width)
		}
		copy(b.Pix[y*b.Width:], row)
	}
	return b, nil
}

func (b *Bitmap) At(x int, y int) byte {
	return b.Pix[y*b.Width+x]
}

func (b *Bitmap) Set(x int, y int, v byte) {
	b.Pix[y*b.Width+x] = v
}

// Equal reports whether both bitmaps have the same size and pixels
func (b *Bitmap) Equal(other *Bitmap) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.Width == other.Width &&
		b.Height == other.Height &&
		bytes.Equal(b.Pix, other.Pix)
}

// Clone returns a deep copy
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{
		Width:  b.Width,
		Height: b.Height,
		Pix:    bytes.Clone(b.Pix),
	}
}

// Region copies the w x h block with top-left corner (x, y) in row order
func (b *Bitmap) Region(x int, y int, w int, h int) []byte {
	ret := make([]byte, 0, w*h)
	for row := y; row < y+h; row++ {
		start := row*b.Width + x
		ret = append(ret, b.Pix[start:start+w]...)
	}
	return ret
}

// SetRegion writes a w x h block given in row order at (x, y)
func (b *Bitmap) SetRegion(x int, y int, w int, h int, pix []byte) {
	for row := 0; row < h; row++ {
		copy(b.Pix[(y+row)*b.Width+x:], pix[row*w:(row+1)*w])
	}
}

// ColumnMajor returns the pixels ordered column by column
func (b *Bitmap) ColumnMajor() []byte {
	ret := make([]byte, 0, len(b.Pix))
	for x := 0; x < b.Width; x++ {
		for y := 0; y < b.Height; y++ {
			ret = append(ret, b.At(x, y))
		}
	}
	return ret
}

// SetColumnMajor fills the bitmap from pixels ordered column by column
func (b *Bitmap) SetColumnMajor(pix []byte) {
	i := 0
	for x := 0; x < b.Width; x++ {
		for y := 0; y < b.Height; y++ {
			b.Set(x, y, pix[i])
			i++
		}
	}
}

// MaxIndex returns the largest palette index used
func (b *Bitmap) MaxIndex() byte {
	var ret byte
	for _, v := range b.Pix {
		ret = max(ret, v)
	}
	return ret
}
