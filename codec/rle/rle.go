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

// Package rle implements the packed run-length image format used for costume
// and object images with small palettes. Each run byte holds the palette index
// in its high bits and the run length in its low bits. A zero length means the
// length follows in the next byte. Pixels are stored column by column.
package rle

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/gochunk/codec"
)

var (
	ErrUnsupportedColors = errors.New("unsupported palette size")
	ErrColorOutOfRange   = errors.New("palette index out of range")
	ErrUnderrun          = errors.New("run data ends before the image is complete")
)

const maxRun = 255

type layout struct {
	shift uint
	mask  byte
}

var layouts = map[int]layout{
	16: {shift: 4, mask: 0x0f},
	32: {shift: 3, mask: 0x07},
	64: {shift: 2, mask: 0x03},
}

func lookupLayout(numColors int) (layout, error) {
	l, ok := layouts[numColors]
	if !ok {
		return layout{}, fmt.Errorf("%w: %d", ErrUnsupportedColors, numColors)
	}
	return l, nil
}

type config struct {
	lenient bool
	logger  *slog.Logger
}

// OptionFunc is a type that represents functions that modify the decoder config
type OptionFunc func(*config)

// WithLenient makes Decode zero-fill the rest of the image when the run data
// ends early instead of failing
func WithLenient() OptionFunc {
	return func(c *config) {
		c.lenient = true
	}
}

// WithLogger specifies the logger object to use
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(c *config) {
		c.logger = logger
	}
}

// Decode decodes a run-length payload into a width x height bitmap
func Decode(width int, height int, numColors int, data []byte, opts ...OptionFunc) (*codec.Bitmap, error) {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	l, err := lookupLayout(numColors)
	if err != nil {
		return nil, err
	}
	bmp, err := codec.NewBitmap(width, height)
	if err != nil {
		return nil, err
	}
	total := width * height
	out := make([]byte, 0, total)
	pos := 0
	for len(out) < total {
		if pos >= len(data) {
			if !c.lenient {
				return nil, fmt.Errorf("%w: %d of %d pixels", ErrUnderrun, len(out), total)
			}
			c.logger.Warn(
				"run data ended early, padding image",
				"component", "rle",
				"pixels", len(out),
				"expected", total,
			)
			out = append(out, make([]byte, total-len(out))...)
			break
		}
		b := data[pos]
		pos++
		color := b >> l.shift
		run := int(b & l.mask)
		if run == 0 {
			if pos >= len(data) {
				if !c.lenient {
					return nil, fmt.Errorf("%w: missing run length at %d", ErrUnderrun, pos)
				}
				continue
			}
			run = int(data[pos])
			pos++
		}
		for ; run > 0 && len(out) < total; run-- {
			out = append(out, color)
		}
	}
	bmp.SetColumnMajor(out)
	return bmp, nil
}

// Encode encodes bmp for a palette of numColors entries
func Encode(bmp *codec.Bitmap, numColors int) ([]byte, error) {
	l, err := lookupLayout(numColors)
	if err != nil {
		return nil, err
	}
	pix := bmp.ColumnMajor()
	var ret []byte
	for i := 0; i < len(pix); {
		value := pix[i]
		if int(value) >= numColors {
			return nil, fmt.Errorf("%w: %d >= %d", ErrColorOutOfRange, value, numColors)
		}
		run := 1
		for i+run < len(pix) && pix[i+run] == value {
			run++
		}
		i += run
		packed := value << l.shift
		for run > maxRun {
			ret = append(ret, packed, maxRun)
			run -= maxRun
		}
		if run > int(l.mask) {
			ret = append(ret, packed, byte(run))
		} else {
			ret = append(ret, packed|byte(run))
		}
	}
	return ret, nil
}
