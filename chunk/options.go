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

package chunk

import (
	"log/slog"
)

// DefaultDesyncSkipByte is the stray byte found before some chunk headers
const DefaultDesyncSkipByte = 0x80

// Config holds the settings of a chunk stream
type Config struct {
	Dialect            Dialect
	Alignment          int
	SizeIncludesHeader bool
	// DesyncSkip enables skipping a single DesyncSkipByte found where a
	// header is expected
	DesyncSkip     bool
	DesyncSkipByte byte
	Logger         *slog.Logger
}

// DefaultConfig returns the settings for the specified dialect
func DefaultConfig(dialect Dialect) Config {
	switch dialect {
	case DialectLegacy:
		return Config{
			Dialect:   DialectLegacy,
			Alignment: 1,
		}
	default:
		return Config{
			Dialect:            DialectIFF,
			Alignment:          2,
			SizeIncludesHeader: true,
			DesyncSkip:         true,
			DesyncSkipByte:     DefaultDesyncSkipByte,
		}
	}
}

// StreamOptionFunc is a type that represents functions that modify the stream config
type StreamOptionFunc func(*Config)

// WithDialect selects the header dialect. This resets the alignment, size
// convention and desync settings to the dialect's defaults, so it should be
// specified before other options
func WithDialect(dialect Dialect) StreamOptionFunc {
	return func(c *Config) {
		logger := c.Logger
		*c = DefaultConfig(dialect)
		c.Logger = logger
	}
}

// WithAlignment specifies the byte boundary that chunks are padded to
func WithAlignment(alignment int) StreamOptionFunc {
	return func(c *Config) {
		c.Alignment = alignment
	}
}

// WithSizeIncludesHeader specifies whether the size field counts the header bytes
func WithSizeIncludesHeader(inclusive bool) StreamOptionFunc {
	return func(c *Config) {
		c.SizeIncludesHeader = inclusive
	}
}

// WithDesyncSkipByte enables the single-byte desync workaround for the given byte value
func WithDesyncSkipByte(b byte) StreamOptionFunc {
	return func(c *Config) {
		c.DesyncSkip = true
		c.DesyncSkipByte = b
	}
}

// WithoutDesyncSkip disables the desync workaround
func WithoutDesyncSkip() StreamOptionFunc {
	return func(c *Config) {
		c.DesyncSkip = false
	}
}

// WithLogger specifies the logger to use. If none is provided, slog.Default() is used
func WithLogger(logger *slog.Logger) StreamOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}
