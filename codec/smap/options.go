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

import "log/slog"

// Options controls decoding and encoding of strip images
type Options struct {
	// OffsetBias is added to every stored strip offset. Offsets are relative
	// to the start of the payload when it is zero.
	OffsetBias int
	Hints      []byte
	Reference  []byte
	Logger     *slog.Logger
}

// OptionFunc is a type that represents functions that modify the codec options
type OptionFunc func(*Options)

// WithOffsetBias specifies the value added to stored strip offsets, such as 8
// when offsets count from the start of the enclosing chunk header
func WithOffsetBias(bias int) OptionFunc {
	return func(o *Options) {
		o.OffsetBias = bias
	}
}

// WithHints specifies per-strip method codes the encoder tries first
func WithHints(codes []byte) OptionFunc {
	return func(o *Options) {
		o.Hints = codes
	}
}

// WithReference specifies a previously encoded payload of the same image.
// Strips whose pixels are unchanged are copied from it verbatim and its
// method codes are used as hints for the others.
func WithReference(ref []byte) OptionFunc {
	return func(o *Options) {
		o.Reference = ref
	}
}

// WithLogger specifies the logger object to use
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(o *Options) {
		o.Logger = logger
	}
}

func newOptions(opts []OptionFunc) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Logger = o.Logger.With("component", "smap")
	return o
}
