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

// Package preset bundles the chunk stream settings, schema and validation
// mode used by each known archive family
package preset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/blinklabs-io/gochunk/chunk"
	"github.com/blinklabs-io/gochunk/schema"
	"github.com/blinklabs-io/gochunk/tree"
	"github.com/jinzhu/copier"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a named set of archive settings
type Preset struct {
	Name     string
	Config   chunk.Config
	Schema   schema.Schema
	Mode     schema.Mode
	MaxDepth int
}

// OptionFunc is a type that represents functions that modify a preset
type OptionFunc func(*Preset)

// WithStreamOptions applies chunk stream options to the preset config
func WithStreamOptions(opts ...chunk.StreamOptionFunc) OptionFunc {
	return func(p *Preset) {
		for _, opt := range opts {
			opt(&p.Config)
		}
	}
}

// WithSchema specifies the schema used to nest chunks
func WithSchema(s schema.Schema) OptionFunc {
	return func(p *Preset) {
		p.Schema = s
	}
}

// WithMode specifies how schema violations are handled
func WithMode(mode schema.Mode) OptionFunc {
	return func(p *Preset) {
		p.Mode = mode
	}
}

// WithMaxDepth limits how many levels of nesting are mapped
func WithMaxDepth(depth int) OptionFunc {
	return func(p *Preset) {
		p.MaxDepth = depth
	}
}

// WithLogger specifies the logger to use. If none is provided, slog.Default() is used
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(p *Preset) {
		p.Config.Logger = logger
	}
}

// With returns a deep copy of the preset with the options applied. The
// receiver is left unchanged.
func (p Preset) With(opts ...OptionFunc) Preset {
	// Loggers are shared rather than copied
	logger := p.Config.Logger
	src := p
	src.Config.Logger = nil
	var ret Preset
	if err := copier.CopyWithOption(&ret, &src, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("unexpected error copying preset: %s", err))
	}
	ret.Config.Logger = logger
	for _, opt := range opts {
		opt(&ret)
	}
	return ret
}

// Stream returns a chunk stream for the preset settings
func (p Preset) Stream() (*chunk.Stream, error) {
	return chunk.NewStreamFromConfig(p.Config)
}

// Indexer returns an indexer using the preset stream, schema, mode and depth
// limit. Additional options are applied last.
func (p Preset) Indexer(opts ...tree.IndexerOptionFunc) (*tree.Indexer, error) {
	stream, err := p.Stream()
	if err != nil {
		return nil, err
	}
	idxOpts := []tree.IndexerOptionFunc{
		tree.WithMode(p.Mode),
		tree.WithMaxDepth(p.MaxDepth),
		tree.WithLogger(p.Config.Logger),
	}
	return tree.NewIndexer(stream, p.Schema, append(idxOpts, opts...)...), nil
}

// Map maps the top-level chunks of buf
func (p Preset) Map(buf []byte, opts ...tree.IndexerOptionFunc) ([]*tree.Element, error) {
	idx, err := p.Indexer(opts...)
	if err != nil {
		return nil, err
	}
	return idx.Map(buf)
}

// GenerateSchema infers a schema from buf with the preset stream settings
func (p Preset) GenerateSchema(buf []byte, opts ...schema.InferOptionFunc) (schema.Schema, error) {
	stream, err := p.Stream()
	if err != nil {
		return nil, err
	}
	inferOpts := []schema.InferOptionFunc{
		schema.WithMaxDepth(p.MaxDepth),
		schema.WithInferLogger(p.Config.Logger),
	}
	return schema.Infer(stream, buf, append(inferOpts, opts...)...)
}

// Mktag returns the encoded chunk for tag and data
func (p Preset) Mktag(tag chunk.Tag, data []byte) ([]byte, error) {
	stream, err := p.Stream()
	if err != nil {
		return nil, err
	}
	c, err := stream.Mktag(tag, data)
	if err != nil {
		return nil, err
	}
	return stream.Bytes(c)
}

// Archive is the fully mapped tree of one buffer
type Archive struct {
	Root        []*tree.Element
	Elements    int
	Diagnostics []tree.Diagnostic
}

// IndexOptionsFunc returns the extra indexer options for the buffer at index i.
// It is called once per buffer, so stateful options such as resolvers must be
// created inside it.
type IndexOptionsFunc func(i int) []tree.IndexerOptionFunc

// IndexAll maps every buffer and all of its descendants in parallel. Each
// buffer gets its own stream and indexer, with options from newOpts if it is
// not nil. The first error cancels the remaining work.
func (p Preset) IndexAll(ctx context.Context, bufs [][]byte, newOpts IndexOptionsFunc) ([]Archive, error) {
	ret := make([]Archive, len(bufs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, buf := range bufs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var opts []tree.IndexerOptionFunc
			if newOpts != nil {
				opts = newOpts(i)
			}
			idx, err := p.Indexer(opts...)
			if err != nil {
				return err
			}
			root, err := idx.Map(buf)
			if err != nil {
				return fmt.Errorf("archive %d: %w", i, err)
			}
			count := 0
			err = tree.Walk(root, func(_ *tree.Element, _ int) error {
				count++
				return ctx.Err()
			})
			if err != nil {
				return fmt.Errorf("archive %d: %w", i, err)
			}
			ret[i] = Archive{
				Root:        root,
				Elements:    count,
				Diagnostics: idx.Diagnostics(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Shell reads tag-first headers with header-inclusive sizes, 2-byte
// alignment and desync recovery. It has no schema.
func Shell() Preset {
	return Preset{
		Name:   "shell",
		Config: chunk.DefaultConfig(chunk.DialectIFF),
		Mode:   schema.Strict,
	}
}

// SPUTM reads resource files of the later engine versions. Schemas are
// normally inferred with GenerateSchema.
func SPUTM() Preset {
	return Shell().With(
		WithStreamOptions(chunk.WithAlignment(1)),
		WithMode(schema.Lenient),
		func(p *Preset) { p.Name = "sputm" },
	)
}

// SMUSH reads animation files, whose sizes exclude the header
func SMUSH() Preset {
	return Shell().With(
		WithStreamOptions(chunk.WithSizeIncludesHeader(false)),
		WithSchema(smushSchema()),
		WithMode(schema.Lenient),
		func(p *Preset) { p.Name = "smush" },
	)
}

// Earwax reads the size-first headers with 2-byte tags of the oldest engine
// versions
func Earwax() Preset {
	return Preset{
		Name:   "earwax",
		Config: chunk.DefaultConfig(chunk.DialectLegacy),
		Mode:   schema.Lenient,
	}
}

func smushSchema() schema.Schema {
	frameChildren := []chunk.Tag{
		"FTCH", "IACT", "XPAL", "TEXT", "STOR", "FOBJ",
		"NPAL", "TRES", "PSAD", "SKIP", "ZFOB",
	}
	return schema.New().
		Add("ANIM", "AHDR", "FRME").
		Add("FRME", frameChildren...).
		AddLeaf("AHDR").
		AddLeaf(frameChildren...)
}

var presets = map[string]func() Preset{
	"shell":  Shell,
	"sputm":  SPUTM,
	"smush":  SMUSH,
	"earwax": Earwax,
}

// Lookup returns the preset with the given name
func Lookup(name string) (Preset, error) {
	fn, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return fn(), nil
}

// Names returns the known preset names in sorted order
func Names() []string {
	ret := make([]string, 0, len(presets))
	for name := range presets {
		ret = append(ret, name)
	}
	slices.Sort(ret)
	return ret
}
