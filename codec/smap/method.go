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

import "fmt"

type Algorithm uint8

const (
	AlgorithmRaw Algorithm = iota
	AlgorithmBasic
	AlgorithmComplex
	AlgorithmDeltaTable
	AlgorithmFill
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmRaw:
		return "raw"
	case AlgorithmBasic:
		return "basic"
	case AlgorithmComplex:
		return "complex"
	case AlgorithmDeltaTable:
		return "delta-table"
	case AlgorithmFill:
		return "fill"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// Direction is the order in which pixels of a strip are visited
type Direction uint8

const (
	// Horizontal visits pixels row by row
	Horizontal Direction = iota
	// Vertical visits pixels column by column
	Vertical
)

func (d Direction) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Method describes how a single strip is compressed. Transparent methods
// decode exactly like their opaque counterparts; the flag only tells a
// renderer to skip pixels holding the transparent palette index.
type Method struct {
	Code        byte
	Algorithm   Algorithm
	Direction   Direction
	Transparent bool
	BitWidth    uint
}

func (m Method) String() string {
	return fmt.Sprintf(
		"Method(%d: %s %s width=%d transparent=%t)",
		m.Code,
		m.Algorithm,
		m.Direction,
		m.BitWidth,
		m.Transparent,
	)
}

const (
	CodeRaw  byte = 1
	CodeFill byte = 150
)

type methodRange struct {
	base        byte
	algorithm   Algorithm
	direction   Direction
	transparent bool
}

// Each range covers base+4 through base+8, the last digit being the bit width
var methodRanges = []methodRange{
	{10, AlgorithmBasic, Vertical, false},
	{20, AlgorithmBasic, Horizontal, false},
	{30, AlgorithmBasic, Vertical, true},
	{40, AlgorithmBasic, Horizontal, true},
	{60, AlgorithmComplex, Horizontal, false},
	{80, AlgorithmComplex, Horizontal, true},
	{100, AlgorithmComplex, Horizontal, false},
	{120, AlgorithmComplex, Horizontal, true},
	{130, AlgorithmDeltaTable, Horizontal, false},
	{140, AlgorithmDeltaTable, Horizontal, true},
}

var methodTable [256]*Method

func init() {
	methodTable[CodeRaw] = &Method{
		Code:      CodeRaw,
		Algorithm: AlgorithmRaw,
		Direction: Horizontal,
		BitWidth:  8,
	}
	methodTable[CodeFill] = &Method{
		Code:      CodeFill,
		Algorithm: AlgorithmFill,
		Direction: Horizontal,
		BitWidth:  8,
	}
	for _, r := range methodRanges {
		for width := byte(4); width <= 8; width++ {
			code := r.base + width
			methodTable[code] = &Method{
				Code:        code,
				Algorithm:   r.algorithm,
				Direction:   r.direction,
				Transparent: r.transparent,
				BitWidth:    uint(width),
			}
		}
	}
}

// LookupMethod returns the method for a strip code
func LookupMethod(code byte) (Method, error) {
	m := methodTable[code]
	if m == nil {
		return Method{}, fmt.Errorf("%w: %d", ErrUnsupportedMethod, code)
	}
	return *m, nil
}

// Methods returns every known method ordered by code
func Methods() []Method {
	ret := make([]Method, 0, 64)
	for _, m := range methodTable {
		if m != nil {
			ret = append(ret, *m)
		}
	}
	return ret
}

// validate rejects method descriptions that no decoder can honor
func (m Method) validate() error {
	switch m.Algorithm {
	case AlgorithmComplex, AlgorithmDeltaTable:
		if m.Direction != Horizontal {
			return fmt.Errorf("%w: %s requires horizontal order", ErrDirectionMismatch, m.Algorithm)
		}
	case AlgorithmBasic:
	case AlgorithmRaw, AlgorithmFill:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, m.Algorithm)
	}
	if m.BitWidth < 1 || m.BitWidth > 8 {
		return fmt.Errorf("%w: bit width %d", ErrUnsupportedMethod, m.BitWidth)
	}
	return nil
}
