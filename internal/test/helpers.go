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

package test

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// DecodeHexString is a helper function for tests that decodes hex strings. It doesn't return
// an error value, which makes it usable inline. Whitespace inside the string is ignored.
func DecodeHexString(hexData string) []byte {
	hexData = strings.Join(strings.Fields(hexData), "")
	decoded, err := hex.DecodeString(hexData)
	if err != nil {
		panic(fmt.Sprintf("error decoding hex: %s", err))
	}
	return decoded
}

// IFF builds a tag-first chunk with a big-endian size that includes the
// 8-byte header. Parts are concatenated to form the payload.
func IFF(tag string, parts ...[]byte) []byte {
	if len(tag) != 4 {
		panic(fmt.Sprintf("IFF tag must be 4 bytes: %q", tag))
	}
	payload := Concat(parts...)
	ret := make([]byte, 8, 8+len(payload))
	copy(ret, tag)
	// #nosec G115 -- test payloads are small
	binary.BigEndian.PutUint32(ret[4:], uint32(len(payload)+8))
	return append(ret, payload...)
}

// Legacy builds a size-first chunk with a little-endian size that excludes
// the 6-byte header
func Legacy(tag string, parts ...[]byte) []byte {
	if len(tag) != 2 {
		panic(fmt.Sprintf("legacy tag must be 2 bytes: %q", tag))
	}
	payload := Concat(parts...)
	ret := make([]byte, 6, 6+len(payload))
	// #nosec G115 -- test payloads are small
	binary.LittleEndian.PutUint32(ret, uint32(len(payload)))
	copy(ret[4:], tag)
	return append(ret, payload...)
}

// Concat joins byte slices into a new slice
func Concat(parts ...[]byte) []byte {
	var ret []byte
	for _, part := range parts {
		ret = append(ret, part...)
	}
	return ret
}

// Pad returns data padded with zero bytes to a multiple of align
func Pad(data []byte, align int) []byte {
	if rem := len(data) % align; rem != 0 {
		return append(data, make([]byte, align-rem)...)
	}
	return data
}
