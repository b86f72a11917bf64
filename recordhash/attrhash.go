// Copyright 2021 dustinxie
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

// Package recordhash is a default host-side implementation of the
// sketch.Record/attribute-hashing contract for Go's builtin scalar and
// byte-sequence types. The sketch engine treats this as an external
// collaborator (spec 1): it only ever receives the resulting uint64, not
// the attribute value itself.
package recordhash

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/dchest/siphash"
)

const intSize = (32 << (^uint(0) >> 63)) >> 3

// Hasher derives per-attribute hashes with a per-instance random seed
// pair, so repeated runs over the same data don't synthesize identical
// hashes across independent hashers (mirrors the teacher's hmap having
// its own k0/k1 per instance).
type Hasher struct {
	k0, k1 uint64
}

// NewHasher creates a Hasher seeded from crypto/rand, the same seeding
// approach as the teacher's hmap.New().
func NewHasher() (*Hasher, error) {
	var h Hasher
	if err := binary.Read(rand.Reader, binary.BigEndian, &h.k0); err != nil {
		return nil, fmt.Errorf("recordhash: seeding k0: %w", err)
	}
	if err := binary.Read(rand.Reader, binary.BigEndian, &h.k1); err != nil {
		return nil, fmt.Errorf("recordhash: seeding k1: %w", err)
	}
	return &h, nil
}

// Hash64 lets callers supply their own 64-bit hash for types the Hasher
// doesn't special-case (mirrors the teacher's Hash64 escape hatch).
type Hash64 interface {
	Sum64() uint64
}

// Hash returns the 64-bit attribute hash for v, and false if v's type has
// no extended hash function (sketch.ErrHashFunctionMissing territory). A
// nil value (representing SQL NULL in the original source) hashes to 0,
// intentionally colliding every null with any value that happens to hash
// to 0 (spec 4.4, spec 9). A uint64 value, and a value implementing
// Hash64, is returned as is without the Hasher's seeds, so those hashes
// are identical across independent Hashers.
func (h *Hasher) Hash(v interface{}) (uint64, bool) {
	if v == nil {
		return 0, true
	}
	switch x := v.(type) {
	case uint8:
		return h.memhash(h.k0, h.k1, unsafe.Pointer(&x), 1), true
	case int8:
		return h.memhash(h.k0, h.k1-1, unsafe.Pointer(&x), 1), true
	case uint16:
		return h.memhash(h.k0, h.k1, unsafe.Pointer(&x), 2), true
	case int16:
		return h.memhash(h.k0, h.k1-1, unsafe.Pointer(&x), 2), true
	case uint32:
		return h.memhash(h.k0, h.k1, unsafe.Pointer(&x), 4), true
	case int32:
		return h.memhash(h.k0, h.k1-1, unsafe.Pointer(&x), 4), true
	case uint64:
		return x, true
	case int64:
		return h.memhash(h.k0, h.k1, unsafe.Pointer(&x), 8), true
	case uint:
		return h.memhash(h.k0, h.k1+1, unsafe.Pointer(&x), intSize), true
	case int:
		return h.memhash(h.k0, h.k1+2, unsafe.Pointer(&x), intSize), true
	case []byte:
		return siphash.Hash(h.k0, h.k1, x), true
	case string:
		return siphash.Hash(h.k0, h.k1-1, toBytes(x)), true
	default:
		if hh, ok := v.(Hash64); ok {
			return hh.Sum64(), true
		}
		return 0, false
	}
}

// memhash computes the siphash of 'size' bytes of memory at addr, mirroring
// the teacher's util.go memhash helper.
func (h *Hasher) memhash(k0, k1 uint64, addr unsafe.Pointer, size int) uint64 {
	sh := reflect.SliceHeader{
		Data: uintptr(addr),
		Len:  size,
		Cap:  size,
	}
	return siphash.Hash(k0, k1, *(*[]byte)(unsafe.Pointer(&sh)))
}

func toBytes(s string) []byte {
	hdr := (*reflect.StringHeader)(unsafe.Pointer(&s))
	sh := reflect.SliceHeader{
		Data: hdr.Data,
		Len:  hdr.Len,
		Cap:  hdr.Len,
	}
	return *(*[]byte)(unsafe.Pointer(&sh))
}

// Tuple is a simple sketch.Record implementation over a slice of values,
// hashed lazily with a shared Hasher.
type Tuple struct {
	Hasher *Hasher
	Values []interface{}
}

// NumAttrs implements sketch.Record.
func (t Tuple) NumAttrs() int { return len(t.Values) }

// AttrHash implements sketch.Record.
func (t Tuple) AttrHash(index int) (uint64, bool) {
	return t.Hasher.Hash(t.Values[index])
}
