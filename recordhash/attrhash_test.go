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

package recordhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	req := require.New(t)

	h, err := NewHasher()
	req.NoError(err)

	h1, ok := h.Hash(int64(42))
	req.True(ok)
	h2, ok := h.Hash(int64(42))
	req.True(ok)
	req.Equal(h1, h2)
}

func TestHashDiffersByType(t *testing.T) {
	req := require.New(t)

	h, err := NewHasher()
	req.NoError(err)

	hu, _ := h.Hash(uint16(7))
	hi, _ := h.Hash(int16(7))
	req.NotEqual(hu, hi)
}

func TestHashNullIsZero(t *testing.T) {
	req := require.New(t)

	h, err := NewHasher()
	req.NoError(err)

	v, ok := h.Hash(nil)
	req.True(ok)
	req.Equal(uint64(0), v)
}

func TestHashUnsupportedType(t *testing.T) {
	req := require.New(t)

	h, err := NewHasher()
	req.NoError(err)

	_, ok := h.Hash(struct{ X int }{X: 1})
	req.False(ok)
}

func TestHashStringAndBytesIndependent(t *testing.T) {
	req := require.New(t)

	h, err := NewHasher()
	req.NoError(err)

	hs, ok := h.Hash("hello")
	req.True(ok)
	hb, ok := h.Hash([]byte("hello"))
	req.True(ok)
	req.NotEqual(hs, hb)
}

func TestTupleRecord(t *testing.T) {
	req := require.New(t)

	h, err := NewHasher()
	req.NoError(err)

	tup := Tuple{Hasher: h, Values: []interface{}{int64(1), "two", nil}}
	req.Equal(3, tup.NumAttrs())

	_, ok := tup.AttrHash(2)
	req.True(ok)
}
