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

package kafkasource

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tvondra/omnisketch/recordhash"
)

func TestDecodeRecordIntegralNumbersAndStrings(t *testing.T) {
	req := require.New(t)

	h, err := recordhash.NewHasher()
	req.NoError(err)

	rec, err := decodeRecord(h, []byte(`[1, "two", null]`))
	req.NoError(err)
	req.Equal(3, rec.NumAttrs())

	_, ok := rec.AttrHash(0)
	req.True(ok)
	_, ok = rec.AttrHash(1)
	req.True(ok)
	v, ok := rec.AttrHash(2)
	req.True(ok)
	req.EqualValues(0, v)
}

func TestDecodeRecordRejectsFractionalNumber(t *testing.T) {
	req := require.New(t)

	h, err := recordhash.NewHasher()
	req.NoError(err)

	_, err = decodeRecord(h, []byte(`[1.5]`))
	req.Error(err)
}

func TestDecodeRecordRejectsMalformedJSON(t *testing.T) {
	req := require.New(t)

	h, err := recordhash.NewHasher()
	req.NoError(err)

	_, err = decodeRecord(h, []byte(`not json`))
	req.Error(err)
}

func TestDecodeRecordRejectsBoolean(t *testing.T) {
	req := require.New(t)

	h, err := recordhash.NewHasher()
	req.NoError(err)

	_, err = decodeRecord(h, []byte(`[true]`))
	req.Error(err)
}
