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

package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tvondra/omnisketch/sketch"
)

func TestShardRegistrySlotIsStableAcrossCalls(t *testing.T) {
	req := require.New(t)

	r := newShardRegistry()
	a := r.slot("shard-0")
	b := r.slot("shard-0")
	req.Same(a, b)
	req.Equal(1, r.len())
}

func TestShardRegistryIterateSkipsEmptySlots(t *testing.T) {
	req := require.New(t)

	r := newShardRegistry()
	r.slot("empty")

	s, err := sketch.Add(nil, 0.1, 0.1, nil, intRecord{1})
	req.NoError(err)
	r.slot("full").set(s)

	seen := map[string]bool{}
	err = r.iterate(func(id string, _ *sketch.Sketch) error {
		seen[id] = true
		return nil
	})
	req.NoError(err)
	req.Equal(map[string]bool{"full": true}, seen)
}
