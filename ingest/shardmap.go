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
	"sync"

	"github.com/tvondra/omnisketch/sketch"
)

// shardRegistry maps a worker's shard id to the *sketch.Sketch it owns.
// Each shard has exactly one writer (its worker goroutine), so the
// registry's own lock only guards the map structure and the slot's
// current pointer, never the sketch's internals: a shard's owning
// worker is the sole caller of sketch.Add/Finalize on its value.
type shardRegistry struct {
	mu     sync.RWMutex
	shards map[string]*shardSlot
}

type shardSlot struct {
	mu sync.Mutex
	s  *sketch.Sketch
}

func newShardRegistry() *shardRegistry {
	return &shardRegistry{shards: make(map[string]*shardSlot)}
}

// slot returns the shard slot for id, creating an empty one on first use.
func (r *shardRegistry) slot(id string) *shardSlot {
	r.mu.RLock()
	slot, ok := r.shards[id]
	r.mu.RUnlock()
	if ok {
		return slot
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok = r.shards[id]; ok {
		return slot
	}
	slot = &shardSlot{}
	r.shards[id] = slot
	return slot
}

func (r *shardRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shards)
}

// get returns the shard's current sketch, or nil if it has absorbed
// nothing yet.
func (s *shardSlot) get() *sketch.Sketch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}

// set replaces the shard's sketch, as Add does when growing a nil
// accumulator into a freshly allocated one.
func (s *shardSlot) set(v *sketch.Sketch) {
	s.mu.Lock()
	s.s = v
	s.mu.Unlock()
}

// iterate calls f once per shard currently registered that has absorbed
// at least one record. Each shard's sketch pointer is read under that
// shard's own lock; f itself runs with no lock held.
func (r *shardRegistry) iterate(f func(id string, s *sketch.Sketch) error) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.shards))
	slots := make([]*shardSlot, 0, len(r.shards))
	for id, slot := range r.shards {
		ids = append(ids, id)
		slots = append(slots, slot)
	}
	r.mu.RUnlock()

	for i, slot := range slots {
		s := slot.get()
		if s == nil {
			continue
		}
		if err := f(ids[i], s); err != nil {
			return err
		}
	}
	return nil
}
