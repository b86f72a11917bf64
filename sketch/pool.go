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

package sketch

import "sync"

// hashID pairs an item id with its itemHash, the sort key used throughout
// sortStable/mergeInto/estimate.
type hashID struct {
	hash uint32
	id   uint32
}

// scratchPool hands out reusable []hashID buffers sized for a bucket's
// sample, so merge and estimate don't allocate on every bucket visited
// (spec 9: "temporary buffers ... must be released on every exit path").
// A Sketch is single-writer (spec 5), so merge runs on one goroutine at a
// time; Estimate on a finalized sketch only reads it and may run from
// several goroutines at once (as cmd/omnisketch's HTTP handler does), and
// sync.Pool is safe for that concurrent use without the CAS machinery of
// a lock-free stack.
type scratchPool struct {
	pool sync.Pool
}

func newScratchPool() *scratchPool {
	return &scratchPool{}
}

// get returns a []hashID with length 0 and capacity >= n.
func (p *scratchPool) get(n int) []hashID {
	if v := p.pool.Get(); v != nil {
		buf := v.([]hashID)
		if cap(buf) >= n {
			return buf[:0]
		}
	}
	return make([]hashID, 0, n)
}

// put returns buf to the pool for reuse.
func (p *scratchPool) put(buf []hashID) {
	p.pool.Put(buf[:0])
}
