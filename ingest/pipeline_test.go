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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tvondra/omnisketch/sketch"
)

type intRecord []uint64

func (r intRecord) NumAttrs() int                { return len(r) }
func (r intRecord) AttrHash(i int) (uint64, bool) { return r[i], true }

func TestNewPipelineRejectsBadConfig(t *testing.T) {
	req := require.New(t)

	_, err := NewPipeline(Config{NumAttrs: 0, Epsilon: 0.1, Delta: 0.1, Shards: 1})
	req.ErrorIs(err, ErrInvalidConfig)

	_, err = NewPipeline(Config{NumAttrs: 1, Epsilon: 0.1, Delta: 0.1, Shards: 0})
	req.ErrorIs(err, ErrInvalidConfig)
}

func TestPipelineDrainCountMatchesSubmitted(t *testing.T) {
	req := require.New(t)

	p, err := NewPipeline(Config{NumAttrs: 1, Epsilon: 0.1, Delta: 0.1, Shards: 4})
	req.NoError(err)

	const n = 2000
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < n/8; i++ {
				err := p.Submit(intRecord{uint64((w*1000 + i) % 23)})
				req.NoError(err)
			}
		}(w)
	}
	wg.Wait()

	merged, err := p.Drain()
	req.NoError(err)
	req.EqualValues(n, sketch.Count(merged))
	req.NoError(merged.Validate())
}

func TestPipelineSubmitAfterDrainFails(t *testing.T) {
	req := require.New(t)

	p, err := NewPipeline(Config{NumAttrs: 1, Epsilon: 0.1, Delta: 0.1, Shards: 2})
	req.NoError(err)

	req.NoError(p.Submit(intRecord{1}))
	_, err = p.Drain()
	req.NoError(err)

	err = p.Submit(intRecord{2})
	req.ErrorIs(err, ErrPipelineStopped)
}

func TestPipelineSubmitShapeMismatch(t *testing.T) {
	req := require.New(t)

	p, err := NewPipeline(Config{NumAttrs: 2, Epsilon: 0.1, Delta: 0.1, Shards: 1})
	req.NoError(err)
	defer p.Stop()

	err = p.Submit(intRecord{1})
	req.ErrorIs(err, sketch.ErrShapeMismatch)
}

func TestPipelineDrainOnEmptyPipeline(t *testing.T) {
	req := require.New(t)

	p, err := NewPipeline(Config{NumAttrs: 1, Epsilon: 0.1, Delta: 0.1, Shards: 3})
	req.NoError(err)

	merged, err := p.Drain()
	req.NoError(err)
	req.EqualValues(0, sketch.Count(merged))
}
