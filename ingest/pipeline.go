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

// Package ingest is the host-side concurrency mechanism the core sketch
// package leaves unspecified: "parallelism is achieved by the host
// creating one sketch per shard and combining them". A Pipeline holds a
// lock-free work queue feeding a fixed pool of worker goroutines, each
// the sole writer to its own shard sketch, merged at Drain via
// sketch.Combine.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristanetworks/glog"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/tvondra/omnisketch/internal/lfqueue"
	"github.com/tvondra/omnisketch/metrics"
	"github.com/tvondra/omnisketch/sketch"
)

// Config configures a Pipeline.
type Config struct {
	// NumAttrs is the arity every submitted Record must have.
	NumAttrs int
	// Epsilon and Delta size each shard's sketch (sketch.New).
	Epsilon, Delta float64
	// Shards is the number of worker goroutines/shard sketches. Must be
	// at least 1.
	Shards int
	// RandomSource seeds each shard's sketch; nil uses
	// sketch.DefaultRandomSource.
	RandomSource sketch.RandomSource
	// Metrics, if non-nil, is incremented as records are absorbed and
	// shards come online. Optional: a nil Metrics is a no-op.
	Metrics *metrics.Collectors
}

func (c Config) validate() error {
	if c.NumAttrs <= 0 {
		return fmt.Errorf("%w: numAttrs must be positive, got %d", ErrInvalidConfig, c.NumAttrs)
	}
	if c.Shards <= 0 {
		return fmt.Errorf("%w: shards must be positive, got %d", ErrInvalidConfig, c.Shards)
	}
	return nil
}

// Pipeline is a running set of shard workers draining a shared queue.
type Pipeline struct {
	cfg    Config
	queue  *lfqueue.Queue
	shards *shardRegistry
	notify chan struct{}
	items  sync.WaitGroup

	cancel  context.CancelFunc
	eg      *errgroup.Group
	stopped int32
}

// NewPipeline creates and starts a Pipeline with cfg.Shards worker
// goroutines, each waiting on the shared queue.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	eg, ctx := errgroup.WithContext(ctx)

	p := &Pipeline{
		cfg:    cfg,
		queue:  lfqueue.New(),
		shards: newShardRegistry(),
		notify: make(chan struct{}, 1),
		cancel: cancel,
		eg:     eg,
	}

	for i := 0; i < cfg.Shards; i++ {
		shardID := fmt.Sprintf("shard-%d", i)
		eg.Go(func() error {
			return p.runWorker(ctx, shardID)
		})
	}
	return p, nil
}

// Submit enqueues rec for absorption by whichever shard worker picks it
// up next. It returns ErrPipelineStopped once Drain has been called.
func (p *Pipeline) Submit(rec sketch.Record) error {
	if atomic.LoadInt32(&p.stopped) != 0 {
		return ErrPipelineStopped
	}
	if rec.NumAttrs() != p.cfg.NumAttrs {
		return fmt.Errorf("%w: record has %d attributes, pipeline expects %d", sketch.ErrShapeMismatch, rec.NumAttrs(), p.cfg.NumAttrs)
	}

	p.items.Add(1)
	p.queue.Enqueue(rec)
	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// ShardCount returns the number of shards that have absorbed at least
// one record so far.
func (p *Pipeline) ShardCount() int {
	n := 0
	p.shards.iterate(func(string, *sketch.Sketch) error {
		n++
		return nil
	})
	return n
}

// runWorker dequeues records for one shard until ctx is canceled,
// backing off between empty polls the same way goarista's gnmireverse
// client loop backs off, instead of busy-spinning on an empty lock-free
// queue.
func (p *Pipeline) runWorker(ctx context.Context, shardID string) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = 0

	slot := p.shards.slot(shardID)
	firstAbsorb := true
	for {
		v := p.queue.Dequeue()
		if v == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-p.notify:
				continue
			case <-time.After(bo.NextBackOff()):
				continue
			}
		}
		bo.Reset()

		rec, ok := v.(sketch.Record)
		if !ok {
			p.items.Done()
			continue
		}

		acc, err := sketch.Add(slot.get(), p.cfg.Epsilon, p.cfg.Delta, p.cfg.RandomSource, rec)
		if err != nil {
			glog.Errorf("ingest: shard %s: %s", shardID, err)
			if p.cfg.Metrics != nil {
				p.cfg.Metrics.AddErrors.Inc()
			}
			p.items.Done()
			continue
		}
		slot.set(acc)
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.RecordsAbsorbed.Inc()
			if firstAbsorb {
				p.cfg.Metrics.ActiveShards.Inc()
				firstAbsorb = false
			}
		}
		p.items.Done()
	}
}

// Drain stops accepting new records, waits for the queue to empty and
// every in-flight record to be absorbed, then merges every shard into
// one sketch via sketch.Combine. Drain is idempotent: calling it twice
// returns the same merged result both times (the second call observes
// an already-empty, already-stopped pipeline).
func (p *Pipeline) Drain() (*sketch.Sketch, error) {
	atomic.StoreInt32(&p.stopped, 1)
	p.items.Wait()
	p.cancel()
	if err := p.eg.Wait(); err != nil {
		return nil, err
	}

	var merged *sketch.Sketch
	err := p.shards.iterate(func(_ string, s *sketch.Sketch) error {
		var err error
		merged, err = sketch.Combine(merged, s)
		return err
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Stop halts all workers without merging shards, for callers that only
// want to release resources (e.g. on a fatal upstream error).
func (p *Pipeline) Stop() {
	atomic.StoreInt32(&p.stopped, 1)
	p.cancel()
	p.eg.Wait()
}
