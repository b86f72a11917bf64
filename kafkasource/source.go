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

// Package kafkasource decodes a Kafka topic of JSON-encoded attribute
// tuples into the ingestion pipeline. It never touches sketch internals,
// only calls ingest.Pipeline.Submit.
package kafkasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/aristanetworks/glog"
	"github.com/cenkalti/backoff/v4"

	"github.com/tvondra/omnisketch/ingest"
	"github.com/tvondra/omnisketch/recordhash"
)

// errorLoopRetryMaxInterval bounds the backoff between consumer-group
// session retries, the same role it plays in goarista's gnmireverse
// client retry loop.
const errorLoopRetryMaxInterval = 30 * time.Second

// Config configures a Source.
type Config struct {
	Brokers []string
	Topic   string
	Group   string
}

// Source consumes JSON-array messages ("[1, \"two\", null]" — one value
// per attribute) from Kafka and submits each as a recordhash.Tuple.
type Source struct {
	cfg    Config
	hasher *recordhash.Hasher
	pipe   *ingest.Pipeline
}

// New creates a Source. hasher is shared across every decoded record so
// repeated attribute values hash identically within one run.
func New(cfg Config, hasher *recordhash.Hasher, pipe *ingest.Pipeline) *Source {
	return &Source{cfg: cfg, hasher: hasher, pipe: pipe}
}

// Run consumes cfg.Topic until ctx is canceled, retrying consumer-group
// session drops with exponential backoff — the same error-loop-detection
// pattern as goarista's gnmireverse client streamResponses loop, adapted
// from a fixed sleep-on-error into sarama's session-scoped Consume call.
func (s *Source) Run(ctx context.Context) error {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(s.cfg.Brokers, s.cfg.Group, saramaCfg)
	if err != nil {
		return fmt.Errorf("kafkasource: creating consumer group: %w", err)
	}
	defer group.Close()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	bo.MaxInterval = errorLoopRetryMaxInterval
	bo.Reset()

	handler := &consumerHandler{source: s}
	var lastErrorTime time.Time
	for {
		if err := group.Consume(ctx, []string{s.cfg.Topic}, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			now := time.Now()
			if lastErrorTime.Add(errorLoopRetryMaxInterval * 2).Before(now) {
				bo.Reset()
			}
			lastErrorTime = now
			glog.Infof("kafkasource: consume error, retrying: %s", err)
			select {
			case <-time.After(bo.NextBackOff()):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type consumerHandler struct {
	source *Source
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			rec, err := decodeRecord(h.source.hasher, msg.Value)
			if err != nil {
				glog.Errorf("kafkasource: dropping malformed message at offset %d: %s", msg.Offset, err)
				sess.MarkMessage(msg, "")
				continue
			}
			if err := h.source.pipe.Submit(rec); err != nil {
				return fmt.Errorf("kafkasource: submitting record from offset %d: %w", msg.Offset, err)
			}
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

// decodeRecord parses one message body, a JSON array with one element
// per attribute ("[1, \"two\", null]"), into a recordhash.Tuple.
//
// JSON numbers decode via json.Number rather than Go's default float64,
// since recordhash.Hasher hashes Go's integer kinds and float64 isn't
// one of them (spec 9: attribute values are opaque to the sketch core).
// Every number here must be integral; a fractional number or a JSON
// boolean, neither of which recordhash.Hasher has a case for, is a
// decode error rather than a silent zero hash.
func decodeRecord(hasher *recordhash.Hasher, data []byte) (recordhash.Tuple, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []interface{}
	if err := dec.Decode(&raw); err != nil {
		return recordhash.Tuple{}, fmt.Errorf("decoding JSON record: %w", err)
	}

	values := make([]interface{}, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case nil, string:
			values[i] = x
		case json.Number:
			n, err := x.Int64()
			if err != nil {
				return recordhash.Tuple{}, fmt.Errorf("attribute %d: non-integral number %q unsupported", i, x)
			}
			values[i] = n
		default:
			return recordhash.Tuple{}, fmt.Errorf("attribute %d: unsupported JSON value type %T", i, v)
		}
	}
	return recordhash.Tuple{Hasher: hasher, Values: values}, nil
}
