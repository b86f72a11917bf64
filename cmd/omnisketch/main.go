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

// Command omnisketch builds an OmniSketch from a batch file and/or a
// Kafka stream, then dumps the result.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aristanetworks/glog"
	natomic "github.com/natefinch/atomic"
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"

	"github.com/tvondra/omnisketch/ingest"
	"github.com/tvondra/omnisketch/kafkasource"
	"github.com/tvondra/omnisketch/metrics"
	"github.com/tvondra/omnisketch/recordhash"
	"github.com/tvondra/omnisketch/sketch"
)

var (
	configPath = flag.StringP("config", "c", "", "path to the YAML config file (required)")
	dumpFormat = flag.String("dump-format", "", "override the config file's dumpFormat")
	dumpPath   = flag.String("dump-path", "", "override the config file's dumpPath")
	listen     = flag.String("listen", "", "override the config file's listen address")
)

func main() {
	flag.Parse()
	if *configPath == "" {
		glog.Fatal("--config is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		glog.Fatalf("%s", err)
	}
	if *dumpFormat != "" {
		cfg.DumpFormat = *dumpFormat
	}
	if *dumpPath != "" {
		cfg.DumpPath = *dumpPath
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	if err := run(cfg); err != nil {
		glog.Fatalf("%s", err)
	}
}

func run(cfg *Config) error {
	hasher, err := recordhash.NewHasher()
	if err != nil {
		return fmt.Errorf("creating hasher: %w", err)
	}

	coll := metrics.New("omnisketch")
	coll.MustRegister(prometheus.DefaultRegisterer)

	pipe, err := ingest.NewPipeline(ingest.Config{
		NumAttrs: cfg.NumAttrs,
		Epsilon:  cfg.Epsilon,
		Delta:    cfg.Delta,
		Shards:   cfg.Shards,
		Metrics:  coll,
	})
	if err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Input != "" {
		if err := ingestFile(pipe, hasher, cfg.Input); err != nil {
			pipe.Stop()
			return err
		}
	}

	if cfg.Kafka != nil {
		src := kafkasource.New(kafkasource.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Group:   cfg.Kafka.Group,
		}, hasher, pipe)

		glog.Infof("consuming from kafka topic %q, group %q", cfg.Kafka.Topic, cfg.Kafka.Group)
		if err := src.Run(ctx); err != nil && ctx.Err() == nil {
			pipe.Stop()
			return fmt.Errorf("running kafka source: %w", err)
		}
	}

	s, err := pipe.Drain()
	if err != nil {
		return fmt.Errorf("draining pipeline: %w", err)
	}
	sketch.Finalize(s)
	glog.Infof("absorbed %d records across %d shards", sketch.Count(s), pipe.ShardCount())

	if cfg.DumpPath != "" {
		if err := dump(s, cfg.DumpFormat, cfg.DumpPath); err != nil {
			return err
		}
	}

	if cfg.Listen == "" {
		return nil
	}
	glog.Infof("serving estimate queries on %s", cfg.Listen)
	return serveEstimates(ctx, cfg.Listen, s, hasher, cfg.NumAttrs, coll)
}

// ingestFile reads one JSON attribute-value array per line from path and
// submits each to pipe.
func ingestFile(pipe *ingest.Pipeline, hasher *recordhash.Hasher, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening input file %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := decodeLine(hasher, line)
		if err != nil {
			glog.Errorf("input %q: line %d: %s", path, lineNum, err)
			continue
		}
		if err := pipe.Submit(rec); err != nil {
			return fmt.Errorf("submitting line %d: %w", lineNum, err)
		}
	}
	return scanner.Err()
}

// decodeLine parses one JSON attribute-value array, with integral
// numbers kept as int64 rather than Go's default float64 (recordhash.Hasher
// hashes integer kinds, not floats).
func decodeLine(hasher *recordhash.Hasher, line string) (recordhash.Tuple, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	values, err := decodeValues(dec)
	if err != nil {
		return recordhash.Tuple{}, err
	}
	return recordhash.Tuple{Hasher: hasher, Values: values}, nil
}

// decodeValues parses one JSON array of attribute values off dec, with
// integral numbers kept as int64 rather than Go's default float64
// (recordhash.Hasher hashes integer kinds, not floats). Shared by
// decodeLine (batch file input) and the /estimate HTTP handler in
// serve.go, which accept the same wire shape.
func decodeValues(dec *json.Decoder) ([]interface{}, error) {
	var raw []interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding JSON array: %w", err)
	}

	values := make([]interface{}, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case nil, string:
			values[i] = x
		case json.Number:
			n, err := x.Int64()
			if err != nil {
				return nil, fmt.Errorf("attribute %d: non-integral number %q unsupported", i, x)
			}
			values[i] = n
		default:
			return nil, fmt.Errorf("attribute %d: unsupported JSON value type %T", i, v)
		}
	}
	return values, nil
}

func dump(s *sketch.Sketch, format, path string) error {
	switch format {
	case "", "text":
		text, err := sketch.DumpText(s)
		if err != nil {
			return err
		}
		return natomic.WriteFile(path, strings.NewReader(text))
	case "json":
		text, err := sketch.DumpJSON(s)
		if err != nil {
			return err
		}
		return natomic.WriteFile(path, strings.NewReader(text))
	case "binary":
		blob, err := s.MarshalBinary()
		if err != nil {
			return err
		}
		return natomic.WriteFile(path, bytes.NewReader(blob))
	default:
		return fmt.Errorf("unknown dump format %q", format)
	}
}
