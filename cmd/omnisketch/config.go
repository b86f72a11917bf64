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

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// KafkaConfig configures the optional Kafka source.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Group   string   `yaml:"group"`
}

// Config is the representation of omnisketch's YAML config file.
type Config struct {
	// NumAttrs is the arity of every record this sketch absorbs.
	NumAttrs int `yaml:"numAttrs"`
	// Epsilon and Delta size the sketch (spec 4.4).
	Epsilon float64 `yaml:"epsilon"`
	Delta   float64 `yaml:"delta"`
	// Shards is the number of concurrent ingestion shards.
	Shards int `yaml:"shards"`

	// Input is an optional path to a file of newline-delimited JSON
	// attribute-value arrays, batch-ingested at startup.
	Input string `yaml:"input,omitempty"`
	// Kafka, if set, streams records from a Kafka topic.
	Kafka *KafkaConfig `yaml:"kafka,omitempty"`

	// DumpPath is where the final sketch is written.
	DumpPath string `yaml:"dumpPath,omitempty"`
	// DumpFormat is one of "binary", "text", "json".
	DumpFormat string `yaml:"dumpFormat,omitempty"`

	// Listen, if set, is the address an HTTP server binds to after the
	// sketch is built, serving /estimate queries (and /metrics) until
	// interrupted.
	Listen string `yaml:"listen,omitempty"`
}

func (c Config) validate() error {
	if c.NumAttrs <= 0 {
		return fmt.Errorf("numAttrs must be positive, got %d", c.NumAttrs)
	}
	if c.Epsilon <= 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in (0, 1], got %v", c.Epsilon)
	}
	if c.Delta <= 0 || c.Delta > 1 {
		return fmt.Errorf("delta must be in (0, 1], got %v", c.Delta)
	}
	if c.Shards <= 0 {
		return fmt.Errorf("shards must be positive, got %d", c.Shards)
	}
	switch c.DumpFormat {
	case "", "binary", "text", "json":
	default:
		return fmt.Errorf("dumpFormat must be one of binary|text|json, got %q", c.DumpFormat)
	}
	return nil
}

// loadConfig reads and validates a YAML config file at path.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	cfg := Config{Shards: 1, DumpFormat: "text"}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}
