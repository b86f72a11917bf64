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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tvondra/omnisketch/metrics"
	"github.com/tvondra/omnisketch/recordhash"
	"github.com/tvondra/omnisketch/sketch"
)

// estimateResponse is the JSON body /estimate returns.
type estimateResponse struct {
	Estimate int64 `json:"estimate"`
	Count    int64 `json:"count"`
}

// serveEstimates runs an HTTP server on addr exposing /estimate against
// the final, read-only sketch s, until ctx is canceled. Grounded on
// goarista's cmd/ocprometheus/main.go, which serves a Prometheus
// handler off bare net/http with no router library (`http.Handle` +
// `http.ListenAndServe`); /estimate and /metrics follow the same
// pattern here.
func serveEstimates(ctx context.Context, addr string, s *sketch.Sketch, hasher *recordhash.Hasher, numAttrs int, coll *metrics.Collectors) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/estimate", func(w http.ResponseWriter, r *http.Request) {
		handleEstimate(w, r, s, hasher, numAttrs, coll)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving estimates: %w", err)
		}
		return nil
	}
}

// handleEstimate answers a POST of one JSON attribute-value array (the
// same wire shape ingestFile/decodeLine accepts) with the sketch's
// estimated count for that equality conjunction (spec 4.7).
func handleEstimate(w http.ResponseWriter, r *http.Request, s *sketch.Sketch, hasher *recordhash.Hasher, numAttrs int, coll *metrics.Collectors) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	values, err := decodeValues(dec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(values) != numAttrs {
		http.Error(w, fmt.Sprintf("expected %d attributes, got %d", numAttrs, len(values)), http.StatusBadRequest)
		return
	}

	hashes := make([]uint64, len(values))
	for i, v := range values {
		h, ok := hasher.Hash(v)
		if !ok {
			http.Error(w, fmt.Sprintf("attribute %d: %s", i, sketch.ErrHashFunctionMissing), http.StatusBadRequest)
			return
		}
		hashes[i] = h
	}

	start := time.Now()
	est, isNull, err := sketch.Estimate(s, hashes)
	if coll != nil {
		coll.EstimateLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if isNull {
		est = 0
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(estimateResponse{Estimate: est, Count: sketch.Count(s)})
}
