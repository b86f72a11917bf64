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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tvondra/omnisketch/recordhash"
	"github.com/tvondra/omnisketch/sketch"
)

func buildEstimateTestSketch(t *testing.T) (*sketch.Sketch, *recordhash.Hasher) {
	t.Helper()
	req := require.New(t)

	hasher, err := recordhash.NewHasher()
	req.NoError(err)

	var s *sketch.Sketch
	for i := 0; i < 100; i++ {
		s, err = sketch.Add(s, 0.1, 0.1, nil, recordhash.Tuple{Hasher: hasher, Values: []interface{}{int64(0)}})
		req.NoError(err)
	}
	sketch.Finalize(s)
	return s, hasher
}

func TestHandleEstimateReturnsEstimate(t *testing.T) {
	req := require.New(t)

	s, hasher := buildEstimateTestSketch(t)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(`[0]`))
	handleEstimate(rr, r, s, hasher, 1, nil)

	req.Equal(http.StatusOK, rr.Code)
	req.Contains(rr.Body.String(), `"count":100`)
}

func TestHandleEstimateRejectsWrongArity(t *testing.T) {
	req := require.New(t)

	s, hasher := buildEstimateTestSketch(t)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(`[0, 1]`))
	handleEstimate(rr, r, s, hasher, 1, nil)

	req.Equal(http.StatusBadRequest, rr.Code)
}

func TestHandleEstimateRejectsNonPost(t *testing.T) {
	req := require.New(t)

	s, hasher := buildEstimateTestSketch(t)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/estimate", nil)
	handleEstimate(rr, r, s, hasher, 1, nil)

	req.Equal(http.StatusMethodNotAllowed, rr.Code)
}
