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

import (
	"errors"
	"fmt"
)

// State is the sketch lifecycle state machine from spec 4.8.
type State int

const (
	// Empty is the state of a sketch that has never absorbed a record.
	Empty State = iota
	// Mutable is the state after at least one Add or Combine.
	Mutable
	// Finalized is the state after Finalize; no transition leads back.
	Finalized
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Mutable:
		return "mutable"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Sketch is the whole compound data structure described in spec 2: an
// A x d x w array of buckets, each holding a running count and a bounded
// KMV-style sample. It is a passive value type: single-writer, no
// internal locking, no suspension points (spec 5).
type Sketch struct {
	st    *storage
	state State
	pool  *scratchPool
}

// New allocates a sketch sized for (epsilon, delta) per spec 4.4, for a
// record of the given attribute arity. Rejects out-of-range epsilon/delta
// before allocating (spec 7, ErrInvalidConfiguration).
func New(numAttrs int, epsilon, delta float64, rnd RandomSource) (*Sketch, error) {
	if numAttrs <= 0 {
		return nil, fmt.Errorf("%w: numAttrs must be positive, got %d", ErrInvalidConfiguration, numAttrs)
	}
	d, err := deriveDims(epsilon, delta)
	if err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = DefaultRandomSource
	}
	seed, err := rnd.Uint32()
	if err != nil {
		return nil, err
	}
	return &Sketch{
		st:    newStorage(uint32(numAttrs), d.d, d.w, d.b, seed),
		state: Empty,
		pool:  newScratchPool(),
	}, nil
}

// Add absorbs one record into the sketch. If acc is nil, a new sketch is
// allocated sized for (epsilon, delta) and the record's arity (spec 4.8:
// add valid on a null accumulator). Every subsequent Add's arity must
// match the sketch's numSketches or ErrShapeMismatch is returned.
func Add(acc *Sketch, epsilon, delta float64, rnd RandomSource, rec Record) (*Sketch, error) {
	if acc == nil {
		var err error
		acc, err = New(rec.NumAttrs(), epsilon, delta, rnd)
		if err != nil {
			return nil, err
		}
	}
	if err := acc.add(rec); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Sketch) add(rec Record) error {
	a := int(s.st.header.NumSketches)
	if rec.NumAttrs() != a {
		return fmt.Errorf("%w: record has %d attributes, sketch has %d", ErrShapeMismatch, rec.NumAttrs(), a)
	}

	hashes := make([]uint32, a)
	var missing []error
	for attr := 0; attr < a; attr++ {
		h, ok := rec.AttrHash(attr)
		if !ok {
			missing = append(missing, fmt.Errorf("%w: attribute %d", ErrHashFunctionMissing, attr))
			continue
		}
		hashes[attr] = uint32(h)
	}
	if len(missing) > 0 {
		return errors.Join(missing...)
	}

	s.st.header.Count++
	id := synthesizeItemID(s.st.header.Count, s.st.header.Seed)

	d := int(s.st.header.Height)
	w := int(s.st.header.Width)
	for attr, attrHash := range hashes {
		for row := 0; row < d; row++ {
			col := int(rowHash(attrHash, row)) % w
			b := s.st.bucket(attr, row, col)
			b.TotalCount++
			admit(b, s.st.sample(attr, row, col), id)
		}
	}

	s.state = Mutable
	return nil
}

// Combine merges src into dst following the null-handling rules in spec
// 4.6: both nil yields nil, one nil yields a deep copy of the other, and
// otherwise dst is mutated in place and returned. Structural mismatch in
// (A, w, d, B, b) is ErrShapeMismatch.
func Combine(dst, src *Sketch) (*Sketch, error) {
	if dst == nil && src == nil {
		return nil, nil
	}
	if dst == nil {
		return src.copy(), nil
	}
	if src == nil {
		return dst, nil
	}
	if !dst.st.sameShape(src.st) {
		return nil, fmt.Errorf("%w: dst and src sketches have different geometry", ErrShapeMismatch)
	}

	a := int(dst.st.header.NumSketches)
	d := int(dst.st.header.Height)
	w := int(dst.st.header.Width)
	for attr := 0; attr < a; attr++ {
		for row := 0; row < d; row++ {
			for col := 0; col < w; col++ {
				dstB := dst.st.bucket(attr, row, col)
				srcB := src.st.bucket(attr, row, col)
				mergeInto(dstB, dst.st.sample(attr, row, col), srcB, src.st.sample(attr, row, col), dst.pool)
			}
		}
	}
	dst.st.header.Count += src.st.header.Count
	dst.state = Mutable
	return dst, nil
}

// copy deep-copies the sketch, used by Combine's null-dst path.
func (s *Sketch) copy() *Sketch {
	return &Sketch{
		st:    s.st.clone(),
		state: s.state,
		pool:  newScratchPool(),
	}
}

// Finalize sorts every bucket's sample into canonical (itemHash, id)
// order. Idempotent (spec 4.5, invariant 7).
func Finalize(s *Sketch) *Sketch {
	if s == nil {
		return nil
	}
	a := int(s.st.header.NumSketches)
	d := int(s.st.header.Height)
	w := int(s.st.header.Width)
	for attr := 0; attr < a; attr++ {
		for row := 0; row < d; row++ {
			for col := 0; col < w; col++ {
				b := s.st.bucket(attr, row, col)
				sortStable(b, s.st.sample(attr, row, col))
			}
		}
	}
	s.state = Finalized
	return s
}

// Estimate predicts the number of absorbed records matching the equality
// conjunction "attr_a = v_a for all a" given one attribute hash per
// attribute.
//
// isNull is true only when s itself is nil (spec 7: "estimate on a null
// sketch returns null"); a non-null, empty (count == 0) sketch or a
// zero-attribute query instead report isNull=false with estimate 0
// (spec 8, scenario S5).
//
// Estimate finalizes lazily if the sketch hasn't been finalized yet, and
// scales by the maximum (not minimum) per-row bucket density across all
// rows visited: this dampens buckets that happen to collide heavily with
// unrelated values in other rows, matching the source's estimator as
// written (spec 9, Open Question on estimator formula).
func Estimate(s *Sketch, attrHashes []uint64) (estimate int64, isNull bool, err error) {
	if s == nil {
		return 0, true, nil
	}
	if len(attrHashes) == 0 {
		return 0, false, nil
	}
	if len(attrHashes) != int(s.st.header.NumSketches) {
		return 0, false, fmt.Errorf("%w: query has %d attributes, sketch has %d", ErrShapeMismatch, len(attrHashes), s.st.header.NumSketches)
	}
	if s.state != Finalized {
		Finalize(s)
	}

	d := int(s.st.header.Height)
	w := int(s.st.header.Width)

	var maxTotal uint32
	var items []hashID
	haveItems := false

	for attr, h := range attrHashes {
		attrHash := uint32(h)
		var rowItems []hashID
		haveRow := false
		for row := 0; row < d; row++ {
			col := int(rowHash(attrHash, row)) % w
			b := s.st.bucket(attr, row, col)
			if b.TotalCount > maxTotal {
				maxTotal = b.TotalCount
			}
			sample := s.st.sample(attr, row, col)
			pairs := sortedPairs(b, sample, s.pool.get(int(b.SampleCount)))
			if !haveRow {
				rowItems = pairs
				haveRow = true
			} else {
				rowItems = intersectPairs(rowItems, pairs)
				s.pool.put(pairs)
			}
		}
		if !haveItems {
			items = rowItems
			haveItems = true
		} else {
			items = intersectPairs(items, rowItems)
		}
	}

	est := int64(float64(maxTotal) / float64(s.st.header.SampleSize) * float64(len(items)))
	return est, false, nil
}

// intersectPairs returns the sorted two-pointer intersection of a and b,
// keyed by (hash, id), keeping entries present in both (spec 4.7).
func intersectPairs(a, b []hashID) []hashID {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]hashID, 0, n)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].hash == b[j].hash && a[i].id == b[j].id:
			out = append(out, a[i])
			i++
			j++
		case a[i].hash < b[j].hash || (a[i].hash == b[j].hash && a[i].id < b[j].id):
			i++
		default:
			j++
		}
	}
	return out
}

// Count returns the number of records absorbed by the sketch.
func Count(s *Sketch) int64 {
	if s == nil {
		return 0
	}
	return int64(s.st.header.Count)
}

// State returns the sketch's current lifecycle state.
func (s *Sketch) State() State {
	return s.state
}
