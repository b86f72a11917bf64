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

// Header is the fixed-size configuration and bookkeeping block that
// precedes every sketch's bucket and sample arrays (spec 3).
type Header struct {
	Flags       uint32
	NumSketches uint32 // A: number of per-attribute planes
	Width       uint32 // w: columns per row
	Height      uint32 // d: rows per plane
	SampleSize  uint32 // B: bucket sample capacity
	ItemSize    uint32 // b: item bit width (fixed 32 regardless, spec 4.4)
	Count       uint32 // records absorbed so far
	Seed        uint32 // diversifies synthesized item ids between instances
}

// Bucket is one (plane, row, column) cell: a running total and a cached
// max-hash/max-index pair describing the current bottom-B sample.
type Bucket struct {
	TotalCount  uint32
	SampleCount uint16
	MaxIndex    uint16
	MaxHash     uint32
	IsSorted    bool
}

// storage is the owned state backing a sketch: a header value, a bucket
// array and a sample array, addressed by (plane, row, column). It stands
// in for the C source's one palloc'd block plus SKETCH_BUCKET/
// SKETCH_SAMPLE pointer-arithmetic macros, using index arithmetic instead
// of raw pointers. The bucket and sample arrays are two separately
// allocated typed slices, not views into one contiguous byte buffer;
// MarshalBinary produces the single contiguous byte form.
type storage struct {
	header  Header
	buckets []Bucket
	samples []uint32 // flattened [plane][row][col][slot], B slots per bucket
}

func newStorage(a, d, w, b uint32, seed uint32) *storage {
	n := a * d * w
	return &storage{
		header: Header{
			NumSketches: a,
			Height:      d,
			Width:       w,
			SampleSize:  b,
			ItemSize:    32,
			Seed:        seed,
		},
		buckets: make([]Bucket, n),
		samples: make([]uint32, n*b),
	}
}

// bucketIndex maps (plane, row, col) to a flat bucket-array offset.
func (s *storage) bucketIndex(plane, row, col int) int {
	d := int(s.header.Height)
	w := int(s.header.Width)
	return plane*d*w + row*w + col
}

// bucket returns a pointer to bucket (plane, row, col).
func (s *storage) bucket(plane, row, col int) *Bucket {
	return &s.buckets[s.bucketIndex(plane, row, col)]
}

// sample returns the B-slot sample slice belonging to bucket (plane, row, col).
func (s *storage) sample(plane, row, col int) []uint32 {
	b := int(s.header.SampleSize)
	idx := s.bucketIndex(plane, row, col) * b
	return s.samples[idx : idx+b]
}

// clone deep-copies the storage, used by Combine when extending a null
// accumulator with a copy of the non-null side (spec 4.6).
func (s *storage) clone() *storage {
	out := &storage{header: s.header}
	out.buckets = append([]Bucket(nil), s.buckets...)
	out.samples = append([]uint32(nil), s.samples...)
	return out
}

// sameShape reports whether two storages agree on (A, w, d, B, b), the
// precondition for merge (spec 4.6, invariant 9).
func (s *storage) sameShape(o *storage) bool {
	return s.header.NumSketches == o.header.NumSketches &&
		s.header.Width == o.header.Width &&
		s.header.Height == o.header.Height &&
		s.header.SampleSize == o.header.SampleSize &&
		s.header.ItemSize == o.header.ItemSize
}
