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

import "fmt"

// Validate checks every invariant in spec 3 and returns the first
// violation found, or nil. This is the Go equivalent of the original C
// source's USE_ASSERT_CHECKING-gated AssertCheckBucket/AssertCheckSketch:
// since Go has no comparably cheap build-time assertion toggle, the
// checks are always compiled and exposed here as an opt-in diagnostic
// rather than paid on every Add/Combine call.
func (s *Sketch) Validate() error {
	if s == nil || s.st == nil {
		return nil
	}
	a := int(s.st.header.NumSketches)
	d := int(s.st.header.Height)
	w := int(s.st.header.Width)
	bound := s.st.header.SampleSize

	for attr := 0; attr < a; attr++ {
		for row := 0; row < d; row++ {
			var rowTotal uint64
			for col := 0; col < w; col++ {
				b := s.st.bucket(attr, row, col)
				rowTotal += uint64(b.TotalCount)

				if b.SampleCount > uint16(bound) {
					return fmt.Errorf("sketch: bucket (%d,%d,%d) sampleCount %d exceeds B=%d", attr, row, col, b.SampleCount, bound)
				}
				if b.TotalCount < uint32(b.SampleCount) {
					return fmt.Errorf("sketch: bucket (%d,%d,%d) totalCount %d < sampleCount %d", attr, row, col, b.TotalCount, b.SampleCount)
				}
				if b.TotalCount > s.st.header.Count {
					return fmt.Errorf("sketch: bucket (%d,%d,%d) totalCount %d exceeds sketch count %d", attr, row, col, b.TotalCount, s.st.header.Count)
				}
				if b.SampleCount > 0 {
					if int(b.MaxIndex) >= int(b.SampleCount) {
						return fmt.Errorf("sketch: bucket (%d,%d,%d) maxIndex %d out of range", attr, row, col, b.MaxIndex)
					}
					sample := s.st.sample(attr, row, col)
					if b.MaxHash != itemHash(sample[b.MaxIndex]) {
						return fmt.Errorf("sketch: bucket (%d,%d,%d) maxHash cache stale", attr, row, col)
					}
					seen := make(map[uint32]struct{}, b.SampleCount)
					for k := 0; k < int(b.SampleCount); k++ {
						if _, dup := seen[sample[k]]; dup {
							return fmt.Errorf("sketch: bucket (%d,%d,%d) duplicate item id in sample", attr, row, col)
						}
						seen[sample[k]] = struct{}{}
					}
					if b.IsSorted {
						for k := 1; k < int(b.SampleCount); k++ {
							hPrev, hCur := itemHash(sample[k-1]), itemHash(sample[k])
							if hCur < hPrev || (hCur == hPrev && sample[k] <= sample[k-1]) {
								return fmt.Errorf("sketch: bucket (%d,%d,%d) sample not sorted at index %d", attr, row, col, k)
							}
						}
						if int(b.MaxIndex) != int(b.SampleCount)-1 {
							return fmt.Errorf("sketch: bucket (%d,%d,%d) sorted but maxIndex not last", attr, row, col)
						}
					}
				} else if b.TotalCount > 0 {
					return fmt.Errorf("sketch: bucket (%d,%d,%d) has totalCount but empty sample", attr, row, col)
				}
			}
			if rowTotal != uint64(s.st.header.Count) {
				return fmt.Errorf("sketch: row (%d,%d) totals %d, want %d", attr, row, rowTotal, s.st.header.Count)
			}
		}
	}
	return nil
}
