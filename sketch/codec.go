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
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
)

// bucketWireSize is the per-bucket encoded size: TotalCount(4) +
// SampleCount(2) + MaxIndex(2) + MaxHash(4) + IsSorted(1), padded to 16 to
// keep the sample array that follows 4-byte aligned.
const bucketWireSize = 16

var byteOrder = binary.LittleEndian

// MarshalBinary implements encoding.BinaryMarshaler. The encoded form is
// exactly the header, bucket array, and sample array described in spec 3,
// length-prefixed so the recv side knows where the blob ends. This is the
// wire/on-disk format; endianness here is fixed (little-endian) rather
// than "host" as the original C source leaves it, since Go binaries don't
// get to assume a single deployment architecture the way the C extension
// running inside one Postgres instance does.
func (s *Sketch) MarshalBinary() ([]byte, error) {
	a := int(s.st.header.NumSketches)
	d := int(s.st.header.Height)
	w := int(s.st.header.Width)
	b := int(s.st.header.SampleSize)
	n := a * d * w

	headerSize := 8 * 4
	bucketsSize := n * bucketWireSize
	samplesSize := n * b * 4
	total := 4 + headerSize + bucketsSize + samplesSize

	buf := make([]byte, total)
	off := 0
	byteOrder.PutUint32(buf[off:], uint32(total-4))
	off += 4

	h := &s.st.header
	for _, v := range []uint32{h.Flags, h.NumSketches, h.Width, h.Height, h.SampleSize, h.ItemSize, h.Count, h.Seed} {
		byteOrder.PutUint32(buf[off:], v)
		off += 4
	}

	for i := range s.st.buckets {
		bk := &s.st.buckets[i]
		byteOrder.PutUint32(buf[off:], bk.TotalCount)
		byteOrder.PutUint16(buf[off+4:], bk.SampleCount)
		byteOrder.PutUint16(buf[off+6:], bk.MaxIndex)
		byteOrder.PutUint32(buf[off+8:], bk.MaxHash)
		if bk.IsSorted {
			buf[off+12] = 1
		}
		off += bucketWireSize
	}

	for _, v := range s.st.samples {
		byteOrder.PutUint32(buf[off:], v)
		off += 4
	}

	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, the inverse of
// MarshalBinary. Binary recv from a remote peer is unsupported (spec 6);
// this method is for round-tripping a blob this process itself produced,
// e.g. reloading a dump from disk.
func (s *Sketch) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("sketch: truncated blob: need at least 4 bytes, got %d", len(data))
	}
	n := byteOrder.Uint32(data)
	data = data[4:]
	if uint32(len(data)) != n {
		return fmt.Errorf("sketch: length mismatch: header says %d, got %d", n, len(data))
	}

	off := 0
	fields := make([]uint32, 8)
	for i := range fields {
		if off+4 > len(data) {
			return fmt.Errorf("sketch: truncated header")
		}
		fields[i] = byteOrder.Uint32(data[off:])
		off += 4
	}
	hdr := Header{
		Flags:       fields[0],
		NumSketches: fields[1],
		Width:       fields[2],
		Height:      fields[3],
		SampleSize:  fields[4],
		ItemSize:    fields[5],
		Count:       fields[6],
		Seed:        fields[7],
	}

	count := int(hdr.NumSketches) * int(hdr.Height) * int(hdr.Width)
	buckets := make([]Bucket, count)
	for i := range buckets {
		if off+bucketWireSize > len(data) {
			return fmt.Errorf("sketch: truncated bucket array at index %d", i)
		}
		buckets[i] = Bucket{
			TotalCount:  byteOrder.Uint32(data[off:]),
			SampleCount: byteOrder.Uint16(data[off+4:]),
			MaxIndex:    byteOrder.Uint16(data[off+6:]),
			MaxHash:     byteOrder.Uint32(data[off+8:]),
			IsSorted:    data[off+12] != 0,
		}
		off += bucketWireSize
	}

	samplesLen := count * int(hdr.SampleSize)
	samples := make([]uint32, samplesLen)
	for i := range samples {
		if off+4 > len(data) {
			return fmt.Errorf("sketch: truncated sample array at index %d", i)
		}
		samples[i] = byteOrder.Uint32(data[off:])
		off += 4
	}

	s.st = &storage{header: hdr, buckets: buckets, samples: samples}
	if s.pool == nil {
		s.pool = newScratchPool()
	}
	if hdr.Count == 0 {
		s.state = Empty
	} else {
		s.state = Mutable
	}
	return nil
}

// DumpText renders the sketch in a stable, human-readable plain-text
// format (spec 6): one summary line, then one line per non-empty bucket.
func DumpText(s *Sketch) (string, error) {
	if s == nil {
		return "", nil
	}
	var sb strings.Builder
	h := s.st.header
	fmt.Fprintf(&sb, "omnisketch A=%d w=%d d=%d B=%d count=%d seed=%d\n",
		h.NumSketches, h.Width, h.Height, h.SampleSize, h.Count, h.Seed)

	a := int(h.NumSketches)
	d := int(h.Height)
	w := int(h.Width)
	for attr := 0; attr < a; attr++ {
		for row := 0; row < d; row++ {
			for col := 0; col < w; col++ {
				b := s.st.bucket(attr, row, col)
				if b.TotalCount == 0 {
					continue
				}
				fmt.Fprintf(&sb, "  [%d,%d,%d] total=%d sample=%d sorted=%t\n",
					attr, row, col, b.TotalCount, b.SampleCount, b.IsSorted)
			}
		}
	}
	return sb.String(), nil
}

// jsonBucket and jsonSketch give DumpJSON a stable field order independent
// of the Sketch's internal storage layout.
type jsonBucket struct {
	Attr        int    `json:"attr"`
	Row         int    `json:"row"`
	Col         int    `json:"col"`
	TotalCount  uint32 `json:"totalCount"`
	SampleCount uint16 `json:"sampleCount"`
	Sample      []uint32 `json:"sample"`
	IsSorted    bool   `json:"isSorted"`
}

type jsonSketch struct {
	NumSketches uint32       `json:"numSketches"`
	Width       uint32       `json:"width"`
	Height      uint32       `json:"height"`
	SampleSize  uint32       `json:"sampleSize"`
	ItemSize    uint32       `json:"itemSize"`
	Count       uint32       `json:"count"`
	Seed        uint32       `json:"seed"`
	Buckets     []jsonBucket `json:"buckets"`
}

// DumpJSON renders the sketch as JSON (spec 6), stable within a major
// version: field names and ordering don't change across patch releases.
func DumpJSON(s *Sketch) (string, error) {
	if s == nil {
		return "null", nil
	}
	h := s.st.header
	out := jsonSketch{
		NumSketches: h.NumSketches,
		Width:       h.Width,
		Height:      h.Height,
		SampleSize:  h.SampleSize,
		ItemSize:    h.ItemSize,
		Count:       h.Count,
		Seed:        h.Seed,
	}

	a := int(h.NumSketches)
	d := int(h.Height)
	w := int(h.Width)
	for attr := 0; attr < a; attr++ {
		for row := 0; row < d; row++ {
			for col := 0; col < w; col++ {
				b := s.st.bucket(attr, row, col)
				if b.TotalCount == 0 {
					continue
				}
				sample := append([]uint32(nil), s.st.sample(attr, row, col)[:b.SampleCount]...)
				out.Buckets = append(out.Buckets, jsonBucket{
					Attr: attr, Row: row, Col: col,
					TotalCount:  b.TotalCount,
					SampleCount: b.SampleCount,
					Sample:      sample,
					IsSorted:    b.IsSorted,
				})
			}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseText is unsupported: the spec defines text input parsing as
// ErrUnsupportedOperation (spec 6, "Text input parsing is unsupported").
func ParseText(string) (*Sketch, error) {
	return nil, fmt.Errorf("%w: text input parsing", ErrUnsupportedOperation)
}

// Recv is unsupported: binary recv from the wire is not implemented,
// only send (spec 6).
func Recv([]byte) (*Sketch, error) {
	return nil, fmt.Errorf("%w: binary recv", ErrUnsupportedOperation)
}

// Send returns the blob form of the sketch, the binary "send" operation.
func Send(s *Sketch) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return s.MarshalBinary()
}
