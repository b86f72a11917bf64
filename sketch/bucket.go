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

import "sort"

// admit tries to add id to the bucket's bottom-B sample. The sample grows
// while there's room; once full, a candidate only displaces the current
// maximum when its hash is strictly smaller — ties lose (spec 9, Open
// Question on tie-breaking).
func admit(b *Bucket, sample []uint32, id uint32) {
	h := itemHash(id)
	capacity := len(sample)

	if int(b.SampleCount) < capacity {
		if b.SampleCount == 0 || h >= b.MaxHash {
			b.MaxIndex = b.SampleCount
			b.MaxHash = h
		}
		sample[b.SampleCount] = id
		b.SampleCount++
		b.IsSorted = false
		return
	}

	if h < b.MaxHash {
		sample[b.MaxIndex] = id
		b.MaxHash = 0
		for k := 0; k < int(b.SampleCount); k++ {
			hk := itemHash(sample[k])
			if hk >= b.MaxHash {
				b.MaxHash = hk
				b.MaxIndex = uint16(k)
			}
		}
		b.IsSorted = false
	}
}

// sortStable puts the bucket's sample into canonical ascending (itemHash,
// id) order. No-op if already sorted or if there's nothing to order.
func sortStable(b *Bucket, sample []uint32) {
	if b.IsSorted || b.SampleCount < 2 {
		return
	}
	n := int(b.SampleCount)
	sort.Slice(sample[:n], func(i, j int) bool {
		hi, hj := itemHash(sample[i]), itemHash(sample[j])
		if hi != hj {
			return hi < hj
		}
		return sample[i] < sample[j]
	})
	b.MaxIndex = uint16(n - 1)
	b.MaxHash = itemHash(sample[n-1])
	b.IsSorted = true
}

// sortedPairs returns the bucket's sample as ascending (hash, id) pairs,
// sorting a copy into buf rather than mutating the bucket (used by merge,
// which must read both sides without disturbing the source).
func sortedPairs(b *Bucket, sample []uint32, buf []hashID) []hashID {
	n := int(b.SampleCount)
	for k := 0; k < n; k++ {
		buf = append(buf, hashID{hash: itemHash(sample[k]), id: sample[k]})
	}
	if !b.IsSorted {
		sort.Slice(buf, func(i, j int) bool {
			if buf[i].hash != buf[j].hash {
				return buf[i].hash < buf[j].hash
			}
			return buf[i].id < buf[j].id
		})
	}
	return buf
}

// mergeInto bounded-merges src's sample into dst, keeping at most B
// smallest (hash, id) pairs overall and collapsing duplicates that landed
// in both samples (same record absorbed on both shards). dst.TotalCount
// absorbs src's total; dst ends up sorted.
func mergeInto(dst *Bucket, dstSample []uint32, src *Bucket, srcSample []uint32, pool *scratchPool) {
	dst.TotalCount += src.TotalCount

	b := len(dstSample)
	dstBuf := pool.get(int(dst.SampleCount))
	srcBuf := pool.get(int(src.SampleCount))
	dstBuf = sortedPairs(dst, dstSample, dstBuf)
	srcBuf = sortedPairs(src, srcSample, srcBuf)

	var i, j, k int
	for k < b && (i < len(dstBuf) || j < len(srcBuf)) {
		switch {
		case i == len(dstBuf):
			dstSample[k] = srcBuf[j].id
			k++
			j++
		case j == len(srcBuf):
			dstSample[k] = dstBuf[i].id
			k++
			i++
		case dstBuf[i].hash == srcBuf[j].hash && dstBuf[i].id == srcBuf[j].id:
			// same record sampled on both shards: collapse to one output
			dstSample[k] = dstBuf[i].id
			k++
			i++
			j++
		case dstBuf[i].hash < srcBuf[j].hash ||
			(dstBuf[i].hash == srcBuf[j].hash && dstBuf[i].id < srcBuf[j].id):
			dstSample[k] = dstBuf[i].id
			k++
			i++
		default:
			dstSample[k] = srcBuf[j].id
			k++
			j++
		}
	}

	pool.put(dstBuf)
	pool.put(srcBuf)

	dst.SampleCount = uint16(k)
	dst.IsSorted = true
	if k > 0 {
		dst.MaxIndex = uint16(k - 1)
		dst.MaxHash = itemHash(dstSample[k-1])
	} else {
		dst.MaxIndex = 0
		dst.MaxHash = 0
	}
}
