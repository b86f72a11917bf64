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

import "github.com/OneOfOne/xxhash"

// fixedItemSeed is the seed used to compute itemHash. It must never equal
// any row seed passed to hash, which only ever sees small row indices.
const fixedItemSeed uint32 = 0xFFFFFFFF

// hash is the deterministic 32-bit primitive H(key, seed) from the spec:
// an xxHash-32 checksum of the 4-byte little-endian encoding of key, seeded
// with seed. Replacing this function changes the on-disk bytes of every
// sketch; that is an accepted tradeoff (spec 4.1).
func hash(key, seed uint32) uint32 {
	var buf [4]byte
	buf[0] = byte(key)
	buf[1] = byte(key >> 8)
	buf[2] = byte(key >> 16)
	buf[3] = byte(key >> 24)
	return xxhash.Checksum32S(buf[:], seed)
}

// itemHash is the fixed-seed hash of a synthesized item id, used as the
// bottom-k sampling key for every bucket.
func itemHash(id uint32) uint32 {
	return hash(id, fixedItemSeed)
}

// rowHash picks the column within row i for an attribute hash h.
func rowHash(attrHash uint32, row int) uint32 {
	return hash(attrHash, uint32(row))
}

// synthesizeItemID derives the per-record item id shared by every plane,
// from the post-increment record ordinal and the sketch's own seed.
func synthesizeItemID(count, seed uint32) uint32 {
	return hash(count, seed)
}
