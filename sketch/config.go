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
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// RandomSource supplies the single 32-bit random value a sketch needs at
// creation time (its seed). Injected instead of a process-global PRNG, per
// the design note in spec 9.
type RandomSource interface {
	Uint32() (uint32, error)
}

// cryptoRandSource reads seeds from crypto/rand, the same source the
// teacher's hmap.New() used for its two hash seeds.
type cryptoRandSource struct{}

// DefaultRandomSource is the RandomSource used when none is supplied.
var DefaultRandomSource RandomSource = cryptoRandSource{}

func (cryptoRandSource) Uint32() (uint32, error) {
	var v uint32
	if err := binary.Read(rand.Reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("sketch: reading random seed: %w", err)
	}
	return v, nil
}

// dims holds the (d, w, B, b) geometry derived once from (epsilon, delta)
// on the first Add to a null accumulator (spec 4.4).
type dims struct {
	d, w, b, itemBits uint32
}

// deriveDims implements spec 4.4's sizing rule, a direct translation of
// the original C source's same-named computation (omnisketch_add).
func deriveDims(epsilon, delta float64) (dims, error) {
	if epsilon <= 0 || epsilon > 1 || delta <= 0 || delta > 1 {
		return dims{}, fmt.Errorf("%w: epsilon=%v delta=%v", ErrInvalidConfiguration, epsilon, delta)
	}

	d := uint32(math.Ceil(math.Log(2.0 / delta)))
	if d == 0 {
		d = 1
	}
	w := uint32(1 + math.Ceil(math.E*math.Pow((epsilon+1.0)/epsilon, 1.0/float64(d))))

	var b, bitWidth uint32
	for bitWidth < 32 && b < 1024 {
		b++
		bitWidth = uint32(math.Ceil(math.Log(4 * math.Pow(float64(b), 2.5) / delta)))
	}

	return dims{d: d, w: w, b: b, itemBits: 32}, nil
}
