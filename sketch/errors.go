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

import "errors"

// Sentinel errors for the four kinds the spec names (spec 7). Callers
// should compare with errors.Is, since Add/Combine wrap these with
// attribute- or field-specific context.
var (
	// ErrShapeMismatch is returned when Add or Combine sees an attribute
	// arity or geometry inconsistent with an existing sketch.
	ErrShapeMismatch = errors.New("sketch: shape mismatch")

	// ErrUnsupportedOperation is returned by operations the spec defines
	// as unsupported: textual input parsing and binary recv.
	ErrUnsupportedOperation = errors.New("sketch: unsupported operation")

	// ErrHashFunctionMissing is returned when a host-supplied record
	// cannot produce an extended hash for one of its attributes.
	ErrHashFunctionMissing = errors.New("sketch: hash function missing for attribute")

	// ErrInvalidConfiguration is returned when epsilon or delta is
	// outside (0, 1] on the first Add to a null accumulator.
	ErrInvalidConfiguration = errors.New("sketch: invalid configuration")
)
