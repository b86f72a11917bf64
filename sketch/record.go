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

// Record is the host-supplied external collaborator (spec 6): a fixed-
// arity ordered tuple of attribute values. The engine never looks at the
// values themselves, only at the hashes AttrHash produces.
type Record interface {
	// NumAttrs returns the record's attribute arity, A.
	NumAttrs() int

	// AttrHash returns the 64-bit extended hash of attribute index. Only
	// the low 32 bits are used by the engine. A null attribute must hash
	// to 0 (spec 4.4, documented and intentionally not silently changed
	// per spec 9).
	//
	// ok is false when no hash function exists for the attribute's type;
	// the engine surfaces this as ErrHashFunctionMissing.
	AttrHash(index int) (h uint64, ok bool)
}
