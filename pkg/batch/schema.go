// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package batch

// Schema is an ordered list of (name, type) pairs. Names are unique within
// a schema. Known is false when the shape cannot be determined until
// runtime (e.g. immediately after a decoder, before the first batch).
type Schema struct {
	Names []string
	Types []Kind
	Known bool
}

// NewSchema builds a Schema, requiring len(names) == len(types).
func NewSchema(names []string, types []Kind) Schema {
	if len(names) != len(types) {
		panic("batch: schema names/types length mismatch")
	}
	return Schema{Names: append([]string(nil), names...), Types: append([]Kind(nil), types...), Known: true}
}

// Unknown returns a Schema of the given column names whose types cannot be
// determined at compile time.
func Unknown(names []string) Schema {
	types := make([]Kind, len(names))
	return Schema{Names: append([]string(nil), names...), Types: types, Known: false}
}

// IndexOf returns the column index for name, or -1.
func (s Schema) IndexOf(name string) int {
	for i, n := range s.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Clone deep-copies the schema.
func (s Schema) Clone() Schema {
	return Schema{
		Names: append([]string(nil), s.Names...),
		Types: append([]Kind(nil), s.Types...),
		Known: s.Known,
	}
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.Names) }
