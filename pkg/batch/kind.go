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

/*
Package batch implements the columnar batch model: typed column arrays with
null bitmaps, backed by a per-batch arena for variable-length data.
*/
package batch

// Kind is the primitive value type, a closed sum with seven variants.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Int64
	Float64
	String
	Date      // signed 32-bit day count from 1970-01-01, stored widened to int64
	Timestamp // signed 64-bit microsecond count from 1970-01-01T00:00:00Z
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Date:
		return "date"
	case Timestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// widen returns the lattice join of two kinds per the CSV type-detection
// rule: Null < Int64 < Float64 < String; {Date, Timestamp} widen to
// Timestamp; any other mixture widens to String.
func Widen(a, b Kind) Kind {
	if a == b {
		return a
	}
	if a == Null {
		return b
	}
	if b == Null {
		return a
	}
	if (a == Date || a == Timestamp) && (b == Date || b == Timestamp) {
		return Timestamp
	}
	numeric := func(k Kind) bool { return k == Int64 || k == Float64 }
	if numeric(a) && numeric(b) {
		return Float64
	}
	return String
}
