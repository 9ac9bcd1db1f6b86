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

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a single cell lifted out of a column: the closed sum described
// by spec.md's data model, represented as a tagged struct instead of an
// interface so scalar values used by the expression evaluator and by
// group/join/unique keys don't allocate.
type Value struct {
	Kind Kind
	b    bool
	i    int64 // Int64, Date (days), Timestamp (microseconds)
	f    float64
	s    string
}

func NullValue() Value           { return Value{Kind: Null} }
func BoolValue(b bool) Value      { return Value{Kind: Bool, b: b} }
func Int64Value(i int64) Value    { return Value{Kind: Int64, i: i} }
func Float64Value(f float64) Value { return Value{Kind: Float64, f: f} }
func StringValue(s string) Value  { return Value{Kind: String, s: s} }
func DateValue(days int32) Value  { return Value{Kind: Date, i: int64(days)} }
func TimestampValue(us int64) Value { return Value{Kind: Timestamp, i: us} }

func (v Value) IsNull() bool { return v.Kind == Null }

func (v Value) Bool() bool       { return v.b }
func (v Value) Int64() int64     { return v.i }
func (v Value) Float64() float64 { return v.f }
func (v Value) Str() string      { return v.s }
func (v Value) Days() int32      { return int32(v.i) }
func (v Value) Micros() int64    { return v.i }

// AsFloat64 widens any numeric-ish value to float64. ok is false for
// non-numeric, non-null kinds.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case Int64:
		return float64(v.i), true
	case Float64:
		return v.f, true
	case Date:
		return float64(v.i), true
	case Timestamp:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Truthy implements the "non-boolean values are treated as truthy when
// non-null and non-zero" rule.
func (v Value) Truthy() bool {
	switch v.Kind {
	case Null:
		return false
	case Bool:
		return v.b
	case Int64, Date, Timestamp:
		return v.i != 0
	case Float64:
		return v.f != 0
	case String:
		return v.s != ""
	default:
		return false
	}
}

// String renders the value using the lossless textual form used for
// dedup/group/join keys (§4.6 "unique"): a key concatenation separator of
// \x01 and a null sentinel of \N live one layer up, in the ops package.
func (v Value) String() string {
	switch v.Kind {
	case Null:
		return ""
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Int64:
		return strconv.FormatInt(v.i, 10)
	case Float64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return v.s
	case Date:
		return FormatDate(int32(v.i))
	case Timestamp:
		return FormatTimestamp(v.i)
	default:
		return ""
	}
}

// Compare implements the comparison semantics of spec.md §4.2: string-
// string by byte order, numeric-numeric by double promotion, date/
// timestamp promoted to timestamp at midnight UTC, and a string compared
// against a date/timestamp parsed via the canonical forms (otherwise not
// equal). null ordering against anything but null is reported via ok=false
// (the caller implements "any ordering against null is false" and "null
// ==/!= null is true/false" at the comparison-operator level).
func Compare(a, b Value) (cmp int, ok bool) {
	if a.Kind == Null || b.Kind == Null {
		return 0, false
	}
	if a.Kind == String && b.Kind == String {
		return strings.Compare(a.s, b.s), true
	}
	an, aNum := numericAsTimestamp(a)
	bn, bNum := numericAsTimestamp(b)
	if aNum && bNum {
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	}
	if af, aOk := a.AsFloat64(); aOk {
		if bf, bOk := b.AsFloat64(); bOk {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	// string vs date/timestamp: parse the string with the canonical forms.
	if a.Kind == String && (b.Kind == Date || b.Kind == Timestamp) {
		if parsed, ok2 := parseDateOrTimestamp(a.s); ok2 {
			return Compare(parsed, b)
		}
		return 0, false
	}
	if b.Kind == String && (a.Kind == Date || a.Kind == Timestamp) {
		if parsed, ok2 := parseDateOrTimestamp(b.s); ok2 {
			return Compare(a, parsed)
		}
		return 0, false
	}
	return 0, false
}

// numericAsTimestamp promotes Date/Timestamp values to a common
// microsecond timeline (date -> midnight UTC) for cross comparison.
func numericAsTimestamp(v Value) (int64, bool) {
	switch v.Kind {
	case Date:
		return int64(v.i) * microsPerDay, true
	case Timestamp:
		return v.i, true
	default:
		return 0, false
	}
}

func parseDateOrTimestamp(s string) (Value, bool) {
	if days, ok := ParseDate(s); ok {
		return DateValue(days), true
	}
	if us, ok := ParseTimestamp(s); ok {
		return TimestampValue(us), true
	}
	return Value{}, false
}

// Equal implements null-aware equality: null==null is true, null!=anything
// is handled by the caller (it is the negation of this except when either
// side is null, where spec.md mandates == true / != false regardless).
func Equal(a, b Value) bool {
	if a.Kind == Null && b.Kind == Null {
		return true
	}
	if a.Kind == Null || b.Kind == Null {
		return false
	}
	cmp, ok := Compare(a, b)
	return ok && cmp == 0
}

func (v Value) GoString() string {
	return fmt.Sprintf("Value{%s %q}", v.Kind, v.String())
}
