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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDateRoundTrip(t *testing.T) {
	days, ok := ParseDate("2024-03-05")
	require.True(t, ok)
	require.Equal(t, "2024-03-05", FormatDate(days))
}

func TestEpoch(t *testing.T) {
	days, ok := ParseDate("1970-01-01")
	require.True(t, ok)
	require.Equal(t, int32(0), days)
}

func TestTimestampRoundTripWithFraction(t *testing.T) {
	us, ok := ParseTimestamp("2024-03-05T10:20:30.5Z")
	require.True(t, ok)
	require.Equal(t, "2024-03-05T10:20:30.5Z", FormatTimestamp(us))
}

func TestTimestampNoFraction(t *testing.T) {
	us, ok := ParseTimestamp("2024-03-05T10:20:30Z")
	require.True(t, ok)
	require.Equal(t, "2024-03-05T10:20:30Z", FormatTimestamp(us))
}

func TestTimestampOffsetNormalizesToUTC(t *testing.T) {
	plus, ok := ParseTimestamp("2024-03-05T12:00:00+02:00")
	require.True(t, ok)
	utc, ok := ParseTimestamp("2024-03-05T10:00:00Z")
	require.True(t, ok)
	require.Equal(t, utc, plus)
}

func TestWidenLattice(t *testing.T) {
	require.Equal(t, Int64, Widen(Null, Int64))
	require.Equal(t, Float64, Widen(Int64, Float64))
	require.Equal(t, String, Widen(Int64, String))
	require.Equal(t, Timestamp, Widen(Date, Timestamp))
	require.Equal(t, String, Widen(Bool, Int64))
}

func TestCompareDateAndTimestampString(t *testing.T) {
	d := DateValue(0) // 1970-01-01
	s := StringValue("1970-01-01T00:00:00Z")
	cmp, ok := Compare(d, s)
	require.True(t, ok)
	require.Equal(t, 0, cmp)
}

func TestCompareNullIsNotOrdered(t *testing.T) {
	_, ok := Compare(NullValue(), Int64Value(1))
	require.False(t, ok)
}

func TestEqualNulls(t *testing.T) {
	require.True(t, Equal(NullValue(), NullValue()))
	require.False(t, Equal(NullValue(), Int64Value(0)))
}
