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

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/require"
)

func newTestBatch(t *testing.T, capacity int) *Batch {
	t.Helper()
	b := Create(memory.NewGoAllocator(), 1024, 2, capacity)
	b.SetSchema(0, "name", String)
	b.SetSchema(1, "age", Int64)
	return b
}

func TestSetGetRoundTrip(t *testing.T) {
	b := newTestBatch(t, 4)
	b.RowCount = 2
	b.SetString(0, 0, "Alice")
	b.SetInt64(0, 1, 30)
	b.SetNull(1, 0)
	b.SetInt64(1, 1, 20)

	require.Equal(t, "Alice", b.GetString(0, 0))
	require.Equal(t, int64(30), b.GetInt64(0, 1))
	require.True(t, b.IsNull(1, 0))
	require.False(t, b.IsNull(1, 1))
}

func TestEnsureCapacityPreservesContent(t *testing.T) {
	b := newTestBatch(t, 2)
	b.RowCount = 2
	b.SetString(0, 0, "x")
	b.SetInt64(0, 1, 1)
	b.SetString(1, 0, "y")
	b.SetInt64(1, 1, 2)

	b.EnsureCapacity(10)
	require.Equal(t, "x", b.GetString(0, 0))
	require.Equal(t, "y", b.GetString(1, 0))
	require.True(t, b.IsNull(5, 0))
}

func TestCopyRowDeepCopiesStrings(t *testing.T) {
	src := newTestBatch(t, 1)
	src.SetString(0, 0, "hello")
	src.SetInt64(0, 1, 42)

	dst := newTestBatch(t, 1)
	dst.CopyRow(0, src, 0)

	require.Equal(t, "hello", dst.GetString(0, 0))
	require.Equal(t, int64(42), dst.GetInt64(0, 1))

	src.Release()
	// dst's copy must survive src's arena being destroyed.
	require.Equal(t, "hello", dst.GetString(0, 0))
}

func TestGetSetValueRoundTrip(t *testing.T) {
	b := newTestBatch(t, 1)
	b.SetValue(0, 1, Int64Value(7))
	require.Equal(t, Int64Value(7), b.GetValue(0, 1))

	b.SetValue(0, 0, NullValue())
	require.True(t, b.GetValue(0, 0).IsNull())
}
