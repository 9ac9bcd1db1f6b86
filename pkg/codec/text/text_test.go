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

package text

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/tabflow/tabflow/pkg/batch"
)

func TestDecodeOneRowPerLine(t *testing.T) {
	dec := NewDecoder(memory.NewGoAllocator(), 10)
	_, err := dec.Push([]byte("hello\nworld\n"))
	require.NoError(t, err)
	out, err := dec.Flush()
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 2, out[0].RowCount)
	require.Equal(t, "hello", out[0].GetString(0, 0))
}

func TestEncodeLineColumnVerbatim(t *testing.T) {
	dec := NewDecoder(memory.NewGoAllocator(), 10)
	_, err := dec.Push([]byte("hi\n"))
	require.NoError(t, err)
	out, _ := dec.Flush()

	enc := NewEncoder()
	encoded, err := enc.Encode(out[0])
	require.NoError(t, err)
	require.Equal(t, "hi\n", string(encoded))
}

func TestEncodeTabJoinsWhenNoLineColumn(t *testing.T) {
	schema := batch.NewSchema([]string{"a", "b"}, []batch.Kind{batch.String, batch.String})
	b := batch.NewEmpty(memory.NewGoAllocator(), 4096, schema, 1)
	b.EnsureCapacity(1)
	b.SetString(0, 0, "x")
	b.SetString(0, 1, "y")
	b.RowCount = 1

	enc := NewEncoder()
	out, err := enc.Encode(b)
	require.NoError(t, err)
	require.Equal(t, "x\ty\n", string(out))
}
