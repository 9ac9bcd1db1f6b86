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

package csv

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/tabflow/tabflow/pkg/batch"
)

func TestDecoderTypeDetectionAndFreeze(t *testing.T) {
	dec := NewDecoder(memory.NewGoAllocator(), Options{Header: true, BatchSize: 10})
	batches, err := dec.Push([]byte("name,age\nalice,30\nbob,40\n"))
	require.NoError(t, err)
	require.Empty(t, batches, "batch size 10 not yet reached")
	out, err := dec.Flush()
	require.NoError(t, err)
	require.Len(t, out, 1)
	b := out[0]
	require.Equal(t, 2, b.RowCount)
	require.Equal(t, batch.String, b.Schema.Types[0])
	require.Equal(t, batch.Int64, b.Schema.Types[1])
	require.Equal(t, "alice", b.GetString(0, 0))
	require.Equal(t, int64(30), b.GetInt64(0, 1))
}

func TestDecoderPostFreezeBadValueBecomesNull(t *testing.T) {
	dec := NewDecoder(memory.NewGoAllocator(), Options{Header: true, BatchSize: 1})
	batches, err := dec.Push([]byte("n\n1\nnot-a-number\n"))
	require.NoError(t, err)
	require.Len(t, batches, 2, "batch_size=1 emits each row as soon as it completes")
	require.Equal(t, int64(1), batches[0].GetInt64(0, 0))
	require.True(t, batches[1].IsNull(0, 0), "a value that fails the frozen-type parser stores null, never repromotes the column")
}

func TestDecoderEmptyInputRoundTrip(t *testing.T) {
	dec := NewDecoder(memory.NewGoAllocator(), Options{Header: true, BatchSize: 10})
	batches, err := dec.Push(nil)
	require.NoError(t, err)
	require.Empty(t, batches)
	out, err := dec.Flush()
	require.NoError(t, err)
	require.Empty(t, out, "an empty input with no rows produces nothing, not an empty batch")
}

func TestEncoderRoundTrip(t *testing.T) {
	dec := NewDecoder(memory.NewGoAllocator(), Options{Header: true, BatchSize: 10})
	_, err := dec.Push([]byte("a,b\n1,hello world\n"))
	require.NoError(t, err)
	out, err := dec.Flush()
	require.NoError(t, err)
	require.Len(t, out, 1)

	enc := NewEncoder(',')
	encoded, err := enc.Encode(out[0])
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,hello world\n", string(encoded))
}

func TestEncoderQuotesDelimiterAndQuoteChars(t *testing.T) {
	schema := batch.NewSchema([]string{"s"}, []batch.Kind{batch.String})
	b := batch.NewEmpty(memory.NewGoAllocator(), 4096, schema, 1)
	b.EnsureCapacity(1)
	b.SetString(0, 0, `has,comma and "quote"`)
	b.RowCount = 1

	enc := NewEncoder(',')
	out, err := enc.Encode(b)
	require.NoError(t, err)
	require.Equal(t, "s\n\"has,comma and \"\"quote\"\"\"\n", string(out))
}
