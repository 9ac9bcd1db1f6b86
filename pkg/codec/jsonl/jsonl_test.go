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

package jsonl

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/require"
)

func TestDecodeWidensAndFillsMissingKeys(t *testing.T) {
	dec := NewDecoder(memory.NewGoAllocator(), 10)
	_, err := dec.Push([]byte("{\"a\":1,\"b\":\"x\"}\n{\"a\":2.5}\n"))
	require.NoError(t, err)
	out, err := dec.Flush()
	require.NoError(t, err)
	require.Len(t, out, 1)
	b := out[0]
	require.Equal(t, 2, b.RowCount)
	require.True(t, b.IsNull(1, b.Schema.IndexOf("b")), "missing key fills as null")
}

func TestDecodeSkipsUnparsableLineSilently(t *testing.T) {
	dec := NewDecoder(memory.NewGoAllocator(), 10)
	_, err := dec.Push([]byte("{\"a\":1}\nnot json\n{\"a\":2}\n"))
	require.NoError(t, err)
	out, err := dec.Flush()
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 2, out[0].RowCount)
}

func TestEncodeRoundTrip(t *testing.T) {
	dec := NewDecoder(memory.NewGoAllocator(), 10)
	_, err := dec.Push([]byte("{\"a\":1}\n"))
	require.NoError(t, err)
	out, err := dec.Flush()
	require.NoError(t, err)

	enc := NewEncoder()
	encoded, err := enc.Encode(out[0])
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(encoded))
}
