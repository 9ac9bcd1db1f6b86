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

package arena

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/require"
)

func TestAllocString(t *testing.T) {
	a := New(memory.NewGoAllocator(), 64)
	s := a.AllocString("hello")
	require.Equal(t, "hello", s)
}

func TestAllocCrossesBlockBoundary(t *testing.T) {
	a := New(memory.NewGoAllocator(), 16)
	require.Equal(t, 1, a.BlockCount())

	first := a.AllocString("0123456789ABCDEF") // fills the first block exactly
	second := a.AllocString("overflow")

	require.Equal(t, "0123456789ABCDEF", first)
	require.Equal(t, "overflow", second)
	require.GreaterOrEqual(t, a.BlockCount(), 2)
}

func TestResetInvalidatesButKeepsHeadBlock(t *testing.T) {
	a := New(memory.NewGoAllocator(), 8)
	_ = a.AllocString("aaaaaaaaaaaaaaaa")
	require.GreaterOrEqual(t, a.BlockCount(), 2)

	a.Reset()
	require.Equal(t, 1, a.BlockCount())

	s := a.AllocString("fresh")
	require.Equal(t, "fresh", s)
}

func TestAllocLargerThanBlockSize(t *testing.T) {
	a := New(memory.NewGoAllocator(), 4)
	big := make([]byte, 100)
	for i := range big {
		big[i] = byte('a' + i%26)
	}
	got := a.AllocBytes(big)
	require.Equal(t, big, got)
}

func TestDestroy(t *testing.T) {
	a := New(memory.NewGoAllocator(), 64)
	a.AllocString("x")
	a.Destroy()
}
