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

package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadAll(t *testing.T) {
	b := New(16)
	b.WriteString("hello world")
	require.Equal(t, "hello world", string(b.ReadAll()))
	require.Equal(t, 0, b.Len())
}

func TestAdvanceAndCompact(t *testing.T) {
	b := New(4)
	b.WriteString("abcdef")
	b.Advance(3)
	require.Equal(t, "def", string(b.Unread()))

	b.Compact()
	require.Equal(t, "def", string(b.Unread()))
	b.WriteString("ghi")
	require.Equal(t, "defghi", string(b.Unread()))
}

func TestReset(t *testing.T) {
	b := New(4)
	b.WriteString("abc")
	b.Reset()
	require.Equal(t, 0, b.Len())
}
