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

package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterFindGetLen(t *testing.T) {
	before := Len()
	Register(Entry{Name: "test.noop1", Kind: OpTransform, Tier: Core})
	require.Equal(t, before+1, Len())

	e, ok := Find("test.noop1")
	require.True(t, ok)
	require.Equal(t, "test.noop1", e.Name)

	last, ok := Get(Len() - 1)
	require.True(t, ok)
	require.Equal(t, "test.noop1", last.Name)

	_, ok = Find("test.does-not-exist")
	require.False(t, ok)

	_, ok = Get(-1)
	require.False(t, ok)
	_, ok = Get(Len())
	require.False(t, ok)
}

func TestRegisterDuplicateNamePanics(t *testing.T) {
	Register(Entry{Name: "test.dup", Kind: OpTransform, Tier: Core})
	require.Panics(t, func() {
		Register(Entry{Name: "test.dup", Kind: OpTransform, Tier: Core})
	})
}

func TestMissingArgs(t *testing.T) {
	e := Entry{
		ArgSpec: []ArgDescriptor{
			{Name: "file", Required: true},
			{Name: "how", Required: false, Default: "inner"},
		},
	}
	missing := e.MissingArgs(Args{})
	require.Equal(t, []string{"file"}, missing)

	require.Empty(t, e.MissingArgs(Args{"file": "x.csv"}))
}

func TestArgsAccessorsFallBackOnMissingOrWrongType(t *testing.T) {
	a := Args{
		"s":    "hello",
		"i":    int64(3),
		"f":    2.5,
		"b":    true,
		"sl":   []any{"x", "y"},
		"map":  map[string]any{"a": "1"},
		"bads": 123, // wrong type for String()
	}

	require.Equal(t, "hello", a.String("s", "def"))
	require.Equal(t, "def", a.String("missing", "def"))
	require.Equal(t, "def", a.String("bads", "def"), "wrong-typed value falls back to default")

	require.Equal(t, int64(3), a.Int("i", 0))
	require.Equal(t, int64(7), a.Int("missing", 7))

	require.InDelta(t, 2.5, a.Float("f", 0), 0.0001)
	require.InDelta(t, 9.0, a.Float("missing", 9), 0.0001)

	require.True(t, a.Bool("b", false))
	require.True(t, a.Bool("missing", true))

	require.Equal(t, []string{"x", "y"}, a.StringList("sl"))
	require.Nil(t, a.StringList("missing"))

	require.Equal(t, map[string]string{"a": "1"}, a.Mapping("map"))
	require.Nil(t, a.Mapping("missing"))

	require.True(t, a.Has("s"))
	require.False(t, a.Has("missing"))

	v, ok := a.Raw("i")
	require.True(t, ok)
	require.Equal(t, int64(3), v)
}

func TestCapabilityStringAndHas(t *testing.T) {
	c := CapStreaming | CapFs
	require.True(t, c.Has(CapStreaming))
	require.False(t, c.Has(CapNet))
	require.Contains(t, c.String(), "streaming")
	require.Contains(t, c.String(), "fs")

	var none Capability
	require.Equal(t, "none", none.String())
}
