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

package ops

import (
	"strings"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/registry"
)

func init() {
	registry.Register(registry.Entry{
		Name: "split",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
			{Name: "delimiter", Kind: registry.ArgString, Required: false, Default: ","},
			{Name: "into", Kind: registry.ArgStringList, Required: true},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			into := args.StringList("into")
			kinds := make([]batch.Kind, len(into))
			for i := range kinds {
				kinds[i] = batch.String
			}
			return appendSchema(in, into, kinds)
		},
		New: func(args registry.Args) (any, error) {
			return NewSplit(args.String("column", ""), args.String("delimiter", ","), args.StringList("into")), nil
		},
	})
}

// Explode splits one string column on a delimiter and row-multiplies: a
// row with N parts becomes N output rows, each carrying one part and the
// rest of the row's columns unchanged.
type Explode struct {
	colName  string
	col      int
	resolved bool
	delim    string
}

func NewExplode(column, delim string) *Explode {
	return &Explode{colName: column, delim: delim}
}

func (e *Explode) ensure(schema batch.Schema) {
	if e.resolved {
		return
	}
	e.col = schema.IndexOf(e.colName)
	e.resolved = true
}

func (e *Explode) Process(in *batch.Batch) (*batch.Batch, error) {
	e.ensure(in.Schema)
	if e.col < 0 {
		return in, nil
	}
	n := in.Schema.Len()
	out := newBatch(in.Schema, in.RowCount)
	dst := 0
	for r := 0; r < in.RowCount; r++ {
		if in.IsNull(r, e.col) {
			out.EnsureCapacity(dst + 1)
			copyPrefix(out, dst, in, r, n)
			out.SetNull(dst, e.col)
			dst++
			continue
		}
		parts := strings.Split(in.GetString(r, e.col), e.delim)
		for _, p := range parts {
			out.EnsureCapacity(dst + 1)
			copyPrefix(out, dst, in, r, n)
			out.SetString(dst, e.col, p)
			dst++
		}
	}
	if dst == 0 {
		out.Release()
		return nil, nil
	}
	out.RowCount = dst
	return out, nil
}

func (e *Explode) Flush() (*batch.Batch, error) { return nil, nil }

// Split breaks one string column on a delimiter into a fixed number of new
// string columns (named by into), padding with null when a row has fewer
// parts than expected and dropping extras when it has more.
type Split struct {
	colName  string
	col      int
	resolved bool
	delim    string
	into     []string
}

func NewSplit(column, delim string, into []string) *Split {
	return &Split{colName: column, delim: delim, into: into}
}

func (s *Split) ensure(schema batch.Schema) {
	if s.resolved {
		return
	}
	s.col = schema.IndexOf(s.colName)
	s.resolved = true
}

func (s *Split) Process(in *batch.Batch) (*batch.Batch, error) {
	s.ensure(in.Schema)
	kinds := make([]batch.Kind, len(s.into))
	for i := range kinds {
		kinds[i] = batch.String
	}
	outSchema := appendSchema(in.Schema, s.into, kinds)
	out := newBatch(outSchema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	base := in.Schema.Len()
	for r := 0; r < in.RowCount; r++ {
		copyPrefix(out, r, in, r, base)
		if s.col < 0 || in.IsNull(r, s.col) {
			for i := range s.into {
				out.SetNull(r, base+i)
			}
			continue
		}
		parts := strings.Split(in.GetString(r, s.col), s.delim)
		for i := range s.into {
			if i < len(parts) {
				out.SetString(r, base+i, parts[i])
			} else {
				out.SetNull(r, base+i)
			}
		}
	}
	return out, nil
}

func (s *Split) Flush() (*batch.Batch, error) { return nil, nil }
