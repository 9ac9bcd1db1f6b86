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
	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/registry"
)

func init() {
	registry.Register(registry.Entry{
		Name: "select",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.AllCaps,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "columns", Kind: registry.ArgStringList, Required: true},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			return selectSchema(in, args.StringList("columns"))
		},
		New: func(args registry.Args) (any, error) { return NewSelect(args.StringList("columns")), nil },
	})
	registry.Register(registry.Entry{
		Name: "drop",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.AllCaps,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "columns", Kind: registry.ArgStringList, Required: true},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			return selectSchema(in, complementColumns(in, args.StringList("columns")))
		},
		New: func(args registry.Args) (any, error) { return NewDrop(args.StringList("columns")), nil },
	})
	registry.Register(registry.Entry{
		Name: "rename",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.AllCaps,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "mapping", Kind: registry.ArgMapping, Required: true},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			return renameSchema(in, args.Mapping("mapping"))
		},
		New: func(args registry.Args) (any, error) { return NewRename(args.Mapping("mapping")), nil },
	})
}

func complementColumns(in batch.Schema, drop []string) []string {
	dropped := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropped[d] = true
	}
	keep := make([]string, 0, len(in.Names))
	for _, n := range in.Names {
		if !dropped[n] {
			keep = append(keep, n)
		}
	}
	return keep
}

// Select projects the input batch down to a named subset of columns, in
// the requested order.
type Select struct {
	columns []string
	cols    []int
	schema  batch.Schema
	built   bool
}

func NewSelect(columns []string) *Select { return &Select{columns: columns} }

func (s *Select) ensure(in batch.Schema) {
	if s.built {
		return
	}
	s.cols = resolveColumns(in, s.columns)
	names := make([]string, len(s.cols))
	kinds := make([]batch.Kind, len(s.cols))
	for i, c := range s.cols {
		names[i] = in.Names[c]
		kinds[i] = in.Types[c]
	}
	s.schema = batch.NewSchema(names, kinds)
	s.built = true
}

func (s *Select) Process(in *batch.Batch) (*batch.Batch, error) {
	s.ensure(in.Schema)
	out := newBatch(s.schema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	for r := 0; r < in.RowCount; r++ {
		for dst, src := range s.cols {
			if in.IsNull(r, src) {
				out.SetNull(r, dst)
				continue
			}
			out.SetValue(r, dst, in.GetValue(r, src))
		}
	}
	return out, nil
}

func (s *Select) Flush() (*batch.Batch, error) { return nil, nil }

// Drop projects out the complement of a named set of columns.
type Drop struct {
	exclude map[string]bool
	inner   *Select
}

func NewDrop(columns []string) *Drop {
	excl := make(map[string]bool, len(columns))
	for _, c := range columns {
		excl[c] = true
	}
	return &Drop{exclude: excl}
}

func (d *Drop) Process(in *batch.Batch) (*batch.Batch, error) {
	if d.inner == nil {
		d.inner = NewSelect(complementColumns(in.Schema, keysOf(d.exclude)))
	}
	return d.inner.Process(in)
}

func (d *Drop) Flush() (*batch.Batch, error) { return nil, nil }

func keysOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Rename maps input column names to output names wherever mapping has an
// entry, passing every other column through unchanged.
type Rename struct {
	mapping map[string]string
}

func NewRename(mapping map[string]string) *Rename { return &Rename{mapping: mapping} }

func (rn *Rename) Process(in *batch.Batch) (*batch.Batch, error) {
	outSchema := renameSchema(in.Schema, rn.mapping)
	out := newBatch(outSchema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	copyAll(out, in)
	return out, nil
}

func (rn *Rename) Flush() (*batch.Batch, error) { return nil, nil }

func copyAll(dst, src *batch.Batch) {
	for r := 0; r < src.RowCount; r++ {
		copyPrefix(dst, r, src, r, src.Schema.Len())
	}
}
