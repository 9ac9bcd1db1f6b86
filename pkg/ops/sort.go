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
	"sort"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/registry"
)

// SortKey names one column of a sort's key list, with its direction.
type SortKey struct {
	Name string
	Desc bool
}

func init() {
	registry.Register(registry.Entry{
		Name: "sort",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "columns", Kind: registry.ArgColumns, Required: true},
		},
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New: func(args registry.Args) (any, error) { return NewSort(parseSortKeys(args)), nil },
	})
}

func parseSortKeys(args registry.Args) []SortKey {
	raw, _ := args.Raw("columns")
	items, _ := raw.([]map[string]any)
	keys := make([]SortKey, 0, len(items))
	for _, it := range items {
		name, _ := it["name"].(string)
		desc, _ := it["desc"].(bool)
		keys = append(keys, SortKey{Name: name, Desc: desc})
	}
	return keys
}

// Sort buffers every row across the stream, then emits a single batch on
// Flush ordered by its key list using Go's stable sort (spec: "sort a |
// sort a" equals "sort a").
type Sort struct {
	keys     []SortKey
	cols     []int
	resolved bool
	rows     []*batch.Batch
}

func NewSort(keys []SortKey) *Sort { return &Sort{keys: keys} }

func (s *Sort) ensure(schema batch.Schema) {
	if s.resolved {
		return
	}
	names := make([]string, len(s.keys))
	for i, k := range s.keys {
		names[i] = k.Name
	}
	s.cols = resolveColumns(schema, names)
	s.resolved = true
}

func (s *Sort) Process(in *batch.Batch) (*batch.Batch, error) {
	s.ensure(in.Schema)
	s.rows = append(s.rows, in)
	return nil, nil
}

func (s *Sort) Flush() (*batch.Batch, error) {
	total := 0
	for _, b := range s.rows {
		total += b.RowCount
	}
	if total == 0 {
		return nil, nil
	}
	type ref struct {
		b   *batch.Batch
		row int
	}
	refs := make([]ref, 0, total)
	for _, b := range s.rows {
		for r := 0; r < b.RowCount; r++ {
			refs = append(refs, ref{b, r})
		}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		for ki, col := range s.cols {
			desc := s.keys[ki].Desc
			cmp, ok := batch.Compare(refs[i].b.GetValue(refs[i].row, col), refs[j].b.GetValue(refs[j].row, col))
			if !ok || cmp == 0 {
				continue
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	schema := s.rows[0].Schema
	out := newBatch(schema, total)
	out.EnsureCapacity(total)
	for i, r := range refs {
		out.CopyRow(i, r.b, r.row)
	}
	out.RowCount = total
	return out, nil
}
