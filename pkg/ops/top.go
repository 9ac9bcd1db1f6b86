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

func init() {
	registry.Register(registry.Entry{
		Name: "top",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "n", Kind: registry.ArgInt, Required: true},
			{Name: "column", Kind: registry.ArgString, Required: true},
			{Name: "desc", Kind: registry.ArgBool, Required: false, Default: true},
		},
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New: func(args registry.Args) (any, error) {
			return NewTop(int(args.Int("n", 0)), args.String("column", ""), args.Bool("desc", true)), nil
		},
	})
}

// Top maintains at most N rows ordered by one column (spec: "replaces the
// current extreme when a better candidate arrives"); it holds the retained
// set in an unsorted slice, scans it for the worst kept row whenever a
// candidate arrives after N rows are held, and sorts it once on Flush.
type Top struct {
	n        int
	desc     bool
	colName  string
	col      int
	resolved bool
	kept     []rowSlot
}

func NewTop(n int, column string, desc bool) *Top {
	return &Top{n: n, colName: column, desc: desc}
}

func (t *Top) ensure(schema batch.Schema) {
	if t.resolved {
		return
	}
	t.col = schema.IndexOf(t.colName)
	t.resolved = true
}

func (t *Top) better(a, b rowSlot) bool {
	cmp, ok := batch.Compare(a.b.GetValue(a.row, t.col), b.b.GetValue(b.row, t.col))
	if !ok {
		return false
	}
	if t.desc {
		return cmp > 0
	}
	return cmp < 0
}

func (t *Top) Process(in *batch.Batch) (*batch.Batch, error) {
	t.ensure(in.Schema)
	if t.col < 0 || t.n <= 0 {
		return nil, nil
	}
	for r := 0; r < in.RowCount; r++ {
		if in.IsNull(r, t.col) {
			continue
		}
		cand := rowSlot{in, r}
		if len(t.kept) < t.n {
			t.kept = append(t.kept, cand)
			continue
		}
		worstIdx := 0
		for i := 1; i < len(t.kept); i++ {
			if t.better(t.kept[worstIdx], t.kept[i]) {
				worstIdx = i
			}
		}
		if t.better(cand, t.kept[worstIdx]) {
			t.kept[worstIdx] = cand
		}
	}
	return nil, nil
}

func (t *Top) Flush() (*batch.Batch, error) {
	if len(t.kept) == 0 {
		return nil, nil
	}
	sort.SliceStable(t.kept, func(i, j int) bool { return t.better(t.kept[i], t.kept[j]) })
	schema := t.kept[0].b.Schema
	out := newBatch(schema, len(t.kept))
	out.EnsureCapacity(len(t.kept))
	for i, slot := range t.kept {
		out.CopyRow(i, slot.b, slot.row)
	}
	out.RowCount = len(t.kept)
	return out, nil
}
