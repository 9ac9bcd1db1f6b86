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

// Agg names one aggregation requested of group-agg: apply Func to Column,
// output as OutName.
type Agg struct {
	Column  string
	Func    string // sum, avg, count, min, max
	OutName string
}

type aggState struct {
	count int64
	sum   float64
	min   float64
	max   float64
	seen  bool
}

func (s *aggState) add(v float64) {
	s.count++
	s.sum += v
	if !s.seen || v < s.min {
		s.min = v
	}
	if !s.seen || v > s.max {
		s.max = v
	}
	s.seen = true
}

func (s *aggState) value(fn string) float64 {
	switch fn {
	case "sum":
		return s.sum
	case "avg":
		if s.count == 0 {
			return 0
		}
		return s.sum / float64(s.count)
	case "count":
		return float64(s.count)
	case "min":
		return s.min
	case "max":
		return s.max
	}
	return 0
}

func init() {
	registry.Register(registry.Entry{
		Name: "group-agg",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "by", Kind: registry.ArgStringList, Required: true},
			{Name: "aggregations", Kind: registry.ArgColumns, Required: true},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			by := args.StringList("by")
			aggs := parseAggs(args)
			names := append([]string(nil), by...)
			kinds := make([]batch.Kind, len(by))
			for i, n := range by {
				if idx := in.IndexOf(n); idx >= 0 {
					kinds[i] = in.Types[idx]
				}
			}
			for _, a := range aggs {
				names = append(names, a.OutName)
				kinds = append(kinds, batch.Float64)
			}
			return batch.NewSchema(names, kinds)
		},
		New: func(args registry.Args) (any, error) {
			return NewGroupAgg(args.StringList("by"), parseAggs(args)), nil
		},
	})
}

func parseAggs(args registry.Args) []Agg {
	raw, _ := args.Raw("aggregations")
	items, _ := raw.([]map[string]any)
	out := make([]Agg, 0, len(items))
	for _, it := range items {
		col, _ := it["column"].(string)
		fn, _ := it["func"].(string)
		outName, _ := it["as"].(string)
		if outName == "" {
			outName = fn + "_" + col
		}
		out = append(out, Agg{Column: col, Func: fn, OutName: outName})
	}
	return out
}

// GroupAgg buffers aggregate state per distinct group key and emits one
// row per key on Flush, in first-seen key order.
type GroupAgg struct {
	by       []string
	aggs     []Agg
	byCols   []int
	aggCols  []int
	resolved bool

	order   []string
	keyRow  map[string]rowSlot
	states  map[string][]*aggState
	schema  batch.Schema
}

func NewGroupAgg(by []string, aggs []Agg) *GroupAgg {
	return &GroupAgg{
		by: by, aggs: aggs,
		keyRow: make(map[string]rowSlot),
		states: make(map[string][]*aggState),
	}
}

func (g *GroupAgg) ensure(schema batch.Schema) {
	if g.resolved {
		return
	}
	g.byCols = resolveColumns(schema, g.by)
	g.aggCols = make([]int, len(g.aggs))
	for i, a := range g.aggs {
		g.aggCols[i] = schema.IndexOf(a.Column)
	}
	g.resolved = true
}

func (g *GroupAgg) Process(in *batch.Batch) (*batch.Batch, error) {
	g.ensure(in.Schema)
	for r := 0; r < in.RowCount; r++ {
		key := rowKey(in, r, g.byCols)
		if _, ok := g.keyRow[key]; !ok {
			g.order = append(g.order, key)
			g.keyRow[key] = rowSlot{in, r}
			states := make([]*aggState, len(g.aggs))
			for i := range states {
				states[i] = &aggState{}
			}
			g.states[key] = states
		}
		states := g.states[key]
		for i, col := range g.aggCols {
			if col < 0 || in.IsNull(r, col) {
				continue
			}
			f, _ := in.GetValue(r, col).AsFloat64()
			states[i].add(f)
		}
	}
	return nil, nil
}

func (g *GroupAgg) Flush() (*batch.Batch, error) {
	if len(g.order) == 0 {
		return nil, nil
	}
	sample := g.keyRow[g.order[0]]
	names := append([]string(nil), g.by...)
	kinds := make([]batch.Kind, 0, len(g.by)+len(g.aggs))
	for _, c := range g.byCols {
		kinds = append(kinds, sample.b.Schema.Types[c])
	}
	for _, a := range g.aggs {
		names = append(names, a.OutName)
		kinds = append(kinds, batch.Float64)
	}
	schema := batch.NewSchema(names, kinds)
	out := newBatch(schema, len(g.order))
	out.EnsureCapacity(len(g.order))
	for r, key := range g.order {
		row := g.keyRow[key]
		for i, c := range g.byCols {
			if row.b.IsNull(row.row, c) {
				out.SetNull(r, i)
				continue
			}
			out.SetValue(r, i, row.b.GetValue(row.row, c))
		}
		states := g.states[key]
		for i, a := range g.aggs {
			out.SetFloat64(r, len(g.by)+i, states[i].value(a.Func))
		}
	}
	out.RowCount = len(g.order)
	return out, nil
}

// frequency is group-agg specialized to a single `count` aggregation over
// one key column, sorted by count descending.
func init() {
	registry.Register(registry.Entry{
		Name: "frequency",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			col := args.String("column", "")
			kind := batch.String
			if idx := in.IndexOf(col); idx >= 0 {
				kind = in.Types[idx]
			}
			return batch.NewSchema([]string{"value", "count"}, []batch.Kind{kind, batch.Int64})
		},
		New: func(args registry.Args) (any, error) { return NewFrequency(args.String("column", "")), nil },
	})
}

type Frequency struct {
	column   string
	col      int
	resolved bool
	order    []string
	rowOf    map[string]rowSlot
	counts   map[string]int64
}

func NewFrequency(column string) *Frequency {
	return &Frequency{column: column, rowOf: make(map[string]rowSlot), counts: make(map[string]int64)}
}

func (f *Frequency) ensure(schema batch.Schema) {
	if f.resolved {
		return
	}
	f.col = schema.IndexOf(f.column)
	f.resolved = true
}

func (f *Frequency) Process(in *batch.Batch) (*batch.Batch, error) {
	f.ensure(in.Schema)
	if f.col < 0 {
		return nil, nil
	}
	for r := 0; r < in.RowCount; r++ {
		key := rowKey(in, r, []int{f.col})
		if _, ok := f.rowOf[key]; !ok {
			f.order = append(f.order, key)
			f.rowOf[key] = rowSlot{in, r}
		}
		f.counts[key]++
	}
	return nil, nil
}

func (f *Frequency) Flush() (*batch.Batch, error) {
	if len(f.order) == 0 {
		return nil, nil
	}
	keys := append([]string(nil), f.order...)
	sort.SliceStable(keys, func(i, j int) bool { return f.counts[keys[i]] > f.counts[keys[j]] })
	sample := f.rowOf[keys[0]]
	schema := batch.NewSchema([]string{"value", "count"}, []batch.Kind{sample.b.Schema.Types[f.col], batch.Int64})
	out := newBatch(schema, len(keys))
	out.EnsureCapacity(len(keys))
	for r, key := range keys {
		slot := f.rowOf[key]
		if slot.b.IsNull(slot.row, f.col) {
			out.SetNull(r, 0)
		} else {
			out.SetValue(r, 0, slot.b.GetValue(slot.row, f.col))
		}
		out.SetInt64(r, 1, f.counts[key])
	}
	out.RowCount = len(keys)
	return out, nil
}
