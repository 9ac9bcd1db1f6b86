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
		Name: "onehot",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
		},
		// The distinct-value set (and so the output schema's indicator
		// columns) grows monotonically as new batches are seen; the
		// static IR schema can't predict that, so it only promises the
		// input schema unchanged plus nothing — downstream consumers must
		// tolerate the growing runtime schema per spec.md §4.6.
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New:    func(args registry.Args) (any, error) { return NewOneHot(args.String("column", "")), nil },
	})
	registry.Register(registry.Entry{
		Name: "label-encode",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
			{Name: "as", Kind: registry.ArgString, Required: false},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			out := args.String("as", args.String("column", "")+"_label")
			return appendSchema(in, []string{out}, []batch.Kind{batch.Int64})
		},
		New: func(args registry.Args) (any, error) {
			out := args.String("as", args.String("column", "")+"_label")
			return NewLabelEncode(args.String("column", ""), out), nil
		},
	})
}

// OneHot accumulates the insertion-ordered set of distinct values seen in
// one column, and for every batch emits one Int64 indicator column per
// value discovered so far.
type OneHot struct {
	colName  string
	col      int
	resolved bool
	order    []string
	index    map[string]int
}

func NewOneHot(column string) *OneHot {
	return &OneHot{colName: column, index: make(map[string]int)}
}

func (o *OneHot) ensure(schema batch.Schema) {
	if o.resolved {
		return
	}
	o.col = schema.IndexOf(o.colName)
	o.resolved = true
}

func (o *OneHot) observe(v string) int {
	if i, ok := o.index[v]; ok {
		return i
	}
	i := len(o.order)
	o.order = append(o.order, v)
	o.index[v] = i
	return i
}

func (o *OneHot) Process(in *batch.Batch) (*batch.Batch, error) {
	o.ensure(in.Schema)
	if o.col < 0 {
		return in, nil
	}
	// Discover every value in this batch first so the output schema for
	// the whole batch is known before any row is written.
	seenThisBatch := make([]int, in.RowCount)
	for r := 0; r < in.RowCount; r++ {
		if in.IsNull(r, o.col) {
			seenThisBatch[r] = -1
			continue
		}
		seenThisBatch[r] = o.observe(in.GetValue(r, o.col).String())
	}
	names := append(append([]string(nil), in.Schema.Names...), o.order...)
	kinds := append([]batch.Kind(nil), in.Schema.Types...)
	for range o.order {
		kinds = append(kinds, batch.Int64)
	}
	outSchema := batch.NewSchema(names, kinds)
	out := newBatch(outSchema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	base := in.Schema.Len()
	for r := 0; r < in.RowCount; r++ {
		copyPrefix(out, r, in, r, base)
		active := seenThisBatch[r]
		for i := range o.order {
			if i == active {
				out.SetInt64(r, base+i, 1)
			} else {
				out.SetInt64(r, base+i, 0)
			}
		}
	}
	return out, nil
}

func (o *OneHot) Flush() (*batch.Batch, error) { return nil, nil }

// LabelEncode assigns each distinct value a sequential Int64 label in
// first-seen order, memoized across batches.
type LabelEncode struct {
	colName  string
	col      int
	resolved bool
	outName  string
	index    map[string]int64
	next     int64
}

func NewLabelEncode(column, outName string) *LabelEncode {
	return &LabelEncode{colName: column, outName: outName, index: make(map[string]int64)}
}

func (l *LabelEncode) ensure(schema batch.Schema) {
	if l.resolved {
		return
	}
	l.col = schema.IndexOf(l.colName)
	l.resolved = true
}

func (l *LabelEncode) Process(in *batch.Batch) (*batch.Batch, error) {
	l.ensure(in.Schema)
	outSchema := appendSchema(in.Schema, []string{l.outName}, []batch.Kind{batch.Int64})
	out := newBatch(outSchema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	base := in.Schema.Len()
	for r := 0; r < in.RowCount; r++ {
		copyPrefix(out, r, in, r, base)
		if l.col < 0 || in.IsNull(r, l.col) {
			out.SetNull(r, base)
			continue
		}
		key := in.GetValue(r, l.col).String()
		label, ok := l.index[key]
		if !ok {
			label = l.next
			l.index[key] = label
			l.next++
		}
		out.SetInt64(r, base, label)
	}
	return out, nil
}

func (l *LabelEncode) Flush() (*batch.Batch, error) { return nil, nil }
