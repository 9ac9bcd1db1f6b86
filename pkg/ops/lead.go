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
		Name: "lead",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
			{Name: "n", Kind: registry.ArgInt, Required: true},
			{Name: "as", Kind: registry.ArgString, Required: false},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			out := args.String("as", args.String("column", "")+"_lead")
			col := args.String("column", "")
			kind := batch.Float64
			if idx := in.IndexOf(col); idx >= 0 {
				kind = in.Types[idx]
			}
			return appendSchema(in, []string{out}, []batch.Kind{kind})
		},
		New: func(args registry.Args) (any, error) {
			out := args.String("as", args.String("column", "")+"_lead")
			return NewLead(args.String("column", ""), int(args.Int("n", 1)), out), nil
		},
	})
}

// Lead looks N rows ahead: the row at stream index i emits once the row at
// i+n arrives, carrying that later row's value for the named column. Rows
// still waiting at Flush emit with a null lookahead.
type Lead struct {
	colName  string
	col      int
	resolved bool
	n        int
	outName  string
	schema   batch.Schema

	pending []rowSlot // source rows awaiting their lookahead, oldest first
}

func NewLead(column string, n int, outName string) *Lead {
	return &Lead{colName: column, n: n, outName: outName}
}

func (l *Lead) ensure(schema batch.Schema) {
	if l.resolved {
		return
	}
	l.col = schema.IndexOf(l.colName)
	kind := batch.Float64
	if l.col >= 0 {
		kind = schema.Types[l.col]
	}
	l.schema = appendSchema(schema, []string{l.outName}, []batch.Kind{kind})
	l.resolved = true
}

func (l *Lead) emitRow(out *batch.Batch, dst int, source rowSlot, lookahead *rowSlot) {
	base := source.b.Schema.Len()
	copyPrefix(out, dst, source.b, source.row, base)
	if lookahead == nil || l.col < 0 || lookahead.b.IsNull(lookahead.row, l.col) {
		out.SetNull(dst, base)
		return
	}
	out.SetValue(dst, base, lookahead.b.GetValue(lookahead.row, l.col))
}

func (l *Lead) Process(in *batch.Batch) (*batch.Batch, error) {
	l.ensure(in.Schema)
	type readyPair struct {
		source, lookahead rowSlot
	}
	var ready []readyPair
	for r := 0; r < in.RowCount; r++ {
		l.pending = append(l.pending, rowSlot{in, r})
		if len(l.pending) > l.n {
			ready = append(ready, readyPair{l.pending[0], l.pending[len(l.pending)-1]})
			l.pending = l.pending[1:]
		}
	}
	if len(ready) == 0 {
		return nil, nil
	}
	out := newBatch(l.schema, len(ready))
	out.EnsureCapacity(len(ready))
	for i, p := range ready {
		la := p.lookahead
		l.emitRow(out, i, p.source, &la)
	}
	out.RowCount = len(ready)
	return out, nil
}

func (l *Lead) Flush() (*batch.Batch, error) {
	if len(l.pending) == 0 {
		return nil, nil
	}
	out := newBatch(l.schema, len(l.pending))
	out.EnsureCapacity(len(l.pending))
	for i, src := range l.pending {
		l.emitRow(out, i, src, nil)
	}
	out.RowCount = len(l.pending)
	return out, nil
}
