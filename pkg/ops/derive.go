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
	"fmt"
	"sort"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/expr"
	"github.com/tabflow/tabflow/pkg/registry"
)

// sortedKeys returns m's keys in deterministic (sorted) order, since Go map
// iteration order would otherwise make column ordering vary across runs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	registry.Register(registry.Entry{
		Name: "derive",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "columns", Kind: registry.ArgMapping, Required: true},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			cols := args.Mapping("columns")
			keys := sortedKeys(cols)
			kinds := make([]batch.Kind, len(keys))
			return appendSchema(in, keys, kinds)
		},
		New: func(args registry.Args) (any, error) { return NewDerive(args.Mapping("columns")) },
	})
}

type derivation struct {
	name     string
	node     *expr.Node
	resolved bool
	kind     batch.Kind
}

// Derive appends one or more computed columns. Each derivation's type is
// resolved lazily from the first non-null value it produces, then held
// fixed; later rows that don't fit the resolved type coerce (Int64 widens
// to Float64) or fall back to null.
type Derive struct {
	derivations []*derivation
	ev          *expr.Evaluator
}

func NewDerive(columns map[string]string) (*Derive, error) {
	d := &Derive{ev: expr.NewEvaluator()}
	for _, name := range sortedKeys(columns) {
		n, err := expr.Parse(columns[name])
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", name, err)
		}
		d.derivations = append(d.derivations, &derivation{name: name, node: n})
	}
	return d, nil
}

func (d *Derive) Process(in *batch.Batch) (*batch.Batch, error) {
	base := in.Schema.Len()
	names := make([]string, len(d.derivations))
	kinds := make([]batch.Kind, len(d.derivations))
	for i, der := range d.derivations {
		names[i] = der.name
		if der.resolved {
			kinds[i] = der.kind
		} else {
			kinds[i] = batch.Null
		}
	}

	// Resolve any still-unresolved derivation kinds from the first row
	// that produces a non-null value.
	for i, der := range d.derivations {
		if der.resolved {
			continue
		}
		for r := 0; r < in.RowCount; r++ {
			v, err := d.ev.EvalOnBatch(der.node, in, r)
			if err != nil || v.IsNull() {
				continue
			}
			der.resolved = true
			der.kind = v.Kind
			kinds[i] = v.Kind
			break
		}
	}

	outSchema := appendSchema(in.Schema, names, kinds)
	out := newBatch(outSchema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)

	for r := 0; r < in.RowCount; r++ {
		copyPrefix(out, r, in, r, base)
		for i, der := range d.derivations {
			col := base + i
			v, err := d.ev.EvalOnBatch(der.node, in, r)
			if err != nil || v.IsNull() {
				out.SetNull(r, col)
				continue
			}
			writeCoerced(out, r, col, kinds[i], v)
		}
	}
	return out, nil
}

// writeCoerced writes v into a column whose fixed kind was resolved from
// an earlier row, widening Int64->Float64 and falling back to null for
// any other mismatch.
func writeCoerced(out *batch.Batch, row, col int, kind batch.Kind, v batch.Value) {
	if v.Kind == kind {
		out.SetValue(row, col, v)
		return
	}
	if kind == batch.Float64 {
		if f, ok := v.AsFloat64(); ok {
			out.SetFloat64(row, col, f)
			return
		}
	}
	out.SetNull(row, col)
}

func (d *Derive) Flush() (*batch.Batch, error) { return nil, nil }
