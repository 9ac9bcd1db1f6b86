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

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/expr"
	"github.com/tabflow/tabflow/pkg/registry"
)

func init() {
	registry.Register(registry.Entry{
		Name: "filter",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "expr", Kind: registry.ArgExpr, Required: true},
		},
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New: func(args registry.Args) (any, error) { return NewFilter(args.String("expr", "")) },
	})
	registry.Register(registry.Entry{
		Name: "validate",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "expr", Kind: registry.ArgExpr, Required: true},
		},
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema {
			return appendSchema(in, []string{"_valid"}, []batch.Kind{batch.Bool})
		},
		New: func(args registry.Args) (any, error) { return NewValidate(args.String("expr", "")) },
	})
}

// Filter evaluates its expression per row, copying rows for which the
// expression is truthy. A row whose expression errors counts as "not
// truthy" rather than aborting the batch.
type Filter struct {
	node *expr.Node
	ev   *expr.Evaluator
}

func NewFilter(src string) (*Filter, error) {
	n, err := expr.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return &Filter{node: n, ev: expr.NewEvaluator()}, nil
}

func (f *Filter) Process(in *batch.Batch) (*batch.Batch, error) {
	out := newBatch(in.Schema, in.RowCount)
	dst := 0
	for r := 0; r < in.RowCount; r++ {
		v, err := f.ev.EvalOnBatch(f.node, in, r)
		if err != nil || !v.Truthy() {
			continue
		}
		out.EnsureCapacity(dst + 1)
		out.CopyRow(dst, in, r)
		dst++
	}
	if dst == 0 {
		out.Release()
		return nil, nil
	}
	out.RowCount = dst
	return out, nil
}

func (f *Filter) Flush() (*batch.Batch, error) { return nil, nil }

// Validate passes every row through unchanged, appending a `_valid`
// column recording whether the expression was truthy for that row.
type Validate struct {
	node *expr.Node
	ev   *expr.Evaluator
}

func NewValidate(src string) (*Validate, error) {
	n, err := expr.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return &Validate{node: n, ev: expr.NewEvaluator()}, nil
}

func (v *Validate) Process(in *batch.Batch) (*batch.Batch, error) {
	outSchema := appendSchema(in.Schema, []string{"_valid"}, []batch.Kind{batch.Bool})
	out := newBatch(outSchema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	validCol := in.Schema.Len()
	for r := 0; r < in.RowCount; r++ {
		copyPrefix(out, r, in, r, validCol)
		val, err := v.ev.EvalOnBatch(v.node, in, r)
		out.SetBool(r, validCol, err == nil && val.Truthy())
	}
	return out, nil
}

func (v *Validate) Flush() (*batch.Batch, error) { return nil, nil }
