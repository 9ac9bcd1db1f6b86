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
		Name: "unpivot",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "id_columns", Kind: registry.ArgStringList, Required: true},
			{Name: "value_columns", Kind: registry.ArgStringList, Required: true},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			idCols := args.StringList("id_columns")
			names := append(append([]string(nil), idCols...), "variable", "value")
			kinds := make([]batch.Kind, len(idCols)+2)
			for i, c := range idCols {
				if idx := in.IndexOf(c); idx >= 0 {
					kinds[i] = in.Types[idx]
				}
			}
			kinds[len(idCols)] = batch.String
			kinds[len(idCols)+1] = batch.String
			return batch.NewSchema(names, kinds)
		},
		New: func(args registry.Args) (any, error) {
			return NewUnpivot(args.StringList("id_columns"), args.StringList("value_columns")), nil
		},
	})
	registry.Register(registry.Entry{
		Name: "explode",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
			{Name: "delimiter", Kind: registry.ArgString, Required: false, Default: ","},
		},
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New: func(args registry.Args) (any, error) {
			return NewExplode(args.String("column", ""), args.String("delimiter", ",")), nil
		},
	})
}

// Unpivot converts wide value columns into long form: for each input row
// it emits one output row per listed value column, carrying the id
// columns unchanged plus a `variable` (source column name) and `value`
// (the cell, stringified).
type Unpivot struct {
	idColumns    []string
	valueColumns []string
	idCols       []int
	valCols      []int
	resolved     bool
}

func NewUnpivot(idColumns, valueColumns []string) *Unpivot {
	return &Unpivot{idColumns: idColumns, valueColumns: valueColumns}
}

func (u *Unpivot) ensure(schema batch.Schema) {
	if u.resolved {
		return
	}
	u.idCols = resolveColumns(schema, u.idColumns)
	u.valCols = resolveColumns(schema, u.valueColumns)
	u.resolved = true
}

func (u *Unpivot) Process(in *batch.Batch) (*batch.Batch, error) {
	u.ensure(in.Schema)
	names := make([]string, len(u.idCols))
	kinds := make([]batch.Kind, len(u.idCols))
	for i, c := range u.idCols {
		names[i] = in.Schema.Names[c]
		kinds[i] = in.Schema.Types[c]
	}
	names = append(names, "variable", "value")
	kinds = append(kinds, batch.String, batch.String)
	outSchema := batch.NewSchema(names, kinds)

	total := in.RowCount * len(u.valCols)
	out := newBatch(outSchema, total)
	out.EnsureCapacity(total)
	dst := 0
	for r := 0; r < in.RowCount; r++ {
		for _, vc := range u.valCols {
			for i, ic := range u.idCols {
				if in.IsNull(r, ic) {
					out.SetNull(dst, i)
					continue
				}
				out.SetValue(dst, i, in.GetValue(r, ic))
			}
			out.SetString(dst, len(u.idCols), in.Schema.Names[vc])
			if in.IsNull(r, vc) {
				out.SetNull(dst, len(u.idCols)+1)
			} else {
				out.SetString(dst, len(u.idCols)+1, in.GetValue(r, vc).String())
			}
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

func (u *Unpivot) Flush() (*batch.Batch, error) { return nil, nil }
