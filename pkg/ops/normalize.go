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
	"math"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/registry"
	"github.com/tabflow/tabflow/pkg/stats"
)

func init() {
	registry.Register(registry.Entry{
		Name: "normalize",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "columns", Kind: registry.ArgStringList, Required: true},
			{Name: "method", Kind: registry.ArgString, Required: false, Default: "zscore"},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			return widenToFloat(in, args.StringList("columns"))
		},
		New: func(args registry.Args) (any, error) {
			return NewNormalize(args.StringList("columns"), args.String("method", "zscore")), nil
		},
	})
}

// Normalize buffers every row across the stream, accumulates per-column
// Welford stats (mean, variance, min, max), then on Flush rewrites each
// target column as either minmax ((x-min)/(max-min)) or zscore
// ((x-mean)/stddev), mapping a degenerate range (max==min, or stddev==0)
// to zero.
type Normalize struct {
	columns  []string
	cols     []int
	resolved bool
	method   string
	welford  []*stats.Welford
	rows     []*batch.Batch
}

func NewNormalize(columns []string, method string) *Normalize {
	return &Normalize{columns: columns, method: method}
}

func (n *Normalize) ensure(schema batch.Schema) {
	if n.resolved {
		return
	}
	n.cols = resolveColumns(schema, n.columns)
	n.welford = make([]*stats.Welford, len(n.cols))
	for i := range n.welford {
		n.welford[i] = stats.NewWelford()
	}
	n.resolved = true
}

// widenToFloat returns a copy of in with every named column retyped to
// Float64 (normalize always emits floats for its targets, regardless of
// the source column's original numeric type).
func widenToFloat(in batch.Schema, columns []string) batch.Schema {
	target := make(map[string]bool, len(columns))
	for _, c := range columns {
		target[c] = true
	}
	kinds := append([]batch.Kind(nil), in.Types...)
	for i, name := range in.Names {
		if target[name] {
			kinds[i] = batch.Float64
		}
	}
	return batch.NewSchema(append([]string(nil), in.Names...), kinds)
}

func (n *Normalize) Process(in *batch.Batch) (*batch.Batch, error) {
	n.ensure(in.Schema)
	for r := 0; r < in.RowCount; r++ {
		for i, c := range n.cols {
			if in.IsNull(r, c) {
				continue
			}
			f, ok := in.GetValue(r, c).AsFloat64()
			if ok {
				n.welford[i].Add(f)
			}
		}
	}
	n.rows = append(n.rows, in)
	return nil, nil
}

func (n *Normalize) normalized(i int, f float64) float64 {
	w := n.welford[i]
	if n.method == "minmax" {
		span := w.Max - w.Min
		if span == 0 {
			return 0
		}
		return (f - w.Min) / span
	}
	sd := w.Stddev()
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return (f - w.Mean) / sd
}

func (n *Normalize) Flush() (*batch.Batch, error) {
	total := 0
	for _, b := range n.rows {
		total += b.RowCount
	}
	if total == 0 {
		return nil, nil
	}
	outSchema := widenToFloat(n.rows[0].Schema, n.columns)
	out := newBatch(outSchema, total)
	out.EnsureCapacity(total)
	nc := outSchema.Len()
	target := make(map[int]bool, len(n.cols))
	for _, c := range n.cols {
		target[c] = true
	}
	dst := 0
	for _, b := range n.rows {
		for r := 0; r < b.RowCount; r++ {
			for c := 0; c < nc; c++ {
				if target[c] || b.IsNull(r, c) {
					continue
				}
				out.SetValue(dst, c, b.GetValue(r, c))
			}
			for i, c := range n.cols {
				if b.IsNull(r, c) {
					out.SetNull(dst, c)
					continue
				}
				f, ok := b.GetValue(r, c).AsFloat64()
				if !ok {
					out.SetNull(dst, c)
					continue
				}
				out.SetFloat64(dst, c, n.normalized(i, f))
			}
			dst++
		}
	}
	out.RowCount = total
	return out, nil
}
