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
		Name: "diff",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
			{Name: "k", Kind: registry.ArgInt, Required: false, Default: int64(1)},
			{Name: "as", Kind: registry.ArgString, Required: false},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			out := args.String("as", args.String("column", "")+"_diff")
			return appendSchema(in, []string{out}, []batch.Kind{batch.Float64})
		},
		New: func(args registry.Args) (any, error) {
			out := args.String("as", args.String("column", "")+"_diff")
			return NewDiff(args.String("column", ""), int(args.Int("k", 1)), out), nil
		},
	})
	registry.Register(registry.Entry{
		Name: "ewma",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
			{Name: "alpha", Kind: registry.ArgFloat, Required: true},
			{Name: "as", Kind: registry.ArgString, Required: false},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			out := args.String("as", args.String("column", "")+"_ewma")
			return appendSchema(in, []string{out}, []batch.Kind{batch.Float64})
		},
		New: func(args registry.Args) (any, error) {
			out := args.String("as", args.String("column", "")+"_ewma")
			return NewEWMA(args.String("column", ""), args.Float("alpha", 0.5), out), nil
		},
	})
}

func binomial(k, j int) float64 {
	result := 1.0
	for i := 0; i < j; i++ {
		result = result * float64(k-i) / float64(i+1)
	}
	return result
}

// Diff computes the k-th order backward difference of one column:
// sum_{j=0..k} (-1)^j * C(k,j) * x[n-j], null for the first k rows.
type Diff struct {
	colName  string
	col      int
	resolved bool
	k        int
	outName  string
	coeffs   []float64
	history  []float64 // last k+1 values, most recent last
}

func NewDiff(column string, k int, outName string) *Diff {
	coeffs := make([]float64, k+1)
	for j := 0; j <= k; j++ {
		sign := 1.0
		if j%2 == 1 {
			sign = -1.0
		}
		coeffs[j] = sign * binomial(k, j)
	}
	return &Diff{colName: column, k: k, outName: outName, coeffs: coeffs}
}

func (d *Diff) ensure(schema batch.Schema) {
	if d.resolved {
		return
	}
	d.col = schema.IndexOf(d.colName)
	d.resolved = true
}

func (d *Diff) Process(in *batch.Batch) (*batch.Batch, error) {
	d.ensure(in.Schema)
	outSchema := appendSchema(in.Schema, []string{d.outName}, []batch.Kind{batch.Float64})
	out := newBatch(outSchema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	base := in.Schema.Len()
	for r := 0; r < in.RowCount; r++ {
		copyPrefix(out, r, in, r, base)
		if d.col < 0 || in.IsNull(r, d.col) {
			out.SetNull(r, base)
			continue
		}
		f, _ := in.GetValue(r, d.col).AsFloat64()
		d.history = append(d.history, f)
		if len(d.history) > d.k+1 {
			d.history = d.history[1:]
		}
		if len(d.history) < d.k+1 {
			out.SetNull(r, base)
			continue
		}
		sum := 0.0
		// history[len-1] is x_n, history[len-1-j] is x_{n-j}.
		last := len(d.history) - 1
		for j, c := range d.coeffs {
			sum += c * d.history[last-j]
		}
		out.SetFloat64(r, base, sum)
	}
	return out, nil
}

func (d *Diff) Flush() (*batch.Batch, error) { return nil, nil }

// EWMA computes an exponentially weighted moving average with smoothing
// factor alpha: s[0] = x[0], s[n] = alpha*x[n] + (1-alpha)*s[n-1].
type EWMA struct {
	colName  string
	col      int
	resolved bool
	alpha    float64
	outName  string
	have     bool
	prev     float64
}

func NewEWMA(column string, alpha float64, outName string) *EWMA {
	return &EWMA{colName: column, alpha: alpha, outName: outName}
}

func (e *EWMA) ensure(schema batch.Schema) {
	if e.resolved {
		return
	}
	e.col = schema.IndexOf(e.colName)
	e.resolved = true
}

func (e *EWMA) Process(in *batch.Batch) (*batch.Batch, error) {
	e.ensure(in.Schema)
	outSchema := appendSchema(in.Schema, []string{e.outName}, []batch.Kind{batch.Float64})
	out := newBatch(outSchema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	base := in.Schema.Len()
	for r := 0; r < in.RowCount; r++ {
		copyPrefix(out, r, in, r, base)
		if e.col < 0 || in.IsNull(r, e.col) {
			out.SetNull(r, base)
			continue
		}
		f, _ := in.GetValue(r, e.col).AsFloat64()
		if !e.have {
			e.prev = f
			e.have = true
		} else {
			e.prev = e.alpha*f + (1-e.alpha)*e.prev
		}
		out.SetFloat64(r, base, e.prev)
	}
	return out, nil
}

func (e *EWMA) Flush() (*batch.Batch, error) { return nil, nil }
