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
		Name: "step",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
			{Name: "func", Kind: registry.ArgString, Required: true},
			{Name: "as", Kind: registry.ArgString, Required: false},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			out := args.String("as", args.String("column", "")+"_"+args.String("func", "step"))
			return appendSchema(in, []string{out}, []batch.Kind{batch.Float64})
		},
		New: func(args registry.Args) (any, error) {
			out := args.String("as", args.String("column", "")+"_"+args.String("func", "step"))
			return NewStep(args.String("column", ""), args.String("func", "running-sum"), out), nil
		},
	})
}

// StepAgg maintains a running aggregation of one column across the entire
// stream in constant memory: running-sum/avg/min/max/count, delta (this
// minus previous), lag (previous value), ratio (this / previous).
type StepAgg struct {
	colName  string
	col      int
	resolved bool
	fn       string
	outName  string

	sum     float64
	count   int64
	min     float64
	max     float64
	prev    float64
	havePrev bool
}

func NewStep(column, fn, outName string) *StepAgg {
	return &StepAgg{colName: column, fn: fn, outName: outName}
}

func (s *StepAgg) ensure(schema batch.Schema) {
	if s.resolved {
		return
	}
	s.col = schema.IndexOf(s.colName)
	s.resolved = true
}

func (s *StepAgg) update(v float64) float64 {
	s.count++
	s.sum += v
	if s.count == 1 || v < s.min {
		s.min = v
	}
	if s.count == 1 || v > s.max {
		s.max = v
	}
	var result float64
	switch s.fn {
	case "running-sum":
		result = s.sum
	case "running-avg":
		result = s.sum / float64(s.count)
	case "running-min":
		result = s.min
	case "running-max":
		result = s.max
	case "running-count":
		result = float64(s.count)
	case "delta":
		if s.havePrev {
			result = v - s.prev
		}
	case "lag":
		if s.havePrev {
			result = s.prev
		}
	case "ratio":
		if s.havePrev && s.prev != 0 {
			result = v / s.prev
		}
	}
	s.prev = v
	s.havePrev = true
	return result
}

func (s *StepAgg) Process(in *batch.Batch) (*batch.Batch, error) {
	s.ensure(in.Schema)
	outSchema := appendSchema(in.Schema, []string{s.outName}, []batch.Kind{batch.Float64})
	out := newBatch(outSchema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	base := in.Schema.Len()
	for r := 0; r < in.RowCount; r++ {
		copyPrefix(out, r, in, r, base)
		if s.col < 0 || in.IsNull(r, s.col) {
			out.SetNull(r, base)
			continue
		}
		f, _ := in.GetValue(r, s.col).AsFloat64()
		needPrev := s.fn == "delta" || s.fn == "lag" || s.fn == "ratio"
		hadPrev := s.havePrev
		result := s.update(f)
		if needPrev && !hadPrev {
			out.SetNull(r, base)
			continue
		}
		out.SetFloat64(r, base, result)
	}
	return out, nil
}

func (s *StepAgg) Flush() (*batch.Batch, error) { return nil, nil }
