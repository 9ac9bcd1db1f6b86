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
	"github.com/tabflow/tabflow/pkg/stats"
)

var defaultStatNames = []string{"count", "sum", "avg", "min", "max", "var", "stddev", "median"}

const reservoirSampleSize = 10
const statsRNGSeed = 0x5CA1AB1E

func init() {
	registry.Register(registry.Entry{
		Name: "stats",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "columns", Kind: registry.ArgStringList, Required: false},
			{Name: "statistics", Kind: registry.ArgStringList, Required: false},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			want := args.StringList("statistics")
			if len(want) == 0 {
				want = defaultStatNames
			}
			names := append([]string{"column"}, want...)
			kinds := make([]batch.Kind, len(names))
			kinds[0] = batch.String
			for i := 1; i < len(kinds); i++ {
				kinds[i] = batch.Float64
			}
			return batch.NewSchema(names, kinds)
		},
		New: func(args registry.Args) (any, error) {
			want := args.StringList("statistics")
			if len(want) == 0 {
				want = defaultStatNames
			}
			return NewStats(args.StringList("columns"), want), nil
		},
	})
}

// columnStats is the composite per-column accumulator: Welford moments,
// three P² quantile estimators (p25/median/p75), a distinct-count sketch,
// an adaptive histogram, and a reservoir sample.
type columnStats struct {
	welford  *stats.Welford
	p25      *stats.P2
	p50      *stats.P2
	p75      *stats.P2
	distinct *stats.Distinct
	hist     *stats.Histogram
	sample   *stats.Reservoir
}

func newColumnStats() *columnStats {
	return &columnStats{
		welford:  stats.NewWelford(),
		p25:      stats.NewP2(0.25),
		p50:      stats.NewP2(0.5),
		p75:      stats.NewP2(0.75),
		distinct: stats.NewDistinct(),
		hist:     stats.NewHistogram(),
		sample:   stats.NewReservoir(reservoirSampleSize, statsRNGSeed),
	}
}

func (c *columnStats) add(v batch.Value) {
	f, ok := v.AsFloat64()
	if ok {
		c.welford.Add(f)
		c.p25.Add(f)
		c.p50.Add(f)
		c.p75.Add(f)
		c.hist.Add(f)
		c.sample.Add(f)
	}
	c.distinct.Add(v.String())
}

func (c *columnStats) value(name string) float64 {
	switch name {
	case "count":
		return float64(c.welford.Count)
	case "sum":
		return c.welford.Mean * float64(c.welford.Count)
	case "avg", "mean":
		return c.welford.Mean
	case "min":
		return c.welford.Min
	case "max":
		return c.welford.Max
	case "var", "variance":
		return c.welford.Variance()
	case "stddev":
		return c.welford.Stddev()
	case "skewness":
		return c.welford.Skewness()
	case "kurtosis":
		return c.welford.Kurtosis()
	case "p25":
		return c.p25.Value()
	case "median", "p50":
		return c.p50.Value()
	case "p75":
		return c.p75.Value()
	case "distinct":
		return float64(c.distinct.Estimate())
	}
	return 0
}

// Stats computes streaming per-column statistics, emitting one result row
// per input column on Flush with one value column per requested statistic.
type Stats struct {
	columns  []string
	cols     []int
	resolved bool
	want     []string
	accum    []*columnStats
	names    []string
}

func NewStats(columns, want []string) *Stats {
	return &Stats{columns: columns, want: want}
}

func (s *Stats) ensure(schema batch.Schema) {
	if s.resolved {
		return
	}
	if len(s.columns) == 0 {
		s.cols = make([]int, schema.Len())
		s.names = append([]string(nil), schema.Names...)
		for i := range s.cols {
			s.cols[i] = i
		}
	} else {
		s.cols = resolveColumns(schema, s.columns)
		s.names = s.columns
	}
	s.accum = make([]*columnStats, len(s.cols))
	for i := range s.accum {
		s.accum[i] = newColumnStats()
	}
	s.resolved = true
}

func (s *Stats) Process(in *batch.Batch) (*batch.Batch, error) {
	s.ensure(in.Schema)
	for r := 0; r < in.RowCount; r++ {
		for i, c := range s.cols {
			if in.IsNull(r, c) {
				continue
			}
			s.accum[i].add(in.GetValue(r, c))
		}
	}
	return nil, nil
}

func (s *Stats) Flush() (*batch.Batch, error) {
	if len(s.accum) == 0 {
		return nil, nil
	}
	names := append([]string{"column"}, s.want...)
	kinds := make([]batch.Kind, len(names))
	kinds[0] = batch.String
	for i := 1; i < len(kinds); i++ {
		kinds[i] = batch.Float64
	}
	schema := batch.NewSchema(names, kinds)
	out := newBatch(schema, len(s.accum))
	out.EnsureCapacity(len(s.accum))
	for r, acc := range s.accum {
		out.SetString(r, 0, s.names[r])
		for i, stat := range s.want {
			out.SetFloat64(r, i+1, acc.value(stat))
		}
	}
	out.RowCount = len(s.accum)
	return out, nil
}
