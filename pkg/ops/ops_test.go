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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tabflow/tabflow/pkg/batch"
)

// floatBatch builds a single-column Float64 batch, with a true entry in
// null marking a null row (a nil null slice means no nulls).
func floatBatch(t *testing.T, col string, vals []float64, null []bool) *batch.Batch {
	t.Helper()
	schema := batch.NewSchema([]string{col}, []batch.Kind{batch.Float64})
	b := newBatch(schema, len(vals))
	b.EnsureCapacity(len(vals))
	for i, v := range vals {
		if null != nil && null[i] {
			b.SetNull(i, 0)
			continue
		}
		b.SetFloat64(i, 0, v)
	}
	b.RowCount = len(vals)
	return b
}

func TestWindowAverageAndNullPassthrough(t *testing.T) {
	w := NewWindow("x", 3, "avg", "x_window")
	b := floatBatch(t, "x", []float64{1, 2, 0, 3}, []bool{false, false, true, false})
	out, err := w.Process(b)
	require.NoError(t, err)
	require.Equal(t, 4, out.RowCount)
	require.Equal(t, 1.0, out.GetFloat64(0, 1))
	require.Equal(t, 1.5, out.GetFloat64(1, 1))
	require.True(t, out.IsNull(2, 1), "null source row must emit a null window result")
	// window not advanced across the null row, so row 3 sees avg(1,2,3)
	require.InDelta(t, 2.0, out.GetFloat64(3, 1), 1e-9)
}

func TestWindowSizeOneIsIdentity(t *testing.T) {
	w := NewWindow("x", 1, "sum", "out")
	b := floatBatch(t, "x", []float64{5, 7}, nil)
	out, err := w.Process(b)
	require.NoError(t, err)
	require.Equal(t, 5.0, out.GetFloat64(0, 1))
	require.Equal(t, 7.0, out.GetFloat64(1, 1))
}

func TestStepDeltaLagRatioFirstRowNull(t *testing.T) {
	for _, fn := range []string{"delta", "lag", "ratio"} {
		s := NewStep("x", fn, "out")
		b := floatBatch(t, "x", []float64{10, 20}, nil)
		out, err := s.Process(b)
		require.NoError(t, err)
		require.True(t, out.IsNull(0, 1), "fn=%s: first row has no previous value", fn)
		require.False(t, out.IsNull(1, 1), "fn=%s", fn)
	}
}

func TestStepRunningAggregations(t *testing.T) {
	s := NewStep("x", "running-sum", "out")
	b := floatBatch(t, "x", []float64{1, 2, 3}, nil)
	out, err := s.Process(b)
	require.NoError(t, err)
	require.Equal(t, 1.0, out.GetFloat64(0, 1))
	require.Equal(t, 3.0, out.GetFloat64(1, 1))
	require.Equal(t, 6.0, out.GetFloat64(2, 1))
}

func TestStepRatioDivideByZeroYieldsZero(t *testing.T) {
	s := NewStep("x", "ratio", "out")
	b := floatBatch(t, "x", []float64{0, 5}, nil)
	out, err := s.Process(b)
	require.NoError(t, err)
	require.True(t, out.IsNull(0, 1))
	require.Equal(t, 0.0, out.GetFloat64(1, 1), "ratio against a zero previous value yields the zero-value result")
}

func TestInterpolateForward(t *testing.T) {
	ip := NewInterpolate("x", "forward")
	b := floatBatch(t, "x", []float64{1, 0, 0, 4}, []bool{false, true, true, false})
	out, err := ip.Process(b)
	require.NoError(t, err)
	require.Equal(t, 1.0, out.GetFloat64(1, 0))
	require.Equal(t, 1.0, out.GetFloat64(2, 0))
	require.Equal(t, 4.0, out.GetFloat64(3, 0))
}

func TestInterpolateForwardLeadingNullStaysNull(t *testing.T) {
	ip := NewInterpolate("x", "forward")
	b := floatBatch(t, "x", []float64{0, 2}, []bool{true, false})
	out, err := ip.Process(b)
	require.NoError(t, err)
	require.True(t, out.IsNull(0, 0))
}

func TestInterpolateLinear(t *testing.T) {
	ip := NewInterpolate("x", "linear")
	b := floatBatch(t, "x", []float64{0, 0, 0, 4}, []bool{true, true, true, false})
	// no left anchor: run resolves via the nil/haveLast=false branch, null.
	out, err := ip.Process(b)
	require.NoError(t, err)
	require.True(t, out.IsNull(0, 0))
	require.True(t, out.IsNull(1, 0))

	ip2 := NewInterpolate("x", "linear")
	b2 := floatBatch(t, "x", []float64{0, 1, 0, 0, 4}, []bool{false, false, true, true, false})
	out2, err := ip2.Process(b2)
	require.NoError(t, err)
	require.InDelta(t, 2.0, out2.GetFloat64(2, 0), 1e-9)
	require.InDelta(t, 3.0, out2.GetFloat64(3, 0), 1e-9)
}

func TestInterpolateBackward(t *testing.T) {
	ip := NewInterpolate("x", "backward")
	b := floatBatch(t, "x", []float64{1, 0, 0, 4}, []bool{false, true, true, false})
	out, err := ip.Process(b)
	require.NoError(t, err)
	require.Equal(t, 4.0, out.GetFloat64(1, 0))
	require.Equal(t, 4.0, out.GetFloat64(2, 0))
}

func TestInterpolateFlushWithNoAnchorUsesLastKnownOrNull(t *testing.T) {
	ip := NewInterpolate("x", "backward")
	b := floatBatch(t, "x", []float64{5, 0, 0}, []bool{false, true, true})
	_, err := ip.Process(b)
	require.NoError(t, err)
	out, err := ip.Flush()
	require.NoError(t, err)
	require.Equal(t, 2, out.RowCount)
	require.Equal(t, 5.0, out.GetFloat64(0, 0))
	require.Equal(t, 5.0, out.GetFloat64(1, 0))
}

func TestInterpolateFlushWithNoPriorValueIsNull(t *testing.T) {
	ip := NewInterpolate("x", "backward")
	b := floatBatch(t, "x", []float64{0, 0}, []bool{true, true})
	_, err := ip.Process(b)
	require.NoError(t, err)
	out, err := ip.Flush()
	require.NoError(t, err)
	require.True(t, out.IsNull(0, 0))
	require.True(t, out.IsNull(1, 0))
}

func TestDiffFirstKRowsNull(t *testing.T) {
	d := NewDiff("x", 2, "out")
	b := floatBatch(t, "x", []float64{1, 2, 3, 4}, nil)
	out, err := d.Process(b)
	require.NoError(t, err)
	require.True(t, out.IsNull(0, 1))
	require.True(t, out.IsNull(1, 1))
	require.False(t, out.IsNull(2, 1))
}

func TestGroupAggSumAndCount(t *testing.T) {
	schema := batch.NewSchema([]string{"g", "v"}, []batch.Kind{batch.String, batch.Float64})
	b := newBatch(schema, 4)
	b.EnsureCapacity(4)
	rows := []struct {
		g string
		v float64
	}{{"a", 1}, {"a", 3}, {"b", 10}, {"a", 2}}
	for i, r := range rows {
		b.SetString(i, 0, r.g)
		b.SetFloat64(i, 1, r.v)
	}
	b.RowCount = len(rows)

	ga := NewGroupAgg([]string{"g"}, []Agg{{Column: "v", Func: "sum", OutName: "sum_v"}, {Column: "v", Func: "count", OutName: "count_v"}})
	_, err := ga.Process(b)
	require.NoError(t, err)
	out, err := ga.Flush()
	require.NoError(t, err)
	require.Equal(t, 2, out.RowCount)

	idx := map[string]int{}
	for r := 0; r < out.RowCount; r++ {
		idx[out.GetString(r, 0)] = r
	}
	require.Equal(t, 6.0, out.GetFloat64(idx["a"], out.Schema.IndexOf("sum_v")))
	require.Equal(t, 3.0, out.GetFloat64(idx["a"], out.Schema.IndexOf("count_v")))
	require.Equal(t, 10.0, out.GetFloat64(idx["b"], out.Schema.IndexOf("sum_v")))
}

func TestSortIsStableAndIdempotent(t *testing.T) {
	schema := batch.NewSchema([]string{"a"}, []batch.Kind{batch.Int64})
	vals := []int64{3, 1, 2, 1}
	b := newBatch(schema, len(vals))
	b.EnsureCapacity(len(vals))
	for i, v := range vals {
		b.SetInt64(i, 0, v)
	}
	b.RowCount = len(vals)

	s := NewSort([]SortKey{{Name: "a", Desc: false}})
	_, err := s.Process(b)
	require.NoError(t, err)
	once, err := s.Flush()
	require.NoError(t, err)
	got := make([]int64, once.RowCount)
	for i := range got {
		got[i] = once.GetInt64(i, 0)
	}
	require.Equal(t, []int64{1, 1, 2, 3}, got)

	s2 := NewSort([]SortKey{{Name: "a", Desc: false}})
	_, err = s2.Process(once)
	require.NoError(t, err)
	twice, err := s2.Flush()
	require.NoError(t, err)
	got2 := make([]int64, twice.RowCount)
	for i := range got2 {
		got2[i] = twice.GetInt64(i, 0)
	}
	require.Equal(t, got, got2, "sort a | sort a must equal sort a")
}

func TestUniqueKeepFirstAndLast(t *testing.T) {
	schema := batch.NewSchema([]string{"k", "v"}, []batch.Kind{batch.String, batch.Int64})
	mk := func(pairs [][2]any) *batch.Batch {
		b := newBatch(schema, len(pairs))
		b.EnsureCapacity(len(pairs))
		for i, p := range pairs {
			b.SetString(i, 0, p[0].(string))
			b.SetInt64(i, 1, int64(p[1].(int)))
		}
		b.RowCount = len(pairs)
		return b
	}

	first := NewUnique([]string{"k"}, "first")
	out, err := first.Process(mk([][2]any{{"a", 1}, {"a", 2}, {"b", 3}}))
	require.NoError(t, err)
	require.Equal(t, 2, out.RowCount)
	require.Equal(t, int64(1), out.GetInt64(0, 1))

	last := NewUnique([]string{"k"}, "last")
	_, err = last.Process(mk([][2]any{{"a", 1}, {"a", 2}, {"b", 3}}))
	require.NoError(t, err)
	flushed, err := last.Flush()
	require.NoError(t, err)
	idx := map[string]int64{}
	for r := 0; r < flushed.RowCount; r++ {
		idx[flushed.GetString(r, 0)] = flushed.GetInt64(r, 1)
	}
	require.Equal(t, int64(2), idx["a"])
}

func TestStatsComposite(t *testing.T) {
	b := floatBatch(t, "x", []float64{1, 2, 3, 4, 5}, nil)
	s := NewStats(nil, []string{"count", "sum", "avg", "min", "max"})
	_, err := s.Process(b)
	require.NoError(t, err)
	out, err := s.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, out.RowCount)
	require.Equal(t, 5.0, out.GetFloat64(0, out.Schema.IndexOf("count")))
	require.Equal(t, 15.0, out.GetFloat64(0, out.Schema.IndexOf("sum")))
	require.Equal(t, 3.0, out.GetFloat64(0, out.Schema.IndexOf("avg")))
	require.Equal(t, 1.0, out.GetFloat64(0, out.Schema.IndexOf("min")))
	require.Equal(t, 5.0, out.GetFloat64(0, out.Schema.IndexOf("max")))
}

func TestJoinInnerAndLeft(t *testing.T) {
	dir := t.TempDir()
	lookupPath := filepath.Join(dir, "lookup.csv")
	require.NoError(t, os.WriteFile(lookupPath, []byte("id,name\n1,alice\n2,bob\n"), 0o644))

	left := batch.NewSchema([]string{"id"}, []batch.Kind{batch.Int64})
	mk := func(ids []int64) *batch.Batch {
		b := newBatch(left, len(ids))
		b.EnsureCapacity(len(ids))
		for i, id := range ids {
			b.SetInt64(i, 0, id)
		}
		b.RowCount = len(ids)
		return b
	}

	inner, err := NewJoin(lookupPath, "id", "id", "inner")
	require.NoError(t, err)
	out, err := inner.Process(mk([]int64{1, 3, 2}))
	require.NoError(t, err)
	require.Equal(t, 2, out.RowCount, "unmatched row (id=3) is dropped by an inner join")

	leftJoin, err := NewJoin(lookupPath, "id", "id", "left")
	require.NoError(t, err)
	out2, err := leftJoin.Process(mk([]int64{1, 3, 2}))
	require.NoError(t, err)
	require.Equal(t, 3, out2.RowCount, "unmatched row (id=3) survives with null lookup columns in a left join")
	require.True(t, out2.IsNull(1, out2.Schema.IndexOf("name")))
}

func TestJoinRejectsUnsupportedHow(t *testing.T) {
	_, err := NewJoin("whatever.csv", "id", "id", "right")
	require.Error(t, err, "right/full joins have no native target (spec.md §9 open question)")
}
