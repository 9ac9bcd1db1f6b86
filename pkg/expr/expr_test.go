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

package expr

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/zeebo/assert"

	"github.com/tabflow/tabflow/pkg/batch"
)

func testBatch(t *testing.T) *batch.Batch {
	t.Helper()
	pool := memory.NewGoAllocator()
	b := batch.Create(pool, 4096, 3, 4)
	b.SetSchema(0, "name", batch.String)
	b.SetSchema(1, "age", batch.Int64)
	b.SetSchema(2, "score", batch.Float64)
	b.RowCount = 2
	b.SetString(0, 0, "alice")
	b.SetInt64(0, 1, 30)
	b.SetFloat64(0, 2, 9.5)
	b.SetString(1, 0, "bob")
	b.SetNull(1, 1)
	b.SetFloat64(1, 2, 1.25)
	return b
}

func evalStr(t *testing.T, b *batch.Batch, row int, src string) batch.Value {
	t.Helper()
	n, err := Parse(src)
	assert.NoError(t, err)
	ev := NewEvaluator()
	v, err := ev.EvalOnBatch(n, b, row)
	assert.NoError(t, err)
	return v
}

func TestParsePrecedence(t *testing.T) {
	n, err := Parse("1 + 2 * 3")
	assert.NoError(t, err)
	assert.Equal(t, Add, n.Kind)
	assert.Equal(t, Mul, n.Children[1].Kind)
}

func TestParseColumnReference(t *testing.T) {
	n, err := Parse(`col(age) > 10`)
	assert.NoError(t, err)
	assert.Equal(t, Cmp, n.Kind)
	assert.Equal(t, Column, n.Children[0].Kind)
	assert.Equal(t, "age", n.Children[0].StringVal)
}

func TestParseAndOrNotPrecedence(t *testing.T) {
	n, err := Parse("not a() and b() or c()")
	assert.NoError(t, err)
	assert.Equal(t, Or, n.Kind)
	assert.Equal(t, And, n.Children[0].Kind)
	assert.Equal(t, Not, n.Children[0].Children[0].Kind)
}

func TestEvalColumnAndComparison(t *testing.T) {
	b := testBatch(t)
	v := evalStr(t, b, 0, "col(age) >= 18")
	assert.Equal(t, batch.Bool, v.Kind)
	assert.True(t, v.Bool())
}

func TestEvalArithmeticPromotion(t *testing.T) {
	b := testBatch(t)
	v := evalStr(t, b, 0, "col(age) + col(score)")
	assert.Equal(t, batch.Float64, v.Kind)
	assert.Equal(t, 39.5, v.Float64())
}

func TestEvalDivisionByZeroYieldsNull(t *testing.T) {
	b := testBatch(t)
	v := evalStr(t, b, 0, "col(age) / 0")
	assert.True(t, v.IsNull())
}

func TestEvalDivisionAlwaysFloat(t *testing.T) {
	b := testBatch(t)
	v := evalStr(t, b, 0, "4 / 2")
	assert.Equal(t, batch.Float64, v.Kind)
	assert.Equal(t, 2.0, v.Float64())
}

func TestEvalNullPropagatesThroughArithmetic(t *testing.T) {
	b := testBatch(t)
	v := evalStr(t, b, 1, "col(age) + 1")
	assert.True(t, v.IsNull())
}

func TestEvalAndShortCircuits(t *testing.T) {
	b := testBatch(t)
	// age is null on row 1; "and" must short-circuit on the left operand
	// alone without touching the right side, so false wins outright.
	v := evalStr(t, b, 1, "1 == 2 and nonexistent_fn()")
	assert.Equal(t, batch.Bool, v.Kind)
	assert.False(t, v.Bool())
}

func TestEvalOrShortCircuits(t *testing.T) {
	b := testBatch(t)
	v := evalStr(t, b, 0, "1 == 1 or nonexistent_fn()")
	assert.True(t, v.Bool())
}

func TestEvalStringFunctions(t *testing.T) {
	b := testBatch(t)
	assert.Equal(t, "ALICE", evalStr(t, b, 0, `upper(col(name))`).Str())
	assert.Equal(t, int64(5), evalStr(t, b, 0, `len(col(name))`).Int64())
	assert.True(t, evalStr(t, b, 0, `starts_with(col(name), "al")`).Bool())
	assert.Equal(t, "ali", evalStr(t, b, 0, `slice(col(name), 0, 3)`).Str())
	assert.Equal(t, "ce", evalStr(t, b, 0, `right(col(name), 2)`).Str())
}

func TestEvalAliasTable(t *testing.T) {
	b := testBatch(t)
	assert.Equal(t, evalStr(t, b, 0, `slice(col(name), 0, 3)`).Str(), evalStr(t, b, 0, `substr(col(name), 0, 3)`).Str())
	assert.Equal(t, evalStr(t, b, 0, `len(col(name))`).Int64(), evalStr(t, b, 0, `length(col(name))`).Int64())
}

func TestEvalConditionalFunctions(t *testing.T) {
	b := testBatch(t)
	v := evalStr(t, b, 1, "coalesce(col(age), 0)")
	assert.Equal(t, int64(0), v.Int64())

	v2 := evalStr(t, b, 0, `if(col(age) > 18, "adult", "minor")`)
	assert.Equal(t, "adult", v2.Str())

	v3 := evalStr(t, b, 0, "nullif(col(age), 30)")
	assert.True(t, v3.IsNull())
}

func TestEvalMathFunctions(t *testing.T) {
	b := testBatch(t)
	assert.Equal(t, -9.5, evalStr(t, b, 0, "abs(-9.5) * -1").Float64())
	assert.Equal(t, int64(1), evalStr(t, b, 0, "sign(col(score))").Int64())
	assert.Equal(t, 8.0, evalStr(t, b, 0, "pow(2, 3)").Float64())
	assert.Equal(t, int64(1), evalStr(t, b, 0, "min(5, 1, 3)").Int64())
	assert.Equal(t, int64(5), evalStr(t, b, 0, "max(5, 1, 3)").Int64())
}

func TestEvalDateArithmetic(t *testing.T) {
	days, ok := batch.ParseDate("2024-01-10")
	assert.True(t, ok)
	n, err := Parse("col(d) - 5")
	assert.NoError(t, err)
	ev := NewEvaluator()
	row := directRow{batch.NewSchema([]string{"d"}, []batch.Kind{batch.Date}), []batch.Value{batch.DateValue(days)}}
	v, err := ev.Eval(n, row, 0)
	assert.NoError(t, err)
	assert.Equal(t, "2024-01-05", batch.FormatDate(v.Days()))
}

// directRow is a minimal Row for tests that don't need a full *batch.Batch.
type directRow struct {
	schema batch.Schema
	values []batch.Value
}

func (r directRow) Schema() batch.Schema              { return r.schema }
func (r directRow) GetValue(row, col int) batch.Value { return r.values[col] }
