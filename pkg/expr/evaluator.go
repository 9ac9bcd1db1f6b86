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
	"fmt"

	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/tabflow/tabflow/pkg/arena"
	"github.com/tabflow/tabflow/pkg/batch"
)

// Evaluator evaluates an expression tree against one row of a batch at a
// time. String-producing functions write into a small per-evaluator
// scratch arena that is reset at the start of every top-level Eval call;
// a consumer that needs a result to outlive one row's evaluation (e.g. the
// derive operator writing into its output batch) must copy it out before
// calling Eval again — batch.Batch.SetString always does this, so callers
// that route results through SetValue/SetString get this for free.
//
// This is a deliberate redesign from the reference engine, which returns
// pointers into a process-wide fixed-size buffer ring: here the scratch is
// owned per Evaluator instance, so two Evaluators (e.g. one per pipeline
// when a host runs several concurrently) never alias each other's memory.
type Evaluator struct {
	scratch *arena.Arena
}

// NewEvaluator creates an Evaluator with its own scratch arena.
func NewEvaluator() *Evaluator {
	return &Evaluator{scratch: arena.New(memory.NewGoAllocator(), 4096)}
}

// Row is the minimal batch access the evaluator needs: a column lookup and
// a cell read, satisfied directly by *batch.Batch.
type Row interface {
	Schema() batch.Schema
	GetValue(row, col int) batch.Value
}

// batchRow adapts *batch.Batch to Row.
type batchRow struct{ b *batch.Batch }

func (r batchRow) Schema() batch.Schema             { return r.b.Schema }
func (r batchRow) GetValue(row, col int) batch.Value { return r.b.GetValue(row, col) }

// EvalOnBatch evaluates node against row `rowIdx` of b.
func (e *Evaluator) EvalOnBatch(node *Node, b *batch.Batch, rowIdx int) (batch.Value, error) {
	return e.Eval(node, batchRow{b}, rowIdx)
}

// Eval evaluates node against the given row of r, resetting the scratch
// arena first (one Eval call is one evaluation frame).
func (e *Evaluator) Eval(node *Node, r Row, rowIdx int) (batch.Value, error) {
	e.scratch.Reset()
	return e.eval(node, r, rowIdx)
}

func (e *Evaluator) eval(node *Node, r Row, rowIdx int) (batch.Value, error) {
	switch node.Kind {
	case LitInt:
		return batch.Int64Value(node.IntVal), nil
	case LitFloat:
		return batch.Float64Value(node.FloatVal), nil
	case LitString:
		return batch.StringValue(node.StringVal), nil
	case Column:
		idx := r.Schema().IndexOf(node.StringVal)
		if idx < 0 {
			return batch.Value{}, fmt.Errorf("expr: unknown column %q", node.StringVal)
		}
		return r.GetValue(rowIdx, idx), nil
	case Neg:
		v, err := e.eval(node.Children[0], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		return negate(v)
	case Not:
		v, err := e.eval(node.Children[0], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		return batch.BoolValue(!v.Truthy()), nil
	case And:
		left, err := e.eval(node.Children[0], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		if !left.Truthy() {
			return batch.BoolValue(false), nil
		}
		right, err := e.eval(node.Children[1], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		return batch.BoolValue(right.Truthy()), nil
	case Or:
		left, err := e.eval(node.Children[0], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		if left.Truthy() {
			return batch.BoolValue(true), nil
		}
		right, err := e.eval(node.Children[1], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		return batch.BoolValue(right.Truthy()), nil
	case Cmp:
		return e.evalCmp(node, r, rowIdx)
	case Add, Sub, Mul, Div:
		left, err := e.eval(node.Children[0], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		right, err := e.eval(node.Children[1], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		return arith(node.Kind, left, right)
	case Call:
		return e.evalCall(node, r, rowIdx)
	default:
		return batch.Value{}, fmt.Errorf("expr: unhandled node kind %d", node.Kind)
	}
}

func negate(v batch.Value) (batch.Value, error) {
	switch v.Kind {
	case batch.Null:
		return batch.NullValue(), nil
	case batch.Int64:
		return batch.Int64Value(-v.Int64()), nil
	case batch.Float64:
		return batch.Float64Value(-v.Float64()), nil
	default:
		return batch.Value{}, fmt.Errorf("expr: cannot negate %s", v.Kind)
	}
}

func (e *Evaluator) evalCmp(node *Node, r Row, rowIdx int) (batch.Value, error) {
	left, err := e.eval(node.Children[0], r, rowIdx)
	if err != nil {
		return batch.Value{}, err
	}
	right, err := e.eval(node.Children[1], r, rowIdx)
	if err != nil {
		return batch.Value{}, err
	}

	switch node.CmpOp {
	case Eq:
		return batch.BoolValue(batch.Equal(left, right)), nil
	case Ne:
		return batch.BoolValue(!batch.Equal(left, right)), nil
	default:
		cmp, ok := batch.Compare(left, right)
		if !ok {
			// "any ordering against null is false"
			return batch.BoolValue(false), nil
		}
		switch node.CmpOp {
		case Lt:
			return batch.BoolValue(cmp < 0), nil
		case Le:
			return batch.BoolValue(cmp <= 0), nil
		case Gt:
			return batch.BoolValue(cmp > 0), nil
		case Ge:
			return batch.BoolValue(cmp >= 0), nil
		default:
			return batch.Value{}, fmt.Errorf("expr: unknown comparison operator")
		}
	}
}

// arith implements the numeric-promotion and date-arithmetic rules of
// spec.md §4.2. Overflow is not checked: integer arithmetic wraps the way
// Go's native int64 arithmetic wraps, a documented divergence from a
// saturating alternative.
func arith(kind NodeKind, a, b batch.Value) (batch.Value, error) {
	if a.Kind == batch.Null || b.Kind == batch.Null {
		if kind == Div {
			return batch.NullValue(), nil
		}
		return batch.NullValue(), nil
	}

	// Date/timestamp arithmetic.
	if a.Kind == batch.Date && b.Kind == batch.Date {
		if kind == Sub {
			return batch.Int64Value(int64(a.Days()) - int64(b.Days())), nil
		}
		return batch.Value{}, fmt.Errorf("expr: unsupported date %s date operation", opName(kind))
	}
	if a.Kind == batch.Timestamp && b.Kind == batch.Timestamp {
		if kind == Sub {
			return batch.Int64Value(a.Micros() - b.Micros()), nil
		}
		return batch.Value{}, fmt.Errorf("expr: unsupported timestamp %s timestamp operation", opName(kind))
	}
	if a.Kind == batch.Date && isIntLike(b) {
		if kind == Add {
			return batch.DateValue(a.Days() + int32(intOf(b))), nil
		}
		if kind == Sub {
			return batch.DateValue(a.Days() - int32(intOf(b))), nil
		}
	}
	if a.Kind == batch.Timestamp && isIntLike(b) {
		if kind == Add {
			return batch.TimestampValue(a.Micros() + intOf(b)), nil
		}
		if kind == Sub {
			return batch.TimestampValue(a.Micros() - intOf(b)), nil
		}
	}

	// Division always yields float; division by zero yields null.
	if kind == Div {
		af, aok := a.AsFloat64()
		bf, bok := b.AsFloat64()
		if !aok || !bok {
			return batch.Value{}, fmt.Errorf("expr: cannot divide %s by %s", a.Kind, b.Kind)
		}
		if bf == 0 {
			return batch.NullValue(), nil
		}
		return batch.Float64Value(af / bf), nil
	}

	if a.Kind == batch.Int64 && b.Kind == batch.Int64 {
		switch kind {
		case Add:
			return batch.Int64Value(a.Int64() + b.Int64()), nil
		case Sub:
			return batch.Int64Value(a.Int64() - b.Int64()), nil
		case Mul:
			return batch.Int64Value(a.Int64() * b.Int64()), nil
		}
	}

	af, aok := a.AsFloat64()
	bf, bok := b.AsFloat64()
	if !aok || !bok {
		return batch.Value{}, fmt.Errorf("expr: cannot apply %s to %s and %s", opName(kind), a.Kind, b.Kind)
	}
	switch kind {
	case Add:
		return batch.Float64Value(af + bf), nil
	case Sub:
		return batch.Float64Value(af - bf), nil
	case Mul:
		return batch.Float64Value(af * bf), nil
	default:
		return batch.Value{}, fmt.Errorf("expr: unknown arithmetic operator")
	}
}

func isIntLike(v batch.Value) bool { return v.Kind == batch.Int64 }
func intOf(v batch.Value) int64    { return v.Int64() }

func opName(kind NodeKind) string {
	switch kind {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	default:
		return "?"
	}
}
