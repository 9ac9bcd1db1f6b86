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
	"math"
	"strings"

	"github.com/tabflow/tabflow/pkg/batch"
)

// funcAlias maps a handful of spelling variants onto their canonical
// implementation name.
var funcAlias = map[string]string{
	"substr": "slice",
	"length": "len",
	"lpad":   "pad_left",
	"rpad":   "pad_right",
	"least":  "min",
	"greatest": "max",
}

func canonicalFuncName(name string) string {
	if alias, ok := funcAlias[name]; ok {
		return alias
	}
	return name
}

// evalCall dispatches a Call node to its implementation. Conditional
// functions (if, coalesce, nullif) control which arguments get evaluated
// and so are handled before the generic eager-evaluate-all-args path.
func (e *Evaluator) evalCall(node *Node, r Row, rowIdx int) (batch.Value, error) {
	name := canonicalFuncName(node.StringVal)

	switch name {
	case "if":
		if len(node.Children) != 3 {
			return batch.Value{}, fmt.Errorf("expr: if() takes 3 arguments")
		}
		cond, err := e.eval(node.Children[0], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		if cond.Truthy() {
			return e.eval(node.Children[1], r, rowIdx)
		}
		return e.eval(node.Children[2], r, rowIdx)
	case "coalesce":
		for _, c := range node.Children {
			v, err := e.eval(c, r, rowIdx)
			if err != nil {
				return batch.Value{}, err
			}
			if !v.IsNull() {
				return v, nil
			}
		}
		return batch.NullValue(), nil
	case "nullif":
		if len(node.Children) != 2 {
			return batch.Value{}, fmt.Errorf("expr: nullif() takes 2 arguments")
		}
		a, err := e.eval(node.Children[0], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		b, err := e.eval(node.Children[1], r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		if batch.Equal(a, b) {
			return batch.NullValue(), nil
		}
		return a, nil
	}

	args := make([]batch.Value, len(node.Children))
	for i, c := range node.Children {
		v, err := e.eval(c, r, rowIdx)
		if err != nil {
			return batch.Value{}, err
		}
		args[i] = v
	}
	return e.callBuiltin(name, args)
}

func (e *Evaluator) callBuiltin(name string, args []batch.Value) (batch.Value, error) {
	switch name {
	// --- string functions ---
	case "upper":
		return e.str1(args, strings.ToUpper)
	case "lower":
		return e.str1(args, strings.ToLower)
	case "trim":
		return e.str1(args, strings.TrimSpace)
	case "initcap":
		return e.str1(args, initcap)
	case "len":
		if err := arity(name, args, 1); err != nil {
			return batch.Value{}, err
		}
		if args[0].IsNull() {
			return batch.NullValue(), nil
		}
		return batch.Int64Value(int64(len([]rune(args[0].Str())))), nil
	case "starts_with":
		return e.strPred2(args, strings.HasPrefix)
	case "ends_with":
		return e.strPred2(args, strings.HasSuffix)
	case "contains":
		return e.strPred2(args, strings.Contains)
	case "left":
		if err := arity(name, args, 2); err != nil {
			return batch.Value{}, err
		}
		if anyNull(args) {
			return batch.NullValue(), nil
		}
		s := []rune(args[0].Str())
		n := int(args[1].Int64())
		if n < 0 {
			n = 0
		}
		if n > len(s) {
			n = len(s)
		}
		return e.scratchString(string(s[:n])), nil
	case "right":
		if err := arity(name, args, 2); err != nil {
			return batch.Value{}, err
		}
		if anyNull(args) {
			return batch.NullValue(), nil
		}
		s := []rune(args[0].Str())
		n := int(args[1].Int64())
		if n < 0 {
			n = 0
		}
		if n > len(s) {
			n = len(s)
		}
		return e.scratchString(string(s[len(s)-n:])), nil
	case "slice":
		return e.sliceFunc(args)
	case "concat":
		if anyNull(args) {
			return batch.NullValue(), nil
		}
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(a.String())
		}
		return e.scratchString(sb.String()), nil
	case "pad_left":
		return e.padFunc(args, true)
	case "pad_right":
		return e.padFunc(args, false)
	case "replace":
		if err := arity(name, args, 3); err != nil {
			return batch.Value{}, err
		}
		if anyNull(args) {
			return batch.NullValue(), nil
		}
		return e.scratchString(strings.ReplaceAll(args[0].Str(), args[1].Str(), args[2].Str())), nil

	// --- math functions ---
	case "abs":
		return e.mathFunc1(args, math.Abs)
	case "round":
		return e.mathFunc1(args, math.Round)
	case "floor":
		return e.mathFunc1(args, math.Floor)
	case "ceil":
		return e.mathFunc1(args, math.Ceil)
	case "sqrt":
		return e.mathFunc1(args, math.Sqrt)
	case "log":
		return e.mathFunc1(args, math.Log)
	case "exp":
		return e.mathFunc1(args, math.Exp)
	case "sign":
		if err := arity(name, args, 1); err != nil {
			return batch.Value{}, err
		}
		if args[0].IsNull() {
			return batch.NullValue(), nil
		}
		f, ok := args[0].AsFloat64()
		if !ok {
			return batch.Value{}, fmt.Errorf("expr: sign() expects a numeric argument")
		}
		switch {
		case f > 0:
			return batch.Int64Value(1), nil
		case f < 0:
			return batch.Int64Value(-1), nil
		default:
			return batch.Int64Value(0), nil
		}
	case "pow":
		return e.mathFunc2(args, math.Pow)
	case "mod":
		return e.mathFunc2(args, math.Mod)
	case "min":
		return e.minMax(args, true)
	case "max":
		return e.minMax(args, false)
	default:
		return batch.Value{}, fmt.Errorf("expr: unknown function %q", name)
	}
}

func arity(name string, args []batch.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("expr: %s() takes %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func anyNull(args []batch.Value) bool {
	for _, a := range args {
		if a.IsNull() {
			return true
		}
	}
	return false
}

// scratchString copies s into the evaluator's per-frame scratch arena and
// returns a StringValue backed by that copy.
func (e *Evaluator) scratchString(s string) batch.Value {
	return batch.StringValue(e.scratch.AllocString(s))
}

func (e *Evaluator) str1(args []batch.Value, f func(string) string) (batch.Value, error) {
	if err := arity("", args, 1); err != nil {
		return batch.Value{}, fmt.Errorf("expr: function takes 1 argument")
	}
	if args[0].IsNull() {
		return batch.NullValue(), nil
	}
	return e.scratchString(f(args[0].Str())), nil
}

func (e *Evaluator) strPred2(args []batch.Value, f func(s, substr string) bool) (batch.Value, error) {
	if len(args) != 2 {
		return batch.Value{}, fmt.Errorf("expr: function takes 2 arguments")
	}
	if anyNull(args) {
		return batch.NullValue(), nil
	}
	return batch.BoolValue(f(args[0].Str(), args[1].Str())), nil
}

func (e *Evaluator) sliceFunc(args []batch.Value) (batch.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return batch.Value{}, fmt.Errorf("expr: slice() takes 2 or 3 arguments")
	}
	if anyNull(args) {
		return batch.NullValue(), nil
	}
	s := []rune(args[0].Str())
	start := int(args[1].Int64())
	if start < 0 {
		start += len(s)
	}
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		start = len(s)
	}
	end := len(s)
	if len(args) == 3 {
		n := int(args[2].Int64())
		end = start + n
		if end > len(s) {
			end = len(s)
		}
		if end < start {
			end = start
		}
	}
	return e.scratchString(string(s[start:end])), nil
}

func (e *Evaluator) padFunc(args []batch.Value, left bool) (batch.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return batch.Value{}, fmt.Errorf("expr: pad function takes 2 or 3 arguments")
	}
	if anyNull(args) {
		return batch.NullValue(), nil
	}
	s := args[0].Str()
	width := int(args[1].Int64())
	padChar := " "
	if len(args) == 3 {
		padChar = args[2].Str()
	}
	if padChar == "" {
		padChar = " "
	}
	n := []rune(s)
	if len(n) >= width {
		return e.scratchString(s), nil
	}
	var sb strings.Builder
	fill := strings.Repeat(padChar, width-len(n))
	if len([]rune(fill)) > width-len(n) {
		fill = string([]rune(fill)[:width-len(n)])
	}
	if left {
		sb.WriteString(fill)
		sb.WriteString(s)
	} else {
		sb.WriteString(s)
		sb.WriteString(fill)
	}
	return e.scratchString(sb.String()), nil
}

func initcap(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		r := []rune(f)
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

func (e *Evaluator) mathFunc1(args []batch.Value, f func(float64) float64) (batch.Value, error) {
	if len(args) != 1 {
		return batch.Value{}, fmt.Errorf("expr: function takes 1 argument")
	}
	if args[0].IsNull() {
		return batch.NullValue(), nil
	}
	v, ok := args[0].AsFloat64()
	if !ok {
		return batch.Value{}, fmt.Errorf("expr: function expects a numeric argument")
	}
	return batch.Float64Value(f(v)), nil
}

func (e *Evaluator) mathFunc2(args []batch.Value, f func(a, b float64) float64) (batch.Value, error) {
	if len(args) != 2 {
		return batch.Value{}, fmt.Errorf("expr: function takes 2 arguments")
	}
	if anyNull(args) {
		return batch.NullValue(), nil
	}
	a, aok := args[0].AsFloat64()
	b, bok := args[1].AsFloat64()
	if !aok || !bok {
		return batch.Value{}, fmt.Errorf("expr: function expects numeric arguments")
	}
	return batch.Float64Value(f(a, b)), nil
}

func (e *Evaluator) minMax(args []batch.Value, wantMin bool) (batch.Value, error) {
	if len(args) < 1 {
		return batch.Value{}, fmt.Errorf("expr: min/max require at least 1 argument")
	}
	best := args[0]
	for _, a := range args[1:] {
		if best.IsNull() || a.IsNull() {
			if a.IsNull() && best.IsNull() {
				continue
			}
			if a.IsNull() {
				continue
			}
			best = a
			continue
		}
		cmp, ok := batch.Compare(a, best)
		if !ok {
			continue
		}
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = a
		}
	}
	return best, nil
}
