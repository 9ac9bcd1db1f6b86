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
		Name: "interpolate",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
			{Name: "method", Kind: registry.ArgString, Required: false, Default: "forward"},
		},
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New: func(args registry.Args) (any, error) {
			return NewInterpolate(args.String("column", ""), args.String("method", "forward")), nil
		},
	})
}

// Interpolate fills nulls in one numeric column. Forward mode repeats the
// last seen non-null value. Backward and linear modes buffer runs of
// consecutive null rows until the next non-null ("right anchor") arrives:
// backward repeats the right anchor across the run, linear interpolates
// last_val + (i+1)/(n+1)*(right-last_val) for the i-th buffered row.
type Interpolate struct {
	colName  string
	col      int
	resolved bool
	method   string

	lastVal   float64
	haveLast  bool
	buffered  []rowSlot // a run of consecutive null rows awaiting a right anchor
}

func NewInterpolate(column, method string) *Interpolate {
	return &Interpolate{colName: column, method: method}
}

func (ip *Interpolate) ensure(schema batch.Schema) {
	if ip.resolved {
		return
	}
	ip.col = schema.IndexOf(ip.colName)
	ip.resolved = true
}

func (ip *Interpolate) Process(in *batch.Batch) (*batch.Batch, error) {
	ip.ensure(in.Schema)
	if ip.col < 0 {
		return in, nil
	}
	if ip.method == "forward" {
		return ip.processForward(in)
	}
	return ip.processAnchored(in)
}

func (ip *Interpolate) processForward(in *batch.Batch) (*batch.Batch, error) {
	out := newBatch(in.Schema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	n := in.Schema.Len()
	for r := 0; r < in.RowCount; r++ {
		copyPrefix(out, r, in, r, n)
		if in.IsNull(r, ip.col) {
			if ip.haveLast {
				out.SetFloat64(r, ip.col, ip.lastVal)
			} else {
				out.SetNull(r, ip.col)
			}
			continue
		}
		f, _ := in.GetValue(r, ip.col).AsFloat64()
		ip.lastVal = f
		ip.haveLast = true
	}
	return out, nil
}

// processAnchored implements both backward and linear modes: rows flow
// straight through until a null run begins; the run buffers until either
// a non-null row (the right anchor) closes it, or the stream ends and
// Flush closes it with no anchor.
func (ip *Interpolate) processAnchored(in *batch.Batch) (*batch.Batch, error) {
	out := newBatch(in.Schema, 0)
	n := in.Schema.Len()
	emitted := 0
	emit := func(src rowSlot, val batch.Value, isNull bool) {
		out.EnsureCapacity(emitted + 1)
		copyPrefix(out, emitted, src.b, src.row, n)
		if isNull {
			out.SetNull(emitted, ip.col)
		} else {
			out.SetValue(emitted, ip.col, val)
		}
		emitted++
	}
	for r := 0; r < in.RowCount; r++ {
		slot := rowSlot{in, r}
		if in.IsNull(r, ip.col) {
			ip.buffered = append(ip.buffered, slot)
			continue
		}
		f, _ := in.GetValue(r, ip.col).AsFloat64()
		ip.resolveRun(f, emit)
		emit(slot, in.GetValue(r, ip.col), false)
		ip.lastVal = f
		ip.haveLast = true
	}
	if emitted == 0 {
		out.Release()
		return nil, nil
	}
	out.RowCount = emitted
	return out, nil
}

// resolveRun closes a buffered null run against the newly arrived right
// anchor value, emitting each buffered row via emit.
func (ip *Interpolate) resolveRun(right float64, emit func(rowSlot, batch.Value, bool)) {
	n := len(ip.buffered)
	if n == 0 {
		return
	}
	for i, slot := range ip.buffered {
		switch {
		case ip.method == "linear" && ip.haveLast:
			v := ip.lastVal + float64(i+1)/float64(n+1)*(right-ip.lastVal)
			emit(slot, batch.Float64Value(v), false)
		case ip.method == "backward":
			emit(slot, batch.Float64Value(right), false)
		default:
			emit(slot, batch.NullValue(), true)
		}
	}
	ip.buffered = nil
}

func (ip *Interpolate) Flush() (*batch.Batch, error) {
	if len(ip.buffered) == 0 {
		return nil, nil
	}
	schema := ip.buffered[0].b.Schema
	out := newBatch(schema, len(ip.buffered))
	out.EnsureCapacity(len(ip.buffered))
	n := schema.Len()
	for i, slot := range ip.buffered {
		copyPrefix(out, i, slot.b, slot.row, n)
		if ip.haveLast {
			out.SetFloat64(i, ip.col, ip.lastVal)
		} else {
			out.SetNull(i, ip.col)
		}
	}
	out.RowCount = len(ip.buffered)
	ip.buffered = nil
	return out, nil
}
