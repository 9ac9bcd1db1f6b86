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
		Name: "window",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "column", Kind: registry.ArgString, Required: true},
			{Name: "size", Kind: registry.ArgInt, Required: true},
			{Name: "func", Kind: registry.ArgString, Required: true},
			{Name: "as", Kind: registry.ArgString, Required: false},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			out := args.String("as", args.String("column", "")+"_window")
			return appendSchema(in, []string{out}, []batch.Kind{batch.Float64})
		},
		New: func(args registry.Args) (any, error) {
			out := args.String("as", args.String("column", "")+"_window")
			return NewWindow(args.String("column", ""), int(args.Int("size", 1)), args.String("func", "avg"), out), nil
		},
	})
}

// Window computes a fixed-size sliding-window aggregate of one column:
// avg/sum/min/max/count maintained over a circular buffer. A null source
// row passes through with a null window result and does not advance the
// buffer (spec.md §4.6's pinned choice for window-vs-null).
type Window struct {
	colName  string
	col      int
	resolved bool
	size     int
	fn       string
	outName  string

	buf   []float64
	count int
	pos   int
	sum   float64
}

func NewWindow(column string, size int, fn, outName string) *Window {
	return &Window{colName: column, size: size, fn: fn, outName: outName, buf: make([]float64, size)}
}

func (w *Window) ensure(schema batch.Schema) {
	if w.resolved {
		return
	}
	w.col = schema.IndexOf(w.colName)
	w.resolved = true
}

func (w *Window) push(v float64) {
	if w.count == w.size {
		w.sum -= w.buf[w.pos]
	} else {
		w.count++
	}
	w.buf[w.pos] = v
	w.sum += v
	w.pos = (w.pos + 1) % w.size
}

func (w *Window) aggregate() float64 {
	switch w.fn {
	case "sum":
		return w.sum
	case "count":
		return float64(w.count)
	case "min":
		m := w.buf[0]
		for i := 1; i < w.count; i++ {
			if w.buf[i] < m {
				m = w.buf[i]
			}
		}
		return m
	case "max":
		m := w.buf[0]
		for i := 1; i < w.count; i++ {
			if w.buf[i] > m {
				m = w.buf[i]
			}
		}
		return m
	default: // avg
		if w.count == 0 {
			return 0
		}
		return w.sum / float64(w.count)
	}
}

func (w *Window) Process(in *batch.Batch) (*batch.Batch, error) {
	w.ensure(in.Schema)
	outSchema := appendSchema(in.Schema, []string{w.outName}, []batch.Kind{batch.Float64})
	out := newBatch(outSchema, in.RowCount)
	out.RowCount = in.RowCount
	out.EnsureCapacity(in.RowCount)
	base := in.Schema.Len()
	for r := 0; r < in.RowCount; r++ {
		copyPrefix(out, r, in, r, base)
		if w.col < 0 || in.IsNull(r, w.col) {
			out.SetNull(r, base)
			continue
		}
		f, _ := in.GetValue(r, w.col).AsFloat64()
		w.push(f)
		out.SetFloat64(r, base, w.aggregate())
	}
	return out, nil
}

func (w *Window) Flush() (*batch.Batch, error) { return nil, nil }
