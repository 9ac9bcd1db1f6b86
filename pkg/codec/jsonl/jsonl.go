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

// Package jsonl implements the line-delimited JSON object decoder and
// encoder. Parsing itself is left to the host's JSON library (spec.md
// treats the embedded JSON library as an external collaborator); this
// package owns only the line-splitting, schema-widening and null-filling
// behavior that makes JSONL a first-class codec.
package jsonl

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/buffer"
	"github.com/tabflow/tabflow/pkg/registry"
)

const arenaBlockSize = 64 * 1024

func init() {
	registry.Register(registry.Entry{
		Name: "codec.jsonl.decode",
		Kind: registry.OpDecoder,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "batch_size", Kind: registry.ArgInt, Default: int64(1024)},
		},
		Schema: func(_ batch.Schema, _ registry.Args) batch.Schema { return batch.Unknown(nil) },
		New: func(args registry.Args) (any, error) {
			return NewDecoder(memory.NewGoAllocator(), int(args.Int("batch_size", 1024))), nil
		},
	})
	registry.Register(registry.Entry{
		Name:    "codec.jsonl.encode",
		Kind:    registry.OpEncoder,
		Tier:    registry.Core,
		Caps:    registry.AllCaps,
		Schema:  func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New: func(args registry.Args) (any, error) { return NewEncoder(), nil },
	})
}

// Decoder splits input on line endings, parses each line as a JSON object,
// establishes a schema from the first object (an integral-looking number
// decides Int64 vs Float64), widens types across subsequent rows, and
// fills missing keys as null. A line that fails to parse is skipped
// silently, per spec.md §7's row-level error taxonomy.
type Decoder struct {
	pool      memory.Allocator
	batchSize int

	buf    *buffer.Buffer
	schema batch.Schema
	rows   []map[string]any
}

func NewDecoder(pool memory.Allocator, batchSize int) *Decoder {
	if batchSize <= 0 {
		batchSize = 1024
	}
	return &Decoder{pool: pool, batchSize: batchSize, buf: buffer.New(4096)}
}

func (d *Decoder) Push(data []byte) ([]*batch.Batch, error) {
	d.buf.Write(data)
	var out []*batch.Batch
	for {
		unread := d.buf.Unread()
		idx := bytes.IndexByte(unread, '\n')
		if idx < 0 {
			break
		}
		line := unread[:idx]
		d.buf.Advance(idx + 1)
		if b := d.processLine(line); b != nil {
			out = append(out, b)
		}
	}
	d.buf.Compact()
	return out, nil
}

func (d *Decoder) Flush() ([]*batch.Batch, error) {
	if len(d.rows) == 0 {
		return nil, nil
	}
	b := d.build(d.rows)
	d.rows = nil
	return []*batch.Batch{b}, nil
}

func (d *Decoder) processLine(line []byte) *batch.Batch {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		return nil
	}
	d.rows = append(d.rows, obj)
	d.widenSchema(obj)
	if len(d.rows) >= d.batchSize {
		b := d.build(d.rows)
		d.rows = nil
		return b
	}
	return nil
}

func (d *Decoder) widenSchema(obj map[string]any) {
	if !d.schema.Known {
		names := make([]string, 0, len(obj))
		for k := range obj {
			names = append(names, k)
		}
		d.schema = batch.NewSchema(names, make([]batch.Kind, len(names)))
		for i := range d.schema.Types {
			d.schema.Types[i] = batch.Null
		}
	}
	for k, v := range obj {
		idx := d.schema.IndexOf(k)
		if idx < 0 {
			d.schema.Names = append(d.schema.Names, k)
			d.schema.Types = append(d.schema.Types, batch.Null)
			idx = len(d.schema.Names) - 1
		}
		d.schema.Types[idx] = batch.Widen(d.schema.Types[idx], kindOf(v))
	}
}

func kindOf(v any) batch.Kind {
	switch n := v.(type) {
	case nil:
		return batch.Null
	case bool:
		return batch.Bool
	case string:
		return batch.String
	case float64:
		if n == float64(int64(n)) {
			return batch.Int64
		}
		return batch.Float64
	default:
		return batch.String
	}
}

func (d *Decoder) build(rows []map[string]any) *batch.Batch {
	for i := range d.schema.Types {
		if d.schema.Types[i] == batch.Null {
			d.schema.Types[i] = batch.String
		}
	}
	b := batch.NewEmpty(d.pool, arenaBlockSize, d.schema, len(rows))
	for r, obj := range rows {
		b.EnsureCapacity(r + 1)
		for c, name := range d.schema.Names {
			v, ok := obj[name]
			if !ok || v == nil {
				b.SetNull(r, c)
				continue
			}
			writeJSONCell(b, r, c, d.schema.Types[c], v)
		}
	}
	b.RowCount = len(rows)
	return b
}

func writeJSONCell(b *batch.Batch, row, col int, kind batch.Kind, v any) {
	switch kind {
	case batch.Bool:
		if bv, ok := v.(bool); ok {
			b.SetBool(row, col, bv)
			return
		}
	case batch.Int64:
		if f, ok := v.(float64); ok {
			b.SetInt64(row, col, int64(f))
			return
		}
	case batch.Float64:
		if f, ok := v.(float64); ok {
			b.SetFloat64(row, col, f)
			return
		}
	case batch.String:
		switch s := v.(type) {
		case string:
			b.SetString(row, col, s)
			return
		default:
			buf, _ := json.Marshal(s)
			b.SetString(row, col, string(buf))
			return
		}
	}
	b.SetNull(row, col)
}

// Encoder writes one JSON object per row with standard string escaping
// (delegated to encoding/json, which already escapes `" \ \n \r \t`).
type Encoder struct{}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) Encode(b *batch.Batch) ([]byte, error) {
	var sb strings.Builder
	for r := 0; r < b.RowCount; r++ {
		obj := make(map[string]any, b.Schema.Len())
		for c, name := range b.Schema.Names {
			if b.IsNull(r, c) {
				obj[name] = nil
				continue
			}
			obj[name] = jsonValue(b.GetValue(r, c))
		}
		line, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

func (e *Encoder) Flush(batch.Schema) ([]byte, error) { return nil, nil }

func jsonValue(v batch.Value) any {
	switch v.Kind {
	case batch.Bool:
		return v.Bool()
	case batch.Int64:
		return v.Int64()
	case batch.Float64:
		return v.Float64()
	case batch.Date, batch.Timestamp:
		return v.String()
	default:
		return v.Str()
	}
}
