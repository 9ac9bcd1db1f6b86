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

// Package text implements the plain-line codec: a single `_line` string
// column, one row per input line.
package text

import (
	"bytes"
	"strings"

	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/buffer"
	"github.com/tabflow/tabflow/pkg/registry"
)

const arenaBlockSize = 64 * 1024

var lineSchema = batch.NewSchema([]string{"_line"}, []batch.Kind{batch.String})

func init() {
	registry.Register(registry.Entry{
		Name: "codec.text.decode",
		Kind: registry.OpDecoder,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "batch_size", Kind: registry.ArgInt, Default: int64(1024)},
		},
		Schema: func(_ batch.Schema, _ registry.Args) batch.Schema { return lineSchema },
		New: func(args registry.Args) (any, error) {
			return NewDecoder(memory.NewGoAllocator(), int(args.Int("batch_size", 1024))), nil
		},
	})
	registry.Register(registry.Entry{
		Name:   "codec.text.encode",
		Kind:   registry.OpEncoder,
		Tier:   registry.Core,
		Caps:   registry.AllCaps,
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New:    func(args registry.Args) (any, error) { return NewEncoder(), nil },
	})
}

// Decoder emits one `_line` row per input line.
type Decoder struct {
	pool      memory.Allocator
	batchSize int
	buf       *buffer.Buffer
	pending   []string
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
		line := strings.TrimSuffix(string(unread[:idx]), "\r")
		d.buf.Advance(idx + 1)
		d.pending = append(d.pending, line)
		if len(d.pending) >= d.batchSize {
			out = append(out, d.build(d.pending))
			d.pending = nil
		}
	}
	d.buf.Compact()
	return out, nil
}

func (d *Decoder) Flush() ([]*batch.Batch, error) {
	if len(d.pending) == 0 {
		return nil, nil
	}
	b := d.build(d.pending)
	d.pending = nil
	return []*batch.Batch{b}, nil
}

func (d *Decoder) build(lines []string) *batch.Batch {
	b := batch.NewEmpty(d.pool, arenaBlockSize, lineSchema, len(lines))
	for i, l := range lines {
		b.SetString(i, 0, l)
	}
	b.RowCount = len(lines)
	return b
}

// Encoder emits the `_line` value verbatim, or tab-joins every string
// column of the batch when `_line` is absent.
type Encoder struct{}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) Encode(b *batch.Batch) ([]byte, error) {
	var sb strings.Builder
	lineCol := b.Schema.IndexOf("_line")
	for r := 0; r < b.RowCount; r++ {
		if lineCol >= 0 {
			if !b.IsNull(r, lineCol) {
				sb.WriteString(b.GetString(r, lineCol))
			}
		} else {
			first := true
			for c := 0; c < b.Schema.Len(); c++ {
				if b.Schema.Types[c] != batch.String {
					continue
				}
				if !first {
					sb.WriteByte('\t')
				}
				first = false
				if !b.IsNull(r, c) {
					sb.WriteString(b.GetString(r, c))
				}
			}
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

func (e *Encoder) Flush(batch.Schema) ([]byte, error) { return nil, nil }
