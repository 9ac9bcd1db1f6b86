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

// Package csv implements the streaming RFC 4180 decoder and encoder.
package csv

import (
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/buffer"
	"github.com/tabflow/tabflow/pkg/registry"
)

func init() {
	registry.Register(registry.Entry{
		Name: "codec.csv.decode",
		Kind: registry.OpDecoder,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "delimiter", Kind: registry.ArgString, Default: ","},
			{Name: "header", Kind: registry.ArgBool, Default: true},
			{Name: "batch_size", Kind: registry.ArgInt, Default: int64(1024)},
		},
		Schema: func(_ batch.Schema, _ registry.Args) batch.Schema { return batch.Unknown(nil) },
		New: func(args registry.Args) (any, error) {
			delim := args.String("delimiter", ",")
			return NewDecoder(memory.NewGoAllocator(), Options{
				Delimiter: delim[0],
				Header:    args.Bool("header", true),
				BatchSize: int(args.Int("batch_size", 1024)),
			}), nil
		},
	})
	registry.Register(registry.Entry{
		Name: "codec.csv.encode",
		Kind: registry.OpEncoder,
		Tier: registry.Core,
		Caps: registry.AllCaps,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "delimiter", Kind: registry.ArgString, Default: ","},
		},
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New: func(args registry.Args) (any, error) {
			delim := args.String("delimiter", ",")
			return NewEncoder(delim[0]), nil
		},
	})
}

// Options configures a Decoder.
type Options struct {
	Delimiter byte
	Header    bool
	BatchSize int
}

// Decoder is the streaming CSV→batch decoder of spec.md §4.5: it accepts
// byte chunks, extracts complete lines respecting an in-quote state, runs
// type detection on the first batch, then freezes column types and parses
// every subsequent line directly into typed cells.
type Decoder struct {
	opts Options
	pool memory.Allocator

	buf       *buffer.Buffer
	inQuote   bool
	headerSet bool
	headerRow []string

	frozen bool
	schema batch.Schema
	// pending holds raw string rows accumulated before the schema freezes.
	pending [][]string

	current      *batch.Batch
	rowInCurrent int
}

const arenaBlockSize = 64 * 1024

// NewDecoder creates a Decoder with the given allocator and options.
func NewDecoder(pool memory.Allocator, opts Options) *Decoder {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1024
	}
	return &Decoder{opts: opts, pool: pool, buf: buffer.New(4096)}
}

// Push appends data to the internal line buffer and returns every batch
// completed as a result (full batches eagerly, the final partial batch
// only via Flush).
func (d *Decoder) Push(data []byte) ([]*batch.Batch, error) {
	d.buf.Write(data)
	var out []*batch.Batch

	for {
		line, ok := d.nextLine()
		if !ok {
			break
		}
		b, err := d.processLine(line)
		if err != nil {
			return out, err
		}
		if b != nil {
			out = append(out, b)
		}
	}
	d.buf.Compact()
	return out, nil
}

// Flush emits any partially filled batch: the first-batch schema freezes
// even if fewer rows than BatchSize have accumulated, and the in-progress
// typed batch (if any) is trimmed to RowCount and returned.
func (d *Decoder) Flush() ([]*batch.Batch, error) {
	var out []*batch.Batch
	if !d.frozen {
		if len(d.pending) > 0 {
			b := d.freezeAndBuild(d.pending)
			d.pending = nil
			out = append(out, b)
		}
		return out, nil
	}
	if d.current != nil && d.rowInCurrent > 0 {
		d.current.RowCount = d.rowInCurrent
		out = append(out, d.current)
		d.current = nil
		d.rowInCurrent = 0
	}
	return out, nil
}

// nextLine extracts one unquoted-newline-terminated line from the buffer,
// tolerating \r\n, or returns ok=false if no complete line is available
// yet. The in-quote scanning state survives across Push calls.
func (d *Decoder) nextLine() (string, bool) {
	data := d.buf.Unread()
	inQuote := d.inQuote
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '"' {
			inQuote = !inQuote
			continue
		}
		if c == '\n' && !inQuote {
			line := data[:i]
			line = strings.TrimSuffix(string(line), "\r")
			d.buf.Advance(i + 1)
			d.inQuote = false
			return line, true
		}
	}
	d.inQuote = inQuote
	return "", false
}

// splitFields splits one CSV line into fields, honoring double-quote
// escaping ("") and trimming surrounding whitespace on unquoted fields.
func splitFields(line string, delim byte) []string {
	var fields []string
	var cur strings.Builder
	quoted := false
	wasQuoted := false
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == '"':
			if quoted && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i += 2
				continue
			}
			quoted = !quoted
			wasQuoted = true
			i++
		case c == delim && !quoted:
			fields = append(fields, finishField(cur.String(), wasQuoted))
			cur.Reset()
			wasQuoted = false
			i++
		default:
			cur.WriteByte(c)
			i++
		}
	}
	fields = append(fields, finishField(cur.String(), wasQuoted))
	return fields
}

func finishField(s string, wasQuoted bool) string {
	if wasQuoted {
		return s
	}
	return strings.TrimSpace(s)
}

func (d *Decoder) processLine(line string) (*batch.Batch, error) {
	fields := splitFields(line, d.opts.Delimiter)

	if d.opts.Header && !d.headerSet {
		d.headerRow = append([]string(nil), fields...)
		d.headerSet = true
		return nil, nil
	}

	if !d.frozen {
		d.pending = append(d.pending, fields)
		if len(d.pending) >= d.opts.BatchSize {
			b := d.freezeAndBuild(d.pending)
			d.pending = nil
			return b, nil
		}
		return nil, nil
	}

	if d.current == nil {
		d.current = batch.NewEmpty(d.pool, arenaBlockSize, d.schema, d.opts.BatchSize)
	}
	writeTypedRow(d.current, d.rowInCurrent, fields, d.schema)
	d.rowInCurrent++
	if d.rowInCurrent >= d.opts.BatchSize {
		d.current.RowCount = d.rowInCurrent
		b := d.current
		d.current = nil
		d.rowInCurrent = 0
		return b, nil
	}
	return nil, nil
}

// columnNames returns the header row if present, or positional names
// col0, col1, ... otherwise.
func (d *Decoder) columnNames(nCols int) []string {
	if d.headerSet {
		names := make([]string, nCols)
		copy(names, d.headerRow)
		for i := len(d.headerRow); i < nCols; i++ {
			names[i] = "col" + strconv.Itoa(i)
		}
		return names
	}
	names := make([]string, nCols)
	for i := range names {
		names[i] = "col" + strconv.Itoa(i)
	}
	return names
}

// freezeAndBuild detects each column's widened type across rows, freezes
// the schema (still-Null columns default to String), and converts the
// buffered raw rows into a fully typed batch.
func (d *Decoder) freezeAndBuild(rows [][]string) *batch.Batch {
	nCols := 0
	for _, r := range rows {
		if len(r) > nCols {
			nCols = len(r)
		}
	}
	kinds := make([]batch.Kind, nCols)
	for _, r := range rows {
		for c, f := range r {
			kinds[c] = batch.Widen(kinds[c], detectKind(f))
		}
	}
	for i, k := range kinds {
		if k == batch.Null {
			kinds[i] = batch.String
		}
	}
	names := d.columnNames(nCols)
	d.schema = batch.NewSchema(names, kinds)
	d.frozen = true

	b := batch.NewEmpty(d.pool, arenaBlockSize, d.schema, len(rows))
	for i, r := range rows {
		writeTypedRow(b, i, r, d.schema)
	}
	b.RowCount = len(rows)
	return b
}

// writeTypedRow parses fields against the frozen schema's fast parsers. A
// field that fails its column's parser is stored null rather than
// promoting the column's type (the column type never changes after freeze).
func writeTypedRow(b *batch.Batch, row int, fields []string, schema batch.Schema) {
	b.EnsureCapacity(row + 1)
	for col := 0; col < schema.Len(); col++ {
		var f string
		if col < len(fields) {
			f = fields[col]
		}
		if f == "" {
			b.SetNull(row, col)
			continue
		}
		switch schema.Types[col] {
		case batch.Int64:
			if v, ok := fastInt64(f); ok {
				b.SetInt64(row, col, v)
			} else {
				b.SetNull(row, col)
			}
		case batch.Float64:
			if v, ok := fastFloat64(f); ok {
				b.SetFloat64(row, col, v)
			} else {
				b.SetNull(row, col)
			}
		case batch.Date:
			if v, ok := batch.ParseDate(f); ok {
				b.SetInt64(row, col, int64(v))
			} else {
				b.SetNull(row, col)
			}
		case batch.Timestamp:
			if v, ok := batch.ParseTimestamp(f); ok {
				b.SetInt64(row, col, v)
			} else {
				b.SetNull(row, col)
			}
		default:
			b.SetString(row, col, f)
		}
	}
}

func detectKind(f string) batch.Kind {
	if f == "" {
		return batch.Null
	}
	if _, ok := fastInt64(f); ok {
		return batch.Int64
	}
	if _, ok := fastFloat64(f); ok {
		return batch.Float64
	}
	if _, ok := batch.ParseDate(f); ok {
		return batch.Date
	}
	if _, ok := batch.ParseTimestamp(f); ok {
		return batch.Timestamp
	}
	return batch.String
}

func fastInt64(s string) (int64, bool) {
	if len(s) == 0 || len(s) > 20 {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func fastFloat64(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Encoder writes the header row once, then one RFC 4180 row per batch row.
type Encoder struct {
	delim       byte
	wroteHeader bool
}

func NewEncoder(delim byte) *Encoder {
	if delim == 0 {
		delim = ','
	}
	return &Encoder{delim: delim}
}

// Encode renders b as CSV text, writing the header first if this is the
// first call.
func (e *Encoder) Encode(b *batch.Batch) ([]byte, error) {
	var sb strings.Builder
	if !e.wroteHeader {
		e.writeRow(&sb, b.Schema.Names)
		e.wroteHeader = true
	}
	row := make([]string, b.Schema.Len())
	for r := 0; r < b.RowCount; r++ {
		for c := 0; c < b.Schema.Len(); c++ {
			if b.IsNull(r, c) {
				row[c] = ""
				continue
			}
			row[c] = b.GetValue(r, c).String()
		}
		e.writeRow(&sb, row)
	}
	return []byte(sb.String()), nil
}

// Flush emits the header alone when no rows were ever encoded, and nothing
// otherwise: CSV carries no other trailing state.
func (e *Encoder) Flush(schema batch.Schema) ([]byte, error) {
	if e.wroteHeader {
		return nil, nil
	}
	var sb strings.Builder
	e.writeRow(&sb, schema.Names)
	e.wroteHeader = true
	return []byte(sb.String()), nil
}

func (e *Encoder) writeRow(sb *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(e.delim)
		}
		sb.WriteString(e.quoteIfNeeded(f))
	}
	sb.WriteByte('\n')
}

func (e *Encoder) quoteIfNeeded(f string) string {
	needsQuote := strings.IndexByte(f, e.delim) >= 0 ||
		strings.ContainsAny(f, "\"\r\n")
	if !needsQuote {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}
