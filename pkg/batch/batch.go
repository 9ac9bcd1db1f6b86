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

package batch

import (
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/tabflow/tabflow/pkg/arena"
)

// Batch is the unit of work: an ordered column schema, a row count and
// capacity, per-column backing arrays and null markers, and an arena
// owning every string this batch reaches. Batches are created with an
// initial capacity, grow on demand, and are freed as a whole (columns +
// arena together) by Release.
type Batch struct {
	Schema   Schema
	RowCount int
	Capacity int
	Columns  []Column
	Arena    *arena.Arena
}

// Create allocates a batch with nCols columns (type Null until SetSchema
// assigns each one) sized for capacity rows, an owning arena.
func Create(pool memory.Allocator, arenaBlockSize, nCols, capacity int) *Batch {
	cols := make([]Column, nCols)
	for i := range cols {
		cols[i] = newColumn(Null, capacity)
	}
	return &Batch{
		Schema:   Unknown(make([]string, nCols)),
		Capacity: capacity,
		Columns:  cols,
		Arena:    arena.New(pool, arenaBlockSize),
	}
}

// SetSchema assigns the name (duplicated into the arena) and type of
// column colIndex. Only valid before data is written to that column.
func (b *Batch) SetSchema(colIndex int, name string, t Kind) {
	b.Schema.Names[colIndex] = b.Arena.AllocString(name)
	b.Schema.Types[colIndex] = t
	b.Schema.Known = true
	b.Columns[colIndex].retype(t)
}

// EnsureCapacity grows every column's backing arrays in place to at least
// n rows, preserving existing contents and extending null markers as null.
func (b *Batch) EnsureCapacity(n int) {
	if n <= b.Capacity {
		return
	}
	for i := range b.Columns {
		b.Columns[i].ensureCapacity(n)
	}
	b.Capacity = n
}

// SetBool writes a typed cell and marks it non-null.
func (b *Batch) SetBool(row, col int, v bool) {
	b.Columns[col].Bools[row] = v
	b.Columns[col].Nulls[row] = false
}

// SetInt64 writes a typed cell (also used for Date/Timestamp columns,
// where the caller passes the widened day/microsecond count).
func (b *Batch) SetInt64(row, col int, v int64) {
	b.Columns[col].Ints[row] = v
	b.Columns[col].Nulls[row] = false
}

// SetFloat64 writes a typed cell and marks it non-null.
func (b *Batch) SetFloat64(row, col int, v float64) {
	b.Columns[col].Floats[row] = v
	b.Columns[col].Nulls[row] = false
}

// SetString writes a typed cell, duplicating s into the batch's arena, and
// marks it non-null.
func (b *Batch) SetString(row, col int, s string) {
	b.Columns[col].Strs[row] = b.Arena.AllocString(s)
	b.Columns[col].Nulls[row] = false
}

// SetStringNoCopy writes s without duplicating it into the arena. Only
// safe when the caller guarantees s's backing storage outlives the batch
// (e.g. a column-name constant, or storage the codec manages separately).
func (b *Batch) SetStringNoCopy(row, col int, s string) {
	b.Columns[col].Strs[row] = s
	b.Columns[col].Nulls[row] = false
}

// SetNull marks a cell null. The backing value at a null slot is
// undefined; null bytes are authoritative.
func (b *Batch) SetNull(row, col int) {
	b.Columns[col].Nulls[row] = true
}

func (b *Batch) IsNull(row, col int) bool { return b.Columns[col].Nulls[row] }

func (b *Batch) GetBool(row, col int) bool       { return b.Columns[col].Bools[row] }
func (b *Batch) GetInt64(row, col int) int64     { return b.Columns[col].Ints[row] }
func (b *Batch) GetFloat64(row, col int) float64 { return b.Columns[col].Floats[row] }
func (b *Batch) GetString(row, col int) string   { return b.Columns[col].Strs[row] }

// GetValue lifts a cell out as a Value, honoring the null marker.
func (b *Batch) GetValue(row, col int) Value {
	if b.IsNull(row, col) {
		return NullValue()
	}
	switch b.Schema.Types[col] {
	case Bool:
		return BoolValue(b.GetBool(row, col))
	case Int64:
		return Int64Value(b.GetInt64(row, col))
	case Float64:
		return Float64Value(b.GetFloat64(row, col))
	case String:
		return StringValue(b.GetString(row, col))
	case Date:
		return DateValue(int32(b.GetInt64(row, col)))
	case Timestamp:
		return TimestampValue(b.GetInt64(row, col))
	default:
		return NullValue()
	}
}

// SetValue writes a Value into a cell, dispatching on its Kind.
func (b *Batch) SetValue(row, col int, v Value) {
	switch v.Kind {
	case Null:
		b.SetNull(row, col)
	case Bool:
		b.SetBool(row, col, v.Bool())
	case Int64, Date, Timestamp:
		b.SetInt64(row, col, v.Int64())
	case Float64:
		b.SetFloat64(row, col, v.Float64())
	case String:
		b.SetString(row, col, v.Str())
	}
}

// CopyRow performs a deep copy of every column cell from (src, srcRow)
// into (b, dstRow), duplicating string cells into b's own arena.
func (b *Batch) CopyRow(dstRow int, src *Batch, srcRow int) {
	for col := range b.Columns {
		if src.IsNull(srcRow, col) {
			b.SetNull(dstRow, col)
			continue
		}
		switch src.Schema.Types[col] {
		case Bool:
			b.SetBool(dstRow, col, src.GetBool(srcRow, col))
		case Int64, Date, Timestamp:
			b.SetInt64(dstRow, col, src.GetInt64(srcRow, col))
		case Float64:
			b.SetFloat64(dstRow, col, src.GetFloat64(srcRow, col))
		case String:
			b.SetString(dstRow, col, src.GetString(srcRow, col))
		}
	}
}

// Release drops this batch's columns and arena as a single unit.
func (b *Batch) Release() {
	if b.Arena != nil {
		b.Arena.Destroy()
		b.Arena = nil
	}
	b.Columns = nil
}

// NewEmpty creates a batch with the given schema and zero rows (a
// convenience used by operators that derive an output schema up front,
// e.g. select/rename/derive).
func NewEmpty(pool memory.Allocator, arenaBlockSize int, schema Schema, capacity int) *Batch {
	b := Create(pool, arenaBlockSize, schema.Len(), capacity)
	for i, t := range schema.Types {
		b.SetSchema(i, schema.Names[i], t)
	}
	return b
}
