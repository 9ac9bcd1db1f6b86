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

// Package ops implements the streaming transform operators: every entry
// in the op registry whose Kind is OpTransform. Every operator implements
// Process/Flush/Destroy (spec.md §4.6); destroy is implied by dropping the
// Go value, so the Step interface only needs the first two.
package ops

import (
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/tabflow/tabflow/pkg/batch"
)

const arenaBlockSize = 64 * 1024
const defaultCapacity = 1024

// Step is the operator protocol: Process consumes a borrowed input batch
// and produces a freshly owned output batch (or nil if every row was
// dropped); Flush emits any retained state once, at end of stream.
type Step interface {
	Process(in *batch.Batch) (*batch.Batch, error)
	Flush() (*batch.Batch, error)
}

var defaultPool = memory.NewGoAllocator()

// keySeparator and nullSentinel build the lossless dedup/group/join key
// described by spec.md §4.6 "unique": column values joined by \x01, with
// a distinguishable \N standing in for null so "" and null never collide.
const keySeparator = "\x01"
const nullSentinel = "\\N"

func rowKey(b *batch.Batch, row int, cols []int) string {
	var sb strings.Builder
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(keySeparator)
		}
		if b.IsNull(row, c) {
			sb.WriteString(nullSentinel)
			continue
		}
		sb.WriteString(b.GetValue(row, c).String())
	}
	return sb.String()
}

// resolveColumns maps column names to indices in schema, in the given
// order, skipping names that don't exist.
func resolveColumns(schema batch.Schema, names []string) []int {
	idx := make([]int, 0, len(names))
	for _, n := range names {
		if i := schema.IndexOf(n); i >= 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

func newBatch(schema batch.Schema, capacity int) *batch.Batch {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return batch.NewEmpty(defaultPool, arenaBlockSize, schema, capacity)
}

func appendSchema(in batch.Schema, names []string, kinds []batch.Kind) batch.Schema {
	outNames := append(append([]string(nil), in.Names...), names...)
	outKinds := append(append([]batch.Kind(nil), in.Types...), kinds...)
	return batch.NewSchema(outNames, outKinds)
}

func selectSchema(in batch.Schema, cols []string) batch.Schema {
	types := make([]batch.Kind, len(cols))
	for i, c := range cols {
		if idx := in.IndexOf(c); idx >= 0 {
			types[i] = in.Types[idx]
		} else {
			types[i] = batch.Null
		}
	}
	return batch.NewSchema(cols, types)
}

func renameSchema(in batch.Schema, mapping map[string]string) batch.Schema {
	names := make([]string, len(in.Names))
	for i, n := range in.Names {
		if to, ok := mapping[n]; ok {
			names[i] = to
		} else {
			names[i] = n
		}
	}
	return batch.NewSchema(names, append([]batch.Kind(nil), in.Types...))
}

func itoa(i int) string { return strconv.Itoa(i) }

// concatBatches merges same-schema batches into one, in order. Used by
// operators (join) that must materialize an entire side input up front.
func concatBatches(batches []*batch.Batch) *batch.Batch {
	if len(batches) == 0 {
		return nil
	}
	total := 0
	for _, b := range batches {
		total += b.RowCount
	}
	out := newBatch(batches[0].Schema, total)
	out.EnsureCapacity(total)
	row := 0
	for _, b := range batches {
		for r := 0; r < b.RowCount; r++ {
			out.CopyRow(row, b, r)
			row++
		}
	}
	out.RowCount = total
	return out
}

// copyPrefix copies the first n columns of (src, srcRow) into (dst, dstRow),
// for use when dst's schema is src's schema plus trailing appended columns.
func copyPrefix(dst *batch.Batch, dstRow int, src *batch.Batch, srcRow, n int) {
	for c := 0; c < n; c++ {
		if src.IsNull(srcRow, c) {
			dst.SetNull(dstRow, c)
			continue
		}
		dst.SetValue(dstRow, c, src.GetValue(srcRow, c))
	}
}
