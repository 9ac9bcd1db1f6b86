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
		Name: "unique",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "columns", Kind: registry.ArgStringList, Required: false},
			{Name: "keep", Kind: registry.ArgString, Required: false, Default: "first"},
		},
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New: func(args registry.Args) (any, error) {
			return NewUnique(args.StringList("columns"), args.String("keep", "first")), nil
		},
	})
}

// Unique drops rows whose key (the full row, or a named column subset)
// has already been seen. It holds one key string per distinct row in
// memory for the life of the stream, so it is not CapBoundedMemory.
type Unique struct {
	columns []string
	cols    []int
	keepLast bool
	seen    map[string]bool
	resolved bool

	// keep="last" buffers rows, since only the final occurrence of a key
	// should survive; it is flushed at end of stream only.
	buffered []*batch.Batch
}

func NewUnique(columns []string, keep string) *Unique {
	return &Unique{columns: columns, keepLast: keep == "last", seen: make(map[string]bool)}
}

func (u *Unique) ensure(schema batch.Schema) {
	if u.resolved {
		return
	}
	if len(u.columns) == 0 {
		u.cols = make([]int, schema.Len())
		for i := range u.cols {
			u.cols[i] = i
		}
	} else {
		u.cols = resolveColumns(schema, u.columns)
	}
	u.resolved = true
}

func (u *Unique) Process(in *batch.Batch) (*batch.Batch, error) {
	u.ensure(in.Schema)
	if u.keepLast {
		// Retain the whole batch; final dedup happens in Flush once every
		// row has been seen, so the last occurrence of each key wins.
		u.buffered = append(u.buffered, in)
		return nil, nil
	}
	out := newBatch(in.Schema, in.RowCount)
	dst := 0
	for r := 0; r < in.RowCount; r++ {
		k := rowKey(in, r, u.cols)
		if u.seen[k] {
			continue
		}
		u.seen[k] = true
		out.EnsureCapacity(dst + 1)
		out.CopyRow(dst, in, r)
		dst++
	}
	if dst == 0 {
		out.Release()
		return nil, nil
	}
	out.RowCount = dst
	return out, nil
}

func (u *Unique) Flush() (*batch.Batch, error) {
	if !u.keepLast || len(u.buffered) == 0 {
		return nil, nil
	}
	// Walk batches in reverse, keeping the first (i.e. last-in-stream)
	// occurrence of each key, then reverse the result back to stream order.
	type rowRef struct {
		b   *batch.Batch
		row int
	}
	var kept []rowRef
	seen := make(map[string]bool)
	for bi := len(u.buffered) - 1; bi >= 0; bi-- {
		b := u.buffered[bi]
		for r := b.RowCount - 1; r >= 0; r-- {
			k := rowKey(b, r, u.cols)
			if seen[k] {
				continue
			}
			seen[k] = true
			kept = append(kept, rowRef{b, r})
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	schema := u.buffered[0].Schema
	out := newBatch(schema, len(kept))
	out.EnsureCapacity(len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		ref := kept[i]
		out.CopyRow(len(kept)-1-i, ref.b, ref.row)
	}
	out.RowCount = len(kept)
	return out, nil
}
