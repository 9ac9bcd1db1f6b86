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
	"fmt"
	"hash/fnv"
	"os"

	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/codec/csv"
	"github.com/tabflow/tabflow/pkg/registry"
)

func init() {
	registry.Register(registry.Entry{
		Name: "join",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBoundedMemory | registry.CapDeterministic | registry.CapFs,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "file", Kind: registry.ArgString, Required: true},
			{Name: "left_key", Kind: registry.ArgString, Required: true},
			{Name: "right_key", Kind: registry.ArgString, Required: true},
			{Name: "how", Kind: registry.ArgString, Required: false, Default: "inner"},
		},
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			// The lookup file's schema isn't known until construction reads
			// it; the IR's static schema pass can only pass the left side
			// through unchanged and let the runtime widen it.
			return in
		},
		New: func(args registry.Args) (any, error) {
			return NewJoin(args.String("file", ""), args.String("left_key", ""),
				args.String("right_key", ""), args.String("how", "inner"))
		},
	})
}

// multiMap is an open-addressing hash table from an FNV-1a key hash to the
// list of lookup row indices sharing that key, with linear probing on
// collision.
type multiMap struct {
	buckets []int32 // -1 = empty, else a lookup row index occupying this slot
	mask    uint32
}

func newMultiMap(n int) *multiMap {
	size := uint32(16)
	for size < uint32(n)*2 {
		size <<= 1
	}
	b := make([]int32, size)
	for i := range b {
		b[i] = -1
	}
	return &multiMap{buckets: b, mask: size - 1}
}

func fnvHash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func (m *multiMap) insert(key string, row int) {
	slot := fnvHash(key) & m.mask
	for m.buckets[slot] != -1 {
		slot = (slot + 1) & m.mask
	}
	m.buckets[slot] = int32(row)
}

// lookup returns every lookup row index whose key equals key. Rows sharing
// a key were inserted independently (not chained at insert time), so this
// walks the whole probe sequence for the hash and filters by key equality;
// acceptable for the moderate-size lookup tables this operator targets.
func (m *multiMap) lookup(key string, rowKeys []string) []int {
	var matches []int
	h := fnvHash(key) & m.mask
	for probes := uint32(0); probes <= m.mask; probes++ {
		slot := (h + probes) & m.mask
		row := m.buckets[slot]
		if row == -1 {
			break
		}
		if rowKeys[row] == key {
			matches = append(matches, int(row))
		}
	}
	return matches
}

// Join is a one-shot build/probe hash join: the lookup side loads entirely
// on the first Process call, then every input row probes the resulting
// multi-map.
type Join struct {
	file, leftKeyName, rightKeyName, how string

	built      bool
	lookup     *batch.Batch
	rowKeys    []string
	mm         *multiMap
	rightCol   int
	lookupCols   []int // every lookup column except the right key
	leftCol      int
	leftResolved bool
}

// NewJoin builds a join operator. Only how ∈ {inner, left} are implemented
// natively; "right" and "full" are part of the SQL transpiler's Ecosystem
// vocabulary but have no native target here (spec.md §9 Open Questions),
// so they're rejected at construction rather than silently behaving like
// an inner join.
func NewJoin(file, leftKey, rightKey, how string) (*Join, error) {
	if file == "" {
		return nil, fmt.Errorf("join: missing file")
	}
	if how != "inner" && how != "left" {
		return nil, fmt.Errorf("join: how=%q not supported natively (only inner, left)", how)
	}
	return &Join{file: file, leftKeyName: leftKey, rightKeyName: rightKey, how: how}, nil
}

func (j *Join) build() error {
	data, err := os.ReadFile(j.file)
	if err != nil {
		return fmt.Errorf("join: reading lookup file: %w", err)
	}
	dec := csv.NewDecoder(memory.NewGoAllocator(), csv.Options{Delimiter: ',', Header: true, BatchSize: defaultCapacity})
	batches, err := dec.Push(data)
	if err != nil {
		return fmt.Errorf("join: decoding lookup file: %w", err)
	}
	tail, err := dec.Flush()
	if err != nil {
		return fmt.Errorf("join: flushing lookup decoder: %w", err)
	}
	batches = append(batches, tail...)
	j.lookup = concatBatches(batches)
	if j.lookup == nil {
		j.lookup = newBatch(batch.NewSchema(nil, nil), 0)
	}
	j.rightCol = j.lookup.Schema.IndexOf(j.rightKeyName)
	for i := range j.lookup.Schema.Names {
		if i != j.rightCol {
			j.lookupCols = append(j.lookupCols, i)
		}
	}
	j.mm = newMultiMap(j.lookup.RowCount)
	j.rowKeys = make([]string, j.lookup.RowCount)
	for r := 0; r < j.lookup.RowCount; r++ {
		k := rowKey(j.lookup, r, []int{j.rightCol})
		j.rowKeys[r] = k
		j.mm.insert(k, r)
	}
	j.built = true
	return nil
}

func (j *Join) outputSchema(inSchema batch.Schema) batch.Schema {
	names := append([]string(nil), inSchema.Names...)
	kinds := append([]batch.Kind(nil), inSchema.Types...)
	for _, c := range j.lookupCols {
		names = append(names, j.lookup.Schema.Names[c])
		kinds = append(kinds, j.lookup.Schema.Types[c])
	}
	return batch.NewSchema(names, kinds)
}

func (j *Join) Process(in *batch.Batch) (*batch.Batch, error) {
	if !j.built {
		if err := j.build(); err != nil {
			return nil, err
		}
	}
	if !j.leftResolved {
		j.leftCol = in.Schema.IndexOf(j.leftKeyName)
		j.leftResolved = true
	}
	outSchema := j.outputSchema(in.Schema)
	leftCols := in.Schema.Len()
	out := newBatch(outSchema, in.RowCount)
	dst := 0
	for r := 0; r < in.RowCount; r++ {
		key := rowKey(in, r, []int{j.leftCol})
		matches := j.mm.lookup(key, j.rowKeys)
		if len(matches) == 0 {
			if j.how != "left" {
				continue
			}
			out.EnsureCapacity(dst + 1)
			copyPrefix(out, dst, in, r, leftCols)
			for ci := range j.lookupCols {
				out.SetNull(dst, leftCols+ci)
			}
			dst++
			continue
		}
		for _, m := range matches {
			out.EnsureCapacity(dst + 1)
			copyPrefix(out, dst, in, r, leftCols)
			for ci, c := range j.lookupCols {
				if j.lookup.IsNull(m, c) {
					out.SetNull(dst, leftCols+ci)
					continue
				}
				out.SetValue(dst, leftCols+ci, j.lookup.GetValue(m, c))
			}
			dst++
		}
	}
	if dst == 0 {
		out.Release()
		return nil, nil
	}
	out.RowCount = dst
	return out, nil
}

func (j *Join) Flush() (*batch.Batch, error) { return nil, nil }
