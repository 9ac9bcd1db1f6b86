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
		Name: "head", Kind: registry.OpTransform, Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{{Name: "n", Kind: registry.ArgInt, Required: true}},
		Schema:  func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New:     func(args registry.Args) (any, error) { return NewHead(args.Int("n", 0)), nil },
	})
	registry.Register(registry.Entry{
		Name: "skip", Kind: registry.OpTransform, Tier: registry.Core,
		Caps: registry.CapStreaming | registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{{Name: "n", Kind: registry.ArgInt, Required: true}},
		Schema:  func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New:     func(args registry.Args) (any, error) { return NewSkip(args.Int("n", 0)), nil },
	})
	registry.Register(registry.Entry{
		Name: "tail", Kind: registry.OpTransform, Tier: registry.Core,
		Caps: registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{{Name: "n", Kind: registry.ArgInt, Required: true}},
		Schema:  func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New:     func(args registry.Args) (any, error) { return NewTail(args.Int("n", 0)), nil },
	})
}

// Head passes the first N rows across the whole stream, then drops
// everything after.
type Head struct {
	n, taken int64
}

func NewHead(n int64) *Head { return &Head{n: n} }

func (h *Head) Process(in *batch.Batch) (*batch.Batch, error) {
	if h.taken >= h.n {
		return nil, nil
	}
	remaining := h.n - h.taken
	take := int64(in.RowCount)
	if take > remaining {
		take = remaining
	}
	h.taken += take
	out := newBatch(in.Schema, int(take))
	out.EnsureCapacity(int(take))
	for r := 0; r < int(take); r++ {
		out.CopyRow(r, in, r)
	}
	out.RowCount = int(take)
	return out, nil
}

func (h *Head) Flush() (*batch.Batch, error) { return nil, nil }

// Skip drops the first N rows across the whole stream, then passes the
// rest unchanged.
type Skip struct {
	n, dropped int64
}

func NewSkip(n int64) *Skip { return &Skip{n: n} }

func (s *Skip) Process(in *batch.Batch) (*batch.Batch, error) {
	if s.dropped >= s.n {
		out := newBatch(in.Schema, in.RowCount)
		out.EnsureCapacity(in.RowCount)
		for r := 0; r < in.RowCount; r++ {
			out.CopyRow(r, in, r)
		}
		out.RowCount = in.RowCount
		return out, nil
	}
	toDrop := s.n - s.dropped
	if toDrop >= int64(in.RowCount) {
		s.dropped += int64(in.RowCount)
		return nil, nil
	}
	s.dropped = s.n
	keep := int64(in.RowCount) - toDrop
	out := newBatch(in.Schema, int(keep))
	out.EnsureCapacity(int(keep))
	for r := 0; r < int(keep); r++ {
		out.CopyRow(r, in, int(toDrop)+r)
	}
	out.RowCount = int(keep)
	return out, nil
}

func (s *Skip) Flush() (*batch.Batch, error) { return nil, nil }

// Tail keeps the last N rows in a circular buffer, emitting them in
// arrival order on Flush.
type Tail struct {
	n      int
	ring   []rowSlot
	schema batch.Schema
	have   bool
}

type rowSlot struct {
	b   *batch.Batch
	row int
}

func NewTail(n int64) *Tail { return &Tail{n: int(n)} }

func (t *Tail) Process(in *batch.Batch) (*batch.Batch, error) {
	if !t.have {
		t.schema = in.Schema
		t.have = true
	}
	for r := 0; r < in.RowCount; r++ {
		t.ring = append(t.ring, rowSlot{in, r})
		if len(t.ring) > t.n {
			t.ring = t.ring[1:]
		}
	}
	return nil, nil
}

func (t *Tail) Flush() (*batch.Batch, error) {
	if len(t.ring) == 0 {
		return nil, nil
	}
	out := newBatch(t.schema, len(t.ring))
	out.EnsureCapacity(len(t.ring))
	for i, slot := range t.ring {
		out.CopyRow(i, slot.b, slot.row)
	}
	out.RowCount = len(t.ring)
	return out, nil
}
