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
	"golang.org/x/exp/rand"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/registry"
)

const sampleSeed = 0x5EED

func init() {
	registry.Register(registry.Entry{
		Name: "sample",
		Kind: registry.OpTransform,
		Tier: registry.Core,
		Caps: registry.CapBoundedMemory | registry.CapBrowserSafe | registry.CapDeterministic,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "n", Kind: registry.ArgInt, Required: true},
		},
		Schema: func(in batch.Schema, _ registry.Args) batch.Schema { return in },
		New:    func(args registry.Args) (any, error) { return NewSample(int(args.Int("n", 0))), nil },
	})
}

// Sample reservoir-samples whole rows (Algorithm R): row i >= N replaces a
// random reservoir slot with probability N/(i+1).
type Sample struct {
	n    int
	seen int64
	rng  *rand.Rand
	rows []rowSlot
}

func NewSample(n int) *Sample {
	return &Sample{n: n, rng: rand.New(rand.NewSource(sampleSeed))}
}

func (s *Sample) Process(in *batch.Batch) (*batch.Batch, error) {
	if s.n <= 0 {
		s.seen += int64(in.RowCount)
		return nil, nil
	}
	for r := 0; r < in.RowCount; r++ {
		slot := rowSlot{in, r}
		if len(s.rows) < s.n {
			s.rows = append(s.rows, slot)
		} else {
			j := s.rng.Int63n(s.seen + 1)
			if int(j) < s.n {
				s.rows[j] = slot
			}
		}
		s.seen++
	}
	return nil, nil
}

func (s *Sample) Flush() (*batch.Batch, error) {
	if len(s.rows) == 0 {
		return nil, nil
	}
	schema := s.rows[0].b.Schema
	out := newBatch(schema, len(s.rows))
	out.EnsureCapacity(len(s.rows))
	for i, slot := range s.rows {
		out.CopyRow(i, slot.b, slot.row)
	}
	out.RowCount = len(s.rows)
	return out, nil
}
