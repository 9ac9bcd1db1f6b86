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

package stats

import "golang.org/x/exp/rand"

// Reservoir implements Algorithm R: uniform reservoir sampling of a stream
// with bounded memory. Each row at index i >= size replaces a random slot
// with probability size/(i+1).
type Reservoir struct {
	size  int
	seen  int64
	items []float64
	rng   *rand.Rand
}

// NewReservoir creates a reservoir of the given size seeded from a fixed
// source so results reproduce across runs with identical input, per
// spec.md §8's Deterministic capability.
func NewReservoir(size int, seed uint64) *Reservoir {
	return &Reservoir{size: size, rng: rand.New(rand.NewSource(seed))}
}

// Add offers one observation to the reservoir.
func (r *Reservoir) Add(x float64) {
	if len(r.items) < r.size {
		r.items = append(r.items, x)
	} else {
		j := r.rng.Int63n(r.seen + 1)
		if int(j) < r.size {
			r.items[j] = x
		}
	}
	r.seen++
}

// Sample returns the current reservoir contents in replacement order
// (not the original arrival order).
func (r *Reservoir) Sample() []float64 { return r.items }
