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

import "github.com/axiomhq/hyperloglog"

// Distinct wraps a precision-10 HyperLogLog sketch (1024 registers) for
// the `stats` operator's approximate distinct count.
type Distinct struct {
	sketch *hyperloglog.Sketch
}

func NewDistinct() *Distinct {
	sketch, _ := hyperloglog.NewSketch(10, false)
	return &Distinct{sketch: sketch}
}

// Add folds in one observation's lossless string representation.
func (d *Distinct) Add(s string) {
	d.sketch.Insert([]byte(s))
}

// Estimate returns the current cardinality estimate.
func (d *Distinct) Estimate() uint64 {
	return d.sketch.Estimate()
}
