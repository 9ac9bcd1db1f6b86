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

import "github.com/HdrHistogram/hdrhistogram-go"

// histogramScale converts a float64 observation to the fixed-point integer
// domain hdrhistogram.Histogram requires, giving microsecond-equivalent
// precision across a wide dynamic range without hand-rolling the source's
// doubling-range, bin-merging adaptive histogram.
const histogramScale = 1000

// Histogram is the `stats` operator's distribution estimate over the
// fixed range [0, 10^9] with two significant decimal digits of precision
// per bucket. The range does not grow; Add clamps values outside it to
// the nearest bound.
type Histogram struct {
	h *hdrhistogram.Histogram
}

func NewHistogram() *Histogram {
	return &Histogram{h: hdrhistogram.New(0, 1_000_000_000*histogramScale, 2)}
}

// Add records one observation, clamping out-of-range values to the
// histogram's configured bounds rather than failing the whole op.
func (h *Histogram) Add(x float64) {
	v := int64(x * histogramScale)
	if v < 0 {
		v = 0
	}
	if v > 1_000_000_000*histogramScale {
		v = 1_000_000_000 * histogramScale
	}
	_ = h.h.RecordValue(v)
}

func (h *Histogram) Mean() float64   { return h.h.Mean() / histogramScale }
func (h *Histogram) StdDev() float64 { return h.h.StdDev() / histogramScale }
func (h *Histogram) Min() float64    { return float64(h.h.Min()) / histogramScale }
func (h *Histogram) Max() float64    { return float64(h.h.Max()) / histogramScale }

// ValueAtQuantile returns the estimated value at percentile pct (0-100).
func (h *Histogram) ValueAtQuantile(pct float64) float64 {
	return float64(h.h.ValueAtQuantile(pct)) / histogramScale
}
