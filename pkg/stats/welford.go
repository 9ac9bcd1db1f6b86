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

// Package stats implements the streaming estimators behind the `stats`
// operator and `normalize`: Welford mean/variance, higher central moments,
// a P² online quantile estimator, a HyperLogLog-backed distinct count, a
// fixed-range histogram, and an Algorithm R reservoir sample.
package stats

import "math"

// Welford accumulates count, mean and the higher moments needed for
// variance, skewness and kurtosis in a single numerically stable pass.
type Welford struct {
	Count int64
	Mean  float64
	M2    float64
	M3    float64
	M4    float64
	Min   float64
	Max   float64
}

func NewWelford() *Welford {
	return &Welford{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Add folds x into the running moments using the standard online update.
func (w *Welford) Add(x float64) {
	n1 := float64(w.Count)
	w.Count++
	n := float64(w.Count)
	delta := x - w.Mean
	deltaN := delta / n
	deltaN2 := deltaN * deltaN
	term1 := delta * deltaN * n1
	w.Mean += deltaN
	w.M4 += term1*deltaN2*(n*n-3*n+3) + 6*deltaN2*w.M2 - 4*deltaN*w.M3
	w.M3 += term1*deltaN*(n-2) - 3*deltaN*w.M2
	w.M2 += term1
	if x < w.Min {
		w.Min = x
	}
	if x > w.Max {
		w.Max = x
	}
}

func (w *Welford) Variance() float64 {
	if w.Count < 2 {
		return 0
	}
	return w.M2 / float64(w.Count-1)
}

func (w *Welford) Stddev() float64 { return math.Sqrt(w.Variance()) }

func (w *Welford) Skewness() float64 {
	if w.Count < 1 || w.M2 == 0 {
		return 0
	}
	n := float64(w.Count)
	return (math.Sqrt(n) * w.M3) / math.Pow(w.M2, 1.5)
}

func (w *Welford) Kurtosis() float64 {
	if w.Count < 1 || w.M2 == 0 {
		return 0
	}
	n := float64(w.Count)
	return (n*w.M4)/(w.M2*w.M2) - 3
}
