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

import "sort"

// P2 is the Jain-Chlamtac online quantile estimator using five markers.
// For fewer than 5 observations it falls back to the exact sorted
// quantile of the partial sample, per spec.md §8's boundary behavior.
type P2 struct {
	p  float64
	n  [5]int
	np [5]float64
	dn [5]float64
	q  [5]float64

	count int
	early []float64
}

// NewP2 creates an estimator for quantile p (e.g. 0.5 for the median).
func NewP2(p float64) *P2 {
	e := &P2{p: p}
	e.dn = [5]float64{0, p / 2, p, (1 + p) / 2, 1}
	return e
}

// Add folds one observation into the estimator.
func (e *P2) Add(x float64) {
	e.count++
	if e.count <= 5 {
		e.early = append(e.early, x)
		if e.count == 5 {
			e.initialize()
		}
		return
	}

	k := e.findCell(x)
	for i := k + 1; i < 5; i++ {
		e.n[i]++
	}
	for i := 0; i < 5; i++ {
		e.np[i] += e.dn[i]
	}
	e.adjust()
}

func (e *P2) initialize() {
	sorted := append([]float64(nil), e.early...)
	sort.Float64s(sorted)
	for i := 0; i < 5; i++ {
		e.q[i] = sorted[i]
		e.n[i] = i + 1
	}
	e.np[0] = 1
	e.np[1] = 1 + 2*e.p
	e.np[2] = 1 + 4*e.p
	e.np[3] = 3 + 2*e.p
	e.np[4] = 5
}

func (e *P2) findCell(x float64) int {
	switch {
	case x < e.q[0]:
		e.q[0] = x
		return 0
	case x < e.q[1]:
		return 0
	case x < e.q[2]:
		return 1
	case x < e.q[3]:
		return 2
	case x <= e.q[4]:
		return 3
	default:
		e.q[4] = x
		return 3
	}
}

// adjust re-interpolates markers 1..3 (parabolic with linear fallback)
// whenever the actual position has drifted at least 1 away from the
// desired position and the neighbor gap allows.
func (e *P2) adjust() {
	for i := 1; i <= 3; i++ {
		d := e.np[i] - float64(e.n[i])
		if (d >= 1 && e.n[i+1]-e.n[i] > 1) || (d <= -1 && e.n[i-1]-e.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			qNew := e.parabolic(i, sign)
			if e.q[i-1] < qNew && qNew < e.q[i+1] {
				e.q[i] = qNew
			} else {
				e.q[i] = e.linear(i, sign)
			}
			e.n[i] += sign
		}
	}
}

func (e *P2) parabolic(i, sign int) float64 {
	s := float64(sign)
	np1 := float64(e.n[i+1])
	ni := float64(e.n[i])
	nm1 := float64(e.n[i-1])
	return e.q[i] + s/(np1-nm1)*(
		(ni-nm1+s)*(e.q[i+1]-e.q[i])/(np1-ni)+
			(np1-ni-s)*(e.q[i]-e.q[i-1])/(ni-nm1))
}

func (e *P2) linear(i, sign int) float64 {
	s := float64(sign)
	j := i + sign
	return e.q[i] + s*(e.q[j]-e.q[i])/float64(e.n[j]-e.n[i])
}

// Value returns the current quantile estimate.
func (e *P2) Value() float64 {
	if e.count == 0 {
		return 0
	}
	if e.count < 5 {
		sorted := append([]float64(nil), e.early...)
		sort.Float64s(sorted)
		rank := e.p * float64(len(sorted)-1)
		lo := int(rank)
		if lo >= len(sorted)-1 {
			return sorted[len(sorted)-1]
		}
		frac := rank - float64(lo)
		return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
	}
	return e.q[2]
}
