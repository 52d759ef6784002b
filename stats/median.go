// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package stats

// Median3 filters single-sample spikes by reporting the median of the last
// three readings.
type Median3 struct {
	vals [3]float64
	next int
	n    int
}

// Push records a reading and returns the current median.
func (m *Median3) Push(v float64) float64 {
	m.vals[m.next] = v
	m.next = (m.next + 1) % len(m.vals)
	if m.n < len(m.vals) {
		m.n++
	}
	return m.Median()
}

// Median returns the median of the readings seen so far. With fewer than three
// readings it returns the most recent one.
func (m *Median3) Median() float64 {
	if m.n < len(m.vals) {
		return m.vals[(m.next+len(m.vals)-1)%len(m.vals)]
	}
	a, b, c := m.vals[0], m.vals[1], m.vals[2]
	switch {
	case a <= b && a <= c:
		return min(b, c)
	case b <= a && b <= c:
		return min(a, c)
	default:
		return min(a, b)
	}
}
