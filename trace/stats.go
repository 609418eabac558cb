//go:build !tinygo

package trace

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// Summary counts the time slices each thread was given.
type Summary struct {
	Slices  map[int]int
	Events  int
	Dropped uint64
}

// Add accounts one event.
func (s *Summary) Add(ev Event) {
	if s.Slices == nil {
		s.Slices = make(map[int]int)
	}
	s.Slices[int(ev.To)]++
	s.Events++
}

// AddAll accounts every event in evs.
func (s *Summary) AddAll(evs []Event) {
	for _, ev := range evs {
		s.Add(ev)
	}
}

// IDs returns the thread IDs seen, in ascending order.
func (s *Summary) IDs() []int {
	ids := maps.Keys(s.Slices)
	slices.Sort(ids)
	return ids
}

func (s *Summary) counts(skip []int) []float64 {
	var xs []float64
	for _, id := range s.IDs() {
		if slices.Contains(skip, id) {
			continue
		}
		xs = append(xs, float64(s.Slices[id]))
	}
	return xs
}

// Fairness returns the mean and standard deviation of the slice counts of
// every thread not in skip. A perfect round robin over complete rounds has a
// standard deviation of 0.
func (s *Summary) Fairness(skip ...int) (mean, std float64) {
	xs := s.counts(skip)
	if len(xs) < 2 {
		if len(xs) == 1 {
			return xs[0], 0
		}
		return 0, 0
	}
	return stat.MeanStdDev(xs, nil)
}

// Spread returns the difference between the most and least scheduled thread
// not in skip.
func (s *Summary) Spread(skip ...int) int {
	xs := s.counts(skip)
	if len(xs) == 0 {
		return 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return int(hi - lo)
}
