package series

import (
	"sort"

	"github.com/rxtech-lab/argo-fleet/internal/types"
)

// Series stores the bar history for a single symbol using a sliding window.
// It keeps a fixed-size window ordered by bar time (oldest first), automatically
// evicting the oldest entries when the window reaches capacity. A bar delivered
// with a start time already present overwrites the stored bar rather than
// appending a duplicate.
type Series struct {
	maxSize int
	// bars is ordered by time (oldest first)
	bars []types.Bar
}

// NewSeries creates a new Series with the specified maximum number of bars.
func NewSeries(maxSize int) *Series {
	return &Series{
		maxSize: maxSize,
		bars:    make([]types.Bar, 0, maxSize),
	}
}

// Add inserts a bar into the series. If the series exceeds maxSize, the oldest
// entry is evicted.
// Optimized for the common case where bars arrive in chronological order.
func (s *Series) Add(bar types.Bar) {
	if s.maxSize <= 0 {
		return
	}

	// Fast path: chronological append (common case on a live feed)
	if len(s.bars) > 0 {
		lastTime := s.bars[len(s.bars)-1].Time
		if bar.Time.After(lastTime) {
			s.bars = append(s.bars, bar)
			// Evict oldest if over capacity
			if len(s.bars) > s.maxSize {
				s.bars = s.bars[1:]
			}

			return
		}

		if bar.Time.Equal(lastTime) {
			// Redelivered bar, overwrite in place
			s.bars[len(s.bars)-1] = bar

			return
		}
	} else {
		s.bars = append(s.bars, bar)

		return
	}

	// Slow path: out-of-order insertion
	insertIdx := sort.Search(len(s.bars), func(i int) bool {
		return s.bars[i].Time.After(bar.Time) || s.bars[i].Time.Equal(bar.Time)
	})

	if insertIdx < len(s.bars) && s.bars[insertIdx].Time.Equal(bar.Time) {
		// Overwrite existing entry at the same time
		s.bars[insertIdx] = bar

		return
	}

	s.bars = append(s.bars, types.Bar{}) //nolint:exhaustruct // placeholder for slice expansion
	copy(s.bars[insertIdx+1:], s.bars[insertIdx:])
	s.bars[insertIdx] = bar

	// Evict oldest entries if over capacity
	if len(s.bars) > s.maxSize {
		s.bars = s.bars[len(s.bars)-s.maxSize:]
	}
}

// Len returns the number of bars currently held.
func (s *Series) Len() int {
	return len(s.bars)
}

// Last returns the most recent bar and whether one exists.
func (s *Series) Last() (types.Bar, bool) {
	if len(s.bars) == 0 {
		return types.Bar{}, false //nolint:exhaustruct // zero value on empty series
	}

	return s.bars[len(s.bars)-1], true
}

// Closes returns the close prices of the most recent n bars, oldest first.
// If fewer than n bars are held, all of them are returned.
func (s *Series) Closes(n int) []float64 {
	if n > len(s.bars) {
		n = len(s.bars)
	}

	closes := make([]float64, 0, n)
	for _, bar := range s.bars[len(s.bars)-n:] {
		closes = append(closes, bar.Close)
	}

	return closes
}

// Bars returns a copy of all bars currently held, oldest first.
func (s *Series) Bars() []types.Bar {
	out := make([]types.Bar, len(s.bars))
	copy(out, s.bars)

	return out
}
