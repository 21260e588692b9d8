// Package testutil provides common utility functions for testing.
package testutil

import (
	"context"
	"sync"

	"github.com/iwvelando/rent-renewal/internal/indices"
	"github.com/iwvelando/rent-renewal/pkg/datetime"
)

// MonthlySeries builds a series whose last observation falls on through (dd/mm/yyyy)
// and whose earlier observations step back one month each.
func MonthlySeries(name, through string, values ...string) indices.Series {
	observations := make([]indices.Observation, len(values))
	for i, value := range values {
		period, err := datetime.OffsetDate(through, datetime.ProviderDateLayout, i-(len(values)-1))
		if err != nil {
			panic(err)
		}
		observations[i] = indices.Observation{Period: period, Value: value}
	}
	return indices.Series{Name: name, Observations: observations}
}

// StubProvider serves canned series and errors keyed by index name.
type StubProvider struct {
	Data   map[string]indices.Series
	Errors map[string]error

	// Gate, when set, blocks every call until it is closed.
	Gate chan struct{}

	mu      sync.Mutex
	windows map[string]int
}

// Series implements indices.Provider.
func (s *StubProvider) Series(ctx context.Context, name string, window int) (indices.Series, error) {
	s.mu.Lock()
	if s.windows == nil {
		s.windows = make(map[string]int)
	}
	s.windows[name] = window
	s.mu.Unlock()

	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return indices.Series{}, ctx.Err()
		}
	}

	if err, ok := s.Errors[name]; ok {
		return indices.Series{}, err
	}
	series, ok := s.Data[name]
	if !ok {
		return indices.Series{}, indices.ErrUnknownIndex
	}
	if window < len(series.Observations) {
		series.Observations = series.Observations[len(series.Observations)-window:]
	}
	return series, nil
}

// Window reports the window size last requested for name.
func (s *StubProvider) Window(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows[name]
}
