package indices

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/rent-renewal/pkg/datetime"
	"github.com/iwvelando/rent-renewal/pkg/mathutil"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Observation is one monthly percentage change as published by the provider.
type Observation struct {
	Period string `json:"data"`
	Value  string `json:"valor"`
}

// MonthKey returns the yyyy-mm key of the observation.
func (o Observation) MonthKey() (string, error) {
	return datetime.MonthKey(o.Period)
}

// Percent parses the observation value as a finite decimal percentage.
func (o Observation) Percent() (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(o.Value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: value %q for period %q", ErrMalformedObservation, o.Value, o.Period)
	}
	if f, _ := v.Float64(); !mathutil.IsFinite(f) {
		return decimal.Zero, fmt.Errorf("%w: value %q for period %q is out of range", ErrMalformedObservation, o.Value, o.Period)
	}
	return v, nil
}

// Series is the ordered window of observations for one index.
type Series struct {
	Name         string        `json:"name"`
	Observations []Observation `json:"observations"`
}

// Sorted returns the observations in chronological order without modifying the series.
func (s Series) Sorted() ([]Observation, error) {
	type keyed struct {
		key string
		obs Observation
	}
	items := make([]keyed, 0, len(s.Observations))
	for _, obs := range s.Observations {
		key, err := obs.MonthKey()
		if err != nil {
			return nil, fmt.Errorf("%w: period %q: %v", ErrMalformedObservation, obs.Period, err)
		}
		items = append(items, keyed{key: key, obs: obs})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].key < items[j].key
	})

	sorted := make([]Observation, len(items))
	for i, item := range items {
		sorted[i] = item.obs
	}
	return sorted, nil
}

// Accumulate compounds monthly percentage changes into one accumulated percentage:
//
//	accumulated = (PROD(1 + v/100) - 1) * 100
//
// A zero result is legitimate; an empty or unparsable series is an error.
func Accumulate(observations []Observation) (float64, error) {
	if len(observations) == 0 {
		return 0, ErrEmptySeries
	}

	factor := one
	for _, obs := range observations {
		v, err := obs.Percent()
		if err != nil {
			return 0, err
		}
		factor = factor.Mul(one.Add(v.Shift(-2)))
	}

	accumulated, _ := factor.Sub(one).Mul(hundred).Float64()
	if !mathutil.IsFinite(accumulated) {
		return 0, fmt.Errorf("%w: accumulated value is out of range", ErrMalformedObservation)
	}
	return accumulated, nil
}

// Latest returns the most recent monthly value unchanged.
func Latest(observations []Observation) (float64, error) {
	switch len(observations) {
	case 0:
		return 0, ErrEmptySeries
	case 1:
		return latestValue(observations[0])
	}

	sorted, err := Series{Observations: observations}.Sorted()
	if err != nil {
		return 0, err
	}
	return latestValue(sorted[len(sorted)-1])
}

func latestValue(obs Observation) (float64, error) {
	v, err := obs.Percent()
	if err != nil {
		return 0, err
	}
	f, _ := v.Float64()
	if !mathutil.IsFinite(f) {
		return 0, fmt.Errorf("%w: value %q is out of range", ErrMalformedObservation, obs.Value)
	}
	return f, nil
}
