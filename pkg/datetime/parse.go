// Package datetime provides date and time utility functions.
package datetime

import (
	"time"

	"github.com/iwvelando/rent-renewal/pkg/constants"
)

const (
	// MonthKeyLayout is the yyyy-mm ordering key for monthly observations.
	MonthKeyLayout = constants.MonthKeyLayout

	// ProviderDateLayout is the dd/mm/yyyy layout used by the index provider.
	ProviderDateLayout = constants.ProviderDateLayout
)

// ParseProviderDate parses a provider period such as "01/09/2025".
func ParseProviderDate(date string) (time.Time, error) {
	return time.Parse(ProviderDateLayout, date)
}

// MonthKey converts a provider period into its yyyy-mm key.
func MonthKey(date string) (string, error) {
	t, err := ParseProviderDate(date)
	if err != nil {
		return "", err
	}
	return t.Format(MonthKeyLayout), nil
}

// OffsetDate returns the string-formatted date offset by the given number of
// months relative to the given date.
func OffsetDate(date, layout string, months int) (string, error) {
	t, err := time.Parse(layout, date)
	if err != nil {
		return date, err
	}
	return t.AddDate(0, months, 0).Format(layout), nil
}
