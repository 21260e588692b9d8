package valuation

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// neighborhoodAdjustments holds the fixed neighborhood offsets for Balneário Camboriú.
var neighborhoodAdjustments = map[string]float64{
	"Centro":         0.08,
	"Pioneiros":      0.10,
	"Barra Sul":      0.05,
	"Nações":         0,
	"Estados":        -0.05,
	"Municípios":     -0.05,
	"Vila Real":      -0.10,
	"Nova Esperança": -0.10,
	"Iate Clube":     -0.10,
	"Barra":          -0.10,
}

var foldedNeighborhoods = func() map[string]string {
	folded := make(map[string]string, len(neighborhoodAdjustments))
	for name := range neighborhoodAdjustments {
		folded[foldName(name)] = name
	}
	return folded
}()

// foldName lower-cases name and strips diacritics so "Nacoes" matches "Nações".
func foldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		result = strings.TrimSpace(name)
	}
	return strings.Join(strings.Fields(strings.ToLower(result)), " ")
}

// LookupNeighborhood returns the canonical name and the offset for a neighborhood.
// Unknown or empty names report ok=false and contribute nothing.
func LookupNeighborhood(name string) (canonical string, offset float64, ok bool) {
	canonical, ok = foldedNeighborhoods[foldName(name)]
	if !ok {
		return "", 0, false
	}
	return canonical, neighborhoodAdjustments[canonical], true
}

// Neighborhoods lists the known neighborhood names in alphabetical order.
func Neighborhoods() []string {
	names := make([]string, 0, len(neighborhoodAdjustments))
	for name := range neighborhoodAdjustments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
