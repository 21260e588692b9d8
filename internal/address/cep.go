// Package address validates postal codes against the covered municipalities and resolves them
// to street addresses.
package address

import (
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrMalformedCEP is returned when a CEP does not have exactly eight digits.
	ErrMalformedCEP = errors.New("malformed CEP")

	// ErrOutsideCoverage is returned for a CEP outside every covered municipality.
	ErrOutsideCoverage = errors.New("CEP outside covered municipalities")

	// ErrNotFound is returned when the lookup service has no address for the CEP.
	ErrNotFound = errors.New("CEP not found")

	// ErrUpstream is returned when the lookup service fails.
	ErrUpstream = errors.New("address lookup unavailable")
)

// IsLookupMiss reports whether err only means the CEP could not be resolved. Such misses
// leave the address fields empty and never block the rest of the evaluation.
func IsLookupMiss(err error) bool {
	return errors.Is(err, ErrMalformedCEP) || errors.Is(err, ErrOutsideCoverage) || errors.Is(err, ErrNotFound)
}

// CEPRange is an inclusive range of eight-digit CEPs belonging to one municipality.
type CEPRange struct {
	Municipality string
	First        string
	Last         string
}

func (r CEPRange) contains(cep string) bool {
	// Eight-digit strings compare lexically in numeric order.
	return cep >= r.First && cep <= r.Last
}

// CoveredRanges lists the municipalities the service operates in.
var CoveredRanges = []CEPRange{
	{Municipality: "Itajaí", First: "88300001", Last: "88319999"},
	{Municipality: "Camboriú", First: "88340001", Last: "88349999"},
	{Municipality: "Itapema", First: "88220000", Last: "88229999"},
	{Municipality: "Porto Belo", First: "88210000", Last: "88214999"},
	{Municipality: "Balneário Camboriú", First: "88330001", Last: "88339999"},
}

// Normalize strips everything but digits, so "88330-000" becomes "88330000".
func Normalize(cep string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return -1
		}
		return r
	}, cep)
}

// Municipality returns the covered municipality a CEP belongs to.
func Municipality(cep string) (string, error) {
	digits := Normalize(cep)
	if len(digits) != 8 {
		return "", ErrMalformedCEP
	}
	for _, r := range CoveredRanges {
		if r.contains(digits) {
			return r.Municipality, nil
		}
	}
	return "", ErrOutsideCoverage
}

// Validate checks a CEP is well formed and covered, returning its normalized form.
func Validate(cep string) (string, error) {
	if _, err := Municipality(cep); err != nil {
		return "", err
	}
	return Normalize(cep), nil
}
