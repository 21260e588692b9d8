// Package proposal composes the renewal proposal from an index-corrected rent and a market adjustment.
package proposal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/rent-renewal/internal/indices"
	"github.com/iwvelando/rent-renewal/internal/valuation"
	"github.com/iwvelando/rent-renewal/pkg/mathutil"
)

// ValidationError reports a user input that cannot be used for a calculation.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Message)
}

// ContractAnalysis is the current rent corrected by the chosen index.
type ContractAnalysis struct {
	CurrentRent  float64 `json:"currentRent"`
	IndexName    string  `json:"indexName"`
	IndexLabel   string  `json:"indexLabel"`
	IndexPercent float64 `json:"indexPercent"`
	AdjustedRent float64 `json:"adjustedRent"`
}

// Proposal is one generated renewal proposal. A new generation supersedes it entirely.
type Proposal struct {
	ID                      string           `json:"id"`
	Contract                ContractAnalysis `json:"contract"`
	Market                  valuation.Range  `json:"market"`
	MarketAdjustmentPercent float64          `json:"marketAdjustmentPercent"`
	FinalValue              float64          `json:"finalValue"`
	Justification           string           `json:"justification,omitempty"`
	GeneratedAt             time.Time        `json:"generatedAt"`
}

// Overridable in tests.
var (
	now   = time.Now
	newID = uuid.NewString
)

// parseNumber accepts plain decimals and a lone comma as decimal separator ("2500,50").
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	s = strings.TrimSuffix(s, "%")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	if !isPlainDecimal(s) {
		return 0, false
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || !mathutil.IsFinite(value) {
		return 0, false
	}
	return value, true
}

// isPlainDecimal reports whether s is an optionally signed run of digits with at most one
// decimal point. Hex, exponent and infinity forms are refused.
func isPlainDecimal(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	digits, dots := 0, 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// ParseRent parses the current rent. It must be a positive number.
func ParseRent(raw string) (float64, error) {
	value, ok := parseNumber(raw)
	if !ok {
		return 0, &ValidationError{Field: "currentRent", Value: raw, Message: "must be a number"}
	}
	return value, ValidateRent(value)
}

// ValidateRent rejects a rent that is not strictly positive.
func ValidateRent(rent float64) error {
	if !mathutil.IsFinite(rent) || rent <= 0 {
		return &ValidationError{Field: "currentRent", Value: strconv.FormatFloat(rent, 'f', -1, 64), Message: "must be greater than zero"}
	}
	return nil
}

// ParseCustomPercent parses a user-supplied index percentage. Negative values are allowed.
func ParseCustomPercent(raw string) (float64, error) {
	value, ok := parseNumber(raw)
	if !ok {
		return 0, &ValidationError{Field: "customPercent", Value: raw, Message: "must be a number"}
	}
	return value, nil
}

// ParseMarketAdjustment falls back to 0 for an absent or unparsable value.
func ParseMarketAdjustment(raw string) float64 {
	value, ok := parseNumber(raw)
	if !ok {
		return 0
	}
	return value
}

// AnalyzeContract corrects rent by the accumulated index.
func AnalyzeContract(rent float64, index indices.Accumulated) (ContractAnalysis, error) {
	if err := ValidateRent(rent); err != nil {
		return ContractAnalysis{}, err
	}
	if !mathutil.IsFinite(index.Percent) {
		return ContractAnalysis{}, &ValidationError{Field: "indexPercent", Message: "must be a finite number"}
	}
	return ContractAnalysis{
		CurrentRent:  rent,
		IndexName:    index.Name,
		IndexLabel:   index.Label,
		IndexPercent: index.Percent,
		AdjustedRent: mathutil.ApplyPercentage(rent, index.Percent),
	}, nil
}

// Compose applies the market adjustment on top of the contract analysis.
func Compose(contract ContractAnalysis, market valuation.Range, marketAdjustment float64, justification string) (*Proposal, error) {
	if !mathutil.IsFinite(marketAdjustment) {
		marketAdjustment = 0
	}
	if err := ValidateRent(contract.CurrentRent); err != nil {
		return nil, err
	}

	return &Proposal{
		ID:                      newID(),
		Contract:                contract,
		Market:                  market,
		MarketAdjustmentPercent: marketAdjustment,
		FinalValue:              mathutil.ApplyPercentage(contract.AdjustedRent, marketAdjustment),
		Justification:           strings.TrimSpace(justification),
		GeneratedAt:             now().UTC(),
	}, nil
}

// WithinMarket reports whether the final value falls inside the estimated market band,
// compared to the cent.
func (p *Proposal) WithinMarket() bool {
	v := mathutil.Round(p.FinalValue)
	return v >= mathutil.Round(p.Market.Min) && v <= mathutil.Round(p.Market.Max)
}
