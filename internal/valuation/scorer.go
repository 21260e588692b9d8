package valuation

import (
	"fmt"

	"github.com/iwvelando/rent-renewal/pkg/mathutil"
)

const (
	// AreaDiscountThreshold is the area above which larger units lose price per area.
	AreaDiscountThreshold = 100.0
	// AreaDiscountPerUnit is the discount per area unit beyond the threshold.
	AreaDiscountPerUnit = 0.0032
	// BandHalfWidth is the symmetric uncertainty around the adjusted base value.
	BandHalfWidth = 0.05

	oldApartmentBasePrice = 53.0
)

var basePrices = map[PropertyType]map[QualityTier]float64{
	House:     {HighTier: 80, MediumTier: 50, LowTier: 35},
	Apartment: {HighTier: 90, MediumTier: 45, LowTier: 30},
}

// Adjustment is one attribute's contribution to the net adjustment factor.
type Adjustment struct {
	Factor string  `json:"factor"`
	Amount float64 `json:"amount"`
}

// Range is the estimated market rent band together with the figures that produced it.
type Range struct {
	Min              float64      `json:"min"`
	Max              float64      `json:"max"`
	BasePricePerArea float64      `json:"basePricePerArea"`
	AreaDiscount     float64      `json:"areaDiscount"`
	BaseValue        float64      `json:"baseValue"`
	NetAdjustment    float64      `json:"netAdjustment"`
	Adjustments      []Adjustment `json:"adjustments,omitempty"`
	Neighborhood     string       `json:"neighborhood,omitempty"`
	// Clamped is true when a negative figure was floored at zero.
	Clamped bool `json:"clamped"`
}

// Midpoint is the centre of the band.
func (r Range) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

// BasePricePerArea selects the price per area unit for the type and finish standard.
// Old apartments use a flat price regardless of finish.
func BasePricePerArea(a Attributes) float64 {
	if a.Type == Apartment && a.BuildingAge == OldBuilding {
		return oldApartmentBasePrice
	}
	return basePrices[a.Type][a.Finish]
}

// AreaDiscount is 1 up to the threshold and decays linearly beyond it, never below 0.
func AreaDiscount(area float64) float64 {
	if area <= AreaDiscountThreshold {
		return 1
	}
	return mathutil.Max(0, 1-AreaDiscountPerUnit*(area-AreaDiscountThreshold))
}

func furnishingAdjustment(f Furnishing) float64 {
	switch f {
	case SemiFurnished:
		return -0.30
	case Unfurnished:
		return -0.15
	case Decorated:
		return 0.10
	}
	return 0
}

func balconyAdjustment(b Balcony) float64 {
	switch b {
	case NoBarbecueBalcony:
		return -0.07
	case NoBalcony:
		return -0.10
	}
	return 0
}

func floorAdjustment(f Floor) float64 {
	switch f {
	case HighFloor:
		return 0.07
	case HighFloorView:
		return 0.12
	case LowFloorView:
		return 0.05
	}
	return 0
}

func elevatorAdjustment(present bool) float64 {
	if present {
		return 0
	}
	return -0.07
}

func parkingAdjustment(slots int) float64 {
	switch {
	case slots <= 0:
		return -0.10
	case slots == 2:
		return 0.05
	case slots >= 3:
		return 0.10
	}
	return 0
}

func amenitiesAdjustment(a Amenities) float64 {
	switch a {
	case NoAmenities:
		return -0.05
	case PartialAmenities:
		return -0.02
	}
	return 0
}

func finishAdjustment(t QualityTier) float64 {
	switch t {
	case HighTier:
		return 0.15
	case LowTier:
		return -0.10
	}
	return 0
}

// A studio with no bedrooms falls through to no contribution.
func bedroomsAdjustment(n int) float64 {
	switch {
	case n == 1:
		return -0.10
	case n == 2:
		return -0.05
	case n >= 4:
		return 0.05
	}
	return 0
}

func suitesAdjustment(n int) float64 {
	switch {
	case n <= 0:
		return -0.09
	case n == 1:
		return -0.06
	case n == 2:
		return -0.03
	case n >= 4:
		return 0.05
	}
	return 0
}

func distanceAdjustment(d DistanceTier) float64 {
	switch d {
	case Tier1:
		return 0.10
	case Tier2:
		return 0.075
	case Tier3:
		return 0.05
	case Farther:
		return -0.05
	}
	return 0
}

// Adjustments lists every non-zero attribute contribution in a stable order.
func Adjustments(a Attributes) []Adjustment {
	_, neighborhood, _ := LookupNeighborhood(a.Neighborhood)

	all := []Adjustment{
		{"furnishing", furnishingAdjustment(a.Furnishing)},
		{"balcony", balconyAdjustment(a.Balcony)},
		{"floor", floorAdjustment(a.Floor)},
		{"elevator", elevatorAdjustment(a.Elevator)},
		{"parking", parkingAdjustment(a.ParkingSlots)},
		{"amenities", amenitiesAdjustment(a.Amenities)},
		{"finish", finishAdjustment(a.Finish)},
		{"bedrooms", bedroomsAdjustment(a.Bedrooms)},
		{"suites", suitesAdjustment(a.Suites)},
		{"distance", distanceAdjustment(a.Distance)},
		{"neighborhood", neighborhood},
	}

	contributions := all[:0]
	for _, adj := range all {
		if adj.Amount != 0 {
			contributions = append(contributions, adj)
		}
	}
	return contributions
}

// NetAdjustment sums the attribute contributions.
func NetAdjustment(a Attributes) float64 {
	var net float64
	for _, adj := range Adjustments(a) {
		net += adj.Amount
	}
	return net
}

// Score estimates the market rent range for a.
func Score(a Attributes) (Range, error) {
	if err := a.Validate(); err != nil {
		return Range{}, err
	}

	adjustments := Adjustments(a)
	net := NetAdjustment(a)

	price := BasePricePerArea(a)
	discount := AreaDiscount(a.Area)
	var baseValue float64
	if discount > 0 {
		baseValue = a.Area * price * discount
	}
	if !mathutil.IsFinite(baseValue) {
		return Range{}, fmt.Errorf("%w: area %v is out of range", ErrInvalidAttributes, a.Area)
	}

	r := Range{
		BasePricePerArea: price,
		AreaDiscount:     discount,
		BaseValue:        baseValue,
		NetAdjustment:    net,
		Adjustments:      adjustments,
		Min:              baseValue * (1 + net - BandHalfWidth),
		Max:              baseValue * (1 + net + BandHalfWidth),
	}
	if canonical, _, ok := LookupNeighborhood(a.Neighborhood); ok {
		r.Neighborhood = canonical
	}

	r.Clamped = a.Area > AreaDiscountThreshold && 1-AreaDiscountPerUnit*(a.Area-AreaDiscountThreshold) < 0
	if r.Min < 0 {
		r.Min = 0
		r.Clamped = true
	}
	if r.Max < 0 {
		r.Max = 0
		r.Clamped = true
	}
	if !mathutil.IsFinite(r.Min) || !mathutil.IsFinite(r.Max) {
		return Range{}, fmt.Errorf("%w: range is not finite", ErrInvalidAttributes)
	}
	if r.Min > r.Max {
		return Range{}, fmt.Errorf("valuation produced an inverted range %v > %v", r.Min, r.Max)
	}
	return r, nil
}
