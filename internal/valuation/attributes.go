// Package valuation estimates a market rent range from property attributes.
package valuation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/rent-renewal/pkg/mathutil"
)

// ErrInvalidAttributes wraps every attribute validation failure.
var ErrInvalidAttributes = errors.New("invalid property attributes")

// PropertyType is the kind of dwelling.
type PropertyType string

const (
	House     PropertyType = "house"
	Apartment PropertyType = "apartment"
)

// Furnishing describes what comes with the unit.
type Furnishing string

const (
	Furnished     Furnishing = "furnished"
	SemiFurnished Furnishing = "semi"
	Unfurnished   Furnishing = "unfurnished"
	Decorated     Furnishing = "decorated"
)

// Balcony describes the balcony, if any.
type Balcony string

const (
	BarbecueBalcony   Balcony = "barbecue"
	NoBarbecueBalcony Balcony = "no-barbecue"
	NoBalcony         Balcony = "none"
)

// Floor is the floor class of the unit.
type Floor string

const (
	LowFloor      Floor = "low"
	HighFloor     Floor = "high"
	HighFloorView Floor = "high-view"
	LowFloorView  Floor = "low-view"
)

// Amenities is the building's leisure infrastructure level.
type Amenities string

const (
	FullAmenities    Amenities = "full"
	PartialAmenities Amenities = "partial"
	NoAmenities      Amenities = "none"
)

// QualityTier is the finish standard. It selects the base price and also adjusts it.
type QualityTier string

const (
	HighTier   QualityTier = "high"
	MediumTier QualityTier = "medium"
	LowTier    QualityTier = "low"
)

// DistanceTier is the ordinal proximity to the reference point, 1 being closest.
type DistanceTier string

const (
	Tier1   DistanceTier = "1"
	Tier2   DistanceTier = "2"
	Tier3   DistanceTier = "3"
	Tier4   DistanceTier = "4"
	Farther DistanceTier = "farther"
)

// BuildingAge is the age class of the building.
type BuildingAge string

const (
	NewBuilding BuildingAge = "new"
	OldBuilding BuildingAge = "old"
)

// Accepted spellings, including the Portuguese form values.
var (
	propertyTypeAliases = map[string]PropertyType{
		"house": House, "casa": House,
		"apartment": Apartment, "apartamento": Apartment, "apto": Apartment,
	}
	furnishingAliases = map[string]Furnishing{
		"furnished": Furnished, "mobiliado": Furnished,
		"semi": SemiFurnished, "semi-furnished": SemiFurnished, "semi-mobiliado": SemiFurnished,
		"unfurnished": Unfurnished, "nao": Unfurnished, "não": Unfurnished,
		"decorated": Decorated, "decorado": Decorated,
	}
	balconyAliases = map[string]Balcony{
		"barbecue": BarbecueBalcony, "com churrasqueira": BarbecueBalcony,
		"no-barbecue": NoBarbecueBalcony, "sem churrasqueira": NoBarbecueBalcony,
		"none": NoBalcony, "sem sacada": NoBalcony,
	}
	floorAliases = map[string]Floor{
		"low": LowFloor, "baixo": LowFloor,
		"high": HighFloor, "alto": HighFloor,
		"high-view": HighFloorView, "alto_vista": HighFloorView,
		"low-view": LowFloorView, "baixo_vista": LowFloorView,
	}
	amenitiesAliases = map[string]Amenities{
		"full": FullAmenities, "completo": FullAmenities,
		"partial": PartialAmenities, "parcial": PartialAmenities,
		"none": NoAmenities, "nenhum": NoAmenities,
	}
	tierAliases = map[string]QualityTier{
		"high": HighTier, "alto": HighTier,
		"medium": MediumTier, "medio": MediumTier, "médio": MediumTier,
		"low": LowTier, "baixo": LowTier,
	}
	distanceAliases = map[string]DistanceTier{
		"1": Tier1, "2": Tier2, "3": Tier3, "4": Tier4,
		"farther": Farther, "mais": Farther,
	}
	ageAliases = map[string]BuildingAge{
		"new": NewBuilding, "novo": NewBuilding,
		"old": OldBuilding, "antigo": OldBuilding,
	}
)

func resolve[T ~string](aliases map[string]T, kind, value string) (T, error) {
	if v, ok := aliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("%w: unknown %s %q", ErrInvalidAttributes, kind, value)
}

func (v *PropertyType) UnmarshalText(b []byte) (err error) {
	*v, err = resolve(propertyTypeAliases, "property type", string(b))
	return err
}

func (v *Furnishing) UnmarshalText(b []byte) (err error) {
	*v, err = resolve(furnishingAliases, "furnishing", string(b))
	return err
}

func (v *Balcony) UnmarshalText(b []byte) (err error) {
	*v, err = resolve(balconyAliases, "balcony", string(b))
	return err
}

func (v *Floor) UnmarshalText(b []byte) (err error) {
	*v, err = resolve(floorAliases, "floor", string(b))
	return err
}

func (v *Amenities) UnmarshalText(b []byte) (err error) {
	*v, err = resolve(amenitiesAliases, "amenities", string(b))
	return err
}

func (v *QualityTier) UnmarshalText(b []byte) (err error) {
	*v, err = resolve(tierAliases, "finish standard", string(b))
	return err
}

func (v *DistanceTier) UnmarshalText(b []byte) (err error) {
	*v, err = resolve(distanceAliases, "distance tier", string(b))
	return err
}

func (v *BuildingAge) UnmarshalText(b []byte) (err error) {
	*v, err = resolve(ageAliases, "building age", string(b))
	return err
}

// Attributes is the immutable description of a property. Edits produce a new value.
type Attributes struct {
	Type         PropertyType `json:"type"`
	Area         float64      `json:"area"`
	Bedrooms     int          `json:"bedrooms"`
	Suites       int          `json:"suites"`
	Furnishing   Furnishing   `json:"furnishing"`
	Balcony      Balcony      `json:"balcony"`
	Floor        Floor        `json:"floor"`
	Elevator     bool         `json:"elevator"`
	ParkingSlots int          `json:"parkingSlots"`
	Amenities    Amenities    `json:"amenities"`
	Finish       QualityTier  `json:"finish"`
	Distance     DistanceTier `json:"distance"`
	BuildingAge  BuildingAge  `json:"buildingAge"`
	Neighborhood string       `json:"neighborhood,omitempty"`
}

// DefaultAttributes mirrors the initial state of the evaluation form.
func DefaultAttributes() Attributes {
	return Attributes{
		Type:         Apartment,
		Area:         100,
		Bedrooms:     3,
		Suites:       1,
		Furnishing:   Furnished,
		Balcony:      BarbecueBalcony,
		Floor:        LowFloor,
		Elevator:     true,
		ParkingSlots: 1,
		Amenities:    FullAmenities,
		Finish:       MediumTier,
		Distance:     Tier1,
		BuildingAge:  NewBuilding,
	}
}

// DecodeAttributes reads a JSON document on top of the defaults, so absent fields keep
// their default value, and validates the result.
func DecodeAttributes(r io.Reader) (Attributes, error) {
	attrs := DefaultAttributes()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&attrs); err != nil && !errors.Is(err, io.EOF) {
		return Attributes{}, fmt.Errorf("%w: %v", ErrInvalidAttributes, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Attributes{}, fmt.Errorf("%w: unexpected data after the attributes document", ErrInvalidAttributes)
	}
	if err := attrs.Validate(); err != nil {
		return Attributes{}, err
	}
	return attrs, nil
}

// WithNeighborhood returns a copy of a with the neighborhood replaced.
func (a Attributes) WithNeighborhood(neighborhood string) Attributes {
	a.Neighborhood = strings.TrimSpace(neighborhood)
	return a
}

// Validate checks numeric ranges and that every categorical field holds a known value.
func (a Attributes) Validate() error {
	if !(a.Area > 0) || !mathutil.IsFinite(a.Area) {
		return fmt.Errorf("%w: area must be a positive finite number, got %v", ErrInvalidAttributes, a.Area)
	}
	if a.Bedrooms < 0 || a.Suites < 0 || a.ParkingSlots < 0 {
		return fmt.Errorf("%w: counts must not be negative", ErrInvalidAttributes)
	}

	checks := []struct {
		kind  string
		value string
		ok    bool
	}{
		{"property type", string(a.Type), a.Type == House || a.Type == Apartment},
		{"furnishing", string(a.Furnishing), containsValue(furnishingAliases, a.Furnishing)},
		{"balcony", string(a.Balcony), containsValue(balconyAliases, a.Balcony)},
		{"floor", string(a.Floor), containsValue(floorAliases, a.Floor)},
		{"amenities", string(a.Amenities), containsValue(amenitiesAliases, a.Amenities)},
		{"finish standard", string(a.Finish), containsValue(tierAliases, a.Finish)},
		{"distance tier", string(a.Distance), containsValue(distanceAliases, a.Distance)},
		{"building age", string(a.BuildingAge), containsValue(ageAliases, a.BuildingAge)},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: unknown %s %q", ErrInvalidAttributes, c.kind, c.value)
		}
	}
	return nil
}

func containsValue[T comparable](aliases map[string]T, value T) bool {
	for _, v := range aliases {
		if v == value {
			return true
		}
	}
	return false
}
