package valuation

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// neutralHouse is a medium-standard house whose every attribute contributes nothing.
func neutralHouse() Attributes {
	return Attributes{
		Type:         House,
		Area:         100,
		Bedrooms:     3,
		Suites:       3,
		Furnishing:   Furnished,
		Balcony:      BarbecueBalcony,
		Floor:        LowFloor,
		Elevator:     true,
		ParkingSlots: 1,
		Amenities:    FullAmenities,
		Finish:       MediumTier,
		Distance:     Tier4,
		BuildingAge:  NewBuilding,
	}
}

func TestScoreNeutralHouse(t *testing.T) {
	r, err := Score(neutralHouse())
	require.NoError(t, err)

	assert.Equal(t, 0.0, r.NetAdjustment)
	assert.Empty(t, r.Adjustments)
	assert.Equal(t, 50.0, r.BasePricePerArea)
	assert.Equal(t, 1.0, r.AreaDiscount)
	assert.InDelta(t, 5000, r.BaseValue, 1e-9)
	assert.InDelta(t, 4750, r.Min, 1e-9)
	assert.InDelta(t, 5250, r.Max, 1e-9)
	assert.InDelta(t, 5000, r.Midpoint(), 1e-9)
	assert.False(t, r.Clamped)
}

func TestScoreDefaults(t *testing.T) {
	r, err := Score(DefaultAttributes())
	require.NoError(t, err)

	// One suite costs 6% and the first distance tier adds 10%.
	assert.InDelta(t, 0.04, r.NetAdjustment, 1e-12)
	assert.InDelta(t, 4500, r.BaseValue, 1e-9)
	assert.InDelta(t, 4455, r.Min, 1e-9)
	assert.InDelta(t, 4905, r.Max, 1e-9)
	assert.Len(t, r.Adjustments, 2)
}

func TestBasePricePerArea(t *testing.T) {
	tests := []struct {
		name     string
		typ      PropertyType
		tier     QualityTier
		age      BuildingAge
		expected float64
	}{
		{"House high", House, HighTier, NewBuilding, 80},
		{"House medium", House, MediumTier, NewBuilding, 50},
		{"House low", House, LowTier, NewBuilding, 35},
		{"Old house keeps its tier price", House, LowTier, OldBuilding, 35},
		{"Apartment high", Apartment, HighTier, NewBuilding, 90},
		{"Apartment medium", Apartment, MediumTier, NewBuilding, 45},
		{"Apartment low", Apartment, LowTier, NewBuilding, 30},
		{"Old apartment high ignores tier", Apartment, HighTier, OldBuilding, 53},
		{"Old apartment low ignores tier", Apartment, LowTier, OldBuilding, 53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := DefaultAttributes()
			a.Type, a.Finish, a.BuildingAge = tt.typ, tt.tier, tt.age
			assert.Equal(t, tt.expected, BasePricePerArea(a))
		})
	}
}

func TestAreaDiscount(t *testing.T) {
	tests := []struct {
		area     float64
		expected float64
	}{
		{50, 1},
		{100, 1},
		{101, 0.9968},
		{200, 0.68},
		{412.5, 0},
		{600, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, AreaDiscount(tt.area), 1e-9, "area %v", tt.area)
	}
}

func TestAdjustmentContributions(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Attributes)
		expected float64
	}{
		{"Semi furnished", func(a *Attributes) { a.Furnishing = SemiFurnished }, -0.30},
		{"Unfurnished", func(a *Attributes) { a.Furnishing = Unfurnished }, -0.15},
		{"Decorated", func(a *Attributes) { a.Furnishing = Decorated }, 0.10},
		{"Balcony without barbecue", func(a *Attributes) { a.Balcony = NoBarbecueBalcony }, -0.07},
		{"No balcony", func(a *Attributes) { a.Balcony = NoBalcony }, -0.10},
		{"High floor", func(a *Attributes) { a.Floor = HighFloor }, 0.07},
		{"High floor with view", func(a *Attributes) { a.Floor = HighFloorView }, 0.12},
		{"Low floor with view", func(a *Attributes) { a.Floor = LowFloorView }, 0.05},
		{"No elevator", func(a *Attributes) { a.Elevator = false }, -0.07},
		{"No parking", func(a *Attributes) { a.ParkingSlots = 0 }, -0.10},
		{"Two parking slots", func(a *Attributes) { a.ParkingSlots = 2 }, 0.05},
		{"Five parking slots", func(a *Attributes) { a.ParkingSlots = 5 }, 0.10},
		{"No amenities", func(a *Attributes) { a.Amenities = NoAmenities }, -0.05},
		{"Partial amenities", func(a *Attributes) { a.Amenities = PartialAmenities }, -0.02},
		{"High finish", func(a *Attributes) { a.Finish = HighTier }, 0.15},
		{"Low finish", func(a *Attributes) { a.Finish = LowTier }, -0.10},
		{"Studio", func(a *Attributes) { a.Bedrooms = 0 }, 0},
		{"One bedroom", func(a *Attributes) { a.Bedrooms = 1 }, -0.10},
		{"Two bedrooms", func(a *Attributes) { a.Bedrooms = 2 }, -0.05},
		{"Six bedrooms", func(a *Attributes) { a.Bedrooms = 6 }, 0.05},
		{"No suites", func(a *Attributes) { a.Suites = 0 }, -0.09},
		{"One suite", func(a *Attributes) { a.Suites = 1 }, -0.06},
		{"Two suites", func(a *Attributes) { a.Suites = 2 }, -0.03},
		{"Four suites", func(a *Attributes) { a.Suites = 4 }, 0.05},
		{"Tier 1", func(a *Attributes) { a.Distance = Tier1 }, 0.10},
		{"Tier 2", func(a *Attributes) { a.Distance = Tier2 }, 0.075},
		{"Tier 3", func(a *Attributes) { a.Distance = Tier3 }, 0.05},
		{"Farther", func(a *Attributes) { a.Distance = Farther }, -0.05},
		{"Pioneiros", func(a *Attributes) { a.Neighborhood = "Pioneiros" }, 0.10},
		{"Centro lower case", func(a *Attributes) { a.Neighborhood = "centro" }, 0.08},
		{"Municipios without accent", func(a *Attributes) { a.Neighborhood = "MUNICIPIOS" }, -0.05},
		{"Nova Esperanca extra spaces", func(a *Attributes) { a.Neighborhood = "  nova   esperanca " }, -0.10},
		{"Unknown neighborhood", func(a *Attributes) { a.Neighborhood = "Praia Brava" }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := neutralHouse()
			tt.mutate(&a)
			assert.InDelta(t, tt.expected, NetAdjustment(a), 1e-12)
		})
	}
}

func TestAdjustmentsCommute(t *testing.T) {
	a := neutralHouse()
	a.Furnishing = Decorated
	a.Floor = HighFloorView
	a.ParkingSlots = 0
	a.Neighborhood = "Barra Sul"

	var sum float64
	adjustments := Adjustments(a)
	for i := len(adjustments) - 1; i >= 0; i-- {
		sum += adjustments[i].Amount
	}
	assert.InDelta(t, NetAdjustment(a), sum, 1e-12)
	assert.InDelta(t, 0.17, sum, 1e-12)
}

func TestScoreClampsAtZero(t *testing.T) {
	worst := Attributes{
		Type:         House,
		Area:         100,
		Bedrooms:     1,
		Suites:       0,
		Furnishing:   SemiFurnished,
		Balcony:      NoBalcony,
		Floor:        LowFloor,
		Elevator:     false,
		ParkingSlots: 0,
		Amenities:    NoAmenities,
		Finish:       LowTier,
		Distance:     Farther,
		BuildingAge:  NewBuilding,
		Neighborhood: "Vila Real",
	}

	r, err := Score(worst)
	require.NoError(t, err)
	assert.InDelta(t, -1.06, r.NetAdjustment, 1e-12)
	assert.Equal(t, 0.0, r.Min)
	assert.Equal(t, 0.0, r.Max)
	assert.True(t, r.Clamped)

	huge := neutralHouse()
	huge.Area = 500
	r, err = Score(huge)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.AreaDiscount)
	assert.Equal(t, 0.0, r.Max)
	assert.True(t, r.Clamped)
}

func TestScoreHugeAreaStaysFinite(t *testing.T) {
	a, err := DecodeAttributes(strings.NewReader(`{"area":1e307}`))
	require.NoError(t, err)

	r, err := Score(a)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.BaseValue)
	assert.Equal(t, 0.0, r.Min)
	assert.Equal(t, 0.0, r.Max)
	assert.LessOrEqual(t, r.Min, r.Max)
	assert.True(t, r.Clamped)

	_, err = json.Marshal(r)
	assert.NoError(t, err)
}

func TestScoreRejectsInvalidAttributes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Attributes)
	}{
		{"Zero area", func(a *Attributes) { a.Area = 0 }},
		{"Negative area", func(a *Attributes) { a.Area = -10 }},
		{"Negative bedrooms", func(a *Attributes) { a.Bedrooms = -1 }},
		{"Unknown type", func(a *Attributes) { a.Type = "castle" }},
		{"Empty finish", func(a *Attributes) { a.Finish = "" }},
		{"Infinite area", func(a *Attributes) { a.Area = math.Inf(1) }},
		{"NaN area", func(a *Attributes) { a.Area = math.NaN() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := DefaultAttributes()
			tt.mutate(&a)
			_, err := Score(a)
			assert.ErrorIs(t, err, ErrInvalidAttributes)
		})
	}
}

func TestScoreReportsCanonicalNeighborhood(t *testing.T) {
	r, err := Score(DefaultAttributes().WithNeighborhood(" nacoes "))
	require.NoError(t, err)
	assert.Equal(t, "Nações", r.Neighborhood)

	canonical, offset, ok := LookupNeighborhood("IATE clube")
	assert.True(t, ok)
	assert.Equal(t, "Iate Clube", canonical)
	assert.Equal(t, -0.10, offset)

	_, _, ok = LookupNeighborhood("")
	assert.False(t, ok)
	assert.Len(t, Neighborhoods(), 10)
}

func TestDecodeAttributes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		check   func(*testing.T, Attributes)
		wantErr bool
	}{
		{
			name: "Empty body keeps defaults",
			body: "",
			check: func(t *testing.T, a Attributes) {
				assert.Equal(t, DefaultAttributes(), a)
			},
		},
		{
			name: "Portuguese form values",
			body: `{"type":"casa","area":80,"furnishing":"semi-mobiliado","floor":"alto_vista","distance":"mais","buildingAge":"antigo","neighborhood":"Pioneiros"}`,
			check: func(t *testing.T, a Attributes) {
				assert.Equal(t, House, a.Type)
				assert.Equal(t, 80.0, a.Area)
				assert.Equal(t, SemiFurnished, a.Furnishing)
				assert.Equal(t, HighFloorView, a.Floor)
				assert.Equal(t, Farther, a.Distance)
				assert.Equal(t, OldBuilding, a.BuildingAge)
				assert.Equal(t, 3, a.Bedrooms, "absent fields keep their default")
				assert.True(t, a.Elevator)
			},
		},
		{
			name: "Explicit false elevator",
			body: `{"elevator":false,"parkingSlots":0}`,
			check: func(t *testing.T, a Attributes) {
				assert.False(t, a.Elevator)
				assert.Equal(t, 0, a.ParkingSlots)
			},
		},
		{name: "Unknown enum value", body: `{"finish":"luxury"}`, wantErr: true},
		{name: "Unknown field", body: `{"pool":true}`, wantErr: true},
		{name: "Non-positive area", body: `{"area":0}`, wantErr: true},
		{name: "Malformed JSON", body: `{"area":`, wantErr: true},
		{name: "Trailing garbage", body: `{"area":300} garbage`, wantErr: true},
		{name: "Second document", body: `{"area":300} {"area":50}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := DecodeAttributes(strings.NewReader(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAttributes), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.check(t, a)
		})
	}
}

func TestWithNeighborhoodDoesNotMutate(t *testing.T) {
	original := DefaultAttributes()
	changed := original.WithNeighborhood("  Centro ")

	assert.Empty(t, original.Neighborhood)
	assert.Equal(t, "Centro", changed.Neighborhood)
}

func pick[T any](options []T, i int) T {
	return options[i%len(options)]
}

// Property: whatever the attributes, the band is ordered and non-negative.
func TestScoreRangeOrderedProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	types := []PropertyType{House, Apartment}
	furnishings := []Furnishing{Furnished, SemiFurnished, Unfurnished, Decorated}
	balconies := []Balcony{BarbecueBalcony, NoBarbecueBalcony, NoBalcony}
	floors := []Floor{LowFloor, HighFloor, HighFloorView, LowFloorView}
	amenities := []Amenities{FullAmenities, PartialAmenities, NoAmenities}
	tiers := []QualityTier{HighTier, MediumTier, LowTier}
	distances := []DistanceTier{Tier1, Tier2, Tier3, Tier4, Farther}
	ages := []BuildingAge{NewBuilding, OldBuilding}
	neighborhoods := append(Neighborhoods(), "", "Praia Brava")

	properties.Property("min never exceeds max", prop.ForAll(
		func(area float64, choices []int) bool {
			if len(choices) < 13 {
				return true
			}
			a := Attributes{
				Type:         pick(types, choices[0]),
				Area:         area,
				Bedrooms:     choices[1] % 7,
				Suites:       choices[2] % 6,
				Furnishing:   pick(furnishings, choices[3]),
				Balcony:      pick(balconies, choices[4]),
				Floor:        pick(floors, choices[5]),
				Elevator:     choices[6]%2 == 0,
				ParkingSlots: choices[7] % 5,
				Amenities:    pick(amenities, choices[8]),
				Finish:       pick(tiers, choices[9]),
				Distance:     pick(distances, choices[10]),
				BuildingAge:  pick(ages, choices[11]),
				Neighborhood: pick(neighborhoods, choices[12]),
			}
			r, err := Score(a)
			if err != nil {
				return false
			}
			return r.Min <= r.Max && r.Min >= 0
		},
		gen.Float64Range(1, 1000),
		gen.SliceOfN(13, gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}
