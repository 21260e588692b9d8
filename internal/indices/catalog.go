// Package indices fetches published monthly economic indices and reduces them
// into accumulated percentages.
package indices

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/rent-renewal/pkg/constants"
)

// Mode selects which question an index fetch answers.
type Mode string

const (
	// ModeLatest answers "what was last month's value".
	ModeLatest Mode = "latest"

	// ModeTrailingYear answers "how much did the index compound over the last twelve months".
	ModeTrailingYear Mode = "trailing-12m"

	// ModeCustom marks a percentage typed in by the user instead of fetched.
	ModeCustom Mode = "custom"
)

// CustomIndexName is the pseudo index used for user-supplied percentages.
const CustomIndexName = "custom"

// ParseMode resolves a mode name, defaulting to the trailing year.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeTrailingYear:
		return ModeTrailingYear, nil
	case ModeLatest:
		return ModeLatest, nil
	default:
		return "", fmt.Errorf("unsupported index mode %q", value)
	}
}

// Window returns the number of monthly observations the mode consumes.
func (m Mode) Window() int {
	switch m {
	case ModeLatest:
		return constants.WindowLatest
	case ModeTrailingYear:
		return constants.WindowTrailingYear
	default:
		return 0
	}
}

func (m Mode) describe() string {
	switch m {
	case ModeLatest:
		return "Último mês"
	case ModeTrailingYear:
		return "Acumulado 12 meses"
	default:
		return "Personalizado"
	}
}

// Index describes one published index.
type Index struct {
	Name        string `json:"name" yaml:"name"`
	SeriesCode  string `json:"seriesCode" yaml:"seriesCode"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	Publisher   string `json:"publisher" yaml:"publisher"`
}

// Label is the human-readable name shown next to a computed percentage.
func (i Index) Label(mode Mode) string {
	return fmt.Sprintf("%s (%s)", i.DisplayName, mode.describe())
}

// Catalog maps internal short names to provider series.
type Catalog struct {
	indices map[string]Index
}

// DefaultCatalog returns the IGP-M and INPC series published by the BCB SGS.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Index{
		{Name: "igpm", SeriesCode: "189", DisplayName: "IGP-M", Publisher: "FGV"},
		{Name: "inpc", SeriesCode: "188", DisplayName: "INPC", Publisher: "IBGE"},
	})
}

// NewCatalog builds a catalog from the given entries; names are case-insensitive.
func NewCatalog(entries []Index) *Catalog {
	c := &Catalog{indices: make(map[string]Index, len(entries))}
	for _, entry := range entries {
		entry.Name = strings.ToLower(strings.TrimSpace(entry.Name))
		if entry.Name == "" {
			continue
		}
		if entry.DisplayName == "" {
			entry.DisplayName = strings.ToUpper(entry.Name)
		}
		c.indices[entry.Name] = entry
	}
	return c
}

// WithSeriesCodes returns a copy of the catalog with the provided code overrides applied.
// Unknown names are added with a generated display name.
func (c *Catalog) WithSeriesCodes(codes map[string]string) *Catalog {
	entries := c.All()
	seen := make(map[string]int, len(entries))
	for i, entry := range entries {
		seen[entry.Name] = i
	}
	for name, code := range codes {
		key := strings.ToLower(strings.TrimSpace(name))
		if i, ok := seen[key]; ok {
			entries[i].SeriesCode = code
			continue
		}
		entries = append(entries, Index{Name: key, SeriesCode: code})
	}
	return NewCatalog(entries)
}

// Lookup resolves a short name such as "igpm".
func (c *Catalog) Lookup(name string) (Index, error) {
	idx, ok := c.indices[strings.ToLower(strings.TrimSpace(name))]
	if !ok || idx.SeriesCode == "" {
		return Index{}, fmt.Errorf("%w: %q", ErrUnknownIndex, name)
	}
	return idx, nil
}

// Names returns the catalog's short names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.indices))
	for name := range c.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the catalog entries sorted by name.
func (c *Catalog) All() []Index {
	names := c.Names()
	entries := make([]Index, 0, len(names))
	for _, name := range names {
		entries = append(entries, c.indices[name])
	}
	return entries
}
