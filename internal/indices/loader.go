package indices

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Accumulated is the derived percentage for one index and one fetch cycle.
type Accumulated struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Mode    Mode    `json:"mode"`
	Percent float64 `json:"percent"`
	Months  int     `json:"months"`
	Through string  `json:"through,omitempty"`
}

// Custom wraps a user-supplied percentage so it flows through the same path as fetched indices.
func Custom(percent float64) Accumulated {
	return Accumulated{
		Name:    CustomIndexName,
		Label:   "Percentual personalizado",
		Mode:    ModeCustom,
		Percent: percent,
	}
}

// Set holds one Accumulated per index name.
type Set map[string]Accumulated

// Get returns the accumulated value for name.
func (s Set) Get(name string) (Accumulated, error) {
	acc, ok := s[name]
	if !ok {
		return Accumulated{}, fmt.Errorf("%w: %q", ErrUnknownIndex, name)
	}
	return acc, nil
}

// Loader turns provider series into accumulated percentages.
type Loader struct {
	provider Provider
	catalog  *Catalog
	logger   *zap.Logger
}

// NewLoader creates a loader over the given provider.
func NewLoader(provider Provider, catalog *Catalog, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Loader{provider: provider, catalog: catalog, logger: logger}
}

// Catalog returns the catalog the loader labels results with.
func (l *Loader) Catalog() *Catalog {
	return l.catalog
}

// QuickValue returns the single latest monthly value of the index.
func (l *Loader) QuickValue(ctx context.Context, name string) (Accumulated, error) {
	return l.Fetch(ctx, name, ModeLatest)
}

// TrailingYear returns the index compounded over the last twelve months.
func (l *Loader) TrailingYear(ctx context.Context, name string) (Accumulated, error) {
	return l.Fetch(ctx, name, ModeTrailingYear)
}

// Fetch retrieves and reduces one index. Every failure comes back as a *RetrievalError,
// except a name missing from the catalog which is reported as ErrUnknownIndex.
func (l *Loader) Fetch(ctx context.Context, name string, mode Mode) (Accumulated, error) {
	idx, err := l.catalog.Lookup(name)
	if err != nil {
		return Accumulated{}, err
	}

	window := mode.Window()
	if window == 0 {
		return Accumulated{}, fmt.Errorf("unsupported index mode %q", mode)
	}

	series, err := l.provider.Series(ctx, idx.Name, window)
	if err != nil {
		if errors.Is(err, ErrUnknownIndex) {
			return Accumulated{}, err
		}
		return Accumulated{}, &RetrievalError{Index: idx.Name, Err: err}
	}

	var percent float64
	switch mode {
	case ModeLatest:
		percent, err = Latest(series.Observations)
	default:
		percent, err = Accumulate(series.Observations)
	}
	if err != nil {
		return Accumulated{}, &RetrievalError{Index: idx.Name, Err: err}
	}

	acc := Accumulated{
		Name:    idx.Name,
		Label:   idx.Label(mode),
		Mode:    mode,
		Percent: percent,
		Months:  len(series.Observations),
	}
	if sorted, sortErr := series.Sorted(); sortErr == nil && len(sorted) > 0 {
		acc.Through, _ = sorted[len(sorted)-1].MonthKey()
	}

	l.logger.Debug("index reduced",
		zap.String("op", "indices.Loader.Fetch"),
		zap.String("index", acc.Name),
		zap.String("mode", string(mode)),
		zap.Float64("percent", acc.Percent),
		zap.Int("months", acc.Months),
	)
	return acc, nil
}

// LoadAll fetches every named index concurrently and returns only once all of them
// have resolved. Each fetch writes its own slot; the slots are merged after the join.
// With no names the whole catalog is loaded.
func (l *Loader) LoadAll(ctx context.Context, mode Mode, names ...string) (Set, error) {
	if len(names) == 0 {
		names = l.catalog.Names()
	}

	slots := make([]Accumulated, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			acc, err := l.Fetch(gctx, name, mode)
			if err != nil {
				return err
			}
			slots[i] = acc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		l.logger.Error("failed to load indices",
			zap.String("op", "indices.Loader.LoadAll"),
			zap.Strings("indices", names),
			zap.Error(err),
		)
		return nil, err
	}

	set := make(Set, len(slots))
	for _, acc := range slots {
		set[acc.Name] = acc
	}
	return set, nil
}
