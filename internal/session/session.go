// Package session holds the state of one negotiation: loaded indices, the property being
// evaluated and the most recent proposal.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/iwvelando/rent-renewal/internal/indices"
	"github.com/iwvelando/rent-renewal/internal/proposal"
	"github.com/iwvelando/rent-renewal/internal/valuation"
	"go.uber.org/zap"
)

// ErrIndicesPending is returned when a proposal is requested before the indices loaded.
var ErrIndicesPending = errors.New("index data is still loading")

// State tracks index loading. Failed is terminal for the session.
type State int

const (
	Pending State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// IndexLoader fetches every configured index and returns only once all have resolved.
type IndexLoader interface {
	LoadAll(ctx context.Context, mode indices.Mode, names ...string) (indices.Set, error)
}

// Input is the raw proposal form.
type Input struct {
	CurrentRent      string `json:"currentRent"`
	Index            string `json:"index"`
	CustomPercent    string `json:"customPercent,omitempty"`
	MarketAdjustment string `json:"marketAdjustment,omitempty"`
	Justification    string `json:"justification,omitempty"`
}

// Validate runs the strict checks that must pass before any index is consulted.
func (in Input) Validate() error {
	if _, err := proposal.ParseRent(in.CurrentRent); err != nil {
		return err
	}
	if in.isCustom() {
		if _, err := proposal.ParseCustomPercent(in.CustomPercent); err != nil {
			return err
		}
	}
	return nil
}

func (in Input) isCustom() bool {
	return strings.EqualFold(strings.TrimSpace(in.Index), indices.CustomIndexName)
}

// Session is safe for concurrent use.
type Session struct {
	loader IndexLoader
	mode   indices.Mode
	names  []string
	logger *zap.Logger

	loadOnce sync.Once

	mu         sync.RWMutex
	state      State
	set        indices.Set
	loadErr    error
	attributes valuation.Attributes
	current    *proposal.Proposal
}

// New creates a pending session. With no names every catalog index is loaded.
func New(loader IndexLoader, mode indices.Mode, logger *zap.Logger, names ...string) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		loader:     loader,
		mode:       mode,
		names:      names,
		logger:     logger,
		state:      Pending,
		attributes: valuation.DefaultAttributes(),
	}
}

// LoadIndices fetches all indices concurrently and waits for every one of them. Only the
// first call performs the fetch; later calls report its outcome.
func (s *Session) LoadIndices(ctx context.Context) error {
	s.loadOnce.Do(func() {
		set, err := s.loader.LoadAll(ctx, s.mode, s.names...)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.state = Failed
			s.loadErr = err
			s.logger.Warn("index loading failed",
				zap.String("op", "session.LoadIndices"),
				zap.Error(err))
			return
		}
		s.state = Ready
		s.set = set
		s.logger.Debug("indices loaded",
			zap.String("op", "session.LoadIndices"),
			zap.Int("count", len(set)))
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// State reports the index loading state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Indices returns the loaded values once the session is ready.
func (s *Session) Indices() (indices.Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.state {
	case Ready:
		return s.set, nil
	case Failed:
		return nil, s.loadErr
	default:
		return nil, ErrIndicesPending
	}
}

// Attributes returns the current property attributes.
func (s *Session) Attributes() valuation.Attributes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attributes
}

// SetAttributes replaces the property attributes wholesale.
func (s *Session) SetAttributes(a valuation.Attributes) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.attributes = a
	s.mu.Unlock()
	return nil
}

// Current returns the most recent proposal, or nil.
func (s *Session) Current() *proposal.Proposal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Generate builds a new proposal and makes it the current one.
func (s *Session) Generate(in Input) (*proposal.Proposal, error) {
	rent, err := proposal.ParseRent(in.CurrentRent)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Pending:
		return nil, ErrIndicesPending
	case Failed:
		return nil, s.loadErr
	}

	index, err := s.resolveIndex(in)
	if err != nil {
		return nil, err
	}

	contract, err := proposal.AnalyzeContract(rent, index)
	if err != nil {
		return nil, err
	}
	market, err := valuation.Score(s.attributes)
	if err != nil {
		return nil, err
	}
	p, err := proposal.Compose(contract, market, proposal.ParseMarketAdjustment(in.MarketAdjustment), in.Justification)
	if err != nil {
		return nil, err
	}

	s.current = p
	s.logger.Info("proposal generated",
		zap.String("op", "session.Generate"),
		zap.String("id", p.ID),
		zap.String("index", index.Name),
		zap.Float64("finalValue", p.FinalValue))
	return p, nil
}

// resolveIndex must be called with s.mu held.
func (s *Session) resolveIndex(in Input) (indices.Accumulated, error) {
	if in.isCustom() {
		percent, err := proposal.ParseCustomPercent(in.CustomPercent)
		if err != nil {
			return indices.Accumulated{}, err
		}
		return indices.Custom(percent), nil
	}

	name := strings.ToLower(strings.TrimSpace(in.Index))
	if name == "" {
		name = s.defaultIndex()
	}
	return s.set.Get(name)
}

func (s *Session) defaultIndex() string {
	if len(s.names) > 0 {
		return strings.ToLower(s.names[0])
	}
	return "igpm"
}
