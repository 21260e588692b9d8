package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/rent-renewal/internal/address"
	"github.com/iwvelando/rent-renewal/internal/indices"
	"github.com/iwvelando/rent-renewal/internal/proposal"
	"github.com/iwvelando/rent-renewal/internal/session"
	"github.com/iwvelando/rent-renewal/internal/valuation"
	"github.com/iwvelando/rent-renewal/pkg/constants"
	"github.com/iwvelando/rent-renewal/pkg/output"
	"github.com/iwvelando/rent-renewal/pkg/validation"
	"go.uber.org/zap"
)

// AddressResolver resolves a CEP to a street address.
type AddressResolver interface {
	Lookup(ctx context.Context, cep string) (address.Address, error)
}

// Dependencies are the upstream collaborators of the handler.
type Dependencies struct {
	Provider indices.Provider
	Catalog  *indices.Catalog
	Address  AddressResolver
}

type handler struct {
	logger    *zap.Logger
	provider  indices.Provider
	loader    *indices.Loader
	addresses AddressResolver
	opts      Options
}

// NewHandler constructs the HTTP handler that serves the index proxy and the proposal API.
func NewHandler(logger *zap.Logger, deps Dependencies, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.normalize()

	h := &handler{
		logger:    logger,
		provider:  deps.Provider,
		loader:    indices.NewLoader(deps.Provider, deps.Catalog, logger),
		addresses: deps.Address,
		opts:      opts,
	}

	mux := http.NewServeMux()

	// Index proxy; the provider credential never reaches the browser
	mux.HandleFunc("/api/indices", h.handleIndexValue)
	mux.HandleFunc("/api/indices/{name}", h.handleIndexValue)
	mux.HandleFunc("/api/indices/{name}/series", h.handleIndexSeries)
	mux.HandleFunc("/api/indices/{name}/accumulated", h.handleIndexAccumulated)

	mux.HandleFunc("/api/address/{cep}", h.handleAddress)
	mux.HandleFunc("/api/neighborhoods", h.handleNeighborhoods)

	mux.HandleFunc("/api/valuation", h.handleValuation)
	mux.HandleFunc("/api/proposal", h.handleProposal)
	mux.HandleFunc("/api/proposal/export", h.handleExport)

	// Version endpoint for UI metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	if opts.RequestsPerSecond > 0 {
		return h.rateLimit(newIPRateLimiter(opts.RequestsPerSecond, opts.Burst), mux)
	}
	return mux
}

// flexString accepts a JSON string or number, keeping the raw text so the strict and
// permissive parsers decide how to read it.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("expected a number or string, got %s", trimmed)
	}
	*f = flexString(n.String())
	return nil
}

type proposalRequest struct {
	CurrentRent      flexString      `json:"currentRent"`
	Index            string          `json:"index"`
	CustomPercent    flexString      `json:"customPercent"`
	MarketAdjustment flexString      `json:"marketAdjustment"`
	Justification    string          `json:"justification"`
	CEP              string          `json:"cep"`
	Property         json.RawMessage `json:"property"`
}

func (p proposalRequest) input() session.Input {
	return session.Input{
		CurrentRent:      string(p.CurrentRent),
		Index:            p.Index,
		CustomPercent:    string(p.CustomPercent),
		MarketAdjustment: string(p.MarketAdjustment),
		Justification:    p.Justification,
	}
}

type proposalResponse struct {
	Proposal     *proposal.Proposal `json:"proposal"`
	WithinMarket bool               `json:"withinMarket"`
	Address      *address.Address   `json:"address,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
}

func (h *handler) handleIndexValue(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleIndexValue"
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, op)
		return
	}

	name := r.PathValue("name")
	if name == "" {
		name = r.URL.Query().Get("name")
	}

	series, err := h.provider.Series(r.Context(), name, constants.WindowLatest)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	if len(series.Observations) == 0 {
		h.respondErrorWithOp(w, http.StatusBadGateway, "unexpected response format from index provider", op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"value": series.Observations[len(series.Observations)-1].Value,
	})
}

func (h *handler) handleIndexSeries(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleIndexSeries"
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, op)
		return
	}

	window := constants.WindowTrailingYear
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid window %q", raw), op)
			return
		}
		window = parsed
	}

	series, err := h.provider.Series(r.Context(), r.PathValue("name"), window)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	observations := series.Observations
	if observations == nil {
		observations = []indices.Observation{}
	}
	h.writeJSON(w, http.StatusOK, observations)
}

func (h *handler) handleIndexAccumulated(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleIndexAccumulated"
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, op)
		return
	}

	mode := h.opts.Mode
	if raw := r.URL.Query().Get("mode"); raw != "" {
		parsed, err := indices.ParseMode(raw)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		mode = parsed
	}

	acc, err := h.loader.Fetch(r.Context(), r.PathValue("name"), mode)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, acc)
}

func (h *handler) handleAddress(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAddress"
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, op)
		return
	}
	if h.addresses == nil {
		h.respondErrorWithOp(w, http.StatusNotImplemented, "address lookup is not configured", op)
		return
	}

	addr, err := h.addresses.Lookup(r.Context(), r.PathValue("cep"))
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, addr)
}

func (h *handler) handleNeighborhoods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, "server.handleNeighborhoods")
		return
	}
	h.writeJSON(w, http.StatusOK, valuation.Neighborhoods())
}

func (h *handler) handleValuation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleValuation"
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, op)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodySize)
	attrs, err := valuation.DecodeAttributes(r.Body)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	result, err := valuation.Score(attrs)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleProposal(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProposal"
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, op)
		return
	}

	start := time.Now()
	resp, ok := h.generate(w, r, op)
	if !ok {
		return
	}

	h.logger.Info("proposal computed",
		zap.String("op", op),
		zap.String("id", resp.Proposal.ID),
		zap.Duration("duration", time.Since(start)),
	)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExport"
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, op)
		return
	}

	exportFormat := r.URL.Query().Get("format")
	if exportFormat == "" {
		exportFormat = constants.ExportFormatHTML
	}
	if err := validation.ValidateExportFormat(exportFormat); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	resp, ok := h.generate(w, r, op)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := output.Render(&buf, exportFormat, resp.Proposal); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render report: %v", err), op)
		return
	}

	w.Header().Set("Content-Type", output.ContentType(exportFormat))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", output.FileName(exportFormat)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write export",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

// generate runs one full session for the request. It writes the error response itself
// and reports false when generation failed.
func (h *handler) generate(w http.ResponseWriter, r *http.Request, op string) (*proposalResponse, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodySize)

	var req proposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.opts.MaxBodySize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return nil, false
	}

	// Rent and custom percent are rejected before any index is fetched.
	input := req.input()
	if err := input.Validate(); err != nil {
		h.respondFailure(w, err, op)
		return nil, false
	}

	attrs := valuation.DefaultAttributes()
	if len(req.Property) > 0 {
		decoded, err := valuation.DecodeAttributes(bytes.NewReader(req.Property))
		if err != nil {
			h.respondFailure(w, err, op)
			return nil, false
		}
		attrs = decoded
	}

	resp := &proposalResponse{}
	if strings.TrimSpace(req.CEP) != "" && h.addresses != nil {
		addr, err := h.addresses.Lookup(r.Context(), req.CEP)
		switch {
		case err == nil:
			resp.Address = &addr
			if attrs.Neighborhood == "" {
				attrs = attrs.WithNeighborhood(addr.Neighborhood)
			}
		case address.IsLookupMiss(err) || errors.Is(err, address.ErrUpstream):
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("address lookup: %v", err))
		default:
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("address lookup failed: %v", err))
		}
	}

	sess := session.New(h.loader, h.opts.Mode, h.logger, h.opts.IndexNames...)
	if err := sess.SetAttributes(attrs); err != nil {
		h.respondFailure(w, err, op)
		return nil, false
	}
	if err := sess.LoadIndices(r.Context()); err != nil {
		h.respondFailure(w, err, op)
		return nil, false
	}

	p, err := sess.Generate(input)
	if err != nil {
		h.respondFailure(w, err, op)
		return nil, false
	}
	resp.Proposal = p
	resp.WithinMarket = p.WithinMarket()
	return resp, true
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, "server.handleVersion")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.opts.Version,
	})
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, op string) {
	h.respondErrorWithOp(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), op)
}

// respondFailure maps a domain error onto its HTTP status.
func (h *handler) respondFailure(w http.ResponseWriter, err error, op string) {
	h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
}

func statusFor(err error) int {
	var invalid *proposal.ValidationError
	var upstream *indices.UpstreamError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &invalid),
		errors.Is(err, valuation.ErrInvalidAttributes),
		errors.Is(err, indices.ErrUnknownIndex),
		errors.Is(err, indices.ErrInvalidWindow),
		errors.Is(err, address.ErrMalformedCEP):
		return http.StatusBadRequest
	case errors.Is(err, address.ErrOutsideCoverage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, address.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrIndicesPending):
		return http.StatusServiceUnavailable
	case isTimeout(err):
		return http.StatusGatewayTimeout
	case errors.As(err, &upstream),
		errors.Is(err, address.ErrUpstream),
		errors.Is(err, indices.ErrProviderUnavailable),
		errors.Is(err, indices.ErrEmptySeries),
		errors.Is(err, indices.ErrMalformedObservation):
		return http.StatusBadGateway
	}

	var retrieval *indices.RetrievalError
	if errors.As(err, &retrieval) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes before writing the header so an unencodable payload becomes a 500.
func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		h.logger.Error("failed to encode JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": "failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}
