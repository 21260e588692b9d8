package address

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/rent-renewal/pkg/constants"
	"go.uber.org/zap"
)

// Address is a resolved CEP.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Municipality string `json:"municipality"`
}

// viaCEPResponse is the ViaCEP payload. "erro" is a boolean in older responses and a
// string in newer ones.
type viaCEPResponse struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Erro        any    `json:"erro"`
}

func (r viaCEPResponse) notFound() bool {
	switch v := r.Erro.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// Client resolves CEPs through ViaCEP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a ViaCEP client. Zero values fall back to the public service and the
// default upstream timeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = constants.DefaultAddressBaseURL
	}
	if timeout <= 0 {
		timeout = constants.DefaultUpstreamTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Lookup validates the CEP against the covered ranges and then resolves it. Uncovered or
// malformed CEPs never reach the network.
func (c *Client) Lookup(ctx context.Context, cep string) (Address, error) {
	municipality, err := Municipality(cep)
	if err != nil {
		return Address{}, err
	}
	digits := Normalize(cep)

	urlStr := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return Address{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Address{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var payload viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Address{}, fmt.Errorf("%w: failed to decode response: %v", ErrUpstream, err)
	}
	if payload.notFound() {
		c.logger.Debug("CEP not found",
			zap.String("op", "address.Client.Lookup"),
			zap.String("cep", digits))
		return Address{}, ErrNotFound
	}

	return Address{
		CEP:          digits,
		Street:       payload.Logradouro,
		Complement:   payload.Complemento,
		Neighborhood: payload.Bairro,
		City:         payload.Localidade,
		State:        payload.UF,
		Municipality: municipality,
	}, nil
}
