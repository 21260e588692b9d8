package server

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/rent-renewal/internal/config"
	"github.com/iwvelando/rent-renewal/internal/indices"
	"github.com/iwvelando/rent-renewal/pkg/constants"
)

// Options defines runtime parameters for the HTTP handler.
type Options struct {
	Version           string
	MaxBodySize       int64
	RequestsPerSecond float64
	Burst             int
	Mode              indices.Mode
	IndexNames        []string
}

// OptionsFromConfiguration derives handler options from the loaded configuration.
func OptionsFromConfiguration(cfg *config.Configuration, version string) (Options, error) {
	size, err := ParseSize(cfg.Server.MaxBodySize)
	if err != nil {
		return Options{}, fmt.Errorf("server.maxBodySize: %w", err)
	}
	return Options{
		Version:           version,
		MaxBodySize:       size,
		RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
		Burst:             cfg.Server.RateLimit.Burst,
		Mode:              cfg.IndexMode(),
		IndexNames:        cfg.Index.Names,
	}, nil
}

func (o *Options) normalize() {
	if o.MaxBodySize <= 0 {
		o.MaxBodySize = constants.DefaultMaxBodySizeBytes
	}
	o.Version = strings.TrimSpace(o.Version)
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.Mode == "" {
		o.Mode = indices.ModeTrailingYear
	}
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxBodySizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	result := n * multiplier
	if result < 0 || (n != 0 && result/multiplier != n) {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
