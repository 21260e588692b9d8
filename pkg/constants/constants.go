// Package constants provides shared constants for the rent-renewal application.
package constants

import "time"

// MonthKeyLayout is the ordering key for monthly index observations.
const MonthKeyLayout = "2006-01"

// ProviderDateLayout is the date format used by the index provider (dd/mm/yyyy).
const ProviderDateLayout = "02/01/2006"

// Financial constants
const (
	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Index window sizes accepted by the provider.
const (
	// WindowLatest fetches only the most recent monthly observation.
	WindowLatest = 1

	// WindowTrailingYear fetches the trailing twelve monthly observations.
	WindowTrailingYear = 12
)

// Export format constants
const (
	ExportFormatHTML     = "html"
	ExportFormatMarkdown = "markdown"
	ExportFormatCSV      = "csv"
	ExportFormatText     = "text"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultEnvFile holds the upstream credential when it is not exported in the shell.
	DefaultEnvFile = ".env"

	// EnvPrefix prefixes every environment override, e.g. RENT_RENEWAL_PROVIDER_TOKEN.
	EnvPrefix = "RENT_RENEWAL"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes caps JSON request bodies (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultRequestsPerSecond is the per-client API rate
	DefaultRequestsPerSecond = 5

	// DefaultBurst is the per-client burst size
	DefaultBurst = 10
)

// Upstream defaults
const (
	// DefaultProviderBaseURL is the Banco Central do Brasil SGS API.
	DefaultProviderBaseURL = "https://api.bcb.gov.br"

	// DefaultAddressBaseURL is the ViaCEP API.
	DefaultAddressBaseURL = "https://viacep.com.br"

	// DefaultUpstreamTimeout bounds every outbound call.
	DefaultUpstreamTimeout = 10 * time.Second
)
