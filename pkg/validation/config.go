// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"net/url"
	"time"
	"unicode"
)

// maxReasonableTimeout is the point past which a user waiting on the form would give up.
const maxReasonableTimeout = time.Minute

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid URL %q: %w", field, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: expected http or https URL, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: URL %q has no host", field, raw)
	}
	return nil
}

// ValidateSeriesCode checks that a provider series code is numeric.
func ValidateSeriesCode(name, code string) error {
	if code == "" {
		return fmt.Errorf("index '%s' has an empty series code", name)
	}
	for _, r := range code {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return fmt.Errorf("index '%s' series code %q must be numeric", name, code)
		}
	}
	return nil
}

// ValidateTimeout returns a warning for timeouts that are zero or unusually long.
func ValidateTimeout(field string, timeout time.Duration) string {
	if timeout <= 0 {
		return fmt.Sprintf("%s is %s - the default will be used", field, timeout)
	}
	if timeout > maxReasonableTimeout {
		return fmt.Sprintf("%s of %s exceeds %s - users may abandon the form before it resolves",
			field, timeout, maxReasonableTimeout)
	}
	return ""
}

// ValidateRateLimit checks the per-client rate limiter settings.
func ValidateRateLimit(requestsPerSecond float64, burst int) error {
	if requestsPerSecond < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", requestsPerSecond)
	}
	if requestsPerSecond > 0 && burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1 when limiting is enabled, got %d", burst)
	}
	return nil
}
