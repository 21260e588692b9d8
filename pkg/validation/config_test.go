package validation

import (
	"strings"
	"testing"
	"time"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expectErr bool
	}{
		{"HTTPS URL", "https://api.bcb.gov.br", false},
		{"HTTP URL with port", "http://127.0.0.1:8081", false},
		{"Trailing path", "https://viacep.com.br/", false},
		{"Missing scheme", "api.bcb.gov.br", true},
		{"FTP scheme", "ftp://example.com", true},
		{"Empty", "", true},
		{"No host", "https://", true},
		{"Unparsable", "http://[::1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL("provider.baseURL", tt.raw)
			if tt.expectErr && err == nil {
				t.Errorf("ValidateBaseURL(%q) expected error but got none", tt.raw)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("ValidateBaseURL(%q) unexpected error = %v", tt.raw, err)
			}
			if err != nil && !strings.Contains(err.Error(), "provider.baseURL") {
				t.Errorf("error should name the field, got %v", err)
			}
		})
	}
}

func TestValidateSeriesCode(t *testing.T) {
	tests := []struct {
		code      string
		expectErr bool
	}{
		{"189", false},
		{"7478", false},
		{"", true},
		{"18a", true},
		{"-189", true},
		{"١٨٩", true},
	}

	for _, tt := range tests {
		err := ValidateSeriesCode("igpm", tt.code)
		if tt.expectErr && err == nil {
			t.Errorf("ValidateSeriesCode(%q) expected error but got none", tt.code)
		}
		if !tt.expectErr && err != nil {
			t.Errorf("ValidateSeriesCode(%q) unexpected error = %v", tt.code, err)
		}
	}
}

func TestValidateTimeout(t *testing.T) {
	if warning := ValidateTimeout("provider.timeout", 10*time.Second); warning != "" {
		t.Errorf("expected no warning for 10s, got %q", warning)
	}
	if warning := ValidateTimeout("provider.timeout", 0); !strings.Contains(warning, "default") {
		t.Errorf("expected default warning for zero timeout, got %q", warning)
	}
	if warning := ValidateTimeout("provider.timeout", 5*time.Minute); !strings.Contains(warning, "exceeds") {
		t.Errorf("expected long timeout warning, got %q", warning)
	}
}

func TestValidateRateLimit(t *testing.T) {
	tests := []struct {
		name      string
		rps       float64
		burst     int
		expectErr bool
	}{
		{"Enabled", 5, 10, false},
		{"Disabled", 0, 0, false},
		{"Negative rate", -1, 10, true},
		{"Zero burst while enabled", 5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRateLimit(tt.rps, tt.burst)
			if (err != nil) != tt.expectErr {
				t.Errorf("ValidateRateLimit(%v, %d) error = %v, expectErr %v", tt.rps, tt.burst, err, tt.expectErr)
			}
		})
	}
}
