// Package config defines the runtime configuration for rent-renewal and the functions
// that load it from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/iwvelando/rent-renewal/internal/indices"
	"github.com/iwvelando/rent-renewal/pkg/constants"
	"github.com/iwvelando/rent-renewal/pkg/validation"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Configuration holds all configuration for rent-renewal.
type Configuration struct {
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Address  AddressConfig  `mapstructure:"address" yaml:"address"`
	Index    IndexConfig    `mapstructure:"index" yaml:"index"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address     string          `mapstructure:"address" yaml:"address"`
	MaxBodySize string          `mapstructure:"maxBodySize" yaml:"maxBodySize"` // e.g. 64K, 1M
	RateLimit   RateLimitConfig `mapstructure:"rateLimit" yaml:"rateLimit"`
}

// RateLimitConfig bounds requests per client IP. A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// ProviderConfig holds the index provider settings. The token never leaves the server.
type ProviderConfig struct {
	BaseURL string            `mapstructure:"baseURL" yaml:"baseURL"`
	Token   string            `mapstructure:"token" yaml:"token,omitempty"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	Series  map[string]string `mapstructure:"series" yaml:"series,omitempty"` // name -> series code overrides
}

// AddressConfig holds the CEP lookup settings.
type AddressConfig struct {
	BaseURL string        `mapstructure:"baseURL" yaml:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// IndexConfig selects how indices are reduced and which ones a session loads.
type IndexConfig struct {
	Mode  string   `mapstructure:"mode" yaml:"mode"` // trailing-12m, latest
	Names []string `mapstructure:"names" yaml:"names,omitempty"`
}

// LoadConfiguration loads the YAML configuration at configPath, applies defaults and
// RENT_RENEWAL_* environment overrides. A missing file is not an error.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file, %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	return &configuration, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")

	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", fmt.Sprintf("%d", constants.DefaultMaxBodySizeBytes))
	v.SetDefault("server.rateLimit.requestsPerSecond", constants.DefaultRequestsPerSecond)
	v.SetDefault("server.rateLimit.burst", constants.DefaultBurst)

	v.SetDefault("provider.baseURL", constants.DefaultProviderBaseURL)
	v.SetDefault("provider.token", "")
	v.SetDefault("provider.timeout", constants.DefaultUpstreamTimeout.String())

	v.SetDefault("address.baseURL", constants.DefaultAddressBaseURL)
	v.SetDefault("address.timeout", constants.DefaultUpstreamTimeout.String())

	v.SetDefault("index.mode", string(indices.ModeTrailingYear))
}

// Validate returns the first hard configuration error.
func (c *Configuration) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("logging.format must be one of: json, console")
	}

	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if err := validation.ValidateRateLimit(c.Server.RateLimit.RequestsPerSecond, c.Server.RateLimit.Burst); err != nil {
		return fmt.Errorf("server.rateLimit: %w", err)
	}

	if err := validation.ValidateBaseURL("provider.baseURL", c.Provider.BaseURL); err != nil {
		return err
	}
	if err := validation.ValidateBaseURL("address.baseURL", c.Address.BaseURL); err != nil {
		return err
	}
	for name, code := range c.Provider.Series {
		if err := validation.ValidateSeriesCode(name, code); err != nil {
			return fmt.Errorf("provider.series: %w", err)
		}
	}

	if _, err := indices.ParseMode(c.Index.Mode); err != nil {
		return fmt.Errorf("index.mode: %w", err)
	}
	catalog := c.Catalog()
	for _, name := range c.Index.Names {
		if _, err := catalog.Lookup(name); err != nil {
			return fmt.Errorf("index.names: %w", err)
		}
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if warning := validation.ValidateTimeout("provider.timeout", c.Provider.Timeout); warning != "" {
		warnings = append(warnings, warning)
	}
	if warning := validation.ValidateTimeout("address.timeout", c.Address.Timeout); warning != "" {
		warnings = append(warnings, warning)
	}
	if c.Server.RateLimit.RequestsPerSecond == 0 {
		warnings = append(warnings, "server.rateLimit.requestsPerSecond is 0 - the API is not rate limited")
	}
	if c.Provider.Token != "" && strings.HasPrefix(c.Provider.BaseURL, "http://") {
		warnings = append(warnings, "provider.token is sent over plain HTTP")
	}
	if len(c.Index.Names) == 1 {
		warnings = append(warnings, fmt.Sprintf("index.names only loads '%s' - proposals cannot use any other index", c.Index.Names[0]))
	}

	return warnings
}

// Catalog returns the default index catalog with any configured series code overrides.
func (c *Configuration) Catalog() *indices.Catalog {
	catalog := indices.DefaultCatalog()
	if len(c.Provider.Series) == 0 {
		return catalog
	}
	return catalog.WithSeriesCodes(c.Provider.Series)
}

// IndexMode returns the parsed index mode, falling back to the trailing year.
func (c *Configuration) IndexMode() indices.Mode {
	mode, err := indices.ParseMode(c.Index.Mode)
	if err != nil {
		return indices.ModeTrailingYear
	}
	return mode
}

// YAML serializes the effective configuration with secrets redacted.
func (c *Configuration) YAML() ([]byte, error) {
	redacted := *c
	if redacted.Provider.Token != "" {
		redacted.Provider.Token = "REDACTED"
	}
	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return out, nil
}
