// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Search  SearchConfig  `yaml:"search"`
	LLM     LLMConfig     `yaml:"llm"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig contains HTTP and ext_proc listener configuration
type ServerConfig struct {
	Host               string        `yaml:"host" env:"HOST"`
	Port               int           `yaml:"port" env:"PORT"`
	ExtProcPort        int           `yaml:"extproc_port" env:"EXTPROC_PORT"`
	Timeout            time.Duration `yaml:"timeout"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// SearchConfig contains SearchCans client configuration
type SearchConfig struct {
	APIKey   string        `yaml:"api_key" env:"SEARCHCANS_API_KEY"`
	Endpoint string        `yaml:"endpoint" env:"SEARCHCANS_API_ENDPOINT"`
	Timeout  time.Duration `yaml:"timeout" env:"SEARCHCANS_TIMEOUT"`
	// ErrorMessages adds to or overrides the built-in provider code table.
	ErrorMessages map[int]string `yaml:"error_messages"`
}

// LLMConfig contains answer generation configuration
type LLMConfig struct {
	Timeout time.Duration  `yaml:"timeout" env:"LLM_TIMEOUT"`
	OpenAI  ProviderConfig `yaml:"openai" envPrefix:"OPENAI_"`
	Qwen    ProviderConfig `yaml:"qwen" envPrefix:"DASHSCOPE_"`
}

// ProviderConfig holds the server default credential and endpoint for one
// LLM provider. Empty fields keep the built-in routing values.
type ProviderConfig struct {
	APIKey       string `yaml:"api_key" env:"API_KEY"`
	BaseURL      string `yaml:"base_url" env:"BASE_URL"`
	DefaultModel string `yaml:"default_model" env:"DEFAULT_MODEL"`
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "text"
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Path    string `yaml:"path"`
}

// TracingConfig controls OTLP span export
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" env:"TRACING_ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	Insecure    bool   `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// EnvFiles are the dotenv files read before environment overrides.
var EnvFiles = []string{".env", "../.env"}

// Load loads configuration from a YAML file, then applies .env files and
// environment variables on top.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadOrEnv loads path, falling back to FromEnv only when the file does not
// exist. fromFile reports which source was used. A file that exists but
// fails to parse or validate is an error.
func LoadOrEnv(path string) (cfg *Config, fromFile bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}
	cfg, err = FromEnv()
	return cfg, false, err
}

// FromEnv returns the defaults with .env files and environment variables
// applied. It is used when no config file is available.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			ExtProcPort: 10000,
			Timeout:     120 * time.Second,
			CORSAllowedOrigins: []string{
				"http://localhost:5173",
				"http://localhost:3000",
				"http://127.0.0.1:5173",
				"http://127.0.0.1:3000",
			},
		},
		Search: SearchConfig{
			Endpoint: "https://global.searchcans.com/api/search",
			Timeout:  15 * time.Second,
		},
		LLM: LLMConfig{
			Timeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			ServiceName: "smartsearch-gw",
			Insecure:    true,
		},
	}
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Search.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("search.timeout must be positive, got %s", c.Search.Timeout))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout))
	}
	return errors.Join(errs...)
}

// Masked returns a copy safe to print, with every credential redacted.
func (c *Config) Masked() *Config {
	out := *c
	out.Search.APIKey = mask(c.Search.APIKey)
	out.LLM.OpenAI.APIKey = mask(c.LLM.OpenAI.APIKey)
	out.LLM.Qwen.APIKey = mask(c.LLM.Qwen.APIKey)
	return &out
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:3] + "****" + secret[len(secret)-4:]
	}
}

func applyEnv(cfg *Config) error {
	loadEnvFiles()
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// loadEnvFiles reads dotenv files without overriding variables that are
// already set in the process environment.
func loadEnvFiles() {
	for _, path := range EnvFiles {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
