// Package config loads the service configuration. Sources are applied in
// order: built-in defaults, a .env file, an optional YAML file, then the
// process environment. The result is validated before it is returned.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Environment string `yaml:"environment" validate:"oneof=development production test"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`

	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Store   StoreConfig   `yaml:"store"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// BackendConfig configures the generation backend.
type BackendConfig struct {
	// Provider is gemini or mock. Left empty it becomes gemini when an API
	// key is present and mock otherwise.
	Provider        string        `yaml:"provider" validate:"oneof=gemini mock"`
	Model           string        `yaml:"model" validate:"required"`
	APIKey          string        `yaml:"api_key" validate:"required_if=Provider gemini"`
	BaseURL         string        `yaml:"base_url" validate:"required,url"`
	Temperature     float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens int           `yaml:"max_output_tokens" validate:"gt=0"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
	Breaker         BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around backend calls.
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" validate:"gt=0"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// StoreConfig selects where the three session slots are kept.
type StoreConfig struct {
	Driver      string `yaml:"driver" validate:"oneof=memory postgres dynamodb"`
	DatabaseURL string `yaml:"database_url" validate:"required_if=Driver postgres"`
	Table       string `yaml:"table" validate:"required_if=Driver dynamodb"`
	Region      string `yaml:"region" validate:"required_if=Driver dynamodb"`
	Endpoint    string `yaml:"endpoint"`
	// SessionID names the session in durable stores. Empty means a fresh id
	// per process.
	SessionID   string `yaml:"session_id"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Server:      ServerConfig{Addr: ":3000"},
		Backend: BackendConfig{
			Model:           "gemini-1.5-flash",
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Temperature:     0.2,
			MaxOutputTokens: 1024,
			Timeout:         60 * time.Second,
			Breaker: BreakerConfig{
				MaxRequests:      1,
				Interval:         60 * time.Second,
				Timeout:          30 * time.Second,
				FailureThreshold: 0.6,
				MinRequests:      5,
			},
		},
		Store: StoreConfig{
			Driver: "memory",
			Table:  "phenotree",
			Region: "us-east-1",
		},
	}
}

// Load builds the configuration. path names an optional YAML file; a
// missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.Backend.Provider == "" {
		cfg.Backend.Provider = "mock"
		if cfg.Backend.APIKey != "" {
			cfg.Backend.Provider = "gemini"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

var validate = validator.New()

// Validate checks field constraints and joins every violation into one error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a URL", field)
	default:
		return fmt.Sprintf("%s must satisfy %s=%s", field, e.Tag(), e.Param())
	}
}

func (c *Config) applyEnv() error {
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Server.Addr, "SERVER_ADDRESS")

	b := &c.Backend
	setString(&b.Provider, "LLM_PROVIDER")
	setString(&b.Model, "GEMINI_MODEL")
	setString(&b.APIKey, "GOOGLE_AI_API_KEY")
	setString(&b.BaseURL, "GEMINI_BASE_URL")

	s := &c.Store
	setString(&s.Driver, "STORE_DRIVER")
	setString(&s.DatabaseURL, "DATABASE_URL")
	setString(&s.Table, "DYNAMODB_TABLE")
	setString(&s.Region, "AWS_REGION")
	setString(&s.Endpoint, "DYNAMODB_ENDPOINT")
	setString(&s.SessionID, "SESSION_ID")

	return errors.Join(
		setFloat(&b.Temperature, "LLM_TEMPERATURE"),
		setInt(&b.MaxOutputTokens, "LLM_MAX_OUTPUT_TOKENS"),
		setDuration(&b.Timeout, "LLM_TIMEOUT"),
		setDuration(&b.Breaker.Timeout, "LLM_BREAKER_TIMEOUT"),
		setFloat(&b.Breaker.FailureThreshold, "LLM_BREAKER_FAILURE_THRESHOLD"),
	)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}
