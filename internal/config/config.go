// Package config handles application configuration from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	SERP         SERPConfig         `yaml:"serp"`
	Availability AvailabilityConfig `yaml:"availability"`
	LLM          LLMConfig          `yaml:"llm"`
	RateLimits   RateLimitConfig    `yaml:"rate_limits"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SERPConfig struct {
	BaseURL string  `yaml:"base_url"`
	APIKey  string  `yaml:"api_key"`
	// Outbound requests per second against the provider.
	MaxRPS float64 `yaml:"max_rps"`
}

type AvailabilityConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // openai
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"default_requests_per_minute"`
	// Availability pipeline sliding window (capacity per 60s).
	AvailabilityPerMinute int `yaml:"availability_per_minute"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "./data/rankproof.db",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		SERP: SERPConfig{
			BaseURL: "https://api.serpdata.io",
			MaxRPS:  5,
		},
		Availability: AvailabilityConfig{
			BaseURL: "https://api.domainregistry.io",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		RateLimits: RateLimitConfig{
			RequestsPerMinute:     60,
			AvailabilityPerMinute: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run with --generate-config to create one)", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate environment variables
	content := interpolateEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// GenerateSample creates a sample configuration file.
func GenerateSample(path string) error {
	sample := `# RankProof Configuration
# See documentation for all options

server:
  port: 8080

database:
  path: ./data/rankproof.db

redis:
  addr: localhost:6379
  # password: ${REDIS_PASSWORD}
  db: 0

serp:
  base_url: https://api.serpdata.io
  api_key: ${SERP_API_KEY}
  max_rps: 5

availability:
  base_url: https://api.domainregistry.io
  api_key: ${REGISTRY_API_KEY}

llm:
  provider: openai
  model: gpt-4o-mini
  api_key: ${OPENAI_API_KEY}

rate_limits:
  default_requests_per_minute: 60
  availability_per_minute: 10

logging:
  level: info  # debug, info, warn, error
  format: json # json or text
`
	return os.WriteFile(path, []byte(sample), 0644)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.SERP.BaseURL == "" {
		return fmt.Errorf("SERP provider base URL is required")
	}
	if c.SERP.MaxRPS <= 0 {
		return fmt.Errorf("serp.max_rps must be positive")
	}

	if c.LLM.Provider != "" && c.LLM.Provider != "openai" {
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}

	if c.RateLimits.AvailabilityPerMinute < 1 {
		return fmt.Errorf("availability_per_minute must be at least 1")
	}

	return nil
}

// interpolateEnvVars replaces ${VAR_NAME} with environment variable values.
func interpolateEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match // Keep original if not set
	})
}
