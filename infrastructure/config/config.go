package config

import (
	"fmt"
	"os"
	"strconv"

	domaincfg "trackd-backend/domain/config"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from the
// environment, optionally overridden by a YAML file named in CONFIG_FILE.
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address" validate:"required"`
	Environment   string `yaml:"environment" validate:"oneof=development staging production"`

	// Storage selects the persistence adapter
	StorageDriver string `yaml:"storage_driver" validate:"oneof=memory dynamodb"`

	// AWS configuration, used when StorageDriver is dynamodb
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	EventBusName  string `yaml:"event_bus_name"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing"`
	EnableCORS    bool `yaml:"enable_cors"`

	// Tracing
	TracingEndpoint   string  `yaml:"tracing_endpoint"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate" validate:"gte=0,lte=1"`

	// Limits configure the domain's collection caps and field bounds
	Limits LimitsConfig `yaml:"limits"`
}

// LimitsConfig is the tunable part of the domain configuration
type LimitsConfig struct {
	MaxCommentsPerIssue     int  `yaml:"max_comments_per_issue" validate:"gte=0"`
	MaxLabelsPerIssue       int  `yaml:"max_labels_per_issue" validate:"gte=0"`
	MaxTitleLength          int  `yaml:"max_title_length" validate:"gt=0"`
	MaxBodyLength           int  `yaml:"max_body_length" validate:"gt=0"`
	MaxCommentLength        int  `yaml:"max_comment_length" validate:"gt=0"`
	MaxMilestoneTitleLength int  `yaml:"max_milestone_title_length" validate:"gt=0"`
	RequireCloseReason      bool `yaml:"require_close_reason"`
}

// LoadConfig loads configuration from environment variables, then applies the
// YAML file named in CONFIG_FILE (if any) on top, then validates the result.
func LoadConfig() (*Config, error) {
	defaults := domaincfg.DefaultDomainConfig()

	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		StorageDriver: getEnv("STORAGE_DRIVER", "memory"),

		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("DYNAMODB_TABLE", "trackd"),
		EventBusName:  getEnv("EVENT_BUS_NAME", "trackd-events"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),

		TracingEndpoint:   getEnv("TRACING_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("TRACING_SAMPLE_RATE", 0.1),

		Limits: LimitsConfig{
			MaxCommentsPerIssue:     getEnvInt("MAX_COMMENTS_PER_ISSUE", defaults.MaxCommentsPerIssue),
			MaxLabelsPerIssue:       getEnvInt("MAX_LABELS_PER_ISSUE", defaults.MaxLabelsPerIssue),
			MaxTitleLength:          getEnvInt("MAX_TITLE_LENGTH", defaults.MaxTitleLength),
			MaxBodyLength:           getEnvInt("MAX_BODY_LENGTH", defaults.MaxBodyLength),
			MaxCommentLength:        getEnvInt("MAX_COMMENT_LENGTH", defaults.MaxCommentLength),
			MaxMilestoneTitleLength: getEnvInt("MAX_MILESTONE_TITLE_LENGTH", defaults.MaxMilestoneTitleLength),
			RequireCloseReason:      getEnvBool("REQUIRE_CLOSE_REASON", defaults.RequireCloseReason),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the loaded configuration for consistency
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.StorageDriver == "dynamodb" {
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required with the dynamodb driver")
		}
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required with the dynamodb driver")
		}
	}
	return nil
}

// DomainConfig converts the tunable limits into the domain's config type
func (c *Config) DomainConfig() *domaincfg.DomainConfig {
	return &domaincfg.DomainConfig{
		MaxCommentsPerIssue:     c.Limits.MaxCommentsPerIssue,
		MaxLabelsPerIssue:       c.Limits.MaxLabelsPerIssue,
		MaxTitleLength:          c.Limits.MaxTitleLength,
		MaxBodyLength:           c.Limits.MaxBodyLength,
		MaxCommentLength:        c.Limits.MaxCommentLength,
		MaxMilestoneTitleLength: c.Limits.MaxMilestoneTitleLength,
		RequireCloseReason:      c.Limits.RequireCloseReason,
	}
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
