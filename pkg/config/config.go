package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/docket/pkg/keycloak"
	"github.com/platinummonkey/docket/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Keycloak identity provider configuration
	Keycloak KeycloakConfig `yaml:"keycloak"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            string   `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL          string   `yaml:"url"`
	MaxOpenConns int      `yaml:"max_open_conns"`
	MaxIdleConns int      `yaml:"max_idle_conns"`
	ConnLifetime Duration `yaml:"conn_lifetime"`
}

// KeycloakConfig holds identity provider settings
type KeycloakConfig struct {
	BaseURL      string   `yaml:"base_url"`
	Realm        string   `yaml:"realm"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Timeout      Duration `yaml:"timeout"`

	// VerifyIngress enables bearer-token signature verification middleware
	VerifyIngress bool `yaml:"verify_ingress"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "15s"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel `yaml:"-"`

	// LogLevelName is the yaml/env spelling of LogLevel
	LogLevelName string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// LoadConfig loads configuration from an optional YAML file (DOCKET_CONFIG_FILE)
// with environment variables taking precedence
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := getEnv("DOCKET_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadEnv()
	cfg.Observability.LogLevel = observability.ParseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(15 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			ConnLifetime: Duration(30 * time.Minute),
		},
		Keycloak: KeycloakConfig{
			Realm:   "docket",
			Timeout: Duration(keycloak.DefaultTimeout),
		},
		Observability: ObservabilityConfig{
			LogLevelName:   "info",
			MetricsEnabled: true,
		},
	}
}

// loadFile overlays YAML file values onto the config
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays environment variables onto the config
func (c *Config) loadEnv() {
	c.Server.Host = getEnv("DOCKET_HOST", c.Server.Host)
	c.Server.Port = getEnv("DOCKET_PORT", c.Server.Port)
	c.Server.ReadTimeout = Duration(getEnvDuration("DOCKET_READ_TIMEOUT", c.Server.ReadTimeout.Std()))
	c.Server.WriteTimeout = Duration(getEnvDuration("DOCKET_WRITE_TIMEOUT", c.Server.WriteTimeout.Std()))
	c.Server.IdleTimeout = Duration(getEnvDuration("DOCKET_IDLE_TIMEOUT", c.Server.IdleTimeout.Std()))
	c.Server.ShutdownTimeout = Duration(getEnvDuration("DOCKET_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout.Std()))
	c.Server.HealthPort = getEnv("DOCKET_HEALTH_PORT", c.Server.HealthPort)

	c.Database.URL = getEnv("DOCKET_POSTGRES_URL", c.Database.URL)
	c.Database.MaxOpenConns = getEnvInt("DOCKET_POSTGRES_MAX_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DOCKET_POSTGRES_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnLifetime = Duration(getEnvDuration("DOCKET_POSTGRES_CONN_LIFETIME", c.Database.ConnLifetime.Std()))

	c.Keycloak.BaseURL = getEnv("DOCKET_KEYCLOAK_URL", c.Keycloak.BaseURL)
	c.Keycloak.Realm = getEnv("DOCKET_KEYCLOAK_REALM", c.Keycloak.Realm)
	c.Keycloak.ClientID = getEnv("DOCKET_KEYCLOAK_CLIENT_ID", c.Keycloak.ClientID)
	c.Keycloak.ClientSecret = getEnv("DOCKET_KEYCLOAK_CLIENT_SECRET", c.Keycloak.ClientSecret)
	c.Keycloak.Timeout = Duration(getEnvDuration("DOCKET_KEYCLOAK_TIMEOUT", c.Keycloak.Timeout.Std()))
	c.Keycloak.VerifyIngress = getEnvBool("DOCKET_KEYCLOAK_VERIFY_INGRESS", c.Keycloak.VerifyIngress)

	c.Observability.LogLevelName = getEnv("DOCKET_LOG_LEVEL", c.Observability.LogLevelName)
	c.Observability.MetricsEnabled = getEnvBool("DOCKET_METRICS_ENABLED", c.Observability.MetricsEnabled)
}

// KeycloakClientConfig projects the Keycloak section into the client's
// config type
func (c *Config) KeycloakClientConfig() keycloak.Config {
	return keycloak.Config{
		BaseURL:      c.Keycloak.BaseURL,
		Realm:        c.Keycloak.Realm,
		ClientID:     c.Keycloak.ClientID,
		ClientSecret: c.Keycloak.ClientSecret,
		Timeout:      c.Keycloak.Timeout.Std(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Keycloak.BaseURL == "" {
		return fmt.Errorf("keycloak base URL is required")
	}
	if !strings.HasPrefix(c.Keycloak.BaseURL, "http://") && !strings.HasPrefix(c.Keycloak.BaseURL, "https://") {
		return fmt.Errorf("keycloak base URL must be an http(s) URL")
	}
	if c.Keycloak.Realm == "" {
		return fmt.Errorf("keycloak realm is required")
	}
	if c.Keycloak.ClientID == "" {
		return fmt.Errorf("keycloak client ID is required")
	}
	if c.Keycloak.ClientSecret == "" {
		return fmt.Errorf("keycloak client secret is required")
	}
	if c.Keycloak.Timeout <= 0 {
		return fmt.Errorf("keycloak timeout must be positive")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
