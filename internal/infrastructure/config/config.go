package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultMieleBaseURL is the Miele 3rd-party API device listing endpoint.
const DefaultMieleBaseURL = "https://api.mcs3.miele.com/v1/devices"

// Config is the root configuration structure for Hood Bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Miele    MieleConfig    `yaml:"miele"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BridgeConfig identifies this bridge instance.
type BridgeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// HealthInterval is how often bridge health is published (seconds).
	HealthInterval int `yaml:"health_interval"`
}

// MieleConfig contains the vendor cloud settings.
type MieleConfig struct {
	// BaseURL is the device listing endpoint. Must be an absolute https URL.
	BaseURL string `yaml:"base_url"`

	// Token is the pre-provisioned OAuth access token, sent as a bearer credential.
	// WARNING: Never log this value. Prefer HOODBRIDGE_MIELE_TOKEN.
	Token string `yaml:"token"`

	// PollInterval is the delay between discovery passes (seconds).
	// 0 runs discovery once, when the platform becomes ready.
	PollInterval int `yaml:"poll_interval"`

	// StateInterval is how often each hood's state is refreshed (seconds).
	// 0 disables periodic refresh; state is then only read after commands.
	StateInterval int `yaml:"state_interval"`

	// RequestTimeout bounds every call to the vendor API (seconds).
	RequestTimeout int `yaml:"request_timeout"`
}

// String returns a representation with the token masked, for logging.
func (m MieleConfig) String() string {
	token := ""
	if m.Token != "" {
		token = "[REDACTED]"
	}
	return fmt.Sprintf("MieleConfig{BaseURL:%q, Token:%s, PollInterval:%d, StateInterval:%d}",
		m.BaseURL, token, m.PollInterval, m.StateInterval)
}

// DatabaseConfig contains SQLite database settings for the accessory cache.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains status API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. A .env file next to the config file, if present (never overrides the real environment)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: HOODBRIDGE_SECTION_KEY
// For example: HOODBRIDGE_MIELE_TOKEN, HOODBRIDGE_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := loadDotEnv(dotEnvPath(path)); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// dotEnvPath returns the .env file that sits beside the config file.
func dotEnvPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), ".env")
}

// loadDotEnv loads a .env file into the process environment.
// A missing file is not an error; existing variables are left untouched.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "hoodbridge",
			Name:           "Miele Hood Bridge",
			HealthInterval: 30,
		},
		Miele: MieleConfig{
			BaseURL:        DefaultMieleBaseURL,
			PollInterval:   0,
			StateInterval:  60,
			RequestTimeout: 30,
		},
		Database: DatabaseConfig{
			Path:        "./data/hoodbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hoodbridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8581,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Miele
	if v := os.Getenv("HOODBRIDGE_MIELE_TOKEN"); v != "" {
		cfg.Miele.Token = v
	}
	if v := os.Getenv("HOODBRIDGE_MIELE_BASE_URL"); v != "" {
		cfg.Miele.BaseURL = v
	}
	if v := os.Getenv("HOODBRIDGE_MIELE_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Miele.PollInterval = n
		}
	}

	// Database
	if v := os.Getenv("HOODBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HOODBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOODBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOODBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HOODBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	// The vendor API only accepts bearer tokens over TLS.
	if strings.TrimSpace(c.Miele.Token) == "" {
		errs = append(errs, "miele.token is required (set HOODBRIDGE_MIELE_TOKEN environment variable)")
	}
	if u, err := url.Parse(c.Miele.BaseURL); err != nil || u.Scheme != "https" || u.Host == "" {
		errs = append(errs, "miele.base_url must be an absolute https URL")
	}
	if c.Miele.PollInterval < 0 {
		errs = append(errs, "miele.poll_interval must not be negative")
	}
	if c.Miele.StateInterval < 0 {
		errs = append(errs, "miele.state_interval must not be negative")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollInterval returns the discovery poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Miele.PollInterval) * time.Second
}

// GetStateInterval returns the hood state refresh interval as a Duration.
func (c *Config) GetStateInterval() time.Duration {
	return time.Duration(c.Miele.StateInterval) * time.Second
}

// GetRequestTimeout returns the vendor API request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Miele.RequestTimeout) * time.Second
}

// GetHealthInterval returns the bridge health interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}
