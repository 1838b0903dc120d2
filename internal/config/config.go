package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/feedlock/internal/domain/quota"
	"github.com/kailas-cloud/feedlock/internal/domain/strategy"
)

// Store drivers.
const (
	DriverRedis    = "redis"
	DriverValkey   = "valkey"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Analytics sinks.
const (
	SinkLog      = "log"
	SinkPostgres = "postgres"
	SinkBoth     = "both"
)

// Config holds the feedlock service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	AI          AIConfig          `yaml:"ai"`
	Cache       CacheConfig       `yaml:"cache"`
	Quota       QuotaConfig       `yaml:"quota"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Analytics   AnalyticsConfig   `yaml:"analytics"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, postgres, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`

	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`

	MemoryCapacity int `yaml:"memory_capacity"`
}

// AIConfig holds the OpenAI-compatible classifier settings.
type AIConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Provider          string  `yaml:"provider"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = no client-side limit
	Burst             int     `yaml:"burst"`
}

// CacheConfig holds classification cache settings.
type CacheConfig struct {
	TTLHours int `yaml:"ttl_hours"`
}

// QuotaConfig holds per-tier daily AI call limits. -1 means unlimited.
type QuotaConfig struct {
	Limits       map[string]int64 `yaml:"limits"`
	OnStoreError string           `yaml:"on_store_error"` // allow (default) | deny
}

// StrategyConfig holds the default filter strategy.
type StrategyConfig struct {
	Default string `yaml:"default"`
}

// MaintenanceConfig holds housekeeping job schedules. An empty schedule disables the job.
type MaintenanceConfig struct {
	Enabled       bool   `yaml:"enabled"`
	CacheSweep    string `yaml:"cache_sweep"`
	QuotaReset    string `yaml:"quota_reset"`
	JobTimeoutSec int    `yaml:"job_timeout_sec"`
}

// AnalyticsConfig holds filter event reporting settings.
type AnalyticsConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Sink             string `yaml:"sink"` // log (default) | postgres | both
	QueueSize        int    `yaml:"queue_size"`
	BatchSize        int    `yaml:"batch_size"`
	FlushIntervalSec int    `yaml:"flush_interval_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML with ${VAR} expansion, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.AI.Provider == "" {
		c.AI.Provider = "openai"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-3.5-turbo"
	}
	if c.AI.MaxTokens <= 0 {
		c.AI.MaxTokens = 10
	}
	if c.AI.TimeoutSec <= 0 {
		c.AI.TimeoutSec = 5
	}

	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24
	}

	if c.Quota.Limits == nil {
		c.Quota.Limits = make(map[string]int64)
	}
	for tier, limit := range quota.DefaultLimits() {
		if _, ok := c.Quota.Limits[string(tier)]; !ok {
			c.Quota.Limits[string(tier)] = limit
		}
	}
	if c.Quota.OnStoreError == "" {
		c.Quota.OnStoreError = "allow"
	}

	if c.Strategy.Default == "" {
		c.Strategy.Default = string(strategy.Default)
	}

	if c.Maintenance.JobTimeoutSec <= 0 {
		c.Maintenance.JobTimeoutSec = 300
	}

	if c.Analytics.Sink == "" {
		c.Analytics.Sink = SinkLog
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of redis, valkey, postgres, memory, got %q", c.Database.Driver)
	}

	if c.AI.Enabled && c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required when ai.enabled is true")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2, got %v", c.AI.Temperature)
	}

	for name, limit := range c.Quota.Limits {
		if _, err := quota.ParseTier(name); err != nil {
			return fmt.Errorf("quota.limits: %w", err)
		}
		if limit < quota.Unlimited {
			return fmt.Errorf("quota.limits.%s must be >= -1, got %d", name, limit)
		}
	}
	switch c.Quota.OnStoreError {
	case "allow", "deny":
	default:
		return fmt.Errorf("quota.on_store_error must be \"allow\" or \"deny\", got %q", c.Quota.OnStoreError)
	}

	if _, err := strategy.Parse(c.Strategy.Default); err != nil {
		return fmt.Errorf("strategy.default: %w", err)
	}

	switch c.Analytics.Sink {
	case SinkLog:
	case SinkPostgres, SinkBoth:
		if c.Database.DSN == "" {
			return fmt.Errorf("analytics.sink %q requires database.dsn", c.Analytics.Sink)
		}
	default:
		return fmt.Errorf("analytics.sink must be one of log, postgres, both, got %q", c.Analytics.Sink)
	}

	return nil
}

// QuotaLimits converts the configured limits into domain limits.
// Call after Validate.
func (c *Config) QuotaLimits() quota.Limits {
	out := make(quota.Limits, len(c.Quota.Limits))
	for name, limit := range c.Quota.Limits {
		out[quota.Tier(name)] = limit
	}
	return out
}

// CacheTTL returns the classification cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// AITimeout returns the per-call AI classification timeout.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSec) * time.Second
}

// NeedsPostgres reports whether any component requires a PostgreSQL connection.
func (c *Config) NeedsPostgres() bool {
	if c.Database.Driver == DriverPostgres {
		return true
	}
	return c.Analytics.Enabled && c.Analytics.Sink != SinkLog
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file: internal/config -> project root
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		varName, defaultVal, hasDefault := strings.Cut(string(match[2:len(match)-1]), ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
