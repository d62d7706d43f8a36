package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/loansim/catalog"
)

// EnvPrefix namespaces environment overrides, e.g. LOANSIM_STORAGE_DB_PATH.
const EnvPrefix = "LOANSIM"

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
	Publisher PublisherConfig `json:"publisher" yaml:"publisher"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog"`
}

// ServerConfig contains HTTP listener parameters. Timeouts are Go duration
// strings such as "15s".
type ServerConfig struct {
	Addr            string `json:"addr" yaml:"addr"`
	ReadTimeout     string `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout string `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Timeouts parses the three server durations.
func (s ServerConfig) Timeouts() (read, write, shutdown time.Duration, err error) {
	if read, err = parseDuration("server.read_timeout", s.ReadTimeout); err != nil {
		return
	}
	if write, err = parseDuration("server.write_timeout", s.WriteTimeout); err != nil {
		return
	}
	shutdown, err = parseDuration("server.shutdown_timeout", s.ShutdownTimeout)
	return
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

// StorageConfig locates the SQLite database
type StorageConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// TelemetryConfig selects where endpoint statistics live
type TelemetryConfig struct {
	Backend   string `json:"backend" yaml:"backend"` // "memory" or "sqlite"
	QueueSize int    `json:"queue_size" yaml:"queue_size"`
	Workers   int    `json:"workers" yaml:"workers"`
}

// PublisherConfig enables the Redis stream publisher when RedisAddr is set
type PublisherConfig struct {
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	Stream    string `json:"stream" yaml:"stream"`
	MaxLen    int64  `json:"max_len" yaml:"max_len"`
}

// LogConfig contains logger parameters
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json or console
}

// CatalogConfig selects where products are looked up and holds the products
// seeded into an empty database (or served directly by the memory backend)
type CatalogConfig struct {
	Backend  string            `json:"backend" yaml:"backend"` // "sqlite" or "memory"
	Seed     bool              `json:"seed" yaml:"seed"`
	Products []catalog.Product `json:"products,omitempty" yaml:"products,omitempty"`
}

// Load reads path (or starts from Default when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = read(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML or JSON). Sections the
// file leaves out keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		return cfg, nil
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LOANSIM_* environment variables.
func (c *Config) ApplyEnv() error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	str := map[string]*string{
		"server.addr":             &c.Server.Addr,
		"server.read_timeout":     &c.Server.ReadTimeout,
		"server.write_timeout":    &c.Server.WriteTimeout,
		"server.shutdown_timeout": &c.Server.ShutdownTimeout,
		"storage.db_path":         &c.Storage.DBPath,
		"telemetry.backend":       &c.Telemetry.Backend,
		"catalog.backend":         &c.Catalog.Backend,
		"publisher.redis_addr":    &c.Publisher.RedisAddr,
		"publisher.stream":        &c.Publisher.Stream,
		"log.level":               &c.Log.Level,
		"log.format":              &c.Log.Format,
	}
	for key, dst := range str {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	ints := map[string]*int{
		"telemetry.queue_size": &c.Telemetry.QueueSize,
		"telemetry.workers":    &c.Telemetry.Workers,
	}
	for key, dst := range ints {
		if !v.IsSet(key) {
			continue
		}
		n, err := strictInt(v.GetString(key))
		if err != nil {
			return fmt.Errorf("%s_%s: %w", EnvPrefix, envName(key), err)
		}
		*dst = n
	}

	if v.IsSet("publisher.max_len") {
		n, err := strictInt(v.GetString("publisher.max_len"))
		if err != nil {
			return fmt.Errorf("%s_%s: %w", EnvPrefix, envName("publisher.max_len"), err)
		}
		c.Publisher.MaxLen = int64(n)
	}
	if v.IsSet("catalog.seed") {
		c.Catalog.Seed = v.GetBool("catalog.seed")
	}
	return nil
}

func strictInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, _, _, err := c.Server.Timeouts(); err != nil {
		return err
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Telemetry.Backend != "memory" && c.Telemetry.Backend != "sqlite" {
		return fmt.Errorf("telemetry.backend must be 'memory' or 'sqlite'")
	}
	if c.Telemetry.QueueSize <= 0 {
		return fmt.Errorf("telemetry.queue_size must be positive")
	}
	if c.Telemetry.Workers <= 0 {
		return fmt.Errorf("telemetry.workers must be positive")
	}
	if c.Publisher.RedisAddr != "" && c.Publisher.Stream == "" {
		return fmt.Errorf("publisher.stream is required when publisher.redis_addr is set")
	}
	if c.Publisher.MaxLen < 0 {
		return fmt.Errorf("publisher.max_len must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console'")
	}
	switch c.Catalog.Backend {
	case "sqlite":
		if c.Catalog.Seed && len(c.Catalog.Products) == 0 {
			return fmt.Errorf("catalog.products required when catalog.seed is set")
		}
	case "memory":
		if len(c.Catalog.Products) == 0 {
			return fmt.Errorf("catalog.products required for the memory catalog")
		}
	default:
		return fmt.Errorf("catalog.backend must be 'sqlite' or 'memory'")
	}
	seen := make(map[int]bool, len(c.Catalog.Products))
	for _, p := range c.Catalog.Products {
		if seen[p.Code] {
			return fmt.Errorf("catalog product %d listed twice", p.Code)
		}
		seen[p.Code] = true
		if p.Rate.IsNegative() {
			return fmt.Errorf("catalog product %d: rate must not be negative", p.Code)
		}
		if p.MaxTerm != nil && *p.MaxTerm < p.MinTerm {
			return fmt.Errorf("catalog product %d: max_term below min_term", p.Code)
		}
		if p.MaxPrincipal != nil && p.MaxPrincipal.LessThan(p.MinPrincipal) {
			return fmt.Errorf("catalog product %d: max_principal below min_principal", p.Code)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "15s",
			WriteTimeout:    "15s",
			ShutdownTimeout: "10s",
		},
		Storage: StorageConfig{
			DBPath: "./loansim.db",
		},
		Telemetry: TelemetryConfig{
			Backend:   "memory",
			QueueSize: 1024,
			Workers:   2,
		},
		Publisher: PublisherConfig{
			Stream: "simulations",
			MaxLen: 10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Catalog: CatalogConfig{
			Backend:  "sqlite",
			Seed:     true,
			Products: catalog.DefaultProducts(),
		},
	}
}
