package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Telemetry.Backend)
	assert.Equal(t, "simulations", cfg.Publisher.Stream)
	assert.Empty(t, cfg.Publisher.RedisAddr)
	assert.Equal(t, "sqlite", cfg.Catalog.Backend)
	assert.Len(t, cfg.Catalog.Products, 4)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing addr",
			mutate:  func(c *Config) { c.Server.Addr = "" },
			wantErr: true,
			errMsg:  "server.addr is required",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = "soon" },
			wantErr: true,
			errMsg:  "server.read_timeout",
		},
		{
			name:    "missing db path",
			mutate:  func(c *Config) { c.Storage.DBPath = "" },
			wantErr: true,
			errMsg:  "storage.db_path is required",
		},
		{
			name:    "unknown telemetry backend",
			mutate:  func(c *Config) { c.Telemetry.Backend = "postgres" },
			wantErr: true,
			errMsg:  "telemetry.backend must be 'memory' or 'sqlite'",
		},
		{
			name:    "zero queue",
			mutate:  func(c *Config) { c.Telemetry.QueueSize = 0 },
			wantErr: true,
			errMsg:  "telemetry.queue_size must be positive",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Telemetry.Workers = 0 },
			wantErr: true,
			errMsg:  "telemetry.workers must be positive",
		},
		{
			name: "redis without stream",
			mutate: func(c *Config) {
				c.Publisher.RedisAddr = "localhost:6379"
				c.Publisher.Stream = ""
			},
			wantErr: true,
			errMsg:  "publisher.stream is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: true,
			errMsg:  "log.level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
			errMsg:  "log.format",
		},
		{
			name:    "seed without products",
			mutate:  func(c *Config) { c.Catalog.Products = nil },
			wantErr: true,
			errMsg:  "catalog.products required",
		},
		{
			name: "memory catalog without products",
			mutate: func(c *Config) {
				c.Catalog.Backend = "memory"
				c.Catalog.Seed = false
				c.Catalog.Products = nil
			},
			wantErr: true,
			errMsg:  "memory catalog",
		},
		{
			name:    "unknown catalog backend",
			mutate:  func(c *Config) { c.Catalog.Backend = "redis" },
			wantErr: true,
			errMsg:  "catalog.backend",
		},
		{
			name: "duplicate product",
			mutate: func(c *Config) {
				c.Catalog.Products = append(c.Catalog.Products, c.Catalog.Products[0])
			},
			wantErr: true,
			errMsg:  "listed twice",
		},
		{
			name: "inverted term bounds",
			mutate: func(c *Config) {
				short := 10
				c.Catalog.Products[1].MaxTerm = &short
			},
			wantErr: true,
			errMsg:  "max_term below min_term",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Telemetry.Backend = "sqlite"
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Server, loaded.Server)
			assert.Equal(t, "sqlite", loaded.Telemetry.Backend)
			require.Len(t, loaded.Catalog.Products, len(cfg.Catalog.Products))
			for i, p := range cfg.Catalog.Products {
				got := loaded.Catalog.Products[i]
				assert.Equal(t, p.Code, got.Code)
				assert.True(t, p.Rate.Equal(got.Rate), "product %d rate", p.Code)
				assert.True(t, p.MinPrincipal.Equal(got.MinPrincipal), "product %d min principal", p.Code)
				assert.Equal(t, p.MaxTerm, got.MaxTerm)
			}
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte(`
storage:
  db_path: /var/lib/loansim/loansim.db
catalog:
  seed: true
  products:
    - code: 7
      description: Produto 7
      rate: 0.0123
      min_term: 1
      max_term: 12
      min_principal: 100
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/loansim/loansim.db", cfg.Storage.DBPath)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	require.Len(t, cfg.Catalog.Products, 1)
	assert.Equal(t, "0.0123", cfg.Catalog.Products[0].Rate.String())
	assert.Nil(t, cfg.Catalog.Products[0].MaxPrincipal)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not: [valid"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadAppliesEnv(t *testing.T) {
	t.Setenv("LOANSIM_STORAGE_DB_PATH", "/tmp/env.db")
	t.Setenv("LOANSIM_PUBLISHER_REDIS_ADDR", "redis:6379")
	t.Setenv("LOANSIM_TELEMETRY_WORKERS", "4")
	t.Setenv("LOANSIM_LOG_LEVEL", "debug")
	t.Setenv("LOANSIM_CATALOG_BACKEND", "memory")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Storage.DBPath)
	assert.Equal(t, "redis:6379", cfg.Publisher.RedisAddr)
	assert.Equal(t, 4, cfg.Telemetry.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "memory", cfg.Catalog.Backend)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("LOANSIM_TELEMETRY_QUEUE_SIZE", "lots")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOANSIM_TELEMETRY_QUEUE_SIZE")
}

func TestServerTimeouts(t *testing.T) {
	tests := []struct {
		read     string
		expected time.Duration
		wantErr  bool
	}{
		{"1h", time.Hour, false},
		{"30s", 30 * time.Second, false},
		{"", 0, false},
		{"invalid", 0, true},
		{"-1s", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.read, func(t *testing.T) {
			s := ServerConfig{ReadTimeout: tt.read}
			read, _, _, err := s.Timeouts()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, read)
			}
		})
	}
}
