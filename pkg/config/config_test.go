package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "reservemytable", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Storage.StoreBackend)
	assert.Equal(t, BackendMemory, cfg.Storage.LedgerBackend)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, time.Minute, cfg.Reconcile.Interval)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("LEDGER_BACKEND", "postgres")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://tables.example.com,*")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Storage.StoreBackend)
	assert.Equal(t, BackendPostgres, cfg.Storage.LedgerBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://tables.example.com", "*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_NAME=tables-test\nRATE_LIMIT_BURST=7\n"), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)
	assert.Equal(t, "tables-test", cfg.App.Name)
	assert.Equal(t, 7, cfg.RateLimit.Burst)

	_, err = LoadWithPath(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:       AppConfig{Name: "x", Environment: "development"},
			Server:    ServerConfig{Port: 8080},
			JWT:       JWTConfig{Secret: "s3cret"},
			Storage:   StorageConfig{StoreBackend: BackendMemory, LedgerBackend: BackendMemory},
			RateLimit: RateLimitConfig{Enabled: true, RPS: 1, Burst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "empty secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: true},
		{name: "default secret in production", mutate: func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = defaultJWTSecret
		}, wantErr: true},
		{name: "unknown store backend", mutate: func(c *Config) { c.Storage.StoreBackend = "etcd" }, wantErr: true},
		{name: "unknown ledger backend", mutate: func(c *Config) { c.Storage.LedgerBackend = "redis" }, wantErr: true},
		{name: "redis store with memory ledger", mutate: func(c *Config) { c.Storage.StoreBackend = BackendRedis }, wantErr: true},
		{name: "redis store with postgres ledger", mutate: func(c *Config) {
			c.Storage.StoreBackend = BackendRedis
			c.Storage.LedgerBackend = BackendPostgres
		}},
		{name: "memory store with postgres ledger", mutate: func(c *Config) { c.Storage.LedgerBackend = BackendPostgres }},
		{name: "zero burst", mutate: func(c *Config) { c.RateLimit.Burst = 0 }, wantErr: true},
		{name: "zero burst when disabled", mutate: func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.Burst = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_RejectsRedisStoreWithoutDurableLedger(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_BACKEND", "redis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_BACKEND=postgres")
}
