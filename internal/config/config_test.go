package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "log", cfg.SenderDriver)
	assert.Equal(t, 1500*time.Millisecond, cfg.PacingDelay)
	assert.Equal(t, 30, cfg.HistoryDays)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ZUBI_PORT", "9090")
	t.Setenv("ZUBI_STORE_DRIVER", "sqlite")
	t.Setenv("ZUBI_PACING_DELAY", "0s")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, time.Duration(0), cfg.PacingDelay)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.StoreDriver = "mongo" },
			wantErr: "unsupported STORE_DRIVER",
		},
		{
			name:    "unknown sender",
			mutate:  func(c *Config) { c.SenderDriver = "sms" },
			wantErr: "unsupported SENDER_DRIVER",
		},
		{
			name:    "zapi without credentials",
			mutate:  func(c *Config) { c.SenderDriver = "zapi" },
			wantErr: "requires ZAPI_INSTANCE_ID",
		},
		{
			name:    "no workers",
			mutate:  func(c *Config) { c.WorkerCount = 0 },
			wantErr: "WORKER_COUNT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{StoreDriver: "memory", SenderDriver: "log", WorkerCount: 2}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "zubi", DBPort: "5432", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=zubi port=5432 sslmode=disable application_name=zubi", cfg.PostgresDSN())
}
