package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:               "3000",
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "parley",
		AccessTokenSecret:  "access-secret-change-in-production",
		RefreshTokenSecret: "refresh-secret-change-in-production",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    168 * time.Hour,
		Env:                "development",
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid development config", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, validConfig().Validate())
	})

	t.Run("missing mongo uri", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MongoURI = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing secrets", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.AccessTokenSecret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("identical secrets", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.RefreshTokenSecret = cfg.AccessTokenSecret
		assert.Error(t, cfg.Validate())
	})

	t.Run("access ttl must be shorter than refresh ttl", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.AccessTokenTTL = 200 * time.Hour
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.AccessTokenTTL = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("production rejects default secrets", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Env = "production"
		assert.Error(t, cfg.Validate())
	})

	t.Run("production rejects short secrets", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Env = "production"
		cfg.AccessTokenSecret = "short-access"
		cfg.RefreshTokenSecret = "short-refresh"
		assert.Error(t, cfg.Validate())
	})

	t.Run("production accepts strong secrets", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Env = "production"
		cfg.AccessTokenSecret = "a-very-long-production-access-secret-0123456789"
		cfg.RefreshTokenSecret = "a-very-long-production-refresh-secret-0123456789"
		require.NoError(t, cfg.Validate())
	})
}
