package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "zenith")
	t.Setenv("DB_NAME", "zenith")
	t.Setenv("DB_PASSWORD", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "client-id", cfg.GoogleClientID)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, 86400, cfg.JWTExpiresIn)
	assert.Equal(t, "host=db.internal user=zenith dbname=zenith port=5432 password=hunter2", cfg.DSN())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")

	_, err := Load()
	assert.Error(t, err)
}
