package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const validYAML = `
env: "dev"
http:
  host: "127.0.0.1"
  port: "8081"
auth:
  jwt_secret: "test-secret"
  access_token_ttl: 5m
  refresh_token_ttl: 168h
  issuer: "social-service"
db:
  db_url: "mongodb://localhost:27017/social"
limits:
  default: 10
  max: 50
`

func TestLoad_ExplicitPath_OK(t *testing.T) {
	path := writeTempConfig(t, validYAML)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, "127.0.0.1:8081", cfg.HTTP.Addr())
	require.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 168*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, "mongodb://localhost:27017/social", cfg.DB.URL)
	require.EqualValues(t, 10, cfg.Limits.Default)
	require.EqualValues(t, 50, cfg.Limits.Max)
}

func TestLoad_Defaults_Applied(t *testing.T) {
	path := writeTempConfig(t, `
auth:
  jwt_secret: "s"
db:
  db_url: "mongodb://localhost:27017/social"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Env)
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, "social-service", cfg.Auth.Issuer)
	require.EqualValues(t, 20, cfg.Limits.Default)
	require.EqualValues(t, int64(5242880), cfg.Uploads.MaxSizeBytes)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, validYAML)

	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	require.Equal(t, "9090", cfg.HTTP.Port)
}

func TestLoad_MissingRequired_Fails(t *testing.T) {
	path := writeTempConfig(t, `
env: "dev"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_ExplicitPath_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("JWT_SECRET", "only-env")
	t.Setenv("DATABASE_URL", "mongodb://localhost:27017/social")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "only-env", cfg.Auth.JWTSecret)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	require.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
	})
}
