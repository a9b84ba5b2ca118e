package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.AppPort)
	assert.Equal(t, SessionBackendPostgres, cfg.SessionBackend)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Duration(0), cfg.VerificationTTL)
	assert.Equal(t, "studyshare-uploads", cfg.ObjectStore.Bucket)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, 15*time.Minute, cfg.SessionPruneInterval)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 2*time.Minute, cfg.HTTPReadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.HTTPWriteTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STUDYSHARE_PORT", "9090")
	t.Setenv("STUDYSHARE_ADMIN_EMAIL", "  Admin@Example.com ")
	t.Setenv("STUDYSHARE_PUBLIC_BASE_URL", "https://share.example.com/")
	t.Setenv("STUDYSHARE_VERIFICATION_TTL", "48h")
	t.Setenv("STUDYSHARE_SESSION_BACKEND", "Redis")
	t.Setenv("STUDYSHARE_REDIS_ADDR", "cache:6379")
	t.Setenv("STUDYSHARE_S3_BUCKET", "materials-prod")
	t.Setenv("STUDYSHARE_SMTP_HOST", "smtp.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.AppPort)
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.Equal(t, "https://share.example.com", cfg.PublicBaseURL)
	assert.Equal(t, 48*time.Hour, cfg.VerificationTTL)
	assert.Equal(t, SessionBackendRedis, cfg.SessionBackend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "materials-prod", cfg.ObjectStore.Bucket)
	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"unknownBackend":  {"STUDYSHARE_SESSION_BACKEND": "etcd"},
		"zeroUploadLimit": {"STUDYSHARE_MAX_UPLOAD_BYTES": "0"},
		"badDuration":     {"STUDYSHARE_SESSION_TTL": "forever"},
		"negativeTTL":     {"STUDYSHARE_VERIFICATION_TTL": "-1h"},
		"negativePrune":   {"STUDYSHARE_SESSION_PRUNE_INTERVAL": "-1m"},
		"negativeConns":   {"STUDYSHARE_DB_MAX_CONNS": "-2"},
		"zeroReadTimeout": {"STUDYSHARE_HTTP_READ_TIMEOUT": "0s"},
	}

	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyshare.env")
	contents := "STUDYSHARE_ADMIN_EMAIL=file@example.com\nSTUDYSHARE_PORT=7070\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	t.Setenv(EnvFileVar, path)
	t.Setenv("STUDYSHARE_PORT", "9191")
	t.Cleanup(func() { _ = os.Unsetenv("STUDYSHARE_ADMIN_EMAIL") })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file@example.com", cfg.AdminEmail)
	assert.Equal(t, 9191, cfg.AppPort, "process environment wins over the env file")
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	t.Setenv(EnvFileVar, filepath.Join(t.TempDir(), "missing.env"))

	_, err := Load()
	assert.Error(t, err)
}
