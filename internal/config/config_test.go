package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("STORAGE_USE_SSL", "false")
	t.Setenv("STORAGE_BUCKET", "post-images")
	t.Setenv("STORAGE_REGION", "eu-west-1")
	t.Setenv("STORAGE_ENDPOINT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Storage.UseSSL)
	assert.Equal(t, "post-images", cfg.Storage.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Storage.Region)
	assert.Equal(t, "s3.eu-west-1.amazonaws.com", cfg.Storage.Endpoint)
	assert.Equal(t, int64(1024), cfg.HTTP.MaxUploadBytes)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "MAX_BODY_BYTES", "MAX_UPLOAD_BYTES", "STORAGE_CONNECT_TIMEOUT_SEC", "STORAGE_TRANSFER_TIMEOUT_SEC", "CORS_ALLOW_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10<<20, cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, int64(5<<20), cfg.HTTP.MaxUploadBytes)
	assert.Equal(t, 5, cfg.Storage.ConnectTimeoutSec)
	assert.Equal(t, 30, cfg.Storage.TransferTimeoutSec)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSAllowOrigins)
}

func TestLoad_RDSFallback(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("RDS_HOSTNAME", "rds.example.internal")
	t.Setenv("RDS_USERNAME", "blog")
	t.Setenv("RDS_DB_NAME", "blogdb")

	cfg := Load()

	assert.Equal(t, "rds.example.internal", cfg.Database.Host)
	assert.Equal(t, "blog", cfg.Database.User)
	assert.Equal(t, "blogdb", cfg.Database.Name)
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{Timezone: "Asia/Jakarta"}
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvList(t *testing.T) {
	key := "TEST_LIST_VAR"
	def := []string{"*"}

	t.Setenv(key, "https://a.example, https://b.example,,")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvList(key, def))

	t.Setenv(key, " , ")
	assert.Equal(t, def, getEnvList(key, def))

	t.Setenv(key, "")
	assert.Equal(t, def, getEnvList(key, def))
}
