package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T, prefix string) {
	t.Setenv("ENV_TYPE", prefix)
	t.Setenv(prefix+"_DB_HOST", "db.internal")
	t.Setenv(prefix+"_DB_USER", "estate")
	t.Setenv(prefix+"_DB_NAME", "estatehub")
	t.Setenv("DEFAULT_ADMIN_PASSWORD", "changeme")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t, "LOCAL")

	cfg := LoadConfig()

	assert.Equal(t, "LOCAL", cfg.EnvType)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, "auto", cfg.DBMigrationMode)
	assert.Equal(t, 24, cfg.JWTExpireHours)
	assert.Equal(t, "@every 10s", cfg.DoorbellScanSpec)
	assert.Equal(t, 5*time.Second, cfg.DoorbellRingDedupe)
	assert.Equal(t, 30, cfg.DefaultDoorbellTimeout)
	assert.False(t, cfg.TuyaCloudEnabled())
}

func TestLoadConfigServerPrefix(t *testing.T) {
	setRequired(t, "SERVER")
	t.Setenv("SERVER_DB_PORT", "3307")
	t.Setenv("SERVER_REDIS_HOST", "cache")
	t.Setenv("TUYA_ACCESS_ID", "id")
	t.Setenv("TUYA_ACCESS_SECRET", "secret")

	cfg := LoadConfig()

	assert.Equal(t, "SERVER", cfg.EnvType)
	assert.Equal(t, "cache:6379", cfg.GetRedisAddr())
	assert.Contains(t, cfg.GetDSN(), "estate:@tcp(db.internal:3307)/estatehub?")
	assert.True(t, cfg.TuyaCloudEnabled())
}

func TestLoadConfigMissingRequiredPanics(t *testing.T) {
	t.Setenv("ENV_TYPE", "LOCAL")
	t.Setenv("LOCAL_DB_HOST", "")

	assert.Panics(t, func() { LoadConfig() })
}
