package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm/logger"

	"estatehub-http-service/internal/infrastructure/config"
)

func newMockPool(t *testing.T) (*ConnectionPool, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	dialector := mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true})
	pool, err := NewConnectionPoolWithDialector(dialector, logger.Silent)
	require.NoError(t, err)
	return pool, mock
}

func TestConnectionPoolDefaults(t *testing.T) {
	pool, _ := newMockPool(t)

	assert.Equal(t, 10, pool.MaxIdleConns)
	assert.Equal(t, 100, pool.MaxOpenConns)
	assert.Equal(t, time.Hour, pool.ConnMaxLifetime)

	stats, err := pool.Stats()
	require.NoError(t, err)
	assert.Equal(t, 100, stats["max_open_connections"])
	assert.NoError(t, pool.HealthCheck())
}

func TestConnectionPoolUpdateConfig(t *testing.T) {
	pool, _ := newMockPool(t)

	require.NoError(t, pool.UpdatePoolConfig(2, 5, time.Minute, time.Minute))
	stats, err := pool.Stats()
	require.NoError(t, err)
	assert.Equal(t, 5, stats["max_open_connections"])
}

func TestApplyConfig(t *testing.T) {
	pool, _ := newMockPool(t)

	require.NoError(t, pool.ApplyConfig(&config.Config{}))
	assert.Equal(t, 10, pool.MaxIdleConns)
	assert.Equal(t, 100, pool.MaxOpenConns)

	require.NoError(t, pool.ApplyConfig(&config.Config{DBMaxIdleConns: 4, DBMaxOpenConns: 20}))
	assert.Equal(t, 4, pool.MaxIdleConns)
	stats, err := pool.Stats()
	require.NoError(t, err)
	assert.Equal(t, 20, stats["max_open_connections"])
}

func TestHealthCheckFailsWhenClosed(t *testing.T) {
	pool, mock := newMockPool(t)
	mock.ExpectClose()
	require.NoError(t, pool.Close())
	assert.Error(t, pool.HealthCheck())
}
