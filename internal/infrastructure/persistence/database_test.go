package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/erp/supplier-portal/internal/infrastructure/config"
)

// newMockDatabase wraps a sqlmock connection in the postgres dialect
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: pool, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return &Database{DB: db, SQL: pool, driver: "postgres"}, mock
}

func TestNewDatabase(t *testing.T) {
	t.Run("sqlite prepares the procurement tables", func(t *testing.T) {
		db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", MaxOpenConns: 10, MaxIdleConns: 5})
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, "sqlite", db.Driver())
		assert.Equal(t, 1, db.SQL.Stats().MaxOpenConnections)
		require.NoError(t, db.PrepareSchema())
		for _, table := range []string{"providers", "purchase_orders", "order_lines", "sync_runs"} {
			assert.True(t, db.DB.Migrator().HasTable(table), table)
		}
	})

	t.Run("unsupported driver", func(t *testing.T) {
		db, err := NewDatabase(&config.DatabaseConfig{Driver: "oracle"})
		require.Error(t, err)
		assert.Nil(t, db)
		assert.Contains(t, err.Error(), `unsupported database driver "oracle"`)
	})
}

func TestDatabase_PrepareSchemaSkipsPostgres(t *testing.T) {
	db, mock := newMockDatabase(t)

	require.NoError(t, db.PrepareSchema())
	assert.NoError(t, mock.ExpectationsWereMet(), "no statements for postgres")
}

func TestDatabase_PingAndClose(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectPing()
	mock.ExpectClose()

	assert.NoError(t, db.Ping(context.Background()))
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
