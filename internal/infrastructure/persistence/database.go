package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/erp/supplier-portal/internal/infrastructure/config"
	"github.com/erp/supplier-portal/internal/infrastructure/persistence/models"
)

// Database is the gorm handle shared by the repositories plus its pool
type Database struct {
	DB     *gorm.DB
	SQL    *sql.DB
	driver string
}

// NewDatabase opens a silent connection; see NewDatabaseWithLogger
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return NewDatabaseWithLogger(cfg, gormlogger.Default.LogMode(gormlogger.Silent))
}

// NewDatabaseWithLogger opens cfg.Driver, sizes the pool and pings once.
// sqlite runs with a single connection because it allows one writer.
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, log gormlogger.Interface) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 log,
		SkipDefaultTransaction: true,
		PrepareStmt:            cfg.Driver != "sqlite",
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}
	pool, err := db.DB()
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		pool.SetMaxOpenConns(1)
		pool.SetMaxIdleConns(1)
	} else {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s: %w", dialector.Name(), err)
	}
	return &Database{DB: db, SQL: pool, driver: dialector.Name()}, nil
}

// PrepareSchema creates the procurement tables on sqlite. PostgreSQL schemas
// are owned by cmd/migrate, so nothing happens there.
func (d *Database) PrepareSchema() error {
	if d.driver != "sqlite" {
		return nil
	}
	return d.DB.AutoMigrate(models.ProcurementModels()...)
}

// Driver returns the gorm dialect name, "postgres" or "sqlite"
func (d *Database) Driver() string {
	return d.driver
}

func (d *Database) Ping(ctx context.Context) error {
	return d.SQL.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.SQL.Close()
}
