// Package migration owns the versioned PostgreSQL schema under migrations/.
// Scripts are applied with golang-migrate; sqlite deployments rely on gorm AutoMigrate instead.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// ErrDirty is returned when a previous run failed half way. Fix the schema
// by hand, then Force the last good version.
var ErrDirty = errors.New("schema is dirty")

// Migrator applies the scripts of one directory to one database
type Migrator struct {
	m      *migrate.Migrate
	dir    string
	logger *zap.Logger
}

// Status describes where the database stands relative to the scripts on disk
type Status struct {
	Version uint
	Dirty   bool
	Pending []Script
}

// New binds dir to an open PostgreSQL connection. The connection stays owned by the caller
// until Close.
func New(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("open migrations %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{m: m, dir: dir, logger: logger.Named("migration")}, nil
}

// Up applies every pending script
func (mg *Migrator) Up() error {
	return mg.run("up", mg.m.Up)
}

// Down reverts every applied script
func (mg *Migrator) Down() error {
	return mg.run("down", mg.m.Down)
}

// Steps moves n scripts forward, or backward when n is negative
func (mg *Migrator) Steps(n int) error {
	if n == 0 {
		return nil
	}
	return mg.run(fmt.Sprintf("steps(%+d)", n), func() error { return mg.m.Steps(n) })
}

// GoTo moves the schema to exactly version
func (mg *Migrator) GoTo(version uint) error {
	return mg.run(fmt.Sprintf("goto(%d)", version), func() error { return mg.m.Migrate(version) })
}

// Version reports the applied version, zero when the schema is empty
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return v, dirty, nil
}

// Status compares the applied version with the scripts on disk
func (mg *Migrator) Status() (Status, error) {
	v, dirty, err := mg.Version()
	if err != nil {
		return Status{}, err
	}
	scripts, err := Scan(mg.dir)
	if err != nil {
		return Status{}, err
	}
	st := Status{Version: v, Dirty: dirty}
	for _, s := range scripts {
		if s.Version > v {
			st.Pending = append(st.Pending, s)
		}
	}
	return st, nil
}

// Force records version as applied without running anything
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn("Forcing schema version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and the database driver
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

func (mg *Migrator) run(op string, apply func() error) error {
	if _, dirty, err := mg.Version(); err != nil {
		return err
	} else if dirty {
		return fmt.Errorf("%s: %w", op, ErrDirty)
	}

	err := apply()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("Schema already current", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s: %w", op, err)
	}

	v, _, err := mg.Version()
	if err != nil {
		return err
	}
	mg.logger.Info("Schema migrated", zap.String("op", op), zap.Uint("version", v))
	return nil
}
