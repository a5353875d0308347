package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQuery = 200 * time.Millisecond

// DBTracingConfig controls query spans
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound values in span statements
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string // postgresql or sqlite
}

func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{SlowQueryThresh: defaultSlowQuery, DBSystem: "postgresql"}
}

// DBTracingPlugin adds otelgorm spans to a gorm DB and flags slow queries on them
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQuery
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

func beforeCallback(op string) string { return "portal_timing:before_" + op }
func afterCallback(op string) string  { return "portal_timing:after_" + op }

// RegisterOtelGorm installs otelgorm and the timing callbacks on db
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	err := errors.Join(
		cb.Create().Before("gorm:create").Register(beforeCallback("create"), markQueryStart),
		cb.Create().After("gorm:create").Register(afterCallback("create"), p.flagSlowQuery),
		cb.Query().Before("gorm:query").Register(beforeCallback("query"), markQueryStart),
		cb.Query().After("gorm:query").Register(afterCallback("query"), p.flagSlowQuery),
		cb.Update().Before("gorm:update").Register(beforeCallback("update"), markQueryStart),
		cb.Update().After("gorm:update").Register(afterCallback("update"), p.flagSlowQuery),
		cb.Delete().Before("gorm:delete").Register(beforeCallback("delete"), markQueryStart),
		cb.Delete().After("gorm:delete").Register(afterCallback("delete"), p.flagSlowQuery),
		cb.Row().Before("gorm:row").Register(beforeCallback("row"), markQueryStart),
		cb.Row().After("gorm:row").Register(afterCallback("row"), p.flagSlowQuery),
		cb.Raw().Before("gorm:raw").Register(beforeCallback("raw"), markQueryStart),
		cb.Raw().After("gorm:raw").Register(afterCallback("raw"), p.flagSlowQuery),
	)
	if err != nil {
		return fmt.Errorf("register query timing callbacks: %w", err)
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) flagSlowQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(span, db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		p.logger.Warn("Slow query",
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
		)
	}
}
