package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQuery is the duration above which a statement is logged as slow
const DefaultSlowQuery = 200 * time.Millisecond

// GormLogger writes gorm statements to zap. Statements issued with a request
// or sync context inherit its request_id, subject and trace fields.
type GormLogger struct {
	base      *zap.Logger
	level     gormlogger.LogLevel
	slowQuery time.Duration
	// gorm.ErrRecordNotFound is normal control flow for the repositories
	logNotFound bool
}

// GormLoggerOption is a function that configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold changes DefaultSlowQuery; zero disables slow query warnings
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowQuery = threshold }
}

// WithIgnoreRecordNotFoundError controls whether not-found lookups are logged as errors
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = !ignore }
}

func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &GormLogger{base: log.Named("gorm"), level: level, slowQuery: DefaultSlowQuery}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, gormlogger.Info, msg, args)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, gormlogger.Warn, msg, args)
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, gormlogger.Error, msg, args)
}

func (l *GormLogger) printf(ctx context.Context, level gormlogger.LogLevel, msg string, args []any) {
	if l.level < level {
		return
	}
	s := l.forContext(ctx).Sugar()
	switch level {
	case gormlogger.Error:
		s.Errorf(msg, args...)
	case gormlogger.Warn:
		s.Warnf(msg, args...)
	default:
		s.Infof(msg, args...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	notFound := errors.Is(err, gormlogger.ErrRecordNotFound)
	elapsed := time.Since(begin)
	slow := l.slowQuery > 0 && elapsed > l.slowQuery

	var msg string
	switch {
	case err != nil && (!notFound || l.logNotFound) && l.level >= gormlogger.Error:
		msg = "SQL Error"
	case slow && l.level >= gormlogger.Warn:
		msg = "Slow SQL"
	case l.level >= gormlogger.Info:
		msg = "SQL"
	default:
		return
	}

	statement, rows := fc()
	fields := []zap.Field{
		zap.String("sql", statement),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	log := l.forContext(ctx)
	switch msg {
	case "SQL Error":
		log.Error(msg, append(fields, zap.Error(err))...)
	case "Slow SQL":
		log.Warn(msg, append(fields, zap.Duration("threshold", l.slowQuery))...)
	default:
		log.Debug(msg, fields...)
	}
}

func (l *GormLogger) forContext(ctx context.Context) *zap.Logger {
	log := l.base
	if id := GetRequestID(ctx); id != "" {
		log = log.With(zap.String("request_id", id))
	}
	if subject := GetSubject(ctx); subject != "" {
		log = log.With(zap.String("subject", subject))
	}
	return WithTraceContext(ctx, log)
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel converts the database.log_level setting; unknown values map to warn
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[level]; ok {
		return l
	}
	return gormlogger.Warn
}
