package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerAdapter routes GORM's logger.Interface into a module Logger.
// Failed and slow statements go out at WARN; other statements at TRACE when
// statement tracing is on.
type GormLoggerAdapter struct {
	log             Logger
	slowThreshold   time.Duration
	traceStatements bool
}

// NewGormLoggerAdapter wraps log for use as gorm.Config.Logger. A zero
// slowThreshold disables slow statement warnings.
func NewGormLoggerAdapter(log Logger, slowThreshold time.Duration) *GormLoggerAdapter {
	if log == nil {
		log = NewSlogLogger(nil, LogLevelInfo)
	}
	return &GormLoggerAdapter{log: log, slowThreshold: slowThreshold}
}

// TraceStatements toggles logging of every successful statement.
func (a *GormLoggerAdapter) TraceStatements(enabled bool) *GormLoggerAdapter {
	a.traceStatements = enabled
	return a
}

// LogMode is ignored; levels come from the module configuration.
func (a *GormLoggerAdapter) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return a
}

func (a *GormLoggerAdapter) Info(ctx context.Context, msg string, data ...any) {
	a.log.WithContext(ctx).Debug(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Warn(ctx context.Context, msg string, data ...any) {
	a.log.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Error(ctx context.Context, msg string, data ...any) {
	a.log.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
}

// Trace is called by GORM after every statement.
func (a *GormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	slow := a.slowThreshold > 0 && elapsed > a.slowThreshold
	if err == nil && !slow && !a.traceStatements {
		return
	}

	statement, rows := fc()
	log := a.log.WithContext(ctx).With(
		String("sql", statement),
		Int64("rows_affected", rows),
		Duration("elapsed", elapsed))

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Warn("statement failed", Error(err))
	case slow:
		log.Warn("slow statement", Duration("threshold", a.slowThreshold))
	default:
		log.Trace("statement")
	}
}
