package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/coverledger/pkg/logger"
)

// queryLog reports failed and slow statements through the service logger.
// Everything else gorm would print is dropped.
type queryLog struct {
	logg *logger.Logger
	slow time.Duration
	mode gormlogger.LogLevel
}

func newQueryLog(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLog{logg: logg, slow: slow, mode: gormlogger.Warn}
}

func (q *queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *q
	cp.mode = level
	return &cp
}

func (q *queryLog) Info(context.Context, string, ...any) {}

func (q *queryLog) Warn(ctx context.Context, msg string, args ...any) {
	if q.mode >= gormlogger.Warn {
		q.logg.Warn(ctx, "gorm: "+fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Error(ctx context.Context, msg string, args ...any) {
	if q.mode >= gormlogger.Error {
		q.logg.Error(ctx, "gorm", fmt.Errorf(msg, args...))
	}
}

func (q *queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.mode <= gormlogger.Silent {
		return
	}
	took := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && took > q.slow
	if !failed && !slow {
		return
	}
	sql, rows := fc()
	fields := map[string]any{"sql": sql, "rows": rows, "took_ms": took.Milliseconds()}
	switch {
	case failed && q.mode >= gormlogger.Error:
		q.logg.ErrorFields(ctx, "query failed", err, fields)
	case slow && q.mode >= gormlogger.Warn:
		q.logg.Warn(q.logg.WithFields(ctx, fields), "slow query")
	}
}
