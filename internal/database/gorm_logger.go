package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlLogLimit caps how much of a statement ends up in a log line.
const sqlLogLimit = 200

// queryLogger bridges GORM's logger.Interface onto slog. Statements are
// logged at Debug so per-query formatting cost is only paid when the
// configured level actually emits them.
type queryLogger struct{}

func (queryLogger) LogMode(logger.LogLevel) logger.Interface { return queryLogger{} }

func (queryLogger) Info(_ context.Context, msg string, args ...any) {
	slog.Info(fmt.Sprintf(msg, args...))
}

func (queryLogger) Warn(_ context.Context, msg string, args ...any) {
	slog.Warn(fmt.Sprintf(msg, args...))
}

func (queryLogger) Error(_ context.Context, msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...))
}

// Trace logs each executed statement. ErrRecordNotFound is the normal
// empty result of First/Take and is treated as success.
func (queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		slog.Error("query failed",
			slog.String("sql", elideSQL(sql)),
			slog.Int64("rows", rows),
			slog.Duration("duration", elapsed),
			slog.Any("error", err),
		)
		return
	}

	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	sql, rows := fc()
	slog.Debug("query",
		slog.String("sql", elideSQL(sql)),
		slog.Int64("rows", rows),
		slog.Duration("duration", elapsed),
	)
}

// elideSQL keeps the head and tail of an oversized statement so both the
// verb and the WHERE clause stay visible.
func elideSQL(sql string) string {
	if len(sql) <= sqlLogLimit {
		return sql
	}
	half := (sqlLogLimit - 3) / 2
	return sql[:half] + "..." + sql[len(sql)-half:]
}
