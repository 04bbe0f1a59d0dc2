package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/pulse/pkg/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// gormLog routes gorm's own logging into pkg/logger. At Info level every
// statement is traced at debug.
type gormLog struct {
	log   logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

var _ gormlogger.Interface = (*gormLog)(nil)

func newGormLog(l logger.Logger, level gormlogger.LogLevel) *gormLog {
	return &gormLog{log: l, level: level, slow: defaultSlowQuery}
}

func (g *gormLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *g
	c.level = level
	return &c
}

func (g *gormLog) Info(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.log.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Warn(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.log.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Error(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.log.Error(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		sql, rows := fc()
		g.log.Error(ctx, "sql failed",
			logger.String("sql", sql),
			logger.Any("rows", rows),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
	case elapsed > g.slow && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.log.Warn(ctx, "slow sql",
			logger.String("sql", sql),
			logger.Any("rows", rows),
			logger.Duration("elapsed", elapsed),
		)
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.log.Debug(ctx, "sql",
			logger.String("sql", sql),
			logger.Any("rows", rows),
			logger.Duration("elapsed", elapsed),
		)
	}
}
