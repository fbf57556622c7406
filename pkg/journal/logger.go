package journal

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormHclogAdapter adapts hclog.Logger to gorm.logger.Interface.
type gormHclogAdapter struct {
	logger hclog.Logger
	level  logger.LogLevel
}

// NewGormLogger creates a new GORM logger that uses hclog. Queries are logged
// at trace level; failures and slow queries at error and warn.
func NewGormLogger(log hclog.Logger) logger.Interface {
	return &gormHclogAdapter{
		logger: log,
		level:  logger.Warn,
	}
}

func (g *gormHclogAdapter) LogMode(level logger.LogLevel) logger.Interface {
	return &gormHclogAdapter{
		logger: g.logger,
		level:  level,
	}
}

func (g *gormHclogAdapter) Info(ctx context.Context, msg string, data ...any) {
	if g.level >= logger.Info {
		g.logger.Info(msg, "data", data)
	}
}

func (g *gormHclogAdapter) Warn(ctx context.Context, msg string, data ...any) {
	if g.level >= logger.Warn {
		g.logger.Warn(msg, "data", data)
	}
}

func (g *gormHclogAdapter) Error(ctx context.Context, msg string, data ...any) {
	if g.level >= logger.Error {
		g.logger.Error(msg, "data", data)
	}
}

// Trace logs SQL queries and execution time.
func (g *gormHclogAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound) && g.level >= logger.Error:
		g.logger.Error("journal query failed",
			"error", err,
			"elapsed", elapsed,
			"rows", rows,
			"sql", sql,
		)
	case elapsed > slowQueryThreshold && g.level >= logger.Warn:
		g.logger.Warn("slow journal query",
			"elapsed", elapsed,
			"rows", rows,
			"sql", sql,
		)
	default:
		g.logger.Trace("journal query",
			"elapsed", elapsed,
			"rows", rows,
			"sql", sql,
		)
	}
}
