// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"context"
	"errors"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/log"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// GormLoggerAdapter forwards gorm logs to the global zap logger.
type GormLoggerAdapter struct {
	Config logger.Config
}

func NewGormLoggerAdapter(config logger.Config) *GormLoggerAdapter {
	return &GormLoggerAdapter{Config: config}
}

func (l *GormLoggerAdapter) sugar(ctx context.Context) *zap.SugaredLogger {
	return log.WithContext(ctx).Desugar().WithOptions(zap.AddCallerSkip(2)).Sugar()
}

func (l *GormLoggerAdapter) LogMode(level logger.LogLevel) logger.Interface {
	c := *l
	c.Config.LogLevel = level
	return &c
}

func (l *GormLoggerAdapter) Info(ctx context.Context, msg string, data ...any) {
	if l.Config.LogLevel >= logger.Info {
		l.sugar(ctx).Infof(msg, data...)
	}
}

func (l *GormLoggerAdapter) Warn(ctx context.Context, msg string, data ...any) {
	if l.Config.LogLevel >= logger.Warn {
		l.sugar(ctx).Warnf(msg, data...)
	}
}

func (l *GormLoggerAdapter) Error(ctx context.Context, msg string, data ...any) {
	if l.Config.LogLevel >= logger.Error {
		l.sugar(ctx).Errorf(msg, data...)
	}
}

func (l *GormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.Config.LogLevel >= logger.Error &&
		(!errors.Is(err, logger.ErrRecordNotFound) || !l.Config.IgnoreRecordNotFoundError):
		l.sugar(ctx).Errorw("SQL query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case l.Config.SlowThreshold > 0 && elapsed > l.Config.SlowThreshold && l.Config.LogLevel >= logger.Warn:
		l.sugar(ctx).Warnw("slow SQL query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.Config.LogLevel >= logger.Info:
		l.sugar(ctx).Debugw("SQL query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
