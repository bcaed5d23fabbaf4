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
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

type Manager interface {
	MySQL() *gorm.DB
	Close() error
}

type managerImpl struct {
	mysql *gorm.DB
}

func (m *managerImpl) MySQL() *gorm.DB {
	return m.mysql
}

func (m *managerImpl) Close() error {
	sqlDB, err := m.mysql.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close MySQL: %w", err)
	}
	return nil
}

func NewManager(cfg Database) (Manager, error) {
	cfg.SetDefaults()
	if err := cfg.MySQL.Validate(); err != nil {
		return nil, err
	}

	db, err := Open(mysql.Open(cfg.MySQL.DSN()), cfg)
	if err != nil {
		return nil, err
	}

	if len(cfg.MySQL.Replicas) > 0 {
		replicas, err := buildDialectors(cfg.MySQL.Replicas)
		if err != nil {
			return nil, fmt.Errorf("failed to build replica dialectors: %w", err)
		}
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas:          replicas,
			Policy:            dbresolver.RandomPolicy{},
			TraceResolverMode: cfg.Output,
		}).
			SetConnMaxIdleTime(cfg.MaxIdleTime).
			SetConnMaxLifetime(cfg.MaxLifetime).
			SetMaxIdleConns(cfg.MaxIdleConns).
			SetMaxOpenConns(cfg.MaxOpenConns))
		if err != nil {
			return nil, fmt.Errorf("failed to register DBResolver plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	log.Infow("MySQL connected", "host", cfg.MySQL.Host, "replicas", len(cfg.MySQL.Replicas))
	return &managerImpl{mysql: db}, nil
}

// Open opens a gorm handle with the shared naming and logging settings.
// Tests pass a sqlmock backed dialector.
func Open(dialector gorm.Dialector, cfg Database) (*gorm.DB, error) {
	logConfig := gormlogger.Config{
		SlowThreshold:             cfg.SlowQuery,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	}

	var gormLogger gormlogger.Interface = gormlogger.Discard
	if cfg.Output {
		logConfig.LogLevel = gormlogger.Info
		gormLogger = NewGormLoggerAdapter(logConfig)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   dataTablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	return db, nil
}
