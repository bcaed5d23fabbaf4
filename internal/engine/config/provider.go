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

package config

import (
	"github.com/go-arcade/gatekeeper/internal/pkg/grpc"
	"github.com/go-arcade/gatekeeper/internal/pkg/queue"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/cache"
	"github.com/go-arcade/gatekeeper/pkg/database"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/metrics"
	"github.com/go-arcade/gatekeeper/pkg/minio"
	"github.com/go-arcade/gatekeeper/pkg/trace"
	"github.com/google/wire"
)

// ProviderSet 提供配置层相关的依赖
var ProviderSet = wire.NewSet(
	ProvideConf,
	ProvideHttpConfig,
	ProvideGrpcConfig,
	ProvideLogConfig,
	ProvideDatabaseConfig,
	ProvideRedisConfig,
	ProvideFastCacheConfig,
	ProvideMetricsConfig,
	ProvideTraceConfig,
	ProvideQueueConfig,
	ProvideStorageConfig,
	ProvideEntitlementConfig,
	ProvideJobConfig,
	ProvideLimitsTable,
)

// ProvideConf 提供应用配置
func ProvideConf(configPath string) *AppConfig {
	c := NewConf(configPath)
	return &c
}

func ProvideHttpConfig(appConf *AppConfig) *http.Http {
	return &appConf.Http
}

func ProvideGrpcConfig(appConf *AppConfig) *grpc.Conf {
	return &appConf.Grpc
}

func ProvideLogConfig(appConf *AppConfig) *log.Conf {
	return &appConf.Log
}

func ProvideDatabaseConfig(appConf *AppConfig) database.Database {
	return appConf.Database
}

func ProvideRedisConfig(appConf *AppConfig) cache.Redis {
	return appConf.Redis
}

func ProvideFastCacheConfig(appConf *AppConfig) cache.FastCacheConfig {
	return appConf.LocalCache
}

func ProvideMetricsConfig(appConf *AppConfig) metrics.MetricsConfig {
	return appConf.Metrics
}

func ProvideTraceConfig(appConf *AppConfig) trace.Conf {
	return appConf.Trace
}

func ProvideQueueConfig(appConf *AppConfig) queue.Conf {
	return appConf.Queue
}

func ProvideStorageConfig(appConf *AppConfig) minio.Minio {
	return appConf.Storage
}

func ProvideEntitlementConfig(appConf *AppConfig) EntitlementConfig {
	return appConf.Entitlement
}

func ProvideJobConfig(appConf *AppConfig) JobConfig {
	return appConf.Job
}

// ProvideLimitsTable 提供生效的套餐配额表, 已在加载时校验
func ProvideLimitsTable(appConf *AppConfig) (authz.LimitsTable, error) {
	return appConf.Entitlement.LimitsTable()
}
