//go:build wireinject
// +build wireinject

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

package main

import (
	"github.com/go-arcade/gatekeeper/internal/engine/bootstrap"
	"github.com/go-arcade/gatekeeper/internal/engine/config"
	"github.com/go-arcade/gatekeeper/internal/engine/job"
	"github.com/go-arcade/gatekeeper/internal/engine/repo"
	"github.com/go-arcade/gatekeeper/internal/engine/router"
	"github.com/go-arcade/gatekeeper/internal/engine/service"
	"github.com/go-arcade/gatekeeper/internal/pkg/grpc"
	"github.com/go-arcade/gatekeeper/internal/pkg/grpc/middleware"
	"github.com/go-arcade/gatekeeper/internal/pkg/queue"
	"github.com/go-arcade/gatekeeper/pkg/cache"
	"github.com/go-arcade/gatekeeper/pkg/database"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/metrics"
	"github.com/go-arcade/gatekeeper/pkg/shutdown"
	"github.com/google/wire"
)

func initApp(configPath string) (*bootstrap.App, func(), error) {
	panic(wire.Build(
		// 配置层
		config.ProviderSet,
		// 日志
		log.ProviderSet,
		// 存储层
		database.ProviderSet,
		cache.ProviderSet,
		// 异步任务
		queue.ProviderSet,
		// 仓储层
		repo.ProviderSet,
		// 业务层
		service.ProviderSet,
		// gRPC 服务层
		grpc.ProviderSet,
		wire.Bind(new(middleware.PrincipalResolver), new(*service.PrincipalResolver)),
		wire.Bind(new(grpc.Decider), new(*service.AuthorizationService)),
		// 指标
		metrics.ProviderSet,
		shutdown.ProviderSet,
		// 定时任务
		job.ProviderSet,
		// 路由层
		router.ProviderSet,
		// 应用层
		bootstrap.NewApp,
	))
}
