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

package router

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/gatekeeper/internal/engine/repo"
	"github.com/go-arcade/gatekeeper/internal/engine/service"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-arcade/gatekeeper/pkg/http/middleware"
	"github.com/go-arcade/gatekeeper/pkg/metrics"
	"github.com/go-arcade/gatekeeper/pkg/shutdown"
	"github.com/go-arcade/gatekeeper/pkg/trace/inject"
	"github.com/go-arcade/gatekeeper/pkg/version"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

/**
 * @file: router.go
 * @description: http api router
 */

type Router struct {
	Http     *http.Http
	Services *service.Services
	Repos    *repo.Repositories
	Metrics  *metrics.Server
	Shutdown *shutdown.Manager
	validate *validator.Validate
}

func NewRouter(
	httpConf *http.Http,
	services *service.Services,
	repos *repo.Repositories,
	metricsServer *metrics.Server,
	drain *shutdown.Manager,
) *Router {
	return &Router{
		Http:     httpConf,
		Services: services,
		Repos:    repos,
		Metrics:  metricsServer,
		Shutdown: drain,
		validate: validator.New(),
	}
}

func (rt *Router) Router() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Gatekeeper",
		DisableStartupMessage: true,
		ReadTimeout:           time.Duration(rt.Http.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(rt.Http.WriteTimeout) * time.Second,
		IdleTimeout:           time.Duration(rt.Http.IdleTimeout) * time.Second,
		BodyLimit:             rt.Http.BodyLimit,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          http.ErrorHandler,
	})

	// panic recover
	app.Use(middleware.ExceptionMiddleware)

	app.Use(
		middleware.RequestMiddleware(),
		inject.FiberMiddleware(), // 链路追踪
		middleware.TraceIdMiddleware(),
	)

	if rt.Http.AccessLog {
		app.Use(middleware.AccessLogMiddleware(rt.Http))
	}

	app.Use(middleware.CorsMiddleware(rt.Http.AllowOrigins))

	// 健康检查
	app.Get("/health", func(c *fiber.Ctx) error {
		if rt.Shutdown != nil && rt.Shutdown.IsShuttingDown() {
			return c.Status(fiber.StatusServiceUnavailable).SendString("draining")
		}
		return c.SendString("ok")
	})

	// 版本信息
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(version.GetVersion())
	})

	if rt.Http.ExposeMetrics && rt.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(rt.Metrics.Handler()))
		app.Get("/metrics/queue", adaptor.HTTPHandler(rt.Metrics.Handler()))
	}

	if rt.Http.PProf {
		rt.debugRouter(app.Group("/debug/pprof"))
	}

	api := app.Group(middleware.ApiPrefix, middleware.Authentication(rt.Services.Principal))
	{
		rt.authzRouter(api)
		rt.orgRouter(api)
		rt.projectRouter(api)
	}

	// 找不到路径时的处理, 必须在所有路由注册之后
	app.Use(func(c *fiber.Ctx) error {
		return http.WithRepErr(c, fiber.StatusNotFound, http.NotFound)
	})

	return app
}
