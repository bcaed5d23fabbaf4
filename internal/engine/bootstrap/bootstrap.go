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

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/config"
	"github.com/go-arcade/gatekeeper/internal/engine/job"
	"github.com/go-arcade/gatekeeper/internal/engine/router"
	"github.com/go-arcade/gatekeeper/internal/pkg/grpc"
	"github.com/go-arcade/gatekeeper/internal/pkg/queue"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/metrics"
	"github.com/go-arcade/gatekeeper/pkg/shutdown"
	"github.com/go-arcade/gatekeeper/pkg/trace"
	"github.com/gofiber/fiber/v2"
)

type App struct {
	HttpApp    *fiber.App
	GrpcServer *grpc.ServerWrapper
	Scheduler  *job.Scheduler
	Metrics    *metrics.Server
	Queue      *queue.TaskQueue
	Shutdown   *shutdown.Manager
	Logger     *log.Logger
	AppConf    *config.AppConfig
}

// InitAppFunc init app function type
type InitAppFunc func(configPath string) (*App, func(), error)

func NewApp(
	logger *log.Logger,
	rt *router.Router,
	grpcServer *grpc.ServerWrapper,
	scheduler *job.Scheduler,
	metricsServer *metrics.Server,
	taskQueue *queue.TaskQueue,
	drain *shutdown.Manager,
	appConf *config.AppConfig,
) (*App, func(), error) {
	shutdownTrace, err := trace.Init(appConf.Trace)
	if err != nil {
		return nil, nil, err
	}

	app := &App{
		HttpApp:    rt.Router(),
		GrpcServer: grpcServer,
		Scheduler:  scheduler,
		Metrics:    metricsServer,
		Queue:      taskQueue,
		Shutdown:   drain,
		Logger:     logger,
		AppConf:    appConf,
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if grpcServer != nil {
			log.Info("shutting down gRPC server...")
			grpcServer.Stop(ctx)
		}
		if err := metricsServer.Stop(ctx); err != nil {
			log.Warnw("metrics server shutdown error", "error", err)
		}
		if err := shutdownTrace(ctx); err != nil {
			log.Warnw("trace provider shutdown error", "error", err)
		}
		_ = log.Sync()
	}

	return app, cleanup, nil
}

// Bootstrap init app, return App instance and cleanup function
func Bootstrap(configFile string, initApp InitAppFunc) (*App, func(), error) {
	// wire 负责构建全部依赖
	app, cleanup, err := initApp(configFile)
	if err != nil {
		return nil, nil, err
	}
	return app, cleanup, nil
}

// Run start app and wait for exit signal, then gracefully shutdown
func Run(app *App, cleanup func()) {
	appConf := app.AppConf
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if app.GrpcServer != nil {
		if err := app.GrpcServer.Start(); err != nil {
			log.Errorf("gRPC server failed: %v", err)
		}
	}

	if err := app.Metrics.Start(); err != nil {
		log.Errorf("metrics server failed: %v", err)
	}

	if app.Queue != nil {
		if err := app.Queue.Start(); err != nil {
			log.Errorf("task queue failed: %v", err)
		} else {
			conf := app.Queue.Conf()
			collector := metrics.NewAsynqMetricsCollector(app.Queue.Inspector(), app.Metrics.QueueSink(), conf.QueueNames()...)
			go collector.Run(bgCtx, conf.MetricsInterval)
		}
	}

	app.Scheduler.Start()

	// set signal listener (graceful shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// start HTTP server (async)
	go func() {
		addr := appConf.Http.Host + ":" + fmt.Sprintf("%d", appConf.Http.Port)
		log.Infow("HTTP listener started", "address", addr)
		var err error
		if appConf.Http.TLS.CertFile != "" && appConf.Http.TLS.KeyFile != "" {
			err = app.HttpApp.ListenTLS(addr, appConf.Http.TLS.CertFile, appConf.Http.TLS.KeyFile)
		} else {
			err = app.HttpApp.Listen(addr)
		}
		if err != nil {
			log.Errorw("HTTP listener failed", "address", addr, "error", err)
		}
	}()

	// wait for exit signal
	select {
	case sig := <-quit:
		log.Infow("received signal, shutting down gracefully", "signal", sig.String())
	case <-app.Shutdown.Wait():
		log.Info("shutdown requested, shutting down gracefully")
	}
	// /health 开始返回 503
	app.Shutdown.Shutdown()

	shutdownTimeout := time.Duration(appConf.Http.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// 先停止接收请求, 再停止后台任务
	if err := app.HttpApp.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		log.Info("HTTP server shut down gracefully")
	}

	if err := app.Scheduler.Stop(shutdownCtx); err != nil {
		log.Warnw("scheduler did not stop in time", "error", err)
	}
	stopBackground()

	cleanup()

	log.Info("server shutdown complete")
}
