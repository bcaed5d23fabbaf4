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

package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/go-arcade/gatekeeper/internal/pkg/grpc/middleware"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/trace/inject"
	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpcrecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpcctxtags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Conf 配置
type Conf struct {
	Enable         bool   `mapstructure:"enable"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	MaxConnections int    `mapstructure:"maxConnections"`
}

func (c *Conf) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 9090
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 1000
	}
}

func (c Conf) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ServerWrapper struct {
	svr    *grpc.Server
	health *health.Server
	conf   Conf
}

// NewGrpcServer 创建 gRPC 服务, 所有非健康检查调用都需携带 bearer token.
// decider 为 nil 时只提供健康检查
func NewGrpcServer(cfg Conf, resolver middleware.PrincipalResolver, decider Decider) *ServerWrapper {
	cfg.SetDefaults()
	opts := []grpc.ServerOption{
		grpc.MaxConcurrentStreams(uint32(cfg.MaxConnections)),
		grpc.StreamInterceptor(grpcmiddleware.ChainStreamServer(
			// 注意顺序，先 tags，再 logging，再 auth，最后 recovery
			grpcctxtags.StreamServerInterceptor(),
			middleware.LoggingStreamInterceptor(),
			middleware.AuthStreamInterceptor(resolver),
			grpcrecovery.StreamServerInterceptor(),
		)),
		grpc.UnaryInterceptor(grpcmiddleware.ChainUnaryServer(
			grpcctxtags.UnaryServerInterceptor(),
			inject.GrpcUnaryServerInterceptor(),
			middleware.LoggingUnaryInterceptor(),
			middleware.AuthUnaryInterceptor(resolver),
			grpcrecovery.UnaryServerInterceptor(),
		)),
	}

	s := &ServerWrapper{
		svr:    grpc.NewServer(opts...),
		health: health.NewServer(),
		conf:   cfg,
	}
	healthpb.RegisterHealthServer(s.svr, s.health)
	if decider != nil {
		RegisterAuthorizationServer(s.svr, decider)
	}
	return s
}

// Server 供业务注册服务
func (s *ServerWrapper) Server() *grpc.Server {
	return s.svr
}

// Serve 在给定 listener 上阻塞服务
func (s *ServerWrapper) Serve(lis net.Listener) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return s.svr.Serve(lis)
}

// Start 监听配置地址并在后台服务
func (s *ServerWrapper) Start() error {
	addr := s.conf.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		log.Infow("gRPC listener started", "address", addr)
		if err := s.Serve(lis); err != nil {
			log.Errorw("gRPC listener failed", "address", addr, "error", err)
		}
	}()
	return nil
}

// Stop 优雅退出, ctx 到期后强制关闭
func (s *ServerWrapper) Stop(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.svr.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.svr.Stop()
	}
}
