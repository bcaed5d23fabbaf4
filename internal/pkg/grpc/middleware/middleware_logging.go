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

package middleware

import (
	"context"
	"path"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/log"
	"google.golang.org/grpc"
)

// 不记录日志的方法
var excludedMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
}

// LoggingUnaryInterceptor 一元调用日志拦截器（过滤健康检查）
func LoggingUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if excludedMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(ctx, "gRPC call", info.FullMethod, time.Since(start), err)
		return resp, err
	}
}

// LoggingStreamInterceptor 流式调用日志拦截器（过滤健康检查）
func LoggingStreamInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if excludedMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		start := time.Now()
		err := handler(srv, ss)
		logCall(ss.Context(), "gRPC stream call", info.FullMethod, time.Since(start), err)
		return err
	}
}

func logCall(ctx context.Context, msg, fullMethod string, duration time.Duration, err error) {
	service := path.Dir(fullMethod)[1:]
	method := path.Base(fullMethod)
	l := log.WithContext(ctx)
	if err != nil {
		l.Warnw(msg+" failed", "service", service, "method", method, "duration", duration, "error", err)
		return
	}
	l.Infow(msg, "service", service, "method", method, "duration", duration)
}
