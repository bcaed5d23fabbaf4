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
	"errors"

	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/log"
	grpcauth "github.com/grpc-ecosystem/go-grpc-middleware/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PrincipalResolver 由 service 层实现
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (authz.Principal, error)
}

type principalKey struct{}

// 需要跳过认证的 gRPC 方法
var excludedAuthMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
}

// AuthUnaryInterceptor 一元调用认证拦截器（跳过健康检查）
func AuthUnaryInterceptor(resolver PrincipalResolver) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if excludedAuthMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		newCtx, err := authenticate(ctx, resolver)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// AuthStreamInterceptor 流式调用认证拦截器（跳过健康检查）
func AuthStreamInterceptor(resolver PrincipalResolver) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if excludedAuthMethods[info.FullMethod] {
			return handler(srv, ss)
		}
		newCtx, err := authenticate(ss.Context(), resolver)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: newCtx})
	}
}

// wrappedServerStream 包装 ServerStream 以替换 context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

func authenticate(ctx context.Context, resolver PrincipalResolver) (context.Context, error) {
	token, err := grpcauth.AuthFromMD(ctx, "bearer")
	if err != nil {
		return nil, err
	}
	p, err := resolver.Resolve(ctx, token)
	if err != nil {
		return nil, statusFor(ctx, err)
	}
	return context.WithValue(ctx, principalKey{}, p), nil
}

func statusFor(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "invalid or expired token")
	case errors.Is(err, authz.ErrNoMembership):
		return status.Error(codes.PermissionDenied, authz.ErrNoMembership.Error())
	default:
		log.WithContext(ctx).Errorw("principal resolution failed", "error", err)
		return status.Error(codes.Unavailable, "authorization service unavailable")
	}
}

// PrincipalFromContext 获取认证后的主体
func PrincipalFromContext(ctx context.Context) (authz.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(authz.Principal)
	return p, ok
}
