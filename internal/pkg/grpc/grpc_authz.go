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
	"errors"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/gatekeeper/internal/pkg/grpc/middleware"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

/**
 * @file: grpc_authz.go
 * @description: 授权决策 gRPC 服务, 消息以 JSON 编码
 */

const (
	CodecName            = "json"
	AuthorizationService = "gatekeeper.v1.Authorization"
	DecideMethod         = "/" + AuthorizationService + "/Decide"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

// Decider 由 service 层的 AuthorizationService 实现
type Decider interface {
	Decide(ctx context.Context, p authz.Principal, req authz.Request) (authz.Decision, error)
}

var authorizationServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthorizationService,
	HandlerType: (*Decider)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: decideHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gatekeeper/v1/authorization",
}

// RegisterAuthorizationServer 注册授权服务
func RegisterAuthorizationServer(s *grpc.Server, d Decider) {
	s.RegisterService(&authorizationServiceDesc, d)
}

func decideHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(authz.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return decide(ctx, srv.(Decider), in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DecideMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return decide(ctx, srv.(Decider), req.(*authz.Request))
	})
}

func decide(ctx context.Context, d Decider, req *authz.Request) (*authz.Decision, error) {
	p, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing principal")
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	out, err := d.Decide(ctx, p, *req)
	switch {
	case authz.IsInfra(err):
		return nil, status.Error(codes.Unavailable, "authorization service unavailable")
	case err != nil:
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return &out, nil
}

// DecideClient 通过 gRPC 获取权威决策, 满足 clientguard.Authority
type DecideClient struct {
	conn grpc.ClientConnInterface
}

func NewDecideClient(conn grpc.ClientConnInterface) *DecideClient {
	return &DecideClient{conn: conn}
}

func (c *DecideClient) Decide(ctx context.Context, req authz.Request) (authz.Decision, error) {
	var out authz.Decision
	err := c.conn.Invoke(ctx, DecideMethod, &req, &out, grpc.CallContentSubtype(CodecName))
	if err == nil {
		return out, nil
	}
	switch status.Code(err) {
	case codes.Unauthenticated:
		return authz.Decision{}, authz.ErrUnauthenticated
	case codes.PermissionDenied:
		return authz.Decision{}, authz.ErrNoMembership
	case codes.InvalidArgument:
		return authz.Decision{}, errors.New(status.Convert(err).Message())
	}
	return authz.Decision{}, errors.Join(authz.ErrInfraFailure, err)
}
