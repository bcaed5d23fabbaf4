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

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/config"
	"github.com/go-arcade/gatekeeper/internal/engine/repo"
	"github.com/go-arcade/gatekeeper/internal/pkg/queue"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/sso/oidc"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

const oidcDiscoveryTimeout = 10 * time.Second

// ProviderSet 提供服务层相关的依赖
var ProviderSet = wire.NewSet(
	ProvideIdentityVerifier,
	ProvidePrincipalResolver,
	ProvideAccessStamper,
	ProvideViolationRecorder,
	ProvideProjectAccessResolver,
	ProvideEntitlementGate,
	ProvideAuthorizationService,
	NewServices,
)

// ProvideIdentityVerifier 按 http.auth.provider 选择令牌校验方式
func ProvideIdentityVerifier(httpConf *http.Http, redisClient *redis.Client) (IdentityVerifier, error) {
	auth := httpConf.Auth
	switch auth.Provider {
	case "", "jwt":
		return NewJwtVerifier(auth, redisClient), nil
	case "oidc":
		ctx, cancel := context.WithTimeout(context.Background(), oidcDiscoveryTimeout)
		defer cancel()
		v, err := oidc.NewVerifier(ctx, auth.OIDC.IssuerURL, auth.OIDC.ClientID, auth.OIDC.OrgClaim)
		if err != nil {
			return nil, err
		}
		return NewOidcVerifier(v), nil
	case "introspect":
		return NewIntrospectVerifier(auth.Introspect, clampTimeout(auth.IdentityTimeout)), nil
	}
	return nil, fmt.Errorf("unsupported auth provider %q", auth.Provider)
}

func ProvidePrincipalResolver(verifier IdentityVerifier, memberships repo.IMembershipRepository, httpConf *http.Http) *PrincipalResolver {
	return NewPrincipalResolver(verifier, memberships, httpConf.Auth.IdentityTimeout)
}

// ProvideAccessStamper 启用队列时通过 asynq 异步写入, 否则使用 goroutine
func ProvideAccessStamper(q *queue.TaskQueue, members repo.IProjectMemberRepository, ent config.EntitlementConfig) AccessStamper {
	if q == nil {
		return NewGoroutineStamper(members, ent.StampTimeout)
	}
	q.RegisterHandler(TaskTypeStampAccess, StampTaskHandler(members))
	return NewQueueStamper(q)
}

func ProvideViolationRecorder(q *queue.TaskQueue, violations repo.IViolationRepository, ent config.EntitlementConfig) ViolationRecorder {
	if q == nil {
		return NewAsyncViolationRecorder(violations, ent.StampTimeout)
	}
	q.RegisterHandler(TaskTypeRecordViolation, ViolationTaskHandler(violations))
	return NewQueueViolationRecorder(q)
}

func ProvideProjectAccessResolver(members repo.IProjectMemberRepository, stamper AccessStamper) *ProjectAccessResolver {
	return NewProjectAccessResolver(members, stamper)
}

// ProvideEntitlementGate 配置文件变更时热更新配额表
func ProvideEntitlementGate(orgs repo.IOrganizationRepository, recorder ViolationRecorder, limits authz.LimitsTable) (*EntitlementGate, error) {
	gate, err := NewEntitlementGate(orgs, recorder, limits)
	if err != nil {
		return nil, err
	}
	config.Watch(func(c config.AppConfig) {
		table, err := c.Entitlement.LimitsTable()
		if err == nil {
			err = gate.SetLimits(table)
		}
		if err != nil {
			log.Warnw("keeping previous plan limits", "error", err)
			return
		}
		log.Infow("plan limits reloaded", "plans", len(table))
	})
	return gate, nil
}

func ProvideAuthorizationService(
	orgs repo.IOrganizationRepository,
	access *ProjectAccessResolver,
	gate *EntitlementGate,
	ent config.EntitlementConfig,
) *AuthorizationService {
	return NewAuthorizationService(authz.DefaultIndex(), orgs, access, gate, ent.Strict)
}
