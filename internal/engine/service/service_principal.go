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
	"errors"
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/internal/engine/repo"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/metrics"
	"github.com/go-arcade/gatekeeper/pkg/retry"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	minIdentityTimeout = 2 * time.Second
	maxIdentityTimeout = 5 * time.Second
	membershipRetry    = 100 * time.Millisecond
)

// PrincipalResolver turns a bearer token into the principal of a request.
type PrincipalResolver struct {
	verifier    IdentityVerifier
	memberships repo.IMembershipRepository
	timeout     time.Duration
	retryWait   time.Duration
	group       singleflight.Group
}

// NewPrincipalResolver clamps timeout into [2s, 5s].
func NewPrincipalResolver(verifier IdentityVerifier, memberships repo.IMembershipRepository, timeout time.Duration) *PrincipalResolver {
	return &PrincipalResolver{
		verifier:    verifier,
		memberships: memberships,
		timeout:     clampTimeout(timeout),
		retryWait:   membershipRetry,
	}
}

func clampTimeout(d time.Duration) time.Duration {
	switch {
	case d < minIdentityTimeout:
		return minIdentityTimeout
	case d > maxIdentityTimeout:
		return maxIdentityTimeout
	}
	return d
}

func (r *PrincipalResolver) Resolve(ctx context.Context, token string) (authz.Principal, error) {
	p, err := r.resolve(ctx, token)
	if err != nil {
		metrics.RecordResolutionFailure(authz.Kind(err))
		if authz.IsInfra(err) {
			log.WithContext(ctx).Errorw("principal resolution failed", "error", err)
		}
		return authz.Principal{}, err
	}
	return p, nil
}

func (r *PrincipalResolver) resolve(ctx context.Context, token string) (authz.Principal, error) {
	if token == "" {
		return authz.Principal{}, fmt.Errorf("%w: empty token", authz.ErrUnauthenticated)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	identity, err := r.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !authz.IsInfra(err) {
			return authz.Principal{}, infraFailure(fmt.Errorf("identity provider timed out: %w", err))
		}
		return authz.Principal{}, err
	}

	// 合并请求共享一次查询, 不受任一调用方取消的影响
	key := identity.UserId + "|" + identity.OrgId
	ch := r.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.lookupMembership(shared, identity)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return authz.Principal{}, res.Err
		}
		return res.Val.(authz.Principal), nil
	case <-ctx.Done():
		return authz.Principal{}, infraFailure(fmt.Errorf("membership lookup: %w", ctx.Err()))
	}
}

func (r *PrincipalResolver) lookupMembership(ctx context.Context, identity Identity) (authz.Principal, error) {
	member, err := retry.DoValue(ctx, func(ctx context.Context) (*model.OrganizationMember, error) {
		return r.memberships.FindActiveMembership(ctx, identity.UserId, identity.OrgId)
	},
		retry.WithMaxAttempts(2),
		retry.WithBackoff(retry.Fixed(r.retryWait)),
		retry.WithRetryIf(func(err error) bool {
			return retry.IsRetryableError(err) && !errors.Is(err, gorm.ErrRecordNotFound)
		}),
	)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return authz.Principal{}, fmt.Errorf("%w: user %s", authz.ErrNoMembership, identity.UserId)
	case err != nil:
		return authz.Principal{}, infraFailure(fmt.Errorf("membership lookup: %w", err))
	}

	role, err := authz.ParseOrgRole(member.Role)
	if err != nil {
		return authz.Principal{}, infraFailure(fmt.Errorf("corrupt membership %d: %w", member.ID, err))
	}

	raw, err := member.RawPermissions()
	if err != nil {
		log.WithContext(ctx).Warnw("unreadable membership permissions", "memberId", member.ID, "error", err)
	}
	set, rejected := authz.ParsePermissions(raw)
	if len(rejected) > 0 {
		log.WithContext(ctx).Warnw("dropped unknown permissions", "userId", identity.UserId, "orgId", member.OrgId, "rejected", rejected)
	}
	return authz.NewPrincipal(identity.UserId, member.OrgId, role, set), nil
}

var ErrMembershipNotFound = errors.New("organization member not found")

// ChangeRole sets the org role of an active member. The next request of
// that member resolves the new role; cached memberships are dropped.
func (r *PrincipalResolver) ChangeRole(ctx context.Context, orgId, userId string, role authz.OrgRole) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, role)
	}

	n, err := r.memberships.UpdateRole(ctx, orgId, userId, role)
	switch {
	case err != nil && n == 0:
		return infraFailure(fmt.Errorf("update role: %w", err))
	case err != nil:
		// 角色已写入, 缓存会在 TTL 后过期
		log.WithContext(ctx).Warnw("failed to invalidate membership", "userId", userId, "orgId", orgId, "error", err)
	case n == 0:
		// MySQL 对未变化的行返回 0, 需区分成员不存在
		_, err := r.memberships.FindActiveMembership(ctx, userId, orgId)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrMembershipNotFound
		case err != nil:
			return infraFailure(fmt.Errorf("membership lookup: %w", err))
		}
		return nil
	}

	log.WithContext(ctx).Infow("organization role changed", "userId", userId, "orgId", orgId, "role", role)
	return nil
}
