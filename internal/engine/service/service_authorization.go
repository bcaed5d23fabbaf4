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
	"github.com/go-arcade/gatekeeper/pkg/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

var (
	ErrInvalidRequest = errors.New("invalid authorization request")
	ErrNotCreation    = errors.New("request does not create a quota bound resource")
)

// AuthorizationService composes trial, role, project and plan checks into
// one decision.
type AuthorizationService struct {
	index  *authz.PermissionIndex
	orgs   repo.IOrganizationRepository
	access *ProjectAccessResolver
	gate   *EntitlementGate
	strict bool
	now    func() time.Time
}

func NewAuthorizationService(
	index *authz.PermissionIndex,
	orgs repo.IOrganizationRepository,
	access *ProjectAccessResolver,
	gate *EntitlementGate,
	strict bool,
) *AuthorizationService {
	if index == nil {
		index = authz.DefaultIndex()
	}
	return &AuthorizationService{
		index:  index,
		orgs:   orgs,
		access: access,
		gate:   gate,
		strict: strict,
		now:    time.Now,
	}
}

// Strict reports whether creations must go through DecideAndCreate.
func (s *AuthorizationService) Strict() bool {
	return s.strict
}

// Trial recomputes the trial status of the principal's organization.
func (s *AuthorizationService) Trial(ctx context.Context, p authz.Principal) (authz.TrialStatus, *model.Organization, error) {
	org, err := s.orgs.GetOrganization(ctx, p.OrgID)
	if err != nil {
		return authz.TrialStatus{}, nil, infraFailure(fmt.Errorf("load organization %s: %w", p.OrgID, err))
	}
	return org.Trial(s.now()), org, nil
}

// Decide evaluates req for p. Infra failures return an error and never a
// decision. Decide mutates nothing on the decision path.
func (s *AuthorizationService) Decide(ctx context.Context, p authz.Principal, req authz.Request) (authz.Decision, error) {
	d, _, err := s.decide(ctx, p, req, func(ctx context.Context) (authz.Decision, error) {
		return s.gate.Check(ctx, p.OrgID, req.Creates, req.QuotaDelta())
	})
	return d, err
}

// ProjectAccess decides a project scoped view and returns the resolved
// access on ALLOW. The trial and role checks run before the assignment
// lookup, so a locked out organization never reaches the stamp.
func (s *AuthorizationService) ProjectAccess(ctx context.Context, p authz.Principal, req authz.Request) (authz.Decision, *authz.ProjectAccess, error) {
	if req.Scope() != authz.ScopeProject || req.Creates != "" {
		return authz.Decision{}, nil, fmt.Errorf("%w: project access needs a project scoped view", ErrInvalidRequest)
	}
	d, access, err := s.decide(ctx, p, req, nil)
	if err != nil || !d.Allowed() {
		return d, nil, err
	}
	return d, access, nil
}

// DecideAndCreate is Decide with the plan check and create run under a row
// lock on the organization's usage counters.
func (s *AuthorizationService) DecideAndCreate(ctx context.Context, p authz.Principal, req authz.Request, create func(tx *gorm.DB) error) (authz.Decision, error) {
	if req.Creates == "" {
		return authz.Decision{}, ErrNotCreation
	}
	d, _, err := s.decide(ctx, p, req, func(ctx context.Context) (authz.Decision, error) {
		return s.gate.CheckAndReserve(ctx, p.OrgID, req.Creates, req.QuotaDelta(), create)
	})
	return d, err
}

func (s *AuthorizationService) decide(ctx context.Context, p authz.Principal, req authz.Request, quota func(context.Context) (authz.Decision, error)) (authz.Decision, *authz.ProjectAccess, error) {
	start := time.Now()
	scope := req.Scope()

	ctx, span := trace.Start(ctx, "authz.Decide")
	defer span.End()
	span.SetAttributes(
		attribute.String("authz.user_id", p.UserID),
		attribute.String("authz.org_id", p.OrgID),
		attribute.String("authz.role", string(p.Role)),
		attribute.String("authz.permission", req.Permission().String()),
		attribute.String("authz.scope", scope.String()),
	)

	d, access, err := s.evaluate(ctx, p, req, quota)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordDecision("ERROR", authz.Kind(err), scope.String(), time.Since(start))
		if authz.IsInfra(err) {
			log.WithContext(ctx).Errorw("authorization failed",
				"userId", p.UserID,
				"orgId", p.OrgID,
				"route", req.Route,
				"error", err,
			)
		}
		return authz.Decision{}, nil, err
	}

	span.SetAttributes(
		attribute.String("authz.outcome", string(d.Outcome)),
		attribute.String("authz.reason", string(d.Reason)),
	)
	metrics.RecordDecision(string(d.Outcome), string(d.Reason), scope.String(), time.Since(start))
	if !d.Allowed() {
		log.WithContext(ctx).Infow("authorization denied",
			"userId", p.UserID,
			"orgId", p.OrgID,
			"role", p.Role,
			"route", req.Route,
			"permission", req.Permission().String(),
			"projectId", req.ProjectID,
			"outcome", d.Outcome,
			"reason", d.Reason,
			"required", d.Required,
		)
	}
	return d, access, nil
}

func (s *AuthorizationService) evaluate(ctx context.Context, p authz.Principal, req authz.Request, quota func(context.Context) (authz.Decision, error)) (authz.Decision, *authz.ProjectAccess, error) {
	if err := req.Validate(); err != nil {
		return authz.Decision{}, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	trial, _, err := s.Trial(ctx, p)
	if err != nil {
		return authz.Decision{}, nil, err
	}
	if d, stop := authz.Precheck(s.index, p, trial, req); stop {
		return d, nil, nil
	}

	var access *authz.ProjectAccess
	if req.Scope() != authz.ScopeOrg {
		access, err = s.access.Resolve(ctx, p, req.ProjectID)
		if err != nil && !errors.Is(err, authz.ErrNotAssigned) {
			return authz.Decision{}, nil, err
		}
		if d, stop := authz.CheckProjectScope(p, req, access); stop {
			return d, nil, nil
		}
	}

	if req.Creates != "" && quota != nil {
		d, err := quota(ctx)
		return d, access, err
	}
	return authz.Allow(), access, nil
}
