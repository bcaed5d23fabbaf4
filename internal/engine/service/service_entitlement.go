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
	"sync/atomic"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/internal/engine/repo"
	"github.com/go-arcade/gatekeeper/internal/pkg/queue"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/id"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/metrics"
	"github.com/go-arcade/gatekeeper/pkg/safe"
	"gorm.io/gorm"
)

const TaskTypeRecordViolation = "entitlement:record_violation"

// ViolationRecorder appends a plan violation without blocking the caller.
type ViolationRecorder interface {
	Record(ctx context.Context, v *model.PlanViolation)
}

// AsyncViolationRecorder writes on a detached goroutine.
type AsyncViolationRecorder struct {
	violations repo.IViolationRepository
	timeout    time.Duration
}

func NewAsyncViolationRecorder(violations repo.IViolationRepository, timeout time.Duration) *AsyncViolationRecorder {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &AsyncViolationRecorder{violations: violations, timeout: timeout}
}

func (r *AsyncViolationRecorder) Record(ctx context.Context, v *model.PlanViolation) {
	safe.GoWith(ctx, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		writeViolation(ctx, r.violations, v)
	})
}

func writeViolation(ctx context.Context, violations repo.IViolationRepository, v *model.PlanViolation) {
	if err := violations.Create(ctx, v); err != nil {
		log.WithContext(ctx).Warnw("failed to record plan violation", "violationId", v.ViolationId, "orgId", v.OrgId, "error", err)
	}
}

// QueueViolationRecorder hands violations to the task queue.
type QueueViolationRecorder struct {
	queue *queue.TaskQueue
}

func NewQueueViolationRecorder(q *queue.TaskQueue) *QueueViolationRecorder {
	return &QueueViolationRecorder{queue: q}
}

func (r *QueueViolationRecorder) Record(ctx context.Context, v *model.PlanViolation) {
	safe.GoWith(ctx, func(ctx context.Context) {
		payload, err := queue.NewPayload(TaskTypeRecordViolation, v)
		if err == nil {
			err = r.queue.Enqueue(ctx, payload, queue.Default)
		}
		if err != nil {
			log.WithContext(ctx).Warnw("failed to enqueue plan violation", "violationId", v.ViolationId, "error", err)
		}
	})
}

// ViolationTaskHandler persists queued violations. Retries are safe because
// the violation id is unique.
func ViolationTaskHandler(violations repo.IViolationRepository) queue.TaskHandlerFunc {
	return func(ctx context.Context, payload *queue.TaskPayload) error {
		var v model.PlanViolation
		if err := payload.Decode(&v); err != nil {
			return fmt.Errorf("decode violation task: %w", err)
		}
		return violations.Create(ctx, &v)
	}
}

// UsageReport is the plan, usage and limits of one organization.
type UsageReport struct {
	OrgId          string                          `json:"orgId"`
	Plan           authz.Plan                      `json:"plan"`
	Usage          map[authz.QuotaResource]int64   `json:"usage"`
	Limits         map[authz.QuotaResource]int64   `json:"limits"`
	PercentageUsed map[authz.QuotaResource]float64 `json:"percentageUsed"`
	ReconciledAt   *time.Time                      `json:"reconciledAt,omitempty"`
}

// EntitlementGate compares usage against plan limits.
type EntitlementGate struct {
	orgs     repo.IOrganizationRepository
	recorder ViolationRecorder
	limits   atomic.Pointer[authz.LimitsTable]
	now      func() time.Time
}

func NewEntitlementGate(orgs repo.IOrganizationRepository, recorder ViolationRecorder, limits authz.LimitsTable) (*EntitlementGate, error) {
	g := &EntitlementGate{orgs: orgs, recorder: recorder, now: time.Now}
	if err := g.SetLimits(limits); err != nil {
		return nil, err
	}
	return g, nil
}

// SetLimits swaps the limits table. In-flight checks keep the table they
// started with.
func (g *EntitlementGate) SetLimits(limits authz.LimitsTable) error {
	if err := limits.Validate(); err != nil {
		return err
	}
	g.limits.Store(&limits)
	return nil
}

func (g *EntitlementGate) Limits() authz.LimitsTable {
	return *g.limits.Load()
}

// Check is check-then-act: usage may change between the check and the
// caller's create.
func (g *EntitlementGate) Check(ctx context.Context, orgId string, resource authz.QuotaResource, delta int64) (authz.Decision, error) {
	org, err := g.orgs.LoadOrganization(ctx, orgId)
	if err != nil {
		return authz.Decision{}, infraFailure(fmt.Errorf("load organization %s: %w", orgId, err))
	}
	return g.evaluate(ctx, org, resource, delta)
}

// CheckAndReserve holds a row lock on the organization while it evaluates,
// runs create and bumps the counter. Nothing is created on denial.
func (g *EntitlementGate) CheckAndReserve(ctx context.Context, orgId string, resource authz.QuotaResource, delta int64, create func(tx *gorm.DB) error) (authz.Decision, error) {
	var (
		decision  authz.Decision
		createErr error
	)
	err := g.orgs.LockForUsage(ctx, orgId, func(tx *gorm.DB, org *model.Organization) error {
		d, err := g.evaluate(ctx, org, resource, delta)
		if err != nil {
			return err
		}
		decision = d
		if !d.Allowed() {
			return nil
		}
		if createErr = create(tx); createErr != nil {
			return createErr
		}
		return g.orgs.IncrementUsage(tx, orgId, resource, delta)
	})
	switch {
	case createErr != nil:
		return authz.Decision{}, createErr
	case err != nil && authz.IsInfra(err):
		return authz.Decision{}, err
	case err != nil:
		return authz.Decision{}, infraFailure(fmt.Errorf("reserve %s for %s: %w", resource, orgId, err))
	}

	if decision.Allowed() {
		if err := g.orgs.InvalidateOrganization(ctx, orgId); err != nil {
			log.WithContext(ctx).Warnw("failed to invalidate organization cache", "orgId", orgId, "error", err)
		}
	}
	return decision, nil
}

func (g *EntitlementGate) evaluate(ctx context.Context, org *model.Organization, resource authz.QuotaResource, delta int64) (authz.Decision, error) {
	plan := org.PlanOrTrial()
	limit, err := g.Limits().Lookup(plan, resource)
	if err != nil {
		return authz.Decision{}, infraFailure(err)
	}
	usage := org.Usage(resource)
	result := authz.EvaluateQuota(limit, usage, delta)

	if !result.Allowed {
		v := &model.PlanViolation{
			ViolationId:  id.GetUlid(),
			OrgId:        org.OrgId,
			ResourceType: string(resource),
			CurrentUsage: usage,
			Limit:        limit,
			Level:        string(result.Level),
			Plan:         string(plan),
			OccurredAt:   g.now(),
		}
		if g.recorder != nil {
			g.recorder.Record(ctx, v)
		}
		metrics.RecordQuotaViolation(string(plan), string(resource), string(result.Level))
		log.WithContext(ctx).Infow("plan limit exceeded",
			"orgId", org.OrgId,
			"plan", plan,
			"resource", resource,
			"usage", usage,
			"delta", delta,
			"limit", limit,
			"level", result.Level,
		)
		return authz.RequiresUpgrade(authz.UpgradeDetail{
			Plan:         plan,
			Resource:     resource,
			CurrentUsage: usage,
			Limit:        limit,
			Level:        result.Level,
		}), nil
	}

	d := authz.Allow()
	d.PercentageUsed = result.PercentageUsed
	d.NearLimit = result.NearLimit
	if result.NearLimit {
		metrics.RecordQuotaNearLimit(string(plan), string(resource))
	}
	return d, nil
}

// Usage reports every quota bound resource of orgId.
func (g *EntitlementGate) Usage(ctx context.Context, orgId string) (*UsageReport, error) {
	org, err := g.orgs.LoadOrganization(ctx, orgId)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: organization %s", authz.ErrNoMembership, orgId)
	}
	if err != nil {
		return nil, infraFailure(err)
	}

	plan := org.PlanOrTrial()
	report := &UsageReport{
		OrgId:          orgId,
		Plan:           plan,
		Usage:          make(map[authz.QuotaResource]int64, len(authz.AllQuotaResources)),
		Limits:         make(map[authz.QuotaResource]int64, len(authz.AllQuotaResources)),
		PercentageUsed: make(map[authz.QuotaResource]float64, len(authz.AllQuotaResources)),
		ReconciledAt:   org.UsageReconciledAt,
	}
	for _, r := range authz.AllQuotaResources {
		limit, err := g.Limits().Lookup(plan, r)
		if err != nil {
			return nil, infraFailure(err)
		}
		usage := org.Usage(r)
		report.Usage[r] = usage
		report.Limits[r] = limit
		report.PercentageUsed[r] = authz.EvaluateQuota(limit, usage, 0).PercentageUsed
	}
	return report, nil
}
