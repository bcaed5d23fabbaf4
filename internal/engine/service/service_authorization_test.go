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
	"testing"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type authzFixture struct {
	orgs     *fakeOrgs
	members  *fakeProjectMembers
	recorder *syncRecorder
	stamper  *syncStamper
	svc      *AuthorizationService
}

func newAuthzFixture(t *testing.T, org *model.Organization) *authzFixture {
	t.Helper()
	f := &authzFixture{
		orgs: &fakeOrgs{org: org},
		members: &fakeProjectMembers{members: map[string]*model.ProjectTeamMember{
			"p-1|u-tm":     assignment(1, "standard", `[]`),
			"p-1|u-client": assignment(2, "restricted", `[5]`),
		}},
		recorder: &syncRecorder{},
		stamper:  &syncStamper{},
	}
	gate := newTestGate(t, f.orgs, f.recorder)
	access := NewProjectAccessResolver(f.members, f.stamper)
	f.svc = NewAuthorizationService(nil, f.orgs, access, gate, false)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func paidOrg(plan string) *model.Organization {
	return &model.Organization{OrgId: "org-1", Plan: plan, HasActiveSubscription: true}
}

func expiredTrialOrg() *model.Organization {
	started := testNow.Add(-20 * 24 * time.Hour)
	return &model.Organization{OrgId: "org-1", Plan: "pro_trial", TrialStartedAt: &started}
}

var (
	admin      = authz.NewPrincipal("u-admin", "org-1", authz.RoleAdmin, nil)
	teamMember = authz.NewPrincipal("u-tm", "org-1", authz.RoleTeamMember, nil)
	client     = authz.NewPrincipal("u-client", "org-1", authz.RoleClient, nil)
)

func TestAuthorizationService_Decide(t *testing.T) {
	tests := []struct {
		name    string
		org     *model.Organization
		p       authz.Principal
		req     authz.Request
		outcome authz.Outcome
		reason  authz.Reason
	}{
		{
			name:    "org permission granted by role",
			org:     paidOrg("pro"),
			p:       teamMember,
			req:     authz.Request{Route: "/reports", Resource: authz.ResourceReports, Action: authz.ActionView},
			outcome: authz.OutcomeAllow,
		},
		{
			name:    "org permission missing",
			org:     paidOrg("pro"),
			p:       client,
			req:     authz.Request{Route: "/reports", Resource: authz.ResourceReports, Action: authz.ActionView},
			outcome: authz.OutcomeDeny,
			reason:  authz.ReasonMissingPermission,
		},
		{
			name:    "required role",
			org:     paidOrg("pro"),
			p:       teamMember,
			req:     authz.Request{Route: "/settings", Resource: authz.ResourceOrganization, Action: authz.ActionView, RequiredRole: authz.RoleAdmin},
			outcome: authz.OutcomeDeny,
			reason:  authz.ReasonMissingPermission,
		},
		{
			name:    "trial expired wins over admin",
			org:     expiredTrialOrg(),
			p:       admin,
			req:     authz.Request{Route: "/projects", Resource: authz.ResourceProjects, Action: authz.ActionView},
			outcome: authz.OutcomeDeny,
			reason:  authz.ReasonTrialExpired,
		},
		{
			name:    "billing reachable after expiry",
			org:     expiredTrialOrg(),
			p:       admin,
			req:     authz.Request{Route: "/billing/plans", Resource: authz.ResourceBilling, Action: authz.ActionView},
			outcome: authz.OutcomeAllow,
		},
		{
			name:    "admin needs no assignment",
			org:     paidOrg("pro"),
			p:       admin,
			req:     authz.Request{Route: "/projects/p-9", Resource: authz.ResourceProjects, Action: authz.ActionDelete, ProjectID: "p-9"},
			outcome: authz.OutcomeAllow,
		},
		{
			name:    "not assigned",
			org:     paidOrg("pro"),
			p:       teamMember,
			req:     authz.Request{Route: "/projects/p-2", Resource: authz.ResourceProjects, Action: authz.ActionView, ProjectID: "p-2"},
			outcome: authz.OutcomeDeny,
			reason:  authz.ReasonNotAssigned,
		},
		{
			name:    "assigned without edit capability",
			org:     paidOrg("pro"),
			p:       teamMember,
			req:     authz.Request{Route: "/projects/p-1", Resource: authz.ResourceProjects, Action: authz.ActionUpdate, ProjectID: "p-1"},
			outcome: authz.OutcomeDeny,
			reason:  authz.ReasonNoProjectAccess,
		},
		{
			name:    "restricted task outside allow list",
			org:     paidOrg("pro"),
			p:       client,
			req:     authz.Request{Route: "/projects/p-1/tasks/6", Resource: authz.ResourceTasks, Action: authz.ActionView, ProjectID: "p-1", TaskID: 6, HasTask: true},
			outcome: authz.OutcomeDeny,
			reason:  authz.ReasonTaskAccessDenied,
		},
		{
			name:    "restricted task on allow list",
			org:     paidOrg("pro"),
			p:       client,
			req:     authz.Request{Route: "/projects/p-1/tasks/5", Resource: authz.ResourceTasks, Action: authz.ActionView, ProjectID: "p-1", TaskID: 5, HasTask: true},
			outcome: authz.OutcomeAllow,
		},
		{
			name:    "plan limit on create",
			org:     &model.Organization{OrgId: "org-1", Plan: "solo", UsageProjects: 3},
			p:       admin,
			req:     authz.Request{Route: "/projects", Resource: authz.ResourceProjects, Action: authz.ActionCreate, Creates: authz.QuotaProjects},
			outcome: authz.OutcomeRequiresUpgrade,
			reason:  authz.ReasonPlanLimitExceeded,
		},
		{
			name:    "create within plan",
			org:     &model.Organization{OrgId: "org-1", Plan: "solo", UsageProjects: 1},
			p:       admin,
			req:     authz.Request{Route: "/projects", Resource: authz.ResourceProjects, Action: authz.ActionCreate, Creates: authz.QuotaProjects},
			outcome: authz.OutcomeAllow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthzFixture(t, tt.org)

			d, err := f.svc.Decide(context.Background(), tt.p, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestAuthorizationService_TrialExpiredRedirects(t *testing.T) {
	f := newAuthzFixture(t, expiredTrialOrg())

	d, err := f.svc.Decide(context.Background(), teamMember, authz.Request{
		Route: "/projects", Resource: authz.ResourceProjects, Action: authz.ActionView,
	})
	require.NoError(t, err)
	assert.Equal(t, authz.BillingRoute, d.RedirectTo)
	assert.Equal(t, string(authz.PlanPro), d.Required)
}

func TestAuthorizationService_ProjectAccess(t *testing.T) {
	view := authz.Request{Route: "/projects/p-1", Resource: authz.ResourceProjects, Action: authz.ActionView, ProjectID: "p-1"}

	t.Run("assigned", func(t *testing.T) {
		f := newAuthzFixture(t, paidOrg("pro"))
		d, access, err := f.svc.ProjectAccess(context.Background(), teamMember, view)
		require.NoError(t, err)
		assert.True(t, d.Allowed())
		require.NotNil(t, access)
		assert.Equal(t, authz.AccessStandard, access.AccessLevel)
		assert.Equal(t, []uint64{1}, f.stamper.ids)
	})

	t.Run("trial expired before lookup", func(t *testing.T) {
		f := newAuthzFixture(t, expiredTrialOrg())
		d, access, err := f.svc.ProjectAccess(context.Background(), teamMember, view)
		require.NoError(t, err)
		assert.Equal(t, authz.ReasonTrialExpired, d.Reason)
		assert.Equal(t, authz.BillingRoute, d.RedirectTo)
		assert.Nil(t, access)
		assert.Empty(t, f.stamper.ids)
	})

	t.Run("not assigned", func(t *testing.T) {
		f := newAuthzFixture(t, paidOrg("pro"))
		req := view
		req.ProjectID = "p-9"
		d, access, err := f.svc.ProjectAccess(context.Background(), teamMember, req)
		require.NoError(t, err)
		assert.Equal(t, authz.ReasonNotAssigned, d.Reason)
		assert.Nil(t, access)
	})

	t.Run("org scope rejected", func(t *testing.T) {
		f := newAuthzFixture(t, paidOrg("pro"))
		_, _, err := f.svc.ProjectAccess(context.Background(), teamMember, authz.Request{
			Route: "/projects", Resource: authz.ResourceProjects, Action: authz.ActionView,
		})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestAuthorizationService_RawPermission(t *testing.T) {
	f := newAuthzFixture(t, paidOrg("pro"))
	grants, _ := authz.ParsePermissions([]string{"billing:view"})
	p := authz.NewPrincipal("u-tm", "org-1", authz.RoleTeamMember, grants)

	d, err := f.svc.Decide(context.Background(), p, authz.Request{
		Route: "/billing", Resource: authz.ResourceBilling, Action: authz.ActionView,
	})
	require.NoError(t, err)
	assert.True(t, d.Allowed())
}

func TestAuthorizationService_Errors(t *testing.T) {
	t.Run("organization store down", func(t *testing.T) {
		f := newAuthzFixture(t, paidOrg("pro"))
		f.orgs.err = errDB

		_, err := f.svc.Decide(context.Background(), admin, authz.Request{
			Route: "/reports", Resource: authz.ResourceReports, Action: authz.ActionView,
		})
		assert.ErrorIs(t, err, authz.ErrInfraFailure)
	})

	t.Run("project store down", func(t *testing.T) {
		f := newAuthzFixture(t, paidOrg("pro"))
		f.members.err = errDB

		_, err := f.svc.Decide(context.Background(), teamMember, authz.Request{
			Route: "/projects/p-1", Resource: authz.ResourceProjects, Action: authz.ActionView, ProjectID: "p-1",
		})
		assert.ErrorIs(t, err, authz.ErrInfraFailure)
	})

	t.Run("invalid request", func(t *testing.T) {
		f := newAuthzFixture(t, paidOrg("pro"))

		_, err := f.svc.Decide(context.Background(), admin, authz.Request{Resource: "spaceships", Action: authz.ActionView})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestAuthorizationService_DecideAndCreate(t *testing.T) {
	f := newAuthzFixture(t, &model.Organization{OrgId: "org-1", Plan: "solo", UsageProjects: 2})
	req := authz.Request{Route: "/projects", Resource: authz.ResourceProjects, Action: authz.ActionCreate, Creates: authz.QuotaProjects}

	created := 0
	create := func(*gorm.DB) error {
		created++
		return nil
	}

	d, err := f.svc.DecideAndCreate(context.Background(), admin, req, create)
	require.NoError(t, err)
	assert.True(t, d.Allowed())
	assert.True(t, d.NearLimit)

	d, err = f.svc.DecideAndCreate(context.Background(), admin, req, create)
	require.NoError(t, err)
	assert.Equal(t, authz.OutcomeRequiresUpgrade, d.Outcome)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, f.recorder.count())

	_, err = f.svc.DecideAndCreate(context.Background(), admin, authz.Request{
		Route: "/projects", Resource: authz.ResourceProjects, Action: authz.ActionView,
	}, create)
	assert.ErrorIs(t, err, ErrNotCreation)
}

func TestAuthorizationService_DeniedCreateSkipsQuota(t *testing.T) {
	f := newAuthzFixture(t, &model.Organization{OrgId: "org-1", Plan: "solo", UsageProjects: 3})

	d, err := f.svc.Decide(context.Background(), client, authz.Request{
		Route: "/projects", Resource: authz.ResourceProjects, Action: authz.ActionCreate, Creates: authz.QuotaProjects,
	})
	require.NoError(t, err)
	assert.Equal(t, authz.ReasonMissingPermission, d.Reason)
	assert.Zero(t, f.recorder.count())
}
