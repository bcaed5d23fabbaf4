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

package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	now          = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	activeTrial  = EvaluateTrial(PlanPro, time.Time{}, true, now)
	expiredTrial = EvaluateTrial(PlanProTrial, now.Add(-20*24*time.Hour), false, now)
)

func restricted(ids ...int64) *ProjectAccess {
	a := NormalizeAccess(ProjectAccess{
		ProjectID:       "p1",
		AccessLevel:     AccessRestricted,
		CanViewAllTasks: true,
		AllowedTaskIDs:  ids,
	})
	return &a
}

func TestEvaluate_TrialPrecedence(t *testing.T) {
	ix := DefaultIndex()
	reqs := []Request{
		{Route: "/projects", Resource: ResourceProjects, Action: ActionView},
		{Route: "/projects/p1", Resource: ResourceProjects, Action: ActionView, ProjectID: "p1"},
		{Route: "/projects/p1/tasks/5", Resource: ResourceTasks, Action: ActionView, ProjectID: "p1", TaskID: 5, HasTask: true},
		{Route: "/reports", Resource: ResourceReports, Action: ActionView, RequiredRole: RoleAdmin},
	}

	for _, role := range []OrgRole{RoleAdmin, RoleTeamMember, RoleClient} {
		p := NewPrincipal("u", "o", role, nil)
		for _, req := range reqs {
			d := Evaluate(ix, p, expiredTrial, req, FullAccess("p1"))
			assert.Equal(t, OutcomeDeny, d.Outcome)
			assert.Equal(t, ReasonTrialExpired, d.Reason)
			assert.Equal(t, BillingRoute, d.RedirectTo)
		}
	}

	billing := Request{Route: "/billing", Resource: ResourceBilling, Action: ActionView}
	admin := NewPrincipal("u", "o", RoleAdmin, nil)
	assert.True(t, Evaluate(ix, admin, expiredTrial, billing, nil).Allowed())
}

func TestEvaluate_RoleMonotonicity(t *testing.T) {
	ix := DefaultIndex()
	roles := []OrgRole{RoleAdmin, RoleTeamMember, RoleClient}

	for _, held := range roles {
		for _, required := range roles {
			p := NewPrincipal("u", "o", held, nil)
			req := Request{Route: "/projects", Resource: ResourceProjects, Action: ActionView, RequiredRole: required}
			d := Evaluate(ix, p, activeTrial, req, nil)

			want := held == required || held == RoleAdmin
			assert.Equal(t, want, d.Allowed(), "held=%s required=%s", held, required)
			if !want {
				assert.Equal(t, ReasonMissingPermission, d.Reason)
				assert.Equal(t, string(required), d.Required)
				assert.Equal(t, string(held), d.Current)
			}
		}
	}
}

func TestEvaluate_OrgScopedPermission(t *testing.T) {
	ix := DefaultIndex()
	req := Request{Route: "/projects", Resource: ResourceProjects, Action: ActionCreate}

	client := NewPrincipal("u", "o", RoleClient, nil)
	d := Evaluate(ix, client, activeTrial, req, nil)
	assert.Equal(t, ReasonMissingPermission, d.Reason)
	assert.Equal(t, "projects:create", d.Required)
	assert.Equal(t, "client", d.Current)

	granted := NewPrincipal("u", "o", RoleClient, NewPermissionSet(Permission{ResourceProjects, ActionCreate}))
	assert.True(t, Evaluate(ix, granted, activeTrial, req, nil).Allowed())
}

func TestEvaluate_RestrictedTaskVisibility(t *testing.T) {
	ix := DefaultIndex()
	p := NewPrincipal("u", "o", RoleTeamMember, nil)
	access := restricted(9, 5)

	assert.False(t, access.CanViewAllTasks)
	assert.Equal(t, []int64{5, 9}, access.AllowedTaskIDs)

	task := func(id int64, assignee bool) Request {
		return Request{
			Route:               "/projects/p1/tasks",
			Resource:            ResourceTasks,
			Action:              ActionView,
			ProjectID:           "p1",
			TaskID:              id,
			HasTask:             true,
			RequesterIsAssignee: assignee,
		}
	}

	d := Evaluate(ix, p, activeTrial, task(7, false), access)
	assert.Equal(t, OutcomeDeny, d.Outcome)
	assert.Equal(t, ReasonTaskAccessDenied, d.Reason)

	assert.True(t, Evaluate(ix, p, activeTrial, task(7, true), access).Allowed())
	assert.True(t, Evaluate(ix, p, activeTrial, task(5, false), access).Allowed())
}

func TestEvaluate_ProjectScope(t *testing.T) {
	ix := DefaultIndex()
	p := NewPrincipal("u", "o", RoleTeamMember, nil)
	view := Request{Route: "/projects/p1", Resource: ResourceProjects, Action: ActionView, ProjectID: "p1"}
	edit := Request{Route: "/projects/p1", Resource: ResourceProjects, Action: ActionUpdate, ProjectID: "p1"}
	invite := Request{Route: "/projects/p1/members", Resource: ResourceTeamMembers, Action: ActionCreate, ProjectID: "p1"}

	d := Evaluate(ix, p, activeTrial, view, nil)
	assert.Equal(t, ReasonNotAssigned, d.Reason)

	standard := NormalizeAccess(ProjectAccess{ProjectID: "p1", AccessLevel: AccessStandard, CanViewAllTasks: true})
	assert.True(t, Evaluate(ix, p, activeTrial, view, &standard).Allowed())

	d = Evaluate(ix, p, activeTrial, edit, &standard)
	assert.Equal(t, ReasonNoProjectAccess, d.Reason)
	assert.Equal(t, "canEditProject", d.Required)

	d = Evaluate(ix, p, activeTrial, invite, &standard)
	assert.Equal(t, ReasonNoProjectAccess, d.Reason)
	assert.Equal(t, "canInviteMembers", d.Required)

	full := NormalizeAccess(ProjectAccess{ProjectID: "p1", AccessLevel: AccessFull})
	assert.True(t, full.CanEditProject && full.CanInviteMembers && full.CanViewAllTasks)
	assert.True(t, Evaluate(ix, p, activeTrial, edit, &full).Allowed())
	assert.True(t, Evaluate(ix, p, activeTrial, invite, &full).Allowed())
}

func TestEvaluate_Idempotent(t *testing.T) {
	ix := DefaultIndex()
	p := NewPrincipal("u", "o", RoleClient, nil)
	access := restricted(5)
	req := Request{Route: "/projects/p1/tasks/7", Resource: ResourceTasks, Action: ActionView, ProjectID: "p1", TaskID: 7, HasTask: true}

	first := Evaluate(ix, p, activeTrial, req, access)
	second := Evaluate(ix, p, activeTrial, req, access)
	assert.Equal(t, first, second)
	assert.Equal(t, []int64{5}, access.AllowedTaskIDs)
}

func TestRequest_ScopeAndValidate(t *testing.T) {
	assert.Equal(t, ScopeOrg, Request{}.Scope())
	assert.Equal(t, ScopeProject, Request{ProjectID: "p"}.Scope())
	assert.Equal(t, ScopeTask, Request{ProjectID: "p", HasTask: true}.Scope())

	ok := Request{Resource: ResourceTasks, Action: ActionView, ProjectID: "p", HasTask: true, TaskID: 1}
	assert.NoError(t, ok.Validate())

	assert.Error(t, Request{Resource: "widgets", Action: ActionView}.Validate())
	assert.Error(t, Request{Resource: ResourceTasks, Action: ActionView, HasTask: true}.Validate())
	assert.Error(t, Request{Resource: ResourceTasks, Action: ActionView, Creates: "seats"}.Validate())
	assert.Error(t, Request{Resource: ResourceTasks, Action: ActionView, Delta: -1}.Validate())

	assert.Equal(t, int64(1), Request{}.QuotaDelta())
	assert.Equal(t, int64(4096), Request{Delta: 4096}.QuotaDelta())
}

func TestDecision_Messages(t *testing.T) {
	d := RequiresUpgrade(UpgradeDetail{Plan: PlanSolo, Resource: QuotaProjects, CurrentUsage: 3, Limit: 3, Level: LevelSoft})
	assert.Equal(t, OutcomeRequiresUpgrade, d.Outcome)
	assert.Equal(t, ReasonPlanLimitExceeded, d.Reason)
	assert.Contains(t, d.Message(), "3 of 3")

	assert.Empty(t, Allow().Message())
	assert.Equal(t, ReasonTrialExpired.Message(), TrialExpiredDecision(RoleClient).Message())
}
