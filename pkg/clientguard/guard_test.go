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

package clientguard

import (
	"testing"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newGuard(t *testing.T, s Snapshot) *Guard {
	t.Helper()
	g := New(cache.NewFastCache(cache.FastCacheConfig{}), WithClock(func() time.Time { return now }))
	require.NoError(t, g.Store(s))
	return g
}

func memberSnapshot() Snapshot {
	return Snapshot{
		Principal:      authz.NewPrincipal("u-1", "org-1", authz.RoleTeamMember, nil),
		Plan:           authz.PlanProTrial,
		TrialStartedAt: now.Add(-9 * 24 * time.Hour),
		Projects: map[string]authz.ProjectAccess{
			"p-1": {ProjectID: "p-1", AccessLevel: authz.AccessRestricted, AllowedTaskIDs: []int64{9, 5}},
		},
	}
}

var viewTasks = authz.Request{Route: "/projects/p-1/tasks/5", Resource: authz.ResourceTasks, Action: authz.ActionView, ProjectID: "p-1", TaskID: 5, HasTask: true}

func TestEvaluate_LoadingWithoutSnapshot(t *testing.T) {
	g := New(cache.NewFastCache(cache.FastCacheConfig{}))
	assert.Equal(t, RenderLoading, g.Evaluate(viewTasks).State)
}

func TestEvaluate_LoadingWhenStale(t *testing.T) {
	clock := now
	g := New(cache.NewFastCache(cache.FastCacheConfig{}),
		WithClock(func() time.Time { return clock }),
		WithMaxAge(time.Minute),
	)
	require.NoError(t, g.Store(memberSnapshot()))
	assert.Equal(t, RenderChildren, g.Evaluate(viewTasks).State)

	clock = now.Add(2 * time.Minute)
	assert.Equal(t, RenderLoading, g.Evaluate(viewTasks).State)
}

func TestEvaluate_Provisional(t *testing.T) {
	g := newGuard(t, memberSnapshot())

	r := g.Evaluate(viewTasks)
	assert.Equal(t, RenderChildren, r.State)
	assert.True(t, r.Provisional)

	hidden := viewTasks
	hidden.TaskID = 7
	r = g.Evaluate(hidden)
	assert.Equal(t, RenderDenied, r.State)
	assert.Equal(t, authz.ReasonTaskAccessDenied, r.Decision.Reason)
	assert.Equal(t, "/projects", r.RedirectTo)

}

func TestEvaluate_UnfetchedProjectIsLoading(t *testing.T) {
	s := memberSnapshot()
	s.Unassigned = []string{"p-3"}
	g := newGuard(t, s)

	unknown := authz.Request{Route: "/projects/p-2", Resource: authz.ResourceProjects, Action: authz.ActionView, ProjectID: "p-2"}
	r := g.Evaluate(unknown)
	assert.Equal(t, RenderLoading, r.State)
	assert.True(t, r.Provisional)

	unassigned := unknown
	unassigned.ProjectID = "p-3"
	unassigned.Route = "/projects/p-3"
	r = g.Evaluate(unassigned)
	assert.Equal(t, RenderDenied, r.State)
	assert.Equal(t, authz.ReasonNotAssigned, r.Decision.Reason)
	assert.Equal(t, "/projects", r.RedirectTo)

	// 试用期过期时无需等待项目数据
	s.TrialStartedAt = now.Add(-15 * 24 * time.Hour)
	g = newGuard(t, s)
	r = g.Evaluate(unknown)
	assert.Equal(t, RenderDenied, r.State)
	assert.Equal(t, authz.ReasonTrialExpired, r.Decision.Reason)
}

func TestEvaluate_TrialExpiredRedirectsToBilling(t *testing.T) {
	s := memberSnapshot()
	s.TrialStartedAt = now.Add(-15 * 24 * time.Hour)
	g := newGuard(t, s)

	r := g.Evaluate(viewTasks)
	assert.Equal(t, RenderDenied, r.State)
	assert.Equal(t, "/billing", r.RedirectTo)

	billing := authz.Request{Route: "/billing", Resource: authz.ResourceBilling, Action: authz.ActionView}
	r = g.Evaluate(billing)
	assert.Equal(t, authz.ReasonMissingPermission, r.Decision.Reason)
}

func TestReconcile_ServerWins(t *testing.T) {
	g := newGuard(t, memberSnapshot())
	require.Equal(t, RenderChildren, g.Evaluate(viewTasks).State)

	r := g.Reconcile(viewTasks, authz.Deny(authz.ReasonNotAssigned, "project:p-1", "team_member"))
	assert.Equal(t, RenderDenied, r.State)
	assert.False(t, r.Provisional)

	r = g.Evaluate(viewTasks)
	assert.Equal(t, RenderDenied, r.State)
	assert.False(t, r.Provisional)
	assert.Equal(t, "/projects", r.RedirectTo)

	require.NoError(t, g.Store(memberSnapshot()))
	r = g.Evaluate(viewTasks)
	assert.Equal(t, RenderChildren, r.State)
	assert.True(t, r.Provisional)
}

func TestReconcile_UpgradeRedirect(t *testing.T) {
	g := newGuard(t, memberSnapshot())
	create := authz.Request{Route: "/projects", Resource: authz.ResourceProjects, Action: authz.ActionCreate, Creates: authz.QuotaProjects}

	r := g.Reconcile(create, authz.RequiresUpgrade(authz.UpgradeDetail{Plan: authz.PlanSolo, Resource: authz.QuotaProjects, CurrentUsage: 3, Limit: 3}))
	assert.Equal(t, RenderDenied, r.State)
	assert.Equal(t, authz.BillingRoute, r.RedirectTo)
}

func TestEvaluate_Idempotent(t *testing.T) {
	g := newGuard(t, memberSnapshot())
	first := g.Evaluate(viewTasks)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, g.Evaluate(viewTasks))
	}
}

func TestEvaluate_AdminGetsFullAccess(t *testing.T) {
	s := memberSnapshot()
	s.Principal = authz.NewPrincipal("u-2", "org-1", authz.RoleAdmin, nil)
	g := newGuard(t, s)

	del := authz.Request{Route: "/projects/p-9", Resource: authz.ResourceProjects, Action: authz.ActionDelete, ProjectID: "p-9"}
	assert.Equal(t, RenderChildren, g.Evaluate(del).State)
}

func TestInvalidate(t *testing.T) {
	g := newGuard(t, memberSnapshot())
	g.Invalidate()
	assert.Equal(t, RenderLoading, g.Evaluate(viewTasks).State)
}

func TestRedirectFor(t *testing.T) {
	assert.Equal(t, "/client-dashboard", RedirectFor(authz.RoleClient))
	assert.Equal(t, "/projects", RedirectFor(authz.RoleTeamMember))
	assert.Equal(t, "/", RedirectFor(authz.RoleAdmin))
	assert.Equal(t, "/", RedirectFor(""))
}
