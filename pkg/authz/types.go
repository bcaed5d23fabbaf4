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

// Package authz holds the pure authorization decision logic shared by the
// server and by clients that mirror decisions locally. Nothing in this
// package performs I/O.
package authz

import "fmt"

// OrgRole is the organization wide role of a principal.
type OrgRole string

const (
	RoleAdmin      OrgRole = "admin"
	RoleTeamMember OrgRole = "team_member"
	RoleClient     OrgRole = "client"
)

func (r OrgRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeamMember, RoleClient:
		return true
	}
	return false
}

func ParseOrgRole(s string) (OrgRole, error) {
	r := OrgRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown org role %q", s)
	}
	return r, nil
}

// AccessLevel is the per project granularity of an assignment.
type AccessLevel string

const (
	AccessStandard   AccessLevel = "standard"
	AccessRestricted AccessLevel = "restricted"
	AccessFull       AccessLevel = "full"
)

func (l AccessLevel) Valid() bool {
	switch l {
	case AccessStandard, AccessRestricted, AccessFull:
		return true
	}
	return false
}

func ParseAccessLevel(s string) (AccessLevel, error) {
	l := AccessLevel(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown access level %q", s)
	}
	return l, nil
}

// TrialPhase is the derived lifecycle stage of a trial subscription.
type TrialPhase string

const (
	PhaseActive     TrialPhase = "active"
	PhaseEndingSoon TrialPhase = "ending-soon"
	PhaseExpired    TrialPhase = "expired"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanSolo     Plan = "solo"
	PlanPro      Plan = "pro"
	PlanProTrial Plan = "pro_trial"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanSolo, PlanPro, PlanProTrial:
		return true
	}
	return false
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}

// Resource is the kind of object an action is performed on.
type Resource string

const (
	ResourceOrganization Resource = "organization"
	ResourceProjects     Resource = "projects"
	ResourceTasks        Resource = "tasks"
	ResourceTeamMembers  Resource = "team_members"
	ResourceMessages     Resource = "messages"
	ResourceFiles        Resource = "files"
	ResourceBilling      Resource = "billing"
	ResourceReports      Resource = "reports"
)

// AllResources lists every resource in declaration order.
var AllResources = []Resource{
	ResourceOrganization,
	ResourceProjects,
	ResourceTasks,
	ResourceTeamMembers,
	ResourceMessages,
	ResourceFiles,
	ResourceBilling,
	ResourceReports,
}

func (r Resource) Valid() bool {
	switch r {
	case ResourceOrganization, ResourceProjects, ResourceTasks, ResourceTeamMembers,
		ResourceMessages, ResourceFiles, ResourceBilling, ResourceReports:
		return true
	}
	return false
}

// Action is the verb of a permission.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionInvite Action = "invite"
	ActionManage Action = "manage"
)

// AllActions lists every action in declaration order.
var AllActions = []Action{
	ActionView,
	ActionCreate,
	ActionUpdate,
	ActionDelete,
	ActionInvite,
	ActionManage,
}

func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionInvite, ActionManage:
		return true
	}
	return false
}

// QuotaResource is a resource category bounded by plan limits.
type QuotaResource string

const (
	QuotaProjects    QuotaResource = "projects"
	QuotaTeamMembers QuotaResource = "teamMembers"
	QuotaStorage     QuotaResource = "storage"
)

// AllQuotaResources lists every quota bound category.
var AllQuotaResources = []QuotaResource{QuotaProjects, QuotaTeamMembers, QuotaStorage}

func (q QuotaResource) Valid() bool {
	switch q {
	case QuotaProjects, QuotaTeamMembers, QuotaStorage:
		return true
	}
	return false
}

func ParseQuotaResource(s string) (QuotaResource, error) {
	q := QuotaResource(s)
	if !q.Valid() {
		return "", fmt.Errorf("unknown quota resource %q", s)
	}
	return q, nil
}

// ViolationLevel classifies how far a plan limit was overrun.
type ViolationLevel string

const (
	LevelSoft ViolationLevel = "soft"
	LevelHard ViolationLevel = "hard"
)
