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

import "fmt"

type Scope int

const (
	ScopeOrg Scope = iota
	ScopeProject
	ScopeTask
)

func (s Scope) String() string {
	switch s {
	case ScopeOrg:
		return "org"
	case ScopeProject:
		return "project"
	case ScopeTask:
		return "task"
	}
	return "unknown"
}

// Request describes the resource and action being authorized.
type Request struct {
	Route               string        `json:"route"`
	Resource            Resource      `json:"resource"`
	Action              Action        `json:"action"`
	RequiredRole        OrgRole       `json:"requiredRole,omitempty"`
	ProjectID           string        `json:"projectId,omitempty"`
	TaskID              int64         `json:"taskId,omitempty"`
	HasTask             bool          `json:"hasTask,omitempty"`
	RequesterIsAssignee bool          `json:"requesterIsAssignee,omitempty"`
	Creates             QuotaResource `json:"creates,omitempty"`
	Delta               int64         `json:"delta,omitempty"`
}

func (r Request) Scope() Scope {
	switch {
	case r.ProjectID != "" && r.HasTask:
		return ScopeTask
	case r.ProjectID != "":
		return ScopeProject
	default:
		return ScopeOrg
	}
}

func (r Request) Permission() Permission {
	return Permission{Resource: r.Resource, Action: r.Action}
}

// QuotaDelta is the amount a creation adds to usage. Creations default to one unit.
func (r Request) QuotaDelta() int64 {
	if r.Delta > 0 {
		return r.Delta
	}
	return 1
}

// Key identifies a request for reconciliation. Equal keys denote the same question.
func (r Request) Key() string {
	return fmt.Sprintf("%s|%s:%s|%s|%s|%d|%t|%t|%s|%d",
		normalizeRoute(r.Route), r.Resource, r.Action, r.RequiredRole,
		r.ProjectID, r.TaskID, r.HasTask, r.RequesterIsAssignee, r.Creates, r.Delta)
}

func (r Request) Validate() error {
	if !r.Resource.Valid() {
		return fmt.Errorf("unknown resource %q", r.Resource)
	}
	if !r.Action.Valid() {
		return fmt.Errorf("unknown action %q", r.Action)
	}
	if r.RequiredRole != "" && !r.RequiredRole.Valid() {
		return fmt.Errorf("unknown required role %q", r.RequiredRole)
	}
	if r.Creates != "" && !r.Creates.Valid() {
		return fmt.Errorf("unknown quota resource %q", r.Creates)
	}
	if r.HasTask && r.ProjectID == "" {
		return fmt.Errorf("task scoped request requires a project id")
	}
	if r.Delta < 0 {
		return fmt.Errorf("delta must not be negative")
	}
	return nil
}

// Precheck runs the trial and role/permission steps. It returns the decision
// and whether evaluation must stop there.
func Precheck(ix *PermissionIndex, p Principal, trial TrialStatus, req Request) (Decision, bool) {
	if trial.Expired() && !trial.RouteAllowed(req.Route) {
		return TrialExpiredDecision(p.Role), true
	}

	if req.RequiredRole != "" && !HasRole(p, req.RequiredRole) {
		return Deny(ReasonMissingPermission, string(req.RequiredRole), string(p.Role)), true
	}

	switch req.Scope() {
	case ScopeOrg:
		if !ix.HasPermission(p, req.Permission()) {
			return Deny(ReasonMissingPermission, req.Permission().String(), string(p.Role)), true
		}
	case ScopeProject, ScopeTask:
	}
	return Allow(), false
}

// CheckProjectScope runs the project and task step against resolved access.
// Org scoped requests pass through unchanged.
func CheckProjectScope(p Principal, req Request, access *ProjectAccess) (Decision, bool) {
	scope := req.Scope()
	if scope == ScopeOrg {
		return Allow(), false
	}
	if access == nil {
		return Deny(ReasonNotAssigned, "project:"+req.ProjectID, string(p.Role)), true
	}
	if capability, ok := requiredCapability(req); ok && !hasCapability(*access, capability) {
		return Deny(ReasonNoProjectAccess, capability, string(access.AccessLevel)), true
	}
	if scope == ScopeTask && !CheckTaskAccess(*access, req.TaskID, req.RequesterIsAssignee) {
		return Deny(ReasonTaskAccessDenied, fmt.Sprintf("task:%d", req.TaskID), string(access.AccessLevel)), true
	}
	return Allow(), false
}

// Evaluate composes Precheck and CheckProjectScope for callers that already
// hold the project access record.
func Evaluate(ix *PermissionIndex, p Principal, trial TrialStatus, req Request, access *ProjectAccess) Decision {
	if d, done := Precheck(ix, p, trial, req); done {
		return d
	}
	d, _ := CheckProjectScope(p, req, access)
	return d
}

const (
	capEditProject   = "canEditProject"
	capInviteMembers = "canInviteMembers"
)

func requiredCapability(req Request) (string, bool) {
	if req.Resource == ResourceTeamMembers && req.Action == ActionCreate {
		return capInviteMembers, true
	}
	switch req.Action {
	case ActionInvite:
		return capInviteMembers, true
	case ActionUpdate, ActionDelete, ActionManage:
		if req.Resource == ResourceProjects {
			return capEditProject, true
		}
	case ActionView, ActionCreate:
	}
	return "", false
}

func hasCapability(a ProjectAccess, capability string) bool {
	switch capability {
	case capEditProject:
		return a.CanEditProject
	case capInviteMembers:
		return a.CanInviteMembers
	}
	return false
}
