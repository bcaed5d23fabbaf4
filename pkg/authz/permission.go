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
	"fmt"
	"sort"
	"strings"
)

// Permission is a single (resource, action) capability.
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// ParsePermission accepts "resource:action" and the dotted "resource.action" form.
func ParsePermission(s string) (Permission, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, ":.")
	if sep <= 0 || sep == len(s)-1 {
		return Permission{}, fmt.Errorf("malformed permission %q", s)
	}
	p := Permission{
		Resource: Resource(strings.ToLower(s[:sep])),
		Action:   Action(strings.ToLower(s[sep+1:])),
	}
	if !p.Resource.Valid() {
		return Permission{}, fmt.Errorf("unknown resource in permission %q", s)
	}
	if !p.Action.Valid() {
		return Permission{}, fmt.Errorf("unknown action in permission %q", s)
	}
	return p, nil
}

// PermissionSet is a set of capabilities. Treat values as read-only once shared.
type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Sorted returns the permissions ordered by their string form.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// ParsePermissions expands raw grant strings. Strings that do not parse are
// returned separately so callers can log them.
func ParsePermissions(raw []string) (PermissionSet, []string) {
	set := make(PermissionSet, len(raw))
	var rejected []string
	for _, r := range raw {
		p, err := ParsePermission(r)
		if err != nil {
			rejected = append(rejected, r)
			continue
		}
		set[p] = struct{}{}
	}
	return set, rejected
}

func allPermissions() []Permission {
	out := make([]Permission, 0, len(AllResources)*len(AllActions))
	for _, r := range AllResources {
		for _, a := range AllActions {
			out = append(out, Permission{Resource: r, Action: a})
		}
	}
	return out
}

func perms(resource Resource, actions ...Action) []Permission {
	out := make([]Permission, 0, len(actions))
	for _, a := range actions {
		out = append(out, Permission{Resource: resource, Action: a})
	}
	return out
}

func join(groups ...[]Permission) []Permission {
	var out []Permission
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// DefaultRolePermissions is the built-in role table.
var DefaultRolePermissions = map[OrgRole][]Permission{
	RoleAdmin: allPermissions(),
	RoleTeamMember: join(
		perms(ResourceOrganization, ActionView),
		perms(ResourceProjects, ActionView, ActionUpdate),
		perms(ResourceTasks, ActionView, ActionCreate, ActionUpdate),
		perms(ResourceTeamMembers, ActionView),
		perms(ResourceMessages, ActionView, ActionCreate),
		perms(ResourceFiles, ActionView, ActionCreate),
		perms(ResourceReports, ActionView),
	),
	RoleClient: join(
		perms(ResourceProjects, ActionView),
		perms(ResourceTasks, ActionView),
		perms(ResourceMessages, ActionView, ActionCreate),
		perms(ResourceFiles, ActionView),
	),
}

// PermissionIndex answers capability queries from a static role table. It is
// read-only after construction and needs no locking.
type PermissionIndex struct {
	byRole map[OrgRole]PermissionSet
}

func NewPermissionIndex(table map[OrgRole][]Permission) *PermissionIndex {
	byRole := make(map[OrgRole]PermissionSet, len(table))
	for role, list := range table {
		byRole[role] = NewPermissionSet(list...)
	}
	return &PermissionIndex{byRole: byRole}
}

var defaultIndex = NewPermissionIndex(DefaultRolePermissions)

// DefaultIndex returns the index built from DefaultRolePermissions.
func DefaultIndex() *PermissionIndex {
	return defaultIndex
}

// Expand returns a copy of the capabilities granted by role.
func (ix *PermissionIndex) Expand(role OrgRole) PermissionSet {
	set, ok := ix.byRole[role]
	if !ok {
		return PermissionSet{}
	}
	return set.Clone()
}

// HasPermission reports whether the role table or the principal's raw grants
// contain perm. A match in either is sufficient.
func (ix *PermissionIndex) HasPermission(p Principal, perm Permission) bool {
	if set, ok := ix.byRole[p.Role]; ok && set.Has(perm) {
		return true
	}
	return p.HasRawPermission(perm)
}

// HasRole reports whether p holds required. Admins hold every role.
func HasRole(p Principal, required OrgRole) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleTeamMember, RoleClient:
		return p.Role == required
	}
	return false
}
