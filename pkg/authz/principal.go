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

import "encoding/json"

// Principal is the resolved identity and organization context of one request.
// It is a value; the raw permission set is copied on construction and never
// exposed for mutation.
type Principal struct {
	UserID string
	OrgID  string
	Role   OrgRole
	raw    PermissionSet
}

func NewPrincipal(userID, orgID string, role OrgRole, raw PermissionSet) Principal {
	return Principal{
		UserID: userID,
		OrgID:  orgID,
		Role:   role,
		raw:    raw.Clone(),
	}
}

func (p Principal) HasRawPermission(perm Permission) bool {
	return p.raw.Has(perm)
}

// RawPermissions returns a sorted copy of the explicit grants.
func (p Principal) RawPermissions() []Permission {
	return p.raw.Sorted()
}

func (p Principal) IsZero() bool {
	return p.UserID == "" && p.OrgID == ""
}

type principalJSON struct {
	UserID      string   `json:"userId"`
	OrgID       string   `json:"orgId"`
	Role        OrgRole  `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

func (p Principal) MarshalJSON() ([]byte, error) {
	raw := p.RawPermissions()
	out := principalJSON{UserID: p.UserID, OrgID: p.OrgID, Role: p.Role}
	for _, perm := range raw {
		out.Permissions = append(out.Permissions, perm.String())
	}
	return json.Marshal(out)
}

func (p *Principal) UnmarshalJSON(data []byte) error {
	var in principalJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	role, err := ParseOrgRole(string(in.Role))
	if err != nil {
		return err
	}
	set, _ := ParsePermissions(in.Permissions)
	*p = Principal{UserID: in.UserID, OrgID: in.OrgID, Role: role, raw: set}
	return nil
}
