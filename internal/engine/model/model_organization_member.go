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

package model

import (
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
)

// OrganizationMember 组织成员表
type OrganizationMember struct {
	BaseModel
	OrgId       string         `gorm:"column:org_id;not null;index:idx_org_user,unique" json:"orgId"`
	UserId      string         `gorm:"column:user_id;not null;index:idx_org_user,unique;index:idx_user" json:"userId"`
	Role        string         `gorm:"column:role;not null" json:"role"`                // admin/team_member/client
	Permissions datatypes.JSON `gorm:"column:permissions;type:json" json:"permissions"` // 额外授予的权限, 如 ["tasks:delete"]
	Status      int            `gorm:"column:status" json:"status"`                     // 0-待接受, 1-正常, 2-禁用
	JoinedAt    time.Time      `gorm:"column:joined_at" json:"joinedAt"`
}

func (OrganizationMember) TableName() string {
	return "t_organization_member"
}

const (
	OrgMemberStatusPending  = 0
	OrgMemberStatusActive   = 1
	OrgMemberStatusDisabled = 2
)

// RawPermissions decodes the explicit grants. An empty column means none.
func (m OrganizationMember) RawPermissions() ([]string, error) {
	if len(m.Permissions) == 0 {
		return nil, nil
	}
	var out []string
	if err := sonic.Unmarshal(m.Permissions, &out); err != nil {
		return nil, err
	}
	return out, nil
}
