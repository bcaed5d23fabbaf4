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
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"gorm.io/datatypes"
)

// ProjectTeamMember 项目成员分配. 移除时只置 is_active=false, 记录保留用于审计
type ProjectTeamMember struct {
	BaseModel
	ProjectId         string         `gorm:"column:project_id;not null;index:idx_project_user" json:"projectId"`
	OrgId             string         `gorm:"column:org_id;not null;index" json:"orgId"`
	UserId            string         `gorm:"column:user_id;not null;index:idx_project_user" json:"userId"`
	Role              string         `gorm:"column:role" json:"role"`
	AccessLevel       string         `gorm:"column:access_level;not null" json:"accessLevel"` // standard/restricted/full
	AllowedTaskIds    datatypes.JSON `gorm:"column:allowed_task_ids;type:json" json:"allowedTaskIds"`
	CanEditProject    bool           `gorm:"column:can_edit_project" json:"canEditProject"`
	CanInviteMembers  bool           `gorm:"column:can_invite_members" json:"canInviteMembers"`
	CanViewAllTasks   bool           `gorm:"column:can_view_all_tasks" json:"canViewAllTasks"`
	IsActive          bool           `gorm:"column:is_active;not null;index" json:"isActive"`
	LastProjectAccess *time.Time     `gorm:"column:last_project_access" json:"lastProjectAccess"`
	RemovedAt         *time.Time     `gorm:"column:removed_at" json:"removedAt"`
}

func (ProjectTeamMember) TableName() string {
	return "t_project_team_member"
}

func (m ProjectTeamMember) TaskIds() ([]int64, error) {
	if len(m.AllowedTaskIds) == 0 {
		return nil, nil
	}
	var ids []int64
	if err := sonic.Unmarshal(m.AllowedTaskIds, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ToAccess maps the row to its capability view. An unknown access level is
// read as restricted, and an unreadable allow-list as empty.
func (m ProjectTeamMember) ToAccess() authz.ProjectAccess {
	level, err := authz.ParseAccessLevel(m.AccessLevel)
	if err != nil {
		log.Warnw("unknown project access level", "memberId", m.ID, "projectId", m.ProjectId, "accessLevel", m.AccessLevel)
		level = authz.AccessRestricted
	}
	ids, err := m.TaskIds()
	if err != nil {
		log.Warnw("unreadable allowed task ids", "memberId", m.ID, "projectId", m.ProjectId, "error", err)
	}
	return authz.NormalizeAccess(authz.ProjectAccess{
		ProjectID:        m.ProjectId,
		MemberID:         m.ID,
		AccessLevel:      level,
		CanEditProject:   m.CanEditProject,
		CanInviteMembers: m.CanInviteMembers,
		CanViewAllTasks:  m.CanViewAllTasks,
		AllowedTaskIDs:   ids,
	})
}
