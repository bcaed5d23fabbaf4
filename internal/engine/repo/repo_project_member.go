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

package repo

import (
	"context"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/pkg/database"
)

type IProjectMemberRepository interface {
	GetActiveMember(ctx context.Context, projectId, userId string) (*model.ProjectTeamMember, error)
	// GetMember 按主键查询, 包含已移除的记录
	GetMember(ctx context.Context, projectId string, memberId uint64) (*model.ProjectTeamMember, error)
	TouchLastAccess(ctx context.Context, memberId uint64, at time.Time) error
	// Deactivate 软删除, 返回受影响行数
	Deactivate(ctx context.Context, projectId string, memberId uint64, at time.Time) (int64, error)
}

type ProjectMemberRepo struct {
	database.IDatabase
}

func NewProjectMemberRepo(db database.IDatabase) IProjectMemberRepository {
	return &ProjectMemberRepo{IDatabase: db}
}

func (r *ProjectMemberRepo) GetActiveMember(ctx context.Context, projectId, userId string) (*model.ProjectTeamMember, error) {
	var m model.ProjectTeamMember
	err := database.ReadDB(r.Database().WithContext(ctx)).
		Where("project_id = ? AND user_id = ? AND is_active = ?", projectId, userId, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ProjectMemberRepo) GetMember(ctx context.Context, projectId string, memberId uint64) (*model.ProjectTeamMember, error) {
	var m model.ProjectTeamMember
	err := database.WriteDB(r.Database().WithContext(ctx)).
		Where("id = ? AND project_id = ?", memberId, projectId).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// TouchLastAccess 只更新访问时间, 不改动 updated_at
func (r *ProjectMemberRepo) TouchLastAccess(ctx context.Context, memberId uint64, at time.Time) error {
	return database.WriteDB(r.Database().WithContext(ctx)).
		Model(&model.ProjectTeamMember{}).
		Where("id = ?", memberId).
		UpdateColumn("last_project_access", at).Error
}

func (r *ProjectMemberRepo) Deactivate(ctx context.Context, projectId string, memberId uint64, at time.Time) (int64, error) {
	res := database.WriteDB(r.Database().WithContext(ctx)).
		Model(&model.ProjectTeamMember{}).
		Where("id = ? AND project_id = ? AND is_active = ?", memberId, projectId, true).
		Updates(map[string]any{
			"is_active":  false,
			"removed_at": at,
		})
	return res.RowsAffected, res.Error
}
