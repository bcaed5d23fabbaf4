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
	"errors"
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/cache"
	"github.com/go-arcade/gatekeeper/pkg/database"
)

const (
	membershipCacheKeyPrefix  = "gatekeeper:membership:"
	defaultMembershipCacheTTL = 30 * time.Second
)

type IMembershipRepository interface {
	// FindActiveMembership 查询用户在组织内的有效成员关系. orgId 为空时取最早加入的组织
	FindActiveMembership(ctx context.Context, userId, orgId string) (*model.OrganizationMember, error)
	InvalidateMembership(ctx context.Context, userId, orgId string) error
	// UpdateRole 修改有效成员的角色, 成功后清除该成员的缓存
	UpdateRole(ctx context.Context, orgId, userId string, role authz.OrgRole) (int64, error)
	CountActiveCollaborators(ctx context.Context, orgId string) (int64, error)
}

type MembershipRepo struct {
	database.IDatabase
	cached *cache.CachedQuery[model.OrganizationMember]
}

func NewMembershipRepo(db database.IDatabase, c cache.ICache, ttl time.Duration) IMembershipRepository {
	if ttl <= 0 {
		ttl = defaultMembershipCacheTTL
	}
	r := &MembershipRepo{IDatabase: db}
	r.cached = cache.NewCachedQuery(c,
		func(params ...any) string {
			return fmt.Sprintf("%s%v:%v", membershipCacheKeyPrefix, params[0], params[1])
		},
		func(ctx context.Context, params ...any) (model.OrganizationMember, error) {
			return r.findActive(ctx, params[0].(string), params[1].(string))
		},
		cache.WithTTL[model.OrganizationMember](ttl),
		cache.WithLogPrefix[model.OrganizationMember]("[MembershipRepo]"),
	)
	return r
}

func (r *MembershipRepo) FindActiveMembership(ctx context.Context, userId, orgId string) (*model.OrganizationMember, error) {
	m, err := r.cached.Get(ctx, userId, orgId)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepo) findActive(ctx context.Context, userId, orgId string) (model.OrganizationMember, error) {
	var m model.OrganizationMember
	tx := database.ReadDB(r.Database().WithContext(ctx)).
		Where("user_id = ? AND status = ?", userId, model.OrgMemberStatusActive)
	if orgId != "" {
		tx = tx.Where("org_id = ?", orgId)
	}
	err := tx.Order("joined_at ASC").First(&m).Error
	return m, err
}

// InvalidateMembership drops both the org scoped entry and the entry cached
// for tokens that carry no org.
func (r *MembershipRepo) InvalidateMembership(ctx context.Context, userId, orgId string) error {
	err := r.cached.Invalidate(ctx, userId, orgId)
	if orgId != "" {
		err = errors.Join(err, r.cached.Invalidate(ctx, userId, ""))
	}
	return err
}

func (r *MembershipRepo) UpdateRole(ctx context.Context, orgId, userId string, role authz.OrgRole) (int64, error) {
	res := database.WriteDB(r.Database().WithContext(ctx)).
		Model(&model.OrganizationMember{}).
		Where("org_id = ? AND user_id = ? AND status = ?", orgId, userId, model.OrgMemberStatusActive).
		Update("role", string(role))
	if res.Error != nil {
		return 0, res.Error
	}
	if err := r.InvalidateMembership(ctx, userId, orgId); err != nil {
		return res.RowsAffected, err
	}
	return res.RowsAffected, nil
}

// CountActiveCollaborators 统计计入 teamMembers 配额的成员数
func (r *MembershipRepo) CountActiveCollaborators(ctx context.Context, orgId string) (int64, error) {
	return Count(database.ReadDB(r.Database().WithContext(ctx)).
		Model(&model.OrganizationMember{}).
		Where("org_id = ? AND status = ? AND role = ?", orgId, model.OrgMemberStatusActive, string(authz.RoleTeamMember)))
}
