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

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/pkg/database"
)

const defaultViolationPageSize = 50

// IViolationRepository 超限记录只追加, 不提供更新和删除
type IViolationRepository interface {
	Create(ctx context.Context, v *model.PlanViolation) error
	ListByOrg(ctx context.Context, orgId string, limit int) ([]model.PlanViolation, error)
}

type ViolationRepo struct {
	database.IDatabase
}

func NewViolationRepo(db database.IDatabase) IViolationRepository {
	return &ViolationRepo{IDatabase: db}
}

func (r *ViolationRepo) Create(ctx context.Context, v *model.PlanViolation) error {
	return database.WriteDB(r.Database().WithContext(ctx)).Create(v).Error
}

func (r *ViolationRepo) ListByOrg(ctx context.Context, orgId string, limit int) ([]model.PlanViolation, error) {
	if limit <= 0 {
		limit = defaultViolationPageSize
	}
	var out []model.PlanViolation
	err := database.ReadDB(r.Database().WithContext(ctx)).
		Where("org_id = ?", orgId).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
