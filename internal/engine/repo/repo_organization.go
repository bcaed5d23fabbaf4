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
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/cache"
	"github.com/go-arcade/gatekeeper/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	orgCacheKeyPrefix  = "gatekeeper:org:"
	defaultOrgCacheTTL = 10 * time.Second
)

type IOrganizationRepository interface {
	// GetOrganization reads through a short lived cache. Counters may lag.
	GetOrganization(ctx context.Context, orgId string) (*model.Organization, error)
	// LoadOrganization always reads the store.
	LoadOrganization(ctx context.Context, orgId string) (*model.Organization, error)
	// LockForUsage runs fn inside a transaction holding a row lock on the org.
	LockForUsage(ctx context.Context, orgId string, fn func(tx *gorm.DB, org *model.Organization) error) error
	IncrementUsage(tx *gorm.DB, orgId string, resource authz.QuotaResource, delta int64) error
	UpdateUsage(ctx context.Context, orgId string, usage map[authz.QuotaResource]int64, reconciledAt time.Time) error
	ListOrgIds(ctx context.Context) ([]string, error)
	InvalidateOrganization(ctx context.Context, orgId string) error
}

type OrganizationRepo struct {
	database.IDatabase
	cached *cache.CachedQuery[model.Organization]
}

func NewOrganizationRepo(db database.IDatabase, c cache.ICache, ttl time.Duration) IOrganizationRepository {
	if ttl <= 0 {
		ttl = defaultOrgCacheTTL
	}
	r := &OrganizationRepo{IDatabase: db}
	r.cached = cache.NewCachedQuery(c,
		func(params ...any) string {
			return fmt.Sprintf("%s%v", orgCacheKeyPrefix, params[0])
		},
		func(ctx context.Context, params ...any) (model.Organization, error) {
			org, err := r.LoadOrganization(ctx, params[0].(string))
			if err != nil {
				return model.Organization{}, err
			}
			return *org, nil
		},
		cache.WithTTL[model.Organization](ttl),
		cache.WithLogPrefix[model.Organization]("[OrganizationRepo]"),
	)
	return r
}

func (r *OrganizationRepo) GetOrganization(ctx context.Context, orgId string) (*model.Organization, error) {
	org, err := r.cached.Get(ctx, orgId)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepo) LoadOrganization(ctx context.Context, orgId string) (*model.Organization, error) {
	var org model.Organization
	err := database.ReadDB(r.Database().WithContext(ctx)).
		Where("org_id = ?", orgId).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepo) LockForUsage(ctx context.Context, orgId string, fn func(tx *gorm.DB, org *model.Organization) error) error {
	return database.WriteDB(r.Database().WithContext(ctx)).Transaction(func(tx *gorm.DB) error {
		var org model.Organization
		if err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Where("org_id = ?", orgId).First(&org).Error; err != nil {
			return err
		}
		return fn(tx, &org)
	})
}

// IncrementUsage 在调用方事务中累加用量计数
func (r *OrganizationRepo) IncrementUsage(tx *gorm.DB, orgId string, resource authz.QuotaResource, delta int64) error {
	column := model.UsageColumn(resource)
	if column == "" {
		return fmt.Errorf("unknown quota resource %q", resource)
	}
	return tx.Model(&model.Organization{}).
		Where("org_id = ?", orgId).
		Update(column, gorm.Expr(column+" + ?", delta)).Error
}

// UpdateUsage 覆盖用量计数, 由对账任务调用
func (r *OrganizationRepo) UpdateUsage(ctx context.Context, orgId string, usage map[authz.QuotaResource]int64, reconciledAt time.Time) error {
	updates := map[string]any{"usage_reconciled_at": reconciledAt}
	for resource, v := range usage {
		if column := model.UsageColumn(resource); column != "" {
			updates[column] = v
		}
	}
	err := database.WriteDB(r.Database().WithContext(ctx)).
		Model(&model.Organization{}).
		Where("org_id = ?", orgId).
		Updates(updates).Error
	if err != nil {
		return err
	}
	return r.InvalidateOrganization(ctx, orgId)
}

func (r *OrganizationRepo) ListOrgIds(ctx context.Context) ([]string, error) {
	var ids []string
	err := database.ReadDB(r.Database().WithContext(ctx)).
		Model(&model.Organization{}).
		Where("status <> ?", model.OrgStatusFrozen).
		Order("id").
		Pluck("org_id", &ids).Error
	return ids, err
}

func (r *OrganizationRepo) InvalidateOrganization(ctx context.Context, orgId string) error {
	return r.cached.Invalidate(ctx, orgId)
}
