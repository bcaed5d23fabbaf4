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
	"time"

	"github.com/go-arcade/gatekeeper/pkg/cache"
	"github.com/go-arcade/gatekeeper/pkg/database"
	"gorm.io/gorm"
)

// Repositories 统一管理所有 repository
type Repositories struct {
	Organization  IOrganizationRepository
	Membership    IMembershipRepository
	Project       IProjectRepository
	ProjectMember IProjectMemberRepository
	Violation     IViolationRepository
}

// CacheTTL 缓存过期时间, 为 0 时使用各仓储默认值
type CacheTTL struct {
	Membership   time.Duration
	Organization time.Duration
}

// NewRepositories 初始化所有 repository
func NewRepositories(db database.IDatabase, c cache.ICache, ttl CacheTTL) *Repositories {
	return &Repositories{
		Organization:  NewOrganizationRepo(db, c, ttl.Organization),
		Membership:    NewMembershipRepo(db, c, ttl.Membership),
		Project:       NewProjectRepo(db),
		ProjectMember: NewProjectMemberRepo(db),
		Violation:     NewViolationRepo(db),
	}
}

func Count(tx *gorm.DB) (int64, error) {
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
