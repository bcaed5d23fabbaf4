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
	"github.com/go-arcade/gatekeeper/internal/engine/config"
	"github.com/go-arcade/gatekeeper/pkg/cache"
	"github.com/go-arcade/gatekeeper/pkg/database"
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	ProvideRepositories,
	ProvideOrganizationRepo,
	ProvideMembershipRepo,
	ProvideProjectRepo,
	ProvideProjectMemberRepo,
	ProvideViolationRepo,
)

func ProvideRepositories(db database.IDatabase, c cache.ICache, ent config.EntitlementConfig) *Repositories {
	return NewRepositories(db, c, CacheTTL{
		Membership:   ent.MembershipCacheTTL,
		Organization: ent.OrgCacheTTL,
	})
}

func ProvideOrganizationRepo(r *Repositories) IOrganizationRepository {
	return r.Organization
}

func ProvideMembershipRepo(r *Repositories) IMembershipRepository {
	return r.Membership
}

func ProvideProjectRepo(r *Repositories) IProjectRepository {
	return r.Project
}

func ProvideProjectMemberRepo(r *Repositories) IProjectMemberRepository {
	return r.ProjectMember
}

func ProvideViolationRepo(r *Repositories) IViolationRepository {
	return r.Violation
}
