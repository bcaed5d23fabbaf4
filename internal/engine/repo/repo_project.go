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

type IProjectRepository interface {
	CountProjects(ctx context.Context, orgId string) (int64, error)
}

type ProjectRepo struct {
	database.IDatabase
}

func NewProjectRepo(db database.IDatabase) IProjectRepository {
	return &ProjectRepo{IDatabase: db}
}

func (r *ProjectRepo) CountProjects(ctx context.Context, orgId string) (int64, error) {
	return Count(database.ReadDB(r.Database().WithContext(ctx)).
		Model(&model.Project{}).
		Where("org_id = ?", orgId))
}
