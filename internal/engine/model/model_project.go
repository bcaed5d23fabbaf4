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

// Project 项目表, 仅用于统计用量
type Project struct {
	BaseModel
	ProjectId string `gorm:"column:project_id;not null;uniqueIndex" json:"projectId"`
	OrgId     string `gorm:"column:org_id;not null;index" json:"orgId"`
	Name      string `gorm:"column:name" json:"name"`
}

func (Project) TableName() string {
	return "t_project"
}
