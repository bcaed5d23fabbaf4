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

import "time"

// PlanViolation 配额超限记录, 只追加不修改
type PlanViolation struct {
	BaseModel
	ViolationId  string    `gorm:"column:violation_id;not null;uniqueIndex" json:"violationId"`
	OrgId        string    `gorm:"column:org_id;not null;index" json:"orgId"`
	ResourceType string    `gorm:"column:resource_type;not null" json:"resourceType"`
	CurrentUsage int64     `gorm:"column:current_usage" json:"currentUsage"`
	Limit        int64     `gorm:"column:limit_value" json:"limit"`
	Level        string    `gorm:"column:level" json:"level"` // soft/hard
	Plan         string    `gorm:"column:plan" json:"plan"`
	OccurredAt   time.Time `gorm:"column:occurred_at;index" json:"occurredAt"`
}

func (PlanViolation) TableName() string {
	return "t_plan_violation"
}
