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

	"github.com/go-arcade/gatekeeper/pkg/authz"
)

// Organization 组织表, 含套餐与用量计数
type Organization struct {
	BaseModel
	OrgId                 string     `gorm:"column:org_id;not null;uniqueIndex" json:"orgId"`
	Name                  string     `gorm:"column:name" json:"name"`
	Plan                  string     `gorm:"column:plan;not null" json:"plan"` // solo/pro/pro_trial
	TrialStartedAt        *time.Time `gorm:"column:trial_started_at" json:"trialStartedAt"`
	HasActiveSubscription bool       `gorm:"column:has_active_subscription" json:"hasActiveSubscription"`
	UsageProjects         int64      `gorm:"column:usage_projects" json:"usageProjects"`
	UsageTeamMembers      int64      `gorm:"column:usage_team_members" json:"usageTeamMembers"`
	UsageStorageBytes     int64      `gorm:"column:usage_storage_bytes" json:"usageStorageBytes"`
	UsageReconciledAt     *time.Time `gorm:"column:usage_reconciled_at" json:"usageReconciledAt"`
	Status                int        `gorm:"column:status" json:"status"` // 0-未激活, 1-正常, 2-冻结
}

func (Organization) TableName() string {
	return "t_organization"
}

const (
	OrgStatusInactive = 0
	OrgStatusActive   = 1
	OrgStatusFrozen   = 2
)

// Usage returns the stored counter for r.
func (o Organization) Usage(r authz.QuotaResource) int64 {
	switch r {
	case authz.QuotaProjects:
		return o.UsageProjects
	case authz.QuotaTeamMembers:
		return o.UsageTeamMembers
	case authz.QuotaStorage:
		return o.UsageStorageBytes
	}
	return 0
}

// UsageColumn is the column holding the counter for r.
func UsageColumn(r authz.QuotaResource) string {
	switch r {
	case authz.QuotaProjects:
		return "usage_projects"
	case authz.QuotaTeamMembers:
		return "usage_team_members"
	case authz.QuotaStorage:
		return "usage_storage_bytes"
	}
	return ""
}

// TrialStart returns the zero time when no trial start was recorded.
func (o Organization) TrialStart() time.Time {
	if o.TrialStartedAt == nil {
		return time.Time{}
	}
	return *o.TrialStartedAt
}

// PlanOrTrial parses the stored plan. An unknown value is read as pro_trial
// so that it can only ever restrict.
func (o Organization) PlanOrTrial() authz.Plan {
	plan, err := authz.ParsePlan(o.Plan)
	if err != nil {
		return authz.PlanProTrial
	}
	return plan
}

func (o Organization) Trial(now time.Time) authz.TrialStatus {
	return authz.EvaluateTrial(o.PlanOrTrial(), o.TrialStart(), o.HasActiveSubscription, now)
}
