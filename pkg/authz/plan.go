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

package authz

import "fmt"

const (
	// Unlimited is the only negative value a limit may hold.
	Unlimited int64 = -1

	hardLimitFactor  = 1.2
	nearLimitPercent = 80.0

	gib = int64(1) << 30
)

type PlanLimits struct {
	MaxProjects     int64 `json:"maxProjects" mapstructure:"maxProjects"`
	MaxTeamMembers  int64 `json:"maxTeamMembers" mapstructure:"maxTeamMembers"`
	MaxStorageBytes int64 `json:"maxStorageBytes" mapstructure:"maxStorageBytes"`
}

func (l PlanLimits) Limit(resource QuotaResource) int64 {
	switch resource {
	case QuotaProjects:
		return l.MaxProjects
	case QuotaTeamMembers:
		return l.MaxTeamMembers
	case QuotaStorage:
		return l.MaxStorageBytes
	}
	return 0
}

func (l PlanLimits) Validate() error {
	for _, r := range AllQuotaResources {
		if v := l.Limit(r); v < 0 && v != Unlimited {
			return fmt.Errorf("limit for %s must be >= 0 or %d, got %d", r, Unlimited, v)
		}
	}
	return nil
}

// LimitsTable maps a plan to its limits. It is read-only after start up.
type LimitsTable map[Plan]PlanLimits

func DefaultLimits() LimitsTable {
	return LimitsTable{
		PlanSolo:     {MaxProjects: 3, MaxTeamMembers: 1, MaxStorageBytes: 1 * gib},
		PlanPro:      {MaxProjects: Unlimited, MaxTeamMembers: 25, MaxStorageBytes: 100 * gib},
		PlanProTrial: {MaxProjects: Unlimited, MaxTeamMembers: 5, MaxStorageBytes: 10 * gib},
	}
}

func (t LimitsTable) Validate() error {
	for _, p := range []Plan{PlanSolo, PlanPro, PlanProTrial} {
		l, ok := t[p]
		if !ok {
			return fmt.Errorf("missing limits for plan %s", p)
		}
		if err := l.Validate(); err != nil {
			return fmt.Errorf("plan %s: %w", p, err)
		}
	}
	return nil
}

func (t LimitsTable) Lookup(plan Plan, resource QuotaResource) (int64, error) {
	l, ok := t[plan]
	if !ok {
		return 0, fmt.Errorf("no limits configured for plan %q", plan)
	}
	return l.Limit(resource), nil
}

type QuotaResult struct {
	Allowed        bool
	Level          ViolationLevel
	PercentageUsed float64
	NearLimit      bool
}

// EvaluateQuota compares usage+delta against limit. Overruns are hard when
// current usage already exceeds the limit by more than 20 percent.
func EvaluateQuota(limit, usage, delta int64) QuotaResult {
	if limit == Unlimited {
		return QuotaResult{Allowed: true}
	}
	projected := usage + delta
	if projected > limit {
		level := LevelSoft
		if float64(usage) > float64(limit)*hardLimitFactor {
			level = LevelHard
		}
		return QuotaResult{Allowed: false, Level: level, PercentageUsed: percentage(projected, limit)}
	}
	pct := percentage(projected, limit)
	return QuotaResult{Allowed: true, PercentageUsed: pct, NearLimit: pct >= nearLimitPercent}
}

func percentage(used, limit int64) float64 {
	if limit <= 0 {
		if used > 0 {
			return 100
		}
		return 0
	}
	return float64(used) / float64(limit) * 100
}
