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

type Outcome string

const (
	OutcomeAllow           Outcome = "ALLOW"
	OutcomeDeny            Outcome = "DENY"
	OutcomeRequiresUpgrade Outcome = "REQUIRES_UPGRADE"
)

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonTrialExpired      Reason = "TrialExpired"
	ReasonMissingPermission Reason = "MissingPermission"
	ReasonNoProjectAccess   Reason = "NoProjectAccess"
	ReasonNotAssigned       Reason = "NotAssigned"
	ReasonTaskAccessDenied  Reason = "TaskAccessDenied"
	ReasonPlanLimitExceeded Reason = "PlanLimitExceeded"
)

// Message is the user facing explanation of a reason.
func (r Reason) Message() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonTrialExpired:
		return "Your trial has expired. Please upgrade to continue"
	case ReasonMissingPermission:
		return "Insufficient permissions"
	case ReasonNoProjectAccess:
		return "You do not have access to this project"
	case ReasonNotAssigned:
		return "You are not assigned to this project"
	case ReasonTaskAccessDenied:
		return "You do not have access to this task"
	case ReasonPlanLimitExceeded:
		return "Plan limit reached"
	}
	return string(r)
}

type UpgradeDetail struct {
	Plan         Plan           `json:"plan"`
	Resource     QuotaResource  `json:"resource"`
	CurrentUsage int64          `json:"currentUsage"`
	Limit        int64          `json:"limit"`
	Level        ViolationLevel `json:"level"`
}

// Decision is the tri-state output of the engine.
type Decision struct {
	Outcome        Outcome        `json:"outcome"`
	Reason         Reason         `json:"reason,omitempty"`
	Required       string         `json:"required,omitempty"`
	Current        string         `json:"current,omitempty"`
	RedirectTo     string         `json:"redirectTo,omitempty"`
	Upgrade        *UpgradeDetail `json:"upgrade,omitempty"`
	PercentageUsed float64        `json:"percentageUsed,omitempty"`
	NearLimit      bool           `json:"nearLimit,omitempty"`
}

func Allow() Decision {
	return Decision{Outcome: OutcomeAllow}
}

func Deny(reason Reason, required, current string) Decision {
	return Decision{Outcome: OutcomeDeny, Reason: reason, Required: required, Current: current}
}

func TrialExpiredDecision(current OrgRole) Decision {
	d := Deny(ReasonTrialExpired, string(PlanPro), string(current))
	d.RedirectTo = BillingRoute
	return d
}

func RequiresUpgrade(detail UpgradeDetail) Decision {
	return Decision{
		Outcome:  OutcomeRequiresUpgrade,
		Reason:   ReasonPlanLimitExceeded,
		Required: fmt.Sprintf("%s<=%d", detail.Resource, detail.Limit),
		Current:  fmt.Sprintf("%s=%d", detail.Resource, detail.CurrentUsage),
		Upgrade:  &detail,
	}
}

func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// Message is the explanation rendered to users for non-allow decisions.
func (d Decision) Message() string {
	switch d.Outcome {
	case OutcomeAllow:
		return ""
	case OutcomeDeny:
		return d.Reason.Message()
	case OutcomeRequiresUpgrade:
		if d.Upgrade != nil {
			return fmt.Sprintf("Plan limit reached for %s: %d of %d used on the %s plan",
				d.Upgrade.Resource, d.Upgrade.CurrentUsage, d.Upgrade.Limit, d.Upgrade.Plan)
		}
		return d.Reason.Message()
	}
	return ""
}
