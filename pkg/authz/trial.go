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

import (
	"strings"
	"time"
)

const (
	TrialDuration     = 14 * 24 * time.Hour
	EndingSoonDays    = 3
	BillingRoute      = "/billing"
	hoursPerDay       = 24
	durationRoundUnit = time.Hour
)

// ExpiryAllowList is the set of routes reachable while a trial is expired.
var ExpiryAllowList = []string{"/billing", "/support", "/login", "/signup"}

// TrialStatus is derived from wall-clock time and must not be cached beyond
// a single request or render.
type TrialStatus struct {
	Phase                     TrialPhase `json:"phase"`
	OnTrial                   bool       `json:"onTrial"`
	DaysLeft                  int        `json:"daysLeft"`
	HoursLeft                 int        `json:"hoursLeft"`
	EndsAt                    time.Time  `json:"endsAt"`
	AllowedRoutesDuringExpiry []string   `json:"allowedRoutesDuringExpiry,omitempty"`
}

// EvaluateTrial derives the trial phase. Orgs not on pro_trial, or with an
// active subscription, are always active and unrestricted. A pro_trial org
// without a recorded start is treated as expired.
func EvaluateTrial(plan Plan, trialStartedAt time.Time, hasActiveSubscription bool, now time.Time) TrialStatus {
	if plan != PlanProTrial || hasActiveSubscription {
		return TrialStatus{Phase: PhaseActive}
	}

	status := TrialStatus{
		OnTrial:                   true,
		AllowedRoutesDuringExpiry: append([]string(nil), ExpiryAllowList...),
	}
	if trialStartedAt.IsZero() {
		status.Phase = PhaseExpired
		return status
	}

	end := trialStartedAt.Add(TrialDuration)
	status.EndsAt = end
	if !now.Before(end) {
		status.Phase = PhaseExpired
		return status
	}

	remaining := end.Sub(now)
	status.HoursLeft = ceilDiv(remaining, durationRoundUnit)
	status.DaysLeft = ceilDiv(remaining, hoursPerDay*time.Hour)

	switch {
	case status.DaysLeft > 0 && status.DaysLeft <= EndingSoonDays:
		status.Phase = PhaseEndingSoon
	default:
		status.Phase = PhaseActive
	}
	return status
}

func ceilDiv(d, unit time.Duration) int {
	if d <= 0 {
		return 0
	}
	n := d / unit
	if d%unit != 0 {
		n++
	}
	return int(n)
}

func (s TrialStatus) Expired() bool {
	return s.Phase == PhaseExpired
}

// RouteAllowed reports whether route stays reachable. Only an expired trial
// restricts routes; allow-list entries match exactly or as a path prefix.
func (s TrialStatus) RouteAllowed(route string) bool {
	switch s.Phase {
	case PhaseActive, PhaseEndingSoon:
		return true
	case PhaseExpired:
		return onAllowList(route)
	}
	return false
}

func onAllowList(route string) bool {
	route = normalizeRoute(route)
	for _, allowed := range ExpiryAllowList {
		if route == allowed || strings.HasPrefix(route, allowed+"/") {
			return true
		}
	}
	return false
}

func normalizeRoute(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	return strings.ToLower(route)
}
