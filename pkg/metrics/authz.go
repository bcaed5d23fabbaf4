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

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DecisionsTotal counts final decisions by outcome and reason
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"outcome", "reason", "scope"},
	)

	DecisionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatekeeper_decision_duration_seconds",
			Help:    "Duration of authorization decisions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"scope"},
	)

	// ResolutionFailuresTotal counts requests that stopped before a decision
	ResolutionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_resolution_failures_total",
			Help: "Total number of identity, membership and infrastructure failures",
		},
		[]string{"kind"},
	)

	QuotaViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_quota_violations_total",
			Help: "Total number of plan limit violations",
		},
		[]string{"plan", "resource", "level"},
	)

	QuotaNearLimitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_quota_near_limit_total",
			Help: "Total number of allowed creations at or above 80 percent of a limit",
		},
		[]string{"plan", "resource"},
	)

	StampFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekeeper_last_access_stamp_failures_total",
			Help: "Total number of failed project last-access updates",
		},
	)

	authzMetricsOnce sync.Once
)

func RegisterAuthzMetrics(registry prometheus.Registerer) {
	authzMetricsOnce.Do(func() {
		registry.MustRegister(
			DecisionsTotal,
			DecisionDurationSeconds,
			ResolutionFailuresTotal,
			QuotaViolationsTotal,
			QuotaNearLimitTotal,
			StampFailuresTotal,
		)
	})
}

func RecordDecision(outcome, reason, scope string, duration time.Duration) {
	DecisionsTotal.WithLabelValues(outcome, reason, scope).Inc()
	DecisionDurationSeconds.WithLabelValues(scope).Observe(duration.Seconds())
}

func RecordResolutionFailure(kind string) {
	ResolutionFailuresTotal.WithLabelValues(kind).Inc()
}

func RecordQuotaViolation(plan, resource, level string) {
	QuotaViolationsTotal.WithLabelValues(plan, resource, level).Inc()
}

func RecordQuotaNearLimit(plan, resource string) {
	QuotaNearLimitTotal.WithLabelValues(plan, resource).Inc()
}

func RecordStampFailure() {
	StampFailuresTotal.Inc()
}
