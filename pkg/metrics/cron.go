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
	CronJobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Total number of cron job runs",
		},
		[]string{"job_name"},
	)

	CronJobRunDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cron_job_run_duration_seconds",
			Help:    "Duration of cron job runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"job_name"},
	)

	CronJobErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cron_job_errors_total",
			Help: "Total number of cron job errors",
		},
		[]string{"job_name"},
	)

	CronJobLastRunTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cron_job_last_run_time_seconds",
			Help: "Last run time of cron job in seconds since epoch",
		},
		[]string{"job_name"},
	)

	cronMetricsOnce sync.Once
)

func RegisterCronMetrics(registry prometheus.Registerer) {
	cronMetricsOnce.Do(func() {
		registry.MustRegister(
			CronJobRunsTotal,
			CronJobRunDurationSeconds,
			CronJobErrorsTotal,
			CronJobLastRunTime,
		)
	})
}

func RecordCronJobRun(jobName string, duration time.Duration, err error) {
	if err != nil {
		CronJobErrorsTotal.WithLabelValues(jobName).Inc()
	}
	CronJobRunsTotal.WithLabelValues(jobName).Inc()
	CronJobRunDurationSeconds.WithLabelValues(jobName).Observe(duration.Seconds())
	CronJobLastRunTime.WithLabelValues(jobName).Set(float64(time.Now().Unix()))
}
