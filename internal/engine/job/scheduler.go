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

package job

import (
	"context"
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/config"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/metrics"
	"github.com/robfig/cron/v3"
)

const UsageReconcileJob = "usage_reconcile"

// Scheduler runs the periodic jobs of the engine.
type Scheduler struct {
	cron *cron.Cron
	conf config.JobConfig
}

func NewScheduler(conf config.JobConfig, reconciler *UsageReconciler) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	s := &Scheduler{cron: c, conf: conf}
	if _, err := c.AddFunc(conf.UsageReconcileSpec, s.wrap(UsageReconcileJob, reconciler.Run)); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", UsageReconcileJob, err)
	}
	return s, nil
}

// wrap bounds a run by the job timeout and records its outcome.
func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.conf.Timeout)
		defer cancel()

		start := time.Now()
		err := fn(ctx)
		metrics.RecordCronJobRun(name, time.Since(start), err)
		if err != nil {
			log.Errorw("cron job failed", "job", name, "error", err)
		}
	}
}

func (s *Scheduler) Start() {
	if !s.conf.Enable {
		log.Info("cron jobs are disabled")
		return
	}
	s.cron.Start()
	log.Infow("cron jobs started", "entries", len(s.cron.Entries()))
}

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger 将 cron 日志输出到 zap
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Errorw(msg, append(keysAndValues, "error", err)...)
}
