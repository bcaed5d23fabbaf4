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
	"context"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/log"
	gometrics "github.com/hashicorp/go-metrics"
	"github.com/hibiken/asynq"
)

// QueueInspector is the part of *asynq.Inspector the collector reads.
type QueueInspector interface {
	Queues() ([]string, error)
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// AsynqMetricsCollector samples queue depth into a go-metrics sink.
type AsynqMetricsCollector struct {
	inspector QueueInspector
	sink      gometrics.MetricSink
	queues    []string
}

// NewAsynqMetricsCollector reports the given queues even while they are empty.
func NewAsynqMetricsCollector(inspector QueueInspector, sink gometrics.MetricSink, queues ...string) *AsynqMetricsCollector {
	return &AsynqMetricsCollector{inspector: inspector, sink: sink, queues: queues}
}

// Run samples every interval until ctx is done.
func (c *AsynqMetricsCollector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Collect()
	for {
		select {
		case <-ticker.C:
			c.Collect()
		case <-ctx.Done():
			return
		}
	}
}

func (c *AsynqMetricsCollector) Collect() {
	known, err := c.inspector.Queues()
	if err != nil {
		log.Warnw("failed to list queues for metrics", "error", err)
		return
	}

	seen := make(map[string]bool, len(known))
	for _, name := range known {
		seen[name] = true
		info, err := c.inspector.GetQueueInfo(name)
		if err != nil {
			log.Warnw("failed to get queue info", "queue", name, "error", err)
			c.emit(name, &asynq.QueueInfo{})
			continue
		}
		c.emit(name, info)
	}
	for _, name := range c.queues {
		if !seen[name] {
			c.emit(name, &asynq.QueueInfo{})
		}
	}
}

func (c *AsynqMetricsCollector) emit(queue string, info *asynq.QueueInfo) {
	labels := []gometrics.Label{{Name: "queue", Value: queue}}
	c.sink.SetGaugeWithLabels([]string{"asynq", "queue", "size"}, float32(info.Size), labels)
	c.sink.SetGaugeWithLabels([]string{"asynq", "queue", "pending"}, float32(info.Pending), labels)
	c.sink.SetGaugeWithLabels([]string{"asynq", "queue", "active"}, float32(info.Active), labels)
	c.sink.SetGaugeWithLabels([]string{"asynq", "queue", "retry"}, float32(info.Retry), labels)
	c.sink.SetGaugeWithLabels([]string{"asynq", "queue", "archived"}, float32(info.Archived), labels)
	c.sink.SetGaugeWithLabels([]string{"asynq", "queue", "failed"}, float32(info.Failed), labels)
}
