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
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gometrics "github.com/hashicorp/go-metrics"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	queues []string
	infos  map[string]*asynq.QueueInfo
}

func (f *fakeInspector) Queues() ([]string, error) {
	return f.queues, nil
}

func (f *fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if info, ok := f.infos[queue]; ok {
		return info, nil
	}
	return nil, errors.New("queue not found")
}

func TestRecordDecision(t *testing.T) {
	before := testutil.ToFloat64(DecisionsTotal.WithLabelValues("DENY", "NotAssigned", "project"))
	RecordDecision("DENY", "NotAssigned", "project", 3*time.Millisecond)
	after := testutil.ToFloat64(DecisionsTotal.WithLabelValues("DENY", "NotAssigned", "project"))
	assert.Equal(t, before+1, after)
}

func TestServer_Handler(t *testing.T) {
	s := NewMetricsServer(MetricsConfig{})
	RecordQuotaViolation("solo", "projects", "soft")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gatekeeper_quota_violations_total")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/queue", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestAsynqMetricsCollector_Collect(t *testing.T) {
	sink := gometrics.NewInmemSink(time.Minute, time.Minute)
	inspector := &fakeInspector{
		queues: []string{"stamps"},
		infos:  map[string]*asynq.QueueInfo{"stamps": {Size: 4, Pending: 3, Active: 1}},
	}

	NewAsynqMetricsCollector(inspector, sink, "stamps", "default").Collect()

	data := sink.Data()
	require.NotEmpty(t, data)
	gauges := data[len(data)-1].Gauges
	assert.Equal(t, float32(3), gauges["asynq.queue.pending;queue=stamps"].Value)
	assert.Equal(t, float32(0), gauges["asynq.queue.pending;queue=default"].Value)
	assert.Contains(t, gauges, "asynq.queue.size;queue=default")
}
