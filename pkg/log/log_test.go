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

package log

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tracectx "github.com/go-arcade/gatekeeper/pkg/trace/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := L()
	SetLogger(zap.New(wrapCoreWithTrace(core)))
	t.Cleanup(func() { SetLogger(prev) })
	return logs
}

func spanContext() trace.SpanContext {
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
}

func TestConf_Validate(t *testing.T) {
	tests := []struct {
		name    string
		conf    *Conf
		wantErr bool
	}{
		{name: "stdout", conf: &Conf{Output: "stdout"}},
		{name: "file without path", conf: &Conf{Output: "file"}, wantErr: true},
		{name: "unknown output", conf: &Conf{Output: "kafka"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}

	c := &Conf{Output: "file", Path: "/tmp"}
	require.NoError(t, c.Validate())
	assert.Equal(t, 100, c.RotateSize)
	assert.Equal(t, 10, c.RotateNum)
	assert.Equal(t, 7, c.KeepDays)
}

func TestNewLog_File(t *testing.T) {
	prev := L()
	t.Cleanup(func() { SetLogger(prev) })

	dir := t.TempDir()
	conf := SetDefaults()
	conf.Output = "file"
	conf.Path = dir
	conf.Encoding = "json"

	l, err := NewLog(conf)
	require.NoError(t, err)
	l.Info("decision recorded")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "gatekeeper.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "decision recorded")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel(" Warning "))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("verbose"))
}

func TestTraceCore_StampsGoroutineSpan(t *testing.T) {
	logs := observe(t)
	ctx := trace.ContextWithSpanContext(context.Background(), spanContext())

	tracectx.RunWithContext(ctx, func(context.Context) {
		Infow("inside span", "org", "o1")
	})
	Infow("outside span")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, spanContext().TraceID().String(), entries[0].ContextMap()["trace_id"])
	assert.Equal(t, "o1", entries[0].ContextMap()["org"])
	assert.NotContains(t, entries[1].ContextMap(), "trace_id")
}

func TestWithContext(t *testing.T) {
	logs := observe(t)
	ctx := trace.ContextWithSpanContext(context.Background(), spanContext())

	WithContext(ctx).Warnw("quota near limit")
	WithContext(context.Background()).Warnw("no span")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, spanContext().SpanID().String(), entries[0].ContextMap()["span_id"])
	assert.NotContains(t, entries[1].ContextMap(), "span_id")
}
