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

package trace

import (
	"context"

	tracectx "github.com/go-arcade/gatekeeper/pkg/trace/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/go-arcade/gatekeeper"

// Start opens a span named name under ctx, falling back to the goroutine's
// bound span when ctx carries none.
func Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx = tracectx.ContextWithSpan(ctx)
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// GoWithContext runs fn on a new goroutine that carries ctx's span.
func GoWithContext(ctx context.Context, fn func(ctx context.Context)) {
	ctx = tracectx.ContextWithSpan(ctx)
	go tracectx.RunWithContext(ctx, fn)
}

// Detach keeps the span of ctx but drops its deadline and cancellation.
func Detach(ctx context.Context) context.Context {
	ctx = tracectx.ContextWithSpan(ctx)
	return trace.ContextWithSpan(context.Background(), trace.SpanFromContext(ctx))
}
