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

package inject

import (
	"context"
	"fmt"
	"strings"

	tracecontext "github.com/go-arcade/gatekeeper/pkg/trace/context"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const fiberTracerName = "github.com/go-arcade/gatekeeper/pkg/trace/inject/fiber"

// FiberMiddleware opens a server span per request and exposes it through
// UserContext and the goroutine context.
func FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}

		headers := make(headerCarrier)
		c.Request().Header.VisitAll(func(key, value []byte) {
			headers[string(key)] = string(value)
		})
		ctx = otel.GetTextMapPropagator().Extract(ctx, headers)

		ctx, span := otel.Tracer(fiberTracerName).Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		tracecontext.SetContext(ctx)
		defer tracecontext.ClearContext()
		c.SetUserContext(ctx)

		span.SetAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.target", string(c.Request().URI().RequestURI())),
		)
		if id, ok := c.Locals("request_id").(string); ok && id != "" {
			span.SetAttributes(attribute.String("http.request.id", id))
		}

		err := c.Next()

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		switch {
		case err != nil:
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		case status >= 500:
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		default:
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}

type headerCarrier map[string]string

func (c headerCarrier) Get(key string) string {
	if v, ok := c[key]; ok {
		return v
	}
	for k, v := range c {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	c[key] = value
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
