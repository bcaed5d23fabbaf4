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

package middleware

import (
	"strings"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// 不记录日志的路径, 以 /* 结尾的按前缀匹配
var excludedPaths = []string{
	"/health",
	"/metrics",
	"/version",
}

func skipAccessLog(path string) bool {
	for _, rule := range excludedPaths {
		if prefix, ok := strings.CutSuffix(rule, "/*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		} else if path == rule {
			return true
		}
	}
	return false
}

// AccessLogMiddleware writes one structured line per request. The principal
// is logged when authentication ran.
func AccessLogMiddleware(httpConfig *http.Http) fiber.Handler {
	if httpConfig != nil && !httpConfig.AccessLog {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		if skipAccessLog(c.Path()) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		kv := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"ip", ClientIP(c),
			"latency", latency.String(),
		}
		if requestId, ok := c.Locals(RequestIdKey).(string); ok {
			kv = append(kv, "request_id", requestId)
		}
		if p, ok := GetPrincipal(c); ok {
			kv = append(kv, "user_id", p.UserID, "org_id", p.OrgID)
		}
		if err != nil {
			kv = append(kv, "error", err.Error())
		}
		log.WithContext(c.UserContext()).Infow("HTTP request", kv...)
		return err
	}
}
