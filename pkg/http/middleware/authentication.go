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
	"context"
	"strings"

	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/gofiber/fiber/v2"
)

const PrincipalKey = "principal"

// PrincipalResolver turns a bearer token into a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (authz.Principal, error)
}

// Authentication resolves the bearer token of every request and stores the
// principal in Locals under PrincipalKey.
func Authentication(resolver PrincipalResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return http.WithMissingAuthorization(c)
		}

		ctx := c.UserContext()
		p, err := resolver.Resolve(ctx, token)
		if err != nil {
			if authz.IsInfra(err) {
				log.WithContext(ctx).Errorw("principal resolution failed", "path", c.Path(), "error", err)
			} else {
				log.WithContext(ctx).Debugw("request not authenticated", "path", c.Path(), "reason", authz.Kind(err))
			}
			return http.WithAuthErr(c, err)
		}

		c.Locals(PrincipalKey, p)
		return c.Next()
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func GetPrincipal(c *fiber.Ctx) (authz.Principal, bool) {
	p, ok := c.Locals(PrincipalKey).(authz.Principal)
	return p, ok
}
