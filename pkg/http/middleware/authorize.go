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
	"strconv"
	"strings"

	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/gofiber/fiber/v2"
)

const (
	ProjectIdParam = "projectId"
	TaskIdParam    = "taskId"
	AssigneeQuery  = "assignee"
	DecisionKey    = "decision"

	// ApiPrefix is the mount point of the authenticated API group. Routes
	// handed to the trial check are the UI routes below it.
	ApiPrefix = "/api/v1"
)

// Decider answers one authorization question for a resolved principal.
type Decider interface {
	Decide(ctx context.Context, p authz.Principal, req authz.Request) (authz.Decision, error)
}

// RouteRule is the static half of the authorization request of a route.
// Project and task ids come from the route params.
type RouteRule struct {
	// Route 覆盖请求路径作为试用期校验的路由
	Route        string
	Resource     authz.Resource
	Action       authz.Action
	RequiredRole authz.OrgRole
	Creates      authz.QuotaResource
	// DeltaQuery 从 query 读取配额增量, 为空时按 1 计算
	DeltaQuery string
}

// BuildRequest combines rule with the params and query of c.
func BuildRequest(c *fiber.Ctx, rule RouteRule) (authz.Request, error) {
	req := authz.Request{
		Route:               routeOf(c, rule),
		Resource:            rule.Resource,
		Action:              rule.Action,
		RequiredRole:        rule.RequiredRole,
		ProjectID:           c.Params(ProjectIdParam),
		RequesterIsAssignee: c.QueryBool(AssigneeQuery, false),
		Creates:             rule.Creates,
	}
	if raw := c.Params(TaskIdParam); raw != "" {
		taskId, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, fiber.NewError(fiber.StatusBadRequest, "invalid task id")
		}
		req.TaskID = taskId
		req.HasTask = true
	}
	if rule.DeltaQuery != "" {
		if raw := c.Query(rule.DeltaQuery); raw != "" {
			delta, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return req, fiber.NewError(fiber.StatusBadRequest, "invalid "+rule.DeltaQuery)
			}
			req.Delta = delta
		}
	}
	if err := req.Validate(); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return req, nil
}

// routeOf returns the UI route of c: the rule override, or the request path
// without ApiPrefix.
func routeOf(c *fiber.Ctx, rule RouteRule) string {
	if rule.Route != "" {
		return rule.Route
	}
	path := c.Path()
	if path == ApiPrefix {
		return "/"
	}
	if strings.HasPrefix(path, ApiPrefix+"/") {
		return strings.TrimPrefix(path, ApiPrefix)
	}
	return path
}

// Authorize asks decider about the current route and only calls the next
// handler on ALLOW. The decision is kept in Locals under DecisionKey.
func Authorize(decider Decider, rule RouteRule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := GetPrincipal(c)
		if !ok {
			return http.WithMissingAuthorization(c)
		}

		req, err := BuildRequest(c, rule)
		if err != nil {
			return http.WithRepErrMsg(c, fiber.StatusBadRequest, http.BadRequest.Code, err.Error())
		}

		d, err := decider.Decide(c.UserContext(), p, req)
		if err != nil {
			log.WithContext(c.UserContext()).Errorw("authorization failed",
				"path", c.Path(),
				"user_id", p.UserID,
				"error", err,
			)
			return http.WithUnavailable(c)
		}

		c.Locals(DecisionKey, d)
		if !d.Allowed() {
			return http.WithDecision(c, d)
		}
		http.SetQuotaWarning(c, d)
		return c.Next()
	}
}

func GetDecision(c *fiber.Ctx) (authz.Decision, bool) {
	d, ok := c.Locals(DecisionKey).(authz.Decision)
	return d, ok
}
