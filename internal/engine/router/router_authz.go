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

package router

import (
	"context"
	"errors"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/service"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-arcade/gatekeeper/pkg/http/middleware"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/gofiber/fiber/v2"
)

/**
 * @file: router_authz.go
 * @description: 身份与鉴权决策路由
 */

type meResp struct {
	Principal             authz.Principal   `json:"principal"`
	Plan                  authz.Plan        `json:"plan"`
	TrialStartedAt        *time.Time        `json:"trialStartedAt"`
	HasActiveSubscription bool              `json:"hasActiveSubscription"`
	Trial                 authz.TrialStatus `json:"trial"`
}

// decideReq mirrors authz.Request on the wire.
type decideReq struct {
	Route               string              `json:"route" validate:"required,startswith=/"`
	Resource            authz.Resource      `json:"resource" validate:"required"`
	Action              authz.Action        `json:"action" validate:"required"`
	RequiredRole        authz.OrgRole       `json:"requiredRole,omitempty"`
	ProjectID           string              `json:"projectId,omitempty" validate:"max=64"`
	TaskID              int64               `json:"taskId,omitempty" validate:"gte=0"`
	HasTask             bool                `json:"hasTask,omitempty"`
	RequesterIsAssignee bool                `json:"requesterIsAssignee,omitempty"`
	Creates             authz.QuotaResource `json:"creates,omitempty"`
	Delta               int64               `json:"delta,omitempty" validate:"gte=0"`
}

func (r decideReq) toRequest() authz.Request {
	return authz.Request{
		Route:               r.Route,
		Resource:            r.Resource,
		Action:              r.Action,
		RequiredRole:        r.RequiredRole,
		ProjectID:           r.ProjectID,
		TaskID:              r.TaskID,
		HasTask:             r.HasTask,
		RequesterIsAssignee: r.RequesterIsAssignee,
		Creates:             r.Creates,
		Delta:               r.Delta,
	}
}

func (rt *Router) authzRouter(r fiber.Router) {
	// 当前用户及其组织的套餐信息
	r.Get("/me", rt.me)

	// 试用状态, 每次请求实时计算
	r.Get("/trial", rt.trial)

	// 鉴权决策, 决策结果总是以 200 返回
	r.Post("/authz/decide", middleware.RateLimitMiddleware(rt.Http.RateLimit), rt.decide)
}

func (rt *Router) me(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return http.WithMissingAuthorization(c)
	}

	trial, org, err := rt.Services.Authorization.Trial(c.UserContext(), p)
	if err != nil {
		log.WithContext(c.UserContext()).Errorw("load organization failed", "orgId", p.OrgID, "error", err)
		return http.WithAuthErr(c, err)
	}

	return http.WithRepJSON(c, meResp{
		Principal:             p,
		Plan:                  org.PlanOrTrial(),
		TrialStartedAt:        org.TrialStartedAt,
		HasActiveSubscription: org.HasActiveSubscription,
		Trial:                 trial,
	})
}

func (rt *Router) trial(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return http.WithMissingAuthorization(c)
	}

	trial, _, err := rt.Services.Authorization.Trial(c.UserContext(), p)
	if err != nil {
		log.WithContext(c.UserContext()).Errorw("load organization failed", "orgId", p.OrgID, "error", err)
		return http.WithAuthErr(c, err)
	}
	return http.WithRepJSON(c, trial)
}

func (rt *Router) decide(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return http.WithMissingAuthorization(c)
	}

	var req decideReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErr(c, fiber.StatusBadRequest, http.RequestParameterParsingFailed)
	}
	if err := rt.validate.Struct(req); err != nil {
		return http.WithRepErrMsg(c, fiber.StatusBadRequest, http.BadRequest.Code, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), rt.Http.DecideTimeout)
	defer cancel()

	d, err := rt.Services.Authorization.Decide(ctx, p, req.toRequest())
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.WithRepErrMsg(c, fiber.StatusBadRequest, http.BadRequest.Code, err.Error())
	case err != nil:
		return http.WithUnavailable(c)
	}

	http.SetQuotaWarning(c, d)
	return http.WithRepJSON(c, d)
}
