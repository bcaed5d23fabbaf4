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
	"errors"

	"github.com/go-arcade/gatekeeper/internal/engine/service"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-arcade/gatekeeper/pkg/http/middleware"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/gofiber/fiber/v2"
)

/**
 * @file: router_org.go
 * @description: 组织用量, 超限记录与成员角色路由, 仅管理员可见
 */

const maxViolationPage = 200

func (rt *Router) orgRouter(r fiber.Router) {
	adminOnly := middleware.Authorize(rt.Services.Authorization, middleware.RouteRule{
		Resource:     authz.ResourceBilling,
		Action:       authz.ActionView,
		RequiredRole: authz.RoleAdmin,
	})

	orgGroup := r.Group("/orgs")
	{
		// 当前组织的用量与配额
		orgGroup.Get("/usage", adminOnly, rt.orgUsage)

		// 最近的超限记录
		orgGroup.Get("/violations", adminOnly, rt.orgViolations)

		// 修改成员角色, 立即生效
		orgGroup.Put("/members/:userId/role",
			middleware.Authorize(rt.Services.Authorization, middleware.RouteRule{
				Resource:     authz.ResourceTeamMembers,
				Action:       authz.ActionManage,
				RequiredRole: authz.RoleAdmin,
			}),
			rt.changeMemberRole)
	}
}

type changeRoleReq struct {
	Role string `json:"role" validate:"required,oneof=admin team_member client"`
}

func (rt *Router) changeMemberRole(c *fiber.Ctx) error {
	p, _ := middleware.GetPrincipal(c)
	userId := c.Params("userId")
	if userId == p.UserID {
		return http.WithRepErrMsg(c, fiber.StatusBadRequest, http.BadRequest.Code, "cannot change your own role")
	}

	var req changeRoleReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErr(c, fiber.StatusBadRequest, http.RequestParameterParsingFailed)
	}
	if err := rt.validate.Struct(req); err != nil {
		return http.WithRepErrMsg(c, fiber.StatusBadRequest, http.BadRequest.Code, err.Error())
	}

	err := rt.Services.Principal.ChangeRole(c.UserContext(), p.OrgID, userId, authz.OrgRole(req.Role))
	switch {
	case errors.Is(err, service.ErrMembershipNotFound):
		return http.WithRepErr(c, fiber.StatusNotFound, http.NotFound)
	case errors.Is(err, service.ErrInvalidRequest):
		return http.WithRepErrMsg(c, fiber.StatusBadRequest, http.BadRequest.Code, err.Error())
	case err != nil:
		log.WithContext(c.UserContext()).Errorw("change member role failed", "orgId", p.OrgID, "userId", userId, "error", err)
		return http.WithUnavailable(c)
	}
	return http.WithRepMsg(c, http.Success.Code, http.Success.Msg)
}

func (rt *Router) orgUsage(c *fiber.Ctx) error {
	p, _ := middleware.GetPrincipal(c)

	report, err := rt.Services.Entitlement.Usage(c.UserContext(), p.OrgID)
	if err != nil {
		log.WithContext(c.UserContext()).Errorw("load usage failed", "orgId", p.OrgID, "error", err)
		return http.WithAuthErr(c, err)
	}
	return http.WithRepJSON(c, report)
}

func (rt *Router) orgViolations(c *fiber.Ctx) error {
	p, _ := middleware.GetPrincipal(c)

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > maxViolationPage {
		limit = maxViolationPage
	}

	list, err := rt.Repos.Violation.ListByOrg(c.UserContext(), p.OrgID, limit)
	if err != nil {
		log.WithContext(c.UserContext()).Errorw("list violations failed", "orgId", p.OrgID, "error", err)
		return http.WithUnavailable(c)
	}
	return http.WithRepJSON(c, list)
}
