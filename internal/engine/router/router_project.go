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
 * @file: router_project.go
 * @description: 项目访问权限路由
 */

func (rt *Router) projectRouter(r fiber.Router) {
	projectGroup := r.Group("/projects")
	{
		// 当前用户在项目内的权限, 未分配时返回 403
		projectGroup.Get("/:projectId/access", rt.projectAccess)

		// 移除项目成员, 要求可邀请成员
		projectGroup.Delete("/:projectId/members/:memberId",
			middleware.Authorize(rt.Services.Authorization, middleware.RouteRule{
				Resource: authz.ResourceTeamMembers,
				Action:   authz.ActionInvite,
			}),
			rt.removeProjectMember)
	}
}

// projectAccess 先做试用期与角色校验, 通过后返回分配记录
func (rt *Router) projectAccess(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return http.WithMissingAuthorization(c)
	}

	req, err := middleware.BuildRequest(c, middleware.RouteRule{
		Resource: authz.ResourceProjects,
		Action:   authz.ActionView,
	})
	if err != nil {
		return http.WithRepErrMsg(c, fiber.StatusBadRequest, http.BadRequest.Code, err.Error())
	}

	d, access, err := rt.Services.Authorization.ProjectAccess(c.UserContext(), p, req)
	if err != nil {
		log.WithContext(c.UserContext()).Errorw("resolve project access failed", "projectId", req.ProjectID, "error", err)
		return http.WithUnavailable(c)
	}
	if !d.Allowed() {
		return http.WithDecision(c, d)
	}
	return http.WithRepJSON(c, access)
}

func (rt *Router) removeProjectMember(c *fiber.Ctx) error {
	projectId := c.Params(middleware.ProjectIdParam)
	memberId, err := c.ParamsInt("memberId")
	if err != nil || memberId <= 0 {
		return http.WithRepErrMsg(c, fiber.StatusBadRequest, http.BadRequest.Code, "invalid member id")
	}

	err = rt.Services.ProjectAccess.RemoveMember(c.UserContext(), projectId, uint64(memberId))
	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		return http.WithRepErr(c, fiber.StatusNotFound, http.NotFound)
	case err != nil:
		log.WithContext(c.UserContext()).Errorw("remove project member failed", "projectId", projectId, "memberId", memberId, "error", err)
		return http.WithUnavailable(c)
	}
	return http.WithRepMsg(c, http.Success.Code, http.Success.Msg)
}
