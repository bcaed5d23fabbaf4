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

package http

import (
	"errors"
	"fmt"

	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/gofiber/fiber/v2"
)

const QuotaWarningHeader = "X-Quota-Warning"

// AuthErr is the body written when a request cannot be attributed to a principal.
type AuthErr struct {
	Error      string `json:"error"`
	Onboarding bool   `json:"onboarding,omitempty"`
}

// DenyErr is the body of a DENY decision.
type DenyErr struct {
	Error    string       `json:"error"`
	Reason   authz.Reason `json:"reason,omitempty"`
	Required string       `json:"required,omitempty"`
	Current  string       `json:"current,omitempty"`
	Redirect string       `json:"redirect,omitempty"`
}

// UpgradeErr is the body of a REQUIRES_UPGRADE decision.
type UpgradeErr struct {
	Error           string              `json:"error"`
	Resource        authz.QuotaResource `json:"resource"`
	CurrentUsage    int64               `json:"currentUsage"`
	Limit           int64               `json:"limit"`
	Plan            authz.Plan          `json:"plan"`
	UpgradeRequired bool                `json:"upgradeRequired"`
}

func WithMissingAuthorization(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(AuthErr{Error: AuthorizationIncorrect.Msg})
}

// WithAuthErr maps a principal resolution error to its status and body.
// Anything that is neither unauthenticated nor missing membership is
// reported as an unavailable service.
func WithAuthErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(AuthErr{Error: InvalidToken.Msg})
	case errors.Is(err, authz.ErrNoMembership):
		return c.Status(fiber.StatusForbidden).JSON(AuthErr{Error: NoMembership.Msg, Onboarding: true})
	default:
		return WithUnavailable(c)
	}
}

func WithUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(AuthErr{Error: ServiceUnavailable.Msg})
}

// WithDecision writes the body of a non-allow decision. An allow decision
// only gets the quota warning header and nothing is written.
func WithDecision(c *fiber.Ctx, d authz.Decision) error {
	switch d.Outcome {
	case authz.OutcomeAllow:
		SetQuotaWarning(c, d)
		return nil
	case authz.OutcomeDeny:
		if d.Reason == authz.ReasonTrialExpired {
			return c.Status(fiber.StatusForbidden).JSON(DenyErr{
				Error:    d.Message(),
				Reason:   d.Reason,
				Redirect: d.RedirectTo,
			})
		}
		return c.Status(fiber.StatusForbidden).JSON(DenyErr{
			Error:    d.Message(),
			Reason:   d.Reason,
			Required: d.Required,
			Current:  d.Current,
		})
	case authz.OutcomeRequiresUpgrade:
		body := UpgradeErr{Error: d.Message(), UpgradeRequired: true}
		if d.Upgrade != nil {
			body.Resource = d.Upgrade.Resource
			body.CurrentUsage = d.Upgrade.CurrentUsage
			body.Limit = d.Upgrade.Limit
			body.Plan = d.Upgrade.Plan
		}
		return c.Status(fiber.StatusForbidden).JSON(body)
	}
	return WithRepErr(c, fiber.StatusInternalServerError, InternalError)
}

func SetQuotaWarning(c *fiber.Ctx, d authz.Decision) {
	if d.NearLimit {
		c.Set(QuotaWarningHeader, fmt.Sprintf("%.0f%% of plan limit used", d.PercentageUsed))
	}
}
