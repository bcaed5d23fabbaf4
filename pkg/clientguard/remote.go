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

package clientguard

import (
	"context"
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-resty/resty/v2"
)

const (
	decidePath        = "/api/v1/authz/decide"
	mePath            = "/api/v1/me"
	projectAccessPath = "/api/v1/projects/{projectId}/access"
)

type envelope[T any] struct {
	Code   int    `json:"code"`
	Detail T      `json:"detail"`
	Msg    string `json:"msg"`
}

type meView struct {
	Principal             authz.Principal `json:"principal"`
	Plan                  authz.Plan      `json:"plan"`
	TrialStartedAt        *time.Time      `json:"trialStartedAt"`
	HasActiveSubscription bool            `json:"hasActiveSubscription"`
}

// RemoteDecider asks the server for authoritative decisions.
type RemoteDecider struct {
	client *resty.Client
}

func NewRemoteDecider(baseURL, token string, timeout time.Duration) *RemoteDecider {
	client := http.NewClient(http.ClientConfig{BaseURL: baseURL, Timeout: timeout}).SetAuthToken(token)
	return &RemoteDecider{client: client}
}

func (r *RemoteDecider) Decide(ctx context.Context, req authz.Request) (authz.Decision, error) {
	var out envelope[authz.Decision]
	resp, err := r.client.R().SetContext(ctx).SetBody(req).SetResult(&out).Post(decidePath)
	if err := classify(resp, err); err != nil {
		return authz.Decision{}, err
	}
	return out.Detail, nil
}

// FetchSnapshot builds a snapshot from the caller's profile. Project
// assignments are added with FetchProjectAccess.
func (r *RemoteDecider) FetchSnapshot(ctx context.Context) (Snapshot, error) {
	var out envelope[meView]
	resp, err := r.client.R().SetContext(ctx).SetResult(&out).Get(mePath)
	if err := classify(resp, err); err != nil {
		return Snapshot{}, err
	}
	s := Snapshot{
		Principal:             out.Detail.Principal,
		Plan:                  out.Detail.Plan,
		HasActiveSubscription: out.Detail.HasActiveSubscription,
		Projects:              map[string]authz.ProjectAccess{},
	}
	if out.Detail.TrialStartedAt != nil {
		s.TrialStartedAt = *out.Detail.TrialStartedAt
	}
	return s, nil
}

// FetchProjectAccess returns nil without error when the caller is not assigned.
func (r *RemoteDecider) FetchProjectAccess(ctx context.Context, projectID string) (*authz.ProjectAccess, error) {
	var out envelope[authz.ProjectAccess]
	resp, err := r.client.R().SetContext(ctx).
		SetPathParam("projectId", projectID).
		SetResult(&out).
		Get(projectAccessPath)
	if err == nil && resp.StatusCode() == 403 {
		return nil, nil
	}
	if err := classify(resp, err); err != nil {
		return nil, err
	}
	return &out.Detail, nil
}

func classify(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", authz.ErrInfraFailure, err)
	}
	switch code := resp.StatusCode(); {
	case code == 401:
		return authz.ErrUnauthenticated
	case code == 403:
		return authz.ErrNoMembership
	case code >= 300:
		return fmt.Errorf("%w: server answered %d", authz.ErrInfraFailure, code)
	}
	return nil
}

// Authority is anything that can answer a request authoritatively.
type Authority interface {
	Decide(ctx context.Context, req authz.Request) (authz.Decision, error)
}

// Confirm fetches the authoritative decision for req and reconciles it.
// On error the provisional render is returned unchanged.
func (g *Guard) Confirm(ctx context.Context, authority Authority, req authz.Request) (Render, error) {
	d, err := authority.Decide(ctx, req)
	if err != nil {
		return g.Evaluate(req), err
	}
	return g.Reconcile(req, d), nil
}

// Sync stores a fresh snapshot from the server including the given projects.
func (g *Guard) Sync(ctx context.Context, r *RemoteDecider, projectIDs ...string) error {
	s, err := r.FetchSnapshot(ctx)
	if err != nil {
		return err
	}
	for _, id := range projectIDs {
		access, err := r.FetchProjectAccess(ctx, id)
		if err != nil {
			return err
		}
		if access == nil {
			s.Unassigned = append(s.Unassigned, id)
			continue
		}
		s.Projects[id] = *access
	}
	return g.Store(s)
}
