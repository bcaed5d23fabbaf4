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

// Package clientguard mirrors authorization decisions on the client side so
// that views can render before the server answers. Its decisions are hints:
// a decision reconciled from the server always wins.
package clientguard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/cache"
)

const (
	snapshotKey   = "clientguard:snapshot"
	defaultMaxAge = 5 * time.Minute
)

type RenderState int

const (
	RenderLoading RenderState = iota
	RenderDenied
	RenderChildren
)

func (s RenderState) String() string {
	switch s {
	case RenderLoading:
		return "loading"
	case RenderDenied:
		return "denied"
	case RenderChildren:
		return "children"
	}
	return "unknown"
}

// Render tells a view what to show.
type Render struct {
	State       RenderState
	Decision    authz.Decision
	RedirectTo  string
	Provisional bool
}

// Snapshot is the client's copy of the inputs to a decision. A project in
// neither Projects nor Unassigned has not been fetched yet.
type Snapshot struct {
	Principal             authz.Principal                `json:"principal"`
	Plan                  authz.Plan                     `json:"plan"`
	TrialStartedAt        time.Time                      `json:"trialStartedAt"`
	HasActiveSubscription bool                           `json:"hasActiveSubscription"`
	Projects              map[string]authz.ProjectAccess `json:"projects,omitempty"`
	Unassigned            []string                       `json:"unassigned,omitempty"`
	FetchedAt             time.Time                      `json:"fetchedAt"`
}

func (s Snapshot) trial(now time.Time) authz.TrialStatus {
	return authz.EvaluateTrial(s.Plan, s.TrialStartedAt, s.HasActiveSubscription, now)
}

// access returns the assignment of projectID and whether the snapshot knows
// it. A known project with nil access is not assigned.
func (s Snapshot) access(projectID string) (*authz.ProjectAccess, bool) {
	if projectID == "" {
		return nil, true
	}
	if s.Principal.Role == authz.RoleAdmin {
		return authz.FullAccess(projectID), true
	}
	if a, ok := s.Projects[projectID]; ok {
		a = authz.NormalizeAccess(a)
		return &a, true
	}
	for _, id := range s.Unassigned {
		if id == projectID {
			return nil, true
		}
	}
	return nil, false
}

type Option func(*Guard)

func WithMaxAge(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.maxAge = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

func WithIndex(ix *authz.PermissionIndex) Option {
	return func(g *Guard) {
		g.index = ix
	}
}

// Guard evaluates requests against the cached snapshot.
type Guard struct {
	cache  *cache.FastCache
	index  *authz.PermissionIndex
	maxAge time.Duration
	now    func() time.Time

	mu         sync.RWMutex
	reconciled map[string]authz.Decision
}

func New(c *cache.FastCache, opts ...Option) *Guard {
	g := &Guard{
		cache:      c,
		index:      authz.DefaultIndex(),
		maxAge:     defaultMaxAge,
		now:        time.Now,
		reconciled: make(map[string]authz.Decision),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store replaces the snapshot and forgets every reconciled decision.
func (g *Guard) Store(s Snapshot) error {
	if s.FetchedAt.IsZero() {
		s.FetchedAt = g.now()
	}
	data, err := sonic.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache.SetBytes(snapshotKey, data, 0)
	g.reconciled = make(map[string]authz.Decision)
	return nil
}

// Invalidate drops the snapshot, e.g. on sign out.
func (g *Guard) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache.Del(context.Background(), snapshotKey)
	g.reconciled = make(map[string]authz.Decision)
}

// Snapshot returns the cached snapshot when present and fresh.
func (g *Guard) Snapshot() (Snapshot, bool) {
	data, ok := g.cache.GetBytes(snapshotKey)
	if !ok {
		return Snapshot{}, false
	}
	var s Snapshot
	if err := sonic.Unmarshal(data, &s); err != nil {
		return Snapshot{}, false
	}
	if g.now().Sub(s.FetchedAt) > g.maxAge {
		return Snapshot{}, false
	}
	return s, true
}

// Evaluate renders req from the snapshot. Without a fresh snapshot, or for a
// project the snapshot has not fetched, the view stays loading. The trial
// status is recomputed on every call.
func (g *Guard) Evaluate(req authz.Request) Render {
	s, ok := g.Snapshot()
	if !ok {
		return Render{State: RenderLoading}
	}

	g.mu.RLock()
	d, reconciled := g.reconciled[req.Key()]
	g.mu.RUnlock()
	if reconciled {
		return render(d, s.Principal.Role, false)
	}

	if d, stop := authz.Precheck(g.index, s.Principal, s.trial(g.now()), req); stop {
		return render(d, s.Principal.Role, true)
	}
	access, known := s.access(req.ProjectID)
	if !known {
		return Render{State: RenderLoading, Provisional: true}
	}
	d, _ = authz.CheckProjectScope(s.Principal, req, access)
	return render(d, s.Principal.Role, true)
}

// Reconcile records the server's decision for req. It overrides whatever
// the snapshot says until the next Store.
func (g *Guard) Reconcile(req authz.Request, serverDecision authz.Decision) Render {
	g.mu.Lock()
	g.reconciled[req.Key()] = serverDecision
	g.mu.Unlock()

	var role authz.OrgRole
	if s, ok := g.Snapshot(); ok {
		role = s.Principal.Role
	}
	return render(serverDecision, role, false)
}

func render(d authz.Decision, role authz.OrgRole, provisional bool) Render {
	if d.Allowed() {
		return Render{State: RenderChildren, Decision: d, Provisional: provisional}
	}
	return Render{State: RenderDenied, Decision: d, RedirectTo: redirectFor(d, role), Provisional: provisional}
}

func redirectFor(d authz.Decision, role authz.OrgRole) string {
	switch {
	case d.RedirectTo != "":
		return d.RedirectTo
	case d.Outcome == authz.OutcomeRequiresUpgrade:
		return authz.BillingRoute
	default:
		return RedirectFor(role)
	}
}

// RedirectFor is the landing route of a role after a denial.
func RedirectFor(role authz.OrgRole) string {
	switch role {
	case authz.RoleClient:
		return "/client-dashboard"
	case authz.RoleTeamMember:
		return "/projects"
	case authz.RoleAdmin:
		return "/"
	}
	return "/"
}
