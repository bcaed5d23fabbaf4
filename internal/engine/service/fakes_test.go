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

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"gorm.io/gorm"
)

var errDB = errors.New("connection refused")

type fakeVerifier struct {
	identity Identity
	err      error
	delay    time.Duration
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Identity{}, ctx.Err()
		}
	}
	return f.identity, f.err
}

type fakeMemberships struct {
	mu          sync.Mutex
	member      *model.OrganizationMember
	errs        []error
	calls       int
	updateErr   error
	invalidated int
}

func (f *fakeMemberships) FindActiveMembership(_ context.Context, userId, orgId string) (*model.OrganizationMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.member == nil {
		return nil, gorm.ErrRecordNotFound
	}
	m := *f.member
	return &m, nil
}

func (f *fakeMemberships) InvalidateMembership(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	return nil
}

// UpdateRole reports zero rows when the role is unchanged, as MySQL does.
func (f *fakeMemberships) UpdateRole(_ context.Context, orgId, userId string, role authz.OrgRole) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	if f.member == nil || f.member.OrgId != orgId || f.member.UserId != userId || f.member.Role == string(role) {
		return 0, nil
	}
	f.member.Role = string(role)
	f.invalidated++
	return 1, nil
}

func (f *fakeMemberships) CountActiveCollaborators(context.Context, string) (int64, error) {
	return 0, nil
}

type fakeOrgs struct {
	mu          sync.Mutex
	org         *model.Organization
	err         error
	lockErr     error
	invalidated int
	increments  map[authz.QuotaResource]int64
}

func (f *fakeOrgs) GetOrganization(_ context.Context, _ string) (*model.Organization, error) {
	return f.load()
}

func (f *fakeOrgs) LoadOrganization(_ context.Context, _ string) (*model.Organization, error) {
	return f.load()
}

func (f *fakeOrgs) load() (*model.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.org == nil {
		return nil, gorm.ErrRecordNotFound
	}
	o := *f.org
	return &o, nil
}

func (f *fakeOrgs) LockForUsage(_ context.Context, _ string, fn func(tx *gorm.DB, org *model.Organization) error) error {
	if f.lockErr != nil {
		return f.lockErr
	}
	org, err := f.load()
	if err != nil {
		return err
	}
	return fn(nil, org)
}

func (f *fakeOrgs) IncrementUsage(_ *gorm.DB, _ string, r authz.QuotaResource, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.increments == nil {
		f.increments = map[authz.QuotaResource]int64{}
	}
	f.increments[r] += delta
	switch r {
	case authz.QuotaProjects:
		f.org.UsageProjects += delta
	case authz.QuotaTeamMembers:
		f.org.UsageTeamMembers += delta
	case authz.QuotaStorage:
		f.org.UsageStorageBytes += delta
	}
	return nil
}

func (f *fakeOrgs) UpdateUsage(context.Context, string, map[authz.QuotaResource]int64, time.Time) error {
	return nil
}

func (f *fakeOrgs) ListOrgIds(context.Context) ([]string, error) { return nil, nil }

func (f *fakeOrgs) InvalidateOrganization(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	return nil
}

type fakeProjectMembers struct {
	mu          sync.Mutex
	members     map[string]*model.ProjectTeamMember // key: projectId|userId
	err         error
	deactivated int64
	byId        *model.ProjectTeamMember
	touched     []uint64
}

func (f *fakeProjectMembers) GetActiveMember(_ context.Context, projectId, userId string) (*model.ProjectTeamMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.members[projectId+"|"+userId]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *m
	return &c, nil
}

func (f *fakeProjectMembers) GetMember(_ context.Context, _ string, _ uint64) (*model.ProjectTeamMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.byId == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.byId, nil
}

func (f *fakeProjectMembers) TouchLastAccess(_ context.Context, memberId uint64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, memberId)
	return nil
}

func (f *fakeProjectMembers) Deactivate(context.Context, string, uint64, time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.deactivated, nil
}

type fakeViolations struct {
	mu      sync.Mutex
	created []model.PlanViolation
}

func (f *fakeViolations) Create(_ context.Context, v *model.PlanViolation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *v)
	return nil
}

func (f *fakeViolations) ListByOrg(context.Context, string, int) ([]model.PlanViolation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PlanViolation(nil), f.created...), nil
}

// syncStamper records stamps inline.
type syncStamper struct {
	mu  sync.Mutex
	ids []uint64
}

func (s *syncStamper) Stamp(_ context.Context, memberId uint64, _ time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, memberId)
}

// syncRecorder records violations inline.
type syncRecorder struct {
	mu         sync.Mutex
	violations []model.PlanViolation
}

func (r *syncRecorder) Record(_ context.Context, v *model.PlanViolation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations = append(r.violations, *v)
}

func (r *syncRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.violations)
}
