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
	"sync"
	"testing"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestResolver(v IdentityVerifier, m *fakeMemberships) *PrincipalResolver {
	r := NewPrincipalResolver(v, m, 0)
	r.retryWait = time.Millisecond
	return r
}

func activeMember(role string, perms string) *model.OrganizationMember {
	m := &model.OrganizationMember{
		OrgId:  "org-1",
		UserId: "u-1",
		Role:   role,
		Status: model.OrgMemberStatusActive,
	}
	m.ID = 11
	if perms != "" {
		m.Permissions = datatypes.JSON(perms)
	}
	return m
}

func TestClampTimeout(t *testing.T) {
	assert.Equal(t, 2*time.Second, clampTimeout(0))
	assert.Equal(t, 2*time.Second, clampTimeout(500*time.Millisecond))
	assert.Equal(t, 3*time.Second, clampTimeout(3*time.Second))
	assert.Equal(t, 5*time.Second, clampTimeout(time.Minute))
}

func TestPrincipalResolver_Resolve(t *testing.T) {
	members := &fakeMemberships{member: activeMember("team_member", `["billing:view","nope:view"]`)}
	r := newTestResolver(&fakeVerifier{identity: Identity{UserId: "u-1", OrgId: "org-1"}}, members)

	p, err := r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, "org-1", p.OrgID)
	assert.Equal(t, authz.RoleTeamMember, p.Role)
	assert.True(t, p.HasRawPermission(authz.Permission{Resource: authz.ResourceBilling, Action: authz.ActionView}))
	assert.Len(t, p.RawPermissions(), 1)
}

func TestPrincipalResolver_EmptyToken(t *testing.T) {
	members := &fakeMemberships{}
	r := newTestResolver(&fakeVerifier{}, members)

	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
	assert.Zero(t, members.calls)
}

func TestPrincipalResolver_VerifierErrorsPassThrough(t *testing.T) {
	members := &fakeMemberships{}
	r := newTestResolver(&fakeVerifier{err: unauthenticated(assert.AnError)}, members)

	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
	assert.Equal(t, "unauthenticated", authz.Kind(err))
	assert.Zero(t, members.calls)
}

func TestPrincipalResolver_IdentityTimeout(t *testing.T) {
	r := newTestResolver(&fakeVerifier{delay: time.Second}, &fakeMemberships{})
	r.timeout = 20 * time.Millisecond

	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, authz.ErrInfraFailure)
}

func TestPrincipalResolver_NoMembership(t *testing.T) {
	members := &fakeMemberships{}
	r := newTestResolver(&fakeVerifier{identity: Identity{UserId: "u-1"}}, members)

	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, authz.ErrNoMembership)
	assert.Equal(t, 1, members.calls, "not found is not retried")
}

func TestPrincipalResolver_RetriesOnce(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		members := &fakeMemberships{member: activeMember("client", ""), errs: []error{errDB}}
		r := newTestResolver(&fakeVerifier{identity: Identity{UserId: "u-1"}}, members)

		p, err := r.Resolve(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, authz.RoleClient, p.Role)
		assert.Equal(t, 2, members.calls)
	})

	t.Run("gives up", func(t *testing.T) {
		members := &fakeMemberships{member: activeMember("client", ""), errs: []error{errDB, errDB}}
		r := newTestResolver(&fakeVerifier{identity: Identity{UserId: "u-1"}}, members)

		_, err := r.Resolve(context.Background(), "tok")
		assert.ErrorIs(t, err, authz.ErrInfraFailure)
		assert.Equal(t, 2, members.calls)
	})
}

func TestPrincipalResolver_CorruptRole(t *testing.T) {
	members := &fakeMemberships{member: activeMember("owner", "")}
	r := newTestResolver(&fakeVerifier{identity: Identity{UserId: "u-1"}}, members)

	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, authz.ErrInfraFailure)
}

func TestPrincipalResolver_UnreadablePermissions(t *testing.T) {
	members := &fakeMemberships{member: activeMember("admin", `{"not":"a list"}`)}
	r := newTestResolver(&fakeVerifier{identity: Identity{UserId: "u-1"}}, members)

	p, err := r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleAdmin, p.Role)
	assert.Empty(t, p.RawPermissions())
}

// slowMemberships blocks lookups until release is closed.
type slowMemberships struct {
	*fakeMemberships
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowMemberships) FindActiveMembership(ctx context.Context, userId, orgId string) (*model.OrganizationMember, error) {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.fakeMemberships.FindActiveMembership(ctx, userId, orgId)
}

func TestPrincipalResolver_SharedLookupSurvivesCallerCancel(t *testing.T) {
	members := &slowMemberships{
		fakeMemberships: &fakeMemberships{member: activeMember("team_member", "")},
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	r := NewPrincipalResolver(&fakeVerifier{identity: Identity{UserId: "u-1", OrgId: "org-1"}}, members, 0)
	r.retryWait = time.Millisecond

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(first, "tok")
		firstErr <- err
	}()
	<-members.entered

	type result struct {
		p   authz.Principal
		err error
	}
	second := make(chan result, 1)
	go func() {
		p, err := r.Resolve(context.Background(), "tok")
		second <- result{p, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, authz.ErrInfraFailure)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(members.release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, authz.RoleTeamMember, res.p.Role)
	case <-time.After(time.Second):
		t.Fatal("waiting caller did not return")
	}
}

func TestPrincipalResolver_ChangeRoleTakesEffect(t *testing.T) {
	members := &fakeMemberships{member: activeMember("admin", "")}
	r := newTestResolver(&fakeVerifier{identity: Identity{UserId: "u-1", OrgId: "org-1"}}, members)

	p, err := r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, authz.RoleAdmin, p.Role)

	require.NoError(t, r.ChangeRole(context.Background(), "org-1", "u-1", authz.RoleClient))
	assert.Equal(t, 1, members.invalidated)

	p, err = r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleClient, p.Role)
}

func TestPrincipalResolver_ChangeRoleErrors(t *testing.T) {
	t.Run("unknown role", func(t *testing.T) {
		r := newTestResolver(&fakeVerifier{}, &fakeMemberships{member: activeMember("admin", "")})
		err := r.ChangeRole(context.Background(), "org-1", "u-1", authz.OrgRole("owner"))
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unchanged role", func(t *testing.T) {
		r := newTestResolver(&fakeVerifier{}, &fakeMemberships{member: activeMember("client", "")})
		assert.NoError(t, r.ChangeRole(context.Background(), "org-1", "u-1", authz.RoleClient))
	})

	t.Run("not a member", func(t *testing.T) {
		r := newTestResolver(&fakeVerifier{}, &fakeMemberships{})
		err := r.ChangeRole(context.Background(), "org-1", "u-9", authz.RoleClient)
		assert.ErrorIs(t, err, ErrMembershipNotFound)
	})

	t.Run("store down", func(t *testing.T) {
		r := newTestResolver(&fakeVerifier{}, &fakeMemberships{member: activeMember("admin", ""), updateErr: errDB})
		err := r.ChangeRole(context.Background(), "org-1", "u-1", authz.RoleClient)
		assert.ErrorIs(t, err, authz.ErrInfraFailure)
	})
}
