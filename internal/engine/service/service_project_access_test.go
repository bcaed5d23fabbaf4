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
	"testing"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func assignment(id uint64, level string, tasks string) *model.ProjectTeamMember {
	m := &model.ProjectTeamMember{
		ProjectId:      "p-1",
		OrgId:          "org-1",
		UserId:         "u-1",
		Role:           "team_member",
		AccessLevel:    level,
		AllowedTaskIds: datatypes.JSON(tasks),
		IsActive:       true,
	}
	m.ID = id
	return m
}

func TestProjectAccessResolver_AdminBypass(t *testing.T) {
	members := &fakeProjectMembers{err: errDB}
	stamper := &syncStamper{}
	r := NewProjectAccessResolver(members, stamper)

	admin := authz.NewPrincipal("u-9", "org-1", authz.RoleAdmin, nil)
	access, err := r.Resolve(context.Background(), admin, "p-1")
	require.NoError(t, err)
	assert.True(t, access.Synthetic)
	assert.Equal(t, authz.AccessFull, access.AccessLevel)
	assert.True(t, access.CanViewAllTasks)
	assert.Empty(t, stamper.ids, "synthetic access is not stamped")
}

func TestProjectAccessResolver_Assigned(t *testing.T) {
	members := &fakeProjectMembers{members: map[string]*model.ProjectTeamMember{
		"p-1|u-1": assignment(42, "restricted", `[9,3]`),
	}}
	stamper := &syncStamper{}
	r := NewProjectAccessResolver(members, stamper)

	p := authz.NewPrincipal("u-1", "org-1", authz.RoleTeamMember, nil)
	access, err := r.Resolve(context.Background(), p, "p-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), access.MemberID)
	assert.Equal(t, authz.AccessRestricted, access.AccessLevel)
	assert.Equal(t, []int64{3, 9}, access.AllowedTaskIDs)
	assert.Equal(t, []uint64{42}, stamper.ids)

	assert.True(t, r.CheckTaskAccess(*access, 3, false))
	assert.False(t, r.CheckTaskAccess(*access, 4, false))
	assert.True(t, r.CheckTaskAccess(*access, 4, true))
}

func TestProjectAccessResolver_NotAssigned(t *testing.T) {
	r := NewProjectAccessResolver(&fakeProjectMembers{}, &syncStamper{})

	p := authz.NewPrincipal("u-1", "org-1", authz.RoleClient, nil)
	access, err := r.Resolve(context.Background(), p, "p-1")
	assert.Nil(t, access)
	assert.ErrorIs(t, err, authz.ErrNotAssigned)
}

func TestProjectAccessResolver_StoreDown(t *testing.T) {
	r := NewProjectAccessResolver(&fakeProjectMembers{err: errDB}, &syncStamper{})

	p := authz.NewPrincipal("u-1", "org-1", authz.RoleTeamMember, nil)
	_, err := r.Resolve(context.Background(), p, "p-1")
	assert.ErrorIs(t, err, authz.ErrInfraFailure)
}

func TestGoroutineStamper(t *testing.T) {
	members := &fakeProjectMembers{}
	NewGoroutineStamper(members, time.Second).Stamp(context.Background(), 7, time.Now())

	assert.Eventually(t, func() bool {
		members.mu.Lock()
		defer members.mu.Unlock()
		return len(members.touched) == 1 && members.touched[0] == 7
	}, time.Second, 5*time.Millisecond)
}

func TestProjectAccessResolver_RemoveMember(t *testing.T) {
	t.Run("removed", func(t *testing.T) {
		r := NewProjectAccessResolver(&fakeProjectMembers{deactivated: 1}, nil)
		assert.NoError(t, r.RemoveMember(context.Background(), "p-1", 42))
	})

	t.Run("already removed", func(t *testing.T) {
		r := NewProjectAccessResolver(&fakeProjectMembers{byId: assignment(42, "standard", "")}, nil)
		assert.NoError(t, r.RemoveMember(context.Background(), "p-1", 42))
	})

	t.Run("unknown member", func(t *testing.T) {
		r := NewProjectAccessResolver(&fakeProjectMembers{}, nil)
		assert.ErrorIs(t, r.RemoveMember(context.Background(), "p-1", 42), ErrMemberNotFound)
	})

	t.Run("store down", func(t *testing.T) {
		r := NewProjectAccessResolver(&fakeProjectMembers{err: errDB}, nil)
		assert.ErrorIs(t, r.RemoveMember(context.Background(), "p-1", 42), authz.ErrInfraFailure)
	})
}
