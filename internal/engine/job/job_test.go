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

package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/config"
	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/internal/engine/repo"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type usageStore struct {
	mu      sync.Mutex
	ids     []string
	updated map[string]map[authz.QuotaResource]int64
}

func (s *usageStore) GetOrganization(context.Context, string) (*model.Organization, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *usageStore) LoadOrganization(context.Context, string) (*model.Organization, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *usageStore) LockForUsage(context.Context, string, func(*gorm.DB, *model.Organization) error) error {
	return nil
}

func (s *usageStore) IncrementUsage(*gorm.DB, string, authz.QuotaResource, int64) error { return nil }

func (s *usageStore) UpdateUsage(_ context.Context, orgId string, usage map[authz.QuotaResource]int64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updated == nil {
		s.updated = map[string]map[authz.QuotaResource]int64{}
	}
	s.updated[orgId] = usage
	return nil
}

func (s *usageStore) ListOrgIds(context.Context) ([]string, error) { return s.ids, nil }

func (s *usageStore) InvalidateOrganization(context.Context, string) error { return nil }

type projectCounts map[string]int64

func (p projectCounts) CountProjects(_ context.Context, orgId string) (int64, error) {
	if orgId == "org-broken" {
		return 0, errors.New("table locked")
	}
	return p[orgId], nil
}

type memberCounts map[string]int64

func (m memberCounts) FindActiveMembership(context.Context, string, string) (*model.OrganizationMember, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m memberCounts) InvalidateMembership(context.Context, string, string) error { return nil }

func (m memberCounts) UpdateRole(context.Context, string, string, authz.OrgRole) (int64, error) {
	return 0, nil
}

func (m memberCounts) CountActiveCollaborators(_ context.Context, orgId string) (int64, error) {
	return m[orgId], nil
}

type bucketLister map[string][]int64

func (b bucketLister) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(b[opts.Prefix]))
	for _, size := range b[opts.Prefix] {
		ch <- minio.ObjectInfo{Size: size}
	}
	close(ch)
	return ch
}

func newFixture(lister bucketLister) (*usageStore, *UsageReconciler) {
	store := &usageStore{ids: []string{"org-1", "org-2", "org-broken"}}
	repos := &repo.Repositories{
		Organization: store,
		Project:      projectCounts{"org-1": 4, "org-2": 1},
		Membership:   memberCounts{"org-1": 2},
	}
	var r *UsageReconciler
	if lister != nil {
		r = NewUsageReconciler(repos, lister, "gatekeeper", 2)
	} else {
		r = NewUsageReconciler(repos, nil, "", 2)
	}
	return store, r
}

func TestUsageReconciler_Run(t *testing.T) {
	store, r := newFixture(bucketLister{"org-1/": {100, 24}})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "org-broken")

	assert.Equal(t, map[authz.QuotaResource]int64{
		authz.QuotaProjects:    4,
		authz.QuotaTeamMembers: 2,
		authz.QuotaStorage:     124,
	}, store.updated["org-1"])
	assert.Equal(t, int64(0), store.updated["org-2"][authz.QuotaStorage])
	assert.NotContains(t, store.updated, "org-broken")
}

func TestUsageReconciler_WithoutStorage(t *testing.T) {
	store, r := newFixture(nil)

	require.NoError(t, r.Reconcile(context.Background(), "org-1"))
	_, measured := store.updated["org-1"][authz.QuotaStorage]
	assert.False(t, measured)
}

func TestScheduler(t *testing.T) {
	_, r := newFixture(nil)

	_, err := NewScheduler(config.JobConfig{UsageReconcileSpec: "not a spec", Timeout: time.Second}, r)
	assert.Error(t, err)

	s, err := NewScheduler(config.JobConfig{Enable: true, UsageReconcileSpec: "@every 1h", Timeout: time.Second}, r)
	require.NoError(t, err)
	s.Start()
	assert.Len(t, s.cron.Entries(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
