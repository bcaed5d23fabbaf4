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
	"fmt"
	"sync"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/repo"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/log"
	objstore "github.com/go-arcade/gatekeeper/pkg/minio"
	"golang.org/x/sync/errgroup"
)

// UsageReconciler recounts the usage counters of every organization from
// the source tables. Storage is measured from the object store when one is
// configured and left untouched otherwise.
type UsageReconciler struct {
	orgs        repo.IOrganizationRepository
	projects    repo.IProjectRepository
	memberships repo.IMembershipRepository
	lister      objstore.ObjectLister
	bucket      string
	concurrency int
	now         func() time.Time
}

func NewUsageReconciler(repos *repo.Repositories, lister objstore.ObjectLister, bucket string, concurrency int) *UsageReconciler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &UsageReconciler{
		orgs:        repos.Organization,
		projects:    repos.Project,
		memberships: repos.Membership,
		lister:      lister,
		bucket:      bucket,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Run reconciles all organizations. A failing organization does not stop
// the others; all failures are joined into the returned error.
func (r *UsageReconciler) Run(ctx context.Context) error {
	orgIds, err := r.orgs.ListOrgIds(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, orgId := range orgIds {
		g.Go(func() error {
			if err := r.Reconcile(gctx, orgId); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Infow("usage reconciled", "organizations", len(orgIds), "failed", len(errs))
	return errors.Join(errs...)
}

// Reconcile recounts one organization.
func (r *UsageReconciler) Reconcile(ctx context.Context, orgId string) error {
	projects, err := r.projects.CountProjects(ctx, orgId)
	if err != nil {
		return fmt.Errorf("count projects of %s: %w", orgId, err)
	}
	members, err := r.memberships.CountActiveCollaborators(ctx, orgId)
	if err != nil {
		return fmt.Errorf("count members of %s: %w", orgId, err)
	}

	usage := map[authz.QuotaResource]int64{
		authz.QuotaProjects:    projects,
		authz.QuotaTeamMembers: members,
	}
	if r.lister != nil {
		// 对象按 "<orgId>/" 前缀存放
		bytes, err := objstore.PrefixUsage(ctx, r.lister, r.bucket, orgId+"/")
		if err != nil {
			return fmt.Errorf("measure storage of %s: %w", orgId, err)
		}
		usage[authz.QuotaStorage] = bytes
	}

	if err := r.orgs.UpdateUsage(ctx, orgId, usage, r.now()); err != nil {
		return fmt.Errorf("update usage of %s: %w", orgId, err)
	}
	log.Debugw("organization usage reconciled", "orgId", orgId, "usage", usage)
	return nil
}
