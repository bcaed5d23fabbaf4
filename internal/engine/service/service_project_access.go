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
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/internal/engine/model"
	"github.com/go-arcade/gatekeeper/internal/engine/repo"
	"github.com/go-arcade/gatekeeper/internal/pkg/queue"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/metrics"
	"github.com/go-arcade/gatekeeper/pkg/safe"
	"gorm.io/gorm"
)

const TaskTypeStampAccess = "project:stamp_access"

var ErrMemberNotFound = errors.New("project member not found")

// AccessStamper records the last time a member reached a project. Stamp
// must return immediately; failures are never reported to the caller.
type AccessStamper interface {
	Stamp(ctx context.Context, memberId uint64, at time.Time)
}

type stampTask struct {
	MemberId uint64    `json:"memberId"`
	At       time.Time `json:"at"`
}

// GoroutineStamper writes the stamp on a detached goroutine.
type GoroutineStamper struct {
	members repo.IProjectMemberRepository
	timeout time.Duration
}

func NewGoroutineStamper(members repo.IProjectMemberRepository, timeout time.Duration) *GoroutineStamper {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &GoroutineStamper{members: members, timeout: timeout}
}

func (s *GoroutineStamper) Stamp(ctx context.Context, memberId uint64, at time.Time) {
	safe.GoWith(ctx, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		writeStamp(ctx, s.members, memberId, at)
	})
}

func writeStamp(ctx context.Context, members repo.IProjectMemberRepository, memberId uint64, at time.Time) {
	if err := members.TouchLastAccess(ctx, memberId, at); err != nil {
		metrics.RecordStampFailure()
		log.WithContext(ctx).Debugw("failed to stamp project access", "memberId", memberId, "error", err)
	}
}

// QueueStamper hands stamps to the task queue so that bursts do not hold
// database connections on the request path.
type QueueStamper struct {
	queue *queue.TaskQueue
}

func NewQueueStamper(q *queue.TaskQueue) *QueueStamper {
	return &QueueStamper{queue: q}
}

func (s *QueueStamper) Stamp(ctx context.Context, memberId uint64, at time.Time) {
	safe.GoWith(ctx, func(ctx context.Context) {
		payload, err := queue.NewPayload(TaskTypeStampAccess, stampTask{MemberId: memberId, At: at})
		if err == nil {
			err = s.queue.Enqueue(ctx, payload, queue.Low)
		}
		if err != nil {
			metrics.RecordStampFailure()
			log.WithContext(ctx).Debugw("failed to enqueue project access stamp", "memberId", memberId, "error", err)
		}
	})
}

// StampTaskHandler applies queued stamps.
func StampTaskHandler(members repo.IProjectMemberRepository) queue.TaskHandlerFunc {
	return func(ctx context.Context, payload *queue.TaskPayload) error {
		var t stampTask
		if err := payload.Decode(&t); err != nil {
			return fmt.Errorf("decode stamp task: %w", err)
		}
		writeStamp(ctx, members, t.MemberId, t.At)
		return nil
	}
}

// ProjectAccessResolver loads the capabilities of a principal on one project.
type ProjectAccessResolver struct {
	members repo.IProjectMemberRepository
	stamper AccessStamper
	now     func() time.Time
}

func NewProjectAccessResolver(members repo.IProjectMemberRepository, stamper AccessStamper) *ProjectAccessResolver {
	return &ProjectAccessResolver{members: members, stamper: stamper, now: time.Now}
}

// Resolve returns a synthetic full access record for admins without a
// lookup. Anyone else needs an active assignment.
func (r *ProjectAccessResolver) Resolve(ctx context.Context, p authz.Principal, projectId string) (*authz.ProjectAccess, error) {
	if p.Role == authz.RoleAdmin {
		return authz.FullAccess(projectId), nil
	}

	member, err := r.members.GetActiveMember(ctx, projectId, p.UserID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("%w: project %s", authz.ErrNotAssigned, projectId)
	case err != nil:
		return nil, infraFailure(fmt.Errorf("project member lookup: %w", err))
	}

	if r.stamper != nil {
		r.stamper.Stamp(ctx, member.ID, r.now())
	}
	access := member.ToAccess()
	return &access, nil
}

func (r *ProjectAccessResolver) CheckTaskAccess(access authz.ProjectAccess, taskId int64, requesterIsAssignee bool) bool {
	return authz.CheckTaskAccess(access, taskId, requesterIsAssignee)
}

// RemoveMember soft deletes an assignment. Removing an already removed
// member is a no-op.
func (r *ProjectAccessResolver) RemoveMember(ctx context.Context, projectId string, memberId uint64) error {
	n, err := r.members.Deactivate(ctx, projectId, memberId, r.now())
	if err != nil {
		return infraFailure(fmt.Errorf("deactivate member: %w", err))
	}
	if n > 0 {
		log.WithContext(ctx).Infow("project member removed", "projectId", projectId, "memberId", memberId)
		return nil
	}
	_, err = r.GetMember(ctx, projectId, memberId)
	return err
}

// GetMember returns the assignment row, removed or not.
func (r *ProjectAccessResolver) GetMember(ctx context.Context, projectId string, memberId uint64) (*model.ProjectTeamMember, error) {
	member, err := r.members.GetMember(ctx, projectId, memberId)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrMemberNotFound
	case err != nil:
		return nil, infraFailure(fmt.Errorf("project member lookup: %w", err))
	}
	return member, nil
}
