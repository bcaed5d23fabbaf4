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

package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type membership struct {
	OrgID string `json:"orgId"`
	Role  string `json:"role"`
}

func membershipKey(params ...any) string {
	return fmt.Sprintf("membership:%v:%v", params[0], params[1])
}

func TestCachedQuery_ReadThrough(t *testing.T) {
	calls := 0
	cq := NewCachedQuery(NewFastCache(FastCacheConfig{}), membershipKey,
		func(_ context.Context, params ...any) (membership, error) {
			calls++
			return membership{OrgID: params[1].(string), Role: "admin"}, nil
		}, WithTTL[membership](time.Minute))
	ctx := context.Background()

	first, err := cq.Get(ctx, "u1", "o1")
	require.NoError(t, err)
	second, err := cq.Get(ctx, "u1", "o1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "o1", second.OrgID)
	assert.Equal(t, 1, calls)

	require.NoError(t, cq.Invalidate(ctx, "u1", "o1"))
	_, err = cq.Get(ctx, "u1", "o1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedQuery_ErrorsAreNotCached(t *testing.T) {
	errNotFound := errors.New("not found")
	calls := 0
	cq := NewCachedQuery(NewFastCache(FastCacheConfig{}), membershipKey,
		func(context.Context, ...any) (membership, error) {
			calls++
			return membership{}, errNotFound
		})

	for i := 0; i < 2; i++ {
		_, err := cq.Get(context.Background(), "u1", "o1")
		assert.ErrorIs(t, err, errNotFound)
	}
	assert.Equal(t, 2, calls)
}

func TestCachedQuery_NilCache(t *testing.T) {
	cq := NewCachedQuery[membership](nil, membershipKey,
		func(context.Context, ...any) (membership, error) {
			return membership{Role: "client"}, nil
		})

	got, err := cq.Get(context.Background(), "u1", "o1")
	require.NoError(t, err)
	assert.Equal(t, "client", got.Role)
	assert.NoError(t, cq.Invalidate(context.Background(), "u1", "o1"))
}
