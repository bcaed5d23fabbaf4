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
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastCache_Expiry(t *testing.T) {
	fc := NewFastCache(FastCacheConfig{})
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, fc.Set(ctx, "k", "v", time.Minute).Err())
	got, err := fc.Get(ctx, "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	clock = clock.Add(time.Minute)
	_, err = fc.Get(ctx, "k").Result()
	assert.ErrorIs(t, err, redis.Nil)
}

func TestFastCache_NoExpiryAndDelete(t *testing.T) {
	fc := NewFastCache(FastCacheConfig{MaxBytes: 1 << 20})
	ctx := context.Background()

	fc.SetBytes("raw", []byte{1, 2, 3}, 0)
	v, ok := fc.GetBytes("raw")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, v)

	n, err := fc.Del(ctx, "raw", "absent").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok = fc.GetBytes("raw")
	assert.False(t, ok)
}

func TestFastCache_SetEncodesStructs(t *testing.T) {
	fc := NewFastCache(FastCacheConfig{})
	ctx := context.Background()

	require.NoError(t, fc.Set(ctx, "s", struct {
		Role string `json:"role"`
	}{Role: "admin"}, 0).Err())

	got, err := fc.Get(ctx, "s").Result()
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"admin"}`, got)
}

func TestProvideICache_SelectsBackend(t *testing.T) {
	local := ProvideICache(nil, FastCacheConfig{Enable: true})
	_, ok := local.(*FastCache)
	assert.True(t, ok)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	remote := ProvideICache(client, FastCacheConfig{})
	_, ok = remote.(*RedisCache)
	assert.True(t, ok)
}
