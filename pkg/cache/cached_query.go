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
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = redis.Nil

type QueryFunc[T any] func(ctx context.Context, params ...any) (T, error)

type KeyFunc func(params ...any) string

// CachedQuery is a read-through cache in front of a query. Cache failures are
// logged and fall through to the query. Query errors are never cached.
type CachedQuery[T any] struct {
	cache     ICache
	keyFunc   KeyFunc
	queryFunc QueryFunc[T]
	ttl       time.Duration
	logPrefix string
}

type CachedQueryOption[T any] func(*CachedQuery[T])

func WithTTL[T any](ttl time.Duration) CachedQueryOption[T] {
	return func(cq *CachedQuery[T]) {
		cq.ttl = ttl
	}
}

func WithLogPrefix[T any](prefix string) CachedQueryOption[T] {
	return func(cq *CachedQuery[T]) {
		cq.logPrefix = prefix
	}
}

func NewCachedQuery[T any](cache ICache, keyFunc KeyFunc, queryFunc QueryFunc[T], opts ...CachedQueryOption[T]) *CachedQuery[T] {
	cq := &CachedQuery[T]{
		cache:     cache,
		keyFunc:   keyFunc,
		queryFunc: queryFunc,
		ttl:       time.Minute,
		logPrefix: "[CachedQuery]",
	}
	for _, opt := range opts {
		opt(cq)
	}
	return cq
}

func (cq *CachedQuery[T]) Get(ctx context.Context, params ...any) (T, error) {
	var zero T
	key := cq.keyFunc(params...)

	if cq.cache != nil {
		data, err := cq.cache.Get(ctx, key).Result()
		switch {
		case err == nil && data != "":
			var result T
			if err := sonic.UnmarshalString(data, &result); err == nil {
				log.Debugw(cq.logPrefix+" cache hit", "key", key)
				return result, nil
			}
			log.Warnw(cq.logPrefix+" failed to unmarshal cached data", "key", key, "error", err)
		case err != nil && !errors.Is(err, ErrCacheMiss):
			log.Warnw(cq.logPrefix+" cache get error", "key", key, "error", err)
		}
	}

	result, err := cq.queryFunc(ctx, params...)
	if err != nil {
		return zero, err
	}

	if cq.cache != nil {
		data, err := sonic.MarshalString(result)
		if err != nil {
			log.Warnw(cq.logPrefix+" failed to marshal result", "key", key, "error", err)
			return result, nil
		}
		if err := cq.cache.Set(ctx, key, data, cq.ttl).Err(); err != nil {
			log.Warnw(cq.logPrefix+" failed to cache result", "key", key, "error", err)
		}
	}
	return result, nil
}

func (cq *CachedQuery[T]) Invalidate(ctx context.Context, params ...any) error {
	if cq.cache == nil {
		return nil
	}
	key := cq.keyFunc(params...)
	if err := cq.cache.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}
	return nil
}
