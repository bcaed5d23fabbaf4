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
	"encoding/binary"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const expiryHeader = 8

type FastCacheConfig struct {
	// Enable 为 true 时成员关系与组织缓存使用进程内缓存, 否则使用 redis
	Enable   bool `mapstructure:"enable"`
	MaxBytes int  `mapstructure:"maxBytes"` // 默认 16MB
}

// FastCache is an in-process ICache. Every value carries its absolute expiry
// in an 8 byte header, so expired entries are dropped lazily on read.
type FastCache struct {
	cache *fastcache.Cache
	now   func() time.Time
}

func NewFastCache(conf FastCacheConfig) *FastCache {
	maxBytes := conf.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 16 * 1024 * 1024
	}
	return &FastCache{cache: fastcache.New(maxBytes), now: time.Now}
}

// GetBytes returns the stored payload, or false when missing or expired.
func (fc *FastCache) GetBytes(key string) ([]byte, bool) {
	raw := fc.cache.GetBig(nil, []byte(key))
	if len(raw) < expiryHeader {
		return nil, false
	}
	if exp := int64(binary.BigEndian.Uint64(raw[:expiryHeader])); exp > 0 && fc.now().UnixNano() >= exp {
		fc.cache.Del([]byte(key))
		return nil, false
	}
	return raw[expiryHeader:], true
}

func (fc *FastCache) SetBytes(key string, value []byte, expiration time.Duration) {
	buf := make([]byte, expiryHeader+len(value))
	if expiration > 0 {
		binary.BigEndian.PutUint64(buf[:expiryHeader], uint64(fc.now().Add(expiration).UnixNano()))
	}
	copy(buf[expiryHeader:], value)
	fc.cache.SetBig([]byte(key), buf)
}

func (fc *FastCache) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := fc.GetBytes(key)
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (fc *FastCache) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		encoded, err := sonic.Marshal(v)
		if err != nil {
			return redis.NewStatusResult("", err)
		}
		data = encoded
	}
	fc.SetBytes(key, data, expiration)
	return redis.NewStatusResult("OK", nil)
}

func (fc *FastCache) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if fc.cache.Has([]byte(k)) {
			n++
		}
		fc.cache.Del([]byte(k))
	}
	return redis.NewIntResult(n, nil)
}

func (fc *FastCache) Reset() {
	fc.cache.Reset()
}
