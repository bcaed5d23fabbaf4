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
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

var ProviderSet = wire.NewSet(
	ProvideRedis,
	ProvideICache,
)

func ProvideRedis(conf Redis) (*redis.Client, error) {
	conf.SetDefaults()
	return NewRedis(conf)
}

// ProvideICache 按配置选择进程内缓存或 redis
func ProvideICache(client *redis.Client, local FastCacheConfig) ICache {
	if local.Enable {
		return NewFastCache(local)
	}
	return NewRedisCache(client)
}
