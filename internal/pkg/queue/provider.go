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

package queue

import (
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

var ProviderSet = wire.NewSet(ProvideTaskQueue)

// ProvideTaskQueue 未启用时返回 nil, 调用方退化为进程内执行
func ProvideTaskQueue(conf Conf, redisClient *redis.Client) (*TaskQueue, func(), error) {
	if !conf.Enable {
		return nil, func() {}, nil
	}
	q, err := NewTaskQueue(conf, redisClient)
	if err != nil {
		return nil, nil, err
	}
	return q, q.Shutdown, nil
}
