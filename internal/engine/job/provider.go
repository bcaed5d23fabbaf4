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
	"github.com/go-arcade/gatekeeper/internal/engine/config"
	"github.com/go-arcade/gatekeeper/internal/engine/repo"
	"github.com/go-arcade/gatekeeper/pkg/log"
	objstore "github.com/go-arcade/gatekeeper/pkg/minio"
	"github.com/google/wire"
)

// ProviderSet 提供定时任务相关的依赖
var ProviderSet = wire.NewSet(
	ProvideUsageReconciler,
	NewScheduler,
)

// ProvideUsageReconciler 未配置对象存储时不统计存储用量
func ProvideUsageReconciler(repos *repo.Repositories, storage objstore.Minio, conf config.JobConfig) (*UsageReconciler, error) {
	var lister objstore.ObjectLister
	if storage.Enabled() {
		client, err := objstore.NewClient(storage)
		if err != nil {
			return nil, err
		}
		lister = client
	} else {
		log.Info("object storage is not configured, storage usage will not be reconciled")
	}
	return NewUsageReconciler(repos, lister, storage.Bucket, conf.Concurrency), nil
}
