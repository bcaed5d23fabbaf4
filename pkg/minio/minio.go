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

package minio

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrDisabled = errors.New("object storage is not configured")

type Minio struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyId     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	Bucket          string `mapstructure:"bucket"`
	UseTLS          bool   `mapstructure:"useTLS"`
}

func (m Minio) Enabled() bool {
	return m.Endpoint != "" && m.Bucket != ""
}

// NewClient returns ErrDisabled when no endpoint is configured.
func NewClient(m Minio) (*minio.Client, error) {
	if !m.Enabled() {
		return nil, ErrDisabled
	}
	client, err := minio.New(m.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(m.AccessKeyId, m.SecretAccessKey, ""),
		Secure: m.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client %s: %w", m.Endpoint, err)
	}
	return client, nil
}

// ObjectLister is the part of *minio.Client used to measure usage.
type ObjectLister interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// PrefixUsage sums the size of every object under prefix in bucket.
func PrefixUsage(ctx context.Context, lister ObjectLister, bucket, prefix string) (int64, error) {
	var total int64
	for obj := range lister.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("list %s/%s: %w", bucket, prefix, obj.Err)
		}
		total += obj.Size
	}
	return total, ctx.Err()
}
