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
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/redis/go-redis/v9"
)

type Redis struct {
	// Mode: single 或 sentinel
	Mode             string        `mapstructure:"mode"`
	Address          string        `mapstructure:"address"`
	Password         string        `mapstructure:"password"`
	DB               int           `mapstructure:"db"`
	PoolSize         int           `mapstructure:"poolSize"`
	UseTLS           bool          `mapstructure:"useTLS"`
	MasterName       string        `mapstructure:"masterName"`
	SentinelUsername string        `mapstructure:"sentinelUsername"`
	SentinelPassword string        `mapstructure:"sentinelPassword"`
	DialTimeout      time.Duration `mapstructure:"dialTimeout"`  // 连接超时
	ReadTimeout      time.Duration `mapstructure:"readTimeout"`  // 读超时
	WriteTimeout     time.Duration `mapstructure:"writeTimeout"` // 写超时
}

func (r *Redis) SetDefaults() {
	if r.Mode == "" {
		r.Mode = "single"
	}
	if r.Address == "" {
		r.Address = "127.0.0.1:6379"
	}
	if r.PoolSize <= 0 {
		r.PoolSize = 20
	}
	if r.DialTimeout <= 0 {
		r.DialTimeout = 3 * time.Second
	}
	if r.ReadTimeout <= 0 {
		r.ReadTimeout = time.Second
	}
	if r.WriteTimeout <= 0 {
		r.WriteTimeout = time.Second
	}
}

// Options returns the single-node options. Queue clients reuse it.
func (r Redis) Options() *redis.Options {
	opts := &redis.Options{
		Addr:         r.Address,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	}
	if r.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

func NewRedis(cfg Redis) (*redis.Client, error) {
	var client *redis.Client
	switch cfg.Mode {
	case "single":
		client = redis.NewClient(cfg.Options())
	case "sentinel":
		opts := &redis.FailoverOptions{
			MasterName:       cfg.MasterName,
			SentinelAddrs:    strings.Split(cfg.Address, ","),
			Password:         cfg.Password,
			DB:               cfg.DB,
			PoolSize:         cfg.PoolSize,
			SentinelUsername: cfg.SentinelUsername,
			SentinelPassword: cfg.SentinelPassword,
			DialTimeout:      cfg.DialTimeout,
			ReadTimeout:      cfg.ReadTimeout,
			WriteTimeout:     cfg.WriteTimeout,
		}
		if cfg.UseTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client = redis.NewFailoverClient(opts)
	default:
		return nil, fmt.Errorf("unsupported redis mode %q", cfg.Mode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	log.Infow("redis connected", "mode", cfg.Mode, "address", cfg.Address)
	return client, nil
}
