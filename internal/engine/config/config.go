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

package config

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-arcade/gatekeeper/internal/pkg/grpc"
	"github.com/go-arcade/gatekeeper/internal/pkg/queue"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/cache"
	"github.com/go-arcade/gatekeeper/pkg/database"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/metrics"
	"github.com/go-arcade/gatekeeper/pkg/minio"
	"github.com/go-arcade/gatekeeper/pkg/trace"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type EntitlementConfig struct {
	// Strict 为 true 时创建操作在事务内加锁校验配额
	Strict bool `mapstructure:"strict"`
	// Limits 按套餐覆盖默认配额, -1 表示不限
	Limits             map[string]authz.PlanLimits `mapstructure:"limits"`
	MembershipCacheTTL time.Duration               `mapstructure:"membershipCacheTTL"`
	OrgCacheTTL        time.Duration               `mapstructure:"orgCacheTTL"`
	StampTimeout       time.Duration               `mapstructure:"stampTimeout"`
}

func (e *EntitlementConfig) SetDefaults() {
	if e.MembershipCacheTTL <= 0 {
		e.MembershipCacheTTL = 30 * time.Second
	}
	if e.OrgCacheTTL <= 0 {
		e.OrgCacheTTL = 10 * time.Second
	}
	if e.StampTimeout <= 0 {
		e.StampTimeout = 3 * time.Second
	}
}

// LimitsTable overlays the configured limits on the built-in table.
func (e EntitlementConfig) LimitsTable() (authz.LimitsTable, error) {
	table := authz.DefaultLimits()
	for name, limits := range e.Limits {
		plan, err := authz.ParsePlan(name)
		if err != nil {
			return nil, err
		}
		table[plan] = limits
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

type JobConfig struct {
	Enable bool `mapstructure:"enable"`
	// UsageReconcileSpec cron 表达式, 默认每 15 分钟
	UsageReconcileSpec string        `mapstructure:"usageReconcileSpec"`
	Concurrency        int           `mapstructure:"concurrency"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

func (j *JobConfig) SetDefaults() {
	if j.UsageReconcileSpec == "" {
		j.UsageReconcileSpec = "@every 15m"
	}
	if j.Concurrency <= 0 {
		j.Concurrency = 4
	}
	if j.Timeout <= 0 {
		j.Timeout = 5 * time.Minute
	}
}

type AppConfig struct {
	Log         log.Conf              `mapstructure:"log"`
	Http        http.Http             `mapstructure:"http"`
	Grpc        grpc.Conf             `mapstructure:"grpc"`
	Database    database.Database     `mapstructure:"database"`
	Redis       cache.Redis           `mapstructure:"redis"`
	LocalCache  cache.FastCacheConfig `mapstructure:"localCache"`
	Metrics     metrics.MetricsConfig `mapstructure:"metrics"`
	Trace       trace.Conf            `mapstructure:"trace"`
	Queue       queue.Conf            `mapstructure:"queue"`
	Storage     minio.Minio           `mapstructure:"storage"`
	Entitlement EntitlementConfig     `mapstructure:"entitlement"`
	Job         JobConfig             `mapstructure:"job"`
}

func (c *AppConfig) SetDefaults() {
	c.Http.SetDefaults()
	c.Grpc.SetDefaults()
	c.Database.SetDefaults()
	c.Redis.SetDefaults()
	c.Metrics.SetDefaults()
	c.Trace.SetDefaults()
	c.Queue.SetDefaults()
	c.Entitlement.SetDefaults()
	c.Job.SetDefaults()
}

var validate = validator.New()

func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if _, err := c.Entitlement.LimitsTable(); err != nil {
		return fmt.Errorf("invalid entitlement limits: %w", err)
	}
	switch c.Http.Auth.Provider {
	case "jwt":
		if c.Http.Auth.SecretKey == "" {
			return fmt.Errorf("http.auth.secretKey is required for the jwt provider")
		}
	case "oidc":
		if c.Http.Auth.OIDC.IssuerURL == "" || c.Http.Auth.OIDC.ClientID == "" {
			return fmt.Errorf("http.auth.oidc.issuerUrl and clientId are required for the oidc provider")
		}
	case "introspect":
		if c.Http.Auth.Introspect.URL == "" {
			return fmt.Errorf("http.auth.introspect.url is required for the introspect provider")
		}
	}
	return nil
}

var (
	cfg      atomic.Pointer[AppConfig]
	once     sync.Once
	watchMu  sync.Mutex
	watchers []func(AppConfig)
)

// NewConf loads confDir once per process and panics when it is unusable.
func NewConf(confDir string) AppConfig {
	once.Do(func() {
		loaded, err := LoadConfigFile(confDir)
		if err != nil {
			panic(fmt.Sprintf("load config file error: %s", err))
		}
		cfg.Store(&loaded)
	})
	return *cfg.Load()
}

// Current returns the latest valid configuration.
func Current() AppConfig {
	if c := cfg.Load(); c != nil {
		return *c
	}
	return AppConfig{}
}

// Watch registers fn to run after every successful reload.
func Watch(fn func(AppConfig)) {
	watchMu.Lock()
	defer watchMu.Unlock()
	watchers = append(watchers, fn)
}

// LoadConfigFile reads, defaults and validates confDir, then watches it.
// A reload that fails validation keeps the previous configuration.
func LoadConfigFile(confDir string) (AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(confDir)
	if err := v.ReadInConfig(); err != nil {
		return AppConfig{}, fmt.Errorf("failed to read configuration file: %w", err)
	}

	loaded, err := decode(v)
	if err != nil {
		return AppConfig{}, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log.Infow("configuration changed, reloading", "path", e.Name)
		next, err := decode(v)
		if err != nil {
			log.Errorw("configuration reload rejected", "path", e.Name, "error", err)
			return
		}
		cfg.Store(&next)

		watchMu.Lock()
		fns := append([]func(AppConfig){}, watchers...)
		watchMu.Unlock()
		for _, fn := range fns {
			fn(next)
		}
	})
	v.WatchConfig()

	log.Infow("config file loaded", "path", confDir)
	return loaded, nil
}

func decode(v *viper.Viper) (AppConfig, error) {
	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal configuration file: %w", err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return AppConfig{}, err
	}
	return c, nil
}
