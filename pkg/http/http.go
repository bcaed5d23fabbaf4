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

package http

import (
	"fmt"
	"time"
)

type Http struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ExposeMetrics   bool          `mapstructure:"exposeMetrics"`
	AccessLog       bool          `mapstructure:"accessLog"`
	PProf           bool          `mapstructure:"pprof"`
	AllowOrigins    string        `mapstructure:"allowOrigins"`
	ReadTimeout     int           `mapstructure:"readTimeout"`
	WriteTimeout    int           `mapstructure:"writeTimeout"`
	IdleTimeout     int           `mapstructure:"idleTimeout"`
	ShutdownTimeout int           `mapstructure:"shutdownTimeout"`
	BodyLimit       int           `mapstructure:"bodyLimit"`
	TLS             TLS           `mapstructure:"tls"`
	Auth            Auth          `mapstructure:"auth"`
	RateLimit       RateLimit     `mapstructure:"rateLimit"`
	DecideTimeout   time.Duration `mapstructure:"decideTimeout"`
}

type TLS struct {
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// Auth selects how bearer tokens are verified.
type Auth struct {
	// Provider: jwt, oidc or introspect
	Provider        string        `mapstructure:"provider" validate:"omitempty,oneof=jwt oidc introspect"`
	SecretKey       string        `mapstructure:"secretKey"`
	Issuer          string        `mapstructure:"issuer"`
	AccessExpire    time.Duration `mapstructure:"accessExpire"`
	RefreshExpire   time.Duration `mapstructure:"refreshExpire"`
	SessionCheck    bool          `mapstructure:"sessionCheck"`
	RedisKeyPrefix  string        `mapstructure:"redisKeyPrefix"`
	IdentityTimeout time.Duration `mapstructure:"identityTimeout"`
	OIDC            OIDC          `mapstructure:"oidc"`
	Introspect      Introspect    `mapstructure:"introspect"`
}

type OIDC struct {
	IssuerURL string `mapstructure:"issuerUrl"`
	ClientID  string `mapstructure:"clientId"`
	// 身份中心里存放组织 id 的 claim
	OrgClaim string `mapstructure:"orgClaim"`
}

type Introspect struct {
	URL          string `mapstructure:"url"`
	ClientID     string `mapstructure:"clientId"`
	ClientSecret string `mapstructure:"clientSecret"`
	// TokenURL 非空时先以 client credentials 换取访问令牌, 否则使用 basic auth
	TokenURL string `mapstructure:"tokenUrl"`
}

// RateLimit is a per client ip token bucket. PerSecond <= 0 disables it.
type RateLimit struct {
	PerSecond float64 `mapstructure:"perSecond"`
	Burst     int     `mapstructure:"burst"`
}

func (h *Http) SetDefaults() {
	if h.Host == "" {
		h.Host = "0.0.0.0"
	}
	if h.Port == 0 {
		h.Port = 8080
	}
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = 10
	}
	if h.WriteTimeout <= 0 {
		h.WriteTimeout = 10
	}
	if h.IdleTimeout <= 0 {
		h.IdleTimeout = 60
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 30
	}
	if h.BodyLimit <= 0 {
		h.BodyLimit = 4 * 1024 * 1024
	}
	if h.AllowOrigins == "" {
		h.AllowOrigins = "*"
	}
	if h.DecideTimeout <= 0 {
		h.DecideTimeout = 5 * time.Second
	}
	if h.RateLimit.PerSecond > 0 && h.RateLimit.Burst <= 0 {
		h.RateLimit.Burst = int(h.RateLimit.PerSecond)
		if h.RateLimit.Burst < 1 {
			h.RateLimit.Burst = 1
		}
	}
	h.Auth.setDefaults()
}

func (a *Auth) setDefaults() {
	if a.Provider == "" {
		a.Provider = "jwt"
	}
	if a.Issuer == "" {
		a.Issuer = "gatekeeper"
	}
	if a.AccessExpire <= 0 {
		a.AccessExpire = 2 * time.Hour
	}
	if a.RefreshExpire <= 0 {
		a.RefreshExpire = 7 * 24 * time.Hour
	}
	if a.RedisKeyPrefix == "" {
		a.RedisKeyPrefix = "gatekeeper:session:"
	}
	if a.OIDC.OrgClaim == "" {
		a.OIDC.OrgClaim = "org_id"
	}
}

func (h Http) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

func (h Http) UseTLS() bool {
	return h.TLS.CertFile != "" && h.TLS.KeyFile != ""
}
