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

package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/go-arcade/gatekeeper/pkg/http/auth/jwt"
	"github.com/go-arcade/gatekeeper/pkg/sso/oidc"
	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Identity is the verified subject of a bearer token.
type Identity struct {
	UserId string
	// OrgId is the organization the token was issued for, empty when the
	// token does not carry one.
	OrgId string
}

// IdentityVerifier checks a bearer token. Errors wrap authz.ErrUnauthenticated
// when the credential is bad and authz.ErrInfraFailure when the provider
// could not be consulted.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

func unauthenticated(err error) error {
	return fmt.Errorf("%w: %v", authz.ErrUnauthenticated, err)
}

func infraFailure(err error) error {
	return fmt.Errorf("%w: %v", authz.ErrInfraFailure, err)
}

// SessionStore is the slice of the redis client the session check reads.
type SessionStore interface {
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// JwtVerifier verifies HS256 access tokens, optionally requiring a live
// session key in redis.
type JwtVerifier struct {
	auth     http.Auth
	sessions SessionStore
}

func NewJwtVerifier(auth http.Auth, sessions SessionStore) *JwtVerifier {
	return &JwtVerifier{auth: auth, sessions: sessions}
}

func (v *JwtVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	claims, err := jwt.ParseToken(token, v.auth.SecretKey)
	if err != nil {
		return Identity{}, unauthenticated(err)
	}
	if v.auth.SessionCheck && v.sessions != nil {
		ttl, err := v.sessions.TTL(ctx, v.auth.RedisKeyPrefix+claims.UserId).Result()
		if err != nil {
			return Identity{}, infraFailure(fmt.Errorf("session lookup: %w", err))
		}
		// -2 表示 key 不存在, -1 表示未设置过期时间, 均视为会话无效
		if ttl <= 0 {
			return Identity{}, unauthenticated(errors.New("session expired"))
		}
	}
	return Identity{UserId: claims.UserId, OrgId: claims.OrgId}, nil
}

// OidcVerifier verifies id tokens of an OpenID Connect provider.
type OidcVerifier struct {
	verifier *oidc.Verifier
}

func NewOidcVerifier(v *oidc.Verifier) *OidcVerifier {
	return &OidcVerifier{verifier: v}
}

func (v *OidcVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	identity, err := v.verifier.Verify(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return Identity{}, infraFailure(err)
		}
		return Identity{}, unauthenticated(err)
	}
	return Identity{UserId: identity.Subject, OrgId: identity.OrgId}, nil
}

type introspection struct {
	Active bool   `json:"active"`
	Sub    string `json:"sub"`
	OrgId  string `json:"org_id"`
}

// IntrospectVerifier asks a remote identity service whether a token is
// active (RFC 7662).
type IntrospectVerifier struct {
	client *resty.Client
	conf   http.Introspect
	tokens oauth2.TokenSource
}

func NewIntrospectVerifier(conf http.Introspect, timeout time.Duration) *IntrospectVerifier {
	v := &IntrospectVerifier{
		client: http.NewClient(http.ClientConfig{Timeout: timeout}),
		conf:   conf,
	}
	if conf.TokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			TokenURL:     conf.TokenURL,
		}
		v.tokens = cc.TokenSource(context.Background())
	}
	return v
}

func (v *IntrospectVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	req := v.client.R().
		SetContext(ctx).
		SetFormDataFromValues(url.Values{"token": {token}, "token_type_hint": {"access_token"}})

	switch {
	case v.tokens != nil:
		t, err := v.tokens.Token()
		if err != nil {
			return Identity{}, infraFailure(fmt.Errorf("client credentials: %w", err))
		}
		req.SetAuthToken(t.AccessToken)
	case v.conf.ClientID != "":
		req.SetBasicAuth(v.conf.ClientID, v.conf.ClientSecret)
	}

	var out introspection
	resp, err := req.SetResult(&out).Post(v.conf.URL)
	if err != nil {
		return Identity{}, infraFailure(err)
	}
	switch code := resp.StatusCode(); {
	case code == 401 || code == 403:
		return Identity{}, unauthenticated(fmt.Errorf("introspection rejected with status %d", code))
	case code >= 500:
		return Identity{}, infraFailure(fmt.Errorf("introspection failed with status %d", code))
	case code >= 300:
		return Identity{}, unauthenticated(fmt.Errorf("introspection returned status %d", code))
	}
	if !out.Active || strings.TrimSpace(out.Sub) == "" {
		return Identity{}, unauthenticated(errors.New("token is not active"))
	}
	return Identity{UserId: out.Sub, OrgId: out.OrgId}, nil
}
