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

package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type AuthClaims struct {
	UserId string `json:"userId"`
	// 当前激活的组织, 为空时以成员关系为准
	OrgId string `json:"orgId,omitempty"`
	jwt.RegisteredClaims
}

func keyFunc(secretKey string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		return []byte(secretKey), nil
	}
}

// GenToken 生成 access_token 和 refresh_token
func GenToken(userId, orgId string, auth http.Auth) (aToken, rToken string, err error) {
	now := time.Now()
	aClaims := &AuthClaims{
		UserId: userId,
		OrgId:  orgId,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    auth.Issuer,
			Subject:   userId,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(auth.AccessExpire)),
		},
	}
	aToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, aClaims).SignedString([]byte(auth.SecretKey))
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	rClaims := jwt.RegisteredClaims{
		Issuer:    auth.Issuer,
		Subject:   userId,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(auth.RefreshExpire)),
	}
	rToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, rClaims).SignedString([]byte(auth.SecretKey))
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}
	return aToken, rToken, nil
}

// ParseToken 校验 access_token. Only HS256 is accepted.
func ParseToken(aToken, secretKey string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(aToken, &AuthClaims{}, keyFunc(secretKey),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.UserId == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshToken 用 refresh_token 换取新的令牌对
func RefreshToken(auth http.Auth, orgId, rToken string) (aToken, newRToken string, err error) {
	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(rToken, &claims, keyFunc(auth.SecretKey),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	); err != nil {
		return "", "", err
	}
	if claims.Subject == "" {
		return "", "", ErrInvalidToken
	}
	return GenToken(claims.Subject, orgId, auth)
}
