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
	"testing"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/http"
	goJwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuth() http.Auth {
	return http.Auth{
		SecretKey:     "bf284d03-ba65-42d4-a9fe-0d2fbfe61060",
		Issuer:        "gatekeeper",
		AccessExpire:  time.Hour,
		RefreshExpire: 24 * time.Hour,
	}
}

func TestGenAndParseToken(t *testing.T) {
	auth := testAuth()
	aToken, rToken, err := GenToken("u-1", "org-1", auth)
	require.NoError(t, err)
	assert.NotEmpty(t, rToken)

	claims, err := ParseToken(aToken, auth.SecretKey)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserId)
	assert.Equal(t, "org-1", claims.OrgId)
	assert.Equal(t, "gatekeeper", claims.Issuer)
}

func TestParseToken_WrongSecret(t *testing.T) {
	auth := testAuth()
	aToken, _, err := GenToken("u-1", "", auth)
	require.NoError(t, err)

	_, err = ParseToken(aToken, "another-secret")
	assert.ErrorIs(t, err, goJwt.ErrTokenSignatureInvalid)
}

func TestParseToken_Expired(t *testing.T) {
	auth := testAuth()
	auth.AccessExpire = -time.Minute
	aToken, _, err := GenToken("u-1", "", auth)
	require.NoError(t, err)

	_, err = ParseToken(aToken, auth.SecretKey)
	assert.ErrorIs(t, err, goJwt.ErrTokenExpired)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := &AuthClaims{
		UserId: "u-1",
		RegisteredClaims: goJwt.RegisteredClaims{
			ExpiresAt: goJwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := goJwt.NewWithClaims(goJwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseToken(token, "secret")
	assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
	auth := testAuth()
	_, rToken, err := GenToken("u-1", "org-1", auth)
	require.NoError(t, err)

	aToken, newRToken, err := RefreshToken(auth, "org-2", rToken)
	require.NoError(t, err)
	assert.NotEmpty(t, newRToken)

	claims, err := ParseToken(aToken, auth.SecretKey)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserId)
	assert.Equal(t, "org-2", claims.OrgId)
}
