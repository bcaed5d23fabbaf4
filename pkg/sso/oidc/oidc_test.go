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

package oidc

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	goJwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://id.example.com"
	testClientID = "gatekeeper"
)

type idClaims struct {
	Email string `json:"email,omitempty"`
	OrgId string `json:"org_id,omitempty"`
	goJwt.RegisteredClaims
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims idClaims) string {
	t.Helper()
	token, err := goJwt.NewWithClaims(goJwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newTestVerifier(t *testing.T) (*Verifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return NewVerifierWithKeySet(testIssuer, testClientID, "org_id", keySet), key
}

func validClaims() idClaims {
	return idClaims{
		Email: "ada@example.com",
		OrgId: "org-1",
		RegisteredClaims: goJwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "u-1",
			Audience:  goJwt.ClaimStrings{testClientID},
			IssuedAt:  goJwt.NewNumericDate(time.Now()),
			ExpiresAt: goJwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerify(t *testing.T) {
	v, key := newTestVerifier(t)

	identity, err := v.Verify(context.Background(), signIDToken(t, key, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "u-1", identity.Subject)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, "org-1", identity.OrgId)
}

func TestVerify_Rejects(t *testing.T) {
	v, key := newTestVerifier(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	expired := validClaims()
	expired.ExpiresAt = goJwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongAudience := validClaims()
	wrongAudience.Audience = goJwt.ClaimStrings{"someone-else"}

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "https://evil.example.com"

	tokens := map[string]string{
		"expired":        signIDToken(t, key, expired),
		"wrong audience": signIDToken(t, key, wrongAudience),
		"wrong issuer":   signIDToken(t, key, wrongIssuer),
		"foreign key":    signIDToken(t, other, validClaims()),
		"garbage":        "not-a-token",
	}
	for name, token := range tokens {
		_, err := v.Verify(context.Background(), token)
		assert.Error(t, err, name)
	}
}

func TestVerify_WithoutOrgClaim(t *testing.T) {
	v, key := newTestVerifier(t)
	claims := validClaims()
	claims.OrgId = ""

	identity, err := v.Verify(context.Background(), signIDToken(t, key, claims))
	require.NoError(t, err)
	assert.Empty(t, identity.OrgId)
}
