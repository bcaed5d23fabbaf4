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
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Identity is what a verified id token says about its bearer.
type Identity struct {
	Subject string
	Email   string
	OrgId   string
	Claims  map[string]any
}

// Verifier checks id tokens issued by one OIDC provider for one client.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	orgClaim string
}

// NewVerifier discovers the provider at issuer. Discovery needs network
// access, so ctx should carry a deadline.
func NewVerifier(ctx context.Context, issuer, clientID, orgClaim string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery %s: %w", issuer, err)
	}
	return &Verifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		orgClaim: orgClaim,
	}, nil
}

// NewVerifierWithKeySet skips discovery and trusts keySet directly.
func NewVerifierWithKeySet(issuer, clientID, orgClaim string, keySet oidc.KeySet) *Verifier {
	return &Verifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: clientID}),
		orgClaim: orgClaim,
	}
}

// Verify validates signature, issuer, audience and expiry of rawIDToken.
// The organization claim is optional; OrgId stays empty without it.
func (v *Verifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("invalid id_token: %w", err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id_token claims: %w", err)
	}

	identity := &Identity{Subject: idToken.Subject, Claims: claims}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if orgId, ok := claims[v.orgClaim].(string); ok {
		identity.OrgId = orgId
	}
	return identity, nil
}
