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

package authz

import "errors"

var (
	// ErrUnauthenticated means the credential is missing, malformed, invalid or expired.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNoMembership means the credential is valid but the subject belongs to no organization.
	ErrNoMembership = errors.New("no active organization membership")
	// ErrNotAssigned means the principal has no active assignment on the project.
	ErrNotAssigned = errors.New("not assigned to project")
	// ErrInfraFailure means the identity provider or a store could not be reached.
	ErrInfraFailure = errors.New("authorization infrastructure failure")
)

func IsInfra(err error) bool {
	return errors.Is(err, ErrInfraFailure)
}

// Kind returns a short label for err, suitable for metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrNoMembership):
		return "no_membership"
	case errors.Is(err, ErrNotAssigned):
		return "not_assigned"
	case errors.Is(err, ErrInfraFailure):
		return "infra"
	default:
		return "unknown"
	}
}
