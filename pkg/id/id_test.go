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

package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetUUIDWithoutDashes(t *testing.T) {
	v := GetUUIDWithoutDashes()
	assert.Len(t, v, 32)
	assert.NotContains(t, v, "-")
}

func TestGetUlid_SortsByCreation(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		ids = append(ids, NewUlidAt(at).String())
	}
	assert.True(t, sort.StringsAreSorted(ids))
	assert.Len(t, GetUlid(), 26)
}
