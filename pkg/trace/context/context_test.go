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


package context

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ctxKey struct{}

func TestContext_BoundPerGoroutine(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "main")
	SetContext(ctx)
	defer ClearContext()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.Nil(t, GetContext())
			own := context.WithValue(context.Background(), ctxKey{}, i)
			RunWithContext(own, func(context.Context) {
				assert.Equal(t, i, GetContext().Value(ctxKey{}))
			})
			assert.Nil(t, GetContext())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, "main", GetContext().Value(ctxKey{}))
}
