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

package shutdown

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_ShutdownOnce(t *testing.T) {
	m := NewManager()
	assert.False(t, m.IsShuttingDown())

	var wg sync.WaitGroup
	var triggered int32
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Shutdown() {
				mu.Lock()
				triggered++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), triggered)
	assert.True(t, m.IsShuttingDown())

	select {
	case <-m.Wait():
	default:
		t.Fatal("wait channel should be closed after shutdown")
	}
}
