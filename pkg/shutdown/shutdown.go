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

// Package shutdown tracks whether the process is draining. The health
// endpoint reports it so load balancers stop routing before listeners close.
package shutdown

import (
	"sync/atomic"

	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(NewManager)

type Manager struct {
	draining atomic.Bool
	done     chan struct{}
}

func NewManager() *Manager {
	return &Manager{done: make(chan struct{})}
}

// IsShuttingDown reports whether Shutdown has been called.
func (m *Manager) IsShuttingDown() bool {
	return m.draining.Load()
}

// Shutdown marks the process as draining. Only the first call returns true.
func (m *Manager) Shutdown() bool {
	if !m.draining.CompareAndSwap(false, true) {
		return false
	}
	close(m.done)
	return true
}

// Wait is closed once Shutdown has been called.
func (m *Manager) Wait() <-chan struct{} {
	return m.done
}
