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

package safe

import (
	"context"
	"runtime/debug"

	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/go-arcade/gatekeeper/pkg/trace"
)

// Go starts f on a new goroutine and recovers any panic.
func Go(f func()) {
	go Do(f)
}

// GoWith starts f on a new goroutine carrying ctx's span, detached from its
// cancellation, and recovers any panic.
func GoWith(ctx context.Context, f func(ctx context.Context)) {
	trace.GoWithContext(trace.Detach(ctx), func(ctx context.Context) {
		Do(func() { f(ctx) })
	})
}

// Do runs f and recovers any panic. It reports whether f returned normally.
func Do(f func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("recovered from panic", "panic", r, "stack", string(debug.Stack()))
			ok = false
		}
	}()
	f()
	return true
}
