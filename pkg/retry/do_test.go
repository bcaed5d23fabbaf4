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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	}, WithMaxAttempts(5), WithBackoff(Fixed(time.Millisecond)))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsAtMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errFlaky
	}, WithMaxAttempts(2), WithBackoff(Fixed(time.Millisecond)))

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 2, calls)
}

func TestDo_NonRetryableIsReturnedUnwrapped(t *testing.T) {
	notFound := errors.New("not found")
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return notFound
	}, WithMaxAttempts(4), WithBackoff(Fixed(time.Millisecond)),
		WithRetryIf(func(err error) bool { return !errors.Is(err, notFound) }))

	assert.Same(t, notFound, err)
	assert.Equal(t, 1, calls)
}

func TestDo_NotifyBeforeEachWait(t *testing.T) {
	var waits []time.Duration
	_ = Do(context.Background(), func(context.Context) error {
		return errFlaky
	}, WithMaxAttempts(3), WithBackoff(Fixed(2*time.Millisecond)),
		WithNotify(func(_ error, d time.Duration) { waits = append(waits, d) }))

	assert.Equal(t, []time.Duration{2 * time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoValue(t *testing.T) {
	calls := 0
	v, err := DoValue(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errFlaky
		}
		return "admin", nil
	}, WithMaxAttempts(2), WithBackoff(Fixed(time.Millisecond)))

	require.NoError(t, err)
	assert.Equal(t, "admin", v)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.False(t, IsRetryableError(context.DeadlineExceeded))
	assert.True(t, IsRetryableError(errFlaky))
}
