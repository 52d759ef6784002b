// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coffeepid/thermo/internal/retry"
)

type Mock struct {
	mock.Mock
}

var errRetryable = errors.New("this error is retryable")

func (m *Mock) Task(context.Context) (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func fast() *retry.Backoff {
	return &retry.Backoff{MinInterval: time.Millisecond, MaxInterval: 4 * time.Millisecond}
}

func TestNoRetry(t *testing.T) {
	m := new(Mock)
	m.On("Task").Return(false, nil)

	require.NoError(t, fast().Run(context.Background(), "TestNoRetry", m.Task))
	m.AssertNumberOfCalls(t, "Task", 1)
}

func TestPermanentFailure(t *testing.T) {
	m := new(Mock)
	m.On("Task").Return(false, errRetryable)

	err := fast().Run(context.Background(), "TestPermanentFailure", m.Task)
	require.ErrorIs(t, err, errRetryable)
	m.AssertNumberOfCalls(t, "Task", 1)
}

func TestMaxAttempts(t *testing.T) {
	m := new(Mock)
	m.On("Task").Return(true, errRetryable)

	b := fast()
	b.MaxAttempts = 3
	err := b.Run(context.Background(), "TestMaxAttempts", m.Task)
	require.ErrorIs(t, err, errRetryable)
	m.AssertNumberOfCalls(t, "Task", 3)
}

func TestRetryUntilSuccess(t *testing.T) {
	m := new(Mock)
	m.On("Task").Twice().Return(true, errRetryable)
	m.On("Task").Once().Return(false, nil)

	require.NoError(t, fast().Run(context.Background(), "TestRetryUntilSuccess", m.Task))
	m.AssertNumberOfCalls(t, "Task", 3)
}

func TestCancelled(t *testing.T) {
	m := new(Mock)
	m.On("Task").Return(true, errRetryable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := fast().Run(ctx, "TestCancelled", m.Task)
	require.ErrorIs(t, err, errRetryable)
	m.AssertNumberOfCalls(t, "Task", 1)
}
