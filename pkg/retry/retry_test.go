// Copyright 2023 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.
package retry

import (
	"context"
	"testing"
	"time"

	cerrors "github.com/lucianenache/akka/pkg/errors"
	"github.com/pingcap/errors"
	"github.com/stretchr/testify/require"
)

func TestDoShouldRetryAtMostMaxTries(t *testing.T) {
	t.Parallel()

	var callCount int
	f := func() error {
		callCount++
		return errors.New("test")
	}

	err := Do(context.Background(), f,
		WithBackoffBaseDelay(1), WithBackoffMaxDelay(2), WithMaxTries(8))
	require.Equal(t, 8, callCount)
	require.True(t, cerrors.ErrReachMaxTry.Equal(errors.Cause(err)))
	require.Regexp(t, "test", err)
}

func TestDoShouldStopOnSuccess(t *testing.T) {
	t.Parallel()

	var callCount int
	f := func() error {
		callCount++
		if callCount < 3 {
			return errors.New("test")
		}
		return nil
	}

	err := Do(context.Background(), f,
		WithBackoffBaseDelay(1), WithBackoffMaxDelay(2), WithMaxTries(8))
	require.NoError(t, err)
	require.Equal(t, 3, callCount)
}

func TestDoShouldStopOnNonRetryable(t *testing.T) {
	t.Parallel()

	var callCount int
	errFatal := errors.New("fatal")
	f := func() error {
		callCount++
		return errFatal
	}

	err := Do(context.Background(), f,
		WithBackoffBaseDelay(1), WithMaxTries(8),
		WithIsRetryableErr(func(err error) bool { return err != errFatal }))
	require.Equal(t, 1, callCount)
	require.ErrorIs(t, err, errFatal)
}

func TestDoCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var callCount int
	err := Do(ctx, func() error {
		callCount++
		return errors.New("test")
	}, WithInfiniteTries())
	require.ErrorIs(t, errors.Cause(err), context.Canceled)
	require.Equal(t, 0, callCount)
}

func TestDoCancelDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var callCount int
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err := Do(ctx, func() error {
		callCount++
		return errors.New("test")
	}, WithBackoffBaseDelay(1000), WithBackoffMaxDelay(1000), WithInfiniteTries())
	require.ErrorIs(t, errors.Cause(err), context.Canceled)
	require.GreaterOrEqual(t, callCount, 1)
}

func TestBackoffWithinCap(t *testing.T) {
	t.Parallel()

	for try := 1.0; try < 32; try++ {
		backoff := getBackoffInMs(10, 100, try)
		require.Greater(t, backoff, time.Duration(0))
		require.LessOrEqual(t, backoff, 100*time.Millisecond)
	}
}
