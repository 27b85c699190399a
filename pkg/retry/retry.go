// Copyright 2023 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	cerrors "github.com/lucianenache/akka/pkg/errors"
	"github.com/pingcap/errors"
)

const (
	// defaultBackoffBaseInMs is the initial duration, in Millisecond
	defaultBackoffBaseInMs = 10.0
	// defaultBackoffCapInMs is the max amount of duration, in Millisecond
	defaultBackoffCapInMs = 100.0
	defaultMaxTries       = 3
)

// Option configures a Do call.
type Option func(*retryOptions)

// IsRetryableErr checks the error is safe to retry or not, eg. "context.Canceled" better not retry
type IsRetryableErr func(error) bool

type retryOptions struct {
	maxTries    float64
	backoffBase float64
	backoffCap  float64
	isRetryable IsRetryableErr
}

func newRetryOptions() *retryOptions {
	return &retryOptions{
		maxTries:    defaultMaxTries,
		backoffBase: defaultBackoffBaseInMs,
		backoffCap:  defaultBackoffCapInMs,
		isRetryable: func(err error) bool { return true },
	}
}

// WithBackoffBaseDelay configures the initial delay
func WithBackoffBaseDelay(delayInMs int64) Option {
	return func(o *retryOptions) {
		if delayInMs > 0 {
			o.backoffBase = float64(delayInMs)
		}
	}
}

// WithBackoffMaxDelay configures the maximum delay
func WithBackoffMaxDelay(delayInMs int64) Option {
	return func(o *retryOptions) {
		if delayInMs > 0 {
			o.backoffCap = float64(delayInMs)
		}
	}
}

// WithMaxTries configures maximum tries
func WithMaxTries(tries int64) Option {
	return func(o *retryOptions) {
		if tries > 0 {
			o.maxTries = float64(tries)
		}
	}
}

// WithInfiniteTries configures to retry forever till success
func WithInfiniteTries() Option {
	return func(o *retryOptions) {
		o.maxTries = math.Inf(1)
	}
}

// WithIsRetryableErr configures the error handler, if not set, retry by default
func WithIsRetryableErr(f func(error) bool) Option {
	return func(o *retryOptions) {
		if f != nil {
			o.isRetryable = f
		}
	}
}

// Do runs fn until it succeeds, the error is not retryable, the try
// budget is exhausted, or ctx is canceled. Tries are separated by an
// exponential backoff with jitter, capped by WithBackoffMaxDelay.
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	retryOption := newRetryOptions()
	for _, opt := range opts {
		opt(retryOption)
	}
	return run(ctx, fn, retryOption)
}

func run(ctx context.Context, fn func() error, option *retryOptions) error {
	select {
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	default:
	}

	var t *time.Timer
	defer func() {
		if t != nil {
			t.Stop()
		}
	}()
	var try float64
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if !option.isRetryable(err) {
			return err
		}

		try++
		if try >= option.maxTries {
			return cerrors.ErrReachMaxTry.
				Wrap(err).GenWithStackByArgs(option.maxTries, err)
		}

		backoff := getBackoffInMs(option.backoffBase, option.backoffCap, try)
		if t == nil {
			t = time.NewTimer(backoff)
		} else {
			t.Reset(backoff)
		}
		select {
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		case <-t.C:
		}
	}
}

// getBackoffInMs returns the duration to wait before the next try,
// following the decorrelated jitter algorithm, see
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
func getBackoffInMs(backoffBaseInMs, backoffCapInMs, try float64) time.Duration {
	temp := int64(math.Min(backoffCapInMs, backoffBaseInMs*math.Exp2(try)) / 2)
	if temp <= 0 {
		temp = 1
	}
	sleepInMs := temp + rand.Int63n(temp)
	return time.Duration(sleepInMs) * time.Millisecond
}
