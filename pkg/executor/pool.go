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

package executor

import (
	"github.com/benbjohnson/clock"
	"github.com/lucianenache/akka/pkg/config"
)

// Executor runs submitted tasks on a bounded set of goroutines.
// Submission never blocks the caller, a task that cannot be accepted is
// resolved by the pool's rejection policy instead.
type Executor interface {
	// Start activates the pool and prestarts its core workers.
	// Starting an already started or stopped pool is a no-op.
	Start()
	// Execute submits a task. It returns ErrExecutorStopped after
	// Shutdown, or ErrExecutorRejected under the "abort" policy when
	// the pool is saturated.
	Execute(f func()) error
	// Shutdown stops the workers and rejects further submissions.
	// Queued tasks that no worker picked up are dropped. It is
	// idempotent and waits for in-flight tasks to return.
	Shutdown()
}

// NewPool creates an Executor sized and behaving as cfg describes.
// cfg must have been validated, see config.ExecutorConfig.
func NewPool(name string, cfg *config.ExecutorConfig) Executor {
	return newPool(name, cfg, clock.New())
}

// NewPoolWithClock creates an Executor with the given clock, so tests
// can drive keep-alive expiry deterministically.
func NewPoolWithClock(
	name string, cfg *config.ExecutorConfig, clk clock.Clock,
) Executor {
	return newPool(name, cfg, clk)
}
