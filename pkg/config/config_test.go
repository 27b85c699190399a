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
package config

import (
	"testing"
	"time"

	cerrors "github.com/lucianenache/akka/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	require.NoError(t, cfg.ValidateAndAdjust())
	require.Equal(t, 5, cfg.Throughput)
	require.Equal(t, MailboxUnbounded, cfg.MailboxType)
	require.Equal(t, 10*time.Second, cfg.MailboxPushTimeout.Duration())
	require.Equal(t, time.Second, cfg.ShutdownTimeout.Duration())
	require.Equal(t, RejectionCallerRuns, cfg.Executor.RejectionPolicy)
}

func TestValidateAndAdjustFillsZeroValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	require.NoError(t, cfg.ValidateAndAdjust())
	require.Equal(t, GetDefaultConfig(), cfg)

	cfg = &Config{Throughput: -1, Executor: &ExecutorConfig{QueueCapacity: -1}}
	require.NoError(t, cfg.ValidateAndAdjust())
	require.Equal(t, 5, cfg.Throughput)
	require.Equal(t, 1024, cfg.Executor.QueueCapacity)
	require.Equal(t, QueueLinked, cfg.Executor.QueueType)
}

func TestValidateAndAdjustRejectsUnknownEnums(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	cfg.MailboxType = "priority"
	require.True(t, cerrors.ErrUnknownMailboxType.Equal(cfg.ValidateAndAdjust()))

	cfg = GetDefaultConfig()
	cfg.Executor.QueueType = "ring"
	require.True(t, cerrors.ErrUnknownQueueType.Equal(cfg.ValidateAndAdjust()))

	cfg = GetDefaultConfig()
	cfg.Executor.RejectionPolicy = "panic"
	require.True(t,
		cerrors.ErrUnknownRejectionPolicy.Equal(cfg.ValidateAndAdjust()))

	cfg = GetDefaultConfig()
	cfg.ThroughputDeadline = TomlDuration(-time.Second)
	require.True(t,
		cerrors.ErrInvalidDispatcherConfig.Equal(cfg.ValidateAndAdjust()))
}

func TestMaxPoolFactorAdjustedToCore(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	cfg.Executor.CorePoolSizeFactor = 8.0
	cfg.Executor.MaxPoolSizeFactor = 2.0
	require.NoError(t, cfg.ValidateAndAdjust())
	require.Equal(t, 8.0, cfg.Executor.MaxPoolSizeFactor)
}

func TestFromTOML(t *testing.T) {
	t.Parallel()

	data := `
throughput = 16
throughput-deadline = "200ms"
mailbox-type = "bounded"
mailbox-capacity = 64
mailbox-push-timeout = "1s"
shutdown-timeout = "5s"

[executor]
core-pool-size-factor = 2.0
max-pool-size-factor = 8.0
keep-alive-time = "30s"
allow-core-timeout = true
queue-type = "array"
queue-capacity = 128
rejection-policy = "abort"
`
	cfg, err := FromTOML([]byte(data))
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateAndAdjust())
	require.Equal(t, 16, cfg.Throughput)
	require.Equal(t, 200*time.Millisecond, cfg.ThroughputDeadline.Duration())
	require.Equal(t, MailboxBounded, cfg.MailboxType)
	require.Equal(t, 64, cfg.MailboxCapacity)
	require.Equal(t, time.Second, cfg.MailboxPushTimeout.Duration())
	require.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Duration())
	require.Equal(t, 2.0, cfg.Executor.CorePoolSizeFactor)
	require.Equal(t, 8.0, cfg.Executor.MaxPoolSizeFactor)
	require.Equal(t, 30*time.Second, cfg.Executor.KeepAliveTime.Duration())
	require.True(t, cfg.Executor.AllowCoreTimeout)
	require.Equal(t, QueueArray, cfg.Executor.QueueType)
	require.Equal(t, 128, cfg.Executor.QueueCapacity)
	require.Equal(t, RejectionAbort, cfg.Executor.RejectionPolicy)
}

func TestFromTOMLRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := FromTOML([]byte(`through-put = 16`))
	require.True(t, cerrors.ErrInvalidDispatcherConfig.Equal(err))
	require.Regexp(t, "through-put", err)
}

func TestFromTOMLRejectsBadDuration(t *testing.T) {
	t.Parallel()

	_, err := FromTOML([]byte(`shutdown-timeout = "fast"`))
	require.True(t, cerrors.ErrInvalidDispatcherConfig.Equal(err))
}

func TestClone(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	clone := cfg.Clone()
	clone.Throughput = 100
	clone.Executor.QueueCapacity = 7
	require.Equal(t, 5, cfg.Throughput)
	require.Equal(t, 1024, cfg.Executor.QueueCapacity)
}
