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

package config

import (
	"time"

	"github.com/BurntSushi/toml"
	cerrors "github.com/lucianenache/akka/pkg/errors"
)

// Mailbox types.
const (
	MailboxUnbounded = "unbounded"
	MailboxBounded   = "bounded"
)

// Executor queue types.
const (
	QueueLinked = "linked"
	QueueArray  = "array"
)

// Executor rejection policies.
const (
	RejectionAbort         = "abort"
	RejectionCallerRuns    = "caller-runs"
	RejectionDiscardOldest = "discard-oldest"
	RejectionDiscard       = "discard"
)

// Config represents a dispatcher config.
type Config struct {
	// Throughput is the number of user messages a mailbox may process
	// in one executor acquisition before yielding to its siblings.
	//
	// The default value is 5.
	Throughput int `toml:"throughput" json:"throughput"`
	// ThroughputDeadline caps the wall time of one acquisition.
	// Zero disables the deadline.
	//
	// The default value is 0.
	ThroughputDeadline TomlDuration `toml:"throughput-deadline" json:"throughput-deadline"`
	// MailboxType selects the user lane queue. Valid values are
	// "unbounded" or "bounded". The system lane is always unbounded.
	//
	// The default value is "unbounded".
	MailboxType string `toml:"mailbox-type" json:"mailbox-type"`
	// MailboxCapacity is the user lane capacity of a bounded mailbox.
	//
	// The default value is 1000.
	MailboxCapacity int `toml:"mailbox-capacity" json:"mailbox-capacity"`
	// MailboxPushTimeout is how long an enqueue on a full bounded
	// mailbox waits for room before failing.
	//
	// The default value is 10s.
	MailboxPushTimeout TomlDuration `toml:"mailbox-push-timeout" json:"mailbox-push-timeout"`
	// ShutdownTimeout is how long a dispatcher stays idle, no attached
	// actors and no in-flight tasks, before releasing its executor.
	//
	// The default value is 1s.
	ShutdownTimeout TomlDuration `toml:"shutdown-timeout" json:"shutdown-timeout"`
	// Executor configures the goroutine pool backing the dispatcher.
	Executor *ExecutorConfig `toml:"executor" json:"executor"`
}

// ExecutorConfig represents an executor pool config.
type ExecutorConfig struct {
	// CorePoolSizeFactor scales GOMAXPROCS into the number of workers
	// kept alive while the pool is idle.
	//
	// The default value is 1.0.
	CorePoolSizeFactor float64 `toml:"core-pool-size-factor" json:"core-pool-size-factor"`
	// MaxPoolSizeFactor scales GOMAXPROCS into the worker ceiling.
	//
	// The default value is 4.0.
	MaxPoolSizeFactor float64 `toml:"max-pool-size-factor" json:"max-pool-size-factor"`
	// KeepAliveTime is how long a surplus worker stays idle before it
	// exits.
	//
	// The default value is 60s.
	KeepAliveTime TomlDuration `toml:"keep-alive-time" json:"keep-alive-time"`
	// AllowCoreTimeout lets core workers exit on idle too, shrinking
	// the pool to zero.
	//
	// The default value is false.
	AllowCoreTimeout bool `toml:"allow-core-timeout" json:"allow-core-timeout"`
	// QueueType selects the pending task queue. Valid values are
	// "linked", unbounded, or "array", a fixed ring of QueueCapacity.
	//
	// The default value is "linked".
	QueueType string `toml:"queue-type" json:"queue-type"`
	// QueueCapacity is the size of the "array" queue.
	//
	// The default value is 1024.
	QueueCapacity int `toml:"queue-capacity" json:"queue-capacity"`
	// RejectionPolicy decides what happens to a task submitted while
	// the queue is full and all workers are busy. Valid values are
	// "abort", "caller-runs", "discard-oldest" or "discard".
	//
	// The default value is "caller-runs".
	RejectionPolicy string `toml:"rejection-policy" json:"rejection-policy"`
}

// GetDefaultConfig returns the default dispatcher config.
func GetDefaultConfig() *Config {
	return &Config{
		Throughput:         5,
		ThroughputDeadline: 0,
		MailboxType:        MailboxUnbounded,
		MailboxCapacity:    1000,
		MailboxPushTimeout: TomlDuration(10 * time.Second),
		ShutdownTimeout:    TomlDuration(time.Second),
		Executor: &ExecutorConfig{
			CorePoolSizeFactor: 1.0,
			MaxPoolSizeFactor:  4.0,
			KeepAliveTime:      TomlDuration(60 * time.Second),
			AllowCoreTimeout:   false,
			QueueType:          QueueLinked,
			QueueCapacity:      1024,
			RejectionPolicy:    RejectionCallerRuns,
		},
	}
}

// ValidateAndAdjust validates and adjusts the dispatcher configuration.
func (c *Config) ValidateAndAdjust() error {
	if c.Throughput <= 0 {
		c.Throughput = 5
	}
	if c.ThroughputDeadline < 0 {
		return cerrors.ErrInvalidDispatcherConfig.GenWithStackByArgs(
			"throughput-deadline must not be negative")
	}
	switch c.MailboxType {
	case "":
		c.MailboxType = MailboxUnbounded
	case MailboxUnbounded, MailboxBounded:
	default:
		return cerrors.ErrUnknownMailboxType.GenWithStackByArgs(c.MailboxType)
	}
	if c.MailboxCapacity <= 0 {
		c.MailboxCapacity = 1000
	}
	if c.MailboxPushTimeout <= 0 {
		c.MailboxPushTimeout = TomlDuration(10 * time.Second)
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = TomlDuration(time.Second)
	}
	if c.Executor == nil {
		c.Executor = GetDefaultConfig().Executor
	}
	return c.Executor.ValidateAndAdjust()
}

// ValidateAndAdjust validates and adjusts the executor configuration.
func (c *ExecutorConfig) ValidateAndAdjust() error {
	if c.CorePoolSizeFactor <= 0 {
		c.CorePoolSizeFactor = 1.0
	}
	if c.MaxPoolSizeFactor < c.CorePoolSizeFactor {
		c.MaxPoolSizeFactor = c.CorePoolSizeFactor
	}
	if c.KeepAliveTime <= 0 {
		c.KeepAliveTime = TomlDuration(60 * time.Second)
	}
	switch c.QueueType {
	case "":
		c.QueueType = QueueLinked
	case QueueLinked, QueueArray:
	default:
		return cerrors.ErrUnknownQueueType.GenWithStackByArgs(c.QueueType)
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 1024
	}
	switch c.RejectionPolicy {
	case "":
		c.RejectionPolicy = RejectionCallerRuns
	case RejectionAbort, RejectionCallerRuns, RejectionDiscardOldest, RejectionDiscard:
	default:
		return cerrors.ErrUnknownRejectionPolicy.GenWithStackByArgs(c.RejectionPolicy)
	}
	return nil
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Executor != nil {
		executor := *c.Executor
		clone.Executor = &executor
	}
	return &clone
}

// FromTOML decodes a dispatcher config from toml data. Unknown keys
// are rejected so typos do not silently fall back to defaults.
func FromTOML(data []byte) (*Config, error) {
	cfg := GetDefaultConfig()
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, cerrors.ErrInvalidDispatcherConfig.Wrap(err).
			GenWithStackByArgs("decode toml")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := ""
		for i, k := range undecoded {
			if i > 0 {
				keys += ", "
			}
			keys += k.String()
		}
		return nil, cerrors.ErrInvalidDispatcherConfig.GenWithStackByArgs(
			"unknown keys: " + keys)
	}
	return cfg, nil
}
