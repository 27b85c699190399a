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

package dispatch

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// ErrorSink receives failures that have no caller left to return to,
// task bodies that errored or panicked and terminal scheduling
// failures. Implementations must be threadsafe.
type ErrorSink interface {
	OnError(err error)
}

// logSink is the default ErrorSink, it reports through the process
// logger.
type logSink struct {
	dispatcher string
}

func (s *logSink) OnError(err error) {
	log.Error("dispatcher background failure",
		zap.String("dispatcher", s.dispatcher), zap.Error(err))
}

// taskInvocation runs one dispatched task. The body's outcome is a
// value consumed here, an error never unwinds into the executor
// worker. Cleanup runs whatever the body does, it keeps the task
// counter exact so idle shutdown can trust it.
type taskInvocation[T any] struct {
	f func() error
	c *core[T]
}

func (inv *taskInvocation[T]) run() {
	defer inv.c.taskCleanup()
	err := inv.invoke()
	if err != nil {
		inv.c.sink.OnError(err)
	}
}

func (inv *taskInvocation[T]) invoke() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task panicked: %v", r)
		}
	}()
	return inv.f()
}
