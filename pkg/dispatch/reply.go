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
	"context"

	"github.com/pingcap/errors"
	"go.uber.org/atomic"
)

// ReplyChannel receives the outcome of processing an envelope. Actors
// complete it from their message handler, the runtime fails it when
// the envelope cannot be delivered anymore.
type ReplyChannel interface {
	Complete(v any)
	Fail(err error)
}

// ReplyFuture is a one-shot ReplyChannel. The first Complete or Fail
// wins, later calls are no-ops.
type ReplyFuture struct {
	resolved atomic.Bool
	done     chan struct{}
	value    any
	err      error
}

var _ ReplyChannel = (*ReplyFuture)(nil)

// NewReplyFuture creates an unresolved ReplyFuture.
func NewReplyFuture() *ReplyFuture {
	return &ReplyFuture{done: make(chan struct{})}
}

// Complete implements ReplyChannel.Complete.
func (f *ReplyFuture) Complete(v any) {
	if !f.resolved.CAS(false, true) {
		return
	}
	f.value = v
	close(f.done)
}

// Fail implements ReplyChannel.Fail.
func (f *ReplyFuture) Fail(err error) {
	if !f.resolved.CAS(false, true) {
		return
	}
	f.err = err
	close(f.done)
}

// Result blocks until the future resolves or ctx is done.
func (f *ReplyFuture) Result(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Trace(ctx.Err())
	case <-f.done:
		return f.value, f.err
	}
}
