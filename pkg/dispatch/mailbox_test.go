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

package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/require"

	"github.com/lucianenache/akka/pkg/dispatch/message"
	cerrors "github.com/lucianenache/akka/pkg/errors"
)

func mustEnvelope(t *testing.T, ref ActorRef[string], msg string) Envelope[string] {
	env, err := NewEnvelope(ref, msg)
	require.NoError(t, err)
	return env
}

func TestMailboxFIFO(t *testing.T) {
	t.Parallel()

	ref := NewLocalRef[string](nil, func(env Envelope[string]) {})
	mb := newQueueMailbox[string](0, 0)
	require.False(t, mb.HasMessages())
	require.Equal(t, 0, mb.NumberOfMessages())

	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, mb.enqueue(mustEnvelope(t, ref, msg)))
	}
	require.Equal(t, 3, mb.NumberOfMessages())

	front, ok := mb.peek()
	require.True(t, ok)
	require.Equal(t, "a", front.Message())
	// peek does not remove.
	require.Equal(t, 3, mb.NumberOfMessages())

	for _, want := range []string{"a", "b", "c"} {
		env, ok := mb.dequeue()
		require.True(t, ok)
		require.Equal(t, want, env.Message())
	}
	_, ok = mb.dequeue()
	require.False(t, ok)
}

func TestMailboxBoundedFull(t *testing.T) {
	t.Parallel()

	ref := NewLocalRef[string](nil, func(env Envelope[string]) {})
	mb := newQueueMailbox[string](2, 10*time.Millisecond)
	require.NoError(t, mb.enqueue(mustEnvelope(t, ref, "a")))
	require.NoError(t, mb.enqueue(mustEnvelope(t, ref, "b")))

	err := mb.enqueue(mustEnvelope(t, ref, "c"))
	require.True(t, cerrors.ErrMailboxFull.Equal(errors.Cause(err)))
	require.Equal(t, 2, mb.NumberOfMessages())

	// A dequeue returns the capacity it took.
	_, ok := mb.dequeue()
	require.True(t, ok)
	require.NoError(t, mb.enqueue(mustEnvelope(t, ref, "c")))
}

func TestMailboxBoundedWaitsForRoom(t *testing.T) {
	t.Parallel()

	ref := NewLocalRef[string](nil, func(env Envelope[string]) {})
	mb := newQueueMailbox[string](1, time.Second)
	require.NoError(t, mb.enqueue(mustEnvelope(t, ref, "a")))

	go func() {
		time.Sleep(20 * time.Millisecond)
		mb.dequeue()
	}()
	// The push blocks until the concurrent dequeue frees a slot,
	// well within the push timeout.
	require.NoError(t, mb.enqueue(mustEnvelope(t, ref, "b")))
	env, ok := mb.dequeue()
	require.True(t, ok)
	require.Equal(t, "b", env.Message())
}

func TestMailboxSystemLane(t *testing.T) {
	t.Parallel()

	ref := NewLocalRef[string](nil, func(env Envelope[string]) {})
	// The system lane ignores the user lane capacity.
	mb := newQueueMailbox[string](1, time.Millisecond)
	require.NoError(t, mb.enqueue(mustEnvelope(t, ref, "user")))
	for i := 0; i < 4; i++ {
		se, err := NewSystemEnvelope(ref, message.SuspendMessage(), nil)
		require.NoError(t, err)
		require.NoError(t, mb.systemEnqueue(se))
	}
	require.True(t, mb.HasSystemMessages())
	for i := 0; i < 4; i++ {
		_, ok := mb.systemDequeue()
		require.True(t, ok)
	}
	_, ok := mb.systemDequeue()
	require.False(t, ok)
	require.False(t, mb.HasSystemMessages())
}

func TestMailboxExecutionLock(t *testing.T) {
	t.Parallel()

	mb := newQueueMailbox[string](0, 0)
	require.False(t, mb.isScheduled())
	require.True(t, mb.acquire())
	require.True(t, mb.isScheduled())
	// The lock is exclusive.
	require.False(t, mb.acquire())
	mb.release()
	require.False(t, mb.isScheduled())
	require.True(t, mb.acquire())
	mb.release()
}

func TestMailboxSuspension(t *testing.T) {
	t.Parallel()

	ref := NewLocalRef[string](nil, func(env Envelope[string]) {})
	mb := newQueueMailbox[string](0, 0)
	require.NoError(t, mb.enqueue(mustEnvelope(t, ref, "a")))
	require.True(t, mb.canBeScheduled())

	// Suspensions nest.
	mb.suspend()
	mb.suspend()
	require.True(t, mb.isSuspended())
	require.False(t, mb.canBeScheduled())
	mb.resume()
	require.True(t, mb.isSuspended())
	mb.resume()
	require.False(t, mb.isSuspended())
	require.True(t, mb.canBeScheduled())

	// The count floors at zero, a stray resume does not cancel a
	// later suspend.
	mb.resume()
	mb.suspend()
	require.True(t, mb.isSuspended())
	mb.resume()

	// Lifecycle messages bypass suspension.
	mb.suspend()
	se, err := NewSystemEnvelope(ref, message.ResumeMessage(), nil)
	require.NoError(t, err)
	require.NoError(t, mb.systemEnqueue(se))
	require.True(t, mb.canBeScheduled())
}

func TestMailboxCanBeScheduledEmpty(t *testing.T) {
	t.Parallel()

	mb := newQueueMailbox[string](0, 0)
	require.False(t, mb.canBeScheduled())
	require.False(t, mb.isDeadLetter())
}

func TestDeadLetterMailbox(t *testing.T) {
	t.Parallel()

	ref := NewLocalRef[string](nil, func(env Envelope[string]) {})
	mb := newDeadLetterMailbox[string]("test")
	require.True(t, mb.isDeadLetter())
	require.False(t, mb.canBeScheduled())
	require.False(t, mb.acquire())
	require.Equal(t, 0, mb.NumberOfMessages())

	fut := NewReplyFuture()
	env, err := NewEnvelopeReply(ref, "lost", fut)
	require.NoError(t, err)
	err = mb.enqueue(env)
	require.True(t, cerrors.ErrActorStopped.Equal(errors.Cause(err)))
	// The sender waiting on the reply is failed, not stranded.
	_, err = fut.Result(context.Background())
	require.True(t, cerrors.ErrActorStopped.Equal(errors.Cause(err)))
	require.Equal(t, 0, mb.NumberOfMessages())

	sysFut := NewReplyFuture()
	se, err := NewSystemEnvelope(ref, message.TerminateMessage(), sysFut)
	require.NoError(t, err)
	require.NoError(t, mb.systemEnqueue(se))
	_, err = sysFut.Result(context.Background())
	require.True(t, cerrors.ErrActorStopped.Equal(errors.Cause(err)))
}
