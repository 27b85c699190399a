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

func TestNewEnvelope(t *testing.T) {
	t.Parallel()

	ref := NewLocalRef[string](nil, func(env Envelope[string]) {})
	env, err := NewEnvelope(ref, "hello")
	require.NoError(t, err)
	require.Equal(t, ref.ID(), env.Receiver().ID())
	require.Equal(t, "hello", env.Message())
	require.Nil(t, env.Reply())

	_, err = NewEnvelope[string](nil, "hello")
	require.True(t, cerrors.ErrNilReceiver.Equal(errors.Cause(err)))
}

func TestEnvelopeSeqIncreases(t *testing.T) {
	t.Parallel()

	ref := NewLocalRef[int](nil, func(env Envelope[int]) {})
	first, err := NewEnvelope(ref, 1)
	require.NoError(t, err)
	second, err := NewEnvelope(ref, 2)
	require.NoError(t, err)
	require.Less(t, first.seq, second.seq)
}

func TestEnvelopeWithReceiver(t *testing.T) {
	t.Parallel()

	refA := NewLocalRef[string](nil, func(env Envelope[string]) {})
	refB := NewLocalRef[string](nil, func(env Envelope[string]) {})
	fut := NewReplyFuture()
	env, err := NewEnvelopeReply(refA, "payload", fut)
	require.NoError(t, err)

	donated := env.withReceiver(refB)
	require.Equal(t, refB.ID(), donated.Receiver().ID())
	require.Equal(t, "payload", donated.Message())
	require.Equal(t, env.seq, donated.seq)
	require.Same(t, fut, donated.Reply())
	// The original envelope is untouched.
	require.Equal(t, refA.ID(), env.Receiver().ID())
}

func TestNewSystemEnvelope(t *testing.T) {
	t.Parallel()

	ref := NewLocalRef[string](nil, func(env Envelope[string]) {})
	env, err := NewSystemEnvelope(ref, message.TerminateMessage(), nil)
	require.NoError(t, err)
	require.Equal(t, message.TypeTerminate, env.Message().Tp)
	require.Nil(t, env.Reply())

	_, err = NewSystemEnvelope[string](nil, message.SuspendMessage(), nil)
	require.True(t, cerrors.ErrNilReceiver.Equal(errors.Cause(err)))
}

func TestReplyFutureComplete(t *testing.T) {
	t.Parallel()

	fut := NewReplyFuture()
	fut.Complete("done")
	// The first resolution wins.
	fut.Fail(errors.New("late"))

	v, err := fut.Result(context.Background())
	require.NoError(t, err)
	require.Equal(t, "done", v)
}

func TestReplyFutureFail(t *testing.T) {
	t.Parallel()

	fut := NewReplyFuture()
	fut.Fail(errActorStopped)
	fut.Complete("late")

	v, err := fut.Result(context.Background())
	require.Nil(t, v)
	require.True(t, cerrors.ErrActorStopped.Equal(errors.Cause(err)))
}

func TestReplyFutureResultCanceled(t *testing.T) {
	t.Parallel()

	fut := NewReplyFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := fut.Result(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
