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
	"github.com/pingcap/log"
	"go.uber.org/zap"

	cerrors "github.com/lucianenache/akka/pkg/errors"
)

var errActorStopped = cerrors.ErrActorStopped.FastGenByArgs()

var _ Mailbox[any] = (*deadLetterMailbox[any])(nil)

// deadLetterMailbox terminates delivery for detached actors. Every
// dispatcher owns one permanent instance, installed on a reference at
// detach time. It queues nothing, an enqueue fails the sender and the
// envelope's reply channel, and the mailbox itself never schedules.
type deadLetterMailbox[T any] struct {
	dispatcher string
}

func newDeadLetterMailbox[T any](dispatcher string) *deadLetterMailbox[T] {
	return &deadLetterMailbox[T]{dispatcher: dispatcher}
}

// NumberOfMessages implements Mailbox.NumberOfMessages.
// Dead letters hold nothing, the count is always zero.
func (m *deadLetterMailbox[T]) NumberOfMessages() int { return 0 }

// HasMessages implements Mailbox.HasMessages.
func (m *deadLetterMailbox[T]) HasMessages() bool { return false }

// HasSystemMessages implements Mailbox.HasSystemMessages.
func (m *deadLetterMailbox[T]) HasSystemMessages() bool { return false }

func (m *deadLetterMailbox[T]) enqueue(env Envelope[T]) error {
	deadLetterCount.WithLabelValues(m.dispatcher).Inc()
	log.Warn("message delivered to dead letters",
		zap.String("dispatcher", m.dispatcher),
		zap.String("actor", string(env.Receiver().ID())),
		zap.Reflect("message", env.Message()))
	if r := env.Reply(); r != nil {
		r.Fail(errActorStopped)
	}
	return errActorStopped
}

func (m *deadLetterMailbox[T]) peek() (Envelope[T], bool) {
	return Envelope[T]{}, false
}

func (m *deadLetterMailbox[T]) dequeue() (Envelope[T], bool) {
	return Envelope[T]{}, false
}

func (m *deadLetterMailbox[T]) systemEnqueue(env SystemEnvelope[T]) error {
	// A detached actor has no lifecycle left, the message is dropped.
	// Waiters are failed so they do not block forever.
	log.Debug("lifecycle message dropped on dead letters",
		zap.String("dispatcher", m.dispatcher),
		zap.Stringer("message", env.Message()))
	if r := env.Reply(); r != nil {
		r.Fail(errActorStopped)
	}
	return nil
}

func (m *deadLetterMailbox[T]) systemDequeue() (SystemEnvelope[T], bool) {
	return SystemEnvelope[T]{}, false
}

func (m *deadLetterMailbox[T]) acquire() bool        { return false }
func (m *deadLetterMailbox[T]) release()             {}
func (m *deadLetterMailbox[T]) isScheduled() bool    { return false }
func (m *deadLetterMailbox[T]) canBeScheduled() bool { return false }
func (m *deadLetterMailbox[T]) suspend()             {}
func (m *deadLetterMailbox[T]) resume()              {}
func (m *deadLetterMailbox[T]) isSuspended() bool    { return false }
func (m *deadLetterMailbox[T]) isDeadLetter() bool   { return true }
