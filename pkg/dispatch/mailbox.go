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
	"sync"
	"time"

	"github.com/edwingeng/deque"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	cerrors "github.com/lucianenache/akka/pkg/errors"
)

var errMailboxFull = cerrors.ErrMailboxFull.FastGenByArgs()

// Execution lock states.
const (
	mailboxIdle int32 = iota
	mailboxScheduled
)

// Mailbox queues envelopes for one actor. A mailbox has two lanes, the
// user lane that may be bounded and the system lane that never is.
// Mailbox is threadsafe.
type Mailbox[T any] interface {
	// NumberOfMessages returns the user lane length.
	NumberOfMessages() int
	// HasMessages reports whether the user lane is non-empty.
	HasMessages() bool
	// HasSystemMessages reports whether the system lane is non-empty.
	HasSystemMessages() bool

	// enqueue adds a user envelope. Bounded mailboxes wait up to the
	// push timeout for room and fail with ErrMailboxFull after it.
	enqueue(env Envelope[T]) error
	// peek returns the front user envelope without removing it.
	// It should only be called while holding the execution lock.
	peek() (Envelope[T], bool)
	// dequeue removes and returns the front user envelope.
	// It should only be called while holding the execution lock.
	dequeue() (Envelope[T], bool)
	// systemEnqueue adds a lifecycle envelope, never blocking.
	systemEnqueue(env SystemEnvelope[T]) error
	// systemDequeue removes and returns the front lifecycle envelope.
	// It should only be called while holding the execution lock.
	systemDequeue() (SystemEnvelope[T], bool)

	// acquire claims the execution lock. At most one goroutine holds
	// it, a second acquire fails until release.
	acquire() bool
	// release returns the execution lock.
	release()
	// isScheduled reports whether some goroutine holds the lock.
	isScheduled() bool

	// canBeScheduled reports whether a sweep would find deliverable
	// work, lifecycle messages always, user messages only while not
	// suspended.
	canBeScheduled() bool

	// suspend gates user message processing. Calls nest.
	suspend()
	// resume removes one suspension, the count floors at zero.
	resume()
	// isSuspended reports whether the user lane is gated.
	isSuspended() bool

	// isDeadLetter reports whether this is the dead-letter mailbox.
	isDeadLetter() bool
}

var _ Mailbox[any] = (*queueMailbox[any])(nil)

// queueMailbox is the default mailbox. Both lanes are deques under one
// mutex, the optional capacity bound of the user lane is enforced with
// a semaphore so a full enqueue can wait for room without holding the
// queue mutex.
type queueMailbox[T any] struct {
	mu     sync.Mutex
	user   deque.Deque
	system deque.Deque

	state    atomic.Int32
	suspends atomic.Int32

	// sem is nil for unbounded mailboxes.
	sem         *semaphore.Weighted
	pushTimeout time.Duration
}

func newQueueMailbox[T any](capacity int, pushTimeout time.Duration) *queueMailbox[T] {
	mb := &queueMailbox[T]{
		user:        deque.NewDeque(),
		system:      deque.NewDeque(),
		pushTimeout: pushTimeout,
	}
	if capacity > 0 {
		mb.sem = semaphore.NewWeighted(int64(capacity))
	}
	return mb
}

// NumberOfMessages implements Mailbox.NumberOfMessages.
func (m *queueMailbox[T]) NumberOfMessages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.Len()
}

// HasMessages implements Mailbox.HasMessages.
func (m *queueMailbox[T]) HasMessages() bool {
	return m.NumberOfMessages() > 0
}

// HasSystemMessages implements Mailbox.HasSystemMessages.
func (m *queueMailbox[T]) HasSystemMessages() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.system.Len() > 0
}

func (m *queueMailbox[T]) enqueue(env Envelope[T]) error {
	if m.sem != nil {
		if !m.sem.TryAcquire(1) {
			ctx, cancel := context.WithTimeout(
				context.Background(), m.pushTimeout)
			err := m.sem.Acquire(ctx, 1)
			cancel()
			if err != nil {
				return errMailboxFull
			}
		}
	}
	m.mu.Lock()
	m.user.PushBack(env)
	m.mu.Unlock()
	return nil
}

func (m *queueMailbox[T]) peek() (Envelope[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user.Len() == 0 {
		return Envelope[T]{}, false
	}
	return m.user.Front().(Envelope[T]), true
}

func (m *queueMailbox[T]) dequeue() (Envelope[T], bool) {
	m.mu.Lock()
	if m.user.Len() == 0 {
		m.mu.Unlock()
		return Envelope[T]{}, false
	}
	env := m.user.PopFront().(Envelope[T])
	m.mu.Unlock()
	if m.sem != nil {
		m.sem.Release(1)
	}
	return env, true
}

func (m *queueMailbox[T]) systemEnqueue(env SystemEnvelope[T]) error {
	m.mu.Lock()
	m.system.PushBack(env)
	m.mu.Unlock()
	return nil
}

func (m *queueMailbox[T]) systemDequeue() (SystemEnvelope[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.system.Len() == 0 {
		return SystemEnvelope[T]{}, false
	}
	return m.system.PopFront().(SystemEnvelope[T]), true
}

func (m *queueMailbox[T]) acquire() bool {
	return m.state.CAS(mailboxIdle, mailboxScheduled)
}

func (m *queueMailbox[T]) release() {
	m.state.Store(mailboxIdle)
}

func (m *queueMailbox[T]) isScheduled() bool {
	return m.state.Load() == mailboxScheduled
}

func (m *queueMailbox[T]) canBeScheduled() bool {
	if m.HasSystemMessages() {
		return true
	}
	if m.isSuspended() {
		return false
	}
	return m.HasMessages()
}

func (m *queueMailbox[T]) suspend() {
	m.suspends.Inc()
}

func (m *queueMailbox[T]) resume() {
	// The count floors at zero, a stray resume must not unbalance a
	// later suspend.
	for {
		n := m.suspends.Load()
		if n == 0 {
			return
		}
		if m.suspends.CAS(n, n-1) {
			return
		}
	}
}

func (m *queueMailbox[T]) isSuspended() bool {
	return m.suspends.Load() > 0
}

func (m *queueMailbox[T]) isDeadLetter() bool { return false }
