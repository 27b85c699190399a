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
	"sync"

	"github.com/lucianenache/akka/pkg/uuid"
)

// ID is the identity of an actor reference.
type ID string

// ActorRef addresses an actor known to a dispatcher. A reference owns
// no execution of its own, the dispatcher drives Invoke and
// SystemInvoke from its executor workers, one goroutine at a time.
type ActorRef[T any] interface {
	// ID returns the stable identity of the reference.
	ID() ID
	// Mailbox returns the mailbox currently bound to the reference,
	// nil before the first attach.
	Mailbox() Mailbox[T]
	// SetMailbox rebinds the mailbox. Only dispatchers call it, on
	// attach to install a fresh mailbox and on detach to install the
	// dead-letter mailbox.
	SetMailbox(mb Mailbox[T])
	// Invoke handles one user message.
	Invoke(env Envelope[T])
	// SystemInvoke handles one lifecycle message. Returning false
	// stops the current mailbox sweep.
	SystemInvoke(env SystemEnvelope[T]) bool
}

// LocalRef is a ready-made ActorRef driven by handler funcs. The
// zero value is not usable, create one with NewLocalRef.
type LocalRef[T any] struct {
	id        ID
	onMessage func(env Envelope[T])
	onSystem  func(env SystemEnvelope[T]) bool

	mu sync.RWMutex
	mb Mailbox[T]
}

var _ ActorRef[any] = (*LocalRef[any])(nil)

// NewLocalRef creates a reference whose user messages are handled by
// onMessage. gen mints the identity, nil picks a random one.
func NewLocalRef[T any](
	gen uuid.Generator, onMessage func(env Envelope[T]),
) *LocalRef[T] {
	if gen == nil {
		gen = uuid.NewGenerator()
	}
	return &LocalRef[T]{
		id:        ID(gen.NewString()),
		onMessage: onMessage,
	}
}

// SystemHandler installs a handler for lifecycle messages. Without one
// every lifecycle message is acknowledged and the sweep continues.
// It must be called before the reference is attached.
func (r *LocalRef[T]) SystemHandler(
	fn func(env SystemEnvelope[T]) bool,
) *LocalRef[T] {
	r.onSystem = fn
	return r
}

// ID implements ActorRef.ID.
func (r *LocalRef[T]) ID() ID { return r.id }

// Mailbox implements ActorRef.Mailbox.
func (r *LocalRef[T]) Mailbox() Mailbox[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mb
}

// SetMailbox implements ActorRef.SetMailbox.
func (r *LocalRef[T]) SetMailbox(mb Mailbox[T]) {
	r.mu.Lock()
	r.mb = mb
	r.mu.Unlock()
}

// Invoke implements ActorRef.Invoke.
func (r *LocalRef[T]) Invoke(env Envelope[T]) {
	if r.onMessage != nil {
		r.onMessage(env)
	}
}

// SystemInvoke implements ActorRef.SystemInvoke.
func (r *LocalRef[T]) SystemInvoke(env SystemEnvelope[T]) bool {
	if r.onSystem != nil {
		return r.onSystem(env)
	}
	return true
}
