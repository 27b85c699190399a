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
	"go.uber.org/atomic"

	"github.com/lucianenache/akka/pkg/dispatch/message"
	cerrors "github.com/lucianenache/akka/pkg/errors"
)

// envelopeSeq numbers every envelope in the process. The sequence is
// only used to seed donation scans, not for ordering.
var envelopeSeq atomic.Uint64

// Envelope pairs one user message with the reference it is addressed
// to. Envelopes are immutable, re-addressing one returns a copy.
type Envelope[T any] struct {
	receiver ActorRef[T]
	message  T
	reply    ReplyChannel
	seq      uint64
}

// NewEnvelope creates an envelope carrying msg to receiver.
// The receiver must not be nil.
func NewEnvelope[T any](receiver ActorRef[T], msg T) (Envelope[T], error) {
	return NewEnvelopeReply(receiver, msg, nil)
}

// NewEnvelopeReply creates an envelope whose processing outcome is
// reported on reply. reply may be nil for fire-and-forget sends.
func NewEnvelopeReply[T any](
	receiver ActorRef[T], msg T, reply ReplyChannel,
) (Envelope[T], error) {
	if receiver == nil {
		return Envelope[T]{}, cerrors.ErrNilReceiver.GenWithStackByArgs()
	}
	return Envelope[T]{
		receiver: receiver,
		message:  msg,
		reply:    reply,
		seq:      envelopeSeq.Inc(),
	}, nil
}

// Receiver returns the reference the envelope is addressed to.
func (e Envelope[T]) Receiver() ActorRef[T] { return e.receiver }

// Message returns the payload.
func (e Envelope[T]) Message() T { return e.message }

// Reply returns the reply channel, nil for fire-and-forget sends.
func (e Envelope[T]) Reply() ReplyChannel { return e.reply }

// withReceiver re-addresses the envelope, used when a balancing
// dispatcher donates it to an idle sibling.
func (e Envelope[T]) withReceiver(r ActorRef[T]) Envelope[T] {
	e.receiver = r
	return e
}

// SystemEnvelope carries one lifecycle message to a reference. It is
// queued on the system lane of the mailbox, ahead of user messages.
type SystemEnvelope[T any] struct {
	receiver ActorRef[T]
	message  message.SystemMessage
	reply    ReplyChannel
}

// NewSystemEnvelope creates a system envelope. The receiver must not
// be nil. reply, which may be nil, completes once the message has been
// processed.
func NewSystemEnvelope[T any](
	receiver ActorRef[T], msg message.SystemMessage, reply ReplyChannel,
) (SystemEnvelope[T], error) {
	if receiver == nil {
		return SystemEnvelope[T]{}, cerrors.ErrNilReceiver.GenWithStackByArgs()
	}
	return SystemEnvelope[T]{receiver: receiver, message: msg, reply: reply}, nil
}

// Receiver returns the reference the envelope is addressed to.
func (e SystemEnvelope[T]) Receiver() ActorRef[T] { return e.receiver }

// Message returns the lifecycle message.
func (e SystemEnvelope[T]) Message() message.SystemMessage { return e.message }

// Reply returns the reply channel, nil if the sender does not wait.
func (e SystemEnvelope[T]) Reply() ReplyChannel { return e.reply }
