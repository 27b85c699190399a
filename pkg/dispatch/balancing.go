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
	"encoding/binary"
	"hash/fnv"

	"go.uber.org/atomic"
)

// balancingPolicy donates messages from busy members to idle ones.
// Members share the dispatcher, a message addressed to a busy actor
// may be executed by any idle sibling instead.
type balancingPolicy[T any] struct {
	c *core[T]

	// members is an immutable []ActorRef[T] snapshot, replaced under
	// the core guard and read lock-free on every dispatch.
	members atomic.Value
}

var _ policy[any] = (*balancingPolicy[any])(nil)

func (p *balancingPolicy[T]) dispatch(env Envelope[T]) error {
	return p.dispatchDonating(env, false)
}

// dispatchDonating is the balanced user message path. The donating
// flag marks a delivery that already is a donation, it must not seed
// another one.
func (p *balancingPolicy[T]) dispatchDonating(env Envelope[T], donating bool) error {
	if donating {
		return p.c.deliver(env)
	}
	mb := env.Receiver().Mailbox()
	if mb != nil && !mb.isDeadLetter() && (mb.HasMessages() || mb.isScheduled()) {
		if recipient, ok := p.selectRecipient(env.Receiver().ID(), seedOf(env.seq)); ok {
			err := p.dispatchDonating(env.withReceiver(recipient), true)
			if err == nil {
				donatedMessages.WithLabelValues(p.c.name).Inc()
			}
			return err
		}
	}
	return p.c.deliver(env)
}

// afterSweep drains what is left in mb by donating it to idle members.
// The execution lock on mb is still held, so this sweeper is the only
// consumer and the front envelope cannot change under it.
func (p *balancingPolicy[T]) afterSweep(mb Mailbox[T]) {
	if mb.isDeadLetter() || !mb.HasMessages() {
		return
	}
	seed := uint64(p.c.clock.Now().UnixNano())
	for mb.HasMessages() {
		env, ok := mb.peek()
		if !ok {
			return
		}
		recipient, ok := p.selectRecipient(env.Receiver().ID(), seed)
		if !ok {
			return
		}
		if err := p.dispatchDonating(env.withReceiver(recipient), true); err != nil {
			// The donated copy was refused, the original is still
			// queued here for this actor's next sweep.
			return
		}
		mb.dequeue()
		donatedMessages.WithLabelValues(p.c.name).Inc()
	}
}

func (p *balancingPolicy[T]) attached(ref ActorRef[T]) {
	old := p.loadMembers()
	next := make([]ActorRef[T], 0, len(old)+1)
	next = append(next, old...)
	next = append(next, ref)
	p.members.Store(next)
}

func (p *balancingPolicy[T]) detached(ref ActorRef[T]) {
	old := p.loadMembers()
	next := make([]ActorRef[T], 0, len(old))
	for _, r := range old {
		if r.ID() != ref.ID() {
			next = append(next, r)
		}
	}
	p.members.Store(next)
}

// selectRecipient scans the member snapshot for an idle sibling,
// starting at a seed-derived offset so repeated donations spread over
// the membership instead of hammering member zero. The donor itself,
// detached members and members with pending or executing work never
// receive.
func (p *balancingPolicy[T]) selectRecipient(donor ID, seed uint64) (ActorRef[T], bool) {
	members := p.loadMembers()
	n := len(members)
	if n < 2 {
		return nil, false
	}
	start := int(seed % uint64(n))
	for i := 0; i < n; i++ {
		ref := members[(start+i)%n]
		if ref.ID() == donor {
			continue
		}
		mb := ref.Mailbox()
		if mb == nil || mb.isDeadLetter() {
			continue
		}
		if !mb.HasMessages() && !mb.isScheduled() {
			return ref, true
		}
	}
	return nil, false
}

func (p *balancingPolicy[T]) loadMembers() []ActorRef[T] {
	v := p.members.Load()
	if v == nil {
		return nil
	}
	return v.([]ActorRef[T])
}

// seedOf spreads consecutive envelope sequence numbers over the
// member ring.
func seedOf(seq uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seq)
	h := fnv.New64()
	h.Write(buf[:])
	return h.Sum64()
}
