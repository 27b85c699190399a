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

package syncutil

import (
	"context"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pingcap/errors"
)

// Cond is a condition variable whose wait can be canceled through a
// context. Waiters block on a channel that Broadcast swaps out and
// closes, so a Broadcast racing a waiter between unlock and receive
// is still observed.
type Cond struct {
	L  sync.Locker
	ch unsafe.Pointer
}

// NewCond returns a condition variable bound to l.
func NewCond(l sync.Locker) *Cond {
	ch := make(chan struct{})
	return &Cond{
		L:  l,
		ch: unsafe.Pointer(&ch),
	}
}

// Wait blocks until the next Broadcast. L must be held, it is
// released while waiting and re-acquired before returning.
func (c *Cond) Wait() {
	ch := c.waitChan()
	c.L.Unlock()
	<-ch
	c.L.Lock()
}

// WaitWithContext blocks until the next Broadcast or until ctx is
// canceled. L must be held on entry. It is NOT re-acquired when the
// wait ends with a canceled context.
func (c *Cond) WaitWithContext(ctx context.Context) error {
	ch := c.waitChan()
	c.L.Unlock()
	select {
	case <-ch:
		c.L.Lock()
		return nil
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}

// Broadcast wakes every current waiter. Unlike sync.Cond it may be
// called without holding L.
func (c *Cond) Broadcast() {
	ch := make(chan struct{})
	old := atomic.SwapPointer(&c.ch, unsafe.Pointer(&ch))
	close(*(*chan struct{})(old))
}

func (c *Cond) waitChan() <-chan struct{} {
	ptr := atomic.LoadPointer(&c.ch)
	return *((*chan struct{})(ptr))
}
