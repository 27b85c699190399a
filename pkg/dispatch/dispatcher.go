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

	"github.com/benbjohnson/clock"
	"github.com/pingcap/errors"
	"github.com/pingcap/failpoint"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lucianenache/akka/pkg/config"
	"github.com/lucianenache/akka/pkg/dispatch/message"
	cerrors "github.com/lucianenache/akka/pkg/errors"
	"github.com/lucianenache/akka/pkg/executor"
	"github.com/lucianenache/akka/pkg/retry"
	"github.com/lucianenache/akka/pkg/syncutil"
)

// Idle shutdown machine states, guarded by core.guard.
const (
	shutdownUnscheduled int32 = iota
	shutdownScheduled
	shutdownRescheduled
)

const (
	submitBackoffBaseInMs = 1
	submitMaxTries        = 25
)

// Dispatcher routes envelopes to actor mailboxes and drives their
// processing on an executor pool. There are exactly two
// implementations, the plain dispatcher and the balancing dispatcher,
// both built by Builder. All methods are threadsafe.
type Dispatcher[T any] interface {
	// Name returns the dispatcher name used in logs and metrics.
	Name() string
	// Attach registers a reference, installing a fresh mailbox unless
	// the reference already carries a live one. Attaching to an idle
	// dispatcher restarts its executor. Attach is idempotent.
	Attach(ref ActorRef[T]) error
	// Detach removes a reference and swaps its mailbox for the
	// dispatcher's dead-letter mailbox. Pending envelopes are flushed
	// to dead letters. Detaching an unknown reference is a no-op.
	Detach(ref ActorRef[T]) error
	// Dispatch delivers one user envelope.
	Dispatch(env Envelope[T]) error
	// SystemDispatch delivers one lifecycle envelope. The system lane
	// is never bounded and suspension does not gate it.
	SystemDispatch(env SystemEnvelope[T]) error
	// DispatchTask runs f on the executor pool, outside any mailbox.
	// A submission failure is returned to the caller, a failure of f
	// itself goes to the ErrorSink.
	DispatchTask(f func() error) error
	// Suspend gates user message processing for ref. Calls nest.
	Suspend(ref ActorRef[T])
	// Resume removes one suspension and reschedules pending work.
	Resume(ref ActorRef[T])
	// MailboxSize returns the user lane length of ref's mailbox.
	MailboxSize(ref ActorRef[T]) int
	// MailboxIsEmpty reports whether ref's user lane is empty.
	MailboxIsEmpty(ref ActorRef[T]) bool
	// Tasks returns the number of in-flight dispatched tasks.
	Tasks() int64
	// Active reports whether the executor is running. A dispatcher
	// activates on first attach and deactivates after staying idle
	// for the configured shutdown timeout.
	Active() bool
	// AwaitShutdown blocks until the dispatcher deactivates.
	AwaitShutdown(ctx context.Context) error
}

// policy carries the steps that differ between the two dispatcher
// variants. The set is closed, everything else in core is shared
// infrastructure and not overridable.
type policy[T any] interface {
	// dispatch implements the variant's user message path.
	dispatch(env Envelope[T]) error
	// afterSweep runs after a mailbox sweep, while the execution lock
	// is still held.
	afterSweep(mb Mailbox[T])
	// attached and detached run under the registration guard.
	attached(ref ActorRef[T])
	detached(ref ActorRef[T])
}

var _ Dispatcher[any] = (*core[any])(nil)

// core is the shared dispatcher machinery, registration, scheduling,
// the sweep loop and the idle shutdown machine. The variant policy is
// plugged in by the builder.
type core[T any] struct {
	name  string
	cfg   *config.Config
	clock clock.Clock
	sink  ErrorSink

	policy policy[T]

	// guard serializes attach, detach, activation and the shutdown
	// machine. It is never held while delivering or sweeping.
	guard    sync.Mutex
	active   bool
	inactive *syncutil.Cond

	// registry holds the attached references as an immutable
	// map[ID]ActorRef[T] snapshot, replaced wholesale under guard.
	registry atomic.Value

	// exec is replaced on restart, execMu keeps readers off a torn
	// swap without dragging them through guard.
	execMu sync.RWMutex
	exec   executor.Executor

	tasks atomic.Int64

	shutdownState int32
	shutdownTimer *clock.Timer

	deadLetters Mailbox[T]
}

// Name implements Dispatcher.Name.
func (c *core[T]) Name() string { return c.name }

// Attach implements Dispatcher.Attach.
func (c *core[T]) Attach(ref ActorRef[T]) error {
	if ref == nil {
		return cerrors.ErrNilReceiver.GenWithStackByArgs()
	}
	c.guard.Lock()
	if !c.active {
		c.restartLocked()
	}
	reg := c.loadRegistry()
	if _, ok := reg[ref.ID()]; ok {
		c.guard.Unlock()
		return nil
	}
	if mb := ref.Mailbox(); mb == nil || mb.isDeadLetter() {
		ref.SetMailbox(c.newMailbox())
	}
	next := make(map[ID]ActorRef[T], len(reg)+1)
	for id, r := range reg {
		next[id] = r
	}
	next[ref.ID()] = ref
	c.registry.Store(next)
	c.policy.attached(ref)
	attachedActors.WithLabelValues(c.name).Inc()
	mb := ref.Mailbox()
	c.guard.Unlock()
	// A re-attached reference may already hold queued messages.
	c.registerForExecution(mb)
	return nil
}

// Detach implements Dispatcher.Detach.
func (c *core[T]) Detach(ref ActorRef[T]) error {
	if ref == nil {
		return cerrors.ErrNilReceiver.GenWithStackByArgs()
	}
	c.guard.Lock()
	reg := c.loadRegistry()
	if _, ok := reg[ref.ID()]; !ok {
		c.guard.Unlock()
		return nil
	}
	next := make(map[ID]ActorRef[T], len(reg)-1)
	for id, r := range reg {
		if id != ref.ID() {
			next[id] = r
		}
	}
	c.registry.Store(next)
	old := ref.Mailbox()
	ref.SetMailbox(c.deadLetters)
	c.policy.detached(ref)
	attachedActors.WithLabelValues(c.name).Dec()
	if c.active && len(next) == 0 && c.tasks.Load() == 0 {
		c.armShutdownLocked()
	}
	c.guard.Unlock()
	if old != nil && !old.isDeadLetter() {
		c.flushToDeadLetters(old)
	}
	return nil
}

// Dispatch implements Dispatcher.Dispatch.
func (c *core[T]) Dispatch(env Envelope[T]) error {
	if env.receiver == nil {
		return cerrors.ErrNilReceiver.GenWithStackByArgs()
	}
	return c.policy.dispatch(env)
}

// SystemDispatch implements Dispatcher.SystemDispatch.
func (c *core[T]) SystemDispatch(env SystemEnvelope[T]) error {
	if env.receiver == nil {
		return cerrors.ErrNilReceiver.GenWithStackByArgs()
	}
	mb := env.Receiver().Mailbox()
	if mb == nil {
		return c.deadLetters.systemEnqueue(env)
	}
	if err := mb.systemEnqueue(env); err != nil {
		return errors.Trace(err)
	}
	c.registerForExecution(mb)
	return nil
}

// DispatchTask implements Dispatcher.DispatchTask.
func (c *core[T]) DispatchTask(f func() error) error {
	if f == nil {
		return cerrors.ErrNilTask.GenWithStackByArgs()
	}
	c.tasks.Inc()
	inflightTasks.WithLabelValues(c.name).Inc()
	inv := &taskInvocation[T]{f: f, c: c}
	if err := c.submit(inv.run); err != nil {
		// The task never ran, roll the counter back and let the
		// caller see the failure. No shutdown arming here, the
		// counter may reach zero only transiently.
		c.tasks.Dec()
		inflightTasks.WithLabelValues(c.name).Dec()
		return errors.Trace(err)
	}
	return nil
}

// taskCleanup runs after every task body, successful or not.
func (c *core[T]) taskCleanup() {
	inflightTasks.WithLabelValues(c.name).Dec()
	if c.tasks.Dec() > 0 {
		return
	}
	c.guard.Lock()
	if c.active && len(c.loadRegistry()) == 0 && c.tasks.Load() == 0 {
		c.armShutdownLocked()
	}
	c.guard.Unlock()
}

// Suspend implements Dispatcher.Suspend.
func (c *core[T]) Suspend(ref ActorRef[T]) {
	if ref == nil {
		return
	}
	if mb := ref.Mailbox(); mb != nil {
		mb.suspend()
	}
}

// Resume implements Dispatcher.Resume.
func (c *core[T]) Resume(ref ActorRef[T]) {
	if ref == nil {
		return
	}
	if mb := ref.Mailbox(); mb != nil {
		mb.resume()
		c.registerForExecution(mb)
	}
}

// MailboxSize implements Dispatcher.MailboxSize.
func (c *core[T]) MailboxSize(ref ActorRef[T]) int {
	if ref == nil {
		return 0
	}
	if mb := ref.Mailbox(); mb != nil {
		return mb.NumberOfMessages()
	}
	return 0
}

// MailboxIsEmpty implements Dispatcher.MailboxIsEmpty.
func (c *core[T]) MailboxIsEmpty(ref ActorRef[T]) bool {
	return c.MailboxSize(ref) == 0
}

// Tasks implements Dispatcher.Tasks.
func (c *core[T]) Tasks() int64 { return c.tasks.Load() }

// Active implements Dispatcher.Active.
func (c *core[T]) Active() bool {
	c.guard.Lock()
	defer c.guard.Unlock()
	return c.active
}

// AwaitShutdown implements Dispatcher.AwaitShutdown.
func (c *core[T]) AwaitShutdown(ctx context.Context) error {
	c.guard.Lock()
	for c.active {
		if err := c.inactive.WaitWithContext(ctx); err != nil {
			// The guard is not held after a canceled wait.
			return errors.Trace(err)
		}
	}
	c.guard.Unlock()
	return nil
}

// deliver enqueues env on its receiver's mailbox and schedules it.
// This is the variant-independent tail of the dispatch path.
func (c *core[T]) deliver(env Envelope[T]) error {
	mb := env.Receiver().Mailbox()
	if mb == nil {
		// Never attached, same treatment as delivery after detach.
		return c.deadLetters.enqueue(env)
	}
	if err := mb.enqueue(env); err != nil {
		return errors.Trace(err)
	}
	c.registerForExecution(mb)
	return nil
}

// registerForExecution submits a sweep for mb unless one is already
// scheduled or the mailbox has nothing deliverable. A saturated
// executor is retried briefly, a terminal failure releases the lock
// and leaves the messages queued for the next trigger.
func (c *core[T]) registerForExecution(mb Mailbox[T]) {
	if !mb.canBeScheduled() {
		return
	}
	if !mb.acquire() {
		return
	}
	c.execMu.RLock()
	pool := c.exec
	c.execMu.RUnlock()
	if pool == nil {
		// Inactive dispatcher, messages stay queued until the next
		// attach restarts the executor.
		mb.release()
		return
	}
	run := func() { c.processMailbox(mb) }
	err := pool.Execute(run)
	if err != nil && isRetryableSubmit(err) {
		err = retry.Do(context.Background(), func() error {
			return errors.Trace(pool.Execute(run))
		}, retry.WithBackoffBaseDelay(submitBackoffBaseInMs),
			retry.WithMaxTries(submitMaxTries),
			retry.WithIsRetryableErr(isRetryableSubmit))
	}
	if err != nil {
		mb.release()
		c.sink.OnError(errors.Trace(err))
	}
}

func isRetryableSubmit(err error) bool {
	return cerrors.ErrExecutorRejected.Equal(errors.Cause(err))
}

// submit runs f on the executor without claiming any execution lock,
// the DispatchTask path.
func (c *core[T]) submit(f func()) error {
	c.execMu.RLock()
	pool := c.exec
	c.execMu.RUnlock()
	if pool == nil {
		return cerrors.ErrDispatcherInactive.GenWithStackByArgs(c.name)
	}
	return errors.Trace(pool.Execute(f))
}

// processMailbox is the unit of work handed to the executor, one sweep
// of one mailbox under its execution lock.
func (c *core[T]) processMailbox(mb Mailbox[T]) {
	defer c.finishSweep(mb)
	c.sweep(mb)
}

func (c *core[T]) sweep(mb Mailbox[T]) {
	defer func() {
		if r := recover(); r != nil {
			c.sink.OnError(errors.Errorf("mailbox sweep panicked: %v", r))
		}
	}()
	if !c.drainSystem(mb) {
		return
	}
	if mb.isSuspended() {
		return
	}
	var deadline time.Time
	if d := c.cfg.ThroughputDeadline.Duration(); d > 0 {
		deadline = c.clock.Now().Add(d)
	}
	for i := 0; i < c.cfg.Throughput; i++ {
		// Lifecycle messages overtake user messages even mid-sweep.
		if !c.drainSystem(mb) {
			return
		}
		if mb.isSuspended() {
			return
		}
		env, ok := mb.dequeue()
		if !ok {
			return
		}
		env.Receiver().Invoke(env)
		processedMessages.WithLabelValues(c.name).Inc()
		if !deadline.IsZero() && c.clock.Now().After(deadline) {
			return
		}
	}
}

// drainSystem empties the system lane. Returning false ends the sweep,
// the actor terminated.
func (c *core[T]) drainSystem(mb Mailbox[T]) bool {
	for {
		se, ok := mb.systemDequeue()
		if !ok {
			return true
		}
		if !c.invokeSystem(mb, se) {
			return false
		}
	}
}

func (c *core[T]) invokeSystem(mb Mailbox[T], se SystemEnvelope[T]) bool {
	ref := se.Receiver()
	switch se.Message().Tp {
	case message.TypeSuspend:
		mb.suspend()
	case message.TypeResume:
		mb.resume()
	}
	cont := ref.SystemInvoke(se)
	if se.Message().Tp == message.TypeTerminate {
		if err := c.Detach(ref); err != nil {
			c.sink.OnError(errors.Trace(err))
		}
		if r := se.Reply(); r != nil {
			r.Complete(nil)
		}
		return false
	}
	if r := se.Reply(); r != nil {
		r.Complete(nil)
	}
	return cont
}

// finishSweep runs the variant hook while the execution lock is still
// held, then releases it. The final recheck closes the window where a
// message lands between the last dequeue and the release.
func (c *core[T]) finishSweep(mb Mailbox[T]) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				c.sink.OnError(
					errors.Errorf("post-sweep hook panicked: %v", r))
			}
		}()
		c.policy.afterSweep(mb)
	}()
	mb.release()
	c.registerForExecution(mb)
}

// flushToDeadLetters drains a detached mailbox so no sender keeps
// waiting on a reply that will never come.
func (c *core[T]) flushToDeadLetters(mb Mailbox[T]) {
	for {
		env, ok := mb.dequeue()
		if !ok {
			break
		}
		_ = c.deadLetters.enqueue(env)
	}
	for {
		se, ok := mb.systemDequeue()
		if !ok {
			break
		}
		_ = c.deadLetters.systemEnqueue(se)
	}
}

func (c *core[T]) newMailbox() Mailbox[T] {
	capacity := 0
	if c.cfg.MailboxType == config.MailboxBounded {
		capacity = c.cfg.MailboxCapacity
	}
	return newQueueMailbox[T](capacity, c.cfg.MailboxPushTimeout.Duration())
}

func (c *core[T]) loadRegistry() map[ID]ActorRef[T] {
	v := c.registry.Load()
	if v == nil {
		return nil
	}
	return v.(map[ID]ActorRef[T])
}

// restartLocked builds and starts a fresh executor pool. Callers hold
// guard.
func (c *core[T]) restartLocked() {
	pool := executor.NewPoolWithClock(c.name, c.cfg.Executor, c.clock)
	pool.Start()
	c.execMu.Lock()
	c.exec = pool
	c.execMu.Unlock()
	c.active = true
	c.shutdownState = shutdownUnscheduled
	log.Info("dispatcher started", zap.String("name", c.name))
}

// armShutdownLocked notes that the dispatcher just became idle.
// Arming while a timer is pending only coalesces, the timer is never
// stacked. Callers hold guard.
func (c *core[T]) armShutdownLocked() {
	switch c.shutdownState {
	case shutdownUnscheduled:
		c.shutdownState = shutdownScheduled
		d := c.cfg.ShutdownTimeout.Duration()
		if c.shutdownTimer == nil {
			c.shutdownTimer = c.clock.AfterFunc(d, c.shutdownAction)
		} else {
			c.shutdownTimer.Reset(d)
		}
	case shutdownScheduled:
		c.shutdownState = shutdownRescheduled
	case shutdownRescheduled:
		// Already pending a re-arm, nothing to record.
	}
}

// shutdownAction fires when the idle timer expires. It re-checks
// idleness under guard, a dispatcher that got new work since arming
// stays up.
func (c *core[T]) shutdownAction() {
	failpoint.Inject("InjectSkipIdleShutdown", func() {
		failpoint.Return()
	})
	c.guard.Lock()
	switch c.shutdownState {
	case shutdownRescheduled:
		c.shutdownState = shutdownScheduled
		c.shutdownTimer.Reset(c.cfg.ShutdownTimeout.Duration())
		c.guard.Unlock()
	case shutdownScheduled:
		var pool executor.Executor
		if c.active && len(c.loadRegistry()) == 0 && c.tasks.Load() == 0 {
			c.active = false
			c.execMu.Lock()
			pool = c.exec
			c.exec = nil
			c.execMu.Unlock()
			shutdownsTotal.WithLabelValues(c.name).Inc()
			c.inactive.Broadcast()
			log.Info("dispatcher stopped on idle",
				zap.String("name", c.name))
		}
		c.shutdownState = shutdownUnscheduled
		c.guard.Unlock()
		if pool != nil {
			// Shutdown waits for in-flight sweeps, keep guard free.
			pool.Shutdown()
		}
	default:
		c.guard.Unlock()
	}
}

type plainPolicy[T any] struct{ c *core[T] }

var _ policy[any] = (*plainPolicy[any])(nil)

func (p *plainPolicy[T]) dispatch(env Envelope[T]) error {
	return p.c.deliver(env)
}

func (p *plainPolicy[T]) afterSweep(Mailbox[T]) {}
func (p *plainPolicy[T]) attached(ActorRef[T])  {}
func (p *plainPolicy[T]) detached(ActorRef[T])  {}
