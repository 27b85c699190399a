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

package executor

import (
	"math"
	"runtime"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/edwingeng/deque"
	"github.com/pingcap/failpoint"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lucianenache/akka/pkg/config"
	cerrors "github.com/lucianenache/akka/pkg/errors"
)

const (
	poolCreated int32 = iota
	poolRunning
	poolStopped
)

var _ Executor = (*pool)(nil)

type pool struct {
	name  string
	cfg   *config.ExecutorConfig
	clock clock.Clock

	// core and max are the resolved worker counts,
	// factor * GOMAXPROCS, core >= 1, max >= core.
	core int
	max  int

	state  atomic.Int32
	stopCh chan struct{}

	// taskCh hands tasks to workers. With the "array" queue it is the
	// queue itself, a buffered channel of QueueCapacity. With the
	// "linked" queue it is an unbuffered handoff fed by the pump.
	taskCh chan func()
	// pumpIn receives submissions in "linked" mode. The pump moves
	// them into an unbounded deque and feeds taskCh.
	pumpIn  chan func()
	pending atomic.Int64

	mu   sync.Mutex
	live int

	busy atomic.Int64
	wg   sync.WaitGroup
}

func newPool(name string, cfg *config.ExecutorConfig, clk clock.Clock) *pool {
	procs := runtime.GOMAXPROCS(0)
	core := int(math.Ceil(cfg.CorePoolSizeFactor * float64(procs)))
	if core < 1 {
		core = 1
	}
	max := int(math.Ceil(cfg.MaxPoolSizeFactor * float64(procs)))
	if max < core {
		max = core
	}

	p := &pool{
		name:   name,
		cfg:    cfg,
		clock:  clk,
		core:   core,
		max:    max,
		stopCh: make(chan struct{}),
	}
	switch cfg.QueueType {
	case config.QueueArray:
		p.taskCh = make(chan func(), cfg.QueueCapacity)
	default:
		p.taskCh = make(chan func())
		p.pumpIn = make(chan func())
	}
	return p
}

// Start implements Executor.Start.
func (p *pool) Start() {
	if !p.state.CAS(poolCreated, poolRunning) {
		return
	}
	if p.pumpIn != nil {
		p.wg.Add(1)
		go p.runPump()
	}
	p.mu.Lock()
	for i := 0; i < p.core; i++ {
		p.spawnLocked()
	}
	p.mu.Unlock()
	log.Info("executor pool started",
		zap.String("name", p.name),
		zap.Int("core", p.core), zap.Int("max", p.max))
}

// Execute implements Executor.Execute.
func (p *pool) Execute(f func()) error {
	if f == nil {
		return cerrors.ErrNilTask.GenWithStackByArgs()
	}
	if p.state.Load() != poolRunning {
		return cerrors.ErrExecutorStopped.GenWithStackByArgs()
	}
	failpoint.Inject("ExecutorForceReject", func() {
		failpoint.Return(
			cerrors.ErrExecutorRejected.GenWithStackByArgs(p.name))
	})

	if p.pumpIn != nil {
		select {
		case p.pumpIn <- f:
		case <-p.stopCh:
			return cerrors.ErrExecutorStopped.GenWithStackByArgs()
		}
	} else {
		select {
		case p.taskCh <- f:
		default:
			return p.reject(f)
		}
	}
	submittedTasks.WithLabelValues(p.name).Inc()
	p.maybeSpawn()
	return nil
}

// Shutdown implements Executor.Shutdown.
func (p *pool) Shutdown() {
	if p.state.Swap(poolStopped) == poolStopped {
		return
	}
	close(p.stopCh)
	p.wg.Wait()
	p.mu.Lock()
	dropped := p.queuedLocked()
	p.live = 0
	p.mu.Unlock()
	poolWorkers.WithLabelValues(p.name).Set(0)
	log.Info("executor pool stopped",
		zap.String("name", p.name), zap.Int("droppedTasks", dropped))
}

// reject resolves a submission that found the queue full and every
// worker busy, "array" queue only.
func (p *pool) reject(f func()) error {
	rejectedTasks.WithLabelValues(p.name).Inc()
	switch p.cfg.RejectionPolicy {
	case config.RejectionCallerRuns:
		f()
		return nil
	case config.RejectionDiscardOldest:
		select {
		case <-p.taskCh:
		default:
		}
		select {
		case p.taskCh <- f:
		default:
			// The queue refilled under us, the new task is dropped
			// instead of the oldest one.
		}
		return nil
	case config.RejectionDiscard:
		return nil
	default:
		return cerrors.ErrExecutorRejected.GenWithStackByArgs(p.name)
	}
}

// maybeSpawn adds a worker if the pool is undersized for its load.
// Below core every submission gets a worker, above it one is added
// only when no worker is idle and the ceiling allows.
func (p *pool) maybeSpawn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Load() != poolRunning {
		return
	}
	if p.live < p.core {
		p.spawnLocked()
		return
	}
	if p.live < p.max && p.busy.Load() >= int64(p.live) {
		p.spawnLocked()
	}
}

func (p *pool) spawnLocked() {
	p.live++
	poolWorkers.WithLabelValues(p.name).Inc()
	p.wg.Add(1)
	go p.runWorker()
}

func (p *pool) runWorker() {
	defer p.wg.Done()
	idle := p.clock.Timer(p.cfg.KeepAliveTime.Duration())
	defer idle.Stop()
	for {
		select {
		case f := <-p.taskCh:
			p.busy.Inc()
			busyWorkers.WithLabelValues(p.name).Inc()
			f()
			p.busy.Dec()
			busyWorkers.WithLabelValues(p.name).Dec()
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.cfg.KeepAliveTime.Duration())
		case <-idle.C:
			if p.tryExit() {
				return
			}
			idle.Reset(p.cfg.KeepAliveTime.Duration())
		case <-p.stopCh:
			return
		}
	}
}

// tryExit decides whether an idle worker may leave the pool. Core
// workers stay unless AllowCoreTimeout, and the last worker never
// leaves queued tasks behind.
func (p *pool) tryExit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.cfg.AllowCoreTimeout && p.live <= p.core {
		return false
	}
	if p.queuedLocked() > 0 {
		return false
	}
	p.live--
	// A task may have slipped in between the emptiness check and the
	// decrement, recheck before leaving the pool unmanned.
	if p.live == 0 && p.queuedLocked() > 0 {
		p.live++
		return false
	}
	poolWorkers.WithLabelValues(p.name).Dec()
	return true
}

func (p *pool) queuedLocked() int {
	if p.pumpIn != nil {
		return int(p.pending.Load())
	}
	return len(p.taskCh)
}

// WorkerCount returns the number of live workers.
func (p *pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// runPump implements the unbounded "linked" queue, moving submissions
// into a deque and feeding idle workers from its front.
func (p *pool) runPump() {
	defer p.wg.Done()
	pending := deque.NewDeque()
	for {
		if pending.Len() == 0 {
			select {
			case f := <-p.pumpIn:
				pending.PushBack(f)
				p.pending.Store(int64(pending.Len()))
			case <-p.stopCh:
				return
			}
		}
		f := pending.Front().(func())
		select {
		case g := <-p.pumpIn:
			pending.PushBack(g)
			p.pending.Store(int64(pending.Len()))
		case p.taskCh <- f:
			pending.PopFront()
			p.pending.Store(int64(pending.Len()))
		case <-p.stopCh:
			return
		}
	}
}
