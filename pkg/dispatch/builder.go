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
	"github.com/benbjohnson/clock"
	"github.com/pingcap/errors"

	"github.com/lucianenache/akka/pkg/config"
	cerrors "github.com/lucianenache/akka/pkg/errors"
	"github.com/lucianenache/akka/pkg/syncutil"
	"github.com/lucianenache/akka/pkg/uuid"
)

// Builder assembles a dispatcher. Unset options fall back to the
// defaults, the configuration is cloned and validated at build time
// so a builder can be reused.
type Builder[T any] struct {
	name string
	cfg  *config.Config
	clk  clock.Clock
	sink ErrorSink
	gen  uuid.Generator
}

// NewBuilder returns a builder for a dispatcher called name.
func NewBuilder[T any](name string) *Builder[T] {
	return &Builder[T]{
		name: name,
		cfg:  config.GetDefaultConfig(),
		clk:  clock.New(),
		gen:  uuid.NewGenerator(),
	}
}

// FromConfig is shorthand for NewBuilder(name).Config(cfg).
func FromConfig[T any](name string, cfg *config.Config) *Builder[T] {
	return NewBuilder[T](name).Config(cfg)
}

// Config replaces the dispatcher configuration.
func (b *Builder[T]) Config(cfg *config.Config) *Builder[T] {
	b.cfg = cfg
	return b
}

// Clock replaces the wall clock, tests pass a mock here.
func (b *Builder[T]) Clock(clk clock.Clock) *Builder[T] {
	b.clk = clk
	return b
}

// ErrorSink replaces the background failure sink. The default sink
// logs at error level.
func (b *Builder[T]) ErrorSink(sink ErrorSink) *Builder[T] {
	b.sink = sink
	return b
}

// UUIDGenerator replaces the identity generator used by NewRef.
func (b *Builder[T]) UUIDGenerator(gen uuid.Generator) *Builder[T] {
	b.gen = gen
	return b
}

// NewRef mints a reference with the builder's identity generator. The
// reference must still be attached before it can receive.
func (b *Builder[T]) NewRef(onMessage func(Envelope[T])) *LocalRef[T] {
	return NewLocalRef(b.gen, onMessage)
}

// Build returns the plain dispatcher.
func (b *Builder[T]) Build() (Dispatcher[T], error) {
	c, err := b.build()
	if err != nil {
		return nil, errors.Trace(err)
	}
	c.policy = &plainPolicy[T]{c: c}
	return c, nil
}

// BuildBalancing returns the work-donating dispatcher.
func (b *Builder[T]) BuildBalancing() (Dispatcher[T], error) {
	c, err := b.build()
	if err != nil {
		return nil, errors.Trace(err)
	}
	c.policy = &balancingPolicy[T]{c: c}
	return c, nil
}

func (b *Builder[T]) build() (*core[T], error) {
	if b.name == "" {
		return nil, cerrors.ErrInvalidDispatcherConfig.
			GenWithStackByArgs("name must not be empty")
	}
	cfg := b.cfg
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}
	cfg = cfg.Clone()
	if err := cfg.ValidateAndAdjust(); err != nil {
		return nil, errors.Trace(err)
	}
	clk := b.clk
	if clk == nil {
		clk = clock.New()
	}
	sink := b.sink
	if sink == nil {
		sink = &logSink{dispatcher: b.name}
	}
	c := &core[T]{
		name:  b.name,
		cfg:   cfg,
		clock: clk,
		sink:  sink,
	}
	c.inactive = syncutil.NewCond(&c.guard)
	c.registry.Store(map[ID]ActorRef[T]{})
	c.deadLetters = newDeadLetterMailbox[T](b.name)
	return c, nil
}
