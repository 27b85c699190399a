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

package uuid

import (
	"sync"

	"github.com/pingcap/log"
)

// MockGenerator returns pre-seeded uuids in FIFO order. It is safe for
// concurrent use, references may be created from multiple goroutines.
type MockGenerator struct {
	mu   sync.Mutex
	list []string
}

// NewMock creates a MockGenerator seeded with the given uuids.
func NewMock(uuids ...string) *MockGenerator {
	return &MockGenerator{list: uuids}
}

// NewString implements Generator.NewString.
func (g *MockGenerator) NewString() (ret string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.list) == 0 {
		log.Panic("empty uuid list, seed the generator or call Push first")
	}

	ret, g.list = g.list[0], g.list[1:]
	return
}

// Push appends a candidate uuid to the FIFO list.
func (g *MockGenerator) Push(uuid string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.list = append(g.list, uuid)
}

// ConstGenerator always returns the same pre-defined uuid.
type ConstGenerator struct {
	uid string
}

// NewConstGenerator creates a ConstGenerator with a fixed uuid.
func NewConstGenerator(uid string) *ConstGenerator {
	return &ConstGenerator{uid: uid}
}

// NewString implements Generator.NewString.
func (g *ConstGenerator) NewString() string {
	return g.uid
}
