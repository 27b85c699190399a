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

package leakutil

import (
	"testing"

	"go.uber.org/goleak"
)

// SetUpLeakTest verifies that no goroutine leaks after all tests in a
// package have run. Call it from TestMain.
func SetUpLeakTest(m *testing.M, opts ...goleak.Option) {
	goleak.VerifyTestMain(m, opts...)
}

// VerifyNone verifies that no goroutine leaks at the point of the call.
func VerifyNone(t *testing.T, opts ...goleak.Option) {
	goleak.VerifyNone(t, opts...)
}
