// Copyright 2023 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.
package message

import (
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	t.Parallel()

	require.Equal(t, SystemMessage{Tp: TypeCreate}, CreateMessage())
	require.Equal(t, SystemMessage{Tp: TypeSuspend}, SuspendMessage())
	require.Equal(t, SystemMessage{Tp: TypeResume}, ResumeMessage())
	require.Equal(t, SystemMessage{Tp: TypeTerminate}, TerminateMessage())

	cause := errors.New("boom")
	msg := RecreateMessage(cause)
	require.Equal(t, TypeRecreate, msg.Tp)
	require.Equal(t, cause, msg.Cause)
}

func TestString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "create", CreateMessage().String())
	require.Equal(t, "terminate", TerminateMessage().String())
	require.Equal(t, "recreate(boom)", RecreateMessage(errors.New("boom")).String())
	require.Equal(t, "unknown(42)", Type(42).String())
}
