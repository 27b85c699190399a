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

package message

import "fmt"

// Type is the type of a SystemMessage.
type Type int

// SystemMessage types. The set is closed, the runtime switches over
// every variant and an unknown type is a programming error.
const (
	TypeNone Type = iota
	TypeCreate
	TypeRecreate
	TypeSuspend
	TypeResume
	TypeTerminate
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeCreate:
		return "create"
	case TypeRecreate:
		return "recreate"
	case TypeSuspend:
		return "suspend"
	case TypeResume:
		return "resume"
	case TypeTerminate:
		return "terminate"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// SystemMessage is a lifecycle control delivered on the system lane of
// a mailbox, ahead of any user message.
type SystemMessage struct {
	Tp Type
	// Cause is the failure that triggered a recreate, nil otherwise.
	Cause error
}

// CreateMessage creates the message of Create.
func CreateMessage() SystemMessage {
	return SystemMessage{Tp: TypeCreate}
}

// RecreateMessage creates the message of Recreate.
// cause is the failure the receiver is restarted for.
func RecreateMessage(cause error) SystemMessage {
	return SystemMessage{Tp: TypeRecreate, Cause: cause}
}

// SuspendMessage creates the message of Suspend.
func SuspendMessage() SystemMessage {
	return SystemMessage{Tp: TypeSuspend}
}

// ResumeMessage creates the message of Resume.
func ResumeMessage() SystemMessage {
	return SystemMessage{Tp: TypeResume}
}

// TerminateMessage creates the message of Terminate.
func TerminateMessage() SystemMessage {
	return SystemMessage{Tp: TypeTerminate}
}

// String implements fmt.Stringer.
func (m SystemMessage) String() string {
	if m.Cause != nil {
		return fmt.Sprintf("%s(%s)", m.Tp, m.Cause)
	}
	return m.Tp.String()
}
