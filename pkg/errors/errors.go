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

package errors

import (
	"github.com/pingcap/errors"
)

// errors
var (
	// envelope related errors
	ErrNilReceiver = errors.Normalize(
		"envelope receiver must not be nil",
		errors.RFCCodeText("DISPATCH:ErrNilReceiver"),
	)
	ErrNilTask = errors.Normalize(
		"dispatched task must not be nil",
		errors.RFCCodeText("DISPATCH:ErrNilTask"),
	)

	// mailbox related errors
	ErrMailboxFull = errors.Normalize(
		"mailbox is full, please try again",
		errors.RFCCodeText("DISPATCH:ErrMailboxFull"),
	)
	ErrActorStopped = errors.Normalize(
		"actor is stopped or was never attached",
		errors.RFCCodeText("DISPATCH:ErrActorStopped"),
	)

	// dispatcher related errors
	ErrDispatcherInactive = errors.Normalize(
		"dispatcher has shut down, %s",
		errors.RFCCodeText("DISPATCH:ErrDispatcherInactive"),
	)
	ErrInvalidDispatcherConfig = errors.Normalize(
		"invalid dispatcher configuration: %s",
		errors.RFCCodeText("DISPATCH:ErrInvalidDispatcherConfig"),
	)

	// retry related errors
	ErrReachMaxTry = errors.Normalize(
		"reach maximum try: %s, error: %s",
		errors.RFCCodeText("DISPATCH:ErrReachMaxTry"),
	)

	// executor related errors
	ErrExecutorStopped = errors.Normalize(
		"executor is stopped",
		errors.RFCCodeText("DISPATCH:ErrExecutorStopped"),
	)
	ErrExecutorRejected = errors.Normalize(
		"task rejected by executor, %s",
		errors.RFCCodeText("DISPATCH:ErrExecutorRejected"),
	)
	ErrUnknownQueueType = errors.Normalize(
		"unknown executor queue type: %s",
		errors.RFCCodeText("DISPATCH:ErrUnknownQueueType"),
	)
	ErrUnknownRejectionPolicy = errors.Normalize(
		"unknown executor rejection policy: %s",
		errors.RFCCodeText("DISPATCH:ErrUnknownRejectionPolicy"),
	)
	ErrUnknownMailboxType = errors.Normalize(
		"unknown mailbox type: %s",
		errors.RFCCodeText("DISPATCH:ErrUnknownMailboxType"),
	)
)
