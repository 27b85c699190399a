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

// Package dispatch implements typed message dispatchers for actors.
// A dispatcher owns the mailboxes of the references attached to it
// and drives them on a shared executor pool. Sending never blocks on
// actor execution, each mailbox is swept by at most one worker at a
// time, and the balancing variant may redirect a message addressed to
// a busy actor to an idle sibling.
//
// The following diagram shows one user message from send to invoke.
//
//	,------.      ,----------.      ,-------.       ,----.      ,-----.
//	|Sender|      |Dispatcher|      |Mailbox|       |Pool|      |Actor|
//	`--+---'      `----+-----'      `---+---'       `-+--'      `--+--'
//	   | Dispatch(env) |                |             |            |
//	   | ------------->|                |             |            |
//	   |               |                |             |            |
//	   |               |----.           |             |            |
//	   |               |    | donate?   |             |            |
//	   |               |<---'           |             |            |
//	   |               |                |             |            |
//	   |               | enqueue(env)   |             |            |
//	   |               | -------------->|             |            |
//	   |               |                |             |            |
//	   |               | acquire()      |             |            |
//	   |               | -------------->|             |            |
//	   |               |                |             |            |
//	   |               | Execute(sweep) |             |            |
//	   |               | --------------- ------------>|            |
//	   |               |                |             |            |
//	   |               |                | dequeue()   |            |
//	   |               |                |<------------|            |
//	   |               |                |             |            |
//	   |               |                |             | Invoke(env)|
//	   |               |                |             | ---------->|
//	   |               |                |             |            |
//	   |               |                | release()   |            |
//	   |               |                |<------------|            |
//	,--+---.      ,----+-----.      ,---+---.       ,-+--.      ,--+--.
//	|Sender|      |Dispatcher|      |Mailbox|       |Pool|      |Actor|
//	`------'      `----------'      `-------'       `----'      `-----'
//
// The donate? step only exists on the balancing dispatcher. A sweep
// dequeues up to Throughput user messages and always drains the
// system lane first. After release the dispatcher rechecks the
// mailbox, a message that raced the release is rescheduled instead of
// stranded.
//
// A dispatcher starts its pool on the first attach and stops it again
// after staying empty for ShutdownTimeout. Attaching afterwards
// restarts it.
package dispatch
