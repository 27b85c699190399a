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

import "github.com/prometheus/client_golang/prometheus"

var (
	attachedActors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "akka",
			Subsystem: "dispatch",
			Name:      "attached_actors",
			Help:      "The number of actor references attached to the dispatcher.",
		}, []string{"name"})
	processedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akka",
			Subsystem: "dispatch",
			Name:      "processed_messages_total",
			Help:      "The total number of user messages invoked.",
		}, []string{"name"})
	donatedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akka",
			Subsystem: "dispatch",
			Name:      "donated_messages_total",
			Help:      "The total number of messages redirected to an idle member.",
		}, []string{"name"})
	deadLetterCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akka",
			Subsystem: "dispatch",
			Name:      "dead_letters_total",
			Help:      "The total number of messages delivered after detach.",
		}, []string{"name"})
	inflightTasks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "akka",
			Subsystem: "dispatch",
			Name:      "inflight_tasks",
			Help:      "The number of dispatched tasks not yet finished.",
		}, []string{"name"})
	shutdownsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akka",
			Subsystem: "dispatch",
			Name:      "idle_shutdowns_total",
			Help:      "The total number of idle shutdowns performed.",
		}, []string{"name"})
)

// InitMetrics registers all metrics in this file.
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(attachedActors)
	registry.MustRegister(processedMessages)
	registry.MustRegister(donatedMessages)
	registry.MustRegister(deadLetterCount)
	registry.MustRegister(inflightTasks)
	registry.MustRegister(shutdownsTotal)
}
