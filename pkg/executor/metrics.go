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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	poolWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "akka",
			Subsystem: "executor",
			Name:      "number_of_workers",
			Help:      "The number of live workers in an executor pool.",
		}, []string{"name"})
	busyWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "akka",
			Subsystem: "executor",
			Name:      "number_of_busy_workers",
			Help:      "The number of workers currently running a task.",
		}, []string{"name"})
	submittedTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akka",
			Subsystem: "executor",
			Name:      "submitted_tasks_total",
			Help:      "Total number of tasks accepted by an executor pool.",
		}, []string{"name"})
	rejectedTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akka",
			Subsystem: "executor",
			Name:      "rejected_tasks_total",
			Help:      "Total number of tasks that found the queue full.",
		}, []string{"name"})
)

// InitMetrics registers all metrics in this file.
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(poolWorkers)
	registry.MustRegister(busyWorkers)
	registry.MustRegister(submittedTasks)
	registry.MustRegister(rejectedTasks)
}
