/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics holds the prometheus collectors for a planner run,
// following the teacher's pkg/metrics counters-per-controller-loop shape.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "postpwn"

var (
	// TasksPlanned counts tasks that survived classification and were
	// assigned a day in the plan.
	TasksPlanned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_planned_total",
		Help:      "Total tasks assigned a date by the planner.",
	})

	// TasksDropped counts tasks dropped during classification (no labels
	// or no matching rule).
	TasksDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_dropped_total",
		Help:      "Total tasks dropped during classification.",
	})

	// TasksUpdated counts successful remote update calls.
	TasksUpdated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_updated_total",
		Help:      "Total tasks successfully rescheduled on the remote service.",
	})

	// TasksFailed counts update calls that exhausted retries.
	TasksFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_update_failed_total",
		Help:      "Total task updates that exhausted retries.",
	})

	// RunDuration observes the wall-clock time of a full planner run.
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a full fetch-classify-plan-dispatch run.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Register adds every collector to reg. Called once at startup; a second
// call would panic on duplicate registration, which is intentional - it
// would indicate two planner instances sharing a registry by mistake.
func Register(reg *prometheus.Registry) {
	reg.MustRegister(TasksPlanned, TasksDropped, TasksUpdated, TasksFailed, RunDuration)
}
