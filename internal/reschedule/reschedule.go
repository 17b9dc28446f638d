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

// Package reschedule wires C1-C6 and C8 together into one planner run:
// fetch, classify, sort, pack, dispatch. This is the orchestration
// original_source's rescheduler.reschedule() performs in one function;
// here it is the seam every component above plugs into.
package reschedule

import (
	"context"
	"time"

	"github.com/postpwn/postpwn/internal/dispatch"
	"github.com/postpwn/postpwn/internal/logging"
	"github.com/postpwn/postpwn/internal/metrics"
	"github.com/postpwn/postpwn/internal/planner"
	"github.com/postpwn/postpwn/internal/retry"
	"github.com/postpwn/postpwn/internal/rules"
	"github.com/postpwn/postpwn/internal/task"
	"github.com/postpwn/postpwn/internal/weighted"
)

// Fetcher is the subset of the external adapter a run needs to fetch tasks.
type Fetcher interface {
	Filter(ctx context.Context, query string) ([]task.Task, error)
}

// Params configures one run.
type Params struct {
	Filter   string
	Rules    *rules.Config
	TimeZone string
	// StartDate overrides "today in TimeZone" when non-zero, for
	// deterministic tests.
	StartDate time.Time
	DryRun    bool
}

// Run executes one fetch -> classify -> sort -> plan -> dispatch cycle.
func Run(ctx context.Context, api Fetcher, dispatchAPI dispatch.API, retrier *retry.Wrapper, p Params) error {
	timer := prometheusTimer()
	defer timer()

	log := logging.FromContext(ctx)

	tasks, err := retry.DoValue(ctx, retrier, "filter_tasks", func(ctx context.Context) ([]task.Task, error) {
		return api.Filter(ctx, p.Filter)
	})
	if err != nil {
		return err
	}
	log.Infow("fetched tasks", "count", len(tasks))

	cfg := p.Rules
	if cfg == nil {
		cfg = rules.Default()
	}

	weightedTasks := weighted.ClassifyAll(ctx, tasks, cfg)
	metrics.TasksDropped.Add(float64(len(tasks) - len(weightedTasks)))

	start := p.StartDate
	if start.IsZero() {
		loc, err := time.LoadLocation(p.TimeZone)
		if err != nil {
			return err
		}
		start = time.Now().In(loc)
		y, m, d := start.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	days := planner.Plan(ctx, weightedTasks, cfg, start)
	metrics.TasksPlanned.Add(float64(len(weightedTasks)))

	transitions := dispatch.Plan(days)
	log.Infow("computed transitions", "count", len(transitions), "dry_run", p.DryRun)

	if err := dispatch.Dispatch(ctx, dispatchAPI, retrier, transitions, p.DryRun); err != nil {
		return err
	}

	return nil
}

func prometheusTimer() func() {
	start := time.Now()
	return func() {
		metrics.RunDuration.Observe(time.Since(start).Seconds())
	}
}
