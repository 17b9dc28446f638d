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

// Package dispatch implements C5: for every task whose planned date differs
// from its current due date, build an update payload and submit it to the
// external API, retried and fanned out concurrently.
package dispatch

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/postpwn/postpwn/internal/logging"
	"github.com/postpwn/postpwn/internal/metrics"
	"github.com/postpwn/postpwn/internal/planner"
	"github.com/postpwn/postpwn/internal/retry"
	"github.com/postpwn/postpwn/internal/task"
	"github.com/postpwn/postpwn/internal/todoist"
)

// API is the subset of the external adapter dispatch needs.
type API interface {
	Update(ctx context.Context, taskID string, payload todoist.UpdatePayload) error
}

// Transition is one task's planned move, computed ahead of dispatch so
// dry-run can log exactly what would happen without submitting anything.
type Transition struct {
	Task    task.Task
	NewDate string
	Payload todoist.UpdatePayload
}

// Plan walks days and returns the transitions that are not no-ops: a task
// whose current due date already equals its planned date emits nothing
// (spec.md §4.5, §8 property 3).
func Plan(days []planner.Day) []Transition {
	var transitions []Transition
	for _, day := range days {
		dateStr := day.Date.Format("2006-01-02")
		for _, wt := range day.Tasks {
			t := wt.Task
			if t.Due != nil && t.Due.DateOnly().Equal(day.Date) {
				continue
			}
			transitions = append(transitions, Transition{
				Task:    t,
				NewDate: dateStr,
				Payload: payloadFor(dateStr, t),
			})
		}
	}
	return transitions
}

func payloadFor(dateStr string, t task.Task) todoist.UpdatePayload {
	p := todoist.UpdatePayload{}
	if t.Due != nil && t.Due.HasTime {
		timeOfDay := t.Due.Date.Format("15:04:05")
		newDateTime := dateStr + "T" + timeOfDay
		p.DueDateTime = newDateTime
	} else {
		p.DueDate = dateStr
	}
	if t.Due != nil && t.Due.HasString() {
		p.DueString = t.Due.String
	}
	return p
}

// Dispatch submits every transition concurrently, each wrapped by the retry
// wrapper, and waits for all of them before returning. When dryRun is set,
// nothing is submitted - the intended transitions are only logged.
func Dispatch(ctx context.Context, api API, retrier *retry.Wrapper, transitions []Transition, dryRun bool) error {
	log := logging.FromContext(ctx)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var combined error

	for _, tr := range transitions {
		tr := tr
		log.Infow("rescheduling", "task", tr.Task.Content, "id", tr.Task.ID, "to", tr.NewDate)

		if dryRun {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := retrier.Do(ctx, "update_task:"+tr.Task.ID, func(ctx context.Context) error {
				return api.Update(ctx, tr.Task.ID, tr.Payload)
			})
			if err != nil {
				log.Errorw("failed to update task", "id", tr.Task.ID, "err", err)
				metrics.TasksFailed.Inc()
				mu.Lock()
				combined = multierr.Append(combined, err)
				mu.Unlock()
				return
			}
			metrics.TasksUpdated.Inc()
		}()
	}

	wg.Wait()
	return combined
}
