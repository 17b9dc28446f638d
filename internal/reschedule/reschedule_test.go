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

package reschedule_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpwn/postpwn/internal/reschedule"
	"github.com/postpwn/postpwn/internal/retry"
	"github.com/postpwn/postpwn/internal/task"
	"github.com/postpwn/postpwn/internal/todoist"
)

type fakeFetcher struct {
	tasks []task.Task
}

func (f *fakeFetcher) Filter(ctx context.Context, query string) ([]task.Task, error) {
	return f.tasks, nil
}

type recordingAPI struct {
	mu      sync.Mutex
	updates map[string]todoist.UpdatePayload
}

func newRecordingAPI() *recordingAPI {
	return &recordingAPI{updates: map[string]todoist.UpdatePayload{}}
}

func (r *recordingAPI) Update(ctx context.Context, taskID string, payload todoist.UpdatePayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[taskID] = payload
	return nil
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := task.ParseDueDate(s)
	require.NoError(t, err)
	return d
}

func TestRunWithEmptyFilterProducesZeroUpdates(t *testing.T) {
	// S2 from spec.md: valid token, empty filter string -> zero updates.
	fetcher := &fakeFetcher{}
	api := newRecordingAPI()

	err := reschedule.Run(context.Background(), fetcher, api, retry.New(), reschedule.Params{
		Filter:    "",
		TimeZone:  "Etc/UTC",
		StartDate: mustDate(t, "2025-01-05"),
	})

	require.NoError(t, err)
	assert.Empty(t, api.updates)
}

func TestRunWithNoRulesSchedulesSingleOverdueTask(t *testing.T) {
	// S3 from spec.md: no rules, one task due 2024-06-01, start 2025-01-05
	// -> exactly one update with due_date = 2025-01-05.
	due := task.NewDueDate(mustDate(t, "2024-06-01"))
	fetcher := &fakeFetcher{tasks: []task.Task{
		{ID: "task-1", Content: "overdue", Priority: 1, Due: &due},
	}}
	api := newRecordingAPI()

	err := reschedule.Run(context.Background(), fetcher, api, retry.New(), reschedule.Params{
		Filter:    "today | overdue",
		TimeZone:  "Etc/UTC",
		StartDate: mustDate(t, "2025-01-05"),
	})

	require.NoError(t, err)
	require.Len(t, api.updates, 1)
	assert.Equal(t, "2025-01-05", api.updates["task-1"].DueDate)
}

func TestRunIsIdempotentOnSecondPass(t *testing.T) {
	// Running the planner twice in succession with no external state
	// changes yields zero updates on the second run (spec.md §8): once a
	// task's due date already equals the scheduled date, dispatch.Plan
	// treats it as a no-op.
	newDate := mustDate(t, "2025-01-05")
	due := task.NewDueDate(newDate)
	fetcher := &fakeFetcher{tasks: []task.Task{
		{ID: "task-1", Content: "already rescheduled", Priority: 1, Due: &due},
	}}
	api := newRecordingAPI()

	err := reschedule.Run(context.Background(), fetcher, api, retry.New(), reschedule.Params{
		Filter:    "today | overdue",
		TimeZone:  "Etc/UTC",
		StartDate: newDate,
	})

	require.NoError(t, err)
	assert.Empty(t, api.updates)
}

func TestRunUsesDefaultRulesWhenNilGivesEveryTaskZeroWeight(t *testing.T) {
	dueOne := task.NewDueDate(mustDate(t, "2024-06-01"))
	dueTwo := task.NewDueDate(mustDate(t, "2024-06-02"))
	fetcher := &fakeFetcher{tasks: []task.Task{
		{ID: "task-1", Priority: 1, Due: &dueOne},
		{ID: "task-2", Priority: 1, Due: &dueTwo},
	}}
	api := newRecordingAPI()

	err := reschedule.Run(context.Background(), fetcher, api, retry.New(), reschedule.Params{
		Filter:    "today | overdue",
		Rules:     nil,
		TimeZone:  "Etc/UTC",
		StartDate: mustDate(t, "2025-01-05"),
	})

	require.NoError(t, err)
	// rules.Default() has no weight rules, so both zero-weight tasks land
	// in the same first day regardless of the flat capacity.
	require.Len(t, api.updates, 2)
	assert.Equal(t, "2025-01-05", api.updates["task-1"].DueDate)
	assert.Equal(t, "2025-01-05", api.updates["task-2"].DueDate)
}

func TestRunDryRunComputesButDoesNotSubmit(t *testing.T) {
	due := task.NewDueDate(mustDate(t, "2024-06-01"))
	fetcher := &fakeFetcher{tasks: []task.Task{
		{ID: "task-1", Priority: 1, Due: &due},
	}}
	api := newRecordingAPI()

	err := reschedule.Run(context.Background(), fetcher, api, retry.New(), reschedule.Params{
		Filter:    "today | overdue",
		TimeZone:  "Etc/UTC",
		StartDate: mustDate(t, "2025-01-05"),
		DryRun:    true,
	})

	require.NoError(t, err)
	assert.Empty(t, api.updates)
}

func TestRunPropagatesFetchError(t *testing.T) {
	t.Setenv("RETRY_ATTEMPTS", "1")
	fetcher := &erroringFetcher{}
	api := newRecordingAPI()

	err := reschedule.Run(context.Background(), fetcher, api, retry.New(), reschedule.Params{
		Filter:   "today",
		TimeZone: "Etc/UTC",
	})

	require.Error(t, err)
}

type erroringFetcher struct{}

func (erroringFetcher) Filter(ctx context.Context, query string) ([]task.Task, error) {
	return nil, assert.AnError
}
