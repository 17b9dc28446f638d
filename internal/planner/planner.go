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

// Package planner implements C4: sort the weighted task pool by current due
// date, then pack it day by day with the knapsack selector until empty.
package planner

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/postpwn/postpwn/internal/knapsack"
	"github.com/postpwn/postpwn/internal/logging"
	"github.com/postpwn/postpwn/internal/rules"
	"github.com/postpwn/postpwn/internal/task"
)

// Day is one date's worth of planned tasks, in the order Plan returns them.
type Day struct {
	Date  time.Time
	Tasks []task.WeightedTask
}

// Plan packs pool into successive days starting at start, consulting cfg
// for each day's capacity. The pool is never mutated; a new slice is
// returned for iteration so the caller's ordering expectations are
// untouched.
func Plan(ctx context.Context, pool []task.WeightedTask, cfg *rules.Config, start time.Time) []Day {
	remaining := sortByDue(pool)

	var days []Day
	date := start
	for len(remaining) > 0 {
		capacity := cfg.CapacityFor(date)
		chosen := knapsack.Select(capacity, remaining)

		days = append(days, Day{Date: date, Tasks: chosen})

		remaining = subtract(remaining, chosen)

		logging.FromContext(ctx).Infow("planned day", "date", date.Format("2006-01-02"), "capacity", capacity, "count", len(chosen), "remaining", len(remaining))

		date = date.AddDate(0, 0, 1)
	}

	return days
}

// sortByDue returns pool sorted ascending by current due date. Tasks with no
// due date sort last; the planner's callers filter these out upstream, but
// sorting degrades gracefully rather than panicking if one slips through.
func sortByDue(pool []task.WeightedTask) []task.WeightedTask {
	sorted := make([]task.WeightedTask, len(pool))
	copy(sorted, pool)

	sort.SliceStable(sorted, func(i, j int) bool {
		return dueKey(sorted[i]).Before(dueKey(sorted[j]))
	})

	return sorted
}

func dueKey(t task.WeightedTask) time.Time {
	if t.Task.Due == nil {
		return time.Unix(1<<62, 0)
	}
	return t.Task.Due.DateOnly()
}

// subtract removes the chosen tasks from pool by identity (task ID), since
// a knapsack selection never duplicates an item.
func subtract(pool, chosen []task.WeightedTask) []task.WeightedTask {
	chosenIDs := lo.SliceToMap(chosen, func(t task.WeightedTask) (string, struct{}) {
		return t.Task.ID, struct{}{}
	})
	return lo.Reject(pool, func(t task.WeightedTask, _ int) bool {
		_, ok := chosenIDs[t.Task.ID]
		return ok
	})
}
