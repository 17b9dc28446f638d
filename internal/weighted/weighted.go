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

// Package weighted implements C2, the adapter that pairs a raw task with
// the weight its labels earn from the rule set.
package weighted

import (
	"context"

	"github.com/postpwn/postpwn/internal/logging"
	"github.com/postpwn/postpwn/internal/rules"
	"github.com/postpwn/postpwn/internal/task"
)

// Classify pairs t with a weight, or returns ok=false if t should be
// dropped. When cfg has no rules, every task is kept with weight 0. A task
// is classified by the first of its own labels (in the task's label order,
// not rule order) that has a matching rule weight - deliberate and
// testable, see spec.md §9.
func Classify(ctx context.Context, t task.Task, cfg *rules.Config) (task.WeightedTask, bool) {
	if cfg == nil || !cfg.HasRules() {
		return task.WeightedTask{Task: t, Weight: 0}, true
	}

	if len(t.Labels) == 0 {
		logging.FromContext(ctx).Infow("dropping task with no labels", "task", t.ID)
		return task.WeightedTask{}, false
	}

	for _, label := range t.Labels {
		if w, ok := cfg.WeightFor(label); ok {
			return task.WeightedTask{Task: t, Weight: w}, true
		}
	}

	logging.FromContext(ctx).Infow("dropping task with no matching label", "task", t.ID, "labels", t.Labels)
	return task.WeightedTask{}, false
}

// ClassifyAll classifies every task in tasks, dropping those with no match.
func ClassifyAll(ctx context.Context, tasks []task.Task, cfg *rules.Config) []task.WeightedTask {
	out := make([]task.WeightedTask, 0, len(tasks))
	for _, t := range tasks {
		if wt, ok := Classify(ctx, t, cfg); ok {
			out = append(out, wt)
		}
	}
	return out
}
