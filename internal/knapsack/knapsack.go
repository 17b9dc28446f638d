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

// Package knapsack implements C3: a bounded 0/1 knapsack selector over a
// pool of weighted tasks, value = priority, weight = rule-derived cost.
package knapsack

import "github.com/postpwn/postpwn/internal/task"

// Select returns the subset of items maximising total priority without the
// sum of weights exceeding capacity. A one-dimensional DP over capacity,
// reconstructing the chosen set per capacity level.
//
// Capacity is iterated high to low for every item, including zero-weight
// ones: a zero-weight item reads and overwrites the same capacity cell
// within its own pass, so it is folded in exactly once (for free) rather
// than looping forever or being double-counted. This relies on priority
// being strictly positive (spec range [1,4]) so a zero-weight item's value
// strictly improves every capacity cell and is never skipped as a tie.
func Select(capacity int, items []task.WeightedTask) []task.WeightedTask {
	if capacity < 0 {
		capacity = 0
	}

	values := make([]int, capacity+1)
	selected := make([][]task.WeightedTask, capacity+1)

	for _, item := range items {
		for c := capacity; c >= item.Weight; c-- {
			take := values[c-item.Weight] + item.Task.Priority
			if take > values[c] {
				values[c] = take
				next := make([]task.WeightedTask, len(selected[c-item.Weight]), len(selected[c-item.Weight])+1)
				copy(next, selected[c-item.Weight])
				selected[c] = append(next, item)
			}
		}
	}

	return selected[capacity]
}
