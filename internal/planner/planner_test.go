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

package planner_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/postpwn/postpwn/internal/planner"
	"github.com/postpwn/postpwn/internal/rules"
	"github.com/postpwn/postpwn/internal/task"
)

func weightedWithDue(id string, weight, priority int, due string) task.WeightedTask {
	d, _ := task.ParseDueDate(due)
	dd := task.NewDueDate(d)
	return task.WeightedTask{
		Task:   task.Task{ID: id, Priority: priority, Due: &dd},
		Weight: weight,
	}
}

var _ = Describe("Plan", func() {
	ctx := context.Background()
	start, _ := task.ParseDueDate("2025-01-05")

	It("packs within each day's capacity and never overflows", func() {
		cfg, err := rules.LoadBytes(ctx, []byte(`{
			"max_weight": 2,
			"rules": [
				{"filter": "@weight_one", "weight": 1},
				{"filter": "@weight_two", "weight": 2}
			]
		}`))
		Expect(err).NotTo(HaveOccurred())

		pool := []task.WeightedTask{
			weightedWithDue("a", 1, 1, "2024-06-01"),
			weightedWithDue("b", 1, 1, "2024-06-01"),
			weightedWithDue("c", 2, 1, "2024-06-01"),
			weightedWithDue("d", 2, 1, "2024-06-01"),
		}

		days := planner.Plan(ctx, pool, cfg, start)

		for _, day := range days {
			sum := 0
			for _, t := range day.Tasks {
				sum += t.Weight
			}
			Expect(sum).To(BeNumerically("<=", cfg.CapacityFor(day.Date)))
		}

		// S4 from spec.md: day 1 both weight_one (sum 2), days 2 and 3 each
		// get one weight_two.
		Expect(days).To(HaveLen(3))
		Expect(days[0].Date.Format("2006-01-02")).To(Equal("2025-01-05"))
		Expect(days[0].Tasks).To(HaveLen(2))
		Expect(days[1].Tasks).To(HaveLen(1))
		Expect(days[2].Tasks).To(HaveLen(1))
	})

	It("assigns every task admitted into the pool to exactly one day", func() {
		cfg := rules.Default()
		pool := []task.WeightedTask{
			weightedWithDue("a", 0, 1, "2024-01-01"),
			weightedWithDue("b", 0, 2, "2024-01-02"),
			weightedWithDue("c", 0, 3, "2024-01-03"),
		}

		days := planner.Plan(ctx, pool, cfg, start)

		seen := map[string]int{}
		for _, day := range days {
			for _, t := range day.Tasks {
				seen[t.Task.ID]++
			}
		}
		Expect(seen).To(Equal(map[string]int{"a": 1, "b": 1, "c": 1}))
	})

	It("degenerates to one day when every item has weight 0", func() {
		cfg := rules.Default()
		pool := []task.WeightedTask{
			weightedWithDue("a", 0, 1, "2024-01-01"),
			weightedWithDue("b", 0, 2, "2024-01-01"),
		}

		days := planner.Plan(ctx, pool, cfg, start)
		Expect(days).To(HaveLen(1))
		Expect(days[0].Tasks).To(HaveLen(2))
	})

	It("returns nothing for an empty pool", func() {
		days := planner.Plan(ctx, nil, rules.Default(), start)
		Expect(days).To(BeEmpty())
	})

	It("sorts by due date before packing, independent of input order", func() {
		cfg, err := rules.LoadBytes(ctx, []byte(`{"max_weight": 1, "rules": [{"filter": "@x", "weight": 1}]}`))
		Expect(err).NotTo(HaveOccurred())

		later := weightedWithDue("later", 1, 1, "2025-02-01")
		earlier := weightedWithDue("earlier", 1, 1, "2025-01-01")
		later.Task.Labels = []string{"x"}
		earlier.Task.Labels = []string{"x"}

		days := planner.Plan(ctx, []task.WeightedTask{later, earlier}, cfg, start)
		Expect(days[0].Tasks[0].Task.ID).To(Equal("earlier"))
		Expect(days[1].Tasks[0].Task.ID).To(Equal("later"))
	})

	It("handles a nil due date by sorting it last", func() {
		withDue := weightedWithDue("has-due", 0, 1, "2024-01-01")
		noDue := task.WeightedTask{Task: task.Task{ID: "no-due", Priority: 1}}

		days := planner.Plan(ctx, []task.WeightedTask{noDue, withDue}, rules.Default(), start)
		Expect(days).To(HaveLen(1))
		ids := []string{days[0].Tasks[0].Task.ID, days[0].Tasks[1].Task.ID}
		Expect(ids).To(ContainElements("has-due", "no-due"))
	})
})
