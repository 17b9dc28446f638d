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

package knapsack_test

import (
	"fmt"
	"math/rand"

	"github.com/Pallinder/go-randomdata"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/postpwn/postpwn/internal/knapsack"
	"github.com/postpwn/postpwn/internal/task"
)

func item(id string, weight, priority int) task.WeightedTask {
	return task.WeightedTask{Task: task.Task{ID: id, Priority: priority}, Weight: weight}
}

func totalValue(items []task.WeightedTask) int {
	sum := 0
	for _, i := range items {
		sum += i.Task.Priority
	}
	return sum
}

func totalWeight(items []task.WeightedTask) int {
	sum := 0
	for _, i := range items {
		sum += i.Weight
	}
	return sum
}

var _ = Describe("Select", func() {
	It("returns nothing for zero capacity with only positive-weight items", func() {
		items := []task.WeightedTask{item("a", 3, 4), item("b", 2, 3)}
		Expect(knapsack.Select(0, items)).To(BeEmpty())
	})

	It("always takes zero-weight items regardless of capacity", func() {
		items := []task.WeightedTask{item("a", 0, 1), item("b", 0, 2), item("c", 5, 3)}
		selected := knapsack.Select(0, items)
		Expect(selected).To(HaveLen(2))
		Expect(totalWeight(selected)).To(Equal(0))
	})

	It("never exceeds capacity", func() {
		items := []task.WeightedTask{item("a", 3, 4), item("b", 4, 5), item("c", 2, 3)}
		selected := knapsack.Select(5, items)
		Expect(totalWeight(selected)).To(BeNumerically("<=", 5))
	})

	It("maximises value within capacity", func() {
		// Classic textbook instance: capacity 50, items (w,v) = (10,60) (20,100) (30,120).
		// Optimal is items 2 and 3 for value 220.
		items := []task.WeightedTask{item("a", 10, 60), item("b", 20, 100), item("c", 30, 120)}
		selected := knapsack.Select(50, items)
		Expect(totalValue(selected)).To(Equal(220))
	})

	It("is invariant under input order up to total value", func() {
		items := []task.WeightedTask{
			item("a", 2, 3), item("b", 4, 4), item("c", 1, 2), item("d", 3, 3), item("e", 5, 4),
		}
		base := totalValue(knapsack.Select(7, items))

		r := rand.New(rand.NewSource(7))
		for i := 0; i < 10; i++ {
			shuffled := append([]task.WeightedTask(nil), items...)
			r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			Expect(totalValue(knapsack.Select(7, shuffled))).To(Equal(base))
		}
	})

	It("skips items heavier than capacity entirely", func() {
		items := []task.WeightedTask{item("a", 10, 99)}
		Expect(knapsack.Select(5, items)).To(BeEmpty())
	})

	It("never exceeds capacity over a pool of randomly named fixtures", func() {
		const capacity = 8
		r := rand.New(rand.NewSource(42))

		items := make([]task.WeightedTask, 20)
		for i := range items {
			id := fmt.Sprintf("%s-%d", randomdata.SillyName(), i)
			items[i] = item(id, r.Intn(5), r.Intn(4)+1)
		}

		selected := knapsack.Select(capacity, items)
		Expect(totalWeight(selected)).To(BeNumerically("<=", capacity))

		seen := map[string]bool{}
		for _, s := range selected {
			Expect(seen[s.Task.ID]).To(BeFalse(), "item selected twice")
			seen[s.Task.ID] = true
		}
	})
})
