package tasks

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/diagnosis-engine/internal/models"
)

func makeTasks(ids ...string) []models.Task {
	out := make([]models.Task, len(ids))
	for i, id := range ids {
		out[i] = models.Task{ID: id, Title: "Fix " + id, Description: "One-off action"}
	}
	return out
}

func TestStableWeight(t *testing.T) {
	assert.Equal(t, 14, StableWeight("finance:2"))
	assert.Equal(t, 21, StableWeight("a"))
	assert.Equal(t, 62, StableWeight(""))

	for i := 0; i < 200; i++ {
		w := StableWeight(fmt.Sprintf("task-%d", i))
		assert.GreaterOrEqual(t, w, 1)
		assert.LessOrEqual(t, w, 100)
	}
}

func TestDeterministicShuffle(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, DeterministicShuffle(10, []string{"a", "b", "c"}))
	assert.Equal(t, []int{5, 3, 4, 6, 2, 1}, DeterministicShuffle(17, []int{1, 2, 3, 4, 5, 6}))

	in := []int{1, 2, 3}
	DeterministicShuffle(99, in)
	assert.Equal(t, []int{1, 2, 3}, in, "input must not be modified")

	assert.Empty(t, DeterministicShuffle(1, []int{}))
	assert.Equal(t, []int{7}, DeterministicShuffle(1, []int{7}))
}

func TestDeterministicShuffleKeepsMultiset(t *testing.T) {
	items := []int{0, 0, 5, 9, 9, 12, 40}
	got := DeterministicShuffle(12345, items)
	assert.ElementsMatch(t, items, got)
}

func TestAllocateEmpty(t *testing.T) {
	assert.Empty(t, Allocate("finance", 50, nil))
}

func TestAllocateExact(t *testing.T) {
	got := Allocate("finance", 60, makeTasks("finance:a", "finance:b", "finance:c"))
	require.Len(t, got, 3)
	assert.Equal(t, 15, got[0].EfficiencyGain)
	assert.Equal(t, 16, got[1].EfficiencyGain)
	assert.Equal(t, 9, got[2].EfficiencyGain)
	assert.Equal(t, "+15%", got[0].GainLabel)
	assert.Equal(t, "finance:a", got[0].ID, "task order is preserved")
}

func TestAllocateSumInvariant(t *testing.T) {
	ids := []string{"staff:0", "staff:1", "staff:2", "staff:3", "staff:4"}
	got := Allocate("staff", 60, makeTasks(ids...))
	assert.Equal(t, 40, SumGains(got))
	for _, task := range got {
		assert.Positive(t, task.EfficiencyGain, task.ID)
	}

	for base := -20; base <= 120; base += 7 {
		for n := 1; n <= 12; n++ {
			tasks := make([]models.Task, n)
			for i := range tasks {
				tasks[i] = models.Task{ID: fmt.Sprintf("b:%d", i), Title: "Install equipment"}
			}
			got := Allocate("b", base, tasks)
			remaining := Remaining(base)
			assert.Equal(t, remaining, SumGains(got), "base=%d n=%d", base, n)
			if remaining >= n {
				for _, task := range got {
					assert.Positive(t, task.EfficiencyGain, "base=%d n=%d", base, n)
				}
			}
		}
	}
}

func TestAllocateIsDeterministic(t *testing.T) {
	tasks := makeTasks("x:1", "x:2", "x:3", "x:4")
	first := Allocate("x", 35, tasks)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Allocate("x", 35, tasks))
	}
}

func TestAllocateClampsBase(t *testing.T) {
	tasks := makeTasks("x:1", "x:2")
	assert.Equal(t, 100, SumGains(Allocate("x", -30, tasks)))
	assert.Equal(t, 0, SumGains(Allocate("x", 150, tasks)))
	assert.Equal(t, Allocate("x", 0, tasks), Allocate("x", -30, tasks))
}

func TestAllocateDoesNotMutateInput(t *testing.T) {
	tasks := makeTasks("x:1", "x:2")
	Allocate("x", 10, tasks)
	assert.Zero(t, tasks[0].EfficiencyGain)
	assert.Empty(t, tasks[0].GainLabel)
}

func TestAllocateScarceHeadroom(t *testing.T) {
	// 3 points for 5 tasks: the total wins over the no-zero rule
	got := Allocate("staff", 97, makeTasks("staff:0", "staff:1", "staff:2", "staff:3", "staff:4"))
	gains := make([]int, len(got))
	for i, task := range got {
		gains[i] = task.EfficiencyGain
	}
	assert.Equal(t, []int{1, 0, 1, 0, 1}, gains)
}

func TestCorrectZeroGains(t *testing.T) {
	got := CorrectZeroGains([]int{0, 0, 40}, []bool{false, false, false})
	assert.Equal(t, []int{1, 1, 38}, got)

	// maintenance tasks may stay at zero
	got = CorrectZeroGains([]int{0, 0, 40}, []bool{true, false, false})
	assert.Equal(t, []int{0, 1, 39}, got)

	// largest donor first
	got = CorrectZeroGains([]int{5, 0, 9}, []bool{false, false, false})
	assert.Equal(t, []int{5, 1, 8}, got)

	// a maintenance task holding one point may donate it
	got = CorrectZeroGains([]int{0, 1, 0}, []bool{false, false, true})
	assert.Equal(t, []int{0, 1, 0}, got)
	got = CorrectZeroGains([]int{0, 0, 1}, []bool{false, false, true})
	assert.Equal(t, []int{1, 0, 0}, got)

	// no donor: nothing changes
	got = CorrectZeroGains([]int{0, 1, 1}, []bool{false, false, false})
	assert.Equal(t, []int{0, 1, 1}, got)
}

func TestAllocateWithMaintenanceTasks(t *testing.T) {
	tasks := makeTasks("staff:0", "staff:1", "staff:2", "staff:3", "staff:4")
	tasks[0].Title = "Keep the log"
	tasks[4].Description = "Monitor weekly"

	got := Allocate("staff", 97, tasks)
	gains := []int{}
	for _, task := range got {
		gains = append(gains, task.EfficiencyGain)
	}
	assert.Equal(t, []int{0, 1, 1, 1, 0}, gains)
	assert.Equal(t, "+%", got[0].GainLabel)
	assert.Equal(t, "+%", got[4].GainLabel)
	assert.Equal(t, "+1%", got[1].GainLabel)
	assert.Equal(t, 3, SumGains(got))
}
