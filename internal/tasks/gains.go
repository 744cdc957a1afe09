package tasks

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/terra-clan/diagnosis-engine/internal/models"
)

// LCG constants for DeterministicShuffle
const (
	lcgMultiplier = 9301
	lcgIncrement  = 49297
	lcgModulus    = 233280
)

// StableWeight hashes s into [1, 100]. It depends only on s.
func StableWeight(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32()%100) + 1
}

// DeterministicShuffle returns a Fisher-Yates shuffled copy of items driven by a
// linear congruential generator, so the same seed always yields the same order.
func DeterministicShuffle[T any](seed int, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)

	if seed < 0 {
		seed = -seed
	}
	for i := len(out) - 1; i > 0; i-- {
		seed = (seed*lcgMultiplier + lcgIncrement) % lcgModulus
		j := seed % (i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Remaining is the headroom to 100% for a base efficiency clamped to [0, 100]
func Remaining(baseEfficiency int) int {
	if baseEfficiency < 0 {
		baseEfficiency = 0
	}
	if baseEfficiency > 100 {
		baseEfficiency = 100
	}
	return 100 - baseEfficiency
}

// Allocate annotates tasks with integer efficiency gains that sum to the block's
// remaining headroom. The input slice is not modified.
func Allocate(blockID string, baseEfficiency int, tasks []models.Task) []models.Task {
	if len(tasks) == 0 {
		return []models.Task{}
	}

	remaining := Remaining(baseEfficiency)
	n := len(tasks)

	weights := make([]int, n)
	totalWeight := 0
	for i, t := range tasks {
		weights[i] = StableWeight(t.ID + ":" + blockID)
		totalWeight += weights[i]
	}

	gains := make([]int, n)
	allocated := 0
	for i, w := range weights {
		gains[i] = remaining * w / totalWeight
		allocated += gains[i]
	}

	// leftover goes to the heaviest tasks first, cycling as needed
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return weights[order[a]] > weights[order[b]] })
	for k := 0; allocated < remaining; k++ {
		gains[order[k%n]]++
		allocated++
	}

	seed := StableWeight(fmt.Sprintf("%s:%d", blockID, n)) + 7
	gains = DeterministicShuffle(seed, gains)

	maintenance := make([]bool, n)
	for i, t := range tasks {
		maintenance[i] = IsMaintenance(t)
	}
	gains = CorrectZeroGains(gains, maintenance)

	out := make([]models.Task, n)
	for i, t := range tasks {
		t.EfficiencyGain = gains[i]
		t.GainLabel = FormatGain(t)
		out[i] = t
	}
	return out
}

// CorrectZeroGains moves one point to every non-maintenance task left at zero.
// The point comes from the largest task holding more than one point, or failing that
// from a maintenance task holding exactly one. With no donor the task stays at zero,
// so the total never changes.
func CorrectZeroGains(gains []int, maintenance []bool) []int {
	out := make([]int, len(gains))
	copy(out, gains)

	for i := range out {
		if out[i] != 0 || maintenance[i] {
			continue
		}
		donor := pickDonor(out, maintenance, i)
		if donor < 0 {
			continue
		}
		out[donor]--
		out[i]++
	}
	return out
}

func pickDonor(gains []int, maintenance []bool, recipient int) int {
	best := -1
	for j, g := range gains {
		if j == recipient || g <= 1 {
			continue
		}
		if best < 0 || g > gains[best] {
			best = j
		}
	}
	if best >= 0 {
		return best
	}

	for j, g := range gains {
		if j != recipient && g == 1 && maintenance[j] {
			return j
		}
	}
	return -1
}

// SumGains adds up the efficiency gains of tasks
func SumGains(tasks []models.Task) int {
	sum := 0
	for _, t := range tasks {
		sum += t.EfficiencyGain
	}
	return sum
}
