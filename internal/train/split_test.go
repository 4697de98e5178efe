package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelsOf(counts ...int) []int {
	var labels []int
	for class, n := range counts {
		for i := 0; i < n; i++ {
			labels = append(labels, class)
		}
	}
	return labels
}

func TestPlanEvaluationHoldout(t *testing.T) {
	t.Parallel()

	plan := planEvaluation(labelsOf(8, 6), 2)
	require.Equal(t, "holdout", plan.Mode)
	require.Len(t, plan.Folds, 1)
	// 25% of each class: 2 + 1.
	assert.Len(t, plan.Folds[0], 3)
}

func TestPlanEvaluationFoldsCappedBySmallestClass(t *testing.T) {
	t.Parallel()

	plan := planEvaluation(labelsOf(6, 3), 2)
	assert.Equal(t, "stratified_3fold_cv", plan.Mode)
	assert.Len(t, plan.Folds, 3)
}

func TestPlanEvaluationMinimumTwoFolds(t *testing.T) {
	t.Parallel()

	plan := planEvaluation(labelsOf(5, 2), 2)
	assert.Equal(t, "stratified_2fold_cv", plan.Mode)
	assert.Len(t, plan.Folds, 2)
}

func TestPlanEvaluationFoldsPartitionEverything(t *testing.T) {
	t.Parallel()

	labels := labelsOf(4, 4, 3)
	plan := planEvaluation(labels, 3)

	seen := map[int]int{}
	for _, fold := range plan.Folds {
		for _, idx := range fold {
			seen[idx]++
		}
	}
	require.Len(t, seen, len(labels))
	for idx, n := range seen {
		assert.Equal(t, 1, n, "index %d appears %d times", idx, n)
	}
}

func TestPlanEvaluationIsDeterministic(t *testing.T) {
	t.Parallel()

	labels := labelsOf(9, 7)
	first := planEvaluation(labels, 2)
	second := planEvaluation(labels, 2)
	assert.Equal(t, first, second)
}
