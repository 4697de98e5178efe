package train

import (
	"fmt"
	"math/rand"
)

// splitSeed fixes the shuffle so repeated runs over the same gold set produce
// the same evaluation numbers.
const splitSeed = 42

const (
	holdoutMinSamples  = 12
	holdoutMinPerClass = 2
	holdoutFraction    = 0.25
	maxFolds           = 5
)

// evalPlan describes how the gold set is evaluated: a single holdout split or
// stratified cross-validation folds. Each fold lists the held-out gold
// indices; everything else trains.
type evalPlan struct {
	Mode  string
	Folds [][]int
}

// planEvaluation picks a stratified 75/25 holdout when the gold set is large
// enough, otherwise stratified k-fold with folds capped by the smallest class.
func planEvaluation(labels []int, nClasses int) evalPlan {
	byClass := make([][]int, nClasses)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}

	rng := rand.New(rand.NewSource(splitSeed))
	minCount := 0
	for _, members := range byClass {
		if len(members) == 0 {
			continue
		}
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		if minCount == 0 || len(members) < minCount {
			minCount = len(members)
		}
	}

	if len(labels) >= holdoutMinSamples && minCount >= holdoutMinPerClass {
		var test []int
		for _, members := range byClass {
			if len(members) == 0 {
				continue
			}
			n := int(float64(len(members)) * holdoutFraction)
			if n < 1 {
				n = 1
			}
			test = append(test, members[:n]...)
		}
		return evalPlan{Mode: "holdout", Folds: [][]int{test}}
	}

	folds := minCount
	if folds > maxFolds {
		folds = maxFolds
	}
	if folds < 2 {
		folds = 2
	}
	out := make([][]int, folds)
	for _, members := range byClass {
		for i, idx := range members {
			out[i%folds] = append(out[i%folds], idx)
		}
	}
	return evalPlan{
		Mode:  fmt.Sprintf("stratified_%dfold_cv", folds),
		Folds: out,
	}
}
