// Package train implements the offline retraining loop: gold assembly,
// pseudo-label augmentation, evaluation, the promotion decision, and artifact
// persistence.
package train

import (
	"sort"

	"github.com/jmorrell-unl/wildlife-grad/internal/model"
	"github.com/jmorrell-unl/wildlife-grad/internal/textvec"
)

// logregConfig tunes the full-batch gradient descent fit. Full-batch keeps
// training deterministic for a fixed input order.
type logregConfig struct {
	Epochs       int
	LearningRate float64
	L2           float64
}

func defaultLogregConfig() logregConfig {
	return logregConfig{
		Epochs:       300,
		LearningRate: 0.5,
		L2:           1e-4,
	}
}

// fitLogreg fits a multinomial logistic regression with per-sample weights
// multiplied by balanced class weights, so minority disciplines are not
// drowned out by the majority class.
func fitLogreg(cfg logregConfig, classes []string, features int, vecs []textvec.Vector, labels []int, sampleWeights []float64) *model.LinearModel {
	nClasses := len(classes)
	m := &model.LinearModel{
		Classes:    classes,
		Weights:    make([][]float64, nClasses),
		Intercepts: make([]float64, nClasses),
	}
	for c := range m.Weights {
		m.Weights[c] = make([]float64, features)
	}
	if len(vecs) == 0 || nClasses == 0 {
		return m
	}

	weights := balancedWeights(nClasses, labels, sampleWeights)
	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight == 0 {
		return m
	}

	gradW := make([][]float64, nClasses)
	for c := range gradW {
		gradW[c] = make([]float64, features)
	}
	gradB := make([]float64, nClasses)

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for c := range gradW {
			row := gradW[c]
			for i := range row {
				row[i] = 0
			}
			gradB[c] = 0
		}

		for i, vec := range vecs {
			probs := m.Probabilities(vec)
			for c := 0; c < nClasses; c++ {
				delta := probs[c]
				if c == labels[i] {
					delta -= 1
				}
				delta *= weights[i]
				gradB[c] += delta
				row := gradW[c]
				for idx, val := range vec {
					row[idx] += delta * val
				}
			}
		}

		step := cfg.LearningRate / totalWeight
		for c := 0; c < nClasses; c++ {
			row := m.Weights[c]
			grad := gradW[c]
			for idx := range row {
				row[idx] -= step*grad[idx] + cfg.LearningRate*cfg.L2*row[idx]
			}
			m.Intercepts[c] -= step * gradB[c]
		}
	}
	return m
}

// balancedWeights multiplies each sample weight by total/(classes*classTotal),
// computed over the weighted class mass.
func balancedWeights(nClasses int, labels []int, sampleWeights []float64) []float64 {
	classMass := make([]float64, nClasses)
	var total float64
	for i, label := range labels {
		classMass[label] += sampleWeights[i]
		total += sampleWeights[i]
	}

	out := make([]float64, len(labels))
	for i, label := range labels {
		mass := classMass[label]
		if mass == 0 {
			continue
		}
		out[i] = sampleWeights[i] * total / (float64(nClasses) * mass)
	}
	return out
}

// evaluate scores predictions with accuracy, macro F1 over the classes seen
// in truth or prediction, and support-weighted F1.
func evaluate(yTrue, yPred []int, nClasses int) (accuracy, macroF1, weightedF1 float64) {
	if len(yTrue) == 0 {
		return 0, 0, 0
	}

	truePos := make([]float64, nClasses)
	falsePos := make([]float64, nClasses)
	falseNeg := make([]float64, nClasses)
	support := make([]float64, nClasses)
	correct := 0
	seen := map[int]bool{}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		seen[t] = true
		seen[p] = true
		support[t]++
		if t == p {
			correct++
			truePos[t]++
		} else {
			falsePos[p]++
			falseNeg[t]++
		}
	}

	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	var macroSum, weightedSum float64
	for _, c := range classes {
		f1 := f1Score(truePos[c], falsePos[c], falseNeg[c])
		macroSum += f1
		weightedSum += f1 * support[c]
	}

	accuracy = float64(correct) / float64(len(yTrue))
	macroF1 = macroSum / float64(len(classes))
	weightedF1 = weightedSum / float64(len(yTrue))
	return accuracy, macroF1, weightedF1
}

// averageFoldMetrics scores each fold separately and returns the mean of the
// per-fold metrics. With one fold this is a plain holdout evaluation.
func averageFoldMetrics(yTrueFolds, yPredFolds [][]int, nClasses int) (accuracy, macroF1, weightedF1 float64) {
	folds := 0
	for i := range yTrueFolds {
		if len(yTrueFolds[i]) == 0 {
			continue
		}
		a, m, w := evaluate(yTrueFolds[i], yPredFolds[i], nClasses)
		accuracy += a
		macroF1 += m
		weightedF1 += w
		folds++
	}
	if folds == 0 {
		return 0, 0, 0
	}
	n := float64(folds)
	return accuracy / n, macroF1 / n, weightedF1 / n
}

func f1Score(tp, fp, fn float64) float64 {
	denom := 2*tp + fp + fn
	if denom == 0 {
		return 0
	}
	return 2 * tp / denom
}

// predictAll returns the argmax class per vector, ties broken by class order.
func predictAll(m *model.LinearModel, vecs []textvec.Vector) []int {
	out := make([]int, len(vecs))
	for i, vec := range vecs {
		probs := m.Probabilities(vec)
		best := 0
		for c := 1; c < len(probs); c++ {
			if probs[c] > probs[best] {
				best = c
			}
		}
		out[i] = best
	}
	return out
}
