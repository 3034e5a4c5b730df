// Package fitness scores a loaded fuzzy system against its dataset,
// combining classification, regression and structural criteria into the
// single scalar that drives selection.
package fitness

import (
	"context"
	"errors"
	"math"

	"fugo/internal/fuzzy"
	"fugo/internal/model"
)

// FitnessFloor is the minimum composite fitness. Degenerate systems and
// zero-weight configurations bottom out here instead of at 0 so roulette
// buckets stay valid.
const FitnessFloor = 0.001

// admSaturation is the normalized distance beyond which a correctly
// classified sample contributes the full 1.0 to ADM.
const admSaturation = 0.71428

// Edges of the rule-activity fuzzy sets graded by the over-learning
// criterion.
const (
	firingLowEdge  = 0.1
	firingHighEdge = 0.5
	winnerNever    = 0.1
	winnerSometime = 0.4
	winnerAlways   = 0.7
)

type outputTally struct {
	tp, tn, fp, fn int

	sqErr    float64 // sum of (pred-actual)^2
	relSqErr float64 // sum of ((pred-actual)/mean)^2
	relAbs   float64 // sum of |pred-actual|/mean

	sumDistBelow float64
	sumDistAbove float64
	minDistBelow float64
	minDistAbove float64
}

// Evaluator drives a fuzzy system across every dataset sample and
// derives the composite fitness from the configured weights.
type Evaluator struct {
	weights model.FitnessWeights
}

func New(weights model.FitnessWeights) *Evaluator {
	return &Evaluator{weights: weights}
}

// Evaluate scores the loaded system. A degenerate defuzzification marks
// the individual with the floor fitness and is not an error; only
// infrastructure failures propagate.
func (e *Evaluator) Evaluate(ctx context.Context, sys *fuzzy.System) (model.FitnessMetrics, error) {
	table := sys.Table()
	nbOut := table.NbOutVars
	nbSamples := table.Samples()
	rules := sys.Rules()

	tallies := make([]outputTally, nbOut)
	for i := range tallies {
		tallies[i].minDistBelow = math.Inf(1)
		tallies[i].minDistAbove = math.Inf(1)
	}
	timesFired := make([]int, len(rules))
	timesWinner := make([]int, len(rules))

	for sample := 0; sample < nbSamples; sample++ {
		if err := ctx.Err(); err != nil {
			return model.FitnessMetrics{}, err
		}

		res, err := sys.EvaluateSample(sample)
		if err != nil {
			if errors.Is(err, fuzzy.ErrDegenerate) {
				return model.FitnessMetrics{Fitness: FitnessFloor}, nil
			}
			return model.FitnessMetrics{}, err
		}

		for i := range rules {
			if res.Fired[i] {
				timesFired[i]++
			}
		}
		if res.Winner >= 0 && res.WinnerClear {
			timesWinner[res.Winner]++
		}

		for k := 0; k < nbOut; k++ {
			pred := res.Defuzz[k]
			actual := table.Out(sample, k)
			tally := &tallies[k]

			if diff := pred - actual; diff != 0 {
				tally.sqErr += diff * diff
				if mean := (pred + actual) / 2; mean != 0 {
					rel := diff / mean
					tally.relSqErr += rel * rel
					tally.relAbs += math.Abs(rel)
				}
			}

			expected := sys.Threshold(k, actual)
			predicted := res.Thresh[k]
			threshold := sys.Params().Thresholds[k]
			switch {
			case predicted == expected && expected == 0:
				tally.tn++
				if denom := threshold - actual; denom != 0 {
					d := (threshold - pred) / denom
					tally.sumDistBelow += admContribution(d)
					if d < tally.minDistBelow {
						tally.minDistBelow = d
					}
				} else {
					tally.sumDistBelow++
				}
			case predicted == expected && expected == 1:
				tally.tp++
				if denom := actual - threshold; denom != 0 {
					d := (pred - threshold) / denom
					tally.sumDistAbove += admContribution(d)
					if d < tally.minDistAbove {
						tally.minDistAbove = d
					}
				} else {
					tally.sumDistAbove++
				}
			case predicted != expected && expected == 0:
				tally.fp++
			case predicted != expected && expected == 1:
				tally.fn++
			}
		}
	}

	m := e.deriveMetrics(tallies, nbSamples)
	m.Size = sizeCriterion(rules)
	m.OverLearn = overLearnCriterion(rules, timesFired, timesWinner, nbSamples)
	m.Fitness = e.compose(m)
	return m, nil
}

// admContribution maps a normalized distance-to-threshold onto [0, 1]
// with a smooth saturating shape.
func admContribution(d float64) float64 {
	if d >= admSaturation {
		return 1
	}
	return d * (2.8 - 1.96*d)
}

func (e *Evaluator) deriveMetrics(tallies []outputTally, nbSamples int) model.FitnessMetrics {
	var m model.FitnessMetrics
	nbOut := len(tallies)

	for _, tally := range tallies {
		if tally.tp+tally.fn > 0 {
			m.Sensitivity += float64(tally.tp) / float64(tally.tp+tally.fn)
		}
		if tally.tn+tally.fp > 0 {
			m.Specificity += float64(tally.tn) / float64(tally.tn+tally.fp)
		}
		if tally.tp+tally.fp > 0 {
			m.PPV += float64(tally.tp) / float64(tally.tp+tally.fp)
		}
		total := tally.tp + tally.tn + tally.fp + tally.fn
		if total > 0 {
			m.Accuracy += float64(tally.tp+tally.tn) / float64(total)
		}

		n := float64(nbSamples)
		m.RMSE += math.Sqrt(tally.sqErr / n)
		m.MSE += tally.sqErr / n
		m.RRSE += math.Sqrt(tally.relSqErr / n)
		m.RAE += tally.relAbs / n

		adm := 0.0
		if negatives := tally.tn + tally.fp; negatives > 0 {
			adm += tally.sumDistBelow / float64(negatives)
		}
		if positives := tally.tp + tally.fn; positives > 0 {
			adm += tally.sumDistAbove / float64(positives)
		}
		m.ADM += adm / 2

		below, above := tally.minDistBelow, tally.minDistAbove
		if math.IsInf(below, 1) {
			below = 0
		}
		if math.IsInf(above, 1) {
			above = 0
		}
		m.MDM += (below + above) / 2
	}

	scale := float64(nbOut)
	m.Sensitivity /= scale
	m.Specificity /= scale
	m.Accuracy /= scale
	m.PPV /= scale
	m.RMSE /= scale
	m.MSE /= scale
	m.RRSE /= scale
	m.RAE /= scale
	m.ADM /= scale
	m.MDM /= scale
	return m
}

// sizeCriterion rewards rule bases with fewer active antecedents.
func sizeCriterion(rules []fuzzy.Rule) float64 {
	sum := 0
	for _, r := range rules {
		sum += len(r.In)
	}
	if sum == 0 {
		return 0
	}
	return 1 / float64(sum)
}

// overLearnCriterion grades each rule's firing and winning behavior
// through a small fuzzy system and returns the worst grade: rules that
// fire often grade 1.0; rules that fire rarely grade by how often they
// dominate when they do.
func overLearnCriterion(rules []fuzzy.Rule, timesFired, timesWinner []int, nbSamples int) float64 {
	if len(rules) == 0 || nbSamples == 0 {
		return 0
	}

	minGrade := 1.0
	for i := range rules {
		firing := float64(timesFired[i]) / float64(nbSamples)
		winner := 0.0
		if timesFired[i] > 0 {
			winner = float64(timesWinner[i]) / float64(timesFired[i])
		}

		firingHigh := ramp(firing, firingLowEdge, firingHighEdge)
		firingLow := 1 - firingHigh
		always := ramp(winner, winnerSometime, winnerAlways)
		never := 1 - ramp(winner, winnerNever, winnerSometime)
		sometime := triangle(winner, winnerNever, winnerSometime, winnerAlways)

		truthHigh := firingHigh
		truthNever := math.Min(firingLow, never)
		truthSometime := math.Min(firingLow, sometime)
		truthAlways := math.Min(firingLow, always)

		truthSum := truthHigh + truthNever + truthSometime + truthAlways
		grade := 1.0
		if truthSum > 0 {
			grade = (truthHigh*1.0 + truthNever*0.7 + truthSometime*0.3) / truthSum
		}
		if grade < minGrade {
			minGrade = grade
		}
	}
	return minGrade
}

// ramp rises linearly from 0 at lo to 1 at hi.
func ramp(x, lo, hi float64) float64 {
	switch {
	case x <= lo:
		return 0
	case x >= hi:
		return 1
	default:
		return (x - lo) / (hi - lo)
	}
}

// triangle peaks at mid and falls to 0 at lo and hi.
func triangle(x, lo, mid, hi float64) float64 {
	switch {
	case x <= lo || x >= hi:
		return 0
	case x == mid:
		return 1
	case x < mid:
		return (x - lo) / (mid - lo)
	default:
		return (hi - x) / (hi - mid)
	}
}

// compose folds the metrics into the weighted composite. Error metrics
// enter through 2^-x so every term lives in [0, 1]; the result is
// floored at FitnessFloor.
func (e *Evaluator) compose(m model.FitnessMetrics) float64 {
	w := e.weights
	den := w.Sum()
	if den <= 0 {
		return FitnessFloor
	}

	num := w.Sensi*m.Sensitivity +
		w.Speci*m.Specificity +
		w.Accuracy*m.Accuracy +
		w.PPV*m.PPV +
		w.RMSE*math.Pow(2, -m.RMSE) +
		w.RRSE*math.Pow(2, -m.RRSE) +
		w.RAE*math.Pow(2, -m.RAE) +
		w.MSE*math.Pow(2, -m.MSE) +
		w.ADM*m.ADM +
		w.MDM*m.MDM +
		w.Size*m.Size +
		w.OverLearn*m.OverLearn

	fitness := num / den
	if math.IsNaN(fitness) || fitness <= 0 {
		return FitnessFloor
	}
	return fitness
}
