// Package evaluate scores classifier predictions: accuracy, per-class
// precision/recall/F1, confusion matrix and, for two classes, ROC and
// precision-recall curves.
package evaluate

import (
	"cmp"
	"math"
	"slices"
)

// ClassMetrics holds the scores of one class.
type ClassMetrics struct {
	Precision float64 `json:"precision" yaml:"precision" msgpack:"precision"`
	Recall    float64 `json:"recall" yaml:"recall" msgpack:"recall"`
	F1        float64 `json:"f1-score" yaml:"f1-score" msgpack:"f1"`
	Support   int     `json:"support" yaml:"support" msgpack:"support"`
}

// Point is one point of a curve.
type Point struct {
	X float64 `json:"x" yaml:"x" msgpack:"x"`
	Y float64 `json:"y" yaml:"y" msgpack:"y"`
}

// ConfusionMatrix counts predictions: m[true][pred].
func ConfusionMatrix(yTrue, yPred []int, classes int) [][]int {
	m := make([][]int, classes)
	for i := range m {
		m[i] = make([]int, classes)
	}
	for i, t := range yTrue {
		m[t][yPred[i]]++
	}
	return m
}

// PerClass derives precision, recall and F1 from a confusion matrix.
// Undefined ratios (no predictions or no support) are 0.
func PerClass(cm [][]int) []ClassMetrics {
	out := make([]ClassMetrics, len(cm))
	for c := range cm {
		var tp, predicted, support int
		tp = cm[c][c]
		for i := range cm {
			predicted += cm[i][c]
			support += cm[c][i]
		}
		m := ClassMetrics{Support: support}
		m.Precision = ratio(tp, predicted)
		m.Recall = ratio(tp, support)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		out[c] = m
	}
	return out
}

// Averages returns the macro and support-weighted averages of per-class
// metrics.
func Averages(per []ClassMetrics) (macro, weighted ClassMetrics) {
	var total int
	for _, m := range per {
		total += m.Support
	}
	for _, m := range per {
		macro.Precision += m.Precision / float64(len(per))
		macro.Recall += m.Recall / float64(len(per))
		macro.F1 += m.F1 / float64(len(per))
		if total > 0 {
			w := float64(m.Support) / float64(total)
			weighted.Precision += w * m.Precision
			weighted.Recall += w * m.Recall
			weighted.F1 += w * m.F1
		}
	}
	macro.Support, weighted.Support = total, total
	return macro, weighted
}

// Accuracy returns the share of correct predictions in a confusion matrix.
func Accuracy(cm [][]int) float64 {
	var correct, total int
	for i, row := range cm {
		for j, n := range row {
			total += n
			if i == j {
				correct += n
			}
		}
	}
	return ratio(correct, total)
}

// ROC returns the receiver operating characteristic curve (X = false
// positive rate, Y = true positive rate) of scores for the positive labels,
// starting at (0, 0) and with one point per distinct score.
func ROC(positive []bool, scores []float64) []Point {
	idx := rankByScore(scores)
	var p, n int
	for _, pos := range positive {
		if pos {
			p++
		} else {
			n++
		}
	}
	curve := []Point{{0, 0}}
	var tp, fp int
	for i, k := range idx {
		if positive[k] {
			tp++
		} else {
			fp++
		}
		if i+1 < len(idx) && scores[idx[i+1]] == scores[k] {
			continue
		}
		curve = append(curve, Point{X: ratio(fp, n), Y: ratio(tp, p)})
	}
	return curve
}

// PrecisionRecall returns the precision-recall curve (X = recall,
// Y = precision), one point per distinct score from the highest threshold
// down, prefixed with (0, 1).
func PrecisionRecall(positive []bool, scores []float64) []Point {
	idx := rankByScore(scores)
	var p int
	for _, pos := range positive {
		if pos {
			p++
		}
	}
	curve := []Point{{X: 0, Y: 1}}
	var tp, fp int
	for i, k := range idx {
		if positive[k] {
			tp++
		} else {
			fp++
		}
		if i+1 < len(idx) && scores[idx[i+1]] == scores[k] {
			continue
		}
		curve = append(curve, Point{X: ratio(tp, p), Y: ratio(tp, tp+fp)})
	}
	return curve
}

// AUC integrates a curve with the trapezoidal rule over X.
func AUC(curve []Point) float64 {
	var area float64
	for i := 1; i < len(curve); i++ {
		area += (curve[i].X - curve[i-1].X) * (curve[i].Y + curve[i-1].Y) / 2
	}
	return math.Abs(area)
}

// Downsample keeps at most n points, evenly spaced by index and always
// including the first and last point.
func Downsample(curve []Point, n int) []Point {
	if len(curve) <= n || n < 2 {
		return curve
	}
	out := make([]Point, n)
	for i := range out {
		out[i] = curve[i*(len(curve)-1)/(n-1)]
	}
	return out
}

// rankByScore returns indices ordered by descending score. Ties keep input
// order.
func rankByScore(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})
	return idx
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
