package evaluate

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Labels are the two classes the classifier emits, in report order.
var Labels = [2]int{0, 1}

// Confusion counts predictions by true label (row) and predicted label (column).
type Confusion [2][2]int

// ClassMetrics are the per-label scores. Ratios with a zero denominator are 0.
type ClassMetrics struct {
	Label     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Average is a macro or support-weighted mean of the per-class scores.
type Average struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is the outcome of scoring a labeled sample.
type Report struct {
	Accuracy  float64
	Classes   [2]ClassMetrics
	Macro     Average
	Weighted  Average
	Confusion Confusion
	Train     int // rows held out of scoring
	Test      int // rows scored
}

// Score compares predictions with ground truth.
func Score(truth, pred []int) (Report, error) {
	if len(truth) != len(pred) {
		return Report{}, fmt.Errorf("evaluate: %d labels but %d predictions", len(truth), len(pred))
	}
	if len(truth) == 0 {
		return Report{}, fmt.Errorf("evaluate: no predictions to score")
	}

	var rep Report
	correct := 0
	for i := range truth {
		t, p := truth[i], pred[i]
		if (t != 0 && t != 1) || (p != 0 && p != 1) {
			return Report{}, fmt.Errorf("evaluate: row %d: labels must be 0 or 1, got true=%d pred=%d", i, t, p)
		}
		rep.Confusion[t][p]++
		if t == p {
			correct++
		}
	}
	rep.Accuracy = float64(correct) / float64(len(truth))
	rep.Test = len(truth)

	var precision, recall, f1, support [2]float64
	for _, l := range Labels {
		tp := rep.Confusion[l][l]
		predicted := rep.Confusion[0][l] + rep.Confusion[1][l]
		actual := rep.Confusion[l][0] + rep.Confusion[l][1]

		m := ClassMetrics{
			Label:     l,
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, actual),
			Support:   actual,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		rep.Classes[l] = m
		precision[l], recall[l], f1[l], support[l] = m.Precision, m.Recall, m.F1, float64(actual)
	}

	rep.Macro = Average{
		Precision: stat.Mean(precision[:], nil),
		Recall:    stat.Mean(recall[:], nil),
		F1:        stat.Mean(f1[:], nil),
		Support:   len(truth),
	}
	rep.Weighted = Average{
		Precision: stat.Mean(precision[:], support[:]),
		Recall:    stat.Mean(recall[:], support[:]),
		F1:        stat.Mean(f1[:], support[:]),
		Support:   len(truth),
	}
	return rep, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
