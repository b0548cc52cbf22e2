package training

import (
	"fmt"
	"sort"
)

// MetricType represents different evaluation metrics
type MetricType int

const (
	Precision MetricType = iota
	Recall
	F1Score
	Specificity
	NPV // Negative Predictive Value
	BalancedAccuracy
)

func (mt MetricType) String() string {
	switch mt {
	case Precision:
		return "Precision"
	case Recall:
		return "Recall"
	case F1Score:
		return "F1Score"
	case Specificity:
		return "Specificity"
	case NPV:
		return "NPV"
	case BalancedAccuracy:
		return "BalancedAccuracy"
	default:
		return fmt.Sprintf("Unknown(%d)", int(mt))
	}
}

// ConfusionMatrix accumulates binary-classification outcomes. Class 1 is the
// positive (minority) class.
type ConfusionMatrix struct {
	TP, FP, TN, FN int
	TotalSamples   int
}

// NewConfusionMatrix creates an empty binary confusion matrix
func NewConfusionMatrix() *ConfusionMatrix {
	return &ConfusionMatrix{}
}

// Reset clears the confusion matrix
func (cm *ConfusionMatrix) Reset() {
	*cm = ConfusionMatrix{}
}

// Update thresholds the predicted probabilities at threshold and accumulates
// outcomes against the binary targets.
func (cm *ConfusionMatrix) Update(probabilities []float32, targets []float32, threshold float32) error {
	if len(probabilities) != len(targets) {
		return fmt.Errorf("predictions length %d does not match targets length %d", len(probabilities), len(targets))
	}

	for i := range probabilities {
		predicted := probabilities[i] >= threshold
		actual := targets[i] == 1

		switch {
		case predicted && actual:
			cm.TP++
		case predicted && !actual:
			cm.FP++
		case !predicted && !actual:
			cm.TN++
		default:
			cm.FN++
		}
		cm.TotalSamples++
	}

	return nil
}

// GetMetric calculates the requested metric from the accumulated counts
func (cm *ConfusionMatrix) GetMetric(metric MetricType) float64 {
	switch metric {
	case Precision:
		return safeRatio(cm.TP, cm.TP+cm.FP)
	case Recall:
		return safeRatio(cm.TP, cm.TP+cm.FN)
	case F1Score:
		p := cm.GetMetric(Precision)
		r := cm.GetMetric(Recall)
		if p+r == 0 {
			return 0
		}
		return 2 * p * r / (p + r)
	case Specificity:
		return safeRatio(cm.TN, cm.TN+cm.FP)
	case NPV:
		return safeRatio(cm.TN, cm.TN+cm.FN)
	case BalancedAccuracy:
		return (cm.GetMetric(Recall) + cm.GetMetric(Specificity)) / 2
	default:
		return 0
	}
}

// GetAccuracy returns overall classification accuracy
func (cm *ConfusionMatrix) GetAccuracy() float64 {
	if cm.TotalSamples == 0 {
		return 0
	}
	return float64(cm.TP+cm.TN) / float64(cm.TotalSamples)
}

func safeRatio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// ROCPoint represents a point on the ROC curve
type ROCPoint struct {
	Threshold float32
	TPR       float64 // True Positive Rate (Recall)
	FPR       float64 // False Positive Rate (1 - Specificity)
}

type predLabel struct {
	score float32
	label float32
}

func sortedPairs(probabilities, targets []float32) []predLabel {
	pairs := make([]predLabel, len(probabilities))
	for i := range probabilities {
		pairs[i] = predLabel{score: probabilities[i], label: targets[i]}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})
	return pairs
}

// CalculateAUCROC calculates the area under the ROC curve via the trapezoidal
// rule. Returns 0 when either class is absent.
func CalculateAUCROC(probabilities, targets []float32) float64 {
	if len(probabilities) != len(targets) || len(probabilities) == 0 {
		return 0
	}

	pairs := sortedPairs(probabilities, targets)

	totalPos, totalNeg := 0, 0
	for _, pair := range pairs {
		if pair.label == 1 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		return 0
	}

	auc := 0.0
	tp, fp := 0, 0
	prevTPR, prevFPR := 0.0, 0.0

	for _, pair := range pairs {
		if pair.label == 1 {
			tp++
		} else {
			fp++
		}

		tpr := float64(tp) / float64(totalPos)
		fpr := float64(fp) / float64(totalNeg)

		auc += (fpr - prevFPR) * (tpr + prevTPR) / 2.0

		prevTPR = tpr
		prevFPR = fpr
	}

	return auc
}

// CalculateAUCPR calculates the area under the precision-recall curve.
// Returns 0 when no positives are present.
func CalculateAUCPR(probabilities, targets []float32) float64 {
	if len(probabilities) != len(targets) || len(probabilities) == 0 {
		return 0
	}

	pairs := sortedPairs(probabilities, targets)

	totalPos := 0
	for _, pair := range pairs {
		if pair.label == 1 {
			totalPos++
		}
	}
	if totalPos == 0 {
		return 0
	}

	auc := 0.0
	tp, fp := 0, 0
	prevRecall := 0.0
	prevPrecision := 1.0

	for _, pair := range pairs {
		if pair.label == 1 {
			tp++
		} else {
			fp++
		}

		recall := float64(tp) / float64(totalPos)
		precision := float64(tp) / float64(tp+fp)

		auc += (recall - prevRecall) * (precision + prevPrecision) / 2.0

		prevRecall = recall
		prevPrecision = precision
	}

	return auc
}

// ROCCurve returns the ROC points swept over the observed scores, sorted by
// descending threshold.
func ROCCurve(probabilities, targets []float32) []ROCPoint {
	if len(probabilities) != len(targets) || len(probabilities) == 0 {
		return nil
	}

	pairs := sortedPairs(probabilities, targets)

	totalPos, totalNeg := 0, 0
	for _, pair := range pairs {
		if pair.label == 1 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		return nil
	}

	points := make([]ROCPoint, 0, len(pairs))
	tp, fp := 0, 0
	for _, pair := range pairs {
		if pair.label == 1 {
			tp++
		} else {
			fp++
		}
		points = append(points, ROCPoint{
			Threshold: pair.score,
			TPR:       float64(tp) / float64(totalPos),
			FPR:       float64(fp) / float64(totalNeg),
		})
	}

	return points
}
