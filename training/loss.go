package training

import (
	"errors"
	"fmt"
	"math"

	"github.com/selenobot/selenobot/tensor"
)

// ErrShapeMismatch reports that outputs and targets disagree in element count.
var ErrShapeMismatch = errors.New("outputs and targets have different element counts")

// bceEpsilon keeps probabilities away from exact 0/1 so the log terms stay
// finite.
const bceEpsilon = 1e-7

// Loss interface defines methods that all loss functions must implement
type Loss interface {
	Forward(predicted, target *tensor.Tensor) (*tensor.Tensor, error)
	Backward(predicted, target *tensor.Tensor) (*tensor.Tensor, error)
}

// WeightedBCELoss implements binary cross-entropy with a constant up-weight
// on positive (minority-class) targets:
//
//	L = mean( (-t*log(o) - (1-t)*log(1-o)) * w ),  w = PosWeight if t == 1 else 1
type WeightedBCELoss struct {
	posWeight float32
}

// NewWeightedBCELoss creates a weighted BCE loss. A posWeight <= 0 falls back
// to 1 (plain BCE).
func NewWeightedBCELoss(posWeight float32) *WeightedBCELoss {
	if posWeight <= 0 {
		posWeight = 1
	}
	return &WeightedBCELoss{posWeight: posWeight}
}

// PosWeight returns the configured positive-class weight.
func (l *WeightedBCELoss) PosWeight() float32 {
	return l.posWeight
}

// checkInputs validates dtypes and element counts and returns the flat data
// slices.
func (l *WeightedBCELoss) checkInputs(predicted, target *tensor.Tensor) ([]float32, []float32, error) {
	if predicted.DType != tensor.Float32 || target.DType != tensor.Float32 {
		return nil, nil, fmt.Errorf("weighted BCE requires Float32 tensors")
	}
	// Outputs are reshaped to the target shape, so only the element counts
	// have to agree.
	if predicted.NumElems != target.NumElems {
		return nil, nil, fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, predicted.NumElems, target.NumElems)
	}
	return predicted.Data.([]float32), target.Data.([]float32), nil
}

// Forward computes the mean weighted BCE over all elements.
func (l *WeightedBCELoss) Forward(predicted, target *tensor.Tensor) (*tensor.Tensor, error) {
	outs, targets, err := l.checkInputs(predicted, target)
	if err != nil {
		return nil, err
	}

	n := len(outs)
	var sum float64
	for i := 0; i < n; i++ {
		o := clampProbability(outs[i])
		t := float64(targets[i])

		bce := -t*math.Log(o) - (1-t)*math.Log(1-o)
		if targets[i] == 1 {
			bce *= float64(l.posWeight)
		}
		sum += bce
	}

	return tensor.NewTensor([]int{1}, tensor.Float32, []float32{float32(sum / float64(n))})
}

// Backward computes the gradient of the mean weighted BCE with respect to the
// predicted probabilities:
//
//	dL/do_i = w_i * (o_i - t_i) / (o_i * (1 - o_i)) / N
func (l *WeightedBCELoss) Backward(predicted, target *tensor.Tensor) (*tensor.Tensor, error) {
	outs, targets, err := l.checkInputs(predicted, target)
	if err != nil {
		return nil, err
	}

	n := len(outs)
	gradData := make([]float32, n)
	for i := 0; i < n; i++ {
		o := clampProbability(outs[i])
		t := float64(targets[i])

		w := 1.0
		if targets[i] == 1 {
			w = float64(l.posWeight)
		}
		gradData[i] = float32(w * (o - t) / (o * (1 - o)) / float64(n))
	}

	return tensor.NewTensor(predicted.Shape, tensor.Float32, gradData)
}

func clampProbability(v float32) float64 {
	o := float64(v)
	if o < bceEpsilon {
		return bceEpsilon
	}
	if o > 1-bceEpsilon {
		return 1 - bceEpsilon
	}
	return o
}
