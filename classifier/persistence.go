package classifier

import (
	"fmt"

	"github.com/selenobot/selenobot/checkpoints"
)

// Save writes the classifier and its training history to a model file.
func (c *Classifier) Save(path string) error {
	stateDict := make(map[string]checkpoints.NDArray)
	for _, param := range c.model.NamedParameters() {
		shape := make([]int, len(param.Tensor.Shape))
		copy(shape, param.Tensor.Shape)
		data := make([]float32, param.Tensor.NumElems)
		copy(data, param.Tensor.Data.([]float32))

		arr, err := checkpoints.NewNDArray(shape, data)
		if err != nil {
			return fmt.Errorf("failed to encode parameter %s: %v", param.Name, err)
		}
		stateDict[param.Name] = arr
	}

	ckpt := &checkpoints.Checkpoint{
		Epochs:      c.epochs,
		BatchSize:   c.batchSize,
		LR:          c.lr,
		ValLosses:   checkpoints.FloatSeries(c.valLosses),
		TrainLosses: checkpoints.FloatSeries(c.trainLosses),
		BestEpoch:   c.bestEpoch,
		StateDict:   stateDict,
	}
	return checkpoints.Save(path, ckpt)
}

// Load reads a model file and reconstructs the classifier: architecture is
// inferred from the state-dict parameter shapes, then the saved weights and
// training history are restored.
func Load(path string) (*Classifier, error) {
	ckpt, err := checkpoints.Load(path)
	if err != nil {
		return nil, err
	}

	first, ok := ckpt.StateDict["0.weight"]
	if !ok {
		return nil, fmt.Errorf("state_dict has no 0.weight parameter")
	}
	if len(first.Shape) != 2 {
		return nil, fmt.Errorf("0.weight has shape %v, want 2 dimensions", first.Shape)
	}

	cfg := Config{InputDim: first.Shape[0]}
	if _, twoLayer := ckpt.StateDict["2.weight"]; twoLayer {
		cfg.HiddenDim = first.Shape[1]
	} else if first.Shape[1] != 1 {
		return nil, fmt.Errorf("single-layer 0.weight has %d outputs, want 1", first.Shape[1])
	}

	c, err := New(cfg)
	if err != nil {
		return nil, err
	}

	for _, param := range c.model.NamedParameters() {
		arr, ok := ckpt.StateDict[param.Name]
		if !ok {
			return nil, fmt.Errorf("state_dict missing parameter %s", param.Name)
		}
		if !shapesEqual(arr.Shape, param.Tensor.Shape) {
			return nil, fmt.Errorf("parameter %s has shape %v, model expects %v", param.Name, arr.Shape, param.Tensor.Shape)
		}
		copy(param.Tensor.Data.([]float32), arr.Data)
	}

	c.epochs = ckpt.Epochs
	c.batchSize = ckpt.BatchSize
	c.lr = ckpt.LR
	c.trainLosses = []float64(ckpt.TrainLosses)
	c.valLosses = []float64(ckpt.ValLosses)
	c.bestEpoch = ckpt.BestEpoch
	c.model.Eval()

	return c, nil
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
