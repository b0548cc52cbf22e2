package layers

import (
	"fmt"
	"math/rand"

	"github.com/selenobot/selenobot/training"
)

// LayerType represents the type of neural network layer
type LayerType int

const (
	Dense LayerType = iota
	ReLU
	Sigmoid
)

func (lt LayerType) String() string {
	switch lt {
	case Dense:
		return "Dense"
	case ReLU:
		return "ReLU"
	case Sigmoid:
		return "Sigmoid"
	default:
		return "Unknown"
	}
}

// LayerSpec defines layer configuration.
// This is pure configuration - no execution logic
type LayerSpec struct {
	Type       LayerType              `json:"type"`
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`

	// Shape information (computed during model compilation)
	InputShape  []int `json:"input_shape,omitempty"`
	OutputShape []int `json:"output_shape,omitempty"`

	// Parameter metadata (computed during model compilation)
	ParameterShapes [][]int `json:"parameter_shapes,omitempty"`
	ParameterCount  int64   `json:"parameter_count,omitempty"`
}

// ModelSpec defines a complete model as layer configuration
type ModelSpec struct {
	Layers []LayerSpec `json:"layers"`

	// Compiled model information
	TotalParameters int64   `json:"total_parameters"`
	ParameterShapes [][]int `json:"parameter_shapes"`
	InputShape      []int   `json:"input_shape"`
	OutputShape     []int   `json:"output_shape"`
	Compiled        bool    `json:"compiled"`
}

// ModelBuilder helps construct classification models
type ModelBuilder struct {
	layers     []LayerSpec
	inputShape []int
	compiled   bool
}

// NewModelBuilder creates a new model builder
func NewModelBuilder(inputShape []int) *ModelBuilder {
	return &ModelBuilder{
		layers:     make([]LayerSpec, 0),
		inputShape: inputShape,
		compiled:   false,
	}
}

// AddLayer adds a layer to the model
func (mb *ModelBuilder) AddLayer(layer LayerSpec) *ModelBuilder {
	mb.layers = append(mb.layers, layer)
	mb.compiled = false // Invalidate compilation
	return mb
}

// AddDense adds a dense layer to the model
func (mb *ModelBuilder) AddDense(outputSize int, useBias bool, name string) *ModelBuilder {
	// Input size will be computed during compilation
	layer := LayerSpec{
		Type: Dense,
		Name: name,
		Parameters: map[string]interface{}{
			"output_size": outputSize,
			"use_bias":    useBias,
		},
	}
	return mb.AddLayer(layer)
}

// AddReLU adds a ReLU activation to the model
func (mb *ModelBuilder) AddReLU(name string) *ModelBuilder {
	layer := LayerSpec{
		Type:       ReLU,
		Name:       name,
		Parameters: map[string]interface{}{},
	}
	return mb.AddLayer(layer)
}

// AddSigmoid adds a Sigmoid activation to the model
func (mb *ModelBuilder) AddSigmoid(name string) *ModelBuilder {
	layer := LayerSpec{
		Type:       Sigmoid,
		Name:       name,
		Parameters: map[string]interface{}{},
	}
	return mb.AddLayer(layer)
}

// Compile compiles the model and computes shapes and parameter counts
func (mb *ModelBuilder) Compile() (*ModelSpec, error) {
	if len(mb.layers) == 0 {
		return nil, fmt.Errorf("cannot compile empty model")
	}

	model := &ModelSpec{
		Layers:     make([]LayerSpec, len(mb.layers)),
		InputShape: mb.inputShape,
		Compiled:   false,
	}

	copy(model.Layers, mb.layers)

	currentShape := mb.inputShape
	var allParameterShapes [][]int
	totalParams := int64(0)

	for i := range model.Layers {
		layer := &model.Layers[i]

		layer.InputShape = make([]int, len(currentShape))
		copy(layer.InputShape, currentShape)

		outputShape, paramShapes, paramCount, err := mb.computeLayerInfo(layer, currentShape)
		if err != nil {
			return nil, fmt.Errorf("failed to compute layer %d (%s) info: %v", i, layer.Name, err)
		}

		layer.OutputShape = outputShape
		layer.ParameterShapes = paramShapes
		layer.ParameterCount = paramCount

		allParameterShapes = append(allParameterShapes, paramShapes...)
		totalParams += paramCount

		currentShape = outputShape
	}

	model.OutputShape = currentShape
	model.ParameterShapes = allParameterShapes
	model.TotalParameters = totalParams
	model.Compiled = true
	mb.compiled = true

	return model, nil
}

// computeLayerInfo computes output shape and parameter information for a layer
func (mb *ModelBuilder) computeLayerInfo(layer *LayerSpec, inputShape []int) ([]int, [][]int, int64, error) {
	switch layer.Type {
	case Dense:
		return mb.computeDenseInfo(layer, inputShape)
	case ReLU, Sigmoid:
		return mb.computeActivationInfo(layer, inputShape)
	default:
		return nil, nil, 0, fmt.Errorf("unsupported layer type: %s", layer.Type.String())
	}
}

// computeDenseInfo computes dense layer information
func (mb *ModelBuilder) computeDenseInfo(layer *LayerSpec, inputShape []int) ([]int, [][]int, int64, error) {
	if len(inputShape) != 2 {
		return nil, nil, 0, fmt.Errorf("dense layer requires 2D input [batch, features]")
	}

	outputSize, ok := layer.Parameters["output_size"].(int)
	if !ok {
		return nil, nil, 0, fmt.Errorf("missing output_size parameter")
	}
	if outputSize <= 0 {
		return nil, nil, 0, fmt.Errorf("output_size must be positive, got %d", outputSize)
	}

	useBias := getBoolParam(layer.Parameters, "use_bias", true)

	inputSize := inputShape[1]
	layer.Parameters["input_size"] = inputSize

	batchSize := inputShape[0]
	outputShape := []int{batchSize, outputSize}

	var paramShapes [][]int
	paramCount := int64(0)

	// Weight matrix: [inputSize, outputSize]
	paramShapes = append(paramShapes, []int{inputSize, outputSize})
	paramCount += int64(inputSize * outputSize)

	// Bias: [1, outputSize], broadcast over the batch (if enabled)
	if useBias {
		paramShapes = append(paramShapes, []int{1, outputSize})
		paramCount += int64(outputSize)
	}

	return outputShape, paramShapes, paramCount, nil
}

func (mb *ModelBuilder) computeActivationInfo(layer *LayerSpec, inputShape []int) ([]int, [][]int, int64, error) {
	// Activation layers don't change shape and have no parameters
	outputShape := make([]int, len(inputShape))
	copy(outputShape, inputShape)

	return outputShape, [][]int{}, 0, nil
}

// GetCompiledModel returns the compiled model (must call Compile first)
func (mb *ModelBuilder) GetCompiledModel() (*ModelSpec, error) {
	if !mb.compiled {
		return nil, fmt.Errorf("model not compiled - call Compile() first")
	}

	return mb.Compile() // Re-compile to get fresh copy
}

// Materialize instantiates the compiled spec as runnable modules. Dense layers
// followed by ReLU use Kaiming-normal init, dense layers followed by Sigmoid
// use Xavier-normal, anything else Xavier-uniform. Weights are drawn from rng.
func (ms *ModelSpec) Materialize(rng *rand.Rand) (*training.Sequential, error) {
	if !ms.Compiled {
		return nil, fmt.Errorf("model not compiled")
	}

	model := training.NewSequential()
	for i, layer := range ms.Layers {
		switch layer.Type {
		case Dense:
			inputSize, ok := layer.Parameters["input_size"].(int)
			if !ok {
				return nil, fmt.Errorf("layer %d (%s): input_size not computed", i, layer.Name)
			}
			outputSize := layer.Parameters["output_size"].(int)
			useBias := getBoolParam(layer.Parameters, "use_bias", true)

			init := training.XavierUniform
			switch ms.followingActivation(i) {
			case ReLU:
				init = training.KaimingNormal
			case Sigmoid:
				init = training.XavierNormal
			}

			linear, err := training.NewLinear(inputSize, outputSize, useBias, init, rng)
			if err != nil {
				return nil, fmt.Errorf("layer %d (%s): %v", i, layer.Name, err)
			}
			model.Add(linear)
		case ReLU:
			model.Add(training.NewReLU())
		case Sigmoid:
			model.Add(training.NewSigmoid())
		default:
			return nil, fmt.Errorf("unsupported layer type: %s", layer.Type.String())
		}
	}

	return model, nil
}

// followingActivation returns the type of the first activation after layer i,
// stopping at the next Dense layer.
func (ms *ModelSpec) followingActivation(i int) LayerType {
	for j := i + 1; j < len(ms.Layers); j++ {
		if ms.Layers[j].Type == Dense {
			break
		}
		return ms.Layers[j].Type
	}
	return Dense
}

// Summary returns a human-readable model summary
func (ms *ModelSpec) Summary() string {
	if !ms.Compiled {
		return "Model not compiled"
	}

	summary := fmt.Sprintf("Model Summary:\n")
	summary += fmt.Sprintf("Input Shape: %v\n", ms.InputShape)
	summary += fmt.Sprintf("Output Shape: %v\n", ms.OutputShape)
	summary += fmt.Sprintf("Total Parameters: %d\n", ms.TotalParameters)
	summary += fmt.Sprintf("Layers: %d\n\n", len(ms.Layers))

	for i, layer := range ms.Layers {
		summary += fmt.Sprintf("Layer %d: %s (%s)\n", i+1, layer.Name, layer.Type.String())
		summary += fmt.Sprintf("  Input:  %v\n", layer.InputShape)
		summary += fmt.Sprintf("  Output: %v\n", layer.OutputShape)
		summary += fmt.Sprintf("  Params: %d\n", layer.ParameterCount)

		if len(layer.Parameters) > 0 {
			summary += fmt.Sprintf("  Config: %v\n", layer.Parameters)
		}
		summary += "\n"
	}

	return summary
}

func getBoolParam(params map[string]interface{}, key string, defaultValue bool) bool {
	if value, ok := params[key].(bool); ok {
		return value
	}
	return defaultValue
}
