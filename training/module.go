package training

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/selenobot/selenobot/tensor"
)

// Module interface defines methods that all neural network layers must implement
type Module interface {
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() []*tensor.Tensor // Returns trainable parameters (tensors with requiresGrad=true)
	Train()                       // Sets module to training mode
	Eval()                        // Sets module to evaluation mode
	IsTraining() bool             // Returns true if in training mode
}

// InitScheme selects the weight initialization of a Linear layer.
type InitScheme int

const (
	// XavierUniform draws W ~ U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut)))
	XavierUniform InitScheme = iota
	// XavierNormal draws W ~ N(0, sqrt(2/(fanIn+fanOut))), suited to
	// sigmoid/tanh-fed layers
	XavierNormal
	// KaimingNormal draws W ~ N(0, sqrt(2/fanIn)), suited to ReLU-fed layers
	KaimingNormal
)

// Linear implements a fully connected (dense) layer: y = xW + b
type Linear struct {
	weight   *tensor.Tensor
	bias     *tensor.Tensor
	training bool
}

// NewLinear creates a new Linear layer. Weights are drawn from rng using the
// given scheme, so a seeded source yields reproducible initialization.
func NewLinear(inputSize, outputSize int, bias bool, init InitScheme, rng *rand.Rand) (*Linear, error) {
	if inputSize <= 0 || outputSize <= 0 {
		return nil, fmt.Errorf("layer dimensions must be positive, got %d x %d", inputSize, outputSize)
	}

	weightData := make([]float32, inputSize*outputSize)
	switch init {
	case XavierUniform:
		bound := math.Sqrt(6.0 / float64(inputSize+outputSize))
		for i := range weightData {
			weightData[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
		}
	case XavierNormal:
		std := math.Sqrt(2.0 / float64(inputSize+outputSize))
		for i := range weightData {
			weightData[i] = float32(rng.NormFloat64() * std)
		}
	case KaimingNormal:
		std := math.Sqrt(2.0 / float64(inputSize))
		for i := range weightData {
			weightData[i] = float32(rng.NormFloat64() * std)
		}
	default:
		return nil, fmt.Errorf("unknown init scheme: %d", init)
	}

	// Weight shape is [inputSize, outputSize] so the forward pass is a plain
	// input @ weight.
	weight, err := tensor.NewTensor([]int{inputSize, outputSize}, tensor.Float32, weightData)
	if err != nil {
		return nil, fmt.Errorf("failed to create weight tensor: %v", err)
	}
	weight.SetRequiresGrad(true)

	linear := &Linear{
		weight:   weight,
		training: true,
	}

	if bias {
		biasData := make([]float32, outputSize)
		biasT, err := tensor.NewTensor([]int{1, outputSize}, tensor.Float32, biasData)
		if err != nil {
			return nil, fmt.Errorf("failed to create bias tensor: %v", err)
		}
		biasT.SetRequiresGrad(true)
		linear.bias = biasT
	}

	return linear, nil
}

// Forward performs the forward pass: y = xW + b
func (l *Linear) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 2 {
		return nil, fmt.Errorf("Linear layer expects 2D input [batch_size, input_size], got shape %v", input.Shape)
	}

	inputSize := input.Shape[1]
	if inputSize != l.weight.Shape[0] {
		return nil, fmt.Errorf("input size mismatch: expected %d, got %d", l.weight.Shape[0], inputSize)
	}

	output, err := tensor.MatMulAutograd(input, l.weight)
	if err != nil {
		return nil, fmt.Errorf("matmul failed: %v", err)
	}

	if l.bias != nil {
		output, err = tensor.AddAutograd(output, l.bias)
		if err != nil {
			return nil, fmt.Errorf("bias addition failed: %v", err)
		}
	}

	return output, nil
}

// Weight returns the layer's weight tensor ([inputSize, outputSize]).
func (l *Linear) Weight() *tensor.Tensor {
	return l.weight
}

// Bias returns the layer's bias tensor ([1, outputSize]), or nil.
func (l *Linear) Bias() *tensor.Tensor {
	return l.bias
}

// Parameters returns the trainable parameters
func (l *Linear) Parameters() []*tensor.Tensor {
	params := []*tensor.Tensor{l.weight}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	return params
}

// Train sets the module to training mode
func (l *Linear) Train() {
	l.training = true
}

// Eval sets the module to evaluation mode
func (l *Linear) Eval() {
	l.training = false
}

// IsTraining returns true if in training mode
func (l *Linear) IsTraining() bool {
	return l.training
}

// ReLU implements ReLU activation function module
type ReLU struct {
	training bool
}

// NewReLU creates a new ReLU activation module
func NewReLU() *ReLU {
	return &ReLU{training: true}
}

// Forward performs ReLU activation
func (r *ReLU) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.ReLUAutograd(input)
}

// Parameters returns empty slice (ReLU has no parameters)
func (r *ReLU) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{}
}

// Train sets the module to training mode
func (r *ReLU) Train() {
	r.training = true
}

// Eval sets the module to evaluation mode
func (r *ReLU) Eval() {
	r.training = false
}

// IsTraining returns true if in training mode
func (r *ReLU) IsTraining() bool {
	return r.training
}

// Sigmoid implements sigmoid activation function module
type Sigmoid struct {
	training bool
}

// NewSigmoid creates a new Sigmoid activation module
func NewSigmoid() *Sigmoid {
	return &Sigmoid{training: true}
}

// Forward performs sigmoid activation
func (s *Sigmoid) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.SigmoidAutograd(input)
}

// Parameters returns empty slice (Sigmoid has no parameters)
func (s *Sigmoid) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{}
}

// Train sets the module to training mode
func (s *Sigmoid) Train() {
	s.training = true
}

// Eval sets the module to evaluation mode
func (s *Sigmoid) Eval() {
	s.training = false
}

// IsTraining returns true if in training mode
func (s *Sigmoid) IsTraining() bool {
	return s.training
}

// NamedParameter pairs a parameter tensor with its state-dict name.
type NamedParameter struct {
	Name   string
	Tensor *tensor.Tensor
}

// Sequential allows chaining multiple modules together
type Sequential struct {
	modules  []Module
	training bool
}

// NewSequential creates a new Sequential container
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{
		modules:  modules,
		training: true,
	}
}

// Forward passes input through all modules in sequence
func (s *Sequential) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	output := input
	var err error

	for i, module := range s.modules {
		output, err = module.Forward(output)
		if err != nil {
			return nil, fmt.Errorf("module %d forward failed: %v", i, err)
		}
	}

	return output, nil
}

// Parameters returns all trainable parameters from all modules
func (s *Sequential) Parameters() []*tensor.Tensor {
	var allParams []*tensor.Tensor
	for _, module := range s.modules {
		allParams = append(allParams, module.Parameters()...)
	}
	return allParams
}

// NamedParameters returns the parameters of all Linear layers with
// position-based names ("0.weight", "0.bias", "2.weight", ...), in module
// order.
func (s *Sequential) NamedParameters() []NamedParameter {
	var out []NamedParameter
	for i, module := range s.modules {
		linear, ok := module.(*Linear)
		if !ok {
			continue
		}
		out = append(out, NamedParameter{Name: fmt.Sprintf("%d.weight", i), Tensor: linear.weight})
		if linear.bias != nil {
			out = append(out, NamedParameter{Name: fmt.Sprintf("%d.bias", i), Tensor: linear.bias})
		}
	}
	return out
}

// Modules returns the contained modules in order.
func (s *Sequential) Modules() []Module {
	return s.modules
}

// Train sets all modules to training mode
func (s *Sequential) Train() {
	s.training = true
	for _, module := range s.modules {
		module.Train()
	}
}

// Eval sets all modules to evaluation mode
func (s *Sequential) Eval() {
	s.training = false
	for _, module := range s.modules {
		module.Eval()
	}
}

// IsTraining returns true if in training mode
func (s *Sequential) IsTraining() bool {
	return s.training
}

// Add appends a module to the sequential container
func (s *Sequential) Add(module Module) {
	s.modules = append(s.modules, module)
}
