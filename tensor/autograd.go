package tensor

import (
	"fmt"
)

// reduceGradientToShape reduces a gradient tensor to match the target shape.
// This is needed when broadcasting occurred during the forward pass.
func reduceGradientToShape(grad *Tensor, targetShape []int) (*Tensor, error) {
	if shapesEqual(grad.Shape, targetShape) {
		return grad.Clone()
	}

	if len(targetShape) == 1 && targetShape[0] == 1 {
		return sumAllElements(grad)
	}

	result := grad
	var err error

	gradDims := len(grad.Shape)
	targetDims := len(targetShape)

	// If target has fewer dimensions, sum over leading dimensions
	dimsToSum := gradDims - targetDims
	for i := 0; i < dimsToSum; i++ {
		result, err = sumOverDimension(result, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to sum over dimension: %v", err)
		}
	}

	// Remaining dimensions may have been broadcast from size 1
	for i := 0; i < len(targetShape); i++ {
		if i < len(result.Shape) && result.Shape[i] != targetShape[i] {
			if targetShape[i] == 1 && result.Shape[i] > 1 {
				result, err = sumOverDimensionKeep(result, i)
				if err != nil {
					return nil, fmt.Errorf("failed to sum over broadcast dimension: %v", err)
				}
			}
		}
	}

	if !shapesEqual(result.Shape, targetShape) {
		result, err = Reshape(result, targetShape)
		if err != nil {
			return nil, fmt.Errorf("failed to reshape gradient: %v", err)
		}
	}

	return result, nil
}

// sumAllElements sums all elements in a tensor into a single-element tensor
func sumAllElements(t *Tensor) (*Tensor, error) {
	switch t.DType {
	case Float32:
		data := t.Data.([]float32)
		sum := float32(0)
		for _, val := range data {
			sum += val
		}
		return NewTensor([]int{1}, t.DType, []float32{sum})
	case Int32:
		data := t.Data.([]int32)
		sum := int32(0)
		for _, val := range data {
			sum += val
		}
		return NewTensor([]int{1}, t.DType, []int32{sum})
	default:
		return nil, fmt.Errorf("unsupported data type for sum: %v", t.DType)
	}
}

// sumOverDimension sums a tensor over a specific dimension, dropping it
func sumOverDimension(t *Tensor, dim int) (*Tensor, error) {
	if dim < 0 || dim >= len(t.Shape) {
		return nil, fmt.Errorf("dimension %d out of bounds for tensor with %d dimensions", dim, len(t.Shape))
	}

	outputShape := make([]int, 0, len(t.Shape)-1)
	for i, size := range t.Shape {
		if i != dim {
			outputShape = append(outputShape, size)
		}
	}

	if len(outputShape) == 0 {
		return sumAllElements(t)
	}

	result, err := Zeros(outputShape, t.DType)
	if err != nil {
		return nil, err
	}

	switch t.DType {
	case Float32:
		inputData := t.Data.([]float32)
		outputData := result.Data.([]float32)

		inputStrides := calculateStrides(t.Shape)

		for outputIdx := 0; outputIdx < result.NumElems; outputIdx++ {
			outputCoords := indexToCoords(outputIdx, outputShape)

			// Map to input coordinates (insert dimension being summed)
			inputCoords := make([]int, len(t.Shape))
			outputDim := 0
			for inputDim := 0; inputDim < len(t.Shape); inputDim++ {
				if inputDim == dim {
					inputCoords[inputDim] = 0
				} else {
					inputCoords[inputDim] = outputCoords[outputDim]
					outputDim++
				}
			}

			sum := float32(0)
			for k := 0; k < t.Shape[dim]; k++ {
				inputCoords[dim] = k
				inputIdx := coordsToIndex(inputCoords, inputStrides)
				sum += inputData[inputIdx]
			}
			outputData[outputIdx] = sum
		}
	case Int32:
		inputData := t.Data.([]int32)
		outputData := result.Data.([]int32)

		inputStrides := calculateStrides(t.Shape)

		for outputIdx := 0; outputIdx < result.NumElems; outputIdx++ {
			outputCoords := indexToCoords(outputIdx, outputShape)

			inputCoords := make([]int, len(t.Shape))
			outputDim := 0
			for inputDim := 0; inputDim < len(t.Shape); inputDim++ {
				if inputDim == dim {
					inputCoords[inputDim] = 0
				} else {
					inputCoords[inputDim] = outputCoords[outputDim]
					outputDim++
				}
			}

			sum := int32(0)
			for k := 0; k < t.Shape[dim]; k++ {
				inputCoords[dim] = k
				inputIdx := coordsToIndex(inputCoords, inputStrides)
				sum += inputData[inputIdx]
			}
			outputData[outputIdx] = sum
		}
	default:
		return nil, fmt.Errorf("unsupported data type for sum: %v", t.DType)
	}

	return result, nil
}

// sumOverDimensionKeep sums a tensor over a dimension, keeping it with size 1
func sumOverDimensionKeep(t *Tensor, dim int) (*Tensor, error) {
	return Sum(t, dim, true)
}

// Helper functions for coordinate conversion
func indexToCoords(index int, shape []int) []int {
	coords := make([]int, len(shape))
	remaining := index
	for i := len(shape) - 1; i >= 0; i-- {
		coords[i] = remaining % shape[i]
		remaining /= shape[i]
	}
	return coords
}

func coordsToIndex(coords []int, strides []int) int {
	index := 0
	for i, coord := range coords {
		index += coord * strides[i]
	}
	return index
}

// AddOp implements the Operation interface for tensor addition
type AddOp struct {
	inputs []*Tensor
}

func (op *AddOp) Inputs() []*Tensor {
	return op.inputs
}

func (op *AddOp) Backward(gradOut *Tensor) ([]*Tensor, error) {
	// ∂(a + b)/∂a = 1, ∂(a + b)/∂b = 1; broadcast dims reduce back
	gradA, err := reduceGradientToShape(gradOut, op.inputs[0].Shape)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce gradient for input A: %v", err)
	}

	gradB, err := reduceGradientToShape(gradOut, op.inputs[1].Shape)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce gradient for input B: %v", err)
	}

	return []*Tensor{gradA, gradB}, nil
}

// SubOp implements the Operation interface for tensor subtraction
type SubOp struct {
	inputs []*Tensor
}

func (op *SubOp) Inputs() []*Tensor {
	return op.inputs
}

func (op *SubOp) Backward(gradOut *Tensor) ([]*Tensor, error) {
	// ∂(a - b)/∂a = 1, ∂(a - b)/∂b = -1
	gradA, err := reduceGradientToShape(gradOut, op.inputs[0].Shape)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce gradient for input A: %v", err)
	}

	negGradOut, err := gradOut.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to clone gradient for negation: %v", err)
	}

	switch negGradOut.DType {
	case Float32:
		data := negGradOut.Data.([]float32)
		for i := range data {
			data[i] = -data[i]
		}
	case Int32:
		data := negGradOut.Data.([]int32)
		for i := range data {
			data[i] = -data[i]
		}
	}

	gradB, err := reduceGradientToShape(negGradOut, op.inputs[1].Shape)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce gradient for input B: %v", err)
	}

	return []*Tensor{gradA, gradB}, nil
}

// MulOp implements the Operation interface for elementwise multiplication
type MulOp struct {
	inputs []*Tensor
}

func (op *MulOp) Inputs() []*Tensor {
	return op.inputs
}

func (op *MulOp) Backward(gradOut *Tensor) ([]*Tensor, error) {
	a, b := op.inputs[0], op.inputs[1]

	// ∂(a * b)/∂a = b, ∂(a * b)/∂b = a
	bBroadcast, err := BroadcastTensor(b, gradOut.Shape)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast b for gradA: %v", err)
	}

	gradAFull, err := Mul(gradOut, bBroadcast)
	if err != nil {
		return nil, fmt.Errorf("backward pass failed for gradA: %v", err)
	}

	gradA, err := reduceGradientToShape(gradAFull, a.Shape)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce gradient for input A: %v", err)
	}

	aBroadcast, err := BroadcastTensor(a, gradOut.Shape)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast a for gradB: %v", err)
	}

	gradBFull, err := Mul(gradOut, aBroadcast)
	if err != nil {
		return nil, fmt.Errorf("backward pass failed for gradB: %v", err)
	}

	gradB, err := reduceGradientToShape(gradBFull, b.Shape)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce gradient for input B: %v", err)
	}

	return []*Tensor{gradA, gradB}, nil
}

// MatMulOp implements the Operation interface for matrix multiplication
type MatMulOp struct {
	inputs []*Tensor
}

func (op *MatMulOp) Inputs() []*Tensor {
	return op.inputs
}

func (op *MatMulOp) Backward(gradOut *Tensor) ([]*Tensor, error) {
	a, b := op.inputs[0], op.inputs[1]

	// ∂(A @ B)/∂A = gradOut @ B^T, ∂(A @ B)/∂B = A^T @ gradOut
	bT, err := Transpose(b, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to transpose B: %v", err)
	}

	gradA, err := MatMul(gradOut, bT)
	if err != nil {
		return nil, fmt.Errorf("backward pass failed for gradA: %v", err)
	}

	aT, err := Transpose(a, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to transpose A: %v", err)
	}

	gradB, err := MatMul(aT, gradOut)
	if err != nil {
		return nil, fmt.Errorf("backward pass failed for gradB: %v", err)
	}

	return []*Tensor{gradA, gradB}, nil
}

// ReLUOp implements the Operation interface for ReLU activation
type ReLUOp struct {
	inputs []*Tensor
}

func (op *ReLUOp) Inputs() []*Tensor {
	return op.inputs
}

func (op *ReLUOp) Backward(gradOut *Tensor) ([]*Tensor, error) {
	a := op.inputs[0]

	// ∂ReLU(x)/∂x = 1 if x > 0, else 0
	grad, err := gradOut.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to clone gradient: %v", err)
	}

	switch a.DType {
	case Float32:
		inputData := a.Data.([]float32)
		gradData := grad.Data.([]float32)
		for i := range gradData {
			if inputData[i] <= 0 {
				gradData[i] = 0
			}
		}
	case Int32:
		inputData := a.Data.([]int32)
		gradData := grad.Data.([]int32)
		for i := range gradData {
			if inputData[i] <= 0 {
				gradData[i] = 0
			}
		}
	}

	return []*Tensor{grad}, nil
}

// SigmoidOp implements the Operation interface for Sigmoid activation
type SigmoidOp struct {
	inputs []*Tensor
	output *Tensor // stored for the backward pass
}

func (op *SigmoidOp) Inputs() []*Tensor {
	return op.inputs
}

func (op *SigmoidOp) Backward(gradOut *Tensor) ([]*Tensor, error) {
	if op.output == nil {
		return nil, fmt.Errorf("sigmoid backward: output not stored")
	}

	// ∂σ(x)/∂x = σ(x) * (1 - σ(x))
	ones, err := Ones(op.output.Shape, op.output.DType)
	if err != nil {
		return nil, fmt.Errorf("failed to create ones tensor: %v", err)
	}

	oneMinusOutput, err := Sub(ones, op.output)
	if err != nil {
		return nil, fmt.Errorf("failed to compute (1 - output): %v", err)
	}

	sigmoidGrad, err := Mul(op.output, oneMinusOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sigmoid gradient: %v", err)
	}

	grad, err := Mul(gradOut, sigmoidGrad)
	if err != nil {
		return nil, fmt.Errorf("failed to apply chain rule: %v", err)
	}

	return []*Tensor{grad}, nil
}

// High-level autograd functions that create and execute operations

// AddAutograd performs addition with automatic differentiation
func AddAutograd(a, b *Tensor) (*Tensor, error) {
	result, err := Add(a, b)
	if err != nil {
		return nil, err
	}
	result.creator = &AddOp{inputs: []*Tensor{a, b}}
	result.requiresGrad = a.requiresGrad || b.requiresGrad
	return result, nil
}

// SubAutograd performs subtraction with automatic differentiation
func SubAutograd(a, b *Tensor) (*Tensor, error) {
	result, err := Sub(a, b)
	if err != nil {
		return nil, err
	}
	result.creator = &SubOp{inputs: []*Tensor{a, b}}
	result.requiresGrad = a.requiresGrad || b.requiresGrad
	return result, nil
}

// MulAutograd performs multiplication with automatic differentiation
func MulAutograd(a, b *Tensor) (*Tensor, error) {
	result, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	result.creator = &MulOp{inputs: []*Tensor{a, b}}
	result.requiresGrad = a.requiresGrad || b.requiresGrad
	return result, nil
}

// MatMulAutograd performs matrix multiplication with automatic differentiation
func MatMulAutograd(a, b *Tensor) (*Tensor, error) {
	result, err := MatMul(a, b)
	if err != nil {
		return nil, err
	}
	result.creator = &MatMulOp{inputs: []*Tensor{a, b}}
	result.requiresGrad = a.requiresGrad || b.requiresGrad
	return result, nil
}

// ReLUAutograd performs ReLU activation with automatic differentiation
func ReLUAutograd(a *Tensor) (*Tensor, error) {
	result, err := ReLU(a)
	if err != nil {
		return nil, err
	}
	result.creator = &ReLUOp{inputs: []*Tensor{a}}
	result.requiresGrad = a.requiresGrad
	return result, nil
}

// SigmoidAutograd performs Sigmoid activation with automatic differentiation
func SigmoidAutograd(a *Tensor) (*Tensor, error) {
	result, err := Sigmoid(a)
	if err != nil {
		return nil, err
	}
	result.creator = &SigmoidOp{inputs: []*Tensor{a}, output: result}
	result.requiresGrad = a.requiresGrad
	return result, nil
}

// Backward runs backpropagation from t, which must hold a single element
// (typically a loss value). The seed gradient is 1.
func (t *Tensor) Backward() error {
	if t.NumElems != 1 {
		return fmt.Errorf("backward without a gradient requires a single-element tensor, got %d elements", t.NumElems)
	}
	seed, err := Ones(t.Shape, t.DType)
	if err != nil {
		return err
	}
	return t.BackwardWith(seed)
}

// BackwardWith runs backpropagation from t with an explicit output gradient.
// Gradients accumulate into every reachable tensor that requires grad.
func (t *Tensor) BackwardWith(grad *Tensor) error {
	if grad == nil {
		return fmt.Errorf("backward requires a non-nil gradient")
	}
	if !shapesEqual(grad.Shape, t.Shape) {
		return fmt.Errorf("gradient shape %v does not match tensor shape %v", grad.Shape, t.Shape)
	}

	// Topological order over the creator graph, outputs before inputs.
	var order []*Tensor
	visited := make(map[*Tensor]bool)

	var visit func(node *Tensor)
	visit = func(node *Tensor) {
		if visited[node] {
			return
		}
		visited[node] = true
		if node.creator != nil {
			for _, input := range node.creator.Inputs() {
				visit(input)
			}
		}
		order = append(order, node)
	}
	visit(t)

	grads := make(map[*Tensor]*Tensor)
	grads[t] = grad

	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		nodeGrad, ok := grads[node]
		if !ok {
			continue
		}

		if node.requiresGrad {
			if err := node.accumulateGrad(nodeGrad); err != nil {
				return err
			}
		}

		if node.creator == nil {
			continue
		}

		inputGrads, err := node.creator.Backward(nodeGrad)
		if err != nil {
			return err
		}

		inputs := node.creator.Inputs()
		if len(inputGrads) != len(inputs) {
			return fmt.Errorf("operation returned %d gradients for %d inputs", len(inputGrads), len(inputs))
		}

		for j, input := range inputs {
			if existing, ok := grads[input]; ok {
				summed, err := Add(existing, inputGrads[j])
				if err != nil {
					return fmt.Errorf("failed to accumulate gradient: %v", err)
				}
				grads[input] = summed
			} else {
				grads[input] = inputGrads[j]
			}
		}
	}

	return nil
}

// accumulateGrad adds g into the tensor's stored gradient
func (t *Tensor) accumulateGrad(g *Tensor) error {
	if t.grad == nil {
		clone, err := g.Clone()
		if err != nil {
			return err
		}
		t.grad = clone
		return nil
	}

	summed, err := Add(t.grad, g)
	if err != nil {
		return fmt.Errorf("failed to accumulate gradient: %v", err)
	}
	t.grad = summed
	return nil
}
