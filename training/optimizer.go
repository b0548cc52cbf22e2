package training

import (
	"fmt"
	"math"
	"sync"

	"github.com/selenobot/selenobot/tensor"
)

// Optimizer interface defines the methods that all optimizers must implement
type Optimizer interface {
	Step() error      // Updates model parameters based on gradients
	ZeroGrad()        // Resets gradients to zero for all parameters
	GetLR() float64   // Gets current learning rate
	SetLR(lr float64) // Sets learning rate
}

func paramData(param *tensor.Tensor) ([]float32, []float32, error) {
	if param.DType != tensor.Float32 {
		return nil, nil, fmt.Errorf("optimizer only supports Float32 parameters, got %s", param.DType)
	}
	grad := param.Grad()
	if grad.NumElems != param.NumElems {
		return nil, nil, fmt.Errorf("gradient has %d elements for parameter with %d", grad.NumElems, param.NumElems)
	}
	return param.Data.([]float32), grad.Data.([]float32), nil
}

// SGD implements Stochastic Gradient Descent optimizer
type SGD struct {
	parameters   []*tensor.Tensor
	learningRate float64
	momentum     float64
	weightDecay  float64
	dampening    float64
	nesterov     bool
	velocities   map[*tensor.Tensor][]float32
	mutex        sync.RWMutex
}

// NewSGD creates a new SGD optimizer
func NewSGD(parameters []*tensor.Tensor, lr float64, momentum float64, weightDecay float64, dampening float64, nesterov bool) *SGD {
	sgd := &SGD{
		parameters:   parameters,
		learningRate: lr,
		momentum:     momentum,
		weightDecay:  weightDecay,
		dampening:    dampening,
		nesterov:     nesterov,
		velocities:   make(map[*tensor.Tensor][]float32),
	}

	if momentum > 0 {
		for _, param := range parameters {
			if param.RequiresGrad() {
				sgd.velocities[param] = make([]float32, param.NumElems)
			}
		}
	}

	return sgd
}

// Step performs a single optimization step
func (sgd *SGD) Step() error {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()

	for _, param := range sgd.parameters {
		if !param.RequiresGrad() || param.Grad() == nil {
			continue
		}

		data, gradData, err := paramData(param)
		if err != nil {
			return err
		}

		for i := range data {
			g := float64(gradData[i])

			if sgd.weightDecay > 0 {
				g += sgd.weightDecay * float64(data[i])
			}

			if sgd.momentum > 0 {
				velocity := sgd.velocities[param]
				if velocity == nil {
					velocity = make([]float32, param.NumElems)
					sgd.velocities[param] = velocity
				}

				v := sgd.momentum*float64(velocity[i]) + (1-sgd.dampening)*g
				velocity[i] = float32(v)

				if sgd.nesterov {
					g += sgd.momentum * v
				} else {
					g = v
				}
			}

			data[i] -= float32(sgd.learningRate * g)
		}
	}

	return nil
}

// ZeroGrad resets gradients to zero for all parameters
func (sgd *SGD) ZeroGrad() {
	tensor.ZeroGrad(sgd.parameters)
}

// GetLR gets the current learning rate
func (sgd *SGD) GetLR() float64 {
	sgd.mutex.RLock()
	defer sgd.mutex.RUnlock()
	return sgd.learningRate
}

// SetLR sets the learning rate
func (sgd *SGD) SetLR(lr float64) {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()
	sgd.learningRate = lr
}

// Adam implements the Adam optimizer with bias correction
type Adam struct {
	parameters   []*tensor.Tensor
	learningRate float64
	beta1        float64
	beta2        float64
	eps          float64
	weightDecay  float64
	stepCount    int
	m            map[*tensor.Tensor][]float32 // first moment estimates
	v            map[*tensor.Tensor][]float32 // second moment estimates
	mutex        sync.RWMutex
}

// NewAdam creates a new Adam optimizer. Zero-valued beta1, beta2, and eps
// fall back to the standard defaults (0.9, 0.999, 1e-8).
func NewAdam(parameters []*tensor.Tensor, lr, beta1, beta2, eps, weightDecay float64) *Adam {
	if beta1 <= 0 {
		beta1 = 0.9
	}
	if beta2 <= 0 {
		beta2 = 0.999
	}
	if eps <= 0 {
		eps = 1e-8
	}

	adam := &Adam{
		parameters:   parameters,
		learningRate: lr,
		beta1:        beta1,
		beta2:        beta2,
		eps:          eps,
		weightDecay:  weightDecay,
		m:            make(map[*tensor.Tensor][]float32),
		v:            make(map[*tensor.Tensor][]float32),
	}

	for _, param := range parameters {
		if param.RequiresGrad() {
			adam.m[param] = make([]float32, param.NumElems)
			adam.v[param] = make([]float32, param.NumElems)
		}
	}

	return adam
}

// Step performs a single optimization step
func (adam *Adam) Step() error {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()

	adam.stepCount++
	biasCorrection1 := 1 - math.Pow(adam.beta1, float64(adam.stepCount))
	biasCorrection2 := 1 - math.Pow(adam.beta2, float64(adam.stepCount))

	for _, param := range adam.parameters {
		if !param.RequiresGrad() || param.Grad() == nil {
			continue
		}

		data, gradData, err := paramData(param)
		if err != nil {
			return err
		}

		m := adam.m[param]
		v := adam.v[param]
		if m == nil {
			m = make([]float32, param.NumElems)
			v = make([]float32, param.NumElems)
			adam.m[param] = m
			adam.v[param] = v
		}

		for i := range data {
			g := float64(gradData[i])

			if adam.weightDecay > 0 {
				g += adam.weightDecay * float64(data[i])
			}

			mi := adam.beta1*float64(m[i]) + (1-adam.beta1)*g
			vi := adam.beta2*float64(v[i]) + (1-adam.beta2)*g*g
			m[i] = float32(mi)
			v[i] = float32(vi)

			mHat := mi / biasCorrection1
			vHat := vi / biasCorrection2

			data[i] -= float32(adam.learningRate * mHat / (math.Sqrt(vHat) + adam.eps))
		}
	}

	return nil
}

// ZeroGrad resets gradients to zero for all parameters
func (adam *Adam) ZeroGrad() {
	tensor.ZeroGrad(adam.parameters)
}

// GetLR gets the current learning rate
func (adam *Adam) GetLR() float64 {
	adam.mutex.RLock()
	defer adam.mutex.RUnlock()
	return adam.learningRate
}

// SetLR sets the learning rate
func (adam *Adam) SetLR(lr float64) {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()
	adam.learningRate = lr
}
