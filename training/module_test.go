package training

import (
	"math"
	"math/rand"
	"testing"

	"github.com/selenobot/selenobot/tensor"
)

func TestLinearForward(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	layer, err := NewLinear(2, 1, true, XavierUniform, rng)
	if err != nil {
		t.Fatalf("NewLinear failed: %v", err)
	}

	// Overwrite the random init with known values
	copy(layer.Weight().Data.([]float32), []float32{2, 3})
	copy(layer.Bias().Data.([]float32), []float32{0.5})

	input := tensorOf(t, []int{2, 2}, []float32{1, 1, 2, -1})
	output, err := layer.Forward(input)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if len(output.Shape) != 2 || output.Shape[0] != 2 || output.Shape[1] != 1 {
		t.Fatalf("output shape = %v, want [2 1]", output.Shape)
	}

	got := output.Data.([]float32)
	want := []float32{5.5, 1.5} // [1*2+1*3+0.5, 2*2-1*3+0.5]
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-5 {
			t.Errorf("output[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestLinearInputValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	if _, err := NewLinear(0, 4, true, XavierUniform, rng); err == nil {
		t.Error("expected error for zero input size")
	}
	if _, err := NewLinear(4, -1, true, XavierUniform, rng); err == nil {
		t.Error("expected error for negative output size")
	}

	layer, err := NewLinear(4, 2, true, XavierUniform, rng)
	if err != nil {
		t.Fatalf("NewLinear failed: %v", err)
	}

	wrongDims := tensorOf(t, []int{4}, []float32{1, 2, 3, 4})
	if _, err := layer.Forward(wrongDims); err == nil {
		t.Error("expected error for 1D input")
	}

	wrongSize := tensorOf(t, []int{1, 3}, []float32{1, 2, 3})
	if _, err := layer.Forward(wrongSize); err == nil {
		t.Error("expected error for mismatched input size")
	}
}

func TestLinearReproducibleInit(t *testing.T) {
	for _, scheme := range []InitScheme{XavierUniform, XavierNormal, KaimingNormal} {
		a, err := NewLinear(8, 4, true, scheme, rand.New(rand.NewSource(42)))
		if err != nil {
			t.Fatalf("NewLinear failed: %v", err)
		}
		b, err := NewLinear(8, 4, true, scheme, rand.New(rand.NewSource(42)))
		if err != nil {
			t.Fatalf("NewLinear failed: %v", err)
		}

		wa := a.Weight().Data.([]float32)
		wb := b.Weight().Data.([]float32)
		for i := range wa {
			if wa[i] != wb[i] {
				t.Fatalf("scheme %d: weights differ at %d with identical seeds", scheme, i)
			}
		}
	}
}

func TestLinearNoBias(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	layer, err := NewLinear(3, 2, false, KaimingNormal, rng)
	if err != nil {
		t.Fatalf("NewLinear failed: %v", err)
	}

	if layer.Bias() != nil {
		t.Error("expected nil bias")
	}
	if len(layer.Parameters()) != 1 {
		t.Errorf("Parameters() returned %d tensors, want 1", len(layer.Parameters()))
	}
}

func TestSequentialForward(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	hidden, err := NewLinear(2, 2, true, KaimingNormal, rng)
	if err != nil {
		t.Fatalf("NewLinear failed: %v", err)
	}
	out, err := NewLinear(2, 1, true, XavierNormal, rng)
	if err != nil {
		t.Fatalf("NewLinear failed: %v", err)
	}

	model := NewSequential(hidden, NewReLU(), out, NewSigmoid())

	input := tensorOf(t, []int{3, 2}, []float32{1, 2, -1, 0.5, 0, 0})
	output, err := model.Forward(input)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if len(output.Shape) != 2 || output.Shape[0] != 3 || output.Shape[1] != 1 {
		t.Fatalf("output shape = %v, want [3 1]", output.Shape)
	}

	// Sigmoid output stays in (0, 1)
	for i, v := range output.Data.([]float32) {
		if v <= 0 || v >= 1 {
			t.Errorf("output[%d] = %f, want value in (0, 1)", i, v)
		}
	}
}

func TestSequentialNamedParameters(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	hidden, _ := NewLinear(4, 3, true, KaimingNormal, rng)
	out, _ := NewLinear(3, 1, true, XavierNormal, rng)

	model := NewSequential(hidden, NewReLU(), out, NewSigmoid())

	named := model.NamedParameters()
	wantNames := []string{"0.weight", "0.bias", "2.weight", "2.bias"}
	if len(named) != len(wantNames) {
		t.Fatalf("NamedParameters() returned %d entries, want %d", len(named), len(wantNames))
	}
	for i, want := range wantNames {
		if named[i].Name != want {
			t.Errorf("named[%d].Name = %q, want %q", i, named[i].Name, want)
		}
		if named[i].Tensor == nil {
			t.Errorf("named[%d].Tensor is nil", i)
		}
	}
}

func TestSequentialTrainEval(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	layer, _ := NewLinear(2, 1, true, XavierUniform, rng)
	model := NewSequential(layer, NewSigmoid())

	if !model.IsTraining() {
		t.Error("new model should start in training mode")
	}

	model.Eval()
	if model.IsTraining() || layer.IsTraining() {
		t.Error("Eval should propagate to contained modules")
	}

	model.Train()
	if !model.IsTraining() || !layer.IsTraining() {
		t.Error("Train should propagate to contained modules")
	}
}

func TestSequentialParameterGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	layer, _ := NewLinear(2, 1, false, XavierUniform, rng)
	copy(layer.Weight().Data.([]float32), []float32{1, 1})

	model := NewSequential(layer)
	input := tensorOf(t, []int{1, 2}, []float32{2, 3})

	output, err := model.Forward(input)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if err := output.Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	grad := layer.Weight().Grad()
	if grad == nil {
		t.Fatal("weight gradient not populated")
	}
	gradData := grad.Data.([]float32)
	want := []float32{2, 3}
	for i := range want {
		if math.Abs(float64(gradData[i]-want[i])) > 1e-5 {
			t.Errorf("weight grad[%d] = %f, want %f", i, gradData[i], want[i])
		}
	}

	tensor.ZeroGrad(model.Parameters())
	for i, v := range layer.Weight().Grad().Data.([]float32) {
		if v != 0 {
			t.Errorf("grad[%d] = %f after ZeroGrad, want 0", i, v)
		}
	}
}
