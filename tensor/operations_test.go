package tensor

import (
	"math"
	"testing"
)

func tensorFrom(t *testing.T, shape []int, data []float32) *Tensor {
	t.Helper()
	tensor, err := NewTensor(shape, Float32, data)
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}
	return tensor
}

func assertFloat32Data(t *testing.T, tensor *Tensor, expected []float32, tol float64) {
	t.Helper()
	data := tensor.Data.([]float32)
	if len(data) != len(expected) {
		t.Fatalf("data length = %d, expected %d", len(data), len(expected))
	}
	for i := range data {
		if math.Abs(float64(data[i]-expected[i])) > tol {
			t.Errorf("element %d = %f, expected %f", i, data[i], expected[i])
		}
	}
}

func TestAdd(t *testing.T) {
	a := tensorFrom(t, []int{2, 2}, []float32{1, 2, 3, 4})
	b := tensorFrom(t, []int{2, 2}, []float32{10, 20, 30, 40})

	result, err := Add(a, b)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	assertFloat32Data(t, result, []float32{11, 22, 33, 44}, 0)
}

func TestAddBroadcastBias(t *testing.T) {
	x := tensorFrom(t, []int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	bias := tensorFrom(t, []int{1, 3}, []float32{10, 20, 30})

	result, err := Add(x, bias)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	assertFloat32Data(t, result, []float32{11, 22, 33, 14, 25, 36}, 0)
}

func TestSub(t *testing.T) {
	a := tensorFrom(t, []int{3}, []float32{5, 7, 9})
	b := tensorFrom(t, []int{3}, []float32{1, 2, 3})

	result, err := Sub(a, b)
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	assertFloat32Data(t, result, []float32{4, 5, 6}, 0)
}

func TestSubShapeMismatch(t *testing.T) {
	a := tensorFrom(t, []int{3}, []float32{1, 2, 3})
	b := tensorFrom(t, []int{2}, []float32{1, 2})

	if _, err := Sub(a, b); err == nil {
		t.Error("expected error for mismatched shapes")
	}
}

func TestMul(t *testing.T) {
	a := tensorFrom(t, []int{2, 2}, []float32{1, 2, 3, 4})
	b := tensorFrom(t, []int{2, 2}, []float32{2, 2, 2, 2})

	result, err := Mul(a, b)
	if err != nil {
		t.Fatalf("Mul failed: %v", err)
	}
	assertFloat32Data(t, result, []float32{2, 4, 6, 8}, 0)
}

func TestDivByZero(t *testing.T) {
	a := tensorFrom(t, []int{2}, []float32{1, 2})
	b := tensorFrom(t, []int{2}, []float32{1, 0})

	if _, err := Div(a, b); err == nil {
		t.Error("expected division by zero error")
	}
}

func TestScale(t *testing.T) {
	a := tensorFrom(t, []int{3}, []float32{1, -2, 3})

	result, err := Scale(a, 0.5)
	if err != nil {
		t.Fatalf("Scale failed: %v", err)
	}
	assertFloat32Data(t, result, []float32{0.5, -1, 1.5}, 1e-6)
}

func TestReLU(t *testing.T) {
	a := tensorFrom(t, []int{5}, []float32{-2, -0.5, 0, 0.5, 2})

	result, err := ReLU(a)
	if err != nil {
		t.Fatalf("ReLU failed: %v", err)
	}
	assertFloat32Data(t, result, []float32{0, 0, 0, 0.5, 2}, 0)
}

func TestSigmoid(t *testing.T) {
	a := tensorFrom(t, []int{3}, []float32{0, 100, -100})

	result, err := Sigmoid(a)
	if err != nil {
		t.Fatalf("Sigmoid failed: %v", err)
	}

	data := result.Data.([]float32)
	if math.Abs(float64(data[0])-0.5) > 1e-6 {
		t.Errorf("sigmoid(0) = %f, expected 0.5", data[0])
	}
	if data[1] < 0.999 {
		t.Errorf("sigmoid(100) = %f, expected near 1", data[1])
	}
	if data[2] > 0.001 {
		t.Errorf("sigmoid(-100) = %f, expected near 0", data[2])
	}
}

func TestLogRejectsNonPositive(t *testing.T) {
	a := tensorFrom(t, []int{2}, []float32{1, 0})
	if _, err := Log(a); err == nil {
		t.Error("expected error for log(0)")
	}
}

func TestClamp(t *testing.T) {
	a := tensorFrom(t, []int{5}, []float32{-1, 0, 0.5, 1, 2})

	result, err := Clamp(a, 0.0001, 0.9999)
	if err != nil {
		t.Fatalf("Clamp failed: %v", err)
	}
	assertFloat32Data(t, result, []float32{0.0001, 0.0001, 0.5, 0.9999, 0.9999}, 1e-7)

	if _, err := Clamp(a, 1, 0); err == nil {
		t.Error("expected error for min > max")
	}
}

func TestMatMul(t *testing.T) {
	a := tensorFrom(t, []int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := tensorFrom(t, []int{3, 2}, []float32{7, 8, 9, 10, 11, 12})

	result, err := MatMul(a, b)
	if err != nil {
		t.Fatalf("MatMul failed: %v", err)
	}

	if result.Shape[0] != 2 || result.Shape[1] != 2 {
		t.Fatalf("result shape = %v, expected [2 2]", result.Shape)
	}
	assertFloat32Data(t, result, []float32{58, 64, 139, 154}, 0)
}

func TestMatMulIncompatible(t *testing.T) {
	a := tensorFrom(t, []int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := tensorFrom(t, []int{2, 2}, []float32{1, 2, 3, 4})

	if _, err := MatMul(a, b); err == nil {
		t.Error("expected error for incompatible dimensions")
	}
}

func TestTranspose(t *testing.T) {
	a := tensorFrom(t, []int{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	result, err := Transpose(a, 0, 1)
	if err != nil {
		t.Fatalf("Transpose failed: %v", err)
	}

	if result.Shape[0] != 3 || result.Shape[1] != 2 {
		t.Fatalf("result shape = %v, expected [3 2]", result.Shape)
	}
	assertFloat32Data(t, result, []float32{1, 4, 2, 5, 3, 6}, 0)
}

func TestReshapeInferDimension(t *testing.T) {
	a := tensorFrom(t, []int{2, 6}, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})

	result, err := a.Reshape([]int{3, -1})
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if result.Shape[0] != 3 || result.Shape[1] != 4 {
		t.Errorf("result shape = %v, expected [3 4]", result.Shape)
	}
}

func TestSum(t *testing.T) {
	a := tensorFrom(t, []int{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	rows, err := Sum(a, 0, false)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	assertFloat32Data(t, rows, []float32{5, 7, 9}, 0)

	cols, err := Sum(a, 1, true)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if cols.Shape[0] != 2 || cols.Shape[1] != 1 {
		t.Fatalf("keepDim shape = %v, expected [2 1]", cols.Shape)
	}
	assertFloat32Data(t, cols, []float32{6, 15}, 0)
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		shape1, shape2, expected []int
		wantErr                  bool
	}{
		{[]int{2, 3}, []int{2, 3}, []int{2, 3}, false},
		{[]int{2, 3}, []int{1, 3}, []int{2, 3}, false},
		{[]int{4, 1}, []int{1, 5}, []int{4, 5}, false},
		{[]int{3}, []int{2, 3}, []int{2, 3}, false},
		{[]int{2, 3}, []int{2, 4}, nil, true},
	}

	for _, test := range tests {
		result, err := BroadcastShapes(test.shape1, test.shape2)
		if test.wantErr {
			if err == nil {
				t.Errorf("BroadcastShapes(%v, %v) expected error", test.shape1, test.shape2)
			}
			continue
		}
		if err != nil {
			t.Errorf("BroadcastShapes(%v, %v) failed: %v", test.shape1, test.shape2, err)
			continue
		}
		for i := range result {
			if result[i] != test.expected[i] {
				t.Errorf("BroadcastShapes(%v, %v) = %v, expected %v", test.shape1, test.shape2, result, test.expected)
				break
			}
		}
	}
}
