package tensor

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestDTypeString(t *testing.T) {
	tests := []struct {
		dtype    DType
		expected string
	}{
		{Float32, "Float32"},
		{Int32, "Int32"},
		{DType(999), "Unknown"},
	}

	for _, test := range tests {
		result := test.dtype.String()
		if result != test.expected {
			t.Errorf("DType.String() = %s, expected %s", result, test.expected)
		}
	}
}

func TestCalculateStrides(t *testing.T) {
	tests := []struct {
		shape    []int
		expected []int
	}{
		{[]int{5}, []int{1}},
		{[]int{2, 3}, []int{3, 1}},
		{[]int{2, 3, 4}, []int{12, 4, 1}},
		{[]int{1, 5, 1, 3}, []int{15, 3, 3, 1}},
	}

	for _, test := range tests {
		result := calculateStrides(test.shape)
		if !reflect.DeepEqual(result, test.expected) {
			t.Errorf("calculateStrides(%v) = %v, expected %v", test.shape, result, test.expected)
		}
	}
}

func TestCalculateNumElements(t *testing.T) {
	tests := []struct {
		shape    []int
		expected int
	}{
		{[]int{}, 0},
		{[]int{5}, 5},
		{[]int{2, 3}, 6},
		{[]int{2, 3, 4}, 24},
		{[]int{1, 5, 1, 3}, 15},
	}

	for _, test := range tests {
		result := calculateNumElements(test.shape)
		if result != test.expected {
			t.Errorf("calculateNumElements(%v) = %d, expected %d", test.shape, result, test.expected)
		}
	}
}

func TestValidateShape(t *testing.T) {
	tests := []struct {
		shape   []int
		wantErr bool
	}{
		{[]int{5}, false},
		{[]int{2, 3}, false},
		{[]int{2, 3, 4}, false},
		{[]int{}, true},
		{[]int{0}, true},
		{[]int{2, 0}, true},
		{[]int{-1}, true},
		{[]int{2, -3}, true},
	}

	for _, test := range tests {
		err := validateShape(test.shape)
		if (err != nil) != test.wantErr {
			t.Errorf("validateShape(%v) error = %v, wantErr %v", test.shape, err, test.wantErr)
		}
	}
}

func TestNewTensor(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	tensor, err := NewTensor([]int{2, 3}, Float32, data)
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}

	if !reflect.DeepEqual(tensor.Shape, []int{2, 3}) {
		t.Errorf("Shape = %v, expected [2 3]", tensor.Shape)
	}
	if tensor.NumElems != 6 {
		t.Errorf("NumElems = %d, expected 6", tensor.NumElems)
	}
	if !reflect.DeepEqual(tensor.Strides, []int{3, 1}) {
		t.Errorf("Strides = %v, expected [3 1]", tensor.Strides)
	}
}

func TestNewTensorDataLengthMismatch(t *testing.T) {
	_, err := NewTensor([]int{2, 3}, Float32, []float32{1, 2, 3})
	if err == nil {
		t.Error("expected error for data length mismatch")
	}
}

func TestZerosAndOnes(t *testing.T) {
	zeros, err := Zeros([]int{3, 2}, Float32)
	if err != nil {
		t.Fatalf("Zeros failed: %v", err)
	}
	for i, v := range zeros.Data.([]float32) {
		if v != 0 {
			t.Errorf("Zeros element %d = %f, expected 0", i, v)
		}
	}

	ones, err := Ones([]int{3, 2}, Float32)
	if err != nil {
		t.Fatalf("Ones failed: %v", err)
	}
	for i, v := range ones.Data.([]float32) {
		if v != 1 {
			t.Errorf("Ones element %d = %f, expected 1", i, v)
		}
	}
}

func TestRandomDeterministic(t *testing.T) {
	a, err := Random([]int{4, 4}, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Random failed: %v", err)
	}
	b, err := Random([]int{4, 4}, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Random failed: %v", err)
	}

	equal, err := a.Equal(b)
	if err != nil {
		t.Fatalf("Equal failed: %v", err)
	}
	if !equal {
		t.Error("tensors drawn from identically seeded sources should match")
	}

	for i, v := range a.Data.([]float32) {
		if v < 0 || v >= 1 {
			t.Errorf("Random element %d = %f, expected [0, 1)", i, v)
		}
	}
}

func TestRandomNormalDeterministic(t *testing.T) {
	a, err := RandomNormal([]int{10}, 0, 1, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("RandomNormal failed: %v", err)
	}
	b, err := RandomNormal([]int{10}, 0, 1, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("RandomNormal failed: %v", err)
	}

	equal, err := a.Equal(b)
	if err != nil {
		t.Fatalf("Equal failed: %v", err)
	}
	if !equal {
		t.Error("tensors drawn from identically seeded sources should match")
	}
}

func TestFromScalar(t *testing.T) {
	s := FromScalar(2.5)
	if s.NumElems != 1 {
		t.Fatalf("NumElems = %d, expected 1", s.NumElems)
	}
	if s.Data.([]float32)[0] != 2.5 {
		t.Errorf("value = %f, expected 2.5", s.Data.([]float32)[0])
	}
}

func TestSetData(t *testing.T) {
	tensor, err := Zeros([]int{2, 2}, Float32)
	if err != nil {
		t.Fatalf("Zeros failed: %v", err)
	}

	if err := tensor.SetData([]float32{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}
	if tensor.Data.([]float32)[3] != 4 {
		t.Errorf("element 3 = %f, expected 4", tensor.Data.([]float32)[3])
	}

	if err := tensor.SetData([]float32{1, 2}); err == nil {
		t.Error("expected error for wrong element count")
	}
}

func TestRequiresGrad(t *testing.T) {
	tensor, err := Zeros([]int{2}, Float32)
	if err != nil {
		t.Fatalf("Zeros failed: %v", err)
	}

	if tensor.RequiresGrad() {
		t.Error("new tensor should not require grad")
	}
	tensor.SetRequiresGrad(true)
	if !tensor.RequiresGrad() {
		t.Error("SetRequiresGrad(true) did not stick")
	}
	if tensor.Grad() != nil {
		t.Error("gradient should be nil before backward")
	}
}
