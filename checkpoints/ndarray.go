package checkpoints

import (
	"encoding/json"
	"fmt"
)

// NDArray is a dense float array with an explicit shape. Its JSON form is the
// nested-array encoding numpy produces, with the shape implied by the nesting.
type NDArray struct {
	Shape []int
	Data  []float32
}

// NewNDArray validates that the data length matches the shape's element count.
func NewNDArray(shape []int, data []float32) (NDArray, error) {
	elems := 1
	for i, dim := range shape {
		if dim <= 0 {
			return NDArray{}, fmt.Errorf("invalid shape: dimension %d has size %d", i, dim)
		}
		elems *= dim
	}
	if len(shape) == 0 || elems != len(data) {
		return NDArray{}, fmt.Errorf("shape %v does not match %d data elements", shape, len(data))
	}
	return NDArray{Shape: shape, Data: data}, nil
}

// NumElems returns the number of elements implied by the shape.
func (a NDArray) NumElems() int {
	if len(a.Shape) == 0 {
		return 0
	}
	elems := 1
	for _, dim := range a.Shape {
		elems *= dim
	}
	return elems
}

// MarshalJSON encodes the array as nested JSON arrays.
func (a NDArray) MarshalJSON() ([]byte, error) {
	if len(a.Shape) == 0 || a.NumElems() != len(a.Data) {
		return nil, fmt.Errorf("shape %v does not match %d data elements", a.Shape, len(a.Data))
	}
	return json.Marshal(nest(a.Shape, a.Data))
}

// nest converts flat data into nested slices following shape, outermost first.
func nest(shape []int, data []float32) interface{} {
	if len(shape) == 1 {
		return data
	}

	stride := len(data) / shape[0]
	out := make([]interface{}, shape[0])
	for i := 0; i < shape[0]; i++ {
		out[i] = nest(shape[1:], data[i*stride:(i+1)*stride])
	}
	return out
}

// UnmarshalJSON decodes nested JSON arrays, inferring the shape from the
// nesting. Ragged arrays are rejected.
func (a *NDArray) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	shape, flat, err := flatten(raw)
	if err != nil {
		return err
	}
	if len(shape) == 0 {
		return fmt.Errorf("expected a JSON array, got %T", raw)
	}

	a.Shape = shape
	a.Data = flat
	return nil
}

func flatten(raw interface{}) ([]int, []float32, error) {
	switch v := raw.(type) {
	case []interface{}:
		if len(v) == 0 {
			return nil, nil, fmt.Errorf("empty array dimension")
		}

		childShape, childFlat, err := flatten(v[0])
		if err != nil {
			return nil, nil, err
		}

		flat := make([]float32, 0, len(v)*len(childFlat))
		flat = append(flat, childFlat...)

		for _, child := range v[1:] {
			shape, f, err := flatten(child)
			if err != nil {
				return nil, nil, err
			}
			if !shapesMatch(shape, childShape) {
				return nil, nil, fmt.Errorf("ragged array: %v vs %v", shape, childShape)
			}
			flat = append(flat, f...)
		}

		return append([]int{len(v)}, childShape...), flat, nil
	case float64:
		return []int{}, []float32{float32(v)}, nil
	default:
		return nil, nil, fmt.Errorf("unexpected value %T in array", raw)
	}
}

func shapesMatch(a, b []int) bool {
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
