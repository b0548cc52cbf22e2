package checkpoints

import (
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/selenobot/selenobot/training"
)

// Field numbers for the ONNX message subset emitted here, per onnx.proto.
const (
	// ModelProto
	modelIRVersion       = 1
	modelProducerName    = 2
	modelProducerVersion = 3
	modelGraph           = 7
	modelOpsetImport     = 8

	// GraphProto
	graphNode        = 1
	graphNameField   = 2
	graphInitializer = 5
	graphInput       = 11
	graphOutput      = 12

	// NodeProto
	nodeInput  = 1
	nodeOutput = 2
	nodeName   = 3
	nodeOpType = 4

	// TensorProto
	tensorDims     = 1
	tensorDataType = 2
	tensorFloats   = 4
	tensorName     = 8

	// ValueInfoProto
	valueInfoName = 1
	valueInfoType = 2

	// TypeProto / TypeProto.Tensor / TensorShapeProto / Dimension
	typeTensorType  = 1
	tensorElemType  = 1
	tensorShape     = 2
	shapeDim        = 1
	dimValue        = 1
	dimParam        = 2

	// OperatorSetIdProto
	opsetVersion = 2

	onnxFloat    = 1 // TensorProto.DataType.FLOAT
	irVersion    = 8
	opsetRelease = 13
)

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// encodeTensorProto encodes an initializer with packed float_data.
func encodeTensorProto(name string, dims []int, data []float32) []byte {
	var b []byte
	for _, d := range dims {
		b = appendVarintField(b, tensorDims, uint64(d))
	}
	b = appendVarintField(b, tensorDataType, onnxFloat)

	b = protowire.AppendTag(b, tensorFloats, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(4*len(data)))
	for _, v := range data {
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	}

	return appendStringField(b, tensorName, name)
}

// encodeValueInfo encodes a graph input/output: float tensor with a symbolic
// batch dimension and a fixed feature dimension.
func encodeValueInfo(name, batchParam string, features int) []byte {
	var batchDim []byte
	batchDim = appendStringField(batchDim, dimParam, batchParam)

	var featureDim []byte
	featureDim = appendVarintField(featureDim, dimValue, uint64(features))

	var shape []byte
	shape = appendMessageField(shape, shapeDim, batchDim)
	shape = appendMessageField(shape, shapeDim, featureDim)

	var tensorType []byte
	tensorType = appendVarintField(tensorType, tensorElemType, onnxFloat)
	tensorType = appendMessageField(tensorType, tensorShape, shape)

	var typ []byte
	typ = appendMessageField(typ, typeTensorType, tensorType)

	var b []byte
	b = appendStringField(b, valueInfoName, name)
	return appendMessageField(b, valueInfoType, typ)
}

func encodeNode(opType, name string, inputs, outputs []string) []byte {
	var b []byte
	for _, in := range inputs {
		b = appendStringField(b, nodeInput, in)
	}
	for _, out := range outputs {
		b = appendStringField(b, nodeOutput, out)
	}
	b = appendStringField(b, nodeName, name)
	return appendStringField(b, nodeOpType, opType)
}

// Export serializes the model as an ONNX graph of Gemm/Relu/Sigmoid nodes.
// Dense weights go in as [in, out] initializers so Gemm needs no transpose
// attributes.
func Export(model *training.Sequential, name string) ([]byte, error) {
	modules := model.Modules()
	if len(modules) == 0 {
		return nil, fmt.Errorf("cannot export empty model")
	}

	var nodes [][]byte
	var initializers [][]byte

	current := "input"
	inputDim := 0
	outputDim := 0

	for i, module := range modules {
		switch m := module.(type) {
		case *training.Linear:
			weight := m.Weight()
			if inputDim == 0 {
				inputDim = weight.Shape[0]
			}
			outputDim = weight.Shape[1]

			wName := fmt.Sprintf("layer%d.weight", i)
			initializers = append(initializers,
				encodeTensorProto(wName, weight.Shape, weight.Data.([]float32)))

			inputs := []string{current, wName}
			if bias := m.Bias(); bias != nil {
				bName := fmt.Sprintf("layer%d.bias", i)
				// Bias is stored [1, out]; ONNX Gemm broadcasts [out]
				initializers = append(initializers,
					encodeTensorProto(bName, []int{bias.Shape[1]}, bias.Data.([]float32)))
				inputs = append(inputs, bName)
			}

			out := fmt.Sprintf("gemm_%d", i)
			nodes = append(nodes, encodeNode("Gemm", fmt.Sprintf("node_%d", i), inputs, []string{out}))
			current = out
		case *training.ReLU:
			out := fmt.Sprintf("relu_%d", i)
			nodes = append(nodes, encodeNode("Relu", fmt.Sprintf("node_%d", i), []string{current}, []string{out}))
			current = out
		case *training.Sigmoid:
			out := fmt.Sprintf("sigmoid_%d", i)
			nodes = append(nodes, encodeNode("Sigmoid", fmt.Sprintf("node_%d", i), []string{current}, []string{out}))
			current = out
		default:
			return nil, fmt.Errorf("module %d (%T) has no ONNX mapping", i, module)
		}
	}

	if inputDim == 0 {
		return nil, fmt.Errorf("model has no dense layers")
	}

	var graph []byte
	for _, node := range nodes {
		graph = appendMessageField(graph, graphNode, node)
	}
	graph = appendStringField(graph, graphNameField, name)
	for _, init := range initializers {
		graph = appendMessageField(graph, graphInitializer, init)
	}
	graph = appendMessageField(graph, graphInput, encodeValueInfo("input", "N", inputDim))
	graph = appendMessageField(graph, graphOutput, encodeValueInfo(current, "N", outputDim))

	var opset []byte
	opset = appendVarintField(opset, opsetVersion, opsetRelease)

	var b []byte
	b = appendVarintField(b, modelIRVersion, irVersion)
	b = appendStringField(b, modelProducerName, "selenobot")
	b = appendStringField(b, modelProducerVersion, "1.0")
	b = appendMessageField(b, modelGraph, graph)
	b = appendMessageField(b, modelOpsetImport, opset)

	return b, nil
}

// ExportFile writes the ONNX serialization of model to path.
func ExportFile(path string, model *training.Sequential, graphName string) error {
	data, err := Export(model, graphName)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write ONNX file: %v", err)
	}
	return nil
}
