package dataset

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDataset makes a dataset with nMaj majority records followed by nMin
// minority records. Minority ids carry the "]" marker.
func buildDataset(t *testing.T, nMaj, nMin, latentDim int) *Dataset {
	t.Helper()

	n := nMaj + nMin
	ids := make([]string, 0, n)
	labels := make([]float32, 0, n)
	embeddings := make([]float32, 0, n*latentDim)

	for i := 0; i < nMaj; i++ {
		ids = append(ids, fmt.Sprintf("P%05d", i))
		labels = append(labels, 0)
	}
	for i := 0; i < nMin; i++ {
		ids = append(ids, fmt.Sprintf("P%05d[1]", nMaj+i))
		labels = append(labels, 1)
	}
	for i := 0; i < n; i++ {
		for d := 0; d < latentDim; d++ {
			embeddings = append(embeddings, float32(i)+float32(d)/10)
		}
	}

	ds, err := New(ids, labels, embeddings, latentDim)
	require.NoError(t, err)
	return ds
}

func TestNewDataset(t *testing.T) {
	ds := buildDataset(t, 4, 2, 3)

	assert.Equal(t, 6, ds.Len())
	assert.Equal(t, 3, ds.LatentDim())

	emb, label, id, err := ds.Get(5)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 5.1, 5.2}, emb)
	assert.Equal(t, float32(1), label)
	assert.Contains(t, id, "]")
}

func TestNewDatasetLengthMismatch(t *testing.T) {
	_, err := New([]string{"a", "b"}, []float32{0}, []float32{1, 2}, 1)
	require.Error(t, err)

	var shapeErr *ShapeError
	assert.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "labels", shapeErr.Field)
}

func TestNewDatasetEmbeddingMismatch(t *testing.T) {
	_, err := New([]string{"a", "b"}, []float32{0, 1}, []float32{1, 2, 3}, 2)
	require.Error(t, err)

	var shapeErr *ShapeError
	assert.True(t, errors.As(err, &shapeErr))
}

func TestNewDatasetRejectsNonBinaryLabel(t *testing.T) {
	_, err := New([]string{"a"}, []float32{0.5}, []float32{1}, 1)
	assert.Error(t, err)
}

func TestGetOutOfRange(t *testing.T) {
	ds := buildDataset(t, 3, 1, 2)

	_, _, _, err := ds.Get(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, _, _, err = ds.Get(4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestMinorityIndices(t *testing.T) {
	ds := buildDataset(t, 5, 3, 2)

	assert.Equal(t, []int{5, 6, 7}, ds.MinorityIndices())

	// Returned slice is a copy.
	idxs := ds.MinorityIndices()
	idxs[0] = 99
	assert.Equal(t, []int{5, 6, 7}, ds.MinorityIndices())
}

func TestLabelsAndEmbeddingsTensors(t *testing.T) {
	ds := buildDataset(t, 2, 1, 2)

	labels, err := ds.Labels()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, labels.Shape)

	embeddings, err := ds.Embeddings()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, embeddings.Shape)
}

func TestFromCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"id,label,cluster,e0,e1,e2",
		"P00001,0,c1,0.1,0.2,0.3",
		"P00002[1],1,c2,0.4,0.5,0.6",
	}, "\n")

	ds, err := FromCSV(strings.NewReader(csvData), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 3, ds.LatentDim())
	assert.Equal(t, []int{1}, ds.MinorityIndices())

	emb, label, id, err := ds.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "P00001", id)
	assert.Equal(t, float32(0), label)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, emb, 1e-6)
}

func TestFromCSVMissingColumns(t *testing.T) {
	tests := []struct {
		name   string
		csv    string
		column string
	}{
		{"missing id", "label,e0\n0,0.1", "id"},
		{"missing label", "id,e0\nP1,0.1", "label"},
		{"missing embeddings", "id,label\nP1,0", "embedding columns"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := FromCSV(strings.NewReader(test.csv), nil)
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, test.column, schemaErr.Column)
		})
	}
}

type stubEmbedder struct {
	dim int
}

func (e *stubEmbedder) Embed(seqs []string) ([][]float32, error) {
	out := make([][]float32, len(seqs))
	for i, seq := range seqs {
		vec := make([]float32, e.dim)
		vec[0] = float32(len(seq))
		out[i] = vec
	}
	return out, nil
}

func TestFromCSVWithEmbedder(t *testing.T) {
	csvData := "id,label,seq\nP00001,0,MKTA\nP00002[1],1,MK"

	ds, err := FromCSV(strings.NewReader(csvData), &stubEmbedder{dim: 4})
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 4, ds.LatentDim())

	emb, _, _, err := ds.Get(0)
	require.NoError(t, err)
	assert.Equal(t, float32(4), emb[0])
}

func TestFromCSVWithEmbedderRequiresSeq(t *testing.T) {
	csvData := "id,label\nP00001,0"

	_, err := FromCSV(strings.NewReader(csvData), &stubEmbedder{dim: 4})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "seq", schemaErr.Column)
}
