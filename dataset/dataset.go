package dataset

import (
	"fmt"
	"strings"

	"github.com/selenobot/selenobot/tensor"
)

// minorityMarker tags selenoprotein record ids. An id containing this
// substring belongs to the minority class.
const minorityMarker = "]"

// Embedder turns raw protein sequences into fixed-length numeric vectors.
// Implementations are external collaborators; a Dataset built from a table
// that carries only a seq column requires one.
type Embedder interface {
	// Embed returns one vector per sequence, all of equal length.
	Embed(seqs []string) ([][]float32, error)
}

// Dataset owns aligned id, label, and embedding arrays for one set of
// protein records. It is immutable after construction.
type Dataset struct {
	ids        []string
	labels     []float32
	embeddings []float32 // flat, row-major (len(ids) x latentDim)
	latentDim  int

	minority []int // cached indices whose id carries the minority marker
}

// New constructs a Dataset from aligned slices. The embeddings slice is flat
// and row-major with latentDim values per record.
func New(ids []string, labels []float32, embeddings []float32, latentDim int) (*Dataset, error) {
	n := len(ids)
	if len(labels) != n {
		return nil, &ShapeError{Field: "labels", Got: len(labels), Want: n}
	}
	if latentDim <= 0 {
		return nil, fmt.Errorf("latent dimension must be positive, got %d", latentDim)
	}
	if len(embeddings) != n*latentDim {
		return nil, &ShapeError{Field: "embeddings", Got: len(embeddings) / latentDim, Want: n}
	}

	for i, label := range labels {
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("label at index %d is %v, must be 0 or 1", i, label)
		}
	}

	ds := &Dataset{
		ids:        ids,
		labels:     labels,
		embeddings: embeddings,
		latentDim:  latentDim,
	}

	for i, id := range ids {
		if strings.Contains(id, minorityMarker) {
			ds.minority = append(ds.minority, i)
		}
	}

	return ds, nil
}

// Len returns the total record count.
func (ds *Dataset) Len() int {
	return len(ds.ids)
}

// LatentDim returns the embedding dimensionality.
func (ds *Dataset) LatentDim() int {
	return ds.latentDim
}

// Get returns the embedding, label, and id of the record at idx.
func (ds *Dataset) Get(idx int) ([]float32, float32, string, error) {
	if idx < 0 || idx >= len(ds.ids) {
		return nil, 0, "", fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, idx, len(ds.ids))
	}
	start := idx * ds.latentDim
	return ds.embeddings[start : start+ds.latentDim], ds.labels[idx], ds.ids[idx], nil
}

// MinorityIndices returns the indices of all minority-class (selenoprotein)
// records, in dataset order. The returned slice is a copy.
func (ds *Dataset) MinorityIndices() []int {
	out := make([]int, len(ds.minority))
	copy(out, ds.minority)
	return out
}

// Labels returns the full label vector as a (n, 1) tensor.
func (ds *Dataset) Labels() (*tensor.Tensor, error) {
	data := make([]float32, len(ds.labels))
	copy(data, ds.labels)
	return tensor.NewTensor([]int{len(ds.labels), 1}, tensor.Float32, data)
}

// Embeddings returns the full embedding matrix as a (n, latentDim) tensor.
func (ds *Dataset) Embeddings() (*tensor.Tensor, error) {
	data := make([]float32, len(ds.embeddings))
	copy(data, ds.embeddings)
	return tensor.NewTensor([]int{len(ds.ids), ds.latentDim}, tensor.Float32, data)
}
