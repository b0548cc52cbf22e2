package dataset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalancedLoaderBatches(t *testing.T) {
	ds := buildDataset(t, 10, 3, 4)

	dl, err := NewDataLoader(ds, LoaderConfig{BatchSize: 4, Balance: true}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.NotNil(t, dl.Sampler())

	assert.Equal(t, 5, dl.Len())

	count := 0
	dl.Reset()
	for dl.HasNext() {
		batch, err := dl.Next()
		require.NoError(t, err)
		require.NotNil(t, batch)

		assert.Equal(t, []int{4, 4}, batch.Embeddings.Shape)
		assert.Equal(t, []int{4, 1}, batch.Labels.Shape)
		assert.Equal(t, 4, batch.Size())

		// Balanced batches hold two minority labels each.
		labels := batch.Labels.Data.([]float32)
		ones := 0
		for _, l := range labels {
			if l == 1 {
				ones++
			}
		}
		assert.Equal(t, 2, ones)

		count++
	}
	assert.Equal(t, 5, count)
}

func TestBalancedLoaderStablePartition(t *testing.T) {
	ds := buildDataset(t, 10, 3, 2)

	dl, err := NewDataLoader(ds, LoaderConfig{BatchSize: 4, Balance: true}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	first := collectBatches(t, dl)
	second := collectBatches(t, dl)

	// Reset without Rebalance replays the same partition.
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestRebalance(t *testing.T) {
	ds := buildDataset(t, 30, 5, 2)

	dl, err := NewDataLoader(ds, LoaderConfig{BatchSize: 6, Balance: true}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	before := collectBatches(t, dl)
	require.NoError(t, dl.Rebalance())
	after := collectBatches(t, dl)

	require.Equal(t, len(before), len(after))
	same := true
	for i := range before {
		if !assert.ObjectsAreEqual(before[i], after[i]) {
			same = false
			break
		}
	}
	assert.False(t, same, "rebalance should produce a fresh shuffle")
}

func TestRebalanceUnbalancedFails(t *testing.T) {
	ds := buildDataset(t, 6, 2, 2)

	dl, err := NewDataLoader(ds, LoaderConfig{BatchSize: 4}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Error(t, dl.Rebalance())
}

func TestUnbalancedLoaderDropLast(t *testing.T) {
	ds := buildDataset(t, 8, 2, 2) // 10 records

	dl, err := NewDataLoader(ds, LoaderConfig{BatchSize: 4, DropLast: true}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, 2, dl.Len())

	count := 0
	dl.Reset()
	for dl.HasNext() {
		batch, err := dl.Next()
		require.NoError(t, err)
		require.NotNil(t, batch)
		assert.Equal(t, 4, batch.Size())
		count++
	}
	assert.Equal(t, 2, count)
}

func TestUnbalancedLoaderKeepLast(t *testing.T) {
	ds := buildDataset(t, 8, 2, 2)

	dl, err := NewDataLoader(ds, LoaderConfig{BatchSize: 4}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, 3, dl.Len())

	sizes := []int{}
	dl.Reset()
	for dl.HasNext() {
		batch, err := dl.Next()
		require.NoError(t, err)
		sizes = append(sizes, batch.Size())
	}
	assert.Equal(t, []int{4, 4, 2}, sizes)
}

func TestUnbalancedLoaderPreservesOrderWithoutShuffle(t *testing.T) {
	ds := buildDataset(t, 4, 2, 1)

	dl, err := NewDataLoader(ds, LoaderConfig{BatchSize: 6}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	dl.Reset()
	batch, err := dl.Next()
	require.NoError(t, err)

	// Record i holds embedding value i in dimension 0.
	emb := batch.Embeddings.Data.([]float32)
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5}, emb)
}

func TestLoaderIterator(t *testing.T) {
	ds := buildDataset(t, 10, 3, 2)

	dl, err := NewDataLoader(ds, LoaderConfig{BatchSize: 4, Balance: true}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	count := 0
	for batch := range dl.Iterator() {
		require.NotNil(t, batch)
		count++
	}
	assert.Equal(t, 5, count)
}

func TestLoaderRejectsBadBatchSize(t *testing.T) {
	ds := buildDataset(t, 10, 3, 2)

	_, err := NewDataLoader(ds, LoaderConfig{BatchSize: 0}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrDegenerateBatch)
}

func collectBatches(t *testing.T, dl *DataLoader) [][]float32 {
	t.Helper()

	var out [][]float32
	dl.Reset()
	for dl.HasNext() {
		batch, err := dl.Next()
		require.NoError(t, err)
		emb := batch.Embeddings.Data.([]float32)
		row := make([]float32, len(emb))
		copy(row, emb)
		out = append(out, row)
	}
	return out
}
