package dataset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerPartitionShape(t *testing.T) {
	// 10 majority + 3 minority, batch size 4: minPerBatch=2, majPerBatch=2,
	// numBatches=5. Minority resized to 10, majority kept at 10.
	ds := buildDataset(t, 10, 3, 2)

	s, err := NewBalancedBatchSampler(ds, 4, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, 4, s.BatchSize())
	assert.Equal(t, 7, s.NumResampled())
	assert.Equal(t, 0, s.NumRemoved())

	for k := 0; k < s.Len(); k++ {
		row, err := s.Batch(k)
		require.NoError(t, err)
		assert.Len(t, row, 4)
	}
}

func TestSamplerBatchComposition(t *testing.T) {
	ds := buildDataset(t, 40, 7, 2)
	minority := make(map[int]bool)
	for _, idx := range ds.MinorityIndices() {
		minority[idx] = true
	}

	batchSize := 8
	s, err := NewBalancedBatchSampler(ds, batchSize, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	// minPerBatch = 4, majPerBatch = 4, numBatches = 10
	assert.Equal(t, 10, s.Len())

	for k := 0; k < s.Len(); k++ {
		row, err := s.Batch(k)
		require.NoError(t, err)

		minCount := 0
		for i, idx := range row {
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, ds.Len())
			if minority[idx] {
				minCount++
				// Minority indices come first within the row.
				assert.Less(t, i, 4)
			}
		}
		assert.Equal(t, 4, minCount, "batch %d", k)
	}
}

func TestSamplerMinorityCoverage(t *testing.T) {
	ds := buildDataset(t, 20, 4, 2)

	s, err := NewBalancedBatchSampler(ds, 4, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	seen := make(map[int]bool)
	for k := 0; k < s.Len(); k++ {
		row, err := s.Batch(k)
		require.NoError(t, err)
		for _, idx := range row {
			seen[idx] = true
		}
	}

	// Oversampling guarantees every minority index appears at least once.
	for _, idx := range ds.MinorityIndices() {
		assert.True(t, seen[idx], "minority index %d never sampled", idx)
	}
}

func TestSamplerMajorityTruncation(t *testing.T) {
	// 11 majority, majPerBatch=2 -> 5 batches, one majority index dropped.
	ds := buildDataset(t, 11, 3, 2)

	s, err := NewBalancedBatchSampler(ds, 4, rand.New(rand.NewSource(4)))
	require.NoError(t, err)

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, 1, s.NumRemoved())

	// Every majority index either appears or is among the dropped tail.
	seen := make(map[int]bool)
	for k := 0; k < s.Len(); k++ {
		row, err := s.Batch(k)
		require.NoError(t, err)
		for _, idx := range row {
			seen[idx] = true
		}
	}
	majSeen := 0
	for i := 0; i < 11; i++ {
		if seen[i] {
			majSeen++
		}
	}
	assert.Equal(t, 10, majSeen)
}

func TestSamplerDeterministicWithSeed(t *testing.T) {
	ds := buildDataset(t, 30, 5, 2)

	s1, err := NewBalancedBatchSampler(ds, 6, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	s2, err := NewBalancedBatchSampler(ds, 6, rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	require.Equal(t, s1.Len(), s2.Len())
	for k := 0; k < s1.Len(); k++ {
		row1, err := s1.Batch(k)
		require.NoError(t, err)
		row2, err := s2.Batch(k)
		require.NoError(t, err)
		assert.Equal(t, row1, row2)
	}
}

func TestSamplerImbalanceError(t *testing.T) {
	// As many minority as majority records.
	ds := buildDataset(t, 5, 5, 2)

	_, err := NewBalancedBatchSampler(ds, 4, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrImbalance)
}

func TestSamplerDegenerateBatchErrors(t *testing.T) {
	ds := buildDataset(t, 10, 3, 2)

	_, err := NewBalancedBatchSampler(ds, 0, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrDegenerateBatch)

	_, err = NewBalancedBatchSampler(ds, -4, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrDegenerateBatch)

	// majPerBatch = 25 exceeds the 10 available majority records.
	_, err = NewBalancedBatchSampler(ds, 50, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrDegenerateBatch)
}

func TestSamplerNoMinorityRecords(t *testing.T) {
	ds := buildDataset(t, 10, 0, 2)

	_, err := NewBalancedBatchSampler(ds, 4, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrDegenerateBatch)
}

func TestSamplerBatchIndexOutOfRange(t *testing.T) {
	ds := buildDataset(t, 10, 3, 2)

	s, err := NewBalancedBatchSampler(ds, 4, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = s.Batch(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = s.Batch(s.Len())
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestResize(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 1, 2, 3, 1}, resize([]int{1, 2, 3}, 7))
	assert.Equal(t, []int{1, 2}, resize([]int{1, 2, 3}, 2))
	assert.Empty(t, resize([]int{1, 2, 3}, 0))
}
