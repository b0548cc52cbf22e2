package dataset

import (
	"fmt"
	"math/rand"
)

// minorityRatio is the fraction of minority-class records in each batch.
const minorityRatio = 0.5

// BalancedBatchSampler partitions dataset indices into equal-size batches,
// each holding a fixed share of minority-class (selenoprotein) records.
// The minority class is oversampled with wraparound to fill every batch;
// the majority-class tail that does not divide evenly is dropped.
//
// The partition is computed once at construction and never changes. A fresh
// shuffle requires a new sampler.
type BalancedBatchSampler struct {
	batches      [][]int
	batchSize    int
	numResampled int
	numRemoved   int
}

// NewBalancedBatchSampler builds the batch partition for ds. Shuffling draws
// from rng, so a seeded source yields a reproducible partition.
func NewBalancedBatchSampler(ds *Dataset, batchSize int, rng *rand.Rand) (*BalancedBatchSampler, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", ErrDegenerateBatch, batchSize)
	}

	minIdxs := ds.MinorityIndices()
	isMinority := make(map[int]bool, len(minIdxs))
	for _, idx := range minIdxs {
		isMinority[idx] = true
	}
	majIdxs := make([]int, 0, ds.Len()-len(minIdxs))
	for i := 0; i < ds.Len(); i++ {
		if !isMinority[i] {
			majIdxs = append(majIdxs, i)
		}
	}

	nMin, nMaj := len(minIdxs), len(majIdxs)
	if nMin >= nMaj {
		return nil, fmt.Errorf("%w: %d minority vs %d majority", ErrImbalance, nMin, nMaj)
	}

	rng.Shuffle(len(minIdxs), func(i, j int) { minIdxs[i], minIdxs[j] = minIdxs[j], minIdxs[i] })
	rng.Shuffle(len(majIdxs), func(i, j int) { majIdxs[i], majIdxs[j] = majIdxs[j], majIdxs[i] })

	minPerBatch := int(float64(batchSize) * minorityRatio)
	majPerBatch := batchSize - minPerBatch
	numBatches := nMaj / majPerBatch
	if numBatches == 0 {
		return nil, fmt.Errorf("%w: %d majority records cannot fill a batch needing %d", ErrDegenerateBatch, nMaj, majPerBatch)
	}
	if nMin == 0 && minPerBatch > 0 {
		return nil, fmt.Errorf("%w: no minority records to fill %d slots per batch", ErrDegenerateBatch, minPerBatch)
	}

	// Shuffled first, so dropping from the end is an unbiased truncation.
	majIdxs = majIdxs[:numBatches*majPerBatch]

	// Oversample the minority indices by cyclic repetition, then reshuffle so
	// repeated copies of the same index are not co-located.
	minIdxs = resize(minIdxs, numBatches*minPerBatch)
	rng.Shuffle(len(minIdxs), func(i, j int) { minIdxs[i], minIdxs[j] = minIdxs[j], minIdxs[i] })

	batches := make([][]int, numBatches)
	for k := 0; k < numBatches; k++ {
		row := make([]int, 0, batchSize)
		row = append(row, minIdxs[k*minPerBatch:(k+1)*minPerBatch]...)
		row = append(row, majIdxs[k*majPerBatch:(k+1)*majPerBatch]...)
		batches[k] = row
	}

	if len(batches) != numBatches {
		return nil, fmt.Errorf("%w: expected %d batches, built %d", ErrInternalInvariant, numBatches, len(batches))
	}
	for k, row := range batches {
		if len(row) != batchSize {
			return nil, fmt.Errorf("%w: batch %d has size %d, expected %d", ErrInternalInvariant, k, len(row), batchSize)
		}
	}

	s := &BalancedBatchSampler{
		batches:      batches,
		batchSize:    batchSize,
		numResampled: len(minIdxs) - nMin,
		numRemoved:   nMaj - len(majIdxs),
	}

	fmt.Printf("Resampled %d selenoproteins and removed %d non-selenoproteins to generate %d batches of size %d\n",
		s.numResampled, s.numRemoved, numBatches, batchSize)

	return s, nil
}

// resize returns a slice of exactly n elements, repeating src cyclically
// when n exceeds len(src) and truncating when it falls short.
func resize(src []int, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = src[i%len(src)]
	}
	return out
}

// Len returns the number of batches in the partition.
func (s *BalancedBatchSampler) Len() int {
	return len(s.batches)
}

// BatchSize returns the size of every batch row.
func (s *BalancedBatchSampler) BatchSize() int {
	return s.batchSize
}

// Batch returns the dataset indices of batch k. The returned slice is a copy.
func (s *BalancedBatchSampler) Batch(k int) ([]int, error) {
	if k < 0 || k >= len(s.batches) {
		return nil, fmt.Errorf("%w: batch %d not in [0, %d)", ErrIndexOutOfRange, k, len(s.batches))
	}
	out := make([]int, s.batchSize)
	copy(out, s.batches[k])
	return out, nil
}

// NumResampled reports how many minority slots were filled by duplicated
// indices. Diagnostic only.
func (s *BalancedBatchSampler) NumResampled() int {
	return s.numResampled
}

// NumRemoved reports how many majority indices were dropped because they did
// not divide evenly into batches. Diagnostic only.
func (s *BalancedBatchSampler) NumRemoved() int {
	return s.numRemoved
}
