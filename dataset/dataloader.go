package dataset

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/selenobot/selenobot/tensor"
)

// Batch holds the stacked embeddings and labels for one training batch.
type Batch struct {
	Embeddings *tensor.Tensor // (b, latentDim)
	Labels     *tensor.Tensor // (b, 1)
}

// Size returns the number of records in the batch.
func (b *Batch) Size() int {
	return b.Embeddings.Shape[0]
}

// LoaderConfig configures a DataLoader.
type LoaderConfig struct {
	BatchSize int
	// Balance selects sampler-driven batching with a fixed minority share
	// per batch. It overrides Shuffle and DropLast.
	Balance bool
	// Shuffle permutes record order at every Reset (unbalanced mode only).
	Shuffle bool
	// DropLast discards a final incomplete batch (unbalanced mode only).
	DropLast bool
}

// DataLoader walks a Dataset in batches. In balanced mode batches come from a
// BalancedBatchSampler; in unbalanced mode they are fixed-size chunks of the
// (optionally shuffled) index sequence.
type DataLoader struct {
	dataset  *Dataset
	cfg      LoaderConfig
	rng      *rand.Rand
	sampler  *BalancedBatchSampler
	indices  []int
	position int
	mutex    sync.Mutex
}

// NewDataLoader creates a DataLoader. Shuffling and balanced sampling draw
// from rng; pass a seeded source for reproducible batches. A nil rng falls
// back to a time-seeded source.
func NewDataLoader(ds *Dataset, cfg LoaderConfig, rng *rand.Rand) (*DataLoader, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", ErrDegenerateBatch, cfg.BatchSize)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	dl := &DataLoader{
		dataset: ds,
		cfg:     cfg,
		rng:     rng,
	}

	if cfg.Balance {
		sampler, err := NewBalancedBatchSampler(ds, cfg.BatchSize, rng)
		if err != nil {
			return nil, err
		}
		dl.sampler = sampler
	} else {
		dl.indices = make([]int, ds.Len())
		for i := range dl.indices {
			dl.indices[i] = i
		}
	}

	return dl, nil
}

// Sampler returns the balanced sampler, or nil in unbalanced mode.
func (dl *DataLoader) Sampler() *BalancedBatchSampler {
	return dl.sampler
}

// Len returns the number of batches in an epoch.
func (dl *DataLoader) Len() int {
	if dl.sampler != nil {
		return dl.sampler.Len()
	}
	if dl.cfg.DropLast {
		return len(dl.indices) / dl.cfg.BatchSize
	}
	return (len(dl.indices) + dl.cfg.BatchSize - 1) / dl.cfg.BatchSize
}

// Reset rewinds the loader for a new epoch. In unbalanced mode with Shuffle
// set, record order is permuted. The balanced partition is not recomputed;
// use Rebalance for a fresh partition.
func (dl *DataLoader) Reset() {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	dl.position = 0

	if dl.sampler == nil && dl.cfg.Shuffle {
		dl.rng.Shuffle(len(dl.indices), func(i, j int) {
			dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i]
		})
	}
}

// Rebalance recomputes the balanced batch partition with a fresh shuffle and
// rewinds the loader. It fails in unbalanced mode.
func (dl *DataLoader) Rebalance() error {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	if dl.sampler == nil {
		return fmt.Errorf("rebalance requires a balanced loader")
	}

	sampler, err := NewBalancedBatchSampler(dl.dataset, dl.cfg.BatchSize, dl.rng)
	if err != nil {
		return err
	}
	dl.sampler = sampler
	dl.position = 0
	return nil
}

// HasNext returns true if there are more batches in the current epoch.
func (dl *DataLoader) HasNext() bool {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	if dl.sampler != nil {
		return dl.position < dl.sampler.Len()
	}
	remaining := len(dl.indices) - dl.position
	if dl.cfg.DropLast {
		return remaining >= dl.cfg.BatchSize
	}
	return remaining > 0
}

// Next returns the next batch, or nil when the epoch is complete.
func (dl *DataLoader) Next() (*Batch, error) {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	var batchIndices []int

	if dl.sampler != nil {
		if dl.position >= dl.sampler.Len() {
			return nil, nil
		}
		row, err := dl.sampler.Batch(dl.position)
		if err != nil {
			return nil, err
		}
		batchIndices = row
		dl.position++
	} else {
		remaining := len(dl.indices) - dl.position
		if remaining <= 0 || (dl.cfg.DropLast && remaining < dl.cfg.BatchSize) {
			return nil, nil
		}
		end := dl.position + dl.cfg.BatchSize
		if end > len(dl.indices) {
			end = len(dl.indices)
		}
		batchIndices = dl.indices[dl.position:end]
		dl.position = end
	}

	batch, err := dl.loadBatch(batchIndices)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %v", err)
	}
	return batch, nil
}

// loadBatch stacks the records at the given indices into batch tensors,
// preserving index order.
func (dl *DataLoader) loadBatch(indices []int) (*Batch, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("empty batch indices")
	}

	b := len(indices)
	latentDim := dl.dataset.LatentDim()

	embData := make([]float32, b*latentDim)
	labelData := make([]float32, b)

	for i, idx := range indices {
		emb, label, _, err := dl.dataset.Get(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to load record %d: %v", idx, err)
		}
		copy(embData[i*latentDim:(i+1)*latentDim], emb)
		labelData[i] = label
	}

	embeddings, err := tensor.NewTensor([]int{b, latentDim}, tensor.Float32, embData)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding tensor: %v", err)
	}
	labels, err := tensor.NewTensor([]int{b, 1}, tensor.Float32, labelData)
	if err != nil {
		return nil, fmt.Errorf("failed to create label tensor: %v", err)
	}

	return &Batch{Embeddings: embeddings, Labels: labels}, nil
}

// Iterator returns a channel-based iterator for use in training loops.
func (dl *DataLoader) Iterator() <-chan *Batch {
	batchChan := make(chan *Batch, 1)

	go func() {
		defer close(batchChan)

		dl.Reset()

		for dl.HasNext() {
			batch, err := dl.Next()
			if err != nil {
				fmt.Printf("DataLoader error: %v\n", err)
				return
			}
			if batch == nil {
				break
			}
			batchChan <- batch
		}
	}()

	return batchChan
}
