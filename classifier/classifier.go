package classifier

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/selenobot/selenobot/dataset"
	"github.com/selenobot/selenobot/layers"
	"github.com/selenobot/selenobot/tensor"
	"github.com/selenobot/selenobot/training"
)

// DefaultSeed matches the fixed seed the pipeline has always trained with.
const DefaultSeed = 42

// Config describes a classifier architecture. The architecture is pure
// configuration: a two-layer head when HiddenDim > 0, a single sigmoid unit
// otherwise.
type Config struct {
	// InputDim is the embedding dimensionality of the input records.
	InputDim int
	// HiddenDim is the width of the hidden ReLU layer; 0 selects the
	// single-layer variant.
	HiddenDim int
	// PosWeight up-weights minority-class terms in the loss. Values <= 0
	// fall back to 1.
	PosWeight float32
	// Seed drives weight initialization; 0 selects DefaultSeed.
	Seed int64
}

// Classifier is a binary selenoprotein classifier over protein embeddings.
type Classifier struct {
	cfg   Config
	model *training.Sequential
	loss  *training.WeightedBCELoss
	rng   *rand.Rand

	// Training state persisted with the model
	epochs      int
	batchSize   int
	lr          float64
	trainLosses []float64
	valLosses   []float64
	bestEpoch   int
}

// New creates a classifier from configuration. Weights are initialized from
// the config seed, so two classifiers with the same config start identical.
func New(cfg Config) (*Classifier, error) {
	if cfg.InputDim <= 0 {
		return nil, fmt.Errorf("input dimension must be positive, got %d", cfg.InputDim)
	}
	if cfg.HiddenDim < 0 {
		return nil, fmt.Errorf("hidden dimension must be non-negative, got %d", cfg.HiddenDim)
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}

	builder := layers.NewModelBuilder([]int{1, cfg.InputDim})
	if cfg.HiddenDim > 0 {
		builder.
			AddDense(cfg.HiddenDim, true, "hidden").
			AddReLU("relu").
			AddDense(1, true, "output").
			AddSigmoid("sigmoid")
	} else {
		builder.
			AddDense(1, true, "output").
			AddSigmoid("sigmoid")
	}

	spec, err := builder.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile model: %v", err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	model, err := spec.Materialize(rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %v", err)
	}

	return &Classifier{
		cfg:   cfg,
		model: model,
		loss:  training.NewWeightedBCELoss(cfg.PosWeight),
		rng:   rng,
	}, nil
}

// Config returns the architecture configuration.
func (c *Classifier) Config() Config {
	return c.cfg
}

// Model returns the underlying module chain.
func (c *Classifier) Model() *training.Sequential {
	return c.model
}

// TrainLosses returns the per-epoch training loss history, including the +Inf
// sentinel at index 0. Empty before Fit.
func (c *Classifier) TrainLosses() []float64 {
	return c.trainLosses
}

// ValLosses returns the per-epoch validation loss history, including the +Inf
// sentinel at index 0. Empty before Fit.
func (c *Classifier) ValLosses() []float64 {
	return c.valLosses
}

// BestEpoch returns the index into the loss histories of the best validation
// epoch.
func (c *Classifier) BestEpoch() int {
	return c.bestEpoch
}

// Forward runs the model over a batch of embeddings (b, inputDim) and returns
// probabilities (b, 1).
func (c *Classifier) Forward(embeddings *tensor.Tensor) (*tensor.Tensor, error) {
	return c.model.Forward(embeddings)
}

// FitConfig configures a training run. Zero values select the defaults the
// original pipeline trained with.
type FitConfig struct {
	Epochs    int     // default 10
	LR        float64 // default 0.001
	BatchSize int     // default 16
	// Scheduler optionally adjusts the learning rate per epoch.
	Scheduler training.LRScheduler
	// Rebalance draws a fresh balanced partition before every epoch instead
	// of reusing the one computed at construction.
	Rebalance bool
	// Collector optionally records per-epoch history for plotting.
	Collector *training.VisualizationCollector
}

func (cfg *FitConfig) applyDefaults() {
	if cfg.Epochs <= 0 {
		cfg.Epochs = 10
	}
	if cfg.LR <= 0 {
		cfg.LR = 0.001
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
}

// Fit trains the classifier on balanced batches of train, validating against
// val after every epoch. The parameters of the best validation epoch are
// restored at the end. Loss histories start with a +Inf sentinel so epoch n
// lands at index n.
func (c *Classifier) Fit(train, val *dataset.Dataset, cfg FitConfig) error {
	cfg.applyDefaults()

	if train.LatentDim() != c.cfg.InputDim {
		return fmt.Errorf("training data has latent dimension %d, model expects %d", train.LatentDim(), c.cfg.InputDim)
	}
	if val.LatentDim() != c.cfg.InputDim {
		return fmt.Errorf("validation data has latent dimension %d, model expects %d", val.LatentDim(), c.cfg.InputDim)
	}

	loader, err := dataset.NewDataLoader(train, dataset.LoaderConfig{
		BatchSize: cfg.BatchSize,
		Balance:   true,
	}, c.rng)
	if err != nil {
		return fmt.Errorf("failed to create training loader: %v", err)
	}

	optimizer := training.NewAdam(c.model.Parameters(), cfg.LR, 0, 0, 0, 0)

	c.epochs = cfg.Epochs
	c.batchSize = cfg.BatchSize
	c.lr = cfg.LR
	c.trainLosses = []float64{math.Inf(1)}
	c.valLosses = []float64{math.Inf(1)}
	c.bestEpoch = 0

	bestValLoss := math.Inf(1)
	var bestState [][]float32

	pb := training.NewProgressBar("Training", cfg.Epochs)
	c.model.Train()

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if cfg.Scheduler != nil {
			optimizer.SetLR(cfg.Scheduler.GetLR(epoch-1, cfg.LR))
		}

		if cfg.Rebalance && epoch > 1 {
			if err := loader.Rebalance(); err != nil {
				return fmt.Errorf("failed to rebalance epoch %d: %v", epoch, err)
			}
		} else {
			loader.Reset()
		}

		var epochLoss float64
		batches := 0

		for loader.HasNext() {
			batch, err := loader.Next()
			if err != nil {
				return fmt.Errorf("epoch %d: %v", epoch, err)
			}
			if batch == nil {
				break
			}

			optimizer.ZeroGrad()

			outputs, err := c.model.Forward(batch.Embeddings)
			if err != nil {
				return fmt.Errorf("epoch %d forward: %v", epoch, err)
			}

			lossValue, err := c.loss.Forward(outputs, batch.Labels)
			if err != nil {
				return fmt.Errorf("epoch %d loss: %v", epoch, err)
			}

			grad, err := c.loss.Backward(outputs, batch.Labels)
			if err != nil {
				return fmt.Errorf("epoch %d loss gradient: %v", epoch, err)
			}
			if err := outputs.BackwardWith(grad); err != nil {
				return fmt.Errorf("epoch %d backward: %v", epoch, err)
			}

			if err := optimizer.Step(); err != nil {
				return fmt.Errorf("epoch %d optimizer: %v", epoch, err)
			}

			epochLoss += float64(lossValue.Data.([]float32)[0])
			batches++
		}

		if batches > 0 {
			epochLoss /= float64(batches)
		}

		valLoss, err := c.evaluateLoss(val)
		if err != nil {
			return fmt.Errorf("epoch %d validation: %v", epoch, err)
		}

		c.trainLosses = append(c.trainLosses, epochLoss)
		c.valLosses = append(c.valLosses, valLoss)

		if valLoss < bestValLoss {
			bestValLoss = valLoss
			c.bestEpoch = epoch
			bestState = c.snapshot()
		}

		if cfg.Collector != nil {
			cfg.Collector.RecordEpoch(epoch, epochLoss, valLoss, optimizer.GetLR())
		}

		pb.Update(epoch, map[string]float64{
			"loss":     epochLoss,
			"val_loss": valLoss,
		})
	}
	pb.Finish()

	if bestState != nil {
		c.restore(bestState)
	}
	c.model.Eval()

	fmt.Printf("Best validation loss %.6f at epoch %d\n", bestValLoss, c.bestEpoch)
	return nil
}

// evaluateLoss computes the mean weighted BCE over the whole dataset in one
// forward pass.
func (c *Classifier) evaluateLoss(ds *dataset.Dataset) (float64, error) {
	embeddings, err := ds.Embeddings()
	if err != nil {
		return 0, err
	}
	labels, err := ds.Labels()
	if err != nil {
		return 0, err
	}

	outputs, err := c.model.Forward(embeddings)
	if err != nil {
		return 0, err
	}
	lossValue, err := c.loss.Forward(outputs, labels)
	if err != nil {
		return 0, err
	}
	return float64(lossValue.Data.([]float32)[0]), nil
}

// snapshot copies all parameter data.
func (c *Classifier) snapshot() [][]float32 {
	params := c.model.Parameters()
	out := make([][]float32, len(params))
	for i, p := range params {
		data := p.Data.([]float32)
		out[i] = make([]float32, len(data))
		copy(out[i], data)
	}
	return out
}

// restore writes snapshotted data back into the parameters.
func (c *Classifier) restore(state [][]float32) {
	for i, p := range c.model.Parameters() {
		copy(p.Data.([]float32), state[i])
	}
}

// Predict runs a full forward pass over the dataset and returns one value per
// record. With a nil threshold the raw probabilities are returned; otherwise
// each probability is binarized to 0 or 1 against the threshold.
func (c *Classifier) Predict(ds *dataset.Dataset, threshold *float64) ([]float32, error) {
	if ds.LatentDim() != c.cfg.InputDim {
		return nil, fmt.Errorf("data has latent dimension %d, model expects %d", ds.LatentDim(), c.cfg.InputDim)
	}

	embeddings, err := ds.Embeddings()
	if err != nil {
		return nil, err
	}

	outputs, err := c.model.Forward(embeddings)
	if err != nil {
		return nil, fmt.Errorf("forward pass failed: %v", err)
	}

	probs := outputs.Data.([]float32)
	out := make([]float32, len(probs))
	copy(out, probs)

	if threshold != nil {
		for i, p := range out {
			if float64(p) > *threshold {
				out[i] = 1
			} else {
				out[i] = 0
			}
		}
	}

	return out, nil
}

// Evaluate thresholds predictions at 0.5 and returns the confusion matrix
// against the dataset labels.
func (c *Classifier) Evaluate(ds *dataset.Dataset) (*training.ConfusionMatrix, error) {
	probs, err := c.Predict(ds, nil)
	if err != nil {
		return nil, err
	}

	labels, err := ds.Labels()
	if err != nil {
		return nil, err
	}

	cm := training.NewConfusionMatrix()
	if err := cm.Update(probs, labels.Data.([]float32), 0.5); err != nil {
		return nil, err
	}
	return cm, nil
}
