package checkpoints

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
)

// Checkpoint is the persisted model file: training hyperparameters, per-epoch
// loss histories, and the parameter state dict.
type Checkpoint struct {
	Epochs      int                `json:"epochs"`
	BatchSize   int                `json:"batch_size"`
	LR          float64            `json:"lr"`
	ValLosses   FloatSeries        `json:"val_losses"`
	TrainLosses FloatSeries        `json:"train_losses"`
	BestEpoch   int                `json:"best_epoch"`
	StateDict   map[string]NDArray `json:"state_dict"`
}

// FloatSeries is a loss history that survives JSON round-trips with non-finite
// values. Loss histories start with a +Inf sentinel, which plain encoding/json
// refuses to serialize; non-finite entries are written as the strings
// "Infinity", "-Infinity", and "NaN".
type FloatSeries []float64

// MarshalJSON writes finite values as numbers and non-finite ones as strings.
func (s FloatSeries) MarshalJSON() ([]byte, error) {
	out := make([]interface{}, len(s))
	for i, v := range s {
		switch {
		case math.IsInf(v, 1):
			out[i] = "Infinity"
		case math.IsInf(v, -1):
			out[i] = "-Infinity"
		case math.IsNaN(v):
			out[i] = "NaN"
		default:
			out[i] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both numbers and the string forms of non-finite
// values.
func (s *FloatSeries) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(FloatSeries, len(raw))
	for i, v := range raw {
		switch t := v.(type) {
		case float64:
			out[i] = t
		case string:
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return fmt.Errorf("invalid loss value %q: %v", t, err)
			}
			out[i] = f
		default:
			return fmt.Errorf("invalid loss value of type %T", v)
		}
	}

	*s = out
	return nil
}

// bareNonFinite matches the bare Infinity/-Infinity/NaN tokens Python's json
// module emits, in value position only.
var bareNonFinite = regexp.MustCompile(`([:\[,]\s*)(-?Infinity|NaN)`)

// normalizeNonFinite quotes bare non-finite tokens so the stdlib scanner
// accepts files written by the original Python pipeline.
func normalizeNonFinite(data []byte) []byte {
	return bareNonFinite.ReplaceAll(data, []byte(`$1"$2"`))
}

// Save writes the checkpoint to path as indented JSON.
func Save(path string, ckpt *Checkpoint) error {
	data, err := json.MarshalIndent(ckpt, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %v", err)
	}
	return nil
}

// Load reads a checkpoint from path.
func Load(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %v", err)
	}

	var ckpt Checkpoint
	if err := json.Unmarshal(normalizeNonFinite(data), &ckpt); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %v", err)
	}
	if ckpt.StateDict == nil {
		return nil, fmt.Errorf("checkpoint has no state_dict")
	}

	return &ckpt, nil
}
