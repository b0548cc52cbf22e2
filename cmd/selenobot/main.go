package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/selenobot/selenobot/checkpoints"
	"github.com/selenobot/selenobot/classifier"
	"github.com/selenobot/selenobot/dataset"
	"github.com/selenobot/selenobot/training"
)

func main() {
	root := &cobra.Command{
		Use:           "selenobot",
		Short:         "Train and run selenoprotein classifiers over protein embeddings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(trainCmd(), predictCmd(), exportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "selenobot: %v\n", err)
		os.Exit(1)
	}
}

func trainCmd() *cobra.Command {
	var (
		trainPath string
		valPath   string
		outPath   string
		hiddenDim int
		posWeight float64
		seed      int64
		epochs    int
		lr        float64
		batchSize int
		rebalance bool
		plotURL   string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier on embedding CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			train, err := dataset.FromCSVFile(trainPath, nil)
			if err != nil {
				return fmt.Errorf("loading training data: %v", err)
			}
			val, err := dataset.FromCSVFile(valPath, nil)
			if err != nil {
				return fmt.Errorf("loading validation data: %v", err)
			}

			fmt.Printf("Loaded %d training and %d validation records (latent dim %d, %d minority)\n",
				train.Len(), val.Len(), train.LatentDim(), len(train.MinorityIndices()))

			c, err := classifier.New(classifier.Config{
				InputDim:  train.LatentDim(),
				HiddenDim: hiddenDim,
				PosWeight: float32(posWeight),
				Seed:      seed,
			})
			if err != nil {
				return err
			}

			fitCfg := classifier.FitConfig{
				Epochs:    epochs,
				LR:        lr,
				BatchSize: batchSize,
				Rebalance: rebalance,
			}

			var collector *training.VisualizationCollector
			if plotURL != "" {
				collector = training.NewVisualizationCollector("selenobot")
				collector.Enable()
				fitCfg.Collector = collector
			}

			if err := c.Fit(train, val, fitCfg); err != nil {
				return err
			}

			cm, err := c.Evaluate(val)
			if err != nil {
				return err
			}
			fmt.Printf("Validation: balanced accuracy %.4f, precision %.4f, recall %.4f\n",
				cm.GetMetric(training.BalancedAccuracy),
				cm.GetMetric(training.Precision),
				cm.GetMetric(training.Recall))

			probs, err := c.Predict(val, nil)
			if err != nil {
				return err
			}
			labels, err := val.Labels()
			if err != nil {
				return err
			}
			targets := labels.Data.([]float32)
			fmt.Printf("Validation: AUC-ROC %.4f, AUC-PR %.4f\n",
				training.CalculateAUCROC(probs, targets),
				training.CalculateAUCPR(probs, targets))

			if collector != nil {
				collector.RecordROCData(training.ROCCurve(probs, targets))
				collector.RecordConfusionMatrix(cm)

				svcCfg := training.DefaultPlottingServiceConfig()
				svcCfg.BaseURL = plotURL
				svc := training.NewPlottingService(svcCfg)
				svc.Enable()
				for plotType, resp := range svc.GenerateAndSendAllPlots(collector) {
					if !resp.Success {
						fmt.Printf("plot %s: %s\n", plotType, resp.Message)
					}
				}
			}

			if err := c.Save(outPath); err != nil {
				return err
			}
			fmt.Printf("Model saved to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&trainPath, "train", "", "training data CSV (required)")
	cmd.Flags().StringVar(&valPath, "val", "", "validation data CSV (required)")
	cmd.Flags().StringVar(&outPath, "out", "model.json", "output model file")
	cmd.Flags().IntVar(&hiddenDim, "hidden-dim", 512, "hidden layer width (0 for single-layer)")
	cmd.Flags().Float64Var(&posWeight, "pos-weight", 1, "loss weight for minority-class records")
	cmd.Flags().Int64Var(&seed, "seed", classifier.DefaultSeed, "weight initialization seed")
	cmd.Flags().IntVar(&epochs, "epochs", 10, "training epochs")
	cmd.Flags().Float64Var(&lr, "lr", 0.001, "learning rate")
	cmd.Flags().IntVar(&batchSize, "batch-size", 16, "batch size")
	cmd.Flags().BoolVar(&rebalance, "rebalance", false, "draw a fresh balanced partition every epoch")
	cmd.Flags().StringVar(&plotURL, "plot-url", "", "plotting sidecar base URL (plots disabled when empty)")
	cmd.MarkFlagRequired("train")
	cmd.MarkFlagRequired("val")

	return cmd
}

func predictCmd() *cobra.Command {
	var (
		modelPath string
		inputPath string
		outPath   string
		threshold float64
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a trained classifier over an embedding CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := classifier.Load(modelPath)
			if err != nil {
				return fmt.Errorf("loading model: %v", err)
			}

			ds, err := dataset.FromCSVFile(inputPath, nil)
			if err != nil {
				return fmt.Errorf("loading input data: %v", err)
			}

			var thresholdPtr *float64
			if !raw {
				thresholdPtr = &threshold
			}

			preds, err := c.Predict(ds, thresholdPtr)
			if err != nil {
				return err
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating output file: %v", err)
				}
				defer f.Close()
				out = f
			}

			w := csv.NewWriter(out)
			if err := w.Write([]string{"id", "prediction"}); err != nil {
				return err
			}
			for i, p := range preds {
				_, _, id, err := ds.Get(i)
				if err != nil {
					return err
				}
				if err := w.Write([]string{id, strconv.FormatFloat(float64(p), 'g', -1, 32)}); err != nil {
					return err
				}
			}
			w.Flush()
			return w.Error()
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "trained model file (required)")
	cmd.Flags().StringVar(&inputPath, "input", "", "input data CSV (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "output CSV (stdout when empty)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "decision threshold")
	cmd.Flags().BoolVar(&raw, "raw", false, "emit raw probabilities instead of 0/1 decisions")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("input")

	return cmd
}

func exportCmd() *cobra.Command {
	var (
		modelPath string
		outPath   string
		name      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a trained model to ONNX",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := classifier.Load(modelPath)
			if err != nil {
				return fmt.Errorf("loading model: %v", err)
			}

			if err := checkpoints.ExportFile(outPath, c.Model(), name); err != nil {
				return err
			}
			fmt.Printf("ONNX model written to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "trained model file (required)")
	cmd.Flags().StringVar(&outPath, "out", "model.onnx", "output ONNX file")
	cmd.Flags().StringVar(&name, "name", "selenoprotein-classifier", "ONNX graph name")
	cmd.MarkFlagRequired("model")

	return cmd
}
