package training

import (
	"encoding/json"
	"testing"
)

func TestVisualizationCollectorDisabledByDefault(t *testing.T) {
	vc := NewVisualizationCollector("test-model")

	if vc.IsEnabled() {
		t.Error("collector should start disabled")
	}

	vc.RecordEpoch(1, 0.5, 0.6, 0.001)
	if len(vc.epochs) != 0 {
		t.Error("disabled collector should not record")
	}

	vc.Enable()
	vc.RecordEpoch(1, 0.5, 0.6, 0.001)
	vc.RecordEpoch(2, 0.4, 0.55, 0.001)
	if len(vc.epochs) != 2 {
		t.Errorf("recorded %d epochs, want 2", len(vc.epochs))
	}
}

func TestGenerateTrainingCurvesPlot(t *testing.T) {
	vc := NewVisualizationCollector("classifier")
	vc.Enable()
	vc.RecordEpoch(1, 0.7, 0.75, 0.001)
	vc.RecordEpoch(2, 0.5, 0.6, 0.001)
	vc.RecordEpoch(3, 0.4, 0.58, 0.001)

	plot := vc.GenerateTrainingCurvesPlot()

	if plot.PlotType != TrainingCurves {
		t.Errorf("PlotType = %q", plot.PlotType)
	}
	if len(plot.Series) != 2 {
		t.Fatalf("got %d series, want 2 (train + validation)", len(plot.Series))
	}
	if len(plot.Series[0].Data) != 3 || len(plot.Series[1].Data) != 3 {
		t.Error("series should have one point per epoch")
	}

	out, err := plot.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("generated JSON does not parse: %v", err)
	}
	if decoded["plot_type"] != "training_curves" {
		t.Errorf("plot_type = %v", decoded["plot_type"])
	}
}

func TestGenerateROCCurvePlot(t *testing.T) {
	vc := NewVisualizationCollector("classifier")
	vc.Enable()

	// Empty without recorded points
	if plot := vc.GenerateROCCurvePlot(); len(plot.Series) != 0 {
		t.Error("expected empty plot without ROC data")
	}

	vc.RecordROCData([]ROCPoint{
		{Threshold: 0.9, TPR: 0.5, FPR: 0},
		{Threshold: 0.5, TPR: 1, FPR: 0.5},
		{Threshold: 0.1, TPR: 1, FPR: 1},
	})

	plot := vc.GenerateROCCurvePlot()
	if plot.PlotType != ROCCurvePlot {
		t.Errorf("PlotType = %q", plot.PlotType)
	}
	// ROC series plus the random-classifier diagonal
	if len(plot.Series) != 2 {
		t.Fatalf("got %d series, want 2", len(plot.Series))
	}
	if len(plot.Series[0].Data) != 3 {
		t.Errorf("ROC series has %d points, want 3", len(plot.Series[0].Data))
	}
}

func TestGenerateConfusionMatrixPlot(t *testing.T) {
	vc := NewVisualizationCollector("classifier")
	vc.Enable()

	cm := &ConfusionMatrix{TP: 5, FP: 2, TN: 90, FN: 3, TotalSamples: 100}
	vc.RecordConfusionMatrix(cm)

	plot := vc.GenerateConfusionMatrixPlot()
	if plot.PlotType != ConfusionMatrixPlot {
		t.Errorf("PlotType = %q", plot.PlotType)
	}
	if len(plot.Series) != 1 || len(plot.Series[0].Data) != 4 {
		t.Fatalf("expected a single heatmap series with 4 cells")
	}
}

func TestVisualizationCollectorClear(t *testing.T) {
	vc := NewVisualizationCollector("classifier")
	vc.Enable()
	vc.RecordEpoch(1, 0.5, 0.6, 0.001)
	vc.RecordConfusionMatrix(NewConfusionMatrix())

	vc.Clear()
	if len(vc.epochs) != 0 || vc.confusionMatrix != nil {
		t.Error("Clear did not reset collected data")
	}
}
