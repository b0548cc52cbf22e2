package training

import (
	"encoding/json"
	"fmt"
	"time"
)

// PlotType represents different types of plots that can be generated
type PlotType string

const (
	// Training plots
	TrainingCurves       PlotType = "training_curves"
	LearningRateSchedule PlotType = "learning_rate_schedule"

	// Evaluation plots
	ROCCurvePlot        PlotType = "roc_curve"
	PrecisionRecallPlot PlotType = "precision_recall"
	ConfusionMatrixPlot PlotType = "confusion_matrix"
)

// PlotData represents the universal JSON format for the sidecar plotting service
type PlotData struct {
	PlotType  PlotType  `json:"plot_type"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	ModelName string    `json:"model_name"`

	// Data series - flexible structure for different plot types
	Series []SeriesData `json:"series"`

	Config PlotConfig `json:"config"`

	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// SeriesData represents a single data series in a plot
type SeriesData struct {
	Name  string                 `json:"name"`
	Type  string                 `json:"type"` // "line", "scatter", "heatmap"
	Data  []DataPoint            `json:"data"`
	Style map[string]interface{} `json:"style,omitempty"`
}

// DataPoint represents a single data point - flexible for different plot types
type DataPoint struct {
	X     interface{} `json:"x"`
	Y     interface{} `json:"y"`
	Z     interface{} `json:"z,omitempty"`
	Label string      `json:"label,omitempty"`
}

// PlotConfig contains plot-specific configuration
type PlotConfig struct {
	XAxisLabel    string                 `json:"x_axis_label"`
	YAxisLabel    string                 `json:"y_axis_label"`
	XAxisScale    string                 `json:"x_axis_scale"` // "linear", "log"
	YAxisScale    string                 `json:"y_axis_scale"`
	ShowLegend    bool                   `json:"show_legend"`
	ShowGrid      bool                   `json:"show_grid"`
	Width         int                    `json:"width"`
	Height        int                    `json:"height"`
	Interactive   bool                   `json:"interactive"`
	CustomOptions map[string]interface{} `json:"custom_options,omitempty"`
}

// PRPoint represents a point on the Precision-Recall curve
type PRPoint struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Threshold float64 `json:"threshold"`
}

// VisualizationCollector accumulates per-epoch training history and evaluation
// curves for plotting.
type VisualizationCollector struct {
	modelName string
	enabled   bool

	// Training data, one entry per epoch
	epochs         []int
	trainingLoss   []float64
	validationLoss []float64
	learningRates  []float64

	// Evaluation data
	rocPoints       []ROCPoint
	prPoints        []PRPoint
	confusionMatrix *ConfusionMatrix
}

// NewVisualizationCollector creates a new visualization collector
func NewVisualizationCollector(modelName string) *VisualizationCollector {
	return &VisualizationCollector{
		modelName:      modelName,
		enabled:        false,
		epochs:         make([]int, 0),
		trainingLoss:   make([]float64, 0),
		validationLoss: make([]float64, 0),
		learningRates:  make([]float64, 0),
		rocPoints:      make([]ROCPoint, 0),
		prPoints:       make([]PRPoint, 0),
	}
}

// Enable enables visualization data collection
func (vc *VisualizationCollector) Enable() {
	vc.enabled = true
}

// Disable disables visualization data collection
func (vc *VisualizationCollector) Disable() {
	vc.enabled = false
}

// IsEnabled returns whether visualization is enabled
func (vc *VisualizationCollector) IsEnabled() bool {
	return vc.enabled
}

// RecordEpoch records epoch-level training and validation metrics
func (vc *VisualizationCollector) RecordEpoch(epoch int, trainLoss, valLoss, learningRate float64) {
	if !vc.enabled {
		return
	}

	vc.epochs = append(vc.epochs, epoch)
	vc.trainingLoss = append(vc.trainingLoss, trainLoss)
	vc.validationLoss = append(vc.validationLoss, valLoss)
	vc.learningRates = append(vc.learningRates, learningRate)
}

// RecordROCData records ROC curve data points
func (vc *VisualizationCollector) RecordROCData(rocPoints []ROCPoint) {
	if !vc.enabled {
		return
	}

	vc.rocPoints = rocPoints
}

// RecordPRData records Precision-Recall curve data points
func (vc *VisualizationCollector) RecordPRData(prPoints []PRPoint) {
	if !vc.enabled {
		return
	}

	vc.prPoints = prPoints
}

// RecordConfusionMatrix records the final confusion matrix
func (vc *VisualizationCollector) RecordConfusionMatrix(cm *ConfusionMatrix) {
	if !vc.enabled {
		return
	}

	vc.confusionMatrix = cm
}

// GenerateTrainingCurvesPlot generates training curves plot data
func (vc *VisualizationCollector) GenerateTrainingCurvesPlot() PlotData {
	series := []SeriesData{
		{
			Name: "Training Loss",
			Type: "line",
			Data: make([]DataPoint, len(vc.trainingLoss)),
			Style: map[string]interface{}{
				"color":      "#FF6B6B",
				"line_width": 2,
			},
		},
		{
			Name: "Validation Loss",
			Type: "line",
			Data: make([]DataPoint, len(vc.validationLoss)),
			Style: map[string]interface{}{
				"color":      "#4ECDC4",
				"line_width": 2,
				"line_style": "dashed",
			},
		},
	}

	for i, loss := range vc.trainingLoss {
		series[0].Data[i] = DataPoint{X: vc.epochs[i], Y: loss}
	}
	for i, loss := range vc.validationLoss {
		series[1].Data[i] = DataPoint{X: vc.epochs[i], Y: loss}
	}

	return PlotData{
		PlotType:  TrainingCurves,
		Title:     fmt.Sprintf("Training Curves - %s", vc.modelName),
		Timestamp: time.Now(),
		ModelName: vc.modelName,
		Series:    series,
		Config: PlotConfig{
			XAxisLabel:  "Epoch",
			YAxisLabel:  "Loss",
			XAxisScale:  "linear",
			YAxisScale:  "linear",
			ShowLegend:  true,
			ShowGrid:    true,
			Width:       800,
			Height:      600,
			Interactive: true,
		},
	}
}

// GenerateLearningRateSchedulePlot generates learning rate schedule plot data
func (vc *VisualizationCollector) GenerateLearningRateSchedulePlot() PlotData {
	series := []SeriesData{
		{
			Name: "Learning Rate",
			Type: "line",
			Data: make([]DataPoint, len(vc.learningRates)),
			Style: map[string]interface{}{
				"color":      "#6C5CE7",
				"line_width": 2,
			},
		},
	}

	for i, lr := range vc.learningRates {
		series[0].Data[i] = DataPoint{X: vc.epochs[i], Y: lr}
	}

	return PlotData{
		PlotType:  LearningRateSchedule,
		Title:     fmt.Sprintf("Learning Rate Schedule - %s", vc.modelName),
		Timestamp: time.Now(),
		ModelName: vc.modelName,
		Series:    series,
		Config: PlotConfig{
			XAxisLabel:  "Epoch",
			YAxisLabel:  "Learning Rate",
			XAxisScale:  "linear",
			YAxisScale:  "log",
			ShowLegend:  true,
			ShowGrid:    true,
			Width:       800,
			Height:      400,
			Interactive: true,
		},
	}
}

// GenerateROCCurvePlot generates ROC curve plot data
func (vc *VisualizationCollector) GenerateROCCurvePlot() PlotData {
	if len(vc.rocPoints) == 0 {
		return PlotData{}
	}

	series := []SeriesData{
		{
			Name: "ROC Curve",
			Type: "line",
			Data: make([]DataPoint, len(vc.rocPoints)),
			Style: map[string]interface{}{
				"color":      "#FF6B6B",
				"line_width": 2,
			},
		},
		{
			Name: "Random Classifier",
			Type: "line",
			Data: []DataPoint{
				{X: 0.0, Y: 0.0},
				{X: 1.0, Y: 1.0},
			},
			Style: map[string]interface{}{
				"color":      "#95A5A6",
				"line_width": 1,
				"line_style": "dashed",
			},
		},
	}

	for i, point := range vc.rocPoints {
		series[0].Data[i] = DataPoint{X: point.FPR, Y: point.TPR}
	}

	return PlotData{
		PlotType:  ROCCurvePlot,
		Title:     fmt.Sprintf("ROC Curve - %s", vc.modelName),
		Timestamp: time.Now(),
		ModelName: vc.modelName,
		Series:    series,
		Config: PlotConfig{
			XAxisLabel:  "False Positive Rate",
			YAxisLabel:  "True Positive Rate",
			XAxisScale:  "linear",
			YAxisScale:  "linear",
			ShowLegend:  true,
			ShowGrid:    true,
			Width:       600,
			Height:      600,
			Interactive: true,
		},
	}
}

// GeneratePrecisionRecallPlot generates Precision-Recall curve plot data
func (vc *VisualizationCollector) GeneratePrecisionRecallPlot() PlotData {
	if len(vc.prPoints) == 0 {
		return PlotData{}
	}

	series := []SeriesData{
		{
			Name: "Precision-Recall Curve",
			Type: "line",
			Data: make([]DataPoint, len(vc.prPoints)),
			Style: map[string]interface{}{
				"color":      "#4ECDC4",
				"line_width": 2,
			},
		},
	}

	for i, point := range vc.prPoints {
		series[0].Data[i] = DataPoint{X: point.Recall, Y: point.Precision}
	}

	return PlotData{
		PlotType:  PrecisionRecallPlot,
		Title:     fmt.Sprintf("Precision-Recall Curve - %s", vc.modelName),
		Timestamp: time.Now(),
		ModelName: vc.modelName,
		Series:    series,
		Config: PlotConfig{
			XAxisLabel:  "Recall",
			YAxisLabel:  "Precision",
			XAxisScale:  "linear",
			YAxisScale:  "linear",
			ShowLegend:  true,
			ShowGrid:    true,
			Width:       600,
			Height:      600,
			Interactive: true,
		},
	}
}

// GenerateConfusionMatrixPlot generates confusion matrix plot data
func (vc *VisualizationCollector) GenerateConfusionMatrixPlot() PlotData {
	if vc.confusionMatrix == nil {
		return PlotData{}
	}

	cm := vc.confusionMatrix
	classNames := []string{"negative", "positive"}
	counts := [][]int{
		{cm.TN, cm.FP},
		{cm.FN, cm.TP},
	}

	var data []DataPoint
	for i, row := range counts {
		for j, value := range row {
			data = append(data, DataPoint{
				X:     j,
				Y:     i,
				Z:     value,
				Label: fmt.Sprintf("True: %s, Pred: %s", classNames[i], classNames[j]),
			})
		}
	}

	series := []SeriesData{
		{
			Name: "Confusion Matrix",
			Type: "heatmap",
			Data: data,
			Style: map[string]interface{}{
				"colorscale": "Blues",
			},
		},
	}

	return PlotData{
		PlotType:  ConfusionMatrixPlot,
		Title:     fmt.Sprintf("Confusion Matrix - %s", vc.modelName),
		Timestamp: time.Now(),
		ModelName: vc.modelName,
		Series:    series,
		Config: PlotConfig{
			XAxisLabel:  "Predicted Class",
			YAxisLabel:  "True Class",
			XAxisScale:  "linear",
			YAxisScale:  "linear",
			ShowLegend:  false,
			ShowGrid:    false,
			Width:       600,
			Height:      600,
			Interactive: true,
			CustomOptions: map[string]interface{}{
				"class_names": classNames,
			},
		},
	}
}

// ToJSON converts plot data to JSON string
func (pd PlotData) ToJSON() (string, error) {
	jsonData, err := json.MarshalIndent(pd, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plot data to JSON: %w", err)
	}
	return string(jsonData), nil
}

// Clear resets all collected data
func (vc *VisualizationCollector) Clear() {
	vc.epochs = vc.epochs[:0]
	vc.trainingLoss = vc.trainingLoss[:0]
	vc.validationLoss = vc.validationLoss[:0]
	vc.learningRates = vc.learningRates[:0]
	vc.rocPoints = vc.rocPoints[:0]
	vc.prPoints = vc.prPoints[:0]
	vc.confusionMatrix = nil
}
