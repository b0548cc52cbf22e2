package training

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PlottingService handles communication with the sidecar plotting application
type PlottingService struct {
	baseURL    string
	httpClient *http.Client
	enabled    bool
}

// PlottingServiceConfig contains configuration for the plotting service
type PlottingServiceConfig struct {
	BaseURL       string        `json:"base_url"`
	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
	RetryDelay    time.Duration `json:"retry_delay"`
}

// PlottingResponse represents the response from the plotting service
type PlottingResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PlotURL   string `json:"plot_url,omitempty"`
	ViewURL   string `json:"view_url,omitempty"`
	PlotID    string `json:"plot_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// DefaultPlottingServiceConfig returns default configuration for the plotting service
func DefaultPlottingServiceConfig() PlottingServiceConfig {
	return PlottingServiceConfig{
		BaseURL:       "http://localhost:8080",
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
	}
}

// NewPlottingService creates a new plotting service client
func NewPlottingService(config PlottingServiceConfig) *PlottingService {
	return &PlottingService{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		enabled: false,
	}
}

// Enable enables the plotting service
func (ps *PlottingService) Enable() {
	ps.enabled = true
}

// Disable disables the plotting service
func (ps *PlottingService) Disable() {
	ps.enabled = false
}

// IsEnabled returns whether the plotting service is enabled
func (ps *PlottingService) IsEnabled() bool {
	return ps.enabled
}

// SendPlotData sends plot data to the sidecar plotting service
func (ps *PlottingService) SendPlotData(plotData PlotData) (*PlottingResponse, error) {
	if !ps.enabled {
		return &PlottingResponse{
			Success: false,
			Message: "Plotting service is disabled",
		}, nil
	}

	jsonData, err := json.Marshal(plotData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plot data: %w", err)
	}

	url := fmt.Sprintf("%s/api/plot", ps.baseURL)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "selenobot-training")

	resp, err := ps.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var plotResponse PlottingResponse
	if err := json.Unmarshal(respBody, &plotResponse); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &plotResponse, fmt.Errorf("HTTP request failed with status %d: %s", resp.StatusCode, plotResponse.Message)
	}

	return &plotResponse, nil
}

// SendPlotDataWithRetry sends plot data with retry logic
func (ps *PlottingService) SendPlotDataWithRetry(plotData PlotData, config PlottingServiceConfig) (*PlottingResponse, error) {
	if !ps.enabled {
		return &PlottingResponse{
			Success: false,
			Message: "Plotting service is disabled",
		}, nil
	}

	var lastErr error

	for attempt := 0; attempt < config.RetryAttempts; attempt++ {
		resp, err := ps.SendPlotData(plotData)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Wait before retry (except for the last attempt)
		if attempt < config.RetryAttempts-1 {
			time.Sleep(config.RetryDelay)
		}
	}

	return nil, fmt.Errorf("failed to send plot data after %d attempts: %w", config.RetryAttempts, lastErr)
}

// CheckHealth checks if the plotting service is available
func (ps *PlottingService) CheckHealth() error {
	if !ps.enabled {
		return fmt.Errorf("plotting service is disabled")
	}

	url := fmt.Sprintf("%s/health", ps.baseURL)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := ps.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send health check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	return nil
}

// GenerateAndSendPlot generates a plot and sends it to the sidecar service
func (ps *PlottingService) GenerateAndSendPlot(collector *VisualizationCollector, plotType PlotType) (*PlottingResponse, error) {
	if !ps.enabled {
		return &PlottingResponse{
			Success: false,
			Message: "Plotting service is disabled",
		}, nil
	}

	var plotData PlotData

	switch plotType {
	case TrainingCurves:
		plotData = collector.GenerateTrainingCurvesPlot()
	case LearningRateSchedule:
		plotData = collector.GenerateLearningRateSchedulePlot()
	case ROCCurvePlot:
		plotData = collector.GenerateROCCurvePlot()
	case PrecisionRecallPlot:
		plotData = collector.GeneratePrecisionRecallPlot()
	case ConfusionMatrixPlot:
		plotData = collector.GenerateConfusionMatrixPlot()
	default:
		return nil, fmt.Errorf("unsupported plot type: %s", plotType)
	}

	if len(plotData.Series) == 0 {
		return &PlottingResponse{
			Success: false,
			Message: fmt.Sprintf("No data available for plot type: %s", plotType),
		}, nil
	}

	return ps.SendPlotData(plotData)
}

// GenerateAndSendAllPlots generates all available plots and sends them to the sidecar service
func (ps *PlottingService) GenerateAndSendAllPlots(collector *VisualizationCollector) map[PlotType]*PlottingResponse {
	results := make(map[PlotType]*PlottingResponse)

	if !ps.enabled {
		return results
	}

	plotTypes := []PlotType{
		TrainingCurves,
		LearningRateSchedule,
		ROCCurvePlot,
		PrecisionRecallPlot,
		ConfusionMatrixPlot,
	}

	for _, plotType := range plotTypes {
		resp, err := ps.GenerateAndSendPlot(collector, plotType)
		if err != nil {
			results[plotType] = &PlottingResponse{
				Success: false,
				Message: err.Error(),
			}
		} else {
			results[plotType] = resp
		}
	}

	return results
}
