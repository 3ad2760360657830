// Package predict asks a generative model for next-draw suggestions built from
// a category's stored history.
package predict

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	minPredictions = 5
	maxPredictions = 7
)

var (
	// ErrNoHistory indicates there are no draws to analyse.
	ErrNoHistory = errors.New("predict: no history for category")
	// ErrMalformedResponse indicates the model output did not match the expected shape.
	ErrMalformedResponse = errors.New("predict: malformed model response")

	errMissingGenerator = errors.New("predict: generator is required")
)

// Generator produces a JSON document for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PredictedNumber is one suggested number with the model's stated likelihood.
type PredictedNumber struct {
	Number int    `json:"number"`
	Chance string `json:"chance"`
}

// Prediction is the decoded model answer. It is relayed, not interpreted.
type Prediction struct {
	Category string            `json:"category"`
	Numbers  []PredictedNumber `json:"predictedNumbers"`
	Analysis string            `json:"analysis"`
}

// PredictorConfig describes predictor dependencies.
type PredictorConfig struct {
	Generator     Generator
	HistoryWindow int
	Logger        *zap.Logger
}

// Predictor builds the analyst prompt and decodes the model answer.
type Predictor struct {
	generator     Generator
	historyWindow int
	logger        *zap.Logger
}

// NewPredictor validates the configuration and returns a Predictor.
func NewPredictor(cfg PredictorConfig) (*Predictor, error) {
	if cfg.Generator == nil {
		return nil, errMissingGenerator
	}
	window := cfg.HistoryWindow
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Predictor{generator: cfg.Generator, historyWindow: window, logger: logger}, nil
}

// Predict asks the model for suggestions for category given its records,
// newest first.
func (predictor *Predictor) Predict(ctx context.Context, category string, records []draws.Draw) (Prediction, error) {
	if len(records) == 0 {
		return Prediction{}, ErrNoHistory
	}

	prompt, err := renderPrompt(promptInput{
		Category:       category,
		History:        FormatHistory(records, predictor.historyWindow),
		MinNumber:      draws.MinNumber,
		MaxNumber:      draws.MaxNumber,
		MinPredictions: minPredictions,
		MaxPredictions: maxPredictions,
	})
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: render prompt: %w", err)
	}

	raw, err := predictor.generator.Generate(ctx, prompt)
	if err != nil {
		predictor.logger.Warn("prediction generation failed", zap.String("category", category), zap.Error(err))
		return Prediction{}, err
	}

	prediction, err := decodePrediction(raw)
	if err != nil {
		predictor.logger.Warn("prediction response rejected", zap.String("category", category), zap.Error(err))
		return Prediction{}, err
	}
	prediction.Category = category
	predictor.logger.Info("prediction generated",
		zap.String("category", category),
		zap.Int("history", min(len(records), predictor.historyWindow)),
		zap.Int("numbers", len(prediction.Numbers)))
	return prediction, nil
}

func decodePrediction(raw string) (Prediction, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	var prediction Prediction
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &prediction); err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(prediction.Numbers) == 0 {
		return Prediction{}, fmt.Errorf("%w: no predicted numbers", ErrMalformedResponse)
	}
	return prediction, nil
}
