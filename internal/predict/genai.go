package predict

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

var errMissingAPIKey = errors.New("predict: genai api key is required")

// GenAIGenerator generates predictions with Google's Gemini API.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator creates a Gemini-backed generator.
func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errMissingAPIKey
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIGenerator{client: client, model: model}, nil
}

// Generate sends the prompt and returns the JSON text of the answer.
func (generator *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := generator.client.Models.GenerateContent(ctx,
		generator.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   predictionSchema(),
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	return text, nil
}

// Name returns the generator name.
func (generator *GenAIGenerator) Name() string {
	return fmt.Sprintf("genai:%s", generator.model)
}

func predictionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"predictedNumbers": {
				Type:        genai.TypeArray,
				Description: "Predicted lottery numbers, each with an estimated chance of being drawn.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"number": {Type: genai.TypeInteger, Description: "A predicted lottery number."},
						"chance": {Type: genai.TypeString, Description: `The estimated likelihood, e.g. "High", "Medium", "Low", "15%".`},
					},
					Required: []string{"number", "chance"},
				},
			},
			"analysis": {
				Type:        genai.TypeString,
				Description: "Explanation of the factors behind the predictions: frequency, gaps between appearances and temporal trends.",
			},
		},
		Required: []string{"predictedNumbers", "analysis"},
	}
}
