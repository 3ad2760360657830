package predict

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (generator *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	generator.prompts = append(generator.prompts, prompt)
	return generator.response, generator.err
}

func history(count int) []draws.Draw {
	records := make([]draws.Draw, 0, count)
	for index := 0; index < count; index++ {
		records = append(records, draws.Draw{
			Category:       "Reveil",
			Date:           "2025-05-05",
			WinningNumbers: []int{1 + index%90, 2, 3, 4, 5},
		})
	}
	return records
}

func TestFormatHistoryRendersOneLinePerDraw(t *testing.T) {
	records := []draws.Draw{
		{Category: "Reveil", Date: "2025-05-05", WinningNumbers: []int{7, 12, 30, 44, 61}, MachineNumbers: []int{1, 2, 3, 4, 5}},
		{Category: "Reveil", Date: "2025-04-28", WinningNumbers: []int{8, 13, 31, 45, 62}},
	}

	rendered := FormatHistory(records, 0)
	require.Equal(t,
		"Date: 2025-05-05, Gagnants: 7,12,30,44,61, Machine: 1,2,3,4,5\nDate: 2025-04-28, Gagnants: 8,13,31,45,62",
		rendered)
}

func TestFormatHistoryKeepsTheMostRecentWindow(t *testing.T) {
	rendered := FormatHistory(history(100), 0)
	require.Len(t, strings.Split(rendered, "\n"), DefaultHistoryWindow)

	rendered = FormatHistory(history(10), 3)
	lines := strings.Split(rendered, "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "Date: 2025-05-05, Gagnants: 1,"))
}

func TestFormatHistoryOfNothingIsEmpty(t *testing.T) {
	require.Empty(t, FormatHistory(nil, 10))
}

func TestPredictDecodesModelAnswer(t *testing.T) {
	generator := &stubGenerator{response: `{"predictedNumbers":[{"number":12,"chance":"High"},{"number":44,"chance":"15%"}],"analysis":"Hot numbers."}`}
	predictor, err := NewPredictor(PredictorConfig{Generator: generator, HistoryWindow: 2})
	require.NoError(t, err)

	prediction, err := predictor.Predict(context.Background(), "Reveil", history(5))
	require.NoError(t, err)
	require.Equal(t, "Reveil", prediction.Category)
	require.Equal(t, []PredictedNumber{{Number: 12, Chance: "High"}, {Number: 44, Chance: "15%"}}, prediction.Numbers)
	require.Equal(t, "Hot numbers.", prediction.Analysis)

	require.Len(t, generator.prompts, 1)
	prompt := generator.prompts[0]
	require.Contains(t, prompt, "the draw named 'Reveil'")
	require.Contains(t, prompt, "(1 to 90)")
	require.Contains(t, prompt, "A list of 5 to 7 predicted numbers")
	require.Equal(t, 2, strings.Count(prompt, "Date: "))
}

func TestPredictAcceptsFencedJSON(t *testing.T) {
	generator := &stubGenerator{response: "```json\n{\"predictedNumbers\":[{\"number\":3,\"chance\":\"Low\"}],\"analysis\":\"x\"}\n```"}
	predictor, err := NewPredictor(PredictorConfig{Generator: generator})
	require.NoError(t, err)

	prediction, err := predictor.Predict(context.Background(), "Reveil", history(1))
	require.NoError(t, err)
	require.Len(t, prediction.Numbers, 1)
}

func TestPredictWithoutHistory(t *testing.T) {
	generator := &stubGenerator{}
	predictor, err := NewPredictor(PredictorConfig{Generator: generator})
	require.NoError(t, err)

	_, err = predictor.Predict(context.Background(), "Reveil", nil)
	require.ErrorIs(t, err, ErrNoHistory)
	require.Empty(t, generator.prompts)
}

func TestPredictRejectsMalformedAnswers(t *testing.T) {
	testCases := []struct {
		name     string
		response string
	}{
		{name: "not json", response: "the numbers are 1 2 3"},
		{name: "no numbers", response: `{"predictedNumbers":[],"analysis":"nothing"}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			predictor, err := NewPredictor(PredictorConfig{Generator: &stubGenerator{response: testCase.response}})
			require.NoError(t, err)

			_, err = predictor.Predict(context.Background(), "Reveil", history(1))
			require.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestPredictPropagatesGeneratorFailure(t *testing.T) {
	failure := errors.New("quota exceeded")
	predictor, err := NewPredictor(PredictorConfig{Generator: &stubGenerator{err: failure}})
	require.NoError(t, err)

	_, err = predictor.Predict(context.Background(), "Reveil", history(1))
	require.ErrorIs(t, err, failure)
}

func TestNewPredictorRequiresGenerator(t *testing.T) {
	_, err := NewPredictor(PredictorConfig{})
	require.ErrorIs(t, err, errMissingGenerator)
}

func TestNewGenAIGeneratorRequiresAPIKey(t *testing.T) {
	_, err := NewGenAIGenerator(context.Background(), " ", "")
	require.ErrorIs(t, err, errMissingAPIKey)
}
