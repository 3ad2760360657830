package predict

import (
	"strings"
	"text/template"
)

const analystPrompt = `You are an expert lottery analyst. Analyze the historical lottery data provided for the draw named '{{.Category}}' and provide intelligent predictions for the next draw. The historical data is provided with the most recent results listed first.

Historical Data:
{{.History}}

For your analysis, you MUST consider the following factors for all numbers involved in the game ({{.MinNumber}} to {{.MaxNumber}}):
1.  **Frequency:** How often has each number appeared in the past results provided? Identify numbers with high and low frequencies.
2.  **Gaps (Ecarts):** What are the typical intervals (number of draws) between the appearances of each number? Are there any numbers that appear to be "overdue" based on their typical gap?
3.  **Temporal Trends:** Are there any numbers that have been appearing frequently in recent draws ("hot" numbers)? Are there numbers that haven't appeared for a long time ("cold" numbers)? Consider if recent trends are more indicative than long-term frequencies.

Based on this detailed analysis, provide:
1.  **Predicted Numbers:** A list of {{.MinPredictions}} to {{.MaxPredictions}} predicted numbers. For each predicted number, assign an estimated chance or likelihood of it being drawn (e.g., "High", "Medium", "Low", or a qualitative assessment).
2.  **Analysis Text:** A comprehensive analysis (at least 3-4 paragraphs) explaining the factors that influenced your predictions. Specifically reference your findings on frequency, gaps, and temporal trends for the numbers you've selected and potentially for some numbers you've excluded. Explain your reasoning clearly.

Ensure your output strictly adheres to the requested JSON schema.
`

var analystTemplate = template.Must(template.New("analyst").Parse(analystPrompt))

type promptInput struct {
	Category       string
	History        string
	MinNumber      int
	MaxNumber      int
	MinPredictions int
	MaxPredictions int
}

func renderPrompt(input promptInput) (string, error) {
	var builder strings.Builder
	if err := analystTemplate.Execute(&builder, input); err != nil {
		return "", err
	}
	return builder.String(), nil
}
