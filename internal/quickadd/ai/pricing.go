package ai

import "github.com/sashabaranov/go-openai"

// DefaultModel is the model used for quick-add lookups
const DefaultModel = "gpt-4o-mini"

type modelPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Per-model rates in dollars per 1K tokens
var pricing = map[string]modelPricing{
	"gpt-4o-mini":         {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-4o":              {InputPer1K: 0.005, OutputPer1K: 0.015},
	"gpt-4-turbo-preview": {InputPer1K: 0.01, OutputPer1K: 0.03},
}

// CalculateCost returns the cost of a completion in cents. Pure function of
// its inputs; unknown models are priced at the default model's rates.
func CalculateCost(usage openai.Usage, model string) float64 {
	p, ok := pricing[model]
	if !ok {
		p = pricing[DefaultModel]
	}

	promptCost := float64(usage.PromptTokens) / 1000.0 * p.InputPer1K
	completionCost := float64(usage.CompletionTokens) / 1000.0 * p.OutputPer1K

	return (promptCost + completionCost) * 100
}
