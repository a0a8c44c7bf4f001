package llm

// modelPrice is USD per one million tokens.
type modelPrice struct {
	Prompt     float64
	Completion float64
}

// prices covers the models the pipeline is expected to run against.
// Unknown models cost zero; the token counts are still recorded.
var prices = map[string]modelPrice{
	"gpt-4o":           {Prompt: 2.50, Completion: 10.00},
	"gpt-4o-mini":      {Prompt: 0.15, Completion: 0.60},
	"gpt-4.1":          {Prompt: 2.00, Completion: 8.00},
	"gpt-4.1-mini":     {Prompt: 0.40, Completion: 1.60},
	"gpt-4.1-nano":     {Prompt: 0.10, Completion: 0.40},
	"o4-mini":          {Prompt: 1.10, Completion: 4.40},
	"gemini-2.0-flash": {Prompt: 0.10, Completion: 0.40},
}

// Cost computes the dollar cost of one call from its token counts.
func Cost(model string, promptTokens, completionTokens int) float64 {
	p, ok := prices[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1e6*p.Prompt + float64(completionTokens)/1e6*p.Completion
}
