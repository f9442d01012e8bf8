package anthropic

import "go.uber.org/zap"

// TokenUsage is the token accounting of one response. Cache writes and
// reads are billed separately from plain input.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// USD per million tokens.
type price struct {
	input, output float64
}

var prices = map[string]price{
	"claude-haiku-4-5-20251001":  {input: 1.00, output: 5.00},
	"claude-sonnet-4-5-20250929": {input: 3.00, output: 15.00},
}

// Cache pricing as multiples of the input rate.
const (
	cacheWriteFactor = 1.25
	cacheReadFactor  = 0.1
)

// EstimateCost prices u for model in USD. Unknown models cost 0.
func (u TokenUsage) EstimateCost(model string) float64 {
	p, ok := prices[model]
	if !ok {
		return 0
	}
	inputEquiv := float64(u.InputTokens) +
		float64(u.CacheCreationInputTokens)*cacheWriteFactor +
		float64(u.CacheReadInputTokens)*cacheReadFactor
	return (inputEquiv*p.input + float64(u.OutputTokens)*p.output) / 1e6
}

// LogCost emits the usage and its estimated cost at info level.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("anthropic: usage",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}
