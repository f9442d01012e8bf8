package cost

import "github.com/sells-group/lead-validator/internal/model"

// Rates holds per-provider pricing configuration.
type Rates struct {
	LLM      map[string]ModelRate `yaml:"llm" mapstructure:"llm"`
	Deepgram DeepgramRate         `yaml:"deepgram" mapstructure:"deepgram"`
	Melissa  MelissaRate          `yaml:"melissa" mapstructure:"melissa"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// DeepgramRate holds pre-recorded transcription pricing.
type DeepgramRate struct {
	PerMinute float64 `yaml:"per_minute" mapstructure:"per_minute"`
}

// MelissaRate holds Personator pricing.
type MelissaRate struct {
	PerLookup float64 `yaml:"per_lookup" mapstructure:"per_lookup"`
}

// Breakdown is the estimated spend for one recording.
type Breakdown struct {
	Transcription float64 `json:"transcription"`
	Lookup        float64 `json:"lookup"`
	Extraction    float64 `json:"extraction"`
}

// Total sums all components.
func (b Breakdown) Total() float64 {
	return b.Transcription + b.Lookup + b.Extraction
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// LLM computes the cost of one completion. Unknown models cost 0.
func (c *Calculator) LLM(modelID string, usage model.TokenUsage) float64 {
	rate, ok := c.rates.LLM[modelID]
	if !ok {
		return 0
	}
	inCost := (float64(usage.InputTokens) / 1e6) * rate.Input
	outCost := (float64(usage.OutputTokens) / 1e6) * rate.Output
	return inCost + outCost
}

// Deepgram computes the cost of transcribing durationSecs of audio.
func (c *Calculator) Deepgram(durationSecs float64) float64 {
	if durationSecs <= 0 {
		return 0
	}
	return durationSecs / 60 * c.rates.Deepgram.PerMinute
}

// MelissaLookup returns the flat cost per Personator request.
func (c *Calculator) MelissaLookup() float64 {
	return c.rates.Melissa.PerLookup
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		LLM: map[string]ModelRate{
			"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
			"gpt-4o":                     {Input: 2.50, Output: 10.00},
			"gpt-4.1-mini":               {Input: 0.40, Output: 1.60},
			"gpt-3.5-turbo":              {Input: 0.50, Output: 1.50},
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		Deepgram: DeepgramRate{PerMinute: 0.0043},
		Melissa:  MelissaRate{PerLookup: 0.015},
	}
}
