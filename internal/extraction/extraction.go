// Package extraction asks a language model to pull structured intake fields
// out of a call transcript.
package extraction

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/model"
)

// Input is the material for one extraction request. Identity is optional
// and is only shown to the model as comparison material.
type Input struct {
	Transcript  string
	PhoneNumber string
	Identity    *model.IdentityRecord
}

// Output is the parsed extraction plus accounting for the call.
type Output struct {
	Fields  model.ExtractedFields
	Cleared []string
	Model   string
	Usage   model.TokenUsage
	Cost    float64
}

// Extractor turns a transcript into ExtractedFields.
type Extractor interface {
	Extract(ctx context.Context, in Input) (*Output, error)
}

// Completion is the raw text returned by a model backend.
type Completion struct {
	Text  string
	Model string
	Usage model.TokenUsage
	Cost  float64
}

// Completer sends one system + user prompt pair to a model backend.
type Completer interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
}

// LLM is the Extractor backed by a Completer.
type LLM struct {
	completer Completer
}

// New creates an LLM extractor.
func New(c Completer) *LLM {
	return &LLM{completer: c}
}

// Extract issues exactly one completion request, parses the reply and
// applies the name safeguard.
func (e *LLM) Extract(ctx context.Context, in Input) (*Output, error) {
	comp, err := e.completer.Complete(ctx, SystemPrompt, UserMessage(in))
	if err != nil {
		return nil, eris.Wrap(err, "extraction: complete")
	}

	fields, err := Parse(comp.Text)
	if err != nil {
		zap.L().Warn("extraction: parse failed",
			zap.String("model", comp.Model),
			zap.Int("response_len", len(comp.Text)),
			zap.Error(err),
		)
		return nil, err
	}

	cleared := Sanitize(&fields, in.Identity, in.Transcript)
	if len(cleared) > 0 {
		zap.L().Info("extraction: safeguard cleared fields", zap.Strings("fields", cleared))
	}

	zap.L().Info("extraction: parsed",
		zap.String("model", comp.Model),
		zap.String("classification", string(fields.Classification)),
		zap.Float64("confidence", fields.ConfidenceScore),
		zap.Int64("input_tokens", comp.Usage.InputTokens),
		zap.Int64("output_tokens", comp.Usage.OutputTokens),
	)

	return &Output{
		Fields:  fields,
		Cleared: cleared,
		Model:   comp.Model,
		Usage:   comp.Usage,
		Cost:    comp.Cost,
	}, nil
}

// Sanitize clears an extracted first or last name that equals the identity
// value exactly but never occurs in the transcript (case-insensitive). It
// returns the names of the cleared fields.
func Sanitize(f *model.ExtractedFields, id *model.IdentityRecord, transcript string) []string {
	if f == nil || id == nil {
		return nil
	}
	lower := strings.ToLower(transcript)
	copied := func(extracted, identity string) bool {
		return extracted != "" &&
			extracted == identity &&
			!strings.Contains(lower, strings.ToLower(extracted))
	}

	var cleared []string
	if copied(f.FirstName, id.FirstName) {
		f.FirstName = ""
		cleared = append(cleared, "first_name")
	}
	if copied(f.LastName, id.LastName) {
		f.LastName = ""
		cleared = append(cleared, "last_name")
	}
	return cleared
}
