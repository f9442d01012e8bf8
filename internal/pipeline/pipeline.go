// Package pipeline runs one call recording through identifier extraction,
// identity lookup, transcription, LLM extraction and reconciliation, then
// hands the result to the configured sinks.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/callerid"
	"github.com/sells-group/lead-validator/internal/cost"
	"github.com/sells-group/lead-validator/internal/extraction"
	"github.com/sells-group/lead-validator/internal/identity"
	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/internal/observe"
	"github.com/sells-group/lead-validator/internal/reconcile"
	"github.com/sells-group/lead-validator/internal/resilience"
	"github.com/sells-group/lead-validator/internal/sink"
	"github.com/sells-group/lead-validator/internal/store"
	"github.com/sells-group/lead-validator/internal/transcribe"
)

// Phase names recorded on every run.
const (
	PhaseLookup     = "lookup"
	PhaseTranscribe = "transcribe"
	PhaseExtract    = "extract"
	PhaseReconcile  = "reconcile"
	PhaseDeliver    = "deliver"
)

// Deps are the collaborators a Pipeline calls. Identity may be nil, which
// disables the lookup. Store, Cost and Metrics fall back to no-op or default
// implementations when nil.
type Deps struct {
	Identity    identity.Resolver
	Transcriber transcribe.Transcriber
	Extractor   extraction.Extractor
	Store       store.Store
	Sinks       []sink.Sink
	Cost        *cost.Calculator
	Metrics     *observe.Metrics
}

// Options tune a Pipeline.
type Options struct {
	// Timeout bounds one Run. Zero means no limit beyond the caller's ctx.
	Timeout time.Duration
	// Breaker configures the per-service circuit breakers.
	Breaker resilience.BreakerConfig
}

// Pipeline validates recordings one at a time. A Pipeline is safe for
// concurrent use; each Run keeps its own state and only the breakers and
// metrics are shared.
type Pipeline struct {
	deps Deps
	opts Options

	lookupBreaker     *resilience.Breaker
	transcribeBreaker *resilience.Breaker
	extractBreaker    *resilience.Breaker
}

// New creates a Pipeline. It panics if Transcriber or Extractor is nil.
func New(deps Deps, opts Options) *Pipeline {
	if deps.Transcriber == nil || deps.Extractor == nil {
		panic("pipeline: transcriber and extractor are required")
	}
	if deps.Store == nil {
		deps.Store = store.Nop{}
	}
	if deps.Cost == nil {
		deps.Cost = cost.NewCalculator(cost.DefaultRates())
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.Default()
	}

	p := &Pipeline{deps: deps, opts: opts}

	bcfg := opts.Breaker
	userHook := bcfg.OnTransition
	bcfg.OnTransition = func(name string, from, to resilience.State) {
		zap.L().Warn("pipeline: circuit breaker state change",
			zap.String("service", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		deps.Metrics.RecordBreakerTransition(context.Background(), name, from.String(), to.String())
		if userHook != nil {
			userHook(name, from, to)
		}
	}
	p.lookupBreaker = resilience.NewBreaker("identity", bcfg)
	p.transcribeBreaker = resilience.NewBreaker("transcription", bcfg)
	p.extractBreaker = resilience.NewBreaker("extraction", bcfg)
	return p
}

// Result is the outcome of one Run.
type Result struct {
	RunID      string                  `json:"run_id"`
	Recording  string                  `json:"recording"`
	Phone      string                  `json:"phone,omitempty"`
	Lookup     string                  `json:"lookup"`
	Validation *model.ValidationResult `json:"result,omitempty"`
	Phases     []model.PhaseResult     `json:"phases"`
	Cost       cost.Breakdown          `json:"cost"`
	Deliveries []sink.Outcome          `json:"deliveries,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// Run validates one recording. Lookup problems are recorded as review
// reasons; transcription and extraction failures end the run with an error.
// The returned Result is non-nil whenever a run record was created, so
// callers can report the run ID and phases of failed runs.
func (p *Pipeline) Run(ctx context.Context, audio model.Audio) (*Result, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	// Bookkeeping must land even when ctx has expired.
	bg := context.WithoutCancel(ctx)

	phone := callerid.FromFilename(audio.Name)
	log := zap.L().With(zap.String("file", audio.Name))

	run, err := p.deps.Store.CreateRun(bg, audio.Name, phone)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("pipeline: starting validation", zap.Bool("phone_found", phone != ""))

	result := &Result{RunID: run.ID, Recording: audio.Name, Phone: phone}

	if err := p.deps.Store.UpdateRunStatus(bg, run.ID, model.RunStatusRunning); err != nil {
		log.Warn("pipeline: failed to update status", zap.Error(err))
	}

	trackPhase := func(name string, fn func() (*model.PhaseResult, error)) error {
		phase, phaseErr := p.deps.Store.CreatePhase(bg, run.ID, name)
		if phaseErr != nil {
			log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
		}

		start := time.Now()
		phaseResult, fnErr := fn()
		elapsed := time.Since(start)

		if phaseResult == nil {
			phaseResult = &model.PhaseResult{}
		}
		phaseResult.Name = name
		phaseResult.Duration = elapsed.Milliseconds()

		switch {
		case fnErr != nil:
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", phaseResult.Duration),
				zap.Error(fnErr),
			)
		case phaseResult.Status == "":
			phaseResult.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", phaseResult.Duration),
			)
		default:
			log.Info("pipeline: phase "+string(phaseResult.Status), zap.String("phase", name))
		}

		if phase != nil {
			if err := p.deps.Store.CompletePhase(bg, phase.ID, phaseResult); err != nil {
				log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(err))
			}
		}
		p.deps.Metrics.RecordPhase(bg, name, string(phaseResult.Status), elapsed)
		result.Phases = append(result.Phases, *phaseResult)
		return fnErr
	}

	fail := func(err error) (*Result, error) {
		result.Error = err.Error()
		log.Error("pipeline: run failed",
			zap.String("error_class", resilience.Classify(err)),
			zap.Error(err),
		)
		if ferr := p.deps.Store.FailRun(bg, run.ID, err.Error()); ferr != nil {
			log.Warn("pipeline: failed to record failure", zap.Error(ferr))
		}
		p.deps.Metrics.RecordFile(bg, "failed", false)
		p.recordCost(bg, result.Cost)
		return result, err
	}

	// Identity lookup. Failures are recoverable.
	var (
		outcome reconcile.LookupOutcome
		record  *model.IdentityRecord
	)
	_ = trackPhase(PhaseLookup, func() (*model.PhaseResult, error) {
		outcome, record, err = p.lookup(ctx, phone, &result.Cost)
		pr := &model.PhaseResult{Metadata: map[string]any{"outcome": outcome.String()}}
		if !outcome.Attempted() {
			pr.Status = model.PhaseStatusSkipped
		}
		return pr, err
	})
	result.Lookup = outcome.String()

	// Transcription. Fatal.
	var transcript *transcribe.Transcript
	if err := trackPhase(PhaseTranscribe, func() (*model.PhaseResult, error) {
		t, err := resilience.Call(ctx, p.transcribeBreaker, func(ctx context.Context) (*transcribe.Transcript, error) {
			return p.deps.Transcriber.Transcribe(ctx, audio)
		})
		if err != nil {
			return nil, err
		}
		transcript = t
		result.Cost.Transcription = p.deps.Cost.Deepgram(t.DurationSecs)
		return &model.PhaseResult{Metadata: map[string]any{
			"duration_secs": t.DurationSecs,
			"speakers":      t.Speakers,
			"language":      t.Language,
		}}, nil
	}); err != nil {
		return fail(eris.Wrap(err, "pipeline: transcribe"))
	}

	// Extraction. Fatal.
	var extracted *extraction.Output
	if err := trackPhase(PhaseExtract, func() (*model.PhaseResult, error) {
		in := extraction.Input{Transcript: transcript.Text, PhoneNumber: phone, Identity: record}
		out, err := resilience.Call(ctx, p.extractBreaker, func(ctx context.Context) (*extraction.Output, error) {
			return p.deps.Extractor.Extract(ctx, in)
		})
		if err != nil {
			return nil, err
		}
		extracted = out
		result.Cost.Extraction = p.deps.Cost.LLM(out.Model, out.Usage)
		if result.Cost.Extraction == 0 {
			result.Cost.Extraction = out.Cost
		}
		return &model.PhaseResult{
			TokenUsage: out.Usage,
			Metadata: map[string]any{
				"model":          out.Model,
				"classification": string(out.Fields.Classification),
				"cleared":        out.Cleared,
			},
		}, nil
	}); err != nil {
		return fail(eris.Wrap(err, "pipeline: extract"))
	}

	// Reconciliation. Pure, never fails.
	var validation model.ValidationResult
	_ = trackPhase(PhaseReconcile, func() (*model.PhaseResult, error) {
		validation = reconcile.Reconcile(reconcile.Input{
			PhoneFromFilename: phone,
			Lookup:            outcome,
			Identity:          record,
			Extracted:         extracted.Fields,
			Transcript:        transcript.Text,
		})
		return &model.PhaseResult{Metadata: map[string]any{
			"status":         string(validation.Status),
			"needs_review":   validation.NeedsManualReview,
			"review_reasons": len(validation.ManualReviewReasons),
		}}, nil
	})
	result.Validation = &validation

	if err := p.deps.Store.UpdateRunResult(bg, run.ID, &validation, result.Cost.Total()); err != nil {
		log.Warn("pipeline: failed to store result", zap.Error(err))
	}

	if len(p.deps.Sinks) > 0 {
		_ = trackPhase(PhaseDeliver, func() (*model.PhaseResult, error) {
			result.Deliveries = sink.Dispatch(ctx, p.deps.Sinks, sink.Delivery{
				RunID:     run.ID,
				Recording: audio.Name,
				Result:    &validation,
				Cost:      result.Cost.Total(),
			})
			return &model.PhaseResult{Metadata: map[string]any{"deliveries": len(result.Deliveries)}}, nil
		})
	}

	p.deps.Metrics.RecordFile(bg, string(validation.Status), validation.NeedsManualReview)
	for _, reason := range validation.ManualReviewReasons {
		p.deps.Metrics.RecordReviewReason(bg, reconcile.ReasonCategory(reason))
	}
	p.recordCost(bg, result.Cost)

	log.Info("pipeline: validation complete",
		zap.String("status", string(validation.Status)),
		zap.Bool("needs_review", validation.NeedsManualReview),
		zap.Strings("review_reasons", validation.ManualReviewReasons),
		zap.Float64("cost_usd", result.Cost.Total()),
	)
	return result, nil
}

// lookup resolves the caller's identity. It never returns a record unless
// the outcome is LookupFound. A breaker rejection counts as a failure but
// is not billed.
func (p *Pipeline) lookup(ctx context.Context, phone string, bd *cost.Breakdown) (reconcile.LookupOutcome, *model.IdentityRecord, error) {
	if phone == "" {
		return reconcile.LookupSkipped, nil, nil
	}
	if p.deps.Identity == nil {
		return reconcile.LookupDisabled, nil, nil
	}

	rec, err := resilience.Call(ctx, p.lookupBreaker, func(ctx context.Context) (*model.IdentityRecord, error) {
		return p.deps.Identity.Lookup(ctx, phone)
	})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		bd.Lookup = p.deps.Cost.MelissaLookup()
	}
	switch {
	case err != nil:
		return reconcile.LookupFailed, nil, eris.Wrap(err, "pipeline: identity lookup")
	case rec == nil:
		return reconcile.LookupNoData, nil, nil
	default:
		return reconcile.LookupFound, rec, nil
	}
}

func (p *Pipeline) recordCost(ctx context.Context, bd cost.Breakdown) {
	p.deps.Metrics.RecordCost(ctx, "transcription", bd.Transcription)
	p.deps.Metrics.RecordCost(ctx, "identity", bd.Lookup)
	p.deps.Metrics.RecordCost(ctx, "extraction", bd.Extraction)
}
