package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/audio"
	"github.com/sells-group/lead-validator/internal/config"
	"github.com/sells-group/lead-validator/internal/cost"
	"github.com/sells-group/lead-validator/internal/extraction"
	"github.com/sells-group/lead-validator/internal/identity"
	"github.com/sells-group/lead-validator/internal/observe"
	"github.com/sells-group/lead-validator/internal/pipeline"
	"github.com/sells-group/lead-validator/internal/resilience"
	"github.com/sells-group/lead-validator/internal/sink"
	"github.com/sells-group/lead-validator/internal/store"
	"github.com/sells-group/lead-validator/internal/transcribe"
	anthropicpkg "github.com/sells-group/lead-validator/pkg/anthropic"
	"github.com/sells-group/lead-validator/pkg/deepgram"
	"github.com/sells-group/lead-validator/pkg/melissa"
	"github.com/sells-group/lead-validator/pkg/notion"
	openaipkg "github.com/sells-group/lead-validator/pkg/openai"
	sfpkg "github.com/sells-group/lead-validator/pkg/salesforce"
)

// pipelineEnv holds the initialized store, loader and pipeline used by the
// validate, batch and serve commands.
type pipelineEnv struct {
	Store    store.Store
	Loader   *audio.Loader
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for mode, opens the store and builds every
// client the pipeline needs. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	loader, err := initLoader(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	extractor, err := initExtractor(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	sinks, err := initSinks(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	p := pipeline.New(pipeline.Deps{
		Identity:    initIdentity(cfg),
		Transcriber: initTranscriber(cfg),
		Extractor:   extractor,
		Store:       st,
		Sinks:       sinks,
		Cost:        cost.NewCalculator(costRates(cfg.Pricing)),
		Metrics:     observe.Default(),
	}, pipeline.Options{
		Timeout: time.Duration(cfg.Pipeline.TimeoutSecs) * time.Second,
		Breaker: resilience.BreakerFromConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs),
	})

	return &pipelineEnv{Store: st, Loader: loader, Pipeline: p}, nil
}

// initStore opens the configured audit store. Driver "none" keeps nothing.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverNone, "":
		return store.Nop{}, nil
	case config.DriverSQLite:
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadval.db"
		}
		return store.NewSQLite(dsn)
	case config.DriverPostgres:
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initIdentity returns nil when no Melissa key is configured, which turns
// every lookup into LookupDisabled.
func initIdentity(c *config.Config) identity.Resolver {
	if c.Melissa.Key == "" {
		zap.L().Warn("LEADVAL_MELISSA_KEY not set, identity lookup disabled")
		return nil
	}
	client := melissa.NewClient(c.Melissa.Key,
		melissa.WithBaseURL(c.Melissa.BaseURL),
		melissa.WithRateLimit(c.Melissa.RateLimit),
	)
	return identity.NewMelissa(client)
}

func initTranscriber(c *config.Config) transcribe.Transcriber {
	opts := []deepgram.Option{
		deepgram.WithBaseURL(c.Deepgram.BaseURL),
		deepgram.WithModel(c.Deepgram.Model),
	}
	if c.Deepgram.TimeoutSecs > 0 {
		opts = append(opts, deepgram.WithHTTPClient(&http.Client{
			Timeout: time.Duration(c.Deepgram.TimeoutSecs) * time.Second,
		}))
	}
	return transcribe.NewDeepgram(deepgram.NewClient(c.Deepgram.Key, opts...))
}

// initExtractor builds the LLM extractor. SDK retries are disabled so each
// recording costs exactly one completion request.
func initExtractor(c *config.Config) (extraction.Extractor, error) {
	model := c.Extraction.ModelOrDefault()
	switch c.Extraction.Provider {
	case config.ProviderOpenAI:
		client := openaipkg.NewClient(c.OpenAI.Key,
			openaipkg.WithBaseURL(c.OpenAI.BaseURL),
			openaipkg.WithMaxRetries(0),
		)
		return extraction.New(extraction.NewOpenAICompleter(client, model, c.Extraction.MaxTokens)), nil
	case config.ProviderAnthropic:
		client := anthropicpkg.NewClient(c.Anthropic.Key, option.WithMaxRetries(0))
		return extraction.New(extraction.NewAnthropicCompleter(client, model, c.Extraction.MaxTokens)), nil
	default:
		return nil, eris.Errorf("unsupported extraction provider: %s", c.Extraction.Provider)
	}
}

// initLoader wires every recording source. S3 references are only
// available when an endpoint is configured.
func initLoader(c *config.Config) (*audio.Loader, error) {
	maxBytes := int64(c.Audio.MaxMB) << 20
	httpSrc := audio.NewHTTPSource(audio.HTTPOptions{
		Timeout:     time.Duration(c.Audio.HTTPTimeoutSecs) * time.Second,
		MaxBytes:    maxBytes,
		PerHostRate: c.Audio.HTTPRateLimit,
	})
	extra := map[string]audio.Source{
		"http":  httpSrc,
		"https": httpSrc,
		"ftp": audio.NewFTPSource(audio.FTPOptions{
			Timeout:  time.Duration(c.Audio.FTPTimeoutSecs) * time.Second,
			MaxBytes: maxBytes,
		}),
	}

	if c.S3.Endpoint != "" {
		s3, err := audio.NewS3Source(audio.S3Options{
			Endpoint:  c.S3.Endpoint,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Region:    c.S3.Region,
			UseSSL:    c.S3.UseSSL,
			MaxBytes:  maxBytes,
		})
		if err != nil {
			return nil, eris.Wrap(err, "init s3 source")
		}
		extra["s3"] = s3
	}

	return audio.NewLoader(audio.FileSource{MaxBytes: maxBytes}, extra), nil
}

// initSinks builds the optional delivery sinks. Unconfigured sinks are
// skipped.
func initSinks(c *config.Config) ([]sink.Sink, error) {
	var sinks []sink.Sink

	if c.Notion.Token != "" {
		client := notion.NewClient(c.Notion.Token)
		sinks = append(sinks, sink.NewNotionReview(client, c.Notion.ReviewDB))
		zap.L().Info("notion review queue enabled")
	}

	if c.Salesforce.Username != "" {
		client, err := initSalesforce(c.Salesforce)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink.NewSalesforceLead(client, c.Salesforce.LeadSource))
		zap.L().Info("salesforce lead export enabled")
	}

	return sinks, nil
}

func initSalesforce(sc config.SalesforceConfig) (sfpkg.Client, error) {
	if sc.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (LEADVAL_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(sc.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	return sfpkg.Connect(sc.LoginURL, sc.Username, sc.ClientID, string(pemData), sfpkg.WithRateLimit(sc.RateLimit))
}

// costRates overlays configured pricing on the built-in rates.
func costRates(p config.PricingConfig) cost.Rates {
	rates := cost.DefaultRates()
	if p.DeepgramPerMin > 0 {
		rates.Deepgram.PerMinute = p.DeepgramPerMin
	}
	if p.MelissaPerLookup > 0 {
		rates.Melissa.PerLookup = p.MelissaPerLookup
	}
	for model, mp := range p.LLM {
		rates.LLM[model] = cost.ModelRate{Input: mp.Input, Output: mp.Output}
	}
	return rates
}
