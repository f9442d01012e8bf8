package audio

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/internal/resilience"
)

// HTTPOptions configures the HTTP source.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBytes     int64
	RateLimiters map[string]*rate.Limiter
	// PerHostRate, when positive, gives hosts without an explicit limiter
	// their own limiter of this many requests per second.
	PerHostRate float64
	Client      *http.Client
}

// HTTPSource downloads recordings over HTTP(S). Each download is one GET;
// failures are returned, not retried.
type HTTPSource struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPSource creates an HTTPSource with the given options.
func NewHTTPSource(opts HTTPOptions) *HTTPSource {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "lead-validator/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPSource{client: client, opts: opts, limiters: limiters}
}

func (s *HTTPSource) limiterFor(u *url.URL) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	host := u.Hostname()
	if lim, ok := s.limiters[host]; ok {
		return lim
	}
	if s.opts.PerHostRate <= 0 {
		return nil
	}
	lim := rate.NewLimiter(rate.Limit(s.opts.PerHostRate), 1)
	s.limiters[host] = lim
	return lim
}

// Load implements Source.
func (s *HTTPSource) Load(ctx context.Context, ref string) (model.Audio, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return model.Audio{}, eris.Wrap(err, "audio: parse http url")
	}
	if lim := s.limiterFor(u); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return model.Audio{}, eris.Wrap(err, "audio: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return model.Audio{}, eris.Wrap(err, "audio: create request")
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	zap.L().Debug("audio: http download", zap.String("host", u.Host), zap.String("path", u.Path))
	resp, err := s.client.Do(req)
	if err != nil {
		return model.Audio{}, eris.Wrap(err, "audio: download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("audio: unexpected status %d from %s", resp.StatusCode, u.Host)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return model.Audio{}, resilience.NewTransientError(err, resp.StatusCode)
		}
		return model.Audio{}, err
	}

	data, err := readLimited(resp.Body, s.opts.MaxBytes)
	if err != nil {
		return model.Audio{}, err
	}

	name := nameFromURL(u)
	return model.Audio{
		Name:        name,
		ContentType: ContentType(name, resp.Header.Get("Content-Type")),
		Data:        data,
	}, nil
}
