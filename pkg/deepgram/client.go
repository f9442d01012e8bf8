// Package deepgram is a client for Deepgram's pre-recorded transcription
// endpoint.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-validator/internal/resilience"
)

const (
	defaultBaseURL     = "https://api.deepgram.com"
	listenPath         = "/v1/listen"
	defaultContentType = "audio/wav"
)

// Client transcribes pre-recorded audio.
type Client interface {
	Listen(ctx context.Context, audio []byte, contentType string) (*Response, error)
}

// Response is the body returned by POST /v1/listen.
type Response struct {
	Metadata Metadata `json:"metadata"`
	Results  Results  `json:"results"`
}

// Metadata describes the processed request.
type Metadata struct {
	RequestID string  `json:"request_id"`
	Duration  float64 `json:"duration"`
	Channels  int     `json:"channels"`
}

// Results holds per-channel alternatives and, when requested, utterances.
type Results struct {
	Channels   []Channel   `json:"channels"`
	Utterances []Utterance `json:"utterances"`
}

// Channel is one audio channel.
type Channel struct {
	DetectedLanguage string        `json:"detected_language,omitempty"`
	Alternatives     []Alternative `json:"alternatives"`
}

// Alternative is one transcription hypothesis.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// Word is a single recognized word. Speaker is set only with diarization.
type Word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Speaker        *int    `json:"speaker,omitempty"`
}

// Utterance is a contiguous span of speech from one speaker.
type Utterance struct {
	Speaker    int     `json:"speaker"`
	Transcript string  `json:"transcript"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithModel selects a Deepgram model such as "nova-2". Empty uses the
// account default.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a Deepgram client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Listen(ctx context.Context, audio []byte, contentType string) (*Response, error) {
	if contentType == "" {
		contentType = defaultContentType
	}

	q := url.Values{}
	q.Set("detect_language", "true")
	q.Set("punctuate", "true")
	q.Set("diarize", "true")
	q.Set("utterances", "true")
	if c.model != "" {
		q.Set("model", c.model)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+listenPath+"?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return nil, eris.Wrap(err, "deepgram: create request")
	}
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "deepgram: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "deepgram: read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("deepgram: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "deepgram: unmarshal response")
	}
	return &result, nil
}
