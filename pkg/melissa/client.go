// Package melissa is a client for the Melissa Personator ContactVerify API,
// used here to append identity data to a caller's phone number.
package melissa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-validator/internal/resilience"
)

const (
	defaultBaseURL    = "https://personator.melissadata.net"
	contactVerifyPath = "/v3/WEB/ContactVerify/doContactVerify"

	// AppendColumns are the output columns requested on every lookup.
	AppendColumns = "NameFull,AddressLine1,City,State,PostalCode,EmailAddress,DateOfBirth"
)

// Client looks up contact records by phone number.
type Client interface {
	ContactVerify(ctx context.Context, phone string) (*Response, error)
}

// Response is the top-level ContactVerify JSON body.
type Response struct {
	Records               []Record `json:"Records"`
	TotalRecords          string   `json:"TotalRecords"`
	TransmissionReference string   `json:"TransmissionReference"`
	TransmissionResults   string   `json:"TransmissionResults"`
	Version               string   `json:"Version"`
}

// Record is a single matched contact. Personator returns flat columns, but
// some account configurations nest the name and address.
type Record struct {
	Results string `json:"Results"`

	Name     *Name    `json:"Name,omitempty"`
	NameFull string   `json:"NameFull"`
	Address  *Address `json:"Address,omitempty"`

	AddressLine1 string `json:"AddressLine1"`
	City         string `json:"City"`
	State        string `json:"State"`
	PostalCode   string `json:"PostalCode"`

	PhoneNumber  string `json:"PhoneNumber"`
	EmailAddress string `json:"EmailAddress"`

	DateOfBirth Flex `json:"DateOfBirth"`
	DOB         Flex `json:"DOB"`
	BirthDate   Flex `json:"BirthDate"`
	BirthYear   Flex `json:"BirthYear"`
	BirthMonth  Flex `json:"BirthMonth"`
	BirthDay    Flex `json:"BirthDay"`
}

// Name is the nested name block.
type Name struct {
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
}

// Address is the nested address block.
type Address struct {
	AddressLine1 string `json:"AddressLine1"`
	City         string `json:"City"`
	State        string `json:"State"`
	PostalCode   string `json:"PostalCode"`
}

// ResultCodes splits the comma-separated Results column.
func (r Record) ResultCodes() []string {
	var codes []string
	for _, c := range strings.Split(r.Results, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

// Flex decodes a JSON string or number into a string. Personator is not
// consistent about quoting numeric columns such as BirthYear.
type Flex string

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flex) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flex(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = Flex(n.String())
	return nil
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

// WithRateLimit throttles lookups to rps requests per second. Zero disables
// throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	licenseKey string
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Personator client authenticated with the given license
// key.
func NewClient(licenseKey string, opts ...Option) Client {
	c := &httpClient{
		licenseKey: licenseKey,
		baseURL:    defaultBaseURL,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ContactVerify(ctx context.Context, phone string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "melissa: rate limit")
		}
	}

	q := url.Values{}
	q.Set("id", c.licenseKey)
	q.Set("phone", DigitsOnly(phone))
	q.Set("act", "Append")
	q.Set("cols", AppendColumns)
	q.Set("format", "JSON")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+contactVerifyPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "melissa: create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "melissa: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "melissa: read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("melissa: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "melissa: unmarshal response")
	}

	if code := transmissionError(result.TransmissionResults); code != "" {
		return nil, eris.Errorf("melissa: transmission error %s", code)
	}

	return &result, nil
}

// DigitsOnly strips everything but ASCII digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// transmissionError returns the first service-level error code (GE*/SE*),
// such as an invalid license key.
func transmissionError(results string) string {
	for _, c := range strings.Split(results, ",") {
		c = strings.TrimSpace(c)
		if strings.HasPrefix(c, "GE") || strings.HasPrefix(c, "SE") {
			return c
		}
	}
	return ""
}
