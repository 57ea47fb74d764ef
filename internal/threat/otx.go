package threat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultOTXBaseURL is the public AlienVault OTX endpoint.
	DefaultOTXBaseURL = "https://otx.alienvault.com"

	otxSource       = "otx"
	otxKeyHeader    = "X-OTX-API-KEY"
	maxErrorBody    = 512
	defaultTimeout  = 15 * time.Second
	subscribedPath  = "/api/v1/pulses/subscribed"
	exportPath      = "/api/v1/indicators/export"
	resultsEnvelope = "results"
)

// Pulse is an OTX pulse: a named group of indicators.
type Pulse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Indicators []PulseIndicator `json:"indicators"`
}

// PulseIndicator is one indicator inside a pulse or an export listing.
type PulseIndicator struct {
	Indicator   string `json:"indicator"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Created     string `json:"created"`
}

// OTXClient queries the AlienVault OTX API.
type OTXClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// OTXOption configures an OTXClient.
type OTXOption func(*OTXClient)

// WithBaseURL points the client at a different OTX host.
func WithBaseURL(u string) OTXOption {
	return func(c *OTXClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) OTXOption {
	return func(c *OTXClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) OTXOption {
	return func(c *OTXClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// NewOTXClient creates a client. An empty apiKey is accepted here and
// reported as ErrMissingCredential on first use.
func NewOTXClient(apiKey string, opts ...OTXOption) *OTXClient {
	c := &OTXClient{
		apiKey:  apiKey,
		baseURL: DefaultOTXBaseURL,
		client: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubscribedPulses returns up to limit pulses the account is subscribed to.
func (c *OTXClient) SubscribedPulses(ctx context.Context, limit int) ([]Pulse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var pulses []Pulse
	if err := c.get(ctx, subscribedPath, q, &pulses); err != nil {
		return nil, err
	}
	return pulses, nil
}

// ExportIndicators lists recent indicators of the given type (e.g. "IPv4").
func (c *OTXClient) ExportIndicators(ctx context.Context, indicatorType string, limit int) ([]PulseIndicator, error) {
	q := url.Values{}
	q.Set("type", indicatorType)
	q.Set("limit", strconv.Itoa(limit))

	var indicators []PulseIndicator
	if err := c.get(ctx, exportPath, q, &indicators); err != nil {
		return nil, err
	}
	return indicators, nil
}

func (c *OTXClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.apiKey == "" {
		return ErrMissingCredential
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &FetchError{Source: otxSource, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set(otxKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &FetchError{Source: otxSource, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &FetchError{
			Source: otxSource,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet))),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Source: otxSource, Err: fmt.Errorf("read body: %w", err)}
	}
	results, err := unwrapResults(body)
	if err != nil {
		return &FetchError{Source: otxSource, Err: err}
	}
	if err := json.Unmarshal(results, out); err != nil {
		return &FetchError{Source: otxSource, Err: fmt.Errorf("decode results: %w", err)}
	}
	return nil
}

// unwrapResults returns the results array of a feed response. The array may
// be the body itself or sit under the "results" key; an object without that
// key is treated as a single result.
func unwrapResults(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}

	switch trimmed[0] {
	case '[':
		return trimmed, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if results, ok := envelope[resultsEnvelope]; ok {
			return results, nil
		}
		wrapped := make([]byte, 0, len(trimmed)+2)
		wrapped = append(wrapped, '[')
		wrapped = append(wrapped, trimmed...)
		wrapped = append(wrapped, ']')
		return wrapped, nil
	default:
		return nil, fmt.Errorf("decode response: unexpected %q", trimmed[0])
	}
}
