package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// DefaultHTTPTimeout bounds a single provider HTTP exchange.
const DefaultHTTPTimeout = 10 * time.Second

// ClientConfig carries the settings shared by every HTTP provider.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Region     string
	UserAgent  string
	RatePerSec float64
	Burst      int
	HTTPClient *http.Client
}

// httpProvider holds the transport pieces each client embeds.
type httpProvider struct {
	name      string
	baseURL   string
	apiKey    string
	region    string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

func newHTTPProvider(name, defaultBaseURL string, defaultRate float64, cfg ClientConfig) httpProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = defaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	region := cfg.Region
	if region == "" {
		region = "us"
	}
	return httpProvider{
		name:      name,
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		region:    region,
		userAgent: cfg.UserAgent,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(perSec), burst),
	}
}

// Name returns the provider name.
func (p *httpProvider) Name() string {
	return p.name
}

func (p *httpProvider) endpoint(path string, query url.Values) string {
	return p.baseURL + path + "?" + query.Encode()
}

func (p *httpProvider) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", p.name, err)
	}
	return p.do(req, out)
}

func (p *httpProvider) postJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", p.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, out)
}

func (p *httpProvider) do(req *http.Request, out any) error {
	if err := p.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("%s: rate limit wait: %w", p.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := p.checkResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	return nil
}

func (p *httpProvider) checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &HTTPError{Provider: p.name, StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
}
