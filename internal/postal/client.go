package postal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/platform/textutil"
)

const (
	defaultTimeout = 5 * time.Second

	upstreamStatusSuccess = "Success"
)

var (
	// ErrInvalidCode is returned when the requested postal code is not a
	// six digit PIN.
	ErrInvalidCode = errors.New("postal: code must be a 6-digit PIN")
	// ErrNotFound is returned when the upstream service knows no localities
	// for the code.
	ErrNotFound = errors.New("postal: no localities found for code")
	// ErrUpstream is returned when the upstream service misbehaves.
	ErrUpstream = errors.New("postal: upstream lookup failed")
)

// Client resolves Indian postal codes against a postalpincode.in style API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option customises Client behaviour.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient constructs a postal lookup client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("postal: base URL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type upstreamResponse struct {
	Status     string `json:"Status"`
	Message    string `json:"Message"`
	PostOffice []struct {
		Name     string `json:"Name"`
		District string `json:"District"`
		Block    string `json:"Block"`
		State    string `json:"State"`
		Country  string `json:"Country"`
	} `json:"PostOffice"`
}

// Lookup resolves the deliverable localities for a postal code.
func (c *Client) Lookup(ctx context.Context, code string) ([]domain.PostalLocality, error) {
	code = strings.TrimSpace(code)
	if !validCode(code) {
		return nil, ErrInvalidCode
	}

	endpoint := fmt.Sprintf("%s/pincode/%s", c.baseURL, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("postal: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	// The upstream wraps the single result in a one-element array.
	var payload []upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if len(payload) == 0 {
		return nil, ErrNotFound
	}

	result := payload[0]
	if result.Status != upstreamStatusSuccess || len(result.PostOffice) == 0 {
		return nil, ErrNotFound
	}

	localities := make([]domain.PostalLocality, 0, len(result.PostOffice))
	for _, office := range result.PostOffice {
		locality := domain.PostalLocality{
			Locality: textutil.TitleCase(office.Name),
			City:     textutil.TitleCase(firstNonEmpty(office.Block, office.District)),
			District: textutil.TitleCase(office.District),
			State:    textutil.TitleCase(office.State),
			Country:  textutil.TitleCase(office.Country),
		}
		if locality.Country == "" {
			locality.Country = "India"
		}
		localities = append(localities, locality)
	}
	return localities, nil
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	// Indian PINs never start with zero.
	return code[0] != '0'
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
