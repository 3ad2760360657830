package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public results endpoint of the provider.
	DefaultBaseURL = "https://lotobonheur.ci/api/results"
	// DefaultReferer is the page the provider expects requests to come from.
	DefaultReferer = "https://lotobonheur.ci/resultats"
	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 20 * time.Second

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxResponseBytes = 8 << 20
	monthQueryParam  = "month"
)

var (
	// ErrFetchFailed indicates that a page could not be retrieved or was refused by the provider.
	ErrFetchFailed = errors.New("provider: fetch failed")

	errMissingBaseURL = errors.New("provider: base url is required")
)

// Config describes how to reach the provider.
type Config struct {
	BaseURL    string
	Referer    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Client fetches monthly result pages and maps them to draws.
type Client struct {
	baseURL    *url.URL
	referer    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	clock      func() time.Time
	logger     *zap.Logger
}

// NewClient validates the configuration and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	rawBaseURL := strings.TrimSpace(cfg.BaseURL)
	if rawBaseURL == "" {
		return nil, errMissingBaseURL
	}
	baseURL, err := url.Parse(rawBaseURL)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("provider: invalid base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	referer := strings.TrimSpace(cfg.Referer)
	if referer == "" {
		referer = DefaultReferer
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		referer:    referer,
		userAgent:  userAgent,
		timeout:    timeout,
		httpClient: httpClient,
		clock:      clock,
		logger:     logger,
	}, nil
}

// FetchMonth retrieves one monthly page. A nil selector asks the provider for
// its default (current) month. Entries that cannot be normalized are reported
// in Page.Malformed and never fail the page.
func (client *Client) FetchMonth(ctx context.Context, month *MonthSelector) (Page, error) {
	reference := MonthOf(client.clock())
	requestURL := *client.baseURL
	if month != nil {
		reference = *month
		query := requestURL.Query()
		query.Set(monthQueryParam, month.String())
		requestURL.RawQuery = query.Encode()
	}

	requestCtx, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(requestCtx, http.MethodGet, requestURL.String(), http.NoBody)
	if err != nil {
		return Page{}, fmt.Errorf("%w: build request: %v", ErrFetchFailed, err)
	}
	request.Header.Set("User-Agent", client.userAgent)
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Referer", client.referer)

	response, err := client.httpClient.Do(request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Page{}, fmt.Errorf("%w: %s timed out after %s", ErrFetchFailed, reference, client.timeout)
		}
		return Page{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return Page{}, fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return Page{}, fmt.Errorf("%w: %s returned status %d", ErrFetchFailed, reference, response.StatusCode)
	}

	var envelope resultsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Page{}, fmt.Errorf("%w: decode body: %v", ErrFetchFailed, err)
	}
	if !envelope.Success {
		return Page{}, fmt.Errorf("%w: provider reported failure: %s", ErrFetchFailed, envelope.failureMessage())
	}
	if envelope.DrawsResultsWeekly == nil {
		return Page{}, fmt.Errorf("%w: response lacks weekly results", ErrFetchFailed)
	}

	page := normalizeEnvelope(envelope, reference)
	for _, entry := range page.Malformed {
		client.logger.Debug("skipped malformed provider entry",
			zap.String("month", reference.String()),
			zap.String("draw_name", entry.DrawName),
			zap.String("raw_date", entry.RawDate),
			zap.Error(entry.Err))
	}
	client.logger.Info("provider page fetched",
		zap.String("month", reference.String()),
		zap.Int("draws", len(page.Draws)),
		zap.Int("malformed", len(page.Malformed)))
	return page, nil
}

func (envelope resultsEnvelope) failureMessage() string {
	for _, candidate := range []string{envelope.Message, envelope.Error} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return "no message"
}
