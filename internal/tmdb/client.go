package tmdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"

	defaultTimeout           = 30 * time.Second
	defaultMaxRetries        = 3
	defaultBaseRetryDelay    = 500 * time.Millisecond
	defaultRequestsPerSecond = 20
	userAgent                = "Marquee/1.0"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	APIKey            string // Sent as the api_key query parameter
	AccessToken       string // v4 read access token, sent as a bearer token
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 disables rate limiting
	MaxRetries        int     // < 0 disables retries
	RetryDelay        time.Duration
	HTTPClient        *http.Client
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
}

// Client is a JSON client for the TMDB v3 API
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewClient creates a new TMDB API client
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		burst := max(int(opts.RequestsPerSecond), 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultBaseRetryDelay
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      opts.APIKey,
		accessToken: opts.AccessToken,
		httpClient:  httpClient,
		limiter:     limiter,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// BaseURL returns the API root requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasAccessToken reports whether account endpoints can be called
func (c *Client) HasAccessToken() bool {
	return c.accessToken != ""
}

// Do sends the request described by ep and decodes a successful JSON
// response into out. out may be nil when the body is not needed.
//
// Errors wrap domain.ErrNetwork for transport failures, domain.ErrDecoding
// for unparseable bodies, and are *domain.HTTPError for non-2xx responses.
// 5xx and 429 responses and transport failures are retried with
// exponential backoff.
func (c *Client) Do(ctx context.Context, ep Endpoint, out any) error {
	if ep.RequiresAuth && c.accessToken == "" {
		return fmt.Errorf("%s requires an access token: %w", ep.Name, domain.ErrAuthFailed)
	}

	reqURL := c.baseURL + ep.Path
	query := ep.Query
	if c.apiKey != "" {
		query = cloneValues(query)
		query.Set("api_key", c.apiKey)
	}
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var payload []byte
	if ep.Body != nil && ep.Method != http.MethodGet {
		var err error
		payload, err = json.Marshal(ep.Body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	start := time.Now()
	body, status, err := c.send(ctx, ep, reqURL, payload)
	c.metrics.RecordRemoteRequest(ep.Name, status, time.Since(start))
	if err != nil {
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("tmdb response parse error", "endpoint", ep.Name, "error", err, "bodyLen", len(body))
		return fmt.Errorf("%w: %s: %v", domain.ErrDecoding, ep.Name, err)
	}
	return nil
}

// send performs the request with retries. status is the final HTTP status
// code, or "error" when no response was received.
func (c *Client) send(ctx context.Context, ep Endpoint, reqURL string, payload []byte) ([]byte, string, error) {
	var lastErr error
	lastStatus := metrics.StatusError

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, lastStatus, ctx.Err()
		}

		// Wait before retry (exponential backoff)
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.metrics.RecordRemoteRetry(ep.Name)
			c.logger.Debug("retrying request", "endpoint", ep.Name, "attempt", attempt, "delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, lastStatus, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, lastStatus, ctx.Err()
			}
			return nil, lastStatus, fmt.Errorf("rate limiter: %w", err)
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, ep.Method, reqURL, bodyReader)
		if err != nil {
			return nil, lastStatus, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json;charset=utf-8")
		}
		if c.accessToken != "" && (ep.RequiresAuth || c.apiKey == "") {
			req.Header.Set("Authorization", "Bearer "+c.accessToken)
		}

		c.logger.Debug("tmdb request", "method", ep.Method, "endpoint", ep.Name, "path", ep.Path, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, lastStatus, ctx.Err()
			}
			c.logger.Warn("tmdb request failed, will retry",
				"endpoint", ep.Name,
				"error", err,
				"attempt", attempt,
				"maxRetries", c.maxRetries,
			)
			lastErr = fmt.Errorf("%w: %v", domain.ErrNetwork, err)
			lastStatus = metrics.StatusError
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		lastStatus = strconv.Itoa(resp.StatusCode)
		if err != nil {
			if ctx.Err() != nil {
				return nil, lastStatus, ctx.Err()
			}
			return nil, lastStatus, fmt.Errorf("%w: failed to read response: %v", domain.ErrNetwork, err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, lastStatus, nil
		}

		httpErr := &domain.HTTPError{StatusCode: resp.StatusCode, Message: statusMessage(body)}

		// Retry on 5xx server errors and rate limiting
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn("tmdb server error, will retry",
				"endpoint", ep.Name,
				"status", resp.StatusCode,
				"attempt", attempt,
				"maxRetries", c.maxRetries,
				"path", ep.Path,
			)
			lastErr = httpErr
			continue
		}

		c.logger.Error("tmdb request error", "endpoint", ep.Name, "status", resp.StatusCode, "message", httpErr.Message)
		return nil, lastStatus, httpErr
	}

	c.logger.Error("tmdb request failed after retries",
		"endpoint", ep.Name,
		"error", lastErr,
		"path", ep.Path,
	)
	return nil, lastStatus, lastErr
}

// statusMessage extracts status_message from an error body, if present
func statusMessage(body []byte) string {
	var status StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return ""
	}
	return status.StatusMessage
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
