// Package photo provides a client for the public random dog image API.
package photo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client defaults.
const (
	DefaultBaseURL   = "https://dog.ceo/api"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5.0

	randomImagePath = "/breeds/image/random"
	maxBodyBytes    = 1 << 20
	statusSuccess   = "success"
)

// Photo fetch errors.
var (
	ErrUnexpectedStatus = errors.New("photo api reported failure")
	ErrEmptyPhoto       = errors.New("photo api returned no image")
)

var photoFetchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "doglist_photo_fetch_total",
		Help: "Total number of random photo fetches by result",
	},
	[]string{"result"},
)

// HTTPError is returned for non-2xx responses from the photo API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("photo api: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("photo api: status=%d body=%s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is the number of requests per second allowed towards the API.
	// Zero or negative disables limiting.
	RateLimit float64
	Transport http.RoundTripper
}

// Client fetches random dog photos over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// randomImageResponse is the body returned by GET /breeds/image/random.
type randomImageResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// NewClient creates a Client from opts.
func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid photo api url: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
		logger:  logger,
	}, nil
}

// RandomPhoto returns the URL of a random dog photo. http URLs are upgraded
// to https.
func (c *Client) RandomPhoto(ctx context.Context) (string, error) {
	photoURL, err := c.fetch(ctx)
	if err != nil {
		photoFetchTotal.WithLabelValues("error").Inc()
		c.logger.Warn("random photo fetch failed", zap.Error(err))
		return "", err
	}

	photoFetchTotal.WithLabelValues("success").Inc()
	c.logger.Debug("random photo fetched", zap.String("url", photoURL))
	return photoURL, nil
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("photo api rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+randomImagePath, nil)
	if err != nil {
		return "", fmt.Errorf("photo api: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("photo api: do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("photo api: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var body randomImageResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("photo api: decode body: %w", err)
	}

	if body.Status != statusSuccess {
		return "", fmt.Errorf("%w: status=%q", ErrUnexpectedStatus, body.Status)
	}

	photoURL := strings.TrimSpace(body.Message)
	if photoURL == "" {
		return "", ErrEmptyPhoto
	}

	return SecureURL(photoURL), nil
}
