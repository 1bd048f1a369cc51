package services

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/shared"
	"golang.org/x/time/rate"
)

// Option configures a catalog client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	retry      shared.RetryConfig
	limiter    *rate.Limiter
	logger     *log.Logger
}

func defaultOptions(baseURL string) clientOptions {
	return clientOptions{
		baseURL: baseURL,
		timeout: 30 * time.Second,
		retry:   shared.DefaultRetryConfig(),
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		logger:  log.Default(),
	}
}

func applyOptions(baseURL string, opts []Option) clientOptions {
	o := defaultOptions(baseURL)
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	return o
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithHTTPClient sets the client used for requests. Its timeout is left as is.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetry replaces the retry policy.
func WithRetry(cfg shared.RetryConfig) Option {
	return func(o *clientOptions) { o.retry = cfg }
}

// WithRateLimit replaces the request rate limiter. A nil limiter disables limiting.
func WithRateLimit(l *rate.Limiter) Option {
	return func(o *clientOptions) { o.limiter = l }
}

// WithLogger sets the logger used for warnings.
func WithLogger(l *log.Logger) Option {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
