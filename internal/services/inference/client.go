package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"swingcoach/internal/config"
	"swingcoach/internal/logging"
	"swingcoach/internal/services"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultPollInterval   = 3 * time.Second
	defaultMaxWait        = 120 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultBaseURL        = "https://generativelanguage.googleapis.com"
	defaultModel          = "gemini-2.5-flash"

	stageName = "inference"
)

// Config captures the runtime settings required to talk to the service.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	PollInterval  time.Duration
	MaxWait       time.Duration
	RetryAttempts int
}

// ConfigFromSettings derives client settings from the loaded configuration.
func ConfigFromSettings(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		APIKey:        cfg.Inference.APIKey,
		BaseURL:       cfg.Inference.BaseURL,
		Model:         cfg.Inference.Model,
		Timeout:       cfg.InferenceTimeout(),
		PollInterval:  cfg.PollInterval(),
		MaxWait:       cfg.MaxWait(),
		RetryAttempts: cfg.Inference.RetryAttempts,
	}
}

// PollObserver receives how long an upload waited to become ready and how
// the wait ended ("active", "failed", "timeout" or "canceled").
type PollObserver func(wait time.Duration, outcome string)

// Client wraps the file and generateContent endpoints of the service.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(time.Duration)
	observePoll    PollObserver
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger; the client is silent otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithPollObserver registers a callback for upload readiness waits.
func WithPollObserver(observer PollObserver) Option {
	return func(c *Client) {
		c.observePoll = observer
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	client := &Client{
		cfg:            cfg,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		logger:         logging.NewNop(),
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// HealthCheck verifies the API key and model by fetching the model resource.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.requireKey("health"); err != nil {
		return err
	}
	_, err := c.doWithRetry(ctx, "health", func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, "/v1beta/models/"+c.cfg.Model, nil)
	})
	if err != nil {
		return unavailable("health", "model check failed", err)
	}
	return nil
}

func (c *Client) requireKey(op string) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrAnalysisUnavailable, stageName, op, "api key not configured (set inference.api_key or GEMINI_API_KEY)", nil)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	return req, nil
}

// unavailable tags err as a recoverable analysis failure. Deadline expiry is
// additionally marked as a timeout.
func unavailable(op, message string, err error) error {
	if errors.Is(err, services.ErrAnalysisUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
		err = fmt.Errorf("%w: %w", services.ErrTimeout, err)
	}
	return services.Wrap(services.ErrAnalysisUnavailable, stageName, op, message, err)
}
