package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"swingcoach/internal/analysis"
	"swingcoach/internal/config"
)

const userAgent = "swingcoach/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyAnalysisCompleted(ctx context.Context, swingID string, club analysis.Club, speedMph, carryYards float64) error
	NotifyAnalysisUnavailable(ctx context.Context, swingID string, club analysis.Club, reason string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		analysis: cfg.Notifications.Analysis,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	analysis bool
	errors   bool
}

func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

func (n *ntfyService) NotifyAnalysisCompleted(ctx context.Context, swingID string, club analysis.Club, speedMph, carryYards float64) error {
	if !n.analysis {
		return nil
	}
	data := payload{
		title:   "Swingcoach - Swing Analyzed",
		message: fmt.Sprintf("⛳ %s swing %s: %.0f mph, %.0f yd carry", club.Label(), shortID(swingID), speedMph, carryYards),
		tags:    []string{"swingcoach", "analysis", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAnalysisUnavailable(ctx context.Context, swingID string, club analysis.Club, reason string) error {
	if !n.analysis {
		return nil
	}
	message := fmt.Sprintf("%s swing %s could not be analyzed", club.Label(), shortID(swingID))
	if reason = strings.TrimSpace(reason); reason != "" {
		message += "\n" + reason
	}
	data := payload{
		title:   "Swingcoach - Analysis Unavailable",
		message: message,
		tags:    []string{"swingcoach", "analysis", "unavailable"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Swingcoach - Error",
		message:  builder.String(),
		tags:     []string{"swingcoach", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Swingcoach - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"swingcoach", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyAnalysisCompleted(context.Context, string, analysis.Club, float64, float64) error {
	return nil
}
func (noopService) NotifyAnalysisUnavailable(context.Context, string, analysis.Club, string) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
