// Package notify delivers fired alerts to the configured transports.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stock-monitor/internal/config"
	apperrors "stock-monitor/internal/errors"
	"stock-monitor/internal/models"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendAlert(ctx context.Context, alert models.FiredAlert, rule models.Rule) error
	SendTest(ctx context.Context) error
}

// Channel defines the interface for a notification transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Kind      string
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

const (
	KindAlert = "alert"
	KindTest  = "test"
)

// MultiNotifier sends notifications to every enabled channel. A channel
// failure is reported but does not stop the remaining channels.
type MultiNotifier struct {
	channels []Channel
}

// NewMultiNotifier creates a notifier from the configured channels. The
// log channel is always present so fired alerts land in the log even
// with every push transport disabled.
func NewMultiNotifier(cfg config.NotificationConfig, logger zerolog.Logger) *MultiNotifier {
	mn := &MultiNotifier{}
	mn.channels = append(mn.channels, NewLogChannel(logger))

	if cfg.Pushover.Enabled {
		mn.channels = append(mn.channels, NewPushoverChannel(cfg.Pushover))
	}
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookChannel(cfg.Webhook))
	}
	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.channels = append(mn.channels, ch)
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	var errs []string
	for _, ch := range mn.channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			errs = append(errs, apperrors.NewNotifyError(ch.Name(), err).Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendAlert renders and sends a fired alert.
func (mn *MultiNotifier) SendAlert(ctx context.Context, alert models.FiredAlert, rule models.Rule) error {
	return mn.Send(ctx, Notification{
		Kind:    KindAlert,
		Title:   fmt.Sprintf("Alert: %s", alert.Ticker),
		Message: RenderAlert(alert, rule),
		Data: map[string]interface{}{
			"ticker":    alert.Ticker,
			"kind":      alert.Kind,
			"magnitude": alert.Magnitude,
			"direction": alert.Direction,
			"sample_at": alert.SampleAt.Format(time.RFC3339),
		},
	})
}

// SendTest sends a test notification to verify transport configuration.
func (mn *MultiNotifier) SendTest(ctx context.Context) error {
	return mn.Send(ctx, Notification{
		Kind:    KindTest,
		Title:   "Stock monitor test",
		Message: "This is a test notification from the stock monitor.",
	})
}

// RenderAlert renders the human-readable alert message.
func RenderAlert(alert models.FiredAlert, rule models.Rule) string {
	switch alert.Kind {
	case models.KindPctMove:
		return fmt.Sprintf("Unusual price change detected for %s: %.2f%% (threshold: %.2f%%, direction: %s)",
			alert.Ticker, alert.Magnitude, rule.Threshold, rule.Direction)
	case models.KindPriceBelow:
		target := 0.0
		if rule.PriceBelow != nil {
			target = *rule.PriceBelow
		}
		return fmt.Sprintf("%s has dropped below your target of %.2f. Current price: %.2f",
			alert.Ticker, target, alert.Magnitude)
	case models.KindPriceAbove:
		target := 0.0
		if rule.PriceAbove != nil {
			target = *rule.PriceAbove
		}
		return fmt.Sprintf("%s has gone above your target of %.2f. Current price: %.2f",
			alert.Ticker, target, alert.Magnitude)
	default:
		return fmt.Sprintf("%s: %s %.2f", alert.Ticker, alert.Kind, alert.Magnitude)
	}
}

// LogChannel writes notifications to the structured log.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a log-backed notification channel.
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

// Name returns the name of the channel.
func (l *LogChannel) Name() string { return "log" }

// IsEnabled returns whether the channel is enabled.
func (l *LogChannel) IsEnabled() bool { return true }

// Send writes the notification to the log.
func (l *LogChannel) Send(ctx context.Context, n Notification) error {
	l.logger.Info().
		Str("event", "notification").
		Str("kind", n.Kind).
		Fields(n.Data).
		Msg(n.Message)
	return nil
}

// PushoverChannel sends push notifications through the Pushover API.
type PushoverChannel struct {
	userKey  string
	apiToken string
	endpoint string
	enabled  bool
	client   *http.Client
}

const pushoverEndpoint = "https://api.pushover.net/1/messages.json"

// NewPushoverChannel creates a Pushover notification channel.
func NewPushoverChannel(cfg config.PushoverConfig) *PushoverChannel {
	return &PushoverChannel{
		userKey:  cfg.UserKey,
		apiToken: cfg.APIToken,
		endpoint: pushoverEndpoint,
		enabled:  cfg.Enabled && cfg.UserKey != "" && cfg.APIToken != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the channel.
func (p *PushoverChannel) Name() string { return "pushover" }

// IsEnabled returns whether the channel is enabled.
func (p *PushoverChannel) IsEnabled() bool { return p.enabled }

// Send posts the notification message to Pushover.
func (p *PushoverChannel) Send(ctx context.Context, n Notification) error {
	form := url.Values{}
	form.Set("token", p.apiToken)
	form.Set("user", p.userKey)
	form.Set("title", n.Title)
	form.Set("message", n.Message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushover API returned status %d", resp.StatusCode)
	}
	return nil
}

// WebhookChannel sends notifications as JSON to an HTTP endpoint.
type WebhookChannel struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookChannel creates a webhook notification channel.
func NewWebhookChannel(cfg config.WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the channel.
func (w *WebhookChannel) Name() string { return "webhook" }

// IsEnabled returns whether the channel is enabled.
func (w *WebhookChannel) IsEnabled() bool { return w.enabled }

// Send posts the notification payload as JSON.
func (w *WebhookChannel) Send(ctx context.Context, n Notification) error {
	payload := map[string]interface{}{
		"kind":      n.Kind,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "StockMonitor/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// NoOpNotifier is a notifier that does nothing, for dry runs and tests.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier { return &NoOpNotifier{} }

// Send does nothing.
func (n *NoOpNotifier) Send(ctx context.Context, notif Notification) error { return nil }

// SendAlert does nothing.
func (n *NoOpNotifier) SendAlert(ctx context.Context, alert models.FiredAlert, rule models.Rule) error {
	return nil
}

// SendTest does nothing.
func (n *NoOpNotifier) SendTest(ctx context.Context) error { return nil }
