package slack

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"starlord/internal/metrics"

	"github.com/slack-go/slack"
)

// Replier delivers a reply to a slash command's response URL.
type Replier interface {
	Send(ctx context.Context, responseURL string, resp SlashCommandResponse) error
}

// ReplySender posts replies as JSON. Delivery is attempted once; a slow
// response URL holds up the caller until it answers.
type ReplySender struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewReplySender creates a ReplySender. A zero timeout leaves each POST unbounded.
func NewReplySender(httpClient *http.Client, timeout time.Duration) *ReplySender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ReplySender{
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Send posts resp to responseURL once. slack-go always serializes
// replace_original and delete_original; both false leave the original
// command untouched, which is Slack's default.
func (s *ReplySender) Send(ctx context.Context, responseURL string, resp SlashCommandResponse) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	msg := &slack.WebhookMessage{
		ResponseType: resp.ResponseType,
		Text:         resp.Text,
	}

	start := time.Now()
	err := slack.PostWebhookCustomHTTPContext(ctx, responseURL, s.httpClient, msg)
	metrics.ReplyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Replies.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to post reply: %w", err)
	}

	metrics.Replies.WithLabelValues("success").Inc()
	return nil
}
