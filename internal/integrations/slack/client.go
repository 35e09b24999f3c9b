package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"starlord/internal/config"
	"starlord/internal/metrics"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("starlord/internal/integrations/slack")

// ErrUnexpectedResultCount is returned when a history lookup does not yield
// exactly one message.
var ErrUnexpectedResultCount = errors.New("unexpected number of messages in history")

// StarAPI is the part of the Slack Web API the star worker calls.
type StarAPI interface {
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	AddStarContext(ctx context.Context, channel string, item slack.ItemRef) error
}

// NewClient creates the Slack Web API client from configuration.
func NewClient(cfg *config.Config) *slack.Client {
	var opts []slack.Option
	if cfg.SlackAPIURL != "" {
		apiURL := cfg.SlackAPIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return slack.New(cfg.SlackBotToken, opts...)
}

// fetchMessage loads exactly the message at ts from channel history.
func fetchMessage(ctx context.Context, api StarAPI, channelID, ts string) (slack.Message, error) {
	ctx, span := tracer.Start(ctx, "slack.conversations_history")
	defer span.End()
	span.SetAttributes(
		attribute.String("slack.channel_id", channelID),
		attribute.String("slack.message_ts", ts),
	)

	params := &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Oldest:    ts,
		Latest:    ts,
		Limit:     1,
		Inclusive: true,
	}

	start := time.Now()
	history, err := api.GetConversationHistoryContext(ctx, params)
	observeAPICall("conversations.history", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history_failed")
		return slack.Message{}, fmt.Errorf("conversations.history failed: %w", err)
	}

	if len(history.Messages) != 1 {
		span.SetStatus(codes.Error, "unexpected_result_count")
		return slack.Message{}, fmt.Errorf("%w: got %d", ErrUnexpectedResultCount, len(history.Messages))
	}

	return history.Messages[0], nil
}

// addStar stars the message at ts in channel.
func addStar(ctx context.Context, api StarAPI, channelID, ts string) error {
	ctx, span := tracer.Start(ctx, "slack.stars_add")
	defer span.End()
	span.SetAttributes(
		attribute.String("slack.channel_id", channelID),
		attribute.String("slack.message_ts", ts),
	)

	start := time.Now()
	err := api.AddStarContext(ctx, channelID, slack.NewRefToMessage(channelID, ts))
	observeAPICall("stars.add", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("slack.error_code", errorCode(err)))
		return fmt.Errorf("stars.add failed: %w", err)
	}
	return nil
}

// errorCode returns the Slack error code carried by err, e.g. "already_starred".
func errorCode(err error) string {
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return slackErr.Err
	}
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(next) {
		err = next
	}
	return err.Error()
}

// isAlreadyStarred reports whether err is Slack's "already_starred" failure.
func isAlreadyStarred(err error) bool {
	return err != nil && errorCode(err) == "already_starred"
}

func observeAPICall(method string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SlackAPICalls.WithLabelValues(method, status).Inc()
	metrics.SlackAPICallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
