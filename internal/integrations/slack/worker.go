package slack

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"starlord/internal/metrics"
	"starlord/internal/queue"

	"go.opentelemetry.io/otel/attribute"
)

// Replies sent back to the user.
const (
	replyFetchFailed       = "Couldn't retrieve that message."
	replyUnexpectedMessage = "Unexpected message."
	replyStarredFormat     = "Penned \"%s\" into the book of stars.... :star:"
	replyStarFailedFormat  = "Alack! Could not pen \"%s\" into the book of stars.... Bother perhaps the foolish sqrl?"
)

// Outcome labels for metrics.StarOutcomes.
const (
	outcomeStarred           = "starred"
	outcomeAlreadyStarred    = "already_starred"
	outcomeStarFailed        = "star_failed"
	outcomeFetchFailed       = "fetch_failed"
	outcomeUnexpectedMessage = "unexpected_message"
)

// StarWorker is the single consumer of the star request queue.
//
// It handles one request at a time: history fetch, star, reply, all
// synchronous on the worker goroutine. Nothing is retried, and a hung Slack
// call or response URL stalls every request queued behind it. Every request
// gets exactly one reply.
type StarWorker struct {
	api     StarAPI
	queue   *queue.Queue[StarRequest]
	replier Replier
	timeout time.Duration
	running atomic.Bool
}

// NewStarWorker creates the worker. timeout bounds each Slack call; zero
// means calls run until Slack answers.
func NewStarWorker(api StarAPI, q *queue.Queue[StarRequest], replier Replier, timeout time.Duration) *StarWorker {
	return &StarWorker{
		api:     api,
		queue:   q,
		replier: replier,
		timeout: timeout,
	}
}

// Run consumes the queue until ctx is cancelled, in which case it returns
// nil. Any other return means the queue broke underneath the worker, which
// the caller must treat as fatal. On return the queue is closed so producers
// fail fast instead of piling up requests nobody will read.
func (w *StarWorker) Run(ctx context.Context) error {
	slog.Info("Starting star worker", "slack_api_timeout", w.timeout)

	w.running.Store(true)
	metrics.WorkerRunning.Set(1)
	defer func() {
		w.running.Store(false)
		metrics.WorkerRunning.Set(0)
		if dropped := w.queue.Close(); dropped > 0 {
			slog.Warn("Dropped queued star requests", "count", dropped)
		}
		metrics.QueueDepth.Set(0)
	}()

	for {
		// Requests still queued at cancellation are dropped by Close above.
		req, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Star worker stopped due to context cancellation")
				return nil
			}
			return fmt.Errorf("star worker: %w", err)
		}

		metrics.QueueDepth.Set(float64(w.queue.Len()))
		metrics.QueueWait.Observe(time.Since(req.EnqueuedAt).Seconds())

		// In-flight work is not cancellable; shutdown waits for it.
		w.process(context.WithoutCancel(ctx), req)
	}
}

// Running reports whether Run is consuming the queue.
func (w *StarWorker) Running() bool {
	return w.running.Load()
}

func (w *StarWorker) process(ctx context.Context, req StarRequest) {
	resp := w.Handle(ctx, req)

	if err := w.replier.Send(ctx, req.ResponseURL, resp); err != nil {
		slog.Error("Failed to deliver reply",
			"error", err,
			"star_request_id", req.ID.String(),
			"user_id", req.UserID)
	}
}

// Handle stars the requested message and returns the reply for the user.
func (w *StarWorker) Handle(ctx context.Context, req StarRequest) SlashCommandResponse {
	ctx, span := tracer.Start(ctx, "starlord.handle_star_request")
	defer span.End()

	logger := slog.With(
		"star_request_id", req.ID.String(),
		"user_id", req.UserID,
		"channel_id", req.ChannelID,
		"message_ts", req.MessageTimestamp)

	outcome, text := w.star(ctx, logger, req)

	span.SetAttributes(attribute.String("starlord.outcome", outcome))
	metrics.StarOutcomes.WithLabelValues(outcome).Inc()
	logger.Info("Processed star request", "outcome", outcome)

	return EphemeralResponse(text)
}

func (w *StarWorker) star(ctx context.Context, logger *slog.Logger, req StarRequest) (outcome, text string) {
	callCtx, cancel := w.callContext(ctx)
	msg, err := fetchMessage(callCtx, w.api, req.ChannelID, req.MessageTimestamp)
	cancel()
	if err != nil {
		logger.Warn("Failed to retrieve message", "error", err)
		return outcomeFetchFailed, replyFetchFailed
	}

	standard, ok := classifyMessage(msg).(StandardMessage)
	if !ok {
		logger.Info("Refusing to star non-standard message", "type", msg.Type, "subtype", msg.SubType)
		return outcomeUnexpectedMessage, replyUnexpectedMessage
	}

	callCtx, cancel = w.callContext(ctx)
	err = addStar(callCtx, w.api, req.ChannelID, req.MessageTimestamp)
	cancel()
	switch {
	case err == nil:
		return outcomeStarred, fmt.Sprintf(replyStarredFormat, standard.Text)
	case isAlreadyStarred(err):
		return outcomeAlreadyStarred, fmt.Sprintf(replyStarredFormat, standard.Text)
	default:
		logger.Warn("Failed to star message", "error", err, "slack_error", errorCode(err))
		return outcomeStarFailed, fmt.Sprintf(replyStarFailedFormat, standard.Text)
	}
}

func (w *StarWorker) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.timeout > 0 {
		return context.WithTimeout(ctx, w.timeout)
	}
	return context.WithCancel(ctx)
}
