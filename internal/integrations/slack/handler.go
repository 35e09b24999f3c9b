package slack

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"starlord/internal/logging"
	"starlord/internal/metrics"
	"starlord/internal/permalink"
	"starlord/internal/queue"

	"github.com/slack-go/slack"
)

const (
	badTokenBody   = "Bad verification token."
	badUsageBody   = "Bad Request: Usage /quoth <link to message>"
	badRequestBody = "Bad Request"
)

// SlashCommandHandler accepts star slash commands and queues them for the
// star worker. It answers Slack immediately; the outcome is reported later
// through the command's response URL.
type SlashCommandHandler struct {
	verificationToken string
	queue             *queue.Queue[StarRequest]

	// fatal is called when the queue has no consumer any more.
	fatal func(error)

	shuttingDown atomic.Bool
}

// NewSlashCommandHandler creates a handler that queues verified commands on q.
func NewSlashCommandHandler(verificationToken string, q *queue.Queue[StarRequest]) *SlashCommandHandler {
	return &SlashCommandHandler{
		verificationToken: verificationToken,
		queue:             q,
		fatal:             exitOnFatal,
	}
}

// HandleStarCommand handles POST /starlord.
func (h *SlashCommandHandler) HandleStarCommand(w http.ResponseWriter, r *http.Request) {
	logger := logging.LoggerFromContext(r.Context())

	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		logger.Warn("Failed to parse slash command", "error", err)
		metrics.StarRequests.WithLabelValues("bad_request").Inc()
		writeText(w, http.StatusBadRequest, badRequestBody)
		return
	}

	logger = logger.With(
		"team_id", cmd.TeamID,
		"channel_id", cmd.ChannelID,
		"user_id", cmd.UserID,
		"command", cmd.Command)

	if err := VerifyToken(cmd, h.verificationToken); err != nil {
		logger.Warn("Rejected slash command", "error", err)
		metrics.StarRequests.WithLabelValues("bad_token").Inc()
		writeText(w, http.StatusForbidden, badTokenBody)
		return
	}

	ts, err := permalink.ExtractTimestamp(cmd.Text)
	if err != nil {
		logger.Info("No message link in slash command", "text", cmd.Text)
		metrics.StarRequests.WithLabelValues("malformed_link").Inc()
		writeText(w, http.StatusBadRequest, badUsageBody)
		return
	}

	req, err := NewStarRequest(cmd, ts)
	if err != nil {
		logger.Warn("Rejected slash command", "error", err)
		metrics.StarRequests.WithLabelValues("malformed_link").Inc()
		writeText(w, http.StatusBadRequest, badUsageBody)
		return
	}

	if err := h.queue.Enqueue(req); err != nil {
		if h.shuttingDown.Load() {
			logger.Warn("Rejected star request during shutdown", "error", err)
			metrics.StarRequests.WithLabelValues("shutting_down").Inc()
			writeText(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
			return
		}
		h.fatal(err)
		writeText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	metrics.StarRequests.WithLabelValues("enqueued").Inc()
	metrics.QueueDepth.Set(float64(h.queue.Len()))
	logger.Info("Queued star request",
		"star_request_id", req.ID.String(),
		"message_ts", req.MessageTimestamp)

	w.WriteHeader(http.StatusOK)
}

// BeginShutdown marks the process as stopping. From then on a closed queue
// is expected and requests are refused with 503 instead of exiting.
func (h *SlashCommandHandler) BeginShutdown() {
	h.shuttingDown.Store(true)
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(body))
}

func exitOnFatal(err error) {
	if errors.Is(err, queue.ErrClosed) {
		slog.Error("Star worker is gone, cannot accept requests", "error", err)
	} else {
		slog.Error("Failed to queue star request", "error", err)
	}
	os.Exit(1)
}
