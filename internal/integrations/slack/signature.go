package slack

import (
	"bytes"
	"io"
	"net/http"

	"starlord/internal/logging"
	"starlord/internal/metrics"

	"github.com/slack-go/slack"
)

// SignatureMiddleware rejects requests whose X-Slack-Signature does not match
// the app's signing secret. An empty secret disables the check, leaving the
// verification token as the only authentication.
func SignatureMiddleware(signingSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if signingSecret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.LoggerFromContext(r.Context())

			verifier, err := slack.NewSecretsVerifier(r.Header, signingSecret)
			if err != nil {
				logger.Warn("Missing or stale Slack signature headers", "error", err)
				metrics.StarRequests.WithLabelValues("bad_signature").Inc()
				writeText(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			body, err := io.ReadAll(io.TeeReader(r.Body, &verifier))
			r.Body.Close()
			if err != nil {
				writeText(w, http.StatusBadRequest, badRequestBody)
				return
			}

			if err := verifier.Ensure(); err != nil {
				logger.Warn("Invalid Slack signature", "error", err)
				metrics.StarRequests.WithLabelValues("bad_signature").Inc()
				writeText(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
