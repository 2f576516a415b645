package handler

import (
	"net/http"

	"github.com/crosspostme/crosspost-agent/internal/connection"
	"github.com/crosspostme/crosspost-agent/internal/domain"
	"github.com/crosspostme/crosspost-agent/internal/logger"
)

// callbackPage is served to the browser popup after the provider redirects
// back. The popup closes itself; the attempt outcome reaches the UI over SSE.
const callbackPage = `<!DOCTYPE html>
<html>
<head><title>Connecting...</title></head>
<body>
<p>Finishing connection. You can close this window.</p>
<script>window.close();</script>
</body>
</html>`

// HandleOAuthCallback handles GET /oauth/callback, the redirect target handed
// to the backend on initiation. The provider's query parameters are consumed
// by the backend side of the flow; locally the redirect only signals that the
// user finished, so every attempt waiting on a redirect is confirmed against
// the backend.
func HandleOAuthCallback(conn connection.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		confirmed := 0
		for _, attempt := range conn.Attempts() {
			if attempt.Phase != domain.PhaseAwaitingOAuthRedirect {
				continue
			}
			if _, err := conn.ConfirmOAuthCompletion(r.Context(), attempt.ID); err != nil {
				log.Warn("OAuth callback confirmation failed",
					"attempt_id", attempt.ID, "error", err)
				continue
			}
			confirmed++
		}

		log.Info("OAuth callback processed", "confirmed", confirmed)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(callbackPage))
	}
}
