package proxy

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/benjaminschubert/warcreplay/internal/handlers"
	"github.com/benjaminschubert/warcreplay/internal/index"
	"github.com/benjaminschubert/warcreplay/internal/intercept"
	"github.com/benjaminschubert/warcreplay/internal/middleware"
)

// NewHandler returns a forward proxy handler answering from idx whenever a
// response was recorded for the requested URL, and forwarding live through
// client otherwise.
//
// Requests are not routed through a ServeMux: its path cleaning would alter
// the URLs looked up in the archive.
func NewHandler(
	idx *index.Index,
	client *http.Client,
	stats *middleware.Statistics,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodConnect {
			handlers.NotImplemented(w, r)
			return
		}

		logger := hlog.FromRequest(r)
		requestURL := handlers.RequestURL(r)

		decision := intercept.Intercept(requestURL, idx)
		if decision.IsReplay() {
			middleware.SetReplayState(r, middleware.StateReplayed)

			written, err := handlers.WriteReplay(w, r, decision)
			if errors.Is(err, handlers.ErrInformationalStatus) {
				logger.Error().Err(err).Msg("Unable to replay recorded response")
				handlers.WriteJSON(w, r, http.StatusBadGateway, map[string]string{"error": err.Error()})
				return
			}

			stats.Replayed.Add(1)
			stats.BytesReplayed.Add(uint64(written)) //nolint:gosec
			if err != nil {
				logger.Error().Err(err).Msg("Error sending replayed response to client")
			}
			return
		}

		middleware.SetReplayState(r, middleware.StateLive)
		stats.PassedThrough.Add(1)

		written, err := handlers.Forward(w, r, requestURL, client)
		stats.BytesForwarded.Add(uint64(written)) //nolint:gosec
		if err != nil {
			stats.UpstreamErrors.Add(1)
			logger.Warn().Err(err).Msg("Unable to forward request upstream")

			status := http.StatusBadGateway
			if errors.Is(err, handlers.ErrForwardingLoop) {
				status = http.StatusLoopDetected
			}
			handlers.WriteJSON(w, r, status, map[string]string{"error": err.Error()})
		}
	})
}
