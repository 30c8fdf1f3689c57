package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

func newLoggingMiddleware(handler http.Handler, logger *zerolog.Logger) http.Handler {
	logHandler := hlog.NewHandler(*logger)

	correlationID := hlog.RequestIDHandler("id", "X-Warcreplay-Correlation-ID")

	urlHandler := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := zerolog.Ctx(r.Context())
			log.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("url", r.URL.Redacted())
			})
			next.ServeHTTP(w, r)
		})
	}

	access := hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
		level := zerolog.InfoLevel
		if status == 0 {
			level = zerolog.ErrorLevel
		} else if status >= http.StatusInternalServerError {
			level = zerolog.WarnLevel
		}

		l := hlog.FromRequest(req).WithLevel(level) //nolint:zerologlint
		if ua := req.Header.Get("User-Agent"); ua != "" {
			l = l.Str("user-agent", ua)
		}
		l.
			Str("ip", req.RemoteAddr).
			Str("method", req.Method).
			Str("replay", GetReplayState(req.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Processed request")
	})

	return logHandler(correlationID(access(urlHandler(handler))))
}

func newTraceMiddleware(next http.Handler, logger *zerolog.Logger) http.Handler {
	if logger.GetLevel() > zerolog.TraceLevel {
		logger.Debug().Msg("Tracing disabled, not adding trace middleware")
		return next
	}

	return http.HandlerFunc(func(respw http.ResponseWriter, req *http.Request) {
		headers := req.Header.Clone()
		headers.Del("Authorization")
		headers.Del("Proxy-Authorization")

		hlog.FromRequest(req).Trace().
			Any("headers", headers).
			Str("method", req.Method).
			Msg("Received request")
		defer func() {
			hlog.FromRequest(req).Trace().Any("headers", respw.Header()).Msg("Returned response")
		}()
		next.ServeHTTP(respw, req)
	})
}

// newMetricsMiddleware exposes request counts per replay outcome. A nil
// registry leaves the collectors unregistered.
func newMetricsMiddleware(
	next http.Handler,
	serviceName string,
	registry prometheus.Registerer,
) http.Handler {
	factory := promauto.With(registry)
	labels := prometheus.Labels{"service": serviceName}

	requests := factory.NewCounterVec(prometheus.CounterOpts{
		Name:        "warcreplay_http_requests_total",
		Help:        "Number of HTTP requests processed, by replay outcome and status code",
		ConstLabels: labels,
	}, []string{"replay", "code"})
	responseSize := factory.NewCounterVec(prometheus.CounterOpts{
		Name:        "warcreplay_http_response_bytes_total",
		Help:        "Number of response body bytes sent to clients, by replay outcome",
		ConstLabels: labels,
	}, []string{"replay"})
	duration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "warcreplay_http_request_duration_seconds",
		Help:        "Time taken to answer HTTP requests, by replay outcome",
		ConstLabels: labels,
		Buckets:     prometheus.DefBuckets,
	}, []string{"replay"})

	return hlog.AccessHandler(func(req *http.Request, status, size int, elapsed time.Duration) {
		outcome := GetReplayState(req.Context())
		requests.WithLabelValues(outcome, strconv.Itoa(status)).Inc()
		responseSize.WithLabelValues(outcome).Add(float64(size))
		duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	})(next)
}

func ApplyAllMiddlewares(
	handler http.Handler,
	serviceName string,
	logger *zerolog.Logger,
	registry prometheus.Registerer,
) http.Handler {
	return StateHandler(
		newLoggingMiddleware(
			newMetricsMiddleware(newTraceMiddleware(handler, logger), serviceName, registry),
			logger,
		),
	)
}
