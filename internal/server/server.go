package server

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/benjaminschubert/warcreplay/internal/config"
	"github.com/benjaminschubert/warcreplay/internal/handlers"
	"github.com/benjaminschubert/warcreplay/internal/handlers/admin"
	"github.com/benjaminschubert/warcreplay/internal/handlers/proxy"
	"github.com/benjaminschubert/warcreplay/internal/index"
	"github.com/benjaminschubert/warcreplay/internal/middleware"
)

type serverInfo struct {
	server *http.Server
	logger *zerolog.Logger
}

type Server struct {
	servers []serverInfo
	logger  *zerolog.Logger
}

func New(
	conf *config.Config,
	idx *index.Index,
	client *http.Client,
	logger *zerolog.Logger,
	metricsRegistry interface {
		prometheus.Registerer
		prometheus.Gatherer
	},
	stats *middleware.Statistics,
) *Server {
	srv := Server{logger: logger}

	srv.servers = append(srv.servers, setupProxy(conf, idx, client, logger, metricsRegistry, stats))

	if conf.AdminInterface != "" {
		srv.servers = append(
			srv.servers,
			setupAdminInterface(conf, idx, logger, metricsRegistry, stats),
		)
	} else if conf.EnableProfiling {
		logger.Warn().Msg("Profiling requested, but the admin interface is disabled. Ignoring.")
	}

	return &srv
}

func (s *Server) ListenAndServe() error {
	errChan := make(chan error, len(s.servers))

	for _, srv := range s.servers {
		go func() {
			srv.logger.Info().Str("address", srv.server.Addr).Msg("Starting server")
			err := srv.server.ListenAndServe()
			if !errors.Is(err, http.ErrServerClosed) {
				srv.logger.Error().Err(err).Msg("Server didn't come up properly")
				errChan <- err
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	select {
	case <-stop:
		s.logger.Info().Msg("Shutting down")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("At least one server is unhealthy, shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	closingErrs := make(chan error, len(s.servers))

	for _, srv := range s.servers {
		go func() {
			err := srv.server.Shutdown(ctx)
			if err != nil {
				srv.logger.Error().Err(err).Msg("Error shutting down the server")
			}
			closingErrs <- err
		}()
	}

	var lastErr error
	for range len(s.servers) {
		if err := <-closingErrs; err != nil {
			lastErr = err
		}
	}

	return lastErr
}

func setupProxy(
	conf *config.Config,
	idx *index.Index,
	client *http.Client,
	logger *zerolog.Logger,
	registry prometheus.Registerer,
	stats *middleware.Statistics,
) serverInfo {
	serviceName := "proxy"
	log := logger.With().Str("service", serviceName).Logger()

	return createServer(
		conf.ProxyAddress(),
		proxy.NewHandler(idx, client, stats),
		serviceName,
		&log,
		registry,
	)
}

func setupAdminInterface(
	conf *config.Config,
	idx *index.Index,
	logger *zerolog.Logger,
	registry interface {
		prometheus.Registerer
		prometheus.Gatherer
	},
	stats *middleware.Statistics,
) serverInfo {
	serviceName := "admin"
	log := logger.With().Str("service", serviceName).Logger()

	handler := http.NewServeMux()

	if conf.EnableProfiling {
		log.Info().
			Str("profilingUrl", conf.AdminInterface+"/-/pprof/").
			Msg("Enabling profiling")
		handlers.RegisterProfilingHandlers(handler, "/-/pprof/")
	}

	if conf.EnableMetrics && registry != nil {
		log.Info().
			Str("metricsUrl", conf.AdminInterface+"/metrics").
			Msg("Enabling metrics")
		handler.Handle(
			"GET /metrics",
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	if err := admin.RegisterHandler(handler, idx, stats, conf); err != nil {
		logger.Panic().Err(err).Msg("unable to initialize server properly")
	}
	handler.HandleFunc("/", handlers.NotImplemented)

	return createServer(conf.AdminInterface, handler, serviceName, &log, registry)
}

func createServer(
	address string,
	handler http.Handler,
	serviceName string,
	log *zerolog.Logger,
	registry prometheus.Registerer,
) serverInfo {
	return serverInfo{
		&http.Server{
			Addr:         address,
			Handler:      middleware.ApplyAllMiddlewares(handler, serviceName, log, registry),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute,
			ErrorLog:     stdlog.New(log, "", 0),
		},
		log,
	}
}
