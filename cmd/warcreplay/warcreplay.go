package main

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/benjaminschubert/warcreplay/internal/archive"
	"github.com/benjaminschubert/warcreplay/internal/config"
	"github.com/benjaminschubert/warcreplay/internal/index"
	"github.com/benjaminschubert/warcreplay/internal/logging"
	"github.com/benjaminschubert/warcreplay/internal/middleware"
	"github.com/benjaminschubert/warcreplay/internal/server"
)

func getVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return info.Main.Version
}

// loadConfig reads the configuration file named by WARCREPLAY_CONFIG_PATH, or
// ./warcreplay.yaml. The boolean reports that the default file did not exist
// and the default configuration was used instead.
func loadConfig(lookupEnv func(string) (string, bool)) (*config.Config, bool, error) {
	configPath, configPathSet := lookupEnv("WARCREPLAY_CONFIG_PATH")
	if !configPathSet {
		configPath = "./warcreplay.yaml"
	}

	conf, err := config.Parse(configPath, lookupEnv)
	if err != nil {
		if !configPathSet && errors.Is(err, fs.ErrNotExist) {
			conf, err = config.Default(lookupEnv)
			return conf, true, err
		}
		return nil, false, err
	}

	return conf, false, nil
}

// loadIndex loads the archive, falling back to an empty index when allowed.
func loadIndex(conf *config.Config, logger *zerolog.Logger) (*index.Index, error) {
	idx, err := archive.Load(conf.Archive, logger)
	if err == nil {
		return idx, nil
	}

	if !conf.PassThroughOnLoadFailure {
		return nil, err
	}

	logger.Error().Err(err).Msg("Unable to load the archive, every request will be forwarded live")
	return index.NewBuilder().Build(), nil
}

func newUpstreamClient(conf *config.Config) *http.Client {
	proxy := http.ProxyFromEnvironment
	if conf.Upstream.Proxy != nil && conf.Upstream.Proxy.URL != nil {
		proxy = http.ProxyURL(conf.Upstream.Proxy.URL)
	}

	return &http.Client{
		Timeout: conf.Upstream.Timeout,
		Transport: &http.Transport{
			Proxy:                 proxy,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          20,
			MaxConnsPerHost:       20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		// Redirects are the client's business, not the proxy's.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func main() {
	panicLogger, err := logging.CreateLogger(zerolog.WarnLevel, "json")
	if err != nil {
		panic("BUG: invalid default logger")
	}

	conf, usingDefaults, err := loadConfig(os.LookupEnv)
	if err != nil {
		panicLogger.Fatal().Err(err).Msg("Unable to start server: invalid configuration")
	}

	logLevel, err := zerolog.ParseLevel(conf.Log.Level)
	if err != nil {
		panicLogger.Fatal().Err(err).Msg("Unable to start server: invalid configuration")
	}
	logger, err := logging.CreateLogger(logLevel, conf.Log.Format)
	if err != nil {
		panicLogger.Fatal().Err(err).Msg("Unable to initialize logger")
	}

	logger.Info().Str("version", getVersion()).Msg("Starting warcreplay")
	if usingDefaults {
		logger.Info().
			Msg("warcreplay.yaml not found and WARCREPLAY_CONFIG_PATH not set: Using default configuration")
	}

	idx, err := loadIndex(conf, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to start server: can't load the archive")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	stats := &middleware.Statistics{}
	defer func() {
		logger.Info().EmbedObject(stats.Snapshot()).Msg("Final statistics")
	}()

	srv := server.New(conf, idx, newUpstreamClient(conf), &logger, registry, stats)
	if err := srv.ListenAndServe(); err != nil {
		logger.Panic().Err(err).Msg("An error occurred while shutting down the server")
	}

	logger.Info().Msg("Server shut down")
}
