package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var ErrInvalidOverride = errors.New("invalid environment override")

type Log struct {
	Level  string
	Format string
}

type Upstream struct {
	Timeout time.Duration
	// Proxy, when set, is used to forward requests that are not replayed.
	Proxy *ProxyURL `yaml:",omitempty"`
}

type Config struct {
	Archive                  string
	Host                     string
	Port                     uint16
	AdminInterface           string `yaml:"admin_interface"`
	EnableMetrics            bool   `yaml:"metrics"`
	EnableProfiling          bool   `yaml:"profiling"`
	PassThroughOnLoadFailure bool   `yaml:"pass_through_on_load_failure"`
	Upstream                 Upstream
	Log                      Log
}

func (c *Config) ProxyAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getBaseConfig() *Config {
	return &Config{
		Archive:        "archive.warc.gz",
		Host:           "localhost",
		Port:           3128,
		AdminInterface: "localhost:3129",
		EnableMetrics:  true,
		Upstream:       Upstream{Timeout: 5 * time.Minute},
		Log:            Log{zerolog.LevelInfoValue, "json"},
	}
}

func Parse(configPath string, lookupEnv func(string) (string, bool)) (*Config, error) {
	c := getBaseConfig()

	fp, err := os.Open(configPath) //nolint:gosec
	if err != nil {
		return c, err
	}
	defer fp.Close() //nolint:errcheck

	decoder := yaml.NewDecoder(fp)
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, err
	}

	return c, applyOverrides(c, lookupEnv)
}

func Default(lookupEnv func(string) (string, bool)) (*Config, error) {
	conf := getBaseConfig()
	return conf, applyOverrides(conf, lookupEnv)
}

func applyOverrides(conf *Config, lookupEnv func(string) (string, bool)) error {
	if val, ok := lookupEnv("WARCREPLAY_ENABLE_PROFILING"); ok && val == "1" {
		conf.EnableProfiling = true
	}

	if val, ok := lookupEnv("WARCREPLAY_ARCHIVE"); ok {
		conf.Archive = val
	}

	if val, ok := lookupEnv("WARCREPLAY_LOG_LEVEL"); ok {
		conf.Log.Level = val
	}

	if val, ok := lookupEnv("WARCREPLAY_LOG_FORMAT"); ok {
		conf.Log.Format = val
	}

	if val, ok := lookupEnv("WARCREPLAY_HOST"); ok {
		conf.Host = val
	}

	if val, ok := lookupEnv("WARCREPLAY_PORT"); ok {
		port, err := strconv.ParseUint(val, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: WARCREPLAY_PORT: %w", ErrInvalidOverride, err)
		}
		conf.Port = uint16(port)
	}

	if val, ok := lookupEnv("WARCREPLAY_ADMIN_INTERFACE"); ok {
		conf.AdminInterface = val
	}

	return nil
}
