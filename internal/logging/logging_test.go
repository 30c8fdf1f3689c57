package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLogFormat(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		format string
		output string
	}{
		{"console", `^\x1b\[90m\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}((\+\d{2}:\d{2})|Z)\x1b\[0m \x1b\[32mINF\x1b\[0m \x1b\[1mlogging_test\.go:\d+\x1b\[0m\x1b\[36m >\x1b\[0m \x1b\[1marchive loaded\x1b\[0m\n$`},
		{"json", `^\{"level":"info","time":"\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}((\+\d{2}:\d{2})|Z)","caller":.*\/logging_test\.go:\d+","message":"archive loaded"\}\n$`},
	} {
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()

			writer := bytes.NewBuffer(nil)
			logger, err := CreateLogger(zerolog.DebugLevel, tc.format, writer)
			require.NoError(t, err)

			logger.Info().Msg("archive loaded")
			require.Regexp(t, tc.output, writer.String())
		})
	}
}

func TestLevelIsRespected(t *testing.T) {
	t.Parallel()

	writer := bytes.NewBuffer(nil)
	logger, err := CreateLogger(zerolog.WarnLevel, "json", writer)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	require.Empty(t, writer.String())

	logger.Warn().Msg("shown")
	require.Contains(t, writer.String(), `"message":"shown"`)
}

func TestCanLogToMultipleWriters(t *testing.T) {
	t.Parallel()

	first := bytes.NewBuffer(nil)
	second := bytes.NewBuffer(nil)
	logger, err := CreateLogger(zerolog.InfoLevel, "json", first, second)
	require.NoError(t, err)

	logger.Info().Msg("replayed")
	require.Contains(t, first.String(), `"message":"replayed"`)
	require.Equal(t, first.String(), second.String())
}

func TestCannotSetInvalidLogFormat(t *testing.T) {
	t.Parallel()

	writer := bytes.NewBuffer(nil)
	logger, err := CreateLogger(zerolog.DebugLevel, "invalid", writer)
	require.ErrorIs(t, err, ErrInvalidLogFormat)
	require.Equal(t, zerolog.Logger{}, logger)
}
