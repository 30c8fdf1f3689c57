package main

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschubert/warcreplay/internal/archive"
	"github.com/benjaminschubert/warcreplay/internal/testutils"
)

func TestCanGetVersion(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, getVersion())
}

func TestCanLoadSpecifiedConfig(t *testing.T) {
	t.Parallel()

	conf := t.TempDir() + "/warcreplay.yml"
	fp, err := os.Create(conf) //nolint:gosec
	require.NoError(t, err)

	_, err = fp.WriteString("host: 1.1.1.1\narchive: crawl.warc.gz\nlog:\n  level: debug")
	require.NoError(t, err)
	require.NoError(t, fp.Close())

	c, usingDefaults, err := loadConfig(func(s string) (string, bool) {
		switch s {
		case "WARCREPLAY_CONFIG_PATH":
			return conf, true
		default:
			return "", false
		}
	})

	require.NoError(t, err)
	assert.False(t, usingDefaults)
	assert.Equal(t, "1.1.1.1", c.Host)
	assert.Equal(t, "crawl.warc.gz", c.Archive)
}

func TestFailsIfSpecifiedConfigDoesNotExist(t *testing.T) {
	t.Parallel()

	_, _, err := loadConfig(func(s string) (string, bool) {
		switch s {
		case "WARCREPLAY_CONFIG_PATH":
			return t.TempDir() + "/warcreplay.yml", true
		default:
			return "", false
		}
	})
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadIndexFromArchive(t *testing.T) {
	t.Parallel()

	archivePath := testutils.WriteWARC(t, testutils.WARCRecord{
		Type:      "response",
		TargetURI: "http://a.test/",
		Block:     testutils.HTTPResponse("HTTP/1.1 200 OK", nil, "home"),
	})

	c, _, err := loadConfig(func(s string) (string, bool) {
		switch s {
		case "WARCREPLAY_CONFIG_PATH":
			return path.Join(t.TempDir(), "missing.yml"), false
		case "WARCREPLAY_ARCHIVE":
			return archivePath, true
		default:
			return "", false
		}
	})
	require.NoError(t, err)

	idx, err := loadIndex(c, testutils.TestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test/"}, idx.URIs())
}

func TestLoadIndexPolicyOnMissingArchive(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name        string
		passThrough bool
	}{
		{"abort", false},
		{"pass-through", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, _, err := loadConfig(func(s string) (string, bool) {
				if s == "WARCREPLAY_ARCHIVE" {
					return path.Join(t.TempDir(), "missing.warc.gz"), true
				}
				return "", false
			})
			require.NoError(t, err)
			c.PassThroughOnLoadFailure = tc.passThrough

			idx, err := loadIndex(c, testutils.TestLogger(t))
			if tc.passThrough {
				require.NoError(t, err)
				assert.Equal(t, 0, idx.Len())
			} else {
				require.ErrorIs(t, err, archive.ErrArchiveOpen)
				assert.Nil(t, idx)
			}
		})
	}
}

func TestUpstreamClientDoesNotFollowRedirects(t *testing.T) {
	t.Parallel()

	c, _, err := loadConfig(func(string) (string, bool) { return "", false })
	require.NoError(t, err)

	client := newUpstreamClient(c)
	require.ErrorIs(t, client.CheckRedirect(nil, nil), http.ErrUseLastResponse)
	require.Equal(t, c.Upstream.Timeout, client.Timeout)
}
