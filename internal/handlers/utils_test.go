package handlers

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschubert/warcreplay/internal/index"
	"github.com/benjaminschubert/warcreplay/internal/intercept"
)

func TestRequestURL(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		target   string
		tls      bool
		expected string
	}{
		{"absolute", "http://a.test/x?b=2&a=1", false, "http://a.test/x?b=2&a=1"},
		{"absolute-unclean", "http://a.test/a//b/../c", false, "http://a.test/a//b/../c"},
		{"origin", "/x?q=1", false, "http://example.com/x?q=1"},
		{"origin-tls", "/x", true, "https://example.com/x"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.tls {
				req.TLS = &tls.ConnectionState{}
			}
			require.Equal(t, tc.expected, RequestURL(req))
		})
	}
}

func TestWriteReplayOmitsBodyWhenNotAllowed(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		method string
		status int
		body   string
	}{
		{"no-content", http.MethodGet, http.StatusNoContent, ""},
		{"not-modified", http.MethodGet, http.StatusNotModified, ""},
		{"head", http.MethodHead, http.StatusOK, ""},
		{"get", http.MethodGet, http.StatusOK, "payload"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			written, err := WriteReplay(
				rec,
				httptest.NewRequest(tc.method, "http://a.test/", nil),
				intercept.Decision{
					Outcome:    intercept.Replay,
					StatusCode: tc.status,
					Headers:    []index.Header{{Name: "etag", Value: `"abc"`}},
					Body:       []byte("payload"),
				},
			)
			require.NoError(t, err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.body, rec.Body.String())
			assert.Equal(t, len(tc.body), written)
			assert.Equal(t, `"abc"`, rec.Header().Get("Etag"))
		})
	}
}

func TestWriteReplayRejectsInformationalStatus(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		status   int
		rejected bool
	}{
		{"continue", http.StatusContinue, true},
		{"early-hints", http.StatusEarlyHints, true},
		{"unassigned", 199, true},
		{"switching-protocols", http.StatusSwitchingProtocols, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			_, err := WriteReplay(
				rec,
				httptest.NewRequest(http.MethodGet, "http://a.test/", nil),
				intercept.Decision{
					Outcome:    intercept.Replay,
					StatusCode: tc.status,
					Headers:    []index.Header{{Name: "Link", Value: "</a.css>"}},
				},
			)

			if tc.rejected {
				require.ErrorIs(t, err, ErrInformationalStatus)
				assert.Empty(t, rec.Header())
				assert.False(t, rec.Flushed)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.status, rec.Code)
			}
		})
	}
}

func TestRemoveHopByHopHeaders(t *testing.T) {
	t.Parallel()

	header := http.Header{}
	header.Set("Connection", "close, X-Session")
	header.Set("X-Session", "abc")
	header.Set("Keep-Alive", "timeout=5")
	header.Set("Proxy-Authorization", "Basic Zm9vOmJhcg==")
	header.Set("Content-Type", "text/plain")

	removeHopByHopHeaders(header)

	require.Equal(t, http.Header{"Content-Type": {"text/plain"}}, header)
}
