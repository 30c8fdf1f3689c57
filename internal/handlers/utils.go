package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/hlog"

	"github.com/benjaminschubert/warcreplay/internal/intercept"
)

const viaToken = "1.1 warcreplay"

var (
	ErrForwardingLoop      = errors.New("request already went through this proxy")
	// A recorded 1xx other than 101 is not a final response, net/http would
	// follow it with an implicit 200.
	ErrInformationalStatus = errors.New("recorded status is informational")

	// Headers only meaningful for a single connection, never forwarded.
	hopByHopHeaders = []string{
		"Connection",
		"Proxy-Connection",
		"Keep-Alive",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Te",
		"Trailer",
		"Transfer-Encoding",
		"Upgrade",
	}
)

var JSONHandlerPool = sync.Pool{
	New: func() any {
		buffer := new(bytes.Buffer)
		encoder := json.NewEncoder(buffer)
		encoder.SetIndent("", "  ")
		return &JSONHandler{buffer, encoder}
	},
}

type JSONHandler struct {
	Buffer  *bytes.Buffer
	Encoder *json.Encoder
}

// WriteJSON encodes value fully before sending it, so that encoding errors can
// still be reported with a proper status code.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, value any) {
	handler := JSONHandlerPool.Get().(*JSONHandler) //nolint:forcetypeassert
	defer func() {
		handler.Buffer.Reset()
		JSONHandlerPool.Put(handler)
	}()

	if err := handler.Encoder.Encode(value); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Unable to encode response")
		writeError(w, r, http.StatusInternalServerError, "Unable to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(handler.Buffer.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(handler.Buffer.Bytes()); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error sending response to client")
	}
}

// RequestURL returns the fully qualified URL the client asked for. Requests
// in absolute form, as sent to a forward proxy, keep their target verbatim.
func RequestURL(r *http.Request) string {
	if strings.HasPrefix(r.RequestURI, "http://") || strings.HasPrefix(r.RequestURI, "https://") {
		return r.RequestURI
	}
	if r.URL.IsAbs() {
		return r.URL.String()
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	target := r.RequestURI
	if target == "" {
		target = r.URL.RequestURI()
	}
	return scheme + "://" + r.Host + target
}

// WriteReplay commits a replayed response to the client and returns the
// number of body bytes written. Nothing is written when the error is
// ErrInformationalStatus.
func WriteReplay(w http.ResponseWriter, r *http.Request, decision intercept.Decision) (int, error) {
	if isInformational(decision.StatusCode) {
		return 0, fmt.Errorf("%w: %d", ErrInformationalStatus, decision.StatusCode)
	}

	header := w.Header()
	for _, h := range decision.Headers {
		header.Add(h.Name, h.Value)
	}

	withBody := r.Method != http.MethodHead && bodyAllowedForStatus(decision.StatusCode)
	if withBody {
		header.Set("Content-Length", strconv.Itoa(len(decision.Body)))
	}

	w.WriteHeader(decision.StatusCode)
	if !withBody {
		return 0, nil
	}
	return w.Write(decision.Body)
}

// Forward performs the request live against upstreamURL and streams the
// answer back. It returns the number of body bytes copied to the client.
//
// The returned error is only set when nothing was sent to the client yet, in
// which case the caller is still responsible for answering.
func Forward(
	w http.ResponseWriter,
	r *http.Request,
	upstreamURL string,
	client *http.Client,
) (int64, error) {
	for _, via := range r.Header.Values("Via") {
		if strings.Contains(via, viaToken) {
			return 0, ErrForwardingLoop
		}
	}

	upstreamReq, err := http.NewRequestWithContext(r.Context(), r.Method, upstreamURL, r.Body)
	if err != nil {
		return 0, err
	}
	upstreamReq.ContentLength = r.ContentLength
	upstreamReq.Header = r.Header.Clone()
	removeHopByHopHeaders(upstreamReq.Header)
	upstreamReq.Header.Add("Via", viaToken)

	resp, err := client.Do(upstreamReq)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Error closing the body of the upstream response")
		}
	}()

	removeHopByHopHeaders(resp.Header)
	for name, values := range resp.Header {
		w.Header()[name] = append(w.Header()[name], values...)
	}
	w.WriteHeader(resp.StatusCode)

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error streaming upstream response to client")
	}
	return written, nil
}

func removeHopByHopHeaders(header http.Header) {
	for _, value := range header.Values("Connection") {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				header.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		header.Del(name)
	}
}

func isInformational(status int) bool {
	return status >= 100 && status <= 199 && status != http.StatusSwitchingProtocols
}

func bodyAllowedForStatus(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
