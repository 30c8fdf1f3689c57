package admin

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/benjaminschubert/warcreplay/internal/config"
	"github.com/benjaminschubert/warcreplay/internal/handlers"
	"github.com/benjaminschubert/warcreplay/internal/index"
	"github.com/benjaminschubert/warcreplay/internal/middleware"
	"github.com/benjaminschubert/warcreplay/internal/units"
)

type summary struct {
	Archive       string                        `json:"archive"`
	Entries       int                           `json:"entries"`
	TotalBodySize string                        `json:"totalBodySize"`
	Statistics    middleware.StatisticsSnapshot `json:"statistics"`
	Config        string                        `json:"config"`
}

type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type entry struct {
	URI        string   `json:"uri"`
	StatusCode int      `json:"status"`
	Headers    []header `json:"headers"`
	Size       int      `json:"size"`
	PrettySize string   `json:"prettySize"`
	Digest     string   `json:"digest"`
}

func newEntry(resp index.StoredResponse) entry {
	digest := blake3.Sum256(resp.Body)

	headers := make([]header, 0, len(resp.Headers))
	for _, h := range resp.Headers {
		headers = append(headers, header{h.Name, h.Value})
	}

	return entry{
		URI:        resp.URI,
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Size:       len(resp.Body),
		PrettySize: units.PrettyBytes(len(resp.Body)),
		Digest:     "blake3:" + hex.EncodeToString(digest[:]),
	}
}

func RegisterHandler(
	handler *http.ServeMux,
	idx *index.Index,
	stats *middleware.Statistics,
	conf *config.Config,
) error {
	renderedConfig, err := renderConfig(conf)
	if err != nil {
		return err
	}

	handler.HandleFunc("GET /entries", func(w http.ResponseWriter, r *http.Request) {
		uris := idx.URIs()
		entries := make([]entry, 0, len(uris))
		for _, uri := range uris {
			resp, _ := idx.Lookup(uri)
			entries = append(entries, newEntry(resp))
		}

		handlers.WriteJSON(w, r, http.StatusOK, entries)
	})

	handler.HandleFunc("GET /entry", func(w http.ResponseWriter, r *http.Request) {
		uri := r.URL.Query().Get("uri")
		resp, ok := idx.Lookup(uri)
		if !ok {
			handlers.WriteJSON(
				w,
				r,
				http.StatusNotFound,
				map[string]string{"error": "no response recorded for this URI"},
			)
			return
		}

		handlers.WriteJSON(w, r, http.StatusOK, newEntry(resp))
	})

	handler.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, r, http.StatusOK, summary{
			Archive:       conf.Archive,
			Entries:       idx.Len(),
			TotalBodySize: units.PrettyBytes(idx.TotalBodySize()),
			Statistics:    stats.Snapshot(),
			Config:        renderedConfig,
		})
	})

	return nil
}

func renderConfig(conf *config.Config) (string, error) {
	buffer := strings.Builder{}
	encoder := yaml.NewEncoder(&buffer)
	err := encoder.Encode(conf)
	return buffer.String(), err
}
