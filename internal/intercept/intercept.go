// Package intercept decides, for each inbound request, whether a recorded
// response should be served in place of the live one.
package intercept

import (
	"github.com/benjaminschubert/warcreplay/internal/index"
)

const (
	ReplayHeader      = "X-Replayed-From-WARC"
	ReplayHeaderValue = "true"

	// MetadataReplayedFromWARC is set on the metadata of replayed decisions.
	MetadataReplayedFromWARC = "replayed_from_warc"
)

type Outcome int

const (
	// PassThrough leaves the request to the normal, live, handling path.
	PassThrough Outcome = iota
	// Replay answers the request with a recorded response.
	Replay
)

func (o Outcome) String() string {
	switch o {
	case Replay:
		return "replay"
	case PassThrough:
		return "pass-through"
	default:
		return "unknown"
	}
}

// Decision is the result of Intercept. Only Replay decisions carry a response.
type Decision struct {
	Outcome    Outcome
	StatusCode int
	Headers    []index.Header
	// Body is shared with the index and must not be modified.
	Body     []byte
	Metadata map[string]any
}

func (d Decision) IsReplay() bool {
	return d.Outcome == Replay
}

// Intercept looks requestURL up verbatim in idx.
//
// On a hit the recorded response is returned with the replay header appended
// after the recorded headers, and the replay flag set in the metadata. On a
// miss, or if idx is nil, the decision is PassThrough.
func Intercept(requestURL string, idx *index.Index) Decision {
	resp, ok := idx.Lookup(requestURL)
	if !ok {
		return Decision{Outcome: PassThrough}
	}

	headers := make([]index.Header, 0, len(resp.Headers)+1)
	headers = append(headers, resp.Headers...)
	headers = append(headers, index.Header{Name: ReplayHeader, Value: ReplayHeaderValue})

	return Decision{
		Outcome:    Replay,
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       resp.Body,
		Metadata:   map[string]any{MetadataReplayedFromWARC: true},
	}
}
