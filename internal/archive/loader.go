package archive

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/WhileEndless/go-httptools/pkg/chunked"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/benjaminschubert/warcreplay/internal/index"
	"github.com/benjaminschubert/warcreplay/internal/units"
)

// BodyPlaceholder replaces recorded bodies that cannot be read.
const BodyPlaceholder = "Unable to read body"

const maxConsecutiveCorruptRecords = 32

var hopByHopHeaders = []string{"Transfer-Encoding", "Content-Length", "Connection"}

// LoadSummary counts what happened to the records of an archive.
type LoadSummary struct {
	Records            int
	Indexed            int
	Replaced           int
	SkippedNotResponse int
	SkippedNoURI       int
	SkippedCorrupt     int
	StatusDefaulted    int
	BodyFallbacks      int
	MalformedHeaders   int
	// Interrupted is set when iteration stopped before the end of the archive.
	Interrupted bool
}

func (s LoadSummary) MarshalZerologObject(e *zerolog.Event) {
	e.Int("records", s.Records).
		Int("indexed", s.Indexed).
		Int("replaced", s.Replaced).
		Int("skippedNotResponse", s.SkippedNotResponse).
		Int("skippedNoUri", s.SkippedNoURI).
		Int("skippedCorrupt", s.SkippedCorrupt).
		Int("statusDefaulted", s.StatusDefaulted).
		Int("bodyFallbacks", s.BodyFallbacks).
		Int("malformedHeaders", s.MalformedHeaders).
		Bool("interrupted", s.Interrupted)
}

// Load reads the WARC archive at path into an index.
//
// Only a failure to open the archive is returned. Problems with individual
// records are logged and the records are skipped or repaired.
func Load(path string, logger *zerolog.Logger) (*index.Index, error) {
	idx, _, err := LoadWithSummary(path, logger)
	return idx, err
}

func LoadWithSummary(path string, logger *zerolog.Logger) (*index.Index, LoadSummary, error) {
	log := logger.With().Str("archive", path).Str("load", xid.New().String()).Logger()

	fp, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, LoadSummary{}, &OpenError{path, err}
	}
	defer func() {
		if err := fp.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing the archive")
		}
	}()

	reader, err := NewWARCReader(fp)
	if err != nil {
		return nil, LoadSummary{}, &OpenError{path, err}
	}

	idx, summary := LoadFrom(reader, &log)
	return idx, summary, nil
}

// LoadFrom builds an index from every response record produced by reader.
func LoadFrom(reader RecordReader, logger *zerolog.Logger) (*index.Index, LoadSummary) {
	builder := index.NewBuilder()
	summary := LoadSummary{}
	corruptInARow := 0

	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if errors.Is(err, ErrCorruptRecord) {
			summary.Records++
			summary.SkippedCorrupt++
			corruptInARow++
			logger.Warn().Err(err).Msg("Skipping corrupt record")

			if corruptInARow >= maxConsecutiveCorruptRecords {
				logger.Error().
					Int("corruptRecords", corruptInARow).
					Msg("Too many corrupt records in a row, ignoring the rest of the archive")
				summary.Interrupted = true
				break
			}
			continue
		}

		if err != nil {
			logger.Error().
				Err(err).
				Msg("Unable to read further records, keeping the ones read so far")
			summary.Interrupted = true
			break
		}

		corruptInARow = 0
		summary.Records++
		loadRecord(record, builder, &summary, logger)

		if err := record.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error releasing record")
		}
	}

	idx := builder.Build()
	logger.Info().
		EmbedObject(summary).
		Int("entries", idx.Len()).
		Str("bodySize", units.PrettyBytes(idx.TotalBodySize())).
		Msg("Archive loaded")

	return idx, summary
}

func loadRecord(
	record *Record,
	builder *index.Builder,
	summary *LoadSummary,
	logger *zerolog.Logger,
) {
	if !strings.EqualFold(record.Type, ResponseRecordType) {
		summary.SkippedNotResponse++
		return
	}

	if record.TargetURI == "" {
		summary.SkippedNoURI++
		logger.Debug().Err(ErrRecordURIMissing).Msg("Skipping response record")
		return
	}

	resp, errs := ParseResponse(record.TargetURI, record.Block)
	for _, err := range errs {
		switch {
		case errors.Is(err, ErrStatusParse):
			summary.StatusDefaulted++
		case errors.Is(err, ErrBodyRead):
			summary.BodyFallbacks++
		case errors.Is(err, ErrMalformedHeaders):
			summary.MalformedHeaders++
		}
		logger.Warn().Err(err).Str("uri", record.TargetURI).Msg("Repaired malformed response record")
	}

	summary.Indexed++
	if builder.Put(resp) {
		summary.Replaced++
		logger.Debug().Str("uri", record.TargetURI).Msg("Replacing earlier response for the same URI")
	}
}

// ParseResponse extracts the response recorded in block, the raw HTTP message
// of a response record.
//
// It never fails: the returned errors describe what had to be repaired. A
// missing or invalid status code becomes 200 and an unreadable body becomes
// BodyPlaceholder.
func ParseResponse(uri string, block io.Reader) (index.StoredResponse, []error) {
	resp := index.StoredResponse{URI: uri, StatusCode: http.StatusOK}
	if block == nil {
		block = bytes.NewReader(nil)
	}
	buffered := bufio.NewReader(block)

	statusLine, err := buffered.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		resp.Body = []byte(BodyPlaceholder)
		return resp, []error{
			&StatusParseError{uri, strings.TrimSpace(statusLine)},
			&BodyReadError{uri, err},
		}
	}

	var errs []error

	if code, ok := parseStatusCode(statusLine); ok {
		resp.StatusCode = code
	} else {
		errs = append(errs, &StatusParseError{uri, strings.TrimSpace(statusLine)})
	}

	lines, err := readHeaderLines(buffered)
	if err != nil {
		resp.Body = []byte(BodyPlaceholder)
		return resp, append(errs, &BodyReadError{uri, err})
	}

	recorded, malformed := parseHeaderLines(lines)
	if len(malformed) > 0 {
		errs = append(errs, &MalformedHeadersError{uri, malformed})
	}

	isChunked := false
	for _, header := range recorded {
		if isHopByHop(header.Name) {
			if strings.EqualFold(header.Name, "Transfer-Encoding") &&
				strings.Contains(strings.ToLower(header.Value), "chunked") {
				isChunked = true
			}
			continue
		}
		resp.Headers = append(resp.Headers, header)
	}

	body, err := io.ReadAll(buffered)
	if err != nil {
		resp.Body = []byte(BodyPlaceholder)
		return resp, append(errs, &BodyReadError{uri, err})
	}

	// The framing header is dropped, so the framing has to go as well.
	if isChunked && chunked.IsChunked(body) {
		body, _ = chunked.Decode(body)
	}
	resp.Body = body

	return resp, errs
}

func parseStatusCode(statusLine string) (int, bool) {
	fields := strings.Fields(statusLine)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0, false
	}

	code, err := strconv.Atoi(fields[1])
	if err != nil || code < 100 || code > 999 {
		return 0, false
	}
	return code, true
}

// readHeaderLines returns the header lines, without their line terminator,
// up to the empty line separating them from the body. Lines have no length
// limit.
func readHeaderLines(reader *bufio.Reader) ([]string, error) {
	var lines []string

	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return lines, nil
		}
		lines = append(lines, line)

		if err != nil {
			return lines, nil
		}
	}
}

// parseHeaderLines splits header lines into name/value pairs, keeping their
// order, casing and duplicates. Obsolete line folding is unfolded into the
// previous value. Lines that are not headers are returned separately and
// dropped.
func parseHeaderLines(lines []string) ([]index.Header, []string) {
	var (
		parsed    []index.Header
		malformed []string
	)

	for _, line := range lines {
		if line[0] == ' ' || line[0] == '\t' {
			if len(parsed) == 0 {
				malformed = append(malformed, line)
				continue
			}
			last := &parsed[len(parsed)-1]
			continuation := strings.TrimSpace(line)
			switch {
			case continuation == "":
			case last.Value == "":
				last.Value = continuation
			default:
				last.Value += " " + continuation
			}
			continue
		}

		name, value, found := strings.Cut(line, ":")
		if !found || name == "" || strings.ContainsAny(name, " \t") {
			malformed = append(malformed, line)
			continue
		}
		parsed = append(parsed, index.Header{Name: name, Value: strings.TrimSpace(value)})
	}

	return parsed, malformed
}

func isHopByHop(name string) bool {
	for _, hopByHop := range hopByHopHeaders {
		if strings.EqualFold(name, hopByHop) {
			return true
		}
	}
	return false
}
