package testutils

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLogger(tb testing.TB) *zerolog.Logger {
	tb.Helper()

	logger := zerolog.New(zerolog.NewConsoleWriter(zerolog.ConsoleTestWriter(tb)))
	return &logger
}

// WARCRecord describes a record to write with WriteWARC. Block is the raw
// record content, for response records the full HTTP message.
type WARCRecord struct {
	Type      string
	TargetURI string
	Block     string
}

// HTTPResponse renders a raw HTTP/1.1 response message.
func HTTPResponse(statusLine string, headers [][2]string, body string) string {
	builder := strings.Builder{}
	builder.WriteString(statusLine)
	builder.WriteString("\r\n")
	for _, header := range headers {
		builder.WriteString(header[0] + ": " + header[1] + "\r\n")
	}
	builder.WriteString("\r\n")
	builder.WriteString(body)
	return builder.String()
}

// WriteWARC writes an uncompressed WARC/1.0 archive holding records in a
// temporary directory and returns its path.
func WriteWARC(tb testing.TB, records ...WARCRecord) string {
	tb.Helper()

	var archive bytes.Buffer
	for i, record := range records {
		archive.Write(renderWARCRecord(i, record))
	}

	return writeArchive(tb, "archive.warc", archive.Bytes())
}

// WriteCompressedWARC writes records like WriteWARC, each record compressed
// as its own gzip member.
func WriteCompressedWARC(tb testing.TB, records ...WARCRecord) string {
	tb.Helper()

	var archive bytes.Buffer
	for i, record := range records {
		writer := gzip.NewWriter(&archive)
		_, err := writer.Write(renderWARCRecord(i, record))
		require.NoError(tb, err)
		require.NoError(tb, writer.Close())
	}

	return writeArchive(tb, "archive.warc.gz", archive.Bytes())
}

func renderWARCRecord(id int, record WARCRecord) []byte {
	builder := strings.Builder{}
	builder.WriteString("WARC/1.0\r\n")
	builder.WriteString("WARC-Type: " + record.Type + "\r\n")
	if record.TargetURI != "" {
		builder.WriteString("WARC-Target-URI: " + record.TargetURI + "\r\n")
	}
	builder.WriteString("WARC-Date: 2024-01-01T00:00:00Z\r\n")
	builder.WriteString(
		fmt.Sprintf("WARC-Record-ID: <urn:uuid:00000000-0000-0000-0000-%012d>\r\n", id),
	)
	if record.Type == "response" {
		builder.WriteString("Content-Type: application/http; msgtype=response\r\n")
	}
	builder.WriteString(fmt.Sprintf("Content-Length: %d\r\n", len(record.Block)))
	builder.WriteString("\r\n")
	builder.WriteString(record.Block)
	builder.WriteString("\r\n\r\n")
	return []byte(builder.String())
}

func writeArchive(tb testing.TB, name string, content []byte) string {
	tb.Helper()

	archivePath := path.Join(tb.TempDir(), name)
	require.NoError(tb, os.WriteFile(archivePath, content, 0o600))
	return archivePath
}
