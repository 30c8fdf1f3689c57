package archive

import (
	"errors"
	"fmt"
	"io"

	warc "github.com/internetarchive/gowarc"
)

type warcReader struct {
	reader *warc.Reader
}

// NewWARCReader reads WARC records from src. Both plain and gzip compressed
// archives are supported. src stays owned by the caller.
func NewWARCReader(src io.ReadSeekCloser) (RecordReader, error) {
	reader, err := warc.NewReader(src)
	if err != nil {
		return nil, err
	}
	return &warcReader{reader}, nil
}

func (w *warcReader) Next() (*Record, error) {
	record, eol, err := w.reader.ReadRecord()
	if eol {
		return nil, io.EOF
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if record != nil {
			closeContent(record)
			return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
		}
		return nil, err
	}
	if record == nil {
		return nil, io.EOF
	}

	if seeker, ok := any(record.Content).(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			closeContent(record)
			return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
		}
	}

	return &Record{
		Type:      record.Header.Get("WARC-Type"),
		TargetURI: record.Header.Get("WARC-Target-URI"),
		Block:     record.Content,
		close:     func() error { return closeContent(record) },
	}, nil
}

func closeContent(record *warc.Record) error {
	if closer, ok := any(record.Content).(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
