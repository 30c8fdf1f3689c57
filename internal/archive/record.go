package archive

import "io"

const ResponseRecordType = "response"

// Record is the subset of an archive record needed to replay it.
type Record struct {
	Type      string
	TargetURI string
	// Block holds the raw HTTP message: status line, header block and body.
	Block io.Reader
	close func() error
}

// Close releases the resources held by the record block, if any.
func (r *Record) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// RecordReader iterates over archive records.
//
// Next returns io.EOF once all records have been read. Errors wrapping
// ErrCorruptRecord only concern the current record and iteration may continue
// after them; any other error ends the iteration.
type RecordReader interface {
	Next() (*Record, error)
}
