package archive

import (
	"errors"
	"fmt"
)

var (
	ErrArchiveOpen      = errors.New("unable to open archive")
	ErrRecordURIMissing = errors.New("record has no target URI")
	ErrCorruptRecord    = errors.New("corrupt archive record")
	ErrStatusParse      = errors.New("unable to parse recorded status code")
	ErrBodyRead         = errors.New("unable to read recorded body")
	ErrMalformedHeaders = errors.New("malformed recorded header lines")
)

// OpenError is returned by Load when the archive cannot be opened at all. It
// is the only loading error that is ever returned to the caller.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrArchiveOpen, e.Path, e.Err)
}

func (e *OpenError) Unwrap() []error {
	return []error{ErrArchiveOpen, e.Err}
}

// StatusParseError reports a status line from which no numeric status code
// could be extracted. The response is indexed with a 200 status instead.
type StatusParseError struct {
	URI  string
	Line string
}

func (e *StatusParseError) Error() string {
	return fmt.Sprintf("%s for %s: %q", ErrStatusParse, e.URI, e.Line)
}

func (e *StatusParseError) Unwrap() error {
	return ErrStatusParse
}

// BodyReadError reports a recorded body that could not be read. The response
// is indexed with a placeholder body instead.
type BodyReadError struct {
	URI string
	Err error
}

func (e *BodyReadError) Error() string {
	return fmt.Sprintf("%s for %s: %s", ErrBodyRead, e.URI, e.Err)
}

func (e *BodyReadError) Unwrap() []error {
	return []error{ErrBodyRead, e.Err}
}

// MalformedHeadersError lists recorded header lines that are not headers. They
// are left out of the indexed response.
type MalformedHeadersError struct {
	URI   string
	Lines []string
}

func (e *MalformedHeadersError) Error() string {
	return fmt.Sprintf("%s for %s: %q", ErrMalformedHeaders, e.URI, e.Lines)
}

func (e *MalformedHeadersError) Unwrap() error {
	return ErrMalformedHeaders
}
