package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTitle is returned when a listing page carries no album title.
	ErrNoTitle = errors.New("no album title found on page")

	// ErrNoTracks is returned when a listing page carries no item links.
	ErrNoTracks = errors.New("no tracks found on page")
)

// FetchError reports a failed listing or metadata retrieval.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a document that lacks the expected fields.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransferError reports a media transfer that failed mid-stream or was
// refused by the server. The partial file is kept for the next run.
type TransferError struct {
	URL  string
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s -> %s: %v", e.URL, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ConversionError reports a failed format conversion. The source file is left intact.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Kind returns a short label for the error class of err, for log output.
func Kind(err error) string {
	var (
		fe *FetchError
		pe *ParseError
		te *TransferError
		ce *ConversionError
	)
	switch {
	case errors.As(err, &fe):
		return "fetch"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &te):
		return "transfer"
	case errors.As(err, &ce):
		return "conversion"
	}
	return "error"
}
