package psf

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Compare with errors.Is against a returned
// *DecodeError, or against the error directly when no offset context
// applies.
var (
	ErrUnexpectedEOF      = errors.New("psf: unexpected end of file")
	ErrBadSectionCode     = errors.New("psf: bad section preamble code")
	ErrBadSectionEnd      = errors.New("psf: section end position mismatch")
	ErrBadTag             = errors.New("psf: unexpected top-level section marker")
	ErrUnsupportedType    = errors.New("psf: value has an unsupported logical type")
	ErrMultipleSweeps     = errors.New("psf: more than one sweep variable")
	ErrMissingSweepPoints = errors.New("psf: missing \"PSF sweep points\" property")
	ErrTypeSizeMismatch   = errors.New("psf: trace type size does not match sweep type size")
	ErrMalformedGroup     = errors.New("psf: group declared more members than it contained")
)

// DecodeError wraps one of the sentinel kinds with the byte offset at which
// it was detected and a short human-readable message naming the offending
// variable, type, or section.
type DecodeError struct {
	Offset int64
	Kind   error
	Msg    string
}

func (e *DecodeError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%v (offset %d)", e.Kind, e.Offset)
	}
	return fmt.Sprintf("%v (offset %d): %s", e.Kind, e.Offset, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Kind }

func decodeErrf(offset int64, kind error, format string, args ...any) *DecodeError {
	return &DecodeError{Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
