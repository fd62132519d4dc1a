// Package cwmerr implements the error taxonomy of spec §7: a small set of
// typed, wrapped errors carrying enough context (file, chunk id, offset)
// for the pipeline driver to log one stable message-id line per failure and
// move on to the next file.
package cwmerr

import "fmt"

// Kind is one taxonomy bucket from spec §7.
type Kind string

const (
	KindIO                 Kind = "IoError"
	KindTruncated          Kind = "Truncated"
	KindBadMagic           Kind = "BadMagic"
	KindUnexpectedChunk    Kind = "UnexpectedChunk"
	KindUnsupportedVersion Kind = "UnsupportedVersion"
	KindEncryptedFile      Kind = "EncryptedFile"
	KindValueOutOfRange    Kind = "ValueOutOfRange"
	KindSampleNotFound     Kind = "SampleNotFound"
	KindFeatureNotSupported Kind = "FeatureNotSupported"
	KindConstraintViolation Kind = "ConstraintViolation"
	KindCycleDetected      Kind = "CycleDetected"
	KindAlignmentBroken    Kind = "AlignmentBroken"
)

// Error is the wrapped, contextualized error type the core returns.
// Every instance carries a stable message-id key so the Notifier collaborator
// can localize it without inspecting Go-specific text (spec §7: "every error
// produces exactly one log line with a stable message-id key").
type Error struct {
	Kind    Kind
	ID      string // IDS_*-style message key
	File    string
	ChunkID string
	Offset  int64
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s [%s]", e.ID, e.Kind)
	if e.File != "" {
		msg += " file=" + e.File
	}
	if e.ChunkID != "" {
		msg += " chunk=" + e.ChunkID
	}
	if e.Offset != 0 {
		msg += fmt.Sprintf(" offset=%d", e.Offset)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Fatal reports whether this error kind halts processing of the current
// file (IoError, FormatError variants) as opposed to being recoverable
// in-place (ValueOutOfRange, SampleNotFound, FeatureNotSupported,
// ConstraintViolation, which are logged and the file continues).
func (e *Error) Fatal() bool {
	switch e.Kind {
	case KindIO, KindTruncated, KindBadMagic, KindUnexpectedChunk, KindUnsupportedVersion, KindEncryptedFile, KindCycleDetected:
		return true
	default:
		return false
	}
}

// New constructs an Error.
func New(kind Kind, id, file string, cause error) *Error {
	return &Error{Kind: kind, ID: id, File: file, Cause: cause}
}

// WithChunk attaches chunk-id/offset context and returns the same error for chaining.
func (e *Error) WithChunk(id string, offset int64) *Error {
	e.ChunkID = id
	e.Offset = offset
	return e
}
